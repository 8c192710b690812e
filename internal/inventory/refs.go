package inventory

import "fmt"

// Reference documents tie movements and stock events back to the order that
// caused them.

func SalesOrderRef(orderID int64) string {
	return fmt.Sprintf("SO-%d", orderID)
}

func SalesOrderPartialRef(orderID int64) string {
	return fmt.Sprintf("SO-%d-PARTIAL", orderID)
}

func SalesOrderCancelRef(orderID int64) string {
	return fmt.Sprintf("SO-%d-CANCEL", orderID)
}

func PurchaseOrderRef(orderID int64) string {
	return fmt.Sprintf("PO-%d", orderID)
}
