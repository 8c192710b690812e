package apperr

import (
	"errors"
	"fmt"
	"testing"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"not found", NotFound("product %d not found", 7), KindNotFound},
		{"invalid input", InvalidInput("quantity must be positive"), KindInvalidInput},
		{"business rule", BusinessRule("order already reserved"), KindBusinessRule},
		{"stock unavailable", StockUnavailable("short by %d", 3), KindStockUnavailable},
		{"wrapped", fmt.Errorf("ship order: %w", BusinessRule("not reserved")), KindBusinessRule},
		{"plain", errors.New("boom"), KindUnknown},
		{"nil", nil, KindUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KindOf(tt.err); got != tt.want {
				t.Errorf("KindOf() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestErrorsIsMatchesKind(t *testing.T) {
	err := fmt.Errorf("reserve: %w", NotFound("warehouse %d not found", 2))

	if !errors.Is(err, ErrNotFound) {
		t.Error("expected errors.Is to match ErrNotFound")
	}
	if errors.Is(err, ErrBusinessRule) {
		t.Error("did not expect errors.Is to match ErrBusinessRule")
	}
}

func TestWrapKeepsCause(t *testing.T) {
	cause := errors.New("connection reset")
	err := Wrap(KindNotFound, cause, "load order %d", 4)

	if !errors.Is(err, cause) {
		t.Error("cause should be reachable through Unwrap")
	}
	want := "load order 4: connection reset"
	if err.Error() != want {
		t.Errorf("got %q, want %q", err.Error(), want)
	}
}

func TestKindString(t *testing.T) {
	if KindStockUnavailable.String() != "stock_unavailable" {
		t.Errorf("got %q", KindStockUnavailable.String())
	}
	if Kind(99).String() != "unknown" {
		t.Errorf("got %q", Kind(99).String())
	}
}
