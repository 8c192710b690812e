// Package discovery registers the API with a Consul agent.
package discovery

import (
	"fmt"
	"os"
	"strconv"

	"github.com/hashicorp/consul/api"
)

type ConsulClient struct {
	client *api.Client
}

func NewConsulClient(address string) (*ConsulClient, error) {
	config := api.DefaultConfig()
	config.Address = address

	client, err := api.NewClient(config)
	if err != nil {
		return nil, fmt.Errorf("create consul client: %w", err)
	}

	return &ConsulClient{client: client}, nil
}

func (c *ConsulClient) RegisterService(serviceID, serviceName, port string) error {
	registration, err := NewRegistration(serviceID, serviceName, port)
	if err != nil {
		return err
	}
	if err := c.client.Agent().ServiceRegister(registration); err != nil {
		return fmt.Errorf("register service %s: %w", serviceID, err)
	}
	return nil
}

func (c *ConsulClient) DeregisterService(serviceID string) error {
	if err := c.client.Agent().ServiceDeregister(serviceID); err != nil {
		return fmt.Errorf("deregister service %s: %w", serviceID, err)
	}
	return nil
}

// NewRegistration builds the agent registration with an HTTP check against
// /health on the container hostname.
func NewRegistration(serviceID, serviceName, port string) (*api.AgentServiceRegistration, error) {
	p, err := strconv.Atoi(port)
	if err != nil {
		return nil, fmt.Errorf("parse service port %q: %w", port, err)
	}

	hostname := os.Getenv("HOSTNAME")
	if hostname == "" {
		hostname = serviceName
	}

	return &api.AgentServiceRegistration{
		ID:      serviceID,
		Name:    serviceName,
		Address: hostname,
		Port:    p,
		Tags:    []string{"inventory", "http"},
		Check: &api.AgentServiceCheck{
			HTTP:                           fmt.Sprintf("http://%s:%d/health", hostname, p),
			Interval:                       "10s",
			Timeout:                        "5s",
			DeregisterCriticalServiceAfter: "30s",
		},
	}, nil
}
