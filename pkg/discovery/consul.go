package discovery

import (
	"fmt"
	"strconv"

	"settings-service/internal/config"
	"settings-service/internal/logging"

	"github.com/hashicorp/consul/api"
	"go.uber.org/zap"
)

type ServiceRegistry struct {
	client *api.Client
	config *config.Config
	logger *zap.Logger
}

func NewServiceRegistry(cfg *config.Config, logger *zap.Logger) (*ServiceRegistry, error) {
	consulConfig := api.DefaultConfig()
	consulConfig.Address = cfg.Consul.ConsulAddress

	client, err := api.NewClient(consulConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create Consul client: %w", err)
	}

	return &ServiceRegistry{
		client: client,
		config: cfg,
		logger: logging.OrNop(logger),
	}, nil
}

func (sr *ServiceRegistry) serviceID() string {
	return sr.config.Server.ServiceID + "-http"
}

// Registration describes the HTTP service with a health check on /health.
func (sr *ServiceRegistry) Registration() *api.AgentServiceRegistration {
	httpPort, _ := strconv.Atoi(sr.config.Server.Port)

	return &api.AgentServiceRegistration{
		ID:      sr.serviceID(),
		Name:    sr.config.Server.ServiceName,
		Port:    httpPort,
		Address: sr.config.Server.ServiceAddress,
		Check: &api.AgentServiceCheck{
			HTTP:     fmt.Sprintf("http://%s:%s/health", sr.config.Server.ServiceAddress, sr.config.Server.Port),
			Interval: "10s",
			Timeout:  "5s",
		},
		Tags: []string{"settings", "preferences", "http"},
		Meta: map[string]string{
			"protocol": "http",
		},
	}
}

func (sr *ServiceRegistry) Register() error {
	if err := sr.client.Agent().ServiceRegister(sr.Registration()); err != nil {
		return fmt.Errorf("failed to register HTTP service with Consul: %w", err)
	}

	sr.logger.Info("Registered service with Consul",
		zap.String("serviceId", sr.serviceID()),
		zap.String("address", sr.config.Consul.ConsulAddress))
	return nil
}

func (sr *ServiceRegistry) Deregister() error {
	if err := sr.client.Agent().ServiceDeregister(sr.serviceID()); err != nil {
		return fmt.Errorf("failed to deregister HTTP service: %w", err)
	}
	return nil
}
