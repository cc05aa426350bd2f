package di

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/teranga-kitchen/api/internal/platform/config"
	"github.com/teranga-kitchen/api/internal/repositories"
	"github.com/teranga-kitchen/api/internal/services"
)

// Services bundles the service-layer contracts that handlers rely upon. Concrete implementations
// are assembled via dependency injection in NewContainer.
type Services struct {
	Orders  services.OrderService
	Catalog services.CatalogService
	System  services.SystemService
}

// Container wires repositories and services for runtime use.
type Container struct {
	Config       config.Config
	Repositories repositories.Registry
	Services     Services
}

type containerConfig struct {
	events   services.OrderEventPublisher
	notifier services.OrderNotifier
	logger   *zap.Logger
	build    services.BuildInfo
	clock    func() time.Time
}

// ContainerOption customises container construction.
type ContainerOption func(*containerConfig)

// WithEventPublisher injects the publisher used for order domain events.
func WithEventPublisher(events services.OrderEventPublisher) ContainerOption {
	return func(cfg *containerConfig) {
		cfg.events = events
	}
}

// WithOrderNotifier injects the staff notifier for order messages.
func WithOrderNotifier(notifier services.OrderNotifier) ContainerOption {
	return func(cfg *containerConfig) {
		cfg.notifier = notifier
	}
}

// WithLogger injects the logger used for service-level events.
func WithLogger(logger *zap.Logger) ContainerOption {
	return func(cfg *containerConfig) {
		cfg.logger = logger
	}
}

// WithBuildInfo sets the build metadata exposed through health endpoints.
func WithBuildInfo(build services.BuildInfo) ContainerOption {
	return func(cfg *containerConfig) {
		cfg.build = build
	}
}

// WithClock overrides the clock, primarily for tests.
func WithClock(clock func() time.Time) ContainerOption {
	return func(cfg *containerConfig) {
		if clock != nil {
			cfg.clock = clock
		}
	}
}

// NewContainer constructs the runtime dependencies. Production wiring provides real
// implementations, while tests can supply in-memory registries.
func NewContainer(_ context.Context, cfg config.Config, reg repositories.Registry, opts ...ContainerOption) (*Container, error) {
	if reg == nil {
		return nil, errors.New("repositories registry is required")
	}

	cc := containerConfig{
		logger: zap.NewNop(),
		clock:  time.Now,
	}
	for _, opt := range opts {
		opt(&cc)
	}

	svc, err := buildServices(reg, cfg, cc)
	if err != nil {
		return nil, err
	}

	return &Container{
		Config:       cfg,
		Repositories: reg,
		Services:     svc,
	}, nil
}

// Close releases resources such as repository clients.
func (c *Container) Close(ctx context.Context) error {
	if c == nil || c.Repositories == nil {
		return nil
	}
	return c.Repositories.Close(ctx)
}

func buildServices(reg repositories.Registry, cfg config.Config, cc containerConfig) (Services, error) {
	var svc Services

	catalogRepo := reg.Catalog()
	if catalogRepo == nil {
		return Services{}, errors.New("catalog repository is required")
	}
	ordersRepo := reg.Orders()
	if ordersRepo == nil {
		return Services{}, errors.New("order repository is required")
	}
	counterRepo := reg.Counters()
	if counterRepo == nil {
		return Services{}, errors.New("counter repository is required")
	}

	catalogSvc, err := services.NewCatalogService(services.CatalogServiceDeps{
		Catalog: catalogRepo,
		Clock:   cc.clock,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build catalog service: %w", err)
	}
	svc.Catalog = catalogSvc

	pricer, err := services.NewCartPricingEngine(services.CartPricingEngineDeps{
		Catalog: catalogRepo,
		Logger:  zapEventLogger(cc.logger.Named("pricing")),
	})
	if err != nil {
		return Services{}, fmt.Errorf("build pricing engine: %w", err)
	}

	orderSvc, err := services.NewOrderService(services.OrderServiceDeps{
		Orders:     ordersRepo,
		Counters:   counterRepo,
		Pricer:     pricer,
		UnitOfWork: reg,
		Policy:     services.TransitionPolicy(cfg.Orders.TransitionPolicy),
		Clock:      cc.clock,
		Events:     cc.events,
		Notifier:   cc.notifier,
		Logger:     zapEventLogger(cc.logger.Named("orders")),
	})
	if err != nil {
		return Services{}, fmt.Errorf("build order service: %w", err)
	}
	svc.Orders = orderSvc

	if healthRepo := reg.Health(); healthRepo != nil {
		systemSvc, err := services.NewSystemService(services.SystemServiceDeps{
			HealthRepository: healthRepo,
			Counters:         counterRepo,
			Clock:            cc.clock,
			Build:            cc.build,
		})
		if err != nil {
			return Services{}, fmt.Errorf("build system service: %w", err)
		}
		svc.System = systemSvc
	}

	return svc, nil
}

func zapEventLogger(logger *zap.Logger) func(context.Context, string, map[string]any) {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(_ context.Context, event string, fields map[string]any) {
		zFields := make([]zap.Field, 0, len(fields)+1)
		zFields = append(zFields, zap.String("event", event))
		for k, v := range fields {
			zFields = append(zFields, zap.Any(k, v))
		}
		logger.Debug("service log", zFields...)
	}
}
