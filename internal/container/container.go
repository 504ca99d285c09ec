package container

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/garyjia/deptboard/internal/application/dispatcher"
	"github.com/garyjia/deptboard/internal/application/port"
	"github.com/garyjia/deptboard/internal/config"
	httpapi "github.com/garyjia/deptboard/internal/interfaces/http"
	"github.com/garyjia/deptboard/internal/interfaces/websocket"
	"github.com/garyjia/deptboard/pkg/database"
)

// Container manages all application dependencies and lifecycle.
// Components start in dependency order and close in reverse.
type Container struct {
	config *config.Config
	logger *zap.Logger

	// Infrastructure
	db           *database.DB
	redis        *redis.Client
	repositories *RepositoryBundle

	// Application
	dispatcher dispatcher.Dispatcher
	services   *ServiceBundle

	// Interfaces
	hub    *websocket.Hub
	server *httpapi.Server

	// Lifecycle
	mu     sync.Mutex
	ready  atomic.Bool
	closed atomic.Bool
}

// HealthStatus represents the health of all components.
type HealthStatus struct {
	Overall    bool                       `json:"overall"`
	Components map[string]ComponentHealth `json:"components"`
}

// ComponentHealth represents health of a single component.
type ComponentHealth struct {
	Healthy bool   `json:"healthy"`
	Message string `json:"message,omitempty"`
}

// NewContainer creates a new container from configuration.
// It does not initialize components - call Start() to initialize.
func NewContainer(cfg *config.Config, logger *zap.Logger) (*Container, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Container{
		config: cfg,
		logger: logger,
	}, nil
}

// Start initializes all components. Components are initialized in dependency order:
// 1. Database, cache and repositories
// 2. Event dispatcher and services
// 3. Board feed and HTTP server
func (c *Container) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Load() {
		return fmt.Errorf("container has been closed")
	}
	if c.ready.Load() {
		return fmt.Errorf("container already started")
	}

	c.logger.Info("Starting container initialization")

	// Step 1: Initialize database and repositories
	if err := c.initDatabase(); err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	c.logger.Info("Database initialized")

	// Step 2: Initialize dispatcher and services
	if err := c.initServices(); err != nil {
		return fmt.Errorf("failed to initialize services: %w", err)
	}
	c.logger.Info("Application services initialized")

	// Step 3: Initialize interfaces
	c.initInterfaces()
	c.logger.Info("HTTP server initialized", zap.String("address", c.server.Address()))

	c.ready.Store(true)
	c.logger.Info("Container started successfully")
	return nil
}

// Close gracefully shuts down all components in reverse order.
func (c *Container) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Load() {
		return fmt.Errorf("container already closed")
	}

	c.logger.Info("Closing container")

	var errs []error

	// Step 1: Stop accepting requests (reverse of step 3)
	if c.server != nil {
		if err := c.server.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("stop server: %w", err))
		}
	}
	if c.hub != nil {
		if err := c.hub.Close(); err != nil {
			c.logger.Error("Failed to close board feed", zap.Error(err))
			errs = append(errs, fmt.Errorf("close board feed: %w", err))
		}
	}

	// Step 2: Close dispatcher (reverse of step 2)
	if c.dispatcher != nil {
		if err := c.dispatcher.Close(); err != nil {
			c.logger.Error("Failed to close dispatcher", zap.Error(err))
			errs = append(errs, fmt.Errorf("close dispatcher: %w", err))
		} else {
			c.logger.Info("Dispatcher closed")
		}
	}

	// Step 3: Close cache and database (reverse of step 1)
	if c.redis != nil {
		if err := c.redis.Close(); err != nil {
			c.logger.Error("Failed to close redis client", zap.Error(err))
			errs = append(errs, fmt.Errorf("close redis: %w", err))
		}
	}
	if c.db != nil {
		if err := c.db.Close(); err != nil {
			c.logger.Error("Failed to close database", zap.Error(err))
			errs = append(errs, fmt.Errorf("close database: %w", err))
		} else {
			c.logger.Info("Database closed")
		}
	}

	c.closed.Store(true)
	c.ready.Store(false)

	if len(errs) > 0 {
		c.logger.Error("Container closed with errors", zap.Int("error_count", len(errs)))
		return fmt.Errorf("container closed with %d errors", len(errs))
	}

	c.logger.Info("Container closed successfully")
	return nil
}

// Ready returns true when all components are initialized.
func (c *Container) Ready() bool {
	return c.ready.Load()
}

// Health returns health status of all components.
// The lane cache is reported but never fails the overall status.
func (c *Container) Health(ctx context.Context) *HealthStatus {
	status := &HealthStatus{
		Overall:    true,
		Components: make(map[string]ComponentHealth),
	}

	if c.db == nil {
		status.Components["database"] = ComponentHealth{Healthy: false, Message: "not initialized"}
		status.Overall = false
	} else if err := c.db.Health(ctx); err != nil {
		status.Components["database"] = ComponentHealth{Healthy: false, Message: fmt.Sprintf("ping failed: %v", err)}
		status.Overall = false
	} else {
		status.Components["database"] = ComponentHealth{Healthy: true}
	}

	switch {
	case c.redis == nil:
		status.Components["cache"] = ComponentHealth{Healthy: true, Message: "disabled"}
	default:
		if err := c.redis.Ping(ctx).Err(); err != nil {
			status.Components["cache"] = ComponentHealth{Healthy: false, Message: fmt.Sprintf("ping failed: %v", err)}
		} else {
			status.Components["cache"] = ComponentHealth{Healthy: true}
		}
	}

	if c.dispatcher != nil {
		status.Components["dispatcher"] = ComponentHealth{Healthy: true}
	} else {
		status.Components["dispatcher"] = ComponentHealth{Healthy: false, Message: "not initialized"}
		status.Overall = false
	}

	if c.hub != nil {
		status.Components["feed"] = ComponentHealth{Healthy: true}
	} else {
		status.Components["feed"] = ComponentHealth{Healthy: true, Message: "disabled"}
	}

	return status
}

// checkHealth adapts Health to the HTTP health endpoint
func (c *Container) checkHealth(ctx context.Context) error {
	status := c.Health(ctx)
	if status.Overall {
		return nil
	}
	for name, comp := range status.Components {
		if !comp.Healthy {
			return fmt.Errorf("%s: %s", name, comp.Message)
		}
	}
	return fmt.Errorf("unhealthy")
}

func (c *Container) initDatabase() error {
	dbBundle, err := ProvideDatabase(c.config, c.logger)
	if err != nil {
		return err
	}
	c.db = dbBundle.DB

	c.redis = ProvideRedis(c.config, c.logger)

	repos, err := ProvideRepositories(dbBundle, c.redis, c.config, c.logger)
	if err != nil {
		_ = c.db.Close()
		return err
	}
	c.repositories = repos
	return nil
}

func (c *Container) initServices() error {
	c.dispatcher = ProvideDispatcher(c.logger)

	services, err := ProvideServices(c.repositories, c.dispatcher, c.config, c.logger)
	if err != nil {
		return err
	}
	c.services = services
	return nil
}

func (c *Container) initInterfaces() {
	var feed httpapi.BoardFeed
	if c.config.Feed.Enabled {
		c.hub = websocket.NewHub(hubConfig(c.config), c.logger)
		c.hub.Register(c.dispatcher)
		feed = c.hub
	}

	c.server = httpapi.NewServer(serverConfig(c.config), httpapi.Services{
		Companies: c.services.Companies,
		Router:    c.services.Router,
		Sequencer: c.services.Sequencer,
		Tasks:     c.services.Tasks,
		Columns:   c.services.Columns,
		Activity:  c.services.Activity,
		Export:    c.services.Export,
		Feed:      feed,
		Health:    c.checkHealth,
	}, &zapLoggerAdapter{logger: c.logger})
}

// Getters for accessing container components

// DB returns the transaction manager the services use.
func (c *Container) DB() port.TransactionManager {
	return c.repositories.TxManager
}

// Repositories returns all repositories.
func (c *Container) Repositories() *RepositoryBundle {
	return c.repositories
}

// Dispatcher returns the event dispatcher.
func (c *Container) Dispatcher() dispatcher.Dispatcher {
	return c.dispatcher
}

// Services returns all application services.
func (c *Container) Services() *ServiceBundle {
	return c.services
}

// Server returns the HTTP server.
func (c *Container) Server() *httpapi.Server {
	return c.server
}

// Logger returns the container's logger.
func (c *Container) Logger() *zap.Logger {
	return c.logger
}

// Config returns the container's configuration.
func (c *Container) Config() *config.Config {
	return c.config
}

// zapLoggerAdapter adapts zap.Logger to the key/value Logger interfaces of
// the services, the dispatcher and the HTTP layer.
type zapLoggerAdapter struct {
	logger *zap.Logger
}

func (a *zapLoggerAdapter) Info(msg string, keysAndValues ...interface{}) {
	a.logger.Info(msg, convertToZapFields(keysAndValues...)...)
}

func (a *zapLoggerAdapter) Error(msg string, keysAndValues ...interface{}) {
	a.logger.Error(msg, convertToZapFields(keysAndValues...)...)
}

// convertToZapFields converts key-value pairs to zap fields.
func convertToZapFields(keysAndValues ...interface{}) []zap.Field {
	fields := make([]zap.Field, 0, len(keysAndValues)/2)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		key, ok := keysAndValues[i].(string)
		if !ok {
			continue
		}
		if err, isErr := keysAndValues[i+1].(error); isErr {
			fields = append(fields, zap.NamedError(key, err))
			continue
		}
		fields = append(fields, zap.Any(key, keysAndValues[i+1]))
	}
	return fields
}
