package container

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/garyjia/deptboard/internal/application/dispatcher"
	"github.com/garyjia/deptboard/internal/application/port"
	"github.com/garyjia/deptboard/internal/application/service"
	"github.com/garyjia/deptboard/internal/config"
	"github.com/garyjia/deptboard/internal/infrastructure/cache"
	"github.com/garyjia/deptboard/internal/infrastructure/export"
	"github.com/garyjia/deptboard/internal/infrastructure/persistence/repository"
	"github.com/garyjia/deptboard/internal/infrastructure/persistence/sqlite"
	"github.com/garyjia/deptboard/migrations"
	"github.com/garyjia/deptboard/pkg/database"
)

// DatabaseBundle holds database-related components.
type DatabaseBundle struct {
	DB             *database.DB
	TransactionMgr *sqlite.DB
}

// RepositoryBundle groups all repositories for convenient access.
type RepositoryBundle struct {
	Tasks       port.TaskRepository
	Boards      port.BoardRepository
	Columns     port.ColumnRepository
	Permissions port.PermissionRepository
	Companies   port.CompanyRepository
	Activities  port.ActivityRepository
	Provisioner port.BoardProvisioner

	// TxManager is the transaction manager services must use; it keeps the
	// lane cache in step with committed writes.
	TxManager port.TransactionManager
}

// ServiceBundle groups all application services.
type ServiceBundle struct {
	Companies service.CompanyService
	Router    service.BoardRouter
	Sequencer service.ColumnSequencer
	Tasks     service.TaskService
	Columns   service.ColumnService
	Activity  service.ActivityService
	Export    service.ExportService
}

// ProvideDatabase opens the SQLite store and applies pending migrations.
func ProvideDatabase(cfg *config.Config, logger *zap.Logger) (*DatabaseBundle, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	db, err := database.New(databaseConfig(cfg), logger)
	if err != nil {
		return nil, err
	}

	applied, err := database.NewMigrator(db, logger).RunMigrations(migrations.FS)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	logger.Info("Migrations applied", zap.Int("count", applied))

	return &DatabaseBundle{
		DB:             db,
		TransactionMgr: sqlite.NewDB(db.DB, logger),
	}, nil
}

// ProvideRedis connects the lane cache. It returns nil when no address is
// configured. An unreachable server is logged but not fatal: the cache falls
// through to SQLite until Redis answers.
func ProvideRedis(cfg *config.Config, logger *zap.Logger) *redis.Client {
	if cfg.Redis.Addr == "" {
		logger.Info("Lane cache disabled")
		return nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("Redis not reachable, lane cache will fall through", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
	} else {
		logger.Info("Lane cache connected", zap.String("addr", cfg.Redis.Addr))
	}
	return client
}

// ProvideRepositories creates all repositories. Task reads go through the
// lane cache when a Redis client is given.
func ProvideRepositories(db *DatabaseBundle, rdb *redis.Client, cfg *config.Config, logger *zap.Logger) (*RepositoryBundle, error) {
	if db == nil || db.DB == nil {
		return nil, fmt.Errorf("database connection is required")
	}

	sqlDB := db.DB.DB
	boards := repository.NewBoardRepository(sqlDB, logger)
	columns := repository.NewColumnRepository(sqlDB, logger)
	permissions := repository.NewPermissionRepository(sqlDB, logger)

	var tasks port.TaskRepository = repository.NewTaskRepository(sqlDB, logger)
	var txManager port.TransactionManager = db.TransactionMgr
	if rdb != nil {
		cached := cache.NewTaskCache(tasks, rdb, cfg.Redis.TTL, cfg.Redis.Prefix, logger)
		tasks = cached
		txManager = cached.Transactions(db.TransactionMgr)
	}

	return &RepositoryBundle{
		Tasks:       tasks,
		Boards:      boards,
		Columns:     columns,
		Permissions: permissions,
		Companies:   repository.NewCompanyRepository(sqlDB, logger),
		Activities:  repository.NewActivityRepository(sqlDB, logger),
		Provisioner: repository.NewBoardProvisioner(boards, columns, permissions, db.TransactionMgr, logger),
		TxManager:   txManager,
	}, nil
}

// ProvideDispatcher creates the event dispatcher.
func ProvideDispatcher(logger *zap.Logger) dispatcher.Dispatcher {
	return dispatcher.NewDispatcher(dispatcher.WithLogger(&zapLoggerAdapter{logger: logger}))
}

// ProvideServices creates the application services and subscribes the
// activity log to the dispatcher.
func ProvideServices(repos *RepositoryBundle, disp dispatcher.Dispatcher, cfg *config.Config, logger *zap.Logger) (*ServiceBundle, error) {
	if repos == nil {
		return nil, fmt.Errorf("repositories are required")
	}
	if disp == nil {
		return nil, fmt.Errorf("dispatcher is required")
	}

	log := &zapLoggerAdapter{logger: logger}

	router := service.NewBoardRouter(repos.Companies, repos.Boards, repos.Columns, repos.Provisioner, disp, log)
	sequencer := service.NewColumnSequencer(repos.Tasks, repos.Columns, repos.Boards, repos.TxManager, disp, sequencerConfig(cfg), log)

	activity := service.NewActivityService(repos.Activities, log)
	disp.SubscribeMany(service.ActivityEventTypes, "activity-log", activity.HandleEvent)

	return &ServiceBundle{
		Companies: service.NewCompanyService(repos.Companies, router, log),
		Router:    router,
		Sequencer: sequencer,
		Tasks:     service.NewTaskService(repos.Tasks, router, sequencer, repos.TxManager, disp, log),
		Columns:   service.NewColumnService(repos.Boards, repos.Columns, repos.Tasks, repos.TxManager, log),
		Activity:  activity,
		Export:    service.NewExportService(repos.Boards, repos.Columns, sequencer, export.NewExcelExporter(logger), log),
	}, nil
}
