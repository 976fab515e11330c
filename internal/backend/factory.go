package backend

import (
	"context"
	"fmt"

	"ausgaben/internal/amqp"
	"ausgaben/internal/log"
	"ausgaben/internal/ports"
	"ausgaben/internal/services"
	"ausgaben/internal/storage"
	"ausgaben/internal/storage/memory"
)

var _ Factory = (*DefaultFactory)(nil)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *log.Logger
	// dial is replaced in tests to avoid a broker.
	dial func(url, exchange, queue string) (ports.SyncPublisher, error)
}

// NewFactory creates a new backend factory
func NewFactory(logger *log.Logger) *DefaultFactory {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &DefaultFactory{
		logger: logger.WithComponent(log.ComponentBackend),
		dial: func(url, exchange, queue string) (ports.SyncPublisher, error) {
			return amqp.NewClient(url, exchange, queue)
		},
	}
}

// CreateBackend opens the configured store, seeds the default category
// and wires the services. AMQP failures only disable sync announcements.
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*Backend, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var (
		store ports.Store
		ready func(context.Context) error
	)
	switch config.Type {
	case SQLiteBackend:
		repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
		}
		store, ready = repo, repo.Ping
		f.logger.Info("Initialized SQLite backend", "db_path", config.SQLiteDBPath)
	case MemoryBackend:
		dataDir := config.DataDirectory
		if dataDir == "" {
			dataDir = "data"
		}
		store = memory.NewFromFiles(dataDir)
		f.logger.Info("Initialized memory backend", "data_directory", dataDir)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}

	categories := services.NewCategoryService(store)
	if err := categories.EnsureDefaults(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("seed default categories: %w", err)
	}

	opts := []services.ExpenseOption{
		services.WithDefaultCategory(config.DefaultCategory),
		services.WithDynamicTags(config.DynamicCategoryTags),
	}
	if config.AMQPURL != "" {
		publisher, err := f.dial(config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
		if err != nil {
			f.logger.Warn("Failed to initialize AMQP client, continuing without sync", log.FieldError, err)
		} else {
			f.logger.Info("Initialized AMQP client", "exchange", config.AMQPExchange, "queue", config.AMQPQueue)
			opts = append(opts, services.WithPublisher(publisher))
		}
	}

	expenses := services.NewExpenseService(store, categories, opts...)
	return &Backend{
		Store:      store,
		Categories: categories,
		Expenses:   expenses,
		Budgets:    services.NewBudgetService(store),
		Ready:      ready,
		Cleanup:    expenses.Close,
	}, nil
}
