package backend

import (
	"context"

	"ausgaben/internal/ports"
	"ausgaben/internal/services"
)

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// Backend bundles a store with the services built on top of it.
type Backend struct {
	Store      ports.Store
	Categories *services.CategoryService
	Expenses   *services.ExpenseService
	Budgets    *services.BudgetService

	// Ready reports whether the store is reachable.
	Ready func(context.Context) error
	// Cleanup closes the store and the AMQP connection, if any.
	Cleanup CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*Backend, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	// SQLite specific
	SQLiteDBPath string

	// Memory backend specific
	DataDirectory string

	// Sync announcements, disabled when AMQPURL is empty
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Quick entry
	DefaultCategory     string
	DynamicCategoryTags bool
}

// BackendType represents the type of backend
type BackendType string

const (
	SQLiteBackend BackendType = "sqlite"
	MemoryBackend BackendType = "memory"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
