package backend

import (
	"context"

	"schoolcompare/internal/comparison"
	"schoolcompare/internal/provider"
)

// Backend is everything the web process reads from a data backend.
type Backend interface {
	provider.Provider
	provider.PopularityReader
}

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// ReadyFunc reports whether the backend can serve requests.
type ReadyFunc func(ctx context.Context) error

// BackendResult contains the backend and the stores wired around it.
type BackendResult struct {
	Backend Backend
	// KV persists comparison lists.
	KV comparison.KeyValueStore
	// Events receives comparison events, either in-process or via a broker.
	Events  provider.EventRecorder
	Ready   ReadyFunc
	Cleanup CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	// SQLite specific
	SQLiteDBPath string
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Memory backend specific
	DataDirectory string
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
