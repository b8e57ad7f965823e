package repository

import (
	"context"

	"CellScope/internal/domain/models"
)

// CycleStream is a live feed of cycle-complete events from a cycler gateway.
type CycleStream interface {
	Connect(ctx context.Context) error
	Subscribe(ctx context.Context) error
	Read(ctx context.Context) (<-chan *models.CycleUpdate, <-chan error)
	Reconnect(ctx context.Context) error
	Close() error
	IsConnected() bool
}

// Publisher hands cycle updates to the message bus.
type Publisher interface {
	Publish(ctx context.Context, u *models.CycleUpdate) error
	PublishBatch(ctx context.Context, updates []*models.CycleUpdate) error
	Close() error
}

// CycleStore persists cycle rows and reconstructs cell series for analysis.
type CycleStore interface {
	Init(ctx context.Context) error // ensure tables, health checks
	Store(ctx context.Context, u *models.CycleUpdate) error
	StoreBatch(ctx context.Context, updates []*models.CycleUpdate) error

	// GetCellSeries reconstructs the full cycling history of one cell,
	// cycles ordered ascending, plus its metadata row.
	GetCellSeries(ctx context.Context, experiment, cell string) (*models.CellSeries, error)

	// ListCells returns the cell identifiers of an experiment.
	ListCells(ctx context.Context, experiment string) ([]string, error)

	// GetFirstDischarges returns the first valid specific discharge
	// capacity per cell for an experiment, the sibling population
	// cross-cell detectors compare against.
	GetFirstDischarges(ctx context.Context, experiment string) (map[string]float64, error)

	Health(ctx context.Context) error // ping
	Close() error
}

// Metrics records operational counters for the pipeline and detection passes.
type Metrics interface {
	RecordMessageSent(backend, cell string)
	RecordError(kind string)
	RecordFlags(severity string, n int)
	RecordLatency(op string, seconds float64)
}
