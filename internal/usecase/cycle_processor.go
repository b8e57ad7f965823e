package usecase

import (
	"context"
	"fmt"
	"time"

	"CellScope/internal/domain/models"
	drepo "CellScope/internal/domain/repository"
)

// CycleProcessor routes cycle updates to the configured backend: Kafka
// for the full pipeline, ClickHouse for direct writes.
type CycleProcessor struct {
	pub     drepo.Publisher
	store   drepo.CycleStore
	metrics drepo.Metrics
	backend string
	batchSz int
	batchTO time.Duration
}

func NewCycleProcessor(
	pub drepo.Publisher,
	store drepo.CycleStore,
	metrics drepo.Metrics,
	backend string,
	batchSz int,
	batchTO time.Duration,
) *CycleProcessor {
	return &CycleProcessor{
		pub:     pub,
		store:   store,
		metrics: metrics,
		backend: backend,
		batchSz: batchSz,
		batchTO: batchTO,
	}
}

// Process routes a single cycle update.
func (p *CycleProcessor) Process(ctx context.Context, u *models.CycleUpdate) error {
	if u == nil {
		return fmt.Errorf("cycle update is nil")
	}

	start := time.Now()
	var err error

	switch p.backend {
	case "kafka":
		err = p.pub.Publish(ctx, u)
	case "clickhouse":
		err = p.store.Store(ctx, u)
	default:
		err = fmt.Errorf("unknown backend: %s", p.backend)
	}

	if err != nil {
		p.metrics.RecordError("process")
		return fmt.Errorf("process cycle: %w", err)
	}

	p.metrics.RecordMessageSent(p.backend, u.CellID)
	p.metrics.RecordLatency("process", time.Since(start).Seconds())

	return nil
}

// ProcessBatch routes multiple cycle updates in one backend call.
func (p *CycleProcessor) ProcessBatch(ctx context.Context, updates []*models.CycleUpdate) error {
	if len(updates) == 0 {
		return nil
	}

	start := time.Now()
	var err error

	switch p.backend {
	case "kafka":
		err = p.pub.PublishBatch(ctx, updates)
	case "clickhouse":
		err = p.store.StoreBatch(ctx, updates)
	default:
		err = fmt.Errorf("unknown backend: %s", p.backend)
	}

	if err != nil {
		p.metrics.RecordError("process_batch")
		return fmt.Errorf("process batch: %w", err)
	}

	for _, u := range updates {
		p.metrics.RecordMessageSent(p.backend, u.CellID)
	}
	p.metrics.RecordLatency("process_batch", time.Since(start).Seconds())

	return nil
}

// Close closes underlying resources if available.
func (p *CycleProcessor) Close() {
	if p.pub != nil {
		_ = p.pub.Close()
	}
	if p.store != nil {
		_ = p.store.Close()
	}
}
