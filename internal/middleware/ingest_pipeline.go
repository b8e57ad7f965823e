package middleware

import (
	"context"
	"fmt"
	"sync"
	"time"

	"CellScope/internal/domain/models"
	domrepo "CellScope/internal/domain/repository"
)

// Proc is the minimal processor interface the pipeline needs.
type Proc interface {
	Process(ctx context.Context, u *models.CycleUpdate) error
}

// IngestPipeline sits between the cycler gateway stream and the backend.
// It validates, throttles per cell, optionally transforms, and buffers
// updates while downstream is unavailable.
type IngestPipeline struct {
	proc     Proc
	metrics  domrepo.Metrics
	maxRPS   int
	bufSize  int
	bufCh    chan *models.CycleUpdate
	stopCh   chan struct{}
	started  bool
	mu       sync.Mutex
	lastSeen map[string]time.Time // per-cell last accepted time
	// optional format transform hook
	transform func(*models.CycleUpdate) *models.CycleUpdate

	bufDepthGauge func(int)
	throttleWarn  func(string)
}

type PipelineOption func(*IngestPipeline)

// WithMaxRPS sets the max accepted updates per second per cell.
func WithMaxRPS(n int) PipelineOption {
	return func(p *IngestPipeline) {
		if n > 0 {
			p.maxRPS = n
		}
	}
}

// WithBufferSize sets the retry buffer size used when downstream fails.
func WithBufferSize(n int) PipelineOption {
	return func(p *IngestPipeline) {
		if n > 0 {
			p.bufSize = n
		}
	}
}

// WithTransform sets a transformation hook applied before validation of
// the transformed update.
func WithTransform(fn func(*models.CycleUpdate) *models.CycleUpdate) PipelineOption {
	return func(p *IngestPipeline) { p.transform = fn }
}

// NewIngestPipeline creates a new pipeline.
func NewIngestPipeline(proc Proc, metrics domrepo.Metrics, opts ...PipelineOption) *IngestPipeline {
	p := &IngestPipeline{
		proc:     proc,
		metrics:  metrics,
		maxRPS:   20,
		bufSize:  1000,
		bufCh:    make(chan *models.CycleUpdate, 1000),
		stopCh:   make(chan struct{}),
		lastSeen: make(map[string]time.Time),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.bufSize != cap(p.bufCh) {
		p.bufCh = make(chan *models.CycleUpdate, p.bufSize)
	}
	p.bufDepthGauge = func(n int) { p.metrics.RecordLatency("pipeline_buffer_depth", float64(n)) }
	p.throttleWarn = func(cell string) { p.metrics.RecordError("pipeline_throttle_" + cell) }
	return p
}

// Start launches background flushing of buffered updates.
func (p *IngestPipeline) Start(ctx context.Context) {
	p.mu.Lock()
	if p.started {
		p.mu.Unlock()
		return
	}
	p.started = true
	p.mu.Unlock()

	go func() {
		backoff := 50 * time.Millisecond
		for {
			select {
			case <-p.stopCh:
				return
			case u := <-p.bufCh:
				if u == nil {
					continue
				}
				if err := p.proc.Process(ctx, u); err != nil {
					if backoff < 2*time.Second {
						backoff *= 2
					}
					p.metrics.RecordError("pipeline_flush")
					time.Sleep(backoff)
					// requeue if space; drop otherwise
					select {
					case p.bufCh <- u:
					default:
						p.metrics.RecordError("pipeline_buffer_drop")
					}
				} else {
					backoff = 50 * time.Millisecond
				}
			}
		}
	}()
}

// Stop stops the background flushing.
func (p *IngestPipeline) Stop() {
	p.mu.Lock()
	if !p.started {
		p.mu.Unlock()
		return
	}
	p.started = false
	p.mu.Unlock()
	close(p.stopCh)
}

// Process validates, throttles, and forwards an update downstream,
// buffering it when the backend call fails.
func (p *IngestPipeline) Process(ctx context.Context, u *models.CycleUpdate) error {
	start := time.Now()
	if err := validateUpdate(u); err != nil {
		p.metrics.RecordError("pipeline_validate")
		return err
	}
	if p.transform != nil {
		u = p.transform(u)
		if err := validateUpdate(u); err != nil {
			p.metrics.RecordError("pipeline_transform_invalid")
			return err
		}
	}
	if !p.allow(u.CellID, start) {
		// throttled; record and drop silently
		p.metrics.RecordError("pipeline_throttle")
		if p.throttleWarn != nil {
			p.throttleWarn(u.CellID)
		}
		return nil
	}

	if err := p.proc.Process(ctx, u); err != nil {
		p.metrics.RecordError("pipeline_process")
		select {
		case p.bufCh <- u:
			if p.bufDepthGauge != nil {
				p.bufDepthGauge(len(p.bufCh))
			}
		default:
			p.metrics.RecordError("pipeline_buffer_full")
		}
		return fmt.Errorf("pipeline downstream: %w", err)
	}
	p.metrics.RecordLatency("pipeline_process", time.Since(start).Seconds())
	return nil
}

// validateUpdate rejects structurally broken updates; physically odd
// values pass through so the detectors can flag them.
func validateUpdate(u *models.CycleUpdate) error {
	if u == nil {
		return fmt.Errorf("cycle update nil")
	}
	if u.ExperimentID == "" {
		return fmt.Errorf("experiment empty")
	}
	if u.CellID == "" {
		return fmt.Errorf("cell empty")
	}
	if u.Record.CycleNumber <= 0 {
		return fmt.Errorf("cycle number invalid")
	}
	return nil
}

func (p *IngestPipeline) allow(cell string, now time.Time) bool {
	if p.maxRPS <= 0 {
		return true
	}
	last := p.lastSeen[cell]
	if last.IsZero() {
		p.lastSeen[cell] = now
		return true
	}
	if now.Sub(last) < time.Second/time.Duration(p.maxRPS) {
		return false
	}
	p.lastSeen[cell] = now
	return true
}
