package usecase

import (
	"context"

	"CellScope/internal/domain/models"
	drepo "CellScope/internal/domain/repository"
	mid "CellScope/internal/middleware"
)

// CycleCollector consumes cycle-complete events from the gateway stream
// and hands them to the processor, optionally through the ingest pipeline.
type CycleCollector struct {
	stream  drepo.CycleStream
	proc    *CycleProcessor
	metrics drepo.Metrics
	pipe    *mid.IngestPipeline
}

func NewCycleCollector(stream drepo.CycleStream, proc *CycleProcessor, metrics drepo.Metrics, pipe *mid.IngestPipeline) *CycleCollector {
	return &CycleCollector{stream: stream, proc: proc, metrics: metrics, pipe: pipe}
}

// IsConnected returns true if the gateway stream is connected.
func (c *CycleCollector) IsConnected() bool {
	return c.stream.IsConnected()
}

func (c *CycleCollector) Start(ctx context.Context) error {
	if err := c.stream.Connect(ctx); err != nil {
		return err
	}
	if err := c.stream.Subscribe(ctx); err != nil {
		return err
	}
	if c.pipe != nil {
		c.pipe.Start(ctx)
	}
	upCh, errCh := c.stream.Read(ctx)
	go c.consume(ctx, upCh, errCh)
	return nil
}

func (c *CycleCollector) consume(ctx context.Context, upCh <-chan *models.CycleUpdate, errCh <-chan error) {
	for {
		select {
		case <-ctx.Done():
			return
		case err := <-errCh:
			if err != nil {
				c.metrics.RecordError("stream")
				_ = c.stream.Reconnect(ctx)
			}
		case u := <-upCh:
			if u == nil {
				continue
			}
			if c.pipe != nil {
				_ = c.pipe.Process(ctx, u)
			} else {
				_ = c.proc.Process(ctx, u)
			}
		}
	}
}

func (c *CycleCollector) Stop() error { return c.stream.Close() }

// Processor returns the underlying CycleProcessor for lifecycle management.
func (c *CycleCollector) Processor() *CycleProcessor { return c.proc }

// Shutdown stops the pipeline and closes the stream.
func (c *CycleCollector) Shutdown(ctx context.Context) error {
	if c.pipe != nil {
		c.pipe.Stop()
	}
	return c.stream.Close()
}
