package usecase

import (
	"context"
	"encoding/json"
	"time"

	"CellScope/internal/domain/models"
	domrepo "CellScope/internal/domain/repository"
	pkgkafka "CellScope/pkg/kafka"
)

// KafkaCyclesHandler consumes cycle updates from Kafka and writes them
// to the cycle store.
type KafkaCyclesHandler struct {
	topic   string
	store   domrepo.CycleStore
	metrics domrepo.Metrics
}

func NewKafkaCyclesHandler(topic string, store domrepo.CycleStore, metrics domrepo.Metrics) *KafkaCyclesHandler {
	return &KafkaCyclesHandler{topic: topic, store: store, metrics: metrics}
}

func (h *KafkaCyclesHandler) Topic() string { return h.topic }

// Handle decodes one CycleUpdate message and persists it.
func (h *KafkaCyclesHandler) Handle(ctx context.Context, b []byte) error {
	var u models.CycleUpdate
	if err := json.Unmarshal(b, &u); err != nil {
		h.metrics.RecordError("consumer_unmarshal")
		return err
	}

	start := time.Now()
	err := h.store.Store(ctx, &u)
	h.metrics.RecordLatency("ch_insert_seconds", time.Since(start).Seconds())
	if err != nil {
		h.metrics.RecordError("consumer_store")
		return err
	}
	h.metrics.RecordMessageSent("clickhouse", u.CellID)
	return nil
}

var _ pkgkafka.MessageHandler = (*KafkaCyclesHandler)(nil)
