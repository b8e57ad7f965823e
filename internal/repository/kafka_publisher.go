package repository

import (
	"context"

	"CellScope/internal/domain/models"
	domrepo "CellScope/internal/domain/repository"
	pkgkafka "CellScope/pkg/kafka"
)

// KafkaPublisher implements Publisher on the cycles topic. Messages key
// on cell id so one cell's cycles stay ordered within a partition.
type KafkaPublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

func NewKafkaPublisher(producer *pkgkafka.Producer, topic string) domrepo.Publisher {
	return &KafkaPublisher{producer: producer, topic: topic}
}

func (p *KafkaPublisher) Publish(ctx context.Context, u *models.CycleUpdate) error {
	return p.producer.Publish(ctx, p.topic, []byte(u.CellID), u)
}

func (p *KafkaPublisher) PublishBatch(ctx context.Context, updates []*models.CycleUpdate) error {
	if len(updates) == 0 {
		return nil
	}
	msgs := make([]pkgkafka.Message, len(updates))
	for i, u := range updates {
		msgs[i] = pkgkafka.Message{
			Key:   []byte(u.CellID),
			Value: u,
		}
	}
	return p.producer.PublishBatch(ctx, p.topic, msgs)
}

func (p *KafkaPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}
