package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/corray333/backend-labs/registration/internal/dal/rabbitmq"
	"github.com/corray333/backend-labs/registration/internal/service/models/submission"
)

// PersonRegistered is the message published for every accepted registration.
type PersonRegistered struct {
	SubmissionID  string    `json:"submissionId"`
	CI            string    `json:"ci"`
	TransaccionID string    `json:"transaccionId,omitempty"`
	Transport     string    `json:"transport"`
	Replayed      bool      `json:"replayed"`
	RegisteredAt  time.Time `json:"registeredAt"`
}

func newPersonRegistered(s submission.Submission) PersonRegistered {
	return PersonRegistered{
		SubmissionID:  s.ID,
		CI:            s.CI,
		TransaccionID: s.TransaccionID,
		Transport:     s.Transport,
		Replayed:      s.Replays > 0,
		RegisteredAt:  s.UpdatedAt,
	}
}

type EventRabbitMQRepository struct {
	client *rabbitmq.Client
	queue  string
}

func NewEventRabbitMQRepository(client *rabbitmq.Client, queueName string) *EventRabbitMQRepository {
	queue, err := client.DeclareQueue(rabbitmq.DeclareQueueConfig{
		Name:    queueName,
		Durable: true,
	})
	if err != nil {
		panic(err)
	}

	return &EventRabbitMQRepository{
		client: client,
		queue:  queue.Name,
	}
}

func (r *EventRabbitMQRepository) PublishRegistered(ctx context.Context, s submission.Submission) error {
	data, err := json.Marshal(newPersonRegistered(s))
	if err != nil {
		return fmt.Errorf("failed to marshal person registered event: %w", err)
	}

	if err := r.client.PublishJSON(ctx, r.queue, data); err != nil {
		return fmt.Errorf("failed to publish person registered event: %w", err)
	}

	return nil
}
