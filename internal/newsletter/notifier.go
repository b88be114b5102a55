// Package newsletter forwards newsletter preference changes to the mailing
// system.
package newsletter

import (
	"context"
	"encoding/json"
	"strconv"
	"sync"
	"time"

	"github.com/Aidin1998/accounts/pkg/metrics"
	"github.com/Aidin1998/accounts/pkg/models"
	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

const EventType = "newsletter.preference_changed"

// Notifier delivers a newsletter preference update.
type Notifier interface {
	Notify(ctx context.Context, update *models.NewsletterUpdate) error
	Close() error
}

// Event is the message written for every update.
type Event struct {
	ID         string                   `json:"id"`
	Type       string                   `json:"type"`
	OccurredAt time.Time                `json:"occurred_at"`
	Payload    *models.NewsletterUpdate `json:"payload"`
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaNotifier publishes updates to a kafka topic keyed by user id.
type KafkaNotifier struct {
	writer messageWriter
}

func NewKafkaNotifier(brokers []string, topic string) *KafkaNotifier {
	return &KafkaNotifier{writer: &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		BatchTimeout: 10 * time.Millisecond,
	}}
}

func (n *KafkaNotifier) Notify(ctx context.Context, update *models.NewsletterUpdate) error {
	value, err := json.Marshal(Event{
		ID:         uuid.NewString(),
		Type:       EventType,
		OccurredAt: time.Now().UTC(),
		Payload:    update,
	})
	if err != nil {
		return err
	}
	return n.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(strconv.FormatUint(uint64(update.UserID), 10)),
		Value: value,
		Headers: []kafka.Header{
			{Key: "type", Value: []byte(EventType)},
		},
	})
}

func (n *KafkaNotifier) Close() error {
	return n.writer.Close()
}

// LogNotifier only logs updates. Used when kafka is disabled.
type LogNotifier struct {
	log *zap.Logger
}

func NewLogNotifier(log *zap.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

func (n *LogNotifier) Notify(_ context.Context, update *models.NewsletterUpdate) error {
	n.log.Info("newsletter preference changed",
		zap.Uint("user_id", update.UserID),
		zap.String("email", update.Email),
		zap.Bool("allow_newsletters", update.AllowNewsletters))
	return nil
}

func (n *LogNotifier) Close() error { return nil }

// Recorder keeps every update in memory.
type Recorder struct {
	mu      sync.Mutex
	updates []models.NewsletterUpdate
	Err     error
}

func (r *Recorder) Notify(_ context.Context, update *models.NewsletterUpdate) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	r.updates = append(r.updates, *update)
	return nil
}

func (r *Recorder) Close() error { return nil }

// Updates returns a copy of the recorded updates.
func (r *Recorder) Updates() []models.NewsletterUpdate {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.NewsletterUpdate(nil), r.updates...)
}

// Publisher sends updates without failing the caller.
type Publisher struct {
	notifier Notifier
	log      *zap.Logger
	timeout  time.Duration
}

func NewPublisher(notifier Notifier, log *zap.Logger, timeout time.Duration) *Publisher {
	return &Publisher{notifier: notifier, log: log, timeout: timeout}
}

// Publish delivers update; failures are logged and counted.
func (p *Publisher) Publish(ctx context.Context, update *models.NewsletterUpdate) {
	if update == nil {
		return
	}
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	if err := p.notifier.Notify(ctx, update); err != nil {
		metrics.NewsletterEvents.WithLabelValues("failed").Inc()
		p.log.Warn("failed to publish newsletter update", zap.Uint("user_id", update.UserID), zap.Error(err))
		return
	}
	metrics.NewsletterEvents.WithLabelValues("published").Inc()
}
