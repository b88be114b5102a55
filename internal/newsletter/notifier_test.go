package newsletter

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/Aidin1998/accounts/pkg/models"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeWriter struct {
	messages []kafka.Message
	err      error
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *fakeWriter) Close() error { return nil }

func TestKafkaNotifierMessage(t *testing.T) {
	w := &fakeWriter{}
	n := &KafkaNotifier{writer: w}

	update := &models.NewsletterUpdate{UserID: 12, Email: "a@example.com", AllowNewsletters: true, UpdateNotifications: 1}
	require.NoError(t, n.Notify(context.Background(), update))
	require.Len(t, w.messages, 1)

	msg := w.messages[0]
	assert.Equal(t, "12", string(msg.Key))

	var payload map[string]interface{}
	require.NoError(t, json.Unmarshal(msg.Value, &payload))
	assert.Equal(t, EventType, payload["type"])
	assert.NotEmpty(t, payload["id"])

	body := payload["payload"].(map[string]interface{})
	assert.Equal(t, "a@example.com", body["email"])
	assert.Equal(t, true, body["allow_newsletters"])
	assert.Equal(t, float64(1), body["update-notifications"])
	assert.Equal(t, float64(0), body["new-user"])
}

func TestPublisherSwallowsFailures(t *testing.T) {
	rec := &Recorder{Err: errors.New("broker down")}
	p := NewPublisher(rec, zap.NewNop(), time.Second)

	assert.NotPanics(t, func() {
		p.Publish(context.Background(), &models.NewsletterUpdate{UserID: 1})
	})
	assert.Empty(t, rec.Updates())

	rec.Err = nil
	p.Publish(context.Background(), &models.NewsletterUpdate{UserID: 1, Email: "b@example.com"})
	p.Publish(context.Background(), nil)
	require.Len(t, rec.Updates(), 1)
	assert.Equal(t, "b@example.com", rec.Updates()[0].Email)
}

func TestKafkaNotifierPropagatesWriteError(t *testing.T) {
	n := &KafkaNotifier{writer: &fakeWriter{err: errors.New("leader not available")}}
	assert.Error(t, n.Notify(context.Background(), &models.NewsletterUpdate{UserID: 3}))
}
