package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-inventory/internal/models"
)

type recordingWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (w *recordingWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *recordingWriter) Close() error {
	w.closed = true
	return nil
}

func samplePurchase() *models.PurchaseResult {
	return &models.PurchaseResult{
		CartID: 7,
		PurchasedItems: []models.PurchasedLine{{
			ItemID:    1,
			ItemName:  "Widget",
			Quantity:  2,
			UnitPrice: decimal.RequireFromString("10.99"),
			LineTotal: decimal.RequireFromString("21.98"),
		}},
		PurchaseTotal: decimal.RequireFromString("21.98"),
	}
}

func TestNewPurchaseCompleted(t *testing.T) {
	at := time.Date(2025, 7, 11, 12, 0, 0, 0, time.FixedZone("X", 3600))
	ev := NewPurchaseCompleted("u1", ModeStrict, samplePurchase(), at)

	_, err := uuid.Parse(ev.EventID)
	require.NoError(t, err)
	assert.Equal(t, "u1", ev.UserID)
	assert.Equal(t, int64(7), ev.CartID)
	assert.Equal(t, ModeStrict, ev.Mode)
	assert.Len(t, ev.Items, 1)
	assert.True(t, ev.Total.Equal(decimal.RequireFromString("21.98")))
	assert.Equal(t, time.UTC, ev.OccurredAt.Location())
}

func TestKafkaPublisher_Publish(t *testing.T) {
	w := &recordingWriter{}
	p := &KafkaPublisher{writer: w}

	ev := NewPurchaseCompleted("u1", ModeConfirm, samplePurchase(), time.Now())
	require.NoError(t, p.Publish(context.Background(), ev))

	require.Len(t, w.msgs, 1)
	assert.Equal(t, []byte("u1"), w.msgs[0].Key)

	var got PurchaseCompleted
	require.NoError(t, json.Unmarshal(w.msgs[0].Value, &got))
	assert.Equal(t, ev.EventID, got.EventID)
	assert.Equal(t, ModeConfirm, got.Mode)
	assert.True(t, got.Total.Equal(ev.Total))

	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}

func TestKafkaPublisher_WriteError(t *testing.T) {
	p := &KafkaPublisher{writer: &recordingWriter{err: errors.New("broker down")}}

	err := p.Publish(context.Background(), NewPurchaseCompleted("u1", ModeStrict, samplePurchase(), time.Now()))
	assert.ErrorContains(t, err, "broker down")
}

func TestNewKafkaPublisher_DefaultTopic(t *testing.T) {
	p := NewKafkaPublisher([]string{"localhost:9092"}, "")
	defer p.Close()

	w, ok := p.writer.(*kafka.Writer)
	require.True(t, ok)
	assert.Equal(t, DefaultTopic, w.Topic)
}

func TestNopPublisher(t *testing.T) {
	var p Publisher = NopPublisher{}
	assert.NoError(t, p.Publish(context.Background(), PurchaseCompleted{}))
	assert.NoError(t, p.Close())
}
