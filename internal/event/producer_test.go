package event

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/blackcave0/ecommerc-memonto/internal/domain"
	pkgkafka "github.com/blackcave0/ecommerc-memonto/pkg/kafka"
	"github.com/blackcave0/ecommerc-memonto/pkg/logger"
)

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) Publish(ctx context.Context, topic string, event *pkgkafka.Event) error {
	args := m.Called(ctx, topic, event)
	return args.Error(0)
}

func newTestProducer() (*Producer, *mockPublisher) {
	pub := new(mockPublisher)
	return NewProducer(pub, slog.New(slog.NewTextHandler(io.Discard, nil))), pub
}

func strPtr(s string) *string { return &s }

func TestPublishCartUpdated(t *testing.T) {
	p, pub := newTestProducer()
	ctx := logger.WithCorrelationID(context.Background(), "corr-1")

	cart := domain.Cart{
		Items: []domain.LineItem{
			{ID: "i1", ProductID: 1, Name: "Minimalist Jacket", Price: "$189", Quantity: 2, Size: strPtr("M")},
		},
		TotalItems: 2,
		TotalPrice: "$378.00",
	}

	var got CartUpdatedData
	pub.On("Publish", ctx, TopicCartUpdated, mock.MatchedBy(func(e *pkgkafka.Event) bool {
		require.NoError(t, e.Decode(&got))
		return e.AggregateID == "s1" && e.AggregateType == AggregateTypeCart &&
			e.Source == SourceStorefront && e.CorrelationID == "corr-1"
	})).Return(nil)

	require.NoError(t, p.PublishCartUpdated(ctx, "s1", cart))

	pub.AssertExpectations(t)
	assert.Equal(t, "s1", got.SessionID)
	assert.Equal(t, int64(37800), got.TotalAmount)
	require.Len(t, got.Items, 1)
	assert.Equal(t, "M", *got.Items[0].Size)
}

func TestPublishCartCleared(t *testing.T) {
	p, pub := newTestProducer()
	ctx := context.Background()

	pub.On("Publish", ctx, TopicCartCleared, mock.MatchedBy(func(e *pkgkafka.Event) bool {
		return e.AggregateID == "s1" && e.CorrelationID == ""
	})).Return(nil)

	require.NoError(t, p.PublishCartCleared(ctx, "s1"))
	pub.AssertExpectations(t)
}

func TestPublishOrderPlaced(t *testing.T) {
	p, pub := newTestProducer()
	ctx := logger.WithUserID(context.Background(), "user-1")

	order := &domain.Order{
		ID:            "ord-1",
		UserID:        "user-1",
		TotalAmount:   40350,
		Currency:      "usd",
		PaymentMethod: "card",
		Items:         []domain.OrderItem{{ProductID: 1, Quantity: 2, Price: 18900}, {ProductID: 2, Quantity: 1, Price: 2550}},
	}

	var got OrderPlacedData
	pub.On("Publish", ctx, TopicOrderPlaced, mock.MatchedBy(func(e *pkgkafka.Event) bool {
		require.NoError(t, e.Decode(&got))
		return e.AggregateID == "ord-1" && e.Metadata["user_id"] == "user-1"
	})).Return(nil)

	require.NoError(t, p.PublishOrderPlaced(ctx, order))

	assert.Equal(t, int64(40350), got.TotalAmount)
	assert.Len(t, got.Items, 2)
}

func TestPublish_ErrorIsWrapped(t *testing.T) {
	p, pub := newTestProducer()
	pub.On("Publish", mock.Anything, TopicCartCleared, mock.Anything).Return(errors.New("broker down"))

	err := p.PublishCartCleared(context.Background(), "s1")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "publish storefront.cart.cleared event")
}
