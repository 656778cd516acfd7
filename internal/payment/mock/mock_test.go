package mock

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blackcave0/ecommerc-memonto/internal/payment"
	apperrors "github.com/blackcave0/ecommerc-memonto/pkg/errors"
)

func input() *payment.SessionInput {
	return &payment.SessionInput{
		Items:      []payment.LineItem{{Name: "Jacket", Image: "/img/1.jpg", Price: "$100", Quantity: 2}},
		SuccessURL: payment.SuccessURL("http://localhost:3000"),
		CancelURL:  payment.CancelURL("http://localhost:3000"),
	}
}

func TestGateway_CreateAndRetrieve(t *testing.T) {
	g := NewGateway()
	ctx := context.Background()

	s, err := g.CreateSession(ctx, input())
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(s.ID, "cs_mock_"))
	assert.Equal(t, "http://localhost:3000/checkout/success?session_id="+s.ID, s.URL)
	assert.Equal(t, int64(20000), s.AmountTotal)

	got, err := g.RetrieveSession(ctx, s.ID)
	require.NoError(t, err)
	assert.True(t, got.Paid())
	assert.Equal(t, "mock", g.Name())
}

func TestGateway_Unpaid(t *testing.T) {
	g := NewUnpaidGateway()
	ctx := context.Background()

	s, err := g.CreateSession(ctx, input())
	require.NoError(t, err)
	assert.False(t, s.Paid())

	assert.True(t, g.SetPaymentStatus(s.ID, payment.StatusPaid))
	got, err := g.RetrieveSession(ctx, s.ID)
	require.NoError(t, err)
	assert.True(t, got.Paid())

	assert.False(t, g.SetPaymentStatus("cs_unknown", payment.StatusPaid))
}

func TestGateway_Errors(t *testing.T) {
	g := NewGateway()
	ctx := context.Background()

	_, err := g.RetrieveSession(ctx, "cs_unknown")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	bad := input()
	bad.Items[0].Image = ""
	_, err = g.CreateSession(ctx, bad)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}
