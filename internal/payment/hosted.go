package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	apperrors "github.com/blackcave0/ecommerc-memonto/pkg/errors"
	"github.com/blackcave0/ecommerc-memonto/pkg/httpclient"
	"github.com/blackcave0/ecommerc-memonto/pkg/tracing"
)

// HostedConfig configures a HostedGateway.
type HostedConfig struct {
	BaseURL   string
	SecretKey string
	Currency  string
}

// Doer executes HTTP requests. *httpclient.CircuitBreakerClient implements it.
type Doer interface {
	Do(ctx context.Context, req *http.Request) (*http.Response, error)
}

// HostedGateway talks to a hosted checkout API over form-encoded HTTP with a
// bearer secret key.
type HostedGateway struct {
	cfg    HostedConfig
	client Doer
	logger *slog.Logger
}

// NewHostedGateway creates a gateway calling cfg.BaseURL through client.
func NewHostedGateway(cfg HostedConfig, client Doer, logger *slog.Logger) *HostedGateway {
	if cfg.Currency == "" {
		cfg.Currency = DefaultCurrency
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &HostedGateway{cfg: cfg, client: client, logger: logger}
}

// Name returns the gateway name.
func (g *HostedGateway) Name() string {
	return "hosted"
}

type sessionResponse struct {
	ID                 string            `json:"id"`
	URL                string            `json:"url"`
	Status             string            `json:"status"`
	PaymentStatus      string            `json:"payment_status"`
	AmountTotal        int64             `json:"amount_total"`
	Currency           string            `json:"currency"`
	CustomerEmail      string            `json:"customer_email"`
	PaymentMethodTypes []string          `json:"payment_method_types"`
	Metadata           map[string]string `json:"metadata"`
	CustomerDetails    *struct {
		Email string `json:"email"`
	} `json:"customer_details"`
}

func (r *sessionResponse) toSession() *Session {
	s := &Session{
		ID:            r.ID,
		URL:           r.URL,
		Status:        r.Status,
		PaymentStatus: r.PaymentStatus,
		AmountTotal:   r.AmountTotal,
		Currency:      r.Currency,
		CustomerEmail: r.CustomerEmail,
		Metadata:      r.Metadata,
	}
	if r.CustomerDetails != nil && r.CustomerDetails.Email != "" {
		s.CustomerEmail = r.CustomerDetails.Email
	}
	if len(r.PaymentMethodTypes) > 0 {
		s.PaymentMethod = r.PaymentMethodTypes[0]
	}
	return s
}

// SessionForm encodes a checkout session request. Items must already be
// priced.
func SessionForm(input *SessionInput, items []PricedItem, currency string) url.Values {
	form := url.Values{}
	form.Set("mode", "payment")
	form.Set("payment_method_types[0]", "card")
	form.Set("success_url", input.SuccessURL)
	form.Set("cancel_url", input.CancelURL)
	if input.CustomerEmail != "" {
		form.Set("customer_email", input.CustomerEmail)
	}
	for k, v := range input.Metadata {
		form.Set("metadata["+k+"]", v)
	}
	for i, item := range items {
		prefix := "line_items[" + strconv.Itoa(i) + "]"
		form.Set(prefix+"[price_data][currency]", currency)
		form.Set(prefix+"[price_data][product_data][name]", item.Name)
		form.Set(prefix+"[price_data][product_data][images][0]", item.Image)
		form.Set(prefix+"[price_data][unit_amount]", strconv.FormatInt(item.UnitAmount, 10))
		form.Set(prefix+"[quantity]", strconv.Itoa(item.Quantity))
	}
	return form
}

// CreateSession validates the items and creates a hosted checkout session.
func (g *HostedGateway) CreateSession(ctx context.Context, input *SessionInput) (*Session, error) {
	items, err := PriceItems(input.Items)
	if err != nil {
		return nil, err
	}
	currency := input.Currency
	if currency == "" {
		currency = g.cfg.Currency
	}

	ctx, span := tracing.Start(ctx, "payment", "payment.CreateSession",
		attribute.Int("payment.line_items", len(items)),
		attribute.Int64("payment.amount", Total(items)),
	)
	defer span.End()

	req, err := httpclient.NewFormRequest(ctx, g.cfg.BaseURL+"/v1/checkout/sessions", SessionForm(input, items, currency), g.header(input.IdempotencyKey))
	if err != nil {
		return nil, err
	}

	session, err := g.do(ctx, req)
	if err != nil {
		tracing.Fail(span, err, "create session failed")
		return nil, err
	}
	span.SetAttributes(attribute.String("payment.session_id", session.ID))

	g.logger.InfoContext(ctx, "checkout session created",
		slog.String("session_id", session.ID),
		slog.Int64("amount", Total(items)),
		slog.String("currency", currency),
	)
	return session, nil
}

// RetrieveSession fetches a checkout session by id.
func (g *HostedGateway) RetrieveSession(ctx context.Context, id string) (*Session, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("missing session_id")
	}

	ctx, span := tracing.Start(ctx, "payment", "payment.RetrieveSession",
		attribute.String("payment.session_id", id),
	)
	defer span.End()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.cfg.BaseURL+"/v1/checkout/sessions/"+url.PathEscape(id), http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create GET request: %w", err)
	}
	for k, v := range g.header("") {
		req.Header[k] = v
	}

	session, err := g.do(ctx, req)
	if err != nil {
		tracing.Fail(span, err, "retrieve session failed")
		return nil, err
	}
	return session, nil
}

func (g *HostedGateway) header(idempotencyKey string) http.Header {
	h := http.Header{}
	h.Set("Authorization", "Bearer "+g.cfg.SecretKey)
	h.Set("Accept", "application/json")
	if idempotencyKey != "" {
		h.Set("Idempotency-Key", idempotencyKey)
	}
	return h
}

func (g *HostedGateway) do(ctx context.Context, req *http.Request) (*Session, error) {
	resp, err := g.client.Do(ctx, req)
	if err != nil {
		return nil, apperrors.ServiceUnavailable(fmt.Sprintf("payment gateway: %v", err))
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, httpclient.ParseResponseError(resp, "payment gateway")
	}
	defer func() { _ = resp.Body.Close() }()

	var body sessionResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode checkout session: %w", err)
	}
	if body.ID == "" {
		return nil, fmt.Errorf("decode checkout session: missing id")
	}
	return body.toSession(), nil
}
