package service

import (
	"context"
	"log/slog"

	"github.com/blackcave0/ecommerc-memonto/internal/domain"
)

// EventPublisher publishes storefront domain events. *event.Producer
// implements it.
type EventPublisher interface {
	PublishCartUpdated(ctx context.Context, sessionID string, cart domain.Cart) error
	PublishCartCleared(ctx context.Context, sessionID string) error
	PublishOrderPlaced(ctx context.Context, order *domain.Order) error
}

// CartEventsHook returns a StoreHook that subscribes every new store to
// publisher. Publish failures are logged and otherwise ignored.
func CartEventsHook(publisher EventPublisher, logger *slog.Logger) StoreHook {
	return func(sessionID string, store *CartStore) {
		store.Subscribe(func(ctx context.Context, change Change) {
			var err error
			switch change.Op {
			case OpClear:
				err = publisher.PublishCartCleared(ctx, sessionID)
			case OpAdd, OpRemove, OpUpdate:
				err = publisher.PublishCartUpdated(ctx, sessionID, change.Cart)
			default:
				return
			}
			if err != nil {
				logger.WarnContext(ctx, "failed to publish cart event",
					slog.String("cart_session", sessionID),
					slog.String("op", change.Op),
					slog.String("error", err.Error()),
				)
			}
		})
	}
}
