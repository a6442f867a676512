package service

import (
	"context"

	"github.com/google/uuid"

	"feeledger_backend/internals/features/finance/gateway/model"
)

type Store interface {
	Transaction(ctx context.Context, fn func(Store) error) error

	CreateIntent(ctx context.Context, in *model.PaymentIntent) error
	GetIntentByOrderID(ctx context.Context, orderID string) (*model.PaymentIntent, error)
	LockIntentByOrderID(ctx context.Context, orderID string) (*model.PaymentIntent, error)
	SaveIntent(ctx context.Context, in *model.PaymentIntent) error
	// ListIntents returns a schedule's intents, newest first.
	ListIntents(ctx context.Context, scheduleID uuid.UUID) ([]model.PaymentIntent, error)
}
