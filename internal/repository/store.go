package repository

import (
	"context"
	"errors"
	"time"

	"github.com/taskbench/backend/internal/models"
)

// ErrNotFound is returned when a lookup names a subscription that does not
// exist (or no longer exists).
var ErrNotFound = errors.New("subscription not found")

// MutateResult tells the store what to do with the row after a Mutate
// callback returns.
type MutateResult int

const (
	// MutateSave persists the (possibly modified) row.
	MutateSave MutateResult = iota
	// MutateDelete removes the row. Used for pending subscriptions whose
	// initial payment was canceled.
	MutateDelete
	// MutateNoop leaves the row untouched.
	MutateNoop
)

// SubscriptionStore is the persistence boundary of the billing core. The
// service layer depends on this interface only; the gorm implementation and
// the in-memory test double both satisfy it.
type SubscriptionStore interface {
	Create(ctx context.Context, sub *models.Subscription) error

	// GetByID returns ErrNotFound when no row matches.
	GetByID(ctx context.Context, id string) (*models.Subscription, error)

	// FindCurrentByUser returns the user's most recent subscription by start
	// date, or nil (with a nil error) when the user has none.
	FindCurrentByUser(ctx context.Context, userID string) (*models.Subscription, error)

	// ListDueForRenewal returns active subscriptions with a saved payment
	// method whose paid period ended at or before now.
	ListDueForRenewal(ctx context.Context, now time.Time) ([]*models.Subscription, error)

	// Delete removes a row outright. Rolling back a pending row after a
	// failed intent creation goes through here.
	Delete(ctx context.Context, id string) error

	// Mutate loads the row identified by id under a per-row lock, applies fn
	// and persists the outcome in the same transaction. Concurrent Mutate
	// calls for one subscription are serialized; fn must be side-effect free
	// apart from modifying the row. Returns ErrNotFound for missing rows.
	Mutate(ctx context.Context, id string, fn func(sub *models.Subscription) (MutateResult, error)) error
}
