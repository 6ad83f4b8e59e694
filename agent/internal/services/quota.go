package services

import (
	"context"
	"fmt"

	"walletbridge/agent/database"
)

// ResourceKind names a quota-capped per-user resource.
type ResourceKind string

const (
	ResourceAlerts    ResourceKind = "alerts"
	ResourceWatchlist ResourceKind = "watchlist"
)

// QuotaEnforcer caps per-user resource counts. The check and the insert it
// guards are two separate store calls; a racing pair of requests from the
// same user can transiently overshoot by their own count, which is accepted
// for a single interactive user.
type QuotaEnforcer struct {
	alerts    *database.AlertStore
	watchlist *database.WatchlistStore

	maxAlerts    int
	maxWatchlist int
}

func NewQuotaEnforcer(alerts *database.AlertStore, watchlist *database.WatchlistStore, maxAlerts, maxWatchlist int) *QuotaEnforcer {
	return &QuotaEnforcer{
		alerts:       alerts,
		watchlist:    watchlist,
		maxAlerts:    maxAlerts,
		maxWatchlist: maxWatchlist,
	}
}

// Check returns nil when the owner may create one more resource of the
// kind, ErrQuotaExceeded when the ceiling is reached. Call it immediately
// before the corresponding insert.
func (q *QuotaEnforcer) Check(ctx context.Context, ownerID int64, kind ResourceKind) error {
	var (
		count   int64
		ceiling int
		err     error
	)
	switch kind {
	case ResourceAlerts:
		count, err = q.alerts.CountActiveByOwner(ctx, ownerID)
		ceiling = q.maxAlerts
	case ResourceWatchlist:
		count, err = q.watchlist.CountByOwner(ctx, ownerID)
		ceiling = q.maxWatchlist
	default:
		return fmt.Errorf("%w: unknown resource kind %q", ErrInvalid, kind)
	}
	if err != nil {
		return fmt.Errorf("%w: count %s for %d: %v", ErrUnavailable, kind, ownerID, err)
	}
	if count >= int64(ceiling) {
		return fmt.Errorf("%w: %s limit of %d reached", ErrQuotaExceeded, kind, ceiling)
	}
	return nil
}
