package services

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"walletbridge/agent/database"
	"walletbridge/agent/internal/models"
	"walletbridge/shared/logger"
)

// Alert directions.
const (
	DirectionAbove = "above"
	DirectionBelow = "below"
)

// PriceSource is the price-feed collaborator the engine evaluates against.
type PriceSource interface {
	CurrentPrice(ctx context.Context) (*PriceQuote, error)
}

// Notifier is the transport collaborator used for triggered-alert delivery.
type Notifier interface {
	Send(ctx context.Context, chatID int64, text string) error
}

// SweepResult summarizes one sweep for the scheduler.
type SweepResult struct {
	Considered int
	Triggered  int
}

// AlertEngine runs one evaluation sweep per invocation. It holds no timer;
// an external scheduler calls Sweep on a fixed interval. Overlapping sweeps
// are safe: the conditional MarkTriggered update guarantees each alert
// notifies at most once.
type AlertEngine struct {
	alerts     *database.AlertStore
	identities *database.IdentityStore
	price      PriceSource
	notifier   Notifier
	symbol     string
	log        *logger.Logger

	now func() time.Time
}

func NewAlertEngine(alerts *database.AlertStore, identities *database.IdentityStore, price PriceSource, notifier Notifier, symbol string, log *logger.Logger) *AlertEngine {
	return &AlertEngine{
		alerts:     alerts,
		identities: identities,
		price:      price,
		notifier:   notifier,
		symbol:     symbol,
		log:        log,
		now:        time.Now,
	}
}

// Sweep fetches the price once, evaluates every untriggered alert against
// that single snapshot and fires the ones whose predicate holds. A price
// fetch failure aborts the whole sweep with no mutations. Per-alert
// delivery failures are logged and swallowed: a fired alert stays consumed
// even when its notification is lost.
func (e *AlertEngine) Sweep(ctx context.Context) (SweepResult, error) {
	var result SweepResult

	quote, err := e.price.CurrentPrice(ctx)
	if err != nil {
		return result, fmt.Errorf("fetch reference price: %w", err)
	}

	alerts, err := e.alerts.ListActive(ctx)
	if err != nil {
		return result, fmt.Errorf("load active alerts: %w", err)
	}
	result.Considered = len(alerts)

	for i := range alerts {
		alert := &alerts[i]
		if !ShouldTrigger(alert, quote.Price) {
			continue
		}

		matched, err := e.alerts.MarkTriggered(ctx, alert.ID, e.now())
		if err != nil {
			e.log.Error("failed to mark alert triggered", "alertID", alert.ID, "err", err)
			continue
		}
		if !matched {
			// A concurrent sweep got here first; it owns the notification.
			continue
		}
		result.Triggered++

		owner, err := e.identities.GetByTelegramID(ctx, alert.OwnerID)
		if err != nil {
			e.log.Error("triggered alert has unresolvable owner", "alertID", alert.ID, "ownerID", alert.OwnerID, "err", err)
			continue
		}
		if !owner.NotifyEnabled {
			// Disabled notifications suppress delivery, not evaluation.
			e.log.Debug("alert consumed silently, notifications disabled", "alertID", alert.ID, "ownerID", alert.OwnerID)
			continue
		}

		text := fmt.Sprintf("🔔 *Price alert!* %s is now $%s (your *%s %s* threshold).",
			e.symbol, quote.Price.StringFixed(4), alert.Direction, alert.TargetPrice.String())
		if err := e.notifier.Send(ctx, alert.OwnerID, text); err != nil {
			// Consumed regardless: at-most-once wins over at-least-once.
			e.log.Error("alert notification delivery failed", "alertID", alert.ID, "ownerID", alert.OwnerID, "err", err)
		}
	}

	e.log.Info("alert sweep complete",
		"considered", result.Considered,
		"triggered", result.Triggered,
		"price", quote.Price.String(),
	)
	return result, nil
}

// ShouldTrigger applies the trigger predicate. Both bounds are inclusive:
// an "above 1.0" alert fires at exactly 1.0, as does a "below 1.0" one.
func ShouldTrigger(alert *models.PriceAlert, price decimal.Decimal) bool {
	switch alert.Direction {
	case DirectionAbove:
		return price.GreaterThanOrEqual(alert.TargetPrice)
	case DirectionBelow:
		return price.LessThanOrEqual(alert.TargetPrice)
	default:
		return false
	}
}
