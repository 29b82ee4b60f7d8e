// README: Offer status-change notifications for downstream consumers.
package offer

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"travelcrm/internal/types"
)

// EventPublisher delivers status changes outside the process. *infra.AMQPPublisher implements it.
type EventPublisher interface {
	Publish(ctx context.Context, v any) error
}

// StatusChanged is the message published after every committed transition.
type StatusChanged struct {
	OfferID    types.ID        `json:"offer_id"`
	PackageID  types.ID        `json:"package_id"`
	FromStatus Status          `json:"from_status"`
	ToStatus   Status          `json:"to_status"`
	Total      decimal.Decimal `json:"total"`
	Currency   string          `json:"currency"`
	ActorID    *types.ID       `json:"actor_id,omitempty"`
	At         time.Time       `json:"at"`
}

func statusChanged(o *Offer, from Status, actor *types.ID, at time.Time) StatusChanged {
	return StatusChanged{
		OfferID:    o.ID,
		PackageID:  o.PackageID,
		FromStatus: from,
		ToStatus:   o.Status,
		Total:      o.Total,
		Currency:   o.Currency,
		ActorID:    actor,
		At:         at.UTC(),
	}
}
