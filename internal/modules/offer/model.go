// README: Offer aggregate and status definitions.
package offer

import (
	"time"

	"github.com/shopspring/decimal"

	"travelcrm/internal/modules/pricing"
	"travelcrm/internal/types"
)

type Status string

const (
	StatusNone     Status = "none"
	StatusDraft    Status = "draft"
	StatusSent     Status = "sent"
	StatusAccepted Status = "accepted"
	StatusDeclined Status = "declined"
)

// Offer freezes a quote for a customer. Total and Breakdown are stored as
// quoted and never recomputed.
type Offer struct {
	ID            types.ID                `json:"id"`
	PackageID     types.ID                `json:"package_id"`
	CustomerName  string                  `json:"customer_name"`
	Request       pricing.Request         `json:"request"`
	ShiftID       *types.ID               `json:"shift_id,omitempty"`
	Total         decimal.Decimal         `json:"total"`
	Currency      string                  `json:"currency"`
	Breakdown     []pricing.BreakdownItem `json:"breakdown"`
	Status        Status                  `json:"status"`
	StatusVersion int                     `json:"status_version"`
	CreatedBy     *types.ID               `json:"created_by,omitempty"`
	CreatedAt     time.Time               `json:"created_at"`
	SentAt        *time.Time              `json:"sent_at,omitempty"`
	AcceptedAt    *time.Time              `json:"accepted_at,omitempty"`
	DeclinedAt    *time.Time              `json:"declined_at,omitempty"`
}

type Event struct {
	ID         int64
	OfferID    types.ID
	FromStatus Status
	ToStatus   Status
	ActorID    *types.ID
	CreatedAt  time.Time
}

// AllowedTransitions represents the offer state flow as code.
var AllowedTransitions = map[Status][]Status{
	StatusDraft: {StatusSent, StatusDeclined},
	StatusSent:  {StatusAccepted, StatusDeclined},
}

func CanTransition(from, to Status) bool {
	next, ok := AllowedTransitions[from]
	if !ok {
		return false
	}
	for _, s := range next {
		if s == to {
			return true
		}
	}
	return false
}

// ParseAction maps a route action to its target status.
func ParseAction(action string) (Status, bool) {
	switch action {
	case "send":
		return StatusSent, true
	case "accept":
		return StatusAccepted, true
	case "decline":
		return StatusDeclined, true
	}
	return "", false
}
