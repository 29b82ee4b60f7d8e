// README: Offer service; creates offers from quotes and drives the status flow.
package offer

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"travelcrm/internal/modules/pricing"
	"travelcrm/internal/types"
)

type Pricing interface {
	Quote(ctx context.Context, cmd pricing.QuoteCommand) (pricing.Result, error)
}

// Repository persists offers. *Store implements it.
type Repository interface {
	Create(ctx context.Context, o *Offer) error
	Get(ctx context.Context, id types.ID) (*Offer, error)
	UpdateStatus(ctx context.Context, id types.ID, from, to Status, version int) (bool, error)
	AppendEvent(ctx context.Context, e *Event) error
	ListEvents(ctx context.Context, id types.ID) ([]Event, error)
}

type Service struct {
	store     Repository
	pricing   Pricing
	publisher EventPublisher
	now       func() time.Time
}

func NewService(store Repository, pricing Pricing) *Service {
	return &Service{store: store, pricing: pricing, now: time.Now}
}

// WithPublisher enables status-change notifications. Publish failures are
// logged and never undo a committed change.
func (s *Service) WithPublisher(p EventPublisher) *Service {
	s.publisher = p
	return s
}

var (
	ErrInvalidState = errors.New("invalid state transition")
	ErrNotFound     = errors.New("offer not found")
	ErrConflict     = errors.New("offer state conflict")
	ErrBadRequest   = errors.New("bad request")
)

type CreateCommand struct {
	PackageID    types.ID
	CustomerName string
	Request      pricing.Request
	ShiftID      types.ID
	ActorID      types.ID
}

type TransitionCommand struct {
	OfferID types.ID
	To      Status
	ActorID types.ID
}

// Create quotes the request and stores the result as a draft offer.
func (s *Service) Create(ctx context.Context, cmd CreateCommand) (*Offer, error) {
	if cmd.PackageID == "" || strings.TrimSpace(cmd.CustomerName) == "" {
		return nil, ErrBadRequest
	}
	res, err := s.pricing.Quote(ctx, pricing.QuoteCommand{
		PackageID: cmd.PackageID,
		Request:   cmd.Request,
		ShiftID:   cmd.ShiftID,
	})
	if err != nil {
		return nil, err
	}

	now := s.now()
	o := &Offer{
		ID:           types.ID(uuid.NewString()),
		PackageID:    cmd.PackageID,
		CustomerName: strings.TrimSpace(cmd.CustomerName),
		Request:      cmd.Request,
		ShiftID:      optionalID(cmd.ShiftID),
		Total:        res.Total,
		Currency:     res.Currency,
		Breakdown:    res.Breakdown,
		Status:       StatusDraft,
		CreatedBy:    optionalID(cmd.ActorID),
		CreatedAt:    now,
	}
	if err := s.store.Create(ctx, o); err != nil {
		return nil, err
	}
	s.appendEvent(ctx, &Event{
		OfferID:    o.ID,
		FromStatus: StatusNone,
		ToStatus:   StatusDraft,
		ActorID:    o.CreatedBy,
		CreatedAt:  now,
	})
	s.publish(ctx, statusChanged(o, StatusNone, o.CreatedBy, now))
	return o, nil
}

func (s *Service) Get(ctx context.Context, id types.ID) (*Offer, error) {
	if id == "" {
		return nil, ErrBadRequest
	}
	return s.store.Get(ctx, id)
}

// History lists the status changes of an offer, oldest first.
func (s *Service) History(ctx context.Context, id types.ID) ([]Event, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	return s.store.ListEvents(ctx, id)
}

func (s *Service) Send(ctx context.Context, id, actor types.ID) (*Offer, error) {
	return s.Transition(ctx, TransitionCommand{OfferID: id, To: StatusSent, ActorID: actor})
}

func (s *Service) Accept(ctx context.Context, id, actor types.ID) (*Offer, error) {
	return s.Transition(ctx, TransitionCommand{OfferID: id, To: StatusAccepted, ActorID: actor})
}

func (s *Service) Decline(ctx context.Context, id, actor types.ID) (*Offer, error) {
	return s.Transition(ctx, TransitionCommand{OfferID: id, To: StatusDeclined, ActorID: actor})
}

// Transition moves the offer to cmd.To. A concurrent change between read and
// write yields ErrConflict.
func (s *Service) Transition(ctx context.Context, cmd TransitionCommand) (*Offer, error) {
	o, err := s.Get(ctx, cmd.OfferID)
	if err != nil {
		return nil, err
	}
	if !CanTransition(o.Status, cmd.To) {
		return nil, ErrInvalidState
	}
	ok, err := s.store.UpdateStatus(ctx, o.ID, o.Status, cmd.To, o.StatusVersion)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrConflict
	}
	now := s.now()
	s.appendEvent(ctx, &Event{
		OfferID:    o.ID,
		FromStatus: o.Status,
		ToStatus:   cmd.To,
		ActorID:    optionalID(cmd.ActorID),
		CreatedAt:  now,
	})
	from := o.Status
	o.Status = cmd.To
	o.StatusVersion++
	switch cmd.To {
	case StatusSent:
		o.SentAt = &now
	case StatusAccepted:
		o.AcceptedAt = &now
	case StatusDeclined:
		o.DeclinedAt = &now
	}
	s.publish(ctx, statusChanged(o, from, optionalID(cmd.ActorID), now))
	return o, nil
}

// appendEvent records the change in the history. The status row is already
// committed, so a failure is logged and not returned.
func (s *Service) appendEvent(ctx context.Context, e *Event) {
	if err := s.store.AppendEvent(ctx, e); err != nil {
		log.Printf("offer: append event %s %s->%s: %v", e.OfferID, e.FromStatus, e.ToStatus, err)
	}
}

func (s *Service) publish(ctx context.Context, msg StatusChanged) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, msg); err != nil {
		log.Printf("offer: publish %s %s->%s: %v", msg.OfferID, msg.FromStatus, msg.ToStatus, err)
	}
}

func optionalID(id types.ID) *types.ID {
	if id == "" {
		return nil
	}
	return &id
}
