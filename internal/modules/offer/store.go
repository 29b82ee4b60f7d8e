// README: Offer store backed by PostgreSQL.
package offer

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"travelcrm/internal/types"
)

type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

func (s *Store) Create(ctx context.Context, o *Offer) error {
	request, err := json.Marshal(o.Request)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	breakdown, err := json.Marshal(o.Breakdown)
	if err != nil {
		return fmt.Errorf("encode breakdown: %w", err)
	}
	_, err = s.db.Exec(ctx, `
        INSERT INTO offers (
            id, package_id, customer_name, shift_id, created_by, request,
            total, currency, breakdown, status, status_version, created_at
        ) VALUES (
            $1, $2, $3, $4, $5, $6,
            $7::numeric, $8, $9, $10, $11, $12
        )`,
		string(o.ID),
		string(o.PackageID),
		o.CustomerName,
		toStringPtr(o.ShiftID),
		toStringPtr(o.CreatedBy),
		request,
		o.Total.String(),
		o.Currency,
		breakdown,
		string(o.Status),
		o.StatusVersion,
		o.CreatedAt,
	)
	return err
}

func (s *Store) Get(ctx context.Context, id types.ID) (*Offer, error) {
	row := s.db.QueryRow(ctx, `
        SELECT id, package_id, customer_name, shift_id, created_by, request,
               total::text, currency, breakdown, status, status_version,
               created_at, sent_at, accepted_at, declined_at
        FROM offers
        WHERE id = $1`, string(id),
	)

	var o Offer
	var shiftID, createdBy sql.NullString
	var request, breakdown []byte
	var total string
	var sentAt, acceptedAt, declinedAt sql.NullTime

	err := row.Scan(
		&o.ID, &o.PackageID, &o.CustomerName, &shiftID, &createdBy, &request,
		&total, &o.Currency, &breakdown, &o.Status, &o.StatusVersion,
		&o.CreatedAt, &sentAt, &acceptedAt, &declinedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if o.Total, err = decimal.NewFromString(total); err != nil {
		return nil, fmt.Errorf("offer %s total: %w", o.ID, err)
	}
	if err := json.Unmarshal(request, &o.Request); err != nil {
		return nil, fmt.Errorf("offer %s request: %w", o.ID, err)
	}
	if err := json.Unmarshal(breakdown, &o.Breakdown); err != nil {
		return nil, fmt.Errorf("offer %s breakdown: %w", o.ID, err)
	}
	o.ShiftID = toIDPtr(shiftID)
	o.CreatedBy = toIDPtr(createdBy)
	o.SentAt = toTimePtr(sentAt)
	o.AcceptedAt = toTimePtr(acceptedAt)
	o.DeclinedAt = toTimePtr(declinedAt)
	return &o, nil
}

func (s *Store) UpdateStatus(ctx context.Context, id types.ID, from, to Status, version int) (bool, error) {
	tag, err := s.db.Exec(ctx, `
        UPDATE offers
        SET status = $1::text,
            status_version = status_version + 1,
            sent_at = CASE WHEN $1::text = 'sent' THEN NOW() ELSE sent_at END,
            accepted_at = CASE WHEN $1::text = 'accepted' THEN NOW() ELSE accepted_at END,
            declined_at = CASE WHEN $1::text = 'declined' THEN NOW() ELSE declined_at END
        WHERE id = $2 AND status = $3 AND status_version = $4`,
		string(to),
		string(id),
		string(from),
		version,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (s *Store) AppendEvent(ctx context.Context, e *Event) error {
	_, err := s.db.Exec(ctx, `
        INSERT INTO offer_state_events (
            offer_id, from_status, to_status, actor_id, created_at
        ) VALUES ($1, $2, $3, $4, $5)`,
		string(e.OfferID),
		string(e.FromStatus),
		string(e.ToStatus),
		toStringPtr(e.ActorID),
		e.CreatedAt,
	)
	return err
}

func (s *Store) ListEvents(ctx context.Context, id types.ID) ([]Event, error) {
	rows, err := s.db.Query(ctx, `
        SELECT id, offer_id, from_status, to_status, actor_id, created_at
        FROM offer_state_events
        WHERE offer_id = $1
        ORDER BY id`, string(id),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Event
	for rows.Next() {
		var e Event
		var actor sql.NullString
		if err := rows.Scan(&e.ID, &e.OfferID, &e.FromStatus, &e.ToStatus, &actor, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.ActorID = toIDPtr(actor)
		out = append(out, e)
	}
	return out, rows.Err()
}

func toStringPtr(id *types.ID) *string {
	if id == nil {
		return nil
	}
	v := string(*id)
	return &v
}

func toIDPtr(v sql.NullString) *types.ID {
	if !v.Valid {
		return nil
	}
	id := types.ID(v.String)
	return &id
}

func toTimePtr(v sql.NullTime) *time.Time {
	if !v.Valid {
		return nil
	}
	t := v.Time
	return &t
}
