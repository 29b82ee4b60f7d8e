// README: Pricing store backed by PostgreSQL; fetches the reference data one quote needs.
package pricing

import (
	"context"
	"database/sql"
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

// InputQuery selects the reference data for one quote.
type InputQuery struct {
	Request Request
	ShiftID types.ID
	// AllUnits loads rate rows for every unit of the package instead of only the
	// requested one.
	AllUnits bool
}

type RoomType struct {
	ID         types.ID `json:"id"`
	Code       string   `json:"code"`
	Name       string   `json:"name"`
	MaxPersons int      `json:"max_persons"`
}

func (s *Store) GetPackage(ctx context.Context, id types.ID) (Package, error) {
	row := s.db.QueryRow(ctx, `
        SELECT id, name, package_type, currency, is_published,
               transport_price_fixed, transport_price_per_person::text
        FROM packages
        WHERE id = $1`, string(id),
	)
	var (
		p         Package
		kind      string
		transport sql.NullString
	)
	err := row.Scan(&p.ID, &p.Name, &kind, &p.Currency, &p.Published, &p.TransportFixed, &transport)
	if errors.Is(err, pgx.ErrNoRows) {
		return Package{}, &NotFoundError{Entity: "package", ID: id}
	}
	if err != nil {
		return Package{}, fmt.Errorf("get package: %w", err)
	}
	if p.Kind, err = ParsePackageKind(kind); err != nil {
		return Package{}, err
	}
	if p.TransportPricePerPerson, err = nullDecimal(transport); err != nil {
		return Package{}, err
	}
	return p, nil
}

// LoadInput fetches the package, the intervals overlapping the stay, the rate rows,
// child policies and the optional shift. The request is copied into the Input
// with the unit's display name and code filled in.
func (s *Store) LoadInput(ctx context.Context, packageID types.ID, q InputQuery) (Input, error) {
	pkg, err := s.GetPackage(ctx, packageID)
	if err != nil {
		return Input{}, err
	}
	in := Input{Package: pkg, Request: q.Request}

	if err := s.loadUnit(ctx, &in); err != nil {
		return Input{}, err
	}
	if in.Intervals, err = s.overlappingIntervals(ctx, packageID, q.Request.CheckIn, q.Request.CheckOut); err != nil {
		return Input{}, err
	}
	ids := make([]string, len(in.Intervals))
	for i, iv := range in.Intervals {
		ids[i] = string(iv.ID)
	}
	unit := string(q.Request.UnitID)
	if q.AllUnits {
		unit = ""
	}
	switch pkg.Kind {
	case KindFixed:
		in.Rates, err = s.fixedRates(ctx, ids, unit)
	case KindOnRequest:
		in.Rates, err = s.perPersonRates(ctx, ids, unit)
	}
	if err != nil {
		return Input{}, err
	}
	if in.ChildPolicies, err = s.childPolicies(ctx, packageID); err != nil {
		return Input{}, err
	}
	if q.ShiftID != "" {
		if in.TransportShift, err = s.shift(ctx, packageID, q.ShiftID); err != nil {
			return Input{}, err
		}
	}
	return in, nil
}

func (s *Store) ListRoomTypes(ctx context.Context, packageID types.ID) ([]RoomType, error) {
	rows, err := s.db.Query(ctx, `
        SELECT id, code, name, max_persons
        FROM room_types
        WHERE package_id = $1
        ORDER BY max_persons, name`, string(packageID),
	)
	if err != nil {
		return nil, fmt.Errorf("list room types: %w", err)
	}
	defer rows.Close()
	var out []RoomType
	for rows.Next() {
		var rt RoomType
		if err := rows.Scan(&rt.ID, &rt.Code, &rt.Name, &rt.MaxPersons); err != nil {
			return nil, err
		}
		out = append(out, rt)
	}
	return out, rows.Err()
}

func (s *Store) loadUnit(ctx context.Context, in *Input) error {
	id := string(in.Request.UnitID)
	if id == "" {
		return nil
	}
	var (
		row    pgx.Row
		entity string
	)
	switch in.Package.Kind {
	case KindFixed:
		entity = "apartment"
		row = s.db.QueryRow(ctx, `
            SELECT name, '' FROM apartments WHERE id = $1 AND package_id = $2`, id, string(in.Package.ID))
	default:
		entity = "room type"
		row = s.db.QueryRow(ctx, `
            SELECT name, code FROM room_types WHERE id = $1 AND package_id = $2`, id, string(in.Package.ID))
	}
	err := row.Scan(&in.Request.UnitName, &in.Request.UnitCode)
	if errors.Is(err, pgx.ErrNoRows) {
		return &NotFoundError{Entity: entity, ID: in.Request.UnitID}
	}
	if err != nil {
		return fmt.Errorf("load %s: %w", entity, err)
	}
	return nil
}

func (s *Store) overlappingIntervals(ctx context.Context, packageID types.ID, checkIn, checkOut types.Date) ([]PriceInterval, error) {
	rows, err := s.db.Query(ctx, `
        SELECT id, package_id, COALESCE(name, ''), start_date, end_date, sort_order
        FROM price_intervals
        WHERE package_id = $1
          AND start_date < $3::date
          AND end_date >= $2::date
        ORDER BY start_date, sort_order`,
		string(packageID), checkIn.String(), checkOut.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("load intervals: %w", err)
	}
	defer rows.Close()
	var out []PriceInterval
	for rows.Next() {
		var (
			iv         PriceInterval
			start, end time.Time
		)
		if err := rows.Scan(&iv.ID, &iv.PackageID, &iv.Name, &start, &end, &iv.SortOrder); err != nil {
			return nil, err
		}
		iv.StartDate, iv.EndDate = types.DateOf(start), types.DateOf(end)
		out = append(out, iv)
	}
	return out, rows.Err()
}

func (s *Store) fixedRates(ctx context.Context, intervalIDs []string, apartmentID string) (FixedRateTable, error) {
	rows, err := s.db.Query(ctx, `
        SELECT interval_id, apartment_id, price_per_night::text
        FROM apartment_prices
        WHERE interval_id = ANY($1)
          AND ($2 = '' OR apartment_id = $2)`,
		intervalIDs, apartmentID,
	)
	if err != nil {
		return nil, fmt.Errorf("load apartment prices: %w", err)
	}
	defer rows.Close()
	table := FixedRateTable{}
	for rows.Next() {
		var (
			r     FixedRate
			price string
		)
		if err := rows.Scan(&r.IntervalID, &r.ApartmentID, &price); err != nil {
			return nil, err
		}
		if r.PricePerNight, err = decimal.NewFromString(price); err != nil {
			return nil, fmt.Errorf("apartment price %s/%s: %w", r.ApartmentID, r.IntervalID, err)
		}
		table = append(table, r)
	}
	return table, rows.Err()
}

func (s *Store) perPersonRates(ctx context.Context, intervalIDs []string, roomTypeID string) (PerPersonRateTable, error) {
	rows, err := s.db.Query(ctx, `
        SELECT interval_id, room_type_id,
               price_nd::text, price_bb::text, price_hb::text, price_fb::text, price_ai::text
        FROM hotel_prices
        WHERE interval_id = ANY($1)
          AND ($2 = '' OR room_type_id = $2)`,
		intervalIDs, roomTypeID,
	)
	if err != nil {
		return nil, fmt.Errorf("load hotel prices: %w", err)
	}
	defer rows.Close()
	table := PerPersonRateTable{}
	for rows.Next() {
		var (
			r      PerPersonRate
			prices [5]sql.NullString
		)
		if err := rows.Scan(&r.IntervalID, &r.RoomTypeID, &prices[0], &prices[1], &prices[2], &prices[3], &prices[4]); err != nil {
			return nil, err
		}
		r.Prices = make(map[MealPlan]decimal.Decimal, len(MealPlans))
		for i, m := range MealPlans {
			v, err := nullDecimal(prices[i])
			if err != nil {
				return nil, fmt.Errorf("hotel price %s/%s %s: %w", r.RoomTypeID, r.IntervalID, m, err)
			}
			if v != nil {
				r.Prices[m] = *v
			}
		}
		table = append(table, r)
	}
	return table, rows.Err()
}

func (s *Store) childPolicies(ctx context.Context, packageID types.ID) ([]ChildDiscountPolicy, error) {
	rows, err := s.db.Query(ctx, `
        SELECT id, COALESCE(rule_name, ''), priority, age_from, age_to, discount_type,
               discount_value::text, min_adults, max_adults, child_position,
               COALESCE(room_type_codes, '{}')
        FROM children_policies
        WHERE package_id = $1
        ORDER BY priority DESC, age_from`, string(packageID),
	)
	if err != nil {
		return nil, fmt.Errorf("load children policies: %w", err)
	}
	defer rows.Close()
	var out []ChildDiscountPolicy
	for rows.Next() {
		var (
			p                              ChildDiscountPolicy
			value                          sql.NullString
			minAdults, maxAdults, position sql.NullInt32
		)
		if err := rows.Scan(&p.ID, &p.Name, &p.Priority, &p.AgeFrom, &p.AgeTo, &p.DiscountType,
			&value, &minAdults, &maxAdults, &position, &p.RoomTypeCodes); err != nil {
			return nil, err
		}
		if p.DiscountValue, err = nullDecimal(value); err != nil {
			return nil, fmt.Errorf("policy %s: %w", p.ID, err)
		}
		p.MinAdults, p.MaxAdults, p.ChildPosition = nullInt(minAdults), nullInt(maxAdults), nullInt(position)
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Store) shift(ctx context.Context, packageID, shiftID types.ID) (*TransportShift, error) {
	var price sql.NullString
	err := s.db.QueryRow(ctx, `
        SELECT transport_price_per_person::text
        FROM shifts
        WHERE id = $1 AND package_id = $2`, string(shiftID), string(packageID),
	).Scan(&price)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, &NotFoundError{Entity: "shift", ID: shiftID}
	}
	if err != nil {
		return nil, fmt.Errorf("load shift: %w", err)
	}
	v, err := nullDecimal(price)
	if err != nil {
		return nil, err
	}
	return &TransportShift{ID: shiftID, PricePerPerson: v}, nil
}

func nullDecimal(s sql.NullString) (*decimal.Decimal, error) {
	if !s.Valid {
		return nil, nil
	}
	v, err := decimal.NewFromString(s.String)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func nullInt(v sql.NullInt32) *int {
	if !v.Valid {
		return nil
	}
	n := int(v.Int32)
	return &n
}
