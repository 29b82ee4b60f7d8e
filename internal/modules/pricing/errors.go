// README: Pricing error taxonomy; every typed error unwraps to a sentinel for errors.Is.
package pricing

import (
	"errors"
	"fmt"
	"strings"

	"travelcrm/internal/types"
)

var (
	ErrInvalidInput           = errors.New("invalid input")
	ErrInvalidDateRange       = errors.New("check-out must be after check-in")
	ErrNotFound               = errors.New("not found")
	ErrNoIntervalsFound       = errors.New("no price intervals found for selected dates")
	ErrIncompleteRateCoverage = errors.New("price intervals do not cover the whole stay")
	ErrOverlappingIntervals   = errors.New("price intervals overlap")
	ErrMealPlanUnavailable    = errors.New("meal plan not available")
	ErrNoRatesFound           = errors.New("no rates found")
)

// ValidationError names the offending request field. Kind optionally narrows
// ErrInvalidInput (for example ErrInvalidDateRange).
type ValidationError struct {
	Field  string
	Reason string
	Kind   error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() []error {
	if e.Kind != nil {
		return []error{ErrInvalidInput, e.Kind}
	}
	return []error{ErrInvalidInput}
}

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

type NotFoundError struct {
	Entity string
	ID     types.ID
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// DateRange is a half-open [Start, End) span of nights.
type DateRange struct {
	Start types.Date `json:"start"`
	End   types.Date `json:"end"`
}

func (r DateRange) String() string {
	return r.Start.String() + ".." + r.End.String()
}

type CoverageError struct {
	Requested int
	Covered   int
	Gaps      []DateRange
}

func (e *CoverageError) Error() string {
	gaps := make([]string, len(e.Gaps))
	for i, g := range e.Gaps {
		gaps[i] = g.String()
	}
	return fmt.Sprintf("%v: %d of %d nights priced, missing %s",
		ErrIncompleteRateCoverage, e.Covered, e.Requested, strings.Join(gaps, ", "))
}

func (e *CoverageError) Unwrap() error { return ErrIncompleteRateCoverage }

type OverlapError struct {
	First  PriceInterval
	Second PriceInterval
}

func (e *OverlapError) Error() string {
	return fmt.Sprintf("%v: %s and %s", ErrOverlappingIntervals, e.First.Label(), e.Second.Label())
}

func (e *OverlapError) Unwrap() error { return ErrOverlappingIntervals }

type MealPlanUnavailableError struct {
	IntervalID   types.ID
	IntervalName string
	MealPlan     MealPlan
}

func (e *MealPlanUnavailableError) Error() string {
	name := e.IntervalName
	if name == "" {
		name = string(e.IntervalID)
	}
	return fmt.Sprintf("meal plan %s not available for interval %s", e.MealPlan, name)
}

func (e *MealPlanUnavailableError) Unwrap() error { return ErrMealPlanUnavailable }

type NoRatesFoundError struct {
	IntervalID   types.ID
	IntervalName string
	UnitID       types.ID
}

func (e *NoRatesFoundError) Error() string {
	if e.IntervalID == "" {
		return fmt.Sprintf("no rates found for %s", e.UnitID)
	}
	name := e.IntervalName
	if name == "" {
		name = string(e.IntervalID)
	}
	return fmt.Sprintf("no rate for %s in interval %s", e.UnitID, name)
}

func (e *NoRatesFoundError) Unwrap() error { return ErrNoRatesFound }

// Stage names one step of a calculation.
type Stage string

const (
	StageValidated         Stage = "validated"
	StageIntervalsResolved Stage = "intervals_resolved"
	StageRatesApplied      Stage = "rates_applied"
	StageChildrenApplied   Stage = "children_applied"
	StageTransportApplied  Stage = "transport_applied"
	StageAssembled         Stage = "assembled"
)

// StageError records which stage a calculation stopped in.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("pricing %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }
