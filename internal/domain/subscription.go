package domain

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

type SubscriptionStatus string

const (
	// SubscriptionStatusNone is the state of a user that has no subscription record.
	SubscriptionStatusNone SubscriptionStatus = ""

	SubscriptionStatusPending  SubscriptionStatus = "PENDING"
	SubscriptionStatusActive   SubscriptionStatus = "ACTIVE"
	SubscriptionStatusExpired  SubscriptionStatus = "EXPIRED"
	SubscriptionStatusInactive SubscriptionStatus = "INACTIVE"
)

func (s SubscriptionStatus) Valid() bool {
	switch s {
	case SubscriptionStatusPending, SubscriptionStatusActive, SubscriptionStatusExpired, SubscriptionStatusInactive:
		return true
	default:
		return false
	}
}

// Open reports whether the status blocks a new request (PENDING or ACTIVE).
func (s SubscriptionStatus) Open() bool {
	return s == SubscriptionStatusPending || s == SubscriptionStatusActive
}

var ErrIllegalTransition = errors.New("illegal subscription status transition")

type statusTransition struct {
	from SubscriptionStatus
	to   SubscriptionStatus
}

// validTransitions is the complete subscription lifecycle. Anything not listed is rejected.
var validTransitions = map[statusTransition]bool{
	{SubscriptionStatusNone, SubscriptionStatusPending}:     true, // first request
	{SubscriptionStatusPending, SubscriptionStatusActive}:   true, // approve
	{SubscriptionStatusPending, SubscriptionStatusInactive}: true, // decline
	{SubscriptionStatusActive, SubscriptionStatusExpired}:   true, // end date passed
	{SubscriptionStatusExpired, SubscriptionStatusPending}:  true, // re-request
	{SubscriptionStatusInactive, SubscriptionStatusPending}: true, // re-request
}

// CanTransition reports whether a subscription may move from one status to another.
func CanTransition(from, to SubscriptionStatus) bool {
	return validTransitions[statusTransition{from: from, to: to}]
}

// ValidTransitionsFrom returns the statuses reachable from the given status, sorted.
func ValidTransitionsFrom(from SubscriptionStatus) []SubscriptionStatus {
	out := make([]SubscriptionStatus, 0, 2)
	for t := range validTransitions {
		if t.from == from {
			out = append(out, t.to)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Subscription is a user's standing request to ride from a stop over a date window.
// A user has at most one subscription; re-requests reuse the record.
type Subscription struct {
	ID       SubscriptionID
	UserID   UserID
	StopName string
	Status   SubscriptionStatus

	// StartDate and EndDate are date-only (UTC midnight). EndDate is the last day of the end month.
	StartDate time.Time
	EndDate   time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// TransitionTo moves the subscription to a new status, stamping UpdatedAt.
func (s *Subscription) TransitionTo(to SubscriptionStatus, at time.Time) error {
	if !CanTransition(s.Status, to) {
		return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, s.Status, to)
	}
	s.Status = to
	s.UpdatedAt = at
	return nil
}

// Reconcile applies lazy expiry: an ACTIVE subscription whose end date is before today becomes
// EXPIRED. It reports whether the status changed.
func (s *Subscription) Reconcile(today time.Time, at time.Time) bool {
	if s.Status != SubscriptionStatusActive {
		return false
	}
	if !s.EndDate.Before(DateOf(today)) {
		return false
	}
	s.Status = SubscriptionStatusExpired
	s.UpdatedAt = at
	return true
}

var (
	ErrInvalidMonth       = errors.New("month must be between 1 and 12")
	ErrInvalidYear        = errors.New("year must be between 1000 and 9999")
	ErrMonthRangeReversed = errors.New("start month must not be after end month")
)

// MonthRange is a contiguous run of months inside a single year.
type MonthRange struct {
	Year       int
	StartMonth time.Month
	EndMonth   time.Month
}

// ParseMonth accepts "1".."12" with optional leading zeros ("01").
func ParseMonth(s string) (time.Month, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 1 || n > 12 {
		return 0, ErrInvalidMonth
	}
	return time.Month(n), nil
}

// NewMonthRange validates the range. A reversed range is reported before the year so that the
// ordering error surfaces regardless of the other fields.
func NewMonthRange(year int, start, end time.Month) (MonthRange, error) {
	if start < time.January || start > time.December || end < time.January || end > time.December {
		return MonthRange{}, ErrInvalidMonth
	}
	if start > end {
		return MonthRange{}, ErrMonthRangeReversed
	}
	if year < 1000 || year > 9999 {
		return MonthRange{}, ErrInvalidYear
	}
	return MonthRange{Year: year, StartMonth: start, EndMonth: end}, nil
}

// Window returns the first day of the start month and the last day of the end month.
func (r MonthRange) Window() (time.Time, time.Time) {
	start := time.Date(r.Year, r.StartMonth, 1, 0, 0, 0, 0, time.UTC)
	// Day 0 of the following month normalizes to the last day of EndMonth.
	end := time.Date(r.Year, r.EndMonth+1, 0, 0, 0, 0, 0, time.UTC)
	return start, end
}

// DateOf truncates t to its calendar date, expressed as UTC midnight.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
