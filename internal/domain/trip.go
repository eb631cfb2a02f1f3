package domain

import (
	"errors"
	"fmt"
	"time"
)

type TripStatus string

const (
	TripStatusScheduled TripStatus = "SCHEDULED"
	TripStatusStarted   TripStatus = "STARTED"
	TripStatusCompleted TripStatus = "COMPLETED"
)

func (s TripStatus) Valid() bool {
	switch s {
	case TripStatusScheduled, TripStatusStarted, TripStatusCompleted:
		return true
	default:
		return false
	}
}

type VehicleStatus string

const (
	VehicleStatusAvailable   VehicleStatus = "AVAILABLE"
	VehicleStatusInService   VehicleStatus = "IN_SERVICE"
	VehicleStatusUnderRepair VehicleStatus = "UNDER_REPAIR"
)

// SeatKind says why a seat on a trip is taken.
type SeatKind string

const (
	SeatKindSubscription SeatKind = "SUBSCRIPTION"
	SeatKindToken        SeatKind = "TOKEN"
	SeatKindGuest        SeatKind = "GUEST"
)

func (k SeatKind) Valid() bool {
	switch k {
	case SeatKindSubscription, SeatKindToken, SeatKindGuest:
		return true
	default:
		return false
	}
}

var ErrInvalidClockTime = errors.New("time of day must be HH:MM")

// ClockTime is a wall-clock time of day with minute precision.
type ClockTime struct {
	Hour   int
	Minute int
}

func NewClockTime(hour, minute int) (ClockTime, error) {
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return ClockTime{}, ErrInvalidClockTime
	}
	return ClockTime{Hour: hour, Minute: minute}, nil
}

func ParseClockTime(s string) (ClockTime, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return ClockTime{}, ErrInvalidClockTime
	}
	return ClockTime{Hour: t.Hour(), Minute: t.Minute()}, nil
}

func (c ClockTime) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute)
}

// SinceMidnight returns the offset of c from the start of the day.
func (c ClockTime) SinceMidnight() time.Duration {
	return time.Duration(c.Hour)*time.Hour + time.Duration(c.Minute)*time.Minute
}

func (c ClockTime) Before(o ClockTime) bool {
	return c.SinceMidnight() < o.SinceMidnight()
}

// TripAvailability is the read model returned by the availability query.
type TripAvailability struct {
	TripID    TripID
	TripDate  time.Time // date-only
	StartTime ClockTime
	Status    TripStatus

	RouteID   RouteID
	RouteName string

	VehicleID     VehicleID
	VehicleNumber string

	DriverName string

	TotalCapacity int
	BookedSeats   int
	// AvailableSeats is TotalCapacity - BookedSeats. It is negative when a trip is overbooked.
	AvailableSeats int
}
