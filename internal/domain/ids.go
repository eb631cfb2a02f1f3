package domain

// UserID identifies a user account. Bearer tokens carry it as the `sub` claim.
type UserID string

// SubscriptionID is an internal identifier for a subscription record.
type SubscriptionID string

// TripID is an internal identifier for a scheduled trip.
type TripID string

type RouteID string

type StopID string

type VehicleID string

type SeatAllocationID string
