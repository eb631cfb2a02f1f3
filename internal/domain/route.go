package domain

// Route is a named shuttle line with an ordered list of stops.
type Route struct {
	ID         RouteID
	Name       string
	StartPoint string
	EndPoint   string
	IsActive   bool

	Stops []Stop
}

// Stop is a pickup point. Stop names are unique across all routes.
type Stop struct {
	ID       StopID
	RouteID  RouteID
	Name     string
	Sequence int
}
