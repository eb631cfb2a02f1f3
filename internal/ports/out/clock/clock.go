package clock

import "time"

// Clock provides time to the application.
// Services derive "today" from it, so tests can pin the calendar with a manual clock.
type Clock interface {
	Now() time.Time
}
