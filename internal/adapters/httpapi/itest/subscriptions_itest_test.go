package itest

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/campus-shuttle/transport-api/internal/domain"
	"github.com/campus-shuttle/transport-api/internal/ports/out/seatrepo"
)

type subscriptionBody struct {
	Subscription struct {
		SubscriptionId string `json:"subscriptionId"`
		UserId         string `json:"userId"`
		StopName       string `json:"stopName"`
		RouteName      string `json:"routeName"`
		Status         string `json:"status"`
		StartDate      string `json:"startDate"`
		EndDate        string `json:"endDate"`
	} `json:"subscription"`
}

type availabilityBody struct {
	Trips []struct {
		TripId         string `json:"tripId"`
		TripDate       string `json:"tripDate"`
		StartTime      string `json:"startTime"`
		Status         string `json:"status"`
		RouteId        string `json:"routeId"`
		RouteName      string `json:"routeName"`
		VehicleNumber  string `json:"vehicleNumber"`
		DriverName     string `json:"driverName"`
		TotalCapacity  int    `json:"totalCapacity"`
		BookedSeats    int    `json:"bookedSeats"`
		AvailableSeats int    `json:"availableSeats"`
	} `json:"trips"`
}

func TestSubscriptions_ITest(t *testing.T) {
	for _, b := range backendsFromEnv(t) {
		t.Run(string(b), func(t *testing.T) {
			srv := newTestServer(t, b)
			if srv.seeded.Trips != 4 || srv.seeded.Routes != 2 {
				t.Fatalf("unexpected seed report: %+v", srv.seeded)
			}

			// Missing auth header => 401
			{
				status, body, _ := srv.doJSON(t, http.MethodGet, "/subscriptions/me", "", nil)
				requireErrorCode(t, status, body, http.StatusUnauthorized, "UNAUTHORIZED")
			}

			// Sign up a staff member.
			var staff string
			{
				status, body, _ := srv.doJSON(t, http.MethodPost, "/auth/signup", "", map[string]any{
					"email":    "farhana.akter@iut-dhaka.edu",
					"password": "correct-horse",
					"fullName": "Farhana Akter",
				})
				requireStatus(t, status, body, http.StatusCreated)
				got := mustUnmarshal[struct {
					User struct {
						UserId string   `json:"userId"`
						Roles  []string `json:"roles"`
					} `json:"user"`
				}](t, body)
				if got.User.UserId == "" || len(got.User.Roles) != 1 || got.User.Roles[0] != "NORMAL_STAFF" {
					t.Fatalf("unexpected signup body=%s", string(body))
				}
				staff = got.User.UserId
			}
			officer := srv.userID(t, officerEmail)
			driver := srv.userID(t, "shafiul.islam@iut-dhaka.edu")

			// Nothing requested yet.
			{
				status, body, _ := srv.doJSON(t, http.MethodGet, "/subscriptions/me", staff, nil)
				requireErrorCode(t, status, body, http.StatusNotFound, "SUBSCRIPTION_NOT_FOUND")
			}

			// Routes list the seeded stops in travel order.
			{
				status, body, _ := srv.doJSON(t, http.MethodGet, "/routes", staff, nil)
				requireStatus(t, status, body, http.StatusOK)
				got := mustUnmarshal[struct {
					Routes []struct {
						Name  string `json:"name"`
						Stops []struct {
							Name string `json:"name"`
						} `json:"stops"`
					} `json:"routes"`
				}](t, body)
				if len(got.Routes) != 2 || got.Routes[0].Name != "Route-1" || len(got.Routes[0].Stops) != 6 {
					t.Fatalf("unexpected routes body=%s", string(body))
				}
				if got.Routes[0].Stops[3].Name != "Banani" {
					t.Fatalf("stop order body=%s", string(body))
				}
			}

			// Drivers cannot subscribe.
			{
				status, body, _ := srv.doJSON(t, http.MethodPost, "/subscriptions", driver, map[string]any{
					"stopName": "Banani", "startMonth": 6, "endMonth": 8, "year": 2025,
				})
				requireErrorCode(t, status, body, http.StatusForbidden, "FORBIDDEN")
			}

			// Request with an idempotency key, then replay it.
			var subID string
			{
				req := map[string]any{"stopName": "banani", "startMonth": "6", "endMonth": "8", "year": 2025}
				hdr := map[string]string{"Idempotency-Key": "itest-request-1"}

				status, body, _ := srv.doJSONWithHeaders(t, http.MethodPost, "/subscriptions", staff, req, hdr)
				requireStatus(t, status, body, http.StatusCreated)
				got := mustUnmarshal[subscriptionBody](t, body)
				if got.Subscription.Status != "PENDING" || got.Subscription.StopName != "Banani" || got.Subscription.RouteName != "Route-1" {
					t.Fatalf("unexpected request body=%s", string(body))
				}
				if got.Subscription.StartDate != "2025-06-01" || got.Subscription.EndDate != "2025-08-31" {
					t.Fatalf("unexpected window body=%s", string(body))
				}
				subID = got.Subscription.SubscriptionId

				status, replay, h := srv.doJSONWithHeaders(t, http.MethodPost, "/subscriptions", staff, req, hdr)
				requireStatus(t, status, replay, http.StatusCreated)
				requireHeaderPresent(t, h, "Idempotent-Replayed")
				if string(replay) != string(body) {
					t.Fatalf("replay differs:\n%s\n%s", string(body), string(replay))
				}
			}

			// A second request while one is pending conflicts.
			{
				status, body, _ := srv.doJSON(t, http.MethodPost, "/subscriptions", staff, map[string]any{
					"stopName": "Mirpur 10", "startMonth": 7, "endMonth": 7, "year": 2025,
				})
				requireErrorCode(t, status, body, http.StatusConflict, "SUBSCRIPTION_CONFLICT")
			}

			// Only transport officers see the queue.
			{
				status, body, _ := srv.doJSON(t, http.MethodGet, "/subscriptions/requests", staff, nil)
				requireErrorCode(t, status, body, http.StatusForbidden, "FORBIDDEN")

				status, body, _ = srv.doJSON(t, http.MethodGet, "/subscriptions/requests", officer, nil)
				requireStatus(t, status, body, http.StatusOK)
				got := mustUnmarshal[struct {
					Requests []struct {
						SubscriptionId string `json:"subscriptionId"`
						RequesterName  string `json:"requesterName"`
					} `json:"requests"`
				}](t, body)
				if len(got.Requests) != 1 || got.Requests[0].SubscriptionId != subID || got.Requests[0].RequesterName != "Farhana Akter" {
					t.Fatalf("unexpected queue body=%s", string(body))
				}
			}

			// Approve, then a late decline is rejected.
			{
				status, body, _ := srv.doJSON(t, http.MethodPost, "/subscriptions/"+subID+"/approve", officer, nil)
				requireStatus(t, status, body, http.StatusOK)
				if got := mustUnmarshal[subscriptionBody](t, body); got.Subscription.Status != "ACTIVE" {
					t.Fatalf("unexpected approve body=%s", string(body))
				}

				status, body, _ = srv.doJSON(t, http.MethodPost, "/subscriptions/"+subID+"/decline", officer, nil)
				requireErrorCode(t, status, body, http.StatusConflict, "INVALID_STATE")

				status, body, _ = srv.doJSON(t, http.MethodGet, "/subscriptions/requests", officer, nil)
				requireStatus(t, status, body, http.StatusOK)
				if got := mustUnmarshal[struct {
					Requests []any `json:"requests"`
				}](t, body); len(got.Requests) != 0 {
					t.Fatalf("queue should be empty body=%s", string(body))
				}
			}

			// Seat availability reflects allocations on today's trips.
			{
				status, body, _ := srv.doJSON(t, http.MethodGet, "/trips/availability", staff, nil)
				requireStatus(t, status, body, http.StatusOK)
				got := mustUnmarshal[availabilityBody](t, body)
				if len(got.Trips) != 4 {
					t.Fatalf("trips=%d body=%s", len(got.Trips), string(body))
				}
				first := got.Trips[0]
				if first.StartTime != "04:45" || first.VehicleNumber != "NR-514" || first.TotalCapacity != 36 || first.AvailableSeats != 36 {
					t.Fatalf("unexpected first trip body=%s", string(body))
				}

				for i := 0; i < 3; i++ {
					err := srv.seats.Create(context.Background(), seatrepo.Allocation{
						ID:        domain.SeatAllocationID(uuid.NewString()),
						TripID:    domain.TripID(first.TripId),
						UserID:    domain.UserID(staff),
						Kind:      domain.SeatKindSubscription,
						CreatedAt: srv.clk.Now(),
					})
					if err != nil {
						t.Fatalf("seat allocation: %v", err)
					}
				}

				status, body, _ = srv.doJSON(t, http.MethodGet, "/trips/availability?date_from=2025-06-10&date_to=2025-06-10&route_id="+first.RouteId, staff, nil)
				requireStatus(t, status, body, http.StatusOK)
				got = mustUnmarshal[availabilityBody](t, body)
				if len(got.Trips) != 2 || got.Trips[0].TripId != first.TripId {
					t.Fatalf("unexpected filtered trips body=%s", string(body))
				}
				if got.Trips[0].BookedSeats != 3 || got.Trips[0].AvailableSeats != 33 {
					t.Fatalf("unexpected seat counts body=%s", string(body))
				}
				if got.Trips[1].RouteName != "Route-2" || got.Trips[1].StartTime != "08:15" {
					t.Fatalf("unexpected second trip body=%s", string(body))
				}

				status, body, _ = srv.doJSON(t, http.MethodGet, "/trips/availability?date_from=2025-06-11&date_to=2025-06-10", staff, nil)
				requireStatus(t, status, body, http.StatusOK)
				if got = mustUnmarshal[availabilityBody](t, body); got.Trips == nil || len(got.Trips) != 0 {
					t.Fatalf("expected empty trips for reversed range body=%s", string(body))
				}
			}

			// After the window ends the subscription reads as EXPIRED.
			{
				srv.clk.Set(time.Date(2025, 9, 1, 8, 0, 0, 0, time.UTC))
				status, body, _ := srv.doJSON(t, http.MethodGet, "/subscriptions/me", staff, nil)
				requireStatus(t, status, body, http.StatusOK)
				if got := mustUnmarshal[subscriptionBody](t, body); got.Subscription.Status != "EXPIRED" {
					t.Fatalf("unexpected status body=%s", string(body))
				}
			}

			// Cancel removes the record.
			{
				status, body, _ := srv.doJSON(t, http.MethodDelete, "/subscriptions/me", staff, nil)
				requireStatus(t, status, body, http.StatusNoContent)

				status, body, _ = srv.doJSON(t, http.MethodGet, "/subscriptions/me", staff, nil)
				requireErrorCode(t, status, body, http.StatusNotFound, "SUBSCRIPTION_NOT_FOUND")
			}
		})
	}
}
