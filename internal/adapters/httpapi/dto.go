package httpapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"time"

	"github.com/oapi-codegen/nullable"
	openapi_types "github.com/oapi-codegen/runtime/types"

	"github.com/campus-shuttle/transport-api/internal/app/accounts"
	"github.com/campus-shuttle/transport-api/internal/app/subscriptions"
	"github.com/campus-shuttle/transport-api/internal/domain"
)

type SignUpRequest struct {
	Email    openapi_types.Email `json:"email"`
	Password string              `json:"password"`
	FullName string              `json:"fullName"`
}

type LoginRequest struct {
	Email    openapi_types.Email `json:"email"`
	Password string              `json:"password"`
}

type LoginResponse struct {
	AccessToken string    `json:"accessToken"`
	TokenType   string    `json:"tokenType"`
	ExpiresAt   time.Time `json:"expiresAt"`
	User        User      `json:"user"`
}

type User struct {
	UserId      string                       `json:"userId"`
	Email       string                       `json:"email"`
	FullName    string                       `json:"fullName"`
	UserType    string                       `json:"userType"`
	Roles       []string                     `json:"roles"`
	LastLoginAt nullable.Nullable[time.Time] `json:"lastLoginAt"`
	CreatedAt   time.Time                    `json:"createdAt"`
}

type UserResponse struct {
	User User `json:"user"`
}

type Stop struct {
	StopId   string `json:"stopId"`
	Name     string `json:"name"`
	Sequence int    `json:"sequence"`
}

type Route struct {
	RouteId    string `json:"routeId"`
	Name       string `json:"name"`
	StartPoint string `json:"startPoint"`
	EndPoint   string `json:"endPoint"`
	IsActive   bool   `json:"isActive"`
	Stops      []Stop `json:"stops"`
}

type ListRoutesResponse struct {
	Routes []Route `json:"routes"`
}

// Month accepts a JSON number (3) or string ("03", "3").
type Month string

func (m *Month) UnmarshalJSON(b []byte) error {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return err
	}
	switch t := v.(type) {
	case json.Number:
		*m = Month(t.String())
	case string:
		*m = Month(t)
	case nil:
		*m = ""
	default:
		return errors.New("month must be a number or a string")
	}
	return nil
}

type RequestSubscriptionRequest struct {
	StopName   string `json:"stopName"`
	StartMonth Month  `json:"startMonth"`
	EndMonth   Month  `json:"endMonth"`
	Year       int    `json:"year"`
}

type Subscription struct {
	SubscriptionId string                    `json:"subscriptionId"`
	UserId         string                    `json:"userId"`
	StopName       string                    `json:"stopName"`
	RouteName      nullable.Nullable[string] `json:"routeName"`
	RequesterName  nullable.Nullable[string] `json:"requesterName,omitempty"`
	Status         string                    `json:"status"`
	StartDate      openapi_types.Date        `json:"startDate"`
	EndDate        openapi_types.Date        `json:"endDate"`
	CreatedAt      time.Time                 `json:"createdAt"`
	UpdatedAt      time.Time                 `json:"updatedAt"`
}

type SubscriptionResponse struct {
	Subscription Subscription `json:"subscription"`
}

type ListPendingResponse struct {
	Requests []Subscription `json:"requests"`
}

type TripAvailability struct {
	TripId         string             `json:"tripId"`
	TripDate       openapi_types.Date `json:"tripDate"`
	StartTime      string             `json:"startTime"`
	Status         string             `json:"status"`
	RouteId        string             `json:"routeId"`
	RouteName      string             `json:"routeName"`
	VehicleId      string             `json:"vehicleId"`
	VehicleNumber  string             `json:"vehicleNumber"`
	DriverName     string             `json:"driverName"`
	TotalCapacity  int                `json:"totalCapacity"`
	BookedSeats    int                `json:"bookedSeats"`
	AvailableSeats int                `json:"availableSeats"`
}

type TripAvailabilityResponse struct {
	Trips []TripAvailability `json:"trips"`
}

func userFromDomain(u domain.User) User {
	roles := make([]string, 0, len(u.Roles))
	for _, r := range u.Roles {
		roles = append(roles, string(r))
	}
	out := User{
		UserId:    string(u.ID),
		Email:     u.Email,
		FullName:  u.FullName,
		UserType:  string(u.Type),
		Roles:     roles,
		CreatedAt: u.CreatedAt,
	}
	if u.LastLoginAt != nil {
		out.LastLoginAt = nullable.NewNullableWithValue(u.LastLoginAt.UTC())
	} else {
		out.LastLoginAt = nullable.NewNullNullable[time.Time]()
	}
	return out
}

func loginResponseFromResult(r accounts.LoginResult) LoginResponse {
	return LoginResponse{
		AccessToken: r.AccessToken,
		TokenType:   r.TokenType,
		ExpiresAt:   r.ExpiresAt.UTC(),
		User:        userFromDomain(r.User),
	}
}

func routeFromDomain(r domain.Route) Route {
	stops := make([]Stop, 0, len(r.Stops))
	for _, s := range r.Stops {
		stops = append(stops, Stop{StopId: string(s.ID), Name: s.Name, Sequence: s.Sequence})
	}
	return Route{
		RouteId:    string(r.ID),
		Name:       r.Name,
		StartPoint: r.StartPoint,
		EndPoint:   r.EndPoint,
		IsActive:   r.IsActive,
		Stops:      stops,
	}
}

func subscriptionFromDetails(d subscriptions.Details) Subscription {
	out := Subscription{
		SubscriptionId: string(d.ID),
		UserId:         string(d.UserID),
		StopName:       d.StopName,
		RouteName:      nullableString(d.RouteName),
		Status:         string(d.Status),
		StartDate:      openapi_types.Date{Time: d.StartDate},
		EndDate:        openapi_types.Date{Time: d.EndDate},
		CreatedAt:      d.CreatedAt.UTC(),
		UpdatedAt:      d.UpdatedAt.UTC(),
	}
	if d.RequesterName != "" {
		out.RequesterName = nullable.NewNullableWithValue(d.RequesterName)
	}
	return out
}

func tripAvailabilityFromDomain(t domain.TripAvailability) TripAvailability {
	return TripAvailability{
		TripId:         string(t.TripID),
		TripDate:       openapi_types.Date{Time: t.TripDate},
		StartTime:      t.StartTime.String(),
		Status:         string(t.Status),
		RouteId:        string(t.RouteID),
		RouteName:      t.RouteName,
		VehicleId:      string(t.VehicleID),
		VehicleNumber:  t.VehicleNumber,
		DriverName:     t.DriverName,
		TotalCapacity:  t.TotalCapacity,
		BookedSeats:    t.BookedSeats,
		AvailableSeats: t.AvailableSeats,
	}
}

// nullableString renders an empty string as JSON null.
func nullableString(s string) nullable.Nullable[string] {
	if s == "" {
		return nullable.NewNullNullable[string]()
	}
	return nullable.NewNullableWithValue(s)
}
