package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"
	openapi_types "github.com/oapi-codegen/runtime/types"

	"github.com/campus-shuttle/transport-api/internal/app/accounts"
	"github.com/campus-shuttle/transport-api/internal/app/availability"
	"github.com/campus-shuttle/transport-api/internal/app/routes"
	"github.com/campus-shuttle/transport-api/internal/app/subscriptions"
	"github.com/campus-shuttle/transport-api/internal/domain"
	clockport "github.com/campus-shuttle/transport-api/internal/ports/out/clock"
	"github.com/campus-shuttle/transport-api/internal/ports/out/idempotency"
)

const maxBodyBytes = 1 << 20

// Server is the HTTP adapter. Each handler decodes the request, calls one application
// service and renders the result or the mapped error.
type Server struct {
	Accounts      *accounts.Service
	Subscriptions *subscriptions.Service
	Availability  *availability.Service
	Routes        *routes.Service
	Idem          idempotency.Store

	// Clock stamps idempotency records; nil means the system clock.
	Clock clockport.Clock
}

type Services struct {
	Accounts      *accounts.Service
	Subscriptions *subscriptions.Service
	Availability  *availability.Service
	Routes        *routes.Service
}

func NewServer(svcs Services, idem idempotency.Store, clk clockport.Clock) *Server {
	return &Server{
		Accounts:      svcs.Accounts,
		Subscriptions: svcs.Subscriptions,
		Availability:  svcs.Availability,
		Routes:        svcs.Routes,
		Idem:          idem,
		Clock:         clk,
	}
}

func (s *Server) now() time.Time {
	if s.Clock != nil {
		return s.Clock.Now().UTC()
	}
	return time.Now().UTC()
}

func (s *Server) SignUp(w http.ResponseWriter, r *http.Request) {
	var body SignUpRequest
	if !decodeBody(w, r, &body) {
		return
	}
	u, err := s.Accounts.SignUp(r.Context(), accounts.SignUpInput{
		Email:    string(body.Email),
		Password: body.Password,
		FullName: body.FullName,
	})
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, UserResponse{User: userFromDomain(u)})
}

func (s *Server) Login(w http.ResponseWriter, r *http.Request) {
	var body LoginRequest
	if !decodeBody(w, r, &body) {
		return
	}
	res, err := s.Accounts.Login(r.Context(), accounts.LoginInput{
		Email:    string(body.Email),
		Password: body.Password,
	})
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, loginResponseFromResult(res))
}

func (s *Server) GetMe(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireCaller(w, r)
	if !ok {
		return
	}
	u, err := s.Accounts.Me(r.Context(), caller)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, UserResponse{User: userFromDomain(u)})
}

func (s *Server) ListRoutes(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireCaller(w, r); !ok {
		return
	}
	rs, err := s.Routes.ListRoutes(r.Context())
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	out := make([]Route, 0, len(rs))
	for _, rt := range rs {
		out = append(out, routeFromDomain(rt))
	}
	writeJSON(w, http.StatusOK, ListRoutesResponse{Routes: out})
}

func (s *Server) RequestSubscription(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireCaller(w, r)
	if !ok {
		return
	}
	var body RequestSubscriptionRequest
	if !decodeBody(w, r, &body) {
		return
	}

	canon := body
	canon.StopName = strings.ToLower(domain.NormalizeHumanName(canon.StopName))
	canon.StartMonth = Month(strings.TrimLeft(strings.TrimSpace(string(canon.StartMonth)), "0"))
	canon.EndMonth = Month(strings.TrimLeft(strings.TrimSpace(string(canon.EndMonth)), "0"))

	s.idempotent(w, r, "/subscriptions", canon, http.StatusCreated, func() (any, error) {
		d, err := s.Subscriptions.Request(r.Context(), caller, subscriptions.RequestInput{
			StopName:   body.StopName,
			StartMonth: string(body.StartMonth),
			EndMonth:   string(body.EndMonth),
			Year:       body.Year,
		})
		if err != nil {
			return nil, err
		}
		return SubscriptionResponse{Subscription: subscriptionFromDetails(d)}, nil
	})
}

func (s *Server) GetMySubscription(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireCaller(w, r)
	if !ok {
		return
	}
	d, err := s.Subscriptions.GetMine(r.Context(), caller)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, SubscriptionResponse{Subscription: subscriptionFromDetails(d)})
}

func (s *Server) CancelMySubscription(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireCaller(w, r)
	if !ok {
		return
	}
	if err := s.Subscriptions.Cancel(r.Context(), caller); err != nil {
		writeAppError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) ListPendingSubscriptions(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireCaller(w, r)
	if !ok {
		return
	}
	ds, err := s.Subscriptions.ListPending(r.Context(), caller)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	out := make([]Subscription, 0, len(ds))
	for _, d := range ds {
		out = append(out, subscriptionFromDetails(d))
	}
	writeJSON(w, http.StatusOK, ListPendingResponse{Requests: out})
}

func (s *Server) ApproveSubscription(w http.ResponseWriter, r *http.Request) {
	s.decideSubscription(w, r, "/subscriptions/{subscriptionId}/approve", s.Subscriptions.Approve)
}

func (s *Server) DeclineSubscription(w http.ResponseWriter, r *http.Request) {
	s.decideSubscription(w, r, "/subscriptions/{subscriptionId}/decline", s.Subscriptions.Decline)
}

type decideFunc func(ctx context.Context, caller domain.UserID, id domain.SubscriptionID) (subscriptions.Details, error)

func (s *Server) decideSubscription(w http.ResponseWriter, r *http.Request, route string, decide decideFunc) {
	caller, ok := requireCaller(w, r)
	if !ok {
		return
	}
	var id openapi_types.UUID
	if err := runtime.BindStyledParameterWithLocation("simple", false, "subscriptionId", runtime.ParamLocationPath, chi.URLParam(r, "subscriptionId"), &id); err != nil {
		writeError(w, r, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "invalid subscriptionId", map[string]any{"subscriptionId": "must be a UUID"})
		return
	}
	canon := struct {
		SubscriptionId string `json:"subscriptionId"`
	}{SubscriptionId: id.String()}

	s.idempotent(w, r, route, canon, http.StatusOK, func() (any, error) {
		d, err := decide(r.Context(), caller, domain.SubscriptionID(id.String()))
		if err != nil {
			return nil, err
		}
		return SubscriptionResponse{Subscription: subscriptionFromDetails(d)}, nil
	})
}

func (s *Server) TripAvailability(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireCaller(w, r)
	if !ok {
		return
	}

	var params struct {
		DateFrom *openapi_types.Date
		DateTo   *openapi_types.Date
		RouteId  *openapi_types.UUID
	}
	q := r.URL.Query()
	details := map[string]any{}
	if err := runtime.BindQueryParameter("form", true, false, "date_from", q, &params.DateFrom); err != nil {
		details["date_from"] = "must be a date (YYYY-MM-DD)"
	}
	if err := runtime.BindQueryParameter("form", true, false, "date_to", q, &params.DateTo); err != nil {
		details["date_to"] = "must be a date (YYYY-MM-DD)"
	}
	if err := runtime.BindQueryParameter("form", true, false, "route_id", q, &params.RouteId); err != nil {
		details["route_id"] = "must be a UUID"
	}
	if len(details) > 0 {
		writeError(w, r, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "invalid query parameters", details)
		return
	}

	var query availability.Query
	if params.DateFrom != nil {
		t := params.DateFrom.Time
		query.DateFrom = &t
	}
	if params.DateTo != nil {
		t := params.DateTo.Time
		query.DateTo = &t
	}
	if params.RouteId != nil {
		id := domain.RouteID(params.RouteId.String())
		query.RouteID = &id
	}

	rows, err := s.Availability.TripAvailability(r.Context(), caller, query)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	out := make([]TripAvailability, 0, len(rows))
	for _, row := range rows {
		out = append(out, tripAvailabilityFromDomain(row))
	}
	writeJSON(w, http.StatusOK, TripAvailabilityResponse{Trips: out})
}

func requireCaller(w http.ResponseWriter, r *http.Request) (domain.UserID, bool) {
	caller, ok := callerFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing subject", nil)
		return "", false
	}
	return caller, true
}

// decodeBody decodes a JSON request body, writing a 422 on failure.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if r.Body == nil {
		writeError(w, r, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "missing request body", nil)
		return false
	}
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		writeError(w, r, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "invalid request body", map[string]any{"body": err.Error()})
		return false
	}
	return true
}
