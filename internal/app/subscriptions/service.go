package subscriptions

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/campus-shuttle/transport-api/internal/app/apperr"
	"github.com/campus-shuttle/transport-api/internal/app/authz"
	"github.com/campus-shuttle/transport-api/internal/domain"
	clockport "github.com/campus-shuttle/transport-api/internal/ports/out/clock"
	"github.com/campus-shuttle/transport-api/internal/ports/out/routerepo"
	"github.com/campus-shuttle/transport-api/internal/ports/out/subscriptionrepo"
	"github.com/campus-shuttle/transport-api/internal/ports/out/userrepo"
)

// Service runs the subscription lifecycle. It is the only writer of subscription status.
type Service struct {
	subs  subscriptionrepo.Repository
	users UserDirectory
	stops StopDirectory
	roles authz.RoleChecker
	clk   clockport.Clock
	loc   *time.Location

	newSubscriptionID func() domain.SubscriptionID
}

// NewService wires the lifecycle engine. loc is the service time zone that decides which
// calendar day "today" is; nil means UTC.
func NewService(
	subs subscriptionrepo.Repository,
	users UserDirectory,
	stops StopDirectory,
	roles authz.RoleChecker,
	clk clockport.Clock,
	loc *time.Location,
) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{
		subs:  subs,
		users: users,
		stops: stops,
		roles: roles,
		clk:   clk,
		loc:   loc,
		newSubscriptionID: func() domain.SubscriptionID {
			return domain.SubscriptionID(uuid.NewString())
		},
	}
}

// SetNewSubscriptionIDForTest overrides ID generation for deterministic tests.
// It should not be used in production code.
func (s *Service) SetNewSubscriptionIDForTest(fn func() domain.SubscriptionID) {
	if fn != nil {
		s.newSubscriptionID = fn
	}
}

func (s *Service) now() (now time.Time, today time.Time) {
	now = s.clk.Now().UTC()
	return now, domain.DateOf(now.In(s.loc))
}

// Request files a new subscription request, or re-opens an EXPIRED or INACTIVE one.
func (s *Service) Request(ctx context.Context, caller domain.UserID, in RequestInput) (Details, error) {
	u, err := s.users.GetByID(ctx, caller)
	if err != nil {
		if errors.Is(err, userrepo.ErrNotFound) {
			return Details{}, apperr.Forbidden("only staff members can subscribe")
		}
		return Details{}, err
	}
	if u.Type != domain.UserTypeStaff {
		return Details{}, apperr.Forbidden("only staff members can subscribe")
	}

	window, err := parseWindow(in)
	if err != nil {
		return Details{}, err
	}

	stopName := domain.NormalizeHumanName(in.StopName)
	if stopName == "" {
		return Details{}, apperr.Invalid("invalid stop", map[string]any{"stopName": "must be non-empty"})
	}
	loc, err := s.stops.FindStopByName(ctx, stopName)
	if err != nil {
		if errors.Is(err, routerepo.ErrNotFound) {
			return Details{}, apperr.Invalid("unknown stop", map[string]any{"stopName": "no stop named " + stopName})
		}
		return Details{}, err
	}

	start, end := window.Window()
	now, today := s.now()

	var out domain.Subscription
	err = s.subs.InTx(ctx, func(ctx context.Context, tx subscriptionrepo.Tx) error {
		rec, err := tx.GetByUserForUpdate(ctx, caller)
		switch {
		case errors.Is(err, subscriptionrepo.ErrNotFound):
			sub := domain.Subscription{
				ID:        s.newSubscriptionID(),
				UserID:    caller,
				Status:    domain.SubscriptionStatusNone,
				CreatedAt: now,
			}
			if err := sub.TransitionTo(domain.SubscriptionStatusPending, now); err != nil {
				return err
			}
			sub.StopName = loc.Stop.Name
			sub.StartDate, sub.EndDate = start, end
			if err := tx.Insert(ctx, toRecord(sub)); err != nil {
				if errors.Is(err, subscriptionrepo.ErrConflict) {
					return conflictErr()
				}
				return err
			}
			out = sub
			return nil
		case err != nil:
			return err
		}

		sub := fromRecord(rec)
		sub.Reconcile(today, now)
		if sub.Status.Open() {
			return conflictErr()
		}
		if err := sub.TransitionTo(domain.SubscriptionStatusPending, now); err != nil {
			return err
		}
		sub.StopName = loc.Stop.Name
		sub.StartDate, sub.EndDate = start, end
		if err := tx.Update(ctx, toRecord(sub)); err != nil {
			return err
		}
		out = sub
		return nil
	})
	if err != nil {
		return Details{}, err
	}
	return Details{Subscription: out, RouteName: loc.RouteName}, nil
}

// GetMine returns the caller's subscription with lazy expiry applied and persisted.
func (s *Service) GetMine(ctx context.Context, caller domain.UserID) (Details, error) {
	rec, err := s.subs.GetByUser(ctx, caller)
	if err != nil {
		if errors.Is(err, subscriptionrepo.ErrNotFound) {
			return Details{}, notFoundErr()
		}
		return Details{}, err
	}
	sub := fromRecord(rec)

	now, today := s.now()
	if sub.Reconcile(today, now) {
		// Persist under the row lock; a concurrent writer may already have moved it on.
		err := s.subs.InTx(ctx, func(ctx context.Context, tx subscriptionrepo.Tx) error {
			rec, err := tx.GetByUserForUpdate(ctx, caller)
			if err != nil {
				return err
			}
			sub = fromRecord(rec)
			if sub.Reconcile(today, now) {
				return tx.Update(ctx, toRecord(sub))
			}
			return nil
		})
		if err != nil {
			if errors.Is(err, subscriptionrepo.ErrNotFound) {
				return Details{}, notFoundErr()
			}
			return Details{}, err
		}
	}
	return Details{Subscription: sub, RouteName: s.routeNameFor(ctx, sub.StopName)}, nil
}

// ListPending returns every PENDING request, oldest first. Transport officers only.
func (s *Service) ListPending(ctx context.Context, caller domain.UserID) ([]Details, error) {
	if err := authz.Require(ctx, s.roles, caller, domain.RoleTransportOfficer); err != nil {
		return nil, err
	}
	recs, err := s.subs.ListByStatus(ctx, domain.SubscriptionStatusPending)
	if err != nil {
		return nil, err
	}
	locs, err := s.stops.ListStopLocations(ctx)
	if err != nil {
		return nil, err
	}
	routeByStop := make(map[string]string, len(locs))
	for _, l := range locs {
		routeByStop[strings.ToLower(l.Stop.Name)] = l.RouteName
	}

	names := make(map[domain.UserID]string)
	out := make([]Details, 0, len(recs))
	for _, rec := range recs {
		name, ok := names[rec.UserID]
		if !ok {
			u, err := s.users.GetByID(ctx, rec.UserID)
			switch {
			case err == nil:
				name = u.FullName
			case errors.Is(err, userrepo.ErrNotFound):
			default:
				return nil, err
			}
			names[rec.UserID] = name
		}
		out = append(out, Details{
			Subscription:  fromRecord(rec),
			RouteName:     routeByStop[strings.ToLower(rec.StopName)],
			RequesterName: name,
		})
	}
	return out, nil
}

// Approve moves a PENDING request to ACTIVE. Transport officers only.
func (s *Service) Approve(ctx context.Context, caller domain.UserID, id domain.SubscriptionID) (Details, error) {
	return s.decide(ctx, caller, id, domain.SubscriptionStatusActive)
}

// Decline moves a PENDING request to INACTIVE. Transport officers only.
func (s *Service) Decline(ctx context.Context, caller domain.UserID, id domain.SubscriptionID) (Details, error) {
	return s.decide(ctx, caller, id, domain.SubscriptionStatusInactive)
}

func (s *Service) decide(ctx context.Context, caller domain.UserID, id domain.SubscriptionID, to domain.SubscriptionStatus) (Details, error) {
	if err := authz.Require(ctx, s.roles, caller, domain.RoleTransportOfficer); err != nil {
		return Details{}, err
	}
	now, today := s.now()

	var (
		out      domain.Subscription
		stateErr error
	)
	err := s.subs.InTx(ctx, func(ctx context.Context, tx subscriptionrepo.Tx) error {
		rec, err := tx.GetByIDForUpdate(ctx, id)
		if err != nil {
			if errors.Is(err, subscriptionrepo.ErrNotFound) {
				return notFoundErr()
			}
			return err
		}
		sub := fromRecord(rec)
		if sub.Reconcile(today, now) {
			if err := tx.Update(ctx, toRecord(sub)); err != nil {
				return err
			}
		}
		if sub.Status != domain.SubscriptionStatusPending {
			// Commit any expiry above, but leave the decision unapplied.
			allowed := make([]string, 0, 2)
			for _, st := range domain.ValidTransitionsFrom(sub.Status) {
				allowed = append(allowed, string(st))
			}
			stateErr = apperr.InvalidState("subscription is not pending", map[string]any{
				"status":  string(sub.Status),
				"allowed": allowed,
			})
			return nil
		}
		if err := sub.TransitionTo(to, now); err != nil {
			return err
		}
		if err := tx.Update(ctx, toRecord(sub)); err != nil {
			return err
		}
		out = sub
		return nil
	})
	if err != nil {
		return Details{}, err
	}
	if stateErr != nil {
		return Details{}, stateErr
	}
	return Details{Subscription: out, RouteName: s.routeNameFor(ctx, out.StopName)}, nil
}

// Cancel deletes the caller's subscription record.
func (s *Service) Cancel(ctx context.Context, caller domain.UserID) error {
	if err := s.subs.DeleteByUser(ctx, caller); err != nil {
		if errors.Is(err, subscriptionrepo.ErrNotFound) {
			return notFoundErr()
		}
		return err
	}
	return nil
}

// ExpireDue moves every ACTIVE subscription that ended before today to EXPIRED and
// returns how many changed. Reads already apply the same rule lazily.
func (s *Service) ExpireDue(ctx context.Context) (int, error) {
	now, today := s.now()
	return s.subs.ExpireEndedBefore(ctx, today, now)
}

func (s *Service) routeNameFor(ctx context.Context, stopName string) string {
	loc, err := s.stops.FindStopByName(ctx, stopName)
	if err != nil {
		return ""
	}
	return loc.RouteName
}

func parseWindow(in RequestInput) (domain.MonthRange, error) {
	details := map[string]any{}
	start, err := domain.ParseMonth(in.StartMonth)
	if err != nil {
		details["startMonth"] = err.Error()
	}
	end, err := domain.ParseMonth(in.EndMonth)
	if err != nil {
		details["endMonth"] = err.Error()
	}
	if len(details) > 0 {
		return domain.MonthRange{}, apperr.Invalid("invalid month", details)
	}

	r, err := domain.NewMonthRange(in.Year, start, end)
	switch {
	case errors.Is(err, domain.ErrMonthRangeReversed):
		return domain.MonthRange{}, apperr.Invalid("invalid month range", map[string]any{"endMonth": err.Error()})
	case errors.Is(err, domain.ErrInvalidYear):
		return domain.MonthRange{}, apperr.Invalid("invalid year", map[string]any{"year": err.Error()})
	case err != nil:
		return domain.MonthRange{}, apperr.Invalid("invalid month", map[string]any{"startMonth": err.Error()})
	}
	return r, nil
}

func conflictErr() error {
	return apperr.Conflict("SUBSCRIPTION_CONFLICT", "You already have an active or pending subscription.")
}

func notFoundErr() error {
	return apperr.NotFound("SUBSCRIPTION_NOT_FOUND", "subscription not found")
}

func fromRecord(r subscriptionrepo.Subscription) domain.Subscription {
	return domain.Subscription{
		ID:        r.ID,
		UserID:    r.UserID,
		StopName:  r.StopName,
		Status:    r.Status,
		StartDate: r.StartDate,
		EndDate:   r.EndDate,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

func toRecord(s domain.Subscription) subscriptionrepo.Subscription {
	return subscriptionrepo.Subscription{
		ID:        s.ID,
		UserID:    s.UserID,
		StopName:  s.StopName,
		Status:    s.Status,
		StartDate: s.StartDate,
		EndDate:   s.EndDate,
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
	}
}
