package httpapi

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/campus-shuttle/transport-api/internal/domain"
)

type subjectKey struct{}

type loggerKey struct{}

func WithSubject(ctx context.Context, subjectID string) context.Context {
	return context.WithValue(ctx, subjectKey{}, subjectID)
}

func SubjectFromContext(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(subjectKey{}).(string)
	return v, ok && v != ""
}

// callerFromContext returns the authenticated subject as a user id.
func callerFromContext(ctx context.Context) (domain.UserID, bool) {
	sub, ok := SubjectFromContext(ctx)
	return domain.UserID(sub), ok
}

func withLogger(ctx context.Context, l logrus.FieldLogger) context.Context {
	return context.WithValue(ctx, loggerKey{}, l)
}

// loggerFromContext returns the request-scoped logger, or the standard logger outside a
// request.
func loggerFromContext(ctx context.Context) logrus.FieldLogger {
	if l, ok := ctx.Value(loggerKey{}).(logrus.FieldLogger); ok && l != nil {
		return l
	}
	return logrus.StandardLogger()
}
