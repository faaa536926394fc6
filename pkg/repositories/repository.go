package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"

	appctx "github.com/Ramsey-B/fern/pkg/context"
	"github.com/Ramsey-B/fern/pkg/database"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

func NotFound(format string, args ...any) error {
	return httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf(format, args...))
}

func Unauthorized(message string) error {
	return httperror.NewHTTPError(http.StatusUnauthorized, message)
}

func BadRequest(message string) error {
	return httperror.NewHTTPError(http.StatusBadRequest, message)
}

// Repository holds what every table repository shares.
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{db: db, logger: logger}
}

func (r *Repository) DB() database.DB {
	return r.db
}

// getOne loads a single row into dest. No row becomes notFound; any other
// failure is logged and hidden behind a 500 naming op.
func (r *Repository) getOne(ctx context.Context, dest any, query string, args []any, notFound error, op string) error {
	err := r.db.GetContext(ctx, dest, query, args...)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sql.ErrNoRows):
		return notFound
	default:
		return r.internal(ctx, err, op, nil)
	}
}

// internal logs err and returns the 500 callers surface in its place.
func (r *Repository) internal(ctx context.Context, err error, op string, fields map[string]any) error {
	tracing.RecordError(tracing.GetActiveSpan(ctx), err)
	entry := r.logger.WithContext(ctx).WithError(err)
	if len(fields) > 0 {
		entry = entry.WithFields(fields)
	}
	entry.Errorf("failed to %s", op)
	return httperror.NewHTTPErrorf(http.StatusInternalServerError, "failed to %s", op)
}

// GetUserID reads the authenticated user id from ctx.
func GetUserID(ctx context.Context) (uuid.UUID, error) {
	raw := appctx.GetUserID(ctx)
	if raw == "" {
		return uuid.Nil, Unauthorized("Not authenticated")
	}

	userID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, Unauthorized("Invalid or expired token.")
	}
	return userID, nil
}
