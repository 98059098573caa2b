// Package crud holds the request plumbing shared by the entity handlers: id parsing, error
// mapping, status toggles and two-step deletes.
package crud

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"

	"github.com/resource-mgmt/console/internal/confirm"
	"github.com/resource-mgmt/console/internal/realtime"
	"github.com/resource-mgmt/console/pkg/response"
)

// Postgres error codes mapped to 409.
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// ValidationError is a failed form check. Fields is set when every failure is reported at once.
type ValidationError struct {
	Message string
	Fields  map[string]string
}

func (e *ValidationError) Error() string { return e.Message }

// Invalid returns a single-message ValidationError.
func Invalid(msg string) error { return &ValidationError{Message: msg} }

// ErrNotFound is returned by stores when the addressed row does not exist.
var ErrNotFound = errors.New("not found")

// Fail maps err to a response. Data errors surface with their raw message.
func Fail(c *gin.Context, logger *zap.Logger, op string, err error) {
	var ve *ValidationError
	var pgErr *pgconn.PgError
	switch {
	case errors.As(err, &ve):
		if len(ve.Fields) > 0 {
			response.ValidationFailed(c, ve.Message, ve.Fields)
			return
		}
		response.BadRequest(c, ve.Message)
	case errors.Is(err, pgx.ErrNoRows), errors.Is(err, ErrNotFound):
		response.NotFound(c, "not found")
	case errors.Is(err, confirm.ErrInvalidToken):
		response.Conflict(c, err.Error())
	case errors.As(err, &pgErr) && (pgErr.Code == pgUniqueViolation || pgErr.Code == pgForeignKeyViolation):
		logger.Warn(op+" rejected by constraint", zap.String("constraint", pgErr.ConstraintName), zap.Error(err))
		response.Conflict(c, pgErr.Message)
	case errors.Is(err, context.Canceled):
		response.ServiceUnavailable(c, "request cancelled")
	default:
		logger.Error(op+" failed", zap.Error(err))
		response.Internal(c, err.Error())
	}
}

// Int64Param parses a numeric path parameter, answering 400 when it is not a number.
func Int64Param(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		response.BadRequest(c, "invalid "+name)
		return 0, false
	}
	return id, true
}

// StatusFilter reads ?status=active|inactive. nil means no filter.
func StatusFilter(c *gin.Context) (*bool, bool) {
	switch strings.ToLower(c.Query("status")) {
	case "":
		return nil, true
	case "active", "true":
		v := true
		return &v, true
	case "inactive", "false":
		v := false
		return &v, true
	default:
		response.BadRequest(c, "status must be active or inactive")
		return nil, false
	}
}

// Lifecycle wires status toggles and two-step deletes for one table.
type Lifecycle struct {
	Table   string
	Confirm confirm.Store
	Pub     realtime.Publisher
	Logger  *zap.Logger
}

// Toggle handles PATCH /<entity>/:id/status. toggle writes the inverse flag and returns the row.
func (l Lifecycle) Toggle(key func(c *gin.Context) (string, bool), toggle func(ctx context.Context, key string) (interface{}, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		k, ok := key(c)
		if !ok {
			return
		}
		row, err := toggle(c.Request.Context(), k)
		if err != nil {
			Fail(c, l.Logger, "toggle "+l.Table+" status", err)
			return
		}
		l.Pub.Publish(realtime.NewChange(l.Table, realtime.Update, k, row))
		response.OK(c, row)
	}
}

// RequestDelete handles POST /<entity>/:id/delete-request. exists must fail for missing rows.
func (l Lifecycle) RequestDelete(key func(c *gin.Context) (string, bool), exists func(ctx context.Context, key string) error) gin.HandlerFunc {
	return func(c *gin.Context) {
		k, ok := key(c)
		if !ok {
			return
		}
		if err := exists(c.Request.Context(), k); err != nil {
			Fail(c, l.Logger, "lookup "+l.Table, err)
			return
		}
		p, err := l.Confirm.Request(c.Request.Context(), l.Table, k)
		if err != nil {
			Fail(c, l.Logger, "request "+l.Table+" delete", err)
			return
		}
		response.Accepted(c, p)
	}
}

// Delete handles DELETE /<entity>/:id?confirm=<token>. It removes exactly the addressed row.
func (l Lifecycle) Delete(key func(c *gin.Context) (string, bool), remove func(ctx context.Context, key string) error) gin.HandlerFunc {
	return func(c *gin.Context) {
		k, ok := key(c)
		if !ok {
			return
		}
		token := c.Query("confirm")
		if err := l.Confirm.Check(c.Request.Context(), token, l.Table, k); err != nil {
			Fail(c, l.Logger, "confirm "+l.Table+" delete", err)
			return
		}
		// The token is redeemed only once the row is gone.
		if err := remove(c.Request.Context(), k); err != nil {
			Fail(c, l.Logger, "delete "+l.Table, err)
			return
		}
		if err := l.Confirm.Consume(c.Request.Context(), token, l.Table, k); err != nil {
			l.Logger.Warn("confirmation not redeemed after delete", zap.String("table", l.Table), zap.String("key", k), zap.Error(err))
		}
		l.Pub.Publish(realtime.NewChange(l.Table, realtime.Delete, k, nil))
		response.NoContent(c)
	}
}

// CancelDelete handles DELETE /confirmations/:token.
func CancelDelete(store confirm.Store, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := store.Cancel(c.Request.Context(), c.Param("token")); err != nil {
			Fail(c, logger, "cancel delete", err)
			return
		}
		response.NoContent(c)
	}
}

// CodeKey reads a string code path parameter such as CL001.
func CodeKey(c *gin.Context) (string, bool) {
	k := strings.TrimSpace(c.Param("id"))
	if k == "" {
		response.BadRequest(c, "invalid id")
		return "", false
	}
	return k, true
}

// NumericKey reads a numeric id path parameter and returns it as a string key.
func NumericKey(c *gin.Context) (string, bool) {
	id, ok := Int64Param(c, "id")
	if !ok {
		return "", false
	}
	return strconv.FormatInt(id, 10), true
}

// MustInt64 converts a key produced by NumericKey back to an id.
func MustInt64(key string) int64 {
	id, _ := strconv.ParseInt(key, 10, 64)
	return id
}

// Key renders a numeric id as a change key.
func Key(id int64) string { return strconv.FormatInt(id, 10) }
