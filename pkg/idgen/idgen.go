// Package idgen allocates human-readable entity codes such as CL001 and EMP042.
package idgen

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/resource-mgmt/console/pkg/database"
)

const (
	// PrefixClient is the code prefix for clients.
	PrefixClient = "CL"
	// PrefixEmployee is the code prefix for employees.
	PrefixEmployee = "EMP"
	// DefaultWidth is the zero-padded width of the numeric part.
	DefaultWidth = 3
)

// ErrMalformedCode is returned when an existing code does not carry the expected prefix and number.
var ErrMalformedCode = errors.New("malformed code")

// Format renders prefix + n zero-padded to width. Numbers wider than width are kept whole.
func Format(prefix string, width, n int) string {
	return fmt.Sprintf("%s%0*d", prefix, width, n)
}

// Parse extracts the numeric part of code.
func Parse(prefix, code string) (int, error) {
	if !strings.HasPrefix(code, prefix) {
		return 0, fmt.Errorf("%w: %q", ErrMalformedCode, code)
	}
	n, err := strconv.Atoi(code[len(prefix):])
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: %q", ErrMalformedCode, code)
	}
	return n, nil
}

// Next returns the code after last. An empty last yields the first code (e.g. EMP001).
func Next(prefix string, width int, last string) (string, error) {
	if last == "" {
		return Format(prefix, width, 1), nil
	}
	n, err := Parse(prefix, last)
	if err != nil {
		return "", err
	}
	return Format(prefix, width, n+1), nil
}

// Querier is satisfied by *pgxpool.Pool and pgx.Tx.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Peek returns the code the next insert into table would get, without reserving it.
func Peek(ctx context.Context, q Querier, table, prefix string) (string, error) {
	last, err := maxCode(ctx, q, table, prefix)
	if err != nil {
		return "", err
	}
	return Next(prefix, DefaultWidth, last)
}

// Allocate reserves the next code for table inside tx. Concurrent allocations for the same
// table serialize on a transaction-scoped advisory lock, so the caller must insert the row
// before committing.
func Allocate(ctx context.Context, tx pgx.Tx, table, prefix string) (string, error) {
	if err := database.LockKey(ctx, tx, "idgen:"+table); err != nil {
		return "", err
	}
	return Peek(ctx, tx, table, prefix)
}

// maxCode considers only ids made of prefix and digits and orders them by their numeric part.
func maxCode(ctx context.Context, q Querier, table, prefix string) (string, error) {
	sql := `SELECT id FROM ` + pgx.Identifier{table}.Sanitize() + `
		WHERE id ~ ('^' || $1 || '[0-9]+$')
		ORDER BY substr(id, $2)::numeric DESC
		LIMIT 1`
	var last string
	err := q.QueryRow(ctx, sql, prefix, len(prefix)+1).Scan(&last)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("max %s code: %w", table, err)
	}
	return last, nil
}
