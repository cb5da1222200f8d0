package errors

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// reKeyField extracts field name from unique violation detail: "Key (field)=(value) already exists.".
var reKeyField = regexp.MustCompile(`Key \(([^)]+)\)=`)

// MapDBError maps user record store errors onto the authentication taxonomy:
// - pgx.ErrNoRows → UserNotFound
// - unique violation on email → EmailAlreadyInUse
// - check / not null violations → RequiredField on the offending column
// - context deadline → Network
// - any other PostgreSQL error → Server
//
// Errors that are not database errors are returned unchanged.
func MapDBError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return Wrap(err, KindNetwork, "database request timed out")
	}

	if errors.Is(err, pgx.ErrNoRows) {
		return Wrap(err, KindUserNotFound, "user record not found")
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return mapPgError(pgErr)
	}

	return err
}

func mapPgError(pgErr *pgconn.PgError) error {
	switch pgErr.Code {
	case pgerrcode.UniqueViolation:
		field := uniqueViolationField(pgErr)
		if field == "email" || field == "" || strings.Contains(field, "email") {
			e := Wrap(pgErr, KindEmailAlreadyInUse, "email already registered")
			e.Field = "email"
			return e
		}
		e := Wrap(pgErr, KindServer, "duplicate user record")
		e.Field = field
		return e
	case pgerrcode.CheckViolation, pgerrcode.NotNullViolation:
		e := Wrap(pgErr, KindRequiredField, "user record failed a constraint")
		e.Field = pgErr.ColumnName
		if e.Field != "" {
			e.UserMessage = RequiredField(e.Field).UserMessage
		}
		return e
	case pgerrcode.QueryCanceled, pgerrcode.AdminShutdown, pgerrcode.CannotConnectNow:
		return Wrap(pgErr, KindNetwork, "database unavailable")
	default:
		return Wrap(pgErr, KindServer, "a database error occurred")
	}
}

// uniqueViolationField prefers ColumnName, then the "Key (field)=" detail, then the constraint name.
func uniqueViolationField(pgErr *pgconn.PgError) string {
	if pgErr.ColumnName != "" {
		return pgErr.ColumnName
	}
	if pgErr.Detail != "" {
		if m := reKeyField.FindStringSubmatch(pgErr.Detail); len(m) == 2 {
			return strings.TrimSpace(m[1])
		}
	}
	return inferFieldFromConstraint(pgErr.ConstraintName)
}

// inferFieldFromConstraint attempts to infer the field name from a constraint name.
// e.g., "user_records_email_key" → "email"
func inferFieldFromConstraint(constraintName string) string {
	if constraintName == "" {
		return ""
	}
	name := strings.TrimSuffix(strings.TrimSuffix(constraintName, "_key"), "_unique")
	name = strings.TrimSuffix(name, "_idx")
	if i := strings.LastIndex(name, "_"); i >= 0 {
		return name[i+1:]
	}
	return ""
}
