package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/target/stockcam/internal/data/pgxutil"
	domainauth "github.com/target/stockcam/internal/domain/auth"
	apperrors "github.com/target/stockcam/internal/errors"
	"github.com/target/stockcam/internal/ports"
)

const (
	userRecordColumns = `id, email, display_name, photo_url, role, status, email_verified, created_at, updated_at, last_sign_in_at`

	defaultUserListLimit = 50
	maxUserListLimit     = 500
)

const (
	userRecordGetQuery = `SELECT ` + userRecordColumns + ` FROM user_records WHERE id = $1`

	userRecordLockQuery = `SELECT ` + userRecordColumns + ` FROM user_records WHERE id = $1 FOR UPDATE`

	userRecordUpsertQuery = `
		INSERT INTO user_records (
			id, email, display_name, photo_url, role, status, email_verified, created_at, updated_at, last_sign_in_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			email = EXCLUDED.email,
			display_name = EXCLUDED.display_name,
			photo_url = EXCLUDED.photo_url,
			role = EXCLUDED.role,
			status = EXCLUDED.status,
			email_verified = EXCLUDED.email_verified,
			updated_at = EXCLUDED.updated_at,
			last_sign_in_at = EXCLUDED.last_sign_in_at
		RETURNING ` + userRecordColumns

	userRecordUpdateQuery = `
		UPDATE user_records SET
			email = $2, display_name = $3, photo_url = $4, role = $5, status = $6,
			email_verified = $7, updated_at = $8, last_sign_in_at = $9
		WHERE id = $1
		RETURNING ` + userRecordColumns

	userRecordListQuery = `
		SELECT ` + userRecordColumns + ` FROM user_records
		WHERE ($1 = '' OR lower(email) > $1)
		ORDER BY lower(email)
		LIMIT $2`

	userRecordPrefixQuery = `
		SELECT ` + userRecordColumns + ` FROM user_records
		WHERE lower(email) LIKE $1 ESCAPE '\'
		ORDER BY lower(email)
		LIMIT $2`

	userRecordEmailExistsQuery = `SELECT EXISTS(SELECT 1 FROM user_records WHERE lower(email) = $1)`
)

// UserRecordRepo stores extended user records in PostgreSQL.
type UserRecordRepo struct {
	DB           *sql.DB
	timeProvider TimeProvider
}

var _ ports.UserRecordStore = (*UserRecordRepo)(nil)

// NewUserRecordRepo creates a new UserRecordRepo with real time provider.
func NewUserRecordRepo(db *sql.DB) *UserRecordRepo {
	return &UserRecordRepo{DB: db, timeProvider: RealTimeProvider{}}
}

// NewUserRecordRepoWithTimeProvider creates a repo with a custom time provider (useful for tests).
func NewUserRecordRepoWithTimeProvider(db *sql.DB, tp TimeProvider) *UserRecordRepo {
	return &UserRecordRepo{DB: db, timeProvider: tp}
}

// Get retrieves a record by identity id. Returns ports.ErrRecordNotFound when absent.
func (r *UserRecordRepo) Get(ctx context.Context, id string) (*domainauth.UserRecord, error) {
	if strings.TrimSpace(id) == "" {
		return nil, apperrors.RequiredField("id")
	}
	var out domainauth.UserRecord
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		var qErr error
		out, qErr = collectOneRecord(conn.Query(ctx, userRecordGetQuery, id))
		return qErr
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ports.ErrRecordNotFound
		}
		return nil, fmt.Errorf("get user record: %w", apperrors.MapDBError(err))
	}
	return &out, nil
}

// Set creates or replaces a record. CreatedAt is kept from the first write.
func (r *UserRecordRepo) Set(ctx context.Context, rec domainauth.UserRecord) (*domainauth.UserRecord, error) {
	if strings.TrimSpace(rec.ID) == "" {
		return nil, apperrors.RequiredField("id")
	}
	if err := validateRecord(rec); err != nil {
		return nil, err
	}

	now := r.timeProvider.Now().UTC()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}

	var out domainauth.UserRecord
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		var qErr error
		out, qErr = collectOneRecord(conn.Query(ctx, userRecordUpsertQuery,
			rec.ID,
			strings.ToLower(strings.TrimSpace(rec.Email)),
			rec.DisplayName,
			rec.PhotoURL,
			string(rec.Role),
			string(rec.Status),
			rec.EmailVerified,
			rec.CreatedAt,
			now,
			rec.LastSignInAt,
		))
		return qErr
	})
	if err != nil {
		return nil, fmt.Errorf("set user record: %w", apperrors.MapDBError(err))
	}
	return &out, nil
}

// Merge applies patch to an existing record under a row lock.
func (r *UserRecordRepo) Merge(ctx context.Context, id string, patch ports.RecordPatch) (*domainauth.UserRecord, error) {
	var out domainauth.UserRecord
	err := pgxutil.WithPgxTx(ctx, r.DB, pgxutil.TxConfig{
		Fn: func(tx pgx.Tx) error {
			rec, err := collectOneRecord(tx.Query(ctx, userRecordLockQuery, id))
			if err != nil {
				return err
			}
			patch.Apply(&rec)
			if err := validateRecord(rec); err != nil {
				return err
			}
			out, err = collectOneRecord(tx.Query(ctx, userRecordUpdateQuery,
				rec.ID,
				rec.Email,
				rec.DisplayName,
				rec.PhotoURL,
				string(rec.Role),
				string(rec.Status),
				rec.EmailVerified,
				r.timeProvider.Now().UTC(),
				rec.LastSignInAt,
			))
			return err
		},
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ports.ErrRecordNotFound
		}
		if apperrors.IsValidation(err) {
			return nil, err
		}
		return nil, fmt.Errorf("merge user record: %w", apperrors.MapDBError(err))
	}
	return &out, nil
}

// Delete removes a record. Deleting a missing record is not an error.
func (r *UserRecordRepo) Delete(ctx context.Context, id string) error {
	if _, err := r.DB.ExecContext(ctx, `DELETE FROM user_records WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete user record: %w", apperrors.MapDBError(err))
	}
	return nil
}

// List pages through records ordered by lowercased email, using the last
// email of the previous page as the cursor.
func (r *UserRecordRepo) List(ctx context.Context, in ports.ListUsersInput) (ports.UserPage, error) {
	limit := clampLimit(in.Limit)
	cursor := strings.ToLower(strings.TrimSpace(in.Cursor))

	var rows []domainauth.UserRecord
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		var qErr error
		// One extra row tells us whether another page exists.
		rows, qErr = collectRecords(conn.Query(ctx, userRecordListQuery, cursor, limit+1))
		return qErr
	})
	if err != nil {
		return ports.UserPage{}, fmt.Errorf("list user records: %w", apperrors.MapDBError(err))
	}

	page := ports.UserPage{Users: rows}
	if len(rows) > limit {
		page.Users = rows[:limit]
		page.NextCursor = strings.ToLower(page.Users[limit-1].Email)
	}
	return page, nil
}

// SearchByEmailPrefix returns records whose email starts with prefix, case-insensitively.
func (r *UserRecordRepo) SearchByEmailPrefix(ctx context.Context, prefix string, limit int) ([]domainauth.UserRecord, error) {
	pattern := escapeLike(strings.ToLower(strings.TrimSpace(prefix))) + "%"

	var rows []domainauth.UserRecord
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		var qErr error
		rows, qErr = collectRecords(conn.Query(ctx, userRecordPrefixQuery, pattern, clampLimit(limit)))
		return qErr
	})
	if err != nil {
		return nil, fmt.Errorf("search user records: %w", apperrors.MapDBError(err))
	}
	return rows, nil
}

// EmailExists reports whether any record uses email, case-insensitively.
func (r *UserRecordRepo) EmailExists(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := r.DB.QueryRowContext(ctx, userRecordEmailExistsQuery, strings.ToLower(strings.TrimSpace(email))).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check email: %w", apperrors.MapDBError(err))
	}
	return exists, nil
}

func collectOneRecord(rows pgx.Rows, err error) (domainauth.UserRecord, error) {
	if err != nil {
		return domainauth.UserRecord{}, err
	}
	defer rows.Close()
	return pgx.CollectOneRow(rows, pgx.RowToStructByName[domainauth.UserRecord])
}

func collectRecords(rows pgx.Rows, err error) ([]domainauth.UserRecord, error) {
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return pgx.CollectRows(rows, pgx.RowToStructByName[domainauth.UserRecord])
}

func validateRecord(rec domainauth.UserRecord) error {
	if strings.TrimSpace(rec.Email) == "" {
		return apperrors.RequiredField("email")
	}
	if !rec.Role.IsValid() {
		return apperrors.InvalidField("role", "unknown role "+string(rec.Role))
	}
	if !rec.Status.IsValid() {
		return apperrors.InvalidField("status", "unknown status "+string(rec.Status))
	}
	return nil
}

func clampLimit(limit int) int {
	switch {
	case limit <= 0:
		return defaultUserListLimit
	case limit > maxUserListLimit:
		return maxUserListLimit
	default:
		return limit
	}
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string { return likeEscaper.Replace(s) }
