// Package devseed prepares extended user records for the dev identity backend
// so seeded accounts sign in with their configured roles.
package devseed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	domainauth "github.com/target/stockcam/internal/domain/auth"
	"github.com/target/stockcam/internal/ports"
)

// Account is a dev identity paired with the role its record should hold.
type Account struct {
	Identity domainauth.Identity
	Role     domainauth.Role
}

// Options groups dependencies for Run.
type Options struct {
	Records ports.UserRecordStore // Required
	Logger  *slog.Logger          // Optional
	Now     func() time.Time      // Optional
}

// Run creates missing records and aligns roles on existing ones. A failure on
// one account does not stop the others; the count is reported at the end.
func Run(ctx context.Context, opts Options, accounts []Account) error {
	if opts.Records == nil {
		return errors.New("devseed: records store is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	failures := 0
	for _, acct := range accounts {
		created, err := seedAccount(ctx, opts.Records, acct, now())
		if err != nil {
			logger.ErrorContext(ctx, "failed to seed user record", "email", acct.Identity.Email, "error", err)
			failures++
			continue
		}
		msg := "user record already seeded"
		if created {
			msg = "seeded user record"
		}
		logger.InfoContext(ctx, msg, "email", acct.Identity.Email, "role", acct.Role)
	}

	if failures > 0 {
		return fmt.Errorf("%d seed errors; check logs", failures)
	}
	return nil
}

func seedAccount(ctx context.Context, records ports.UserRecordStore, acct Account, now time.Time) (bool, error) {
	role := acct.Role
	if !role.IsValid() {
		role = domainauth.RoleEmployee
	}

	rec, err := records.Get(ctx, acct.Identity.UID)
	switch {
	case errors.Is(err, ports.ErrRecordNotFound):
		fresh := domainauth.NewUserRecord(acct.Identity, now)
		fresh.Role = role
		if _, err := records.Set(ctx, fresh); err != nil {
			return false, fmt.Errorf("create record: %w", err)
		}
		return true, nil
	case err != nil:
		return false, fmt.Errorf("get record: %w", err)
	}

	if rec.Role == role {
		return false, nil
	}
	if _, err := records.Merge(ctx, rec.ID, ports.RecordPatch{Role: &role}); err != nil {
		return false, fmt.Errorf("update role: %w", err)
	}
	return false, nil
}
