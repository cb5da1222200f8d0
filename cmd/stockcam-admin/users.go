package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	domainauth "github.com/target/stockcam/internal/domain/auth"
	"github.com/target/stockcam/internal/service"
)

const defaultListLimit = 50

type userFlags struct {
	As   string
	JSON bool
}

func (f *userFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&f.As, "as", "", "Admin email to sign in with (defaults to "+envAdminEmail+")")
	fs.BoolVar(&f.JSON, "json", false, "Print JSON instead of a table")
}

type listUsersOptions struct {
	userFlags
	Limit  int
	Cursor string
}

func parseListUsersFlags(args []string) (listUsersOptions, error) {
	fs := flag.NewFlagSet("list-users", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	var opts listUsersOptions
	opts.register(fs)
	fs.IntVar(&opts.Limit, "limit", defaultListLimit, "Maximum users per page")
	fs.StringVar(&opts.Cursor, "cursor", "", "Cursor returned by a previous page")

	if err := fs.Parse(args); err != nil {
		return listUsersOptions{}, err
	}
	if opts.Limit <= 0 {
		return listUsersOptions{}, errors.New("--limit must be greater than zero")
	}
	return opts, nil
}

func runListUsers(cmdCtx *commandContext, args []string) error {
	opts, err := parseListUsersFlags(args)
	if err != nil {
		return err
	}
	creds, err := resolveCredentials(opts.As)
	if err != nil {
		return err
	}
	return withAdminSession(cmdCtx, creds, func(ctx context.Context, admin userAdmin) error {
		return listUsers(ctx, admin, opts, cmdCtx.Out)
	})
}

func listUsers(ctx context.Context, admin userAdmin, opts listUsersOptions, out io.Writer) error {
	limit := opts.Limit
	page, err := admin.ListUsers(ctx, service.ListUsersRequest{Limit: &limit, Cursor: opts.Cursor})
	if err != nil {
		return fmt.Errorf("list users: %w", err)
	}
	if opts.JSON {
		return writeJSON(out, page)
	}
	if err := printUsers(out, page.Users); err != nil {
		return err
	}
	if page.NextCursor != "" {
		return writef(out, "\nMore users available: --cursor %s\n", page.NextCursor)
	}
	return nil
}

type searchUsersOptions struct {
	userFlags
	Query string
	Limit int
}

func parseSearchUsersFlags(args []string) (searchUsersOptions, error) {
	fs := flag.NewFlagSet("search-users", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	var opts searchUsersOptions
	opts.register(fs)
	fs.StringVar(&opts.Query, "q", "", "Email prefix to search for")
	fs.IntVar(&opts.Limit, "limit", defaultListLimit, "Maximum users to return")

	if err := fs.Parse(args); err != nil {
		return searchUsersOptions{}, err
	}
	opts.Query = strings.TrimSpace(opts.Query)
	if opts.Query == "" {
		return searchUsersOptions{}, errors.New("-q is required")
	}
	if opts.Limit <= 0 {
		return searchUsersOptions{}, errors.New("--limit must be greater than zero")
	}
	return opts, nil
}

func runSearchUsers(cmdCtx *commandContext, args []string) error {
	opts, err := parseSearchUsersFlags(args)
	if err != nil {
		return err
	}
	creds, err := resolveCredentials(opts.As)
	if err != nil {
		return err
	}
	return withAdminSession(cmdCtx, creds, func(ctx context.Context, admin userAdmin) error {
		return searchUsers(ctx, admin, opts, cmdCtx.Out)
	})
}

func searchUsers(ctx context.Context, admin userAdmin, opts searchUsersOptions, out io.Writer) error {
	limit := opts.Limit
	users, err := admin.SearchUsersByEmailPrefix(ctx, service.SearchUsersRequest{Query: opts.Query, Limit: &limit})
	if err != nil {
		return fmt.Errorf("search users: %w", err)
	}
	if opts.JSON {
		return writeJSON(out, users)
	}
	return printUsers(out, users)
}

type userIDOptions struct {
	userFlags
	ID    string
	Value string
}

// parseUserIDFlags parses -id plus an optional value flag named valueName.
func parseUserIDFlags(name, valueName, valueUsage string, args []string) (userIDOptions, error) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	var opts userIDOptions
	opts.register(fs)
	fs.StringVar(&opts.ID, "id", "", "User id")
	if valueName != "" {
		fs.StringVar(&opts.Value, valueName, "", valueUsage)
	}

	if err := fs.Parse(args); err != nil {
		return userIDOptions{}, err
	}
	opts.ID = strings.TrimSpace(opts.ID)
	if opts.ID == "" {
		return userIDOptions{}, errors.New("-id is required")
	}
	if valueName != "" && strings.TrimSpace(opts.Value) == "" {
		return userIDOptions{}, fmt.Errorf("-%s is required", valueName)
	}
	return opts, nil
}

func runShowUser(cmdCtx *commandContext, args []string) error {
	opts, err := parseUserIDFlags("show-user", "", "", args)
	if err != nil {
		return err
	}
	creds, err := resolveCredentials(opts.As)
	if err != nil {
		return err
	}
	return withAdminSession(cmdCtx, creds, func(ctx context.Context, admin userAdmin) error {
		return showUser(ctx, admin, opts, cmdCtx.Out)
	})
}

func showUser(ctx context.Context, admin userAdmin, opts userIDOptions, out io.Writer) error {
	user, err := admin.GetUserByID(ctx, opts.ID)
	if err != nil {
		return fmt.Errorf("get user: %w", err)
	}
	if user == nil {
		return fmt.Errorf("user %s not found", opts.ID)
	}
	if opts.JSON {
		return writeJSON(out, user)
	}
	return printUserDetail(out, *user)
}

func runSetRole(cmdCtx *commandContext, args []string) error {
	opts, err := parseUserIDFlags("set-role", "role", "New role: employee, manager or admin", args)
	if err != nil {
		return err
	}
	creds, err := resolveCredentials(opts.As)
	if err != nil {
		return err
	}
	return withAdminSession(cmdCtx, creds, func(ctx context.Context, admin userAdmin) error {
		return setRole(ctx, admin, opts, cmdCtx.Out)
	})
}

func setRole(ctx context.Context, admin userAdmin, opts userIDOptions, out io.Writer) error {
	user, err := admin.UpdateUserRole(ctx, opts.ID, opts.Value)
	if err != nil {
		return fmt.Errorf("update role: %w", err)
	}
	if opts.JSON {
		return writeJSON(out, user)
	}
	return writef(out, "%s (%s) is now %s\n", user.Email, user.ID, user.Role)
}

func runSetStatus(cmdCtx *commandContext, args []string) error {
	opts, err := parseUserIDFlags("set-status", "status", "New status: active, suspended or inactive", args)
	if err != nil {
		return err
	}
	creds, err := resolveCredentials(opts.As)
	if err != nil {
		return err
	}
	return withAdminSession(cmdCtx, creds, func(ctx context.Context, admin userAdmin) error {
		return setStatus(ctx, admin, opts, cmdCtx.Out)
	})
}

func setStatus(ctx context.Context, admin userAdmin, opts userIDOptions, out io.Writer) error {
	user, err := admin.UpdateUserStatus(ctx, opts.ID, opts.Value)
	if err != nil {
		return fmt.Errorf("update status: %w", err)
	}
	if opts.JSON {
		return writeJSON(out, user)
	}
	return writef(out, "%s (%s) is now %s\n", user.Email, user.ID, user.Status)
}

func printUsers(out io.Writer, users []domainauth.User) error {
	if len(users) == 0 {
		return writef(out, "No users found.\n")
	}
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	if err := writef(tw, "ID\tEMAIL\tROLE\tSTATUS\tLAST SIGN-IN\n"); err != nil {
		return err
	}
	for _, u := range users {
		if err := writef(tw, "%s\t%s\t%s\t%s\t%s\n", u.ID, u.Email, u.Role, u.Status, formatTime(u.LastSignInAt)); err != nil {
			return err
		}
	}
	return tw.Flush()
}

func printUserDetail(out io.Writer, u domainauth.User) error {
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	rows := [][2]string{
		{"ID", u.ID},
		{"Email", u.Email},
		{"Display name", u.DisplayName},
		{"Role", string(u.Role)},
		{"Status", string(u.Status)},
		{"Email verified", fmt.Sprintf("%t", u.EmailVerified)},
		{"Created", formatTime(u.CreatedAt)},
		{"Last sign-in", formatTime(u.LastSignInAt)},
	}
	for _, row := range rows {
		if err := writef(tw, "%s:\t%s\n", row[0], row[1]); err != nil {
			return err
		}
	}
	return tw.Flush()
}

func formatTime(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.UTC().Format(time.RFC3339)
}

func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
