package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"syscall"
	"text/tabwriter"

	"golang.org/x/term"

	"github.com/Strob0t/tenantdash/internal/adapter/bounded"
	"github.com/Strob0t/tenantdash/internal/adapter/postgres"
	"github.com/Strob0t/tenantdash/internal/config"
	"github.com/Strob0t/tenantdash/internal/domain/user"
	"github.com/Strob0t/tenantdash/internal/port/database"
	"github.com/Strob0t/tenantdash/internal/service"
)

// runAdmin dispatches admin subcommands (seed, create-user, list-users, migrate).
func runAdmin(args []string) error {
	if len(args) == 0 || args[0] == "help" || args[0] == "--help" {
		printAdminHelp()
		return nil
	}

	switch args[0] {
	case "seed":
		return runAdminSeed(args[1:])
	case "create-user":
		return runAdminCreateUser(args[1:])
	case "list-users":
		return runAdminListUsers(args[1:])
	case "migrate":
		return runAdminMigrate(args[1:])
	default:
		printAdminHelp()
		return fmt.Errorf("unknown admin command: %s", args[0])
	}
}

func printAdminHelp() {
	fmt.Fprintf(os.Stderr, `Usage: tenantdash admin <command> [options]

Commands:
  seed             Reset all data to the demo tenants, accounts and projects
  create-user      Create a new account in a tenant
  list-users       List the accounts of a tenant
  migrate          Apply, roll back or inspect database migrations
  help             Show this help message

Examples:
  tenantdash admin seed --yes
  tenantdash admin create-user --tenant acme --email ops@acme.com --name "Ops" --role admin
  tenantdash admin list-users --tenant globex
  tenantdash admin migrate --down 1
`)
}

type adminDeps struct {
	cfg      *config.Config
	store    database.Store
	auth     *service.AuthService
	tenants  *service.TenantService
	projects *service.ProjectService
}

func loadAdminDeps(ctx context.Context) (*adminDeps, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}

	pool, err := postgres.NewPool(ctx, cfg.Postgres)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to database: %w", err)
	}

	store := bounded.New(postgres.NewStore(pool), cfg.Storage.Timeout, nil)

	tokens, err := service.NewTokens(service.TokenConfig{
		Secret:   []byte(cfg.Auth.JWTSecret),
		Lifetime: cfg.Auth.TokenLifetime,
		Issuer:   cfg.Auth.Issuer,
	})
	if err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("tokens: %w", err)
	}
	authSvc, err := service.NewAuthService(store, &cfg.Auth, tokens, nil)
	if err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("auth service: %w", err)
	}

	// Admin commands run without the settings cache or event bus.
	return &adminDeps{
		cfg:      cfg,
		store:    store,
		auth:     authSvc,
		tenants:  service.NewTenantService(store, nil, nil, cfg.Cache.SettingsTTL, cfg.Storage.ThemeRetries),
		projects: service.NewProjectService(store),
	}, pool.Close, nil
}

func runAdminSeed(args []string) error {
	fs := flag.NewFlagSet("seed", flag.ContinueOnError)
	yes := fs.Bool("yes", false, "confirm that all existing data is deleted")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if !*yes {
		return errors.New("seed deletes all tenants, accounts and projects; pass --yes to confirm")
	}

	ctx := context.Background()
	deps, cleanup, err := loadAdminDeps(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	if err := postgres.RunMigrations(ctx, deps.cfg.Postgres.DSN); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}
	if err := service.SeedDemoData(ctx, deps.store, deps.tenants, deps.projects, deps.auth); err != nil {
		return fmt.Errorf("seed: %w", err)
	}

	fmt.Fprintf(os.Stderr, "Seeded %d tenants, %d accounts and %d projects (password %q)\n",
		len(service.DemoTenants), len(service.DemoUsers), len(service.DemoProjects), service.DemoPassword)
	return nil
}

func runAdminCreateUser(args []string) error {
	fs := flag.NewFlagSet("create-user", flag.ContinueOnError)
	tenantID := fs.String("tenant", "", "tenant id (required)")
	email := fs.String("email", "", "user email address (required)")
	name := fs.String("name", "", "user display name (required)")
	password := fs.String("password", "", "password (prompted if not provided)") //nolint:gosec // CLI flag
	role := fs.String("role", string(user.RoleMember), "role: admin or member")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *tenantID == "" {
		return errors.New("--tenant is required")
	}
	if *email == "" {
		return errors.New("--email is required")
	}
	if *name == "" {
		return errors.New("--name is required")
	}

	pass := *password
	if pass == "" {
		var err error
		pass, err = promptPassword("Password: ")
		if err != nil {
			return fmt.Errorf("read password: %w", err)
		}
		confirm, err := promptPassword("Confirm password: ")
		if err != nil {
			return fmt.Errorf("read password: %w", err)
		}
		if pass != confirm {
			return errors.New("passwords do not match")
		}
	}

	ctx := context.Background()
	deps, cleanup, err := loadAdminDeps(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	if _, err := deps.tenants.Get(ctx, *tenantID); err != nil {
		return fmt.Errorf("tenant %s: %w", *tenantID, err)
	}

	u, err := deps.auth.Register(ctx, &user.CreateRequest{
		Email:    *email,
		Name:     *name,
		Password: pass,
		Role:     user.Role(*role),
		TenantID: *tenantID,
	})
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}

	fmt.Fprintf(os.Stderr, "User created: %s (id=%s, tenant=%s, role=%s)\n", u.Email, u.ID, u.TenantID, u.Role)
	return nil
}

func runAdminListUsers(args []string) error {
	fs := flag.NewFlagSet("list-users", flag.ContinueOnError)
	tenantID := fs.String("tenant", "", "tenant id (required)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *tenantID == "" {
		return errors.New("--tenant is required")
	}

	ctx := context.Background()
	deps, cleanup, err := loadAdminDeps(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	users, err := deps.auth.ListUsers(ctx, *tenantID)
	if err != nil {
		return fmt.Errorf("list users: %w", err)
	}

	if len(users) == 0 {
		fmt.Println("No users found.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tEMAIL\tNAME\tROLE\tCREATED")
	for i := range users {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			users[i].ID, users[i].Email, users[i].Name, users[i].Role, users[i].CreatedAt.Format("2006-01-02"))
	}
	return w.Flush()
}

func runAdminMigrate(args []string) error {
	fs := flag.NewFlagSet("migrate", flag.ContinueOnError)
	down := fs.Int("down", 0, "roll back this many migrations instead of applying")
	status := fs.Bool("status", false, "print the current schema version and exit")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	ctx := context.Background()

	switch {
	case *status:
	case *down > 0:
		if err := postgres.RollbackMigrations(ctx, cfg.Postgres.DSN, *down); err != nil {
			return fmt.Errorf("rollback: %w", err)
		}
	default:
		if err := postgres.RunMigrations(ctx, cfg.Postgres.DSN); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}

	version, err := postgres.MigrationVersion(ctx, cfg.Postgres.DSN)
	if err != nil {
		return fmt.Errorf("migration version: %w", err)
	}
	fmt.Fprintf(os.Stderr, "Schema version: %d\n", version)
	return nil
}

// promptPassword reads a password from the terminal without echoing.
func promptPassword(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	b, err := term.ReadPassword(int(syscall.Stdin)) //nolint:unconvert // int conversion needed on some platforms
	fmt.Fprintln(os.Stderr)                         // newline after password input
	if err != nil {
		return "", err
	}
	return string(b), nil
}
