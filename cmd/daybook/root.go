package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/daybookhq/daybook/internal/auth"
	"github.com/daybookhq/daybook/internal/config"
	"github.com/daybookhq/daybook/internal/engine"
	"github.com/daybookhq/daybook/internal/gateway"
	"github.com/daybookhq/daybook/internal/model"
	"github.com/daybookhq/daybook/internal/scheduler"
	"github.com/daybookhq/daybook/internal/store"
)

var (
	configPath string
	viewDate   string
)

var rootCmd = &cobra.Command{
	Use:   "daybook",
	Short: "Personal and team task diary",
	Long: `Daybook is a task diary for individuals and small teams.

Changes apply locally the moment you make them; a background scheduler
writes them to the configured store once you stop typing. Guest sessions
keep everything in memory and never touch the store.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default: daybook.yaml in ~/.daybook or cwd)")
	rootCmd.PersistentFlags().StringVar(&viewDate, "date", "", "view date for task commands (default: today, natural language accepted)")

	rootCmd.AddGroup(
		&cobra.Group{ID: "session", Title: "Session Commands:"},
		&cobra.Group{ID: "work", Title: "Work Commands:"},
		&cobra.Group{ID: "admin", Title: "Admin Commands:"},
	)
}

// app bundles everything a command needs for one invocation.
type app struct {
	cfg    *config.Config
	store  store.Store
	auth   *auth.Service
	gw     *gateway.Gateway
	engine *engine.Engine
	sched  *scheduler.Scheduler
}

func loadConfig() (*config.Config, error) {
	if configPath != "" {
		return config.LoadFile(configPath)
	}
	return config.Load()
}

func openStore(cfg *config.Config) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		if err := os.MkdirAll(filepath.Dir(cfg.Store.Path), 0o755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
		return store.OpenSQLite(cfg.Store.Path)
	case "file":
		return store.OpenFile(cfg.Store.Path)
	case "memory":
		return store.NewMemStore(), nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}

// newApp opens the store and auth service without requiring a session.
// Used by account commands.
func newApp() (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	st, err := openStore(cfg)
	if err != nil {
		return nil, err
	}
	return &app{
		cfg:   cfg,
		store: st,
		auth:  auth.NewService(st, cfg.NewLogger("[auth] ")),
	}, nil
}

// newSessionApp additionally resumes the saved session and wires the
// engine, gateway, and scheduler for it.
func newSessionApp(ctx context.Context) (*app, error) {
	a, err := newApp()
	if err != nil {
		return nil, err
	}

	acct, ws, err := resumeSession(ctx, a)
	if err != nil {
		a.close()
		return nil, err
	}

	a.gw = gateway.New(a.store, &gateway.Config{
		Latency: a.cfg.Latency(),
		Logger:  a.cfg.NewLogger("[gateway] "),
	})
	a.engine = engine.New(acct, ws, a.gw, &engine.Config{
		RehomeOnComplete: a.cfg.Engine.RehomeOnComplete,
		Logger:           a.cfg.NewLogger("[engine] "),
	})
	a.sched = scheduler.New(a.engine.SyncFunc(), &scheduler.Config{
		Quiescence:    a.cfg.Quiescence(),
		DisplayWindow: a.cfg.DisplayWindow(),
		Logger:        a.cfg.NewLogger("[scheduler] "),
	})
	a.engine.SetDirtyMarker(a.sched)
	a.sched.Start()
	return a, nil
}

// shutdown flushes pending writes and closes the store. Every mutating
// command must go through here so work is durable before the process exits.
func (a *app) shutdown() {
	if a.sched != nil {
		a.sched.Stop()
	}
	if a.engine != nil {
		a.engine.WaitRemote()
	}
	a.close()
}

func (a *app) close() {
	if a.store != nil {
		_ = a.store.Close()
	}
}

// session is what survives between CLI invocations.
type session struct {
	AccountID string         `json:"account_id,omitempty"`
	Guest     *model.Account `json:"guest,omitempty"`
}

func sessionPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".daybook-session.json"
	}
	return filepath.Join(home, ".daybook", "session.json")
}

func saveSession(s session) error {
	path := sessionPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("creating session directory: %w", err)
	}
	data, err := json.Marshal(s)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

func clearSession() error {
	err := os.Remove(sessionPath())
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

func loadSession() (session, error) {
	var s session
	data, err := os.ReadFile(sessionPath())
	if err != nil {
		if os.IsNotExist(err) {
			return s, fmt.Errorf("not signed in (run 'daybook account login' or 'daybook account guest')")
		}
		return s, err
	}
	if err := json.Unmarshal(data, &s); err != nil {
		return s, fmt.Errorf("corrupt session file %s: %w", sessionPath(), err)
	}
	return s, nil
}

func resumeSession(ctx context.Context, a *app) (model.Account, *model.Workspace, error) {
	s, err := loadSession()
	if err != nil {
		return model.Account{}, nil, err
	}
	if s.Guest != nil {
		// Guest workspaces live only in memory, so each invocation
		// starts from the default workspace.
		return *s.Guest, model.DefaultWorkspace(), nil
	}
	return a.auth.Resume(ctx, s.AccountID)
}

// resolveViewDate turns the --date flag into a YYYY-MM-DD string.
func resolveViewDate() (string, error) {
	if viewDate == "" {
		return time.Now().Format(model.DateLayout), nil
	}
	return parseNaturalDate(viewDate)
}
