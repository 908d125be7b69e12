package cmd

import (
	"context"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/maykaila/memora/internal/api"
	"github.com/maykaila/memora/internal/config"
	"github.com/maykaila/memora/internal/errors"
	"github.com/maykaila/memora/internal/guard"
	"github.com/maykaila/memora/internal/identity"
	"github.com/maykaila/memora/internal/log"
	"github.com/maykaila/memora/internal/metrics"
	"github.com/maykaila/memora/internal/session"
	"github.com/maykaila/memora/internal/tui"
	"github.com/maykaila/memora/internal/version"
)

// app wires the services one command invocation runs against.
type app struct {
	cc       *CommandContext
	cfg      *config.Config
	logger   *log.Logger
	registry *prometheus.Registry
	metrics  *metrics.Metrics
	auth     identity.Provider
	api      *api.Client
	session  *session.Resolver
	out      *printer

	startOnce sync.Once
	startErr  error
	closers   []func() error
}

// appFactory builds the app for a command. Tests replace it.
var appFactory = newApp

// Prompt hooks, replaced in tests.
var (
	shouldPrompt = tui.ShouldPrompt
	confirm      = tui.PromptForConfirmation
)

func newApp(cmd *cobra.Command) (*app, error) {
	cc, err := NewCommandContext(cmd)
	if err != nil {
		return nil, err
	}

	cfg, err := config.Load(cc.ConfigPath)
	if err != nil {
		return nil, err
	}
	applyOverrides(cfg, cc)
	if err := cfg.Validate(); err != nil {
		return nil, errors.NewConfigLoadError(cc.ConfigPath, err)
	}

	output, closeLog, err := log.OutputFile(cfg.LogPath())
	if err != nil {
		// Logging must never stop a command.
		output, closeLog = log.OutputDiscard(), func() error { return nil }
	}
	logCfg := log.DefaultConfig()
	logCfg.Level = log.ParseLevel(cfg.Logging.Level)
	logCfg.Format = log.ParseFormat(cfg.Logging.Format)
	logCfg.Output = output
	logCfg.ServiceVersion = version.GetInfo().Version
	logger := log.New(logCfg).With("command", cmd.CommandPath())
	log.SetDefaultLogger(logger)

	provider := identity.NewFirebaseProvider(identity.FirebaseConfig{
		APIKey:   cfg.Identity.APIKey,
		AuthURL:  cfg.Identity.AuthURL,
		TokenURL: cfg.Identity.TokenURL,
		Store:    identity.NewFileCredentialStore(cfg.CredentialsPath()),
		Logger:   logger,
	})
	if _, err := provider.Restore(); err != nil {
		logger.WithError(err).Warn("stored credentials discarded")
	}

	a := assemble(cmd, cc, cfg, provider, logger)
	a.closers = append(a.closers, closeLog)
	return a, nil
}

// assemble builds an app around an already configured provider.
func assemble(cmd *cobra.Command, cc *CommandContext, cfg *config.Config, auth identity.Provider, logger *log.Logger) *app {
	registry, m := metrics.NewRegistry()
	a := &app{
		cc:       cc,
		cfg:      cfg,
		logger:   logger,
		registry: registry,
		metrics:  m,
		auth:     auth,
		out:      newPrinter(cmd.OutOrStdout(), cc.Format),
	}
	a.api = api.NewClient(cfg.API.BaseURL,
		api.WithTimeout(cfg.API.Timeout),
		api.WithTokenSource(a.bearerToken),
		api.WithMetrics(m),
		api.WithLogger(logger),
	)
	a.session = session.NewResolver(session.Config{
		Source:           auth,
		Lookup:           session.APILookup{Client: a.api},
		RetryMax:         cfg.Session.RoleRetryMax,
		RetryInitial:     cfg.Session.RoleRetryInitial,
		RetryMaxInterval: cfg.Session.RoleRetryMaxInterval,
		Logger:           logger,
		Metrics:          m,
	})
	return a
}

func applyOverrides(cfg *config.Config, cc *CommandContext) {
	if cc.APIURL != "" {
		cfg.API.BaseURL = cc.APIURL
	}
	if cc.LogLevel != "" {
		cfg.Logging.Level = cc.LogLevel
	}
	if cc.LogFormat != "" {
		cfg.Logging.Format = cc.LogFormat
	}
	if cc.LogFile != "" {
		cfg.Logging.File = cc.LogFile
	}
}

func (a *app) bearerToken(ctx context.Context, forceRefresh bool) (string, error) {
	p := a.auth.Current()
	if p == nil {
		return "", errors.NewNotSignedInError()
	}
	return p.BearerToken(ctx, forceRefresh)
}

// principal returns the signed-in principal or a not-signed-in error.
func (a *app) principal() (*identity.Principal, error) {
	p := a.auth.Current()
	if p == nil {
		return nil, errors.NewNotSignedInError()
	}
	return p, nil
}

// startSession starts the resolver once. It publishes its first snapshot
// before returning.
func (a *app) startSession(ctx context.Context) error {
	a.startOnce.Do(func() {
		a.startErr = a.session.Start(ctx)
	})
	return a.startErr
}

// requireRole waits for the session to resolve and checks its role.
func (a *app) requireRole(ctx context.Context, role session.Role) (session.Snapshot, error) {
	if err := a.startSession(ctx); err != nil {
		return session.Snapshot{}, err
	}
	return guard.Require(ctx, a.session, role, guard.WithLogger(a.logger), guard.WithMetrics(a.metrics))
}

// awaitSession waits for the session to settle whatever the role.
func (a *app) awaitSession(ctx context.Context) (session.Snapshot, error) {
	if err := a.startSession(ctx); err != nil {
		return session.Snapshot{}, err
	}
	settled := make(chan session.Snapshot, 1)
	unsubscribe := a.session.Subscribe(func(s session.Snapshot) {
		if s.Status.Terminal() {
			select {
			case settled <- s:
			default:
			}
		}
	})
	defer unsubscribe()

	select {
	case s := <-settled:
		return s, nil
	case <-ctx.Done():
		return a.session.Snapshot(), ctx.Err()
	}
}

// confirmed asks before a destructive action unless --yes was given.
func (a *app) confirmed(action string) (bool, error) {
	if a.cc.Yes {
		return true, nil
	}
	if !shouldPrompt() {
		return false, ConfirmationRequiredError(action)
	}
	return confirm("Really "+action+"?", false)
}

func (a *app) tuiDeps() tui.Deps {
	return tui.Deps{
		Auth:         a.auth,
		Session:      a.session,
		Backend:      a.api,
		Logger:       a.logger,
		Metrics:      a.metrics,
		PollInterval: a.cfg.Poll.Interval,
	}
}

// Close stops the session and flushes metrics and logs.
func (a *app) Close() {
	a.session.Stop()
	if a.cc.MetricsFile != "" {
		if err := metrics.WriteFile(a.cc.MetricsFile, a.registry); err != nil {
			a.logger.WithError(err).Warn("metrics not written")
		}
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		_ = a.closers[i]()
	}
}

type appRunE func(cmd *cobra.Command, args []string, a *app) error

// withApp builds the app around fn and closes it afterwards.
func withApp(fn appRunE) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		a, err := appFactory(cmd)
		if err != nil {
			return err
		}
		defer a.Close()
		return fn(cmd, args, a)
	}
}

// signedIn is withApp for commands that act as the signed-in account.
func signedIn(fn appRunE) func(*cobra.Command, []string) error {
	return withApp(func(cmd *cobra.Command, args []string, a *app) error {
		if _, err := a.principal(); err != nil {
			return err
		}
		return fn(cmd, args, a)
	})
}
