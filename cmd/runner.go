package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/cloudx/internal/catalog"
	"github.com/desertthunder/cloudx/internal/failures"
	"github.com/desertthunder/cloudx/internal/repositories"
	"github.com/desertthunder/cloudx/internal/services"
	"github.com/desertthunder/cloudx/internal/session"
	"github.com/desertthunder/cloudx/internal/shared"
	"github.com/desertthunder/cloudx/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	configPath string
	gateway    *services.GatewayService
	sessions   *session.Provider
	prompter   session.Prompter
	httpClient *http.Client
	logger     *log.Logger
	output     io.Writer
	sleep      tasks.SleepFunc
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	HTTPClient *http.Client
	Logger     *log.Logger
	Output     io.Writer
	Prompter   session.Prompter // nil when stdin is not a terminal
	Sleep      tasks.SleepFunc  // nil sleeps for real
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: opts.Config.Gateway.Timeout()}
	}

	gateway := services.NewGatewayService(services.GatewayOpts{
		BaseURL:           opts.Config.Gateway.BaseURL,
		HTTPClient:        opts.HTTPClient,
		RequestsPerSecond: opts.Config.Gateway.RequestsPerSecond,
	})

	sessions := session.NewProvider(session.Opts{
		Gateway:     gateway,
		CookieFile:  opts.Config.Session.CookieFile,
		QRImagePath: opts.Config.Session.QRImagePath,
		QRTimeout:   opts.Config.Session.QRTimeout(),
		Logger:      shared.WithLogger(opts.Logger, "component", "session"),
	})

	return &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		gateway:    gateway,
		sessions:   sessions,
		prompter:   opts.Prompter,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		output:     opts.Output,
		sleep:      opts.Sleep,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		importCommand, authCommand, cloudCommand, historyCommand, setupCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// SetLogger replaces the logger, e.g. to keep log lines out of a full-screen UI.
func (r *Runner) SetLogger(logger *log.Logger) {
	r.logger = logger
}

// newPipeline wires the catalog loader, resolver, driver and optional history recorder.
func (r *Runner) newPipeline(history tasks.RunRecorder) *tasks.Pipeline {
	cfg := r.config.Import

	resolver := tasks.NewDetailResolver(r.gateway, cfg.BatchSize, shared.WithLogger(r.logger, "component", "resolver"))
	driver := tasks.NewImportDriver(r.gateway, failures.NewSink(cfg.FailureLog), tasks.RetryPolicy{
		MaxAttempts:         cfg.MaxAttempts,
		RetryDelay:          cfg.RetryDelay(),
		RateLimitDelay:      cfg.RateLimitDelay(),
		MaxRateLimitRetries: cfg.MaxRateLimitRetries,
	}, shared.WithLogger(r.logger, "component", "importer"))
	if r.sleep != nil {
		driver = driver.WithSleeper(r.sleep)
	}

	loader := catalog.NewLoader(shared.WithLogger(r.logger, "component", "catalog"))
	return tasks.NewPipeline(loader, resolver, driver, history, r.logger)
}

// openHistory opens the history database. A nil db with a nil error means history is disabled.
func (r *Runner) openHistory() (*sql.DB, *repositories.HistoryAdapter, error) {
	if r.config.Database.Path == "" {
		return nil, nil, nil
	}

	db, err := shared.OpenHistory(r.config.Database)
	if err != nil {
		return nil, nil, err
	}
	adapter := repositories.NewHistoryAdapter(repositories.NewRunRepository(db), repositories.NewOutcomeRepository(db))
	return db, adapter, nil
}

// token resolves the session for commands that need one, prompting only when interactive.
func (r *Runner) token(ctx context.Context, cmd *cli.Command) (string, error) {
	explicit := cmd.String("cookie")
	if explicit == "" {
		explicit = r.config.Session.Cookie
	}

	token, src, err := r.sessions.Resolve(ctx, explicit, r.prompter)
	if err != nil {
		return "", err
	}
	r.logger.Debug("session resolved", "source", src)
	return token, nil
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	output, err := shared.MarshalJSON(data, pretty)
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}
