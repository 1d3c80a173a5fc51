package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/teemow/schedcli/internal/api"
	"github.com/teemow/schedcli/internal/calendar"
	"github.com/teemow/schedcli/internal/config"
	"github.com/teemow/schedcli/internal/controller"
	"github.com/teemow/schedcli/internal/instrumentation"
	"github.com/teemow/schedcli/internal/logging"
	"github.com/teemow/schedcli/internal/session"
)

// version will be set by main
var version = "dev"

// SetVersion sets the version reported by the CLI.
func SetVersion(v string) {
	version = v
}

// Execute is the main entry point for the CLI application
func Execute() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd(newCLI()).ExecuteContext(ctx); err != nil {
		cancel()
		os.Exit(1)
	}
}

// cli carries what every command needs once the configuration is loaded.
type cli struct {
	v       *viper.Viper
	cfgFile string
	now     func() time.Time

	cfg      *config.Config
	logger   *slog.Logger
	closer   io.Closer
	provider *instrumentation.Provider
	span     trace.Span
	app      *controller.App
}

func newCLI() *cli {
	return &cli{
		v:   viper.New(),
		now: time.Now,
	}
}

func newRootCmd(c *cli) *cobra.Command {
	root := &cobra.Command{
		Use:   "schedcli",
		Short: "Weekly schedule client for the scheduling API",
		Long: `schedcli logs in to the scheduling API, shows your week as an hour grid
and lets you add and delete schedule entries.

The admin user can manage the schedules of every user. The serve command runs
the same features as a local web UI.`,
		Version:            version,
		SilenceUsage:       true,
		PersistentPreRunE:  c.setup,
		PersistentPostRunE: c.teardown,
	}
	root.SetVersionTemplate(`{{printf "schedcli version %s\n" .Version}}`)

	flags := root.PersistentFlags()
	flags.StringVar(&c.cfgFile, "config", "", "Config file (default: <user config dir>/schedcli/schedcli.yaml)")
	flags.String("api-url", config.DefaultAPIURL, "Base URL of the scheduling API")
	flags.String("session-file", config.DefaultSessionFile(), "File holding the session token")
	flags.String("timezone", "", "IANA time zone for the week grid (default: local)")
	flags.String("locale", config.DefaultLocale, "Display locale: ja or en")
	flags.Duration("request-timeout", 0, "Timeout for each API request (0 disables it)")
	flags.Int64("admin-user-id", config.DefaultAdminUserID, "User id that gets the admin capability")
	flags.String("log-level", "info", "Log level: debug, info, warn, error")
	flags.String("log-format", logging.FormatText, "Log format: text or json")
	flags.String("log-file", "", "Write logs to a rotated file instead of stderr")

	c.bind(root, map[string]string{
		"api_url":         "api-url",
		"session_file":    "session-file",
		"timezone":        "timezone",
		"locale":          "locale",
		"request_timeout": "request-timeout",
		"admin_user_id":   "admin-user-id",
		"log.level":       "log-level",
		"log.format":      "log-format",
		"log.file":        "log-file",
	})

	root.AddCommand(
		newLoginCmd(c),
		newRegisterCmd(c),
		newLogoutCmd(c),
		newWhoamiCmd(c),
		newWeekCmd(c),
		newListCmd(c),
		newAddCmd(c),
		newDeleteCmd(c),
		newAdminCmd(c),
		newServeCmd(c),
		newVersionCmd(),
	)
	return root
}

// bind maps config keys to persistent or local flags of cmd.
func (c *cli) bind(cmd *cobra.Command, keys map[string]string) {
	for key, name := range keys {
		flag := cmd.PersistentFlags().Lookup(name)
		if flag == nil {
			flag = cmd.Flags().Lookup(name)
		}
		if flag == nil {
			panic(fmt.Sprintf("flag %q is not defined", name))
		}
		if err := c.v.BindPFlag(key, flag); err != nil {
			panic(err)
		}
	}
}

// setup loads the configuration and builds the controller.
func (c *cli) setup(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(c.v, c.cfgFile)
	if err != nil {
		return err
	}
	c.cfg = cfg

	logger, closer, err := logging.New(logging.Options{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		File:   cfg.Log.File,
		Writer: cmd.ErrOrStderr(),
	})
	if err != nil {
		return fmt.Errorf("failed to set up logging: %w", err)
	}
	c.logger, c.closer = logger, closer

	loc, err := cfg.Location()
	if err != nil {
		return err
	}
	locale, err := calendar.ParseLocale(cfg.Locale)
	if err != nil {
		return err
	}

	instrConfig := instrumentation.DefaultConfig()
	instrConfig.ServiceVersion = version
	provider, err := instrumentation.NewProvider(cmd.Context(), instrConfig)
	if err != nil {
		return fmt.Errorf("failed to create instrumentation provider: %w", err)
	}
	c.provider = provider

	ctx, span := instrumentation.StartSpan(cmd.Context(), "cli."+cmd.Name(),
		attribute.String(instrumentation.SpanAttrOperation, cmd.CommandPath()))
	cmd.SetContext(ctx)
	c.span = span

	store := session.NewFileStore(cfg.SessionFile)
	client := api.New(cfg.APIURL, store,
		api.WithTimeout(cfg.RequestTimeout),
		api.WithMetrics(provider.Metrics()),
		api.WithLogger(logger),
	)
	c.app = controller.New(client, store, controller.Options{
		AdminUserID: cfg.AdminUserID,
		Location:    loc,
		Locale:      locale,
		Now:         c.now,
		Logger:      logger,
		Metrics:     provider.Metrics(),
		Audit:       instrumentation.NewAuditLoggerWithConfig(logger, instrConfig.AuditLogging),
	})

	logger.Debug("configuration loaded",
		slog.String("api_url", cfg.APIURL),
		slog.String("session_file", cfg.SessionFile),
		slog.String("timezone", loc.String()))
	return nil
}

func (c *cli) teardown(_ *cobra.Command, _ []string) error {
	var errs []error
	if c.span != nil {
		c.span.End()
	}
	if c.provider != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := c.provider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("failed to shut down instrumentation: %w", err))
		}
	}
	if c.closer != nil {
		if err := c.closer.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close log file: %w", err))
		}
	}
	return errors.Join(errs...)
}

var errNotLoggedIn = errors.New("not logged in, run `schedcli login` first")

// requireSession restores the persisted session and fails when there is none.
func (c *cli) requireSession(ctx context.Context) error {
	if err := c.app.Start(ctx); err != nil {
		return err
	}
	if c.app.State().Mode == controller.ModeLoggedOut {
		return errNotLoggedIn
	}
	return nil
}
