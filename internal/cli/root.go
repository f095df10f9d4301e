package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"github.com/google/uuid"
	slogmulti "github.com/samber/slog-multi"
	"github.com/spf13/cobra"

	"github.com/roach88/integrator/internal/artifact"
	"github.com/roach88/integrator/internal/audit"
	"github.com/roach88/integrator/internal/config"
	"github.com/roach88/integrator/internal/issue"
	"github.com/roach88/integrator/internal/schemaver"
	"github.com/roach88/integrator/internal/store"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose    bool
	Format     string // "text" | "json" | "yaml"
	ConfigPath string
	Database   string // overrides database.path
	Source     string // audit source; defaults to "cli/<session>"

	// Populated by PersistentPreRunE.
	Config  *config.Config
	Session string

	logFile io.Closer
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json", "yaml"}

// NewRootCommand creates the root command for the integrator CLI.
func NewRootCommand() *cobra.Command {
	cmd, _ := newRootCommand()
	return cmd
}

// Execute runs the CLI with the given arguments and returns the process
// exit code. Failures are reported through the output formatter: on
// stdout for json and yaml, on stderr for text.
func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cmd, opts := newRootCommand()
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	err := cmd.ExecuteContext(ctx)
	if err == nil {
		return ExitSuccess
	}
	_ = opts.teardown()

	f := &OutputFormatter{Format: opts.Format, Writer: stdout, Verbose: opts.Verbose, Session: opts.Session}
	if !isValidFormat(opts.Format) || opts.Format == "text" {
		f.Format = "text"
		f.Writer = stderr
	}
	_ = f.Error(ErrorCode(err), err.Error(), nil)
	return GetExitCode(err)
}

func newRootCommand() (*cobra.Command, *RootOptions) {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "integrator",
		Short: "Facility cache data layer",
		Long: `Operate the integrator's local cache of cross-facility clinical artifacts.

Documents, photographs and lab results fetched from remote facilities are
cached under facility:item keys. Every read and write is recorded in an
append-only audit log.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.setup(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return opts.teardown()
		},
	}

	// Global flags
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (text|json|yaml)")
	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "path to config file (default ./integrator.yaml)")
	cmd.PersistentFlags().StringVar(&opts.Database, "db", "", "path to SQLite database (overrides database.path)")
	cmd.PersistentFlags().StringVar(&opts.Source, "source", "", "audit source recorded on every event")

	// Add subcommands
	cmd.AddCommand(NewSchemaCommand(opts))
	cmd.AddCommand(NewAuditCommand(opts))
	cmd.AddCommand(NewIssueCommand(opts))
	cmd.AddCommand(NewImageCommand(opts))
	cmd.AddCommand(NewDocCommand(opts))
	cmd.AddCommand(NewLabCommand(opts))
	cmd.AddCommand(NewConfigCommand(opts))

	return cmd, opts
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	return slices.Contains(ValidFormats, format)
}

// setup validates global flags, loads configuration and installs the
// default logger for the rest of the command.
func (o *RootOptions) setup(cmd *cobra.Command) error {
	if !isValidFormat(o.Format) {
		return NewExitError(ExitCommandError, fmt.Sprintf("invalid format %q: must be one of %v", o.Format, ValidFormats))
	}

	cfg, err := config.Load(o.ConfigPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load config", err)
	}
	if o.Database != "" {
		cfg.Database.Path = o.Database
	}
	if err := cfg.Validate(); err != nil {
		return WrapExitError(ExitCommandError, "invalid config", err)
	}
	o.Config = cfg

	o.Session = uuid.Must(uuid.NewV7()).String()
	if o.Source == "" {
		o.Source = "cli/" + o.Session
	}

	if err := o.setupLogging(cmd.ErrOrStderr()); err != nil {
		return WrapExitError(ExitCommandError, "failed to set up logging", err)
	}
	slog.Debug("cli session started", "session", o.Session, "command", cmd.CommandPath())
	return nil
}

func (o *RootOptions) setupLogging(stderr io.Writer) error {
	level := o.Config.SlogLevel()
	if o.Verbose {
		level = slog.LevelDebug
	}
	handlerOpts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler = slog.NewTextHandler(stderr, handlerOpts)

	if o.Config.Log.File != "" {
		f, err := os.OpenFile(o.Config.Log.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		o.logFile = f
		handler = slogmulti.Fanout(handler, slog.NewJSONHandler(f, handlerOpts))
	}

	slog.SetDefault(slog.New(handler).With(slog.String("session", o.Session)))
	return nil
}

func (o *RootOptions) teardown() error {
	if o.logFile == nil {
		return nil
	}
	err := o.logFile.Close()
	o.logFile = nil
	return err
}

func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   o.Verbose,
		Session:   o.Session,
	}
}

// env bundles the store and the services built over it for one command.
type env struct {
	store      *store.Store
	marker     *schemaver.Marker
	audit      *audit.Log
	documents  *artifact.Documents
	images     *artifact.Images
	labResults *artifact.LabResults
	groups     *issue.Groups
}

// openEnv opens the configured database and refuses to continue unless
// the schema marker matches this build.
func openEnv(ctx context.Context, o *RootOptions) (*env, error) {
	st, err := store.Open(o.Config.Database.Path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}

	marker := schemaver.New(st)
	if _, err := marker.Check(ctx); err != nil {
		st.Close()
		return nil, WrapExitError(ExitFailure, "schema check failed", err)
	}

	log := audit.NewLog(st)
	artifactOpts := o.Config.ArtifactOptions()
	artifactOpts.Auditor = log
	artifactOpts.Source = o.Source

	return &env{
		store:      st,
		marker:     marker,
		audit:      log,
		documents:  artifact.NewDocuments(st, artifactOpts),
		images:     artifact.NewImages(st, artifactOpts),
		labResults: artifact.NewLabResults(st, artifactOpts),
		groups:     issue.NewGroups(st),
	}, nil
}

func (e *env) Close() error {
	return e.store.Close()
}
