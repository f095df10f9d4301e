package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/integrator/internal/schemaver"
)

// SchemaStatus is the result of schema check.
type SchemaStatus struct {
	Database      string `json:"database" yaml:"database"`
	StoredVersion int    `json:"stored_version" yaml:"stored_version"`
	CodeVersion   int    `json:"code_version" yaml:"code_version"`
}

func (s SchemaStatus) String() string {
	return fmt.Sprintf("%s: schema version %d (code %d) ok", s.Database, s.StoredVersion, s.CodeVersion)
}

// NewSchemaCommand creates the schema command group.
func NewSchemaCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Inspect the schema version marker",
	}
	cmd.AddCommand(newSchemaCheckCommand(rootOpts))
	return cmd
}

func newSchemaCheckCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Create the schema marker if absent and verify its version",
		Long: `Ensure the system_properties singleton exists and that its schema
version matches this build.

Exit codes:
  0 - Schema version matches
  1 - Stored version is incompatible
  2 - Command error (database not found, etc.)

Examples:
  integrator schema check --db ./integrator.db`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSchemaCheck(rootOpts, cmd)
		},
	}
}

func runSchemaCheck(opts *RootOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()

	e, err := openEnv(ctx, opts)
	if err != nil {
		return err
	}
	defer e.Close()

	p, err := e.marker.Current(ctx)
	if err != nil {
		return wrapDomainError("failed to read schema marker", err)
	}
	return opts.formatter(cmd).Success(SchemaStatus{
		Database:      opts.Config.Database.Path,
		StoredVersion: p.SchemaVersion,
		CodeVersion:   schemaver.CodeSchemaVersion,
	})
}
