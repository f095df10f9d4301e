package cli

import (
	"github.com/spf13/cobra"
)

// NewConfigCommand creates the config command group.
func NewConfigCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect configuration",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Long: `Print the configuration after merging defaults, the config file,
INTEGRATOR_* environment variables and global flags.

Examples:
  integrator config show
  INTEGRATOR_CACHE_TTL=30s integrator config show --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if rootOpts.Format == "text" {
				out, err := rootOpts.Config.YAML()
				if err != nil {
					return WrapExitError(ExitCommandError, "failed to render config", err)
				}
				_, err = cmd.OutOrStdout().Write(out)
				return err
			}
			return rootOpts.formatter(cmd).Success(rootOpts.Config)
		},
	})
	return cmd
}
