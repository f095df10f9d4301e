package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/integrator/internal/artifact"
	"github.com/roach88/integrator/internal/key"
)

// DocOptions holds flags for the doc commands.
type DocOptions struct {
	*RootOptions
	Output string
}

// DocumentView describes a cached document.
type DocumentView struct {
	Key    string `json:"key" yaml:"key"`
	Bytes  int    `json:"bytes" yaml:"bytes"`
	Output string `json:"output,omitempty" yaml:"output,omitempty"`
}

func (v DocumentView) String() string {
	s := fmt.Sprintf("%s: %d bytes", v.Key, v.Bytes)
	if v.Output != "" {
		s += " -> " + v.Output
	}
	return s
}

// NewDocCommand creates the doc command group.
func NewDocCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DocOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "doc",
		Short: "Cache and read remote document contents",
	}

	put := &cobra.Command{
		Use:   "put FACILITY:ITEM FILE",
		Short: "Cache a document's contents, replacing any previous copy",
		Long: `Cache a document's contents. Use - as FILE to read from stdin.

Examples:
  integrator doc put 3:41 report.pdf
  cat report.pdf | integrator doc put 3:41 -`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDocPut(opts, cmd, args[0], args[1])
		},
	}

	get := &cobra.Command{
		Use:   "get FACILITY:ITEM",
		Short: "Show a cached document and optionally write it out",
		Example: `  integrator doc get 3:41 --out report.pdf`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDocGet(opts, cmd, args[0])
		},
	}
	get.Flags().StringVarP(&opts.Output, "out", "o", "", "write the contents to this file")

	cmd.AddCommand(put, get)
	return cmd
}

func readInput(cmd *cobra.Command, file string) ([]byte, error) {
	if file == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	return os.ReadFile(file)
}

func runDocPut(opts *DocOptions, cmd *cobra.Command, keyArg, file string) error {
	ctx := cmd.Context()

	k, err := key.ParseInt(keyArg)
	if err != nil {
		return wrapDomainError("invalid key", err)
	}
	contents, err := readInput(cmd, file)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read document", err)
	}

	e, err := openEnv(ctx, opts.RootOptions)
	if err != nil {
		return err
	}
	defer e.Close()

	if err := e.documents.Put(ctx, artifact.CachedDocument{Key: k, Contents: contents}); err != nil {
		return wrapDomainError("failed to cache document", err)
	}
	return opts.formatter(cmd).Success(DocumentView{Key: k.String(), Bytes: len(contents)})
}

func runDocGet(opts *DocOptions, cmd *cobra.Command, keyArg string) error {
	ctx := cmd.Context()

	k, err := key.ParseInt(keyArg)
	if err != nil {
		return wrapDomainError("invalid key", err)
	}

	e, err := openEnv(ctx, opts.RootOptions)
	if err != nil {
		return err
	}
	defer e.Close()

	d, err := e.documents.Get(ctx, k)
	if err != nil {
		return wrapDomainError("failed to get document", err)
	}
	view := DocumentView{Key: k.String(), Bytes: len(d.Contents)}
	if opts.Output != "" {
		if err := os.WriteFile(opts.Output, d.Contents, 0o644); err != nil {
			return WrapExitError(ExitCommandError, "failed to write document", err)
		}
		view.Output = opts.Output
	}
	return opts.formatter(cmd).Success(view)
}
