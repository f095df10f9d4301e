package cli

import (
	"fmt"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/spf13/cobra"

	"github.com/roach88/integrator/internal/issue"
)

// IssueOptions holds flags for the issue commands.
type IssueOptions struct {
	*RootOptions
	Strict bool
	Issue  string
}

// DecodeResult is the output of issue decode.
type DecodeResult struct {
	Issues  []issue.NoteIssue `json:"issues" yaml:"issues"`
	Skipped int               `json:"skipped" yaml:"skipped"`
}

func (r DecodeResult) String() string {
	var b strings.Builder
	for _, n := range r.Issues {
		fmt.Fprintf(&b, "%s\t%s\n", n.System, n.Code)
	}
	fmt.Fprintf(&b, "%d decoded, %d skipped", len(r.Issues), r.Skipped)
	return b.String()
}

// EncodeResult is the output of issue encode.
type EncodeResult struct {
	Value string `json:"value" yaml:"value"`
}

func (r EncodeResult) String() string { return r.Value }

// GroupView renders one issue group.
type GroupView issue.Group

func (g GroupView) String() string {
	return fmt.Sprintf("%d\t%s\t%s", g.GroupID, g.Name, issue.Group(g).Issue())
}

// GroupList renders issue groups, one per line.
type GroupList []issue.Group

func (l GroupList) String() string {
	if len(l) == 0 {
		return "No issue groups"
	}
	lines := make([]string, len(l))
	for i, g := range l {
		lines[i] = GroupView(g).String()
	}
	return strings.Join(lines, "\n")
}

// NewIssueCommand creates the issue command group.
func NewIssueCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &IssueOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "issue",
		Short: "Encode, decode and group coded note issues",
	}
	cmd.AddCommand(newIssueEncodeCommand(opts))
	cmd.AddCommand(newIssueDecodeCommand(opts))
	cmd.AddCommand(newIssueGroupCommand(opts))
	return cmd
}

func newIssueEncodeCommand(opts *IssueOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "encode SYSTEM CODE",
		Short: "Encode a coding system and code as SYSTEM.CODE",
		Example: `  integrator issue encode ICD9 250.00
  integrator issue encode SNOMED_CORE 38341003`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			system, err := issue.ParseCodingSystem(args[0])
			if err != nil {
				return wrapDomainError("invalid coding system", err)
			}
			if args[1] == "" {
				return NewExitError(ExitFailure, "code must not be empty")
			}
			return opts.formatter(cmd).Success(EncodeResult{Value: issue.Encode(system, args[1])})
		},
	}
}

func newIssueDecodeCommand(opts *IssueOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "decode VALUE...",
		Short: "Decode SYSTEM.CODE strings",
		Long: `Decode SYSTEM.CODE strings into coding system and code.

Malformed values are logged and skipped. With --strict every malformed
value is reported and the command fails.

Examples:
  integrator issue decode ICD9.250.00 ICD10.I10
  integrator issue decode --strict ICD9.250.00 BAD`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIssueDecode(opts, cmd, args)
		},
	}
	cmd.Flags().BoolVar(&opts.Strict, "strict", false, "fail on any malformed value")
	return cmd
}

func runIssueDecode(opts *IssueOptions, cmd *cobra.Command, args []string) error {
	if opts.Strict {
		if err := issue.ValidateAll(args); err != nil {
			return WrapExitError(ExitFailure, "malformed issues", err)
		}
	}

	decoded := issue.DecodeAll(args)
	unique := mapset.NewSet(args...)
	return opts.formatter(cmd).Success(DecodeResult{
		Issues:  issue.Sorted(decoded),
		Skipped: unique.Cardinality() - decoded.Cardinality(),
	})
}

func newIssueGroupCommand(opts *IssueOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "group",
		Short: "Manage named issue groups",
	}

	add := &cobra.Command{
		Use:   "add NAME SYSTEM.CODE",
		Short: "Create an issue group",
		Example: `  integrator issue group add "Diabetes Type 2" ICD9.250.00`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIssueGroupAdd(opts, cmd, args[0], args[1])
		},
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List issue groups",
		Example: `  integrator issue group list
  integrator issue group list --issue ICD9.250.00`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIssueGroupList(opts, cmd)
		},
	}
	list.Flags().StringVar(&opts.Issue, "issue", "", "only groups for this SYSTEM.CODE")

	cmd.AddCommand(add, list)
	return cmd
}

func runIssueGroupAdd(opts *IssueOptions, cmd *cobra.Command, name, value string) error {
	ctx := cmd.Context()

	n, err := issue.Decode(value)
	if err != nil {
		return wrapDomainError("invalid issue", err)
	}

	e, err := openEnv(ctx, opts.RootOptions)
	if err != nil {
		return err
	}
	defer e.Close()

	g, err := e.groups.Add(ctx, name, n.System, n.Code)
	if err != nil {
		return wrapDomainError("failed to add issue group", err)
	}
	return opts.formatter(cmd).Success(GroupView(g))
}

func runIssueGroupList(opts *IssueOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()

	var filter *issue.NoteIssue
	if opts.Issue != "" {
		n, err := issue.Decode(opts.Issue)
		if err != nil {
			return wrapDomainError("invalid issue", err)
		}
		filter = &n
	}

	e, err := openEnv(ctx, opts.RootOptions)
	if err != nil {
		return err
	}
	defer e.Close()

	var groups []issue.Group
	if filter != nil {
		groups, err = e.groups.ForIssue(ctx, *filter)
	} else {
		groups, err = e.groups.List(ctx)
	}
	if err != nil {
		return wrapDomainError("failed to list issue groups", err)
	}
	return opts.formatter(cmd).Success(GroupList(groups))
}
