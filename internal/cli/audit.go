package cli

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/integrator/internal/audit"
	"github.com/roach88/integrator/internal/model"
)

// AuditOptions holds flags for the audit commands.
type AuditOptions struct {
	*RootOptions
	Action     string
	Parameters string
	Prefix     string
	Since      string
	Until      string
	Limit      int
	FilterSrc  string
}

// EntryView renders one audit entry.
type EntryView audit.Entry

func (v EntryView) String() string {
	return fmt.Sprintf("%d\t%s\t%s\t%s\t%s",
		v.EventID, v.Date.Format(time.RFC3339Nano), v.Source, v.Action, v.Parameters)
}

// EntryList renders a list of audit entries, one per line.
type EntryList []audit.Entry

func (l EntryList) String() string {
	if len(l) == 0 {
		return "No audit entries"
	}
	lines := make([]string, len(l))
	for i, e := range l {
		lines[i] = EntryView(e).String()
	}
	return strings.Join(lines, "\n")
}

// NewAuditCommand creates the audit command group.
func NewAuditCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &AuditOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Append to and query the append-only audit log",
	}
	cmd.AddCommand(newAuditAppendCommand(opts))
	cmd.AddCommand(newAuditListCommand(opts))
	cmd.AddCommand(newAuditGetCommand(opts))
	return cmd
}

func newAuditAppendCommand(opts *AuditOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "append",
		Short: "Record an event",
		Long: `Append one event to the audit log. The action must be PREFIX.VALUE with
PREFIX one of DATA, LOGIC or PERFORMANCE.

Examples:
  integrator audit append --action DATA.READ --params "kind=cached_document key=3:41"
  integrator audit append --action LOGIC.reconcile --source sync-job`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAuditAppend(opts, cmd)
		},
	}
	cmd.Flags().StringVar(&opts.Action, "action", "", "action name PREFIX.VALUE (required)")
	_ = cmd.MarkFlagRequired("action")
	cmd.Flags().StringVar(&opts.Parameters, "params", "", "free-form parameters")
	return cmd
}

func runAuditAppend(opts *AuditOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()

	if _, _, err := audit.ParseAction(opts.Action); err != nil {
		return wrapDomainError("invalid action", err)
	}

	e, err := openEnv(ctx, opts.RootOptions)
	if err != nil {
		return err
	}
	defer e.Close()

	entry, err := e.audit.Append(ctx, opts.Source, opts.Action, opts.Parameters)
	if err != nil {
		return wrapDomainError("failed to append audit entry", err)
	}
	return opts.formatter(cmd).Success(EntryView(entry))
}

func newAuditListCommand(opts *AuditOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List events, oldest first",
		Long: `List audit events ordered by id.

Examples:
  integrator audit list
  integrator audit list --prefix DATA --since 2024-01-01T00:00:00Z
  integrator audit list --filter-source sync-job --limit 20 --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAuditList(opts, cmd)
		},
	}
	cmd.Flags().StringVar(&opts.FilterSrc, "filter-source", "", "only events with this source")
	cmd.Flags().StringVar(&opts.Prefix, "prefix", "", "only actions with this prefix (DATA|LOGIC|PERFORMANCE)")
	cmd.Flags().StringVar(&opts.Since, "since", "", "only events at or after this RFC 3339 time")
	cmd.Flags().StringVar(&opts.Until, "until", "", "only events at or before this RFC 3339 time")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "maximum number of events (0 = all)")
	return cmd
}

func runAuditList(opts *AuditOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()

	f, err := opts.filter()
	if err != nil {
		return wrapDomainError("invalid filter", err)
	}

	e, err := openEnv(ctx, opts.RootOptions)
	if err != nil {
		return err
	}
	defer e.Close()

	entries, err := e.audit.List(ctx, f)
	if err != nil {
		return wrapDomainError("failed to list audit entries", err)
	}
	return opts.formatter(cmd).Success(EntryList(entries))
}

func (o *AuditOptions) filter() (audit.Filter, error) {
	f := audit.Filter{Source: o.FilterSrc, Limit: o.Limit}
	if o.Prefix != "" {
		p := audit.ActionPrefix(strings.ToUpper(o.Prefix))
		if !p.Valid() {
			return f, &model.FormatError{Input: o.Prefix, Reason: "unknown action prefix"}
		}
		f.Prefix = p
	}
	var err error
	if f.Since, err = parseTime(o.Since); err != nil {
		return f, err
	}
	if f.Until, err = parseTime(o.Until); err != nil {
		return f, err
	}
	if o.Limit < 0 {
		return f, model.NewValidationError("limit", "must not be negative")
	}
	return f, nil
}

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, &model.FormatError{Input: s, Reason: "expected RFC 3339 time"}
	}
	return t, nil
}

func newAuditGetCommand(opts *AuditOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "get ID",
		Short: "Show one event",
		Example: `  integrator audit get 42`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAuditGet(opts, cmd, args[0])
		},
	}
}

func runAuditGet(opts *AuditOptions, cmd *cobra.Command, arg string) error {
	ctx := cmd.Context()

	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		return wrapDomainError("invalid event id", &model.FormatError{Input: arg, Reason: "expected an integer"})
	}

	e, err := openEnv(ctx, opts.RootOptions)
	if err != nil {
		return err
	}
	defer e.Close()

	entry, err := e.audit.Get(ctx, id)
	if err != nil {
		return wrapDomainError("failed to get audit entry", err)
	}
	return opts.formatter(cmd).Success(EntryView(entry))
}
