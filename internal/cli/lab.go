package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/integrator/internal/artifact"
	"github.com/roach88/integrator/internal/key"
	"github.com/roach88/integrator/internal/model"
)

// LabOptions holds flags for the lab commands.
type LabOptions struct {
	*RootOptions
	PatientID int
	Type      string
	Data      string
	File      string
}

// LabResultView renders one cached lab result.
type LabResultView struct {
	Key            string `json:"key" yaml:"key"`
	LocalPatientID int    `json:"local_patient_id" yaml:"local_patient_id"`
	Type           string `json:"type,omitempty" yaml:"type,omitempty"`
	Data           string `json:"data,omitempty" yaml:"data,omitempty"`
}

func newLabResultView(l artifact.CachedLabResult) LabResultView {
	return LabResultView{
		Key:            l.Key.String(),
		LocalPatientID: l.LocalPatientID,
		Type:           l.Type,
		Data:           l.Data,
	}
}

func (v LabResultView) String() string {
	return fmt.Sprintf("%s\tpatient=%d\ttype=%s\t%d bytes", v.Key, v.LocalPatientID, v.Type, len(v.Data))
}

// LabResultList renders lab results, one per line.
type LabResultList []LabResultView

func (l LabResultList) String() string {
	if len(l) == 0 {
		return "No lab results"
	}
	lines := make([]string, len(l))
	for i, v := range l {
		lines[i] = v.String()
	}
	return strings.Join(lines, "\n")
}

// NewLabCommand creates the lab command group.
func NewLabCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &LabOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "lab",
		Short: "Cache and query lab results",
	}

	put := &cobra.Command{
		Use:   "put FACILITY:ITEM",
		Short: "Cache a lab result, replacing any previous copy",
		Long: `Cache a lab result payload (HL7, XML or JSON) for a facility-local patient.
The payload comes from --data, or from --file (- for stdin).

Examples:
  integrator lab put 3:LAB-0001 --patient 77 --type HL7 --file result.hl7`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLabPut(opts, cmd, args[0])
		},
	}
	put.Flags().IntVar(&opts.PatientID, "patient", 0, "facility-local patient id (required)")
	_ = put.MarkFlagRequired("patient")
	put.Flags().StringVar(&opts.Type, "type", "", "payload type label, e.g. HL7")
	put.Flags().StringVar(&opts.Data, "data", "", "payload text")
	put.Flags().StringVar(&opts.File, "file", "", "read the payload from this file")
	put.MarkFlagsMutuallyExclusive("data", "file")

	get := &cobra.Command{
		Use:   "get FACILITY:ITEM",
		Short: "Show a cached lab result",
		Example: `  integrator lab get 3:LAB-0001 --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLabGet(opts, cmd, args[0])
		},
	}

	byPatient := &cobra.Command{
		Use:   "by-patient PATIENT_ID",
		Short: "List every cached lab result for a facility-local patient",
		Example: `  integrator lab by-patient 77`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLabByPatient(opts, cmd, args[0])
		},
	}

	cmd.AddCommand(put, get, byPatient)
	return cmd
}

func runLabPut(opts *LabOptions, cmd *cobra.Command, keyArg string) error {
	ctx := cmd.Context()

	k, err := key.ParseString(keyArg)
	if err != nil {
		return wrapDomainError("invalid key", err)
	}
	data := opts.Data
	if opts.File != "" {
		raw, err := readInput(cmd, opts.File)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to read lab result", err)
		}
		data = string(raw)
	}

	e, err := openEnv(ctx, opts.RootOptions)
	if err != nil {
		return err
	}
	defer e.Close()

	l := artifact.CachedLabResult{Key: k, LocalPatientID: opts.PatientID, Type: opts.Type, Data: data}
	if err := e.labResults.Put(ctx, l); err != nil {
		return wrapDomainError("failed to cache lab result", err)
	}
	return opts.formatter(cmd).Success(newLabResultView(l))
}

func runLabGet(opts *LabOptions, cmd *cobra.Command, keyArg string) error {
	ctx := cmd.Context()

	k, err := key.ParseString(keyArg)
	if err != nil {
		return wrapDomainError("invalid key", err)
	}

	e, err := openEnv(ctx, opts.RootOptions)
	if err != nil {
		return err
	}
	defer e.Close()

	l, err := e.labResults.Get(ctx, k)
	if err != nil {
		return wrapDomainError("failed to get lab result", err)
	}
	return opts.formatter(cmd).Success(newLabResultView(l))
}

func runLabByPatient(opts *LabOptions, cmd *cobra.Command, arg string) error {
	ctx := cmd.Context()

	patientID, err := strconv.Atoi(arg)
	if err != nil {
		return wrapDomainError("invalid patient id", &model.FormatError{Input: arg, Reason: "expected an integer"})
	}

	e, err := openEnv(ctx, opts.RootOptions)
	if err != nil {
		return err
	}
	defer e.Close()

	results, err := e.labResults.FindByPatientID(ctx, patientID)
	if err != nil {
		return wrapDomainError("failed to find lab results", err)
	}
	views := make(LabResultList, len(results))
	for i, l := range results {
		views[i] = newLabResultView(l)
	}
	return opts.formatter(cmd).Success(views)
}
