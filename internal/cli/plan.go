package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/arbordata/arbor/internal/plan"
	"github.com/arbordata/arbor/internal/writer"
)

// PlanOptions holds flags for the plan command.
type PlanOptions struct {
	Mapping   string
	Aggregate string
	Entity    string
	Delete    bool
	ID        string
	Lock      bool
	Batch     bool
}

// PlanResult is the JSON payload for a computed plan.
type PlanResult struct {
	Entity      string   `json:"entity"`
	Actions     []string `json:"actions"`
	Fingerprint string   `json:"fingerprint"`
}

// NewPlanCommand creates the plan command.
func NewPlanCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PlanOptions{}

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Compute the ordered action plan for an aggregate",
		Long: `Compute the ordered action plan a save or delete of one aggregate
would execute, without touching any database.

Saves read the aggregate from a YAML fixture; deletes take the root
identifier from --id (omit it to plan a delete of every aggregate of
the type).`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlan(rootOpts, opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Mapping, "mapping", "", "mapping document directory (required)")
	cmd.Flags().StringVar(&opts.Aggregate, "aggregate", "", "aggregate fixture file (YAML)")
	cmd.Flags().StringVar(&opts.Entity, "entity", "", "aggregate root entity (overrides the fixture)")
	cmd.Flags().BoolVar(&opts.Delete, "delete", false, "plan a delete instead of a save")
	cmd.Flags().StringVar(&opts.ID, "id", "", "root identifier for --delete")
	cmd.Flags().BoolVar(&opts.Lock, "lock", false, "acquire a root lock before delete cascades")
	cmd.Flags().BoolVar(&opts.Batch, "batch", false, "group adjacent compatible actions into batches")
	_ = cmd.MarkFlagRequired("mapping")

	return cmd
}

func runPlan(rootOpts *RootOptions, opts *PlanOptions, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    rootOpts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   rootOpts.Verbose,
	}

	ch, err := computeChange(opts, formatter)
	if err != nil {
		var loadErr *LoadError
		if errors.As(err, &loadErr) {
			_ = formatter.Error(loadErr.Code, loadErr.Message, nil)
			return NewExitError(exitCodeFor(loadErr), loadErr.Error())
		}
		_ = formatter.Error(ErrCodeGeneric, err.Error(), nil)
		return NewExitError(ExitFailure, err.Error())
	}
	if opts.Batch {
		ch.Batch()
	}

	if formatter.Format == "json" {
		result := PlanResult{Entity: ch.Entity, Fingerprint: ch.Fingerprint()}
		for _, a := range ch.Actions {
			result.Actions = append(result.Actions, plan.Describe(a))
		}
		return formatter.Success(result)
	}
	fmt.Fprint(formatter.Writer, plan.RenderText(ch.Actions))
	fmt.Fprintf(formatter.Writer, "fingerprint: %s\n", ch.Fingerprint())
	return nil
}

// computeChange loads the mapping and fixture and runs the writer. Shared by
// plan and exec.
func computeChange(opts *PlanOptions, formatter *OutputFormatter) (*writer.Change, error) {
	mr, err := LoadMapping(opts.Mapping)
	if err != nil {
		return nil, err
	}
	formatter.VerboseLog("Loaded %d CUE file(s)", mr.FileCount)

	var wopts []writer.Option
	if opts.Lock {
		wopts = append(wopts, writer.WithDeleteLock())
	}
	w := writer.New(mr.Schema, wopts...)

	if opts.Delete {
		entity := opts.Entity
		if entity == "" && opts.Aggregate != "" {
			f, err := LoadFixture(opts.Aggregate)
			if err != nil {
				return nil, err
			}
			entity = f.Entity
		}
		if entity == "" {
			return nil, &LoadError{Code: ErrCodeBadFixture, Message: "--delete requires --entity or an aggregate fixture"}
		}
		var id any
		if opts.ID != "" {
			id = opts.ID
		}
		return w.ComputeDelete(entity, id)
	}

	if opts.Aggregate == "" {
		return nil, &LoadError{Code: ErrCodeBadFixture, Message: "save plans require --aggregate"}
	}
	f, err := LoadFixture(opts.Aggregate)
	if err != nil {
		return nil, err
	}
	entity := f.Entity
	if opts.Entity != "" {
		entity = opts.Entity
	}
	prior, err := f.PriorState()
	if err != nil {
		return nil, err
	}
	formatter.VerboseLog("Computing save for %s (prior=%s)", entity, strings.TrimSpace(f.Prior))
	return w.ComputeSave(entity, f.Aggregate, prior)
}
