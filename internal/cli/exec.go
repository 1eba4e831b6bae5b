package cli

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/arbordata/arbor/internal/engine"
	"github.com/arbordata/arbor/internal/mapping"
	"github.com/arbordata/arbor/internal/store"
	"github.com/arbordata/arbor/internal/writer"
)

// ExecOptions holds flags for the exec command.
type ExecOptions struct {
	PlanOptions
	DB        string
	AssignIDs bool
}

// ExecResult is the JSON payload for an executed change.
type ExecResult struct {
	Entity      string `json:"entity"`
	Executed    int    `json:"executed"`
	RootID      any    `json:"root_id,omitempty"`
	Fingerprint string `json:"fingerprint"`
}

// NewExecCommand creates the exec command.
func NewExecCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ExecOptions{}

	cmd := &cobra.Command{
		Use:   "exec",
		Short: "Compute a plan and execute it against SQLite",
		Long: `Compute the ordered action plan for an aggregate and execute it
against a SQLite database, creating tables from the mapping first.

With --assign-ids every absent identifier is pre-assigned a UUID, so
storage never generates ids and the plan is fully known up front.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExec(rootOpts, opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Mapping, "mapping", "", "mapping document directory (required)")
	cmd.Flags().StringVar(&opts.Aggregate, "aggregate", "", "aggregate fixture file (YAML)")
	cmd.Flags().StringVar(&opts.Entity, "entity", "", "aggregate root entity (overrides the fixture)")
	cmd.Flags().BoolVar(&opts.Delete, "delete", false, "execute a delete instead of a save")
	cmd.Flags().StringVar(&opts.ID, "id", "", "root identifier for --delete")
	cmd.Flags().BoolVar(&opts.Lock, "lock", false, "acquire a root lock before delete cascades")
	cmd.Flags().BoolVar(&opts.Batch, "batch", false, "group adjacent compatible actions into batches")
	cmd.Flags().StringVar(&opts.DB, "db", "", "SQLite database path (required)")
	cmd.Flags().BoolVar(&opts.AssignIDs, "assign-ids", false, "pre-assign UUIDs to absent identifiers")
	_ = cmd.MarkFlagRequired("mapping")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runExec(rootOpts *RootOptions, opts *ExecOptions, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    rootOpts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   rootOpts.Verbose,
	}

	mr, err := LoadMapping(opts.Mapping)
	if err != nil {
		var loadErr *LoadError
		if errors.As(err, &loadErr) {
			_ = formatter.Error(loadErr.Code, loadErr.Message, nil)
			return NewExitError(exitCodeFor(loadErr), loadErr.Error())
		}
		_ = formatter.Error(ErrCodeGeneric, err.Error(), nil)
		return NewExitError(ExitFailure, err.Error())
	}

	ch, err := execChange(opts, mr, formatter)
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

	var sopts []store.Option
	if opts.AssignIDs {
		// Pre-assigned identifiers are UUID strings; a rowid-alias id column
		// would reject them.
		sopts = append(sopts, store.WithProvidedIDs())
	}
	st, err := store.Open(opts.DB, mr.Schema, sopts...)
	if err != nil {
		_ = formatter.Error(ErrCodeGeneric, err.Error(), nil)
		return WrapExitError(ExitCommandError, "opening database", err)
	}
	defer st.Close()

	ctx := cmd.Context()
	if err := st.CreateTables(ctx); err != nil {
		_ = formatter.Error(ErrCodeGeneric, err.Error(), nil)
		return WrapExitError(ExitFailure, "creating tables", err)
	}
	if err := engine.Execute(ctx, st, ch); err != nil {
		_ = formatter.Error(ErrCodeGeneric, err.Error(), nil)
		return WrapExitError(ExitFailure, "executing plan", err)
	}

	result := ExecResult{Entity: ch.Entity, Executed: len(ch.Actions), Fingerprint: ch.Fingerprint()}
	if ch.Root != nil {
		if ent, err := mr.Schema.Entity(ch.Entity); err == nil {
			if idp := ent.IDProperty(); idp != nil {
				result.RootID = ch.Root[idp.Name]
			}
		}
	}
	if formatter.Format == "json" {
		return formatter.Success(result)
	}
	fmt.Fprintf(formatter.Writer, "executed %d actions for %s", result.Executed, result.Entity)
	if result.RootID != nil {
		fmt.Fprintf(formatter.Writer, " (root id %v)", result.RootID)
	}
	fmt.Fprintln(formatter.Writer)
	return nil
}

// execChange mirrors computeChange but can pre-assign identifiers before the
// writer runs, so provided-id inserts come out instead of generated ones.
func execChange(opts *ExecOptions, mr *MappingResult, formatter *OutputFormatter) (*writer.Change, error) {
	if opts.Delete || !opts.AssignIDs {
		return computeChange(&opts.PlanOptions, formatter)
	}

	if opts.Aggregate == "" {
		return nil, &LoadError{Code: ErrCodeBadFixture, Message: "--assign-ids requires --aggregate"}
	}
	f, err := LoadFixture(opts.Aggregate)
	if err != nil {
		return nil, err
	}
	entity := f.Entity
	if opts.Entity != "" {
		entity = opts.Entity
	}
	if err := assignIDs(mr.Schema, entity, f.Aggregate); err != nil {
		return nil, err
	}

	var wopts []writer.Option
	if opts.Lock {
		wopts = append(wopts, writer.WithDeleteLock())
	}
	w := writer.New(mr.Schema, wopts...)
	// Identifiers are now populated, so prior must be forced to new.
	return w.ComputeSave(entity, f.Aggregate, writer.PriorNew)
}

// assignIDs walks the aggregate and fills every absent identifier property
// with a fresh UUID. Read-only and embedded relations are left alone; the
// writer skips the former and the latter carry no row of their own.
func assignIDs(schema *mapping.Schema, entity string, row map[string]any) error {
	ent, err := schema.Entity(entity)
	if err != nil {
		return err
	}
	if idp := ent.IDProperty(); idp != nil {
		if v, ok := row[idp.Name]; !ok || v == nil || v == "" || v == 0 {
			row[idp.Name] = uuid.NewString()
		}
	}
	for _, prop := range ent.Relations() {
		rel := prop.Relation
		if rel.ReadOnly || rel.Embedded {
			continue
		}
		val, present := row[prop.Name]
		if !present || val == nil {
			continue
		}
		switch elems := val.(type) {
		case map[string]any:
			if rel.Kind == mapping.Map {
				for _, el := range elems {
					if erow, ok := el.(map[string]any); ok {
						if err := assignIDs(schema, rel.Target, erow); err != nil {
							return err
						}
					}
				}
			} else if err := assignIDs(schema, rel.Target, elems); err != nil {
				return err
			}
		case []any:
			for _, el := range elems {
				if erow, ok := el.(map[string]any); ok {
					if err := assignIDs(schema, rel.Target, erow); err != nil {
						return err
					}
				}
			}
		}
	}
	return nil
}
