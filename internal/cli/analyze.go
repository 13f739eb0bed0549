package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/shaiso/Tabula/internal/domain"
	"github.com/shaiso/Tabula/internal/export"
	"github.com/shaiso/Tabula/internal/orchestrator"
)

// analyzeOpts — флаги analyze и watch.
type analyzeOpts struct {
	primary   string
	adjacency string
	inputs    []string
	xlsx      string
	noRun     bool
}

func (o *analyzeOpts) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&o.primary, "primary", "", "Primary input file (sent as X.csv), '-' for stdin")
	cmd.Flags().StringVar(&o.adjacency, "adjacency", "", "Adjacency input file (sent as edge_index.csv)")
	cmd.Flags().StringArrayVar(&o.inputs, "input", nil, "Input as ROLE=FILE (primary or adjacency), repeatable")
	cmd.Flags().StringVar(&o.xlsx, "xlsx", "", "Also export the result table to this .xlsx file")
}

// paths возвращает файлы обеих ролей. --input перекрывает --primary/--adjacency.
func (o *analyzeOpts) paths() (map[domain.Role]string, error) {
	paths := make(map[domain.Role]string, 2)
	if o.primary != "" {
		paths[domain.RolePrimary] = o.primary
	}
	if o.adjacency != "" {
		paths[domain.RoleAdjacency] = o.adjacency
	}

	for _, in := range o.inputs {
		name, path, ok := strings.Cut(in, "=")
		if !ok || path == "" {
			return nil, fmt.Errorf("%w: %q, expected ROLE=FILE", ErrInvalidInputFlag, in)
		}
		role, err := domain.ParseRole(name)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidInputFlag, err)
		}
		paths[role] = path
	}

	for _, role := range domain.Roles() {
		if paths[role] == "" {
			return nil, fmt.Errorf("%w: %s file is not set (--%s or --input %s=FILE)",
				ErrInvalidInputFlag, role, role, role)
		}
	}
	if paths[domain.RolePrimary] == "-" && paths[domain.RoleAdjacency] == "-" {
		return nil, errors.New("only one input can be read from stdin")
	}
	return paths, nil
}

func (o *analyzeOpts) payloads() (domain.InputPayload, domain.InputPayload, error) {
	paths, err := o.paths()
	if err != nil {
		return domain.InputPayload{}, domain.InputPayload{}, err
	}

	primary, err := readPayload(domain.RolePrimary, paths[domain.RolePrimary])
	if err != nil {
		return domain.InputPayload{}, domain.InputPayload{}, err
	}
	adjacency, err := readPayload(domain.RoleAdjacency, paths[domain.RoleAdjacency])
	if err != nil {
		return domain.InputPayload{}, domain.InputPayload{}, err
	}
	return primary, adjacency, nil
}

// NewAnalyzeCmd создаёт команду analyze: один полный цикл загрузки и анализа.
func NewAnalyzeCmd(envFn func() (*Env, error)) *cobra.Command {
	var opts analyzeOpts

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Upload both input files, run the analysis and print the result table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := envFn()
			if err != nil {
				return err
			}
			defer env.PushMetrics("analyze")

			ctx := cmd.Context()
			integ := env.OpenIntegrations(ctx)
			defer integ.Close()

			orch := env.Orchestrator(false, integ.Observers()...)
			if opts.noRun {
				return submitOnly(ctx, orch, &opts)
			}
			return runCycle(ctx, env, integ, orch, &opts)
		},
	}

	opts.bind(cmd)
	cmd.Flags().BoolVar(&opts.noRun, "no-run", false, "Only upload the files, do not start the analysis")

	return cmd
}

// submitOnly выбирает файлы и выполняет только Submit.
func submitOnly(ctx context.Context, orch *orchestrator.Orchestrator, opts *analyzeOpts) error {
	primary, adjacency, err := opts.payloads()
	if err != nil {
		return err
	}
	if err := orch.SelectInput(domain.RolePrimary, primary); err != nil {
		return err
	}
	if err := orch.SelectInput(domain.RoleAdjacency, adjacency); err != nil {
		return err
	}
	return orch.Submit(ctx)
}

// runCycle выполняет полный цикл, печатает и экспортирует результат,
// записывает итог в журнал.
func runCycle(ctx context.Context, env *Env, integ *Integrations, orch *orchestrator.Orchestrator, opts *analyzeOpts) error {
	primary, adjacency, err := opts.payloads()
	if err != nil {
		return err
	}

	table, cycleErr := orch.RunCycle(ctx, primary, adjacency)
	integ.Record(ctx, env.Logger, orch.Session())

	if cycleErr != nil {
		if status, msg := orch.Status(); status == domain.SessionStatusErrored {
			return fmt.Errorf("%w: %s: %w", ErrCycleFailed, msg, cycleErr)
		}
		return cycleErr
	}

	env.Out.PrintResult(table)

	if opts.xlsx != "" {
		if err := export.SaveXLSX(opts.xlsx, *table, export.Options{}); err != nil {
			return err
		}
		env.Out.Success(fmt.Sprintf("Result exported to %s", opts.xlsx))
	}
	return nil
}
