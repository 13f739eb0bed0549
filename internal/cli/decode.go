package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/shaiso/Tabula/internal/tabular"
)

// NewDecodeCmd создаёт команду decode: разбор локального файла результата
// тем же декодером, что и ответ сервиса.
func NewDecodeCmd(envFn func() (*Env, error)) *cobra.Command {
	var stats bool

	cmd := &cobra.Command{
		Use:   "decode FILE",
		Short: "Decode a delimited-text result file into a table ('-' for stdin)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := envFn()
			if err != nil {
				return err
			}

			var r io.Reader = cmd.InOrStdin()
			if args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return fmt.Errorf("open %s: %w", args[0], err)
				}
				defer f.Close()
				r = f
			}

			table, err := tabular.DecodeReader(r)
			if err != nil {
				return err
			}
			env.Metrics.ObserveDecodedRows(len(table.Rows))

			env.Out.PrintResult(&table)

			if stats {
				s := tabular.Stats(table)
				env.Out.Success(fmt.Sprintf("columns=%d rows=%d complete=%d short=%d duplicate_keys=%v",
					s.Columns, s.Rows, s.CompleteRows, s.ShortRows, s.DuplicateKeys))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&stats, "stats", false, "Print decode statistics to stderr")

	return cmd
}
