package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/gokatarajesh/photo-hunt/internal/hunt"
)

func newOrderCmd() *cobra.Command {
	var (
		team     string
		poolFile string
		poolName string
		asJSON   bool
	)
	cmd := &cobra.Command{
		Use:   "order",
		Short: "Print the clue order a team will walk",
		RunE: func(cmd *cobra.Command, args []string) error {
			pool, err := hunt.ResolvePool(poolFile, poolName)
			if err != nil {
				return err
			}
			seq := hunt.Shuffle(team, pool)
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(seq)
			}
			return printSequence(cmd.OutOrStdout(), team, seq)
		},
	}
	cmd.Flags().StringVar(&team, "team", "", "team id")
	cmd.Flags().StringVar(&poolFile, "pool-file", "", "hunt pool YAML (overrides --pool)")
	cmd.Flags().StringVar(&poolName, "pool", hunt.DefaultPoolName, "built-in pool name")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of a table")
	_ = cmd.MarkFlagRequired("team")
	return cmd
}

func printSequence(w io.Writer, team string, seq hunt.Sequence) error {
	fmt.Fprintf(w, "team %s: %d steps\n", team, len(seq))
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tID\tKIND\tANSWER")
	for _, step := range seq {
		kind := "riddle"
		if step.IsCheckpoint() {
			kind = fmt.Sprintf("checkpoint %d", step.CheckpointRank)
		}
		fmt.Fprintf(tw, "%d\t%d\t%s\t%s\n", step.SequenceNo, step.ID, kind, step.Answer)
	}
	return tw.Flush()
}
