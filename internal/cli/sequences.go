package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/scbrown/session-lens/internal/mine"
	"github.com/spf13/cobra"
)

var (
	seqSince    string
	seqMinLen   int
	seqMaxLen   int
	seqMinCount int
	seqLimit    int
)

var sequencesCmd = &cobra.Command{
	Use:   "sequences",
	Short: "Show recurring tool-call sequences",
	Long: `Mine tool-call n-grams from session activity. Sequences never cross
session boundaries, and ties are broken by first occurrence, so output
is stable across runs.`,
	Example: `  sl sequences
  sl sequences --since 7d --min-count 3
  sl sequences --min-len 3 --max-len 5`,
	RunE: func(cmd *cobra.Command, args []string) error {
		since, err := sinceTime(seqSince)
		if err != nil {
			return err
		}

		b, err := openBackend()
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		defer b.Close()

		seqs, err := b.Sequences(context.Background(), mine.SequenceOptions{
			Since:    since,
			MinLen:   seqMinLen,
			MaxLen:   seqMaxLen,
			MinCount: seqMinCount,
			Limit:    seqLimit,
		})
		if err != nil {
			return fmt.Errorf("mine sequences: %w", err)
		}

		if jsonOutput {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(seqs)
		}

		if len(seqs) == 0 {
			fmt.Println("No recurring sequences found.")
			return nil
		}

		t := NewTable(os.Stdout, "SEQUENCE", "COUNT")
		for _, s := range seqs {
			t.Row(s.Key, fmt.Sprintf("%d", s.Count))
		}
		return t.Flush()
	},
}

func init() {
	sequencesCmd.Flags().StringVar(&seqSince, "since", "", "time window (e.g., 24h, 7d)")
	sequencesCmd.Flags().IntVar(&seqMinLen, "min-len", 0, "minimum sequence length (default 2)")
	sequencesCmd.Flags().IntVar(&seqMaxLen, "max-len", 0, "maximum sequence length (default min-len+2)")
	sequencesCmd.Flags().IntVar(&seqMinCount, "min-count", 0, "minimum occurrences to report (default 2)")
	sequencesCmd.Flags().IntVar(&seqLimit, "limit", 20, "maximum number of results")
	rootCmd.AddCommand(sequencesCmd)
}
