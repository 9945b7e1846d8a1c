package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"cataid-backend/internal/recommend"
	"cataid-backend/internal/scoring"
)

func newScoreCommand(opts *rootOptions) *cobra.Command {
	var check bool
	cmd := &cobra.Command{
		Use:   "score ANSWERS",
		Short: "Print the score snapshot of an answer file as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := opts.loadCatalog()
			if err != nil {
				return err
			}
			bag, err := loadAnswers(args[0])
			if err != nil {
				return err
			}

			m := scoring.ScoreBag(cat, bag)
			if check {
				if err := m.Validate(cat); err != nil {
					return err
				}
			}
			out := struct {
				scoring.Model
				Percentage float64 `json:"percentage"`
			}{m, m.Percentage()}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		},
	}
	cmd.Flags().BoolVar(&check, "check", false, "verify the score invariants before printing")
	return cmd
}

func newRecommendCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "recommend ANSWERS",
		Short: "Print the recommendations for an answer file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := opts.loadCatalog()
			if err != nil {
				return err
			}
			lib, err := opts.loadLibrary()
			if err != nil {
				return err
			}
			bag, err := loadAnswers(args[0])
			if err != nil {
				return err
			}

			m := scoring.ScoreBag(cat, bag)
			maxima := scoring.SectionMaxima(cat)
			engine := recommend.NewEngine(lib)
			blocks := recommend.Ordered(engine.Recommend(m, maxima), cat, engine.Tiers(m, maxima))

			w := cmd.OutOrStdout()
			if len(blocks) == 0 {
				_, err := fmt.Fprintln(w, "No recommendations required.")
				return err
			}
			var b strings.Builder
			for _, block := range blocks {
				fmt.Fprintf(&b, "%s (%s)\n", block.Category, block.Tier)
				for _, item := range block.Items {
					fmt.Fprintf(&b, "  - %s\n", item)
				}
			}
			_, err = fmt.Fprint(w, b.String())
			return err
		},
	}
}
