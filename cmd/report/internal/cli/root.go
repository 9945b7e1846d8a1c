// Package cli is the offline report tool: it scores an answer file against a
// catalog, prints recommendations and renders report files without a
// database.
package cli

import (
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"cataid-backend/internal/answers"
	"cataid-backend/internal/catalog"
	"cataid-backend/internal/config"
)

type rootOptions struct {
	catalogPath string
	libraryPath string
}

// NewRootCommand builds the command tree.
func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:   "report",
		Short: "Score assessments and render reports from JSON files",
		Long: `report works on a question catalog, a recommendation library and an
answer file (a flat JSON object using SCORE_, ANS_, CMT_ and FILE_ keys).

Examples:
  report score data/sample_answers.json
  report recommend data/sample_answers.json
  report render data/sample_answers.json --format xlsx --candidate "Ravi Kumar"`,
		SilenceUsage: true,
	}

	def := config.DefaultAssessmentConfig()
	root.PersistentFlags().StringVar(&opts.catalogPath, "catalog", def.CatalogPath, "question catalog JSON file")
	root.PersistentFlags().StringVar(&opts.libraryPath, "library", def.LibraryPath, "recommendation library JSON file")

	root.AddCommand(newScoreCommand(opts), newRecommendCommand(opts), newRenderCommand(opts))
	return root
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func (o *rootOptions) loadCatalog() (*catalog.Catalog, error) {
	return catalog.Load(o.catalogPath)
}

func (o *rootOptions) loadLibrary() (*catalog.Library, error) {
	return catalog.LoadLibrary(o.libraryPath)
}

func loadAnswers(path string) (answers.Bag, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read answers: %s", path)
	}
	return answers.ParseBag(data), nil
}
