package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/blackwidowglobal/dossier/internal/model"
	"github.com/blackwidowglobal/dossier/internal/pipeline"
)

var (
	stateFlag    string
	companyFlag  string
	outputDir    string
	outputFormat string
	noCache      bool
	llmEnabled   bool
	llmModel     string
)

// companyCmd researches a company subject
var companyCmd = &cobra.Command{
	Use:   "company <name>",
	Short: "Research a company across all enabled sources",
	Long: `Research a company: corporate registries, SEC EDGAR, federal
campaign contributions, court records, UCC lien portals, and news.

Example:
  dossier company "Acme LLC" --state DE
  dossier company "Acme LLC" --state DE --format json --output ./reports
  dossier company "Acme LLC" --llm`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runResearch(model.Subject{
			Kind:  model.SubjectCompany,
			Name:  args[0],
			State: stateFlag,
		})
	},
}

// personCmd researches a person subject
var personCmd = &cobra.Command{
	Use:   "person <name>",
	Short: "Research a person across all enabled sources",
	Long: `Research a person: officer positions, SEC affiliation via a known
company, campaign contributions, court records, and news. Sources that
only cover companies (UCC debtor search) are skipped and reported as
such in the coverage section.

Example:
  dossier person "Jane Smith" --state NY
  dossier person "Jane Smith" --company "Acme LLC"`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runResearch(model.Subject{
			Kind:    model.SubjectPerson,
			Name:    args[0],
			State:   stateFlag,
			Company: companyFlag,
		})
	},
}

func init() {
	rootCmd.AddCommand(companyCmd)
	rootCmd.AddCommand(personCmd)

	for _, cmd := range []*cobra.Command{companyCmd, personCmd} {
		cmd.Flags().StringVar(&stateFlag, "state", "", "two-letter US state code")
		cmd.Flags().StringVar(&outputDir, "output", "", "output directory (default from config)")
		cmd.Flags().StringVar(&outputFormat, "format", "", "output format: json, text, or both")
		cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable response caching (force fresh fetches)")
		cmd.Flags().BoolVar(&llmEnabled, "llm", false, "generate an LLM narrative summary (needs OPENAI_API_KEY)")
		cmd.Flags().StringVar(&llmModel, "llm-model", "", "LLM model name")
	}
	personCmd.Flags().StringVar(&companyFlag, "company", "", "known company affiliation")
}

// buildPipeline applies command flags over the loaded configuration
func buildPipeline() (*pipeline.Pipeline, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	if outputDir != "" {
		cfg.Output.Dir = outputDir
	}
	if outputFormat != "" {
		cfg.Output.Format = outputFormat
	}
	if noCache {
		cfg.Cache.Enabled = false
	}
	if llmEnabled {
		if cfg.LLM.Provider == "" {
			cfg.LLM.Provider = "openai"
		}
		if cfg.LLM.APIKey == "" {
			cfg.LLM.APIKey = os.Getenv("OPENAI_API_KEY")
		}
		if cfg.LLM.APIKey == "" && cfg.LLM.BaseURL == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY environment variable not set")
		}
	}
	if llmModel != "" {
		cfg.LLM.Model = llmModel
	}

	return pipeline.NewPipeline(cfg)
}

func runResearch(subject model.Subject) error {
	p, err := buildPipeline()
	if err != nil {
		return err
	}

	if verbose {
		fmt.Fprintf(os.Stderr, "Researching %s %q", subject.Kind, subject.Name)
		if subject.State != "" {
			fmt.Fprintf(os.Stderr, " (%s)", subject.State)
		}
		fmt.Fprintln(os.Stderr)
	}

	dossier, err := p.Research(context.Background(), subject)
	if err != nil {
		return fmt.Errorf("research failed: %w", err)
	}

	if err := p.RenderDossier(dossier); err != nil {
		return fmt.Errorf("render failed: %w", err)
	}
	return nil
}
