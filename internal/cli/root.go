// Package cli wires the cobra command tree. All configuration reading
// happens here; the engine below only ever sees a finished *model.Config.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/blackwidowglobal/dossier/internal/model"
)

var (
	cfgFile string
	verbose bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "dossier",
	Short: "Multi-source OSINT research dossiers for companies and people",
	Long: `Dossier aggregates public records about a company or person from
multiple sources (SEC EDGAR, corporate registries, FEC contributions,
court records, UCC filings, news), resolves them into canonical
entities, and evaluates a fixed set of risk rules.

It reports what the public record shows and where coverage is missing.
It does not determine guilt, creditworthiness, or suitability.`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("dossier v0.3.0")
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.dossier/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	_ = viper.BindPFlag("output.verbose", rootCmd.PersistentFlags().Lookup("verbose"))

	rootCmd.AddCommand(versionCmd)
}

// initConfig reads the config file and DOSSIER_* environment variables
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error finding home directory: %v\n", err)
			return
		}
		viper.AddConfigPath(home + "/.dossier")
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	viper.SetEnvPrefix("DOSSIER")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil && verbose {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	}
}

// loadConfig builds the engine configuration: defaults, then config file
// and env, then per-source credentials from their conventional variables
func loadConfig() (*model.Config, error) {
	cfg := model.DefaultConfig()
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	sourceKey := func(id model.SourceID, env string) {
		if v := os.Getenv(env); v != "" {
			sc := cfg.Sources[string(id)]
			sc.APIKey = v
			cfg.Sources[string(id)] = sc
		}
	}
	sourceKey(model.SourceOpenCorporates, "OPENCORPORATES_API_KEY")
	sourceKey(model.SourceFECDonations, "FEC_API_KEY")
	sourceKey(model.SourceCourtRecords, "COURTLISTENER_API_TOKEN")

	if cfg.LLM.Provider != "" && cfg.LLM.APIKey == "" {
		cfg.LLM.APIKey = os.Getenv("OPENAI_API_KEY")
	}

	cfg.Output.Verbose = verbose
	return cfg, nil
}
