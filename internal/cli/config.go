package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/blackwidowglobal/dossier/internal/model"
)

// configCmd groups configuration subcommands
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage dossier configuration",
	Long: `Manage configuration files and settings.

Configuration hierarchy (highest to lowest priority):
1. CLI flags
2. Environment variables (DOSSIER_*, plus per-source API key variables)
3. Config file (~/.dossier/config.yaml)
4. Defaults`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		if file := viper.ConfigFileUsed(); file != "" {
			fmt.Fprintf(os.Stderr, "Configuration file: %s\n\n", file)
		} else {
			fmt.Fprintf(os.Stderr, "No configuration file found (using defaults)\n\n")
		}

		data, err := yaml.Marshal(cfg)
		if err != nil {
			return fmt.Errorf("marshal config: %w", err)
		}
		fmt.Print(string(data))

		fmt.Println()
		fmt.Println("API key environment variables:")
		fmt.Println("  OPENCORPORATES_API_KEY   sources.opencorporates")
		fmt.Println("  FEC_API_KEY              sources.fec_donations")
		fmt.Println("  COURTLISTENER_API_TOKEN  sources.court_records")
		fmt.Println("  OPENAI_API_KEY           llm (narrative summary)")
		return nil
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a default configuration file",
	RunE: func(cmd *cobra.Command, args []string) error {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("find home directory: %w", err)
		}

		configDir := home + "/.dossier"
		configPath := configDir + "/config.yaml"

		if _, err := os.Stat(configPath); err == nil {
			return fmt.Errorf("config file already exists: %s", configPath)
		}
		if err := os.MkdirAll(configDir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}

		data, err := yaml.Marshal(model.DefaultConfig())
		if err != nil {
			return fmt.Errorf("marshal config: %w", err)
		}

		header := `# dossier configuration
#
# Configuration hierarchy (highest to lowest priority):
#   1. CLI flags
#   2. Environment variables (DOSSIER_*)
#   3. This file
#   4. Built-in defaults
#
# API keys are read from the environment, not this file:
#   export OPENCORPORATES_API_KEY=...
#   export FEC_API_KEY=...
#   export COURTLISTENER_API_TOKEN=...
#   export OPENAI_API_KEY=...

`
		if err := os.WriteFile(configPath, append([]byte(header), data...), 0o644); err != nil {
			return fmt.Errorf("write config file: %w", err)
		}

		fmt.Printf("Created %s\n", configPath)
		fmt.Println("View it with: dossier config show")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)
}
