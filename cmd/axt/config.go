package main

import (
	"fmt"

	"github.com/matsen/arxivterm/internal/config"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(configCmd)
}

var configCmd = &cobra.Command{
	Use:   "config [key] [value]",
	Short: "Get or set configuration values",
	Long: `Get or set configuration values.

Usage:
  axt config                        # Show the effective config
  axt config categories             # Get a specific value
  axt config categories cs.AI,cs.CL # Set a value in the config file
  axt config pdf_reader zathura     # Set PDF reader
  axt config model.max_df 0.95      # Fractions and counts for document frequency

Nested keys use dots. Run 'axt config keys' for the full list.`,
	Args: cobra.MaximumNArgs(2),
	RunE: runConfig,
}

// UpdateResponse is the response for config set commands.
type UpdateResponse struct {
	Status string `json:"status"`
	Key    string `json:"key"`
	Value  string `json:"value"`
	Path   string `json:"path"`
}

func runConfig(cmd *cobra.Command, args []string) error {
	cfg := mustLoadConfig()

	// No args: show all config
	if len(args) == 0 {
		if humanOutput {
			for _, key := range config.Keys() {
				value, _ := cfg.Get(key)
				fmt.Printf("%-20s %s\n", key+":", value)
			}
			fmt.Printf("\n(from %s)\n", cfg.Path)
		} else {
			outputJSON(cfg)
		}
		return nil
	}

	key := args[0]

	if len(args) == 1 {
		if key == "keys" {
			if humanOutput {
				for _, k := range config.Keys() {
					fmt.Println(k)
				}
			} else {
				outputJSON(config.Keys())
			}
			return nil
		}

		value, err := cfg.Get(key)
		if err != nil {
			exitWithError(exitCodeFor(err), "%v", err)
		}
		if humanOutput {
			fmt.Println(value)
		} else {
			outputJSON(map[string]string{key: value})
		}
		return nil
	}

	value := args[1]
	if err := config.Set(cfg.Path, key, value); err != nil {
		exitWithError(exitCodeFor(err), "%v", err)
	}

	if humanOutput {
		fmt.Printf("Set %s = %s in %s\n", key, value, cfg.Path)
	} else {
		outputJSON(UpdateResponse{Status: "updated", Key: key, Value: value, Path: cfg.Path})
	}
	return nil
}
