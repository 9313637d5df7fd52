package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"cabinetquote/internal/config"
)

var (
	cfgFile string
	cfg     *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "quotekb",
	Short: "Build and inspect the quote knowledge base",
	Long: `quotekb maintains the past-quote knowledge base used by the chat server.

Example usage:
  quotekb auth                          # Authorize Drive and Gmail access
  quotekb build                         # Rebuild the index from the Drive folder
  quotekb search -q "kitchen, oak"      # Show the nearest past quotes
  quotekb chat                          # Talk to a running server`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cfgFile != "" {
			if err := os.Setenv("CONFIG_FILE", cfgFile); err != nil {
				return fmt.Errorf("set config path failed: %w", err)
			}
		}
		var err error
		cfg, err = config.Load()
		if err != nil {
			return fmt.Errorf("load config failed: %w", err)
		}
		return nil
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is configs/config.toml)")
}
