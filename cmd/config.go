package cmd

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"

	"github.com/hivetools/hive/cli"
	"github.com/hivetools/hive/config"
)

func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Display the resolved configuration",
		Long: `Shows the effective configuration after the config file has been merged
onto the built-in defaults. Useful for debugging threshold and
detection overrides.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cli.LoadConfig(cmd)
			if err != nil {
				return err
			}

			source := config.DefaultPath()
			if explicit, _ := cmd.Flags().GetString("config"); explicit != "" {
				source = explicit
			}
			if _, err := os.Stat(source); err == nil {
				fmt.Printf("# Source: %s\n", source)
			} else {
				fmt.Println("# Source: built-in defaults")
			}

			data, err := toml.Marshal(cfg)
			if err != nil {
				return fmt.Errorf("failed to render config: %w", err)
			}
			fmt.Println(string(data))
			return nil
		},
	}
	return cmd
}
