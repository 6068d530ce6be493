package main

import (
	"github.com/spf13/cobra"

	"github.com/kunquatgo/kunquat/pkg/kunquat/config"
)

// rootFlags holds the persistent flags shared by every subcommand.
type rootFlags struct {
	configPath string
	fixture    string
	beats      int
}

var flags rootFlags

// rootCommand builds the kunquatgo CLI command tree.
func rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "kunquatgo",
		Short: "Kunquat render core reference host",
	}

	root.PersistentFlags().StringVar(&flags.configPath, "config", "", "path to a YAML player config file")
	root.PersistentFlags().StringVar(&flags.fixture, "fixture", "", "path to a JSON composition fixture (default: one additive voice to master)")
	root.PersistentFlags().IntVar(&flags.beats, "beats", 8, "number of beats in the synthetic demo pattern")

	root.AddCommand(renderCommand())
	root.AddCommand(playCommand())
	root.AddCommand(statsCommand())
	return root
}

func loadPlayerConfig() (config.Player, error) {
	return config.Load(flags.configPath)
}
