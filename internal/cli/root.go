package cli

import (
	"os"

	"github.com/spf13/cobra"
)

var configDir string

// Execute runs the CLI.
func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	envConfig := os.Getenv("ASSESS_CONFIG_DIR")
	if envConfig == "" {
		envConfig = "configs"
	}

	cmd := &cobra.Command{
		Use:          "assessment-service",
		Short:        "Assessment submission and grading service",
		SilenceUsage: true,
		// 不带子命令时等同 serve
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(configDir)
		},
	}

	cmd.PersistentFlags().StringVar(&configDir, "config", envConfig, "directory containing config.yaml")
	cmd.AddCommand(NewServeCmd(&configDir))
	cmd.AddCommand(NewMigrateCmd(&configDir))
	return cmd
}
