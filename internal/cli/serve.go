package cli

import (
	"coder_edu_assessment/internal/app"
	"coder_edu_assessment/internal/config"

	"github.com/spf13/cobra"
)

// NewServeCmd builds the subcommand that starts the HTTP server.
func NewServeCmd(configDir *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(*configDir)
		},
	}
}

func runServer(configDir string) error {
	cfg, err := config.LoadConfig(configDir)
	if err != nil {
		return err
	}

	application, err := app.NewApp(cfg, configDir)
	if err != nil {
		return err
	}
	return application.Run()
}
