package main

import (
	"os"
	"strings"

	"github.com/spf13/cobra"
)

const defaultServerURL = "http://localhost:8080"

type commandContext struct {
	serverFlag *string
	jsonFlag   *bool
}

func (c *commandContext) client() *apiClient {
	server := strings.TrimSpace(*c.serverFlag)
	if server == "" {
		server = defaultServerURL
	}
	return newAPIClient(server)
}

func (c *commandContext) jsonOutput() bool {
	return c.jsonFlag != nil && *c.jsonFlag
}

func newRootCommand() *cobra.Command {
	var serverFlag string
	var jsonFlag bool

	ctx := &commandContext{serverFlag: &serverFlag, jsonFlag: &jsonFlag}

	rootCmd := &cobra.Command{
		Use:           "pipelinectl",
		Short:         "Operate the RAG document pipeline",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	server := os.Getenv("CONSOLE_URL")
	if server == "" {
		server = defaultServerURL
	}
	rootCmd.PersistentFlags().StringVar(&serverFlag, "server", server, "Console base URL (env CONSOLE_URL)")
	rootCmd.PersistentFlags().BoolVar(&jsonFlag, "json", false, "Print raw JSON instead of tables")

	rootCmd.AddCommand(newJobsCommand(ctx))
	rootCmd.AddCommand(newDocumentCommand(ctx))
	rootCmd.AddCommand(newHealthCommand(ctx))

	return rootCmd
}
