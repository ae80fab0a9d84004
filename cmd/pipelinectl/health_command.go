package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/spf13/cobra"

	"rag-console/internal/handlers"
)

func newHealthCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Show console health and background workers",
		RunE: func(cmd *cobra.Command, args []string) error {
			var health handlers.HealthResponse
			err := ctx.client().get(cmd.Context(), "/health", nil, &health)

			// unhealthy answers 503 with the report as body
			var apiErr *apiError
			if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusServiceUnavailable {
				if jsonErr := json.Unmarshal(apiErr.raw, &health); jsonErr != nil || health.Status == "" {
					return err
				}
				err = nil
			}
			if err != nil {
				return err
			}
			if ctx.jsonOutput() {
				return writeJSON(cmd, health)
			}

			stageWorkers := health.StageWorkers
			if stageWorkers == "" {
				stageWorkers = "not dispatched"
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Status: %s (storage %s, stage workers %s)\n", health.Status, health.Storage, stageWorkers)
			rows := make([][]string, 0, len(health.Workers))
			for _, w := range health.Workers {
				rows = append(rows, []string{
					w.WorkerName,
					yesNo(w.IsRunning),
					strconv.FormatInt(w.JobsProcessed, 10),
					strconv.FormatInt(w.JobsFailed, 10),
				})
			}
			if len(rows) > 0 {
				fmt.Fprint(out, renderTable(
					[]string{"Worker", "Running", "Processed", "Failed"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight},
				))
			}
			if health.Status == "unhealthy" {
				return fmt.Errorf("console unhealthy: storage %s", health.Storage)
			}
			return nil
		},
	}
}
