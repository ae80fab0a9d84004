package main

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"rag-console/internal/handlers"
	"rag-console/internal/services"
)

func newDocumentCommand(ctx *commandContext) *cobra.Command {
	docCmd := &cobra.Command{
		Use:     "doc",
		Aliases: []string{"document", "documents"},
		Short:   "Drive a document's pipeline",
	}

	docCmd.AddCommand(newDocumentListCommand(ctx))
	docCmd.AddCommand(newDocumentRegisterCommand(ctx))
	docCmd.AddCommand(newDocumentStatusCommand(ctx))
	docCmd.AddCommand(newDocumentExecuteCommand(ctx, "execute", "Run one stage", "execute"))
	docCmd.AddCommand(newDocumentExecuteCommand(ctx, "chain", "Run a stage and continue through the pipeline", "chain"))
	docCmd.AddCommand(newDocumentResetCommand(ctx))
	docCmd.AddCommand(newDocumentModeCommand(ctx))
	docCmd.AddCommand(newDocumentPauseCommand(ctx, "pause", true))
	docCmd.AddCommand(newDocumentPauseCommand(ctx, "resume", false))
	docCmd.AddCommand(newDocumentExecutionsCommand(ctx))

	return docCmd
}

func documentPath(id string, parts ...string) string {
	path := "/api/v1/documents/" + url.PathEscape(id)
	for _, part := range parts {
		path += "/" + url.PathEscape(part)
	}
	return path
}

func newDocumentListCommand(ctx *commandContext) *cobra.Command {
	var status, mode string
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List registered documents",
		RunE: func(cmd *cobra.Command, args []string) error {
			query := url.Values{"limit": {strconv.Itoa(limit)}}
			if status != "" {
				query.Set("status", status)
			}
			if mode != "" {
				query.Set("processing_mode", mode)
			}

			var resp handlers.DocumentListResponse
			if err := ctx.client().get(cmd.Context(), "/api/v1/documents", query, &resp); err != nil {
				return err
			}
			if ctx.jsonOutput() {
				return writeJSON(cmd, resp)
			}
			if resp.Count == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No documents")
				return nil
			}
			fmt.Fprint(cmd.OutOrStdout(), renderTable(
				[]string{"Document", "Filename", "Status", "Current", "Mode", "Updated"},
				buildDocumentRows(resp.Documents),
				nil,
			))
			return nil
		},
	}

	cmd.Flags().StringVar(&status, "status", "", "Filter by aggregate status")
	cmd.Flags().StringVar(&mode, "mode", "", "Filter by processing mode")
	cmd.Flags().IntVar(&limit, "limit", 100, "Maximum number of documents")
	return cmd
}

func newDocumentRegisterCommand(ctx *commandContext) *cobra.Command {
	var documentID, mode string
	var optional []string

	cmd := &cobra.Command{
		Use:   "register <filename>",
		Short: "Register an uploaded document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := handlers.RegisterDocumentRequest{
				DocumentID:            documentID,
				Filename:              args[0],
				ProcessingMode:        strings.ToUpper(mode),
				EnabledOptionalStages: optional,
			}
			var status services.PipelineStatus
			if err := ctx.client().post(cmd.Context(), "/api/v1/documents", req, &status); err != nil {
				return err
			}
			if ctx.jsonOutput() {
				return writeJSON(cmd, status)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Registered document %s\n", status.DocumentID)
			return nil
		},
	}

	cmd.Flags().StringVar(&documentID, "id", "", "Document ID (generated when empty)")
	cmd.Flags().StringVar(&mode, "mode", "", "Processing mode: manual or automatic")
	cmd.Flags().StringSliceVar(&optional, "enable", nil, "Optional stages to enable, e.g. optimize")
	return cmd
}

func newDocumentStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status <document-id>",
		Short: "Show the pipeline of a document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var status services.PipelineStatus
			if err := ctx.client().get(cmd.Context(), documentPath(args[0], "pipeline"), nil, &status); err != nil {
				return err
			}
			if ctx.jsonOutput() {
				return writeJSON(cmd, status)
			}
			printPipeline(cmd, &status)
			return nil
		},
	}
}

func newDocumentExecuteCommand(ctx *commandContext, use, short, action string) *cobra.Command {
	var priority int
	var delay time.Duration
	var requestedBy string

	cmd := &cobra.Command{
		Use:   use + " <document-id> <stage>",
		Short: short,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := handlers.ExecuteStageRequest{RequestedBy: requestedBy}
			if cmd.Flags().Changed("priority") {
				req.Priority = &priority
			}
			if delay > 0 {
				at := time.Now().Add(delay)
				req.ScheduledAt = &at
			}

			var resp handlers.ExecuteResponse
			if err := ctx.client().post(cmd.Context(), documentPath(args[0], "stages", args[1], action), req, &resp); err != nil {
				return err
			}
			return printExecuteResponse(cmd, ctx, resp)
		},
	}

	cmd.Flags().IntVarP(&priority, "priority", "p", 5, "Job priority, higher runs first")
	cmd.Flags().DurationVar(&delay, "delay", 0, "Schedule the job this far in the future")
	cmd.Flags().StringVar(&requestedBy, "requested-by", "", "Who asked for the run")
	return cmd
}

func newDocumentResetCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "reset <document-id> <stage>",
		Short: "Reset a stage and everything after it to PENDING",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var status services.PipelineStatus
			if err := ctx.client().post(cmd.Context(), documentPath(args[0], "stages", args[1], "reset"), nil, &status); err != nil {
				return err
			}
			if ctx.jsonOutput() {
				return writeJSON(cmd, status)
			}
			printPipeline(cmd, &status)
			return nil
		},
	}
}

func newDocumentModeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:       "mode <document-id> <manual|automatic>",
		Short:     "Switch a document between manual and automatic processing",
		Args:      cobra.ExactArgs(2),
		ValidArgs: []string{"manual", "automatic"},
		RunE: func(cmd *cobra.Command, args []string) error {
			req := handlers.ModeRequest{ProcessingMode: strings.ToUpper(args[1])}
			var resp handlers.ExecuteResponse
			if err := ctx.client().put(cmd.Context(), documentPath(args[0], "mode"), req, &resp); err != nil {
				return err
			}
			return printExecuteResponse(cmd, ctx, resp)
		},
	}
}

func newDocumentPauseCommand(ctx *commandContext, use string, paused bool) *cobra.Command {
	short := "Pause automatic continuation for a document"
	if !paused {
		short = "Resume a paused document"
	}
	return &cobra.Command{
		Use:   use + " <document-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var resp handlers.ExecuteResponse
			if err := ctx.client().put(cmd.Context(), documentPath(args[0], "pause"), handlers.PauseRequest{Paused: paused}, &resp); err != nil {
				return err
			}
			return printExecuteResponse(cmd, ctx, resp)
		},
	}
}

func newDocumentExecutionsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "executions <document-id>",
		Short: "Show the stage execution history of a document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var resp handlers.ExecutionListResponse
			if err := ctx.client().get(cmd.Context(), documentPath(args[0], "executions"), nil, &resp); err != nil {
				return err
			}
			if ctx.jsonOutput() {
				return writeJSON(cmd, resp)
			}
			if resp.Count == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No executions")
				return nil
			}
			fmt.Fprint(cmd.OutOrStdout(), renderTable(
				[]string{"Stage", "Status", "Job", "Started", "Ended", "Duration", "Error"},
				buildExecutionRows(resp.Executions),
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
			))
			return nil
		},
	}
}

func printExecuteResponse(cmd *cobra.Command, ctx *commandContext, resp handlers.ExecuteResponse) error {
	if ctx.jsonOutput() {
		return writeJSON(cmd, resp)
	}
	if resp.Job != nil {
		fmt.Fprintf(cmd.OutOrStdout(), "Enqueued job %s (%s, priority %d)\n", resp.Job.JobID, resp.Job.Stage, resp.Job.Priority)
	} else {
		fmt.Fprintln(cmd.OutOrStdout(), "No job enqueued")
	}
	if resp.Pipeline != nil {
		printPipeline(cmd, resp.Pipeline)
	}
	return nil
}
