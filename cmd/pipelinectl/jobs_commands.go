package main

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"rag-console/internal/handlers"
	"rag-console/internal/models"
)

func newJobsCommand(ctx *commandContext) *cobra.Command {
	jobsCmd := &cobra.Command{
		Use:   "jobs",
		Short: "Inspect and manage the stage job queue",
	}

	jobsCmd.AddCommand(newJobsListCommand(ctx))
	jobsCmd.AddCommand(newJobsCandidatesCommand(ctx))
	jobsCmd.AddCommand(newJobsShowCommand(ctx))
	jobsCmd.AddCommand(newJobsCreateCommand(ctx))
	jobsCmd.AddCommand(newJobsClaimCommand(ctx))
	jobsCmd.AddCommand(newJobsStatsCommand(ctx))

	return jobsCmd
}

func newJobsListCommand(ctx *commandContext) *cobra.Command {
	var statuses []string
	var documentID, stage string
	var limit, offset int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List jobs in queue order",
		RunE: func(cmd *cobra.Command, args []string) error {
			query := url.Values{}
			if len(statuses) > 0 {
				query.Set("status", strings.Join(statuses, ","))
			}
			if documentID != "" {
				query.Set("document_id", documentID)
			}
			if stage != "" {
				query.Set("stage", stage)
			}
			query.Set("limit", strconv.Itoa(limit))
			if offset > 0 {
				query.Set("offset", strconv.Itoa(offset))
			}

			var resp handlers.JobListResponse
			if err := ctx.client().get(cmd.Context(), "/api/v1/jobs", query, &resp); err != nil {
				return err
			}
			return printJobs(cmd, ctx, resp)
		},
	}

	cmd.Flags().StringSliceVarP(&statuses, "status", "s", nil, "Filter by status (repeatable)")
	cmd.Flags().StringVar(&documentID, "document", "", "Filter by document ID")
	cmd.Flags().StringVar(&stage, "stage", "", "Filter by stage")
	cmd.Flags().IntVar(&limit, "limit", 100, "Maximum number of jobs")
	cmd.Flags().IntVar(&offset, "offset", 0, "Skip this many jobs")
	return cmd
}

func newJobsCandidatesCommand(ctx *commandContext) *cobra.Command {
	var documentID, stage string
	var limit int

	cmd := &cobra.Command{
		Use:   "candidates",
		Short: "Show the jobs a worker would dequeue next",
		RunE: func(cmd *cobra.Command, args []string) error {
			query := url.Values{"limit": {strconv.Itoa(limit)}}
			if documentID != "" {
				query.Set("document_id", documentID)
			}
			if stage != "" {
				query.Set("stage", stage)
			}

			var resp handlers.JobListResponse
			if err := ctx.client().get(cmd.Context(), "/api/v1/jobs/candidates", query, &resp); err != nil {
				return err
			}
			return printJobs(cmd, ctx, resp)
		},
	}

	cmd.Flags().StringVar(&documentID, "document", "", "Filter by document ID")
	cmd.Flags().StringVar(&stage, "stage", "", "Filter by stage")
	cmd.Flags().IntVar(&limit, "limit", 10, "Maximum number of candidates")
	return cmd
}

func newJobsShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <job-id>",
		Short: "Show one job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var job models.JobDTO
			if err := ctx.client().get(cmd.Context(), "/api/v1/jobs/"+url.PathEscape(args[0]), nil, &job); err != nil {
				return err
			}
			return printJob(cmd, ctx, job)
		},
	}
}

func newJobsCreateCommand(ctx *commandContext) *cobra.Command {
	var priority int
	var delay time.Duration
	var requestedBy string

	cmd := &cobra.Command{
		Use:   "create <document-id> <stage>",
		Short: "Enqueue a single stage job",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := handlers.CreateJobRequest{
				DocumentID:  args[0],
				Stage:       args[1],
				RequestedBy: requestedBy,
			}
			if cmd.Flags().Changed("priority") {
				req.Priority = &priority
			}
			if delay > 0 {
				at := time.Now().Add(delay)
				req.ScheduledAt = &at
			}

			var job models.JobDTO
			if err := ctx.client().post(cmd.Context(), "/api/v1/jobs", req, &job); err != nil {
				return err
			}
			if ctx.jsonOutput() {
				return writeJSON(cmd, job)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Enqueued job %s (%s for %s, priority %d)\n", job.JobID, job.Stage, job.DocumentID, job.Priority)
			return nil
		},
	}

	cmd.Flags().IntVarP(&priority, "priority", "p", 5, "Job priority, higher runs first")
	cmd.Flags().DurationVar(&delay, "delay", 0, "Schedule the job this far in the future")
	cmd.Flags().StringVar(&requestedBy, "requested-by", "", "Who asked for the run")
	return cmd
}

func newJobsClaimCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "claim <job-id>",
		Short: "Claim a pending job for processing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var job models.JobDTO
			if err := ctx.client().post(cmd.Context(), "/api/v1/jobs/"+url.PathEscape(args[0])+"/claim", nil, &job); err != nil {
				return err
			}
			return printJob(cmd, ctx, job)
		},
	}
}

func newJobsStatsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show job counts by status and stage",
		RunE: func(cmd *cobra.Command, args []string) error {
			var stats models.JobStatsDTO
			if err := ctx.client().get(cmd.Context(), "/api/v1/jobs/stats", nil, &stats); err != nil {
				return err
			}
			if ctx.jsonOutput() {
				return writeJSON(cmd, stats)
			}

			out := cmd.OutOrStdout()
			if stats.TotalJobs == 0 {
				fmt.Fprintln(out, "Queue is empty")
				return nil
			}
			fmt.Fprintf(out, "Total jobs: %d, success rate %.1f%%, average time %s\n", stats.TotalJobs, stats.SuccessRate, stats.AverageTime)
			fmt.Fprint(out, renderTable([]string{"Status", "Count"}, buildStatsRows(stats.JobsByStatus), []columnAlignment{alignLeft, alignRight}))
			fmt.Fprint(out, renderTable([]string{"Stage", "Count"}, buildStatsRows(stats.JobsByStage), []columnAlignment{alignLeft, alignRight}))
			return nil
		},
	}
}

func printJobs(cmd *cobra.Command, ctx *commandContext, resp handlers.JobListResponse) error {
	if ctx.jsonOutput() {
		return writeJSON(cmd, resp)
	}
	if resp.Count == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No jobs")
		return nil
	}
	fmt.Fprint(cmd.OutOrStdout(), renderTable(jobHeaders, buildJobRows(resp.Jobs), jobAligns))
	return nil
}

func printJob(cmd *cobra.Command, ctx *commandContext, job models.JobDTO) error {
	if ctx.jsonOutput() {
		return writeJSON(cmd, job)
	}
	fmt.Fprint(cmd.OutOrStdout(), renderTable(jobHeaders, buildJobRows([]models.JobDTO{job}), jobAligns))
	return nil
}
