package main

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"rag-console/internal/models"
	"rag-console/internal/services"
)

// writeJSON encodes v as indented JSON to the command's stdout.
func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func buildJobRows(jobs []models.JobDTO) [][]string {
	rows := make([][]string, 0, len(jobs))
	for _, job := range jobs {
		rows = append(rows, []string{
			job.JobID,
			job.DocumentID,
			job.Stage,
			job.Status,
			strconv.Itoa(job.Priority),
			strconv.Itoa(job.Progress) + "%",
			formatDisplayTime(job.ScheduledAt),
			job.Error,
		})
	}
	return rows
}

var jobHeaders = []string{"Job", "Document", "Stage", "Status", "Priority", "Progress", "Scheduled", "Error"}
var jobAligns = []columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignLeft, alignLeft}

func buildStatsRows(counts map[string]int) [][]string {
	keys := make([]string, 0, len(counts))
	for key := range counts {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	rows := make([][]string, 0, len(keys))
	for _, key := range keys {
		rows = append(rows, []string{key, strconv.Itoa(counts[key])})
	}
	return rows
}

func buildStageRows(stages []services.StageView) [][]string {
	rows := make([][]string, 0, len(stages))
	for _, st := range stages {
		name := st.Name
		if st.Optional {
			name += " (optional)"
		}
		status := string(st.EffectiveStatus)
		if st.RawStatus != st.EffectiveStatus {
			status = fmt.Sprintf("%s (raw %s)", st.EffectiveStatus, st.RawStatus)
		}
		detail := st.Reason
		if st.Error != "" {
			detail = st.Error
		}
		rows = append(rows, []string{name, status, yesNo(st.Executable), st.JobID, detail})
	}
	return rows
}

func buildDocumentRows(docs []models.DocumentDTO) [][]string {
	rows := make([][]string, 0, len(docs))
	for _, doc := range docs {
		mode := doc.ProcessingMode
		if doc.Paused {
			mode += " (paused)"
		}
		rows = append(rows, []string{
			doc.ID,
			doc.Filename,
			doc.Status,
			doc.CurrentStage + " " + doc.CurrentStageStatus,
			mode,
			formatDisplayTime(doc.UpdatedAt),
		})
	}
	return rows
}

func buildExecutionRows(executions []*models.StageExecution) [][]string {
	rows := make([][]string, 0, len(executions))
	for _, exec := range executions {
		ended := "-"
		duration := "-"
		if exec.EndedAt != nil {
			ended = exec.EndedAt.Local().Format("2006-01-02 15:04:05")
			duration = exec.EndedAt.Sub(exec.StartedAt).Round(time.Millisecond).String()
		}
		rows = append(rows, []string{
			string(exec.Stage),
			string(exec.Status),
			exec.JobID,
			exec.StartedAt.Local().Format("2006-01-02 15:04:05"),
			ended,
			duration,
			exec.Error,
		})
	}
	return rows
}

func printPipeline(cmd *cobra.Command, status *services.PipelineStatus) {
	out := cmd.OutOrStdout()
	mode := string(status.ProcessingMode)
	if status.Paused {
		mode += ", paused"
	}
	fmt.Fprintf(out, "Document %s (%s): %s [%s]\n", status.DocumentID, status.Filename, strings.ToUpper(string(status.Status)), mode)
	fmt.Fprintf(out, "Current stage: %s %s\n", status.CurrentStage, status.CurrentStageStatus)
	if status.NextStage != "" {
		fmt.Fprintf(out, "Next stage: %s\n", status.NextStage)
	}
	if status.LastStageError != "" {
		fmt.Fprintf(out, "Last error: %s\n", status.LastStageError)
	}
	fmt.Fprint(out, renderTable(
		[]string{"Stage", "Status", "Executable", "Job", "Detail"},
		buildStageRows(status.Stages),
		nil,
	))
}

func formatDisplayTime(value string) string {
	if value == "" {
		return "-"
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return value
	}
	return t.Local().Format("2006-01-02 15:04:05")
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
