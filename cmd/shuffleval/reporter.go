package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/mattn/go-runewidth"

	"github.com/shuffleval/shuffleval/internal/models"
	"github.com/shuffleval/shuffleval/internal/scheduler"
)

// formatDuration formats a duration in a consistent, human-readable way.
func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	return d.Round(time.Second).String()
}

func verboseProgressListener(event scheduler.ProgressEvent) {
	switch event.EventType {
	case scheduler.EventExperimentStart:
		fmt.Printf("%s: starting %d trial(s)\n", event.ExperimentID, event.TotalTrials)
	case scheduler.EventTrialStart:
		fmt.Printf("[%d/%d] %s (attempt %d)...", event.TrialNum, event.TotalTrials, event.Task, event.Attempt)
	case scheduler.EventTrialComplete:
		icon := "✗"
		if event.Correct {
			icon = "✓"
		}
		duration := time.Duration(event.DurationMs) * time.Millisecond
		fmt.Printf(" %s (%s)\n", icon, formatDuration(duration))
	case scheduler.EventTrialSkipped:
		fmt.Printf("[%d/%d] %s [already done]\n", event.TrialNum, event.TotalTrials, event.Task)
	case scheduler.EventTrialFailed:
		fmt.Printf(" failed, queued for retry (%v)\n", event.Details["error"])
	case scheduler.EventTrialAbandoned:
		fmt.Printf(" abandoned (%v)\n", event.Details["error"])
	case scheduler.EventCooldown:
		fmt.Printf("Cooling down %vs before retrying %v failed trial(s)...\n",
			event.Details["seconds"], event.Details["queued"])
	case scheduler.EventRetryPassStart:
		fmt.Printf("Retry pass: %v trial(s)\n", event.Details["queued"])
	case scheduler.EventExperimentComplete:
		fmt.Printf("%s: %v (accuracy %.1f%%)\n\n",
			event.ExperimentID, event.Details["state"], asFloat(event.Details["accuracy"])*100)
	}
}

func simpleProgressListener(event scheduler.ProgressEvent) {
	switch event.EventType {
	case scheduler.EventTrialAbandoned:
		fmt.Printf("✗ %s %s abandoned\n", event.ExperimentID, event.Task)
	case scheduler.EventExperimentComplete:
		fmt.Printf("✓ %s: %v/%v completed, accuracy %.1f%%\n",
			event.ExperimentID, event.Details["completed"],
			asInt(event.Details["completed"])+asInt(event.Details["abandoned"]),
			asFloat(event.Details["accuracy"])*100)
	}
}

func asFloat(v any) float64 {
	f, _ := v.(float64)
	return f
}

func asInt(v any) int {
	n, _ := v.(int)
	return n
}

func printRunSummaries(summaries []*scheduler.RunSummary) {
	if len(summaries) == 0 {
		return
	}

	fmt.Println()
	fmt.Println("=" + strings.Repeat("=", 60))
	fmt.Println(" RUN RESULTS")
	fmt.Println("=" + strings.Repeat("=", 60))

	totalCompleted, totalAbandoned := 0, 0
	for _, s := range summaries {
		icon := "✓"
		if s.Abandoned > 0 {
			icon = "✗"
		}
		fmt.Printf("  %s %s\n", icon, s.ExperimentID)
		fmt.Printf("      completed %d/%d, abandoned %d, accuracy %.1f%%, %s\n",
			s.Completed, s.Total, s.Abandoned, s.Accuracy*100, formatDuration(s.Duration))
		totalCompleted += s.Completed
		totalAbandoned += s.Abandoned
	}
	fmt.Println()
	fmt.Printf("Experiments: %d | Trials completed: %d | Abandoned: %d\n",
		len(summaries), totalCompleted, totalAbandoned)
}

// statusTable renders experiment statuses as an aligned table. Alignment
// uses display width so wide characters do not skew columns.
func statusTable(statuses []*models.ExperimentStatus) string {
	headers := []string{"EXPERIMENT", "STATE", "DONE", "ABANDONED", "PENDING", "RETRY", "UPDATED"}
	rows := make([][]string, 0, len(statuses))
	for _, s := range statuses {
		rows = append(rows, []string{
			s.ExperimentID,
			string(s.State),
			fmt.Sprintf("%d/%d", s.Completed, s.TotalExpected),
			fmt.Sprintf("%d", s.Abandoned),
			fmt.Sprintf("%d", s.Pending()),
			fmt.Sprintf("%d", len(s.RetryQueue)),
			s.UpdatedAt.Local().Format("2006-01-02 15:04:05"),
		})
	}

	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = runewidth.StringWidth(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if w := runewidth.StringWidth(cell); w > widths[i] {
				widths[i] = w
			}
		}
	}

	var b strings.Builder
	writeRow := func(cells []string) {
		for i, cell := range cells {
			if i > 0 {
				b.WriteString("  ")
			}
			b.WriteString(runewidth.FillRight(cell, widths[i]))
		}
		b.WriteString("\n")
	}
	writeRow(headers)
	for _, row := range rows {
		writeRow(row)
	}
	return b.String()
}
