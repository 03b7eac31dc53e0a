package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/jmulder/clearcat/internal/models"
)

var (
	jobsLimit  int
	jobsResume bool
)

var jobsCmd = &cobra.Command{
	Use:   "jobs [job-id]",
	Short: "List or inspect background jobs",
	Long: `List persisted background jobs or inspect a specific job by ID.

With --resume, jobs left pending or running by an interrupted invocation
are picked up again and waited for.

Examples:
  clearcat jobs           # List recent jobs
  clearcat jobs abc123    # Show details for job abc123
  clearcat jobs --resume  # Finish interrupted jobs`,
	Args: cobra.MaximumNArgs(1),
	RunE: runJobs,
}

func init() {
	jobsCmd.Flags().IntVarP(&jobsLimit, "limit", "n", 20, "max results")
	jobsCmd.Flags().BoolVar(&jobsResume, "resume", false, "resume interrupted jobs and wait for them")
}

func runJobs(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	// If job ID provided, show that specific job
	if len(args) == 1 {
		return showJob(ctx, args[0])
	}

	if jobsResume {
		return resumeJobs(ctx)
	}

	return listJobs(ctx)
}

func resumeJobs(ctx context.Context) error {
	svc, err := getEnricher(ctx)
	if err != nil {
		return err
	}

	if err := jobManager.ResumeIncompleteJobs(ctx, reconciler, svc); err != nil {
		return fmt.Errorf("resume jobs: %w", err)
	}

	resumed := jobManager.ListJobs()
	if len(resumed) == 0 {
		fmt.Println("No incomplete jobs")
		return nil
	}

	var failed int
	for _, job := range resumed {
		fmt.Printf("Job %s (%s):\n", job.ID, job.Type)
		if err := watchJob(job, true); err != nil {
			fmt.Printf("  %v\n", err)
			failed++
		}
	}

	if failed > 0 {
		exitWithError("%d of %d resumed jobs failed", failed, len(resumed))
	}
	return nil
}

func listJobs(ctx context.Context) error {
	jobs, err := dbClient.ListJobs(ctx, jobsLimit)
	if err != nil {
		return fmt.Errorf("list jobs: %w", err)
	}

	if len(jobs) == 0 {
		fmt.Println("No jobs found")
		return nil
	}

	fmt.Printf("%-10s %-10s %-12s %-10s %s\n", "ID", "TYPE", "STATUS", "PROGRESS", "STARTED")
	fmt.Println("------------------------------------------------------------------------")

	for _, job := range jobs {
		id, err := models.RecordIDString(job.ID)
		if err != nil {
			continue
		}
		progress := ""
		if job.Total > 0 {
			progress = fmt.Sprintf("%d/%d", job.Progress, job.Total)
		}
		started := job.StartedAt.Format("15:04:05")
		fmt.Printf("%-10s %-10s %-12s %-10s %s\n", id, job.JobType, job.Status, progress, started)
	}

	return nil
}

func showJob(ctx context.Context, id string) error {
	job, err := dbClient.GetJob(ctx, id)
	if err != nil {
		return fmt.Errorf("get job: %w", err)
	}
	if job == nil {
		return fmt.Errorf("job not found: %s", id)
	}

	fmt.Printf("Job: %s\n", id)
	fmt.Printf("  Type: %s\n", job.JobType)
	fmt.Printf("  Status: %s\n", job.Status)
	if job.Total > 0 {
		fmt.Printf("  Progress: %d/%d\n", job.Progress, job.Total)
	}
	if job.BatchID != nil {
		if batchID, err := models.RecordIDString(*job.BatchID); err == nil {
			fmt.Printf("  Batch: %s\n", batchID)
		}
	}
	fmt.Printf("  Started: %s\n", job.StartedAt.Format(time.RFC3339))
	if job.CompletedAt != nil {
		fmt.Printf("  Completed: %s\n", job.CompletedAt.Format(time.RFC3339))
		duration := job.CompletedAt.Sub(job.StartedAt)
		fmt.Printf("  Duration: %s\n", duration.Round(time.Second))
	}

	if job.Error != nil && *job.Error != "" {
		fmt.Printf("  Error: %s\n", *job.Error)
	}

	if job.Result != nil {
		fmt.Println("\nResult:")
		for _, key := range []string{"created", "updated", "total", "completed", "skipped", "failed"} {
			if v, ok := job.Result[key]; ok {
				fmt.Printf("  %-10s %v\n", key, v)
			}
		}
	}

	return nil
}
