package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"notes-backend/internal/analyses"
	"notes-backend/internal/llm"
	"notes-backend/internal/shared/config"
	"notes-backend/internal/workerproc"
)

type runOutput struct {
	Status      analyses.Status `json:"status"`
	Summary     string          `json:"summary,omitempty"`
	KeyPoints   []string        `json:"keyPoints,omitempty"`
	MissingInfo []string        `json:"missingInfo,omitempty"`
	NextActions []string        `json:"nextActions,omitempty"`
	Error       string          `json:"error,omitempty"`
	Retryable   bool            `json:"retryable,omitempty"`
}

func newRunCmd(cfg config.Config, newClient clientFactory) *cobra.Command {
	var (
		inFile    string
		model     string
		softLimit time.Duration
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one analysis against the configured model and print the result as JSON",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			notes, err := readNotes(ctx, inFile, cmd.InOrStdin())
			if err != nil {
				return err
			}
			client, err := newClient(cfg, model)
			if err != nil {
				return fmt.Errorf("llm client: %w", err)
			}

			out, err := runOnce(ctx, cfg, client, model, notes, softLimit)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		},
	}
	cmd.Flags().StringVarP(&inFile, "in", "i", "", "Path to notes file (txt, md, pdf, docx); stdin when empty")
	cmd.Flags().StringVar(&model, "model", cfg.LLMModel, "Model name")
	cmd.Flags().DurationVar(&softLimit, "soft-limit", cfg.Worker.SoftTimeLimit, "Soft time limit for the attempt")
	return cmd
}

// runOnce drives the same task the worker runs, backed by an in-memory record.
func runOnce(ctx context.Context, cfg config.Config, client llm.Client, model, notes string, softLimit time.Duration) (runOutput, error) {
	repo := analyses.NewMemoryRepo()
	record, err := repo.Create(ctx, analyses.Analysis{RawText: notes, Status: analyses.StatusPending})
	if err != nil {
		return runOutput{}, err
	}

	task := &analyses.Task{
		Repo:            repo,
		LLM:             client,
		Model:           model,
		MaxOutputTokens: cfg.LLMMaxOutputTokens,
		Temperature:     llm.Float64(cfg.LLMTemperature),
	}
	attemptCtx, cancel := workerproc.WithSoftTimeLimit(ctx, softLimit)
	defer cancel()
	procErr := task.ProcessAnalysis(attemptCtx, record.ID)

	stored, err := repo.GetByID(ctx, record.ID)
	if err != nil {
		return runOutput{}, err
	}
	out := runOutput{Status: stored.Status, Error: stored.Error, Retryable: procErr != nil}
	if stored.Status == analyses.StatusCompleted {
		out.Summary = stored.Summary
		out.KeyPoints = stored.KeyPoints
		out.MissingInfo = stored.MissingInfo
		out.NextActions = stored.NextActions
	}
	return out, nil
}
