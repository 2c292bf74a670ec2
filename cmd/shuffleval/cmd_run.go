package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/shuffleval/shuffleval/internal/config"
	"github.com/shuffleval/shuffleval/internal/dataset"
	"github.com/shuffleval/shuffleval/internal/executor"
	"github.com/shuffleval/shuffleval/internal/models"
	"github.com/shuffleval/shuffleval/internal/providers"
	"github.com/shuffleval/shuffleval/internal/scheduler"
	"github.com/shuffleval/shuffleval/internal/store"
	"github.com/shuffleval/shuffleval/internal/validation"
)

var (
	subtasks      []string
	modelName     string
	langEN        bool
	langFR        bool
	formats       []string
	permMode      string
	permCount     int
	numQuestions  int
	startQuestion int
	callDelay     int
	cooldown      int
	timeoutSecs   int
	resultsDir    string
	dataDir       string
	parallel      int
	dryRun        bool
	verbose       bool
)

func newRunCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [experiment.yaml]",
		Short: "Run one or more option-order experiments",
		Long: `Run experiments, either from an experiment YAML file or from selector flags.

Selectors expand into independent experiments: one per
(subtask, language, format pair) combination. Each experiment runs every
question under every option ordering, with one retry pass for transport
failures. Interrupted runs resume from their persisted state.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runCommandE,
	}

	cmd.Flags().StringSliceVar(&subtasks, "subtask", nil, "Subtask(s) to run (comma-separated or repeated)")
	cmd.Flags().StringVar(&modelName, "model", "gemini-2.0-flash-lite", "Model name (gemini-*, mistral-*, or mock)")
	cmd.Flags().BoolVar(&langEN, "en", false, "Run English questions (default when no language flag is set)")
	cmd.Flags().BoolVar(&langFR, "fr", false, "Run French questions")
	cmd.Flags().StringSliceVar(&formats, "format", nil, `Format pair(s) "input/output", a bare format, or "all" (default base/base)`)
	cmd.Flags().StringVar(&permMode, "permutation", "circular", "Permutation mode: circular | factorial")
	cmd.Flags().IntVar(&permCount, "perm-count", 0, "Number of permutations (factorial mode: 1-24; circular: fixed at 4)")
	cmd.Flags().IntVar(&numQuestions, "num-questions", 100, "Number of questions per experiment")
	cmd.Flags().IntVar(&startQuestion, "start-question", 0, "First question index (0-based)")
	cmd.Flags().IntVar(&callDelay, "delay", models.DefaultCallDelaySeconds, "Seconds between API calls")
	cmd.Flags().IntVar(&cooldown, "cooldown", models.DefaultRetryCooldownSeconds, "Seconds to wait before the retry pass")
	cmd.Flags().IntVar(&timeoutSecs, "timeout", models.DefaultTimeoutSeconds, "Per-call timeout in seconds")
	cmd.Flags().StringVar(&resultsDir, "results-dir", "results", "Directory for experiment output")
	cmd.Flags().StringVar(&dataDir, "data-dir", "data", "Directory holding question banks")
	cmd.Flags().IntVar(&parallel, "parallel", 1, "Number of experiments to run concurrently")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Enumerate trials without calling any API")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output with per-trial progress")

	return cmd
}

func runCommandE(cmd *cobra.Command, args []string) error {
	matrix, err := collectMatrix(args)
	if err != nil {
		return err
	}

	specs, err := matrix.Expand()
	if err != nil {
		return err
	}

	cfg := config.NewRunConfig(
		config.WithResultsDir(resultsDir),
		config.WithDataDir(dataDir),
		config.WithParallel(parallel),
		config.WithVerbose(verbose),
		config.WithDryRun(dryRun),
	)

	if cfg.DryRun() {
		return printDryRun(specs, cfg)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Printf("Running %d experiment(s)\n", len(specs))
	fmt.Printf("Model: %s\n", matrix.Model)
	fmt.Printf("Results: %s\n", cfg.ResultsDir())
	if cfg.Parallel() > 1 {
		fmt.Printf("Parallel: %d experiments\n", cfg.Parallel())
	}
	fmt.Println()

	var (
		mu        sync.Mutex
		summaries []*scheduler.RunSummary
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Parallel())
	for _, spec := range specs {
		g.Go(func() error {
			summary, err := runExperiment(gctx, spec, cfg, false)
			if err != nil {
				return err
			}
			mu.Lock()
			summaries = append(summaries, summary)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		if errors.Is(err, context.Canceled) {
			fmt.Println("\nInterrupted. Progress saved; run the same command again to resume.")
		}
		return err
	}

	printRunSummaries(summaries)

	abandoned := 0
	for _, s := range summaries {
		abandoned += s.Abandoned
	}
	if abandoned > 0 {
		return &AbandonedTrialsError{
			Message: fmt.Sprintf("%d trial(s) abandoned after retry; use 'shuffleval retry' to re-run them", abandoned),
		}
	}
	return nil
}

// collectMatrix builds the experiment matrix from the YAML file argument,
// or from selector flags when no file is given.
func collectMatrix(args []string) (*models.ExperimentMatrix, error) {
	if len(args) == 1 {
		violations, err := validation.ValidateExperimentFile(args[0])
		if err != nil {
			return nil, err
		}
		if len(violations) > 0 {
			return nil, models.NewConfigError("experiment file %s is invalid:\n  %s",
				args[0], strings.Join(violations, "\n  "))
		}
		return models.LoadExperimentMatrix(args[0])
	}

	if len(subtasks) == 0 {
		return nil, models.NewConfigError("at least one --subtask is required (or pass an experiment YAML file)")
	}

	matrix := &models.ExperimentMatrix{
		Subtasks:  subtasks,
		Model:     modelName,
		Languages: selectedLanguages(),
		Formats:   formats,
	}
	matrix.Permutation.Mode = permMode
	matrix.Permutation.Count = permCount
	matrix.Questions.Count = numQuestions
	matrix.Questions.Start = startQuestion
	matrix.Pacing.CallDelaySeconds = &callDelay
	matrix.Pacing.RetryCooldownSeconds = &cooldown
	matrix.TimeoutSeconds = &timeoutSecs
	return matrix, nil
}

func selectedLanguages() []string {
	var languages []string
	if langEN || !langFR {
		languages = append(languages, models.LanguageEN)
	}
	if langFR {
		languages = append(languages, models.LanguageFR)
	}
	return languages
}

// runExperiment wires one experiment together and runs it (or just its
// retry queue when retryOnly is set).
func runExperiment(ctx context.Context, spec *models.ExperimentSpec, cfg *config.RunConfig, retryOnly bool) (*scheduler.RunSummary, error) {
	questions, err := dataset.LoadRange(cfg.DataDir(), spec.Subtask, spec.Language, spec.StartQuestion, spec.NumQuestions)
	if err != nil {
		return nil, err
	}

	opts, err := providers.DecodeOptions(spec.ProviderOptions)
	if err != nil {
		return nil, err
	}
	client, err := providers.ForModel(spec.Model, opts, spec.Timeout)
	if err != nil {
		return nil, err
	}

	st, err := store.Open(cfg.ResultsDir(), spec.ID())
	if err != nil {
		return nil, err
	}
	defer st.Close() //nolint:errcheck

	sched, err := scheduler.New(spec, questions, executor.New(client), st)
	if err != nil {
		return nil, err
	}

	if cfg.Verbose() {
		sched.OnProgress(verboseProgressListener)
	} else {
		sched.OnProgress(simpleProgressListener)
	}

	if retryOnly {
		return sched.RetryOnly(ctx)
	}
	return sched.Run(ctx)
}

func printDryRun(specs []*models.ExperimentSpec, cfg *config.RunConfig) error {
	totalTrials := 0
	for _, spec := range specs {
		questions, err := dataset.LoadRange(cfg.DataDir(), spec.Subtask, spec.Language, spec.StartQuestion, spec.NumQuestions)
		if err != nil {
			return err
		}

		// No store: a dry run must leave the results directory untouched.
		sched, err := scheduler.New(spec, questions, nil, nil)
		if err != nil {
			return err
		}
		trials := sched.Enumerate()

		fmt.Printf("%s: %d trials (%d questions x %d orderings)\n",
			spec.ID(), len(trials), len(questions), len(trials)/max(len(questions), 1))
		if cfg.Verbose() {
			for _, trial := range trials {
				fmt.Printf("  %-10s %s  %s\n", trial.Task(), trial.PermutationLabel, trial.ID())
			}
		}
		totalTrials += len(trials)
	}
	fmt.Printf("\nDry run: %d experiment(s), %d trial(s). No API calls made.\n", len(specs), totalTrials)
	return nil
}
