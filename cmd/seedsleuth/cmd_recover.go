package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"seedsleuth/api"
	"seedsleuth/checkpoint"
	"seedsleuth/derive"
	"seedsleuth/engine"
	"seedsleuth/mnemonic"
	"seedsleuth/oracle"
	"seedsleuth/report"
	"seedsleuth/scorer"
	"seedsleuth/search"
	"seedsleuth/verify"
)

var (
	constraintsPath string
	dryRun          bool
	unitsOverride   int
)

// recoverCmd runs the full pipeline from constraint file to verdict
var recoverCmd = &cobra.Command{
	Use:   "recover",
	Short: "Run the full recovery pipeline against a constraint file",
	Long: `Filters candidate words per position from the constraint file, ranks
checksum-valid sentences by beam search, and verifies them against the
balance oracle until a funded wallet turns up or the candidate space is
exhausted.

Interrupting the run is safe: verified candidates are checkpointed and
skipped on the next invocation.`,
	RunE: runRecover,
}

func init() {
	recoverCmd.Flags().StringVar(&constraintsPath, "constraints", "", "Constraint file path (required)")
	recoverCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Derive addresses but skip balance queries")
	recoverCmd.Flags().IntVar(&unitsOverride, "units", 0, "Override configured verification units")
	recoverCmd.MarkFlagRequired("constraints")
}

func runRecover(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	constraints, err := search.LoadConstraints(constraintsPath)
	if err != nil {
		return err
	}

	dict := mnemonic.NewDictionary()
	filter := search.NewCandidateFilter(dict, cfg.Filter.Weights, cfg.Filter.ScoreThreshold)

	// Prefix positions 1..11; the final word comes from the checksum
	// enumerator, optionally narrowed by position 12's constraint.
	candidates := make([][]string, mnemonic.WordCount-1)
	for pos := 1; pos < mnemonic.WordCount; pos++ {
		scored := search.TopK(filter.Match(constraints.At(pos)), cfg.Filter.TopK)
		if len(scored) == 0 {
			return fmt.Errorf("position %d has no candidates above the score threshold", pos)
		}
		words := make([]string, len(scored))
		for i, sw := range scored {
			words[i] = sw.Word
		}
		candidates[pos-1] = words
		logger.Debug("position filtered",
			zap.Int("position", pos),
			zap.Int("candidates", len(words)))
	}

	var lastWords []string
	if last := constraints.Last(); !last.Empty() {
		for _, sw := range filter.Match(last) {
			lastWords = append(lastWords, sw.Word)
		}
		logger.Debug("final word narrowed", zap.Int("candidates", len(lastWords)))
	}

	var primary scorer.Scorer
	if cfg.Scorer.Enabled {
		zmq, err := scorer.NewZMQScorer(ctx, scorer.ZMQConfig{
			Endpoint: cfg.Scorer.Endpoint,
			Token:    cfg.Scorer.Token,
			Timeout:  cfg.Scorer.Timeout(),
		}, logger)
		if err != nil {
			return err
		}
		defer zmq.Close()
		primary = zmq
	}

	scoreInput := candidates
	if len(lastWords) > 0 {
		scoreInput = append(append([][]string{}, candidates...), lastWords)
	}
	scores, err := scorer.ScorePositions(ctx, scorer.WithFallback(primary, logger), &constraints, scoreInput)
	if err != nil {
		return err
	}

	eng, err := search.NewEngine(search.Config{
		BeamWidth:  cfg.Search.BeamWidth,
		MaxResults: cfg.Search.MaxResults,
	}, mnemonic.NewEnumerator(dict), logger)
	if err != nil {
		return err
	}

	query := search.Query{Candidates: candidates, Scores: scores, LastWords: lastWords}
	logger.Info("searching candidate space",
		zap.Float64("estimated_size", eng.SearchSpaceSize(query)),
		zap.Int("beam_width", cfg.Search.BeamWidth))

	ranked, err := eng.Search(query)
	if err != nil {
		return err
	}
	if len(ranked) == 0 {
		return fmt.Errorf("no checksum-valid sentence matches the constraints; try loosening them")
	}
	logger.Info("search complete", zap.Int("candidates", len(ranked)))

	tasks := search.BuildTasks(ranked, scores)

	runID := uuid.NewString()[:8]
	var (
		sinks  []engine.ResultSink
		resume engine.ResumeFilter
		store  *checkpoint.Store
	)
	if cfg.Checkpoint.Enabled {
		store, err = checkpoint.NewStore(cfg.Checkpoint.Dir, runID, logger)
		if err != nil {
			return err
		}
		defer store.Close()
		sinks = append(sinks, store)
		resume = store
	}
	if cfg.Report.Enabled {
		exporter, err := report.NewExporter(cfg.Report.Dir, runID, logger)
		if err != nil {
			return err
		}
		sinks = append(sinks, exporter)
	}

	deriver := derive.NewDeriver(nil, cfg.Derive.Specs())
	var client oracle.Client
	if dryRun || cfg.Oracle.DryRun {
		client = oracle.NullClient{}
		logger.Info("dry run: balances will not be queried")
	} else {
		client, err = oracle.NewHTTPClient(oracle.Config{
			Endpoints:      cfg.Oracle.Endpoints,
			Timeout:        cfg.Oracle.Timeout(),
			RequestsPerSec: cfg.Oracle.RequestsPerSec,
			Burst:          cfg.Oracle.Burst,
		}, logger)
		if err != nil {
			return err
		}
	}

	var metrics *api.Metrics
	if cfg.Metrics.Enabled {
		reg := prometheus.NewRegistry()
		metrics = api.NewMetrics(reg, "seedsleuth")
		srv := api.NewMetricsServer(cfg.Metrics.Listen, reg)
		srv.StartAsync()
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			defer cancel()
			_ = srv.Stop(sctx)
		}()
	}

	units := cfg.Recovery.Units
	if unitsOverride > 0 {
		units = unitsOverride
	}

	svc := engine.NewRecoveryService(ctx, engine.RecoveryConfig{
		RunID:            runID,
		Units:            units,
		PollInterval:     cfg.Recovery.PollInterval(),
		ProgressInterval: cfg.Recovery.ProgressInterval(),
	}, engine.RecoveryDeps{
		Verifier: verify.NewVerifier(deriver, client, logger),
		Sinks:    sinks,
		Resume:   resume,
		Metrics:  metrics,
		Logger:   logger,
	})

	found, err := svc.Run(ctx, tasks)
	if err != nil {
		return err
	}

	stats := svc.GetStats()
	if found != nil {
		fmt.Printf("\nWallet found.\n")
		fmt.Printf("  address:  %s\n", found.Address)
		fmt.Printf("  standard: %s\n", found.Standard)
		fmt.Printf("  path:     %s\n", found.Path)
		fmt.Printf("  balance:  %d sats\n", found.Balance)
		if store != nil {
			fmt.Printf("\nThe full record, including the sentence, is in %s\n", store.FoundPath())
		} else {
			fmt.Printf("\nRecovered sentence (write it down, nothing was persisted):\n  %s\n", found.Mnemonic)
		}
		return nil
	}

	fmt.Printf("\nNo funded wallet among %d candidates (%d verified, %d failed, %d skipped from earlier runs).\n",
		stats.Queue.Completed+stats.Queue.Failed+int(stats.Skipped),
		stats.Queue.Completed, stats.Queue.Failed, stats.Skipped)
	fmt.Println("Loosen the constraints or raise search.max_results to widen the net.")
	return nil
}
