package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"seedsleuth/derive"
	"seedsleuth/engine"
	"seedsleuth/mnemonic"
	"seedsleuth/oracle"
	"seedsleuth/verify"
)

// StressConfig holds configuration for the throughput run.
type StressConfig struct {
	Units      int
	TaskCount  int
	AddrPerStd int
	Seed       int64
	ReportFile string
}

// StressResult holds the results of a throughput run.
type StressResult struct {
	Tasks           int64
	Addresses       int64
	TotalDuration   time.Duration
	AvgLatency      time.Duration
	MinLatency      time.Duration
	MaxLatency      time.Duration
	SentencesPerSec float64
	AddressesPerSec float64
}

func main() {
	config := parseFlags()

	fmt.Println("=== seedsleuth verification throughput ===")
	fmt.Printf("Units: %d\n", config.Units)
	fmt.Printf("Tasks: %d\n", config.TaskCount)
	fmt.Printf("Addresses per standard: %d\n", config.AddrPerStd)
	fmt.Println()

	result, err := runStress(config)
	if err != nil {
		log.Fatalf("Stress run failed: %v", err)
	}

	printResults(result)

	if config.ReportFile != "" {
		saveReport(config, result)
	}
}

func parseFlags() StressConfig {
	config := StressConfig{}

	flag.IntVar(&config.Units, "c", 8, "Number of verification units")
	flag.IntVar(&config.TaskCount, "n", 2000, "Number of candidate sentences to verify")
	flag.IntVar(&config.AddrPerStd, "a", 1, "Addresses to derive per standard")
	flag.Int64Var(&config.Seed, "seed", 42, "Sentence generator seed")
	flag.StringVar(&config.ReportFile, "o", "", "Output report file (JSON)")

	flag.Parse()

	return config
}

// runStress pushes checksum-valid synthetic sentences through the real
// derivation pipeline with a null oracle, so the numbers isolate key
// derivation and pool overhead from network time.
func runStress(config StressConfig) (StressResult, error) {
	tasks, err := generateTasks(config.TaskCount, config.Seed)
	if err != nil {
		return StressResult{}, err
	}

	deriver := derive.NewDeriver(nil, derive.DefaultPathSpecs(uint32(config.AddrPerStd)))
	verifier := verify.NewVerifier(deriver, oracle.NullClient{}, zap.NewNop())

	var (
		results    int64
		addresses  int64
		latencySum int64
		minLatency int64 = 1<<63 - 1
		maxLatency int64
	)

	pool := engine.NewWorkerPool(context.Background(), engine.PoolConfig{
		Units:        config.Units,
		PollInterval: 5 * time.Millisecond,
	}, verifier, engine.PoolCallbacks{
		OnResult: func(res *engine.VerificationResult) {
			atomic.AddInt64(&results, 1)
			atomic.AddInt64(&addresses, int64(res.AddressesChecked))

			lat := int64(res.Duration)
			atomic.AddInt64(&latencySum, lat)
			for {
				old := atomic.LoadInt64(&minLatency)
				if lat >= old || atomic.CompareAndSwapInt64(&minLatency, old, lat) {
					break
				}
			}
			for {
				old := atomic.LoadInt64(&maxLatency)
				if lat <= old || atomic.CompareAndSwapInt64(&maxLatency, old, lat) {
					break
				}
			}
		},
	}, zap.NewNop())

	start := time.Now()
	pool.SubmitTasks(tasks)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()
	if err := pool.WaitForCompletion(ctx); err != nil {
		pool.Shutdown()
		return StressResult{}, err
	}
	pool.Shutdown()
	duration := time.Since(start)

	total := atomic.LoadInt64(&results)
	var avgLatency time.Duration
	if total > 0 {
		avgLatency = time.Duration(latencySum / total)
	}

	return StressResult{
		Tasks:           total,
		Addresses:       atomic.LoadInt64(&addresses),
		TotalDuration:   duration,
		AvgLatency:      avgLatency,
		MinLatency:      time.Duration(atomic.LoadInt64(&minLatency)),
		MaxLatency:      time.Duration(atomic.LoadInt64(&maxLatency)),
		SentencesPerSec: float64(total) / duration.Seconds(),
		AddressesPerSec: float64(atomic.LoadInt64(&addresses)) / duration.Seconds(),
	}, nil
}

// generateTasks builds checksum-valid sentences from random prefixes
// so every task takes the full derivation path.
func generateTasks(n int, seed int64) ([]*engine.VerificationTask, error) {
	dict := mnemonic.NewDictionary()
	enum := mnemonic.NewEnumerator(dict)
	words := dict.Words()
	rng := rand.New(rand.NewSource(seed))

	tasks := make([]*engine.VerificationTask, 0, n)
	for i := 0; i < n; i++ {
		prefix := make([]string, mnemonic.WordCount-1)
		for j := range prefix {
			prefix[j] = words[rng.Intn(len(words))]
		}
		valid, err := enum.ValidLastWords(prefix)
		if err != nil {
			return nil, err
		}
		sentence := mnemonic.Join(append(prefix, valid[rng.Intn(len(valid))]))
		tasks = append(tasks, engine.NewVerificationTask(sentence, rng.Float64()))
	}
	return tasks, nil
}

func printResults(result StressResult) {
	fmt.Println("=== Results ===")
	fmt.Printf("Duration:        %v\n", result.TotalDuration.Round(time.Millisecond))
	fmt.Printf("Sentences:       %d\n", result.Tasks)
	fmt.Printf("Addresses:       %d\n", result.Addresses)
	fmt.Printf("Sentences/sec:   %.2f\n", result.SentencesPerSec)
	fmt.Printf("Addresses/sec:   %.2f\n", result.AddressesPerSec)
	fmt.Printf("Avg Latency:     %v\n", result.AvgLatency.Round(time.Microsecond))
	fmt.Printf("Min Latency:     %v\n", result.MinLatency.Round(time.Microsecond))
	fmt.Printf("Max Latency:     %v\n", result.MaxLatency.Round(time.Microsecond))
}

func saveReport(config StressConfig, result StressResult) {
	report := map[string]interface{}{
		"config": map[string]interface{}{
			"units":             config.Units,
			"tasks":             config.TaskCount,
			"addresses_per_std": config.AddrPerStd,
			"seed":              config.Seed,
		},
		"results": map[string]interface{}{
			"sentences":         result.Tasks,
			"addresses":         result.Addresses,
			"sentences_per_sec": result.SentencesPerSec,
			"addresses_per_sec": result.AddressesPerSec,
			"avg_latency_ms":    float64(result.AvgLatency.Microseconds()) / 1000,
			"min_latency_ms":    float64(result.MinLatency.Microseconds()) / 1000,
			"max_latency_ms":    float64(result.MaxLatency.Microseconds()) / 1000,
		},
		"timestamp": time.Now().Format(time.RFC3339),
	}

	data, _ := json.MarshalIndent(report, "", "  ")
	if err := os.WriteFile(config.ReportFile, data, 0644); err != nil {
		log.Printf("Failed to write report: %v", err)
	} else {
		fmt.Printf("Report saved to: %s\n", config.ReportFile)
	}
}
