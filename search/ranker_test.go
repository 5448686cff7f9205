package search

import (
	"math"
	"testing"
)

func TestBuildTasksRecomputesScores(t *testing.T) {
	ranked := []RankedMnemonic{{Sentence: "zoo wrong legal", Score: 0.99}}
	scores := []map[string]float64{
		{"zoo": 1.0},
		{"wrong": 0.5},
	}

	tasks := BuildTasks(ranked, scores)
	if len(tasks) != 1 {
		t.Fatalf("Expected 1 task, got %d", len(tasks))
	}

	// legal has no score map entry and falls back to the default.
	want := (1.0 + 0.5 + UnscoredDefault) / 3
	if math.Abs(tasks[0].Score-want) > 1e-9 {
		t.Errorf("Expected recomputed score %f, got %f", want, tasks[0].Score)
	}
	if tasks[0].Mnemonic != "zoo wrong legal" {
		t.Errorf("Expected the sentence to carry over, got %q", tasks[0].Mnemonic)
	}
}

func TestBuildTasksOrdering(t *testing.T) {
	ranked := []RankedMnemonic{
		{Sentence: "zoo"},
		{Sentence: "legal"},
		{Sentence: "abandon"},
	}
	scores := []map[string]float64{
		{"zoo": 0.2, "legal": 0.8, "abandon": 0.8},
	}

	tasks := BuildTasks(ranked, scores)
	if len(tasks) != 3 {
		t.Fatalf("Expected 3 tasks, got %d", len(tasks))
	}

	want := []string{"abandon", "legal", "zoo"}
	for i, expected := range want {
		if tasks[i].Mnemonic != expected {
			t.Errorf("Expected %q at position %d, got %q", expected, i, tasks[i].Mnemonic)
		}
	}
}

func TestBuildTasksEmpty(t *testing.T) {
	if tasks := BuildTasks(nil, nil); len(tasks) != 0 {
		t.Errorf("Expected no tasks, got %d", len(tasks))
	}
}
