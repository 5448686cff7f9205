package search

import (
	"sort"

	"seedsleuth/engine"
	"seedsleuth/mnemonic"
)

// BuildTasks converts ranked sentences into verification tasks. The
// aggregate score is recomputed from the raw per-position maps rather
// than trusted from the search stage, so a task's priority can be
// audited against the scorer output alone. Tasks come back sorted
// best first.
func BuildTasks(ranked []RankedMnemonic, scores []map[string]float64) []*engine.VerificationTask {
	tasks := make([]*engine.VerificationTask, 0, len(ranked))
	for _, r := range ranked {
		words := mnemonic.Split(r.Sentence)
		if len(words) == 0 {
			continue
		}
		total := 0.0
		for i, w := range words {
			total += wordScore(scoreMap(scores, i), w)
		}
		tasks = append(tasks, engine.NewVerificationTask(r.Sentence, total/float64(len(words))))
	}

	sort.SliceStable(tasks, func(i, j int) bool {
		if tasks[i].Score != tasks[j].Score {
			return tasks[i].Score > tasks[j].Score
		}
		return tasks[i].Mnemonic < tasks[j].Mnemonic
	})
	return tasks
}
