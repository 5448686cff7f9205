package checkpoint

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"seedsleuth/engine"
	"seedsleuth/mnemonic"
)

func testResult(sentence string, found bool) *engine.VerificationResult {
	return &engine.VerificationResult{
		Mnemonic:         sentence,
		Found:            found,
		AddressesChecked: 8,
		Duration:         1500 * time.Millisecond,
	}
}

func TestStoreAppendAndResume(t *testing.T) {
	dir := t.TempDir()

	first, err := NewStore(dir, "run1", nil)
	require.NoError(t, err)
	require.NoError(t, first.AppendResult(testResult("alpha candidate sentence", false)))
	require.NoError(t, first.AppendResult(testResult("bravo candidate sentence", false)))
	require.NoError(t, first.Close())

	second, err := NewStore(dir, "run2", nil)
	require.NoError(t, err)
	defer second.Close()

	assert.True(t, second.Seen("alpha candidate sentence"))
	assert.True(t, second.Seen("bravo candidate sentence"))
	assert.False(t, second.Seen("charlie candidate sentence"))
	assert.Equal(t, 2, second.SeenCount())
}

func TestStoreSeenWithinRun(t *testing.T) {
	store, err := NewStore(t.TempDir(), "run1", nil)
	require.NoError(t, err)
	defer store.Close()

	assert.False(t, store.Seen("alpha candidate sentence"))
	require.NoError(t, store.AppendResult(testResult("alpha candidate sentence", false)))
	assert.True(t, store.Seen("alpha candidate sentence"))
}

func TestStoreRecordFormat(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir, "run1", nil)
	require.NoError(t, err)

	sentence := "legal winner thank year wave sausage worth useful legal winner thank yellow"
	require.NoError(t, store.AppendResult(testResult(sentence, false)))
	require.NoError(t, store.Close())

	data, err := os.ReadFile(store.Path())
	require.NoError(t, err)
	line := strings.TrimSpace(string(data))

	var fields map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(line), &fields))
	for _, key := range []string{"mnemonicHash", "found", "addressesChecked", "durationMs", "timestampISO8601"} {
		assert.Contains(t, fields, key)
	}

	assert.Equal(t, mnemonic.ShortHash(sentence), fields["mnemonicHash"])
	assert.Len(t, fields["mnemonicHash"], 8)
	assert.Equal(t, float64(1500), fields["durationMs"])

	// The plaintext sentence must never reach the checkpoint.
	assert.NotContains(t, line, "sausage")
}

func TestStoreLoadsOnlyLatestFile(t *testing.T) {
	dir := t.TempDir()

	oldHash := mnemonic.ShortHash("old candidate sentence")
	newHash := mnemonic.ShortHash("new candidate sentence")
	writeCheckpointFile(t, dir, "checkpoint-20250101T000000Z-aaaa.jsonl", oldHash)
	writeCheckpointFile(t, dir, "checkpoint-20250201T000000Z-bbbb.jsonl", newHash)

	store, err := NewStore(dir, "run3", nil)
	require.NoError(t, err)
	defer store.Close()

	assert.True(t, store.Seen("new candidate sentence"))
	assert.False(t, store.Seen("old candidate sentence"))
}

func TestStoreSkipsMalformedLines(t *testing.T) {
	dir := t.TempDir()
	content := `{"mnemonicHash":"` + mnemonic.ShortHash("good candidate") + `","found":false}
this line is not json
{"unrelated":"shape"}
`
	path := filepath.Join(dir, "checkpoint-20250101T000000Z-aaaa.jsonl")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	store, err := NewStore(dir, "run1", nil)
	require.NoError(t, err)
	defer store.Close()

	assert.Equal(t, 1, store.SeenCount())
	assert.True(t, store.Seen("good candidate"))
}

func TestStoreEmptyDir(t *testing.T) {
	store, err := NewStore(t.TempDir(), "run1", nil)
	require.NoError(t, err)
	defer store.Close()

	assert.Zero(t, store.SeenCount())
}

func TestWriteFound(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir, "run1", nil)
	require.NoError(t, err)
	defer store.Close()

	sentence := "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"
	require.NoError(t, store.WriteFound(&engine.FoundWallet{
		Mnemonic: sentence,
		Address:  "1LqBGSKuX5yYUonjxT5qGfpUsXKYYWeabA",
		Path:     "m/44'/0'/0'/0/0",
		Standard: "legacy",
		Balance:  250000,
	}))

	path := filepath.Join(dir, "found-wallet-run1.json")
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	// The found-wallet record is the deliverable and carries the
	// plaintext sentence.
	assert.Contains(t, string(data), sentence)
	assert.Contains(t, string(data), "1LqBGSKuX5yYUonjxT5qGfpUsXKYYWeabA")
}

func TestWriteSummaryRedactsSentence(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir, "run1", nil)
	require.NoError(t, err)
	defer store.Close()

	sentence := "zoo zoo zoo zoo zoo zoo zoo zoo zoo zoo zoo wrong"
	sum := &engine.RunSummary{
		RunID:        "run1",
		TotalTasks:   10,
		TotalChecked: 4,
		Found: &engine.FoundWallet{
			Mnemonic: sentence,
			Address:  "bc1qexample",
			Balance:  1000,
		},
	}
	require.NoError(t, store.WriteSummary(sum))

	data, err := os.ReadFile(filepath.Join(dir, "run-summary-run1.json"))
	require.NoError(t, err)
	assert.NotContains(t, string(data), sentence)
	assert.Contains(t, string(data), mnemonic.ShortHash(sentence))

	// The caller's summary is untouched.
	assert.Equal(t, sentence, sum.Found.Mnemonic)
}

func writeCheckpointFile(t *testing.T, dir, name, hash string) {
	t.Helper()
	line := `{"mnemonicHash":"` + hash + `","found":false,"addressesChecked":8,"durationMs":100,"timestampISO8601":"2025-01-01T00:00:00Z"}` + "\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(line), 0o644))
}
