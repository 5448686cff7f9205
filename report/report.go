// Package report exports verification outcomes as Arrow IPC files so
// finished runs can be inspected with standard columnar tooling.
// Sentences appear only as short hashes, never as plaintext.
package report

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"go.uber.org/zap"

	"seedsleuth/engine"
	"seedsleuth/mnemonic"
)

// ResultSchema returns the Arrow schema for exported verification
// outcomes.
//
// Fields:
//   - mnemonic_hash: string - Short hash identifying the sentence
//   - score: float64 - Aggregate search score
//   - found: bool - Whether a funded address was hit
//   - address: string (nullable) - Funded address, if found
//   - path: string (nullable) - Derivation path of the funded address
//   - standard: string (nullable) - Address standard of the match
//   - balance: int64 - Confirmed balance in satoshis
//   - addresses_checked: int32 - Addresses derived and queried
//   - duration_ms: int64 - Verification wall time
//   - timestamp_ms: int64 - Unix milliseconds when the row was recorded
func ResultSchema() *arrow.Schema {
	return arrow.NewSchema(
		[]arrow.Field{
			{Name: "mnemonic_hash", Type: arrow.BinaryTypes.String},
			{Name: "score", Type: arrow.PrimitiveTypes.Float64},
			{Name: "found", Type: arrow.FixedWidthTypes.Boolean},
			{Name: "address", Type: arrow.BinaryTypes.String, Nullable: true},
			{Name: "path", Type: arrow.BinaryTypes.String, Nullable: true},
			{Name: "standard", Type: arrow.BinaryTypes.String, Nullable: true},
			{Name: "balance", Type: arrow.PrimitiveTypes.Int64},
			{Name: "addresses_checked", Type: arrow.PrimitiveTypes.Int32},
			{Name: "duration_ms", Type: arrow.PrimitiveTypes.Int64},
			{Name: "timestamp_ms", Type: arrow.PrimitiveTypes.Int64},
		},
		nil,
	)
}

// Row is one exported verification outcome.
type Row struct {
	MnemonicHash     string  `json:"mnemonic_hash"`
	Score            float64 `json:"score"`
	Found            bool    `json:"found"`
	Address          string  `json:"address,omitempty"`
	Path             string  `json:"path,omitempty"`
	Standard         string  `json:"standard,omitempty"`
	Balance          int64   `json:"balance"`
	AddressesChecked int32   `json:"addresses_checked"`
	DurationMs       int64   `json:"duration_ms"`
	TimestampMs      int64   `json:"timestamp_ms"`
}

// Exporter buffers result rows during a run and writes a single Arrow
// IPC file when the run summary arrives. Calls arrive serialized on
// the orchestrator's supervisory path.
type Exporter struct {
	dir   string
	runID string
	log   *zap.Logger
	alloc memory.Allocator

	rows   []Row
	closed bool
}

var _ engine.ResultSink = (*Exporter)(nil)

// NewExporter creates an exporter writing into dir, creating it if
// needed.
func NewExporter(dir, runID string, log *zap.Logger) (*Exporter, error) {
	if dir == "" {
		return nil, errors.New("report directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create report directory: %w", err)
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Exporter{
		dir:   dir,
		runID: runID,
		log:   log,
		alloc: memory.DefaultAllocator,
	}, nil
}

// Path returns the export file location for this run.
func (e *Exporter) Path() string {
	return filepath.Join(e.dir, fmt.Sprintf("results-%s.arrow", e.runID))
}

// AppendResult buffers one verification outcome.
func (e *Exporter) AppendResult(res *engine.VerificationResult) error {
	if e.closed {
		return errors.New("exporter already flushed")
	}
	e.rows = append(e.rows, Row{
		MnemonicHash:     mnemonic.ShortHash(res.Mnemonic),
		Score:            res.Score,
		Found:            res.Found,
		Address:          res.Address,
		Path:             res.Path,
		Standard:         res.Standard,
		Balance:          res.Balance,
		AddressesChecked: int32(res.AddressesChecked),
		DurationMs:       res.Duration.Milliseconds(),
		TimestampMs:      time.Now().UnixMilli(),
	})
	return nil
}

// WriteFound is a no-op for the export: the matching result already
// arrived through AppendResult and plaintext never belongs here.
func (e *Exporter) WriteFound(w *engine.FoundWallet) error {
	e.log.Info("found wallet recorded in export by hash only",
		zap.String("address", w.Address),
		zap.String("standard", w.Standard))
	return nil
}

// WriteSummary flushes all buffered rows to the run's Arrow IPC file.
func (e *Exporter) WriteSummary(s *engine.RunSummary) error {
	if e.closed {
		return nil
	}
	e.closed = true

	if len(e.rows) == 0 {
		e.log.Debug("no verification results to export", zap.String("runId", e.runID))
		return nil
	}

	rec := e.buildRecord()
	defer rec.Release()

	path := e.Path()
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create export file: %w", err)
	}

	writer := ipc.NewWriter(f, ipc.WithSchema(rec.Schema()))
	if err := writer.Write(rec); err != nil {
		writer.Close()
		f.Close()
		return fmt.Errorf("failed to write export record: %w", err)
	}
	if err := writer.Close(); err != nil {
		f.Close()
		return fmt.Errorf("failed to close export writer: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close export file: %w", err)
	}

	e.log.Info("exported verification results",
		zap.String("path", path),
		zap.Int("rows", len(e.rows)),
		zap.Int64("totalChecked", s.TotalChecked))
	return nil
}

func (e *Exporter) buildRecord() arrow.Record {
	builder := array.NewRecordBuilder(e.alloc, ResultSchema())
	defer builder.Release()

	hashBuilder := builder.Field(0).(*array.StringBuilder)
	scoreBuilder := builder.Field(1).(*array.Float64Builder)
	foundBuilder := builder.Field(2).(*array.BooleanBuilder)
	addressBuilder := builder.Field(3).(*array.StringBuilder)
	pathBuilder := builder.Field(4).(*array.StringBuilder)
	standardBuilder := builder.Field(5).(*array.StringBuilder)
	balanceBuilder := builder.Field(6).(*array.Int64Builder)
	checkedBuilder := builder.Field(7).(*array.Int32Builder)
	durationBuilder := builder.Field(8).(*array.Int64Builder)
	timestampBuilder := builder.Field(9).(*array.Int64Builder)

	for _, row := range e.rows {
		hashBuilder.Append(row.MnemonicHash)
		scoreBuilder.Append(row.Score)
		foundBuilder.Append(row.Found)

		if row.Address != "" {
			addressBuilder.Append(row.Address)
		} else {
			addressBuilder.AppendNull()
		}
		if row.Path != "" {
			pathBuilder.Append(row.Path)
		} else {
			pathBuilder.AppendNull()
		}
		if row.Standard != "" {
			standardBuilder.Append(row.Standard)
		} else {
			standardBuilder.AppendNull()
		}

		balanceBuilder.Append(row.Balance)
		checkedBuilder.Append(row.AddressesChecked)
		durationBuilder.Append(row.DurationMs)
		timestampBuilder.Append(row.TimestampMs)
	}

	return builder.NewRecord()
}

// ReadResults loads every row from an export file written by an
// Exporter.
func ReadResults(path string) ([]Row, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open export file: %w", err)
	}
	defer f.Close()

	reader, err := ipc.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("failed to create arrow reader: %w", err)
	}
	defer reader.Release()

	var rows []Row
	for reader.Next() {
		batch, err := rowsFromRecord(reader.Record())
		if err != nil {
			return nil, err
		}
		rows = append(rows, batch...)
	}
	if reader.Err() != nil {
		return nil, reader.Err()
	}
	return rows, nil
}

func rowsFromRecord(rec arrow.Record) ([]Row, error) {
	if rec.NumCols() != 10 {
		return nil, fmt.Errorf("invalid export record: expected 10 columns, got %d", rec.NumCols())
	}

	hashCol, ok := rec.Column(0).(*array.String)
	if !ok {
		return nil, errors.New("column 0 (mnemonic_hash) is not a String array")
	}
	scoreCol, ok := rec.Column(1).(*array.Float64)
	if !ok {
		return nil, errors.New("column 1 (score) is not a Float64 array")
	}
	foundCol, ok := rec.Column(2).(*array.Boolean)
	if !ok {
		return nil, errors.New("column 2 (found) is not a Boolean array")
	}
	addressCol, ok := rec.Column(3).(*array.String)
	if !ok {
		return nil, errors.New("column 3 (address) is not a String array")
	}
	pathCol, ok := rec.Column(4).(*array.String)
	if !ok {
		return nil, errors.New("column 4 (path) is not a String array")
	}
	standardCol, ok := rec.Column(5).(*array.String)
	if !ok {
		return nil, errors.New("column 5 (standard) is not a String array")
	}
	balanceCol, ok := rec.Column(6).(*array.Int64)
	if !ok {
		return nil, errors.New("column 6 (balance) is not an Int64 array")
	}
	checkedCol, ok := rec.Column(7).(*array.Int32)
	if !ok {
		return nil, errors.New("column 7 (addresses_checked) is not an Int32 array")
	}
	durationCol, ok := rec.Column(8).(*array.Int64)
	if !ok {
		return nil, errors.New("column 8 (duration_ms) is not an Int64 array")
	}
	timestampCol, ok := rec.Column(9).(*array.Int64)
	if !ok {
		return nil, errors.New("column 9 (timestamp_ms) is not an Int64 array")
	}

	out := make([]Row, rec.NumRows())
	for i := 0; i < int(rec.NumRows()); i++ {
		out[i] = Row{
			MnemonicHash:     hashCol.Value(i),
			Score:            scoreCol.Value(i),
			Found:            foundCol.Value(i),
			Balance:          balanceCol.Value(i),
			AddressesChecked: checkedCol.Value(i),
			DurationMs:       durationCol.Value(i),
			TimestampMs:      timestampCol.Value(i),
		}
		if !addressCol.IsNull(i) {
			out[i].Address = addressCol.Value(i)
		}
		if !pathCol.IsNull(i) {
			out[i].Path = pathCol.Value(i)
		}
		if !standardCol.IsNull(i) {
			out[i].Standard = standardCol.Value(i)
		}
	}
	return out, nil
}
