// Package history persists evaluation runs in a local SQLite database so
// training progress and best checkpoints survive process restarts and can
// be compared across experiments.
package history

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	changedet "github.com/terralab/go-changedet"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	run_id       TEXT PRIMARY KEY,
	split        TEXT NOT NULL,
	num_classes  INTEGER NOT NULL,
	ignore_label INTEGER NOT NULL,
	started_at   TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS epochs (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id       TEXT NOT NULL,
	epoch        INTEGER NOT NULL,
	acc          REAL NOT NULL,
	miou         REAL NOT NULL,
	kappa        REAL,
	class_iou    TEXT NOT NULL,
	class_acc    TEXT NOT NULL,
	class_f1     TEXT NOT NULL,
	pixels       INTEGER NOT NULL,
	saved        INTEGER NOT NULL DEFAULT 0,
	created_at   TEXT NOT NULL,
	FOREIGN KEY (run_id) REFERENCES runs(run_id)
);

CREATE TABLE IF NOT EXISTS bests (
	run_id       TEXT PRIMARY KEY,
	epoch        INTEGER NOT NULL,
	value        REAL NOT NULL,
	checkpoint   TEXT NOT NULL,
	FOREIGN KEY (run_id) REFERENCES runs(run_id)
);
`

// Store records evaluation runs, per epoch metrics and the best
// checkpoint in a SQLite database
type Store struct {
	db *sql.DB
}

// EpochRecord is a single epochs metrics loaded back from the store.
// Saved reports whether the tracker selected the epoch as new best
type EpochRecord struct {
	Epoch  int
	Saved  bool
	Result changedet.EvaluationResult
}

// RunRecord describes a recorded evaluation run
type RunRecord struct {
	RunID      string
	Split      string
	NumClasses int
	StartedAt  time.Time
}

// Open opens the SQLite database at the given path and creates the
// schema if needed
func Open(dbPath string) (*Store, error) {

	db, err := sql.Open("sqlite", dbPath)

	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("pragma: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		return nil, fmt.Errorf("pragma fk: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// StartRun registers a new evaluation run and returns its identifier
func (s *Store) StartRun(split string, cfg changedet.Config) (string, error) {

	id := uuid.New().String()
	now := time.Now().UTC().Format(time.RFC3339Nano)

	_, err := s.db.Exec(
		`INSERT INTO runs (run_id, split, num_classes, ignore_label,
			started_at)
		 VALUES (?, ?, ?, ?, ?)`,
		id, split, cfg.NumClasses, cfg.IgnoreLabel, now,
	)

	if err != nil {
		return "", fmt.Errorf("insert run: %w", err)
	}

	return id, nil
}

// Runs lists the most recently started runs, newest first
func (s *Store) Runs(limit int) ([]RunRecord, error) {

	rows, err := s.db.Query(
		`SELECT run_id, split, num_classes, started_at
		 FROM runs ORDER BY started_at DESC LIMIT ?`,
		limit,
	)

	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}

	defer rows.Close()

	var recs []RunRecord

	for rows.Next() {

		var rec RunRecord
		var started string

		err := rows.Scan(&rec.RunID, &rec.Split, &rec.NumClasses, &started)

		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}

		rec.StartedAt, err = time.Parse(time.RFC3339Nano, started)

		if err != nil {
			return nil, fmt.Errorf("parse run timestamp: %w", err)
		}

		recs = append(recs, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}

	return recs, nil
}

// RecordEpoch stores the metrics of one evaluated epoch.  Per class
// slices are stored as JSON arrays.  A NaN kappa is stored as NULL
func (s *Store) RecordEpoch(runID string, epoch int,
	r changedet.EvaluationResult) error {

	iouJSON, err := json.Marshal(r.IoU)

	if err != nil {
		return fmt.Errorf("marshal class_iou: %w", err)
	}

	accJSON, err := json.Marshal(r.Accuracy)

	if err != nil {
		return fmt.Errorf("marshal class_acc: %w", err)
	}

	f1JSON, err := json.Marshal(r.F1)

	if err != nil {
		return fmt.Errorf("marshal class_f1: %w", err)
	}

	// JSON has no NaN so kappa goes in as a nullable column
	var kappa sql.NullFloat64

	if !math.IsNaN(r.Kappa) {
		kappa = sql.NullFloat64{Float64: r.Kappa, Valid: true}
	}

	now := time.Now().UTC().Format(time.RFC3339Nano)

	_, err = s.db.Exec(
		`INSERT INTO epochs (run_id, epoch, acc, miou, kappa,
			class_iou, class_acc, class_f1, pixels, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		runID, epoch, r.OverallAccuracy, r.MeanIoU, kappa,
		string(iouJSON), string(accJSON), string(f1JSON), r.Pixels, now,
	)

	if err != nil {
		return fmt.Errorf("insert epoch: %w", err)
	}

	return nil
}

// RecordBest stores the best checkpoint of a run, replacing any previous
// best, and flags the epochs record as saved
func (s *Store) RecordBest(runID string, rec changedet.BestRecord) error {

	_, err := s.db.Exec(
		`INSERT INTO bests (run_id, epoch, value, checkpoint)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(run_id) DO UPDATE SET
			epoch = excluded.epoch,
			value = excluded.value,
			checkpoint = excluded.checkpoint`,
		runID, rec.Epoch, rec.Value, rec.Checkpoint,
	)

	if err != nil {
		return fmt.Errorf("upsert best: %w", err)
	}

	_, err = s.db.Exec(
		`UPDATE epochs SET saved = 1 WHERE run_id = ? AND epoch = ?`,
		runID, rec.Epoch,
	)

	if err != nil {
		return fmt.Errorf("flag saved epoch: %w", err)
	}

	return nil
}

// Best loads the best checkpoint record of a run.  The bool result is
// false when the run has no best recorded yet
func (s *Store) Best(runID string) (changedet.BestRecord, bool, error) {

	var rec changedet.BestRecord

	err := s.db.QueryRow(
		`SELECT epoch, value, checkpoint FROM bests WHERE run_id = ?`,
		runID,
	).Scan(&rec.Epoch, &rec.Value, &rec.Checkpoint)

	if err == sql.ErrNoRows {
		return changedet.BestRecord{}, false, nil
	}

	if err != nil {
		return changedet.BestRecord{}, false, fmt.Errorf("query best: %w", err)
	}

	return rec, true, nil
}

// Epochs loads all epoch records of a run in epoch order
func (s *Store) Epochs(runID string) ([]EpochRecord, error) {

	rows, err := s.db.Query(
		`SELECT epoch, acc, miou, kappa, class_iou, class_acc, class_f1,
			pixels, saved
		 FROM epochs WHERE run_id = ? ORDER BY epoch`,
		runID,
	)

	if err != nil {
		return nil, fmt.Errorf("query epochs: %w", err)
	}

	defer rows.Close()

	var recs []EpochRecord

	for rows.Next() {

		var rec EpochRecord
		var kappa sql.NullFloat64
		var iouJSON, accJSON, f1JSON string

		err := rows.Scan(&rec.Epoch, &rec.Result.OverallAccuracy,
			&rec.Result.MeanIoU, &kappa, &iouJSON, &accJSON, &f1JSON,
			&rec.Result.Pixels, &rec.Saved)

		if err != nil {
			return nil, fmt.Errorf("scan epoch: %w", err)
		}

		if kappa.Valid {
			rec.Result.Kappa = kappa.Float64
		} else {
			rec.Result.Kappa = math.NaN()
		}

		if err := json.Unmarshal([]byte(iouJSON), &rec.Result.IoU); err != nil {
			return nil, fmt.Errorf("unmarshal class_iou: %w", err)
		}

		if err := json.Unmarshal([]byte(accJSON), &rec.Result.Accuracy); err != nil {
			return nil, fmt.Errorf("unmarshal class_acc: %w", err)
		}

		if err := json.Unmarshal([]byte(f1JSON), &rec.Result.F1); err != nil {
			return nil, fmt.Errorf("unmarshal class_f1: %w", err)
		}

		recs = append(recs, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate epochs: %w", err)
	}

	return recs, nil
}
