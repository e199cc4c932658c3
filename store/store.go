// Package store - SQLite ledger of evaluation runs, per-image summaries, and matches.
package store

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/nvr-ai/go-eval/evaluator"
	"github.com/pkg/errors"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	run_id          TEXT PRIMARY KEY,
	started_at      TEXT NOT NULL,
	iou_threshold   REAL NOT NULL,
	conf_threshold  REAL NOT NULL,
	gt_dir          TEXT NOT NULL,
	pred_dir        TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS image_summaries (
	run_id            TEXT NOT NULL,
	image_index       INTEGER NOT NULL,
	iou               REAL NOT NULL,
	total_pred_area   INTEGER NOT NULL,
	total_gt_area     INTEGER NOT NULL,
	total_inter_area  INTEGER NOT NULL,
	num_matches       INTEGER NOT NULL,
	num_preds         INTEGER NOT NULL,
	num_gts           INTEGER NOT NULL,
	PRIMARY KEY (run_id, image_index),
	FOREIGN KEY (run_id) REFERENCES runs(run_id)
);

CREATE TABLE IF NOT EXISTS matches (
	run_id             TEXT NOT NULL,
	image_index        INTEGER NOT NULL,
	pred_index         INTEGER NOT NULL,
	gt_index           INTEGER NOT NULL,
	confidence         REAL NOT NULL,
	iou                REAL NOT NULL,
	intersection_area  INTEGER NOT NULL,
	union_area         INTEGER NOT NULL,
	FOREIGN KEY (run_id, image_index) REFERENCES image_summaries(run_id, image_index)
);
`

// Run describes one evaluation run.
type Run struct {
	ID            string
	StartedAt     time.Time
	IoUThreshold  float64
	ConfThreshold float64
	GTDir         string
	PredDir       string
}

// ImageSummary is a stored per-image summary.
type ImageSummary struct {
	Index   int
	Summary evaluator.Summary
}

// Store manages evaluation results in SQLite.
type Store struct {
	db *sql.DB
}

// Open opens or creates a SQLite database at path and runs migrations.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrap(err, "open db")
	}
	// Pragmas are per connection.
	db.SetMaxOpenConns(1)
	for _, stmt := range []string{"PRAGMA journal_mode=WAL", "PRAGMA foreign_keys=ON", schema} {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, errors.Wrap(err, "migrate")
		}
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// BeginRun records a new run and returns it with a fresh ID.
func (s *Store) BeginRun(config evaluator.MatchConfig, gtDir, predDir string) (Run, error) {
	run := Run{
		ID:            uuid.New().String(),
		StartedAt:     time.Now().UTC(),
		IoUThreshold:  config.IoUThreshold,
		ConfThreshold: config.ConfThreshold,
		GTDir:         gtDir,
		PredDir:       predDir,
	}

	_, err := s.db.Exec(
		`INSERT INTO runs (run_id, started_at, iou_threshold, conf_threshold, gt_dir, pred_dir)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		run.ID, run.StartedAt.Format(time.RFC3339Nano), run.IoUThreshold, run.ConfThreshold, run.GTDir, run.PredDir,
	)
	if err != nil {
		return Run{}, errors.Wrap(err, "insert run")
	}
	return run, nil
}

// GetRun loads a run by ID.
func (s *Store) GetRun(runID string) (Run, error) {
	var (
		run     Run
		started string
	)
	err := s.db.QueryRow(
		`SELECT run_id, started_at, iou_threshold, conf_threshold, gt_dir, pred_dir FROM runs WHERE run_id = ?`,
		runID,
	).Scan(&run.ID, &started, &run.IoUThreshold, &run.ConfThreshold, &run.GTDir, &run.PredDir)
	if err != nil {
		return Run{}, errors.Wrapf(err, "get run %s", runID)
	}
	run.StartedAt, err = time.Parse(time.RFC3339Nano, started)
	if err != nil {
		return Run{}, errors.Wrap(err, "parse started_at")
	}
	return run, nil
}

// LatestRun loads the most recently started run. It returns an error wrapping
// sql.ErrNoRows when the database holds no runs.
func (s *Store) LatestRun() (Run, error) {
	var runID string
	if err := s.db.QueryRow(`SELECT run_id FROM runs ORDER BY rowid DESC LIMIT 1`).Scan(&runID); err != nil {
		return Run{}, errors.Wrap(err, "latest run")
	}
	return s.GetRun(runID)
}

// RecordImage stores one image's summary and matches in a single transaction.
func (s *Store) RecordImage(runID string, index int, result evaluator.Result) error {
	tx, err := s.db.Begin()
	if err != nil {
		return errors.Wrap(err, "begin tx")
	}
	defer tx.Rollback()

	sum := result.Summary
	_, err = tx.Exec(
		`INSERT INTO image_summaries (run_id, image_index, iou, total_pred_area, total_gt_area,
		 total_inter_area, num_matches, num_preds, num_gts) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		runID, index, sum.IoU, sum.TotalPredArea, sum.TotalGTArea,
		sum.TotalInterArea, sum.NumMatches, sum.NumPredictions, sum.NumGroundTruths,
	)
	if err != nil {
		return errors.Wrapf(err, "insert summary for image %d", index)
	}

	for _, m := range result.Matches {
		_, err = tx.Exec(
			`INSERT INTO matches (run_id, image_index, pred_index, gt_index, confidence, iou,
			 intersection_area, union_area) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			runID, index, m.PredIndex, m.GTIndex, m.Confidence, m.IoU, m.IntersectionArea, m.UnionArea,
		)
		if err != nil {
			return errors.Wrapf(err, "insert match for image %d", index)
		}
	}

	return errors.Wrap(tx.Commit(), "commit")
}

// ImageSummaries returns the summaries of a run ordered by image index.
func (s *Store) ImageSummaries(runID string) ([]ImageSummary, error) {
	rows, err := s.db.Query(
		`SELECT image_index, iou, total_pred_area, total_gt_area, total_inter_area,
		 num_matches, num_preds, num_gts FROM image_summaries WHERE run_id = ? ORDER BY image_index`,
		runID,
	)
	if err != nil {
		return nil, errors.Wrap(err, "query summaries")
	}
	defer rows.Close()

	var out []ImageSummary
	for rows.Next() {
		var is ImageSummary
		if err := rows.Scan(
			&is.Index, &is.Summary.IoU, &is.Summary.TotalPredArea, &is.Summary.TotalGTArea,
			&is.Summary.TotalInterArea, &is.Summary.NumMatches, &is.Summary.NumPredictions,
			&is.Summary.NumGroundTruths,
		); err != nil {
			return nil, errors.Wrap(err, "scan summary")
		}
		out = append(out, is)
	}
	return out, errors.Wrap(rows.Err(), "iterate summaries")
}

// Matches returns the stored matches of one image in selection order.
func (s *Store) Matches(runID string, index int) ([]evaluator.Match, error) {
	rows, err := s.db.Query(
		`SELECT pred_index, gt_index, confidence, iou, intersection_area, union_area
		 FROM matches WHERE run_id = ? AND image_index = ? ORDER BY rowid`,
		runID, index,
	)
	if err != nil {
		return nil, errors.Wrap(err, "query matches")
	}
	defer rows.Close()

	var out []evaluator.Match
	for rows.Next() {
		var m evaluator.Match
		if err := rows.Scan(&m.PredIndex, &m.GTIndex, &m.Confidence, &m.IoU, &m.IntersectionArea, &m.UnionArea); err != nil {
			return nil, errors.Wrap(err, "scan match")
		}
		out = append(out, m)
	}
	return out, errors.Wrap(rows.Err(), "iterate matches")
}

// RunTotals aggregates the stored summaries of a run.
func (s *Store) RunTotals(runID string) (evaluator.Totals, error) {
	summaries, err := s.ImageSummaries(runID)
	if err != nil {
		return evaluator.Totals{}, err
	}
	var totals evaluator.Totals
	for _, is := range summaries {
		totals.Add(is.Summary)
	}
	return totals, nil
}

// RunRecorder records image results under a fixed run ID.
type RunRecorder struct {
	store *Store
	runID string
}

// Recorder returns a RunRecorder for runID.
func (s *Store) Recorder(runID string) *RunRecorder {
	return &RunRecorder{store: s, runID: runID}
}

// Record stores one image's result.
func (r *RunRecorder) Record(index int, result evaluator.Result) error {
	return r.store.RecordImage(r.runID, index, result)
}
