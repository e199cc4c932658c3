package evaluator

import (
	"fmt"
	"path/filepath"

	"github.com/nvr-ai/go-eval/annotations"
	"github.com/nvr-ai/go-eval/util"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Recorder receives the result of every evaluated image.
type Recorder interface {
	Record(index int, result Result) error
}

// Runner evaluates a directory of prediction files against a directory of
// ground-truth files. Both directories hold one `{index}.txt` file per image.
type Runner struct {
	// GTDir holds the ground-truth files.
	GTDir string
	// PredDir holds the prediction files.
	PredDir string
	// Count is the number of images, indexed 0..Count-1. When zero, the indices are
	// discovered from the file names in GTDir.
	Count int
	// Config holds the matching thresholds.
	Config MatchConfig
	// Recorders receive every image result in index order.
	Recorders []Recorder
	// Log receives per-image summaries. Nil disables logging.
	Log *zap.Logger
}

// Indices returns the image indices the runner will evaluate.
func (r *Runner) Indices() ([]int, error) {
	if r.Count > 0 {
		indices := make([]int, r.Count)
		for i := range indices {
			indices[i] = i
		}
		return indices, nil
	}

	files, err := util.ListIndexedFiles(r.GTDir, ".txt")
	if err != nil {
		return nil, errors.Wrap(err, "discover ground truth files")
	}
	indices := make([]int, len(files))
	for i, f := range files {
		indices[i] = f.Index
	}
	return indices, nil
}

// EvaluateImage parses and evaluates the files of one image.
func (r *Runner) EvaluateImage(index int) (Result, error) {
	name := fmt.Sprintf("%d.txt", index)

	gts, err := annotations.ParseGroundTruthFile(filepath.Join(r.GTDir, name))
	if err != nil {
		return Result{}, errors.Wrapf(err, "image %d", index)
	}
	preds, err := annotations.ParsePredictionFile(filepath.Join(r.PredDir, name))
	if err != nil {
		return Result{}, errors.Wrapf(err, "image %d", index)
	}

	return Evaluate(preds, gts, r.Config), nil
}

// Run evaluates every image, hands each result to the recorders, and returns
// the totals. It stops at the first error.
func (r *Runner) Run() (Totals, error) {
	log := util.OrNop(r.Log)

	indices, err := r.Indices()
	if err != nil {
		return Totals{}, err
	}
	log.Info("evaluating images",
		zap.Int("images", len(indices)),
		zap.String("groundTruth", r.GTDir),
		zap.String("predictions", r.PredDir),
		zap.Float64("iouThreshold", r.Config.IoUThreshold),
		zap.Float64("confThreshold", r.Config.ConfThreshold),
	)

	var totals Totals
	for _, index := range indices {
		result, err := r.EvaluateImage(index)
		if err != nil {
			return totals, err
		}

		s := result.Summary
		log.Info("summary",
			zap.Int("image", index),
			zap.String("iou", fmt.Sprintf("%.2f", s.IoU)),
			zap.Int("totalPredArea", s.TotalPredArea),
			zap.Int("totalGtArea", s.TotalGTArea),
			zap.Int("numMatches", s.NumMatches),
			zap.Int("numPreds", s.NumPredictions),
			zap.Int("numGts", s.NumGroundTruths),
		)
		for _, m := range result.Matches {
			log.Debug("match",
				zap.Int("image", index),
				zap.Int("pred", m.PredIndex),
				zap.Int("gt", m.GTIndex),
				zap.Float64("confidence", m.Confidence),
				zap.Float64("iou", m.IoU),
			)
		}

		for _, rec := range r.Recorders {
			if err := rec.Record(index, result); err != nil {
				return totals, err
			}
		}
		totals.Add(s)
	}

	return totals, nil
}
