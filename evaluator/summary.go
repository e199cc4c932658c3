package evaluator

import (
	"github.com/nvr-ai/go-eval/common"
)

// Summary aggregates the matches of one image.
type Summary struct {
	// IoU is TotalInterArea / (TotalPredArea + TotalGTArea - TotalInterArea).
	IoU             float64 `json:"iou"`
	TotalPredArea   int     `json:"totalPredArea"`
	TotalGTArea     int     `json:"totalGtArea"`
	TotalInterArea  int     `json:"totalInterArea"`
	NumMatches      int     `json:"numMatches"`
	NumPredictions  int     `json:"numPreds"`
	NumGroundTruths int     `json:"numGts"`
}

// TotalUnionArea is the area covered by the kept predictions or the ground truths,
// counting matched overlaps once.
func (s Summary) TotalUnionArea() int {
	return s.TotalPredArea + s.TotalGTArea - s.TotalInterArea
}

// Result is the outcome of evaluating one image.
type Result struct {
	Matches []Match `json:"matches"`
	Summary Summary `json:"summary"`
}

// Evaluate filters predictions by confidence, greedily matches them against the
// ground truths, and summarizes the matches.
//
// Arguments:
//   - predictions: The predicted boxes with confidences.
//   - groundTruths: The annotated boxes. They are never filtered.
//   - config: The IoU and confidence thresholds.
//
// Returns:
//   - Result: The matches, with PredIndex pointing into predictions, and the summary.
//
// @example
// gt := []common.BoundingBox{{ClassName: "car", XMax: 9, YMax: 9}}
// pr := []common.BoundingBox{{ClassName: "car", Confidence: 0.9, XMax: 9, YMax: 9}}
// res := Evaluate(pr, gt, DefaultMatchConfig()) // one match, res.Summary.IoU == 1
func Evaluate(predictions, groundTruths []common.BoundingBox, config MatchConfig) Result {
	kept, indices := FilterPredictions(predictions, config.ConfThreshold)

	matches := MatchGreedy(kept, groundTruths, config.IoUThreshold)
	for i := range matches {
		matches[i].PredIndex = indices[matches[i].PredIndex]
	}

	return Result{
		Matches: matches,
		Summary: Summarize(matches, kept, groundTruths),
	}
}

// Summarize rolls matches into a Summary.
//
// Arguments:
//   - matches: The accepted matches.
//   - predictions: The predictions that survived confidence filtering.
//   - groundTruths: All ground truths.
//
// Returns:
//   - Summary: Areas and counts. IoU is 0 when the total union is 0.
func Summarize(matches []Match, predictions, groundTruths []common.BoundingBox) Summary {
	s := Summary{
		NumMatches:      len(matches),
		NumPredictions:  len(predictions),
		NumGroundTruths: len(groundTruths),
	}

	for _, m := range matches {
		s.TotalInterArea += m.IntersectionArea
	}
	for _, p := range predictions {
		s.TotalPredArea += p.Area()
	}
	for _, g := range groundTruths {
		s.TotalGTArea += g.Area()
	}

	s.IoU = common.Ratio(s.TotalInterArea, s.TotalUnionArea())

	return s
}

// Totals accumulates summaries across the images of a run.
type Totals struct {
	Images          int `json:"images"`
	TotalPredArea   int `json:"totalPredArea"`
	TotalGTArea     int `json:"totalGtArea"`
	TotalInterArea  int `json:"totalInterArea"`
	NumMatches      int `json:"numMatches"`
	NumPredictions  int `json:"numPreds"`
	NumGroundTruths int `json:"numGts"`
}

// Add folds one image's summary into the totals.
func (t *Totals) Add(s Summary) {
	t.Images++
	t.TotalPredArea += s.TotalPredArea
	t.TotalGTArea += s.TotalGTArea
	t.TotalInterArea += s.TotalInterArea
	t.NumMatches += s.NumMatches
	t.NumPredictions += s.NumPredictions
	t.NumGroundTruths += s.NumGroundTruths
}

// IoU is the pooled intersection over union of every image added so far.
func (t Totals) IoU() float64 {
	return common.Ratio(t.TotalInterArea, t.TotalPredArea+t.TotalGTArea-t.TotalInterArea)
}

// Precision is the fraction of kept predictions that were matched.
func (t Totals) Precision() float64 {
	return common.Ratio(t.NumMatches, t.NumPredictions)
}

// Recall is the fraction of ground truths that were matched.
func (t Totals) Recall() float64 {
	return common.Ratio(t.NumMatches, t.NumGroundTruths)
}
