// Package evaluator - Greedy matching of predicted boxes against ground truth and
// the overlap statistics derived from it.
package evaluator

import "github.com/nvr-ai/go-eval/common"

// Default thresholds used by DefaultMatchConfig.
const (
	DefaultIoUThreshold  = 0.5
	DefaultConfThreshold = 0.3
)

// MatchConfig defines the acceptance thresholds for matching.
type MatchConfig struct {
	IoUThreshold  float64 `json:"iouThreshold"  yaml:"iouThreshold"`   // Minimum IoU for a pair to be matched.
	ConfThreshold float64 `json:"confThreshold" yaml:"confThreshold"` // Minimum confidence for a prediction to be kept.
}

// DefaultMatchConfig returns the thresholds used when none are configured.
func DefaultMatchConfig() MatchConfig {
	return MatchConfig{
		IoUThreshold:  DefaultIoUThreshold,
		ConfThreshold: DefaultConfThreshold,
	}
}

// Match pairs one prediction with one ground truth.
type Match struct {
	// PredIndex indexes the prediction slice passed to the matcher.
	PredIndex int `json:"predIndex"`
	// GTIndex indexes the ground-truth slice passed to the matcher.
	GTIndex int `json:"gtIndex"`
	// Confidence is the prediction's confidence.
	Confidence float64 `json:"confidence"`
	// IoU of the pair.
	IoU float64 `json:"iou"`
	// IntersectionArea of the pair in pixels.
	IntersectionArea int `json:"intersectionArea"`
	// UnionArea of the pair in pixels.
	UnionArea int `json:"unionArea"`
}

// FilterPredictions drops predictions whose confidence is below confThreshold.
//
// Arguments:
//   - predictions: The predictions in input order.
//   - confThreshold: Predictions with Confidence < confThreshold are dropped.
//
// Returns:
//   - []common.BoundingBox: The kept predictions in input order.
//   - []int: For each kept prediction, its index in predictions.
func FilterPredictions(predictions []common.BoundingBox, confThreshold float64) ([]common.BoundingBox, []int) {
	kept := make([]common.BoundingBox, 0, len(predictions))
	indices := make([]int, 0, len(predictions))
	for i, p := range predictions {
		if p.Confidence >= confThreshold {
			kept = append(kept, p)
			indices = append(indices, i)
		}
	}
	return kept, indices
}

// MatchGreedy repeatedly pairs the prediction and ground truth with the highest
// IoU in the remaining pool and removes both.
//
// Every iteration scans all remaining pairs in ascending (prediction, ground
// truth) index order and keeps the first pair with the largest IoU, so ties go to
// the pair enumerated first. Matching stops entirely as soon as the best
// remaining IoU is below iouThreshold. The result is greedy, not the maximum
// weight assignment.
//
// Arguments:
//   - predictions: Predictions to match; confidence filtering is the caller's job.
//   - groundTruths: Ground-truth boxes.
//   - iouThreshold: Minimum IoU for a pair to be accepted.
//
// Returns:
//   - []Match: The accepted pairs in the order they were selected. If nothing
//     matches, returns an empty slice.
func MatchGreedy(predictions, groundTruths []common.BoundingBox, iouThreshold float64) []Match {
	usedPred := make([]bool, len(predictions))
	usedGT := make([]bool, len(groundTruths))
	matches := make([]Match, 0, min(len(predictions), len(groundTruths)))

	for n := min(len(predictions), len(groundTruths)); n > 0; n-- {
		best := Match{IoU: -1}

		for i := range predictions {
			if usedPred[i] {
				continue
			}
			for j := range groundTruths {
				if usedGT[j] {
					continue
				}
				overlap := common.ComputeIoU(predictions[i], groundTruths[j])
				if overlap.IoU > best.IoU {
					best = Match{
						PredIndex:        i,
						GTIndex:          j,
						Confidence:       predictions[i].Confidence,
						IoU:              overlap.IoU,
						IntersectionArea: overlap.Intersection,
						UnionArea:        overlap.Union,
					}
				}
			}
		}

		if best.IoU < iouThreshold {
			break
		}

		matches = append(matches, best)
		usedPred[best.PredIndex] = true
		usedGT[best.GTIndex] = true
	}

	return matches
}
