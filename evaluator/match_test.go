package evaluator

import (
	"math/rand"
	"testing"

	"github.com/nvr-ai/go-eval/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gt(xMin, yMin, xMax, yMax int) common.BoundingBox {
	return common.BoundingBox{ClassName: "car", XMin: xMin, YMin: yMin, XMax: xMax, YMax: yMax}
}

func pred(conf float64, xMin, yMin, xMax, yMax int) common.BoundingBox {
	return common.BoundingBox{ClassName: "car", Confidence: conf, XMin: xMin, YMin: yMin, XMax: xMax, YMax: yMax}
}

func TestDefaultMatchConfig(t *testing.T) {
	cfg := DefaultMatchConfig()
	assert.Equal(t, 0.5, cfg.IoUThreshold)
	assert.Equal(t, 0.3, cfg.ConfThreshold)
}

func TestFilterPredictions(t *testing.T) {
	preds := []common.BoundingBox{
		pred(0.1, 0, 0, 1, 1),
		pred(0.3, 0, 0, 2, 2),
		pred(0.29, 0, 0, 3, 3),
		pred(0.9, 0, 0, 4, 4),
	}

	kept, indices := FilterPredictions(preds, 0.3)
	assert.Equal(t, []common.BoundingBox{preds[1], preds[3]}, kept)
	assert.Equal(t, []int{1, 3}, indices)
}

func TestMatchGreedy_PerfectOverlap(t *testing.T) {
	matches := MatchGreedy(
		[]common.BoundingBox{pred(0.9, 0, 0, 9, 9)},
		[]common.BoundingBox{gt(0, 0, 9, 9)},
		0.5,
	)

	require.Len(t, matches, 1)
	assert.Equal(t, Match{
		PredIndex:        0,
		GTIndex:          0,
		Confidence:       0.9,
		IoU:              1.0,
		IntersectionArea: 100,
		UnionArea:        100,
	}, matches[0])
}

func TestMatchGreedy_NoOverlap(t *testing.T) {
	matches := MatchGreedy(
		[]common.BoundingBox{pred(0.9, 20, 20, 29, 29)},
		[]common.BoundingBox{gt(0, 0, 9, 9)},
		DefaultIoUThreshold,
	)
	assert.Empty(t, matches)
}

// TestMatchGreedy_BestPairFirst checks that the globally best pair is selected
// before any other, regardless of prediction order.
func TestMatchGreedy_BestPairFirst(t *testing.T) {
	groundTruths := []common.BoundingBox{
		gt(0, 0, 9, 9),
		gt(8, 0, 17, 9),
	}
	predictions := []common.BoundingBox{
		pred(0.8, 0, 0, 9, 5),  // 0.6 with gt 0, ~0.08 with gt 1
		pred(0.7, 8, 0, 17, 8), // 0.9 with gt 1, ~0.10 with gt 0
	}

	matches := MatchGreedy(predictions, groundTruths, 0.5)
	require.Len(t, matches, 2)

	assert.Equal(t, 1, matches[0].PredIndex)
	assert.Equal(t, 1, matches[0].GTIndex)
	assert.InDelta(t, 0.9, matches[0].IoU, 1e-9)
	assert.Equal(t, 90, matches[0].IntersectionArea)
	assert.Equal(t, 100, matches[0].UnionArea)

	assert.Equal(t, 0, matches[1].PredIndex)
	assert.Equal(t, 0, matches[1].GTIndex)
	assert.InDelta(t, 0.6, matches[1].IoU, 1e-9)
}

// TestMatchGreedy_NotOptimalAssignment pins the greedy behavior: the best pair
// is taken even when it leaves the remaining boxes unmatched.
func TestMatchGreedy_NotOptimalAssignment(t *testing.T) {
	groundTruths := []common.BoundingBox{
		gt(0, 0, 9, 9),  // A
		gt(5, 0, 14, 9), // B
	}
	predictions := []common.BoundingBox{
		pred(0.9, 1, 0, 10, 9), // ~0.82 with A, ~0.43 with B
		pred(0.9, -4, 0, 5, 9), // ~0.43 with A, ~0.05 with B
	}

	matches := MatchGreedy(predictions, groundTruths, 0.3)
	require.Len(t, matches, 1, "pred 1 cannot reach B once A is taken")
	assert.Equal(t, 0, matches[0].PredIndex)
	assert.Equal(t, 0, matches[0].GTIndex)
}

func TestMatchGreedy_TieBreaks(t *testing.T) {
	t.Run("first prediction wins", func(t *testing.T) {
		matches := MatchGreedy(
			[]common.BoundingBox{pred(0.4, 0, 0, 9, 9), pred(0.9, 0, 0, 9, 9)},
			[]common.BoundingBox{gt(0, 0, 9, 9)},
			0.5,
		)
		require.Len(t, matches, 1)
		assert.Equal(t, 0, matches[0].PredIndex)
		assert.Equal(t, 0.4, matches[0].Confidence)
	})

	t.Run("first ground truth wins", func(t *testing.T) {
		matches := MatchGreedy(
			[]common.BoundingBox{pred(0.9, 0, 0, 9, 9)},
			[]common.BoundingBox{gt(0, 0, 9, 9), gt(0, 0, 9, 9)},
			0.5,
		)
		require.Len(t, matches, 1)
		assert.Equal(t, 0, matches[0].GTIndex)
	})

	t.Run("prediction order before ground truth order", func(t *testing.T) {
		// (pred 0, gt 1) and (pred 1, gt 0) are both perfect; pred 0 is scanned first.
		matches := MatchGreedy(
			[]common.BoundingBox{pred(0.9, 50, 50, 59, 59), pred(0.9, 0, 0, 9, 9)},
			[]common.BoundingBox{gt(0, 0, 9, 9), gt(50, 50, 59, 59)},
			0.5,
		)
		require.Len(t, matches, 2)
		assert.Equal(t, [2]int{0, 1}, [2]int{matches[0].PredIndex, matches[0].GTIndex})
		assert.Equal(t, [2]int{1, 0}, [2]int{matches[1].PredIndex, matches[1].GTIndex})
	})
}

func TestMatchGreedy_Thresholds(t *testing.T) {
	predictions := []common.BoundingBox{pred(0.9, 0, 0, 9, 8), pred(0.9, 20, 20, 29, 29)}
	groundTruths := []common.BoundingBox{gt(0, 0, 9, 9), gt(100, 100, 109, 109)}

	t.Run("threshold one without perfect overlap", func(t *testing.T) {
		assert.Empty(t, MatchGreedy(predictions, groundTruths, 1.0))
	})

	t.Run("threshold one with perfect overlap", func(t *testing.T) {
		matches := MatchGreedy([]common.BoundingBox{pred(0.9, 0, 0, 9, 9)}, groundTruths, 1.0)
		assert.Len(t, matches, 1)
	})

	t.Run("zero threshold accepts disjoint pairs", func(t *testing.T) {
		matches := MatchGreedy(predictions, groundTruths, 0)
		require.Len(t, matches, 2)
		assert.Equal(t, 0.0, matches[1].IoU)
		assert.Equal(t, 0, matches[1].IntersectionArea)
	})
}

func TestMatchGreedy_EmptyInputs(t *testing.T) {
	assert.Empty(t, MatchGreedy(nil, []common.BoundingBox{gt(0, 0, 9, 9)}, 0.5))
	assert.Empty(t, MatchGreedy([]common.BoundingBox{pred(0.9, 0, 0, 9, 9)}, nil, 0.5))
	assert.Empty(t, MatchGreedy(nil, nil, 0))
}

func randomBoxes(r *rand.Rand, n int) []common.BoundingBox {
	boxes := make([]common.BoundingBox, n)
	for i := range boxes {
		x, y := r.Intn(100), r.Intn(100)
		boxes[i] = common.BoundingBox{
			ClassName:  "plate",
			Confidence: r.Float64(),
			XMin:       x,
			YMin:       y,
			XMax:       x + r.Intn(40) - 5,
			YMax:       y + r.Intn(40) - 5,
		}
	}
	return boxes
}

func TestMatchGreedy_BijectiveAndDeterministic(t *testing.T) {
	r := rand.New(rand.NewSource(42))

	for trial := 0; trial < 200; trial++ {
		predictions := randomBoxes(r, r.Intn(12))
		groundTruths := randomBoxes(r, r.Intn(12))
		threshold := r.Float64() * 0.6

		matches := MatchGreedy(predictions, groundTruths, threshold)
		assert.Equal(t, matches, MatchGreedy(predictions, groundTruths, threshold))
		assert.LessOrEqual(t, len(matches), min(len(predictions), len(groundTruths)))

		seenPred := map[int]bool{}
		seenGT := map[int]bool{}
		for k, m := range matches {
			require.False(t, seenPred[m.PredIndex], "prediction %d matched twice", m.PredIndex)
			require.False(t, seenGT[m.GTIndex], "ground truth %d matched twice", m.GTIndex)
			seenPred[m.PredIndex] = true
			seenGT[m.GTIndex] = true

			assert.GreaterOrEqual(t, m.IoU, threshold)
			if k > 0 {
				assert.LessOrEqual(t, m.IoU, matches[k-1].IoU, "matches are selected best first")
			}
		}
	}
}
