package evaluator

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/nvr-ai/go-eval/common"
)

// BenchmarkMatchGreedy measures the full-pool rescan at typical per-image box counts.
func BenchmarkMatchGreedy(b *testing.B) {
	for _, n := range []int{5, 20, 100} {
		b.Run(fmt.Sprintf("boxes=%d", n), func(b *testing.B) {
			r := rand.New(rand.NewSource(int64(n)))
			predictions := randomBoxes(r, n)
			groundTruths := randomBoxes(r, n)

			b.ResetTimer()
			b.ReportAllocs()

			for i := 0; i < b.N; i++ {
				_ = MatchGreedy(predictions, groundTruths, 0.1)
			}
		})
	}
}

// BenchmarkComputeIoU_PartialOverlap measures one pair comparison.
func BenchmarkComputeIoU_PartialOverlap(b *testing.B) {
	a := common.BoundingBox{XMin: 0, YMin: 0, XMax: 99, YMax: 99}
	o := common.BoundingBox{XMin: 50, YMin: 50, XMax: 149, YMax: 149}

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		_ = common.ComputeIoU(a, o)
	}
}
