package evaluator

import (
	"fmt"
	"io"
	"os"

	"github.com/pkg/errors"
)

// FormatSummaryLine renders one image's summary as
// `index,iou,total_pred_area,total_gt_area,num_matches,num_preds,num_gts`
// with the IoU rounded to two decimals. The line has no trailing newline.
func FormatSummaryLine(index int, s Summary) string {
	return fmt.Sprintf("%d,%.2f,%d,%d,%d,%d,%d",
		index, s.IoU, s.TotalPredArea, s.TotalGTArea, s.NumMatches, s.NumPredictions, s.NumGroundTruths)
}

// SummaryWriter appends summary lines to a writer.
type SummaryWriter struct {
	w      io.Writer
	closer io.Closer
}

// NewSummaryWriter wraps w. Close is a no-op unless w was opened by OpenSummaryFile.
func NewSummaryWriter(w io.Writer) *SummaryWriter {
	return &SummaryWriter{w: w}
}

// OpenSummaryFile opens path in append mode, creating it if needed.
func OpenSummaryFile(path string) (*SummaryWriter, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, errors.Wrap(err, "open summary file")
	}
	return &SummaryWriter{w: f, closer: f}, nil
}

// Write appends one summary line.
func (sw *SummaryWriter) Write(index int, s Summary) error {
	if _, err := io.WriteString(sw.w, FormatSummaryLine(index, s)+"\n"); err != nil {
		return errors.Wrapf(err, "write summary for image %d", index)
	}
	return nil
}

// Close closes the underlying file, if any.
func (sw *SummaryWriter) Close() error {
	if sw.closer == nil {
		return nil
	}
	return sw.closer.Close()
}

// Record writes the result's summary line.
func (sw *SummaryWriter) Record(index int, result Result) error {
	return sw.Write(index, result.Summary)
}
