package dataset

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/nvr-ai/go-eval/annotations"
	"github.com/nvr-ai/go-eval/util"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// LicensePlateLabel is the Open Images label of "Vehicle registration plate".
const LicensePlateLabel = "/m/01jfm_"

// ClassMap maps Open Images label names to output class ids.
type ClassMap map[string]int

// DefaultClassMap tracks license plates only.
func DefaultClassMap() ClassMap {
	return ClassMap{LicensePlateLabel: 0}
}

// Tracks reports whether rows with the label are converted.
func (c ClassMap) Tracks(label string) bool {
	_, ok := c[label]
	return ok
}

// ConvertedRow is one box in pixel coordinates.
type ConvertedRow struct {
	ImagePath              string
	XMin, YMin, XMax, YMax int
	ClassID                int
}

// Box formats the row as `x_min,y_min,x_max,y_max,class_id`.
func (r ConvertedRow) Box() string {
	return fmt.Sprintf("%d,%d,%d,%d,%d", r.XMin, r.YMin, r.XMax, r.YMax, r.ClassID)
}

// ImageAnnotation groups every converted box of one image.
type ImageAnnotation struct {
	ImagePath string
	Boxes     []ConvertedRow
}

// String formats the annotation as one output line without the newline.
func (a ImageAnnotation) String() string {
	var b strings.Builder
	b.WriteString(a.ImagePath)
	for _, box := range a.Boxes {
		b.WriteByte(' ')
		b.WriteString(box.Box())
	}
	return b.String()
}

// Stats counts what a conversion did.
type Stats struct {
	// Converted is the number of rows of a tracked class.
	Converted int `json:"converted"`
	// Skipped is the number of rows with an untracked label, including the header.
	Skipped int `json:"skipped"`
	// Images is the number of output lines.
	Images int `json:"images"`
	// MissingSizes is the number of converted rows whose image was not indexed.
	MissingSizes int `json:"missingSizes"`
}

// Converter rewrites normalized Open Images rows into pixel-coordinate rows.
type Converter struct {
	// ImagePrefix is prepended verbatim to "<image id>.jpg" to form the image path.
	ImagePrefix string
	// Sizes holds the dimensions of the split's images.
	Sizes *SizeIndex
	// Classes selects the tracked labels and their ids.
	Classes ClassMap
	// Log receives missing-image warnings. Nil disables logging.
	Log *zap.Logger
}

// ConvertRow denormalizes one row.
//
// Coordinates are multiplied by the image width or height and truncated toward
// zero. The second return value is false when the image size was not indexed
// and FallbackSize was used.
//
// Arguments:
//   - row: A row whose label is tracked by c.Classes.
//
// Returns:
//   - ConvertedRow: The pixel box.
//   - bool: Whether the image size was found.
//   - error: Non-nil if the label is not tracked.
func (c *Converter) ConvertRow(row annotations.OpenImagesRow) (ConvertedRow, bool, error) {
	classID, ok := c.Classes[row.LabelName]
	if !ok {
		return ConvertedRow{}, false, errors.Errorf("label %s is not tracked", row.LabelName)
	}

	filename := row.ImageID + ".jpg"
	size, found := c.Sizes.SizeOf(filename, c.Log)
	width, height := float64(size.Width), float64(size.Height)

	return ConvertedRow{
		ImagePath: c.ImagePrefix + filename,
		XMin:      int(row.XMin * width),
		YMin:      int(row.YMin * height),
		XMax:      int(row.XMax * width),
		YMax:      int(row.YMax * height),
		ClassID:   classID,
	}, found, nil
}

// GroupByImage collects rows by image path. Images appear in the order their
// first row was seen, and each image keeps its rows in input order.
func GroupByImage(rows []ConvertedRow) []ImageAnnotation {
	var grouped []ImageAnnotation
	positions := make(map[string]int)

	for _, row := range rows {
		pos, ok := positions[row.ImagePath]
		if !ok {
			pos = len(grouped)
			positions[row.ImagePath] = pos
			grouped = append(grouped, ImageAnnotation{ImagePath: row.ImagePath})
		}
		grouped[pos].Boxes = append(grouped[pos].Boxes, row)
	}

	return grouped
}

// Convert reads an Open Images CSV from r and writes one line per image to w.
func (c *Converter) Convert(r io.Reader, name string, w io.Writer) (Stats, error) {
	log := util.OrNop(c.Log)

	var (
		stats Stats
		rows  []ConvertedRow
	)
	reader := annotations.NewOpenImagesReader(r, name, c.Classes.Tracks)
	for {
		row, skipped, err := reader.Next()
		stats.Skipped += skipped
		if err == io.EOF {
			break
		}
		if err != nil {
			return stats, errors.Wrap(err, "convert annotations")
		}

		converted, found, err := c.ConvertRow(row)
		if err != nil {
			return stats, err
		}
		if !found {
			stats.MissingSizes++
		}
		rows = append(rows, converted)
		stats.Converted++
	}

	grouped := GroupByImage(rows)
	stats.Images = len(grouped)

	bw := bufio.NewWriter(w)
	for _, annotation := range grouped {
		if _, err := bw.WriteString(annotation.String() + "\n"); err != nil {
			return stats, errors.Wrap(err, "write annotation")
		}
	}
	if err := bw.Flush(); err != nil {
		return stats, errors.Wrap(err, "flush annotations")
	}

	log.Info("annotations converted",
		zap.String("input", name),
		zap.Int("rows", stats.Converted),
		zap.Int("skipped", stats.Skipped),
		zap.Int("images", stats.Images),
		zap.Int("missingSizes", stats.MissingSizes),
	)
	return stats, nil
}

// ConvertFile converts the CSV at inPath and replaces outPath with the result.
func (c *Converter) ConvertFile(inPath, outPath string) (Stats, error) {
	in, err := os.Open(inPath)
	if err != nil {
		return Stats{}, errors.Wrap(err, "open annotations")
	}
	defer in.Close()

	out, err := os.Create(outPath)
	if err != nil {
		return Stats{}, errors.Wrap(err, "create output")
	}

	stats, err := c.Convert(in, inPath, out)
	if closeErr := out.Close(); err == nil && closeErr != nil {
		err = errors.Wrap(closeErr, "close output")
	}
	return stats, err
}
