package annotations

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
)

// Column positions in an Open Images bounding box CSV. The coordinate columns
// are ordered x_min, x_max, y_min, y_max.
const (
	openImagesImageID   = 0
	openImagesLabelName = 2
	openImagesXMin      = 4
	openImagesXMax      = 5
	openImagesYMin      = 6
	openImagesYMax      = 7

	openImagesMinFields = 8
)

// OpenImagesRow is one normalized box from an Open Images annotation CSV.
type OpenImagesRow struct {
	// ImageID is the image file name without its extension.
	ImageID string
	// LabelName is the machine label, e.g. "/m/01jfm_".
	LabelName string
	// XMin, XMax, YMin, YMax are in [0, 1], relative to the image size.
	XMin, XMax, YMin, YMax float64
	// Line is the 1-based record number in the CSV.
	Line int
}

// OpenImagesReader streams rows from an Open Images annotation CSV.
type OpenImagesReader struct {
	name   string
	csv    *csv.Reader
	accept func(label string) bool
	line   int
}

// NewOpenImagesReader returns a reader over r.
//
// Arguments:
//   - r: The CSV input.
//   - name: Name of the input, used in errors.
//   - accept: Reports whether rows with the given label should be returned. Rows
//     it rejects are skipped before their coordinates are parsed, which also
//     skips the CSV header. A nil accept returns every row.
func NewOpenImagesReader(r io.Reader, name string, accept func(label string) bool) *OpenImagesReader {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = true

	return &OpenImagesReader{name: name, csv: cr, accept: accept}
}

// Next returns the next accepted row and the number of rows skipped before it.
// It returns io.EOF once the input is exhausted.
func (o *OpenImagesReader) Next() (OpenImagesRow, int, error) {
	skipped := 0
	for {
		record, err := o.csv.Read()
		if err == io.EOF {
			return OpenImagesRow{}, skipped, io.EOF
		}
		o.line++
		if err != nil {
			return OpenImagesRow{}, skipped, &ParseError{File: o.name, Line: o.line, Err: err}
		}
		if len(record) < openImagesMinFields {
			return OpenImagesRow{}, skipped, &ParseError{
				File: o.name,
				Line: o.line,
				Err:  fmt.Errorf("expected at least %d fields, got %d", openImagesMinFields, len(record)),
			}
		}

		label := record[openImagesLabelName]
		if o.accept != nil && !o.accept(label) {
			skipped++
			continue
		}

		row := OpenImagesRow{
			ImageID:   record[openImagesImageID],
			LabelName: label,
			Line:      o.line,
		}
		for _, c := range []struct {
			field int
			name  string
			dst   *float64
		}{
			{openImagesXMin, "XMin", &row.XMin},
			{openImagesXMax, "XMax", &row.XMax},
			{openImagesYMin, "YMin", &row.YMin},
			{openImagesYMax, "YMax", &row.YMax},
		} {
			v, err := strconv.ParseFloat(record[c.field], 64)
			if err != nil {
				return OpenImagesRow{}, skipped, &ParseError{File: o.name, Line: o.line, Field: c.name, Err: err}
			}
			// NaN fails both comparisons and the infinities fail one.
			if !(v >= 0 && v <= 1) {
				return OpenImagesRow{}, skipped, &ParseError{
					File:  o.name,
					Line:  o.line,
					Field: c.name,
					Err:   fmt.Errorf("%s is outside [0, 1]", record[c.field]),
				}
			}
			*c.dst = v
		}

		return row, skipped, nil
	}
}
