// Package annotations - Readers and writers for box annotation files.
package annotations

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/nvr-ai/go-eval/common"
	"github.com/pkg/errors"
)

const (
	groundTruthFields = 5
	predictionFields  = 6
)

// ParseGroundTruthFile reads a ground-truth file from disk.
//
// Arguments:
//   - path: Path to a file with one `class_name x_min y_min x_max y_max` row per line.
//
// Returns:
//   - []common.BoundingBox: The boxes in file order.
//   - error: A *ParseError for malformed rows, or the I/O error.
func ParseGroundTruthFile(path string) ([]common.BoundingBox, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open ground truth file")
	}
	defer f.Close()

	return ParseGroundTruth(f, path)
}

// ParsePredictionFile reads a prediction file from disk.
//
// Arguments:
//   - path: Path to a file with one `class_name confidence x_min y_min x_max y_max`
//     row per line.
//
// Returns:
//   - []common.BoundingBox: The boxes in file order, with Confidence set.
//   - error: A *ParseError for malformed rows, or the I/O error.
func ParsePredictionFile(path string) ([]common.BoundingBox, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open prediction file")
	}
	defer f.Close()

	return ParsePredictions(f, path)
}

// ParseGroundTruth parses ground-truth rows from r. The name is only used in errors.
func ParseGroundTruth(r io.Reader, name string) ([]common.BoundingBox, error) {
	return parseRows(r, name, groundTruthFields, func(fields []string, line int) (common.BoundingBox, error) {
		b := common.BoundingBox{ClassName: fields[0]}
		err := parseCoords(fields[1:], &b, name, line)
		return b, err
	})
}

// ParsePredictions parses prediction rows from r. The name is only used in errors.
func ParsePredictions(r io.Reader, name string) ([]common.BoundingBox, error) {
	return parseRows(r, name, predictionFields, func(fields []string, line int) (common.BoundingBox, error) {
		b := common.BoundingBox{ClassName: fields[0]}
		conf, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			return b, &ParseError{File: name, Line: line, Field: "confidence", Err: err}
		}
		b.Confidence = conf
		err = parseCoords(fields[2:], &b, name, line)
		return b, err
	})
}

// parseRows splits every non-blank line on whitespace and hands rows with
// exactly want fields to parse.
func parseRows(
	r io.Reader,
	name string,
	want int,
	parse func(fields []string, line int) (common.BoundingBox, error),
) ([]common.BoundingBox, error) {
	var boxes []common.BoundingBox

	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		if len(fields) != want {
			return nil, &ParseError{
				File: name,
				Line: line,
				Err:  fmt.Errorf("expected %d fields, got %d", want, len(fields)),
			}
		}

		b, err := parse(fields, line)
		if err != nil {
			return nil, err
		}
		boxes = append(boxes, b)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrapf(err, "read %s", name)
	}

	return boxes, nil
}

var coordNames = [4]string{"x_min", "y_min", "x_max", "y_max"}

func parseCoords(fields []string, b *common.BoundingBox, name string, line int) error {
	var coords [4]int
	for i, field := range fields {
		v, err := strconv.Atoi(field)
		if err != nil {
			return &ParseError{File: name, Line: line, Field: coordNames[i], Err: err}
		}
		coords[i] = v
	}
	b.XMin, b.YMin, b.XMax, b.YMax = coords[0], coords[1], coords[2], coords[3]
	return nil
}

// FormatGroundTruth renders a box as a ground-truth row.
func FormatGroundTruth(b common.BoundingBox) string {
	return fmt.Sprintf("%s %d %d %d %d", b.ClassName, b.XMin, b.YMin, b.XMax, b.YMax)
}

// FormatPrediction renders a box as a prediction row.
func FormatPrediction(b common.BoundingBox) string {
	return fmt.Sprintf("%s %s %d %d %d %d",
		b.ClassName, strconv.FormatFloat(b.Confidence, 'f', -1, 64), b.XMin, b.YMin, b.XMax, b.YMax)
}
