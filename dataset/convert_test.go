package dataset

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nvr-ai/go-eval/annotations"
	"github.com/nvr-ai/go-eval/images"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newTestConverter(t *testing.T) *Converter {
	return &Converter{
		ImagePrefix: "/open_image/train/",
		Sizes: NewSizeIndex(map[string]images.Size{
			"5.jpg":   {Width: 100, Height: 200},
			"abc.jpg": {Width: 1024, Height: 768},
		}),
		Classes: DefaultClassMap(),
		Log:     zaptest.NewLogger(t),
	}
}

func TestConvertRow(t *testing.T) {
	c := newTestConverter(t)

	tests := []struct {
		name     string
		row      annotations.OpenImagesRow
		expected ConvertedRow
		found    bool
	}{
		{
			name: "source field order x_min x_max y_min y_max",
			row:  annotations.OpenImagesRow{ImageID: "5", LabelName: LicensePlateLabel, XMin: 0.1, XMax: 0.2, YMin: 0.3, YMax: 0.4},
			expected: ConvertedRow{
				ImagePath: "/open_image/train/5.jpg",
				XMin:      10,
				YMin:      60,
				XMax:      20,
				YMax:      80,
				ClassID:   0,
			},
			found: true,
		},
		{
			name: "truncates toward zero",
			row:  annotations.OpenImagesRow{ImageID: "abc", LabelName: LicensePlateLabel, XMin: 0.5, XMax: 0.75, YMin: 0.2501, YMax: 0.9999},
			expected: ConvertedRow{
				ImagePath: "/open_image/train/abc.jpg",
				XMin:      512,
				YMin:      192,
				XMax:      768,
				YMax:      767,
			},
			found: true,
		},
		{
			name: "missing image uses fallback size",
			row:  annotations.OpenImagesRow{ImageID: "gone", LabelName: LicensePlateLabel, XMin: 0.5, XMax: 1, YMin: 0, YMax: 1},
			expected: ConvertedRow{
				ImagePath: "/open_image/train/gone.jpg",
				XMin:      0,
				YMin:      0,
				XMax:      1,
				YMax:      1,
			},
			found: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			row, found, err := c.ConvertRow(tt.row)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, row)
			assert.Equal(t, tt.found, found)
		})
	}

	_, _, err := c.ConvertRow(annotations.OpenImagesRow{ImageID: "5", LabelName: "/m/0k4j"})
	assert.Error(t, err)
}

func TestConvertedRowFormatting(t *testing.T) {
	row := ConvertedRow{ImagePath: "p/5.jpg", XMin: 10, YMin: 60, XMax: 20, YMax: 80, ClassID: 0}
	assert.Equal(t, "10,60,20,80,0", row.Box())

	annotation := ImageAnnotation{ImagePath: "p/5.jpg", Boxes: []ConvertedRow{row, row}}
	assert.Equal(t, "p/5.jpg 10,60,20,80,0 10,60,20,80,0", annotation.String())
}

func TestGroupByImage(t *testing.T) {
	rows := []ConvertedRow{
		{ImagePath: "b.jpg", XMin: 1},
		{ImagePath: "a.jpg", XMin: 2},
		{ImagePath: "b.jpg", XMin: 3},
		{ImagePath: "c.jpg", XMin: 4},
		{ImagePath: "a.jpg", XMin: 5},
	}

	grouped := GroupByImage(rows)
	require.Len(t, grouped, 3)
	assert.Equal(t, "b.jpg", grouped[0].ImagePath)
	assert.Equal(t, "a.jpg", grouped[1].ImagePath)
	assert.Equal(t, "c.jpg", grouped[2].ImagePath)
	assert.Equal(t, []ConvertedRow{rows[0], rows[2]}, grouped[0].Boxes)
	assert.Equal(t, []ConvertedRow{rows[1], rows[4]}, grouped[1].Boxes)

	assert.Empty(t, GroupByImage(nil))
}

const trainCSV = `ImageID,Source,LabelName,Confidence,XMin,XMax,YMin,YMax,IsOccluded,IsTruncated,IsGroupOf,IsDepiction,IsInside
5,xclick,/m/01jfm_,1,0.1,0.2,0.3,0.4,0,0,0,0,0
5,xclick,/m/0k4j,1,0.0,0.5,0.0,0.5,0,0,0,0,0
abc,xclick,/m/01jfm_,1,0.5,0.75,0.25,0.5,0,0,0,0,0
5,xclick,/m/01jfm_,1,0.5,0.75,0.5,0.75,0,0,0,0,0
gone,xclick,/m/01jfm_,1,0,1,0,1,0,0,0,0,0
`

func TestConvert(t *testing.T) {
	c := newTestConverter(t)

	var out bytes.Buffer
	stats, err := c.Convert(strings.NewReader(trainCSV), "train.csv", &out)
	require.NoError(t, err)

	assert.Equal(t, Stats{Converted: 4, Skipped: 2, Images: 3, MissingSizes: 1}, stats)
	assert.Equal(t,
		"/open_image/train/5.jpg 10,60,20,80,0 50,100,75,150,0\n"+
			"/open_image/train/abc.jpg 512,192,768,384,0\n"+
			"/open_image/train/gone.jpg 0,0,1,1,0\n",
		out.String())
}

func TestConvertMalformed(t *testing.T) {
	c := newTestConverter(t)

	var out bytes.Buffer
	_, err := c.Convert(strings.NewReader("5,xclick,/m/01jfm_,1,0.1,zero,0.3,0.4\n"), "bad.csv", &out)
	require.Error(t, err)
	assert.True(t, errors.Is(err, annotations.ErrMalformedRow))
	assert.Empty(t, out.String())
}

func TestConvertFile(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "train-annotations-bbox.csv")
	out := filepath.Join(dir, "open_image_train_v2.txt")
	require.NoError(t, os.WriteFile(in, []byte(trainCSV), 0o644))
	require.NoError(t, os.WriteFile(out, []byte("stale\nstale\nstale\nstale\nstale\n"), 0o644))

	c := newTestConverter(t)
	stats, err := c.ConvertFile(in, out)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Images)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "stale")
	assert.Len(t, strings.Split(strings.TrimSpace(string(data)), "\n"), 3)

	_, err = c.ConvertFile(filepath.Join(dir, "missing.csv"), out)
	assert.Error(t, err)
}
