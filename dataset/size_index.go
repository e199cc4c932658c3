package dataset

import (
	"path/filepath"

	"github.com/nvr-ai/go-eval/images"
	"github.com/nvr-ai/go-eval/util"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// FallbackSize is used for images missing from a SizeIndex.
var FallbackSize = images.Size{Width: 1, Height: 1}

// SizeIndex maps image file names to their pixel dimensions. It is read-only
// once built.
type SizeIndex struct {
	sizes map[string]images.Size
}

// NewSizeIndex builds an index from a prepared map. The map is copied.
func NewSizeIndex(sizes map[string]images.Size) *SizeIndex {
	idx := &SizeIndex{sizes: make(map[string]images.Size, len(sizes))}
	for name, size := range sizes {
		idx.sizes[name] = size
	}
	return idx
}

// BuildSizeIndex reads the dimensions of every .jpg file in dir.
//
// Arguments:
//   - dir: The split's image directory.
//   - log: Receives a warning for every image whose header cannot be read; such
//     images are left out of the index. Images whose content is not JPEG are
//     indexed with a warning. Nil disables logging.
//
// Returns:
//   - *SizeIndex: The index keyed by file name.
//   - error: Non-nil if the directory cannot be read.
func BuildSizeIndex(dir string, log *zap.Logger) (*SizeIndex, error) {
	log = util.OrNop(log)

	names, err := util.ListImageFiles(dir, ".jpg")
	if err != nil {
		return nil, errors.Wrap(err, "build size index")
	}

	idx := &SizeIndex{sizes: make(map[string]images.Size, len(names))}
	for _, name := range names {
		info, err := images.ProbeSize(filepath.Join(dir, name))
		if err != nil {
			log.Warn("skipping unreadable image", zap.String("image", name), zap.Error(err))
			continue
		}
		if want, ok := images.FormatFromPath(name); ok && want != info.Format {
			log.Warn("image format does not match extension",
				zap.String("image", name), zap.String("format", string(info.Format)))
		}
		idx.sizes[name] = info.Size
	}

	log.Info("size index built", zap.String("dir", dir), zap.Int("images", len(idx.sizes)))
	return idx, nil
}

// Len returns the number of indexed images.
func (s *SizeIndex) Len() int {
	return len(s.sizes)
}

// Lookup returns the size of the named image.
func (s *SizeIndex) Lookup(filename string) (images.Size, bool) {
	size, ok := s.sizes[filename]
	return size, ok
}

// SizeOf returns the size of the named image, or FallbackSize with a logged
// warning when the image is not indexed.
func (s *SizeIndex) SizeOf(filename string, log *zap.Logger) (images.Size, bool) {
	if size, ok := s.sizes[filename]; ok {
		return size, true
	}
	util.OrNop(log).Warn("image is not in the directory, using fallback size",
		zap.String("image", filename),
		zap.Stringer("size", FallbackSize),
	)
	return FallbackSize, false
}

// Catalog holds one SizeIndex per split.
type Catalog struct {
	indexes map[Split]*SizeIndex
}

// NewCatalog returns an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{indexes: make(map[Split]*SizeIndex)}
}

// Set registers the index of a split, replacing any previous one.
func (c *Catalog) Set(split Split, idx *SizeIndex) {
	c.indexes[split] = idx
}

// Index returns the index of a split.
func (c *Catalog) Index(split Split) (*SizeIndex, error) {
	if _, ok := splitNames[split]; !ok {
		return nil, &UnknownSplitError{Name: split.String()}
	}
	idx, ok := c.indexes[split]
	if !ok {
		return nil, errors.Errorf("no size index for split %s", split)
	}
	return idx, nil
}
