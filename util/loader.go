package util

import (
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// IndexedFile is a file whose name is an integer index followed by an extension,
// such as "42.txt".
type IndexedFile struct {
	// Path is the path to the file.
	Path string
	// Index is the integer parsed from the file name.
	Index int
}

// ListIndexedFiles finds the files in dir named `<int><ext>`.
//
// Arguments:
// - dir: Directory to scan. Subdirectories are ignored.
// - ext: The extension including the dot, e.g. ".txt".
//
// Returns:
// - []IndexedFile: Matching files sorted by ascending index.
// - error: Error if the directory cannot be read.
func ListIndexedFiles(dir, ext string) ([]IndexedFile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "read directory %s", dir)
	}

	var files []IndexedFile
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ext {
			continue
		}
		index, err := strconv.Atoi(strings.TrimSuffix(entry.Name(), ext))
		if err != nil || index < 0 {
			continue
		}
		files = append(files, IndexedFile{
			Path:  filepath.Join(dir, entry.Name()),
			Index: index,
		})
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].Index < files[j].Index
	})

	return files, nil
}

// ListImageFiles returns the names of the files in dir whose extension is one of
// exts, compared case-sensitively, sorted by name.
//
// Arguments:
// - dir: Directory to scan. Subdirectories are ignored.
// - exts: Accepted extensions including the dot, e.g. ".jpg".
//
// Returns:
// - []string: File names relative to dir.
// - error: Error if the directory cannot be read.
func ListImageFiles(dir string, exts ...string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "read directory %s", dir)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := filepath.Ext(entry.Name())
		for _, want := range exts {
			if ext == want {
				names = append(names, entry.Name())
				break
			}
		}
	}

	return names, nil
}
