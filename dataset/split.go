// Package dataset - Converts Open Images annotations for one tracked class into
// per-image pixel-coordinate annotation lines.
package dataset

import (
	"fmt"

	"github.com/pkg/errors"
)

// Split identifies a dataset partition.
type Split int

// Split constants
const (
	// Train is the training split.
	Train Split = iota
	// Validation is the validation split.
	Validation
	// Test is the test split.
	Test
)

// Splits lists every split in canonical order.
var Splits = []Split{Train, Validation, Test}

var splitNames = map[Split]string{
	Train:      "train",
	Validation: "validation",
	Test:       "test",
}

// ErrUnknownSplit is matched by every UnknownSplitError.
var ErrUnknownSplit = errors.New("unknown dataset split")

// UnknownSplitError reports a split name that is not train, validation, or test.
type UnknownSplitError struct {
	Name string
}

func (e *UnknownSplitError) Error() string {
	return fmt.Sprintf("unknown dataset split %q (want train, validation, or test)", e.Name)
}

// Is reports whether target is ErrUnknownSplit.
func (e *UnknownSplitError) Is(target error) bool {
	return target == ErrUnknownSplit
}

// String returns the split's directory name.
func (s Split) String() string {
	if name, ok := splitNames[s]; ok {
		return name
	}
	return fmt.Sprintf("Split(%d)", int(s))
}

// ParseSplit converts a name such as "train" to a Split.
func ParseSplit(name string) (Split, error) {
	for split, n := range splitNames {
		if n == name {
			return split, nil
		}
	}
	return 0, &UnknownSplitError{Name: name}
}

// MarshalText implements encoding.TextMarshaler.
func (s Split) MarshalText() ([]byte, error) {
	if _, ok := splitNames[s]; !ok {
		return nil, &UnknownSplitError{Name: s.String()}
	}
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler, so splits can be read from
// YAML and JSON configuration.
func (s *Split) UnmarshalText(text []byte) error {
	split, err := ParseSplit(string(text))
	if err != nil {
		return err
	}
	*s = split
	return nil
}
