// Package config - Configuration for the evaluate and convert commands.
package config

import (
	"os"
	"strings"

	"github.com/nvr-ai/go-eval/dataset"
	"github.com/nvr-ai/go-eval/evaluator"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Config is the root configuration document.
type Config struct {
	Evaluate EvaluateConfig `json:"evaluate" yaml:"evaluate"`
	Convert  ConvertConfig  `json:"convert"  yaml:"convert"`
	// Verbose enables debug logging.
	Verbose bool `json:"verbose" yaml:"verbose"`
}

// EvaluateConfig configures the evaluate command.
type EvaluateConfig struct {
	// GroundTruthDir holds one `{index}.txt` ground-truth file per image.
	GroundTruthDir string `json:"groundTruthDir" yaml:"groundTruthDir"`
	// PredictionDir holds one `{index}.txt` prediction file per image.
	PredictionDir string `json:"predictionDir" yaml:"predictionDir"`
	// SummaryPath is appended with one summary line per image.
	SummaryPath string `json:"summaryPath" yaml:"summaryPath"`
	// Count is the number of images; zero discovers them from GroundTruthDir.
	Count int `json:"count" yaml:"count"`
	// DatabasePath optionally records the run in SQLite.
	DatabasePath string `json:"databasePath" yaml:"databasePath"`
	// Match holds the thresholds.
	Match evaluator.MatchConfig `json:"match" yaml:"match"`
}

// ConvertConfig configures the convert command.
type ConvertConfig struct {
	// DataPath contains one image directory per split and the
	// `<split>-annotations-bbox.csv` files.
	DataPath string `json:"dataPath" yaml:"dataPath"`
	// Splits selects the splits to convert.
	Splits []dataset.Split `json:"splits" yaml:"splits"`
	// Outputs maps split names to output files. Missing splits use OutputPath.
	Outputs map[string]string `json:"outputs" yaml:"outputs"`
	// Classes maps Open Images labels to class ids.
	Classes dataset.ClassMap `json:"classes" yaml:"classes"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Evaluate: EvaluateConfig{
			GroundTruthDir: "./mAP/ground-truth",
			PredictionDir:  "./mAP/predicted",
			SummaryPath:    "./mAP/summary.txt",
			Match:          evaluator.DefaultMatchConfig(),
		},
		Convert: ConvertConfig{
			DataPath: "/open_image_1000G/",
			Splits:   []dataset.Split{dataset.Train, dataset.Test},
			Outputs:  map[string]string{},
			Classes:  dataset.DefaultClassMap(),
		},
	}
}

// Load reads a YAML file on top of the defaults and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read config file")
	}

	// yaml.v3 merges into non-nil maps. A map given in the file replaces the
	// default one.
	cfg := Default()
	cfg.Convert.Classes = nil
	cfg.Convert.Outputs = nil
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal config")
	}
	if cfg.Convert.Classes == nil {
		cfg.Convert.Classes = dataset.DefaultClassMap()
	}
	if cfg.Convert.Outputs == nil {
		cfg.Convert.Outputs = map[string]string{}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the configuration as YAML.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return errors.Wrap(err, "failed to marshal config")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Wrap(err, "failed to write config file")
	}
	return nil
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	m := c.Evaluate.Match
	if m.IoUThreshold < 0 || m.IoUThreshold > 1 {
		return errors.Errorf("iouThreshold %v is outside [0, 1]", m.IoUThreshold)
	}
	if m.ConfThreshold < 0 || m.ConfThreshold > 1 {
		return errors.Errorf("confThreshold %v is outside [0, 1]", m.ConfThreshold)
	}
	if c.Evaluate.Count < 0 {
		return errors.Errorf("count %d is negative", c.Evaluate.Count)
	}
	if len(c.Convert.Classes) == 0 {
		return errors.New("no classes to convert")
	}
	for name := range c.Convert.Outputs {
		if _, err := dataset.ParseSplit(name); err != nil {
			return errors.Wrap(err, "outputs")
		}
	}
	return nil
}

// OutputPath returns the converted annotation file of a split.
func (c *ConvertConfig) OutputPath(split dataset.Split) string {
	if path, ok := c.Outputs[split.String()]; ok {
		return path
	}
	return "./data/dataset/open_image_" + split.String() + "_v2.txt"
}

// SetOutput directs the single selected split to path. It fails unless
// exactly one split is selected, naming the current selection.
func (c *ConvertConfig) SetOutput(path string) error {
	if len(c.Splits) != 1 {
		names := make([]string, len(c.Splits))
		for i, split := range c.Splits {
			names[i] = split.String()
		}
		return errors.Errorf("an output file needs exactly one split, got %d [%s]; select one with -splits",
			len(c.Splits), strings.Join(names, ","))
	}
	if c.Outputs == nil {
		c.Outputs = make(map[string]string)
	}
	c.Outputs[c.Splits[0].String()] = path
	return nil
}
