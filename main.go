package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/nvr-ai/go-eval/config"
	"github.com/nvr-ai/go-eval/dataset"
	"github.com/nvr-ai/go-eval/evaluator"
	"github.com/nvr-ai/go-eval/store"
	"github.com/nvr-ai/go-eval/util"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	GitCommit = "unknown"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "evaluate":
		err = runEvaluate(os.Args[2:])
	case "convert":
		err = runConvert(os.Args[2:])
	case "report":
		err = runReport(os.Args[2:])
	case "config":
		err = runConfig(os.Args[2:])
	case "version", "--version", "-v":
		fmt.Printf("go-eval %s (commit %s)\n", Version, GitCommit)
	case "help", "--help", "-h":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", os.Args[1])
		usage()
		os.Exit(2)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func usage() {
	name := filepath.Base(os.Args[0])
	fmt.Fprintf(os.Stderr, "Usage: %s <command> [options]\n\n", name)
	fmt.Fprintf(os.Stderr, "Offline tools for license plate detection datasets.\n\n")
	fmt.Fprintf(os.Stderr, "Commands:\n")
	fmt.Fprintf(os.Stderr, "  evaluate   Match predicted boxes against ground truth and append per-image summaries\n")
	fmt.Fprintf(os.Stderr, "  convert    Convert Open Images annotations to per-image pixel boxes\n")
	fmt.Fprintf(os.Stderr, "  report     Print a run recorded with evaluate -db\n")
	fmt.Fprintf(os.Stderr, "  config     Write the effective configuration as YAML\n")
	fmt.Fprintf(os.Stderr, "  version    Print version information\n")
	fmt.Fprintf(os.Stderr, "\nExamples:\n")
	fmt.Fprintf(os.Stderr, "  %s evaluate -gt ./mAP/ground-truth -pred ./mAP/predicted -summary ./mAP/summary.txt\n", name)
	fmt.Fprintf(os.Stderr, "  %s convert -data /open_image_1000G/ -splits train,test\n", name)
	fmt.Fprintf(os.Stderr, "  %s report -db ./mAP/runs.db -image 3\n", name)
	fmt.Fprintf(os.Stderr, "  %s config -out go-eval.yaml\n", name)
}

// loadConfig parses args into fs and returns the configuration file named by
// -config, or the defaults, plus the set of flags given explicitly.
func loadConfig(fs *flag.FlagSet, configPath *string, args []string) (*config.Config, map[string]bool, error) {
	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}

	cfg := config.Default()
	if *configPath != "" {
		var err error
		if cfg, err = config.Load(*configPath); err != nil {
			return nil, nil, err
		}
	}

	set := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })
	return cfg, set, nil
}

func runEvaluate(args []string) error {
	fs := flag.NewFlagSet("evaluate", flag.ContinueOnError)
	var (
		configPath = fs.String("config", "", "Path to YAML configuration file")
		gtDir      = fs.String("gt", "", "Directory of {index}.txt ground truth files")
		predDir    = fs.String("pred", "", "Directory of {index}.txt prediction files")
		summary    = fs.String("summary", "", "Summary file, appended with one line per image")
		count      = fs.Int("count", 0, "Number of images; 0 discovers them from the ground truth directory")
		iou        = fs.Float64("iou", evaluator.DefaultIoUThreshold, "IoU threshold for a match")
		conf       = fs.Float64("conf", evaluator.DefaultConfThreshold, "Confidence threshold for predictions")
		dbPath     = fs.String("db", "", "Optional SQLite database recording the run")
		verbose    = fs.Bool("verbose", false, "Log every match")
	)

	cfg, set, err := loadConfig(fs, configPath, args)
	if err != nil {
		return err
	}
	ec := &cfg.Evaluate
	if set["gt"] {
		ec.GroundTruthDir = *gtDir
	}
	if set["pred"] {
		ec.PredictionDir = *predDir
	}
	if set["summary"] {
		ec.SummaryPath = *summary
	}
	if set["count"] {
		ec.Count = *count
	}
	if set["iou"] {
		ec.Match.IoUThreshold = *iou
	}
	if set["conf"] {
		ec.Match.ConfThreshold = *conf
	}
	if set["db"] {
		ec.DatabasePath = *dbPath
	}
	if set["verbose"] {
		cfg.Verbose = *verbose
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	log, err := util.NewLogger(cfg.Verbose)
	if err != nil {
		return errors.Wrap(err, "create logger")
	}
	defer log.Sync()

	summaryWriter, err := evaluator.OpenSummaryFile(ec.SummaryPath)
	if err != nil {
		return err
	}
	defer summaryWriter.Close()

	runner := &evaluator.Runner{
		GTDir:     ec.GroundTruthDir,
		PredDir:   ec.PredictionDir,
		Count:     ec.Count,
		Config:    ec.Match,
		Recorders: []evaluator.Recorder{summaryWriter},
		Log:       log,
	}

	if ec.DatabasePath != "" {
		db, err := store.Open(ec.DatabasePath)
		if err != nil {
			return err
		}
		defer db.Close()

		run, err := db.BeginRun(ec.Match, ec.GroundTruthDir, ec.PredictionDir)
		if err != nil {
			return err
		}
		log.Info("recording run", zap.String("run", run.ID), zap.String("db", ec.DatabasePath))
		runner.Recorders = append(runner.Recorders, db.Recorder(run.ID))
	}

	start := time.Now()
	totals, err := runner.Run()
	if err != nil {
		return err
	}

	log.Info("evaluation complete", zap.Duration("elapsed", time.Since(start)))
	printTotals(totals)
	fmt.Printf("Summary saved to: %s\n", ec.SummaryPath)

	return nil
}

func printTotals(totals evaluator.Totals) {
	fmt.Printf("\n=== EVALUATION SUMMARY ===\n")
	fmt.Printf("Images:        %d\n", totals.Images)
	fmt.Printf("IoU:           %.2f\n", totals.IoU())
	fmt.Printf("Precision:     %.2f\n", totals.Precision())
	fmt.Printf("Recall:        %.2f\n", totals.Recall())
	fmt.Printf("Matches:       %d\n", totals.NumMatches)
	fmt.Printf("Predictions:   %d\n", totals.NumPredictions)
	fmt.Printf("Ground truths: %d\n", totals.NumGroundTruths)
}

func runReport(args []string) error {
	fs := flag.NewFlagSet("report", flag.ContinueOnError)
	var (
		configPath = fs.String("config", "", "Path to YAML configuration file")
		dbPath     = fs.String("db", "", "SQLite database written by evaluate -db")
		runID      = fs.String("run", "", "Run ID; defaults to the latest run")
		image      = fs.Int("image", -1, "Also print the matches of this image index")
	)

	cfg, set, err := loadConfig(fs, configPath, args)
	if err != nil {
		return err
	}
	path := cfg.Evaluate.DatabasePath
	if set["db"] {
		path = *dbPath
	}
	if path == "" {
		return errors.New("report requires -db or evaluate.databasePath")
	}

	db, err := store.Open(path)
	if err != nil {
		return err
	}
	defer db.Close()

	var run store.Run
	if *runID != "" {
		run, err = db.GetRun(*runID)
	} else {
		run, err = db.LatestRun()
	}
	if err != nil {
		return err
	}

	fmt.Printf("Run %s started %s\n", run.ID, run.StartedAt.Format(time.RFC3339))
	fmt.Printf("Ground truth: %s\nPredictions:  %s\n", run.GTDir, run.PredDir)
	fmt.Printf("Thresholds:   iou %.2f, confidence %.2f\n\n", run.IoUThreshold, run.ConfThreshold)

	summaries, err := db.ImageSummaries(run.ID)
	if err != nil {
		return err
	}
	out := evaluator.NewSummaryWriter(os.Stdout)
	for _, is := range summaries {
		if err := out.Write(is.Index, is.Summary); err != nil {
			return err
		}
	}
	totals, err := db.RunTotals(run.ID)
	if err != nil {
		return err
	}
	printTotals(totals)

	if *image >= 0 {
		matches, err := db.Matches(run.ID, *image)
		if err != nil {
			return err
		}
		fmt.Printf("\n=== MATCHES (image %d) ===\n", *image)
		for _, m := range matches {
			fmt.Printf("pred %d -> gt %d  confidence %.2f  iou %.2f  (%d/%d)\n",
				m.PredIndex, m.GTIndex, m.Confidence, m.IoU, m.IntersectionArea, m.UnionArea)
		}
	}

	return nil
}

func runConfig(args []string) error {
	fs := flag.NewFlagSet("config", flag.ContinueOnError)
	var (
		configPath = fs.String("config", "", "Configuration file to start from instead of the defaults")
		output     = fs.String("out", "go-eval.yaml", "File to write")
		force      = fs.Bool("force", false, "Overwrite an existing file")
	)

	cfg, _, err := loadConfig(fs, configPath, args)
	if err != nil {
		return err
	}
	if !*force {
		if _, err := os.Stat(*output); err == nil {
			return errors.Errorf("%s exists; use -force to overwrite", *output)
		}
	}
	if err := cfg.Save(*output); err != nil {
		return err
	}
	fmt.Printf("Configuration written to %s\n", *output)
	return nil
}

func runConvert(args []string) error {
	fs := flag.NewFlagSet("convert", flag.ContinueOnError)
	var (
		configPath = fs.String("config", "", "Path to YAML configuration file")
		dataPath   = fs.String("data", "", "Dataset root with <split>/ image directories and <split>-annotations-bbox.csv files")
		splits     = fs.String("splits", "", "Comma separated splits to convert (train,validation,test)")
		output     = fs.String("out", "", "Output file; only valid when exactly one split is selected")
		verbose    = fs.Bool("verbose", false, "Enable debug logging")
	)

	cfg, set, err := loadConfig(fs, configPath, args)
	if err != nil {
		return err
	}
	cc := &cfg.Convert
	if set["data"] {
		cc.DataPath = *dataPath
	}
	if set["splits"] {
		cc.Splits = nil
		for _, name := range strings.Split(*splits, ",") {
			split, err := dataset.ParseSplit(strings.TrimSpace(name))
			if err != nil {
				return err
			}
			cc.Splits = append(cc.Splits, split)
		}
	}
	if set["out"] {
		if err := cc.SetOutput(*output); err != nil {
			return errors.Wrap(err, "-out")
		}
	}
	if set["verbose"] {
		cfg.Verbose = *verbose
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	log, err := util.NewLogger(cfg.Verbose)
	if err != nil {
		return errors.Wrap(err, "create logger")
	}
	defer log.Sync()

	catalog := dataset.NewCatalog()
	for _, split := range cc.Splits {
		idx, err := dataset.BuildSizeIndex(filepath.Join(cc.DataPath, split.String()), log)
		if err != nil {
			return err
		}
		catalog.Set(split, idx)
	}

	for _, split := range cc.Splits {
		idx, err := catalog.Index(split)
		if err != nil {
			return err
		}

		converter := &dataset.Converter{
			ImagePrefix: filepath.Join(cc.DataPath, split.String()) + string(filepath.Separator),
			Sizes:       idx,
			Classes:     cc.Classes,
			Log:         log.With(zap.Stringer("split", split)),
		}
		input := filepath.Join(cc.DataPath, split.String()+"-annotations-bbox.csv")
		outPath := cc.OutputPath(split)

		if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
			return errors.Wrap(err, "create output directory")
		}
		stats, err := converter.ConvertFile(input, outPath)
		if err != nil {
			return errors.Wrapf(err, "convert %s", split)
		}
		fmt.Printf("%s: %d boxes in %d images written to %s (%d missing sizes)\n",
			split, stats.Converted, stats.Images, outPath, stats.MissingSizes)
	}

	return nil
}
