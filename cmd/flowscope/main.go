package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/dd0wney/cluso-flowscope/pkg/config"
	"github.com/dd0wney/cluso-flowscope/pkg/loader"
	"github.com/dd0wney/cluso-flowscope/pkg/logging"
	"github.com/dd0wney/cluso-flowscope/pkg/manager"
	"github.com/dd0wney/cluso-flowscope/pkg/metrics"
	"github.com/dd0wney/cluso-flowscope/pkg/report"
	"golang.org/x/sync/errgroup"
)

const (
	exitOK         = 0
	exitFailure    = 1
	exitStructural = 2
)

type options struct {
	configFile  string
	format      string
	strict      bool
	showMetrics bool
	parallel    int
	files       []string
}

func main() {
	var opts options
	workflowFile := flag.String("workflow", "", "Workflow definition (YAML); more files may follow as arguments")
	flag.StringVar(&opts.configFile, "config", "", "Configuration file (YAML)")
	flag.StringVar(&opts.format, "format", "", "Report format: text, json or yaml (overrides config)")
	flag.BoolVar(&opts.strict, "strict", false, "Exit with status 2 when a structural error is found")
	flag.BoolVar(&opts.showMetrics, "metrics", false, "Write collected metrics to stderr after the reports")
	flag.IntVar(&opts.parallel, "parallel", 4, "Workflow files analysed concurrently")
	flag.Parse()

	if *workflowFile != "" {
		opts.files = append(opts.files, *workflowFile)
	}
	opts.files = append(opts.files, flag.Args()...)
	if len(opts.files) == 0 {
		fmt.Fprintln(os.Stderr, "usage: flowscope [flags] -workflow FILE [FILE...]")
		flag.PrintDefaults()
		os.Exit(exitFailure)
	}

	code, err := run(opts, os.Stdout, os.Stderr)
	if err != nil {
		log.Fatalf("flowscope: %v", err)
	}
	os.Exit(code)
}

func loadConfig(path string) (config.Config, error) {
	if path == "" {
		cfg := config.Default()
		return cfg, cfg.Validate()
	}
	return config.Load(path)
}

func run(opts options, stdout, stderr io.Writer) (int, error) {
	cfg, err := loadConfig(opts.configFile)
	if err != nil {
		return exitFailure, err
	}
	if opts.format != "" {
		cfg.Report.Format = opts.format
	}
	if opts.strict {
		cfg.Report.Strict = true
	}

	logger := cfg.Logger(stderr)
	logging.SetDefaultLogger(logger)

	var reg *metrics.Registry
	if cfg.Metrics.Enabled || opts.showMetrics {
		reg = metrics.NewRegistryWithNamespace(cfg.Metrics.Namespace)
	}

	results := make([][]*report.Report, len(opts.files))
	var g errgroup.Group
	g.SetLimit(max(opts.parallel, 1))
	for i, file := range opts.files {
		i, file := i, file
		g.Go(func() error {
			reports, err := analyse(file, cfg, logger, reg)
			if err != nil {
				return fmt.Errorf("%s: %w", file, err)
			}
			results[i] = reports
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return exitFailure, err
	}

	structural := 0
	first := true
	for _, reports := range results {
		for _, r := range reports {
			if !first && cfg.Report.Format == report.FormatYAML {
				fmt.Fprintln(stdout, "---")
			}
			first = false
			if err := report.Render(stdout, r, cfg.Report.Format, report.WithColor(cfg.Report.Color)); err != nil {
				return exitFailure, err
			}
			structural += r.ErrorCount
		}
	}

	if opts.showMetrics && reg != nil {
		if err := reg.WriteText(stderr); err != nil {
			return exitFailure, err
		}
	}

	if structural > 0 && cfg.Report.Strict {
		logger.Warn("structural errors found", logging.Count(structural))
		return exitStructural, nil
	}
	return exitOK, nil
}

// analyse loads one workflow file and builds a report per level, parents
// first.
func analyse(path string, cfg config.Config, logger logging.Logger, reg *metrics.Registry) ([]*report.Report, error) {
	timer := logging.StartTimer(logger, "analyse workflow", logging.String("file", path))

	project, err := loader.Load(path)
	if err != nil {
		timer.EndError(err)
		return nil, err
	}

	mopts := []manager.Option{
		manager.WithLogger(logger),
		manager.WithBudgetFactor(cfg.Traversal.BudgetFactor),
	}
	if reg != nil {
		mopts = append(mopts, manager.WithMetrics(reg))
	}
	m := manager.New(project, mopts...)

	levels, err := m.Snapshot()
	if err != nil {
		timer.EndError(err)
		return nil, err
	}

	reports := make([]*report.Report, 0, len(levels))
	for _, lv := range levels {
		r, err := report.Build(lv.Workflow, lv.Tracker, lv.Annotator)
		if err != nil {
			timer.EndError(err)
			return nil, err
		}
		reports = append(reports, r)
	}
	timer.End(logging.Count(len(reports)))
	return reports, nil
}
