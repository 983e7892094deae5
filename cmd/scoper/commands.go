package main

import (
	"fmt"
	"runtime/debug"

	"github.com/spf13/cobra"

	"github.com/rmera/scoper/config"
	"github.com/rmera/scoper/logger"
	"github.com/rmera/scoper/pipeline"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

// options holds the flags shared by all commands.
type options struct {
	configFile string
	input      string
	profile    string
	baseDir    string
	samples    int
	topK       int
	workers    int
	ensemble   bool
	strict     bool
	report     string
	plot       string
	metrics    string
	logLevel   string
}

func newRootCommand() *cobra.Command {
	opts := new(options)
	root := &cobra.Command{
		Use:           "scoper",
		Short:         "SAXS-based conformation predictor for RNA",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	pf := root.PersistentFlags()
	pf.StringVar(&opts.configFile, "config", "", "YAML configuration file (default: $SCOPER_CONFIG, or none)")
	pf.StringVar(&opts.profile, "profile", "", "target SAXS profile, a file or the name of a configured profile")
	pf.IntVar(&opts.topK, "top-k", 0, "number of best candidates to keep, at least 1")
	pf.IntVar(&opts.workers, "workers", 0, "number of structures scored at the same time")
	pf.StringVar(&opts.report, "report", "", "score table to write (.zst and .gz are compressed)")
	pf.StringVar(&opts.plot, "plot", "", "score vs. rank plot to write")
	pf.StringVar(&opts.metrics, "metrics", "", "Prometheus textfile to write")
	pf.StringVar(&opts.logLevel, "log-level", "", "debug, info, warn or error")

	root.AddCommand(newRunCommand(opts), newScoreCommand(opts), newEnsembleCommand(opts), newVersionCommand())
	return root
}

// load reads the configuration and applies the flags the user set.
func (o *options) load(cmd *cobra.Command) (*config.Config, logger.Logger, error) {
	path := o.configFile
	if path == "" {
		path = config.GetConfigPath("")
	}
	cfg, err := config.LoadConfig(path)
	if err != nil {
		return nil, nil, err
	}
	flags := cmd.Flags()
	set := func(name string, apply func()) {
		if flags.Changed(name) {
			apply()
		}
	}
	set("input", func() { cfg.Input = o.input })
	set("profile", func() { cfg.Profile = o.profile })
	set("base-dir", func() { cfg.BaseDir = o.baseDir })
	set("samples", func() { cfg.Samples = o.samples })
	set("top-k", func() { cfg.TopK = o.topK })
	set("workers", func() { cfg.Scoring.Workers = o.workers })
	set("ensemble", func() { cfg.Ensemble = o.ensemble })
	set("strict", func() { cfg.Preprocess.Strict = o.strict })
	set("report", func() { cfg.Report.Path = o.report })
	set("plot", func() { cfg.Report.Plot = o.plot })
	set("metrics", func() { cfg.Metrics.Textfile = o.metrics })
	set("log-level", func() { cfg.Logging.Level = o.logLevel })
	log, err := logger.New(cfg.Logging)
	if err != nil {
		return nil, nil, err
	}
	return cfg, log, nil
}

func newRunCommand(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the whole pipeline on an RNA structure",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := opts.load(cmd)
			if err != nil {
				return err
			}
			defer log.Sync()
			if err := cfg.Validate(); err != nil {
				return err
			}
			p := pipeline.New(cfg, log)
			rep, err := p.Run(cmd.Context())
			if rep != nil {
				printReport(cmd.OutOrStdout(), rep)
			}
			return err
		},
	}
	f := cmd.Flags()
	f.StringVar(&opts.input, "input", "", "RNA structure in PDB format")
	f.StringVar(&opts.baseDir, "base-dir", "", "directory for all the results")
	f.IntVar(&opts.samples, "samples", 0, "number of conformations to sample")
	f.BoolVar(&opts.ensemble, "ensemble", false, "fit an ensemble with MultiFoXS")
	f.BoolVar(&opts.strict, "strict", false, "stop if preprocessing or sampling fails")
	return cmd
}

func newScoreCommand(opts *options) *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "score",
		Short: "Score and rank the structures in a directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := opts.load(cmd)
			if err != nil {
				return err
			}
			defer log.Sync()
			if err := cfg.ValidateScoring(dir); err != nil {
				return err
			}
			p := pipeline.New(cfg, log)
			defer writeMetrics(p, cfg, log)
			rep, err := p.Score(cmd.Context(), dir, cfg.ResolveProfile())
			if rep != nil {
				printReport(cmd.OutOrStdout(), rep)
			}
			return err
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "", "directory with the structures")
	_ = cmd.MarkFlagRequired("dir")
	return cmd
}

func newEnsembleCommand(opts *options) *cobra.Command {
	var workdir string
	cmd := &cobra.Command{
		Use:   "ensemble [flags] run_dir...",
		Short: "Fit an ensemble of the structures under the given directories",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := opts.load(cmd)
			if err != nil {
				return err
			}
			defer log.Sync()
			if err := config.ValidateFile("profile", cfg.ResolveProfile()); err != nil {
				return err
			}
			p := pipeline.New(cfg, log)
			defer writeMetrics(p, cfg, log)
			res, err := p.Ensemble(cmd.Context(), args, workdir, cfg.ResolveProfile())
			if err != nil {
				return err
			}
			printEnsemble(cmd.OutOrStdout(), res)
			return nil
		},
	}
	cmd.Flags().StringVar(&workdir, "dir", "MultiFoXS", "working directory, emptied before the fit")
	return cmd
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, args []string) {
			v := version
			if info, ok := debug.ReadBuildInfo(); ok && v == "dev" && info.Main.Version != "" {
				v = info.Main.Version
			}
			fmt.Fprintf(cmd.OutOrStdout(), "scoper version %s\n", v)
		},
	}
}

func writeMetrics(p *pipeline.Pipeline, cfg *config.Config, log logger.Logger) {
	if cfg.Metrics.Textfile == "" {
		return
	}
	if err := p.Metrics().WriteTextfile(cfg.Metrics.Textfile); err != nil {
		log.Error("Could not write the metrics", logger.Error(err))
	}
}
