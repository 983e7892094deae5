package config

import (
	"os"
	"time"

	"github.com/rmera/scoper/logger"
)

// Defaults for a run. The sampler parameters are the ones
// KGSrna is normally run with for RNA.
const (
	DefaultBaseDir        = "scoper_out"
	DefaultSamples        = 100
	DefaultTopK           = 1
	DefaultReduce         = "reduce"
	DefaultPrepareScript  = "kgs_prepare.py"
	DefaultInterpreter    = "python"
	DefaultSampler        = "/usr/local/bin/kgs_explore"
	DefaultNeighbors      = 20
	DefaultStepSize       = 0.4
	DefaultScorer         = "foxs"
	DefaultSolver         = "multi_foxs_combination"
	DefaultPrepTimeout    = 10 * time.Minute
	DefaultSamplerTimeout = 6 * time.Hour
	DefaultScorerTimeout  = 10 * time.Minute
	DefaultSolverTimeout  = 6 * time.Hour
	DefaultRefineTimeout  = 6 * time.Hour
	DefaultWorkers        = 1
	DefaultBins           = 10
	MinEnsembleStructures = 2
)

// Config is the whole configuration of a scoper run. It is built once,
// before the run, and each stage receives the part it needs.
type Config struct {
	// Input is the RNA structure (PDB) to sample from.
	Input string `yaml:"input" env:"SCOPER_INPUT"`
	// Profile is the target SAXS profile: a file, or a key in Profiles.
	Profile string `yaml:"profile" env:"SCOPER_PROFILE"`
	// Profiles maps names of reference profiles to their files.
	Profiles map[string]string `yaml:"profiles"`
	// BaseDir is where all the run's directories are created.
	BaseDir string `yaml:"base_dir" env:"SCOPER_BASE_DIR"`
	// Samples is the number of conformations requested from the sampler.
	Samples int `yaml:"samples" env:"SCOPER_SAMPLES"`
	// TopK is the number of best-scoring candidates kept. Zero means the
	// default, and Validate rejects a zero set after loading.
	TopK int `yaml:"top_k" env:"SCOPER_TOP_K"`
	// Ensemble enables the MultiFoXS ensemble fit.
	Ensemble bool `yaml:"ensemble" env:"SCOPER_ENSEMBLE"`

	Tools      ToolsConfig      `yaml:"tools"`
	Preprocess PreprocessConfig `yaml:"preprocess"`
	Scoring    ScoringConfig    `yaml:"scoring"`
	Refine     RefineConfig     `yaml:"refine"`
	Report     ReportConfig     `yaml:"report"`
	Metrics    MetricsConfig    `yaml:"metrics"`
	Logging    logger.Config    `yaml:"logging"`
}

// ToolsConfig holds the external programs.
type ToolsConfig struct {
	Reduce   ReduceConfig   `yaml:"reduce"`
	Prepare  PrepareConfig  `yaml:"prepare"`
	Sampler  SamplerConfig  `yaml:"sampler"`
	Scorer   ScorerConfig   `yaml:"scorer"`
	Ensemble EnsembleConfig `yaml:"ensemble"`
}

// ReduceConfig is the hydrogen-addition program. It must leave
// <input>.HB next to the input structure.
type ReduceConfig struct {
	Path    string        `yaml:"path" env:"SCOPER_REDUCE"`
	Timeout time.Duration `yaml:"timeout"`
}

// PrepareConfig is the KGS preparation script. If Interpreter is empty
// the script is executed directly.
type PrepareConfig struct {
	Path        string        `yaml:"path" env:"SCOPER_PREPARE"`
	Interpreter string        `yaml:"interpreter" env:"SCOPER_PREPARE_INTERPRETER"`
	Timeout     time.Duration `yaml:"timeout"`
}

// SamplerConfig is kgs_explore.
type SamplerConfig struct {
	Path      string        `yaml:"path" env:"SCOPER_KGS"`
	Neighbors int           `yaml:"neighbors"`
	Step      float64       `yaml:"step"`
	Timeout   time.Duration `yaml:"timeout"`
}

// ScorerConfig is FoXS.
type ScorerConfig struct {
	Path    string        `yaml:"path" env:"SCOPER_FOXS"`
	Timeout time.Duration `yaml:"timeout"`
}

// EnsembleConfig is the MultiFoXS combination program.
type EnsembleConfig struct {
	Path    string        `yaml:"path" env:"SCOPER_MULTIFOXS"`
	Timeout time.Duration `yaml:"timeout"`
}

// PreprocessConfig sets the policy for the preprocessing step.
type PreprocessConfig struct {
	// Strict makes preprocessing and sampling failures abort the run.
	// Otherwise they are logged and the run continues.
	Strict bool `yaml:"strict" env:"SCOPER_STRICT"`
	// StripAtoms lists atom names to delete from the hydrogenated structure
	// before sampling.
	StripAtoms []string `yaml:"strip_atoms"`
}

// ScoringConfig controls the FoXS scoring loop.
type ScoringConfig struct {
	Workers int `yaml:"workers" env:"SCOPER_SCORING_WORKERS"`
}

// RefineConfig is the downstream refinement program, run once per
// selected candidate. An empty Command disables refinement.
type RefineConfig struct {
	Command        string        `yaml:"command" env:"SCOPER_REFINE"`
	InferenceType  string        `yaml:"inference_type"`
	Model          string        `yaml:"model" env:"SCOPER_MODEL"`
	ModelConfig    string        `yaml:"model_config" env:"SCOPER_MODEL_CONFIG"`
	Workers        int           `yaml:"workers"`
	AbortOnFailure bool          `yaml:"abort_on_failure"`
	Timeout        time.Duration `yaml:"timeout"`
}

// ReportConfig sets the optional outputs. Empty paths disable them.
type ReportConfig struct {
	// Path is the score table. A .zst or .gz extension compresses it.
	Path string `yaml:"path" env:"SCOPER_REPORT"`
	// Plot is a PNG/SVG/PDF file with the score vs. rank plot.
	Plot string `yaml:"plot" env:"SCOPER_PLOT"`
	// JSON is the complete run report, in JSON. .zst and .gz compress it too.
	JSON string `yaml:"json" env:"SCOPER_REPORT_JSON"`
	// Bins is the number of bins in the score histogram.
	Bins int `yaml:"bins"`
}

// MetricsConfig sets where the Prometheus textfile is written.
type MetricsConfig struct {
	Textfile string `yaml:"textfile" env:"SCOPER_METRICS_TEXTFILE"`
}

// Default returns a Config with every default set.
func Default() *Config {
	c := new(Config)
	c.SetDefaults()
	return c
}

// SetDefaults fills the zero fields of c with default values.
func (c *Config) SetDefaults() {
	if c.BaseDir == "" {
		c.BaseDir = DefaultBaseDir
	}
	if c.Samples == 0 {
		c.Samples = DefaultSamples
	}
	if c.TopK == 0 {
		c.TopK = DefaultTopK
	}
	t := &c.Tools
	if t.Reduce.Path == "" {
		t.Reduce.Path = DefaultReduce
	}
	if t.Reduce.Timeout == 0 {
		t.Reduce.Timeout = DefaultPrepTimeout
	}
	if t.Prepare.Path == "" {
		t.Prepare.Path = DefaultPrepareScript
		if t.Prepare.Interpreter == "" {
			t.Prepare.Interpreter = DefaultInterpreter
		}
	}
	if t.Prepare.Timeout == 0 {
		t.Prepare.Timeout = DefaultPrepTimeout
	}
	if t.Sampler.Path == "" {
		t.Sampler.Path = DefaultSampler
	}
	if t.Sampler.Neighbors == 0 {
		t.Sampler.Neighbors = DefaultNeighbors
	}
	if t.Sampler.Step == 0 {
		t.Sampler.Step = DefaultStepSize
	}
	if t.Sampler.Timeout == 0 {
		t.Sampler.Timeout = DefaultSamplerTimeout
	}
	if t.Scorer.Path == "" {
		t.Scorer.Path = DefaultScorer
	}
	if t.Scorer.Timeout == 0 {
		t.Scorer.Timeout = DefaultScorerTimeout
	}
	if t.Ensemble.Path == "" {
		t.Ensemble.Path = DefaultSolver
	}
	if t.Ensemble.Timeout == 0 {
		t.Ensemble.Timeout = DefaultSolverTimeout
	}
	if c.Scoring.Workers == 0 {
		c.Scoring.Workers = DefaultWorkers
	}
	if c.Refine.Workers == 0 {
		c.Refine.Workers = DefaultWorkers
	}
	if c.Refine.Timeout == 0 {
		c.Refine.Timeout = DefaultRefineTimeout
	}
	if c.Report.Bins == 0 {
		c.Report.Bins = DefaultBins
	}
	c.Logging.SetDefaults()
}

// ResolveProfile returns the path of the target profile. Profile can be
// the name of one of the reference profiles, or a path.
func (c *Config) ResolveProfile() string {
	if p, ok := c.Profiles[c.Profile]; ok {
		return p
	}
	return c.Profile
}

// EnsembleRequested returns true if the ensemble fit should actually run,
// and a human-readable reason when it should not.
func (c *Config) EnsembleRequested() (bool, string) {
	if !c.Ensemble {
		return false, "disabled by user settings"
	}
	if c.TopK < MinEnsembleStructures {
		return false, "top k is smaller than the minimal number of structures for an ensemble"
	}
	return true, ""
}

func fileExists(path string) bool {
	st, err := os.Stat(path)
	return err == nil && !st.IsDir()
}
