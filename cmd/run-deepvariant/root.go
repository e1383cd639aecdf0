package main

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"runvariant/internal/config"
	"runvariant/internal/dispatch"
	"runvariant/internal/history"
	"runvariant/internal/logging"
	"runvariant/internal/pipeline"
	"runvariant/internal/profile"
)

// version is the DeepVariant release this runner drives.
var version = "1.0.0"

// newExecutor is a seam for tests to point the pipeline at a fake shell.
var newExecutor = dispatch.NewExecutor

var runFlags struct {
	modelType              string
	ref                    string
	reads                  string
	outputVCF              string
	intermediateResultsDir string
	customizedModel        string
	numShards              int
	regions                string
	sampleName             string
	outputGVCF             string
	vcfStatsReport         bool

	makeExamplesExtraArgs        string
	callVariantsExtraArgs        string
	postprocessVariantsExtraArgs string

	runProfile string
	historyDB  string
	dryRun     bool
	logLevel   string
	logFormat  string
}

var rootCmd = &cobra.Command{
	Use:   "run-deepvariant",
	Short: "Run the DeepVariant variant-calling pipeline end to end",
	Long: `run-deepvariant validates its inputs, resolves the model checkpoint for
the chosen model type, builds the three stage commands (make_examples,
call_variants, postprocess_variants), and executes them in order through
the shell, stopping at the first failure.

The make_examples stage fans out over --num_shards shard indices via GNU
parallel; the other two stages run as single processes. Intermediate
artifacts are written to --intermediate_results_dir (a temporary
directory is allocated when unset) and left in place after the run.`,
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runPipeline,
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
}

func init() {
	f := rootCmd.Flags()
	f.StringVar(&runFlags.modelType, "model_type", "",
		"Required. Type of model to use for variant calling. One of WGS, WES, PACBIO, "+
			"HYBRID_PACBIO_ILLUMINA. Each model type has an associated default checkpoint, "+
			"which can be overridden by the --customized_model flag.")
	f.StringVar(&runFlags.ref, "ref", "",
		"Required. Genome reference to use. Must have an associated FAI index as well. "+
			"Supports text or gzipped references. Should match the reference used to align "+
			"the BAM file provided to --reads.")
	f.StringVar(&runFlags.reads, "reads", "",
		"Required. Aligned, sorted, indexed BAM file containing the reads we want to call. "+
			"Should be aligned to a reference genome compatible with --ref.")
	f.StringVar(&runFlags.outputVCF, "output_vcf", "",
		"Required. Path where we should write VCF file.")
	f.StringVar(&runFlags.intermediateResultsDir, "intermediate_results_dir", "",
		"Optional. If specified, this should be an existing directory that is visible inside "+
			"docker, and will be used to store intermediate outputs.")
	f.StringVar(&runFlags.customizedModel, "customized_model", "",
		"Optional. A path to a model checkpoint to load for the call_variants step. If not "+
			"set, the default for each --model_type will be used.")
	f.IntVar(&runFlags.numShards, "num_shards", 1,
		"Optional. Number of shards for the make_examples step.")
	f.StringVar(&runFlags.regions, "regions", "",
		"Optional. Space-separated list of regions we want to process. Elements can be "+
			"region literals (e.g., chr20:10-20) or paths to BED/BEDPE files.")
	f.StringVar(&runFlags.sampleName, "sample_name", "",
		"Sample name to use instead of the sample name from the input reads BAM (SM tag in "+
			"the header). This flag is used for both make_examples and postprocess_variants.")
	f.StringVar(&runFlags.outputGVCF, "output_gvcf", "",
		"Optional. Path where we should write gVCF file.")
	f.BoolVar(&runFlags.vcfStatsReport, "vcf_stats_report", true,
		"Optional. Output a visual report (HTML) of statistics about the output VCF.")

	f.StringVar(&runFlags.makeExamplesExtraArgs, "make_examples_extra_args", "",
		"A comma-separated list of flag_name=flag_value. flag_name has to be a valid flag "+
			"for make_examples. Boolean values must be flag_name=true or flag_name=false.")
	f.StringVar(&runFlags.callVariantsExtraArgs, "call_variants_extra_args", "",
		"A comma-separated list of flag_name=flag_value. flag_name has to be a valid flag "+
			"for call_variants. Boolean values must be flag_name=true or flag_name=false.")
	f.StringVar(&runFlags.postprocessVariantsExtraArgs, "postprocess_variants_extra_args", "",
		"A comma-separated list of flag_name=flag_value. flag_name has to be a valid flag "+
			"for postprocess_variants. Boolean values must be flag_name=true or flag_name=false.")

	f.StringVar(&runFlags.runProfile, "run_profile", "",
		"Optional. YAML or JSON file of flag defaults, applied underneath explicitly set flags.")
	f.StringVar(&runFlags.historyDB, "history_db", "",
		"Optional. Path to a SQLite database the run outcome is appended to "+
			"(e.g. "+history.DefaultDBPath+"). Use the history subcommand to list past runs.")
	f.BoolVar(&runFlags.dryRun, "dry_run", false,
		"Optional. Print the stage commands that would run, then exit without executing them.")
	f.StringVar(&runFlags.logLevel, "log_level", "info", "Log level: debug, info, warn, or error.")
	f.StringVar(&runFlags.logFormat, "log_format", "text", "Log format: text or json.")

	rootCmd.Version = version
	rootCmd.SetVersionTemplate("DeepVariant version {{.Version}}\n")

	rootCmd.AddCommand(historyCmd)
}

func runPipeline(cmd *cobra.Command, _ []string) error {
	level, err := logging.ParseLevel(runFlags.logLevel)
	if err != nil {
		return err
	}
	logging.Init(level, runFlags.logFormat, cmd.ErrOrStderr())
	log := logging.New("run")

	if runFlags.runProfile != "" {
		p, err := profile.Load(runFlags.runProfile)
		if err != nil {
			return err
		}
		if err := p.Apply(cmd.Flags()); err != nil {
			return err
		}
		log.Info("applied run profile", "path", runFlags.runProfile)
	}

	cfg := buildConfig()
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("%w\nPass --help to see help on flags.", err)
	}

	if cfg.CustomizedModel != "" {
		log.Info("loading a customized checkpoint instead of the default for this model type",
			"model_type", cfg.ModelType, "checkpoint", cfg.CustomizedModel)
	}

	dir, reused, err := cfg.ResolveIntermediateDir()
	if err != nil {
		return err
	}
	if reused {
		log.Info("re-using the directory for intermediate results", "dir", dir)
	} else {
		log.Info("created a directory for intermediate results", "dir", dir)
	}

	plan, err := pipeline.NewPlan(cfg, dir)
	if err != nil {
		return err
	}
	for _, c := range plan.Collisions {
		log.Warn("extra arg overrides a built-in value", "flag", c.Key, "old", c.Old, "new", c.New)
	}

	if cfg.DryRun {
		fmt.Fprintln(cmd.OutOrStdout(), planTable(plan))
		return nil
	}

	manifest := pipeline.NewManifest(version, cfg, plan)
	executor := newExecutor()

	cmds := make([]dispatch.Command, 0, len(plan.Stages))
	for _, sc := range plan.Stages {
		cmds = append(cmds, dispatch.Command{Stage: sc.Stage, Shell: sc.Shell()})
	}

	start := time.Now()
	results, runErr := executor.RunSequence(cmd.Context(), cmds)
	for _, r := range results {
		manifest.RecordResult(r.Stage, r.Duration, r.ExitCode)
	}

	if path, err := pipeline.WriteManifest(dir, manifest); err != nil {
		log.Warn("could not write run manifest", "error", err)
	} else {
		log.Info("wrote run manifest", "path", path)
	}

	if runFlags.historyDB != "" {
		recordHistory(log, cfg, plan, results, runErr, start)
	}

	if runFlags.logFormat != "json" && len(results) > 0 {
		fmt.Fprintln(cmd.OutOrStdout(), summaryTable(results))
	}

	if runErr != nil {
		return runErr
	}
	log.Info("pipeline finished", "output_vcf", cfg.OutputVCF)
	return nil
}

// recordHistory appends the run outcome to the SQLite history database,
// stamped with the pipeline start time. History errors are logged and
// swallowed; they never fail the run.
func recordHistory(log *slog.Logger, cfg config.Config, plan *pipeline.Plan, results []dispatch.Result, runErr error, start time.Time) {
	exit := 0
	if runErr != nil {
		exit = exitCode(runErr)
	}

	s, err := history.Open(runFlags.historyDB)
	if err != nil {
		log.Warn("could not open run history", "path", runFlags.historyDB, "error", err)
		return
	}
	defer s.Close()

	id, err := s.SaveRun(&history.Run{
		StartedAt:       start.UTC().Format(time.RFC3339),
		RunnerVersion:   version,
		ModelType:       string(cfg.ModelType),
		Checkpoint:      plan.Checkpoint,
		OutputVCF:       cfg.OutputVCF,
		IntermediateDir: plan.IntermediateDir,
		NumShards:       cfg.NumShards,
		StagesRun:       len(results),
		ExitCode:        exit,
		Duration:        time.Since(start),
	})
	if err != nil {
		log.Warn("could not record run history", "error", err)
		return
	}
	log.Info("recorded run history", "path", runFlags.historyDB, "run_id", id)
}

func buildConfig() config.Config {
	return config.Config{
		ModelType:              config.ModelType(runFlags.modelType),
		Ref:                    runFlags.ref,
		Reads:                  runFlags.reads,
		OutputVCF:              runFlags.outputVCF,
		IntermediateResultsDir: runFlags.intermediateResultsDir,
		CustomizedModel:        runFlags.customizedModel,
		NumShards:              runFlags.numShards,
		Regions:                runFlags.regions,
		SampleName:             runFlags.sampleName,
		OutputGVCF:             runFlags.outputGVCF,
		VCFStatsReport:         runFlags.vcfStatsReport,

		MakeExamplesExtraArgs:        runFlags.makeExamplesExtraArgs,
		CallVariantsExtraArgs:        runFlags.callVariantsExtraArgs,
		PostprocessVariantsExtraArgs: runFlags.postprocessVariantsExtraArgs,

		DryRun: runFlags.dryRun,
	}
}
