package pipeline

import (
	"fmt"
	"strings"

	"runvariant/internal/cmdline"
	"runvariant/internal/config"
)

// Stage names, in the order the artifacts flow.
const (
	StageMakeExamples = "make_examples"
	StageCallVariants = "call_variants"
	StagePostprocess  = "postprocess_variants"
)

const (
	makeExamplesBin = "/opt/deepvariant/bin/make_examples"
	callVariantsBin = "/opt/deepvariant/bin/call_variants"
	postprocessBin  = "/opt/deepvariant/bin/postprocess_variants"
)

// StageCommand is one external-program invocation, kept as structured
// tokens until the execution boundary.
type StageCommand struct {
	Stage   string
	Program string
	Tokens  []string
}

// Shell joins the tokens into the single string handed to the shell.
func (sc StageCommand) Shell() string {
	return strings.Join(sc.Tokens, " ")
}

// quoted wraps a fixed path argument in double quotes. Only merged extra
// args honor pre-quoted values; fixed arguments are always wrapped.
func quoted(v string) string {
	return `"` + v + `"`
}

// optional converts an empty string to nil so the renderer omits the flag.
func optional(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// pacbioDefaults are the long-read overrides injected for PACBIO runs
// before the user's extra args are merged, so an explicit extra arg for
// any of these flags still wins.
func pacbioDefaults() cmdline.Dict {
	return cmdline.Dict{
		"realign_reads":           false,
		"vsc_min_fraction_indels": "0.12",
		"alt_aligned_pileup":      "diff_channels",
	}
}

// MakeExamples builds the sharded example-generation command. The shard
// fan-out is delegated to GNU parallel: shard indices 0..num_shards-1 are
// piped in, --halt 2 stops every shard as soon as one fails, and the
// trailing --task {} placeholder is substituted per shard by parallel
// itself, not by us.
func MakeExamples(cfg config.Config, examples, gvcfRecords string) (StageCommand, []cmdline.Collision, error) {
	extra, err := cmdline.Parse(cfg.MakeExamplesExtraArgs)
	if err != nil {
		return StageCommand{}, nil, fmt.Errorf("building %s command: %w", StageMakeExamples, err)
	}

	tokens := []string{
		"time",
		fmt.Sprintf("seq 0 %d |", cfg.NumShards-1),
		"parallel -q --halt 2 --line-buffer",
		makeExamplesBin,
		"--mode", "calling",
		"--ref", quoted(cfg.Ref),
		"--reads", quoted(cfg.Reads),
		"--examples", quoted(examples),
	}

	base := cmdline.Dict{
		"gvcf":        optional(gvcfRecords),
		"regions":     optional(cfg.Regions),
		"sample_name": optional(cfg.SampleName),
	}

	var overlays []cmdline.Dict
	if cfg.ModelType == config.ModelPacBio {
		overlays = append(overlays, pacbioDefaults())
	}
	overlays = append(overlays, extra)

	merged, collisions := cmdline.Merge(base, overlays...)
	tokens = cmdline.Render(tokens, merged)
	tokens = append(tokens, "--task {}")

	return StageCommand{Stage: StageMakeExamples, Program: makeExamplesBin, Tokens: tokens}, collisions, nil
}

// CallVariants builds the inference command that loads the resolved model
// checkpoint and calls variants on the example records.
func CallVariants(cfg config.Config, outfile, examples, checkpoint string) (StageCommand, error) {
	extra, err := cmdline.Parse(cfg.CallVariantsExtraArgs)
	if err != nil {
		return StageCommand{}, fmt.Errorf("building %s command: %w", StageCallVariants, err)
	}

	tokens := []string{
		"time",
		callVariantsBin,
		"--outfile", quoted(outfile),
		"--examples", quoted(examples),
		"--checkpoint", quoted(checkpoint),
	}
	tokens = cmdline.Render(tokens, extra)

	return StageCommand{Stage: StageCallVariants, Program: callVariantsBin, Tokens: tokens}, nil
}

// PostprocessVariants builds the final stage that turns raw call outputs
// into the VCF (and optionally gVCF) the user asked for. The stats report
// is on by default and renders only as --novcf_stats_report when disabled.
func PostprocessVariants(cfg config.Config, infile, gvcfRecords string) (StageCommand, error) {
	extra, err := cmdline.Parse(cfg.PostprocessVariantsExtraArgs)
	if err != nil {
		return StageCommand{}, fmt.Errorf("building %s command: %w", StagePostprocess, err)
	}

	tokens := []string{
		"time",
		postprocessBin,
		"--ref", quoted(cfg.Ref),
		"--infile", quoted(infile),
		"--outfile", quoted(cfg.OutputVCF),
	}
	if gvcfRecords != "" {
		tokens = append(tokens, "--nonvariant_site_tfrecord_path", quoted(gvcfRecords))
	}
	if cfg.OutputGVCF != "" {
		tokens = append(tokens, "--gvcf_outfile", quoted(cfg.OutputGVCF))
	}
	if !cfg.VCFStatsReport {
		tokens = append(tokens, "--novcf_stats_report")
	}
	if cfg.SampleName != "" {
		tokens = append(tokens, "--sample_name", quoted(cfg.SampleName))
	}
	tokens = cmdline.Render(tokens, extra)

	return StageCommand{Stage: StagePostprocess, Program: postprocessBin, Tokens: tokens}, nil
}
