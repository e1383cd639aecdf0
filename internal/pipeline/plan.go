// Package pipeline builds the three-stage variant-calling plan: one
// command per stage, connected by the artifact paths each stage writes
// for the next.
package pipeline

import (
	"fmt"
	"path/filepath"

	"github.com/dominikbraun/graph"

	"runvariant/internal/cmdline"
	"runvariant/internal/config"
)

// Plan is the ordered set of stage commands for one run, plus the derived
// artifact paths that connect them. It is built once from a validated
// config and never mutated.
type Plan struct {
	Stages []StageCommand

	IntermediateDir string
	Examples        string
	GVCFRecords     string
	CallVariantsOut string
	Checkpoint      string

	// Collisions from merging injected defaults and user extra args;
	// the caller decides how to surface them.
	Collisions []cmdline.Collision
}

// NewPlan resolves the model checkpoint, derives the artifact paths under
// intermediateDir, builds the three stage commands, and orders them by
// their artifact dependencies.
func NewPlan(cfg config.Config, intermediateDir string) (*Plan, error) {
	checkpoint, err := cfg.ModelCheckpoint()
	if err != nil {
		return nil, err
	}

	p := &Plan{
		IntermediateDir: intermediateDir,
		Examples: filepath.Join(intermediateDir,
			fmt.Sprintf("make_examples.tfrecord@%d.gz", cfg.NumShards)),
		CallVariantsOut: filepath.Join(intermediateDir, "call_variants_output.tfrecord.gz"),
		Checkpoint:      checkpoint,
	}
	if cfg.OutputGVCF != "" {
		p.GVCFRecords = filepath.Join(intermediateDir,
			fmt.Sprintf("gvcf.tfrecord@%d.gz", cfg.NumShards))
	}

	makeExamples, collisions, err := MakeExamples(cfg, p.Examples, p.GVCFRecords)
	if err != nil {
		return nil, err
	}
	p.Collisions = collisions

	callVariants, err := CallVariants(cfg, p.CallVariantsOut, p.Examples, checkpoint)
	if err != nil {
		return nil, err
	}

	postprocess, err := PostprocessVariants(cfg, p.CallVariantsOut, p.GVCFRecords)
	if err != nil {
		return nil, err
	}

	byStage := map[string]StageCommand{
		StageMakeExamples: makeExamples,
		StageCallVariants: callVariants,
		StagePostprocess:  postprocess,
	}
	order, err := stageOrder()
	if err != nil {
		return nil, err
	}
	for _, name := range order {
		p.Stages = append(p.Stages, byStage[name])
	}
	return p, nil
}

// stageOrder topologically sorts the stage dependency graph. Each edge is
// an artifact handoff: make_examples feeds call_variants the example
// records, call_variants feeds postprocess_variants the raw call outputs.
func stageOrder() ([]string, error) {
	g := graph.New(graph.StringHash, graph.Directed(), graph.Acyclic())
	for _, stage := range []string{StageMakeExamples, StageCallVariants, StagePostprocess} {
		if err := g.AddVertex(stage); err != nil {
			return nil, fmt.Errorf("adding stage %s to graph: %w", stage, err)
		}
	}
	if err := g.AddEdge(StageMakeExamples, StageCallVariants); err != nil {
		return nil, fmt.Errorf("adding examples handoff edge: %w", err)
	}
	if err := g.AddEdge(StageCallVariants, StagePostprocess); err != nil {
		return nil, fmt.Errorf("adding call outputs handoff edge: %w", err)
	}

	order, err := graph.StableTopologicalSort(g, func(a, b string) bool { return a < b })
	if err != nil {
		return nil, fmt.Errorf("ordering stages: %w", err)
	}
	return order, nil
}
