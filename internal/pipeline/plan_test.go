package pipeline

import (
	"testing"

	"runvariant/internal/config"
)

func TestNewPlanThreadsArtifacts(t *testing.T) {
	cfg := baseConfig()
	cfg.NumShards = 2

	plan, err := NewPlan(cfg, "/tmp/dv")
	if err != nil {
		t.Fatalf("NewPlan() error: %v", err)
	}

	if len(plan.Stages) != 3 {
		t.Fatalf("got %d stages, want 3", len(plan.Stages))
	}
	wantOrder := []string{StageMakeExamples, StageCallVariants, StagePostprocess}
	for i, want := range wantOrder {
		if plan.Stages[i].Stage != want {
			t.Errorf("stage[%d] = %s, want %s", i, plan.Stages[i].Stage, want)
		}
	}

	if plan.Examples != "/tmp/dv/make_examples.tfrecord@2.gz" {
		t.Errorf("Examples = %s", plan.Examples)
	}
	if plan.CallVariantsOut != "/tmp/dv/call_variants_output.tfrecord.gz" {
		t.Errorf("CallVariantsOut = %s", plan.CallVariantsOut)
	}
	if plan.GVCFRecords != "" {
		t.Errorf("GVCFRecords = %s, want empty without --output_gvcf", plan.GVCFRecords)
	}

	// Stage 2 consumes stage 1's examples; stage 3 consumes stage 2's output.
	makeExamples := plan.Stages[0].Tokens
	callVariants := plan.Stages[1].Tokens
	postprocess := plan.Stages[2].Tokens
	if got, want := argValue(t, callVariants, "--examples"), argValue(t, makeExamples, "--examples"); got != want {
		t.Errorf("call_variants --examples = %s, make_examples wrote %s", got, want)
	}
	if got, want := argValue(t, postprocess, "--infile"), argValue(t, callVariants, "--outfile"); got != want {
		t.Errorf("postprocess --infile = %s, call_variants wrote %s", got, want)
	}
}

func TestNewPlanGVCF(t *testing.T) {
	cfg := baseConfig()
	cfg.OutputGVCF = "out.g.vcf.gz"

	plan, err := NewPlan(cfg, "/tmp/dv")
	if err != nil {
		t.Fatalf("NewPlan() error: %v", err)
	}

	if plan.GVCFRecords != "/tmp/dv/gvcf.tfrecord@1.gz" {
		t.Errorf("GVCFRecords = %s", plan.GVCFRecords)
	}
	if got := argValue(t, plan.Stages[0].Tokens, "--gvcf"); got != `"/tmp/dv/gvcf.tfrecord@1.gz"` {
		t.Errorf("make_examples --gvcf = %s", got)
	}
	if got := argValue(t, plan.Stages[2].Tokens, "--nonvariant_site_tfrecord_path"); got != `"/tmp/dv/gvcf.tfrecord@1.gz"` {
		t.Errorf("postprocess --nonvariant_site_tfrecord_path = %s", got)
	}
}

func TestNewPlanCheckpoint(t *testing.T) {
	cfg := baseConfig()
	cfg.ModelType = config.ModelWES

	plan, err := NewPlan(cfg, "/tmp/dv")
	if err != nil {
		t.Fatalf("NewPlan() error: %v", err)
	}
	if plan.Checkpoint != "/opt/models/wes/model.ckpt" {
		t.Errorf("Checkpoint = %s", plan.Checkpoint)
	}
	if got := argValue(t, plan.Stages[1].Tokens, "--checkpoint"); got != `"/opt/models/wes/model.ckpt"` {
		t.Errorf("call_variants --checkpoint = %s", got)
	}
}

func TestNewPlanUnknownModelType(t *testing.T) {
	cfg := baseConfig()
	cfg.ModelType = "EXOTIC"
	if _, err := NewPlan(cfg, "/tmp/dv"); err == nil {
		t.Fatal("NewPlan() accepted an unknown model type")
	}
}

func TestNewPlanMalformedExtraArgsFailEarly(t *testing.T) {
	tests := []struct {
		name string
		mut  func(*config.Config)
	}{
		{"make_examples", func(c *config.Config) { c.MakeExamplesExtraArgs = "a=b=c" }},
		{"call_variants", func(c *config.Config) { c.CallVariantsExtraArgs = "nope" }},
		{"postprocess_variants", func(c *config.Config) { c.PostprocessVariantsExtraArgs = "x==" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := baseConfig()
			tt.mut(&cfg)
			if _, err := NewPlan(cfg, "/tmp/dv"); err == nil {
				t.Fatalf("NewPlan() accepted malformed %s extra args", tt.name)
			}
		})
	}
}

func TestStageOrder(t *testing.T) {
	order, err := stageOrder()
	if err != nil {
		t.Fatalf("stageOrder() error: %v", err)
	}
	want := []string{StageMakeExamples, StageCallVariants, StagePostprocess}
	if len(order) != len(want) {
		t.Fatalf("got %d stages, want %d", len(order), len(want))
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("order[%d] = %s, want %s", i, order[i], want[i])
		}
	}
}
