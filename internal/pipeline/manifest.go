package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"runvariant/internal/config"
)

// ManifestName is the manifest file name inside the intermediate results
// directory.
const ManifestName = "run_manifest.yaml"

// Manifest records what a run executed, written into the intermediate
// results directory so a finished or failed run can be inspected later.
type Manifest struct {
	Version    string        `yaml:"version"`
	CreatedAt  time.Time     `yaml:"created_at"`
	ModelType  string        `yaml:"model_type"`
	Checkpoint string        `yaml:"checkpoint"`
	Artifacts  ArtifactPaths `yaml:"artifacts"`
	Stages     []StageRecord `yaml:"stages"`
}

// ArtifactPaths lists where each pipeline artifact lives.
type ArtifactPaths struct {
	IntermediateDir string `yaml:"intermediate_dir"`
	Examples        string `yaml:"examples"`
	GVCFRecords     string `yaml:"gvcf_records,omitempty"`
	CallVariantsOut string `yaml:"call_variants_output"`
	OutputVCF       string `yaml:"output_vcf"`
	OutputGVCF      string `yaml:"output_gvcf,omitempty"`
}

// StageRecord is one stage in the manifest. Duration and ExitCode are
// filled in as stages finish; a stage that never ran keeps Ran=false.
type StageRecord struct {
	Stage    string `yaml:"stage"`
	Command  string `yaml:"command"`
	Ran      bool   `yaml:"ran"`
	Duration string `yaml:"duration,omitempty"`
	ExitCode int    `yaml:"exit_code"`
}

// NewManifest seeds a manifest from the plan. One StageRecord per stage
// command, in execution order, with run results still blank.
func NewManifest(version string, cfg config.Config, p *Plan) Manifest {
	m := Manifest{
		Version:    version,
		CreatedAt:  time.Now().UTC(),
		ModelType:  string(cfg.ModelType),
		Checkpoint: p.Checkpoint,
		Artifacts: ArtifactPaths{
			IntermediateDir: p.IntermediateDir,
			Examples:        p.Examples,
			GVCFRecords:     p.GVCFRecords,
			CallVariantsOut: p.CallVariantsOut,
			OutputVCF:       cfg.OutputVCF,
			OutputGVCF:      cfg.OutputGVCF,
		},
	}
	for _, sc := range p.Stages {
		m.Stages = append(m.Stages, StageRecord{Stage: sc.Stage, Command: sc.Shell()})
	}
	return m
}

// RecordResult marks the named stage as ran with its duration and exit
// code. Unknown stage names are ignored.
func (m *Manifest) RecordResult(stage string, d time.Duration, exitCode int) {
	for i := range m.Stages {
		if m.Stages[i].Stage == stage {
			m.Stages[i].Ran = true
			m.Stages[i].Duration = d.String()
			m.Stages[i].ExitCode = exitCode
			return
		}
	}
}

// WriteManifest writes m into dir as ManifestName and returns the path.
func WriteManifest(dir string, m Manifest) (string, error) {
	data, err := yaml.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("marshal run manifest: %w", err)
	}
	path := filepath.Join(dir, ManifestName)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write run manifest %s: %w", path, err)
	}
	return path, nil
}

// ReadManifest loads the manifest previously written into dir.
func ReadManifest(dir string) (*Manifest, error) {
	path := filepath.Join(dir, ManifestName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read run manifest %s: %w", path, err)
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse run manifest %s: %w", path, err)
	}
	return &m, nil
}
