// Package config holds the validated configuration for one pipeline run.
package config

import (
	"fmt"
	"os"
	"strings"
)

// ModelType selects which release checkpoint the inference stage loads.
type ModelType string

const (
	ModelWGS    ModelType = "WGS"
	ModelWES    ModelType = "WES"
	ModelPacBio ModelType = "PACBIO"
	ModelHybrid ModelType = "HYBRID_PACBIO_ILLUMINA"
)

// modelCheckpoints maps each model type to its release checkpoint path
// inside the container image.
var modelCheckpoints = map[ModelType]string{
	ModelWGS:    "/opt/models/wgs/model.ckpt",
	ModelWES:    "/opt/models/wes/model.ckpt",
	ModelPacBio: "/opt/models/pacbio/model.ckpt",
	ModelHybrid: "/opt/models/hybrid_pacbio_illumina/model.ckpt",
}

// ModelTypes lists the supported model types in display order.
func ModelTypes() []string {
	return []string{string(ModelWGS), string(ModelWES), string(ModelPacBio), string(ModelHybrid)}
}

// Config is the immutable picture of one run, assembled from the command
// line (and optional run profile) before anything executes.
type Config struct {
	ModelType ModelType
	Ref       string
	Reads     string
	OutputVCF string

	IntermediateResultsDir string
	CustomizedModel        string
	NumShards              int
	Regions                string
	SampleName             string
	OutputGVCF             string
	VCFStatsReport         bool

	MakeExamplesExtraArgs        string
	CallVariantsExtraArgs        string
	PostprocessVariantsExtraArgs string

	DryRun bool
}

// MissingFlagError names the first required flag that was not provided.
type MissingFlagError struct {
	Flag string
}

func (e *MissingFlagError) Error() string {
	return fmt.Sprintf("--%s is required", e.Flag)
}

// Validate checks that the four required values are present, in the order
// they are reported to the user on failure.
func (c *Config) Validate() error {
	required := []struct {
		name  string
		value string
	}{
		{"model_type", string(c.ModelType)},
		{"ref", c.Ref},
		{"reads", c.Reads},
		{"output_vcf", c.OutputVCF},
	}
	for _, r := range required {
		if r.value == "" {
			return &MissingFlagError{Flag: r.name}
		}
	}
	if c.NumShards < 1 {
		return fmt.Errorf("--num_shards must be at least 1, got %d", c.NumShards)
	}
	return nil
}

// ModelCheckpoint resolves the checkpoint path for this run. An explicit
// CustomizedModel always wins; otherwise the model type is looked up in the
// release checkpoint table. An unknown model type without an override is a
// configuration error.
func (c *Config) ModelCheckpoint() (string, error) {
	if c.CustomizedModel != "" {
		return c.CustomizedModel, nil
	}
	ckpt, ok := modelCheckpoints[c.ModelType]
	if !ok {
		return "", fmt.Errorf("unknown model type %q: must be one of %s",
			c.ModelType, strings.Join(ModelTypes(), "|"))
	}
	return ckpt, nil
}

// ResolveIntermediateDir returns the directory for intermediate artifacts:
// the configured path if it already is a directory, a newly created one if
// the path does not exist yet, or a fresh temporary directory when no path
// was configured. The second return reports whether an existing directory
// is being re-used.
func (c *Config) ResolveIntermediateDir() (dir string, reused bool, err error) {
	if c.IntermediateResultsDir == "" {
		dir, err = os.MkdirTemp("", "deepvariant_")
		if err != nil {
			return "", false, fmt.Errorf("creating temporary intermediate results dir: %w", err)
		}
		return dir, false, nil
	}

	dir = c.IntermediateResultsDir
	info, err := os.Stat(dir)
	switch {
	case err == nil && info.IsDir():
		return dir, true, nil
	case err == nil:
		return "", false, fmt.Errorf("intermediate results path %s exists and is not a directory", dir)
	case os.IsNotExist(err):
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", false, fmt.Errorf("creating intermediate results dir %s: %w", dir, err)
		}
		return dir, false, nil
	default:
		return "", false, fmt.Errorf("checking intermediate results dir %s: %w", dir, err)
	}
}
