// Package profile loads reusable run profiles: flag defaults stored in a
// YAML or JSON file and applied underneath whatever the user set on the
// command line.
package profile

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

// Profile mirrors the CLI flag surface. Pointer fields distinguish "not in
// the profile" from an explicit zero value.
type Profile struct {
	ModelType              string `yaml:"model_type" json:"model_type"`
	Ref                    string `yaml:"ref" json:"ref"`
	Reads                  string `yaml:"reads" json:"reads"`
	OutputVCF              string `yaml:"output_vcf" json:"output_vcf"`
	IntermediateResultsDir string `yaml:"intermediate_results_dir" json:"intermediate_results_dir"`
	CustomizedModel        string `yaml:"customized_model" json:"customized_model"`
	NumShards              *int   `yaml:"num_shards" json:"num_shards"`
	Regions                string `yaml:"regions" json:"regions"`
	SampleName             string `yaml:"sample_name" json:"sample_name"`
	OutputGVCF             string `yaml:"output_gvcf" json:"output_gvcf"`
	VCFStatsReport         *bool  `yaml:"vcf_stats_report" json:"vcf_stats_report"`

	MakeExamplesExtraArgs        string `yaml:"make_examples_extra_args" json:"make_examples_extra_args"`
	CallVariantsExtraArgs        string `yaml:"call_variants_extra_args" json:"call_variants_extra_args"`
	PostprocessVariantsExtraArgs string `yaml:"postprocess_variants_extra_args" json:"postprocess_variants_extra_args"`
}

// Load reads a profile file, detecting the format by extension
// (.yaml/.yml/.json) or, failing that, by content.
func Load(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read run profile: %w", err)
	}
	return Decode(data, filepath.Ext(path))
}

// Decode parses a profile from bytes. ext is the file extension used as a
// format hint; when empty the format is detected from the content.
func Decode(data []byte, ext string) (*Profile, error) {
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		return decodeYAML(data)
	case ".json":
		return decodeJSON(data)
	}
	if strings.HasPrefix(strings.TrimSpace(string(data)), "{") {
		return decodeJSON(data)
	}
	return decodeYAML(data)
}

func decodeYAML(data []byte) (*Profile, error) {
	var p Profile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parse run profile yaml: %w", err)
	}
	return &p, nil
}

func decodeJSON(data []byte) (*Profile, error) {
	var p Profile
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parse run profile json: %w", err)
	}
	return &p, nil
}

// Apply copies profile values into fs for every flag the user did not set
// explicitly on the command line. Empty profile strings count as absent.
func (p *Profile) Apply(fs *pflag.FlagSet) error {
	values := map[string]string{
		"model_type":                      p.ModelType,
		"ref":                             p.Ref,
		"reads":                           p.Reads,
		"output_vcf":                      p.OutputVCF,
		"intermediate_results_dir":        p.IntermediateResultsDir,
		"customized_model":                p.CustomizedModel,
		"regions":                         p.Regions,
		"sample_name":                     p.SampleName,
		"output_gvcf":                     p.OutputGVCF,
		"make_examples_extra_args":        p.MakeExamplesExtraArgs,
		"call_variants_extra_args":        p.CallVariantsExtraArgs,
		"postprocess_variants_extra_args": p.PostprocessVariantsExtraArgs,
	}
	if p.NumShards != nil {
		values["num_shards"] = strconv.Itoa(*p.NumShards)
	}
	if p.VCFStatsReport != nil {
		values["vcf_stats_report"] = strconv.FormatBool(*p.VCFStatsReport)
	}

	for name, value := range values {
		if value == "" {
			continue
		}
		flag := fs.Lookup(name)
		if flag == nil || flag.Changed {
			continue
		}
		if err := fs.Set(name, value); err != nil {
			return fmt.Errorf("profile value for --%s: %w", name, err)
		}
	}
	return nil
}
