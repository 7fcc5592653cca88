package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"time"

	yaml "gopkg.in/yaml.v3"

	"github.com/rupor-github/gencfg"
)

//go:embed config.yaml.tmpl
var ConfigTmpl []byte

type (
	TemplateFieldName string

	DatasetConfig struct {
		Path    string `yaml:"path" sanitize:"assure_file_access"`
		Aliases bool   `yaml:"aliases"`
	}

	// TargetConfig is a persisted runtime selection. Path is the runtime
	// executable used to open documents in it.
	TargetConfig struct {
		Name    string `yaml:"name" validate:"required"`
		Version string `yaml:"version" validate:"required"`
		Path    string `yaml:"path,omitempty"`
	}

	AnalysisConfig struct {
		CheckAtRules  bool `yaml:"check_at_rules"`
		Concurrency   int  `yaml:"concurrency" validate:"gte=0,lte=256"`
		FollowImports bool `yaml:"follow_imports"`
		ImportDepth   int  `yaml:"import_depth" validate:"gte=0,lte=32"`
	}

	FetchConfig struct {
		Timeout   time.Duration `yaml:"timeout" validate:"gt=0"`
		UserAgent string        `yaml:"user_agent" validate:"required"`
		MaxBytes  int64         `yaml:"max_bytes" validate:"gt=0"`
	}

	OutputConfig struct {
		Format          OutputFmt `yaml:"format" validate:"gte=0"`
		SummaryTemplate string    `yaml:"summary_template" validate:"required_if=Format 2"`
		ShowIssues      bool      `yaml:"show_issues"`
	}

	HistoryConfig struct {
		Enable bool   `yaml:"enable"`
		Path   string `yaml:"path" sanitize:"path_clean" validate:"required_if=Enable true"`
		Keep   int    `yaml:"keep" validate:"gte=0"`
	}

	Config struct {
		Version   int            `yaml:"version" validate:"eq=1"`
		Dataset   DatasetConfig  `yaml:"dataset"`
		Targets   []TargetConfig `yaml:"targets" validate:"dive"`
		Analysis  AnalysisConfig `yaml:"analysis"`
		Fetch     FetchConfig    `yaml:"fetch"`
		Output    OutputConfig   `yaml:"output"`
		History   HistoryConfig  `yaml:"history"`
		Logging   LoggingConfig  `yaml:"logging"`
		Reporting ReporterConfig `yaml:"reporting"`
	}
)

const (
	// NOTE: must match yaml field name above, report templates are expanded
	// at output time, not when configuration is loaded
	SummaryTemplateFieldName TemplateFieldName = "summary_template"
)

var requiredOptions = append([]func(*gencfg.ProcessingOptions){},
	gencfg.WithDoNotExpandField(string(SummaryTemplateFieldName)),
)

func unmarshalConfig(data []byte, cfg *Config, process bool) (*Config, error) {
	// We want to use only fields we defined so we cannot use yaml.Unmarshal
	// directly here
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode configuration data: %w", err)
	}
	if process {
		// sanitize and validate what has been loaded
		if err := gencfg.Sanitize(cfg); err != nil {
			return nil, err
		}
		if err := gencfg.Validate(cfg); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// LoadConfiguration reads the configuration from the file at the given path,
// superimposes its values on top of expanded configuration tamplate to provide
// sane defaults and performs validation.
func LoadConfiguration(path string, options ...func(*gencfg.ProcessingOptions)) (*Config, error) {
	haveFile := len(path) > 0

	data, err := gencfg.Process(ConfigTmpl, append(requiredOptions, options...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to process configuration template: %w", err)
	}
	cfg, err := unmarshalConfig(data, &Config{}, !haveFile)
	if err != nil {
		return nil, fmt.Errorf("failed to process configuration template: %w", err)
	}
	if !haveFile {
		return cfg, nil
	}

	// overwrite cfg values with values from the file
	data, err = os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	cfg, err = unmarshalConfig(data, cfg, haveFile)
	if err != nil {
		return nil, fmt.Errorf("failed to process configuration file: %w", err)
	}
	return cfg, nil
}

// Prepare generates configuration file from template and returns it as a byte
// slice.
func Prepare() ([]byte, error) {
	return gencfg.Process(ConfigTmpl, requiredOptions...)
}

func Dump(cfg *Config) ([]byte, error) {
	data, err := yaml.Marshal(*cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config to yaml: %v", err)
	}
	return data, nil
}
