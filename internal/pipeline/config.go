// Package pipeline implements the document enhancement pipeline applied
// to upload-sourced content: type detection, entity extraction, semantic
// chunking and metadata enrichment.
package pipeline

import (
	"fmt"
	"regexp"

	"github.com/spf13/viper"
)

// Chunking methods accepted by the config.
const (
	ChunkMethodSemantic = "semantic"
	ChunkMethodFixed    = "fixed"
)

// Config is the operator-supplied processing configuration. It is
// validated eagerly when loaded; an invalid document never produces a
// pipeline.
type Config struct {
	Enabled  bool `mapstructure:"enabled"`
	Parallel bool `mapstructure:"parallel"`

	TypeDetection    TypeDetectionConfig    `mapstructure:"type_detection"`
	EntityExtraction EntityExtractionConfig `mapstructure:"entity_extraction"`
	Chunking         ChunkingConfig         `mapstructure:"chunking"`
	Metadata         MetadataConfig         `mapstructure:"metadata"`
}

// TypeDetectionConfig controls the type detection stage
type TypeDetectionConfig struct {
	UseFilename         bool    `mapstructure:"use_filename"`
	UseContent          bool    `mapstructure:"use_content"`
	ConfidenceThreshold float64 `mapstructure:"confidence_threshold"`
}

// EntityExtractionConfig controls the entity extraction stage
type EntityExtractionConfig struct {
	Enabled              bool                 `mapstructure:"enabled"`
	ExtractDates         bool                 `mapstructure:"extract_dates"`
	ExtractAmounts       bool                 `mapstructure:"extract_amounts"`
	ExtractNames         bool                 `mapstructure:"extract_names"`
	ExtractOrganizations bool                 `mapstructure:"extract_organizations"`
	CustomEntities       []CustomEntityConfig `mapstructure:"custom_entities"`
}

// CustomEntityConfig defines one user-defined entity group, matched either
// by literal keyword patterns or by a regular expression.
type CustomEntityConfig struct {
	Name     string   `mapstructure:"name"`
	Patterns []string `mapstructure:"patterns"`
	Regex    string   `mapstructure:"regex"`
}

// ChunkingConfig controls the semantic chunking stage
type ChunkingConfig struct {
	Method         string `mapstructure:"method"`
	MinSize        int    `mapstructure:"min_size"`
	MaxSize        int    `mapstructure:"max_size"`
	Overlap        int    `mapstructure:"overlap"`
	PreserveTables bool   `mapstructure:"preserve_tables"`
}

// MetadataConfig controls the metadata enrichment stage
type MetadataConfig struct {
	AutoCategorize     bool `mapstructure:"auto_categorize"`
	AutoTag            bool `mapstructure:"auto_tag"`
	DetectBusinessUnit bool `mapstructure:"detect_business_unit"`
}

// DefaultConfig returns the configuration used when the operator supplies
// no document.
func DefaultConfig() *Config {
	return &Config{
		Enabled:  true,
		Parallel: true,
		TypeDetection: TypeDetectionConfig{
			UseFilename:         true,
			UseContent:          true,
			ConfidenceThreshold: 0.3,
		},
		EntityExtraction: EntityExtractionConfig{
			Enabled:              true,
			ExtractDates:         true,
			ExtractAmounts:       true,
			ExtractNames:         true,
			ExtractOrganizations: true,
		},
		Chunking: ChunkingConfig{
			Method:         ChunkMethodSemantic,
			MinSize:        500,
			MaxSize:        1500,
			Overlap:        100,
			PreserveTables: true,
		},
		Metadata: MetadataConfig{
			AutoCategorize:     true,
			AutoTag:            true,
			DetectBusinessUnit: true,
		},
	}
}

// LoadConfig reads a processing configuration document from path,
// applying defaults for absent keys and validating the result.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	defaults := DefaultConfig()
	v.SetDefault("enabled", defaults.Enabled)
	v.SetDefault("parallel", defaults.Parallel)
	v.SetDefault("type_detection.use_filename", defaults.TypeDetection.UseFilename)
	v.SetDefault("type_detection.use_content", defaults.TypeDetection.UseContent)
	v.SetDefault("type_detection.confidence_threshold", defaults.TypeDetection.ConfidenceThreshold)
	v.SetDefault("entity_extraction.enabled", defaults.EntityExtraction.Enabled)
	v.SetDefault("entity_extraction.extract_dates", defaults.EntityExtraction.ExtractDates)
	v.SetDefault("entity_extraction.extract_amounts", defaults.EntityExtraction.ExtractAmounts)
	v.SetDefault("entity_extraction.extract_names", defaults.EntityExtraction.ExtractNames)
	v.SetDefault("entity_extraction.extract_organizations", defaults.EntityExtraction.ExtractOrganizations)
	v.SetDefault("chunking.method", defaults.Chunking.Method)
	v.SetDefault("chunking.min_size", defaults.Chunking.MinSize)
	v.SetDefault("chunking.max_size", defaults.Chunking.MaxSize)
	v.SetDefault("chunking.overlap", defaults.Chunking.Overlap)
	v.SetDefault("chunking.preserve_tables", defaults.Chunking.PreserveTables)
	v.SetDefault("metadata.auto_categorize", defaults.Metadata.AutoCategorize)
	v.SetDefault("metadata.auto_tag", defaults.Metadata.AutoTag)
	v.SetDefault("metadata.detect_business_unit", defaults.Metadata.DetectBusinessUnit)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading processing config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling processing config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks every stage constraint. Called eagerly at load so a bad
// document fails startup instead of the first upload.
func (c *Config) Validate() error {
	if c.TypeDetection.ConfidenceThreshold < 0 || c.TypeDetection.ConfidenceThreshold > 1 {
		return fmt.Errorf("type_detection.confidence_threshold must be within [0, 1]: %f", c.TypeDetection.ConfidenceThreshold)
	}

	if c.Chunking.Method != ChunkMethodSemantic && c.Chunking.Method != ChunkMethodFixed {
		return fmt.Errorf("chunking.method must be %q or %q: %q", ChunkMethodSemantic, ChunkMethodFixed, c.Chunking.Method)
	}

	if c.Chunking.MinSize <= 0 {
		return fmt.Errorf("chunking.min_size must be greater than 0: %d", c.Chunking.MinSize)
	}

	if c.Chunking.MaxSize <= c.Chunking.MinSize {
		return fmt.Errorf("chunking.max_size must be greater than min_size: max_size=%d min_size=%d", c.Chunking.MaxSize, c.Chunking.MinSize)
	}

	if c.Chunking.Overlap < 0 {
		return fmt.Errorf("chunking.overlap cannot be negative: %d", c.Chunking.Overlap)
	}

	if c.Chunking.Overlap >= c.Chunking.MinSize {
		return fmt.Errorf("chunking.overlap must be smaller than min_size: overlap=%d min_size=%d", c.Chunking.Overlap, c.Chunking.MinSize)
	}

	for i, custom := range c.EntityExtraction.CustomEntities {
		if custom.Name == "" {
			return fmt.Errorf("entity_extraction.custom_entities[%d] is missing a name", i)
		}
		if len(custom.Patterns) == 0 && custom.Regex == "" {
			return fmt.Errorf("custom entity %q needs patterns or a regex", custom.Name)
		}
		if custom.Regex != "" {
			if _, err := regexp.Compile(custom.Regex); err != nil {
				return fmt.Errorf("custom entity %q has an invalid regex: %w", custom.Name, err)
			}
		}
	}

	return nil
}
