package model

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// MonthArithmetic selects how month/year offsets are applied during
// temporal normalization.
type MonthArithmetic string

const (
	// MonthsApproximate uses 30-day months and 365-day years.
	MonthsApproximate MonthArithmetic = "approximate"
	// MonthsCalendar uses true calendar arithmetic.
	MonthsCalendar MonthArithmetic = "calendar"
)

// PipelineConfig holds the tunable parameters of a pipeline run.
type PipelineConfig struct {
	// ReferenceDate anchors all relative time computations (YYYY-MM-DD).
	ReferenceDate string `yaml:"reference_date"`
	// TopK is the maximum neighbor list length per event.
	TopK int `yaml:"top_k"`
	// NeighborThreshold is the minimum similarity kept at computation time.
	NeighborThreshold float64 `yaml:"neighbor_threshold"`
	// EdgeThreshold is the minimum similarity for a semantic edge.
	EdgeThreshold float64 `yaml:"edge_threshold"`
	// MonthArithmetic selects approximate or calendar month offsets.
	MonthArithmetic MonthArithmetic `yaml:"month_arithmetic"`
	// EmbeddingModel and EmbeddingDim describe the embedding service.
	EmbeddingModel string `yaml:"embedding_model"`
	EmbeddingDim   int    `yaml:"embedding_dim"`
}

// DefaultPipelineConfig returns the default configuration: current date as
// reference, top 10 neighbors at threshold 0.0, semantic edges at 0.7,
// approximate month arithmetic and the all-MiniLM-L6-v2 model (384 dims).
func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		ReferenceDate:     time.Now().Format("2006-01-02"),
		TopK:              10,
		NeighborThreshold: 0.0,
		EdgeThreshold:     0.7,
		MonthArithmetic:   MonthsApproximate,
		EmbeddingModel:    "sentence-transformers/all-MiniLM-L6-v2",
		EmbeddingDim:      384,
	}
}

// LoadPipelineConfig reads a YAML config file and layers FABULA_* environment
// variables on top. Zero values in the file fall back to defaults.
func LoadPipelineConfig(path string) (PipelineConfig, error) {
	config := DefaultPipelineConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return config, fmt.Errorf("read config file: %w", err)
		}
		var fileConfig PipelineConfig
		if err := yaml.Unmarshal(data, &fileConfig); err != nil {
			return config, fmt.Errorf("parse config file: %w", err)
		}
		config.merge(fileConfig)
	}

	config.applyEnv()

	if err := config.Validate(); err != nil {
		return config, err
	}
	return config, nil
}

func (c *PipelineConfig) merge(other PipelineConfig) {
	if other.ReferenceDate != "" {
		c.ReferenceDate = other.ReferenceDate
	}
	if other.TopK != 0 {
		c.TopK = other.TopK
	}
	if other.NeighborThreshold != 0 {
		c.NeighborThreshold = other.NeighborThreshold
	}
	if other.EdgeThreshold != 0 {
		c.EdgeThreshold = other.EdgeThreshold
	}
	if other.MonthArithmetic != "" {
		c.MonthArithmetic = other.MonthArithmetic
	}
	if other.EmbeddingModel != "" {
		c.EmbeddingModel = other.EmbeddingModel
	}
	if other.EmbeddingDim != 0 {
		c.EmbeddingDim = other.EmbeddingDim
	}
}

func (c *PipelineConfig) applyEnv() {
	if v := os.Getenv("FABULA_REFERENCE_DATE"); v != "" {
		c.ReferenceDate = v
	}
	if v := os.Getenv("FABULA_TOP_K"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.TopK = n
		}
	}
	if v := os.Getenv("FABULA_NEIGHBOR_THRESHOLD"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.NeighborThreshold = f
		}
	}
	if v := os.Getenv("FABULA_EDGE_THRESHOLD"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.EdgeThreshold = f
		}
	}
	if v := os.Getenv("FABULA_MONTH_ARITHMETIC"); v != "" {
		c.MonthArithmetic = MonthArithmetic(v)
	}
	if v := os.Getenv("FABULA_EMBEDDING_MODEL"); v != "" {
		c.EmbeddingModel = v
	}
}

// Validate checks the configuration for values the pipeline cannot run with.
func (c PipelineConfig) Validate() error {
	if _, err := time.Parse("2006-01-02", c.ReferenceDate); err != nil {
		return fmt.Errorf("invalid reference date %q: %w", c.ReferenceDate, err)
	}
	if c.TopK <= 0 {
		return fmt.Errorf("top_k must be positive, got %d", c.TopK)
	}
	if c.MonthArithmetic != MonthsApproximate && c.MonthArithmetic != MonthsCalendar {
		return fmt.Errorf("unknown month arithmetic mode %q", c.MonthArithmetic)
	}
	return nil
}

// Reference returns the parsed reference date. Validate must have passed.
func (c PipelineConfig) Reference() time.Time {
	ref, _ := time.Parse("2006-01-02", c.ReferenceDate)
	return ref
}
