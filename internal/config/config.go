// Package config loads and saves the engine's configuration tree. The
// on-disk form is <workspace>/.guided/knowledge/config.yaml, read through
// viper so that GIK_CONFIG, GIK_DEVICE, GIK_MODELS_DIR, GIK_HOME, and
// GIK_VERBOSE can override it, with CLI-flag overrides layered on top by the
// caller. Precedence: CLI option > env var > config file > built-in default.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config is the complete engine configuration tree, persisted as YAML.
type Config struct {
	Version int `mapstructure:"version" yaml:"version"`

	Device    string `mapstructure:"device" yaml:"device"`
	ModelsDir string `mapstructure:"modelsDir" yaml:"modelsDir"`
	Home      string `mapstructure:"home" yaml:"home"`
	Verbose   bool   `mapstructure:"verbose" yaml:"verbose"`

	Embeddings EmbeddingsConfig `mapstructure:"embeddings" yaml:"embeddings"`
	Reranker   RerankerConfig   `mapstructure:"reranker" yaml:"reranker"`
	Retrieval  RetrievalConfig  `mapstructure:"retrieval" yaml:"retrieval"`
	Commit     CommitConfig     `mapstructure:"commit" yaml:"commit"`
	Backends   BackendsConfig   `mapstructure:"backends" yaml:"backends"`
	Memory     MemoryConfig     `mapstructure:"memory" yaml:"memory"`
	Logging    LoggingConfig    `mapstructure:"logging" yaml:"logging"`
}

// EmbeddingProviderConfig names one embedding provider/model combination.
type EmbeddingProviderConfig struct {
	Provider  string `mapstructure:"provider" yaml:"provider"`
	ModelID   string `mapstructure:"modelId" yaml:"modelId"`
	Dimension int    `mapstructure:"dimension" yaml:"dimension"`
	MaxTokens int    `mapstructure:"maxTokens,omitempty" yaml:"maxTokens,omitempty"`
	LocalPath string `mapstructure:"localPath,omitempty" yaml:"localPath,omitempty"`
}

// EmbeddingsConfig holds the default embedding provider and any per-base
// overrides (a base may be reindexed under a different model than the rest
// of the workspace).
type EmbeddingsConfig struct {
	Default EmbeddingProviderConfig            `mapstructure:"default" yaml:"default"`
	Bases   map[string]EmbeddingProviderConfig `mapstructure:"bases" yaml:"bases"`
}

// RerankerConfig controls the cross-encoder rerank stage.
type RerankerConfig struct {
	Enabled  bool `mapstructure:"enabled" yaml:"enabled"`
	TopN     int  `mapstructure:"topN" yaml:"topN"`
	FinalK   int  `mapstructure:"finalK" yaml:"finalK"`
	Required bool `mapstructure:"required" yaml:"required"`
}

// RetrievalConfig controls the hybrid retrieval pipeline.
type RetrievalConfig struct {
	QueryExpansion      string  `mapstructure:"queryExpansion" yaml:"queryExpansion"` // none | centroid
	DensePoolSize       int     `mapstructure:"densePoolSize" yaml:"densePoolSize"`
	SparsePoolSize      int     `mapstructure:"sparsePoolSize" yaml:"sparsePoolSize"`
	RrfK                int     `mapstructure:"rrfK" yaml:"rrfK"`
	FilenameBoost       float64 `mapstructure:"filenameBoost" yaml:"filenameBoost"`
	MaxHops             int     `mapstructure:"maxHops" yaml:"maxHops"`
	MaxSubgraphs        int     `mapstructure:"maxSubgraphs" yaml:"maxSubgraphs"`
	MaxNodesPerSubgraph int     `mapstructure:"maxNodesPerSubgraph" yaml:"maxNodesPerSubgraph"`
	MaxEdgesPerSubgraph int     `mapstructure:"maxEdgesPerSubgraph" yaml:"maxEdgesPerSubgraph"`
}

// CommitConfig controls the commit pipeline's chunking and batching.
type CommitConfig struct {
	BatchSize        int   `mapstructure:"batchSize" yaml:"batchSize"`
	MaxFileSizeBytes int64 `mapstructure:"maxFileSizeBytes" yaml:"maxFileSizeBytes"`
	MaxFileLines      int   `mapstructure:"maxFileLines" yaml:"maxFileLines"`
}

// BackendsConfig selects the pluggable vector-index backend.
type BackendsConfig struct {
	Vector VectorBackendConfig `mapstructure:"vector" yaml:"vector"`
}

// VectorBackendConfig names which VectorBackend implementation new bases
// are created with. Existing bases keep whatever backend they were created
// with, recorded in their own meta.json.
type VectorBackendConfig struct {
	Kind string `mapstructure:"kind" yaml:"kind"` // sqlite | sqlite-vec
}

// MemoryConfig holds the default pruning policy seeded into a fresh
// memory/config.json on init.
type MemoryConfig struct {
	DefaultPruningPolicy PruningPolicyConfig `mapstructure:"defaultPruningPolicy" yaml:"defaultPruningPolicy"`
}

// PruningPolicyConfig mirrors memory.PruningPolicy for serialization
// into config.yaml's defaults section.
type PruningPolicyConfig struct {
	MaxEntries         int      `mapstructure:"maxEntries,omitempty" yaml:"maxEntries,omitempty"`
	MaxEstimatedTokens int      `mapstructure:"maxEstimatedTokens,omitempty" yaml:"maxEstimatedTokens,omitempty"`
	MaxAgeDays         int      `mapstructure:"maxAgeDays,omitempty" yaml:"maxAgeDays,omitempty"`
	ObsoleteTags       []string `mapstructure:"obsoleteTags,omitempty" yaml:"obsoleteTags,omitempty"`
	Mode               string   `mapstructure:"mode" yaml:"mode"` // delete | archive
}

// LoggingConfig controls the shared logger.
type LoggingConfig struct {
	Format string `mapstructure:"format" yaml:"format"`
	Level  string `mapstructure:"level" yaml:"level"`
}

const currentVersion = 1

// DefaultConfig returns the engine's built-in configuration defaults.
func DefaultConfig() *Config {
	return &Config{
		Version: currentVersion,
		Device:  "auto",
		Embeddings: EmbeddingsConfig{
			Default: EmbeddingProviderConfig{
				Provider:  "local-hash",
				ModelID:   "local-hash-v1",
				Dimension: 384,
			},
			Bases: map[string]EmbeddingProviderConfig{},
		},
		Reranker: RerankerConfig{
			Enabled:  true,
			TopN:     30,
			FinalK:   5,
			Required: false,
		},
		Retrieval: RetrievalConfig{
			QueryExpansion:      "centroid",
			DensePoolSize:       30,
			SparsePoolSize:      30,
			RrfK:                60,
			FilenameBoost:       1.25,
			MaxHops:             2,
			MaxSubgraphs:        3,
			MaxNodesPerSubgraph: 32,
			MaxEdgesPerSubgraph: 48,
		},
		Commit: CommitConfig{
			BatchSize:        32,
			MaxFileSizeBytes: 1 << 20,
			MaxFileLines:     10000,
		},
		Backends: BackendsConfig{
			Vector: VectorBackendConfig{Kind: "sqlite"},
		},
		Memory: MemoryConfig{
			DefaultPruningPolicy: PruningPolicyConfig{
				Mode: "archive",
			},
		},
		Logging: LoggingConfig{
			Format: "human",
			Level:  "info",
		},
	}
}

// EnvPrefix is the prefix used for all environment variable overrides
// (GIK_CONFIG, GIK_DEVICE, GIK_MODELS_DIR, GIK_HOME, GIK_VERBOSE).
const EnvPrefix = "GIK"

// Load reads config.yaml from knowledgeRoot (the <workspace>/.guided/knowledge
// directory), applying environment overrides on top. If the file does not
// exist, the built-in defaults are returned (still subject to env overrides).
func Load(knowledgeRoot string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	def := DefaultConfig()
	setDefaults(v, def)

	if configPathOverride := os.Getenv(EnvPrefix + "_CONFIG"); configPathOverride != "" {
		v.SetConfigFile(configPathOverride)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(knowledgeRoot)
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	_ = v.BindEnv("device", EnvPrefix+"_DEVICE")
	_ = v.BindEnv("modelsDir", EnvPrefix+"_MODELS_DIR")
	_ = v.BindEnv("home", EnvPrefix+"_HOME")
	_ = v.BindEnv("verbose", EnvPrefix+"_VERBOSE")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}
	if cfg.Version == 0 {
		cfg.Version = currentVersion
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper, def *Config) {
	v.SetDefault("version", def.Version)
	v.SetDefault("device", def.Device)
	v.SetDefault("modelsDir", def.ModelsDir)
	v.SetDefault("home", def.Home)
	v.SetDefault("verbose", def.Verbose)
	v.SetDefault("embeddings", def.Embeddings)
	v.SetDefault("reranker", def.Reranker)
	v.SetDefault("retrieval", def.Retrieval)
	v.SetDefault("commit", def.Commit)
	v.SetDefault("backends", def.Backends)
	v.SetDefault("memory", def.Memory)
	v.SetDefault("logging", def.Logging)
}

// Path returns the canonical config.yaml location under knowledgeRoot.
func (c *Config) Path(knowledgeRoot string) string {
	return filepath.Join(knowledgeRoot, "config.yaml")
}

// Marshal renders c as YAML for writing to config.yaml.
func (c *Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}
