package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for regbot.
type Config struct {
	Index      IndexConfig      `yaml:"index"`
	Retrieve   RetrieveConfig   `yaml:"retrieve"`
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	Generation GenerationConfig `yaml:"generation"`
	Answer     AnswerConfig     `yaml:"answer"`
	FactScore  FactScoreConfig  `yaml:"factscore"`
	Server     ServerConfig     `yaml:"server"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// IndexConfig selects the vector index the retriever reads from.
type IndexConfig struct {
	Backend    string `yaml:"backend"`    // "bolt" or "pgvector"
	Path       string `yaml:"path"`       // bolt database file
	DSN        string `yaml:"dsn"`        // postgres connection string
	Collection string `yaml:"collection"` // bucket or table name
}

// RetrieveConfig holds retrieval configuration.
type RetrieveConfig struct {
	TopK                int     `yaml:"top_k"`
	SimilarityThreshold float64 `yaml:"similarity_threshold"`
}

// EmbeddingConfig holds embedding configuration.
type EmbeddingConfig struct {
	Provider  string `yaml:"provider"` // "hugot", "ollama", "openai"
	Model     string `yaml:"model"`
	BaseURL   string `yaml:"base_url"`
	APIKeyEnv string `yaml:"api_key_env"`
	ModelDir  string `yaml:"model_dir"` // download directory for hugot models
}

// GenerationConfig holds the generative model endpoint used for answers.
// The judge settings default to the same endpoint.
type GenerationConfig struct {
	Enabled        bool   `yaml:"enabled"`
	Provider       string `yaml:"provider"` // "ollama" or "openai"
	URL            string `yaml:"url"`
	Model          string `yaml:"model"`
	APIKeyEnv      string `yaml:"api_key_env"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	JudgeURL       string `yaml:"judge_url"`
	JudgeModel     string `yaml:"judge_model"`
}

// AnswerConfig holds the fixed user-facing messages.
type AnswerConfig struct {
	FallbackMessage  string `yaml:"fallback_message"`
	GibberishMessage string `yaml:"gibberish_message"`
}

// FactScoreConfig holds evaluator input and output paths.
type FactScoreConfig struct {
	APIURL        string `yaml:"api_url"`
	ChunksPath    string `yaml:"chunks_path"`
	QuestionsPath string `yaml:"questions_path"` // may be a glob pattern
	OutputPath    string `yaml:"output_path"`
}

// ServerConfig holds HTTP serving configuration.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

const DefaultFallbackMessage = "Desculpe, baseado no regulamento, não consigo informar com precisão. " +
	"Favor, entre em contato com a Secretaria Academica de PGCC:\n\n" +
	"Telefone: (67) 3345-7456 / E-mail: ppg.facom@ufms.br\n" +
	"Endereço: Avenida Costa e Silva, s/n; Bairro Universitário; Cep:79070-900\n\n" +
	"Horário de Atendimento:\n\n" +
	"Secretaria de Graduação: Segunda à sexta-feira, 8h às 12h / 13h às 17h\n" +
	"Secretaria de Pós-graduação: Segunda à sexta-feira, 8h às 12h / 13h às 17h"

const DefaultGibberishMessage = "Desculpe, não entendi o que você digitou, tente novamente."

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Index: IndexConfig{
			Backend:    "bolt",
			Path:       filepath.Join("index", "regbot.db"),
			Collection: "facom_regulamento_v1",
		},
		Retrieve: RetrieveConfig{
			TopK:                5,
			SimilarityThreshold: 0.45,
		},
		Embedding: EmbeddingConfig{
			Provider:  "hugot",
			Model:     "sentence-transformers/all-MiniLM-L6-v2",
			APIKeyEnv: "OPENAI_API_KEY",
			ModelDir:  "models",
		},
		Generation: GenerationConfig{
			Enabled:        true,
			Provider:       "ollama",
			URL:            "http://host.docker.internal:11434/api/generate",
			Model:          "llama3.1:latest",
			APIKeyEnv:      "OPENAI_API_KEY",
			TimeoutSeconds: 120,
		},
		Answer: AnswerConfig{
			FallbackMessage:  DefaultFallbackMessage,
			GibberishMessage: DefaultGibberishMessage,
		},
		FactScore: FactScoreConfig{
			APIURL:        "http://localhost:8000/query",
			ChunksPath:    filepath.Join("data", "processed", "chunks.jsonl"),
			QuestionsPath: filepath.Join("eval", "perguntas_factscore.txt"),
			OutputPath:    filepath.Join("eval", "results_factscore.csv"),
		},
		Server: ServerConfig{
			Addr: ":8000",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load loads configuration from a YAML file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil // Return defaults if no config file
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadFromDir loads configuration from a directory (looks for regbot.yaml).
func LoadFromDir(dir string) (*Config, error) {
	path := filepath.Join(dir, "regbot.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	path = filepath.Join(dir, ".regbot", "config.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	return DefaultConfig(), nil
}

// LoadDotEnv loads a .env file from dir into the process environment.
// Variables already set are not overwritten. A missing file is not an error.
func LoadDotEnv(dir string) error {
	path := filepath.Join(dir, ".env")
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	return godotenv.Load(path)
}

// ApplyEnv overrides configuration values with environment variables.
func (c *Config) ApplyEnv(getenv func(string) string) error {
	str := func(key string, dst *string) {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}

	str("INDEX_BACKEND", &c.Index.Backend)
	str("INDEX_PATH", &c.Index.Path)
	str("INDEX_DSN", &c.Index.DSN)
	str("INDEX_COLLECTION", &c.Index.Collection)
	str("EMBEDDINGS_PROVIDER", &c.Embedding.Provider)
	str("EMBEDDINGS_MODEL", &c.Embedding.Model)
	str("EMBEDDINGS_URL", &c.Embedding.BaseURL)
	str("LLM_PROVIDER", &c.Generation.Provider)
	str("OLLAMA_URL", &c.Generation.URL)
	str("OLLAMA_MODEL", &c.Generation.Model)
	str("JUDGE_URL", &c.Generation.JudgeURL)
	str("JUDGE_MODEL", &c.Generation.JudgeModel)
	str("RAG_API_URL", &c.FactScore.APIURL)
	str("CHUNKS_PATH", &c.FactScore.ChunksPath)
	str("QUESTIONS_PATH", &c.FactScore.QuestionsPath)
	str("FACTSCORE_OUT", &c.FactScore.OutputPath)
	str("LISTEN_ADDR", &c.Server.Addr)
	str("LOG_LEVEL", &c.Logging.Level)

	if v := getenv("TOP_K"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid TOP_K %q: %w", v, err)
		}
		c.Retrieve.TopK = n
	}
	if v := getenv("SIM_THRESHOLD"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("invalid SIM_THRESHOLD %q: %w", v, err)
		}
		c.Retrieve.SimilarityThreshold = f
	}
	if v := getenv("LLM_TIMEOUT_SECONDS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid LLM_TIMEOUT_SECONDS %q: %w", v, err)
		}
		c.Generation.TimeoutSeconds = n
	}
	if v := getenv("LLM_ENABLED"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid LLM_ENABLED %q: %w", v, err)
		}
		c.Generation.Enabled = b
	}

	return nil
}

// Validate checks that the configuration can build a working pipeline.
func (c *Config) Validate() error {
	if c.Retrieve.TopK < 1 {
		return fmt.Errorf("retrieve.top_k must be at least 1, got %d", c.Retrieve.TopK)
	}
	switch c.Index.Backend {
	case "bolt", "pgvector":
	default:
		return fmt.Errorf("unsupported index backend: %s", c.Index.Backend)
	}
	switch c.Embedding.Provider {
	case "hugot", "ollama", "openai", "mock":
	default:
		return fmt.Errorf("unsupported embedding provider: %s", c.Embedding.Provider)
	}
	switch c.Generation.Provider {
	case "ollama", "openai":
	default:
		return fmt.Errorf("unsupported generation provider: %s", c.Generation.Provider)
	}
	if c.Generation.TimeoutSeconds <= 0 {
		return fmt.Errorf("generation.timeout_seconds must be positive, got %d", c.Generation.TimeoutSeconds)
	}
	return nil
}

// Timeout returns the generative call timeout.
func (g GenerationConfig) Timeout() time.Duration {
	return time.Duration(g.TimeoutSeconds) * time.Second
}

// Judge returns the endpoint and model used by the fact-score judge,
// falling back to the generative model settings.
func (g GenerationConfig) Judge() (url, model string) {
	url, model = g.JudgeURL, g.JudgeModel
	if url == "" {
		url = g.URL
	}
	if model == "" {
		model = g.Model
	}
	return url, model
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
