package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrNoCorpus is returned when neither a corpus root nor a URL list is configured.
var ErrNoCorpus = errors.New("no corpus configured")

type Config struct {
	Corpus    CorpusConfig    `yaml:"corpus"`
	Output    OutputConfig    `yaml:"output"`
	LLM       LLMConfig       `yaml:"llm"`
	Fetch     FetchConfig     `yaml:"fetch"`
	Site      SiteConfig      `yaml:"site"`
	Pipeline  PipelineConfig  `yaml:"pipeline"`
	Database  DatabaseConfig  `yaml:"database"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Log       LogConfig       `yaml:"log"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

type CorpusConfig struct {
	Root       string   `yaml:"root"`
	BaseURL    string   `yaml:"base_url"`
	URLs       []string `yaml:"urls"`
	Extensions []string `yaml:"extensions"`
}

type OutputConfig struct {
	Path string `yaml:"path"`
}

type LLMConfig struct {
	Provider        string        `yaml:"provider"`
	Endpoint        string        `yaml:"endpoint"`
	APIKey          string        `yaml:"api_key"`
	Model           string        `yaml:"model"`
	Timeout         time.Duration `yaml:"timeout"`
	MaxContentChars int           `yaml:"max_content_chars"`
	Temperature     float64       `yaml:"temperature"`

	// PreserveLineBreaks keeps the body's line structure in the prompt.
	PreserveLineBreaks bool `yaml:"preserve_line_breaks"`
}

type FetchConfig struct {
	Timeout   time.Duration `yaml:"timeout"`
	RateLimit float64       `yaml:"rate_limit"`
	UserAgent string        `yaml:"user_agent"`
}

// SiteConfig describes the site the knowledge base is built for.
type SiteConfig struct {
	Name              string   `yaml:"name"`
	TitleSuffixes     []string `yaml:"title_suffixes"`
	ServiceCategories []string `yaml:"service_categories"`
}

type PipelineConfig struct {
	Workers int `yaml:"workers"`
}

type DatabaseConfig struct {
	URL       string `yaml:"url"`
	TableName string `yaml:"table_name"`
	VectorDim int    `yaml:"vector_dim"`
	BatchSize int    `yaml:"batch_size"`
}

type EmbeddingConfig struct {
	Provider string `yaml:"provider"`
	BaseURL  string `yaml:"base_url"`
	Model    string `yaml:"model"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

func LoadConfig(path string) (*Config, error) {
	// If no path provided, try default locations
	if path == "" {
		locations := []string{
			"sitekb.yaml",
			"config.yaml",
			filepath.Join(os.Getenv("HOME"), ".config/sitekb/config.yaml"),
			"/etc/sitekb/config.yaml",
		}

		for _, loc := range locations {
			if _, err := os.Stat(loc); err == nil {
				path = loc
				break
			}
		}
	}

	if path == "" {
		return getDefaultConfig()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	mergeWithEnv(&config)
	applyDefaults(&config)

	return &config, nil
}

func getDefaultConfig() (*Config, error) {
	config := &Config{}
	mergeWithEnv(config)
	applyDefaults(config)
	return config, nil
}

// Default returns a configuration with every default applied and no file or env input.
func Default() Config {
	var config Config
	applyDefaults(&config)
	return config
}

func applyDefaults(config *Config) {
	if config.Corpus.BaseURL == "" {
		config.Corpus.BaseURL = "https://deseguridad.net"
	}
	if len(config.Corpus.Extensions) == 0 {
		config.Corpus.Extensions = []string{".html", ".pdf", ".docx"}
	}

	if config.Output.Path == "" {
		config.Output.Path = "./deseguridad_knowledge_base.csv"
	}

	if config.LLM.Provider == "" {
		config.LLM.Provider = "openai"
	}
	if config.LLM.Endpoint == "" {
		config.LLM.Endpoint = "https://routellm.abacus.ai/v1/chat/completions"
	}
	if config.LLM.Model == "" {
		config.LLM.Model = "gpt-4o-mini"
	}
	if config.LLM.Timeout == 0 {
		config.LLM.Timeout = 30 * time.Second
	}
	if config.LLM.MaxContentChars == 0 {
		config.LLM.MaxContentChars = 3000
	}

	if config.Fetch.Timeout == 0 {
		config.Fetch.Timeout = 20 * time.Second
	}
	if config.Fetch.RateLimit == 0 {
		config.Fetch.RateLimit = 2.0
	}
	if config.Fetch.UserAgent == "" {
		config.Fetch.UserAgent = "sitekb/1.0"
	}

	if config.Site.Name == "" {
		config.Site.Name = "Deseguridad.net"
	}
	if len(config.Site.TitleSuffixes) == 0 {
		config.Site.TitleSuffixes = []string{"- DeSeguridad.net", "| DeSeguridad.net"}
	}
	if len(config.Site.ServiceCategories) == 0 {
		config.Site.ServiceCategories = []string{
			"servicios",
			"riesgo-psicosocial",
			"mediciones-higienicas",
			"analisis-de-puesto-de-trabajo",
			"seguridad-en-el-trabajo",
			"examenes-ocupacionales",
			"capacitacion-enfocada-en-los-riesgos",
			"pausas-estrategicas-2",
			"indicadores-sgsst",
			"ee-mm-sgsst",
			"profesiograma",
			"plan-estrategico-de-seguridad-vial",
			"sistema-informacion-sst",
		}
	}

	if config.Pipeline.Workers == 0 {
		config.Pipeline.Workers = 1
	}

	if config.Database.TableName == "" {
		config.Database.TableName = "knowledge_base"
	}
	if config.Database.VectorDim == 0 {
		config.Database.VectorDim = 768
	}
	if config.Database.BatchSize == 0 {
		config.Database.BatchSize = 100
	}

	if config.Embedding.Provider == "" {
		config.Embedding.Provider = "ollama"
	}
	if config.Embedding.Model == "" {
		config.Embedding.Model = "nomic-embed-text:latest"
	}
	if config.Embedding.BaseURL == "" {
		config.Embedding.BaseURL = "http://localhost:11434"
	}

	if config.Log.Level == "" {
		config.Log.Level = "info"
	}
	if config.Log.Format == "" {
		config.Log.Format = "console"
	}
}

func mergeWithEnv(config *Config) {
	if endpoint := os.Getenv("LLM_API_URL"); endpoint != "" {
		config.LLM.Endpoint = endpoint
	}
	if key := os.Getenv("LLM_API_KEY"); key != "" {
		config.LLM.APIKey = key
	}
	if model := os.Getenv("LLM_MODEL"); model != "" {
		config.LLM.Model = model
	}
	if baseURL := os.Getenv("OLLAMA_BASE_URL"); baseURL != "" {
		config.Embedding.BaseURL = baseURL
	}
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		config.Database.URL = dbURL
	}
	if level := os.Getenv("SITEKB_LOG_LEVEL"); level != "" {
		config.Log.Level = level
	}
}
