package config

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

type EnvVars struct {
	AppEnv       string        `envconfig:"APP_ENV" default:"dev"`
	Port         int           `envconfig:"PORT" default:"8080"`
	ReadTimeout  time.Duration `envconfig:"READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"WRITE_TIMEOUT" default:"5s"`

	DefinitionsDir string `envconfig:"DEFINITIONS_DIR" default:"definitions"`
	DBPath         string `envconfig:"DB_PATH" default:"data/sos.db"`

	LLMApiKey  string        `envconfig:"LLM_API_KEY"`
	LLMBaseURL string        `envconfig:"LLM_BASE_URL" default:"https://api.openai.com/v1"`
	LLMModel   string        `envconfig:"LLM_MODEL" default:"gpt-4.1"`
	LLMTimeout time.Duration `envconfig:"LLM_TIMEOUT" default:"10s"`

	// Ollama (local LLM) configuration, used when no API key is set
	OllamaBaseURL string `envconfig:"OLLAMA_BASE_URL" default:"http://localhost:11434"`
	OllamaModel   string `envconfig:"OLLAMA_MODEL" default:"qwen3:0.6b"`

	// Upper bound for one target-platform call inside a dispatch
	PlatformTimeout time.Duration `envconfig:"PLATFORM_TIMEOUT" default:"10s"`

	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
}

func LoadEnv() (*EnvVars, error) {
	var v EnvVars
	if err := envconfig.Process("", &v); err != nil {
		return nil, err
	}
	return &v, nil
}
