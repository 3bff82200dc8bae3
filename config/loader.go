// =============================================================================
// Settings loader
// =============================================================================
// Usage:
//
//	settings, err := config.NewLoader().
//	    WithConfigPath("config.yaml").
//	    WithEnvFile(".env").
//	    Load()
//
// Precedence: defaults → YAML file → .env → environment variables
// =============================================================================
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"github.com/BaSui01/agentscaffold/types"
)

// Allowed deployment environments.
const (
	EnvDevelopment = "development"
	EnvStaging     = "staging"
	EnvProduction  = "production"
)

// Settings is the complete application configuration.
type Settings struct {
	ProjectName string `yaml:"project_name" json:"project_name" envconfig:"PROJECT_NAME"`
	Environment string `yaml:"environment" json:"environment" envconfig:"ENVIRONMENT"`
	Debug       bool   `yaml:"debug" json:"debug" envconfig:"DEBUG"`
	LogLevel    string `yaml:"log_level" json:"log_level" envconfig:"LOG_LEVEL"`

	OpenAI    OpenAIConfig    `yaml:"openai" json:"openai" envconfig:"OPENAI"`
	Anthropic AnthropicConfig `yaml:"anthropic" json:"anthropic" envconfig:"ANTHROPIC"`
	GCP       GCPConfig       `yaml:"gcp" json:"gcp" envconfig:"GCP"`
	LangChain LangChainConfig `yaml:"langchain" json:"langchain" envconfig:"LANGCHAIN"`

	Pinecone PineconeConfig `yaml:"pinecone" json:"pinecone" envconfig:"PINECONE"`
	Chroma   ChromaConfig   `yaml:"chroma" json:"chroma" envconfig:"CHROMA"`

	App       AppConfig       `yaml:"app" json:"app" envconfig:"APP"`
	SecretKey string          `yaml:"secret_key" json:"secret_key" envconfig:"SECRET_KEY"`
	Log       LogConfig       `yaml:"log" json:"log" envconfig:"LOG"`
	Redis     RedisConfig     `yaml:"redis" json:"redis" envconfig:"REDIS"`
	Database  DatabaseConfig  `yaml:"database" json:"database" envconfig:"DATABASE"`
	Telemetry TelemetryConfig `yaml:"telemetry" json:"telemetry" envconfig:"TELEMETRY"`
	Workflow  WorkflowConfig  `yaml:"workflow" json:"workflow" envconfig:"WORKFLOW"`

	baseDir string
}

// OpenAIConfig holds OpenAI credentials.
type OpenAIConfig struct {
	APIKey string `yaml:"api_key" json:"api_key" split_words:"true"`
	Model  string `yaml:"model" json:"model" split_words:"true"`
}

// AnthropicConfig holds Anthropic credentials.
type AnthropicConfig struct {
	APIKey string `yaml:"api_key" json:"api_key" split_words:"true"`
	Model  string `yaml:"model" json:"model" split_words:"true"`
}

// GCPConfig holds Google Cloud and Vertex AI settings.
type GCPConfig struct {
	Credentials string `yaml:"credentials" json:"credentials" envconfig:"GOOGLE_APPLICATION_CREDENTIALS"`
	ProjectID   string `yaml:"project_id" json:"project_id" split_words:"true"`
	Region      string `yaml:"region" json:"region" split_words:"true"`
	VertexModel string `yaml:"vertex_model" json:"vertex_model" envconfig:"VERTEX_AI_MODEL"`
}

// LangChainConfig holds LangSmith tracing settings.
type LangChainConfig struct {
	TracingV2 bool   `yaml:"tracing_v2" json:"tracing_v2" split_words:"true"`
	APIKey    string `yaml:"api_key" json:"api_key" split_words:"true"`
	Project   string `yaml:"project" json:"project" split_words:"true"`
}

// PineconeConfig holds Pinecone vector store settings.
type PineconeConfig struct {
	APIKey      string `yaml:"api_key" json:"api_key" split_words:"true"`
	Environment string `yaml:"environment" json:"environment" split_words:"true"`
	IndexName   string `yaml:"index_name" json:"index_name" split_words:"true"`
}

// ChromaConfig holds Chroma vector store settings.
type ChromaConfig struct {
	Host       string `yaml:"host" json:"host" split_words:"true"`
	Port       int    `yaml:"port" json:"port" split_words:"true"`
	Collection string `yaml:"collection" json:"collection" envconfig:"COLLECTION_NAME"`
}

// AppConfig holds the HTTP listener settings.
type AppConfig struct {
	Host    string `yaml:"host" json:"host" split_words:"true"`
	Port    int    `yaml:"port" json:"port" split_words:"true"`
	Workers int    `yaml:"workers" json:"workers" split_words:"true"`
}

// Addr returns host:port.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%d", a.Host, a.Port)
}

// LogConfig configures the optional rotating file sink.
type LogConfig struct {
	File          string `yaml:"file" json:"file" split_words:"true"`
	RotationMB    int    `yaml:"rotation_mb" json:"rotation_mb" split_words:"true"`
	RetentionDays int    `yaml:"retention_days" json:"retention_days" split_words:"true"`
	Compress      bool   `yaml:"compress" json:"compress" split_words:"true"`
	Format        string `yaml:"format" json:"format" split_words:"true"`
}

// RedisConfig configures the Redis checkpoint store.
type RedisConfig struct {
	Addr     string `yaml:"addr" json:"addr" split_words:"true"`
	Password string `yaml:"password" json:"password" split_words:"true"`
	DB       int    `yaml:"db" json:"db" split_words:"true"`
}

// DatabaseConfig configures the SQL checkpoint store.
type DatabaseConfig struct {
	Driver string `yaml:"driver" json:"driver" split_words:"true"`
	DSN    string `yaml:"dsn" json:"dsn" split_words:"true"`
}

// TelemetryConfig configures OpenTelemetry export.
type TelemetryConfig struct {
	Enabled      bool    `yaml:"enabled" json:"enabled" split_words:"true"`
	OTLPEndpoint string  `yaml:"otlp_endpoint" json:"otlp_endpoint" split_words:"true"`
	ServiceName  string  `yaml:"service_name" json:"service_name" split_words:"true"`
	SampleRate   float64 `yaml:"sample_rate" json:"sample_rate" split_words:"true"`
}

// WorkflowConfig configures graph execution.
type WorkflowConfig struct {
	RecursionLimit int `yaml:"recursion_limit" json:"recursion_limit" split_words:"true"`
}

// =============================================================================
// Loader
// =============================================================================

// Loader builds Settings from layered sources.
type Loader struct {
	configPath string
	envFile    string
	baseDir    string
	validators []func(*Settings) error
}

// NewLoader creates a loader that reads only defaults and the environment.
func NewLoader() *Loader {
	return &Loader{}
}

// WithConfigPath sets an optional YAML file. A missing file is ignored.
func (l *Loader) WithConfigPath(path string) *Loader {
	l.configPath = path
	return l
}

// WithEnvFile sets an optional dotenv file. Variables already present in the
// environment are not overridden. A missing file is ignored.
func (l *Loader) WithEnvFile(path string) *Loader {
	l.envFile = path
	return l
}

// WithBaseDir sets the project base directory. It defaults to the working directory.
func (l *Loader) WithBaseDir(dir string) *Loader {
	l.baseDir = dir
	return l
}

// WithValidator adds a validation step run after Validate.
func (l *Loader) WithValidator(v func(*Settings) error) *Loader {
	l.validators = append(l.validators, v)
	return l
}

// Load resolves and validates the settings.
func (l *Loader) Load() (*Settings, error) {
	s := DefaultSettings()

	if l.configPath != "" {
		if err := l.loadFromFile(s); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	if l.envFile != "" {
		if err := godotenv.Load(l.envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load env file: %w", err)
		}
	}

	if err := envconfig.Process("", s); err != nil {
		return nil, types.WrapError(err, types.ErrCodeConfigInvalid, "failed to load config from env")
	}

	s.baseDir = l.baseDir
	if s.baseDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve base dir: %w", err)
		}
		s.baseDir = wd
	}

	if err := s.Validate(); err != nil {
		return nil, err
	}
	for _, v := range l.validators {
		if err := v(s); err != nil {
			return nil, types.WrapError(err, types.ErrCodeConfigInvalid, "config validation failed")
		}
	}

	return s, nil
}

func (l *Loader) loadFromFile(s *Settings) error {
	data, err := os.ReadFile(l.configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, s); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}
	return nil
}

// =============================================================================
// Validation and paths
// =============================================================================

// Validate checks the environment name and the port ranges.
func (s *Settings) Validate() error {
	var errs []string

	switch s.Environment {
	case EnvDevelopment, EnvStaging, EnvProduction:
	default:
		errs = append(errs, fmt.Sprintf("environment must be one of development, staging, production (got %q)", s.Environment))
	}
	if s.App.Port <= 0 || s.App.Port > 65535 {
		errs = append(errs, "invalid app port")
	}
	if s.Chroma.Port <= 0 || s.Chroma.Port > 65535 {
		errs = append(errs, "invalid chroma port")
	}

	if len(errs) > 0 {
		return types.NewError(types.ErrCodeConfigInvalid,
			fmt.Sprintf("config validation errors: %s", strings.Join(errs, "; ")))
	}
	return nil
}

// BaseDir is the project root that data and logs live under.
func (s *Settings) BaseDir() string {
	if s.baseDir == "" {
		if wd, err := os.Getwd(); err == nil {
			return wd
		}
	}
	return s.baseDir
}

// DataDir is BaseDir/data. It is not created.
func (s *Settings) DataDir() string {
	return filepath.Join(s.BaseDir(), "data")
}

// LogsDir is BaseDir/logs, created if missing.
func (s *Settings) LogsDir() (string, error) {
	dir := filepath.Join(s.BaseDir(), "logs")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create logs dir: %w", err)
	}
	return dir, nil
}

// IsProduction reports whether Environment is production.
func (s *Settings) IsProduction() bool {
	return s.Environment == EnvProduction
}
