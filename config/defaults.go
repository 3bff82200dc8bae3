// =============================================================================
// Default settings
// =============================================================================
package config

import "github.com/BaSui01/agentscaffold/workflow"

// DefaultSettings returns the settings used when no source overrides them.
func DefaultSettings() *Settings {
	return &Settings{
		ProjectName: "agentic-ai-app",
		Environment: EnvDevelopment,
		Debug:       false,
		LogLevel:    "INFO",
		OpenAI:      OpenAIConfig{Model: "gpt-4-turbo-preview"},
		Anthropic:   AnthropicConfig{Model: "claude-3-5-sonnet-20241022"},
		GCP: GCPConfig{
			Region:      "us-central1",
			VertexModel: "gemini-pro",
		},
		LangChain: LangChainConfig{TracingV2: true},
		Pinecone:  PineconeConfig{IndexName: "default-index"},
		Chroma: ChromaConfig{
			Host:       "localhost",
			Port:       8000,
			Collection: "default-collection",
		},
		App:       DefaultAppConfig(),
		SecretKey: "change-me-in-production",
		Log:       DefaultLogConfig(),
		Redis:     DefaultRedisConfig(),
		Database:  DefaultDatabaseConfig(),
		Telemetry: DefaultTelemetryConfig(),
		Workflow:  WorkflowConfig{RecursionLimit: workflow.DefaultRecursionLimit},
	}
}

// DefaultAppConfig returns the default listener settings.
func DefaultAppConfig() AppConfig {
	return AppConfig{
		Host:    "0.0.0.0",
		Port:    8080,
		Workers: 4,
	}
}

// DefaultLogConfig returns the default file sink settings. No file is written
// unless File is set.
func DefaultLogConfig() LogConfig {
	return LogConfig{
		RotationMB:    500,
		RetentionDays: 10,
		Compress:      true,
		Format:        "json",
	}
}

// DefaultRedisConfig returns the default Redis settings.
func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		Addr: "localhost:6379",
		DB:   0,
	}
}

// DefaultDatabaseConfig returns the default SQL settings.
func DefaultDatabaseConfig() DatabaseConfig {
	return DatabaseConfig{
		Driver: "sqlite",
		DSN:    "file:data/checkpoints.db",
	}
}

// DefaultTelemetryConfig returns the default telemetry settings.
func DefaultTelemetryConfig() TelemetryConfig {
	return TelemetryConfig{
		Enabled:      false,
		OTLPEndpoint: "localhost:4317",
		ServiceName:  "agentscaffold",
		SampleRate:   0.1,
	}
}
