package config

import (
	"time"

	redisclient "github.com/applyflow/applyflow/internal/infra/redis"
	"github.com/applyflow/applyflow/internal/infra/storage/postgres"
)

// AppConfig represents the top-level configuration.
type AppConfig struct {
	Server      ServerConfig       `yaml:"server"`
	Logging     LoggingConfig      `yaml:"logging"`
	Database    postgres.Config    `yaml:"database"`
	Redis       redisclient.Config `yaml:"redis"`
	Mail        MailConfig         `yaml:"mail"`
	Inference   InferenceConfig    `yaml:"inference"`
	ObjectStore ObjectStoreConfig  `yaml:"object_store"`
	Pipeline    PipelineConfig     `yaml:"pipeline"`
}

// ServerConfig holds status HTTP server settings.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

// MailConfig holds Gmail access settings. Token acquisition happens
// elsewhere; only the resulting credentials are consumed here.
type MailConfig struct {
	Address      string `yaml:"address"`
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	RefreshToken string `yaml:"refresh_token"`
}

// InferenceConfig holds classification provider settings.
type InferenceConfig struct {
	Credentials    []string      `yaml:"credentials"`
	Model          string        `yaml:"model"`
	MaxAttempts    int           `yaml:"max_attempts"`
	MaxDelay       time.Duration `yaml:"max_delay"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

// ObjectStoreConfig holds S3 settings for résumé uploads.
type ObjectStoreConfig struct {
	Bucket string `yaml:"bucket"`
	Region string `yaml:"region"`
	Prefix string `yaml:"prefix"`
}

// PipelineConfig holds run scheduling and classification hints.
type PipelineConfig struct {
	SyncInterval time.Duration `yaml:"sync_interval"`
	Roles        []string      `yaml:"roles"`
}

// DefaultRoles is the canonical role hint list handed to the classifier
// when the config does not override it.
var DefaultRoles = []string{
	"LLM engineer", "AI/ML Engineer", "SEO", "Full Stack Developer",
	"Project manager", "Content", "Digital Marketing", "QA Engineer",
	"Software Developer", "UI/UX", "App developer", "graphic designer",
	"videographer", "BDE", "HR", "DevOps Engineer",
}
