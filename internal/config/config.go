package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Server struct {
		Port int    `yaml:"port" validate:"min=1,max=65535"`
		Host string `yaml:"host"`
	} `yaml:"server"`

	Logging struct {
		Level  string `yaml:"level" validate:"oneof=debug info warn error"`
		Format string `yaml:"format" validate:"oneof=json console"`
	} `yaml:"logging"`

	Auth struct {
		JWTSecret string   `yaml:"jwt_secret" validate:"required"`
		Issuer    string   `yaml:"issuer"`
		Audience  []string `yaml:"audience"`
	} `yaml:"auth"`

	AssemblyAI struct {
		APIKey           string `yaml:"api_key" validate:"required"`
		BaseURL          string `yaml:"base_url" validate:"required,url"`
		SpeakersExpected int    `yaml:"speakers_expected" validate:"min=0"`
		TimeoutSeconds   int    `yaml:"timeout_seconds" validate:"min=0"`
	} `yaml:"assemblyai"`

	Polling struct {
		IntervalSeconds int `yaml:"interval_seconds" validate:"min=1"`
		MaxAttempts     int `yaml:"max_attempts" validate:"min=1"`
	} `yaml:"polling"`

	Workers struct {
		Count     int `yaml:"count" validate:"min=1"`
		QueueSize int `yaml:"queue_size" validate:"min=1"`
	} `yaml:"workers"`

	Storage struct {
		Backend  string `yaml:"backend" validate:"oneof=local s3 gdrive"`
		LocalDir string `yaml:"local_dir"`
	} `yaml:"storage"`

	S3 struct {
		Bucket         string `yaml:"bucket"`
		Region         string `yaml:"region"`
		Endpoint       string `yaml:"endpoint"`
		AccessKey      string `yaml:"access_key"`
		SecretKey      string `yaml:"secret_key"`
		ForcePathStyle bool   `yaml:"force_path_style"`
	} `yaml:"s3"`

	GoogleDrive struct {
		CredentialsFile string `yaml:"credentials_file"`
		TokenFile       string `yaml:"token_file"`
		FolderName      string `yaml:"folder_name"`
	} `yaml:"google_drive"`

	History struct {
		Driver         string `yaml:"driver" validate:"oneof=sqlite postgres"`
		DSN            string `yaml:"dsn" validate:"required"`
		CreateOnSubmit bool   `yaml:"create_on_submit"`
		ListLimit      int    `yaml:"list_limit" validate:"min=1"`
	} `yaml:"history"`

	Events struct {
		Driver    string   `yaml:"driver" validate:"oneof=none kafka nats"`
		Brokers   []string `yaml:"brokers"`
		Topic     string   `yaml:"topic"`
		NatsURL   string   `yaml:"nats_url"`
		NatsToken string   `yaml:"nats_token"`
		Subject   string   `yaml:"subject"`
	} `yaml:"events"`

	Cleanup struct {
		IntervalMinutes int `yaml:"interval_minutes" validate:"min=0"`
		MaxAgeHours     int `yaml:"max_age_hours" validate:"min=0"`
	} `yaml:"cleanup"`

	Limits struct {
		MaxFileSizeMB int `yaml:"max_file_size_mb" validate:"min=1"`
	} `yaml:"limits"`
}

// Defaults returns a configuration with every optional field filled in
func Defaults() *Config {
	var c Config
	c.Server.Port = 8080
	c.Logging.Level = "info"
	c.Logging.Format = "json"
	c.AssemblyAI.BaseURL = "https://api.assemblyai.com"
	c.AssemblyAI.SpeakersExpected = 2
	c.Polling.IntervalSeconds = 3
	c.Polling.MaxAttempts = 40
	c.Workers.Count = 2
	c.Workers.QueueSize = 100
	c.Storage.Backend = "local"
	c.Storage.LocalDir = "data/blobs"
	c.GoogleDrive.FolderName = "Skill Dashboard Uploads"
	c.History.Driver = "sqlite"
	c.History.DSN = "data/history.db"
	c.History.CreateOnSubmit = true
	c.History.ListLimit = 50
	c.Events.Driver = "none"
	c.Events.Topic = "conversation.transcript.completed"
	c.Events.Subject = "conversation.transcript.completed"
	c.Cleanup.IntervalMinutes = 60
	c.Limits.MaxFileSizeMB = 100
	return &c
}

// Load reads the YAML file at path (a missing file is not an error), loads envFile
// into the environment when it exists, applies environment overrides and validates.
func Load(path, envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("load env file: %w", err)
		}
	}

	cfg := Defaults()

	if path != "" {
		file, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(file, cfg); err != nil {
				return nil, fmt.Errorf("parse config: %w", err)
			}
		case !errors.Is(err, os.ErrNotExist):
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.Server.Port = envInt("PORT", c.Server.Port)
	c.Logging.Level = envStr("LOG_LEVEL", c.Logging.Level)
	c.Logging.Format = envStr("LOG_FORMAT", c.Logging.Format)
	c.Auth.JWTSecret = envStr("AUTH_JWT_SECRET", c.Auth.JWTSecret)
	c.Auth.Issuer = envStr("AUTH_ISSUER", c.Auth.Issuer)
	c.AssemblyAI.APIKey = envStr("ASSEMBLYAI_API_KEY", c.AssemblyAI.APIKey)
	c.AssemblyAI.BaseURL = envStr("ASSEMBLYAI_BASE_URL", c.AssemblyAI.BaseURL)
	c.Storage.Backend = envStr("STORAGE_BACKEND", c.Storage.Backend)
	c.S3.Bucket = envStr("S3_BUCKET", c.S3.Bucket)
	c.S3.AccessKey = envStr("S3_ACCESS_KEY", c.S3.AccessKey)
	c.S3.SecretKey = envStr("S3_SECRET_KEY", c.S3.SecretKey)
	c.History.Driver = envStr("HISTORY_DRIVER", c.History.Driver)
	c.History.DSN = envStr("DATABASE_URL", c.History.DSN)
	c.Events.Driver = envStr("EVENTS_DRIVER", c.Events.Driver)
	if brokers := envStr("KAFKA_BROKERS", ""); brokers != "" {
		c.Events.Brokers = strings.Split(brokers, ",")
	}
	c.Events.NatsURL = envStr("NATS_URL", c.Events.NatsURL)
	c.Events.NatsToken = envStr("NATS_TOKEN", c.Events.NatsToken)
}

// Validate checks field constraints and the settings each backend depends on
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	switch c.Storage.Backend {
	case "local":
		if c.Storage.LocalDir == "" {
			return errors.New("invalid config: storage.local_dir is required for the local backend")
		}
	case "s3":
		if c.S3.Bucket == "" || c.S3.Region == "" {
			return errors.New("invalid config: s3.bucket and s3.region are required for the s3 backend")
		}
	case "gdrive":
		if c.GoogleDrive.CredentialsFile == "" || c.GoogleDrive.TokenFile == "" {
			return errors.New("invalid config: google_drive credentials_file and token_file are required for the gdrive backend")
		}
	}

	switch c.Events.Driver {
	case "kafka":
		if len(c.Events.Brokers) == 0 || c.Events.Topic == "" {
			return errors.New("invalid config: events.brokers and events.topic are required for kafka")
		}
	case "nats":
		if c.Events.NatsURL == "" || c.Events.Subject == "" {
			return errors.New("invalid config: events.nats_url and events.subject are required for nats")
		}
	}

	return nil
}

// PollInterval returns the polling interval as a duration
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Polling.IntervalSeconds) * time.Second
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
