package types

import (
	"time"
)

type ConfigManager interface {
	Load() error
	GetConfig() *ServiceConfig
}

type ServiceConfig struct {
	Name    string         `yaml:"name" json:"name" validate:"required"`
	Version string         `yaml:"version" json:"version" validate:"required"`
	Logger  *LoggerConfig  `yaml:"logger" json:"logger"`
	Storage *StorageConfig `yaml:"storage" json:"storage" validate:"required"`
	Metrics *MetricsConfig `yaml:"metrics" json:"metrics"`
	Jobs    *JobsConfig    `yaml:"jobs" json:"jobs"`
}

type LoggerConfig struct {
	Type   string      `yaml:"type" json:"type"`
	Level  string      `yaml:"level" json:"level"`
	Config interface{} `yaml:"config" json:"config"`
}

type StorageConfig struct {
	Root          string        `yaml:"root" json:"root" validate:"required"`
	DebounceDelay time.Duration `yaml:"debounce_delay" json:"debounce_delay" validate:"min=0"`
	KV            *StoreConfig  `yaml:"kv" json:"kv" validate:"required"`
	Secrets       *StoreConfig  `yaml:"secrets" json:"secrets" validate:"required"`
}

type StoreConfig struct {
	Type   string      `yaml:"type" json:"type" validate:"required"`
	Config interface{} `yaml:"config" json:"config"`
}

type MetricsConfig struct {
	Enabled bool              `yaml:"enabled" json:"enabled"`
	Type    string            `yaml:"type" json:"type" validate:"required_if=Enabled true"`
	Config  interface{}       `yaml:"config" json:"config"`
	Labels  map[string]string `yaml:"labels" json:"labels"`
}

type JobsConfig struct {
	Enabled       bool   `yaml:"enabled" json:"enabled"`
	Timezone      string `yaml:"timezone" json:"timezone"`
	SecretRefresh string `yaml:"secret_refresh" json:"secret_refresh"`
}
