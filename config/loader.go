package config

import (
	"context"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/saiset-co/sai-statecache/types"
)

type Loader struct {
	validator *validator.Validate
}

func NewLoader() (*Loader, error) {
	return &Loader{
		validator: validator.New(),
	}, nil
}

func (l *Loader) LoadFromFile(ctx context.Context, path string) (*types.ServiceConfig, error) {
	if path == "" {
		return nil, types.ErrConfigInvalidPath
	}

	select {
	case <-ctx.Done():
		return nil, types.WrapError(ctx.Err(), "config load cancelled")
	default:
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, types.Errorf(types.ErrConfigNotFound, "path: %s", path)
	}

	config := &types.ServiceConfig{}
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, types.WrapError(err, types.ErrConfigParseFailed.Error())
	}

	applyDefaults(config)

	if err := l.validator.Struct(config); err != nil {
		return nil, types.WrapError(err, types.ErrConfigValidateFailed.Error())
	}

	return config, nil
}

func applyDefaults(config *types.ServiceConfig) {
	if config.Logger == nil {
		config.Logger = &types.LoggerConfig{Level: "info"}
	}
	if config.Logger.Level == "" {
		config.Logger.Level = "info"
	}

	if config.Storage != nil && config.Storage.DebounceDelay == 0 {
		config.Storage.DebounceDelay = 5 * time.Second
	}

	if config.Jobs != nil && config.Jobs.Timezone == "" {
		config.Jobs.Timezone = "UTC"
	}
}
