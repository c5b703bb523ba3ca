package types

import (
	"errors"
	"fmt"
)

var (
	ErrConfigNotFound       = errors.New("config not found")
	ErrConfigInvalidPath    = errors.New("config invalid path")
	ErrConfigParseFailed    = errors.New("config parse failed")
	ErrConfigIsNil          = errors.New("config is nil")
	ErrConfigLoadFailed     = errors.New("config load failed")
	ErrConfigValidateFailed = errors.New("config validate failed")
)

var (
	ErrStoreTypeUnknown       = errors.New("store type unknown")
	ErrStoreKeyEmpty          = errors.New("store key empty")
	ErrStoreConnectionFailed  = errors.New("store connection failed")
	ErrStoreOperationFailed   = errors.New("store operation failed")
	ErrSecretStoreTypeUnknown = errors.New("secret store type unknown")
)

var (
	ErrStateNotInitialized = errors.New("state cache not initialized")
	ErrStateKeyUnknown     = errors.New("state key unknown")
	ErrStateKeyNotSecret   = errors.New("state key is not a secret key")
	ErrStateKeyNotGlobal   = errors.New("state key is not a global key")
	ErrStateDisposed       = errors.New("state cache disposed")
)

var (
	ErrDiskRecordAbsent = errors.New("disk record absent")
	ErrDiskWriteFailed  = errors.New("disk write failed")
	ErrInstrumentClosed = errors.New("instrumentation log closed")
)

var (
	ErrSettingsViewUnknown     = errors.New("settings view unknown")
	ErrSettingsValidateFailed  = errors.New("settings validate failed")
	ErrSettingsKeyUnrecognized = errors.New("settings key unrecognized")
)

var (
	ErrServiceAlreadyRunning = errors.New("service already running")
	ErrServiceNotRunning     = errors.New("service not running")
	ErrComponentStartFailed  = errors.New("component start failed")
	ErrComponentStopFailed   = errors.New("component stop failed")
)

var (
	ErrMetricsTypeUnknown   = errors.New("metrics type unknown")
	ErrMetricsConfigInvalid = errors.New("metrics config invalid")
	ErrMetricsIsDisabled    = errors.New("metrics manager is disabled")
)

var (
	ErrJobsIsDisabled     = errors.New("jobs scheduler is disabled")
	ErrJobScheduleInvalid = errors.New("job schedule invalid")
)

var (
	ErrLoggerConfigInvalid = errors.New("logger config invalid")
	ErrLoggerTypeUnknown   = errors.New("logger type unknown")
	ErrLogFileIsEmpty      = errors.New("log file is empty")
	ErrLogFileWrongFormat  = errors.New("log file wrong format")
)

func Errorf(baseErr error, format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", baseErr, fmt.Sprintf(format, args...))
}

func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

func IsError(err, target error) bool {
	return errors.Is(err, target)
}
