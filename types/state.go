package types

import (
	"context"
	"time"
)

type KeyKind int

const (
	KeyKindGlobal KeyKind = iota
	KeyKindSecret
	KeyKindPassThrough
)

// KeySpec declares namespace membership for a state key. Membership is
// static configuration: a key belongs to exactly one kind, and only global
// keys may carry the Large flag.
type KeySpec struct {
	Name  string
	Kind  KeyKind
	Large bool
}

type WritePath string

const (
	WritePathKV          WritePath = "kv"
	WritePathDebounced   WritePath = "debounced-disk"
	WritePathPassThrough WritePath = "pass-through"
	WritePathSecret      WritePath = "secret"
)

// InstrumentRecord is one newline-delimited JSON diagnostic entry appended
// to the instrumentation log on every write.
type InstrumentRecord struct {
	Timestamp       time.Time `json:"timestamp"`
	Key             string    `json:"key"`
	ApproxSizeBytes int       `json:"approxSizeBytes"`
	WritePath       WritePath `json:"writePath"`
}

// StateManager is the typed API the glue layer calls into. Get panics with
// ErrStateNotInitialized when called before Initialize; every other failure
// mode is absorbed (logged, telemetry) rather than surfaced.
type StateManager interface {
	Initialize(ctx context.Context) error
	Get(key string, def interface{}) interface{}
	Set(ctx context.Context, key string, value interface{}) error
	GetSecret(key string) (string, bool)
	SetSecret(ctx context.Context, key string, value *string) error
	RefreshSecrets(ctx context.Context) error
	Reset(ctx context.Context) error
	Dispose() error
}
