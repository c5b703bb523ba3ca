package statecache

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/saiset-co/sai-statecache/types"
	"github.com/saiset-co/sai-statecache/utils"
)

const instrumentLogName = "frag-instrument.log"

// InstrumentLog appends one newline-delimited JSON record per write to
// frag-instrument.log. It is observability only: every failure here is
// swallowed and must never fail the caller's logical operation.
type InstrumentLog struct {
	logger types.Logger
	file   *os.File
	mu     sync.Mutex
	closed bool
}

func NewInstrumentLog(dir string, logger types.Logger) *InstrumentLog {
	il := &InstrumentLog{logger: logger}

	file, err := os.OpenFile(filepath.Join(dir, instrumentLogName),
		os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		logger.Warn("Failed to open instrumentation log, diagnostics disabled",
			zap.Error(err))
		return il
	}

	il.file = file
	return il
}

func (il *InstrumentLog) Append(key string, approxSizeBytes int, writePath types.WritePath) {
	il.mu.Lock()
	defer il.mu.Unlock()

	if il.file == nil || il.closed {
		return
	}

	record := types.InstrumentRecord{
		Timestamp:       time.Now().UTC(),
		Key:             key,
		ApproxSizeBytes: approxSizeBytes,
		WritePath:       writePath,
	}

	data, err := utils.Marshal(&record)
	if err != nil {
		il.logger.Debug("Failed to serialize instrumentation record",
			zap.String("key", key), zap.Error(err))
		return
	}

	// sonic's stream encoder already appends a trailing newline
	if data[len(data)-1] != '\n' {
		data = append(data, '\n')
	}

	if _, err := il.file.Write(data); err != nil {
		il.logger.Debug("Failed to append instrumentation record",
			zap.String("key", key), zap.Error(err))
	}
}

func (il *InstrumentLog) Close() error {
	il.mu.Lock()
	defer il.mu.Unlock()

	if il.closed || il.file == nil {
		il.closed = true
		return nil
	}

	il.closed = true
	return il.file.Close()
}
