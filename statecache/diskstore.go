package statecache

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/saiset-co/sai-statecache/types"
	"github.com/saiset-co/sai-statecache/utils"
)

const stateDirName = "state"

// DiskStore persists large-key values as individual JSON files under
// <root>/state/<key>.json. Writes go to a temporary file beside the target
// and are renamed into place, so a concurrent or crashed reader never
// observes a truncated record.
type DiskStore struct {
	dir    string
	logger types.Logger
}

func NewDiskStore(root string, logger types.Logger) (*DiskStore, error) {
	dir := filepath.Join(root, stateDirName)

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, types.WrapError(err, "failed to create state directory")
	}

	return &DiskStore{
		dir:    dir,
		logger: logger,
	}, nil
}

func (d *DiskStore) Dir() string {
	return d.dir
}

func (d *DiskStore) WriteAtomic(key string, value interface{}) error {
	data, err := utils.Marshal(value)
	if err != nil {
		d.logger.Error("Failed to serialize disk record",
			zap.String("key", key), zap.Error(err))
		return types.WrapError(err, types.ErrDiskWriteFailed.Error())
	}

	target := d.recordPath(key)
	tmp := fmt.Sprintf("%s.%d.tmp", target, time.Now().UnixNano())

	if err := os.WriteFile(tmp, data, 0644); err != nil {
		d.logger.Error("Failed to write temporary disk record",
			zap.String("key", key), zap.Error(err))
		return types.WrapError(err, types.ErrDiskWriteFailed.Error())
	}

	if err := os.Rename(tmp, target); err != nil {
		_ = os.Remove(tmp)
		d.logger.Error("Failed to rename disk record into place",
			zap.String("key", key), zap.Error(err))
		return types.WrapError(err, types.ErrDiskWriteFailed.Error())
	}

	return nil
}

// ReadRecord returns the parsed record value. Missing and corrupt files are
// both reported as absent, never as errors.
func (d *DiskStore) ReadRecord(key string) (interface{}, bool) {
	data, err := os.ReadFile(d.recordPath(key))
	if err != nil {
		if !os.IsNotExist(err) {
			d.logger.Warn("Failed to read disk record, treating as absent",
				zap.String("key", key), zap.Error(err))
		}
		return nil, false
	}

	var value interface{}
	if err := utils.Unmarshal(data, &value); err != nil {
		d.logger.Warn("Corrupt disk record, treating as absent",
			zap.String("key", key), zap.Error(err))
		return nil, false
	}

	return value, true
}

func (d *DiskStore) DeleteRecord(key string) error {
	err := os.Remove(d.recordPath(key))
	if err != nil && !os.IsNotExist(err) {
		return types.WrapError(err, "failed to delete disk record")
	}
	return nil
}

func (d *DiskStore) recordPath(key string) string {
	return filepath.Join(d.dir, key+".json")
}
