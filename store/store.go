// Package store persists risk state as JSON with crash-safe writes. A write
// lands fully or not at all: data goes to a temp file in the target directory,
// is fsynced, then renamed over the destination.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrNotExist is returned by Load when no state file exists yet.
var ErrNotExist = errors.New("store: state file does not exist")

// ErrCorrupt is returned by Load when the file exists but cannot be decoded.
// Callers are expected to fall back to a safe initial state, not to fail.
var ErrCorrupt = errors.New("store: state file is corrupt")

// Save atomically writes v as indented JSON to path.
func Save(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("store: marshal state: %w", err)
	}
	return writeFileAtomic(path, data, 0o600)
}

// Load decodes the JSON state at path into v. It returns ErrNotExist when the
// file is missing and wraps ErrCorrupt when the contents do not decode.
func Load(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return ErrNotExist
		}
		return fmt.Errorf("store: read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrCorrupt, path, err)
	}
	return nil
}

// writeFileAtomic writes data to path via tmp file + fsync + rename. The
// parent directory is fsynced afterwards (best effort) so the rename itself
// survives a crash.
func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Chmod(perm); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	if err := os.Rename(tmpPath, path); err != nil {
		return err
	}

	if d, err := os.Open(dir); err == nil {
		_ = d.Sync()
		_ = d.Close()
	}
	return nil
}
