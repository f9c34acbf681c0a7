// Package botversion tracks the running binary's identity across
// process starts (C13), so an operator restarting a long-lived gateway
// process can tell a plain restart apart from a rebuilt-and-restarted
// binary, and so a SIGHUP can trigger an in-place hot restart onto the
// current binary on disk.
package botversion

import (
	"encoding/json"
	"hash/fnv"
	"os"
	"path/filepath"
	"time"

	"github.com/bobmatnyc/ai-commander-sub001/internal/model"
)

// Version is the on-disk record of the running binary's identity and
// start history.
type Version struct {
	BinaryHash string    `json:"binary_hash"`
	LastStart  time.Time `json:"last_start"`
	StartCount int       `json:"start_count"`
}

// IsFirstStart reports whether this is the very first recorded start.
func (v *Version) IsFirstStart() bool { return v.StartCount == 1 }

// Age returns how long it has been since LastStart.
func (v *Version) Age(now time.Time) time.Duration { return now.Sub(v.LastStart) }

// Tracker loads and saves Version to a JSON file, computing the
// current binary's hash from its own executable's size and
// modification time — cheap to compute on every start and changes
// whenever the binary on disk is rebuilt.
//
// Grounded on commander-telegram/src/version.rs's BotVersion/
// load_version/save_version/check_rebuild.
type Tracker struct {
	path string
	now  func() time.Time
	exe  func() (string, error)
}

// NewTracker constructs a Tracker backed by bot_version.json under dir.
func NewTracker(dir string) (*Tracker, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, &model.IOError{Path: dir, Cause: err}
	}
	return &Tracker{
		path: filepath.Join(dir, "bot_version.json"),
		now:  time.Now,
		exe:  os.Executable,
	}, nil
}

// computeBinaryHash hashes the running executable's size and
// modification time, falling back to a fixed placeholder if the
// executable path can't be resolved or stat'd (e.g. under `go test`,
// where os.Executable points at a throwaway test binary that may not
// be stable across runs — callers should not rely on rebuild detection
// holding under test).
func (t *Tracker) computeBinaryHash() string {
	path, err := t.exe()
	if err != nil {
		return "unknown"
	}
	info, err := os.Stat(path)
	if err != nil {
		return "unknown"
	}
	h := fnv.New64a()
	var buf [16]byte
	putUint64(buf[0:8], uint64(info.Size()))
	putUint64(buf[8:16], uint64(info.ModTime().Unix()))
	h.Write(buf[:])
	return hashToString(h.Sum64())
}

func putUint64(b []byte, v uint64) {
	for i := 0; i < 8; i++ {
		b[i] = byte(v >> (8 * i))
	}
}

func hashToString(h uint64) string {
	const hexDigits = "0123456789abcdef"
	buf := make([]byte, 16)
	for i := 15; i >= 0; i-- {
		buf[i] = hexDigits[h&0xf]
		h >>= 4
	}
	return string(buf)
}

func (t *Tracker) load() (*Version, error) {
	data, err := os.ReadFile(t.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, &model.IOError{Path: t.path, Cause: err}
	}
	var v Version
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, nil
	}
	return &v, nil
}

func (t *Tracker) save(v *Version) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return &model.IOError{Path: t.path, Cause: err}
	}
	dir := filepath.Dir(t.path)
	tmp, err := os.CreateTemp(dir, "bot_version-*.tmp")
	if err != nil {
		return &model.IOError{Path: dir, Cause: err}
	}
	tmpPath := tmp.Name()
	cleanup := true
	defer func() {
		if cleanup {
			os.Remove(tmpPath)
		}
	}()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return &model.IOError{Path: tmpPath, Cause: err}
	}
	if err := tmp.Close(); err != nil {
		return &model.IOError{Path: tmpPath, Cause: err}
	}
	if err := os.Rename(tmpPath, t.path); err != nil {
		return &model.IOError{Path: t.path, Cause: err}
	}
	cleanup = false
	return nil
}

// CheckStart loads the previous start record (if any), updates it for
// this start, saves it, and reports whether this start looks like a
// rebuild (binary hash changed), whether it is the very first start
// ever recorded, and the new start count. The first start is reported
// as neither a rebuild nor a restart, matching the original's
// check_rebuild.
func (t *Tracker) CheckStart() (isRebuild, isFirstStart bool, startCount int, err error) {
	existing, loadErr := t.load()
	if loadErr != nil {
		return false, false, 0, loadErr
	}

	currentHash := t.computeBinaryHash()
	now := t.now()

	if existing == nil {
		v := &Version{BinaryHash: currentHash, LastStart: now, StartCount: 1}
		if err := t.save(v); err != nil {
			return false, false, 0, err
		}
		return false, true, 1, nil
	}

	isRebuild = existing.BinaryHash != currentHash
	existing.BinaryHash = currentHash
	existing.LastStart = now
	existing.StartCount++
	if err := t.save(existing); err != nil {
		return false, false, 0, err
	}
	return isRebuild, false, existing.StartCount, nil
}
