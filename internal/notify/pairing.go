package notify

import (
	"context"
	"encoding/json"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/bobmatnyc/ai-commander-sub001/internal/model"
)

// PairingStore is a shared, file-backed exchange of short-lived codes
// for project+session pairs: one channel calls Create to mint a code
// and display it to the user, a second channel calls Consume with the
// code the user typed to recover the pair and attach itself.
//
// Grounded on commander-telegram/src/pairing.rs's load/save/create/
// consume functions, generalized the same way as Queue.
type PairingStore struct {
	mu   sync.Mutex
	path string
	now  func() time.Time
	rng  *rand.Rand
}

// NewPairingStore constructs a PairingStore backed by pairings.json
// under dir.
func NewPairingStore(dir string) (*PairingStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, &model.IOError{Path: dir, Cause: err}
	}
	return &PairingStore{
		path: filepath.Join(dir, "pairings.json"),
		now:  time.Now,
		rng:  rand.New(rand.NewSource(time.Now().UnixNano() ^ int64(os.Getpid()))),
	}, nil
}

func (p *PairingStore) load() (map[string]model.Pairing, error) {
	data, err := os.ReadFile(p.path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]model.Pairing{}, nil
		}
		return nil, &model.IOError{Path: p.path, Cause: err}
	}
	if len(data) == 0 {
		return map[string]model.Pairing{}, nil
	}
	m := map[string]model.Pairing{}
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, &model.IOError{Path: p.path, Cause: err}
	}
	return m, nil
}

func (p *PairingStore) save(pairings map[string]model.Pairing) error {
	data, err := json.MarshalIndent(pairings, "", "  ")
	if err != nil {
		return &model.IOError{Path: p.path, Cause: err}
	}
	dir := filepath.Dir(p.path)
	tmp, err := os.CreateTemp(dir, "pairings-*.tmp")
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
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return &model.IOError{Path: tmpPath, Cause: err}
	}
	if err := tmp.Close(); err != nil {
		return &model.IOError{Path: tmpPath, Cause: err}
	}
	if err := os.Rename(tmpPath, p.path); err != nil {
		return &model.IOError{Path: p.path, Cause: err}
	}
	cleanup = false
	return nil
}

func (p *PairingStore) generateCode() string {
	b := make([]byte, model.PairingCodeLength)
	for i := range b {
		b[i] = model.PairingAlphabet[p.rng.Intn(len(model.PairingAlphabet))]
	}
	return string(b)
}

// Create mints a fresh pairing code for projectName/sessionName,
// pruning expired pairings first, and returns the code.
func (p *PairingStore) Create(ctx context.Context, projectName, sessionName string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	pairings, err := p.load()
	if err != nil {
		return "", err
	}
	now := p.now()
	for code, pr := range pairings {
		if pr.IsExpired(now) {
			delete(pairings, code)
		}
	}

	code := p.generateCode()
	pairings[code] = model.Pairing{ProjectName: projectName, SessionName: sessionName, CreatedAt: now}
	if err := p.save(pairings); err != nil {
		return "", err
	}
	return code, nil
}

// Consume removes and returns the pairing for code if it exists and has
// not expired. The code is matched case-insensitively. ok is false if
// the code is unknown or expired; the pairing is removed either way so
// an expired entry does not linger past its first lookup.
func (p *PairingStore) Consume(ctx context.Context, code string) (projectName, sessionName string, ok bool, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	normalized := strings.ToUpper(strings.TrimSpace(code))
	pairings, err := p.load()
	if err != nil {
		return "", "", false, err
	}
	now := p.now()
	for c, pr := range pairings {
		if pr.IsExpired(now) {
			delete(pairings, c)
		}
	}

	pr, found := pairings[normalized]
	if found {
		delete(pairings, normalized)
	}
	if err := p.save(pairings); err != nil {
		return "", "", false, err
	}
	if !found || pr.IsExpired(now) {
		return "", "", false, nil
	}
	return pr.ProjectName, pr.SessionName, true, nil
}

// Exists reports whether code is currently valid, without consuming it.
func (p *PairingStore) Exists(ctx context.Context, code string) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	normalized := strings.ToUpper(strings.TrimSpace(code))
	pairings, err := p.load()
	if err != nil {
		return false, err
	}
	pr, found := pairings[normalized]
	if !found {
		return false, nil
	}
	return !pr.IsExpired(p.now()), nil
}
