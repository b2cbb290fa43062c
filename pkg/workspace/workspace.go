// ABOUTME: Local working files for downloads and checked-out documents
// ABOUTME: Tracks checkout files in a JSON manifest; never consulted for lock state

package workspace

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

const (
	downloadsDir = "downloads"
	checkoutDir  = "checkout"
	manifestName = ".checkout_manifest.json"
)

// ErrNotTracked indicates no checkout file is recorded for a node
var ErrNotTracked = errors.New("workspace: node not tracked")

// Entry records one checked-out working file
type Entry struct {
	NodeID       string    `json:"node_id"`
	FileName     string    `json:"file_name"`
	Path         string    `json:"path"`
	SizeBytes    int64     `json:"size_bytes"`
	CheckedOutAt time.Time `json:"checked_out_at"`
}

type manifest struct {
	Checkouts map[string]Entry `json:"checkouts"`
}

// Workspace is a directory of local working files
type Workspace struct {
	root string
	mu   sync.Mutex
	now  func() time.Time
}

// New creates the workspace directories under root
func New(root string) (*Workspace, error) {
	if strings.TrimSpace(root) == "" {
		return nil, errors.New("workspace: root directory is required")
	}
	for _, dir := range []string{downloadsDir, checkoutDir} {
		if err := os.MkdirAll(filepath.Join(root, dir), 0o755); err != nil {
			return nil, fmt.Errorf("workspace: create %s: %w", dir, err)
		}
	}
	return &Workspace{root: root, now: time.Now}, nil
}

// Root returns the workspace directory
func (w *Workspace) Root() string {
	return w.root
}

// FileName builds a safe local name for a node's file
func FileName(name, nodeID string) string {
	safe := strings.NewReplacer("/", "_", `\`, "_", " ", "_", "..", "_").Replace(strings.TrimSpace(name))
	if safe == "" {
		safe = "document"
	}
	ext := filepath.Ext(safe)
	stem := strings.TrimSuffix(safe, ext)
	id := nodeID
	if len(id) > 8 {
		id = id[:8]
	}
	return fmt.Sprintf("%s_%s%s", stem, id, ext)
}

// SaveDownload writes a downloaded document and returns its path
func (w *Workspace) SaveDownload(nodeID, name string, data []byte) (string, error) {
	path := filepath.Join(w.root, downloadsDir, FileName(name, nodeID))
	if err := writeFileAtomic(path, data); err != nil {
		return "", fmt.Errorf("workspace: save download: %w", err)
	}
	return path, nil
}

// SaveCheckout writes a checked-out document and records it in the manifest
func (w *Workspace) SaveCheckout(nodeID, name string, data []byte) (Entry, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	path := filepath.Join(w.root, checkoutDir, FileName(name, nodeID))
	if err := writeFileAtomic(path, data); err != nil {
		return Entry{}, fmt.Errorf("workspace: save checkout: %w", err)
	}
	m, err := w.load()
	if err != nil {
		return Entry{}, err
	}
	entry := Entry{
		NodeID:       nodeID,
		FileName:     name,
		Path:         path,
		SizeBytes:    int64(len(data)),
		CheckedOutAt: w.now().UTC(),
	}
	m.Checkouts[nodeID] = entry
	if err := w.store(m); err != nil {
		return Entry{}, err
	}
	return entry, nil
}

// Lookup returns the recorded checkout file of a node
func (w *Workspace) Lookup(nodeID string) (Entry, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	m, err := w.load()
	if err != nil {
		return Entry{}, err
	}
	entry, ok := m.Checkouts[nodeID]
	if !ok {
		return Entry{}, ErrNotTracked
	}
	return entry, nil
}

// Entries lists all recorded checkout files
func (w *Workspace) Entries() ([]Entry, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	m, err := w.load()
	if err != nil {
		return nil, err
	}
	out := make([]Entry, 0, len(m.Checkouts))
	for _, e := range m.Checkouts {
		out = append(out, e)
	}
	return out, nil
}

// Forget removes a node's checkout file and manifest entry. Unknown nodes are ignored.
func (w *Workspace) Forget(nodeID string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	m, err := w.load()
	if err != nil {
		return err
	}
	entry, ok := m.Checkouts[nodeID]
	if !ok {
		return nil
	}
	if err := os.Remove(entry.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("workspace: remove %s: %w", entry.Path, err)
	}
	delete(m.Checkouts, nodeID)
	return w.store(m)
}

func (w *Workspace) manifestPath() string {
	return filepath.Join(w.root, checkoutDir, manifestName)
}

func (w *Workspace) load() (*manifest, error) {
	m := &manifest{Checkouts: make(map[string]Entry)}
	data, err := os.ReadFile(w.manifestPath())
	if errors.Is(err, os.ErrNotExist) {
		return m, nil
	}
	if err != nil {
		return nil, fmt.Errorf("workspace: read manifest: %w", err)
	}
	if len(data) == 0 {
		return m, nil
	}
	if err := json.Unmarshal(data, m); err != nil {
		return nil, fmt.Errorf("workspace: decode manifest: %w", err)
	}
	if m.Checkouts == nil {
		m.Checkouts = make(map[string]Entry)
	}
	return m, nil
}

func (w *Workspace) store(m *manifest) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("workspace: encode manifest: %w", err)
	}
	if err := writeFileAtomic(w.manifestPath(), data); err != nil {
		return fmt.Errorf("workspace: write manifest: %w", err)
	}
	return nil
}

func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
