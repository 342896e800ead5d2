// Package backup snapshots target files before an apply run rewrites
// them, and can restore a snapshot afterwards. Snapshots live under
// confit's state directory, outside the project, so project tooling never
// sees them.
package backup

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	goerrors "errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"time"

	"github.com/arthur-debert/confit/pkg/errors"
	"github.com/arthur-debert/confit/pkg/logging"
	"github.com/arthur-debert/confit/pkg/types"
)

const manifestName = "manifest.json"

// Entry records one target's pre-apply state
type Entry struct {
	// Target is the absolute path that was snapshotted
	Target string `json:"target"`

	// Blob is the sha256 of the saved content, naming the blob file.
	// Empty for symlinks and missing targets.
	Blob string `json:"blob,omitempty"`

	// Link is the symlink destination when the target was a symlink
	Link string `json:"link,omitempty"`

	// Missing marks a target that did not exist; restoring removes it
	Missing bool `json:"missing,omitempty"`
}

// Manifest describes one snapshot
type Manifest struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	Entries   []Entry   `json:"entries"`
}

// Manager reads and writes snapshots under the backups directory
type Manager struct {
	fs    types.FS
	paths types.Pather
	now   func() time.Time
}

// New creates a Manager over the given filesystem and layout
func New(filesys types.FS, pather types.Pather) *Manager {
	return &Manager{fs: filesys, paths: pather, now: time.Now}
}

func (m *Manager) snapshotDir(id string) string {
	return filepath.Join(m.paths.BackupsDir(), id)
}

// newID derives a timestamp-based snapshot id, suffixed on collision
func (m *Manager) newID() string {
	base := m.now().Format("20060102-150405")
	id := base
	for n := 1; ; n++ {
		if _, err := m.fs.Stat(m.snapshotDir(id)); goerrors.Is(err, fs.ErrNotExist) {
			return id
		}
		id = fmt.Sprintf("%s.%d", base, n)
	}
}

// Snapshot captures the current state of the given targets. Missing
// targets are recorded as such so a restore can remove what apply
// created.
func (m *Manager) Snapshot(targets []string) (*Manifest, error) {
	logger := logging.GetLogger("backup")

	manifest := &Manifest{ID: m.newID(), CreatedAt: m.now()}
	dir := m.snapshotDir(manifest.ID)
	if err := m.fs.MkdirAll(filepath.Join(dir, "blobs"), 0755); err != nil {
		return nil, errors.Wrapf(err, errors.ErrDirCreate, "cannot create snapshot dir %s", dir)
	}

	for _, target := range targets {
		entry, err := m.capture(dir, target)
		if err != nil {
			return nil, err
		}
		manifest.Entries = append(manifest.Entries, entry)
	}

	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrInternal, "cannot encode manifest")
	}
	if err := m.fs.WriteFile(filepath.Join(dir, manifestName), data, 0644); err != nil {
		return nil, errors.Wrapf(err, errors.ErrFileWrite, "cannot write manifest for %s", manifest.ID)
	}

	logger.Info().Str("id", manifest.ID).Int("targets", len(manifest.Entries)).Msg("snapshot taken")
	return manifest, nil
}

func (m *Manager) capture(dir, target string) (Entry, error) {
	info, err := m.fs.Lstat(target)
	if err != nil {
		if goerrors.Is(err, fs.ErrNotExist) {
			return Entry{Target: target, Missing: true}, nil
		}
		return Entry{}, errors.Wrapf(err, errors.ErrFileAccess, "cannot stat %s", target)
	}

	if info.Mode()&fs.ModeSymlink != 0 {
		dest, err := m.fs.Readlink(target)
		if err != nil {
			return Entry{}, errors.Wrapf(err, errors.ErrFileAccess, "cannot read link %s", target)
		}
		return Entry{Target: target, Link: dest}, nil
	}

	data, err := m.fs.ReadFile(target)
	if err != nil {
		return Entry{}, errors.Wrapf(err, errors.ErrFileAccess, "cannot read %s", target)
	}
	sum := sha256.Sum256(data)
	blob := hex.EncodeToString(sum[:])
	blobPath := filepath.Join(dir, "blobs", blob)
	if _, err := m.fs.Stat(blobPath); goerrors.Is(err, fs.ErrNotExist) {
		if err := m.fs.WriteFile(blobPath, data, 0644); err != nil {
			return Entry{}, errors.Wrapf(err, errors.ErrFileWrite, "cannot save blob for %s", target)
		}
	}
	return Entry{Target: target, Blob: blob}, nil
}

// List returns all snapshot manifests, newest first
func (m *Manager) List() ([]Manifest, error) {
	entries, err := m.fs.ReadDir(m.paths.BackupsDir())
	if err != nil {
		if goerrors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, errors.Wrap(err, errors.ErrFileAccess, "cannot list backups")
	}

	var manifests []Manifest
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		manifest, err := m.load(entry.Name())
		if err != nil {
			continue
		}
		manifests = append(manifests, *manifest)
	}
	sort.Slice(manifests, func(i, j int) bool {
		return manifests[i].CreatedAt.After(manifests[j].CreatedAt)
	})
	return manifests, nil
}

// Latest returns the most recent snapshot, or nil when none exist
func (m *Manager) Latest() (*Manifest, error) {
	manifests, err := m.List()
	if err != nil {
		return nil, err
	}
	if len(manifests) == 0 {
		return nil, nil
	}
	return &manifests[0], nil
}

func (m *Manager) load(id string) (*Manifest, error) {
	data, err := m.fs.ReadFile(filepath.Join(m.snapshotDir(id), manifestName))
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrFileAccess, "cannot read manifest of %s", id)
	}
	var manifest Manifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return nil, errors.Wrapf(err, errors.ErrConfigParse, "corrupt manifest in %s", id)
	}
	return &manifest, nil
}

// Restore puts every target of a snapshot back to its recorded state.
// Targets that were missing are removed again.
func (m *Manager) Restore(id string) error {
	logger := logging.GetLogger("backup")

	manifest, err := m.load(id)
	if err != nil {
		return err
	}
	dir := m.snapshotDir(id)

	for _, entry := range manifest.Entries {
		if err := m.restoreEntry(dir, entry); err != nil {
			return err
		}
	}

	logger.Info().Str("id", id).Int("targets", len(manifest.Entries)).Msg("snapshot restored")
	return nil
}

func (m *Manager) restoreEntry(dir string, entry Entry) error {
	if err := m.clear(entry.Target); err != nil {
		return err
	}

	switch {
	case entry.Missing:
		return nil
	case entry.Link != "":
		if err := m.fs.MkdirAll(filepath.Dir(entry.Target), 0755); err != nil {
			return errors.Wrapf(err, errors.ErrDirCreate, "cannot create parent of %s", entry.Target)
		}
		if err := m.fs.Symlink(entry.Link, entry.Target); err != nil {
			return errors.Wrapf(err, errors.ErrSymlinkCreate, "cannot relink %s", entry.Target)
		}
		return nil
	default:
		data, err := m.fs.ReadFile(filepath.Join(dir, "blobs", entry.Blob))
		if err != nil {
			return errors.Wrapf(err, errors.ErrFileAccess, "missing blob %s", entry.Blob)
		}
		if err := m.fs.MkdirAll(filepath.Dir(entry.Target), 0755); err != nil {
			return errors.Wrapf(err, errors.ErrDirCreate, "cannot create parent of %s", entry.Target)
		}
		if err := m.fs.WriteFile(entry.Target, data, 0644); err != nil {
			return errors.Wrapf(err, errors.ErrFileWrite, "cannot restore %s", entry.Target)
		}
		return nil
	}
}

func (m *Manager) clear(target string) error {
	err := m.fs.Remove(target)
	if err != nil && !goerrors.Is(err, fs.ErrNotExist) {
		return errors.Wrapf(err, errors.ErrFileAccess, "cannot clear %s", target)
	}
	return nil
}
