package workspace

import (
	"context"
	"os"
	"path/filepath"
	"slices"

	"github.com/criyle/go-runner/language"
)

var _ Store = &Manager{}

// Manager stores workspaces as files / directories under root
type Manager struct {
	root  string
	locks *keyedLock
}

// NewManager creates a workspace manager under root, the directory is
// created on first use. A relative root is resolved against the current
// directory, since the toolchain runs with a different working directory.
func NewManager(root string) *Manager {
	if abs, err := filepath.Abs(root); err == nil {
		root = abs
	}
	return &Manager{
		root:  filepath.Clean(root),
		locks: newKeyedLock(),
	}
}

// Root returns the directory holding workspaces
func (m *Manager) Root() string {
	return m.root
}

// Materialize writes the submission into its workspace. Concurrent
// materialization of an identical submission waits until the holder removed
// its workspace. On error every partial write is removed already.
func (m *Manager) Materialize(ctx context.Context, spec Spec) (*Workspace, error) {
	name := Name(spec)
	release, err := m.locks.acquire(ctx, name)
	if err != nil {
		return nil, err
	}
	w := &Workspace{
		Name:    name,
		Path:    filepath.Join(m.root, name),
		Mode:    spec.Mode,
		release: release,
	}
	if err := m.write(w, spec); err != nil {
		w.Remove()
		return nil, err
	}
	return w, nil
}

func (m *Manager) write(w *Workspace, spec Spec) error {
	if err := os.MkdirAll(m.root, 0o755); err != nil {
		return newError("mkdir", m.root, err)
	}
	if spec.Mode != language.ModeTest {
		return writeFile(w.Path, spec.Source)
	}

	// a crashed process may have left files behind
	if err := os.RemoveAll(w.Path); err != nil {
		return newError("remove", w.Path, err)
	}
	if err := os.Mkdir(w.Path, 0o755); err != nil {
		return newError("mkdir", w.Path, err)
	}

	source, test := language.Stub(), language.Transform(spec.Source)
	if spec.HiddenTest != "" {
		source, test = language.Transform(spec.Source), language.Transform(spec.HiddenTest)
	}
	files := []struct{ name, content string }{
		{language.SourceFileName, source},
		{language.TestFileName, test},
		{language.ManifestFileName, language.Manifest()},
	}
	for _, f := range files {
		if err := writeFile(filepath.Join(w.Path, f.name), f.content); err != nil {
			return err
		}
	}
	return nil
}

func writeFile(path, content string) error {
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return newError("write", path, err)
	}
	return nil
}

// List returns the names of workspaces currently under root
func (m *Manager) List() []string {
	fi, err := os.ReadDir(m.root)
	if err != nil {
		return nil
	}
	names := make([]string, 0, len(fi))
	for _, f := range fi {
		if isWorkspaceName(f.Name()) {
			names = append(names, f.Name())
		}
	}
	slices.Sort(names)
	return names
}
