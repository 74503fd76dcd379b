// Package workspace materializes submissions into uniquely named files and
// directories under a root, and guarantees their removal.
package workspace

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io/fs"
	"os"
	"strings"
	"sync"

	"github.com/criyle/go-runner/language"
)

const (
	digestLength = 8

	plainPrefix = "go_run_"
	plainSuffix = ".go"
	testPrefix  = "go_test_"
)

// Spec is the submission to materialize
type Spec struct {
	Mode       language.Mode
	Source     string
	HiddenTest string
}

// Store materializes submissions into workspaces
type Store interface {
	Materialize(ctx context.Context, spec Spec) (*Workspace, error) // Materialize writes the submission, caller must Remove the result
	List() []string                                                 // List returns the names of workspaces under the root
	Root() string                                                   // Root returns the directory holding workspaces
}

// Workspace is a materialized submission, a single file in plain mode or a
// module directory in test mode
type Workspace struct {
	Name string
	Path string
	Mode language.Mode

	release func()
	once    sync.Once
}

// Error records a filesystem failure while materializing or removing
type Error struct {
	Op   string
	Path string
	Err  error
}

func (e *Error) Error() string {
	return e.Op + " " + e.Path + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// newError strips the *fs.PathError layer so the path is reported once
func newError(op, path string, err error) *Error {
	var pe *fs.PathError
	if errors.As(err, &pe) {
		err = pe.Err
	}
	return &Error{Op: op, Path: path, Err: err}
}

// Name returns the digest derived name of the workspace for spec
func Name(spec Spec) string {
	h := sha256.New()
	h.Write([]byte(spec.Source))
	if spec.Mode == language.ModeTest {
		h.Write([]byte{0})
		h.Write([]byte(spec.HiddenTest))
	}
	digest := hex.EncodeToString(h.Sum(nil))[:digestLength]
	if spec.Mode == language.ModeTest {
		return testPrefix + digest
	}
	return plainPrefix + digest + plainSuffix
}

func isWorkspaceName(name string) bool {
	return strings.HasPrefix(name, testPrefix) ||
		strings.HasPrefix(name, plainPrefix) && strings.HasSuffix(name, plainSuffix)
}

// Remove deletes the workspace and releases its name. Only the first call
// touches the disk, later calls return nil since the name may already belong
// to the next identical submission. A workspace that is already gone is not
// an error.
func (w *Workspace) Remove() (err error) {
	w.once.Do(func() {
		if rerr := os.RemoveAll(w.Path); rerr != nil && !errors.Is(rerr, fs.ErrNotExist) {
			err = newError("remove", w.Path, rerr)
		}
		if w.release != nil {
			w.release()
		}
	})
	return err
}
