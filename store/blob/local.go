// Package blob stores binary artifacts (synthesized audio, rendered
// summaries) on the local filesystem, partitioned by session creation date.
package blob

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// Store writes artifacts under root/<partition-date>/<kind>/<name>.
// Writes go through a temp file and rename, so a reader never sees a
// partially written artifact.
type Store struct {
	root string
}

func NewStore(root string) (*Store, error) {
	if root == "" {
		return nil, errors.New("blob root is empty")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, errors.Wrapf(err, "failed to create blob root %s", root)
	}
	return &Store{root: root}, nil
}

// Put stores data and returns the artifact reference, a path relative to the
// store root.
func (s *Store) Put(partitionDate, kind, name string, data []byte) (string, error) {
	dir := filepath.Join(s.root, partitionDate, kind)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", errors.Wrapf(err, "failed to create artifact dir %s", dir)
	}

	tmp, err := os.CreateTemp(dir, name+".tmp-*")
	if err != nil {
		return "", errors.Wrap(err, "failed to create temp artifact")
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return "", errors.Wrap(err, "failed to write artifact")
	}
	if err := tmp.Close(); err != nil {
		return "", errors.Wrap(err, "failed to close artifact")
	}

	target := filepath.Join(dir, name)
	if err := os.Rename(tmp.Name(), target); err != nil {
		return "", errors.Wrapf(err, "failed to move artifact to %s", target)
	}

	return filepath.Join(partitionDate, kind, name), nil
}

// Get reads an artifact by the reference Put returned.
func (s *Store) Get(ref string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(s.root, filepath.Clean(ref)))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read artifact %s", ref)
	}
	return data, nil
}

// Delete removes a single artifact. A missing artifact is not an error.
func (s *Store) Delete(ref string) error {
	err := os.Remove(filepath.Join(s.root, filepath.Clean(ref)))
	if err != nil && !os.IsNotExist(err) {
		return errors.Wrapf(err, "failed to delete artifact %s", ref)
	}
	return nil
}

// DeleteAll removes every artifact of one kind-scoped name prefix for a
// session, used on session delete. Best effort, missing files are skipped.
func (s *Store) DeleteAll(refs []string) error {
	var firstErr error
	for _, ref := range refs {
		if err := s.Delete(ref); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// AudioName renders the canonical artifact file name for a turn.
func AudioName(turnUID string) string {
	return fmt.Sprintf("%s.mp3", turnUID)
}

// SummaryName renders the canonical artifact file name for a session summary.
func SummaryName(sessionUID string) string {
	return fmt.Sprintf("%s.md", sessionUID)
}
