// Package fsutil holds small file helpers shared by the document writers and the mapping store.
package fsutil

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// WriteFileAtomic writes data to a temporary file in the target directory and renames
// it over path, so readers see either the old or the new content and never a partial file.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return errors.Wrap(err, "create temp file")
	}

	tmpName := tmp.Name()

	// the rename below is the commit point; anything before it leaves path untouched
	defer func() {
		if tmpName != "" {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		_ = tmp.Close()
		return errors.Wrap(err, "write temp file")
	}

	if err = tmp.Sync(); err != nil {
		_ = tmp.Close()
		return errors.Wrap(err, "sync temp file")
	}

	if err = tmp.Close(); err != nil {
		return errors.Wrap(err, "close temp file")
	}

	if err = os.Chmod(tmpName, perm); err != nil {
		return errors.Wrap(err, "chmod temp file")
	}

	if err = os.Rename(tmpName, path); err != nil {
		return errors.Wrapf(err, "rename %s", filepath.Base(path))
	}

	tmpName = ""

	return nil
}
