package helpers

import (
	"io"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// FileMove moves a file from a source path to a destination path, creating
// the destination directory when needed.
// Unlike [os.Rename] it works across devices (Docker volumes).
func FileMove(sourcePath, destPath string) error {
	sourceFileStat, err := os.Stat(sourcePath)
	if err != nil {
		return err
	}

	destFileStat, err := os.Stat(destPath)
	if err == nil {
		if sourcePath == destPath || os.SameFile(sourceFileStat, destFileStat) {
			return errors.Errorf("files %s and %s are the same", sourcePath, destPath)
		}
	}

	if err = os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return errors.Wrap(err, "couldn't create destination directory")
	}

	inputFile, err := os.Open(sourcePath)
	if err != nil {
		return err
	}

	outputFile, err := os.Create(destPath)
	if err != nil {
		inputFile.Close()
		return err
	}

	_, err = io.Copy(outputFile, inputFile)
	inputFile.Close()
	outputFile.Close()

	if err != nil {
		if errRem := os.Remove(destPath); errRem != nil {
			return errors.Errorf(
				"unable to os.Remove error: %s after io.Copy error: %s",
				errRem,
				err,
			)
		}

		return err
	}

	return os.Remove(sourcePath)
}

// WriteFile writes data to a temporary file next to path and moves it into
// place.
func WriteFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrap(err, "couldn't create artifact directory")
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return errors.Wrap(err, "couldn't create temporary file")
	}
	tmpName := tmp.Name()

	_, err = tmp.Write(data)
	if errClose := tmp.Close(); err == nil {
		err = errClose
	}
	if err != nil {
		os.Remove(tmpName)
		return errors.Wrapf(err, "couldn't write %s", path)
	}

	if err = FileMove(tmpName, path); err != nil {
		os.Remove(tmpName)
		return errors.Wrapf(err, "couldn't move artifact to %s", path)
	}

	return nil
}
