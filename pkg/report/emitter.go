package report

import (
	"encoding/json"
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// WriteError signals that the artifact could not be written. The designated
// output path is left untouched: all writing happens on a temporary file
// that is renamed into place only when complete.
type WriteError struct {
	Path string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("cannot write report to %q: %v", e.Path, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// Write serializes the document and atomically writes it to path. The
// document is first written to a temporary file in the same directory and
// then renamed, so a crashed write never leaves a truncated artifact at
// the output path.
func Write(document *Document, path string) error {
	data, err := json.MarshalIndent(document, "", "  ")
	if err != nil {
		return &WriteError{Path: path, Err: errors.Wrap(err, "cannot marshal document")}
	}

	directory := filepath.Dir(path)
	temporary, err := ioutil.TempFile(directory, ".report_")
	if err != nil {
		return &WriteError{Path: path, Err: err}
	}

	if _, err := temporary.Write(data); err != nil {
		temporary.Close()
		os.Remove(temporary.Name())
		return &WriteError{Path: path, Err: err}
	}
	if err := temporary.Close(); err != nil {
		os.Remove(temporary.Name())
		return &WriteError{Path: path, Err: err}
	}

	if err := os.Rename(temporary.Name(), path); err != nil {
		os.Remove(temporary.Name())
		return &WriteError{Path: path, Err: err}
	}

	log.Debug("Report written to ", path)
	return nil
}

// Read loads an artifact back from disk.
func Read(path string) (*Document, error) {
	data, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot read report %q", path)
	}

	document := &Document{}
	if err := json.Unmarshal(data, document); err != nil {
		return nil, errors.Wrapf(err, "cannot decode report %q", path)
	}
	return document, nil
}
