// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package asset

import (
	"fmt"
	"os"
	"path/filepath"
)

// Source reads whole files by name. Names use forward slashes.
// A missing file is reported with an error wrapping fs.ErrNotExist.
type Source interface {
	ReadAll(name string) ([]byte, error)
}

// Dir returns a Source reading from the directory root.
func Dir(root string) Source {
	return dirSource(root)
}

type dirSource string

func (d dirSource) ReadAll(name string) ([]byte, error) {
	return os.ReadFile(filepath.Join(string(d), filepath.FromSlash(name)))
}

// ReadFile is the job kind that reads a whole file into memory. A nil
// Source reads Path straight from the operating system.
type ReadFile struct {
	Path   string
	Source Source
}

// Kind implements the job kind name.
func (ReadFile) Kind() string {
	return "read-file"
}

// Run reads the file.
func (r ReadFile) Run() ([]byte, error) {
	var (
		data []byte
		err  error
	)
	if r.Source == nil {
		data, err = os.ReadFile(r.Path)
	} else {
		data, err = r.Source.ReadAll(r.Path)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", r.Path, err)
	}
	return data, nil
}
