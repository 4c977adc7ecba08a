// SPDX-License-Identifier: EPL-2.0

package bank

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
)

// Storage persists encoded pad files. Read returns an error matching
// fs.ErrNotExist when the pad has nothing stored; Delete of a missing pad
// is not an error.
type Storage interface {
	Read(pad PadID) ([]byte, error)
	Write(pad PadID, data []byte) error
	Delete(pad PadID) error
	Exists(pad PadID) bool
	List() ([]PadID, error)
}

const (
	filePrefix = "pad-"
	fileExt    = ".wav"
)

// DirStorage keeps one file per pad at <Dir>/pad-NNN.wav.
type DirStorage struct {
	Dir string
}

func NewDirStorage(dir string) *DirStorage {
	return &DirStorage{Dir: dir}
}

// Path is the deterministic location of pad's file.
func (s *DirStorage) Path(pad PadID) string {
	return filepath.Join(s.Dir, pad.String()+fileExt)
}

func (s *DirStorage) Read(pad PadID) ([]byte, error) {
	return os.ReadFile(s.Path(pad))
}

// Write replaces pad's file atomically through a temp file and rename.
func (s *DirStorage) Write(pad PadID, data []byte) error {
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", s.Dir, err)
	}

	tmp, err := os.CreateTemp(s.Dir, pad.String()+"-*.tmp")
	if err != nil {
		return fmt.Errorf("%w", err)
	}
	tmpName := tmp.Name()

	_, err = tmp.Write(data)
	if err == nil {
		err = tmp.Sync()
	}
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err == nil {
		err = os.Rename(tmpName, s.Path(pad))
	}
	if err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("writing %s: %w", pad, err)
	}

	return nil
}

func (s *DirStorage) Delete(pad PadID) error {
	err := os.Remove(s.Path(pad))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w", err)
	}

	return nil
}

func (s *DirStorage) Exists(pad PadID) bool {
	info, err := os.Stat(s.Path(pad))
	return err == nil && info.Mode().IsRegular()
}

func (s *DirStorage) List() ([]PadID, error) {
	entries, err := os.ReadDir(s.Dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w", err)
	}

	var pads []PadID
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.HasPrefix(name, filePrefix) || !strings.HasSuffix(name, fileExt) {
			continue
		}

		n, err := strconv.Atoi(strings.TrimSuffix(strings.TrimPrefix(name, filePrefix), fileExt))
		if err != nil || n < 0 {
			continue
		}
		pads = append(pads, PadID(n))
	}
	slices.Sort(pads)

	return pads, nil
}
