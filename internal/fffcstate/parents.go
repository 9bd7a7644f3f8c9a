// Copyright 2024 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package fffcstate

import (
	"bytes"
	"fmt"
	"math/rand"
	"os"
)

// ParentsFile is the flat, append-only array of MaxPathLength-byte,
// null-padded path records backing one call's surviving parent population
// (§3, §4.D). Every write is exactly MaxPathLength bytes or the file is
// considered corrupt.
type ParentsFile struct {
	path string
}

// OpenParentsFile creates the parents file at path if it does not exist yet.
func OpenParentsFile(path string) (*ParentsFile, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, err
	}
	f.Close()
	return &ParentsFile{path: path}, nil
}

func encodeRecord(path string) ([]byte, error) {
	if len(path) >= MaxPathLength {
		return nil, fmt.Errorf("fffcstate: path %q exceeds MaxPathLength", path)
	}
	b := make([]byte, MaxPathLength)
	copy(b, path)
	return b, nil
}

// Append adds path as a new surviving parent.
func (pf *ParentsFile) Append(path string) error {
	rec, err := encodeRecord(path)
	if err != nil {
		return err
	}
	f, err := os.OpenFile(pf.path, os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	n, err := f.Write(rec)
	if err != nil {
		return err
	}
	if n != MaxPathLength {
		return fmt.Errorf("fffcstate: short parents-file write (%d of %d bytes)", n, MaxPathLength)
	}
	return nil
}

// ReadAll returns every surviving parent path, in file order.
func (pf *ParentsFile) ReadAll() ([]string, error) {
	data, err := os.ReadFile(pf.path)
	if err != nil {
		return nil, err
	}
	if len(data)%MaxPathLength != 0 {
		return nil, fmt.Errorf("fffcstate: parents file size %d is not a multiple of %d", len(data), MaxPathLength)
	}
	var paths []string
	for i := 0; i < len(data); i += MaxPathLength {
		rec := data[i : i+MaxPathLength]
		if z := bytes.IndexByte(rec, 0); z >= 0 {
			rec = rec[:z]
		}
		paths = append(paths, string(rec))
	}
	return paths, nil
}

// Count returns the number of parent records currently stored.
func (pf *ParentsFile) Count() (int, error) {
	info, err := os.Stat(pf.path)
	if err != nil {
		return 0, err
	}
	return int(info.Size() / MaxPathLength), nil
}

// RandomEntry returns a uniformly random surviving parent, used when a new
// mutation's log is seeded from an ancestor (§4.E step 5).
func (pf *ParentsFile) RandomEntry(rnd *rand.Rand) (string, bool, error) {
	paths, err := pf.ReadAll()
	if err != nil {
		return "", false, err
	}
	if len(paths) == 0 {
		return "", false, nil
	}
	return paths[rnd.Intn(len(paths))], true, nil
}

// ReplaceAll atomically rewrites the parents file to contain exactly
// survivors, the linearization point reap uses between generations.
func (pf *ParentsFile) ReplaceAll(survivors []string) error {
	tmp := pf.path + ".tmp"
	buf := make([]byte, 0, len(survivors)*MaxPathLength)
	for _, p := range survivors {
		rec, err := encodeRecord(p)
		if err != nil {
			return err
		}
		buf = append(buf, rec...)
	}
	if err := os.WriteFile(tmp, buf, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, pf.path)
}
