// Copyright 2024 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package coverage

import "os"

// FeaturesFile is the flat, position-indexed file of Feature records that
// backs the global feature history for one call (§3, §4.C). Position p's
// record lives at byte offset p*FeatureRecordSize; positions past the
// current end of file read back as the zero Feature.
type FeaturesFile struct {
	f *os.File
}

// OpenFeaturesFile opens (creating if necessary) the features file at path.
func OpenFeaturesFile(path string) (*FeaturesFile, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, err
	}
	return &FeaturesFile{f: f}, nil
}

func (ff *FeaturesFile) Close() error {
	return ff.f.Close()
}

// Read returns the Feature record at position pos, or the zero Feature if
// the file does not yet extend that far.
func (ff *FeaturesFile) Read(pos int64) (Feature, error) {
	buf := make([]byte, FeatureRecordSize)
	n, err := ff.f.ReadAt(buf, pos*FeatureRecordSize)
	if err != nil && n == 0 {
		return Feature{}, nil
	}
	if n < FeatureRecordSize {
		for i := n; i < FeatureRecordSize; i++ {
			buf[i] = 0
		}
	}
	return UnmarshalFeature(buf), nil
}

// Write stores the Feature record at position pos.
func (ff *FeaturesFile) Write(pos int64, feat Feature) error {
	_, err := ff.f.WriteAt(feat.Marshal(), pos*FeatureRecordSize)
	return err
}
