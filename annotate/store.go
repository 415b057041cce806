package annotate

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"
)

// SidecarSuffix is appended to the page image file name to build the name of
// its sidecar.
const SidecarSuffix = ".json"

// Store reads and writes sidecar files in a single directory.
type Store struct {
	Dir string
}

// Path returns the sidecar path for the image with the given file name.
func (s Store) Path(identity string) string {
	return filepath.Join(s.Dir, filepath.Base(identity)+SidecarSuffix)
}

// Load returns the records stored for identity. A missing sidecar is an
// empty list.
func (s Store) Load(identity string) ([]Record, error) {
	path := s.Path(identity)

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return []Record{}, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "reading sidecar %s", path)
	}

	records, err := decodeRecords(bytes.NewReader(data))
	if err != nil {
		return nil, errors.Wrapf(err, "sidecar %s", path)
	}

	return records, nil
}

func decodeRecords(r io.Reader) ([]Record, error) {
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()

	var raw []rawRecord
	if err := dec.Decode(&raw); err != nil {
		return nil, errors.Wrap(ErrInvalidSidecar, err.Error())
	}
	if raw == nil {
		return nil, errors.Wrap(ErrInvalidSidecar, "not a JSON array")
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, errors.Wrap(ErrInvalidSidecar, "trailing data")
	}

	records := make([]Record, 0, len(raw))
	for i := range raw {
		rec, err := raw[i].record()
		if err != nil {
			return nil, errors.Wrapf(err, "record %d", i)
		}
		records = append(records, rec)
	}

	return records, nil
}

// Save replaces the sidecar for identity with records. The file is written to
// a temporary name first and renamed into place.
func (s Store) Save(identity string, records []Record) error {
	data, err := MarshalRecords(records)
	if err != nil {
		return err
	}

	path := s.Path(identity)

	tmp, err := os.CreateTemp(s.Dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return errors.Wrap(err, "creating sidecar")
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return errors.Wrapf(err, "writing sidecar %s", path)
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrapf(err, "writing sidecar %s", path)
	}

	return errors.Wrapf(os.Rename(tmp.Name(), path), "writing sidecar %s", path)
}

// Identities lists the image file names that have a sidecar in the store.
func (s Store) Identities() ([]string, error) {
	entries, err := os.ReadDir(s.Dir)
	if err != nil {
		return nil, errors.Wrap(err, "listing sidecars")
	}

	ids := []string{}
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, SidecarSuffix) {
			continue
		}
		ids = append(ids, strings.TrimSuffix(name, SidecarSuffix))
	}
	sort.Strings(ids)

	return ids, nil
}
