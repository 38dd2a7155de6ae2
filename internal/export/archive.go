package export

import (
	"archive/zip"
	"fmt"
	"io"
	"path"
	"strings"
)

// Entry is one named document inside a result bundle.
type Entry struct {
	Name string
	Data []byte
}

// WriteArchive packs the entries into a zip bundle written to w. Entry
// names are flattened to their base name so a bundle never reproduces the
// source directory layout.
func WriteArchive(w io.Writer, entries []Entry) error {
	zw := zip.NewWriter(w)
	for _, e := range entries {
		f, err := zw.Create(path.Base(e.Name))
		if err != nil {
			return fmt.Errorf("archive entry %s: %w", e.Name, err)
		}
		if _, err := f.Write(e.Data); err != nil {
			return fmt.Errorf("archive entry %s: %w", e.Name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("finish archive: %w", err)
	}
	return nil
}

// JSONName derives the bundled document name for a decoded input file:
// the base name with its extension replaced by .json.
func JSONName(file string) string {
	base := path.Base(file)
	if i := strings.LastIndex(base, "."); i > 0 {
		base = base[:i]
	}
	return base + ".json"
}
