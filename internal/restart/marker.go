package restart

import (
	"errors"
	"io/fs"

	"github.com/spf13/afero"

	"serverrestarter/internal/shared"
)

// DefaultMarkerPath is where the launcher looks for the restart reason.
const DefaultMarkerPath = ".restart_reason"

// Marker is the restart reason file left for the launcher.
type Marker struct {
	fs   afero.Fs
	path string
}

// NewMarker returns a Marker at path on fsys; a nil fsys means the OS filesystem.
func NewMarker(fsys afero.Fs, path string) Marker {
	if fsys == nil {
		fsys = afero.NewOsFs()
	}
	if path == "" {
		path = DefaultMarkerPath
	}
	return Marker{fs: fsys, path: path}
}

// Path returns the marker location.
func (m Marker) Path() string { return m.path }

// Write replaces the marker content with reason.
func (m Marker) Write(reason string) error {
	if err := afero.WriteFile(m.fs, m.path, []byte(reason), 0o644); err != nil {
		return shared.MarkKind(shared.Wrapf(err, "write marker %s", m.path), shared.KindIO)
	}
	return nil
}

// Read returns the reason left by the previous process.
// ok is false when no marker exists.
func (m Marker) Read() (reason string, ok bool, err error) {
	data, err := afero.ReadFile(m.fs, m.path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", false, nil
	}
	if err != nil {
		return "", false, shared.MarkKind(shared.Wrapf(err, "read marker %s", m.path), shared.KindIO)
	}
	return string(data), true, nil
}

// ReadMarker reads the marker at path on the OS filesystem.
func ReadMarker(path string) (reason string, ok bool, err error) { return NewMarker(nil, path).Read() }
