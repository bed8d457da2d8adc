package systems

import (
	"errors"
	"os"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/anima/engine/assets"
	"github.com/spaghettifunk/anima/engine/core"
	"github.com/spaghettifunk/anima/engine/metadata"
)

// recordingWriter writes the object path into the file and counts writes per path.
type recordingWriter struct {
	mutex  sync.Mutex
	writes map[string]int
	fail   map[string]bool
}

func newRecordingWriter() *recordingWriter {
	return &recordingWriter{writes: map[string]int{}, fail: map[string]bool{}}
}

func (w *recordingWriter) Write(obj assets.Object, path string) error {
	w.mutex.Lock()
	w.writes[path]++
	fail := w.fail[obj.Path()]
	w.mutex.Unlock()

	if fail {
		return errors.New("encoder exploded")
	}
	return os.WriteFile(path, []byte(obj.Path()), 0o644)
}

func (w *recordingWriter) total() int {
	w.mutex.Lock()
	defer w.mutex.Unlock()
	n := 0
	for _, c := range w.writes {
		n += c
	}
	return n
}

func (w *recordingWriter) count(path string) int {
	w.mutex.Lock()
	defer w.mutex.Unlock()
	return w.writes[path]
}

func newTestJobs(t *testing.T) *JobSystem {
	t.Helper()
	js, err := NewJobSystem(4, 16)
	require.NoError(t, err)
	t.Cleanup(func() { js.Shutdown() })
	return js
}

func newTestContext(t *testing.T, archive assets.Archive, writer *recordingWriter) *ExportContext {
	t.Helper()
	return NewExportContext(core.NewBatchID(), t.TempDir(), metadata.DefaultExportOptions(), archive, writer, newTestJobs(t))
}

func hdr(path string) assets.Header {
	return assets.Header{ObjectPath: path}
}

func skeletalMesh(path string, materials ...string) *assets.SkeletalMesh {
	sections := make([]assets.MeshSection, len(materials))
	for i, m := range materials {
		sections[i] = assets.MeshSection{Material: m}
	}
	return &assets.SkeletalMesh{Header: hdr(path), LODs: []assets.MeshLOD{{Sections: sections}, {Sections: sections}}}
}

func staticMesh(path string, materials ...string) *assets.StaticMesh {
	sections := make([]assets.MeshSection, len(materials))
	for i, m := range materials {
		sections[i] = assets.MeshSection{Material: m}
	}
	return &assets.StaticMesh{Header: hdr(path), LODs: []assets.MeshLOD{{Sections: sections}}}
}

func texture(path string) *assets.Texture {
	return &assets.Texture{Header: hdr(path), SRGB: true, CompressionSettings: "TC_Default"}
}
