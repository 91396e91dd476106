// SPDX-License-Identifier: LGPL-3.0-or-later
// Author: Michel Prunet - Safe Pic Technologies
package tsmap

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mapJSON builds a map document; a nil content becomes a JSON null.
func mapJSON(t *testing.T, sources []string, contents []*string) string {
	t.Helper()
	b, err := json.Marshal(map[string]any{
		"version":        3,
		"file":           "main.js",
		"sources":        sources,
		"sourcesContent": contents,
		"names":          []string{},
		"mappings":       "AAAA",
	})
	require.NoError(t, err)
	return string(b)
}

type recorder struct {
	unpacked []string
	skipped  []*SkipError
}

func (r *recorder) Unpacked(p string) { r.unpacked = append(r.unpacked, p) }
func (r *recorder) Skipped(err *SkipError) { r.skipped = append(r.skipped, err) }

func readFile(t *testing.T, fs billy.Filesystem, name string) string {
	t.Helper()
	b, err := util.ReadFile(fs, name)
	require.NoError(t, err)
	return string(b)
}

func assertMissing(t *testing.T, fs billy.Filesystem, name string) {
	t.Helper()
	_, err := fs.Stat(name)
	assert.True(t, errors.Is(err, os.ErrNotExist), "%s should not exist, stat err: %v", name, err)
}

func TestUnpack_WritesProjectSource(t *testing.T) {
	fs := memfs.New()
	rec := &recorder{}
	text := mapJSON(t,
		[]string{"webpack:///src/app.js", "webpack:///src/lib/util.js"},
		[]*string{str("console.log(1)"), str("export {}")},
	)

	res, err := NewUnpacker(fs, rec).Unpack("out/proj", text)
	require.NoError(t, err)

	assert.Equal(t, 2, res.Written)
	assert.Equal(t, 0, res.SkippedTotal())
	assert.Equal(t, "console.log(1)", readFile(t, fs, "out/proj/src/app.js"))
	assert.Equal(t, "export {}", readFile(t, fs, "out/proj/src/lib/util.js"))
	assert.Equal(t, []string{"src/app.js", "src/lib/util.js"}, rec.unpacked)

	// staging dir is gone
	infos, err := fs.ReadDir("out")
	require.NoError(t, err)
	require.Len(t, infos, 1)
	assert.Equal(t, "proj", infos[0].Name())
}

func TestUnpack_SkipsNodeModules(t *testing.T) {
	fs := memfs.New()
	rec := &recorder{}
	text := mapJSON(t,
		[]string{"webpack:///node_modules/lodash/index.js", "webpack:///src/a.js"},
		[]*string{str("module.exports = {}"), str("a")},
	)

	res, err := NewUnpacker(fs, rec).Unpack("out/proj", text)
	require.NoError(t, err)

	assert.Equal(t, 1, res.Written)
	assert.Equal(t, 1, res.Skipped[ErrNonProjectSource])
	assertMissing(t, fs, "out/proj/node_modules")
	require.Len(t, rec.skipped, 1)
	assert.Equal(t, "webpack:///node_modules/lodash/index.js", rec.skipped[0].Source)
}

func TestUnpack_StripsQuerySuffix(t *testing.T) {
	fs := memfs.New()
	text := mapJSON(t, []string{"webpack:///src/style.css?a1b2c3"}, []*string{str("body{}")})

	_, err := NewUnpacker(fs, nil).Unpack("out/proj", text)
	require.NoError(t, err)

	assert.Equal(t, "body{}", readFile(t, fs, "out/proj/src/style.css"))
	infos, err := fs.ReadDir("out/proj/src")
	require.NoError(t, err)
	require.Len(t, infos, 1)
	assert.Equal(t, "style.css", infos[0].Name())
}

func TestUnpack_NullContentNotWritten(t *testing.T) {
	fs := memfs.New()
	text := mapJSON(t,
		[]string{"webpack:///src/gone.js", "webpack:///src/empty.js"},
		[]*string{nil, str("")},
	)

	res, err := NewUnpacker(fs, nil).Unpack("out/proj", text)
	require.NoError(t, err)

	assert.Equal(t, 1, res.Written)
	assert.Equal(t, 1, res.Skipped[ErrNoEmbeddedContent])
	assertMissing(t, fs, "out/proj/src/gone.js")
	assert.Equal(t, "", readFile(t, fs, "out/proj/src/empty.js"))
}

func TestUnpack_CountsEveryReason(t *testing.T) {
	fs := memfs.New()
	text := mapJSON(t,
		[]string{"x", "webpack:///webpack/bootstrap", "webpack:///../up.js", "webpack:///src/none.js", "webpack:///src/ok.js"},
		[]*string{str(""), str(""), str(""), nil, str("ok")},
	)

	res, err := NewUnpacker(fs, nil).Unpack("out/proj", text)
	require.NoError(t, err)

	assert.Equal(t, 1, res.Written)
	assert.Equal(t, map[error]int{
		ErrMalformedPath:     1,
		ErrNonProjectSource:  1,
		ErrPathEscapesRoot:   1,
		ErrNoEmbeddedContent: 1,
	}, res.Skipped)
	assert.Equal(t, 4, res.SkippedTotal())
}

func TestUnpack_LaterDuplicateOverwrites(t *testing.T) {
	fs := memfs.New()
	text := mapJSON(t,
		[]string{"webpack:///src/a.css?one", "webpack:///src/a.css?two"},
		[]*string{str("first"), str("second")},
	)

	res, err := NewUnpacker(fs, nil).Unpack("out/proj", text)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Written)
	assert.Equal(t, "second", readFile(t, fs, "out/proj/src/a.css"))
}

func TestUnpack_RootExists(t *testing.T) {
	fs := memfs.New()
	require.NoError(t, fs.MkdirAll("out/proj", 0o755))

	// the map is never looked at
	_, err := NewUnpacker(fs, nil).Unpack("out/proj", "not a map")
	require.ErrorIs(t, err, ErrRootExists)

	infos, err := fs.ReadDir("out/proj")
	require.NoError(t, err)
	assert.Empty(t, infos)
}

func TestUnpack_MapFormatError(t *testing.T) {
	fs := memfs.New()
	_, err := NewUnpacker(fs, nil).Unpack("out/proj", "{ nope")

	var mfe *MapFormatError
	require.ErrorAs(t, err, &mfe)
	assertMissing(t, fs, "out")
}

// failingFS refuses to open one file name for writing.
type failingFS struct {
	billy.Filesystem
	failOn string
}

func (f *failingFS) OpenFile(name string, flag int, perm os.FileMode) (billy.File, error) {
	if filepath.Base(name) == f.failOn && flag&os.O_CREATE != 0 {
		return nil, errors.New("no space left on device")
	}
	return f.Filesystem.OpenFile(name, flag, perm)
}

func TestUnpack_WriteFailureLeavesNothing(t *testing.T) {
	mem := memfs.New()
	fs := &failingFS{Filesystem: mem, failOn: "b.js"}
	rec := &recorder{}
	text := mapJSON(t,
		[]string{"webpack:///src/a.js", "webpack:///src/b.js", "webpack:///src/c.js"},
		[]*string{str("a"), str("b"), str("c")},
	)

	res, err := NewUnpacker(fs, rec).Unpack("out/proj", text)

	var fse *FilesystemError
	require.ErrorAs(t, err, &fse)
	assert.Equal(t, "write file", fse.Op)
	assert.Equal(t, 0, res.Written)
	// a.js was reported before the failure, c.js never was
	assert.Equal(t, []string{"src/a.js"}, rec.unpacked)

	assertMissing(t, mem, "out/proj")
	infos, err := mem.ReadDir("out")
	require.NoError(t, err)
	assert.Empty(t, infos)
}

func TestUnpack_IndexMap(t *testing.T) {
	fs := memfs.New()
	text := `{"version":3,"sections":[
		{"offset":{"line":0,"column":0},"map":{"version":3,"sources":["webpack:///src/one.js"],"sourcesContent":["1"],"mappings":""}},
		{"offset":{"line":5,"column":0},"map":{"version":3,"sources":["webpack:///src/two.js"],"sourcesContent":["2"],"mappings":""}}
	]}`

	rec := &recorder{}
	res, err := NewUnpacker(fs, rec).Unpack("out/proj", text)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Written)
	assert.Equal(t, []string{"src/one.js", "src/two.js"}, rec.unpacked)
	assert.Equal(t, "2", readFile(t, fs, "out/proj/src/two.js"))
}

func TestUnpack_SourceRoot(t *testing.T) {
	fs := memfs.New()
	text := `{"version":3,"sourceRoot":"webpack:///","sources":["src/app.js","node_modules/x/i.js"],` +
		`"sourcesContent":["console.log(1)","x"],"mappings":""}`

	res, err := NewUnpacker(fs, nil).Unpack("out/proj", text)
	require.NoError(t, err)

	assert.Equal(t, 1, res.Written)
	assert.Equal(t, 1, res.Skipped[ErrNonProjectSource])
	assert.Equal(t, "console.log(1)", readFile(t, fs, "out/proj/src/app.js"))
	assertMissing(t, fs, "out/proj/c")
}

func TestUnpack_InvalidRoot(t *testing.T) {
	for _, root := range []string{"", ".", "/"} {
		_, err := NewUnpacker(memfs.New(), nil).Unpack(root, mapJSON(t, nil, nil))
		assert.Error(t, err, root)
	}
}

func TestMaterialize_CreatesDirsOnDemand(t *testing.T) {
	fs := memfs.New()
	var order []string
	err := Materialize(fs, "root", []ClassifiedEntry{
		{Path: "a/b/c.txt", Content: "c"},
		{Path: "a/b/d.txt", Content: "d"},
		{Path: "top.txt", Content: "t"},
	}, func(e ClassifiedEntry) { order = append(order, e.Path) })
	require.NoError(t, err)

	assert.Equal(t, []string{"a/b/c.txt", "a/b/d.txt", "top.txt"}, order)
	assert.Equal(t, "d", readFile(t, fs, "root/a/b/d.txt"))
	assert.Equal(t, "t", readFile(t, fs, "root/top.txt"))
}
