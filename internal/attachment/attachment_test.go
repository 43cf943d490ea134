package attachment

import (
	"encoding/base64"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngHeader = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0x0d, 'I', 'H', 'D', 'R'}

func writeFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

func TestLoad(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := writeFile(t, dir, "notes.txt", []byte("plain notes"))

	att, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, path, att.Path)
	assert.Equal(t, "notes.txt", att.FileName)
	assert.Equal(t, "text/plain", att.MIMEType)
	assert.Equal(t, []byte("plain notes"), att.Payload)
}

func TestLoad_Missing(t *testing.T) {
	t.Parallel()

	_, err := Load("/missing/file.txt")

	var nf *NotFoundError
	require.True(t, errors.As(err, &nf))
	assert.Equal(t, "file.txt", nf.Name)
	assert.Contains(t, err.Error(), "file.txt")
}

func TestDetectMIMEType(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		file string
		data []byte
		want string
	}{
		{name: "png by content", file: "image.bin", data: pngHeader, want: "image/png"},
		{name: "pdf by content", file: "doc", data: []byte("%PDF-1.4\n%\xe2\xe3\xcf\xd3\n"), want: "application/pdf"},
		{name: "plain text", file: "readme.txt", data: []byte("hello there"), want: "text/plain"},
		{name: "json by extension", file: "data.json", data: []byte("{\"a\": 1}"), want: "application/json"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, DetectMIMEType(tt.file, tt.data))
		})
	}
}

func TestCheck(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	a := writeFile(t, dir, "a.txt", []byte("a"))
	b := writeFile(t, dir, "b.txt", []byte("b"))

	require.NoError(t, Check(nil))
	require.NoError(t, Check([]string{a, b}))

	err := Check([]string{a, filepath.Join(dir, "gone.pdf"), filepath.Join(dir, "also-gone.pdf")})
	var nf *NotFoundError
	require.True(t, errors.As(err, &nf))
	assert.Equal(t, "gone.pdf", nf.Name)
}

func TestBundle_Delimiters(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	paths := []string{
		writeFile(t, dir, "one.txt", []byte("first file")),
		writeFile(t, dir, "two.png", pngHeader),
		writeFile(t, dir, "three.txt", []byte("third file")),
	}

	const boundary = "=_testboundary"
	block, err := Bundle(paths, boundary)
	require.NoError(t, err)

	assert.Equal(t, 3, strings.Count(block, "Content-Disposition: attachment;"))
	assert.Equal(t, 2, strings.Count(block, "--"+boundary+"\n"))
	assert.Equal(t, 1, strings.Count(block, "--"+boundary+"--\n"))
	assert.True(t, strings.HasSuffix(block, "--"+boundary+"--\n"))

	// Parts appear in input order.
	i1 := strings.Index(block, `filename="one.txt"`)
	i2 := strings.Index(block, `filename="two.png"`)
	i3 := strings.Index(block, `filename="three.txt"`)
	assert.True(t, i1 < i2 && i2 < i3, "parts out of order: %d %d %d", i1, i2, i3)

	assert.Contains(t, block, "Content-Type: image/png; name=\"two.png\"\n")
	assert.Contains(t, block, base64.StdEncoding.EncodeToString([]byte("first file")))
}

func TestBundle_SingleFileGetsClosingDelimiter(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := writeFile(t, dir, "only.txt", []byte("only"))

	block, err := Bundle([]string{path}, "b")
	require.NoError(t, err)

	want := "Content-Type: text/plain; name=\"only.txt\"\n" +
		"Content-Disposition: attachment; filename=\"only.txt\"\n" +
		"Content-Transfer-Encoding: base64\n\n" +
		"b25seQ==\n" +
		"--b--\n"
	assert.Equal(t, want, block)
}

func TestBundle_MissingFileAborts(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	paths := []string{
		writeFile(t, dir, "ok.txt", []byte("ok")),
		filepath.Join(dir, "missing.txt"),
		writeFile(t, dir, "after.txt", []byte("after")),
	}

	block, err := Bundle(paths, "b")
	assert.Empty(t, block)

	var nf *NotFoundError
	require.True(t, errors.As(err, &nf))
	assert.Equal(t, "missing.txt", nf.Name)
}

func TestBundle_LinesWithinWidth(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	long := strings.Repeat("quarterly report ", 5) + "final.txt"
	path := writeFile(t, dir, long, []byte(strings.Repeat("data ", 500)))

	block, err := Bundle([]string{path}, "b")
	require.NoError(t, err)

	for _, line := range strings.Split(block, "\n") {
		assert.LessOrEqual(t, len(line), 76, "line too long: %q", line)
	}
}
