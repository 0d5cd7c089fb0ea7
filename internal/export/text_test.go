package export

import (
	"bytes"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/annel0/terragen/internal/voxel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var sample = []voxel.Voxel{
	{X: -2, Y: 0.5, Z: 3, Type: "stone", Color: "#808080"},
	{X: -2, Y: 1.5, Z: 3, Type: "grass", Color: "#00FF00"},
	{X: 4, Y: 7.5, Z: -1, Type: "tree", Color: "ForestGreen"},
}

func TestWriteTextFormat(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteText(&buf, sample, false))

	assert.Equal(t, "-2,0.5,3,#808080\n-2,1.5,3,#00FF00\n4,7.5,-1,ForestGreen\n", buf.String())
}

func TestReadTextPlainAndCompressed(t *testing.T) {
	for _, compress := range []bool{false, true} {
		var buf bytes.Buffer
		require.NoError(t, WriteText(&buf, sample, compress))

		if compress {
			assert.True(t, bytes.HasPrefix(buf.Bytes(), zstdMagic), "Сжатый поток начинается с кадра zstd")
		}

		got, err := ReadText(&buf)
		require.NoError(t, err)
		require.Len(t, got, len(sample))
		for i, v := range got {
			assert.Equal(t, sample[i].X, v.X)
			assert.Equal(t, sample[i].Y, v.Y)
			assert.Equal(t, sample[i].Z, v.Z)
			assert.Equal(t, sample[i].Color, v.Color)
		}
	}
}

func TestReadTextErrors(t *testing.T) {
	_, err := ReadText(strings.NewReader("1,2,3\n"))
	assert.Error(t, err)

	_, err = ReadText(strings.NewReader("\n1,a,3,#fff\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 2")

	got, err := ReadText(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mapa_final.txt.zst")
	require.NoError(t, WriteFile(path, sample, true))

	got, err := ReadFile(path)
	require.NoError(t, err)
	assert.Len(t, got, 3)
}

// brokenWriter отказывает на любой записи
type brokenWriter struct{}

func (brokenWriter) Write(p []byte) (int, error) { return 0, errors.New("диск отключён") }

func TestWriteTextFailingWriter(t *testing.T) {
	many := make([]voxel.Voxel, 0, 60000)
	for i := 0; i < 60000; i++ {
		many = append(many, voxel.Voxel{X: i, Y: 0.5, Z: -i, Color: "#808080"})
	}

	for _, compress := range []bool{false, true} {
		assert.Error(t, WriteText(brokenWriter{}, sample, compress), "compress=%v", compress)
		// Большой поток отказывает ещё до закрытия кодировщика
		assert.Error(t, WriteText(brokenWriter{}, many, compress), "compress=%v", compress)
	}
}
