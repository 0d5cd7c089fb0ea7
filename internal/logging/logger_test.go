package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	level, err := ParseLevel("warn")
	require.NoError(t, err)
	assert.Equal(t, WARN, level)

	level, err = ParseLevel("")
	require.NoError(t, err)
	assert.Equal(t, INFO, level, "Пустой уровень должен означать INFO")

	_, err = ParseLevel("loud")
	assert.Error(t, err)
}

func TestWriterLoggerFiltersByLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWriterLogger("vegetation", &buf, WARN)

	logger.Info("не должно попасть")
	logger.Warn("шаблон %s не загружен", "tree.txt")

	out := buf.String()
	assert.NotContains(t, out, "не должно попасть")
	assert.Contains(t, out, "[WARN] [vegetation] шаблон tree.txt не загружен")
}

func TestNilLoggerIsSafe(t *testing.T) {
	var logger *Logger
	assert.NotPanics(t, func() { logger.Error("ничего") })
}

func TestFileLoggerWritesToDir(t *testing.T) {
	dir := t.TempDir()
	Configure(dir, ERROR)
	defer Configure("", INFO)

	logger, err := NewLogger("terrain")
	require.NoError(t, err)
	logger.Debug("высота %d", 7)
	require.NoError(t, logger.Close())

	files, err := filepath.Glob(filepath.Join(dir, "terrain_*.log"))
	require.NoError(t, err)
	require.Len(t, files, 1, "Должен быть создан ровно один файл логов")

	data, err := os.ReadFile(files[0])
	require.NoError(t, err)
	assert.Contains(t, string(data), "высота 7")
}

func TestManagerReturnsSameLogger(t *testing.T) {
	lm := GetLoggerManager()
	a := lm.MustGetLogger("mapgen-test")
	b := lm.MustGetLogger("mapgen-test")
	assert.Same(t, a, b)
	assert.Contains(t, lm.ListComponents(), "mapgen-test")

	require.NoError(t, lm.SetLogLevel("mapgen-test", ERROR, ERROR))
	assert.Error(t, lm.SetLogLevel("unknown-component", ERROR, ERROR))
}

func TestManagerCloseAllResetsRegistry(t *testing.T) {
	Configure(t.TempDir(), INFO)
	t.Cleanup(func() { Configure("", INFO) })

	lm := &LoggerManager{loggers: make(map[string]*Logger)}
	a, err := lm.GetLogger("terrain")
	require.NoError(t, err)
	_, err = lm.GetLogger("vegetation")
	require.NoError(t, err)
	assert.Equal(t, []string{"terrain", "vegetation"}, lm.ListComponents())

	require.NoError(t, lm.CloseAll())
	assert.Empty(t, lm.ListComponents())

	b, err := lm.GetLogger("terrain")
	require.NoError(t, err)
	assert.NotSame(t, a, b, "После CloseAll логгер создаётся заново")
	require.NoError(t, lm.CloseAll())
}
