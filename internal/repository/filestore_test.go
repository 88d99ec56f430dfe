package repository

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestLogger пишет логи в буфер, чтобы проверять предупреждения
func newTestLogger() (*logrus.Logger, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	logger := logrus.New()
	logger.SetOutput(buf)
	return logger, buf
}

type doc struct {
	Name string `json:"name"`
}

func TestEnsureDataDir_CreatesSubdirs(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "data")

	require.NoError(t, EnsureDataDir(dir))
	// повторный вызов не ломается на существующих каталогах
	require.NoError(t, EnsureDataDir(dir))

	for _, sub := range legacySubdirs {
		info, err := os.Stat(filepath.Join(dir, sub))
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	}
}

func TestCollection_MissingFileIsEmpty(t *testing.T) {
	logger, buf := newTestLogger()
	c := NewCollection[doc](t.TempDir(), "docs.json", logger)

	assert.False(t, c.Exists())
	assert.Empty(t, c.Load())
	assert.Empty(t, buf.String())
}

func TestCollection_CorruptFileIsEmptyAndLogged(t *testing.T) {
	// Подготовка
	logger, buf := newTestLogger()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "docs.json"), []byte("{not json"), 0o644))
	c := NewCollection[doc](dir, "docs.json", logger)

	// Действие
	docs := c.Load()

	// Проверки
	assert.NotNil(t, docs)
	assert.Empty(t, docs)
	assert.Contains(t, buf.String(), "Collection file is corrupted")
}

func TestCollection_MutatePersists(t *testing.T) {
	logger, _ := newTestLogger()
	dir := t.TempDir()
	c := NewCollection[doc](dir, "docs.json", logger)

	err := c.Mutate(func(docs map[string]doc) (bool, error) {
		docs["a"] = doc{Name: "first"}
		return true, nil
	})
	require.NoError(t, err)
	assert.True(t, c.Exists())

	// новый экземпляр читает то же самое с диска
	reopened := NewCollection[doc](dir, "docs.json", logger)
	assert.Equal(t, map[string]doc{"a": {Name: "first"}}, reopened.Load())

	// временные файлы не остаются
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestCollection_MutateWithoutChangeDoesNotWrite(t *testing.T) {
	logger, _ := newTestLogger()
	c := NewCollection[doc](t.TempDir(), "docs.json", logger)

	err := c.Mutate(func(docs map[string]doc) (bool, error) {
		docs["a"] = doc{Name: "ignored"}
		return false, nil
	})
	require.NoError(t, err)
	assert.False(t, c.Exists())
}

func TestCollection_MutateErrorIsReturned(t *testing.T) {
	logger, _ := newTestLogger()
	c := NewCollection[doc](t.TempDir(), "docs.json", logger)
	boom := errors.New("boom")

	err := c.Mutate(func(docs map[string]doc) (bool, error) {
		docs["a"] = doc{Name: "ignored"}
		return true, boom
	})
	assert.ErrorIs(t, err, boom)
	assert.False(t, c.Exists())
}
