package repository

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/sirupsen/logrus"
)

// legacySubdirs создаются рядом с коллекциями для совместимости со старым каталогом данных
var legacySubdirs = []string{"incidents", "reports", "uploads", "exports"}

// EnsureDataDir создает каталог данных и его стандартные подкаталоги
func EnsureDataDir(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create data directory %s: %w", dir, err)
	}
	for _, sub := range legacySubdirs {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0o755); err != nil {
			return fmt.Errorf("failed to create data subdirectory %s: %w", sub, err)
		}
	}
	return nil
}

// Collection - набор документов, хранящийся одним JSON-файлом в виде map[id]T.
// Каждая операция выполняет полный цикл чтение-изменение-запись под мьютексом,
// запись атомарна за счет временного файла и rename.
// Между процессами блокировки нет.
type Collection[T any] struct {
	mu     sync.Mutex
	path   string
	logger *logrus.Logger
}

func NewCollection[T any](dir, filename string, logger *logrus.Logger) *Collection[T] {
	return &Collection[T]{
		path:   filepath.Join(dir, filename),
		logger: logger,
	}
}

// Path возвращает путь к файлу коллекции
func (c *Collection[T]) Path() string {
	return c.path
}

// Exists сообщает, создан ли уже файл коллекции
func (c *Collection[T]) Exists() bool {
	_, err := os.Stat(c.path)
	return err == nil
}

// Load читает коллекцию целиком
func (c *Collection[T]) Load() map[string]T {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.load()
}

// Mutate выполняет fn над коллекцией под блокировкой и сохраняет результат, если fn вернула changed == true
func (c *Collection[T]) Mutate(fn func(docs map[string]T) (changed bool, err error)) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	docs := c.load()
	changed, err := fn(docs)
	if err != nil {
		return err
	}
	if !changed {
		return nil
	}
	return c.save(docs)
}

// load при отсутствии или повреждении файла возвращает пустую коллекцию, ошибка только логируется
func (c *Collection[T]) load() map[string]T {
	docs := make(map[string]T)

	data, err := os.ReadFile(c.path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			c.logger.WithError(err).WithField("path", c.path).Warn("Failed to read collection, using empty one")
		}
		return docs
	}
	if len(data) == 0 {
		return docs
	}

	if err := json.Unmarshal(data, &docs); err != nil {
		c.logger.WithError(err).WithField("path", c.path).Warn("Collection file is corrupted, using empty one")
		return make(map[string]T)
	}
	if docs == nil {
		docs = make(map[string]T)
	}
	return docs
}

func (c *Collection[T]) save(docs map[string]T) error {
	data, err := json.MarshalIndent(docs, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal collection %s: %w", c.path, err)
	}

	dir := filepath.Dir(c.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", c.path, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(c.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file for %s: %w", c.path, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write collection %s: %w", c.path, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync collection %s: %w", c.path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file for %s: %w", c.path, err)
	}
	if err := os.Rename(tmpName, c.path); err != nil {
		return fmt.Errorf("failed to replace collection %s: %w", c.path, err)
	}
	return nil
}
