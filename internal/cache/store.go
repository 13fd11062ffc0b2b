package cache

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

const (
	entrySeparatorConstant    = "="
	lineSeparatorConstant     = "\n"
	storeFilePermissions      = os.FileMode(0o644)
	storeDirectoryPermissions = os.FileMode(0o755)

	storePathRequiredMessageConstant = "cache file path must be provided"
	invalidKeyMessageConstant        = "cache key must not be empty or contain '=' or newlines"
	invalidValueMessageConstant      = "cache value must not contain newlines"
	storeLoadErrorTemplateConstant   = "failed to load cache file %s: %w"
	storeWriteErrorTemplateConstant  = "failed to persist cache file %s: %w"
)

// ErrStorePathRequired indicates a Store was constructed without a backing file path.
var ErrStorePathRequired = errors.New(storePathRequiredMessageConstant)

// ErrInvalidKey indicates a key that cannot be represented in the key=value line format.
var ErrInvalidKey = errors.New(invalidKeyMessageConstant)

// ErrInvalidValue indicates a value that cannot be represented in the key=value line format.
var ErrInvalidValue = errors.New(invalidValueMessageConstant)

// Store is a durable key/value store backed by a flat key=value text file.
//
// Every mutation rewrites the backing file before returning, so committed
// state survives a process crash between calls. Exactly one process instance
// is assumed to own a given cache file at a time; there is no cross-process
// coordination.
type Store struct {
	filePath string
	values   map[string]string
	mutex    sync.Mutex
}

// NewStore loads any existing persisted data from filePath and returns a ready store.
func NewStore(filePath string) (*Store, error) {
	trimmedFilePath := strings.TrimSpace(filePath)
	if len(trimmedFilePath) == 0 {
		return nil, ErrStorePathRequired
	}

	store := &Store{filePath: trimmedFilePath, values: map[string]string{}}

	fileContent, readError := os.ReadFile(trimmedFilePath)
	if readError != nil {
		if errors.Is(readError, os.ErrNotExist) {
			return store, nil
		}
		return nil, fmt.Errorf(storeLoadErrorTemplateConstant, trimmedFilePath, readError)
	}

	for _, line := range strings.Split(string(fileContent), lineSeparatorConstant) {
		if len(line) == 0 {
			continue
		}
		separatorIndex := strings.Index(line, entrySeparatorConstant)
		if separatorIndex < 0 {
			continue
		}
		store.values[line[:separatorIndex]] = line[separatorIndex+1:]
	}

	return store, nil
}

// Get returns the value stored under key and whether the key exists.
func (store *Store) Get(key string) (string, bool) {
	store.mutex.Lock()
	defer store.mutex.Unlock()

	value, exists := store.values[key]
	return value, exists
}

// Set stores value under key and durably flushes the full key/value set.
func (store *Store) Set(key string, value string) error {
	if !isRepresentableKey(key) {
		return ErrInvalidKey
	}
	if strings.Contains(value, lineSeparatorConstant) {
		return ErrInvalidValue
	}

	store.mutex.Lock()
	defer store.mutex.Unlock()

	store.values[key] = value
	return store.flush()
}

// Delete removes key from the store and durably flushes the remaining entries.
func (store *Store) Delete(key string) error {
	store.mutex.Lock()
	defer store.mutex.Unlock()

	if _, exists := store.values[key]; !exists {
		return nil
	}
	delete(store.values, key)
	return store.flush()
}

// Clear removes every entry and durably flushes the empty set.
func (store *Store) Clear() error {
	store.mutex.Lock()
	defer store.mutex.Unlock()

	store.values = map[string]string{}
	return store.flush()
}

func (store *Store) flush() error {
	sortedKeys := make([]string, 0, len(store.values))
	for key := range store.values {
		sortedKeys = append(sortedKeys, key)
	}
	sort.Strings(sortedKeys)

	var fileContent strings.Builder
	for _, key := range sortedKeys {
		fileContent.WriteString(key)
		fileContent.WriteString(entrySeparatorConstant)
		fileContent.WriteString(store.values[key])
		fileContent.WriteString(lineSeparatorConstant)
	}

	parentDirectory := filepath.Dir(store.filePath)
	if mkdirError := os.MkdirAll(parentDirectory, storeDirectoryPermissions); mkdirError != nil {
		return fmt.Errorf(storeWriteErrorTemplateConstant, store.filePath, mkdirError)
	}

	if writeError := os.WriteFile(store.filePath, []byte(fileContent.String()), storeFilePermissions); writeError != nil {
		return fmt.Errorf(storeWriteErrorTemplateConstant, store.filePath, writeError)
	}

	return nil
}

func isRepresentableKey(key string) bool {
	if len(key) == 0 {
		return false
	}
	if strings.Contains(key, entrySeparatorConstant) {
		return false
	}
	return !strings.Contains(key, lineSeparatorConstant)
}
