package memory

import (
	"sync"
	"time"

	"github.com/mohitkumar/flowcall/persistence"
	"github.com/mohitkumar/flowcall/util"
	c "github.com/patrickmn/go-cache"
)

var _ persistence.Storage = new(MemoryStorage)

// MemoryStorage keeps encoded values in process memory so readers never share
// references with writers.
type MemoryStorage struct {
	cache          *c.Cache
	encoderDecoder util.EncoderDecoder[any]
	mu             sync.Mutex
	failWith       error
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		cache:          c.New(c.NoExpiration, 10*time.Minute),
		encoderDecoder: util.NewJsonEncoderDecoder[any](),
	}
}

func (m *MemoryStorage) Get(key string, out any) (bool, error) {
	if err := m.failure(); err != nil {
		return false, err
	}
	data, found := m.cache.Get(key)
	if !found {
		return false, nil
	}
	if err := util.DecodeInto(data.([]byte), out); err != nil {
		return false, err
	}
	return true, nil
}

func (m *MemoryStorage) Set(key string, value any) error {
	if err := m.failure(); err != nil {
		return err
	}
	data, err := m.encoderDecoder.Encode(value)
	if err != nil {
		return err
	}
	m.cache.Set(key, data, c.NoExpiration)
	return nil
}

func (m *MemoryStorage) Remove(key string) error {
	if err := m.failure(); err != nil {
		return err
	}
	m.cache.Delete(key)
	return nil
}

func (m *MemoryStorage) Keys() []string {
	items := m.cache.Items()
	keys := make([]string, 0, len(items))
	for k := range items {
		keys = append(keys, k)
	}
	return keys
}

// FailWith makes every later call return err until called with nil.
func (m *MemoryStorage) FailWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failWith = err
}

func (m *MemoryStorage) failure() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return persistence.StorageLayerError{Message: m.failWith.Error()}
	}
	return nil
}
