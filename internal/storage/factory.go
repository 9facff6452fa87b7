package storage

import "fmt"

const (
	KindMemory = "memory"
	KindSQLite = "sqlite"
)

// DefaultStoreKind is the backend used when none is requested. Runs outlive
// the process only with sqlite.
func DefaultStoreKind() string {
	return KindSQLite
}

func NewStore(kind, sqlitePath string) (Store, error) {
	switch kind {
	case "", KindMemory:
		return NewMemoryStore(), nil
	case KindSQLite:
		return NewSQLiteStore(sqlitePath), nil
	default:
		return nil, fmt.Errorf("unsupported store backend: %s", kind)
	}
}

func CloseIfSupported(store Store) error {
	closer, ok := store.(interface{ Close() error })
	if !ok {
		return nil
	}
	return closer.Close()
}
