package registry

import "context"

// Separator joins key path elements, matching registry convention.
const Separator = `\`

// Value is one named datum under a hive key. The empty Name is the
// key's default value.
type Value struct {
	Key  string
	Name string
	Data string
}

// Store is a registration hive. Keys are exact strings; callers that
// want round-trips use the same spelling for reads and writes, which
// the shape builders in this package guarantee. Implementations must
// be safe for concurrent use.
type Store interface {
	// Set writes one value, creating the key as needed.
	Set(ctx context.Context, key, name, data string) error

	// Get reads one value. The second return reports presence; absence
	// is not an error.
	Get(ctx context.Context, key, name string) (string, bool, error)

	// DeleteKey removes a key, its values, and its whole subtree.
	// Deleting an absent key is a no-op.
	DeleteKey(ctx context.Context, key string) error

	// Keys lists stored keys with the given prefix, sorted. An empty
	// prefix lists every key.
	Keys(ctx context.Context, prefix string) ([]string, error)

	// Values lists the values stored under exactly one key, sorted by
	// name.
	Values(ctx context.Context, key string) ([]Value, error)

	// Close releases the hive. Close is idempotent.
	Close() error
}
