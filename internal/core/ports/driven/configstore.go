package driven

// ConfigStore holds the persisted configuration as dot-notation keys
// ("crawl.threads", "fields.mapping.title").
type ConfigStore interface {
	// Get returns the value stored under key.
	Get(key string) (any, bool)

	// GetString returns the value under key when it is a string, or "".
	GetString(key string) string

	// Keys returns every key in sorted order.
	Keys() []string

	// Section returns every key under prefix with the prefix stripped.
	Section(prefix string) map[string]any

	// Set stores a value and persists immediately.
	Set(key string, value any) error

	// Save persists the current configuration.
	Save() error

	// Load re-reads the configuration from its backing store.
	Load() error

	// Path returns where the configuration is stored.
	Path() string
}
