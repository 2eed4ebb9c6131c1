package state

// Config defines configuration for a Map instance.
//
// The Observer field is a string to enable JSON configuration with runtime
// resolution via the observability registry ("noop", "slog", or any name
// registered through observability.RegisterObserver).
//
// Example JSON:
//
//	{
//	  "name": "downloads",
//	  "observer": "slog",
//	  "capacity": 64
//	}
type Config struct {
	// Name identifies the map on observer events
	Name string `json:"name"`

	// Observer specifies which observer implementation to use ("noop", "slog", etc.)
	Observer string `json:"observer"`

	// Capacity pre-sizes the key table for the expected number of entries
	Capacity int `json:"capacity"`
}

// DefaultConfig returns a Config with sensible defaults: no observability
// overhead and no pre-sizing.
func DefaultConfig() Config {
	return Config{
		Name:     "default",
		Observer: "noop",
		Capacity: 0,
	}
}

func (c *Config) Merge(source *Config) {
	if source.Name != "" {
		c.Name = source.Name
	}

	if source.Observer != "" {
		c.Observer = source.Observer
	}

	if source.Capacity > 0 {
		c.Capacity = source.Capacity
	}
}
