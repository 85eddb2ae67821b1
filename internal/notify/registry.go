package notify

import (
	"fmt"
	"sort"
	"sync"
)

// ChannelKind distinguishes database channels from log channels.
type ChannelKind string

const (
	KindSQL ChannelKind = "sql"
	KindLog ChannelKind = "log"
)

// Channel is a named, registered notifier plus the configuration it was
// built from. Spec and Connection are populated for SQL channels, Logger
// for log channels.
type Channel struct {
	Name       string
	Kind       ChannelKind
	Connection string
	Spec       Spec
	Logger     string
	Notifier   Notifier
}

var (
	registry   = make(map[string]Channel)
	registryMu sync.RWMutex
)

// Register adds a channel to the registry.
// Panics if a channel with the same name is already registered.
func Register(ch Channel) {
	registryMu.Lock()
	defer registryMu.Unlock()

	if _, exists := registry[ch.Name]; exists {
		panic(fmt.Sprintf("channel already registered: %s", ch.Name))
	}

	registry[ch.Name] = ch
}

// Get returns a channel by name.
// Returns false if not found.
func Get(name string) (Channel, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	ch, ok := registry[name]
	return ch, ok
}

// All returns all registered channels, sorted by name.
func All() []Channel {
	registryMu.RLock()
	defer registryMu.RUnlock()

	result := make([]Channel, 0, len(registry))
	for _, ch := range registry {
		result = append(result, ch)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Name < result[j].Name
	})

	return result
}

// Names returns all registered channel names, sorted.
func Names() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}

	sort.Strings(names)
	return names
}

// Count returns the number of registered channels.
func Count() int {
	registryMu.RLock()
	defer registryMu.RUnlock()
	return len(registry)
}

// Clear removes all registered channels.
// Primarily useful for testing.
func Clear() {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry = make(map[string]Channel)
}
