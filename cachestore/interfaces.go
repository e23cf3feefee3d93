// Package cachestore provides a named, versioned store for HTTP responses.
// Responses are grouped into generations identified by a version string; at
// most one generation is current at any time and stale generations are
// evicted wholesale on activation.
package cachestore

// Generation holds the stored responses belonging to one version.
type Generation interface {
	// Name returns the version string this generation was opened with.
	Name() string

	// Put stores an entry under the given descriptor, overwriting any
	// prior entry for the same descriptor.
	Put(d Descriptor, e *Entry) error

	// Match retrieves the entry for a descriptor.
	// Returns the entry and true if found, false otherwise.
	Match(d Descriptor) (*Entry, bool)

	// Delete removes the entry for a descriptor. Missing entries are not
	// an error.
	Delete(d Descriptor) error

	// Keys lists the keys of all stored entries.
	Keys() ([]string, error)
}

// Store manages generations.
type Store interface {
	// Open returns the generation with the given name, creating it if
	// necessary.
	Open(name string) (Generation, error)

	// Generations lists the names of all generations currently present.
	Generations() ([]string, error)

	// DeleteGeneration removes a generation and every entry it owns.
	DeleteGeneration(name string) error
}
