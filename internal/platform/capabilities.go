package platform

// Capabilities describes what the current device's storage can do.
type Capabilities struct {
	// Persistent is false when the store is memory-only and data is
	// lost on exit (e.g. private browsing contexts).
	Persistent bool
}
