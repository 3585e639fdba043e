package fsops

// Deleter abstracts the filesystem mutations the engine performs.
// Enables injecting failures in tests and proving what was touched.
type Deleter interface {
	// Remove deletes a file, a link, or an empty directory.
	Remove(path string) error
	// ClearReadOnly drops the read-only marker from path if it is set.
	ClearReadOnly(path string) error
}
