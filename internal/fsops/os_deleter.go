package fsops

import "os"

// OSDeleter implements Deleter using real filesystem calls
type OSDeleter struct{}

func (OSDeleter) Remove(path string) error {
	return os.Remove(path)
}

func (OSDeleter) ClearReadOnly(path string) error {
	return clearReadOnly(path)
}
