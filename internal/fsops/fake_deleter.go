package fsops

import "sync"

// FakeDeleter implements Deleter for testing.
// Records every call in order and fails the paths listed in Fail.
// When Next is set, calls that do not fail are forwarded to it.
type FakeDeleter struct {
	Fail map[string]error
	Next Deleter

	mu    sync.Mutex
	calls []string
}

func (f *FakeDeleter) Remove(path string) error {
	f.record("rm:" + path)
	if err, ok := f.Fail[path]; ok {
		return err
	}
	if f.Next != nil {
		return f.Next.Remove(path)
	}
	return nil
}

func (f *FakeDeleter) ClearReadOnly(path string) error {
	f.record("ro:" + path)
	if f.Next != nil {
		return f.Next.ClearReadOnly(path)
	}
	return nil
}

// Calls returns a copy of the recorded calls
func (f *FakeDeleter) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.calls))
	copy(out, f.calls)
	return out
}

// Removed returns the paths passed to Remove, in call order
func (f *FakeDeleter) Removed() []string {
	var out []string
	for _, c := range f.Calls() {
		if len(c) > 3 && c[:3] == "rm:" {
			out = append(out, c[3:])
		}
	}
	return out
}

func (f *FakeDeleter) record(call string) {
	f.mu.Lock()
	f.calls = append(f.calls, call)
	f.mu.Unlock()
}
