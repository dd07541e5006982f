package executor

import "os"

// arena owns the descriptors opened for one pipeline. A descriptor is
// either moved out with take, after which the taker must close it, or
// closed by closeAll once every stage has been started.
type arena struct {
	files []*os.File
}

func (a *arena) add(f *os.File) *os.File {
	a.files = append(a.files, f)
	return f
}

// take transfers ownership of f to the caller. It reports false when f
// is not owned by the arena, e.g. the shell's own stdout.
func (a *arena) take(f *os.File) bool {
	for i, g := range a.files {
		if g == f {
			a.files = append(a.files[:i], a.files[i+1:]...)
			return true
		}
	}
	return false
}

func (a *arena) len() int {
	return len(a.files)
}

// closeAll closes every descriptor still owned. Safe to call twice.
func (a *arena) closeAll() {
	for _, f := range a.files {
		_ = f.Close()
	}
	a.files = nil
}
