package atomics

import "sync"

// Once is similar to sync.Once except that once.Do() returns true, if this
// was the call that ran f. Also once.Do(nil) will not panic, but act the
// same as once.Do(func(){}).
type Once struct {
	m    sync.Mutex
	done Bool
}

// Do will call f() and return true, the first time once.Do() is called.
// All following calls to once.Do() will not call f() and return false.
func (o *Once) Do(f func()) bool {
	if o.done.Get() {
		return false
	}

	o.m.Lock()
	defer o.m.Unlock()

	if o.done.Get() {
		return false
	}

	// Mark done regardless of panics in f
	defer o.done.Set(true)

	if f != nil {
		f()
	}
	return true
}

// IsDone reports whether once.Do() has been called.
func (o *Once) IsDone() bool {
	return o.done.Get()
}
