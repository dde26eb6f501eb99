package object

import (
	"sync"

	comhost "github.com/hostware/comhost"
)

// Handle is an opaque reference to a live object in a table.
// Handle 0 is reserved and always invalid.
type Handle uint32

// EventType enumerates object lifecycle notifications.
type EventType uint8

const (
	EventActivated EventType = iota
	EventAddRef
	EventReleased
	EventFinalized
)

// Event describes one lifecycle transition.
type Event struct {
	Value  any
	Handle Handle
	Class  comhost.CLSID
	Refs   uint32
	Type   EventType
}

// Observer receives notifications about object lifecycle events.
type Observer interface {
	OnObjectEvent(Event)
}

// Finalizer is optionally implemented by instances that need cleanup
// when their last reference is released.
type Finalizer interface {
	Finalize()
}

type entry struct {
	value any
	class comhost.CLSID
	refs  uint32
	valid bool
}

// Table is an in-memory live-object table with reference counting.
// Safe for concurrent use.
type Table struct {
	entries   []entry
	freeList  []Handle
	mu        sync.RWMutex
	observers []Observer
	obsMu     sync.RWMutex
	closed    bool
}

// NewTable creates an empty object table.
func NewTable() *Table {
	return &Table{
		entries:  make([]entry, 0, 64),
		freeList: make([]Handle, 0, 16),
	}
}

// Insert stores a newly activated instance with one reference and
// returns its handle. Returns 0 when the table is closed.
func (t *Table) Insert(class comhost.CLSID, value any) Handle {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return 0
	}

	e := entry{
		value: value,
		class: class,
		refs:  1,
		valid: true,
	}

	var handle Handle
	if len(t.freeList) > 0 {
		handle = t.freeList[len(t.freeList)-1]
		t.freeList = t.freeList[:len(t.freeList)-1]
		t.entries[handle-1] = e
	} else {
		t.entries = append(t.entries, e)
		handle = Handle(len(t.entries))
	}
	t.mu.Unlock()

	t.notify(Event{Type: EventActivated, Handle: handle, Class: class, Refs: 1, Value: value})
	return handle
}

// Get retrieves a live value by handle.
func (t *Table) Get(handle Handle) (any, bool) {
	if handle == 0 {
		return nil, false
	}

	t.mu.RLock()
	defer t.mu.RUnlock()

	idx := handle - 1
	if int(idx) >= len(t.entries) {
		return nil, false
	}
	e := t.entries[idx]
	if !e.valid {
		return nil, false
	}
	return e.value, true
}

// AddRef increments the reference count and returns it. Returns 0 for
// invalid handles.
func (t *Table) AddRef(handle Handle) uint32 {
	if handle == 0 {
		return 0
	}

	t.mu.Lock()
	idx := handle - 1
	if int(idx) >= len(t.entries) || !t.entries[idx].valid {
		t.mu.Unlock()
		return 0
	}
	e := &t.entries[idx]
	e.refs++
	refs := e.refs
	class := e.class
	t.mu.Unlock()

	t.notify(Event{Type: EventAddRef, Handle: handle, Class: class, Refs: refs})
	return refs
}

// Release decrements the reference count and returns it. The final
// release invalidates the handle, recycles it, and runs the value's
// Finalize hook. Returns 0 both for the final release and for invalid
// handles; a released handle must not be used again either way.
func (t *Table) Release(handle Handle) uint32 {
	if handle == 0 {
		return 0
	}

	t.mu.Lock()
	idx := handle - 1
	if int(idx) >= len(t.entries) || !t.entries[idx].valid {
		t.mu.Unlock()
		return 0
	}

	e := &t.entries[idx]
	e.refs--
	refs := e.refs
	class := e.class

	if refs > 0 {
		t.mu.Unlock()
		t.notify(Event{Type: EventReleased, Handle: handle, Class: class, Refs: refs})
		return refs
	}

	value := e.value
	e.valid = false
	e.value = nil
	e.refs = 0
	t.freeList = append(t.freeList, handle)
	t.mu.Unlock()

	if f, ok := value.(Finalizer); ok {
		f.Finalize()
	}
	t.notify(Event{Type: EventFinalized, Handle: handle, Class: class, Value: value})
	return 0
}

// Refs returns the current reference count for a handle.
func (t *Table) Refs(handle Handle) (uint32, bool) {
	if handle == 0 {
		return 0, false
	}

	t.mu.RLock()
	defer t.mu.RUnlock()

	idx := handle - 1
	if int(idx) >= len(t.entries) {
		return 0, false
	}
	e := t.entries[idx]
	if !e.valid {
		return 0, false
	}
	return e.refs, true
}

// Class returns the CLSID the handle was activated under.
func (t *Table) Class(handle Handle) (comhost.CLSID, bool) {
	if handle == 0 {
		return comhost.CLSID{}, false
	}

	t.mu.RLock()
	defer t.mu.RUnlock()

	idx := handle - 1
	if int(idx) >= len(t.entries) {
		return comhost.CLSID{}, false
	}
	e := t.entries[idx]
	if !e.valid {
		return comhost.CLSID{}, false
	}
	return e.class, true
}

// Len returns the number of live objects.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()

	count := 0
	for _, e := range t.entries {
		if e.valid {
			count++
		}
	}
	return count
}

// Each iterates over all live objects.
func (t *Table) Each(fn func(Handle, comhost.CLSID, any) bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	for i, e := range t.entries {
		if e.valid {
			if !fn(Handle(i+1), e.class, e.value) {
				break
			}
		}
	}
}

// Subscribe adds an observer for lifecycle events.
func (t *Table) Subscribe(o Observer) {
	t.obsMu.Lock()
	defer t.obsMu.Unlock()
	t.observers = append(t.observers, o)
}

// Unsubscribe removes an observer.
func (t *Table) Unsubscribe(o Observer) {
	t.obsMu.Lock()
	defer t.obsMu.Unlock()
	for i, obs := range t.observers {
		if obs == o {
			t.observers = append(t.observers[:i], t.observers[i+1:]...)
			return
		}
	}
}

// Close finalizes all live objects and stops accepting inserts. The
// host never unloads, so in production this runs only at process exit
// paths that want deterministic cleanup.
func (t *Table) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true

	var finalize []any
	for i := range t.entries {
		if t.entries[i].valid {
			finalize = append(finalize, t.entries[i].value)
			t.entries[i].valid = false
			t.entries[i].value = nil
		}
	}
	t.entries = nil
	t.freeList = nil
	t.mu.Unlock()

	for _, v := range finalize {
		if f, ok := v.(Finalizer); ok {
			f.Finalize()
		}
	}
	return nil
}

func (t *Table) notify(e Event) {
	t.obsMu.RLock()
	defer t.obsMu.RUnlock()
	for _, o := range t.observers {
		o.OnObjectEvent(e)
	}
}
