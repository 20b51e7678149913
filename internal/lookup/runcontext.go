package lookup

import "sync"

// RunContext tracks records created during one logical batch operation so
// that repeated lookups for the same name within the batch reuse the first
// insert instead of racing to create duplicates. One RunContext is created
// per batch and discarded when the batch ends.
type RunContext struct {
	mu      sync.Mutex
	records map[string]string
	keyLock map[string]*sync.Mutex
}

// NewRunContext creates an empty run context.
func NewRunContext() *RunContext {
	return &RunContext{
		records: make(map[string]string),
		keyLock: make(map[string]*sync.Mutex),
	}
}

// Get returns the record ID previously stored for key.
func (rc *RunContext) Get(key string) (string, bool) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	id, ok := rc.records[key]
	return id, ok
}

// Put records the ID created or matched for key.
func (rc *RunContext) Put(key, id string) {
	rc.mu.Lock()
	rc.records[key] = id
	rc.mu.Unlock()
}

// LockKey serializes concurrent lookups for the same key. The returned
// function releases the key. Distinct keys proceed in parallel.
func (rc *RunContext) LockKey(key string) func() {
	rc.mu.Lock()
	l, ok := rc.keyLock[key]
	if !ok {
		l = &sync.Mutex{}
		rc.keyLock[key] = l
	}
	rc.mu.Unlock()

	l.Lock()
	return l.Unlock
}
