package rpcserver

import (
	"encoding/json"
	"sort"
	"strings"
	"sync"
)

// ScopedName returns the name of the document selected by the static
// params present in params: name itself when there are none, otherwise
// name, "#", and the selecting params as a JSON object.
func ScopedName(name string, static []string, params map[string]any) string {
	scope := make(map[string]any, len(static))
	for _, k := range static {
		if v, ok := params[k]; ok {
			scope[k] = v
		}
	}
	if len(scope) == 0 {
		return name
	}
	data, err := json.Marshal(scope)
	if err != nil {
		return name
	}
	return name + "#" + string(data)
}

// splitScope reverses ScopedName.
func splitScope(doc string) (string, map[string]any) {
	base, raw, ok := strings.Cut(doc, "#")
	if !ok {
		return doc, nil
	}
	var scope map[string]any
	if err := json.Unmarshal([]byte(raw), &scope); err != nil {
		return doc, nil
	}
	return base, scope
}

// Documents is the server-side state behind Value and Object methods: a
// set of named JSON documents. A nil value is never stored.
type Documents struct {
	mu       sync.RWMutex
	docs     map[string]any
	onChange func(name string)
}

// NewDocuments creates an empty store.
func NewDocuments() *Documents {
	return &Documents{docs: make(map[string]any)}
}

// Get returns the document stored under name.
func (d *Documents) Get(name string) (any, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	v, ok := d.docs[name]
	return v, ok
}

// Set replaces the document. A nil v deletes it.
func (d *Documents) Set(name string, v any) {
	d.mu.Lock()
	if v == nil {
		delete(d.docs, name)
	} else {
		d.docs[name] = v
	}
	d.mu.Unlock()
	d.changed(name)
}

// Object returns a copy of the document as an object. Documents that are
// absent or not objects read as empty.
func (d *Documents) Object(name string) map[string]any {
	d.mu.RLock()
	defer d.mu.RUnlock()
	m, _ := d.docs[name].(map[string]any)
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Merge applies patch to the object document: each key is set, and null
// deletes. It returns the applied entries.
func (d *Documents) Merge(name string, patch map[string]any) map[string]any {
	d.mu.Lock()
	m, _ := d.docs[name].(map[string]any)
	next := make(map[string]any, len(m)+len(patch))
	for k, v := range m {
		next[k] = v
	}
	applied := make(map[string]any, len(patch))
	for k, v := range patch {
		if v == nil {
			delete(next, k)
		} else {
			next[k] = v
		}
		applied[k] = v
	}
	d.docs[name] = next
	d.mu.Unlock()
	d.changed(name)
	return applied
}

// Names returns the stored document names, sorted.
func (d *Documents) Names() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	names := make([]string, 0, len(d.docs))
	for n := range d.docs {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// MarshalJSON encodes every document.
func (d *Documents) MarshalJSON() ([]byte, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return json.Marshal(d.docs)
}

// UnmarshalJSON replaces every document without change notifications.
func (d *Documents) UnmarshalJSON(data []byte) error {
	docs := make(map[string]any)
	if err := json.Unmarshal(data, &docs); err != nil {
		return err
	}
	for k, v := range docs {
		if v == nil {
			delete(docs, k)
		}
	}
	d.mu.Lock()
	d.docs = docs
	d.mu.Unlock()
	return nil
}

func (d *Documents) changed(name string) {
	if d.onChange != nil {
		d.onChange(name)
	}
}
