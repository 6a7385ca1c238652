package observe

// keyAccessor is the per-key view returned by KeyOf.
type keyAccessor[V any] struct {
	m   Mapping[V]
	key string
}

// KeyOf returns an Accessor over one key of m. Get returns the zero value
// while the key is absent; Set with a nil value deletes the key. Observers
// see deletions as the zero value.
func KeyOf[V any](m Mapping[V], key string) Accessor[V] {
	return &keyAccessor[V]{m: m, key: key}
}

func (k *keyAccessor[V]) Get() V {
	v, _ := k.m.Get(k.key)
	return v
}

func (k *keyAccessor[V]) Set(v V) {
	k.m.Set(k.key, v)
}

func (k *keyAccessor[V]) Observe(fn func(V)) Unsubscribe {
	return k.m.ObserveMap(func(e MapEvent[V]) {
		if e.Key == k.key {
			fn(e.Value)
		}
	})
}

// Current implements Dynamic.
func (k *keyAccessor[V]) Current() any {
	v, ok := k.m.Get(k.key)
	if !ok {
		return nil
	}
	return v
}

// Watch implements Dynamic.
func (k *keyAccessor[V]) Watch(fn func()) Unsubscribe {
	return k.Observe(func(V) { fn() })
}
