package bind

import (
	"fmt"

	"github.com/vango-dev/bindsync/pkg/observe"
)

// Kind is the capability a bind target is dispatched on.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindAccessor
	KindSequence
	KindMapping
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindInvalid:
		return "invalid"
	case KindAccessor:
		return "accessor"
	case KindSequence:
		return "sequence"
	case KindMapping:
		return "mapping"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// KindOf reports the capability v offers for values of type T. Sequence and
// mapping capabilities take precedence over the accessor capability.
func KindOf[T any](v any) Kind {
	switch v.(type) {
	case observe.ListSink[T]:
		return KindSequence
	case observe.MapSink[T]:
		return KindMapping
	case observe.Readable[T], observe.Writable[T]:
		return KindAccessor
	default:
		return KindInvalid
	}
}
