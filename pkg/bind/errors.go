package bind

import (
	"errors"
	"fmt"

	coded "github.com/vango-dev/bindsync/internal/errors"
)

// ErrNotImplemented is returned when a target offers no capability Bind can
// dispatch on, or when neither direction of an accessor binding can be
// wired. The target is left detached.
var ErrNotImplemented = errors.New("bind: not implemented")

// ErrTypeMismatch is returned when values cannot flow between source and
// target and no transform was given.
var ErrTypeMismatch = errors.New("bind: type mismatch")

// ErrNoTemplate is returned when a source must be rendered but neither a
// template nor a usable transform is available.
var ErrNoTemplate = errors.New("bind: no template")

// ErrUncomparable is returned for targets that cannot be used as registry
// keys.
var ErrUncomparable = errors.New("bind: target is not comparable")

func misuse(code string, sentinel error, v any, suggestion string) error {
	return coded.New(code).
		WithOp(fmt.Sprintf("%T", v)).
		WithSuggestion(suggestion).
		Wrap(sentinel)
}
