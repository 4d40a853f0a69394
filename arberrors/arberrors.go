// Package arberrors collects the error kinds Arboretum surfaces to callers,
// per the core's error handling design: a handful of sentinel kinds compared
// with errors.Is, wrapped with call-site context via github.com/pkg/errors
// so a failure carries both a cause and a stack trace.
package arberrors

import "github.com/pkg/errors"

// Sentinel kinds. Compare against these with errors.Is; do not compare
// error strings.
var (
	// ErrOutOfBounds covers page id >= allocated, slot index >= occupation,
	// or offset+size > page size.
	ErrOutOfBounds = errors.New("arboretum: out of bounds")

	// ErrNodeFull means an entry does not fit in a node's free space. Insert
	// always recovers from this locally by splitting; it should never
	// escape the tree package.
	ErrNodeFull = errors.New("arboretum: node full")

	// ErrSplitImpossible means no pair of representatives produced two
	// partitions meeting minimum occupation: the configured policy, one
	// random retry and every other pair were all tried.
	ErrSplitImpossible = errors.New("arboretum: split impossible")

	// ErrInvalidStore means the header page's magic does not match.
	ErrInvalidStore = errors.New("arboretum: invalid store")

	// ErrCorruptStore means the header page's magic matches but the version
	// or other invariants fail validation.
	ErrCorruptStore = errors.New("arboretum: corrupt store")

	// ErrInvalidArgument covers a nil/empty object or a negative radius.
	ErrInvalidArgument = errors.New("arboretum: invalid argument")

	// ErrInvalidID means a page id was requested that the manager never
	// allocated or has since disposed.
	ErrInvalidID = errors.New("arboretum: invalid page id")
)

// Wrap attaches call-site context to one of the sentinel kinds above while
// preserving errors.Is(err, kind).
func Wrap(kind error, format string, args ...interface{}) error {
	return errors.Wrapf(kind, format, args...)
}
