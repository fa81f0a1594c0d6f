package container

import (
	"errors"
	"fmt"

	"github.com/hupe1980/nested/typedesc"
)

var (
	// ErrClosed is returned when a container is used after Close.
	ErrClosed = errors.New("container: closed")

	// ErrRaggedLayout is returned when a type nests a ragged dimension
	// somewhere other than the root dimension chain.
	ErrRaggedLayout = errors.New("container: unsupported ragged layout")

	// ErrPathTooLong is returned when a path keeps going below a scalar.
	ErrPathTooLong = errors.New("container: path descends below a scalar")

	// ErrPathTooShort is returned when a path stops above a scalar.
	ErrPathTooShort = errors.New("container: path does not reach a scalar")
)

// ErrIndexOutOfRange indicates a dimension index or field ordinal outside
// its bound.
type ErrIndexOutOfRange struct {
	Index int64
	Bound int64
}

func (e *ErrIndexOutOfRange) Error() string {
	return fmt.Sprintf("container: index %d out of range [0, %d)", e.Index, e.Bound)
}

// ErrDTypeMismatch indicates a scalar access with the wrong accessor for
// the element's dtype.
type ErrDTypeMismatch struct {
	Want string
	Got  typedesc.DType
}

func (e *ErrDTypeMismatch) Error() string {
	return fmt.Sprintf("container: %s access on %s element", e.Want, e.Got)
}
