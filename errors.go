package reedsolomon

import (
	"errors"
	"fmt"

	"github.com/claunia/reedsolomon/galois"
	"github.com/claunia/reedsolomon/matrix"
)

// ErrTooManyShards is returned by New when k+m exceeds 256, the largest
// shard count GF(2^8) can address.
var ErrTooManyShards = errors.New("reedsolomon: too many total shards for GF(2^8)")

// ErrInvalidShape is returned by New when k is not positive or m is
// negative.
var ErrInvalidShape = errors.New("reedsolomon: invalid shape")

// ErrArgumentInvalid is returned when a caller-supplied shard slice or
// index fails a structural precondition not covered by the other
// sentinels.
var ErrArgumentInvalid = errors.New("reedsolomon: invalid argument")

// ErrBufferTooSmall is returned when a destination buffer cannot hold the
// requested window.
var ErrBufferTooSmall = errors.New("reedsolomon: buffer too small")

// ErrInsufficientShards is returned by DecodeMissing when fewer than k
// shards are present.
var ErrInsufficientShards = errors.New("reedsolomon: insufficient shards present")

// ErrSingular is re-exported from matrix: it surfaces when a recovery
// submatrix built from the present shard indices has no inverse, which
// cannot happen for a valid Vandermonde-derived generator matrix but is
// still reported rather than assumed impossible.
var ErrSingular = matrix.ErrSingular

// ErrShapeMismatch is re-exported from matrix.
var ErrShapeMismatch = matrix.ErrShapeMismatch

// ErrIndexOutOfRange is re-exported from matrix.
var ErrIndexOutOfRange = matrix.ErrIndexOutOfRange

// ErrDivisionByZero is re-exported from galois.
var ErrDivisionByZero = galois.ErrDivisionByZero

// ArgumentError wraps ErrArgumentInvalid with the offending argument's
// name and value, for callers that want structured detail via errors.As.
type ArgumentError struct {
	Name  string
	Value interface{}
}

func (e *ArgumentError) Error() string {
	return fmt.Sprintf("reedsolomon: invalid argument %s=%v", e.Name, e.Value)
}

// Unwrap allows errors.Is(err, ErrArgumentInvalid) to succeed.
func (e *ArgumentError) Unwrap() error {
	return ErrArgumentInvalid
}

// BufferError wraps ErrBufferTooSmall with the required and actual sizes.
type BufferError struct {
	Have, Want int
}

func (e *BufferError) Error() string {
	return fmt.Sprintf("reedsolomon: buffer too small: have %d, want %d", e.Have, e.Want)
}

// Unwrap allows errors.Is(err, ErrBufferTooSmall) to succeed.
func (e *BufferError) Unwrap() error {
	return ErrBufferTooSmall
}

// ShardError wraps ErrInsufficientShards with counts, for callers that
// want to report how far short of k the present count fell.
type ShardError struct {
	Present, Need int
}

func (e *ShardError) Error() string {
	return fmt.Sprintf("reedsolomon: insufficient shards: have %d, need %d", e.Present, e.Need)
}

// Unwrap allows errors.Is(err, ErrInsufficientShards) to succeed.
func (e *ShardError) Unwrap() error {
	return ErrInsufficientShards
}
