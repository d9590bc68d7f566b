// Package reedsolomon implements systematic Reed-Solomon erasure coding
// over GF(2^8): encoding parity shards from data shards, verifying a
// shard set against its parity, and reconstructing missing shards (data
// or parity) from any K surviving shards out of K+M total.
//
// The package is synchronous and allocation-light: a Codec is built once
// from (K, M) and is read-only thereafter, safe for concurrent use by
// callers that write to disjoint output regions.
package reedsolomon

import (
	"fmt"

	"github.com/claunia/reedsolomon/galois"
	"github.com/claunia/reedsolomon/kernel"
	"github.com/claunia/reedsolomon/matrix"
)

// Codec holds the shape and generator matrix for a fixed (K, M) pair and
// drives encode/verify/reconstruct through a selected kernel variant.
type Codec struct {
	k, m int
	gen  *matrix.Matrix // (k+m) x k, top k x k is identity
	rows [][]byte       // gen's rows as contiguous slices, length k+m
	krn  kernel.Kernel
}

// options carries the functional-option configuration for New.
type options struct {
	variant kernel.Variant
}

// Option configures a Codec at construction time.
type Option func(*options)

// WithKernel selects the coding-loop variant the Codec will use for every
// operation. If omitted, New uses kernel.Default.
func WithKernel(v kernel.Variant) Option {
	return func(o *options) {
		o.variant = v
	}
}

// New builds a codec for K data shards and M parity shards. It fails with
// ErrInvalidShape if K <= 0 or M < 0, and with ErrTooManyShards if
// K+M > 256.
func New(k, m int, opts ...Option) (*Codec, error) {
	if k <= 0 || m < 0 {
		return nil, fmt.Errorf("reedsolomon: %w: k=%d, m=%d", ErrInvalidShape, k, m)
	}
	total := k + m
	if total > 256 {
		return nil, fmt.Errorf("reedsolomon: %w: k+m=%d", ErrTooManyShards, total)
	}

	cfg := options{variant: kernel.Default}
	for _, opt := range opts {
		opt(&cfg)
	}

	gen, err := buildGeneratorMatrix(k, total)
	if err != nil {
		return nil, err
	}

	rows := make([][]byte, total)
	for r := 0; r < total; r++ {
		row, err := gen.GetRow(r)
		if err != nil {
			return nil, err
		}
		rows[r] = row
	}

	return &Codec{
		k:    k,
		m:    m,
		gen:  gen,
		rows: rows,
		krn:  kernel.New(cfg.variant),
	}, nil
}

// buildGeneratorMatrix constructs the systematic (T x K) generator matrix:
// a T x K Vandermonde matrix multiplied by the inverse of its top K x K
// block, so that the top K x K block of the result is the identity.
func buildGeneratorMatrix(k, total int) (*matrix.Matrix, error) {
	vm := matrix.New(total, k)
	for r := 0; r < total; r++ {
		for c := 0; c < k; c++ {
			if err := vm.Set(r, c, galois.Exp(byte(r), c)); err != nil {
				return nil, err
			}
		}
	}

	top, err := vm.SubMatrix(0, 0, k, k)
	if err != nil {
		return nil, err
	}
	topInv, err := top.Invert()
	if err != nil {
		// Unreachable for a valid Vandermonde top block with k <= 256
		// distinct row indices, but surfaced rather than assumed away.
		return nil, err
	}
	return vm.Times(topInv)
}

// K reports the number of data shards.
func (c *Codec) K() int { return c.k }

// M reports the number of parity shards.
func (c *Codec) M() int { return c.m }

// Total reports K+M, the total shard count.
func (c *Codec) Total() int { return c.k + c.m }

// validate checks the shared structural preconditions common to every
// operation: exactly Total() shards, all of equal length, and a window
// that fits inside that length.
func (c *Codec) validate(shards [][]byte, offset, byteCount int) (length int, err error) {
	total := c.Total()
	if len(shards) != total {
		return 0, &ArgumentError{Name: "shards", Value: fmt.Sprintf("len=%d, want %d", len(shards), total)}
	}
	if len(shards) == 0 {
		return 0, &ArgumentError{Name: "shards", Value: "empty"}
	}
	length = len(shards[0])
	for i, s := range shards {
		if len(s) != length {
			return 0, &ArgumentError{Name: "shards", Value: fmt.Sprintf("shard %d has length %d, want %d", i, len(s), length)}
		}
	}
	if offset < 0 {
		return 0, &ArgumentError{Name: "offset", Value: offset}
	}
	if byteCount < 0 {
		return 0, &ArgumentError{Name: "byteCount", Value: byteCount}
	}
	if offset+byteCount > length {
		return 0, &ArgumentError{Name: "offset+byteCount", Value: fmt.Sprintf("%d exceeds shard length %d", offset+byteCount, length)}
	}
	return length, nil
}

// EncodeParity computes the M parity shards from the K data shards over
// the window [offset, offset+byteCount) and writes them into
// shards[K:K+M]. shards must hold exactly Total() equal-length buffers.
func (c *Codec) EncodeParity(shards [][]byte, offset, byteCount int) error {
	if _, err := c.validate(shards, offset, byteCount); err != nil {
		return err
	}
	if byteCount == 0 {
		return nil
	}
	inputs := shards[:c.k]
	outputs := shards[c.k:]
	c.krn.CodeSomeShards(c.rows[c.k:], inputs, outputs, offset, byteCount)
	return nil
}

// IsParityCorrect reports whether shards[K:K+M] matches the parity
// recomputed from shards[0:K] over the given window. If tempBuffer is
// non-nil, it is used as reusable scratch space for the faster
// scratch-buffer verify path and must satisfy
// len(tempBuffer) >= offset+byteCount, else ErrBufferTooSmall.
func (c *Codec) IsParityCorrect(shards [][]byte, offset, byteCount int, tempBuffer []byte) (bool, error) {
	if _, err := c.validate(shards, offset, byteCount); err != nil {
		return false, err
	}
	if byteCount == 0 {
		return true, nil
	}
	if tempBuffer != nil {
		need := offset + byteCount
		if len(tempBuffer) < need {
			return false, &BufferError{Have: len(tempBuffer), Want: need}
		}
		return c.krn.CheckSomeShardsWithScratch(c.rows[c.k:], shards[:c.k], shards[c.k:], tempBuffer, offset, byteCount), nil
	}
	return c.krn.CheckSomeShards(c.rows[c.k:], shards[:c.k], shards[c.k:], offset, byteCount), nil
}

// DecodeMissing reconstructs any missing shards (data or parity) using
// the surviving ones. present must have length Total(); present[i] is
// true iff shards[i] currently holds valid data. Missing buffers are
// written in place; present buffers are left untouched. Fails with
// ErrInsufficientShards if fewer than K shards are present.
func (c *Codec) DecodeMissing(shards [][]byte, present []bool, offset, byteCount int) error {
	if _, err := c.validate(shards, offset, byteCount); err != nil {
		return err
	}
	total := c.Total()
	if len(present) != total {
		return &ArgumentError{Name: "present", Value: fmt.Sprintf("len=%d, want %d", len(present), total)}
	}

	presentCount := 0
	for _, ok := range present {
		if ok {
			presentCount++
		}
	}
	if presentCount == total {
		return nil
	}
	if presentCount < c.k {
		return &ShardError{Present: presentCount, Need: c.k}
	}
	if byteCount == 0 {
		return nil
	}

	presentIdx := make([]int, 0, c.k)
	for i := 0; i < total && len(presentIdx) < c.k; i++ {
		if present[i] {
			presentIdx = append(presentIdx, i)
		}
	}

	subRows := make([][]byte, c.k)
	presentShards := make([][]byte, c.k)
	for j, idx := range presentIdx {
		subRows[j] = c.rows[idx]
		presentShards[j] = shards[idx]
	}
	sub, err := matrix.NewFromRows(subRows)
	if err != nil {
		return err
	}
	inv, err := sub.Invert()
	if err != nil {
		return err
	}

	var missingDataIdx []int
	var missingParityIdx []int
	for i := 0; i < c.k; i++ {
		if !present[i] {
			missingDataIdx = append(missingDataIdx, i)
		}
	}
	for i := c.k; i < total; i++ {
		if !present[i] {
			missingParityIdx = append(missingParityIdx, i)
		}
	}

	if len(missingDataIdx) > 0 {
		recoveryRows := make([][]byte, len(missingDataIdx))
		outputs := make([][]byte, len(missingDataIdx))
		for j, d := range missingDataIdx {
			row, err := inv.GetRow(d)
			if err != nil {
				return err
			}
			recoveryRows[j] = row
			outputs[j] = shards[d]
		}
		c.krn.CodeSomeShards(recoveryRows, presentShards, outputs, offset, byteCount)
	}

	if len(missingParityIdx) > 0 {
		dataShards := shards[:c.k]
		parityRows := make([][]byte, len(missingParityIdx))
		outputs := make([][]byte, len(missingParityIdx))
		for j, p := range missingParityIdx {
			parityRows[j] = c.rows[p]
			outputs[j] = shards[p]
		}
		c.krn.CodeSomeShards(parityRows, dataShards, outputs, offset, byteCount)
	}

	return nil
}
