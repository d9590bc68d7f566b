// Package kernel implements the Reed-Solomon coding-loop primitive:
// multiplying a K-input x N-output submatrix of the generator matrix by K
// input shards to produce N output shards over a byte range.
//
// The primitive is implemented 12 times over: six orderings of the three
// loops involved (byte position, input shard, output shard) crossed with
// two multiplication back-ends (a precomputed table, or the log/exp
// formula). All 12 are observationally equivalent; they exist so a caller
// can pick the fastest for its target CPU. None are singled out or
// omitted.
package kernel

import (
	"bytes"
	"fmt"

	"github.com/claunia/reedsolomon/galois"
	"github.com/templexxx/xorsimd"
)

// LoopOrder names the nesting of the byte (Y), input (I), and output (O)
// loops, outermost to innermost.
type LoopOrder int

const (
	// OrderYIO loops byte, then input, then output.
	OrderYIO LoopOrder = iota
	// OrderYOI loops byte, then output, then input.
	OrderYOI
	// OrderIYO loops input, then byte, then output.
	OrderIYO
	// OrderIOY loops input, then output, then byte. Recommended default.
	OrderIOY
	// OrderOYI loops output, then byte, then input.
	OrderOYI
	// OrderOIY loops output, then input, then byte.
	OrderOIY
)

func (o LoopOrder) String() string {
	switch o {
	case OrderYIO:
		return "byte-input-output"
	case OrderYOI:
		return "byte-output-input"
	case OrderIYO:
		return "input-byte-output"
	case OrderIOY:
		return "input-output-byte"
	case OrderOYI:
		return "output-byte-input"
	case OrderOIY:
		return "output-input-byte"
	default:
		return fmt.Sprintf("LoopOrder(%d)", int(o))
	}
}

// Backend names the scalar multiplication strategy used in the inner loop.
type Backend int

const (
	// BackendTable multiplies via the precomputed 256x256 table.
	BackendTable Backend = iota
	// BackendLogExp multiplies via the log/exp formula.
	BackendLogExp
)

func (b Backend) String() string {
	switch b {
	case BackendTable:
		return "table"
	case BackendLogExp:
		return "logexp"
	default:
		return fmt.Sprintf("Backend(%d)", int(b))
	}
}

// Variant identifies one of the 12 coding-loop implementations.
type Variant struct {
	Order   LoopOrder
	Backend Backend
}

func (v Variant) String() string {
	return v.Order.String() + "/" + v.Backend.String()
}

var allOrders = [...]LoopOrder{OrderYIO, OrderYOI, OrderIYO, OrderIOY, OrderOYI, OrderOIY}
var allBackends = [...]Backend{BackendTable, BackendLogExp}

// AllVariants lists all 12 kernel variants in a stable order. An
// implementer should ship and expose every one of these for selection;
// none are omitted.
var AllVariants = func() []Variant {
	out := make([]Variant, 0, len(allOrders)*len(allBackends))
	for _, o := range allOrders {
		for _, b := range allBackends {
			out = append(out, Variant{Order: o, Backend: b})
		}
	}
	return out
}()

// Default is the recommended default variant: input-outermost,
// output-middle, byte-innermost, table backend.
var Default = Variant{Order: OrderIOY, Backend: BackendTable}

// Kernel is a stateless strategy for the matrix-shards product. It is safe
// for concurrent use: it carries no mutable state of its own.
type Kernel struct {
	variant Variant
}

// New returns the Kernel implementing the given variant.
func New(v Variant) Kernel {
	return Kernel{variant: v}
}

// Variant reports which of the 12 variants this Kernel implements.
func (k Kernel) Variant() Variant {
	return k.variant
}

// CodeSomeShards computes, for each output o and byte y in
// [offset, offset+byteCount), out[o][y] = XOR over i of
// multiply(matrixRows[o][i], in[i][y]). Outputs are overwritten; inputs are
// read only.
func (k Kernel) CodeSomeShards(matrixRows, inputs, outputs [][]byte, offset, byteCount int) {
	if byteCount == 0 {
		return
	}
	fn := codeFuncs[k.variant]
	fn(matrixRows, inputs, outputs, offset, byteCount)
}

// CheckSomeShards is the generic, scratch-free verification fallback: for
// every byte position it recomputes the expected value and compares it
// against the stored one, returning false as soon as a mismatch is found.
func (k Kernel) CheckSomeShards(matrixRows, inputs, toCheck [][]byte, offset, byteCount int) bool {
	mul := tableMultiply
	if k.variant.Backend == BackendLogExp {
		mul = galois.Multiply
	}
	outputCount := len(toCheck)
	inputCount := len(inputs)
	for y := offset; y < offset+byteCount; y++ {
		for o := 0; o < outputCount; o++ {
			var want byte
			row := matrixRows[o]
			for i := 0; i < inputCount; i++ {
				want ^= mul(row[i], inputs[i][y])
			}
			if want != toCheck[o][y] {
				return false
			}
		}
	}
	return true
}

// CheckSomeShardsWithScratch is the faster verification path: it writes
// the expected value of each output row into scratch (reusing the buffer
// across outputs) and compares the whole [offset,offset+byteCount) range
// against the stored shard. scratch must have length >= offset+byteCount;
// callers are responsible for that invariant (the codec enforces it before
// calling in).
func (k Kernel) CheckSomeShardsWithScratch(matrixRows, inputs, toCheck [][]byte, scratch []byte, offset, byteCount int) bool {
	if byteCount == 0 {
		return true
	}
	window := scratch[offset : offset+byteCount]
	for o, row := range matrixRows {
		codeOneRowTable(row, inputs, scratch, offset, byteCount)
		if !bytes.Equal(window, toCheck[o][offset:offset+byteCount]) {
			return false
		}
	}
	return true
}

func tableMultiply(a, b byte) byte {
	return galois.MulTableRow(a)[b]
}

// codeOneRowTable computes a single output row (the primitive that the
// output-outermost, table-backed kernel applies once per output) into out,
// using the table backend. It backs the OrderOIY table variant and
// CheckSomeShardsWithScratch.
func codeOneRowTable(matrixRow []byte, inputs [][]byte, out []byte, offset, byteCount int) {
	window := out[offset : offset+byteCount]
	for i, c := range matrixRow {
		in := inputs[i][offset : offset+byteCount]
		if i == 0 {
			mt := galois.MulTableRow(c)
			for y, b := range in {
				window[y] = mt[b]
			}
			continue
		}
		addMulTable(window, in, c)
	}
}

// addMulTable XORs c*in[y] into out[y] for every y, using the vectorized
// XOR primitive for the c==1 identity case.
func addMulTable(out, in []byte, c byte) {
	if c == 1 {
		xorsimd.Bytes(out, out, in)
		return
	}
	mt := galois.MulTableRow(c)
	for y, b := range in {
		out[y] ^= mt[b]
	}
}

// addMulLogExp is addMulTable's log/exp-backend counterpart. It has no
// table row to index, so the c==1 shortcut still pays off as a pure XOR.
func addMulLogExp(out, in []byte, c byte) {
	if c == 1 {
		xorsimd.Bytes(out, out, in)
		return
	}
	for y, b := range in {
		out[y] ^= galois.Multiply(c, b)
	}
}

type codeFunc func(matrixRows, inputs, outputs [][]byte, offset, byteCount int)

var codeFuncs = map[Variant]codeFunc{
	{OrderYIO, BackendTable}:   codeYIOTable,
	{OrderYIO, BackendLogExp}:  codeYIOLogExp,
	{OrderYOI, BackendTable}:   codeYOITable,
	{OrderYOI, BackendLogExp}:  codeYOILogExp,
	{OrderIYO, BackendTable}:   codeIYOTable,
	{OrderIYO, BackendLogExp}:  codeIYOLogExp,
	{OrderIOY, BackendTable}:   codeIOYTable,
	{OrderIOY, BackendLogExp}:  codeIOYLogExp,
	{OrderOYI, BackendTable}:   codeOYITable,
	{OrderOYI, BackendLogExp}:  codeOYILogExp,
	{OrderOIY, BackendTable}:   codeOIYTable,
	{OrderOIY, BackendLogExp}:  codeOIYLogExp,
}

// --- byte-outermost variants (Y first). Input is never innermost here, so
// both assign on i==0 and XOR accumulate directly into the output array.

func codeYIOTable(matrixRows, inputs, outputs [][]byte, offset, byteCount int) {
	inputCount := len(inputs)
	for y := offset; y < offset+byteCount; y++ {
		for i := 0; i < inputCount; i++ {
			in := inputs[i][y]
			for o, row := range matrixRows {
				v := galois.MulTableRow(row[i])[in]
				if i == 0 {
					outputs[o][y] = v
				} else {
					outputs[o][y] ^= v
				}
			}
		}
	}
}

func codeYIOLogExp(matrixRows, inputs, outputs [][]byte, offset, byteCount int) {
	inputCount := len(inputs)
	for y := offset; y < offset+byteCount; y++ {
		for i := 0; i < inputCount; i++ {
			in := inputs[i][y]
			for o, row := range matrixRows {
				v := galois.Multiply(row[i], in)
				if i == 0 {
					outputs[o][y] = v
				} else {
					outputs[o][y] ^= v
				}
			}
		}
	}
}

// --- byte-outermost, output-middle, input-innermost: input is innermost,
// so accumulate into a local register and write once.

func codeYOITable(matrixRows, inputs, outputs [][]byte, offset, byteCount int) {
	inputCount := len(inputs)
	for y := offset; y < offset+byteCount; y++ {
		for o, row := range matrixRows {
			var sum byte
			for i := 0; i < inputCount; i++ {
				sum ^= galois.MulTableRow(row[i])[inputs[i][y]]
			}
			outputs[o][y] = sum
		}
	}
}

func codeYOILogExp(matrixRows, inputs, outputs [][]byte, offset, byteCount int) {
	inputCount := len(inputs)
	for y := offset; y < offset+byteCount; y++ {
		for o, row := range matrixRows {
			var sum byte
			for i := 0; i < inputCount; i++ {
				sum ^= galois.Multiply(row[i], inputs[i][y])
			}
			outputs[o][y] = sum
		}
	}
}

// --- input-outermost, byte-middle, output-innermost: input is outer, so
// assign-then-xor into the output array.

func codeIYOTable(matrixRows, inputs, outputs [][]byte, offset, byteCount int) {
	for i, in := range inputs {
		for y := offset; y < offset+byteCount; y++ {
			b := in[y]
			for o, row := range matrixRows {
				v := galois.MulTableRow(row[i])[b]
				if i == 0 {
					outputs[o][y] = v
				} else {
					outputs[o][y] ^= v
				}
			}
		}
	}
}

func codeIYOLogExp(matrixRows, inputs, outputs [][]byte, offset, byteCount int) {
	for i, in := range inputs {
		for y := offset; y < offset+byteCount; y++ {
			b := in[y]
			for o, row := range matrixRows {
				v := galois.Multiply(row[i], b)
				if i == 0 {
					outputs[o][y] = v
				} else {
					outputs[o][y] ^= v
				}
			}
		}
	}
}

// --- input-outermost, output-middle, byte-innermost: the recommended
// default. Input is outer, so each output row is assigned on the first
// input and XOR-accumulated (with the vectorized shortcut) thereafter.

func codeIOYTable(matrixRows, inputs, outputs [][]byte, offset, byteCount int) {
	for i, in := range inputs {
		window := in[offset : offset+byteCount]
		for o, row := range matrixRows {
			c := row[i]
			out := outputs[o][offset : offset+byteCount]
			if i == 0 {
				mt := galois.MulTableRow(c)
				for y, b := range window {
					out[y] = mt[b]
				}
				continue
			}
			addMulTable(out, window, c)
		}
	}
}

func codeIOYLogExp(matrixRows, inputs, outputs [][]byte, offset, byteCount int) {
	for i, in := range inputs {
		window := in[offset : offset+byteCount]
		for o, row := range matrixRows {
			c := row[i]
			out := outputs[o][offset : offset+byteCount]
			if i == 0 {
				for y, b := range window {
					out[y] = galois.Multiply(c, b)
				}
				continue
			}
			addMulLogExp(out, window, c)
		}
	}
}

// --- output-outermost, byte-middle, input-innermost: input is innermost,
// so accumulate into a register per (o,y) pair.

func codeOYITable(matrixRows, inputs, outputs [][]byte, offset, byteCount int) {
	inputCount := len(inputs)
	for o, row := range matrixRows {
		out := outputs[o]
		for y := offset; y < offset+byteCount; y++ {
			var sum byte
			for i := 0; i < inputCount; i++ {
				sum ^= galois.MulTableRow(row[i])[inputs[i][y]]
			}
			out[y] = sum
		}
	}
}

func codeOYILogExp(matrixRows, inputs, outputs [][]byte, offset, byteCount int) {
	inputCount := len(inputs)
	for o, row := range matrixRows {
		out := outputs[o]
		for y := offset; y < offset+byteCount; y++ {
			var sum byte
			for i := 0; i < inputCount; i++ {
				sum ^= galois.Multiply(row[i], inputs[i][y])
			}
			out[y] = sum
		}
	}
}

// --- output-outermost, input-middle, byte-innermost: this is the
// "table-based, output-outermost" variant the spec calls out as the basis
// for the scratch-buffer verify fast path (see codeOneRowTable above).

func codeOIYTable(matrixRows, inputs, outputs [][]byte, offset, byteCount int) {
	for o, row := range matrixRows {
		codeOneRowTable(row, inputs, outputs[o], offset, byteCount)
	}
}

func codeOIYLogExp(matrixRows, inputs, outputs [][]byte, offset, byteCount int) {
	for o, row := range matrixRows {
		out := outputs[o][offset : offset+byteCount]
		for i, c := range row {
			in := inputs[i][offset : offset+byteCount]
			if i == 0 {
				for y, b := range in {
					out[y] = galois.Multiply(c, b)
				}
				continue
			}
			addMulLogExp(out, in, c)
		}
	}
}
