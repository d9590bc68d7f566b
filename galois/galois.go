// Package galois implements GF(2^8) arithmetic for the Reed-Solomon codec.
//
// The field uses the primitive polynomial 0x11D and generator 2. Tables are
// built once in init and are read-only afterwards, so they may be shared
// across any number of goroutines without synchronization.
package galois

import "errors"

// ErrDivisionByZero is returned by Divide when the divisor is zero.
var ErrDivisionByZero = errors.New("galois: division by zero")

const poly = 0x11D

var (
	expTable [255]byte
	logTable [256]byte
	mulTable [256][256]byte
)

func init() {
	buildTables()
}

func buildTables() {
	x := 1
	for i := 0; i < 255; i++ {
		expTable[i] = byte(x)
		logTable[x] = byte(i)
		x <<= 1
		if x&0x100 != 0 {
			x ^= poly
		}
	}
	// logTable[0] is left at its zero value; it is never read by correct
	// code, since Multiply and Divide special-case a zero operand before
	// touching the tables.

	for a := 1; a < 256; a++ {
		for b := 1; b < 256; b++ {
			mulTable[a][b] = expTable[modExp(int(logTable[a])+int(logTable[b]))]
		}
	}
	// mulTable[0][*] and mulTable[*][0] keep their zero value.
}

func modExp(i int) int {
	if i >= 255 {
		return i - 255
	}
	return i
}

// Add returns a XOR b, the field's addition (and subtraction) operator.
func Add(a, b byte) byte {
	return a ^ b
}

// Multiply returns a*b in GF(2^8).
func Multiply(a, b byte) byte {
	if a == 0 || b == 0 {
		return 0
	}
	return expTable[modExp(int(logTable[a])+int(logTable[b]))]
}

// Divide returns a/b in GF(2^8). It fails with ErrDivisionByZero if b is zero.
func Divide(a, b byte) (byte, error) {
	if b == 0 {
		return 0, ErrDivisionByZero
	}
	if a == 0 {
		return 0, nil
	}
	idx := int(logTable[a]) - int(logTable[b])
	if idx < 0 {
		idx += 255
	}
	return expTable[idx], nil
}

// Exp returns base^power in GF(2^8). Exp(b, 0) is 1 for any b, including 0.
func Exp(base byte, power int) byte {
	if power == 0 {
		return 1
	}
	if base == 0 {
		return 0
	}
	idx := (int(logTable[base]) * power) % 255
	if idx < 0 {
		idx += 255
	}
	return expTable[idx]
}

// MulTableRow returns the precomputed row of the 256x256 multiplication
// table for the scalar c, i.e. row[b] == Multiply(c, b). Hot-path kernels
// index it directly instead of calling Multiply twice per byte.
func MulTableRow(c byte) *[256]byte {
	return &mulTable[c]
}
