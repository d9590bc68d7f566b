package reedsolomon

import (
	"bytes"
	"errors"
	"math/rand"
	"testing"

	"github.com/claunia/reedsolomon/kernel"
)

func makeShards(t *testing.T, k, m, size int, seed int64) [][]byte {
	t.Helper()
	r := rand.New(rand.NewSource(seed))
	shards := make([][]byte, k+m)
	for i := 0; i < k; i++ {
		shards[i] = make([]byte, size)
		r.Read(shards[i])
	}
	for i := k; i < k+m; i++ {
		shards[i] = make([]byte, size)
	}
	return shards
}

func allPresent(total int) []bool {
	p := make([]bool, total)
	for i := range p {
		p[i] = true
	}
	return p
}

func TestTinyEncodeAndVerify(t *testing.T) {
	c, err := New(2, 2)
	if err != nil {
		t.Fatal(err)
	}
	shards := makeShards(t, 2, 2, 32, 1)
	if err := c.EncodeParity(shards, 0, 32); err != nil {
		t.Fatal(err)
	}
	ok, err := c.IsParityCorrect(shards, 0, 32, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("freshly encoded parity reported incorrect")
	}

	shards[2][0] ^= 0xFF
	ok, err = c.IsParityCorrect(shards, 0, 32, nil)
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("corrupted parity reported correct")
	}
}

func TestSystematicProperty(t *testing.T) {
	c, err := New(3, 2)
	if err != nil {
		t.Fatal(err)
	}
	shards := makeShards(t, 3, 2, 16, 2)
	originals := make([][]byte, 3)
	for i := 0; i < 3; i++ {
		originals[i] = append([]byte(nil), shards[i]...)
	}
	if err := c.EncodeParity(shards, 0, 16); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 3; i++ {
		if !bytes.Equal(shards[i], originals[i]) {
			t.Fatalf("data shard %d mutated by EncodeParity", i)
		}
	}
}

// TestBackblazeCanonical uses the K=4,M=2 shape of the Backblaze example
// and exercises encode then verify on a random 4+2 shard set. The
// example's specific parity values are not asserted by any test.
func TestBackblazeCanonical(t *testing.T) {
	c, err := New(4, 2)
	if err != nil {
		t.Fatal(err)
	}
	shards := makeShards(t, 4, 2, 64, 3)
	if err := c.EncodeParity(shards, 0, 64); err != nil {
		t.Fatal(err)
	}
	ok, err := c.IsParityCorrect(shards, 0, 64, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("canonical 4+2 parity failed verification")
	}
}

func TestRecoverTwoDataShards(t *testing.T) {
	c, err := New(4, 2)
	if err != nil {
		t.Fatal(err)
	}
	shards := makeShards(t, 4, 2, 128, 4)
	if err := c.EncodeParity(shards, 0, 128); err != nil {
		t.Fatal(err)
	}
	originals := make([][]byte, len(shards))
	for i, s := range shards {
		originals[i] = append([]byte(nil), s...)
	}

	present := allPresent(6)
	present[0] = false
	present[2] = false
	shards[0] = make([]byte, 128)
	shards[2] = make([]byte, 128)

	if err := c.DecodeMissing(shards, present, 0, 128); err != nil {
		t.Fatal(err)
	}
	for i := range shards {
		if !bytes.Equal(shards[i], originals[i]) {
			t.Fatalf("shard %d not recovered correctly", i)
		}
	}
}

func TestRecoverAcrossDataAndParity(t *testing.T) {
	c, err := New(4, 2)
	if err != nil {
		t.Fatal(err)
	}
	shards := makeShards(t, 4, 2, 64, 5)
	if err := c.EncodeParity(shards, 0, 64); err != nil {
		t.Fatal(err)
	}
	originals := make([][]byte, len(shards))
	for i, s := range shards {
		originals[i] = append([]byte(nil), s...)
	}

	present := allPresent(6)
	present[1] = false // missing data
	present[5] = false // missing parity
	shards[1] = make([]byte, 64)
	shards[5] = make([]byte, 64)

	if err := c.DecodeMissing(shards, present, 0, 64); err != nil {
		t.Fatal(err)
	}
	for i := range shards {
		if !bytes.Equal(shards[i], originals[i]) {
			t.Fatalf("shard %d not recovered correctly", i)
		}
	}
}

func TestWindowIsolation(t *testing.T) {
	c, err := New(3, 2)
	if err != nil {
		t.Fatal(err)
	}
	shards := makeShards(t, 3, 2, 100, 6)

	if err := c.EncodeParity(shards, 0, 50); err != nil {
		t.Fatal(err)
	}
	for i := 3; i < 5; i++ {
		for y := 50; y < 100; y++ {
			if shards[i][y] != 0 {
				t.Fatalf("parity shard %d written outside its window at byte %d", i, y)
			}
		}
	}
	if err := c.EncodeParity(shards, 50, 50); err != nil {
		t.Fatal(err)
	}
	ok, err := c.IsParityCorrect(shards, 0, 100, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("parity encoded in two windows failed whole-range verification")
	}
}

func TestNoOpDecodeWhenAllPresent(t *testing.T) {
	c, err := New(3, 2)
	if err != nil {
		t.Fatal(err)
	}
	shards := makeShards(t, 3, 2, 16, 7)
	if err := c.EncodeParity(shards, 0, 16); err != nil {
		t.Fatal(err)
	}
	originals := make([][]byte, len(shards))
	for i, s := range shards {
		originals[i] = append([]byte(nil), s...)
	}
	if err := c.DecodeMissing(shards, allPresent(5), 0, 16); err != nil {
		t.Fatal(err)
	}
	for i := range shards {
		if !bytes.Equal(shards[i], originals[i]) {
			t.Fatalf("no-op decode mutated shard %d", i)
		}
	}
}

func TestInsufficientShardsFails(t *testing.T) {
	c, err := New(4, 2)
	if err != nil {
		t.Fatal(err)
	}
	shards := makeShards(t, 4, 2, 16, 8)
	present := allPresent(6)
	present[0] = false
	present[1] = false
	present[2] = false
	if err := c.DecodeMissing(shards, present, 0, 16); !errors.Is(err, ErrInsufficientShards) {
		t.Fatalf("expected ErrInsufficientShards, got %v", err)
	}
}

func TestShapeLimits(t *testing.T) {
	if _, err := New(0, 1); !errors.Is(err, ErrInvalidShape) {
		t.Fatalf("expected ErrInvalidShape for k=0, got %v", err)
	}
	if _, err := New(-1, 1); !errors.Is(err, ErrInvalidShape) {
		t.Fatalf("expected ErrInvalidShape for k<0, got %v", err)
	}
	if _, err := New(200, 56); err != nil {
		t.Fatalf("k+m=256 should succeed, got %v", err)
	}
	if _, err := New(200, 57); !errors.Is(err, ErrTooManyShards) {
		t.Fatalf("expected ErrTooManyShards for k+m=257, got %v", err)
	}
}

func TestBufferTooSmall(t *testing.T) {
	c, err := New(2, 2)
	if err != nil {
		t.Fatal(err)
	}
	shards := makeShards(t, 2, 2, 32, 9)
	if err := c.EncodeParity(shards, 0, 32); err != nil {
		t.Fatal(err)
	}
	small := make([]byte, 10)
	if _, err := c.IsParityCorrect(shards, 0, 32, small); !errors.Is(err, ErrBufferTooSmall) {
		t.Fatalf("expected ErrBufferTooSmall, got %v", err)
	}
}

func TestArgumentValidation(t *testing.T) {
	c, err := New(2, 2)
	if err != nil {
		t.Fatal(err)
	}
	shards := makeShards(t, 2, 2, 32, 10)

	if err := c.EncodeParity(shards[:3], 0, 32); !errors.Is(err, ErrArgumentInvalid) {
		t.Fatalf("expected ErrArgumentInvalid for wrong shard count, got %v", err)
	}
	if err := c.EncodeParity(shards, -1, 10); !errors.Is(err, ErrArgumentInvalid) {
		t.Fatalf("expected ErrArgumentInvalid for negative offset, got %v", err)
	}
	if err := c.EncodeParity(shards, 0, 33); !errors.Is(err, ErrArgumentInvalid) {
		t.Fatalf("expected ErrArgumentInvalid for out-of-range window, got %v", err)
	}
}

func TestKernelEquivalenceAcrossVariants(t *testing.T) {
	shards := makeShards(t, 4, 3, 40, 11)
	var reference [][]byte
	for _, v := range kernel.AllVariants {
		c, err := New(4, 3, WithKernel(v))
		if err != nil {
			t.Fatal(err)
		}
		work := make([][]byte, len(shards))
		for i, s := range shards {
			if i < 4 {
				work[i] = append([]byte(nil), s...)
			} else {
				work[i] = make([]byte, 40)
			}
		}
		if err := c.EncodeParity(work, 0, 40); err != nil {
			t.Fatal(err)
		}
		ok, err := c.IsParityCorrect(work, 0, 40, nil)
		if err != nil {
			t.Fatal(err)
		}
		if !ok {
			t.Fatalf("variant %v produced parity that failed its own verification", v)
		}
		if reference == nil {
			reference = work
			continue
		}
		for i := 4; i < 7; i++ {
			if !bytes.Equal(work[i], reference[i]) {
				t.Fatalf("variant %v parity shard %d disagrees with reference", v, i)
			}
		}
	}
}
