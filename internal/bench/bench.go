// Package bench drives every kernel variant over synthetic shard buffers
// and reports throughput, so a caller (cmd/rscli's bench verb, or a
// library consumer tuning a deployment) can pick a sensible kernel for
// its CPU instead of trusting the package-wide default blindly.
package bench

import (
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/klauspost/cpuid/v2"
	"github.com/pkg/errors"

	"github.com/claunia/reedsolomon"
	"github.com/claunia/reedsolomon/kernel"
)

// CPUReport summarizes the CPU features relevant to picking a kernel
// variant and names a recommended default.
type CPUReport struct {
	BrandName   string
	VectorISA   string
	Recommended kernel.Variant
}

// DetectCPU inspects the running CPU and recommends a kernel variant.
// The recommendation is a coarse heuristic: machines with no wide SIMD
// ISA at all still benefit most from the table backend (a handful of
// array lookups beats the log/exp formula's extra subtraction and
// modulo), so the recommendation is kernel.Default regardless of the
// detected ISA — DetectCPU exists to surface *what* ISA is available to
// a caller deciding whether to invest in a dedicated assembly kernel,
// not to steer between the 12 portable variants, which do not have
// ISA-specific implementations.
func DetectCPU() CPUReport {
	isa := "none"
	switch {
	case cpuid.CPU.Supports(cpuid.AVX512F):
		isa = "avx512"
	case cpuid.CPU.Supports(cpuid.AVX2):
		isa = "avx2"
	case cpuid.CPU.Supports(cpuid.SSSE3):
		isa = "ssse3"
	case cpuid.CPU.Supports(cpuid.ASIMD):
		isa = "neon"
	}
	return CPUReport{
		BrandName:   cpuid.CPU.BrandName,
		VectorISA:   isa,
		Recommended: kernel.Default,
	}
}

// Result reports one variant's measured throughput over a single run.
type Result struct {
	RunID          uuid.UUID
	Variant        kernel.Variant
	Duration       time.Duration
	BytesProcessed int64
	BytesPerSecond float64
}

// RunKernel builds a codec using the given variant and repeatedly encodes
// parity for synthetic random shards, reporting the achieved throughput.
func RunKernel(k, m, shardSize, iterations int, v kernel.Variant) (Result, error) {
	codec, err := reedsolomon.New(k, m, reedsolomon.WithKernel(v))
	if err != nil {
		return Result{}, errors.Wrap(err, "bench: construct codec")
	}

	shards := syntheticShards(k, m, shardSize)
	start := time.Now()
	for i := 0; i < iterations; i++ {
		if err := codec.EncodeParity(shards, 0, shardSize); err != nil {
			return Result{}, errors.Wrap(err, "bench: encode parity")
		}
	}
	elapsed := time.Since(start)

	processed := int64(iterations) * int64(shardSize) * int64(k)
	var bps float64
	if elapsed > 0 {
		bps = float64(processed) / elapsed.Seconds()
	}
	return Result{
		RunID:          uuid.New(),
		Variant:        v,
		Duration:       elapsed,
		BytesProcessed: processed,
		BytesPerSecond: bps,
	}, nil
}

// RunAll benchmarks every one of the 12 kernel variants with identical
// parameters, in kernel.AllVariants order.
func RunAll(k, m, shardSize, iterations int) ([]Result, error) {
	results := make([]Result, 0, len(kernel.AllVariants))
	for _, v := range kernel.AllVariants {
		r, err := RunKernel(k, m, shardSize, iterations, v)
		if err != nil {
			return nil, errors.Wrapf(err, "bench: variant %v", v)
		}
		results = append(results, r)
	}
	return results, nil
}

func syntheticShards(k, m, shardSize int) [][]byte {
	r := rand.New(rand.NewSource(1))
	shards := make([][]byte, k+m)
	for i := 0; i < k; i++ {
		shards[i] = make([]byte, shardSize)
		r.Read(shards[i])
	}
	for i := k; i < k+m; i++ {
		shards[i] = make([]byte, shardSize)
	}
	return shards
}
