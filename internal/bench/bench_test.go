package bench

import (
	"testing"

	"github.com/claunia/reedsolomon/kernel"
)

func TestDetectCPUReturnsAVariant(t *testing.T) {
	report := DetectCPU()
	if report.Recommended.String() == "" {
		t.Fatal("expected a named recommended variant")
	}
}

func TestRunKernelReportsThroughput(t *testing.T) {
	result, err := RunKernel(4, 2, 1024, 3, kernel.Default)
	if err != nil {
		t.Fatal(err)
	}
	if result.BytesProcessed == 0 {
		t.Fatal("expected nonzero bytes processed")
	}
	if result.BytesPerSecond <= 0 {
		t.Fatal("expected positive throughput")
	}
}

func TestRunAllCoversEveryVariant(t *testing.T) {
	results, err := RunAll(3, 2, 256, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 12 {
		t.Fatalf("expected 12 results, got %d", len(results))
	}
}
