package lsm

import (
	"fmt"
	"testing"
)

func TestBloomFilterNoFalseNegatives(t *testing.T) {
	n := 10000
	bf := NewBloomFilter(n, 0.01)
	for i := 0; i < n; i++ {
		bf.Add([]byte(fmt.Sprintf("key-%d", i)))
	}
	for i := 0; i < n; i++ {
		if !bf.MayContain([]byte(fmt.Sprintf("key-%d", i))) {
			t.Fatalf("false negative for key-%d", i)
		}
	}
}

func TestBloomFilterFalsePositiveRate(t *testing.T) {
	n := 10000
	bf := NewBloomFilter(n, 0.01)
	for i := 0; i < n; i++ {
		bf.Add([]byte(fmt.Sprintf("key-%d", i)))
	}

	fp := 0
	tests := 50000
	for i := n; i < n+tests; i++ {
		if bf.MayContain([]byte(fmt.Sprintf("key-%d", i))) {
			fp++
		}
	}

	rate := float64(fp) / float64(tests)
	t.Logf("bloom filter false positive rate: %.4f%% (target 1%%)", rate*100)
	if rate > 0.02 {
		t.Fatalf("false positive rate too high: %.4f%%", rate*100)
	}
}
