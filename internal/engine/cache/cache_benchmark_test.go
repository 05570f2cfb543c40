package cache

import (
	"context"
	"testing"
)

type benchSummary struct {
	Income  float64 `json:"income"`
	Expense float64 `json:"expense"`
	Balance float64 `json:"balance"`
}

func benchmarkHit(b *testing.B, storage Storage) {
	b.Helper()
	c := New(storage)
	ctx := context.Background()
	read := func(context.Context) (benchSummary, error) {
		return benchSummary{Income: 1000, Expense: 200, Balance: 800}, nil
	}
	if _, err := WithCache(ctx, c, KeyFinancialSummary, read); err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()
	for b.Loop() {
		if _, err := WithCache(ctx, c, KeyFinancialSummary, read); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkWithCacheHit_Memory(b *testing.B) {
	benchmarkHit(b, NewMemoryStorage())
}

func BenchmarkWithCacheHit_File(b *testing.B) {
	s, err := NewFileStorage(b.TempDir())
	if err != nil {
		b.Fatal(err)
	}
	benchmarkHit(b, s)
}

func BenchmarkInvalidateGroup(b *testing.B) {
	c := New(NewMemoryStorage())
	ctx := context.Background()
	keys, _ := GroupKeys(GroupGoal)

	b.ResetTimer()
	for b.Loop() {
		for _, k := range keys {
			c.Set(ctx, k, 1)
		}
		c.InvalidateGroup(ctx, GroupGoal)
	}
}
