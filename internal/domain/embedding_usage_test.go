package domain

import (
	"context"
	"sync"
	"testing"
)

func TestEmbeddingUsage_NilSafe(t *testing.T) {
	var u *EmbeddingUsage
	u.AddTokens(5)
	if UsageFromContext(context.Background()) != nil {
		t.Error("expected nil collector for bare context")
	}
}

func TestEmbeddingUsage_ConcurrentAdd(t *testing.T) {
	ctx, u := NewContextWithUsage(context.Background())

	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			UsageFromContext(ctx).AddTokens(2)
		}()
	}
	wg.Wait()

	if u.Tokens() != 100 {
		t.Errorf("tokens: got %d, want 100", u.Tokens())
	}
	if !u.Used() {
		t.Error("expected Used after AddTokens")
	}
}

func TestEmbeddingUsage_ZeroTokensStillUsed(t *testing.T) {
	_, u := NewContextWithUsage(context.Background())
	u.AddTokens(0)
	if !u.Used() || u.Tokens() != 0 {
		t.Errorf("got used=%v tokens=%d, want used with 0 tokens", u.Used(), u.Tokens())
	}
}
