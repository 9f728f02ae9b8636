package captcha

import (
	"fmt"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/dodocap/captcha-server/internal/metrics"
)

func TestRegistry_AddRemoveContains(t *testing.T) {
	r := NewRegistry()

	if r.Contains("tok") {
		t.Error("empty registry should not contain any token")
	}

	r.Add("tok")
	if !r.Contains("tok") {
		t.Error("expected Contains=true after Add")
	}
	if r.Count() != 1 {
		t.Errorf("expected count 1, got %d", r.Count())
	}

	// Adding again is idempotent.
	r.Add("tok")
	if r.Count() != 1 {
		t.Errorf("expected count 1 after duplicate Add, got %d", r.Count())
	}

	r.Remove("tok")
	if r.Contains("tok") {
		t.Error("expected Contains=false after Remove")
	}

	// Removing an absent token is a no-op.
	r.Remove("tok")
	if r.Count() != 0 {
		t.Errorf("expected count 0, got %d", r.Count())
	}
}

func TestRegistry_ConcurrentAccess(t *testing.T) {
	r := NewRegistry()

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tok := fmt.Sprintf("token-%d", i)
			for j := 0; j < 100; j++ {
				r.Add(tok)
				r.Contains(tok)
				r.Remove(tok)
			}
		}(i)
	}
	wg.Wait()

	if r.Count() != 0 {
		t.Errorf("expected empty registry after all removes, got %d", r.Count())
	}
	// The gauge is updated inside the critical section, so after the churn
	// it must agree with the final count rather than a stale interleaving.
	if got := testutil.ToFloat64(metrics.VerifiedTokens); got != 0 {
		t.Errorf("expected verified-tokens gauge 0 after all removes, got %v", got)
	}
}

func TestRegistry_GaugeTracksCount(t *testing.T) {
	r := NewRegistry()

	r.Add("a")
	r.Add("b")
	if got := testutil.ToFloat64(metrics.VerifiedTokens); got != 2 {
		t.Errorf("expected verified-tokens gauge 2, got %v", got)
	}

	r.Remove("a")
	if got := testutil.ToFloat64(metrics.VerifiedTokens); got != 1 {
		t.Errorf("expected verified-tokens gauge 1, got %v", got)
	}
}
