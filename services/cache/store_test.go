package cache

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

func TestGetMissingKey(t *testing.T) {
	s := NewStore(time.Minute)

	if _, found, fresh := s.Get("equity:AAPL"); found || fresh {
		t.Fatalf("expected miss, got found=%v fresh=%v", found, fresh)
	}
}

func TestFreshWithinTTL(t *testing.T) {
	s := NewStore(time.Minute)
	s.Set("equity:AAPL", 42)

	value, found, fresh := s.Get("equity:AAPL")
	if !found || !fresh {
		t.Fatalf("expected fresh hit, got found=%v fresh=%v", found, fresh)
	}
	if value.(int) != 42 {
		t.Fatalf("expected 42, got %v", value)
	}
}

func TestStaleAfterTTL(t *testing.T) {
	s := NewStore(30 * time.Millisecond)
	s.Set("crypto:BTC-USD", "quote")

	time.Sleep(60 * time.Millisecond)

	value, found, fresh := s.Get("crypto:BTC-USD")
	if !found {
		t.Fatal("stale entry must remain retrievable")
	}
	if fresh {
		t.Fatal("entry past TTL must not be fresh")
	}
	if value.(string) != "quote" {
		t.Fatalf("expected original value, got %v", value)
	}
}

func TestSetResetsFreshness(t *testing.T) {
	s := NewStore(40 * time.Millisecond)
	s.Set("metal:GC=F", 1)

	time.Sleep(60 * time.Millisecond)
	s.Set("metal:GC=F", 2)

	value, found, fresh := s.Get("metal:GC=F")
	if !found || !fresh {
		t.Fatalf("overwrite must reset freshness, got found=%v fresh=%v", found, fresh)
	}
	if value.(int) != 2 {
		t.Fatalf("expected overwritten value 2, got %v", value)
	}
}

func TestInvalidate(t *testing.T) {
	s := NewStore(time.Minute)
	s.Set("equity:AAPL", 1)

	if !s.Invalidate("equity:AAPL") {
		t.Fatal("expected invalidate to report a resident key")
	}
	if s.Invalidate("equity:AAPL") {
		t.Fatal("second invalidate must report missing key")
	}
	if _, found, _ := s.Get("equity:AAPL"); found {
		t.Fatal("invalidated key must be gone")
	}
}

func TestInvalidatePrefix(t *testing.T) {
	s := NewStore(time.Minute)
	s.Set("equity:AAPL", 1)
	s.Set("equity:MSFT", 2)
	s.Set("crypto:BTC-USD", 3)

	if cleared := s.InvalidatePrefix("equity:"); cleared != 2 {
		t.Fatalf("expected 2 cleared, got %d", cleared)
	}
	if _, found, _ := s.Get("crypto:BTC-USD"); !found {
		t.Fatal("other categories must survive a prefix invalidate")
	}
}

func TestInvalidateAll(t *testing.T) {
	s := NewStore(time.Minute)
	for i := 0; i < 10; i++ {
		s.Set(fmt.Sprintf("equity:SYM%d", i), i)
	}

	if cleared := s.InvalidateAll(); cleared != 10 {
		t.Fatalf("expected 10 cleared, got %d", cleared)
	}
	if s.Len() != 0 {
		t.Fatalf("expected empty store, got %d entries", s.Len())
	}
}

func TestSweepRemovesOnlyUntouched(t *testing.T) {
	s := NewStore(time.Minute)
	s.Set("equity:OLD", 1)
	s.Set("equity:HOT", 2)

	time.Sleep(50 * time.Millisecond)
	s.Get("equity:HOT") // touch

	removed := s.Sweep(40 * time.Millisecond)
	if removed != 1 {
		t.Fatalf("expected 1 removed, got %d", removed)
	}
	if _, found, _ := s.Get("equity:HOT"); !found {
		t.Fatal("recently touched entry must survive sweep")
	}
	if _, found, _ := s.Get("equity:OLD"); found {
		t.Fatal("untouched entry must be swept")
	}
}

func TestConcurrentAccess(t *testing.T) {
	s := NewStore(time.Minute)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				key := fmt.Sprintf("equity:SYM%d", j%20)
				if n%2 == 0 {
					s.Set(key, j)
				} else {
					s.Get(key)
				}
			}
		}(i)
	}
	wg.Wait()

	if s.Len() == 0 {
		t.Fatal("expected entries after concurrent writes")
	}
}
