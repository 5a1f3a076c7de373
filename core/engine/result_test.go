package engine

import (
	"errors"
	"testing"
	"time"
)

var cacheBase = time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)

func TestCacheFreshRead(t *testing.T) {
	c := NewCache[int](time.Minute)
	res := c.Fetch(cacheBase, func() (int, error) { return 42, nil })
	if res.Grade != Ok {
		t.Fatalf("grade = %s, want ok", res.Grade)
	}
	if res.Value != 42 {
		t.Fatalf("value = %d, want 42", res.Value)
	}
	if !res.Usable() {
		t.Fatal("fresh read must be usable")
	}
}

func TestCacheDegradesWithinTTL(t *testing.T) {
	c := NewCache[int](time.Minute)
	c.Fetch(cacheBase, func() (int, error) { return 42, nil })

	res := c.Fetch(cacheBase.Add(30*time.Second), func() (int, error) { return 0, errors.New("down") })
	if res.Grade != Degraded {
		t.Fatalf("grade = %s, want degraded", res.Grade)
	}
	if res.Value != 42 {
		t.Fatalf("value = %d, want cached 42", res.Value)
	}
	if !res.At.Equal(cacheBase) {
		t.Fatalf("At = %s, want cache time %s", res.At, cacheBase)
	}
	if res.Err == nil {
		t.Fatal("degraded result must carry the read error")
	}
}

func TestCacheFailsPastTTL(t *testing.T) {
	c := NewCache[int](time.Minute)
	c.Fetch(cacheBase, func() (int, error) { return 42, nil })

	res := c.Fetch(cacheBase.Add(2*time.Minute), func() (int, error) { return 0, errors.New("down") })
	if res.Grade != Failed {
		t.Fatalf("grade = %s, want failed", res.Grade)
	}
	if res.Value != 0 {
		t.Fatalf("value = %d, want zero", res.Value)
	}
	if res.Usable() {
		t.Fatal("failed read must not be usable")
	}
}

func TestCacheFailsWithoutHistory(t *testing.T) {
	c := NewCache[string](time.Minute)
	res := c.Fetch(cacheBase, func() (string, error) { return "", errors.New("boom") })
	if res.Grade != Failed {
		t.Fatalf("grade = %s, want failed", res.Grade)
	}
}

func TestCacheRecoversAfterFailure(t *testing.T) {
	c := NewCache[int](time.Minute)
	c.Fetch(cacheBase, func() (int, error) { return 0, errors.New("down") })

	res := c.Fetch(cacheBase.Add(time.Minute), func() (int, error) { return 7, nil })
	if res.Grade != Ok || res.Value != 7 {
		t.Fatalf("got %s/%d, want ok/7", res.Grade, res.Value)
	}

	// The fresh value becomes the new fallback.
	res = c.Fetch(cacheBase.Add(90*time.Second), func() (int, error) { return 0, errors.New("down") })
	if res.Grade != Degraded || res.Value != 7 {
		t.Fatalf("got %s/%d, want degraded/7", res.Grade, res.Value)
	}
}
