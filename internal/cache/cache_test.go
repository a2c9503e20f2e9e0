package cache

import (
	"strings"
	"testing"
	"time"
)

func TestCacheKeyStable(t *testing.T) {
	a := CacheKey("https://www.coursera.org/verify/ABC")
	b := CacheKey("https://www.coursera.org/verify/ABC")
	c := CacheKey("https://www.coursera.org/verify/XYZ")

	if a != b {
		t.Error("same URL produced different keys")
	}
	if a == c {
		t.Error("different URLs collided")
	}
	if !strings.HasPrefix(a, "veridoc:v1:") {
		t.Errorf("key = %q", a)
	}
}

func TestMemoryCacheRoundTrip(t *testing.T) {
	c := NewMemoryCache(time.Minute, time.Minute)

	if _, ok := c.Get("missing"); ok {
		t.Error("hit on missing key")
	}

	if err := c.Set("k", []byte("page text"), time.Minute); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, ok := c.Get("k")
	if !ok || string(got) != "page text" {
		t.Errorf("Get = %q, %v", got, ok)
	}

	if err := c.Delete("k"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, ok := c.Get("k"); ok {
		t.Error("hit after delete")
	}
}

func TestMemoryCacheTTL(t *testing.T) {
	c := NewMemoryCache(time.Minute, time.Minute)
	c.Set("short", []byte("x"), 20*time.Millisecond)

	time.Sleep(40 * time.Millisecond)
	if _, ok := c.Get("short"); ok {
		t.Error("entry survived its TTL")
	}
}
