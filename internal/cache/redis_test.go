package cache

import (
	"os"
	"testing"
	"time"

	"github.com/inklet/inklet/pkg/config"
)

// openTestCache connects to the redis named by INKLET_TEST_REDIS_URL and
// clears the namespace; tests skip when it is not set.
func openTestCache(t *testing.T) *Cache {
	t.Helper()

	url := os.Getenv("INKLET_TEST_REDIS_URL")
	if url == "" {
		t.Skip("INKLET_TEST_REDIS_URL not set; skipping redis test")
	}

	c, err := New(&config.RedisConfig{URL: url, Enabled: true})
	if err != nil {
		t.Fatalf("failed to connect to redis: %v", err)
	}
	if err := c.Flush(""); err != nil {
		t.Fatalf("failed to clear namespace: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func TestHashKey(t *testing.T) {
	tests := []struct {
		name  string
		parts []string
	}{
		{
			name:  "single part",
			parts: []string{"test"},
		},
		{
			name:  "multiple parts",
			parts: []string{"index_page", "2"},
		},
		{
			name:  "empty parts",
			parts: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hashed1 := HashKey(tt.parts...)
			hashed2 := HashKey(tt.parts...)

			// Hash should be consistent
			if hashed1 != hashed2 {
				t.Errorf("HashKey() should be consistent, got %s and %s", hashed1, hashed2)
			}

			// Hash should be 32 characters (MD5 hex)
			if len(hashed1) != 32 {
				t.Errorf("HashKey() should return 32 character hex string, got length %d", len(hashed1))
			}
		})
	}

	if HashKey("index_page", "1") == HashKey("index_page", "2") {
		t.Error("HashKey() should differ for different parts")
	}
}

func TestCache_NamespaceKey(t *testing.T) {
	cache := &Cache{}

	tests := []struct {
		name     string
		key      string
		expected string
	}{
		{
			name:     "simple key",
			key:      "test",
			expected: "inklet:test",
		},
		{
			name:     "key with colon",
			key:      "index_page:2",
			expected: "inklet:index_page:2",
		},
		{
			name:     "empty key",
			key:      "",
			expected: "inklet:",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := cache.NamespaceKey(tt.key); got != tt.expected {
				t.Errorf("NamespaceKey(%q) = %q, want %q", tt.key, got, tt.expected)
			}
		})
	}
}

func TestJSONRoundTrip(t *testing.T) {
	c := openTestCache(t)

	type page struct {
		Status int    `json:"status"`
		Body   []byte `json:"body"`
	}

	in := page{Status: 200, Body: []byte("<body>rendered</body>")}
	if err := c.SetJSON("index_page:1", in, time.Minute); err != nil {
		t.Fatalf("SetJSON failed: %v", err)
	}

	var out page
	if err := c.GetJSON("index_page:1", &out); err != nil {
		t.Fatalf("GetJSON failed: %v", err)
	}
	if out.Status != in.Status || string(out.Body) != string(in.Body) {
		t.Errorf("GetJSON returned %+v, want %+v", out, in)
	}

	if err := c.GetJSON("index_page:2", &out); err == nil {
		t.Error("GetJSON on a missing key should fail")
	}
}

func TestFlushRemovesPrefix(t *testing.T) {
	c := openTestCache(t)

	for _, key := range []string{"index_page:1", "index_page:2", "session:abc"} {
		if err := c.Set(key, "value", time.Minute); err != nil {
			t.Fatalf("Set(%q) failed: %v", key, err)
		}
	}

	if err := c.Flush("index_page"); err != nil {
		t.Fatalf("Flush failed: %v", err)
	}

	if _, err := c.Get("index_page:1"); err == nil {
		t.Error("index_page:1 should be gone after Flush")
	}
	if _, err := c.Get("index_page:2"); err == nil {
		t.Error("index_page:2 should be gone after Flush")
	}
	// Keys outside the prefix survive
	if v, err := c.Get("session:abc"); err != nil || v != "value" {
		t.Errorf("session:abc should survive Flush, got %q, %v", v, err)
	}
}

func TestNilCacheIsDisabled(t *testing.T) {
	var c *Cache

	if _, err := c.Get("key"); err != ErrCacheDisabled {
		t.Errorf("Get on nil cache should return ErrCacheDisabled, got %v", err)
	}
	if err := c.Set("key", "value", 0); err != ErrCacheDisabled {
		t.Errorf("Set on nil cache should return ErrCacheDisabled, got %v", err)
	}
	if err := c.GetJSON("key", &struct{}{}); err != ErrCacheDisabled {
		t.Errorf("GetJSON on nil cache should return ErrCacheDisabled, got %v", err)
	}
	if err := c.SetJSON("key", struct{}{}, 0); err != ErrCacheDisabled {
		t.Errorf("SetJSON on nil cache should return ErrCacheDisabled, got %v", err)
	}
	if err := c.Close(); err != nil {
		t.Errorf("Close on nil cache should be a no-op, got %v", err)
	}
}
