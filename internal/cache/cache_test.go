package cache

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ppiankov/phishfuse/internal/model"
)

func TestKey(t *testing.T) {
	a := Key("whois", "example.com")
	b := Key("whois", "example.com")
	c := Key("tls", "example.com")

	if a != b {
		t.Error("expected stable keys")
	}
	if a == c {
		t.Error("expected namespaces to produce different keys")
	}
	if filepath.Base(a) != a {
		t.Errorf("key %q is not a safe file name", a)
	}
}

func TestMemoryCache_Expiry(t *testing.T) {
	c := NewMemoryCache(time.Minute, time.Minute)

	_ = c.Set("k", []byte("v"), 20*time.Millisecond)
	if v, ok := c.Get("k"); !ok || string(v) != "v" {
		t.Fatalf("expected hit, got %q %v", v, ok)
	}

	time.Sleep(40 * time.Millisecond)
	if _, ok := c.Get("k"); ok {
		t.Error("expected entry to expire")
	}
}

func TestDiskCache_RoundTripAndExpiry(t *testing.T) {
	dir := t.TempDir()
	c := NewDiskCache(dir, time.Hour)

	if err := c.Set("k", []byte("payload"), 0); err != nil {
		t.Fatal(err)
	}
	if v, ok := c.Get("k"); !ok || string(v) != "payload" {
		t.Fatalf("expected hit, got %q %v", v, ok)
	}

	if err := c.Set("old", []byte("x"), -time.Second); err != nil {
		t.Fatal(err)
	}
	if _, ok := c.Get("old"); ok {
		t.Error("expected expired entry to miss")
	}
	if _, err := os.Stat(filepath.Join(dir, "old.json")); !os.IsNotExist(err) {
		t.Error("expected expired entry file to be removed")
	}

	if err := c.Delete("missing"); err != nil {
		t.Errorf("expected deleting a missing key to succeed, got %v", err)
	}
}

func TestDiskCache_CorruptEntry(t *testing.T) {
	dir := t.TempDir()
	c := NewDiskCache(dir, time.Hour)

	if err := os.WriteFile(filepath.Join(dir, "bad.json"), []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, ok := c.Get("bad"); ok {
		t.Error("expected corrupt entry to miss")
	}
}

func TestLayeredCache_PromotesDiskHits(t *testing.T) {
	dir := t.TempDir()

	first := NewLayeredCache(time.Minute, dir, time.Hour)
	if err := first.Set("k", []byte("v"), 0); err != nil {
		t.Fatal(err)
	}

	// a fresh process only has the disk layer
	second := NewLayeredCache(time.Minute, dir, time.Hour)
	if second.memory.Len() != 0 {
		t.Fatal("expected empty memory layer")
	}
	if v, ok := second.Get("k"); !ok || string(v) != "v" {
		t.Fatalf("expected disk hit, got %q %v", v, ok)
	}
	if second.memory.Len() != 1 {
		t.Error("expected disk hit to be promoted to memory")
	}
}

func TestJSONHelpers(t *testing.T) {
	c := NewMemoryCache(time.Minute, time.Minute)
	info := model.DomainInfo{DomainAge: "3 years", SSLStatus: "valid", Registrar: "Example Registrar", Country: "US"}

	if err := SetJSON(c, "d", info, 0); err != nil {
		t.Fatal(err)
	}
	got, ok := GetJSON[model.DomainInfo](c, "d")
	if !ok || got != info {
		t.Errorf("expected %+v, got %+v (hit=%v)", info, got, ok)
	}

	if _, ok := GetJSON[model.DomainInfo](c, "missing"); ok {
		t.Error("expected miss")
	}
}

func TestNew(t *testing.T) {
	if _, ok := New(model.CacheConfig{Enabled: false}).(Nop); !ok {
		t.Error("expected Nop cache when disabled")
	}
	if _, ok := New(model.CacheConfig{Enabled: true, MemoryTTL: time.Minute}).(*MemoryCache); !ok {
		t.Error("expected memory cache without a directory")
	}
	if _, ok := New(model.CacheConfig{Enabled: true, Dir: t.TempDir(), MemoryTTL: time.Minute, DiskTTL: time.Hour}).(*LayeredCache); !ok {
		t.Error("expected layered cache with a directory")
	}
}
