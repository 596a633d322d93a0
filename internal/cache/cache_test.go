package cache

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ppiankov/covenant/internal/model"
)

func TestAnalysisKey(t *testing.T) {
	a := AnalysisKey("msa", "v1")
	if !strings.HasPrefix(a, "covenant:v1:") {
		t.Errorf("Unexpected key prefix: %s", a)
	}
	if a != AnalysisKey("msa", "v1") {
		t.Error("Expected key to be deterministic")
	}
	if a == AnalysisKey("msa", "v2") || a == AnalysisKey("nda", "v1") {
		t.Error("Expected distinct keys per document version")
	}
}

func TestMemoryCache(t *testing.T) {
	c := NewMemoryCache(time.Minute, time.Minute)

	if err := c.Set("k", []byte("v"), 0); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if val, ok := c.Get("k"); !ok || string(val) != "v" {
		t.Errorf("Get = %q, %v", val, ok)
	}
	if c.ItemCount() != 1 {
		t.Errorf("ItemCount = %d", c.ItemCount())
	}

	_ = c.Delete("k")
	if _, ok := c.Get("k"); ok {
		t.Error("Expected miss after delete")
	}

	_ = c.Set("a", []byte("1"), 0)
	_ = c.Clear()
	if _, ok := c.Get("a"); ok {
		t.Error("Expected miss after clear")
	}
}

func TestMemoryCache_CopiesEntries(t *testing.T) {
	c := NewMemoryCache(time.Minute, time.Minute)

	value := []byte("analysis")
	_ = c.Set("k", value, 0)
	value[0] = 'X'

	got, _ := c.Get("k")
	if string(got) != "analysis" {
		t.Errorf("cached entry changed with caller slice: %q", got)
	}
	got[0] = 'Y'
	if again, _ := c.Get("k"); string(again) != "analysis" {
		t.Errorf("cached entry changed through returned slice: %q", again)
	}
}

func TestMemoryCache_Expiry(t *testing.T) {
	c := NewMemoryCache(time.Minute, time.Minute)
	_ = c.Set("k", []byte("v"), time.Millisecond)
	time.Sleep(5 * time.Millisecond)
	if _, ok := c.Get("k"); ok {
		t.Error("Expected expired entry to miss")
	}
}

func TestDiskCache(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "cache")
	c := NewDiskCache(dir, time.Hour)

	key := AnalysisKey("msa", "v1")
	if err := c.Set(key, []byte("payload"), 0); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if val, ok := c.Get(key); !ok || string(val) != "payload" {
		t.Errorf("Get = %q, %v", val, ok)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 1 || strings.Contains(entries[0].Name(), ":") || strings.HasSuffix(entries[0].Name(), ".tmp") {
		t.Errorf("Unexpected cache files: %v", entries)
	}

	if err := c.Delete(key); err != nil {
		t.Errorf("Delete: %v", err)
	}
	if err := c.Delete(key); err != nil {
		t.Errorf("Expected deleting a missing entry to succeed, got %v", err)
	}
}

func TestDiskCache_Expired(t *testing.T) {
	c := NewDiskCache(t.TempDir(), time.Hour)
	_ = c.Set("k", []byte("v"), -time.Second)
	if _, ok := c.Get("k"); ok {
		t.Error("Expected expired entry to miss")
	}
}

func TestLayeredCache_PromotesFromDisk(t *testing.T) {
	dir := t.TempDir()
	first := NewLayeredCache(time.Minute, dir, time.Hour)
	if err := first.Set("k", []byte("v"), 0); err != nil {
		t.Fatalf("Set: %v", err)
	}

	// A fresh cache shares only the disk layer
	second := NewLayeredCache(time.Minute, dir, time.Hour)
	if val, ok := second.Get("k"); !ok || string(val) != "v" {
		t.Fatalf("Expected disk hit, got %q, %v", val, ok)
	}
	if val, ok := second.memory.Get("k"); !ok || string(val) != "v" {
		t.Error("Expected value promoted to memory")
	}

	_ = second.Delete("k")
	if _, ok := NewLayeredCache(time.Minute, dir, time.Hour).Get("k"); ok {
		t.Error("Expected delete to reach disk")
	}
}

func TestLayeredCache_MemoryOnly(t *testing.T) {
	c := NewLayeredCache(time.Minute, "", 0)
	if err := c.Set("k", []byte("v"), 0); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if _, ok := c.Get("k"); !ok {
		t.Error("Expected memory hit")
	}
	if err := c.Clear(); err != nil {
		t.Errorf("Clear: %v", err)
	}
	if _, ok := c.Get("k"); ok {
		t.Error("Expected miss after clear")
	}
}

func TestAnalysisCache(t *testing.T) {
	c := NewAnalysisCache(NewMemoryCache(time.Minute, time.Minute), 0)

	if _, ok := c.Get("msa", "abc"); ok {
		t.Error("Expected miss on empty cache")
	}

	a := &model.Analysis{
		DocumentID: "msa",
		Version:    "abc",
		Clauses:    []model.Clause{{ID: "clause-1", Type: model.ClauseTermination, Heading: "4. Termination"}},
	}
	if err := c.Put(a); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, ok := c.Get("msa", "abc")
	if !ok {
		t.Fatal("Expected hit")
	}
	if len(got.Clauses) != 1 || got.Clauses[0].Type != model.ClauseTermination {
		t.Errorf("Unexpected cached analysis: %+v", got)
	}
	if _, ok := c.Get("msa", "def"); ok {
		t.Error("Expected miss for another version")
	}

	if err := c.Put(&model.Analysis{DocumentID: "msa"}); err == nil {
		t.Error("Expected error for missing version")
	}
}

func TestAnalysisCache_CorruptEntry(t *testing.T) {
	mem := NewMemoryCache(time.Minute, time.Minute)
	_ = mem.Set(AnalysisKey("msa", "abc"), []byte("{not json"), 0)

	c := NewAnalysisCache(mem, 0)
	if _, ok := c.Get("msa", "abc"); ok {
		t.Error("Expected corrupt entry to miss")
	}
	if _, ok := mem.Get(AnalysisKey("msa", "abc")); ok {
		t.Error("Expected corrupt entry to be dropped")
	}
}
