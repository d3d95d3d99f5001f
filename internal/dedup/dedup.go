package dedup

import (
	"encoding/json"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"
)

type appliedEntry struct {
	Key       string `json:"key"`
	Timestamp int64  `json:"timestamp"`
}

// AppliedCache remembers which postings we already sent an application for,
// across process restarts, so a re-run of the same search never emails the
// same company twice. Keys are models.JobPosting.Key() values.
type AppliedCache struct {
	mu       sync.Mutex
	filePath string
	applied  map[string]int64
}

const ninetyDaysMs = int64(90 * 24 * 60 * 60 * 1000)

// NewAppliedCache creates or loads the applied-jobs cache
func NewAppliedCache(cacheDir string) *AppliedCache {
	if err := os.MkdirAll(cacheDir, 0755); err != nil {
		log.Printf("⚠️ Failed to create cache directory: %v", err)
	}
	cache := &AppliedCache{
		filePath: filepath.Join(cacheDir, "applied_jobs.json"),
		applied:  make(map[string]int64),
	}
	cache.load()
	return cache
}

// IsApplied checks if a posting key has already received an application.
// Mutex is required because Go maps are NOT thread-safe.
func (c *AppliedCache) IsApplied(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, exists := c.applied[key]
	return exists
}

func (c *AppliedCache) Mark(keys ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now().UnixMilli()
	changed := false
	for _, key := range keys {
		if _, exists := c.applied[key]; !exists {
			c.applied[key] = now
			changed = true
		}
	}

	if changed {
		c.save()
	}
}

// load reads the cache from disk into the in-memory map, dropping entries
// older than the 90-day retention window.
func (c *AppliedCache) load() {
	data, err := os.ReadFile(c.filePath)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Printf("⚠️ Failed to read applied_jobs.json: %v", err)
		}
		return
	}

	var entries []appliedEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		log.Printf("⚠️ Failed to parse applied_jobs.json: %v", err)
		return
	}

	cutoff := time.Now().UnixMilli() - ninetyDaysMs
	loaded := 0
	for _, e := range entries {
		if e.Timestamp > cutoff {
			c.applied[e.Key] = e.Timestamp
			loaded++
		}
	}
	log.Printf("📋 Loaded %d previously applied jobs (%d expired and removed)", loaded, len(entries)-loaded)
}

// save writes the current cache to disk
func (c *AppliedCache) save() {
	entries := make([]appliedEntry, 0, len(c.applied))
	for key, ts := range c.applied {
		entries = append(entries, appliedEntry{Key: key, Timestamp: ts})
	}
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		log.Printf("⚠️ Failed to marshal applied jobs: %v", err)
		return
	}
	if err := os.WriteFile(c.filePath, data, 0644); err != nil {
		log.Printf("⚠️ Failed to write applied_jobs.json: %v", err)
	}
}
