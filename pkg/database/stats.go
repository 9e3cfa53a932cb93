package database

import (
	"context"
	"errors"
	"sync"
	"time"

	"gorm.io/gorm"
)

// TypeCount represents a count by type
type TypeCount struct {
	Type  string `json:"type"`
	Count int    `json:"count"`
}

// CachedStats holds the cached manifest statistics
type CachedStats struct {
	LastRun      string      `json:"lastRun"`
	LastComplete string      `json:"lastComplete"`
	Runs         int         `json:"runs"`
	Archives     int         `json:"archives"`
	Records      int         `json:"records"`
	Statuses     []TypeCount `json:"statuses"`
}

// statsCache holds the singleton instance
type statsCache struct {
	mu    sync.RWMutex
	stats *CachedStats
}

var cache = &statsCache{}

// GetCachedStats returns the cached stats if available, nil otherwise
func GetCachedStats() *CachedStats {
	if !cache.mu.TryRLock() {
		return nil
	}
	defer cache.mu.RUnlock()

	return cache.stats
}

// ComputeAndCacheStats computes the stats from the database and stores them in cache
func ComputeAndCacheStats(ctx context.Context, db *gorm.DB, force bool) *CachedStats {
	if force {
		cache.mu.Lock()
	} else {
		if !cache.mu.TryLock() {
			// Another computation is in progress, return nil to indicate stats are not available
			return nil
		}
	}
	defer cache.mu.Unlock()

	db = db.WithContext(ctx)
	stats := &CachedStats{Statuses: []TypeCount{}}

	var lastRun Run
	err := db.Order("started_at DESC").First(&lastRun).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		// no run recorded yet, cannot compute stats
		return nil
	}
	if err == nil {
		stats.LastRun = lastRun.StartedAt.Format(time.RFC3339)
	}

	var lastComplete Run
	if err := db.Where("complete = ?", true).Order("started_at DESC").First(&lastComplete).Error; err == nil {
		stats.LastComplete = lastComplete.StartedAt.Format(time.RFC3339)
	}

	var runs, archives int64
	db.Model(&Run{}).Count(&runs)
	db.Model(&Archive{}).Count(&archives)
	stats.Runs = int(runs)
	stats.Archives = int(archives)

	var records int64
	db.Model(&Archive{}).Select("COALESCE(SUM(records), 0)").Scan(&records)
	stats.Records = int(records)

	// Count archives by status
	db.Model(&Archive{}).
		Select("status as type, COUNT(*) as count").
		Group("status").
		Order("status").
		Scan(&stats.Statuses)

	cache.stats = stats
	return cache.stats
}

// InvalidateStatsCache marks the cache as invalid so it will be recomputed on next access
func InvalidateStatsCache() {
	cache.mu.Lock()
	defer cache.mu.Unlock()
	cache.stats = nil
}
