package database

import (
	"context"
	"strings"

	"gorm.io/gorm"
)

// ListArchives returns the recorded archives, optionally filtered by status
// and name prefix, ordered by name.
func ListArchives(ctx context.Context, db *gorm.DB, status, prefix string, limit, offset int) ([]Archive, int64, error) {
	q := db.WithContext(ctx).Model(&Archive{})

	if s := strings.TrimSpace(status); s != "" {
		q = q.Where("status = ?", s)
	}
	if p := strings.TrimSpace(prefix); p != "" {
		q = q.Where("name LIKE ?", escapeLike(p)+"%")
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	archives := []Archive{}
	if err := q.
		Order("name").
		Limit(limit).
		Offset(offset).
		Find(&archives).Error; err != nil {
		return nil, 0, err
	}

	return archives, total, nil
}

// ListRuns returns the most recent runs first.
func ListRuns(ctx context.Context, db *gorm.DB, limit, offset int) ([]Run, int64, error) {
	var total int64
	if err := db.WithContext(ctx).Model(&Run{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	runs := []Run{}
	if err := db.WithContext(ctx).
		Order("started_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&runs).Error; err != nil {
		return nil, 0, err
	}

	return runs, total, nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
