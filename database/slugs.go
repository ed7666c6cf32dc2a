package database

import (
	"fmt"

	"github.com/rpupo63/portfolio-backend/models"
	"gorm.io/gorm"
)

// uniqueSlug returns base if no other row of model uses it, otherwise the
// first free "base-N" for N = 1, 2, ... The row excludeID (0 for inserts) is
// ignored so an update may keep its own slug.
func uniqueSlug(db *gorm.DB, model any, base string, excludeID uint) (string, error) {
	var taken []string
	query := db.Model(model).Where("slug = ? OR slug LIKE ?", base, base+"-%")
	if excludeID != 0 {
		query = query.Where("id <> ?", excludeID)
	}
	if err := query.Pluck("slug", &taken).Error; err != nil {
		return "", fmt.Errorf("fetch existing slugs: %w", err)
	}

	existing := make(map[string]bool, len(taken))
	for _, s := range taken {
		existing[s] = true
	}
	if !existing[base] {
		return base, nil
	}

	for i := 1; ; i++ {
		suffix := fmt.Sprintf("-%d", i)
		candidate := models.TruncateSlug(base, models.SlugMaxLength-len(suffix)) + suffix
		if !existing[candidate] {
			// a shortened base may collide with slugs the LIKE above did not cover
			if candidate[:len(candidate)-len(suffix)] != base {
				var count int64
				q := db.Model(model).Where("slug = ?", candidate)
				if excludeID != 0 {
					q = q.Where("id <> ?", excludeID)
				}
				if err := q.Count(&count).Error; err != nil {
					return "", fmt.Errorf("check slug %s: %w", candidate, err)
				}
				if count > 0 {
					existing[candidate] = true
					continue
				}
			}
			return candidate, nil
		}
	}
}
