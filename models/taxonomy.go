package models

import (
	"strings"

	"github.com/gosimple/slug"
)

// SlugMaxLength bounds every stored slug, disambiguation suffix included.
const SlugMaxLength = 50

// ProjectCategory groups projects. Listed by Order, then Name.
type ProjectCategory struct {
	ID          uint   `json:"id" gorm:"primaryKey"`
	Name        string `json:"name" gorm:"type:varchar(50);not null"`
	Slug        string `json:"slug" gorm:"type:varchar(50);not null;uniqueIndex:idx_project_categories_slug"`
	Description string `json:"description" gorm:"type:text;not null"`
	Order       int    `json:"order" gorm:"column:display_order;not null;default:0;check:chk_project_categories_order,display_order >= 0"`
}

// ProjectTag labels projects. Listed by Name.
type ProjectTag struct {
	ID   uint   `json:"id" gorm:"primaryKey"`
	Name string `json:"name" gorm:"type:varchar(50);not null"`
	Slug string `json:"slug" gorm:"type:varchar(50);not null;uniqueIndex:idx_project_tags_slug"`
}

// Slugify turns a display name into its URL-safe form: lower case, words
// joined by hyphens, punctuation dropped.
func Slugify(name string) string {
	return TruncateSlug(slug.Make(name), SlugMaxLength)
}

// TruncateSlug cuts s to at most n bytes without leaving a trailing hyphen.
func TruncateSlug(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return strings.TrimRight(s[:n], "-_")
}
