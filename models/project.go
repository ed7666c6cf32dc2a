package models

import (
	"time"

	"gorm.io/datatypes"
)

// Project is a portfolio entry. Category is mandatory and protected: a
// category cannot be removed while projects point at it.
type Project struct {
	ID          uint                        `json:"id" gorm:"primaryKey"`
	Title       string                      `json:"title" gorm:"type:varchar(200);not null"`
	CategoryID  uint                        `json:"category" gorm:"not null;index:idx_projects_category_id"`
	Category    ProjectCategory             `json:"category_details" gorm:"foreignKey:CategoryID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT"`
	Description string                      `json:"description" gorm:"type:text;not null"`
	Thumbnail   string                      `json:"thumbnail" gorm:"type:varchar(255);not null"`
	Featured    bool                        `json:"featured" gorm:"not null;default:false"`
	Tools       datatypes.JSONSlice[string] `json:"tools" gorm:"not null"`
	Link        *string                     `json:"link" gorm:"type:varchar(200)"`
	CreatedAt   time.Time                   `json:"created_at" gorm:"not null;index:idx_projects_created_at"`
	UpdatedAt   time.Time                   `json:"updated_at" gorm:"not null"`
	CreatedByID *uint                       `json:"-" gorm:"index"`
	CreatedBy   *User                       `json:"-" gorm:"foreignKey:CreatedByID;references:ID;constraint:OnDelete:SET NULL"`

	Tags   []ProjectTag   `json:"tags" gorm:"many2many:project_tag_links;constraint:OnDelete:CASCADE"`
	Images []ProjectImage `json:"images" gorm:"foreignKey:ProjectID;references:ID;constraint:OnDelete:CASCADE"`
}

// ProjectImage is one entry of a project's gallery, ordered by Order.
type ProjectImage struct {
	ID        uint   `json:"id" gorm:"primaryKey"`
	ProjectID uint   `json:"-" gorm:"not null;index:idx_project_images_project_id"`
	Image     string `json:"image" gorm:"type:varchar(255);not null"`
	Order     int    `json:"order" gorm:"column:display_order;not null;default:0;check:chk_project_images_order,display_order >= 0"`
}

// FileKeys lists every stored file the project owns.
func (p *Project) FileKeys() []string {
	keys := make([]string, 0, len(p.Images)+1)
	if p.Thumbnail != "" {
		keys = append(keys, p.Thumbnail)
	}
	for _, img := range p.Images {
		if img.Image != "" {
			keys = append(keys, img.Image)
		}
	}
	return keys
}

// NextImageOrder is the order value for an image appended to the gallery.
func (p *Project) NextImageOrder() int {
	next := 0
	for _, img := range p.Images {
		if img.Order >= next {
			next = img.Order + 1
		}
	}
	return next
}
