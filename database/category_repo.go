package database

import (
	"github.com/rpupo63/portfolio-backend/errs"
	"github.com/rpupo63/portfolio-backend/models"
	"gorm.io/gorm"
)

type CategoryRepo struct {
	db *gorm.DB
}

func NewCategoryRepo(db *gorm.DB) *CategoryRepo {
	return &CategoryRepo{db}
}

// FindAll returns every category ordered by display order, then name.
func (r *CategoryRepo) FindAll() ([]*models.ProjectCategory, error) {
	var categories []*models.ProjectCategory
	err := r.db.Order("display_order ASC").Order("name ASC").Order("id ASC").Find(&categories).Error
	return categories, err
}

func (r *CategoryRepo) FindByID(id uint) (*models.ProjectCategory, error) {
	var category models.ProjectCategory
	if err := r.db.First(&category, id).Error; err != nil {
		return nil, err
	}
	return &category, nil
}

// Add inserts the category with a unique slug derived from its name.
func (r *CategoryRepo) Add(category *models.ProjectCategory) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		s, err := uniqueSlug(tx, &models.ProjectCategory{}, slugBase(category.Name, "category"), 0)
		if err != nil {
			return err
		}
		category.Slug = s
		return tx.Create(category).Error
	})
}

// Update saves the category. The slug is re-derived only when the name changed.
func (r *CategoryRepo) Update(category *models.ProjectCategory) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		var current models.ProjectCategory
		if err := tx.Select("id", "name", "slug").First(&current, category.ID).Error; err != nil {
			return err
		}
		category.Slug = current.Slug
		if current.Name != category.Name {
			s, err := uniqueSlug(tx, &models.ProjectCategory{}, slugBase(category.Name, "category"), category.ID)
			if err != nil {
				return err
			}
			category.Slug = s
		}
		return tx.Save(category).Error
	})
}

// Delete removes the category unless a project still belongs to it.
func (r *CategoryRepo) Delete(id uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		var category models.ProjectCategory
		if err := tx.Select("id").First(&category, id).Error; err != nil {
			return err
		}

		var count int64
		if err := tx.Model(&models.Project{}).Where("category_id = ?", id).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return errs.NewProtectedError("category", "projects", count)
		}

		return tx.Delete(&category).Error
	})
}

func slugBase(name, fallback string) string {
	if s := models.Slugify(name); s != "" {
		return s
	}
	return fallback
}
