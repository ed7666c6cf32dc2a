package database

import (
	"github.com/rpupo63/portfolio-backend/models"
	"gorm.io/gorm"
)

type TagRepo struct {
	db *gorm.DB
}

func NewTagRepo(db *gorm.DB) *TagRepo {
	return &TagRepo{db}
}

// FindAll returns all tags ordered by name
func (r *TagRepo) FindAll() ([]*models.ProjectTag, error) {
	var tags []*models.ProjectTag
	err := r.db.Order("name ASC").Order("id ASC").Find(&tags).Error
	return tags, err
}

func (r *TagRepo) FindByID(id uint) (*models.ProjectTag, error) {
	var tag models.ProjectTag
	if err := r.db.First(&tag, id).Error; err != nil {
		return nil, err
	}
	return &tag, nil
}

// FindByIDs returns the tags that exist among ids, and the ids that do not.
func (r *TagRepo) FindByIDs(ids []uint) ([]models.ProjectTag, []uint, error) {
	if len(ids) == 0 {
		return []models.ProjectTag{}, nil, nil
	}

	var tags []models.ProjectTag
	if err := r.db.Where("id IN ?", ids).Order("name ASC").Find(&tags).Error; err != nil {
		return nil, nil, err
	}

	found := make(map[uint]bool, len(tags))
	for _, t := range tags {
		found[t.ID] = true
	}
	var missing []uint
	for _, id := range ids {
		if !found[id] {
			missing = append(missing, id)
			found[id] = true
		}
	}
	return tags, missing, nil
}

// Add inserts the tag with a unique slug derived from its name.
func (r *TagRepo) Add(tag *models.ProjectTag) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		s, err := uniqueSlug(tx, &models.ProjectTag{}, slugBase(tag.Name, "tag"), 0)
		if err != nil {
			return err
		}
		tag.Slug = s
		return tx.Create(tag).Error
	})
}

// Update saves the tag, re-deriving the slug when the name changed.
func (r *TagRepo) Update(tag *models.ProjectTag) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		var current models.ProjectTag
		if err := tx.Select("id", "name", "slug").First(&current, tag.ID).Error; err != nil {
			return err
		}
		tag.Slug = current.Slug
		if current.Name != tag.Name {
			s, err := uniqueSlug(tx, &models.ProjectTag{}, slugBase(tag.Name, "tag"), tag.ID)
			if err != nil {
				return err
			}
			tag.Slug = s
		}
		return tx.Save(tag).Error
	})
}

// Delete removes the tag and detaches it from every project. Projects stay.
func (r *TagRepo) Delete(id uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		var tag models.ProjectTag
		if err := tx.Select("id").First(&tag, id).Error; err != nil {
			return err
		}
		if err := tx.Exec("DELETE FROM project_tag_links WHERE project_tag_id = ?", id).Error; err != nil {
			return err
		}
		return tx.Delete(&tag).Error
	})
}
