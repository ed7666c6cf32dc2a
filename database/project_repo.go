package database

import (
	"errors"
	"strings"

	"github.com/rpupo63/portfolio-backend/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrInvalidSortField is returned by Sorted for a field outside ProjectSortFields.
var ErrInvalidSortField = errors.New("invalid sort field")

// ProjectSortFields maps the sort_by names clients may use to columns.
var ProjectSortFields = map[string]string{
	"id":         "id",
	"title":      "title",
	"created_at": "created_at",
	"updated_at": "updated_at",
	"featured":   "featured",
	"category":   "category_id",
}

type ProjectRepo struct {
	db *gorm.DB
}

func NewProjectRepo(db *gorm.DB) *ProjectRepo {
	return &ProjectRepo{db}
}

// ProjectChanges carries the association edits applied next to a project write.
type ProjectChanges struct {
	// ReplaceTags swaps the tag set for Tags. When false Tags is ignored.
	ReplaceTags bool
	Tags        []models.ProjectTag
	// NewImages are appended to the gallery in the given order.
	NewImages []models.ProjectImage
}

func withRelations(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Category").
		Preload("Tags", func(db *gorm.DB) *gorm.DB { return db.Order("project_tags.name ASC") }).
		Preload("Images", func(db *gorm.DB) *gorm.DB { return db.Order("display_order ASC").Order("id ASC") })
}

func newestFirst(db *gorm.DB) *gorm.DB {
	return db.Order("created_at DESC").Order("id DESC")
}

// FindAll returns all projects, newest first.
func (r *ProjectRepo) FindAll() ([]*models.Project, error) {
	var projects []*models.Project
	err := r.db.Scopes(withRelations, newestFirst).Find(&projects).Error
	return projects, err
}

// FindByID returns a project by its ID
func (r *ProjectRepo) FindByID(id uint) (*models.Project, error) {
	var project models.Project
	if err := r.db.Scopes(withRelations).First(&project, id).Error; err != nil {
		return nil, err
	}
	return &project, nil
}

// Search returns projects whose title contains q, ignoring case. Wildcards
// in q match literally.
func (r *ProjectRepo) Search(q string) ([]*models.Project, error) {
	var projects []*models.Project
	pattern := "%" + escapeLike(strings.ToLower(q)) + "%"
	err := r.db.Scopes(withRelations, newestFirst).
		Where("LOWER(title) LIKE ? ESCAPE '\\'", pattern).
		Find(&projects).Error
	return projects, err
}

// FilterByCategory returns the projects of one category, newest first.
func (r *ProjectRepo) FilterByCategory(categoryID uint) ([]*models.Project, error) {
	var projects []*models.Project
	err := r.db.Scopes(withRelations, newestFirst).
		Where("category_id = ?", categoryID).
		Find(&projects).Error
	return projects, err
}

// Sorted returns all projects ordered by sortBy, a name from ProjectSortFields
// optionally prefixed with "-" for descending order.
func (r *ProjectRepo) Sorted(sortBy string) ([]*models.Project, error) {
	desc := strings.HasPrefix(sortBy, "-")
	column, ok := ProjectSortFields[strings.TrimPrefix(sortBy, "-")]
	if !ok {
		return nil, ErrInvalidSortField
	}

	q := r.db.Scopes(withRelations)
	if column == "category_id" {
		// follow the category listing order rather than its id
		q = q.Select("projects.*").
			Joins("LEFT JOIN project_categories ON project_categories.id = projects.category_id").
			Order(clause.OrderByColumn{Column: clause.Column{Table: "project_categories", Name: "display_order"}, Desc: desc}).
			Order(clause.OrderByColumn{Column: clause.Column{Table: "project_categories", Name: "name"}, Desc: desc})
	} else {
		q = q.Order(clause.OrderByColumn{Column: clause.Column{Table: "projects", Name: column}, Desc: desc})
	}

	var projects []*models.Project
	err := q.Order(clause.OrderByColumn{Column: clause.Column{Table: "projects", Name: "id"}, Desc: desc}).
		Find(&projects).Error
	return projects, err
}

// Add inserts a new project with its tags and images in one transaction.
// On success project holds the stored state, relations included.
func (r *ProjectRepo) Add(project *models.Project, changes ProjectChanges) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(project).Error; err != nil {
			return err
		}
		changes.ReplaceTags = true
		if err := applyChanges(tx, project, 0, changes); err != nil {
			return err
		}
		return reload(tx, project)
	})
}

// Update saves the project columns and applies changes in one transaction.
// project.Images must hold the current gallery so new images follow it.
func (r *ProjectRepo) Update(project *models.Project, changes ProjectChanges) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Save(project).Error; err != nil {
			return err
		}
		if err := applyChanges(tx, project, project.NextImageOrder(), changes); err != nil {
			return err
		}
		return reload(tx, project)
	})
}

// Delete removes the project, its gallery and its tag links. It returns the
// deleted project so the caller can drop the stored files.
func (r *ProjectRepo) Delete(id uint) (*models.Project, error) {
	var project models.Project
	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Preload("Images").First(&project, id).Error; err != nil {
			return err
		}
		if err := tx.Where("project_id = ?", id).Delete(&models.ProjectImage{}).Error; err != nil {
			return err
		}
		if err := tx.Exec("DELETE FROM project_tag_links WHERE project_id = ?", id).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Project{}, id).Error
	})
	if err != nil {
		return nil, err
	}
	return &project, nil
}

func applyChanges(tx *gorm.DB, project *models.Project, firstOrder int, changes ProjectChanges) error {
	if changes.ReplaceTags {
		if err := tx.Exec("DELETE FROM project_tag_links WHERE project_id = ?", project.ID).Error; err != nil {
			return err
		}
		for _, tag := range changes.Tags {
			if err := tx.Exec(
				"INSERT INTO project_tag_links (project_id, project_tag_id) VALUES (?, ?)",
				project.ID, tag.ID,
			).Error; err != nil {
				return err
			}
		}
	}

	if len(changes.NewImages) > 0 {
		images := make([]models.ProjectImage, len(changes.NewImages))
		for i, img := range changes.NewImages {
			images[i] = models.ProjectImage{
				ProjectID: project.ID,
				Image:     img.Image,
				Order:     firstOrder + i,
			}
		}
		if err := tx.Create(&images).Error; err != nil {
			return err
		}
	}
	return nil
}

func reload(tx *gorm.DB, project *models.Project) error {
	var fresh models.Project
	if err := tx.Scopes(withRelations).First(&fresh, project.ID).Error; err != nil {
		return err
	}
	*project = fresh
	return nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
