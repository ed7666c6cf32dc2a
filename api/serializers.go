package api

import (
	"time"

	"github.com/rpupo63/portfolio-backend/models"
	"github.com/rpupo63/portfolio-backend/services"
)

type categoryResponse struct {
	ID          uint   `json:"id" example:"1"`
	Name        string `json:"name" example:"Web Apps"`
	Slug        string `json:"slug" example:"web-apps"`
	Description string `json:"description" example:""`
	Order       int    `json:"order" example:"0"`
}

func newCategoryResponse(c *models.ProjectCategory) categoryResponse {
	return categoryResponse{
		ID:          c.ID,
		Name:        c.Name,
		Slug:        c.Slug,
		Description: c.Description,
		Order:       c.Order,
	}
}

type tagResponse struct {
	ID   uint   `json:"id" example:"1"`
	Name string `json:"name" example:"Go"`
	Slug string `json:"slug" example:"go"`
}

func newTagResponse(t *models.ProjectTag) tagResponse {
	return tagResponse{ID: t.ID, Name: t.Name, Slug: t.Slug}
}

type projectImageResponse struct {
	ID    uint   `json:"id"`
	Image string `json:"image"`
	Order int    `json:"order"`
}

type projectResponse struct {
	ID              uint                   `json:"id"`
	Title           string                 `json:"title"`
	Category        uint                   `json:"category"`
	CategoryDetails categoryResponse       `json:"category_details"`
	Description     string                 `json:"description"`
	Thumbnail       *string                `json:"thumbnail"`
	Featured        bool                   `json:"featured"`
	Tools           []string               `json:"tools"`
	Link            *string                `json:"link"`
	Images          []projectImageResponse `json:"images"`
	Tags            []tagResponse          `json:"tags"`
	CreatedAt       time.Time              `json:"created_at"`
}

// projectSerializer renders projects with file keys turned into public URLs.
type projectSerializer struct {
	storage services.FileStorage
}

func (s projectSerializer) one(p *models.Project) projectResponse {
	resp := projectResponse{
		ID:              p.ID,
		Title:           p.Title,
		Category:        p.CategoryID,
		CategoryDetails: newCategoryResponse(&p.Category),
		Description:     p.Description,
		Featured:        p.Featured,
		Tools:           []string(p.Tools),
		Link:            p.Link,
		Images:          make([]projectImageResponse, 0, len(p.Images)),
		Tags:            make([]tagResponse, 0, len(p.Tags)),
		CreatedAt:       p.CreatedAt,
	}
	if resp.Tools == nil {
		resp.Tools = []string{}
	}
	if p.Thumbnail != "" {
		url := s.storage.URL(p.Thumbnail)
		resp.Thumbnail = &url
	}
	for _, img := range p.Images {
		resp.Images = append(resp.Images, projectImageResponse{
			ID:    img.ID,
			Image: s.storage.URL(img.Image),
			Order: img.Order,
		})
	}
	for i := range p.Tags {
		resp.Tags = append(resp.Tags, newTagResponse(&p.Tags[i]))
	}
	return resp
}

func (s projectSerializer) many(projects []*models.Project) []projectResponse {
	out := make([]projectResponse, 0, len(projects))
	for _, p := range projects {
		out = append(out, s.one(p))
	}
	return out
}
