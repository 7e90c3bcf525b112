// Package ebook holds the readable books of the catalog.
package ebook

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/elimu/core"
)

var ErrNotFound = errors.New("ebook not found")

type Ebook struct {
	ID         string    `json:"id"`
	CompanyID  string    `json:"company_id,omitempty"`
	Title      string    `json:"title"`
	TotalPages int       `json:"total_pages"`
	FileURL    string    `json:"file_url"`
	CreatedAt  time.Time `json:"created_at"`
}

type NewEbook struct {
	CompanyID  string `json:"company_id" validate:"omitempty,uuid"`
	Title      string `json:"title" validate:"notblank,max=200"`
	TotalPages int    `json:"total_pages" validate:"min=1"`
	FileURL    string `json:"file_url" validate:"omitempty,url"`
}

func (ne *NewEbook) Validate(validate *validator.Validate) error {
	ne.CompanyID = core.CleanString(ne.CompanyID)
	ne.Title = core.CleanString(ne.Title)
	ne.FileURL = core.CleanString(ne.FileURL)
	return validate.Struct(ne)
}

type Repository interface {
	CreateEbook(ctx context.Context, e Ebook) (Ebook, error)
	GetEbook(ctx context.Context, id string) (Ebook, error)
	// QueryEbooks returns the ebooks of companyID plus the shared ones; all when companyID is "*".
	QueryEbooks(ctx context.Context, companyID string) ([]Ebook, error)
	DeleteEbook(ctx context.Context, id string) error
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) Create(ctx context.Context, ne NewEbook) (Ebook, error) {
	return svc.repo.CreateEbook(ctx, Ebook{
		CompanyID:  ne.CompanyID,
		Title:      ne.Title,
		TotalPages: ne.TotalPages,
		FileURL:    ne.FileURL,
		CreatedAt:  time.Now().UTC(),
	})
}

func (svc *Service) List(ctx context.Context, sess core.Session) ([]Ebook, error) {
	companyID := sess.CompanyID
	if sess.IsAdmin {
		companyID = "*"
	}
	return svc.repo.QueryEbooks(ctx, companyID)
}

// Get returns an ebook visible in sess.
func (svc *Service) Get(ctx context.Context, sess core.Session, id string) (Ebook, error) {
	e, err := svc.repo.GetEbook(ctx, id)
	if err != nil {
		return Ebook{}, err
	}
	if !sess.CanAccess(e.CompanyID) {
		return Ebook{}, ErrNotFound
	}
	return e, nil
}

func (svc *Service) Delete(ctx context.Context, id string) error {
	return svc.repo.DeleteEbook(ctx, id)
}
