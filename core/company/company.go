// Package company holds the tenants of the portal and their branding.
package company

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/elimu/core"
)

var (
	ErrNotFound   = errors.New("company not found")
	ErrSlugExists = errors.New("a company with this slug already exists")
)

type Company struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Slug         string    `json:"slug"`
	LogoURL      string    `json:"logo_url"`
	PrimaryColor string    `json:"primary_color"`
	CreatedAt    time.Time `json:"created_at"`
}

type NewCompany struct {
	Name         string `json:"name" validate:"notblank"`
	Slug         string `json:"slug" validate:"required,max=64,alphanum"`
	LogoURL      string `json:"logo_url" validate:"omitempty,url"`
	PrimaryColor string `json:"primary_color" validate:"hexcolor_"`
}

func (nc *NewCompany) Validate(validate *validator.Validate) error {
	nc.Name = core.CleanString(nc.Name)
	nc.Slug = core.CleanString(nc.Slug, true /* lower */)
	nc.LogoURL = core.CleanString(nc.LogoURL)
	nc.PrimaryColor = core.CleanString(nc.PrimaryColor, true /* lower */)
	return validate.Struct(nc)
}

type Repository interface {
	CreateCompany(ctx context.Context, c Company) (Company, error)
	GetCompany(ctx context.Context, id string) (Company, error)
	GetCompanyBySlug(ctx context.Context, slug string) (Company, error)
	QueryCompanies(ctx context.Context) ([]Company, error)
	DeleteCompany(ctx context.Context, id string) error
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) Create(ctx context.Context, nc NewCompany) (Company, error) {
	if _, err := svc.repo.GetCompanyBySlug(ctx, nc.Slug); err == nil {
		return Company{}, core.NewValidationError(ErrSlugExists, core.FieldError{Field: "slug", Error: ErrSlugExists.Error()})
	} else if errors.Cause(err) != ErrNotFound {
		return Company{}, errors.Wrap(err, "checking slug uniqueness")
	}

	return svc.repo.CreateCompany(ctx, Company{
		Name:         nc.Name,
		Slug:         nc.Slug,
		LogoURL:      nc.LogoURL,
		PrimaryColor: nc.PrimaryColor,
		CreatedAt:    time.Now().UTC(),
	})
}

func (svc *Service) Get(ctx context.Context, id string) (Company, error) {
	return svc.repo.GetCompany(ctx, id)
}

func (svc *Service) GetBySlug(ctx context.Context, slug string) (Company, error) {
	return svc.repo.GetCompanyBySlug(ctx, core.CleanString(slug, true /* lower */))
}

func (svc *Service) Query(ctx context.Context) ([]Company, error) {
	return svc.repo.QueryCompanies(ctx)
}

func (svc *Service) Delete(ctx context.Context, id string) error {
	return svc.repo.DeleteCompany(ctx, id)
}
