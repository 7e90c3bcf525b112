package sqlxrepos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/elimu/core/company"
)

type companyRow struct {
	ID           string    `db:"id"`
	Name         string    `db:"name"`
	Slug         string    `db:"slug"`
	LogoURL      string    `db:"logo_url"`
	PrimaryColor string    `db:"primary_color"`
	CreatedAt    time.Time `db:"created_at"`
}

func (r companyRow) company() company.Company {
	return company.Company{
		ID:           r.ID,
		Name:         r.Name,
		Slug:         r.Slug,
		LogoURL:      r.LogoURL,
		PrimaryColor: r.PrimaryColor,
		CreatedAt:    r.CreatedAt.UTC(),
	}
}

const companyColumns = "id, name, slug, logo_url, primary_color, created_at"

type companyRepository struct {
	db *sqlx.DB
}

var _ company.Repository = (*companyRepository)(nil) // interface compliance check

func NewCompanyRepository(db *sqlx.DB) *companyRepository {
	return &companyRepository{db: db}
}

func (repo companyRepository) CreateCompany(ctx context.Context, c company.Company) (company.Company, error) {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	c.CreatedAt = c.CreatedAt.UTC()
	_, err := repo.db.NamedExecContext(ctx,
		"INSERT INTO companies ("+companyColumns+") VALUES (:id, :name, :slug, :logo_url, :primary_color, :created_at)",
		companyRow(c),
	)
	if err != nil {
		return company.Company{}, errors.Wrap(err, "inserting company")
	}
	return c, nil
}

func (repo companyRepository) getCompany(ctx context.Context, column, value string) (company.Company, error) {
	var row companyRow
	q := repo.db.Rebind("SELECT " + companyColumns + " FROM companies WHERE " + column + " = ?")
	if err := repo.db.GetContext(ctx, &row, q, value); err != nil {
		return company.Company{}, trapNoRowsErr(err, company.ErrNotFound, "selecting company")
	}
	return row.company(), nil
}

func (repo companyRepository) GetCompany(ctx context.Context, id string) (company.Company, error) {
	return repo.getCompany(ctx, "id", id)
}

func (repo companyRepository) GetCompanyBySlug(ctx context.Context, slug string) (company.Company, error) {
	return repo.getCompany(ctx, "slug", slug)
}

func (repo companyRepository) QueryCompanies(ctx context.Context) ([]company.Company, error) {
	var rows []companyRow
	if err := repo.db.SelectContext(ctx, &rows, "SELECT "+companyColumns+" FROM companies ORDER BY name"); err != nil {
		return nil, errors.Wrap(err, "selecting companies")
	}
	cs := make([]company.Company, 0, len(rows))
	for _, r := range rows {
		cs = append(cs, r.company())
	}
	return cs, nil
}

func (repo companyRepository) DeleteCompany(ctx context.Context, id string) error {
	res, err := repo.db.ExecContext(ctx, repo.db.Rebind("DELETE FROM companies WHERE id = ?"), id)
	if err != nil {
		return errors.Wrap(err, "deleting company")
	}
	return checkAffected(res, company.ErrNotFound)
}
