package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/elimu/core/ebook"
)

type ebookRow struct {
	ID         string         `db:"id"`
	CompanyID  sql.NullString `db:"company_id"`
	Title      string         `db:"title"`
	TotalPages int            `db:"total_pages"`
	FileURL    string         `db:"file_url"`
	CreatedAt  time.Time      `db:"created_at"`
}

func (r ebookRow) ebook() ebook.Ebook {
	return ebook.Ebook{
		ID:         r.ID,
		CompanyID:  r.CompanyID.String,
		Title:      r.Title,
		TotalPages: r.TotalPages,
		FileURL:    r.FileURL,
		CreatedAt:  r.CreatedAt.UTC(),
	}
}

const ebookColumns = "id, company_id, title, total_pages, file_url, created_at"

type ebookRepository struct {
	db *sqlx.DB
}

var _ ebook.Repository = (*ebookRepository)(nil) // interface compliance check

func NewEbookRepository(db *sqlx.DB) *ebookRepository {
	return &ebookRepository{db: db}
}

func (repo ebookRepository) CreateEbook(ctx context.Context, e ebook.Ebook) (ebook.Ebook, error) {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	e.CreatedAt = e.CreatedAt.UTC()
	_, err := repo.db.NamedExecContext(ctx,
		"INSERT INTO ebooks ("+ebookColumns+") VALUES (:id, :company_id, :title, :total_pages, :file_url, :created_at)",
		ebookRow{
			ID:         e.ID,
			CompanyID:  nullString(e.CompanyID),
			Title:      e.Title,
			TotalPages: e.TotalPages,
			FileURL:    e.FileURL,
			CreatedAt:  e.CreatedAt,
		},
	)
	if err != nil {
		return ebook.Ebook{}, errors.Wrap(err, "inserting ebook")
	}
	return e, nil
}

func (repo ebookRepository) GetEbook(ctx context.Context, id string) (ebook.Ebook, error) {
	var row ebookRow
	q := repo.db.Rebind("SELECT " + ebookColumns + " FROM ebooks WHERE id = ?")
	if err := repo.db.GetContext(ctx, &row, q, id); err != nil {
		return ebook.Ebook{}, trapNoRowsErr(err, ebook.ErrNotFound, "selecting ebook")
	}
	return row.ebook(), nil
}

func (repo ebookRepository) QueryEbooks(ctx context.Context, companyID string) ([]ebook.Ebook, error) {
	where, args := companyFilter(companyID)
	var rows []ebookRow
	q := repo.db.Rebind("SELECT " + ebookColumns + " FROM ebooks" + where + " ORDER BY title")
	if err := repo.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "selecting ebooks")
	}
	es := make([]ebook.Ebook, 0, len(rows))
	for _, r := range rows {
		es = append(es, r.ebook())
	}
	return es, nil
}

func (repo ebookRepository) DeleteEbook(ctx context.Context, id string) error {
	res, err := repo.db.ExecContext(ctx, repo.db.Rebind("DELETE FROM ebooks WHERE id = ?"), id)
	if err != nil {
		return errors.Wrap(err, "deleting ebook")
	}
	return checkAffected(res, ebook.ErrNotFound)
}
