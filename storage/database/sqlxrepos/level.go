package sqlxrepos

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/elimu/core/level"
)

type levelRow struct {
	ID        string        `db:"id"`
	Name      string        `db:"name"`
	Icon      string        `db:"icon"`
	MinPoints int           `db:"min_points"`
	MaxPoints sql.NullInt64 `db:"max_points"`
}

func toLevelRow(lvl level.Level) levelRow {
	r := levelRow{ID: lvl.ID, Name: lvl.Name, Icon: lvl.Icon, MinPoints: lvl.MinPoints}
	if lvl.MaxPoints != nil {
		r.MaxPoints = sql.NullInt64{Int64: int64(*lvl.MaxPoints), Valid: true}
	}
	return r
}

func (r levelRow) level() level.Level {
	lvl := level.Level{ID: r.ID, Name: r.Name, Icon: r.Icon, MinPoints: r.MinPoints}
	if r.MaxPoints.Valid {
		max := int(r.MaxPoints.Int64)
		lvl.MaxPoints = &max
	}
	return lvl
}

const levelColumns = "id, name, icon, min_points, max_points"

type levelRepository struct {
	db *sqlx.DB
}

var _ level.Repository = (*levelRepository)(nil) // interface compliance check

func NewLevelRepository(db *sqlx.DB) *levelRepository {
	return &levelRepository{db: db}
}

func (repo levelRepository) CreateLevel(ctx context.Context, lvl level.Level) (level.Level, error) {
	if lvl.ID == "" {
		lvl.ID = uuid.New().String()
	}
	_, err := repo.db.NamedExecContext(ctx,
		"INSERT INTO levels ("+levelColumns+") VALUES (:id, :name, :icon, :min_points, :max_points)",
		toLevelRow(lvl),
	)
	if err != nil {
		return level.Level{}, errors.Wrap(err, "inserting level")
	}
	return lvl, nil
}

func (repo levelRepository) GetLevel(ctx context.Context, id string) (level.Level, error) {
	var row levelRow
	q := repo.db.Rebind("SELECT " + levelColumns + " FROM levels WHERE id = ?")
	if err := repo.db.GetContext(ctx, &row, q, id); err != nil {
		return level.Level{}, trapNoRowsErr(err, level.ErrNotFound, "selecting level")
	}
	return row.level(), nil
}

func (repo levelRepository) ListLevels(ctx context.Context) ([]level.Level, error) {
	var rows []levelRow
	if err := repo.db.SelectContext(ctx, &rows, "SELECT "+levelColumns+" FROM levels ORDER BY min_points, name"); err != nil {
		return nil, errors.Wrap(err, "selecting levels")
	}
	levels := make([]level.Level, 0, len(rows))
	for _, r := range rows {
		levels = append(levels, r.level())
	}
	return levels, nil
}

func (repo levelRepository) UpdateLevel(ctx context.Context, lvl level.Level) (level.Level, error) {
	res, err := repo.db.NamedExecContext(ctx,
		"UPDATE levels SET name = :name, icon = :icon, min_points = :min_points, max_points = :max_points WHERE id = :id",
		toLevelRow(lvl),
	)
	if err != nil {
		return level.Level{}, errors.Wrap(err, "updating level")
	}
	if err = checkAffected(res, level.ErrNotFound); err != nil {
		return level.Level{}, err
	}
	return lvl, nil
}

func (repo levelRepository) DeleteLevel(ctx context.Context, id string) error {
	res, err := repo.db.ExecContext(ctx, repo.db.Rebind("DELETE FROM levels WHERE id = ?"), id)
	if err != nil {
		return errors.Wrap(err, "deleting level")
	}
	return checkAffected(res, level.ErrNotFound)
}
