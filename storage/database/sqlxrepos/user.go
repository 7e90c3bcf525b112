package sqlxrepos

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/elimu/core"
	"github.com/trezcool/elimu/core/user"
)

type userRow struct {
	ID           string         `db:"id"`
	CompanyID    sql.NullString `db:"company_id"`
	Name         string         `db:"name"`
	Email        string         `db:"email"`
	IsActive     bool           `db:"is_active"`
	Roles        string         `db:"roles"` // JSON list
	Points       int            `db:"points"`
	PasswordHash string         `db:"password_hash"`
	CreatedAt    time.Time      `db:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at"`
	LastLogin    sql.NullTime   `db:"last_login"`
}

func toUserRow(usr user.User) (userRow, error) {
	roles := usr.Roles
	if roles == nil {
		roles = []string{}
	}
	rolesJSON, err := json.Marshal(roles)
	if err != nil {
		return userRow{}, errors.Wrap(err, "encoding roles")
	}
	r := userRow{
		ID:           usr.ID,
		CompanyID:    nullString(usr.CompanyID),
		Name:         usr.Name,
		Email:        usr.Email,
		IsActive:     usr.IsActive,
		Roles:        string(rolesJSON),
		Points:       usr.Points,
		PasswordHash: string(usr.PasswordHash),
		CreatedAt:    usr.CreatedAt.UTC(),
		UpdatedAt:    usr.UpdatedAt.UTC(),
	}
	if usr.LastLogin != nil {
		r.LastLogin = sql.NullTime{Time: usr.LastLogin.UTC(), Valid: true}
	}
	return r, nil
}

func (r userRow) user() (user.User, error) {
	usr := user.User{
		ID:           r.ID,
		CompanyID:    r.CompanyID.String,
		Name:         r.Name,
		Email:        r.Email,
		IsActive:     r.IsActive,
		Points:       r.Points,
		PasswordHash: []byte(r.PasswordHash),
		CreatedAt:    r.CreatedAt.UTC(),
		UpdatedAt:    r.UpdatedAt.UTC(),
	}
	if err := json.Unmarshal([]byte(r.Roles), &usr.Roles); err != nil {
		return user.User{}, errors.Wrapf(err, "decoding roles of user %s", r.ID)
	}
	if r.LastLogin.Valid {
		t := r.LastLogin.Time.UTC()
		usr.LastLogin = &t
	}
	return usr, nil
}

const userColumns = "id, company_id, name, email, is_active, roles, points, password_hash, created_at, updated_at, last_login"

var userOrderings = map[string]bool{"name": true, "email": true, "points": true, "created_at": true, "last_login": true}

type userRepository struct {
	db *sqlx.DB
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *sqlx.DB) *userRepository {
	return &userRepository{db: db}
}

func (repo userRepository) CheckEmailUniqueness(ctx context.Context, email string, excludedUsers ...user.User) error {
	q := "SELECT COUNT(*) FROM users WHERE email = ?"
	args := []interface{}{email}
	if len(excludedUsers) > 0 {
		ids := make([]string, 0, len(excludedUsers))
		for _, u := range excludedUsers {
			ids = append(ids, u.ID)
		}
		var err error
		if q, args, err = sqlx.In(q+" AND id NOT IN (?)", email, ids); err != nil {
			return errors.Wrap(err, "building uniqueness query")
		}
	}

	var cnt int
	if err := repo.db.GetContext(ctx, &cnt, repo.db.Rebind(q), args...); err != nil {
		return errors.Wrap(err, "checking email uniqueness")
	}
	if cnt > 0 {
		return user.ErrEmailExists
	}
	return nil
}

func (repo userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	if usr.ID == "" {
		usr.ID = uuid.New().String()
	}
	row, err := toUserRow(usr)
	if err != nil {
		return user.User{}, err
	}
	_, err = repo.db.NamedExecContext(ctx,
		"INSERT INTO users ("+userColumns+") VALUES "+
			"(:id, :company_id, :name, :email, :is_active, :roles, :points, :password_hash, :created_at, :updated_at, :last_login)",
		row,
	)
	if err != nil {
		return user.User{}, errors.Wrap(err, "inserting user")
	}
	return row.user()
}

func (repo userRepository) QueryUsers(ctx context.Context, filter *user.QueryFilter, ordering []core.DBOrdering) ([]user.User, error) {
	var conds []string
	var args []interface{}

	if filter != nil {
		// users with Name or Email matching the search keyword
		if filter.Search != "" {
			val := "%" + strings.ToLower(filter.Search) + "%"
			conds = append(conds, "(LOWER(name) LIKE ? OR LOWER(email) LIKE ?)")
			args = append(args, val, val)
		}
		if filter.CompanyID != "" {
			conds = append(conds, "company_id = ?")
			args = append(args, filter.CompanyID)
		}
		// users with any role that starts with any of the provided roles
		if len(filter.Roles) > 0 {
			roleConds := make([]string, 0, len(filter.Roles))
			for _, role := range filter.Roles {
				roleConds = append(roleConds, "roles LIKE ?")
				args = append(args, `%"`+role+`%`)
			}
			conds = append(conds, "("+strings.Join(roleConds, " OR ")+")")
		}
		if filter.IsActive != nil {
			conds = append(conds, "is_active = ?")
			args = append(args, *filter.IsActive)
		}
	}

	q := "SELECT " + userColumns + " FROM users"
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}
	q += orderBy(ordering, userOrderings, "name ASC")

	var rows []userRow
	if err := repo.db.SelectContext(ctx, &rows, repo.db.Rebind(q), args...); err != nil {
		return nil, errors.Wrap(err, "querying users")
	}
	users := make([]user.User, 0, len(rows))
	for _, r := range rows {
		usr, err := r.user()
		if err != nil {
			return nil, err
		}
		users = append(users, usr)
	}
	return users, nil
}

func (repo userRepository) GetUser(ctx context.Context, filter user.GetFilter) (user.User, error) {
	var column, value string
	switch {
	case filter.ID != "":
		if _, err := uuid.Parse(filter.ID); err != nil {
			return user.User{}, user.ErrNotFound
		}
		column, value = "id", filter.ID
	case filter.Email != "":
		column, value = "email", filter.Email
	default:
		return user.User{}, user.ErrNotFound
	}

	var row userRow
	q := repo.db.Rebind("SELECT " + userColumns + " FROM users WHERE " + column + " = ?")
	if err := repo.db.GetContext(ctx, &row, q, value); err != nil {
		return user.User{}, trapNoRowsErr(err, user.ErrNotFound, "finding user")
	}
	return row.user()
}

func (repo userRepository) UpdateUser(ctx context.Context, usr user.User) (user.User, error) {
	row, err := toUserRow(usr)
	if err != nil {
		return user.User{}, err
	}
	res, err := repo.db.NamedExecContext(ctx,
		`UPDATE users SET company_id = :company_id, name = :name, email = :email, is_active = :is_active,
			roles = :roles, password_hash = :password_hash, updated_at = :updated_at, last_login = :last_login
		WHERE id = :id`,
		row,
	)
	if err != nil {
		return user.User{}, errors.Wrap(err, "updating user")
	}
	if err = checkAffected(res, user.ErrNotFound); err != nil {
		return user.User{}, err
	}
	// points are only changed through AddPoints
	return repo.GetUser(ctx, user.GetFilter{ID: usr.ID})
}

func (repo userRepository) AddPoints(ctx context.Context, id string, delta int) (user.User, error) {
	res, err := repo.db.ExecContext(ctx,
		repo.db.Rebind("UPDATE users SET points = CASE WHEN points + ? < 0 THEN 0 ELSE points + ? END, updated_at = ? WHERE id = ?"),
		delta, delta, time.Now().UTC(), id,
	)
	if err != nil {
		return user.User{}, errors.Wrap(err, "adding points")
	}
	if err = checkAffected(res, user.ErrNotFound); err != nil {
		return user.User{}, err
	}
	return repo.GetUser(ctx, user.GetFilter{ID: id})
}

func (repo userRepository) DeleteUsersByID(ctx context.Context, ids ...string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	q, args, err := sqlx.In("DELETE FROM users WHERE id IN (?)", ids)
	if err != nil {
		return 0, errors.Wrap(err, "building delete query")
	}
	res, err := repo.db.ExecContext(ctx, repo.db.Rebind(q), args...)
	if err != nil {
		return 0, errors.Wrap(err, "deleting users")
	}
	cnt, err := res.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "deleting users")
	}
	return int(cnt), nil
}
