// Package sqlxrepos implements the catalog, user & level repositories with sqlx.
// Queries are written with ? placeholders and rebound for the database engine.
package sqlxrepos

import (
	"database/sql"
	"strings"

	"github.com/pkg/errors"

	"github.com/trezcool/elimu/core"
)

// allCompanies disables the company filter of catalog queries.
const allCompanies = "*"

// trapNoRowsErr maps sql.ErrNoRows to notFound.
func trapNoRowsErr(err error, notFound error, msg string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return notFound
	}
	return errors.Wrap(err, msg)
}

// checkAffected returns notFound when res affected no rows.
func checkAffected(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "counting affected rows")
	}
	if n == 0 {
		return notFound
	}
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// orderBy renders ordering, keeping only the allowed columns.
func orderBy(ordering []core.DBOrdering, allowed map[string]bool, fallback string) string {
	orderList := make([]string, 0, len(ordering))
	for _, ord := range ordering {
		if allowed[ord.Field] {
			orderList = append(orderList, ord.String())
		}
	}
	if len(orderList) == 0 {
		return " ORDER BY " + fallback
	}
	return " ORDER BY " + strings.Join(orderList, ", ")
}

// companyFilter restricts a catalog query to the items of companyID and the shared ones.
func companyFilter(companyID string) (string, []interface{}) {
	switch companyID {
	case allCompanies:
		return "", nil
	case "":
		return " WHERE company_id IS NULL", nil
	default:
		return " WHERE (company_id IS NULL OR company_id = ?)", []interface{}{companyID}
	}
}
