// Package boiledrepos implements the progress & quiz repositories with sqlboiler raw queries.
// Queries use ascending $n placeholders so they run on both postgres and sqlite.
package boiledrepos

import (
	"database/sql"

	"github.com/pkg/errors"

	"github.com/trezcool/elimu/core"
)

type execHolder struct {
	exec core.DBExecutor
}

func (h execHolder) getExec(svcExec []core.DBExecutor) core.DBExecutor {
	if len(svcExec) > 0 && svcExec[0] != nil {
		return svcExec[0]
	}
	return h.exec
}

// trapNoRowsErr maps "no rows" errors to notFound.
func trapNoRowsErr(err error, notFound error, msg string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return notFound
	}
	return errors.Wrap(err, msg)
}
