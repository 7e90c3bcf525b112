package echoapi

import (
	"fmt"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/elimu/core"
)

const orderingParam = "ordering"

var (
	courseOrderings = []string{"title", "created_at"}
	userOrderings   = []string{"name", "email", "points", "created_at", "last_login"}
)

// Ordering is the parsed `?ordering=field,-other` query param. A leading "-" sorts descending.
type Ordering struct {
	Orderings []core.DBOrdering
}

// Bind parses the ordering param of ctx, rejecting fields outside allowed.
// A field repeated in the param is kept once, at its first position.
func (ord *Ordering) Bind(ctx echo.Context, allowed ...string) error {
	raw := strings.TrimSpace(ctx.QueryParam(orderingParam))
	if raw == "" {
		return nil
	}

	seen := make(map[string]bool)
	for _, field := range strings.Split(raw, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		descending := strings.HasPrefix(field, "-")
		field = strings.TrimLeft(field, "-+")
		if !isAllowed(field, allowed) {
			return core.NewFieldError(orderingParam, fmt.Sprintf("cannot order by %q, use one of: %s", field, strings.Join(allowed, ", ")))
		}
		if seen[field] {
			continue
		}
		seen[field] = true
		ord.Orderings = append(ord.Orderings, core.DBOrdering{Field: field, Ascending: !descending})
	}
	return nil
}

func isAllowed(field string, allowed []string) bool {
	for _, f := range allowed {
		if f == field {
			return true
		}
	}
	return false
}
