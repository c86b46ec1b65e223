package sqlxrepos

import (
	"database/sql/driver"
	"regexp"

	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/trezcool/footpulse/core"
)

const uniqueViolation = "23505"

// isUniqueViolation reports whether err is a postgres duplicate-key error on
// the named constraint.
func isUniqueViolation(err error, constraint string) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == uniqueViolation && pqErr.Constraint == constraint
	}
	return false
}

// pqStringArray wraps ids for use with postgres ANY($n) predicates.
func pqStringArray(ids []string) driver.Valuer {
	return pq.Array(ids)
}

var identRegex = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// orderBy renders an ORDER BY clause from the provided ordering, falling back
// to deflt. Ordering fields arrive from the ?ordering= query param, so only
// plain column identifiers are interpolated; anything else is skipped.
func orderBy(deflt string, ordering []core.DBOrdering) string {
	var clause string
	for _, ord := range ordering {
		if !identRegex.MatchString(ord.Field) {
			continue
		}
		if clause != "" {
			clause += ", "
		}
		clause += ord.String()
	}
	if clause == "" {
		return " ORDER BY " + deflt
	}
	return " ORDER BY " + clause
}
