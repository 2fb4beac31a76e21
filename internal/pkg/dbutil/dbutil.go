package dbutil

import (
	"regexp"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

var limitRegex = regexp.MustCompile(`(?i)LIMIT\s+\?\s*,\s*\?`)

// Finalize rewrites a gendry-generated query for the target driver. Postgres
// needs dollar placeholders and LIMIT/OFFSET instead of the mysql-style
// "LIMIT offset, count" that gendry emits.
func Finalize(driver, query string, args []interface{}) (string, []interface{}) {
	if driver != "postgres" {
		// sqlite understands the mysql-style LIMIT form natively.
		return query, args
	}
	if loc := limitRegex.FindStringIndex(query); loc != nil {
		query, args = swapLimitArgs(query, args, loc)
	}
	return sqlx.Rebind(sqlx.DOLLAR, query), args
}

func swapLimitArgs(query string, args []interface{}, loc []int) (string, []interface{}) {
	prefix := query[:loc[0]]
	qCount := strings.Count(prefix, "?")
	if qCount+1 < len(args) {
		args[qCount], args[qCount+1] = args[qCount+1], args[qCount]
		query = limitRegex.ReplaceAllString(query, "LIMIT ? OFFSET ?")
	}
	return query, args
}

func IsConflict(driver string, err error) bool {
	if err == nil {
		return false
	}
	if driver == "postgres" {
		if pgErr, ok := err.(*pq.Error); ok {
			return pgErr.Code == "23505"
		}
		return false
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
