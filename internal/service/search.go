package service

import (
	"strings"

	"gorm.io/gorm"
)

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// containsPattern turns a search term into a LIKE argument that matches it
// as a literal, case-insensitive substring.
func containsPattern(term string) string {
	return "%" + likeEscaper.Replace(strings.ToLower(term)) + "%"
}

// containsClause is the condition pairing with containsPattern. Postgres
// gets ILIKE, which folds non-ASCII letters; sqlite's LOWER folds ASCII only.
func containsClause(db *gorm.DB, expr string) string {
	if db.Dialector != nil && db.Dialector.Name() == "postgres" {
		return expr + ` ILIKE ? ESCAPE '\'`
	}
	return "LOWER(" + expr + `) LIKE ? ESCAPE '\'`
}
