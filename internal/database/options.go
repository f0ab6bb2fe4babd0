package database

import (
	"fmt"
	"strings"

	"github.com/helixml/trialdex/domain/repository"
	"gorm.io/gorm"
)

// likeEscaper escapes LIKE wildcards so user text matches literally.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// ContainsPattern turns free text into a LIKE pattern that matches the text
// anywhere in a value. Case is left to the operator: SQLite LIKE folds ASCII
// and PostgreSQL uses ILIKE.
func ContainsPattern(text string) string {
	return "%" + likeEscaper.Replace(text) + "%"
}

// likeOperator returns the case-insensitive LIKE operator for the dialect.
func likeOperator(db *gorm.DB) string {
	if db.Dialector != nil && db.Dialector.Name() == "postgres" {
		return "ILIKE"
	}
	return "LIKE"
}

// ApplyOptions builds a repository.Query from the given options and applies it to a GORM session.
func ApplyOptions(db *gorm.DB, options ...repository.Option) *gorm.DB {
	q := repository.Build(options...)

	db = applyConditions(db, q)

	for _, ord := range q.Orders() {
		dir := "ASC"
		if !ord.Ascending() {
			dir = "DESC"
		}
		db = db.Order(fmt.Sprintf("%s %s", ord.Field(), dir))
	}

	if q.LimitValue() > 0 {
		db = db.Limit(q.LimitValue())
	}

	if q.OffsetValue() > 0 {
		db = db.Offset(q.OffsetValue())
	}

	return db
}

// ApplyConditions applies only WHERE conditions (no limit/offset/order) for COUNT queries.
func ApplyConditions(db *gorm.DB, options ...repository.Option) *gorm.DB {
	return applyConditions(db, repository.Build(options...))
}

func applyConditions(db *gorm.DB, q repository.Query) *gorm.DB {
	for _, cond := range q.Conditions() {
		switch cond.Kind() {
		case repository.KindIn:
			db = db.Where(fmt.Sprintf("%s IN ?", cond.Field()), cond.Value())
		case repository.KindContainsAny:
			db = applyContainsAny(db, cond)
		default:
			db = db.Where(fmt.Sprintf("%s = ?", cond.Field()), cond.Value())
		}
	}
	return db
}

func applyContainsAny(db *gorm.DB, cond repository.Condition) *gorm.DB {
	fields := cond.Fields()
	if len(fields) == 0 {
		return db
	}
	text, _ := cond.Value().(string)
	pattern := ContainsPattern(text)

	op := likeOperator(db)
	clauses := make([]string, len(fields))
	args := make([]any, len(fields))
	for i, field := range fields {
		clauses[i] = fmt.Sprintf(`%s %s ? ESCAPE '\'`, field, op)
		args[i] = pattern
	}
	return db.Where("("+strings.Join(clauses, " OR ")+")", args...)
}
