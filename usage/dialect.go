package usage

import "gorm.io/gorm"

// dayTruncExpr returns the dialect's date-truncation expression for column,
// used to GROUP BY calendar day without relying on a portable function GORM
// doesn't normalize across drivers.
func dayTruncExpr(db *gorm.DB, column string) string {
	switch db.Dialector.Name() {
	case "postgres":
		return "DATE_TRUNC('day', " + column + ")"
	case "mysql":
		return "DATE(" + column + ")"
	default: // sqlite
		return "date(" + column + ")"
	}
}

// subqueryDelete returns a dialect-appropriate DELETE ... LIMIT statement.
// Postgres has no DELETE LIMIT, so it deletes via a subquery selecting the
// batch's ctid instead.
func subqueryDelete(db *gorm.DB) string {
	switch db.Dialector.Name() {
	case "postgres":
		return `DELETE FROM gw_usage_records WHERE id IN (
			SELECT id FROM gw_usage_records WHERE recorded_at < ? ORDER BY recorded_at LIMIT ?
		)`
	default: // mysql, sqlite both support DELETE ... ORDER BY ... LIMIT
		return `DELETE FROM gw_usage_records WHERE recorded_at < ? ORDER BY recorded_at LIMIT ?`
	}
}
