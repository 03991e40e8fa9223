package utils

import "database/sql"

// ToSQLStr creates new sql str instance
func ToSQLStr(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// FromSQLStr returns string from sql.NullString
func FromSQLStr(sqlStr sql.NullString) string {
	if sqlStr.Valid {
		return sqlStr.String
	}
	return ""
}

// ToSQLFloat64 creates new sql float instance
func ToSQLFloat64(f float64) sql.NullFloat64 {
	return sql.NullFloat64{Float64: f, Valid: true}
}

// FromSQLFloat64OrZero returns float from sql.NullFloat64
func FromSQLFloat64OrZero(sqlData sql.NullFloat64) float64 {
	if sqlData.Valid {
		return sqlData.Float64
	}
	return 0
}
