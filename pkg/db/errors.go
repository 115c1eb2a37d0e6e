package db

import (
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
)

const (
	mysqlDuplicateEntry  = 1062
	mysqlUnknownDatabase = 1049
)

// IsUniqueViolation reports whether err is a duplicate-key failure. When
// keyName is provided the helper also requires the key in the message.
func IsUniqueViolation(err error, keyName string) bool {
	if err == nil {
		return false
	}
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		if myErr.Number != mysqlDuplicateEntry {
			return false
		}
		return keyName == "" || strings.Contains(myErr.Message, keyName)
	}
	// sqlite, used by tests
	msg := err.Error()
	if !strings.Contains(msg, "UNIQUE constraint failed") {
		return false
	}
	return keyName == "" || strings.Contains(msg, keyName)
}

// IsUnknownDatabase reports whether the server rejected the schema name.
func IsUnknownDatabase(err error) bool {
	var myErr *mysql.MySQLError
	return errors.As(err, &myErr) && myErr.Number == mysqlUnknownDatabase
}
