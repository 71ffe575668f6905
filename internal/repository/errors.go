package repository

import (
	"errors"

	"github.com/go-sql-driver/mysql"
)

// MySQL ER_DUP_ENTRY
const errDuplicateEntry = 1062

func isDuplicateKey(err error) bool {
	var myErr *mysql.MySQLError
	return errors.As(err, &myErr) && myErr.Number == errDuplicateEntry
}
