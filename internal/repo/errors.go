package repo

import (
	"errors"
	"strings"

	"gorm.io/gorm"
)

// ErrDuplicate is returned when an insert or update hits a unique index.
var ErrDuplicate = errors.New("duplicate key")

func translate(err error) error {
	if err == nil {
		return nil
	}
	if isDupKey(err) {
		return errors.Join(ErrDuplicate, err)
	}
	return err
}

// isDupKey also matches on driver text, since not every dialector
// translates its unique violation into gorm.ErrDuplicatedKey.
func isDupKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate") ||
		strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "unique violation")
}
