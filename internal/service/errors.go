package service

import (
	"bizbox_backend/internal/util"
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// notFound translates a missing row into util.ErrNotFound, naming what was missing.
func notFound(err error, what string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s: %w", what, util.ErrNotFound)
	}
	return err
}

func isNotFound(err error) bool {
	return errors.Is(err, util.ErrNotFound)
}
