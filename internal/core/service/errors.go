package service

import (
	"errors"
	"fmt"

	"github.com/IAM-timmy1t/FundRaisingProject-sub002/internal/core/domain"
)

// classify leaves already-classified errors alone and wraps anything else in class.
func classify(err error, class error, msg string) error {
	if err == nil {
		return nil
	}
	for _, known := range []error{domain.ErrNotFound, domain.ErrInvalidInput, domain.ErrDataAccess, domain.ErrPersistence} {
		if errors.Is(err, known) {
			return err
		}
	}
	return fmt.Errorf("%w: %s: %w", class, msg, err)
}
