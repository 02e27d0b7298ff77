package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"hotel-booking/internal/apperror"
	"hotel-booking/internal/data/entity"
	"hotel-booking/internal/data/repository"
	"hotel-booking/pkg/utils"

	"github.com/google/uuid"
)

// storageError turns lock waits and deadlines into Transient errors and wraps
// everything else with op.
func storageError(op string, err error) error {
	if repository.IsTimeout(err) {
		return apperror.Transient(op, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// paymentError passes application errors through and treats the rest as
// storage failures.
func paymentError(op string, err error) error {
	var appErr *apperror.Error
	if errors.As(err, &appErr) {
		return err
	}
	return storageError(op, err)
}

func parseID(field, value string) (uuid.UUID, error) {
	id, err := uuid.Parse(value)
	if err != nil {
		return uuid.Nil, apperror.ValidationField(field, "Must be a valid UUID")
	}
	return id, nil
}

// validateStay checks a requested stay: both dates parse, check-in is not
// before today and check-out is after check-in.
func validateStay(checkIn, checkOut string, today time.Time) (entity.DateRange, map[string]string) {
	errs := make(map[string]string)

	in, err := utils.ParseDate(checkIn)
	if err != nil {
		errs["check_in"] = fmt.Sprintf("Must be a date in %s format", utils.DateLayout)
	}
	out, err := utils.ParseDate(checkOut)
	if err != nil {
		errs["check_out"] = fmt.Sprintf("Must be a date in %s format", utils.DateLayout)
	}
	if len(errs) > 0 {
		return entity.DateRange{}, errs
	}

	if in.Before(today) {
		errs["check_in"] = "Must not be in the past"
	}
	if !out.After(in) {
		errs["check_out"] = "Must be after check_in"
	}
	if len(errs) > 0 {
		return entity.DateRange{}, errs
	}
	return entity.DateRange{CheckIn: in, CheckOut: out}, nil
}

func mergeErrors(dst, src map[string]string) map[string]string {
	if dst == nil {
		dst = make(map[string]string)
	}
	for k, v := range src {
		if _, exists := dst[k]; !exists {
			dst[k] = v
		}
	}
	return dst
}

func isCanceled(err error) bool {
	return errors.Is(err, context.Canceled)
}
