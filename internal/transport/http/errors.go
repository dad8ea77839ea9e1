package http

import (
	"errors"

	"github.com/saga-markets/dexbook/internal/admission"
)

func isValidationError(err error) bool {
	return errors.Is(err, admission.ErrValidation)
}

func isInsufficientFundsError(err error) bool {
	return errors.Is(err, admission.ErrInsufficientFunds)
}

func isUnknownOrderError(err error) bool {
	return errors.Is(err, admission.ErrUnknownOrder)
}
