package grants

import "errors"

var (
	ErrGrantNotFound     = errors.New("Grant not found")
	ErrVestEventNotFound = errors.New("Vest event not found")
	ErrNotISOGrant       = errors.New("Only ISO grants can be exercised")
	ErrWithheldExceeds   = errors.New("Units withheld exceed units vesting")
	ErrUnitsExceedHeld   = errors.New("Units exceed units still held")
	ErrInvalidUnits      = errors.New("Units must be greater than zero")
	ErrInvalidSalePrice  = errors.New("Sale price must be zero or greater")
)
