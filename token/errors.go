package token

import "errors"

var (
	// Address and configuration errors
	ErrZeroAddress     = errors.New("token: zero address")
	ErrInvalidSnapshot = errors.New("token: snapshot violates ledger invariants")

	// Bookkeeping errors
	ErrInsufficientBalance   = errors.New("token: insufficient balance")
	ErrInsufficientAllowance = errors.New("token: insufficient allowance")
	ErrAllowanceUnderflow    = errors.New("token: allowance decrease below current value")
	ErrAllowanceOverflow     = errors.New("token: allowance increase overflows")
	ErrSupplyCapExceeded     = errors.New("token: supply cap exceeded")

	// Permit errors
	ErrExpired          = errors.New("token: permit deadline passed")
	ErrInvalidSignature = errors.New("token: invalid permit signature")

	// Administrative errors
	ErrNotAdmin                = errors.New("token: caller is not the admin")
	ErrHalted                  = errors.New("token: ledger is halted")
	ErrAlreadyInRequestedState = errors.New("token: ledger already in requested state")
)
