package domain

import "errors"

var (
	// ErrLookupFailure marks catalog or settings calls that could not be answered.
	ErrLookupFailure = errors.New("lookup failure")
	// ErrProductNotFound is the catalog's "not found" answer, not a failure.
	ErrProductNotFound = errors.New("product not found")
	// ErrEmptyCart blocks a checkout before anything is submitted.
	ErrEmptyCart = errors.New("bill is empty")
	// ErrTransport covers connectivity problems while talking to the transaction service.
	ErrTransport = errors.New("network error during checkout")

	ErrUnknownPaymentMode = errors.New("unknown payment mode")
)

// RejectedError is a structured refusal from the transaction service. Its
// message is shown to the operator verbatim.
type RejectedError struct {
	Reason string
}

func (e *RejectedError) Error() string {
	return e.Reason
}

func IsRejected(err error) bool {
	var rejected *RejectedError
	return errors.As(err, &rejected)
}
