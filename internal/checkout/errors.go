package checkout

import "errors"

var (
	ErrCheckoutInFlight = errors.New("checkout already in progress")
)

// TransportFailureMessage is shown when the service gave no reason of its own.
const TransportFailureMessage = "Network error during checkout"
