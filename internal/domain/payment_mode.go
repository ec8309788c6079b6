package domain

import (
	"fmt"
	"strings"
)

type PaymentMode string

const (
	PaymentModeCash PaymentMode = "Cash"
	PaymentModeCard PaymentMode = "Card"
	PaymentModeUPI  PaymentMode = "UPI"
)

var PaymentModes = []PaymentMode{PaymentModeCash, PaymentModeCard, PaymentModeUPI}

func (m PaymentMode) String() string {
	return string(m)
}

func (m PaymentMode) Valid() bool {
	for _, known := range PaymentModes {
		if m == known {
			return true
		}
	}
	return false
}

// ParsePaymentMode matches case-insensitively against the known modes.
func ParsePaymentMode(s string) (PaymentMode, error) {
	s = strings.TrimSpace(s)
	for _, known := range PaymentModes {
		if strings.EqualFold(s, string(known)) {
			return known, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownPaymentMode, s)
}
