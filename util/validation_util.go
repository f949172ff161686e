// util/validation_util.go

package util

import (
	"fmt"
	"regexp"
	"strings"
)

// maxDurationHours is the absolute request ceiling. Policy caps apply
// after this; a request above it is rejected outright.
const maxDurationHours = 720

var accountIDRe = regexp.MustCompile(`^\d{12}$`)

type ValidationUtil struct{}

func NewValidationUtil() *ValidationUtil {
	return &ValidationUtil{}
}

func (v *ValidationUtil) ValidateAccountID(accountID string) error {
	if !accountIDRe.MatchString(accountID) {
		return fmt.Errorf("account id must be exactly 12 digits")
	}
	return nil
}

func (v *ValidationUtil) ValidateARN(arn string) error {
	if !strings.HasPrefix(arn, "arn:aws:") {
		return fmt.Errorf("arn must start with 'arn:aws:'")
	}
	if len(strings.SplitN(arn, ":", 6)) < 6 {
		return fmt.Errorf("arn must have at least 6 colon-separated parts")
	}
	return nil
}

func (v *ValidationUtil) ValidateDuration(hours float64) error {
	if hours <= 0 {
		return fmt.Errorf("duration must be positive")
	}
	if hours > maxDurationHours {
		return fmt.Errorf("duration cannot exceed %d hours", maxDurationHours)
	}
	return nil
}
