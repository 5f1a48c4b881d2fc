package billing

import (
	"strings"

	"github.com/ManuelReschke/FoxKit/app/models"
)

// NormalizeStatus maps provider status spellings onto the stored statuses.
func NormalizeStatus(status string) string {
	switch s := strings.ToLower(strings.TrimSpace(status)); s {
	case "":
		return models.BillingStatusActive
	case "on_trial":
		return models.BillingStatusTrialing
	case "cancelled":
		return models.BillingStatusCanceled
	default:
		return s
	}
}

// IsActiveStatus reports whether a subscription status grants access.
func IsActiveStatus(status string) bool {
	switch NormalizeStatus(status) {
	case models.BillingStatusActive, models.BillingStatusTrialing:
		return true
	default:
		return false
	}
}

// IsEndedStatus reports whether the provider already stopped billing.
func IsEndedStatus(status string) bool {
	switch NormalizeStatus(status) {
	case models.BillingStatusCanceled, models.BillingStatusExpired, models.BillingStatusIncompleteExpired:
		return true
	default:
		return false
	}
}

// NormalizeInterval accepts the provider spellings of a billing interval and
// returns "" for anything else.
func NormalizeInterval(interval string) string {
	switch strings.ToLower(strings.TrimSpace(interval)) {
	case "month", "monthly":
		return models.BillingIntervalMonth
	case "year", "yearly", "annual":
		return models.BillingIntervalYear
	default:
		return ""
	}
}
