package constants

// Billing routes served to signed in users.
const (
	BillingCheckoutRoute = "/billing/checkout"
	BillingPortalRoute   = "/billing/portal"
	BillingReturnRoute   = "/billing/return"
	BillingPlansRoute    = "/billing/plans"
	BillingCSRFRoute     = "/billing/csrf"
	BillingUsageRoute    = "/billing/usage"
)

// Webhook routes live under APIPrefix. They skip CSRF and verify their own
// signatures instead.
const (
	APIPrefix            = "/api"
	BillingWebhookRoute  = "/billing/webhook"
	DatabaseWebhookRoute = "/db/webhook"
)

const (
	MetricsRoute        = "/metrics"
	APIDocsRoute        = "/docs/api"
	LoginRoute          = "/login"
	PersonalBillingPage = "/home/billing"
)
