// Package notify posts billing events to a Slack incoming webhook.
package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/ManuelReschke/FoxKit/internal/pkg/billing"
	fiberlog "github.com/gofiber/fiber/v2/log"
	"github.com/shopspring/decimal"
	"github.com/slack-go/slack"
)

type SlackNotifier struct {
	webhookURL string
	post       func(ctx context.Context, url string, msg *slack.WebhookMessage) error
}

func NewSlackNotifier(webhookURL string) *SlackNotifier {
	return &SlackNotifier{webhookURL: strings.TrimSpace(webhookURL), post: slack.PostWebhookContext}
}

// Register subscribes the notifier to completed checkouts and failed
// payments. Without a webhook url nothing is registered.
func (n *SlackNotifier) Register(svc *billing.WebhookService) {
	if n.webhookURL == "" {
		fiberlog.Info("[Slack] SLACK_BILLING_WEBHOOK_URL not set, billing notifications disabled")
		return
	}
	svc.Subscribe(billing.EventCheckoutCompleted, n.OnEvent)
	svc.Subscribe(billing.EventPaymentFailed, n.OnEvent)
}

// OnEvent never fails the webhook: Slack outages must not trigger provider
// redelivery of an already persisted event.
func (n *SlackNotifier) OnEvent(ctx context.Context, event *billing.Event) error {
	text := message(event)
	if text == "" {
		return nil
	}
	msg := &slack.WebhookMessage{
		Text: text,
		Blocks: &slack.Blocks{BlockSet: []slack.Block{
			slack.NewSectionBlock(slack.NewTextBlockObject(slack.MarkdownType, text, false, false), nil, nil),
		}},
	}
	if err := n.post(ctx, n.webhookURL, msg); err != nil {
		fiberlog.Warnf("[Slack] billing notification failed: %v", err)
	}
	return nil
}

func message(event *billing.Event) string {
	switch event.Kind {
	case billing.EventCheckoutCompleted:
		switch {
		case event.Subscription != nil:
			s := event.Subscription
			return fmt.Sprintf(":tada: New *%s* subscription `%s` for account `%s` (status %s)",
				event.Provider, s.SubscriptionID, s.AccountID, s.Status)
		case event.Order != nil:
			o := event.Order
			return fmt.Sprintf(":moneybag: New *%s* order `%s` for account `%s`: %s %s",
				event.Provider, o.OrderID, o.AccountID, formatAmount(o.TotalAmount), strings.ToUpper(o.Currency))
		}
	case billing.EventPaymentFailed:
		return fmt.Sprintf(":warning: *%s* payment failed for checkout session `%s`", event.Provider, event.SessionID)
	}
	return ""
}

// formatAmount renders minor currency units.
func formatAmount(minor int64) string {
	return decimal.New(minor, -2).StringFixed(2)
}
