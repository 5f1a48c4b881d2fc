// Package dbwebhook reacts to row change notifications sent by the database
// (invitations, deleted subscriptions and accounts, membership changes).
package dbwebhook

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/ManuelReschke/FoxKit/app/models"
	"github.com/ManuelReschke/FoxKit/internal/pkg/billing"
	"github.com/ManuelReschke/FoxKit/internal/pkg/mail"
	fiberlog "github.com/gofiber/fiber/v2/log"
)

const SignatureHeader = "X-Supabase-Event-Signature"

const (
	TypeInsert = "INSERT"
	TypeUpdate = "UPDATE"
	TypeDelete = "DELETE"
)

// Payload is one row change.
type Payload struct {
	Type      string          `json:"type"`
	Table     string          `json:"table"`
	Schema    string          `json:"schema,omitempty"`
	Record    json.RawMessage `json:"record"`
	OldRecord json.RawMessage `json:"old_record"`
}

// VerifySignature compares the shared secret header in constant time. An
// empty secret rejects every request.
func VerifySignature(header, secret string) bool {
	if secret == "" || header == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(header), []byte(secret)) == 1
}

type AccountLookup interface {
	GetByID(ctx context.Context, id string) (*models.Account, error)
}

type UserLookup interface {
	GetByID(id uint) (*models.User, error)
}

type SeatSyncer interface {
	SyncSeats(ctx context.Context, accountID string) error
}

type GatewayProvider interface {
	ForProvider(provider billing.Provider) (*billing.Gateway, error)
}

type Config struct {
	ProductName string
	AppURL      string
	SupportURL  string
}

type Router struct {
	cfg      Config
	mailer   mail.Mailer
	renderer *mail.Renderer
	accounts AccountLookup
	users    UserLookup
	gateways GatewayProvider
	seats    SeatSyncer
}

func NewRouter(cfg Config, mailer mail.Mailer, renderer *mail.Renderer, accounts AccountLookup, users UserLookup, gateways GatewayProvider, seats SeatSyncer) *Router {
	return &Router{
		cfg:      cfg,
		mailer:   mailer,
		renderer: renderer,
		accounts: accounts,
		users:    users,
		gateways: gateways,
		seats:    seats,
	}
}

// Handle dispatches a row change. Unknown tables and types are ignored.
func (r *Router) Handle(ctx context.Context, p Payload) error {
	switch {
	case p.Table == "invitations" && p.Type == TypeInsert:
		return r.invitationCreated(ctx, p.Record)
	case isSubscriptionsTable(p.Table) && p.Type == TypeDelete:
		return r.subscriptionDeleted(ctx, p.OldRecord)
	case p.Table == "accounts" && p.Type == TypeDelete:
		return r.accountDeleted(p.OldRecord)
	case p.Table == "accounts_memberships" && (p.Type == TypeInsert || p.Type == TypeDelete):
		record := p.Record
		if p.Type == TypeDelete {
			record = p.OldRecord
		}
		return r.membershipChanged(ctx, record)
	default:
		fiberlog.Debugf("[DBWebhook] Ignoring %s on %s", p.Type, p.Table)
		return nil
	}
}

func isSubscriptionsTable(table string) bool {
	return table == "subscriptions" || table == "billing_subscriptions"
}

func decode(raw json.RawMessage, out any) error {
	if len(raw) == 0 || string(raw) == "null" {
		return fmt.Errorf("missing record")
	}
	return json.Unmarshal(raw, out)
}

func (r *Router) invitationCreated(ctx context.Context, raw json.RawMessage) error {
	var inv models.Invitation
	if err := decode(raw, &inv); err != nil {
		return fmt.Errorf("decode invitation: %w", err)
	}
	if inv.Email == "" || inv.InviteToken == "" {
		return fmt.Errorf("invitation %d without email or token", inv.ID)
	}

	account, err := r.accounts.GetByID(ctx, inv.AccountID)
	if err != nil {
		return fmt.Errorf("load account %s: %w", inv.AccountID, err)
	}
	inviter := "A team member"
	if inv.InvitedBy != 0 {
		if u, err := r.users.GetByID(inv.InvitedBy); err == nil && u.Name != "" {
			inviter = u.Name
		}
	}

	body, err := r.renderer.Render(mail.TemplateInvitation, mail.InvitationData{
		ProductName: r.cfg.ProductName,
		AccountName: account.Name,
		InviterName: inviter,
		InviteLink:  strings.TrimRight(r.cfg.AppURL, "/") + "/join?invite_token=" + url.QueryEscape(inv.InviteToken),
	})
	if err != nil {
		return err
	}
	subject := fmt.Sprintf("You have been invited to join %s", account.Name)
	if err := r.mailer.Send(inv.Email, subject, body); err != nil {
		return fmt.Errorf("send invitation: %w", err)
	}
	fiberlog.Infof("[DBWebhook] Invitation email sent for account %s", account.ID)
	return nil
}

// subscriptionDeleted makes sure a subscription removed locally does not
// keep billing at the provider.
func (r *Router) subscriptionDeleted(ctx context.Context, raw json.RawMessage) error {
	var row models.BillingSubscription
	if err := decode(raw, &row); err != nil {
		return fmt.Errorf("decode subscription: %w", err)
	}
	if row.ProviderSubscriptionID == "" {
		return fmt.Errorf("subscription row %d without provider id", row.ID)
	}

	gateway, err := r.gateways.ForProvider(billing.Provider(row.Provider))
	if err != nil {
		return err
	}
	current, err := gateway.GetSubscription(ctx, row.ProviderSubscriptionID)
	if err != nil {
		return err
	}
	if billing.IsEndedStatus(current.Status) {
		fiberlog.Infof("[DBWebhook] Subscription %s already %s at %s", row.ProviderSubscriptionID, current.Status, row.Provider)
		return nil
	}

	if _, err := gateway.CancelSubscription(ctx, billing.CancelSubscriptionParams{SubscriptionID: row.ProviderSubscriptionID}); err != nil {
		return err
	}
	fiberlog.Infof("[DBWebhook] Canceled subscription %s at %s", row.ProviderSubscriptionID, row.Provider)
	return nil
}

func (r *Router) accountDeleted(raw json.RawMessage) error {
	var account models.Account
	if err := decode(raw, &account); err != nil {
		return fmt.Errorf("decode account: %w", err)
	}
	if !account.IsPersonalAccount || account.Email == "" {
		return nil
	}

	body, err := r.renderer.Render(mail.TemplateAccountDeleted, mail.AccountDeletedData{
		ProductName: r.cfg.ProductName,
		UserName:    account.Name,
		SupportURL:  r.cfg.SupportURL,
	})
	if err != nil {
		return err
	}
	subject := fmt.Sprintf("Your %s account has been deleted", r.cfg.ProductName)
	if err := r.mailer.Send(account.Email, subject, body); err != nil {
		return fmt.Errorf("send account deletion email: %w", err)
	}
	return nil
}

func (r *Router) membershipChanged(ctx context.Context, raw json.RawMessage) error {
	var m models.AccountMembership
	if err := decode(raw, &m); err != nil {
		return fmt.Errorf("decode membership: %w", err)
	}
	if r.seats == nil {
		return nil
	}
	return r.seats.SyncSeats(ctx, m.AccountID)
}
