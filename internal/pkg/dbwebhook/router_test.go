package dbwebhook

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/ManuelReschke/FoxKit/app/models"
	"github.com/ManuelReschke/FoxKit/internal/pkg/billing"
	"github.com/ManuelReschke/FoxKit/internal/pkg/billing/catalog"
	"github.com/ManuelReschke/FoxKit/internal/pkg/mail"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type sentMail struct {
	To, Subject, Body string
}

type fakeMailer struct {
	sent []sentMail
	err  error
}

func (m *fakeMailer) Send(to, subject, body string) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, sentMail{To: to, Subject: subject, Body: body})
	return nil
}

type fakeAccounts map[string]*models.Account

func (f fakeAccounts) GetByID(_ context.Context, id string) (*models.Account, error) {
	if a, ok := f[id]; ok {
		return a, nil
	}
	return nil, gorm.ErrRecordNotFound
}

type fakeUsers map[uint]*models.User

func (f fakeUsers) GetByID(id uint) (*models.User, error) {
	if u, ok := f[id]; ok {
		return u, nil
	}
	return nil, gorm.ErrRecordNotFound
}

type fakeSeats struct {
	synced []string
}

func (f *fakeSeats) SyncSeats(_ context.Context, accountID string) error {
	f.synced = append(f.synced, accountID)
	return nil
}

type fakeStrategy struct {
	billing.Strategy
	status   string
	canceled []string
}

func (f *fakeStrategy) GetSubscription(_ context.Context, id string) (*billing.SubscriptionParams, error) {
	return &billing.SubscriptionParams{SubscriptionID: id, Status: f.status}, nil
}

func (f *fakeStrategy) CancelSubscription(_ context.Context, p billing.CancelSubscriptionParams) (*billing.Result, error) {
	f.canceled = append(f.canceled, p.SubscriptionID)
	return &billing.Result{Success: true}, nil
}

type testEnv struct {
	router   *Router
	mailer   *fakeMailer
	seats    *fakeSeats
	strategy *fakeStrategy
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	renderer, err := mail.NewRenderer()
	require.NoError(t, err)

	env := &testEnv{mailer: &fakeMailer{}, seats: &fakeSeats{}, strategy: &fakeStrategy{status: "active"}}
	registry := billing.Registry{
		catalog.ProviderStripe: {NewStrategy: func() (billing.Strategy, error) { return env.strategy, nil }},
		catalog.ProviderPaddle: {},
	}
	env.router = NewRouter(
		Config{ProductName: "FoxKit", AppURL: "https://app.example.com"},
		env.mailer,
		renderer,
		fakeAccounts{"acc-team": {ID: "acc-team", Name: "Acme"}},
		fakeUsers{1: {ID: 1, Name: "Jo"}},
		billing.NewGatewayFactory(registry, billing.StaticProviderSource(catalog.ProviderStripe)),
		env.seats,
	)
	return env
}

func raw(t *testing.T, v any) json.RawMessage {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return b
}

func TestVerifySignature(t *testing.T) {
	assert.True(t, VerifySignature("s3cret", "s3cret"))
	assert.False(t, VerifySignature("s3cre", "s3cret"))
	assert.False(t, VerifySignature("", "s3cret"))
	assert.False(t, VerifySignature("", ""))
}

func TestHandle_InvitationInsertSendsEmail(t *testing.T) {
	env := newTestEnv(t)

	err := env.router.Handle(context.Background(), Payload{
		Type:  TypeInsert,
		Table: "invitations",
		Record: raw(t, map[string]any{
			"account_id": "acc-team", "email": "new@example.com", "invite_token": "tok1", "invited_by": 1, "role": "member",
		}),
	})
	require.NoError(t, err)
	require.Len(t, env.mailer.sent, 1)
	m := env.mailer.sent[0]
	assert.Equal(t, "new@example.com", m.To)
	assert.Equal(t, "You have been invited to join Acme", m.Subject)
	assert.Contains(t, m.Body, "https://app.example.com/join?invite_token=tok1")
	assert.Contains(t, m.Body, "Jo invited you")
}

func TestHandle_InvitationMailFailureIsReturned(t *testing.T) {
	env := newTestEnv(t)
	env.mailer.err = errors.New("smtp down")

	err := env.router.Handle(context.Background(), Payload{
		Type:   TypeInsert,
		Table:  "invitations",
		Record: raw(t, map[string]any{"account_id": "acc-team", "email": "new@example.com", "invite_token": "t"}),
	})
	assert.Error(t, err)
}

func TestHandle_SubscriptionDeleteCancelsAtProvider(t *testing.T) {
	env := newTestEnv(t)

	err := env.router.Handle(context.Background(), Payload{
		Type:      TypeDelete,
		Table:     "subscriptions",
		OldRecord: raw(t, map[string]any{"provider": "stripe", "provider_subscription_id": "sub_1"}),
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"sub_1"}, env.strategy.canceled)
}

func TestHandle_SubscriptionDeleteSkipsEnded(t *testing.T) {
	for _, status := range []string{"canceled", "cancelled", "expired", "incomplete_expired"} {
		t.Run(status, func(t *testing.T) {
			env := newTestEnv(t)
			env.strategy.status = status

			err := env.router.Handle(context.Background(), Payload{
				Type:      TypeDelete,
				Table:     "billing_subscriptions",
				OldRecord: raw(t, map[string]any{"provider": "stripe", "provider_subscription_id": "sub_1"}),
			})
			require.NoError(t, err)
			assert.Empty(t, env.strategy.canceled)
		})
	}
}

func TestHandle_SubscriptionDeleteUnsupportedProvider(t *testing.T) {
	env := newTestEnv(t)

	err := env.router.Handle(context.Background(), Payload{
		Type:      TypeDelete,
		Table:     "subscriptions",
		OldRecord: raw(t, map[string]any{"provider": "paddle", "provider_subscription_id": "sub_1"}),
	})
	assert.ErrorIs(t, err, billing.ErrProviderNotSupported)
}

func TestHandle_PersonalAccountDeleteSendsEmail(t *testing.T) {
	env := newTestEnv(t)

	err := env.router.Handle(context.Background(), Payload{
		Type:      TypeDelete,
		Table:     "accounts",
		OldRecord: raw(t, map[string]any{"id": "acc-1", "name": "Jo", "email": "jo@example.com", "is_personal_account": true}),
	})
	require.NoError(t, err)
	require.Len(t, env.mailer.sent, 1)
	assert.Equal(t, "jo@example.com", env.mailer.sent[0].To)
	assert.Equal(t, "Your FoxKit account has been deleted", env.mailer.sent[0].Subject)

	err = env.router.Handle(context.Background(), Payload{
		Type:      TypeDelete,
		Table:     "accounts",
		OldRecord: raw(t, map[string]any{"id": "acc-team", "name": "Acme", "email": "team@example.com", "is_personal_account": false}),
	})
	require.NoError(t, err)
	assert.Len(t, env.mailer.sent, 1)
}

func TestHandle_MembershipChangesSyncSeats(t *testing.T) {
	env := newTestEnv(t)

	require.NoError(t, env.router.Handle(context.Background(), Payload{
		Type: TypeInsert, Table: "accounts_memberships",
		Record: raw(t, map[string]any{"account_id": "acc-team", "user_id": 2, "account_role": "member"}),
	}))
	require.NoError(t, env.router.Handle(context.Background(), Payload{
		Type: TypeDelete, Table: "accounts_memberships",
		OldRecord: raw(t, map[string]any{"account_id": "acc-team", "user_id": 2}),
	}))
	assert.Equal(t, []string{"acc-team", "acc-team"}, env.seats.synced)
}

func TestHandle_IgnoresOtherTables(t *testing.T) {
	env := newTestEnv(t)

	require.NoError(t, env.router.Handle(context.Background(), Payload{Type: TypeUpdate, Table: "accounts", Record: raw(t, map[string]any{"id": "x"})}))
	require.NoError(t, env.router.Handle(context.Background(), Payload{Type: TypeInsert, Table: "notes"}))
	assert.Empty(t, env.mailer.sent)
	assert.Empty(t, env.seats.synced)
	assert.Empty(t, env.strategy.canceled)
}
