package accountbilling

import (
	"context"
	"errors"
	"fmt"

	"github.com/ManuelReschke/FoxKit/app/models"
	"github.com/ManuelReschke/FoxKit/internal/pkg/billing"
	"github.com/ManuelReschke/FoxKit/internal/pkg/billing/catalog"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	personalAccountID = "0b7d2c3e-7f2a-4a55-9a57-2b7f6f1c9e01"
	teamAccountID     = "6c1e9a52-1d1f-4b0e-8e3a-2f0f3f6d8b22"
)

type fakeAccounts struct {
	accounts    map[string]*models.Account
	members     map[string]int64
	permissions map[string]bool
}

func newFakeAccounts() *fakeAccounts {
	return &fakeAccounts{
		accounts: map[string]*models.Account{
			personalAccountID: {ID: personalAccountID, Name: "Jo", IsPersonalAccount: true, PrimaryOwnerUserID: 1},
			teamAccountID:     {ID: teamAccountID, Name: "Acme", Slug: "acme", PrimaryOwnerUserID: 1},
		},
		members:     map[string]int64{teamAccountID: 3},
		permissions: map[string]bool{teamAccountID + "|1": true},
	}
}

func (f *fakeAccounts) GetByID(_ context.Context, id string) (*models.Account, error) {
	a, ok := f.accounts[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return a, nil
}

func (f *fakeAccounts) GetPersonalAccount(_ context.Context, userID uint) (*models.Account, error) {
	for _, a := range f.accounts {
		if a.IsPersonalAccount && a.PrimaryOwnerUserID == userID {
			return a, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeAccounts) CountMembers(_ context.Context, accountID string) (int64, error) {
	return f.members[accountID], nil
}

func (f *fakeAccounts) HasPermission(_ context.Context, userID uint, accountID, _ string) (bool, error) {
	return f.permissions[fmt.Sprintf("%s|%d", accountID, userID)], nil
}

type fakeStore struct {
	customers     map[string]string
	subscriptions map[string][]models.BillingSubscription
}

func (f *fakeStore) CustomerID(_ context.Context, accountID string, _ billing.Provider) (string, error) {
	return f.customers[accountID], nil
}

func (f *fakeStore) AccountSubscriptions(_ context.Context, accountID string) ([]models.BillingSubscription, error) {
	return f.subscriptions[accountID], nil
}

type fakeStrategy struct {
	billing.Strategy
	err      error
	checkout *billing.CheckoutSessionParams
	portal   *billing.PortalSessionParams
	updates  []billing.UpdateSubscriptionItemParams
}

var errVendor = errors.New("vendor says: card_declined for sk_live_secret")

func (f *fakeStrategy) CreateCheckoutSession(_ context.Context, p billing.CheckoutSessionParams) (*billing.CheckoutSession, error) {
	f.checkout = &p
	if f.err != nil {
		return nil, billing.NewProviderError(catalog.ProviderStripe, "createCheckoutSession", f.err)
	}
	return &billing.CheckoutSession{CheckoutToken: "tok_1"}, nil
}

func (f *fakeStrategy) CreateBillingPortalSession(_ context.Context, p billing.PortalSessionParams) (*billing.PortalSession, error) {
	f.portal = &p
	if f.err != nil {
		return nil, f.err
	}
	return &billing.PortalSession{URL: "https://portal.example.com/s/1"}, nil
}

func (f *fakeStrategy) RetrieveCheckoutSession(_ context.Context, p billing.RetrieveCheckoutSessionParams) (*billing.CheckoutSessionStatus, error) {
	return &billing.CheckoutSessionStatus{Status: billing.CheckoutStatusComplete}, nil
}

func (f *fakeStrategy) UpdateSubscriptionItem(_ context.Context, p billing.UpdateSubscriptionItemParams) (*billing.Result, error) {
	f.updates = append(f.updates, p)
	if f.err != nil {
		return nil, f.err
	}
	return &billing.Result{Success: true}, nil
}

func testCatalog() *catalog.Config {
	return catalog.MustNew(catalog.Config{
		Provider: catalog.ProviderStripe,
		Products: []catalog.Product{
			{
				ID:                  "team",
				Name:                "Team",
				Currency:            "USD",
				EnableDiscountField: true,
				Plans: []catalog.Plan{{
					ID:          "team-monthly",
					Name:        "Team Monthly",
					Interval:    catalog.IntervalMonth,
					PaymentType: catalog.PaymentTypeRecurring,
					LineItems: []catalog.LineItem{
						{ID: "price_team_base", Name: "Base", Cost: decimal.NewFromInt(49), Type: catalog.LineItemFlat},
						{ID: "price_team_seat", Name: "Seat", Cost: decimal.NewFromInt(10), Type: catalog.LineItemPerSeat},
					},
				}},
			},
			{
				ID:       "solo",
				Name:     "Solo",
				Currency: "USD",
				Plans: []catalog.Plan{{
					ID:          "solo-monthly",
					Name:        "Solo Monthly",
					Interval:    catalog.IntervalMonth,
					PaymentType: catalog.PaymentTypeRecurring,
					LineItems: []catalog.LineItem{
						{ID: "price_solo", Name: "Solo", Cost: decimal.NewFromInt(9), Type: catalog.LineItemFlat},
					},
				}},
			},
		},
	})
}

func newTestDeps(strategy *fakeStrategy, accounts *fakeAccounts, store *fakeStore) Deps {
	registry := billing.Registry{
		catalog.ProviderStripe: {
			NewStrategy: func() (billing.Strategy, error) { return strategy, nil },
		},
		catalog.ProviderPaddle: {},
	}
	return Deps{
		Accounts: accounts,
		Store:    store,
		Gateways: billing.NewGatewayFactory(registry, billing.StaticProviderSource(catalog.ProviderStripe)),
		Catalog:  testCatalog(),
		AppURL:   "https://app.example.com/",
	}
}
