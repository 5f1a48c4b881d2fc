package billing

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ManuelReschke/FoxKit/app/models"
	"gorm.io/gorm"
)

// memoryRepository keeps rows in maps keyed like the unique indexes.
type memoryRepository struct {
	mu            sync.Mutex
	nextID        uint
	customers     map[string]*models.BillingCustomer
	subscriptions map[string]*models.BillingSubscription
	orders        map[string]*models.BillingOrder
	events        map[string]*models.BillingWebhookEvent
	failUpsert    error
}

func newMemoryRepository() *memoryRepository {
	return &memoryRepository{
		customers:     map[string]*models.BillingCustomer{},
		subscriptions: map[string]*models.BillingSubscription{},
		orders:        map[string]*models.BillingOrder{},
		events:        map[string]*models.BillingWebhookEvent{},
	}
}

func key(a, b string) string { return a + "|" + b }

func (r *memoryRepository) id() uint {
	r.nextID++
	return r.nextID
}

func (r *memoryRepository) UpsertCustomer(_ context.Context, c *models.BillingCustomer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.upsertCustomer(c)
	return nil
}

func (r *memoryRepository) upsertCustomer(c *models.BillingCustomer) {
	k := key(c.Provider, c.CustomerID)
	if existing, ok := r.customers[k]; ok {
		c.ID = existing.ID
	} else {
		c.ID = r.id()
	}
	cp := *c
	r.customers[k] = &cp
}

func (r *memoryRepository) GetCustomerByAccount(_ context.Context, accountID, provider string) (*models.BillingCustomer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.customers {
		if c.AccountID == accountID && c.Provider == provider {
			cp := *c
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *memoryRepository) GetSubscription(_ context.Context, provider, id string) (*models.BillingSubscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.subscriptions[key(provider, id)]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *s
	return &cp, nil
}

func (r *memoryRepository) ListSubscriptionsByAccount(_ context.Context, accountID string) ([]models.BillingSubscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.BillingSubscription
	for _, s := range r.subscriptions {
		if s.AccountID == accountID {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (r *memoryRepository) UpsertSubscription(_ context.Context, c *models.BillingCustomer, s *models.BillingSubscription) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failUpsert != nil {
		return r.failUpsert
	}
	r.upsertCustomer(c)
	s.BillingCustomerID = c.ID
	k := key(s.Provider, s.ProviderSubscriptionID)
	if existing, ok := r.subscriptions[k]; ok {
		s.ID = existing.ID
	} else {
		s.ID = r.id()
	}
	cp := *s
	r.subscriptions[k] = &cp
	return nil
}

func (r *memoryRepository) DeleteSubscription(_ context.Context, provider, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.subscriptions, key(provider, id))
	return nil
}

func (r *memoryRepository) UpsertOrder(_ context.Context, c *models.BillingCustomer, o *models.BillingOrder) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.upsertCustomer(c)
	o.BillingCustomerID = c.ID
	k := key(o.Provider, o.ProviderOrderID)
	if existing, ok := r.orders[k]; ok {
		o.ID = existing.ID
	} else {
		o.ID = r.id()
	}
	cp := *o
	r.orders[k] = &cp
	return nil
}

func (r *memoryRepository) UpdateOrderStatus(_ context.Context, provider, id, status string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if o, ok := r.orders[key(provider, id)]; ok {
		o.Status = status
	}
	return nil
}

func (r *memoryRepository) CreateWebhookEventIfNotExists(_ context.Context, e *models.BillingWebhookEvent) (bool, *models.BillingWebhookEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	k := key(e.Provider, e.ProviderEventID)
	if existing, ok := r.events[k]; ok {
		cp := *existing
		return false, &cp, nil
	}
	e.ID = r.id()
	cp := *e
	r.events[k] = &cp
	return true, e, nil
}

func (r *memoryRepository) MarkWebhookProcessed(_ context.Context, id uint, processingError string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.events {
		if e.ID == id {
			now := time.Now()
			e.ProcessedAt = &now
			e.ProcessingError = processingError
			return nil
		}
	}
	return fmt.Errorf("event %d not found", id)
}

// fakeStrategy records calls so tests can assert nothing reached the vendor.
type fakeStrategy struct {
	calls    []string
	checkout *CheckoutSession
	err      error
}

func (f *fakeStrategy) record(op string) { f.calls = append(f.calls, op) }

func (f *fakeStrategy) CreateCheckoutSession(context.Context, CheckoutSessionParams) (*CheckoutSession, error) {
	f.record("CreateCheckoutSession")
	if f.err != nil {
		return nil, f.err
	}
	if f.checkout != nil {
		return f.checkout, nil
	}
	return &CheckoutSession{CheckoutToken: "tok"}, nil
}

func (f *fakeStrategy) RetrieveCheckoutSession(context.Context, RetrieveCheckoutSessionParams) (*CheckoutSessionStatus, error) {
	f.record("RetrieveCheckoutSession")
	return &CheckoutSessionStatus{Status: CheckoutStatusComplete}, f.err
}

func (f *fakeStrategy) CreateBillingPortalSession(context.Context, PortalSessionParams) (*PortalSession, error) {
	f.record("CreateBillingPortalSession")
	return &PortalSession{URL: "https://portal.example.com"}, f.err
}

func (f *fakeStrategy) CancelSubscription(context.Context, CancelSubscriptionParams) (*Result, error) {
	f.record("CancelSubscription")
	return &Result{Success: true}, f.err
}

func (f *fakeStrategy) ReportUsage(context.Context, ReportUsageParams) (*Result, error) {
	f.record("ReportUsage")
	return &Result{Success: true}, f.err
}

func (f *fakeStrategy) QueryUsage(context.Context, QueryUsageParams) (*UsageValue, error) {
	f.record("QueryUsage")
	return &UsageValue{Value: 42}, f.err
}

func (f *fakeStrategy) UpdateSubscriptionItem(context.Context, UpdateSubscriptionItemParams) (*Result, error) {
	f.record("UpdateSubscriptionItem")
	return &Result{Success: true}, f.err
}

func (f *fakeStrategy) GetSubscription(context.Context, string) (*SubscriptionParams, error) {
	f.record("GetSubscription")
	return &SubscriptionParams{}, f.err
}

func (f *fakeStrategy) GetPlanByID(context.Context, string) (*PlanDetails, error) {
	f.record("GetPlanByID")
	return &PlanDetails{}, f.err
}

// fakeWebhookHandler accepts requests whose "X-Test-Signature" header equals
// "valid" and normalizes to a preset event.
type fakeWebhookHandler struct {
	provider Provider
	event    func(v *VendorEvent) *Event
}

func (h *fakeWebhookHandler) VerifyWebhookSignature(_ context.Context, req WebhookRequest) (*VendorEvent, error) {
	if req.Header.Get("X-Test-Signature") != "valid" {
		return nil, ErrInvalidSignature
	}
	return &VendorEvent{
		Provider: h.provider,
		ID:       req.Header.Get("X-Test-Event-Id"),
		Type:     "test.event",
		Payload:  req.Body,
	}, nil
}

func (h *fakeWebhookHandler) NormalizeEvent(_ context.Context, v *VendorEvent) (*Event, error) {
	return h.event(v), nil
}
