package billing

import (
	"context"
	"errors"
	"fmt"

	fiberlog "github.com/gofiber/fiber/v2/log"
)

// Listener reacts to a canonical event after it has been persisted.
type Listener func(ctx context.Context, event *Event) error

// WebhookOutcome describes how a delivery was handled.
type WebhookOutcome struct {
	Provider  Provider
	Kind      EventKind
	Duplicate bool
}

// WebhookService verifies, records, normalizes and persists provider
// webhooks and then notifies listeners. It never retries; a returned error
// makes the provider redeliver.
type WebhookService struct {
	registry  Registry
	source    ProviderSource
	service   *Service
	metrics   *Metrics
	listeners map[EventKind][]Listener
}

func NewWebhookService(registry Registry, source ProviderSource, service *Service, metrics *Metrics) *WebhookService {
	return &WebhookService{
		registry:  registry,
		source:    source,
		service:   service,
		metrics:   metrics,
		listeners: make(map[EventKind][]Listener),
	}
}

// Subscribe registers fn for kind. Listeners run in registration order.
// Subscribe must not be called once the service handles requests.
func (w *WebhookService) Subscribe(kind EventKind, fn Listener) {
	w.listeners[kind] = append(w.listeners[kind], fn)
}

// Handle processes one inbound delivery for the configured provider.
func (w *WebhookService) Handle(ctx context.Context, req WebhookRequest) (*WebhookOutcome, error) {
	provider, err := w.source.Provider(ctx)
	if err != nil {
		return nil, err
	}
	return w.HandleFor(ctx, provider, req)
}

// HandleFor processes one inbound delivery for provider.
func (w *WebhookService) HandleFor(ctx context.Context, provider Provider, req WebhookRequest) (*WebhookOutcome, error) {
	outcome := &WebhookOutcome{Provider: provider}

	handler, err := w.registry.WebhookHandler(provider)
	if err != nil {
		return nil, err
	}

	vendor, err := handler.VerifyWebhookSignature(ctx, req)
	if err != nil {
		w.metrics.observe(provider, "", OutcomeInvalidSignature)
		if !errors.Is(err, ErrInvalidSignature) {
			err = fmt.Errorf("%w: %v", ErrInvalidSignature, err)
		}
		return nil, err
	}

	created, stored, err := w.service.RecordWebhookEvent(ctx, WebhookEventInput{
		Provider:        provider,
		ProviderEventID: vendor.ID,
		EventType:       vendor.Type,
		Payload:         vendor.Payload,
	})
	if err != nil {
		w.metrics.observe(provider, "", OutcomeFailed)
		return nil, fmt.Errorf("record webhook event: %w", err)
	}
	if !created && stored.Succeeded() {
		fiberlog.Infof("[Billing] %s event %s already processed, skipping", provider, stored.ProviderEventID)
		outcome.Duplicate = true
		w.metrics.observe(provider, "", OutcomeDuplicate)
		return outcome, nil
	}

	event, procErr := w.process(ctx, handler, vendor)
	if event != nil {
		outcome.Kind = event.Kind
	}
	if markErr := w.service.MarkWebhookProcessed(ctx, stored.ID, procErr); markErr != nil {
		fiberlog.Errorf("[Billing] could not mark webhook event %d processed: %v", stored.ID, markErr)
	}
	if procErr != nil {
		fiberlog.Errorf("[Billing] %s event %s (%s) failed: %v", provider, vendor.ID, vendor.Type, procErr)
		w.metrics.observe(provider, outcome.Kind, OutcomeFailed)
		return nil, procErr
	}

	w.metrics.observe(provider, outcome.Kind, OutcomeProcessed)
	return outcome, nil
}

func (w *WebhookService) process(ctx context.Context, handler WebhookHandler, vendor *VendorEvent) (*Event, error) {
	event, err := handler.NormalizeEvent(ctx, vendor)
	if err != nil {
		return nil, fmt.Errorf("normalize %s: %w", vendor.Type, err)
	}
	if event.Vendor == nil {
		event.Vendor = vendor
	}
	if event.Provider == "" {
		event.Provider = vendor.Provider
	}

	if err := w.service.Persist(ctx, event); err != nil {
		return event, fmt.Errorf("persist %s: %w", event.Kind, err)
	}

	for _, fn := range w.listeners[event.Kind] {
		if err := fn(ctx, event); err != nil {
			return event, fmt.Errorf("%s listener: %w", event.Kind, err)
		}
	}
	return event, nil
}
