// Package webhook is the HTTP boundary: Facebook subscription verification,
// page event dispatch, and the product read endpoint.
package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/12344-munna/facebook-webhook-backend/internal/cache"
	"github.com/12344-munna/facebook-webhook-backend/internal/domain"
	"github.com/12344-munna/facebook-webhook-backend/internal/metrics"
	"github.com/12344-munna/facebook-webhook-backend/internal/repository"
	"github.com/12344-munna/facebook-webhook-backend/internal/service"
	"github.com/go-chi/chi/v5"
)

// commandTrigger marks an admin confirmation command anywhere in the text.
const commandTrigger = "/confirmation"

// OrderConfirmer is the confirmation core as the webhook sees it.
type OrderConfirmer interface {
	ConfirmOrder(ctx context.Context, rawText, channelUserID string) (string, error)
	GetProduct(ctx context.Context, productID string) (*domain.Product, error)
}

// Notifier sends the acknowledgment reply back to the admin.
type Notifier interface {
	SendText(ctx context.Context, recipientID, message string) error
}

type Handler struct {
	verifyToken string
	service     OrderConfirmer
	dedup       cache.Deduper                // may be nil: duplicate deliveries processed twice
	notifier    Notifier                     // may be nil: no acknowledgments sent
	metrics     *metrics.ConfirmationMetrics // nil-safe
}

func NewHandler(verifyToken string, svc OrderConfirmer, dedup cache.Deduper, notifier Notifier, m *metrics.ConfirmationMetrics) *Handler {
	return &Handler{
		verifyToken: verifyToken,
		service:     svc,
		dedup:       dedup,
		notifier:    notifier,
		metrics:     m,
	}
}

// Verify answers Facebook's webhook subscription handshake.
func (h *Handler) Verify(w http.ResponseWriter, r *http.Request) {
	mode := r.URL.Query().Get("hub.mode")
	token := r.URL.Query().Get("hub.verify_token")
	challenge := r.URL.Query().Get("hub.challenge")

	if mode == "subscribe" && token == h.verifyToken {
		log.Println("webhook verified")
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, challenge)
		return
	}

	http.Error(w, "Forbidden", http.StatusForbidden)
}

type eventPayload struct {
	Object string  `json:"object"`
	Entry  []entry `json:"entry"`
}

type entry struct {
	Messaging []messagingEvent `json:"messaging"`
}

type messagingEvent struct {
	Sender    participant `json:"sender"`
	Recipient participant `json:"recipient"`
	Message   *message    `json:"message"`
}

type participant struct {
	ID string `json:"id"`
}

type message struct {
	MID  string `json:"mid"`
	Text string `json:"text"`
}

// HandleEvents processes a page webhook delivery. Confirmation commands run
// the atomic order transaction; everything else is acknowledged and ignored.
func (h *Handler) HandleEvents(w http.ResponseWriter, r *http.Request) {
	var payload eventPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}

	if payload.Object != "page" {
		http.Error(w, "Not Found", http.StatusNotFound)
		return
	}

	for _, e := range payload.Entry {
		if len(e.Messaging) == 0 {
			continue
		}
		if err := h.processEvent(r.Context(), e.Messaging[0]); err != nil {
			log.Printf("error processing webhook event: %v", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
	}

	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, "EVENT_RECEIVED")
}

func (h *Handler) processEvent(ctx context.Context, event messagingEvent) error {
	if event.Message == nil {
		return nil
	}
	text := event.Message.Text
	if !strings.Contains(strings.ToLower(text), commandTrigger) {
		return nil
	}

	if h.dedup != nil && event.Message.MID != "" {
		first, err := h.dedup.FirstSeen(ctx, event.Message.MID)
		if err != nil {
			log.Printf("dedup check failed, processing anyway: %v", err)
		} else if !first {
			log.Printf("skipping redelivered message %s", event.Message.MID)
			return nil
		}
	}

	log.Println("admin confirmation command detected, processing order")

	start := time.Now()
	orderID, err := h.service.ConfirmOrder(ctx, text, event.Recipient.ID)
	h.metrics.Observe(outcome(err), time.Since(start))

	if err != nil {
		h.reply(ctx, event.Sender.ID, "Could not confirm order: "+reason(err))
		return err
	}

	log.Printf("order %s confirmed", orderID)
	h.reply(ctx, event.Sender.ID, fmt.Sprintf("Order %s confirmed.", orderID))
	return nil
}

// reply is best-effort: the order outcome is already settled, so a failed
// acknowledgment is only logged.
func (h *Handler) reply(ctx context.Context, recipientID, message string) {
	if h.notifier == nil || recipientID == "" {
		return
	}
	if err := h.notifier.SendText(ctx, recipientID, message); err != nil {
		log.Printf("failed to send acknowledgment: %v", err)
	}
}

// GetProduct serves a read-only product view for admin tooling.
func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "productID")

	product, err := h.service.GetProduct(r.Context(), productID)
	if err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			http.Error(w, "product not found", http.StatusNotFound)
			return
		}
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(product); err != nil {
		log.Printf("failed to encode product response: %v", err)
	}
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "confirmed"
	case errors.Is(err, service.ErrEmptyOrder):
		return "empty_order"
	case errors.Is(err, service.ErrInvalidCodeFormat):
		return "invalid_code"
	case errors.Is(err, service.ErrOutOfStock):
		return "out_of_stock"
	case errors.Is(err, repository.ErrProductNotFound):
		return "not_found"
	case errors.Is(err, repository.ErrTxnConflict):
		return "conflict"
	default:
		return "error"
	}
}

// reason keeps the admin-facing message short; the full chain goes to logs.
func reason(err error) string {
	switch {
	case errors.Is(err, service.ErrEmptyOrder):
		return "the command contains no product codes"
	case errors.Is(err, service.ErrInvalidCodeFormat):
		return err.Error()
	case errors.Is(err, service.ErrOutOfStock):
		return err.Error()
	case errors.Is(err, repository.ErrProductNotFound):
		return err.Error()
	case errors.Is(err, repository.ErrTxnConflict):
		return "the store is busy, please retry"
	default:
		return "internal error"
	}
}
