package http

import (
	"net/http"

	"github.com/dfryer1193/dururack/archive/application"
	"github.com/go-chi/chi/v5"
	"github.com/google/go-github/v75/github"
	"github.com/rs/zerolog/log"
)

// PushHandler handles a validated GitHub push event.
type PushHandler interface {
	HandlePushEvent(evt *github.PushEvent) error
}

var _ PushHandler = (*application.SyncService)(nil)

type WebhookHandler struct {
	webhookSecret []byte
	sync          PushHandler
}

// NewWebhookHandler creates a handler that validates payloads with secret.
// An empty secret skips signature validation.
func NewWebhookHandler(sync PushHandler, secret string) *WebhookHandler {
	if secret == "" {
		log.Warn().Msg("Webhook secret is not set; payload signatures will not be checked")
	}

	return &WebhookHandler{
		webhookSecret: []byte(secret),
		sync:          sync,
	}
}

func (h *WebhookHandler) RegisterRoutes(r chi.Router) {
	r.Post("/webhook/git", h.HandleGitWebhook)
}

// Router returns a chi router serving the webhook routes.
func (h *WebhookHandler) Router() http.Handler {
	r := chi.NewRouter()
	h.RegisterRoutes(r)
	return r
}

func (h *WebhookHandler) HandleGitWebhook(w http.ResponseWriter, r *http.Request) {
	payload, err := github.ValidatePayload(r, h.webhookSecret)
	if err != nil {
		log.Warn().Err(err).Msg("Rejected webhook payload")
		http.Error(w, "Invalid payload", http.StatusBadRequest)
		return
	}

	event, err := github.ParseWebHook(github.WebHookType(r), payload)
	if err != nil {
		http.Error(w, "Invalid event", http.StatusBadRequest)
		return
	}

	switch evt := event.(type) {
	case *github.PushEvent:
		err = h.sync.HandlePushEvent(evt)
	case *github.PingEvent:
		log.Info().Msg("Received webhook ping")
	default:
		log.Debug().Str("event", github.WebHookType(r)).Msg("Ignoring webhook event")
	}
	if err != nil {
		log.Error().Err(err).Msg("Failed to handle push event")
		http.Error(w, "Error handling event", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
