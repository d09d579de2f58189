// Package web implements the HTML driving adapter using templ components.
package web

import (
	"log/slog"
	"net/http"

	"github.com/a-h/templ"

	"github.com/coldrm/coldrm/internal/adapter/driving/web/templates/pages"
	"github.com/coldrm/coldrm/internal/application"
)

// Handler serves the HTML pages: the CTA thank-you page shown to email
// recipients and the admin feedback review page.
type Handler struct {
	contacts *application.ContactService
	feedback *application.FeedbackService
	logger   *slog.Logger
}

// NewHandler creates a Handler with all required dependencies.
func NewHandler(contacts *application.ContactService, feedback *application.FeedbackService, logger *slog.Logger) *Handler {
	return &Handler{contacts: contacts, feedback: feedback, logger: logger}
}

// CTAClicked records a CTA click from the ?contactId= query parameter.
func (h *Handler) CTAClicked(w http.ResponseWriter, r *http.Request) {
	h.ctaClicked(w, r, r.URL.Query().Get("contactId"))
}

// CTAClickedPath records a CTA click from the {contactId} path segment.
func (h *Handler) CTAClickedPath(w http.ResponseWriter, r *http.Request) {
	h.ctaClicked(w, r, r.PathValue("contactId"))
}

func (h *Handler) ctaClicked(w http.ResponseWriter, r *http.Request, contactID string) {
	if contactID == "" {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}

	if err := h.contacts.MarkInterested(r.Context(), contactID); err != nil {
		h.logger.Error("failed to record cta click", "contact_id", contactID, "error", err)
		http.Error(w, "Error processing request", http.StatusInternalServerError)
		return
	}

	h.render(w, r, pages.ThankYou())
}

// FeedbackReview renders all feedback as sanitized markdown for administrators.
func (h *Handler) FeedbackReview(w http.ResponseWriter, r *http.Request) {
	items, err := h.feedback.List(r.Context())
	if err != nil {
		h.logger.Error("failed to list feedback", "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	h.render(w, r, pages.Feedback(toFeedbackPageViewModel(items)))
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, c templ.Component) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := c.Render(r.Context(), w); err != nil {
		h.logger.Error("failed to render page", "path", r.URL.Path, "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
	}
}
