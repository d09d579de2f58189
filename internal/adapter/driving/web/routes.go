package web

import "net/http"

// RegisterRoutes registers the HTML routes on the provided mux. adminOnly
// guards the review pages; the CTA routes are public since they are opened
// from email clients.
func RegisterRoutes(mux *http.ServeMux, h *Handler, adminOnly func(http.HandlerFunc) http.HandlerFunc) {
	mux.HandleFunc("GET /api/cta-clicked", h.CTAClicked)
	mux.HandleFunc("GET /cta-clicked/{contactId}", h.CTAClickedPath)

	mux.HandleFunc("GET /admin/feedback", adminOnly(h.FeedbackReview))
}
