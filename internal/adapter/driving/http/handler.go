package httphandler

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/coldrm/coldrm/internal/application"
	"github.com/coldrm/coldrm/internal/crypto"
	"github.com/coldrm/coldrm/internal/domain/model"
	"github.com/coldrm/coldrm/internal/domain/port/driven"
)

// Services groups the application services the API drives.
type Services struct {
	Limiter    *application.RateLimiter
	Dispatch   *application.DispatchService
	Enrollment *application.EnrollmentService
	Profiles   *application.ProfileService
	Feedback   *application.FeedbackService
	Referrals  *application.ReferralService
	Contacts   *application.ContactService
}

// Handler is the HTTP driving adapter that serves the JSON API.
type Handler struct {
	svc    Services
	guard  *ForgeryGuard
	admins application.AdminSet
	logger *slog.Logger
}

// NewHandler creates a Handler with all required dependencies.
func NewHandler(svc Services, guard *ForgeryGuard, admins application.AdminSet, logger *slog.Logger) *Handler {
	return &Handler{svc: svc, guard: guard, admins: admins, logger: logger}
}

// RegisterAPIRoutes registers every /api route on mux. State-changing and
// per-user routes sit behind the forgery guard.
func RegisterAPIRoutes(mux *http.ServeMux, h *Handler) {
	guarded := h.guard.Protect
	admin := func(next http.HandlerFunc) http.HandlerFunc {
		return guarded(RequireAdmin(h.admins)(next))
	}
	user := func(next func(http.ResponseWriter, *http.Request, string)) http.HandlerFunc {
		return guarded(requireUser(next))
	}

	mux.HandleFunc("GET /api/health", h.Health)
	mux.HandleFunc("GET /api/csrf", h.guard.IssueToken)

	mux.HandleFunc("POST /api/encrypt-password", guarded(h.EncryptPassword))
	mux.HandleFunc("POST /api/send-email-smtp", guarded(h.SendEmail))
	mux.HandleFunc("POST /api/send-enrollment", guarded(h.SendEnrollment))
	mux.HandleFunc("POST /api/send-feedback", guarded(h.SendFeedback))
	mux.HandleFunc("POST /api/process-referral", guarded(h.ProcessReferral))

	mux.HandleFunc("GET /api/contacts", user(h.ListContacts))
	mux.HandleFunc("POST /api/contacts", user(h.CreateContact))
	mux.HandleFunc("PUT /api/contacts/{id}", user(h.UpdateContact))
	mux.HandleFunc("DELETE /api/contacts/{id}", user(h.DeleteContact))
	mux.HandleFunc("GET /api/contacts/{id}/emails", user(h.ContactHistory))

	mux.HandleFunc("GET /api/profile", user(h.GetProfile))
	mux.HandleFunc("POST /api/profile", user(h.EnsureProfile))
	mux.HandleFunc("GET /api/profile/usage", user(h.GetUsage))
	mux.HandleFunc("PUT /api/profile/email-config", user(h.SaveEmailConfig))
	mux.HandleFunc("DELETE /api/profile/email-config", user(h.DeleteEmailConfig))

	mux.HandleFunc("GET /api/notification-users", admin(h.ListNotificationUsers))
	mux.HandleFunc("GET /api/feedback", admin(h.ListFeedback))
}

// Health returns a simple health check response.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status: "ok",
		Time:   time.Now().UTC().Format(time.RFC3339),
	})
}

// EncryptPassword encrypts a mail credential so the UI can store it.
func (h *Handler) EncryptPassword(w http.ResponseWriter, r *http.Request) {
	var req EncryptPasswordRequest
	if err := decode(w, r, &req); err != nil {
		h.writeFailure(w, err)
		return
	}

	token, err := h.svc.Profiles.EncryptPassword(req.Password)
	if err != nil {
		h.logger.Error("failed to encrypt password", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to encrypt password")
		return
	}
	writeJSON(w, http.StatusOK, EncryptPasswordResponse{Success: true, EncryptedPassword: token})
}

// SendEmail sends one outreach email through the caller's mailbox.
func (h *Handler) SendEmail(w http.ResponseWriter, r *http.Request) {
	var req SendEmailRequest
	if err := decode(w, r, &req); err != nil {
		h.writeDispatchFailure(w, err)
		return
	}
	if !callerMatches(r, req.UserID) {
		writeError(w, http.StatusForbidden, "Forbidden")
		return
	}

	messageID, err := h.svc.Dispatch.Send(r.Context(), application.DispatchRequest{
		UserID:      req.UserID,
		To:          req.To,
		Subject:     req.Subject,
		Content:     req.Content,
		ContactName: req.ContactName,
		ContactID:   req.ContactID,
		FromName:    req.FromName,
		FromCompany: req.FromCompany,
		FromEmail:   req.FromEmail,
	})
	if err != nil {
		h.writeDispatchFailure(w, err)
		return
	}

	writeJSON(w, http.StatusOK, SendEmailResponse{
		Success:   true,
		Message:   "Email sent successfully",
		MessageID: messageID,
	})
}

// SendEnrollment forwards the caller's one-time enrollment application.
func (h *Handler) SendEnrollment(w http.ResponseWriter, r *http.Request) {
	var req EnrollmentRequest
	if err := decode(w, r, &req); err != nil {
		h.writeFailure(w, err)
		return
	}
	if !callerMatches(r, req.UserID) {
		writeError(w, http.StatusForbidden, "Forbidden")
		return
	}

	err := h.svc.Enrollment.Enroll(r.Context(), application.EnrollmentRequest{
		UserID:    req.UserID,
		UserEmail: req.UserEmail,
		Name:      req.Name,
		Email:     req.Email,
		Reason:    req.Reason,
		Feedback:  req.Feedback,
	})
	if err != nil {
		f := h.classify(err)
		switch {
		case errors.Is(err, application.ErrEmailNotConfigured):
			f.msg = "Email not configured. Please set up your Gmail in dashboard first."
		case f.status >= http.StatusInternalServerError:
			f.msg = "Failed to submit enrollment"
		}
		writeError(w, f.status, f.msg)
		return
	}

	writeJSON(w, http.StatusOK, successResponse{Success: true, Message: "Enrollment submitted successfully"})
}

// SendFeedback stores product feedback.
func (h *Handler) SendFeedback(w http.ResponseWriter, r *http.Request) {
	var req FeedbackRequest
	if err := decode(w, r, &req); err != nil {
		h.writeFailure(w, err)
		return
	}

	_, err := h.svc.Feedback.Submit(r.Context(), application.FeedbackInput{
		UserEmail:   req.UserEmail,
		UserName:    req.UserName,
		CompanyName: req.CompanyName,
		Text:        req.Feedback,
	})
	if err != nil {
		h.logger.Error("failed to store feedback", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to send feedback")
		return
	}

	writeJSON(w, http.StatusOK, successResponse{Success: true, Message: "Feedback sent successfully"})
}

// ProcessReferral redeems a referral code for the referee.
func (h *Handler) ProcessReferral(w http.ResponseWriter, r *http.Request) {
	var req ReferralRequest
	if err := decode(w, r, &req); err != nil {
		h.writeFailure(w, err)
		return
	}
	if !callerMatches(r, req.RefereeID) {
		writeError(w, http.StatusForbidden, "Forbidden")
		return
	}

	if err := h.svc.Referrals.Redeem(r.Context(), req.RefereeID, req.ReferralCode); err != nil {
		h.writeFailure(w, err)
		return
	}

	writeJSON(w, http.StatusOK, ReferralResponse{
		Success:        true,
		Message:        "Referral processed successfully!",
		ReferrerReward: application.ReferrerReward,
		RefereeReward:  application.RefereeReward,
	})
}

// ListContacts returns the caller's contacts, optionally filtered by
// ?status= and ?search=.
func (h *Handler) ListContacts(w http.ResponseWriter, r *http.Request, userID string) {
	filter := model.ContactFilter{
		Status: model.ContactStatus(r.URL.Query().Get("status")),
		Search: r.URL.Query().Get("search"),
	}

	contacts, err := h.svc.Contacts.List(r.Context(), userID, filter)
	if err != nil {
		h.writeFailure(w, err)
		return
	}

	resp := make([]ContactResponse, 0, len(contacts))
	for _, c := range contacts {
		resp = append(resp, toContactResponse(c))
	}
	writeJSON(w, http.StatusOK, resp)
}

// CreateContact adds a contact for the caller.
func (h *Handler) CreateContact(w http.ResponseWriter, r *http.Request, userID string) {
	var req ContactRequest
	if err := decode(w, r, &req); err != nil {
		h.writeFailure(w, err)
		return
	}

	c, err := h.svc.Contacts.Create(r.Context(), userID, toContactInput(req))
	if err != nil {
		h.writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toContactResponse(*c))
}

// UpdateContact replaces the editable fields of one of the caller's contacts.
func (h *Handler) UpdateContact(w http.ResponseWriter, r *http.Request, userID string) {
	var req ContactRequest
	if err := decode(w, r, &req); err != nil {
		h.writeFailure(w, err)
		return
	}

	c, err := h.svc.Contacts.Update(r.Context(), userID, r.PathValue("id"), toContactInput(req))
	if err != nil {
		h.writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toContactResponse(*c))
}

// DeleteContact removes one of the caller's contacts.
func (h *Handler) DeleteContact(w http.ResponseWriter, r *http.Request, userID string) {
	if err := h.svc.Contacts.Delete(r.Context(), userID, r.PathValue("id")); err != nil {
		h.writeFailure(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ContactHistory lists the emails sent to one of the caller's contacts.
func (h *Handler) ContactHistory(w http.ResponseWriter, r *http.Request, userID string) {
	entries, err := h.svc.Contacts.History(r.Context(), userID, r.PathValue("id"))
	if err != nil {
		h.writeFailure(w, err)
		return
	}

	resp := make([]EmailHistoryResponse, 0, len(entries))
	for _, e := range entries {
		resp = append(resp, toEmailHistoryResponse(e))
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetProfile returns the caller's profile.
func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request, userID string) {
	p, err := h.svc.Profiles.Get(r.Context(), userID)
	if err != nil {
		h.writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toProfileResponse(p))
}

// EnsureProfile creates the caller's profile on first visit and returns it.
func (h *Handler) EnsureProfile(w http.ResponseWriter, r *http.Request, userID string) {
	var req ProfileRequest
	if err := decode(w, r, &req); err != nil {
		h.writeFailure(w, err)
		return
	}

	p, created, err := h.svc.Profiles.EnsureProfile(r.Context(), application.ProfileInput{
		ID:                userID,
		Username:          req.Username,
		CompanyName:       req.CompanyName,
		Email:             req.Email,
		NotifyFullVersion: req.NotifyFullVersion,
	})
	if err != nil {
		h.writeFailure(w, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, status, toProfileResponse(p))
}

// GetUsage reports the caller's consumption against quotas.
func (h *Handler) GetUsage(w http.ResponseWriter, r *http.Request, userID string) {
	u, err := h.svc.Profiles.Usage(r.Context(), userID)
	if err != nil {
		h.writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toUsageResponse(u))
}

// SaveEmailConfig encrypts and stores the caller's mail credential.
func (h *Handler) SaveEmailConfig(w http.ResponseWriter, r *http.Request, userID string) {
	var req EmailConfigRequest
	if err := decode(w, r, &req); err != nil {
		h.writeFailure(w, err)
		return
	}

	if err := h.svc.Profiles.SaveEmailConfig(r.Context(), userID, req.Provider, req.Password); err != nil {
		h.writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, successResponse{Success: true, Message: "Email configuration saved"})
}

// DeleteEmailConfig clears the caller's stored mail credential.
func (h *Handler) DeleteEmailConfig(w http.ResponseWriter, r *http.Request, userID string) {
	if err := h.svc.Profiles.DeleteEmailConfig(r.Context(), userID); err != nil {
		h.writeFailure(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListNotificationUsers returns users opted in to full-version news.
func (h *Handler) ListNotificationUsers(w http.ResponseWriter, r *http.Request) {
	profiles, err := h.svc.Profiles.NotificationUsers(r.Context())
	if err != nil {
		h.writeFailure(w, err)
		return
	}

	users := make([]NotificationUserResponse, 0, len(profiles))
	for _, p := range profiles {
		users = append(users, NotificationUserResponse{
			ID:          p.ID,
			Username:    p.Username,
			CompanyName: p.CompanyName,
			Email:       p.Email,
			CreatedAt:   p.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	writeJSON(w, http.StatusOK, NotificationUsersResponse{Success: true, Count: len(users), Users: users})
}

// ListFeedback returns all stored feedback, newest first.
func (h *Handler) ListFeedback(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.Feedback.List(r.Context())
	if err != nil {
		h.writeFailure(w, err)
		return
	}

	resp := make([]FeedbackResponse, 0, len(items))
	for _, f := range items {
		resp = append(resp, toFeedbackResponse(f))
	}
	writeJSON(w, http.StatusOK, resp)
}

func toContactInput(req ContactRequest) application.ContactInput {
	return application.ContactInput{
		Name:          req.Name,
		Email:         req.Email,
		Company:       req.Company,
		Notes:         req.Notes,
		Tags:          req.Tags,
		Status:        model.ContactStatus(req.Status),
		FollowUpDate:  req.FollowUpDate,
		FollowUpNotes: req.FollowUpNotes,
	}
}

// failure is an error translated for the client.
type failure struct {
	status int
	msg    string
	code   string
}

// classify maps service and adapter errors to a status and a message that
// is safe to show. Unrecognized errors are logged and become a generic 500.
func (h *Handler) classify(err error) failure {
	var reqErr *requestError
	if errors.As(err, &reqErr) {
		return failure{http.StatusBadRequest, reqErr.msg, "VALIDATION"}
	}

	if se, ok := driven.AsSendError(err); ok {
		return sendFailure(se)
	}

	switch {
	case errors.Is(err, application.ErrRateLimited):
		return failure{http.StatusTooManyRequests, h.rateLimitMessage(), "RATE_LIMITED"}
	case errors.Is(err, application.ErrEmailQuotaReached):
		return failure{http.StatusForbidden, "Email limit reached. Refer friends to earn more emails.", "QUOTA_EXCEEDED"}
	case errors.Is(err, application.ErrContactLimitReached):
		return failure{http.StatusForbidden, "Contact limit reached. Refer friends to earn more contacts.", "QUOTA_EXCEEDED"}
	case errors.Is(err, application.ErrEmailNotConfigured):
		return failure{http.StatusBadRequest, "Email not configured", "EMAIL_NOT_CONFIGURED"}
	case errors.Is(err, application.ErrAlreadyEnrolled):
		return failure{http.StatusTooManyRequests, "You have already submitted an enrollment", "ALREADY_ENROLLED"}
	case errors.Is(err, application.ErrEnrollmentDisabled):
		return failure{http.StatusServiceUnavailable, "Enrollment is not available", "ENROLLMENT_DISABLED"}
	case errors.Is(err, application.ErrInvalidReferralCode):
		return failure{http.StatusBadRequest, "Invalid referral code", "INVALID_REFERRAL"}
	case errors.Is(err, application.ErrSelfReferral):
		return failure{http.StatusBadRequest, "Cannot refer yourself", "INVALID_REFERRAL"}
	case errors.Is(err, application.ErrReferralAlreadyUsed):
		return failure{http.StatusBadRequest, "User already used a referral code", "INVALID_REFERRAL"}
	case errors.Is(err, application.ErrInvalidStatus):
		return failure{http.StatusBadRequest, "Invalid contact status", "VALIDATION"}
	case errors.Is(err, application.ErrEmptyPassword):
		return failure{http.StatusBadRequest, "Password is required", "VALIDATION"}
	case errors.Is(err, driven.ErrContactNotFound):
		return failure{http.StatusNotFound, "contact not found", "NOT_FOUND"}
	case errors.Is(err, driven.ErrProfileNotFound):
		return failure{http.StatusNotFound, "profile not found", "NOT_FOUND"}
	case errors.Is(err, crypto.ErrDecryption):
		h.logger.Error("stored credential could not be decrypted", "error", err)
		return failure{http.StatusInternalServerError, "Failed to decrypt password", "EDECRYPT"}
	case errors.Is(err, application.ErrStorage):
		h.logger.Error("storage failure", "error", err)
		return failure{http.StatusInternalServerError, "Database error", "EDATABASE"}
	}

	h.logger.Error("unhandled request error", "error", err)
	return failure{http.StatusInternalServerError, "internal server error", "INTERNAL"}
}

func sendFailure(se *driven.SendError) failure {
	switch se.Code {
	case driven.SendErrorAuth:
		return failure{http.StatusInternalServerError, "Gmail authentication failed. Please check your app password.", string(se.Code)}
	case driven.SendErrorConnection:
		return failure{http.StatusInternalServerError, "Connection to Gmail failed. Please try again.", string(se.Code)}
	case driven.SendErrorEnvelope:
		return failure{http.StatusInternalServerError, providerMessage("Recipient rejected", se), string(se.Code)}
	default:
		return failure{http.StatusInternalServerError, providerMessage("Message rejected", se), string(se.Code)}
	}
}

func providerMessage(prefix string, se *driven.SendError) string {
	if se.ResponseCode == 0 {
		return prefix
	}
	return fmt.Sprintf("%s by mail server: %d %s", prefix, se.ResponseCode, se.Response)
}

func (h *Handler) rateLimitMessage() string {
	limit, window := 5, time.Minute
	if h.svc.Limiter != nil {
		limit, window = h.svc.Limiter.Max(), h.svc.Limiter.Window()
	}
	per := window.String()
	if window == time.Minute {
		per = "minute"
	}
	return fmt.Sprintf("Rate limit exceeded. Maximum %d emails per %s.", limit, per)
}

func (h *Handler) writeFailure(w http.ResponseWriter, err error) {
	f := h.classify(err)
	writeError(w, f.status, f.msg)
}

func (h *Handler) writeDispatchFailure(w http.ResponseWriter, err error) {
	f := h.classify(err)
	writeJSON(w, f.status, dispatchErrorResponse{Success: false, Error: f.msg, Code: f.code})
}
