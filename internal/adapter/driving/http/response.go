package httphandler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/coldrm/coldrm/internal/domain/model"
)

// writeJSON marshals v to JSON and writes it to the response with the given
// status code. If marshaling fails, a 500 error is written instead.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"internal server error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

// writeError writes a JSON error response with the given status code and message.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// errorResponse is the standard error response body.
type errorResponse struct {
	Error string `json:"error"`
}

// dispatchErrorResponse is the error body of the send endpoint, which the UI
// inspects for a machine-readable code.
type dispatchErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Code    string `json:"code"`
}

// successResponse acknowledges an action that returns no data.
type successResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type csrfResponse struct {
	Mode  string `json:"mode"`
	Token string `json:"token,omitempty"`
}

// HealthResponse is the JSON representation of the health check endpoint.
type HealthResponse struct {
	Status string `json:"status"`
	Time   string `json:"time"`
}

// EncryptPasswordResponse returns the ciphertext of a mail credential.
type EncryptPasswordResponse struct {
	Success           bool   `json:"success"`
	EncryptedPassword string `json:"encryptedPassword"`
}

// SendEmailResponse acknowledges an accepted message.
type SendEmailResponse struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	MessageID string `json:"messageId"`
}

// ReferralResponse reports the rewards credited by a redemption.
type ReferralResponse struct {
	Success        bool         `json:"success"`
	Message        string       `json:"message"`
	ReferrerReward model.Reward `json:"referrerReward"`
	RefereeReward  model.Reward `json:"refereeReward"`
}

// ContactResponse is the JSON representation of a CRM contact.
type ContactResponse struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	Email         string   `json:"email"`
	Company       string   `json:"company"`
	Notes         string   `json:"notes"`
	Tags          []string `json:"tags"`
	Status        string   `json:"status"`
	FollowUpDate  string   `json:"follow_up_date,omitempty"`
	FollowUpNotes string   `json:"follow_up_notes"`
	CreatedAt     string   `json:"created_at"`
	UpdatedAt     string   `json:"updated_at"`
}

// EmailHistoryResponse is one sent message in a contact's history.
type EmailHistoryResponse struct {
	ID        string `json:"id"`
	Recipient string `json:"recipient"`
	Subject   string `json:"subject"`
	Content   string `json:"content"`
	Status    string `json:"status"`
	MessageID string `json:"message_id"`
	SentAt    string `json:"sent_at"`
}

// ProfileResponse is the caller's own profile. The stored credential is
// reduced to a configured flag.
type ProfileResponse struct {
	ID                string `json:"id"`
	Username          string `json:"username"`
	CompanyName       string `json:"company_name"`
	Email             string `json:"email"`
	EmailProvider     string `json:"email_provider"`
	EmailConfigured   bool   `json:"email_configured"`
	ReferralCode      string `json:"referral_code"`
	ReferredBy        string `json:"referred_by,omitempty"`
	BonusEmails       int    `json:"bonus_emails"`
	BonusContacts     int    `json:"bonus_contacts"`
	Enrolled          bool   `json:"enrolled"`
	NotifyFullVersion bool   `json:"notify_full_version"`
	CreatedAt         string `json:"created_at"`
}

// UsageResponse reports consumption against quotas.
type UsageResponse struct {
	EmailsSent   int  `json:"emails_sent"`
	EmailLimit   int  `json:"email_limit"`
	Contacts     int  `json:"contacts"`
	ContactLimit int  `json:"contact_limit"`
	Unlimited    bool `json:"unlimited"`
}

// NotificationUserResponse is one opted-in user in the admin listing.
type NotificationUserResponse struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	CompanyName string `json:"company_name"`
	Email       string `json:"email"`
	CreatedAt   string `json:"created_at"`
}

// NotificationUsersResponse wraps the admin notification listing.
type NotificationUsersResponse struct {
	Success bool                       `json:"success"`
	Count   int                        `json:"count"`
	Users   []NotificationUserResponse `json:"users"`
}

// FeedbackResponse is one stored feedback entry.
type FeedbackResponse struct {
	ID          string `json:"id"`
	UserEmail   string `json:"user_email"`
	UserName    string `json:"user_name"`
	CompanyName string `json:"company_name"`
	Feedback    string `json:"feedback"`
	IssueURL    string `json:"issue_url,omitempty"`
	CreatedAt   string `json:"created_at"`
}

func toContactResponse(c model.Contact) ContactResponse {
	tags := c.Tags
	if tags == nil {
		tags = []string{}
	}
	return ContactResponse{
		ID:            c.ID,
		Name:          c.Name,
		Email:         c.Email,
		Company:       c.Company,
		Notes:         c.Notes,
		Tags:          tags,
		Status:        string(c.Status),
		FollowUpDate:  c.FollowUpDate,
		FollowUpNotes: c.FollowUpNotes,
		CreatedAt:     c.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:     c.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func toEmailHistoryResponse(e model.SendLogEntry) EmailHistoryResponse {
	return EmailHistoryResponse{
		ID:        e.ID,
		Recipient: e.Recipient,
		Subject:   e.Subject,
		Content:   e.Content,
		Status:    string(e.Status),
		MessageID: e.MessageID,
		SentAt:    e.SentAt.UTC().Format(time.RFC3339),
	}
}

func toProfileResponse(p *model.Profile) ProfileResponse {
	return ProfileResponse{
		ID:                p.ID,
		Username:          p.Username,
		CompanyName:       p.CompanyName,
		Email:             p.Email,
		EmailProvider:     p.EmailProvider,
		EmailConfigured:   p.HasCredential(),
		ReferralCode:      p.ReferralCode,
		ReferredBy:        p.ReferredBy,
		BonusEmails:       p.BonusEmails,
		BonusContacts:     p.BonusContacts,
		Enrolled:          p.Enrolled,
		NotifyFullVersion: p.NotifyFullVersion,
		CreatedAt:         p.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func toUsageResponse(u *model.Usage) UsageResponse {
	return UsageResponse{
		EmailsSent:   u.EmailsSent,
		EmailLimit:   u.EmailLimit,
		Contacts:     u.Contacts,
		ContactLimit: u.ContactLimit,
		Unlimited:    u.Unlimited,
	}
}

func toFeedbackResponse(f model.Feedback) FeedbackResponse {
	return FeedbackResponse{
		ID:          f.ID,
		UserEmail:   f.UserEmail,
		UserName:    f.UserName,
		CompanyName: f.CompanyName,
		Feedback:    f.Text,
		IssueURL:    f.IssueURL,
		CreatedAt:   f.CreatedAt.UTC().Format(time.RFC3339),
	}
}
