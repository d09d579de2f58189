package httphandler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

// maxBodyBytes bounds every JSON request body.
const maxBodyBytes = 1 << 20

var validate = validator.New()

// emailRegex is the loose address check the UI has always applied.
var emailRegex = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

func init() {
	_ = validate.RegisterValidation("mailaddr", func(fl validator.FieldLevel) bool {
		return emailRegex.MatchString(fl.Field().String())
	})
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
}

// requestError is a client error with a message safe to return as-is.
type requestError struct {
	msg string
}

func (e *requestError) Error() string { return e.msg }

// decode reads a JSON body into v and validates it. Failures are returned as
// *requestError carrying a field-specific message.
func decode(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return &requestError{msg: "invalid request body"}
	}

	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return fmt.Errorf("validate request: %w", err)
	}
	return &requestError{msg: validationMessage(v, pickFieldError(verrs))}
}

// pickFieldError reports missing fields before malformed ones.
func pickFieldError(verrs validator.ValidationErrors) validator.FieldError {
	for _, fe := range verrs {
		if fe.Tag() == "required" {
			return fe
		}
	}
	return verrs[0]
}

// validationMessage builds the user-facing message for fe. A field's errmsg
// tag overrides the generic message for a missing value.
func validationMessage(v any, fe validator.FieldError) string {
	if fe.Tag() == "required" {
		t := reflect.TypeOf(v)
		if t.Kind() == reflect.Pointer {
			t = t.Elem()
		}
		if f, ok := t.FieldByName(fe.StructField()); ok {
			if msg := f.Tag.Get("errmsg"); msg != "" {
				return msg
			}
		}
	}

	switch fe.Tag() {
	case "required":
		return "Missing " + fe.Field()
	case "mailaddr":
		return "Invalid email format"
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", fe.Field(), fe.Param())
	case "datetime":
		return fmt.Sprintf("%s must be a date (YYYY-MM-DD)", fe.Field())
	default:
		return "Invalid " + fe.Field()
	}
}

// SendEmailRequest is the body of POST /api/send-email-smtp.
type SendEmailRequest struct {
	To          string `json:"to" validate:"required,mailaddr" errmsg:"Missing recipient email (to)"`
	Subject     string `json:"subject" validate:"required,max=200" errmsg:"Missing email subject"`
	Content     string `json:"content" validate:"required,max=10000" errmsg:"Missing email content"`
	UserID      string `json:"userId" validate:"required" errmsg:"Missing userId"`
	FromEmail   string `json:"fromEmail" validate:"required,mailaddr" errmsg:"Missing sender email (fromEmail)"`
	ContactName string `json:"contactName" validate:"max=200"`
	ContactID   string `json:"contactId" validate:"max=100"`
	FromName    string `json:"fromName" validate:"max=200"`
	FromCompany string `json:"fromCompany" validate:"max=200"`
}

// EncryptPasswordRequest is the body of POST /api/encrypt-password.
type EncryptPasswordRequest struct {
	Password string `json:"password" validate:"required,max=1024" errmsg:"Password is required"`
}

// EnrollmentRequest is the body of POST /api/send-enrollment.
type EnrollmentRequest struct {
	Name      string `json:"name" validate:"required,max=200" errmsg:"Missing required fields"`
	Email     string `json:"email" validate:"required,mailaddr" errmsg:"Missing required fields"`
	Reason    string `json:"reason" validate:"required,max=5000" errmsg:"Missing required fields"`
	Feedback  string `json:"feedback" validate:"required,max=5000" errmsg:"Missing required fields"`
	UserEmail string `json:"userEmail" validate:"required,mailaddr" errmsg:"Missing required fields"`
	UserID    string `json:"userId" validate:"required" errmsg:"Missing required fields"`
}

// FeedbackRequest is the body of POST /api/send-feedback.
type FeedbackRequest struct {
	UserEmail   string `json:"userEmail" validate:"required,mailaddr" errmsg:"Email and feedback are required"`
	Feedback    string `json:"feedback" validate:"required,max=10000" errmsg:"Email and feedback are required"`
	UserName    string `json:"userName" validate:"max=200"`
	CompanyName string `json:"companyName" validate:"max=200"`
}

// ReferralRequest is the body of POST /api/process-referral.
type ReferralRequest struct {
	RefereeID    string `json:"refereeId" validate:"required" errmsg:"Missing required fields"`
	ReferralCode string `json:"referralCode" validate:"required,max=32" errmsg:"Missing required fields"`
}

// ContactRequest is the body of contact create and update.
type ContactRequest struct {
	Name          string   `json:"name" validate:"required,max=200" errmsg:"Name is required"`
	Email         string   `json:"email" validate:"required,mailaddr" errmsg:"Email is required"`
	Company       string   `json:"company" validate:"max=200"`
	Notes         string   `json:"notes" validate:"max=5000"`
	Tags          []string `json:"tags" validate:"max=20,dive,max=50"`
	Status        string   `json:"status" validate:"omitempty,oneof=lead prospect customer inactive"`
	FollowUpDate  string   `json:"follow_up_date" validate:"omitempty,datetime=2006-01-02"`
	FollowUpNotes string   `json:"follow_up_notes" validate:"max=2000"`
}

// ProfileRequest is the body of POST /api/profile.
type ProfileRequest struct {
	Username          string `json:"username" validate:"max=100"`
	CompanyName       string `json:"company_name" validate:"max=200"`
	Email             string `json:"email" validate:"omitempty,mailaddr"`
	NotifyFullVersion bool   `json:"notify_full_version"`
}

// EmailConfigRequest is the body of PUT /api/profile/email-config.
type EmailConfigRequest struct {
	Provider string `json:"provider" validate:"omitempty,max=50"`
	Password string `json:"password" validate:"required,max=1024" errmsg:"Password is required"`
}
