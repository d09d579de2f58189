package model

import "time"

// Profile is the per-user record. It carries the encrypted mail-account
// credential: EncryptedPassword is opaque ciphertext and is never decrypted
// outside a single dispatch request.
type Profile struct {
	ID                string
	Username          string
	CompanyName       string
	Email             string
	EmailProvider     string
	EncryptedPassword string
	EmailConfigured   bool
	ReferralCode      string
	ReferredBy        string
	BonusEmails       int
	BonusContacts     int
	Enrolled          bool
	NotifyFullVersion bool
	CreatedAt         time.Time
}

// HasCredential reports whether the profile holds a usable stored credential.
func (p *Profile) HasCredential() bool {
	return p != nil && p.EmailConfigured && p.EncryptedPassword != ""
}

// Usage summarizes a user's consumption against their quotas.
type Usage struct {
	EmailsSent   int
	EmailLimit   int
	Contacts     int
	ContactLimit int
	Unlimited    bool
}
