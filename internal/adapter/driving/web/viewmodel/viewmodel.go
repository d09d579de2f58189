// Package viewmodel defines presentation-ready structs for templ components.
// View models decouple template rendering from domain model types.
package viewmodel

// FeedbackEntryViewModel holds presentation-ready data for one feedback card
// on the admin review page.
type FeedbackEntryViewModel struct {
	ID          string
	From        string
	Email       string
	Company     string
	SubmittedAt string
	BodyHTML    string // Sanitized HTML rendered from the markdown text.
	IssueURL    string
}

// FeedbackPageViewModel holds everything the admin review page renders.
type FeedbackPageViewModel struct {
	Entries []FeedbackEntryViewModel
	Total   int
	Filed   int // Entries also filed on the issue tracker.
}
