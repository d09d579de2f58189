package web

import (
	"time"

	vm "github.com/coldrm/coldrm/internal/adapter/driving/web/viewmodel"
	"github.com/coldrm/coldrm/internal/domain/model"
)

// toFeedbackEntryViewModel converts stored feedback into a card. The text is
// rendered as sanitized markdown.
func toFeedbackEntryViewModel(f model.Feedback) vm.FeedbackEntryViewModel {
	return vm.FeedbackEntryViewModel{
		ID:          f.ID,
		From:        f.UserName,
		Email:       f.UserEmail,
		Company:     f.CompanyName,
		SubmittedAt: f.CreatedAt.UTC().Format(time.RFC1123),
		BodyHTML:    RenderMarkdown(f.Text),
		IssueURL:    f.IssueURL,
	}
}

func toFeedbackPageViewModel(items []model.Feedback) vm.FeedbackPageViewModel {
	page := vm.FeedbackPageViewModel{
		Entries: make([]vm.FeedbackEntryViewModel, 0, len(items)),
		Total:   len(items),
	}
	for _, f := range items {
		if f.IssueURL != "" {
			page.Filed++
		}
		page.Entries = append(page.Entries, toFeedbackEntryViewModel(f))
	}
	return page
}
