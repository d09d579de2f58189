package application

// AdminSet holds the user IDs exempt from rate limits and quotas and allowed
// on admin routes.
type AdminSet map[string]struct{}

// NewAdminSet builds an AdminSet, ignoring empty IDs.
func NewAdminSet(ids []string) AdminSet {
	set := make(AdminSet, len(ids))
	for _, id := range ids {
		if id != "" {
			set[id] = struct{}{}
		}
	}
	return set
}

// Contains reports whether userID is an administrator.
func (a AdminSet) Contains(userID string) bool {
	_, ok := a[userID]
	return ok
}
