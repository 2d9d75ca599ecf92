package core

// Scope is the subset of contributions a query targets: one user's records
// or the full admin-visible set.
type Scope struct {
	UserID string // empty means all users
}

// ScopeAll covers every record visible to an admin.
var ScopeAll = Scope{}

// ScopeUser restricts to a single owner.
func ScopeUser(userID string) Scope {
	return Scope{UserID: userID}
}

// All reports whether the scope covers every user.
func (s Scope) All() bool { return s.UserID == "" }

// Matches reports whether a record owned by ownerID falls inside the scope.
func (s Scope) Matches(ownerID string) bool {
	return s.All() || s.UserID == ownerID
}

func (s Scope) String() string {
	if s.All() {
		return "all"
	}
	return "user:" + s.UserID
}
