package core

// Session identifies the authenticated caller of a data operation.
// It is built once per request (from the auth token) and passed explicitly down to every service.
type Session struct {
	UserID    string
	CompanyID string
	Email     string
	Name      string
	IsAdmin   bool
	Roles     []string
}

// IsAuthenticated reports whether the session belongs to a known user.
func (s Session) IsAuthenticated() bool {
	return s.UserID != ""
}

// CanAccess reports whether content owned by companyID is visible in this session.
// Content without a company is shared by all companies.
func (s Session) CanAccess(companyID string) bool {
	return companyID == "" || s.IsAdmin || companyID == s.CompanyID
}
