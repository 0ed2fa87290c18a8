package testutil

import (
	"net/http"

	"volid/pkg/requestcontext"
)

// AsCaller attaches caller to the request context, as RequireAuth would after
// validating a token. The zero CallerInfo leaves the request anonymous.
func AsCaller(req *http.Request, caller requestcontext.CallerInfo) *http.Request {
	if !caller.IsAuthenticated() {
		return req
	}
	return req.WithContext(requestcontext.WithCaller(req.Context(), caller))
}

// Applicant is a non-admin caller.
func Applicant(userID string) requestcontext.CallerInfo {
	return requestcontext.CallerInfo{UserID: userID, Role: requestcontext.RoleUser}
}

// Admin is a caller holding the admin role.
func Admin(userID string) requestcontext.CallerInfo {
	return requestcontext.CallerInfo{UserID: userID, Role: requestcontext.RoleAdmin}
}
