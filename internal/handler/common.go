// Package handler defines the HTTP handlers. Handlers stay thin: they bind
// and validate input, fetch via repositories, ask the access package for a
// decision and translate the outcome into a JSON response or a redirect.
package handler

import (
	"net/url"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/note-share/internal/access"
	"github.com/iliyamo/note-share/internal/middleware"
)

// requester builds the explicit identity passed into access.Resolve from the
// context values set by the JWT middleware. With no (or an invalid) token the
// anonymous identity comes back.
func requester(c echo.Context) access.Identity {
	var id access.Identity
	switch v := c.Get(middleware.CtxUserID).(type) {
	case uint64:
		id.UserID = v
	case float64:
		// JWT numeric claims decode as float64.
		id.UserID = uint64(v)
	}
	if s, ok := c.Get(middleware.CtxUsername).(string); ok {
		id.Username = s
	}
	return id
}

// userNotesPath builds the redirect target for a user's listing page.
// Usernames may contain reserved URL characters, so the segment is
// percent-encoded whenever it is embedded in a generated link.
func userNotesPath(username string) string {
	return "/user/" + url.PathEscape(username)
}

func viewPath(publicID string) string {
	return "/view/" + publicID
}

func editPath(publicID string) string {
	return "/edit/" + publicID
}
