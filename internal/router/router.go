// Package router defines how HTTP routes are registered for the API.
package router

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/note-share/internal/config"
	"github.com/iliyamo/note-share/internal/handler"
	"github.com/iliyamo/note-share/internal/middleware"
)

// RegisterRoutes wires every endpoint of the service onto the Echo instance.
//
// Note routes are reachable by guests: they run behind OptionalIdentity,
// which extracts a bearer identity when present and otherwise lets the
// request through as anonymous — the access policy decides per note what the
// requester may do. Profile routes require a valid token. The Redis-backed
// limiter guards the anonymous-writable and credential endpoints, and the
// response cache fronts the read-only public listings.
func RegisterRoutes(e *echo.Echo, n *handler.NoteHandler, a *handler.AuthHandler, p *handler.ProfileHandler, jwtSecret string, rdb *redis.Client) {
	e.GET("/healthz", handler.Health)

	rl := middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb)
	cache := middleware.NewRedisCache(config.LoadCacheConfig(), rdb)

	// Public, identity-aware note surface.
	notes := e.Group("", middleware.OptionalIdentity(jwtSecret))
	notes.GET("/", n.Index, cache)
	notes.GET("/search", n.Search)
	notes.POST("/search", n.Search)
	notes.GET("/stats", n.Stats, cache)
	notes.GET("/create", n.Create, rl)
	notes.GET("/edit/:publicId", n.Edit)
	notes.POST("/edit/:publicId", n.Edit)
	notes.GET("/edit/:publicId/delete", n.Delete)
	notes.GET("/view/:publicId", n.View)
	notes.GET("/user/:username", n.UserNotes)

	// Credential flows.
	e.GET("/register", a.RegisterForm)
	e.POST("/register", a.Register, rl)
	e.GET("/login", a.LoginForm)
	e.POST("/login", a.Login, rl)
	e.POST("/refresh", a.Refresh)
	e.GET("/logout", a.Logout, middleware.OptionalIdentity(jwtSecret))
	e.POST("/logout", a.Logout, middleware.OptionalIdentity(jwtSecret))

	// Account management requires a logged-in user.
	profile := e.Group("/profile", middleware.JWTAuth(jwtSecret))
	profile.GET("", p.Get)
	profile.POST("", p.Update)
	profile.GET("/delete/:userId", p.Delete)
}
