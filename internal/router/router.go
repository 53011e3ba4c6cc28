// Package router wires handlers and middleware onto the echo instance.
package router

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/iliyamo/daycare-center/internal/handler"
	"github.com/iliyamo/daycare-center/internal/middleware"
	"github.com/iliyamo/daycare-center/internal/model"
)

// Handlers bundles everything RegisterRoutes mounts.
type Handlers struct {
	Auth     *handler.AuthHandler
	Me       *handler.MeHandler
	Accounts *handler.AccountsHandler
	Children *handler.ChildrenHandler
	Content  *handler.ContentHandler
}

// Middlewares carries the Redis-backed middleware built in main.  Nil
// fields are replaced by pass-throughs.
type Middlewares struct {
	RateLimit echo.MiddlewareFunc
	Cache     echo.MiddlewareFunc
}

func passThrough(next echo.HandlerFunc) echo.HandlerFunc { return next }

// RegisterRoutes mounts the probes, the public API, the authenticated
// self-service routes and the staff routes.
func RegisterRoutes(e *echo.Echo, h Handlers, mw Middlewares, jwtSecret string) {
	if mw.RateLimit == nil {
		mw.RateLimit = passThrough
	}
	if mw.Cache == nil {
		mw.Cache = passThrough
	}

	e.GET("/healthz", handler.Health)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	api := e.Group("/api")

	// public
	auth := api.Group("/auth")
	auth.POST("/register", h.Auth.Register)
	auth.POST("/login", h.Auth.Login, mw.RateLimit)
	auth.POST("/refresh", h.Auth.Refresh)

	api.GET("/registered-children/match", h.Children.Match, mw.RateLimit)
	api.GET("/posts", h.Content.Posts, mw.Cache)
	api.GET("/album-photos", h.Content.AlbumPhotos, mw.Cache)
	api.GET("/classes", h.Content.Classes, mw.Cache)
	api.GET("/site-settings", h.Content.SiteSettings, mw.Cache)

	// any authenticated role
	jwt := middleware.JWTAuth(jwtSecret)
	auth.POST("/logout", h.Auth.Logout, jwt)

	me := api.Group("/me", jwt)
	me.GET("", h.Me.Get)
	me.PUT("", h.Me.Update)
	me.PUT("/password", h.Me.ChangePassword)
	me.GET("/posts", h.Me.Posts)

	// staff
	posts := api.Group("/posts", jwt, middleware.RequireRole(model.RoleAdmin, model.RoleTeacher, model.RoleNutritionist))
	posts.POST("", h.Content.CreatePost)
	posts.PUT("/:id", h.Content.UpdatePost)
	posts.DELETE("/:id", h.Content.DeletePost)

	photos := api.Group("/album-photos", jwt, middleware.RequireRole(model.RoleAdmin, model.RoleTeacher))
	photos.POST("", h.Content.CreateAlbumPhoto)
	photos.DELETE("/:id", h.Content.DeleteAlbumPhoto)

	admin := api.Group("/admin", jwt, middleware.RequireRole(model.RoleAdmin))
	registerAdmin(admin, h)
}

func registerAdmin(g *echo.Group, h Handlers) {
	g.GET("/users", h.Accounts.ListUsers)
	g.POST("/users", h.Accounts.CreateUser)
	g.PUT("/users/:id", h.Accounts.UpdateUser)
	g.PUT("/users/:id/approval", h.Accounts.SetUserApproval)
	g.PUT("/users/:id/password", h.Accounts.ResetUserPassword)
	g.DELETE("/users/:id", h.Accounts.DeleteUser)

	g.GET("/teachers", h.Accounts.ListTeachers)
	g.POST("/teachers", h.Accounts.CreateTeacher)
	g.PUT("/teachers/:id", h.Accounts.UpdateTeacher)
	g.PUT("/teachers/:id/approval", h.Accounts.SetTeacherApproval)
	g.PUT("/teachers/:id/password", h.Accounts.ResetTeacherPassword)
	g.DELETE("/teachers/:id", h.Accounts.DeleteTeacher)

	g.GET("/registered-children", h.Children.List)
	g.POST("/registered-children", h.Children.Create)
	g.PUT("/registered-children/:id", h.Children.Update)
	g.DELETE("/registered-children/:id", h.Children.Delete)
	g.POST("/reconcile", h.Children.Reconcile)

	g.POST("/classes", h.Content.CreateClass)
	g.PUT("/classes/:id", h.Content.UpdateClass)
	g.DELETE("/classes/:id", h.Content.DeleteClass)
	g.PUT("/site-settings", h.Content.UpdateSiteSettings)
}
