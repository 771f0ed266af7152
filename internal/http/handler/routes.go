package handler

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"

	"docarchive/internal/http/middleware"
	"docarchive/internal/rolegate"
	"docarchive/internal/service"
)

// Deps carries what the routes need.
type Deps struct {
	Backend       Pinger
	Gates         *rolegate.Registry
	Documents     service.DocumentService
	Categories    service.CategoryService
	Users         service.UserService
	Profiles      service.ProfileService
	Gatherer      prometheus.Gatherer
	Location      *time.Location
	PresignExpiry time.Duration
	Now           func() time.Time
}

// RegisterRoutes attaches HTTP routes to the provided Fiber app. Everything under
// /api runs with the caller identity; guarded routes wait for the role check.
func RegisterRoutes(app *fiber.App, d Deps) {
	if d.Location == nil {
		d.Location = time.UTC
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.PresignExpiry <= 0 {
		d.PresignExpiry = 15 * time.Minute
	}

	app.Get("/healthz", LivenessProbe())
	app.Get("/health", HealthCheck(d.Backend))
	if d.Gatherer != nil {
		app.Get("/metrics", Metrics(d.Gatherer))
	}

	api := app.Group("/api", middleware.Identity())
	user := middleware.RequireRole(d.Gates, rolegate.Guard{RequireUser: true})
	admin := middleware.RequireRole(d.Gates, rolegate.Guard{RequireUser: true, RequireAdmin: true})

	api.Get("/session", GetSession(d.Gates))
	api.Delete("/session", DeleteSession(d.Gates))
	api.Post("/session/retry", RetrySession(d.Gates))
	api.Post("/auth/login", Login(d.Users))

	api.Get("/categories", user, ListCategories(d.Categories))
	api.Get("/categories/:id/offices", user, ListOffices(d.Categories))
	api.Post("/categories", admin, CreateCategory(d.Categories))
	api.Put("/categories/:id", admin, RenameCategory(d.Categories))
	api.Delete("/categories/:id", admin, DeleteCategory(d.Categories))
	api.Post("/categories/:id/offices", admin, AddOffice(d.Categories))
	api.Put("/categories/:id/offices/:officeId", admin, RenameOffice(d.Categories))
	api.Delete("/categories/:id/offices/:officeId", admin, RemoveOffice(d.Categories))

	api.Get("/documents", user, ListDocuments(d.Documents, d.Location))
	api.Get("/documents/export", user, ExportDocuments(d.Documents, d.Location, d.Now))
	api.Get("/documents/:id", user, GetDocument(d.Documents))
	api.Get("/documents/:id/content", user, DocumentContent(d.Documents, d.PresignExpiry))
	api.Post("/documents", user, UploadDocument(d.Documents, d.Location))
	api.Delete("/documents/:id", user, DeleteDocument(d.Documents))

	api.Get("/dashboard", user, Dashboard(d.Documents))
	api.Get("/profile", user, GetProfile(d.Profiles))
	api.Put("/profile", user, SaveProfile(d.Profiles))

	api.Get("/users", admin, ListUsers(d.Users))
	api.Post("/users", admin, CreateUser(d.Users))
	api.Put("/users/:username", admin, UpdateUser(d.Users))
	api.Delete("/users/:username", admin, DeleteUser(d.Users))
}
