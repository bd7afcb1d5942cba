package handler

import (
	"database/sql"

	"github.com/gofiber/fiber/v2"

	"docgate/internal/http/middleware"
	"docgate/internal/service"
)

// Deps are the collaborators the HTTP surface is built from. Auth and
// Tracker guard every route except the probes.
type Deps struct {
	DB          *sql.DB
	Documents   service.DocumentService
	Translation service.TranslationService
	Review      service.ReviewService
	Sessions    SessionStore
	Tracker     middleware.SessionTracker
	Circuits    CircuitLister
	Operators   OperatorCheck
	Auth        fiber.Handler
}

// RegisterRoutes attaches HTTP routes to the provided Fiber app.
// Handlers stay thin; business rules live in the service layer.
func RegisterRoutes(app *fiber.App, d Deps) {
	app.Get("/health", HealthCheck(d.DB))
	app.Get("/healthz", LivenessProbe())

	var guard []fiber.Handler
	if d.Auth != nil {
		guard = append(guard, d.Auth)
	}
	if d.Tracker != nil {
		guard = append(guard, middleware.SessionLimit(d.Tracker))
	}
	protect := func(h fiber.Handler) []fiber.Handler {
		return append(append([]fiber.Handler{}, guard...), h)
	}

	if d.Circuits != nil && d.Translation != nil {
		app.Get("/circuits", protect(ListCircuits(d.Circuits, d.Translation))...)
	}
	if d.Translation != nil && d.Operators != nil {
		app.Post("/service/resume", protect(ResumeService(d.Translation, d.Operators))...)
	}

	if d.Documents != nil {
		app.Post("/documents", protect(UploadDocument(d.Documents))...)
		app.Get("/documents", protect(ListDocuments(d.Documents))...)
		app.Get("/documents/stat", protect(StatDocument(d.Documents))...)
	}

	if d.Translation != nil {
		app.Post("/summaries", protect(GenerateSummary(d.Translation))...)
	}
	if d.Review != nil {
		app.Get("/summaries/pending", protect(ListPending(d.Review))...)
		app.Get("/summaries/:id", protect(GetSummary(d.Review))...)
		app.Post("/summaries/:id/approve", protect(ApproveSummary(d.Review))...)
		app.Post("/summaries/:id/reject", protect(RejectSummary(d.Review))...)
		app.Post("/summaries/:id/publish", protect(PublishSummary(d.Review))...)
	}

	if d.Sessions != nil {
		app.Post("/sessions", protect(CreateSession(d.Sessions))...)
		app.Delete("/sessions/:id", protect(DeleteSession(d.Sessions))...)
	}
}
