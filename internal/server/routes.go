package server

import (
	"log/slog"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/swaggest/swgui/v5emb"
)

func addRoutes(r chi.Router, logger *slog.Logger, deps Deps) {
	broker := deps.Broker
	if broker == nil {
		broker = NewBroker()
	}

	r.Get("/openapi.json", handleOpenAPI())
	r.Mount("/docs", v5emb.New("Signal Check API", "/openapi.json", "/docs"))

	// Assessment flow. {token} is resolved by sessionMiddleware.
	r.Route("/api/assessment", func(r chi.Router) {
		r.Get("/catalog", handleCatalog(deps.Sessions.Catalog()))
		r.Post("/score", handleScore(deps.Sessions.Catalog(), deps.BookingURL))
		r.Post("/sessions", handleCreateSession(deps.Sessions))

		r.Route("/sessions/{token}", func(r chi.Router) {
			// Works after the live session is gone.
			r.Get("/result", handleResult(deps.Sessions, deps.BookingURL, logger))

			r.Group(func(r chi.Router) {
				r.Use(sessionMiddleware(deps.Sessions))
				r.Get("/", handleGetSession())
				r.Get("/answers/{questionID}", handleGetAnswer())
				r.Put("/answers/{questionID}", handleSetAnswer())
				r.Post("/next", handleNavigate(navNext))
				r.Post("/previous", handleNavigate(navPrevious))
				r.Post("/goto", handleGoTo())
				r.Post("/submit", handleSubmit(deps.BookingURL))
				r.Post("/reset", handleReset())
			})
		})
	})

	// Admin auth.
	r.Post("/api/admin/login", handleAdminLogin(deps.Admin, deps.AdminSessionTTL, logger))
	r.Post("/api/admin/logout", handleAdminLogout(deps.Admin, logger))

	r.Route("/api/admin", func(r chi.Router) {
		r.Use(adminAuthMiddleware(deps.Admin))
		r.Get("/me", handleAdminMe())

		r.Get("/leads", handleAdminListLeads(deps.Leads))
		r.Get("/leads/export.csv", handleAdminExportCSV(deps.Leads, logger))
		r.Get("/leads/export.xlsx", handleAdminExportXLSX(deps.Leads, logger))
		r.Get("/leads/{id}", handleAdminGetLead(deps.Leads))
		r.Delete("/leads/{id}", handleAdminDeleteLead(deps.Leads, broker, logger))

		r.Get("/users", handleAdminListUsers(deps.Leads))
		r.Delete("/users/{email}", handleAdminDeleteUser(deps.Leads, broker, logger))

		r.Get("/stats", handleAdminStats(deps.Leads))
		r.Get("/analytics", handleAdminAnalytics(deps.Leads))

		r.Get("/feed", handleAdminFeed(broker, logger))
	})

	if deps.SPADir != "" {
		if info, err := os.Stat(deps.SPADir); err == nil && info.IsDir() {
			logger.Info("serving SPA", "dir", deps.SPADir)
			r.NotFound(handleSPA(deps.SPADir))
		}
	}
}
