package routes

import (
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/robostage/arena/handlers"
	"github.com/robostage/arena/middleware"
	"github.com/robostage/arena/models"
)

// Handlers bundles everything the router mounts.
type Handlers struct {
	Auth       *handlers.AuthHandler
	Tournament *handlers.TournamentHandler
	Team       *handlers.TeamHandler
	Stage      *handlers.StageHandler
	Match      *handlers.MatchHandler
	Display    *handlers.DisplayHandler
	WebSocket  *handlers.WebSocketHandler
}

func InitRoutes(h Handlers, jwtSecret []byte, allowedOrigins []string) *chi.Mux {
	router := chi.NewRouter()

	router.Use(chiMiddleware.Logger)
	router.Use(chiMiddleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	router.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	router.Post("/users/signup", h.Auth.Register)
	router.Post("/users/signin", h.Auth.Login)

	router.Get("/ws/tournaments/{tournamentID}", h.WebSocket.Serve)

	router.Route("/tournaments", func(r chi.Router) {
		r.Get("/", h.Tournament.List)
		r.Get("/{tournamentID}", h.Tournament.GetByID)
		r.Get("/{tournamentID}/teams", h.Team.ListByTournament)
		r.Get("/{tournamentID}/display", h.Display.GetDisplay)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Authenticate(jwtSecret))
			r.Use(middleware.Authorize(string(models.RoleAdmin), string(models.RoleScorer)))

			r.Post("/{tournamentID}/display", h.Display.SetDisplay)
			r.Post("/{tournamentID}/announcement", h.Display.Announce)
			r.Post("/{tournamentID}/timer/{action}", h.Display.Timer)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.Authenticate(jwtSecret))
			r.Use(middleware.Authorize(string(models.RoleAdmin)))

			r.Post("/{tournamentID}/teams", h.Team.Create)
		})
	})

	router.Route("/teams", func(r chi.Router) {
		r.Get("/{teamID}", h.Team.GetByID)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Authenticate(jwtSecret))
			r.Use(middleware.Authorize(string(models.RoleAdmin)))

			r.Post("/{teamID}/logo", h.Team.UploadLogo)
		})
	})

	router.Route("/stages", func(r chi.Router) {
		r.Get("/{stageID}/rankings", h.Stage.GetRankings)
		r.Get("/{stageID}/matches", h.Stage.ListMatches)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Authenticate(jwtSecret))
			r.Use(middleware.Authorize(string(models.RoleAdmin)))

			r.Post("/{stageID}/rankings", h.Stage.RecalculateRankings)
			r.Post("/{stageID}/rounds", h.Stage.GenerateRound)
		})
	})

	router.Route("/matches", func(r chi.Router) {
		r.Get("/{matchID}", h.Match.GetByID)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Authenticate(jwtSecret))
			r.Use(middleware.Authorize(string(models.RoleAdmin), string(models.RoleScorer)))

			r.Patch("/{matchID}/score", h.Match.UpdateScore)
			r.Post("/{matchID}/status", h.Match.SetStatus)
		})
	})

	return router
}
