package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/phrazzld/bookshelf-api/internal/api"
	"github.com/phrazzld/bookshelf-api/internal/api/middleware"
)

// setupRouter creates the router with all routes and middleware.
func (app *application) setupRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RealIP)
	r.Use(middleware.TraceMiddleware(app.logger))
	r.Use(chimiddleware.Recoverer)

	authHandler := api.NewAuthHandler(app.userService, app.logger)
	bookHandler := api.NewBookHandler(app.bookService, app.config.Server.BaseURL, app.logger)
	authMiddleware := middleware.NewAuthMiddleware(app.jwtService)

	r.Route("/api", func(r chi.Router) {
		r.Use(app.rateLimiter.Middleware)
		r.Use(middleware.MaxBodyBytes(app.config.Server.MaxUploadBytes))

		// The short signup and signin paths are kept for older clients.
		r.Post("/signup", authHandler.Signup)
		r.Post("/signin", authHandler.Signin)
		r.Post("/auth/signup", authHandler.Signup)
		r.Post("/auth/signin", authHandler.Signin)
		r.Post("/auth/refresh", authHandler.RefreshToken)

		r.Route("/books", func(r chi.Router) {
			r.Get("/", bookHandler.ListBooks)
			r.Get("/bestrating", bookHandler.BestRatedBooks)
			r.Get("/{id}", bookHandler.GetBook)

			r.Group(func(r chi.Router) {
				r.Use(authMiddleware.Authenticate)
				r.Post("/", bookHandler.CreateBook)
				r.Put("/{id}", bookHandler.UpdateBook)
				r.Delete("/{id}", bookHandler.DeleteBook)
				r.Post("/{id}/rating", bookHandler.RateBook)
			})
		})
	})

	uploadsPath := "/" + app.images.URLPrefix() + "/"
	uploads := http.StripPrefix(uploadsPath, http.FileServer(http.Dir(app.images.Dir())))
	r.Get(uploadsPath+"*", uploads.ServeHTTP)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			app.logger.Error("failed to write health check response")
		}
	})

	return r
}
