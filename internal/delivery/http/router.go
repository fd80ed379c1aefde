package http

import (
	"net/http"

	"clinic-backoffice/internal/delivery/http/handler"
	"clinic-backoffice/internal/delivery/http/middleware"

	"github.com/gorilla/mux"
)

type Router struct {
	router         *mux.Router
	authHandler    *handler.AuthHandler
	bookingHandler *handler.BookingHandler
	feedHandler    *handler.FeedHandler
	authMiddleware *middleware.AuthMiddleware
	corsMiddleware *middleware.CORSMiddleware
}

func NewRouter(
	authHandler *handler.AuthHandler,
	bookingHandler *handler.BookingHandler,
	feedHandler *handler.FeedHandler,
	authMiddleware *middleware.AuthMiddleware,
	corsMiddleware *middleware.CORSMiddleware,
) *Router {
	return &Router{
		router:         mux.NewRouter(),
		authHandler:    authHandler,
		bookingHandler: bookingHandler,
		feedHandler:    feedHandler,
		authMiddleware: authMiddleware,
		corsMiddleware: corsMiddleware,
	}
}

func (r *Router) Setup() *mux.Router {
	// API versioning
	api := r.router.PathPrefix("/api/v1").Subrouter()

	// Health check
	api.HandleFunc("/health", r.healthCheck).Methods(http.MethodGet)

	// Auth routes
	auth := api.PathPrefix("/auth").Subrouter()
	auth.HandleFunc("/login", r.authHandler.Login).Methods(http.MethodPost)

	authProtected := api.PathPrefix("/auth").Subrouter()
	authProtected.Use(r.authMiddleware.Authenticate)
	authProtected.HandleFunc("/logout", r.authHandler.Logout).Methods(http.MethodPost)

	// Code verification exists on the priority queue only. Registered ahead
	// of the shared {kind} prefix because mux subrouters do not backtrack.
	api.Handle("/priority/bookings/verify-code",
		r.authMiddleware.Authenticate(http.HandlerFunc(r.bookingHandler.VerifyCode))).
		Methods(http.MethodPost)

	// The standard and priority booking families share one handler set,
	// selected by the {kind} segment.
	kinds := api.PathPrefix("/{kind:standard|priority}").Subrouter()

	// Public reads: snapshot/stream feed and archives.
	kinds.HandleFunc("/bookings/days", r.feedHandler.Days).Methods(http.MethodGet)
	kinds.HandleFunc("/bookings/archives/{clinic_id:[0-9]+}", r.bookingHandler.ListArchives).Methods(http.MethodGet)

	// Mutations require a back-office token.
	mutating := kinds.PathPrefix("/bookings").Subrouter()
	mutating.Use(r.authMiddleware.Authenticate)
	mutating.HandleFunc("/table", r.bookingHandler.CreateTable).Methods(http.MethodPost)
	mutating.HandleFunc("/day", r.bookingHandler.AddDay).Methods(http.MethodPost)
	mutating.HandleFunc("/edit", r.bookingHandler.EditStatus).Methods(http.MethodPost)
	mutating.HandleFunc("/close", r.bookingHandler.CloseTable).Methods(http.MethodPost)
	mutating.HandleFunc("/snapshot", r.bookingHandler.SaveSnapshot).Methods(http.MethodPost)
	mutating.HandleFunc("", r.bookingHandler.Book).Methods(http.MethodPost)

	r.router.Use(r.corsMiddleware.Handle)

	return r.router
}

func (r *Router) healthCheck(w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status": "ok"}`))
}
