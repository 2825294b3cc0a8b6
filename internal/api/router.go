// Package api exposes the lending engine over HTTP/JSON.
package api

import (
	"net/http"

	"github.com/jmoiron/sqlx"

	"github.com/erazemk/izposoja/internal/lending"
	"github.com/erazemk/izposoja/internal/model"
)

// NewRouter creates the API router with all endpoints registered.
func NewRouter(db *sqlx.DB, svc *lending.Service, jwtSecret string) http.Handler {
	mux := http.NewServeMux()

	authHandler := &AuthHandler{DB: db, JWTSecret: jwtSecret}
	usersHandler := &UsersHandler{DB: db}
	booksHandler := &BooksHandler{Lending: svc}
	loansHandler := &LoansHandler{Lending: svc}
	cartHandler := &CartHandler{Lending: svc}
	reservationsHandler := &ReservationsHandler{Lending: svc}

	authMW := AuthMiddleware(jwtSecret, db)
	requireAdmin := RequireRole(model.RoleAdmin)
	requireLibrarian := RequireRole(model.RoleLibrarian)

	// Public: login.
	mux.HandleFunc("POST /api/auth/login", authHandler.Login)

	// Authenticated routes.
	mux.Handle("PUT /api/auth/password", authMW(http.HandlerFunc(authHandler.ChangePassword)))
	mux.Handle("POST /api/auth/logout", authMW(http.HandlerFunc(authHandler.Logout)))

	// Users (admin only).
	mux.Handle("GET /api/users", authMW(requireAdmin(http.HandlerFunc(usersHandler.List))))
	mux.Handle("POST /api/users", authMW(requireAdmin(http.HandlerFunc(usersHandler.Create))))
	mux.Handle("GET /api/users/{id}", authMW(requireAdmin(http.HandlerFunc(usersHandler.Get))))
	mux.Handle("PUT /api/users/{id}/password", authMW(requireAdmin(http.HandlerFunc(usersHandler.ResetPassword))))
	mux.Handle("DELETE /api/users/{id}", authMW(requireAdmin(http.HandlerFunc(usersHandler.Delete))))

	// Books and loans (all roles, acting as the authenticated borrower).
	mux.Handle("GET /api/books/{id}", authMW(http.HandlerFunc(booksHandler.Get)))
	mux.Handle("POST /api/books/{id}/borrow", authMW(http.HandlerFunc(booksHandler.Borrow)))
	mux.Handle("POST /api/books/{id}/renew", authMW(http.HandlerFunc(booksHandler.Renew)))
	mux.Handle("POST /api/books/{id}/return", authMW(http.HandlerFunc(booksHandler.Return)))
	mux.Handle("POST /api/books/{id}/reserve", authMW(http.HandlerFunc(booksHandler.Reserve)))
	mux.Handle("POST /api/copies/{id}/renew", authMW(http.HandlerFunc(loansHandler.RenewCopy)))
	mux.Handle("POST /api/copies/{id}/return", authMW(http.HandlerFunc(loansHandler.ReturnCopy)))
	mux.Handle("GET /api/loans", authMW(http.HandlerFunc(loansHandler.List)))
	mux.Handle("GET /api/loans/history", authMW(http.HandlerFunc(loansHandler.History)))
	mux.Handle("GET /api/notifications", authMW(http.HandlerFunc(loansHandler.Notifications)))

	// Cart (all roles).
	mux.Handle("GET /api/cart", authMW(http.HandlerFunc(cartHandler.List)))
	mux.Handle("POST /api/cart", authMW(http.HandlerFunc(cartHandler.Add)))
	mux.Handle("DELETE /api/cart/{bookID}", authMW(http.HandlerFunc(cartHandler.Remove)))

	// Reservations: own (all roles), fulfill (librarian+).
	mux.Handle("GET /api/reservations", authMW(http.HandlerFunc(reservationsHandler.List)))
	mux.Handle("DELETE /api/reservations/{id}", authMW(http.HandlerFunc(reservationsHandler.Cancel)))
	mux.Handle("POST /api/reservations/{id}/fulfill", authMW(requireLibrarian(http.HandlerFunc(reservationsHandler.Fulfill))))

	return LoggingMiddleware(mux)
}
