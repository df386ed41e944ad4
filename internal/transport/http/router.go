package http

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

// NewRouter configures HTTP routes with per-endpoint rate limits.
func NewRouter(handler *Handler, convertLimiter, downloadLimiter *RateLimiter, logger *logrus.Logger) *mux.Router {
	r := mux.NewRouter()
	r.Use(RequestLogger(logger))

	r.Handle("/convert", convertLimiter.Middleware(http.HandlerFunc(handler.Convert))).Methods("POST")
	r.HandleFunc("/status/{id}", handler.Status).Methods("GET")
	r.Handle("/download/{filename}", downloadLimiter.Middleware(http.HandlerFunc(handler.Download))).Methods("GET")
	r.HandleFunc("/health", handler.Health).Methods("GET")

	return r
}
