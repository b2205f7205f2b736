package handler

import (
	"net/http"

	"github.com/gorilla/mux"
)

// NewRouter wires the public and the authenticated routes
func NewRouter(h *Handler, auth func(http.Handler) http.Handler) *mux.Router {
	r := mux.NewRouter()
	// Public routes
	r.HandleFunc("/register", h.Register).Methods("POST")
	r.HandleFunc("/login", h.Login).Methods("POST")
	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}).Methods("GET")

	// Protected routes
	authRouter := r.PathPrefix("/").Subrouter()
	authRouter.Use(auth)
	authRouter.HandleFunc("/assessments", h.CreateAssessment).Methods("POST")
	authRouter.HandleFunc("/assessments/search", h.SearchAssessments).Methods("POST")
	authRouter.HandleFunc("/assessments/{id}", h.GetAssessment).Methods("GET")
	authRouter.HandleFunc("/assessments/{id}/report.xml", h.GetAssessmentXML).Methods("GET")
	authRouter.HandleFunc("/clients/{clientID}/assessments", h.ListClientAssessments).Methods("GET")
	return r
}
