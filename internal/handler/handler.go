package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/Dan9191/loan-assessment/internal/models"
	"github.com/Dan9191/loan-assessment/internal/report"
	"github.com/Dan9191/loan-assessment/internal/repository"
	"github.com/Dan9191/loan-assessment/internal/service"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

const maxUploadBytes = 32 << 20

// AssessmentService is what the HTTP layer needs from the service
type AssessmentService interface {
	Register(ctx context.Context, username, email, password string) (*models.Reviewer, error)
	Login(ctx context.Context, email, password string) (string, error)
	Assess(ctx context.Context, docs []models.Document) (models.AssessmentResult, error)
	AssessPartitioned(ctx context.Context, docs []models.Document) ([]models.AssessmentResult, []string, error)
	GetAssessment(ctx context.Context, id string) (models.AssessmentResult, error)
	ListClientAssessments(ctx context.Context, clientID string) ([]models.AssessmentResult, error)
	FindAssessmentsBySSN(ctx context.Context, ssn string) ([]models.AssessmentResult, error)
}

type Handler struct {
	svc AssessmentService
	log logrus.FieldLogger
}

func NewHandler(svc AssessmentService, log logrus.FieldLogger) *Handler {
	return &Handler{svc: svc, log: log}
}

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type assessRequest struct {
	Documents []models.Document `json:"documents"`
	Partition bool              `json:"partition"`
}

type partitionedResponse struct {
	Results    []models.AssessmentResult `json:"results"`
	Unassigned []string                  `json:"unassigned,omitempty"`
}

type searchRequest struct {
	SSN string `json:"ssn"`
}

// Register handles reviewer registration
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, fmt.Errorf("%w: %v", service.ErrInvalidInput, err))
		return
	}
	reviewer, err := h.svc.Register(r.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, reviewer)
}

// Login handles reviewer authentication
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, fmt.Errorf("%w: %v", service.ErrInvalidInput, err))
		return
	}
	token, err := h.svc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

// CreateAssessment runs the pipeline over uploaded documents. It accepts either a JSON body
// or a multipart form with one or more "documents" files. ?partition=true, a "partition" form
// field or the JSON "partition" flag splits the batch per client.
func (h *Handler) CreateAssessment(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	req, err := decodeAssessRequest(r)
	if err != nil {
		h.writeError(w, fmt.Errorf("%w: %v", service.ErrInvalidInput, err))
		return
	}
	if r.URL.Query().Get("partition") == "true" {
		req.Partition = true
	}
	if len(req.Documents) == 0 {
		h.writeError(w, fmt.Errorf("%w: no documents submitted", service.ErrInvalidInput))
		return
	}

	if req.Partition {
		results, unassigned, err := h.svc.AssessPartitioned(r.Context(), req.Documents)
		if err != nil {
			h.writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, partitionedResponse{Results: results, Unassigned: unassigned})
		return
	}

	res, err := h.svc.Assess(r.Context(), req.Documents)
	if err != nil {
		h.writeError(w, err)
		return
	}
	status := http.StatusOK
	if res.Failed() {
		status = http.StatusUnprocessableEntity
	}
	writeJSON(w, status, res)
}

// GetAssessment returns a stored assessment, as JSON unless ?format= asks for yaml or xml
func (h *Handler) GetAssessment(w http.ResponseWriter, r *http.Request) {
	format, err := report.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		h.writeError(w, fmt.Errorf("%w: %v", service.ErrInvalidInput, err))
		return
	}
	h.writeAssessment(w, r, format)
}

// GetAssessmentXML returns a stored assessment as an XML report
func (h *Handler) GetAssessmentXML(w http.ResponseWriter, r *http.Request) {
	h.writeAssessment(w, r, report.XML)
}

// ListClientAssessments returns the stored assessments of one client
func (h *Handler) ListClientAssessments(w http.ResponseWriter, r *http.Request) {
	results, err := h.svc.ListClientAssessments(r.Context(), mux.Vars(r)["clientID"])
	if err != nil {
		h.writeError(w, err)
		return
	}
	if results == nil {
		results = []models.AssessmentResult{}
	}
	writeJSON(w, http.StatusOK, results)
}

// SearchAssessments finds stored assessments by client SSN
func (h *Handler) SearchAssessments(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, fmt.Errorf("%w: %v", service.ErrInvalidInput, err))
		return
	}
	results, err := h.svc.FindAssessmentsBySSN(r.Context(), req.SSN)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if results == nil {
		results = []models.AssessmentResult{}
	}
	writeJSON(w, http.StatusOK, results)
}

func (h *Handler) writeAssessment(w http.ResponseWriter, r *http.Request, format report.Format) {
	res, err := h.svc.GetAssessment(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", format.ContentType())
	if err := report.Write(w, format, res); err != nil {
		h.log.WithError(err).Error("Failed to write assessment report")
	}
}

func decodeAssessRequest(r *http.Request) (assessRequest, error) {
	var req assessRequest
	if !strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return req, err
		}
		return req, nil
	}

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		return req, err
	}
	req.Partition = r.FormValue("partition") == "true"
	for _, fh := range r.MultipartForm.File["documents"] {
		f, err := fh.Open()
		if err != nil {
			return req, err
		}
		b, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			return req, err
		}
		req.Documents = append(req.Documents, models.Document{Name: fh.Filename, Text: string(b)})
	}
	return req, nil
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		status = http.StatusBadRequest
	case errors.Is(err, service.ErrInvalidCredentials):
		status = http.StatusUnauthorized
	case errors.Is(err, repository.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, service.ErrPersistenceDisabled):
		status = http.StatusServiceUnavailable
	}
	msg := err.Error()
	if status == http.StatusInternalServerError {
		h.log.WithError(err).Error("Request failed")
		msg = "internal error"
	}
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
