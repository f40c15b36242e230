package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/vitaehq/vitae/internal/adapter/blob"
	"github.com/vitaehq/vitae/internal/adapter/indeed"
	"github.com/vitaehq/vitae/internal/domain"
	"github.com/vitaehq/vitae/internal/logging"
)

const maxUploadBytes = 20 << 20

// Server is the HTTP adapter for the resume parsing service.
type Server struct {
	svc      *domain.ParseService
	listings domain.ListingSource
	blobs    *blob.LocalFS
	log      *logging.Logger
	server   *http.Server
	handler  http.Handler
}

// NewServer creates a new HTTP server. blobs may be nil when stored resumes
// should not be served back.
func NewServer(svc *domain.ParseService, listings domain.ListingSource, blobs *blob.LocalFS, addr string, log *logging.Logger) *Server {
	s := &Server{
		svc:      svc,
		listings: listings,
		blobs:    blobs,
		log:      log,
	}
	s.handler = s.router()
	s.server = &http.Server{
		Addr:    addr,
		Handler: s.handler,
	}
	return s
}

func (s *Server) router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)

	r.Get("/healthz", s.handleHealth)
	r.Route("/v1", func(r chi.Router) {
		r.Post("/resumes", s.handleParseResume)
		r.Get("/jobs", s.handleFindJobs)
	})
	if s.blobs != nil {
		// The external parser fetches submitted documents from here.
		r.Get("/blobs/{key}", s.handleGetBlob)
	}
	return r
}

func (s *Server) handleGetBlob(w http.ResponseWriter, r *http.Request) {
	content, err := s.blobs.Open(chi.URLParam(r, "key"))
	if err != nil {
		s.writeError(w, http.StatusNotFound, "not found")
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Write(content)
}

// parseResponse is the JSON response for POST /v1/resumes.
type parseResponse struct {
	ID             string               `json:"id"`
	File           string               `json:"file"`
	Fingerprint    string               `json:"fingerprint"`
	Cached         bool                 `json:"cached"`
	Resume         resumeView           `json:"resume"`
	CommonSections []domain.HeaderMatch `json:"commonSections,omitempty"`
	Listings       []listingView        `json:"listings,omitempty"`
}

type resumeView struct {
	Ready      bool             `json:"ready"`
	Name       string           `json:"name"`
	Emails     []string         `json:"emails"`
	Phones     []string         `json:"phones"`
	Links      []string         `json:"links"`
	Skills     []string         `json:"skills"`
	Education  []educationView  `json:"education"`
	Experience []experienceView `json:"experience"`
	Sections   []string         `json:"sections"`
}

type educationView struct {
	School   string `json:"school"`
	Degree   string `json:"degree"`
	GPA      string `json:"gpa"`
	GradDate string `json:"gradDate"`
}

type experienceView struct {
	Title       string `json:"title"`
	Company     string `json:"company"`
	Dates       string `json:"dates"`
	Description string `json:"description"`
}

type listingView struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// errorResponse is the JSON error response.
type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleParseResume(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	file, header, err := r.FormFile("resume")
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "no file uploaded")
		return
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "failed to read upload")
		return
	}

	position := r.FormValue("position")
	location := r.FormValue("location")
	id := uuid.NewString()
	log := s.log.With("request", id, "file", header.Filename)

	result, err := s.svc.Process(r.Context(), header.Filename, content)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrEmptyDocument):
			s.writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, domain.ErrUnparseableDocument):
			s.writeError(w, http.StatusUnprocessableEntity, err.Error())
		default:
			log.Error("process failed", "error", err)
			s.writeError(w, http.StatusBadGateway, err.Error())
		}
		return
	}
	log.Info("resume processed", "fingerprint", result.Fingerprint, "cached", result.Cached)

	resp := parseResponse{
		ID:          id,
		File:        header.Filename,
		Fingerprint: result.Fingerprint,
		Cached:      result.Cached,
		Resume:      buildResumeView(result.Resume),
	}

	if position != "" {
		// Compare against historical headers before counting this resume, so a
		// resume is never compared against itself.
		common, err := s.svc.CompareSectionHeaders(r.Context(), position, result.Resume)
		if err != nil {
			log.Warn("section header comparison failed", "error", err)
		} else {
			resp.CommonSections = common
		}

		if !result.Cached {
			if err := s.svc.RecordSectionHeaders(r.Context(), position, result.Resume); err != nil {
				log.Warn("section header recording failed", "error", err)
			}
		}

		listings, err := s.listings.Scrape(r.Context(), position, location)
		if err != nil {
			log.Warn("listing scrape failed", "error", err)
		} else {
			resp.Listings = buildListingViews(listings)
		}
	}

	s.writeJSON(w, http.StatusOK, resp)
}

// jobsResponse is the JSON response for GET /v1/jobs.
type jobsResponse struct {
	Listings []listingView `json:"listings"`
}

func (s *Server) handleFindJobs(w http.ResponseWriter, r *http.Request) {
	position := r.URL.Query().Get("position")
	location := r.URL.Query().Get("location")

	listings, err := s.listings.Scrape(r.Context(), position, location)
	if err != nil {
		switch {
		case errors.Is(err, indeed.ErrClientRejected):
			s.writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, indeed.ErrServerUnavailable):
			s.writeError(w, http.StatusBadGateway, err.Error())
		default:
			s.log.Error("scrape failed", "error", err)
			s.writeError(w, http.StatusInternalServerError, "internal error")
		}
		return
	}

	s.writeJSON(w, http.StatusOK, jobsResponse{Listings: buildListingViews(listings)})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func buildResumeView(resume *domain.Resume) resumeView {
	view := resumeView{
		Ready:    resume.Ready(),
		Name:     resume.Name(),
		Emails:   resume.Emails(),
		Phones:   resume.Phones(),
		Links:    resume.Links(),
		Skills:   resume.Skills(),
		Sections: resume.SectionNames(),
	}
	for _, e := range resume.EducationHistory() {
		view.Education = append(view.Education, educationView{
			School:   e.School(),
			Degree:   e.Degree(),
			GPA:      e.GPA(),
			GradDate: e.GradDate(),
		})
	}
	for _, w := range resume.WorkHistory() {
		view.Experience = append(view.Experience, experienceView{
			Title:       w.Title(),
			Company:     w.Company(),
			Dates:       w.DateRange(),
			Description: w.Description(),
		})
	}
	return view
}

func buildListingViews(listings []domain.Listing) []listingView {
	views := make([]listingView, 0, len(listings))
	for _, l := range listings {
		views = append(views, listingView{Title: l.Title, URL: l.URL})
	}
	return views
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, errorResponse{Error: msg})
}

// ListenAndServe starts the HTTP server.
func (s *Server) ListenAndServe() error {
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// ServeHTTP implements http.Handler for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// Addr returns the server address.
func (s *Server) Addr() string {
	return s.server.Addr
}
