package httpserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/Clark-Hu/moviemate/internal/domain"
	"github.com/Clark-Hu/moviemate/internal/repository"
)

const maxRequestBody = 1 << 20 // 1 MiB

type errorResponse struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

type messageResponse struct {
	Message string `json:"message"`
}

type statusResponse struct {
	TotalMedia int64 `json:"total_media"`
}

// mediaRequest is the body of create and update. Fields the store owns (id,
// current_episode) are not declared, so any value a client sends for them is
// dropped during decoding.
type mediaRequest struct {
	Title         *string  `json:"title"`
	MediaType     *string  `json:"media_type"`
	PosterURL     *string  `json:"poster_url"`
	Director      *string  `json:"director"`
	Genre         *string  `json:"genre"`
	Platform      *string  `json:"platform"`
	Status        *string  `json:"status"`
	Rating        *float64 `json:"rating"`
	Review        *string  `json:"review"`
	TotalEpisodes *int     `json:"total_episodes"`
}

type mediaResponse struct {
	ID             int64    `json:"id"`
	Title          string   `json:"title"`
	MediaType      string   `json:"media_type"`
	PosterURL      *string  `json:"poster_url"`
	Director       *string  `json:"director"`
	Genre          *string  `json:"genre"`
	Platform       *string  `json:"platform"`
	Status         string   `json:"status"`
	Rating         *float64 `json:"rating"`
	Review         *string  `json:"review"`
	CurrentEpisode int      `json:"current_episode"`
	TotalEpisodes  *int     `json:"total_episodes"`
}

func (s *Server) handleListMedia(w http.ResponseWriter, r *http.Request) {
	items, err := s.repo.Media.List(r.Context())
	if err != nil {
		s.logger.Error("list media failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to list media")
		return
	}

	resp := make([]mediaResponse, 0, len(items))
	for _, media := range items {
		resp = append(resp, toMediaResponse(media))
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetMedia(w http.ResponseWriter, r *http.Request) {
	id, err := parseMediaID(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return
	}

	media, err := s.repo.Media.Get(r.Context(), id)
	if err != nil {
		s.respondStoreError(w, "get", id, err)
		return
	}
	s.respondJSON(w, http.StatusOK, toMediaResponse(media))
}

func (s *Server) handleCreateMedia(w http.ResponseWriter, r *http.Request) {
	var req mediaRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		s.respondDecodeError(w, err)
		return
	}
	fields, err := req.toFields()
	if err != nil {
		s.respondError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", err.Error())
		return
	}

	media, err := s.repo.Media.Create(r.Context(), fields)
	if err != nil {
		s.logger.Error("create media failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to create media")
		return
	}

	w.Header().Set("Location", fmt.Sprintf("/media/%d", media.ID))
	s.respondJSON(w, http.StatusCreated, toMediaResponse(media))
}

func (s *Server) handleUpdateMedia(w http.ResponseWriter, r *http.Request) {
	id, err := parseMediaID(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return
	}

	var req mediaRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		s.respondDecodeError(w, err)
		return
	}
	fields, err := req.toFields()
	if err != nil {
		s.respondError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", err.Error())
		return
	}

	media, err := s.repo.Media.Update(r.Context(), id, fields)
	if err != nil {
		s.respondStoreError(w, "update", id, err)
		return
	}
	s.respondJSON(w, http.StatusOK, toMediaResponse(media))
}

func (s *Server) handleDeleteMedia(w http.ResponseWriter, r *http.Request) {
	id, err := parseMediaID(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return
	}

	if _, err := s.repo.Media.Delete(r.Context(), id); err != nil {
		s.respondStoreError(w, "delete", id, err)
		return
	}
	s.respondJSON(w, http.StatusOK, messageResponse{Message: "Deleted successfully"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	n, err := s.repo.Media.Count(r.Context())
	if err != nil {
		s.logger.Error("count media failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to read status")
		return
	}
	s.respondJSON(w, http.StatusOK, statusResponse{TotalMedia: n})
}

// toFields validates the request shape and applies defaults. Omitted fields
// fall back to their defaults, so an update always replaces the full record.
func (req mediaRequest) toFields() (domain.MediaFields, error) {
	title := normalizeStringPtr(req.Title)
	mediaType := normalizeStringPtr(req.MediaType)
	if title == nil || mediaType == nil {
		return domain.MediaFields{}, fmt.Errorf("title and media_type are required")
	}

	status := domain.DefaultStatus
	if v := normalizeStringPtr(req.Status); v != nil {
		status = *v
	}

	var review *string
	if req.Review != nil && strings.TrimSpace(*req.Review) != "" {
		review = req.Review
	}

	return domain.MediaFields{
		Title:         *title,
		MediaType:     *mediaType,
		PosterURL:     normalizeStringPtr(req.PosterURL),
		Director:      normalizeStringPtr(req.Director),
		Genre:         normalizeStringPtr(req.Genre),
		Platform:      normalizeStringPtr(req.Platform),
		Status:        status,
		Rating:        req.Rating,
		Review:        review,
		TotalEpisodes: req.TotalEpisodes,
	}, nil
}

func parseMediaID(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "id")
	if raw == "" {
		return 0, fmt.Errorf("missing id parameter")
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("id must be a positive integer")
	}
	return id, nil
}

func decodeJSONBody(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(dst)
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			s.logger.Warn("failed to encode response", zap.Error(err))
		}
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, code, message string) {
	s.respondJSON(w, status, errorResponse{
		Code:    code,
		Message: message,
	})
}

// respondStoreError maps store absence to 404 and anything else to 500.
func (s *Server) respondStoreError(w http.ResponseWriter, op string, id int64, err error) {
	if errors.Is(err, repository.ErrNotFound) {
		s.respondError(w, http.StatusNotFound, "NOT_FOUND", "Media not found")
		return
	}
	s.logger.Error(op+" media failed", zap.Int64("id", id), zap.Error(err))
	s.respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", fmt.Sprintf("Failed to %s media", op))
}

func (s *Server) respondDecodeError(w http.ResponseWriter, err error) {
	var syntaxError *json.SyntaxError
	var typeError *json.UnmarshalTypeError
	var maxBytesError *http.MaxBytesError
	switch {
	case errors.As(err, &syntaxError), errors.Is(err, io.ErrUnexpectedEOF):
		s.respondError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "Malformed JSON payload")
	case errors.As(err, &typeError):
		s.respondError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", fmt.Sprintf("Invalid value for field %s", typeError.Field))
	case errors.Is(err, io.EOF):
		s.respondError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "Request body cannot be empty")
	case errors.As(err, &maxBytesError):
		s.respondError(w, http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE", "Request body too large")
	default:
		s.respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Unable to parse request body")
	}
}

func toMediaResponse(media domain.Media) mediaResponse {
	return mediaResponse{
		ID:             media.ID,
		Title:          media.Title,
		MediaType:      media.MediaType,
		PosterURL:      media.PosterURL,
		Director:       media.Director,
		Genre:          media.Genre,
		Platform:       media.Platform,
		Status:         media.Status,
		Rating:         media.Rating,
		Review:         media.Review,
		CurrentEpisode: media.CurrentEpisode,
		TotalEpisodes:  media.TotalEpisodes,
	}
}

func normalizeStringPtr(ptr *string) *string {
	if ptr == nil {
		return nil
	}
	val := strings.TrimSpace(*ptr)
	if val == "" {
		return nil
	}
	return &val
}
