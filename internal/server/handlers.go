package server

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"time"

	"github.com/RyanBlaney/genre-mood-classifier/internal/telemetry"
	"github.com/RyanBlaney/genre-mood-classifier/pkg/common"
	"github.com/RyanBlaney/genre-mood-classifier/pkg/logging"
)

// defaultUploadName is used when the client does not name its upload
const defaultUploadName = "upload"

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"classes": len(s.classifier.Classes()),
	})
}

func (s *Server) handleMoods(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.classifier.Moods())
}

func (s *Server) handleGenres(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{
		"genres": s.classifier.Classes(),
	})
}

// handlePredict classifies an uploaded recording. The body is either the
// raw audio or a multipart form with a "file" field.
func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	requestID := RequestIDFrom(r.Context())
	logger := s.logger.WithFields(logging.Fields{
		"function":   "handlePredict",
		"request_id": requestID,
	})

	r.Body = http.MaxBytesReader(w, r.Body, s.config.MaxUploadBytes)
	name, data, err := readUpload(r)
	if err != nil {
		s.metrics.Count(telemetry.MetricPredictFailures, 1, "reason:bad_request")
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.writeError(w, r, http.StatusRequestEntityTooLarge, "", "upload exceeds size limit")
			return
		}
		s.writeError(w, r, http.StatusBadRequest, "", err.Error())
		return
	}

	result, err := s.classifier.ClassifyBytes(r.Context(), name, data)
	if err != nil {
		code := common.CodeOf(err)
		s.metrics.Count(telemetry.MetricPredictFailures, 1, "reason:"+reasonTag(code))
		logger.Error(err, "Prediction failed", logging.Fields{
			"name": name,
			"code": code,
		})
		s.writeError(w, r, statusFor(code), code, err.Error())
		return
	}

	s.metrics.Count(telemetry.MetricPredictions, 1, "genre:"+result.Genre)
	s.metrics.Timing(telemetry.MetricPredictLatency, time.Since(start))
	writeJSON(w, http.StatusOK, result)
}

// readUpload returns the upload's file name and bytes
func readUpload(r *http.Request) (string, []byte, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		file, header, err := r.FormFile("file")
		if err != nil {
			return "", nil, err
		}
		defer file.Close()

		data, err := io.ReadAll(file)
		if err != nil {
			return "", nil, err
		}
		if len(data) == 0 {
			return "", nil, errors.New("uploaded file is empty")
		}
		return uploadName(header.Filename), data, nil
	}

	data, err := io.ReadAll(r.Body)
	if err != nil {
		return "", nil, err
	}
	if len(data) == 0 {
		return "", nil, errors.New("request body is empty")
	}

	name := r.URL.Query().Get("filename")
	if name == "" {
		name = r.Header.Get("X-Filename")
	}
	return uploadName(name), data, nil
}

func uploadName(name string) string {
	name = filepath.Base(name)
	if name == "." || name == "/" || name == "" {
		return defaultUploadName
	}
	return name
}

func statusFor(code string) int {
	switch code {
	case common.ErrCodeDecoding, common.ErrCodeExtraction:
		return http.StatusUnprocessableEntity
	case common.ErrCodeArtifactsUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func reasonTag(code string) string {
	if code == "" {
		return "internal"
	}
	return code
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, status int, code, msg string) {
	writeJSON(w, status, ErrorResponse{
		Error:     msg,
		Code:      code,
		RequestID: RequestIDFrom(r.Context()),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
