package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/cameronsjo/manman/internal/envelope"
	"github.com/cameronsjo/manman/internal/envvalue"
	"github.com/cameronsjo/manman/internal/manifest"
	"github.com/cameronsjo/manman/internal/secrets"
	"github.com/cameronsjo/manman/internal/ui"
)

// Request headers carrying deployment metadata.
const (
	HeaderImage       = "X-Image"
	HeaderProjectID   = "X-Project-Id"
	HeaderProjectName = "X-Project-Name"
	HeaderCurrentEnv  = "X-Current-Env"
	HeaderTeam        = "X-Team"
	HeaderBranchName  = "X-Branch-Name"
	HeaderCommitHash  = "X-Commit-Hash"

	// HeaderSecretKey returns the key used by /secrets/encrypt.
	HeaderSecretKey = "X-Secret-Key"
)

// ErrorResponse is the JSON body of every failed request.
type ErrorResponse struct {
	Message string        `json:"message"`
	Details []ErrorDetail `json:"details,omitempty"`
}

// ErrorDetail names one invalid field.
type ErrorDetail struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// DockerfileRequest is the body of /dockerfiles/generate.
type DockerfileRequest struct {
	Engine manifest.Engine `json:"engine"`
}

// EncryptRequest is the body of /secrets/encrypt.
type EncryptRequest struct {
	Envs      envvalue.Map[string] `json:"envs"`
	SecretKey string               `json:"secret_key,omitempty"`
}

var errEmptyBody = errors.New("request body is required")

func metadataFrom(h http.Header) manifest.Metadata {
	return manifest.Metadata{
		Image:       h.Get(HeaderImage),
		ProjectID:   h.Get(HeaderProjectID),
		ProjectName: h.Get(HeaderProjectName),
		Environment: strings.ToLower(h.Get(HeaderCurrentEnv)),
		Team:        h.Get(HeaderTeam),
		BranchName:  h.Get(HeaderBranchName),
		Commit:      h.Get(HeaderCommitHash),
	}
}

func (s *Server) handleManifests(w http.ResponseWriter, r *http.Request) {
	md := metadataFrom(r.Header)
	if err := manifest.ValidateMetadata(md, s.cfg.Environments); err != nil {
		s.writeError(w, r, err)
		return
	}

	var req manifest.Request
	if err := s.decode(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Message: err.Error()})
		return
	}
	if err := req.Validate(s.cfg.Environments); err != nil {
		s.writeError(w, r, err)
		return
	}

	docs, err := s.assembler.Assemble(r.Context(), &req, md)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/yaml")
	w.WriteHeader(http.StatusCreated)
	_, _ = io.WriteString(w, manifest.JoinDocuments(docs))
}

func (s *Server) handleDockerfile(w http.ResponseWriter, r *http.Request) {
	md := metadataFrom(r.Header)
	if err := manifest.ValidateMetadata(md, s.cfg.Environments); err != nil {
		s.writeError(w, r, err)
		return
	}

	var body DockerfileRequest
	if err := s.decode(w, r, &body); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Message: err.Error()})
		return
	}
	if err := (&manifest.Request{Engine: body.Engine}).Validate(s.cfg.Environments); err != nil {
		s.writeError(w, r, err)
		return
	}

	doc, err := s.assembler.RenderDockerfile(r.Context(), body.Engine, md)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusCreated)
	_, _ = io.WriteString(w, doc.Content)
}

func (s *Server) handleEncrypt(w http.ResponseWriter, r *http.Request) {
	var body EncryptRequest
	if err := s.decode(w, r, &body); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Message: err.Error()})
		return
	}
	if body.SecretKey != "" && !envelope.IsValidKey(body.SecretKey) {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Message: "Invalid secret key."})
		return
	}

	encrypted, key, err := secrets.EncryptAll(body.Envs, body.SecretKey)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	out, err := yaml.Marshal(encrypted)
	if err != nil {
		s.writeError(w, r, fmt.Errorf("encode secrets: %w", err))
		return
	}

	w.Header().Set("Content-Type", "application/yaml")
	w.Header().Set(HeaderSecretKey, key)
	w.WriteHeader(http.StatusCreated)
	_, _ = w.Write(out)
}

// decode reads a JSON body of at most MaxBodyBytes into v.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) error {
	body := r.Body
	if s.cfg.MaxBodyBytes > 0 {
		body = http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes)
	}
	err := json.NewDecoder(body).Decode(v)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, io.EOF):
		return errEmptyBody
	default:
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return fmt.Errorf("request body exceeds %d bytes", maxErr.Limit)
		}
		return fmt.Errorf("invalid JSON body: %w", err)
	}
}

// writeError maps err to a status code: 400 for bad input, 404 for a
// missing template, 500 otherwise. Only 500s are logged.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch manifest.KindOf(err) {
	case manifest.KindBadInput:
		resp := ErrorResponse{Message: err.Error()}
		if ces := manifest.ConfigErrors(err); len(ces) > 0 {
			resp.Message = "Validation failed."
			for _, ce := range ces {
				resp.Details = append(resp.Details, ErrorDetail{Field: ce.Field, Reason: ce.Reason})
			}
		}
		writeJSON(w, http.StatusBadRequest, resp)
	case manifest.KindNotFound:
		writeJSON(w, http.StatusNotFound, ErrorResponse{Message: err.Error()})
	default:
		ui.Error("%s %s [%s]: %v", r.Method, r.URL.Path, RequestIDFrom(r.Context()), err)
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Message: "Internal server error."})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
