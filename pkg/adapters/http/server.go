package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mathieusouflis/turing"
	"github.com/mathieusouflis/turing/internal/logging"
	"github.com/mathieusouflis/turing/internal/presentation/graph"
	"github.com/mathieusouflis/turing/pkg/domain"
	"github.com/mathieusouflis/turing/pkg/schema"
)

// Service defines the use cases the HTTP API exposes.
type Service interface {
	Create(ctx context.Context, req turing.CreateRequest) (*domain.Machine, error)
	Get(ctx context.Context, id string) (*domain.Machine, error)
	List(ctx context.Context) ([]*domain.Machine, error)
	Step(ctx context.Context, id string) (*turing.StepResult, error)
	Run(ctx context.Context, id string, maxSteps uint64) (*turing.RunResult, error)
	Reset(ctx context.Context, id string, req *turing.ResetRequest) (*domain.Machine, error)
	Delete(ctx context.Context, id string) error
	Templates(ctx context.Context) ([]string, error)
	Template(ctx context.Context, name string) (*domain.Template, error)
	Subscribe(id string) (<-chan *domain.MachineDiff, func())
}

// DefaultPingInterval is how often an idle event stream receives a keep-alive comment.
const DefaultPingInterval = 15 * time.Second

// DefaultMaxBodyBytes caps request bodies. It leaves room for a maximal tape plus a rule table.
const DefaultMaxBodyBytes int64 = 4 << 20

// Server serves the machine API.
type Server struct {
	Service Service

	metrics      http.Handler
	logger       *slog.Logger
	pingInterval time.Duration
	maxBody      int64
}

// Option configures the Server.
type Option func(*Server)

// WithMetricsHandler exposes h on GET /metrics.
func WithMetricsHandler(h http.Handler) Option {
	return func(s *Server) {
		s.metrics = h
	}
}

// WithLogger sets the request logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithPingInterval sets the keep-alive interval of event streams.
func WithPingInterval(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.pingInterval = d
		}
	}
}

// WithMaxBodyBytes caps the size of request bodies. Larger bodies get 413.
func WithMaxBodyBytes(n int64) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxBody = n
		}
	}
}

// NewHandler creates the HTTP handler for svc.
func NewHandler(svc Service, opts ...Option) (http.Handler, error) {
	s := &Server{
		Service:      svc,
		logger:       logging.NewNop(),
		pingInterval: DefaultPingInterval,
		maxBody:      DefaultMaxBodyBytes,
	}
	for _, opt := range opts {
		opt(s)
	}

	doc, err := LoadSpec()
	if err != nil {
		return nil, err
	}
	validate, err := validateRequests(doc)
	if err != nil {
		return nil, err
	}

	r := chi.NewRouter()
	r.Use(enableCORS)

	r.Get("/openapi.yaml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/yaml")
		w.Write(rawSpec)
	})
	r.Get("/swagger", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(swaggerHTML))
	})
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics)
	}

	r.Group(func(r chi.Router) {
		r.Use(s.limitBody)
		r.Use(validate)

		r.Get("/health", s.GetHealth)
		r.Get("/info", s.GetInfo(doc.Info.Version))

		r.Route("/api/machines", func(r chi.Router) {
			r.Get("/", s.ListMachines)
			r.Post("/", s.CreateMachine)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.GetMachine)
				r.Delete("/", s.DeleteMachine)
				r.Put("/step", s.StepMachine)
				r.Put("/run", s.RunMachine)
				r.Put("/reset", s.ResetMachine)
				r.Get("/events", s.SubscribeEvents)
				r.Get("/graph", s.GetMachineGraph)
			})
		})
		r.Get("/api/templates", s.ListTemplates)
		r.Get("/api/templates/{name}", s.GetTemplate)
	})

	return r, nil
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// limitBody buffers the request body through http.MaxBytesReader so that the
// OpenAPI validator and the handlers both see a bounded, rereadable copy.
func (s *Server) limitBody(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Body == nil || r.Body == http.NoBody {
			next.ServeHTTP(w, r)
			return
		}
		data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.maxBody))
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				writeJSONError(w, http.StatusRequestEntityTooLarge, "PayloadTooLargeError", "PAYLOAD_TOO_LARGE",
					fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit), nil)
				return
			}
			writeJSONError(w, http.StatusBadRequest, "ValidationError", "VALIDATION_ERROR", "failed to read request body", nil)
			return
		}
		r.Body = io.NopCloser(bytes.NewReader(data))
		next.ServeHTTP(w, r)
	})
}

const swaggerHTML = `
<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="utf-8" />
    <meta name="viewport" content="width=device-width, initial-scale=1" />
    <title>Turing Machine API</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5.11.0/swagger-ui.css" />
</head>
<body>
<div id="swagger-ui"></div>
<script src="https://unpkg.com/swagger-ui-dist@5.11.0/swagger-ui-bundle.js" crossorigin></script>
<script>
    window.onload = () => {
    window.ui = SwaggerUIBundle({
        url: '/openapi.yaml',
        dom_id: '#swagger-ui',
    });
    };
</script>
</body>
</html>
`

// GetHealth handles GET /health.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetInfo handles GET /info.
func (s *Server) GetInfo(apiVersion string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"app":         "turing-http",
			"version":     strings.TrimSpace(turing.Version),
			"api_version": apiVersion,
		})
	}
}

// ListMachines handles GET /api/machines.
func (s *Server) ListMachines(w http.ResponseWriter, r *http.Request) {
	machines, err := s.Service.List(r.Context())
	if err != nil {
		s.writeError(w, r, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, machines)
}

// CreateMachine handles POST /api/machines.
//
// The body is a loose record: besides id, name and template it may carry a
// definition in any of the accepted spellings, either at the top level or
// nested under "definition".
func (s *Server) CreateMachine(w http.ResponseWriter, r *http.Request) {
	rec, err := decodeRecord(r.Body)
	if err != nil {
		s.writeError(w, r, err, nil)
		return
	}

	req, err := createRequestFromRecord(rec)
	if err != nil {
		s.writeError(w, r, err, nil)
		return
	}

	m, err := s.Service.Create(r.Context(), req)
	if err != nil {
		s.writeError(w, r, err, nil)
		return
	}
	w.Header().Set("Location", "/api/machines/"+m.ID)
	writeJSON(w, http.StatusCreated, m)
}

// GetMachine handles GET /api/machines/{id}.
func (s *Server) GetMachine(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	m, err := s.Service.Get(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err, map[string]any{"machineId": id})
		return
	}
	writeJSON(w, http.StatusOK, m)
}

// GetMachineGraph handles GET /api/machines/{id}/graph.
func (s *Server) GetMachineGraph(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	m, err := s.Service.Get(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err, map[string]any{"machineId": id})
		return
	}
	w.Header().Set("Content-Type", "text/vnd.mermaid; charset=utf-8")
	io.WriteString(w, graph.GenerateMermaid(m.Definition, graph.OverlayFor(m)))
}

// DeleteMachine handles DELETE /api/machines/{id}.
func (s *Server) DeleteMachine(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.Service.Delete(r.Context(), id); err != nil {
		s.writeError(w, r, err, map[string]any{"machineId": id})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// StepMachine handles PUT /api/machines/{id}/step.
func (s *Server) StepMachine(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	res, err := s.Service.Step(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err, map[string]any{"machineId": id})
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// RunRequest is the body of PUT /api/machines/{id}/run.
type RunRequest struct {
	MaxSteps uint64 `json:"maxSteps,omitempty"`
}

// RunMachine handles PUT /api/machines/{id}/run.
func (s *Server) RunMachine(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var body RunRequest
	if err := decodeOptional(r.Body, &body); err != nil {
		s.writeError(w, r, err, nil)
		return
	}

	res, err := s.Service.Run(r.Context(), id, body.MaxSteps)
	if err != nil {
		s.writeError(w, r, err, map[string]any{"machineId": id})
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// ResetMachine handles PUT /api/machines/{id}/reset.
func (s *Server) ResetMachine(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var body turing.ResetRequest
	if err := decodeOptional(r.Body, &body); err != nil {
		s.writeError(w, r, err, nil)
		return
	}

	m, err := s.Service.Reset(r.Context(), id, &body)
	if err != nil {
		s.writeError(w, r, err, map[string]any{"machineId": id})
		return
	}
	writeJSON(w, http.StatusOK, m)
}

// ListTemplates handles GET /api/templates.
func (s *Server) ListTemplates(w http.ResponseWriter, r *http.Request) {
	names, err := s.Service.Templates(r.Context())
	if err != nil {
		s.writeError(w, r, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, names)
}

// GetTemplate handles GET /api/templates/{name}.
func (s *Server) GetTemplate(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	t, err := s.Service.Template(r.Context(), name)
	if err != nil {
		s.writeError(w, r, err, map[string]any{"template": name})
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// SubscribeEvents handles GET /api/machines/{id}/events (SSE).
// The current machine is sent first as a full diff, then every change.
func (s *Server) SubscribeEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		s.logger.Error("SubscribeEvents: Streaming not supported")
		return
	}

	id := chi.URLParam(r, "id")
	ch, cancel := s.Service.Subscribe(id)
	defer cancel()

	m, err := s.Service.Get(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err, map[string]any{"machineId": id})
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	s.logger.Info("SSE: Subscribing to machine updates", "machine_id", id)
	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	writeEvent(w, domain.Diff(nil, m))
	flusher.Flush()

	ticker := time.NewTicker(s.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
			fmt.Fprint(w, ": keep-alive\n\n")
			flusher.Flush()
		case diff, ok := <-ch:
			if !ok {
				return
			}
			writeEvent(w, diff)
			flusher.Flush()
			if diff.Deleted {
				return
			}
		}
	}
}

func writeEvent(w io.Writer, diff *domain.MachineDiff) {
	data, err := json.Marshal(diff)
	if err != nil {
		slog.Error("SSE: diff encode failed", "err", err)
		return
	}
	fmt.Fprintf(w, "data: %s\n\n", data)
}

// decodeRecord reads a JSON object keeping numbers as json.Number.
// An empty body yields an empty record.
func decodeRecord(body io.Reader) (map[string]any, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return map[string]any{}, nil
	}
	return schema.Unmarshal(data, ".json")
}

func decodeOptional(body io.Reader, v any) error {
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidDefinition, err)
	}
	return nil
}

// definitionFields are the canonical keys that make a record carry a definition.
var definitionFields = []string{"initialstate", "startstate", "finalstates", "finalstate", "acceptstates", "rules", "transitions", "definition", "initialtape"}

func createRequestFromRecord(rec map[string]any) (turing.CreateRequest, error) {
	var req turing.CreateRequest
	fields := make(map[string]any, len(rec))
	for k, v := range rec {
		fields[canonicalKey(k)] = v
	}

	req.ID, _ = fields["id"].(string)
	req.Name, _ = fields["name"].(string)
	req.Template, _ = fields["template"].(string)

	if tape, ok := fields["tape"].(string); ok {
		req.Tape = &tape
	}
	if raw, ok := fields["headposition"]; ok {
		n, ok := raw.(json.Number)
		if !ok {
			return req, fmt.Errorf("%w: headPosition must be an integer", domain.ErrInvalidDefinition)
		}
		head, err := n.Int64()
		if err != nil {
			return req, fmt.Errorf("%w: headPosition must be an integer", domain.ErrInvalidDefinition)
		}
		h := int(head)
		req.Head = &h
	}

	for _, k := range definitionFields {
		if _, ok := fields[k]; !ok {
			continue
		}
		def, err := schema.DecodeRecord(rec)
		if err != nil {
			return req, err
		}
		req.Definition = &def
		break
	}
	return req, nil
}

func canonicalKey(k string) string {
	return strings.ToLower(strings.NewReplacer("_", "", "-", "").Replace(k))
}
