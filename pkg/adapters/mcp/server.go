package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/mathieusouflis/turing"
	"github.com/mathieusouflis/turing/internal/logging"
	"github.com/mathieusouflis/turing/pkg/domain"
	"github.com/mathieusouflis/turing/pkg/schema"
)

// MachinesURI is the resource listing every machine.
const MachinesURI = "turing://machines"

// Service defines the use cases exposed as MCP tools.
type Service interface {
	Create(ctx context.Context, req turing.CreateRequest) (*domain.Machine, error)
	Get(ctx context.Context, id string) (*domain.Machine, error)
	List(ctx context.Context) ([]*domain.Machine, error)
	Step(ctx context.Context, id string) (*turing.StepResult, error)
	Run(ctx context.Context, id string, maxSteps uint64) (*turing.RunResult, error)
	Reset(ctx context.Context, id string, req *turing.ResetRequest) (*domain.Machine, error)
	Delete(ctx context.Context, id string) error
	Templates(ctx context.Context) ([]string, error)
}

// MachineResponse wraps a machine so every tool returns an object.
type MachineResponse struct {
	Machine *domain.Machine `json:"machine" jsonschema_description:"The machine after the operation"`
}

// DeleteResponse reports a deleted machine.
type DeleteResponse struct {
	ID      string `json:"id"`
	Deleted bool   `json:"deleted"`
}

// TemplatesResponse lists template names.
type TemplatesResponse struct {
	Templates []string `json:"templates"`
}

// Server exposes a Service as an MCP server.
type Server struct {
	svc       Service
	mcpServer *server.MCPServer
	logger    *slog.Logger
}

// Option configures the Server.
type Option func(*Server)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewServer creates a new MCP Server instance.
func NewServer(svc Service, opts ...Option) *Server {
	s := &Server{
		svc:       svc,
		mcpServer: server.NewMCPServer("turing-mcp", strings.TrimSpace(turing.Version)),
		logger:    logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerTools()
	s.registerResources()
	return s
}

// MCPServer returns the underlying server.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE serves MCP over SSE on addr until ctx is cancelled.
func (s *Server) ServeSSE(ctx context.Context, addr, baseURL string) error {
	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", corsMiddleware(sseServer.SSEHandler()))
	mux.Handle("/message", corsMiddleware(sseServer.MessageHandler()))

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("MCP Server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) registerTools() {
	idParam := mcp.WithString("id", mcp.Required(), mcp.Description("Machine ID"))

	s.mcpServer.AddTool(mcp.NewTool("create_machine",
		mcp.WithDescription("Create a Turing machine from a template or a definition. Without either, the unary counter is used."),
		mcp.WithString("template", mcp.Description("Name of a template (see list_templates)")),
		mcp.WithString("name", mcp.Description("Display name")),
		mcp.WithString("tape", mcp.Description("Initial tape content; '_' is the blank symbol")),
		mcp.WithNumber("head_position", mcp.Description("Initial head position (default 0)")),
		mcp.WithString("definition", mcp.Description("JSON or YAML definition with initial_state, final_states and rules")),
		mcp.WithOutputSchema[MachineResponse](),
	), mcp.NewStructuredToolHandler(s.handleCreate))

	s.mcpServer.AddTool(mcp.NewTool("get_machine",
		mcp.WithDescription("Get the current configuration of a machine."),
		idParam,
		mcp.WithOutputSchema[MachineResponse](),
	), mcp.NewStructuredToolHandler(s.handleGet))

	s.mcpServer.AddTool(mcp.NewTool("step_machine",
		mcp.WithDescription("Execute at most one transition."),
		idParam,
		mcp.WithOutputSchema[turing.StepResult](),
	), mcp.NewStructuredToolHandler(s.handleStep))

	s.mcpServer.AddTool(mcp.NewTool("run_machine",
		mcp.WithDescription("Run until the machine halts or the step budget is spent."),
		idParam,
		mcp.WithNumber("max_steps", mcp.Description("Step budget (default and cap are set by the server)")),
		mcp.WithOutputSchema[turing.RunResult](),
	), mcp.NewStructuredToolHandler(s.handleRun))

	s.mcpServer.AddTool(mcp.NewTool("reset_machine",
		mcp.WithDescription("Reset the tape and return to the initial state."),
		idParam,
		mcp.WithString("content", mcp.Description("New tape content (default: the initial tape)")),
		mcp.WithNumber("head_position", mcp.Description("New head position (default: the initial head)")),
		mcp.WithOutputSchema[MachineResponse](),
	), mcp.NewStructuredToolHandler(s.handleReset))

	s.mcpServer.AddTool(mcp.NewTool("delete_machine",
		mcp.WithDescription("Delete a machine."),
		idParam,
		mcp.WithOutputSchema[DeleteResponse](),
	), mcp.NewStructuredToolHandler(s.handleDelete))

	s.mcpServer.AddTool(mcp.NewTool("list_templates",
		mcp.WithDescription("List the names of the available machine templates."),
		mcp.WithOutputSchema[TemplatesResponse](),
	), mcp.NewStructuredToolHandler(s.handleTemplates))
}

func (s *Server) handleCreate(ctx context.Context, _ mcp.CallToolRequest, args map[string]interface{}) (MachineResponse, error) {
	var req turing.CreateRequest
	req.Template, _ = args["template"].(string)
	req.Name, _ = args["name"].(string)
	if tape, ok := args["tape"].(string); ok {
		req.Tape = &tape
	}
	if head, ok, err := intArg(args, "head_position"); err != nil {
		return MachineResponse{}, err
	} else if ok {
		req.Head = &head
	}

	if raw, ok := args["definition"].(string); ok && strings.TrimSpace(raw) != "" {
		rec, err := schema.Unmarshal([]byte(raw), ".yaml")
		if err != nil {
			return MachineResponse{}, err
		}
		def, err := schema.DecodeRecord(rec)
		if err != nil {
			return MachineResponse{}, err
		}
		req.Definition = &def
	}

	m, err := s.svc.Create(ctx, req)
	if err != nil {
		return MachineResponse{}, fmt.Errorf("create failed: %w", err)
	}
	return MachineResponse{Machine: m}, nil
}

func (s *Server) handleGet(ctx context.Context, _ mcp.CallToolRequest, args map[string]interface{}) (MachineResponse, error) {
	id, err := idArg(args)
	if err != nil {
		return MachineResponse{}, err
	}
	m, err := s.svc.Get(ctx, id)
	if err != nil {
		return MachineResponse{}, err
	}
	return MachineResponse{Machine: m}, nil
}

func (s *Server) handleStep(ctx context.Context, _ mcp.CallToolRequest, args map[string]interface{}) (turing.StepResult, error) {
	id, err := idArg(args)
	if err != nil {
		return turing.StepResult{}, err
	}
	res, err := s.svc.Step(ctx, id)
	if err != nil {
		return turing.StepResult{}, fmt.Errorf("step failed: %w", err)
	}
	return *res, nil
}

func (s *Server) handleRun(ctx context.Context, _ mcp.CallToolRequest, args map[string]interface{}) (turing.RunResult, error) {
	id, err := idArg(args)
	if err != nil {
		return turing.RunResult{}, err
	}
	steps, _, err := intArg(args, "max_steps")
	if err != nil {
		return turing.RunResult{}, err
	}
	res, err := s.svc.Run(ctx, id, uint64(steps))
	if err != nil {
		return turing.RunResult{}, fmt.Errorf("run failed: %w", err)
	}
	return *res, nil
}

func (s *Server) handleReset(ctx context.Context, _ mcp.CallToolRequest, args map[string]interface{}) (MachineResponse, error) {
	id, err := idArg(args)
	if err != nil {
		return MachineResponse{}, err
	}

	req := &turing.ResetRequest{}
	if content, ok := args["content"].(string); ok {
		req.Content = &content
	}
	if head, ok, err := intArg(args, "head_position"); err != nil {
		return MachineResponse{}, err
	} else if ok {
		req.Head = &head
	}

	m, err := s.svc.Reset(ctx, id, req)
	if err != nil {
		return MachineResponse{}, fmt.Errorf("reset failed: %w", err)
	}
	return MachineResponse{Machine: m}, nil
}

func (s *Server) handleDelete(ctx context.Context, _ mcp.CallToolRequest, args map[string]interface{}) (DeleteResponse, error) {
	id, err := idArg(args)
	if err != nil {
		return DeleteResponse{}, err
	}
	if err := s.svc.Delete(ctx, id); err != nil {
		return DeleteResponse{}, err
	}
	return DeleteResponse{ID: id, Deleted: true}, nil
}

func (s *Server) handleTemplates(ctx context.Context, _ mcp.CallToolRequest, _ map[string]interface{}) (TemplatesResponse, error) {
	names, err := s.svc.Templates(ctx)
	if err != nil {
		return TemplatesResponse{}, err
	}
	return TemplatesResponse{Templates: names}, nil
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource(MachinesURI, "All Turing machines",
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		machines, err := s.svc.List(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list machines: %w", err)
		}
		data, err := json.Marshal(machines)
		if err != nil {
			return nil, err
		}
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      MachinesURI,
				MIMEType: "application/json",
				Text:     string(data),
			},
		}, nil
	})
}

var errMissingID = errors.New("id is required")

func idArg(args map[string]interface{}) (string, error) {
	id, _ := args["id"].(string)
	if strings.TrimSpace(id) == "" {
		return "", errMissingID
	}
	return id, nil
}

// intArg reads a non-negative integer argument. JSON numbers arrive as float64.
func intArg(args map[string]interface{}, key string) (int, bool, error) {
	raw, ok := args[key]
	if !ok || raw == nil {
		return 0, false, nil
	}
	var f float64
	switch v := raw.(type) {
	case float64:
		f = v
	case int:
		f = float64(v)
	case json.Number:
		n, err := v.Float64()
		if err != nil {
			return 0, false, fmt.Errorf("%s must be a number", key)
		}
		f = n
	default:
		return 0, false, fmt.Errorf("%s must be a number, got %T", key, raw)
	}
	if f < 0 || f != float64(int(f)) {
		return 0, false, fmt.Errorf("%s must be a non-negative integer", key)
	}
	return int(f), true, nil
}
