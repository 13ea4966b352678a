package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aretw0/distsim"
	"github.com/aretw0/distsim/internal/logging"
	"github.com/aretw0/distsim/pkg/domain"
	"github.com/aretw0/distsim/pkg/samples"
	"github.com/aretw0/distsim/pkg/session"
	"github.com/aretw0/distsim/pkg/topology"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/mitchellh/mapstructure"
)

// DefaultSession is used when a tool call names no session.
const DefaultSession = "default"

// DefaultHorizon bounds the settle tool when no horizon is given.
const DefaultHorizon = 1000 * domain.Unit

// Server exposes a session.Manager as an MCP Server.
type Server struct {
	sessions  *session.Manager
	mcpServer *server.MCPServer
	logger    *slog.Logger
}

// Option configures the Server.
type Option func(*Server)

// WithLogger sets the server logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewServer creates a new MCP Server instance.
func NewServer(sessions *session.Manager, opts ...Option) *Server {
	s := &Server{
		sessions:  sessions,
		mcpServer: server.NewMCPServer("distsim-mcp", strings.TrimSpace(distsim.Version)),
		logger:    logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerTools()
	s.registerResources()
	return s
}

// MCPServer returns the underlying protocol server.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE starts the server on the given port using SSE.
func (s *Server) ServeSSE(ctx context.Context, port int) error {
	addr := fmt.Sprintf(":%d", port)
	baseURL := fmt.Sprintf("http://localhost:%d", port)

	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", corsMiddleware(sseServer.SSEHandler()))
	mux.Handle("/message", corsMiddleware(sseServer.MessageHandler()))

	httpServer := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	// Channel to listen for errors coming from the listener.
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

		s.logger.Info("Shutdown signal received, shutting down MCP server")
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
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func sessionArg() mcp.ToolOption {
	return mcp.WithString("session", mcp.Description("Session name (default: \"default\")"))
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool("list_samples",
		mcp.WithDescription("List the bundled distributed algorithms and the graph family each expects."),
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return jsonResult(samples.List())
	})

	s.mcpServer.AddTool(mcp.NewTool("get_topology",
		mcp.WithDescription("Return the topology of a session as {v, e, i}."),
		sessionArg(),
		mcp.WithOutputSchema[domain.GraphExport](),
	), mcp.NewStructuredToolHandler(s.handleGetTopology))

	s.mcpServer.AddTool(mcp.NewTool("set_topology",
		mcp.WithDescription("Replace the topology of a session. Vertices are {x, y, id}, edges {s, e, u}, initiators a list of ids."),
		sessionArg(),
		mcp.WithObject("graph", mcp.Required(), mcp.Description("Graph export document {v, e, i}")),
		mcp.WithOutputSchema[domain.GraphExport](),
	), mcp.NewStructuredToolHandler(s.handleSetTopology))

	s.mcpServer.AddTool(mcp.NewTool("add_vertex",
		mcp.WithDescription("Add a process at (x, y). Returns its id."),
		sessionArg(),
		mcp.WithNumber("x", mcp.Description("Canvas x coordinate")),
		mcp.WithNumber("y", mcp.Description("Canvas y coordinate")),
		mcp.WithBoolean("initiator", mcp.Description("Mark the process as an initiator")),
	), mcp.NewStructuredToolHandler(s.handleAddVertex))

	s.mcpServer.AddTool(mcp.NewTool("add_channel",
		mcp.WithDescription("Connect two processes. Channels are undirected unless directed is set."),
		sessionArg(),
		mcp.WithNumber("from", mcp.Required(), mcp.Description("Start vertex id")),
		mcp.WithNumber("to", mcp.Required(), mcp.Description("End vertex id")),
		mcp.WithBoolean("directed", mcp.Description("Create a one-way channel")),
	), mcp.NewStructuredToolHandler(s.handleAddChannel))

	s.mcpServer.AddTool(mcp.NewTool("run",
		mcp.WithDescription("Start a run with a bundled sample or a Lua algorithm script."),
		sessionArg(),
		mcp.WithString("sample", mcp.Description("Sample name, see list_samples")),
		mcp.WithString("source", mcp.Description("Lua script registering onInitializationDo/onInitiationDo/onReceivingMessageDo")),
		mcp.WithOutputSchema[domain.Report](),
	), mcp.NewStructuredToolHandler(s.handleRun))

	s.mcpServer.AddTool(mcp.NewTool("advance",
		mcp.WithDescription("Advance simulated time by the given number of units."),
		sessionArg(),
		mcp.WithNumber("units", mcp.Required(), mcp.Description("Simulated time units")),
		mcp.WithOutputSchema[domain.Report](),
	), mcp.NewStructuredToolHandler(s.handleAdvance))

	s.mcpServer.AddTool(mcp.NewTool("settle",
		mcp.WithDescription("Advance until no message is in flight or the horizon elapses."),
		sessionArg(),
		mcp.WithNumber("horizon", mcp.Description("Upper bound in simulated units (default 1000)")),
		mcp.WithOutputSchema[domain.Report](),
	), mcp.NewStructuredToolHandler(s.handleSettle))

	s.mcpServer.AddTool(mcp.NewTool("snapshot",
		mcp.WithDescription("Report the state of every process in the current run."),
		sessionArg(),
		mcp.WithOutputSchema[domain.Report](),
	), mcp.NewStructuredToolHandler(s.handleSnapshot))

	s.mcpServer.AddTool(mcp.NewTool("reset",
		mcp.WithDescription("Stop the run and cancel every in-flight message."),
		sessionArg(),
		mcp.WithOutputSchema[domain.Report](),
	), mcp.NewStructuredToolHandler(s.handleReset))
}

// toolArgs is the union of the tool parameters, decoded from the loosely typed arguments.
type toolArgs struct {
	Session   string          `mapstructure:"session"`
	Graph     map[string]any  `mapstructure:"graph"`
	X         float64         `mapstructure:"x"`
	Y         float64         `mapstructure:"y"`
	Initiator bool            `mapstructure:"initiator"`
	From      domain.VertexID `mapstructure:"from"`
	To        domain.VertexID `mapstructure:"to"`
	Directed  bool            `mapstructure:"directed"`
	Sample    string          `mapstructure:"sample"`
	Source    string          `mapstructure:"source"`
	Units     float64         `mapstructure:"units"`
	Horizon   float64         `mapstructure:"horizon"`
}

func decodeArgs(raw map[string]any) (toolArgs, error) {
	var a toolArgs
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &a,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return a, err
	}
	if err := dec.Decode(raw); err != nil {
		return a, fmt.Errorf("invalid arguments: %w", err)
	}
	if a.Session == "" {
		a.Session = DefaultSession
	}
	return a, nil
}

// open decodes the arguments and returns the named session, starting it if needed.
func (s *Server) open(ctx context.Context, raw map[string]any) (*session.Session, toolArgs, error) {
	a, err := decodeArgs(raw)
	if err != nil {
		return nil, a, err
	}
	sess, err := s.sessions.LoadOrStart(ctx, a.Session)
	return sess, a, err
}

// VertexResult is returned by add_vertex.
type VertexResult struct {
	ID    domain.VertexID `json:"id"`
	Label string          `json:"label"`
}

// ChannelResult is returned by add_channel.
type ChannelResult struct {
	Label string `json:"label"`
}

func (s *Server) handleGetTopology(ctx context.Context, request mcp.CallToolRequest, args map[string]any) (domain.GraphExport, error) {
	sess, _, err := s.open(ctx, args)
	if err != nil {
		return domain.GraphExport{}, err
	}
	return sess.Sim.Export(), nil
}

func (s *Server) handleSetTopology(ctx context.Context, request mcp.CallToolRequest, args map[string]any) (domain.GraphExport, error) {
	sess, a, err := s.open(ctx, args)
	if err != nil {
		return domain.GraphExport{}, err
	}
	g, err := topology.DecodeExport(a.Graph)
	if err != nil {
		return domain.GraphExport{}, err
	}
	if err := sess.Sim.ImportExport(g); err != nil {
		return domain.GraphExport{}, err
	}
	return sess.Sim.Export(), nil
}

func (s *Server) handleAddVertex(ctx context.Context, request mcp.CallToolRequest, args map[string]any) (VertexResult, error) {
	sess, a, err := s.open(ctx, args)
	if err != nil {
		return VertexResult{}, err
	}
	id := sess.Sim.AddVertex(a.X, a.Y)
	if a.Initiator {
		if err := sess.Sim.SetInitiator(id, true); err != nil {
			return VertexResult{}, err
		}
	}
	return VertexResult{ID: id, Label: id.Label()}, nil
}

func (s *Server) handleAddChannel(ctx context.Context, request mcp.CallToolRequest, args map[string]any) (ChannelResult, error) {
	sess, a, err := s.open(ctx, args)
	if err != nil {
		return ChannelResult{}, err
	}
	label, err := sess.Sim.AddChannel(a.From, a.To, a.Directed)
	if err != nil {
		return ChannelResult{}, err
	}
	return ChannelResult{Label: label}, nil
}

func (s *Server) handleRun(ctx context.Context, request mcp.CallToolRequest, args map[string]any) (domain.Report, error) {
	sess, a, err := s.open(ctx, args)
	if err != nil {
		return domain.Report{}, err
	}
	switch {
	case a.Sample != "" && a.Source != "":
		return domain.Report{}, fmt.Errorf("sample and source are mutually exclusive")
	case a.Sample != "":
		err = sess.Sim.RunSample(ctx, a.Sample)
	case a.Source != "":
		err = sess.Sim.Run(ctx, a.Source)
	default:
		return domain.Report{}, fmt.Errorf("one of sample or source is required")
	}
	if err != nil {
		s.logger.Warn("MCP run rejected", "session_id", sess.ID, "err", err)
		return domain.Report{}, err
	}
	return sess.Sim.Report(), nil
}

func (s *Server) handleAdvance(ctx context.Context, request mcp.CallToolRequest, args map[string]any) (domain.Report, error) {
	sess, a, err := s.open(ctx, args)
	if err != nil {
		return domain.Report{}, err
	}
	if a.Units <= 0 {
		return domain.Report{}, fmt.Errorf("units must be positive, got %v", a.Units)
	}
	sess.Sim.Advance(ctx, time.Duration(a.Units*float64(domain.Unit)))
	return sess.Sim.Report(), nil
}

func (s *Server) handleSettle(ctx context.Context, request mcp.CallToolRequest, args map[string]any) (domain.Report, error) {
	sess, a, err := s.open(ctx, args)
	if err != nil {
		return domain.Report{}, err
	}
	horizon := DefaultHorizon
	if a.Horizon > 0 {
		horizon = time.Duration(a.Horizon * float64(domain.Unit))
	}
	return sess.Sim.Settle(ctx, horizon)
}

func (s *Server) handleSnapshot(ctx context.Context, request mcp.CallToolRequest, args map[string]any) (domain.Report, error) {
	sess, _, err := s.open(ctx, args)
	if err != nil {
		return domain.Report{}, err
	}
	return sess.Sim.Report(), nil
}

func (s *Server) handleReset(ctx context.Context, request mcp.CallToolRequest, args map[string]any) (domain.Report, error) {
	sess, _, err := s.open(ctx, args)
	if err != nil {
		return domain.Report{}, err
	}
	sess.Sim.Reset()
	return sess.Sim.Report(), nil
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("encode failed: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// SampleURI is the resource URI of a bundled sample script.
func SampleURI(name string) string {
	return "distsim://samples/" + name
}

func (s *Server) registerResources() {
	for _, sample := range samples.List() {
		uri := SampleURI(sample.Name)
		s.mcpServer.AddResource(mcp.NewResource(uri, sample.Title+" algorithm",
			mcp.WithResourceDescription(fmt.Sprintf("Lua source of the %s sample (%s graphs)", sample.Title, sample.GraphType)),
			mcp.WithMIMEType("text/x-lua"),
		), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
			return s.readSample(sample)
		})
	}
}

func (s *Server) readSample(sample samples.Sample) ([]mcp.ResourceContents, error) {
	src, err := sample.Source()
	if err != nil {
		return nil, fmt.Errorf("failed to read sample %s: %w", sample.Name, err)
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      SampleURI(sample.Name),
			MIMEType: "text/x-lua",
			Text:     string(src),
		},
	}, nil
}
