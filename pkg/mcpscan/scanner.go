package mcpscan

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/pkg/errors"
	"github.com/tidwall/gjson"
	"golang.org/x/sync/errgroup"

	"github.com/jingkaihe/agentkit/pkg/logger"
	"github.com/jingkaihe/agentkit/pkg/scan"
)

// DefaultConcurrency bounds how many servers are scanned at once.
const DefaultConcurrency = 4

// DefaultServerTimeout bounds connecting to and listing one server.
const DefaultServerTimeout = scan.DefaultTimeout

// Scanner scans every server of a Config.
type Scanner struct {
	connector     Connector
	analyzers     []scan.Analyzer
	concurrency   int
	serverTimeout time.Duration
	progress      io.Writer
	now           func() time.Time
}

// Option configures a Scanner.
type Option func(*Scanner)

// WithConnector replaces the mcp-go connector.
func WithConnector(c Connector) Option {
	return func(s *Scanner) { s.connector = c }
}

// WithConcurrency sets the number of servers scanned in parallel.
func WithConcurrency(n int) Option {
	return func(s *Scanner) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// WithServerTimeout bounds the connect, initialize and tools/list round
// trip of each server. Zero or negative disables the deadline.
func WithServerTimeout(d time.Duration) Option {
	return func(s *Scanner) { s.serverTimeout = d }
}

// WithProgress sets where per-server progress is written.
func WithProgress(w io.Writer) Option {
	return func(s *Scanner) { s.progress = w }
}

// NewScanner returns a scanner running analyzers on every tool.
func NewScanner(analyzers []scan.Analyzer, opts ...Option) *Scanner {
	s := &Scanner{
		connector:     NewClientConnector(DefaultRetryConfig),
		analyzers:     analyzers,
		concurrency:   DefaultConcurrency,
		serverTimeout: DefaultServerTimeout,
		progress:      io.Discard,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Scan scans all servers in cfg. A failing server is recorded in the
// report and never stops the others. The only error returned is a
// cancelled context.
func (s *Scanner) Scan(ctx context.Context, cfg *Config, configPath string) (*Report, error) {
	report := &Report{
		ScanID:        uuid.New().String(),
		ScanTimestamp: s.now(),
		ConfigFile:    configPath,
		Servers:       make(map[string]*ServerResult, len(cfg.MCPServers)),
	}
	for _, a := range s.analyzers {
		report.AnalyzersUsed = append(report.AnalyzersUsed, a.Name())
	}

	log := logger.G(ctx).WithField("scan_id", report.ScanID)
	log.WithField("servers", len(cfg.MCPServers)).Info("starting mcp scan")

	var mu sync.Mutex
	g := new(errgroup.Group)
	g.SetLimit(s.concurrency)

	for _, name := range cfg.Names() {
		server := cfg.MCPServers[name]
		g.Go(func() error {
			var out bytes.Buffer
			result := s.scanServer(ctx, &out, name, server)

			mu.Lock()
			defer mu.Unlock()
			report.Servers[name] = result
			_, _ = s.progress.Write(out.Bytes())
			return nil
		})
	}
	_ = g.Wait()

	report.Summarize()
	if err := ctx.Err(); err != nil {
		return report, errors.Wrap(err, "scan cancelled")
	}
	return report, nil
}

func (s *Scanner) scanServer(ctx context.Context, out io.Writer, name string, server Server) *ServerResult {
	start := time.Now()
	serverType := server.EffectiveType()
	result := &ServerResult{
		ServerType: string(serverType),
		Tools:      []ToolResult{},
	}
	defer func() { result.DurationMS = time.Since(start).Milliseconds() }()

	switch serverType {
	case ServerTypeStdio:
		result.Command = server.Command
		result.Args = server.Args
		fmt.Fprintf(out, "\n📡 Scanning stdio server: %s\n", name)
		fmt.Fprintf(out, "   Command: %s\n", server.Command)
		fmt.Fprintf(out, "   Args: %v\n", server.Args)
	case ServerTypeHTTP, ServerTypeSSE:
		result.URL = server.URL
		if _, ok := BearerToken(server.Headers); ok {
			result.Auth = "bearer"
		}
		fmt.Fprintf(out, "\n📡 Scanning %s server: %s\n", serverType, name)
		fmt.Fprintf(out, "   URL: %s\n", server.URL)
	default:
		result.ServerType = string(server.Type)
		result.Status = StatusSkipped
		result.Error = fmt.Sprintf("Unsupported server type: %s", server.Type)
		fmt.Fprintf(out, "\n⚠️  Skipping %s: unsupported type '%s'\n", name, server.Type)
		return result
	}

	log := logger.G(ctx).WithField("server", name)
	tools, err := s.listTools(ctx, name, server)
	if err != nil {
		log.WithError(err).Warn("mcp server scan failed")
		result.Status = StatusFailed
		result.Error = err.Error()
		fmt.Fprintf(out, "   ❌ Scan failed: %s\n", err)
		return result
	}

	for _, tool := range tools {
		result.Tools = append(result.Tools, s.analyzeTool(ctx, name, tool))
	}
	result.Status = StatusCompleted

	safe := result.SafeCount()
	fmt.Fprintf(out, "   ✅ Scanned %d tools\n", len(result.Tools))
	fmt.Fprintf(out, "      Safe: %d, Unsafe: %d\n", safe, len(result.Tools)-safe)
	log.WithField("tools", len(result.Tools)).Debug("mcp server scanned")
	return result
}

func (s *Scanner) listTools(ctx context.Context, name string, server Server) ([]mcp.Tool, error) {
	if s.serverTimeout <= 0 {
		return s.connectAndList(ctx, name, server)
	}

	tctx, cancel := context.WithTimeout(ctx, s.serverTimeout)
	defer cancel()
	tools, err := s.connectAndList(tctx, name, server)
	if err != nil && ctx.Err() == nil && errors.Is(tctx.Err(), context.DeadlineExceeded) {
		return nil, errors.Errorf("timed out after %s", s.serverTimeout)
	}
	return tools, err
}

func (s *Scanner) connectAndList(ctx context.Context, name string, server Server) ([]mcp.Tool, error) {
	session, err := s.connector.Connect(ctx, name, server)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := session.Close(); err != nil {
			logger.G(ctx).WithError(err).WithField("server", name).Debug("failed to close mcp client")
		}
	}()
	return session.ListTools(ctx)
}

func (s *Scanner) analyzeTool(ctx context.Context, server string, tool mcp.Tool) ToolResult {
	input := toolInput(server, tool)
	req := scan.Request{Target: scan.TargetMCPTool, Tool: &input}

	result := ToolResult{
		Name:            tool.Name,
		Description:     tool.Description,
		Status:          ToolCompleted,
		Findings:        []scan.Finding{},
		AnalyzerResults: make(map[string]AnalyzerResult, len(s.analyzers)),
	}

	for _, a := range s.analyzers {
		findings, err := a.Analyze(ctx, req)
		if err != nil {
			logger.G(ctx).WithError(err).
				WithField("analyzer", a.Name()).
				WithField("tool", tool.Name).
				Warn("analyzer failed")
			result.Status = ToolIncomplete
			result.AnalyzerResults[a.Name()] = AnalyzerResult{IsSafe: true, Error: err.Error()}
			continue
		}
		for i := range findings {
			if findings[i].Analyzer == "" {
				findings[i].Analyzer = a.Name()
			}
		}
		result.Findings = append(result.Findings, findings...)
		result.AnalyzerResults[a.Name()] = AnalyzerResult{
			IsSafe:        scan.IsSafe(findings),
			FindingsCount: len(findings),
		}
	}

	result.MaxSeverity = scan.MaxSeverity(result.Findings)
	result.IsSafe = scan.IsSafe(result.Findings)
	return result
}

// toolInput flattens a tool into the analyzer payload. The raw tool JSON
// is used so schema and annotations pass through unchanged.
func toolInput(server string, tool mcp.Tool) scan.ToolInput {
	input := scan.ToolInput{Server: server, Name: tool.Name, Description: tool.Description}

	raw, err := json.Marshal(tool)
	if err != nil {
		return input
	}
	if schema := gjson.GetBytes(raw, "inputSchema"); schema.Exists() {
		input.InputSchema = json.RawMessage(schema.Raw)
	}
	if annotations := gjson.GetBytes(raw, "annotations"); annotations.Exists() {
		input.Annotations = json.RawMessage(annotations.Raw)
	}
	return input
}
