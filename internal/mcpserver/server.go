// Package mcpserver exposes the checks to MCP clients over stdio.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/routable/routable-lint/internal/input"
	"github.com/routable/routable-lint/internal/lint"
	"github.com/routable/routable-lint/internal/metrics"
	"github.com/routable/routable-lint/internal/output"
	"github.com/routable/routable-lint/internal/routable"
	"github.com/routable/routable-lint/internal/rules"
	"github.com/routable/routable-lint/internal/sarif"
)

const (
	ServerName       = "routable-lint"
	RulesResourceURI = "routable://rules"
	defaultFilename  = "snippet.py"
)

type Server struct {
	mcp     *server.MCPServer
	checker *metrics.InstrumentedChecker
	runner  *lint.Runner
	handler *input.Handler
	rules   []rules.Rule
	logger  *slog.Logger
}

// New builds a server whose check_paths tool runs through runner and reads
// files with handler. Source snippets are checked directly and recorded in
// the runner's metrics.
func New(runner *lint.Runner, handler *input.Handler, catalogue []rules.Rule, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		mcp: server.NewMCPServer(ServerName, routable.Version,
			server.WithToolCapabilities(false),
			server.WithResourceCapabilities(false, false),
		),
		checker: metrics.NewInstrumentedChecker(metrics.CheckerFunc(routable.Check), runner.Recorder()),
		runner:  runner,
		handler: handler,
		rules:   catalogue,
		logger:  logger,
	}
	s.register()
	return s
}

func (s *Server) register() {
	s.mcp.AddTool(mcp.NewTool("check_source",
		mcp.WithDescription("Check Python source text and return findings as JSON."),
		mcp.WithString("source", mcp.Required(), mcp.Description("Python source code")),
		mcp.WithString("filename", mcp.Description("File name used for path-dependent rules")),
	), s.handleCheckSource)

	s.mcp.AddTool(mcp.NewTool("check_paths",
		mcp.WithDescription("Check Python files or directories and return flake8-style lines."),
		mcp.WithArray("paths", mcp.Required(), mcp.Description("Files or directories"),
			mcp.Items(map[string]any{"type": "string"})),
	), s.handleCheckPaths)

	s.mcp.AddTool(mcp.NewTool("explain_rule",
		mcp.WithDescription("Describe a rule code as Markdown."),
		mcp.WithString("code", mcp.Required(), mcp.Description("Rule code such as ROU106")),
	), s.handleExplainRule)

	s.mcp.AddResource(mcp.NewResource(RulesResourceURI, "Rule catalogue",
		mcp.WithResourceDescription("Every rule code with its level and documentation"),
		mcp.WithMIMEType("application/json"),
	), s.handleRulesResource)
}

// ServeStdio serves requests on stdin and stdout until EOF.
func (s *Server) ServeStdio() error {
	s.logger.Info("serving MCP over stdio", "tools", 3)
	return server.ServeStdio(s.mcp)
}

type sourceResult struct {
	Findings    []routable.Finding `json:"findings"`
	SourceError string             `json:"source_error,omitempty"`
}

func (s *Server) handleCheckSource(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	src, err := req.RequireString("source")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	filename := req.GetString("filename", defaultFilename)

	res := sourceResult{Findings: []routable.Finding{}}
	findings, err := s.checker.Check(ctx, filename, []byte(src))
	switch {
	case err == nil:
		if findings != nil {
			res.Findings = findings
		}
	case routable.IsSourceError(err):
		res.SourceError = err.Error()
	default:
		return nil, err
	}

	data, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(string(data)), nil
}

func (s *Server) handleCheckPaths(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	paths, err := req.RequireStringSlice("paths")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	artifacts, err := s.handler.ReadPaths(paths)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("reading input: %v", err)), nil
	}

	report, err := s.runner.Run(ctx, artifacts)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, err
		}
		return mcp.NewToolResultError(err.Error()), nil
	}

	out, err := (&output.TextFormatter{}).Format(&output.AnalysisOutput{
		SARIFLog: report.SARIF(s.rules, input.KindFile),
	})
	if err != nil {
		return nil, err
	}
	text := strings.TrimSpace(string(out))
	if text == "" {
		text = fmt.Sprintf("No findings in %d files.", len(artifacts))
	}
	return mcp.NewToolResultText(text), nil
}

func (s *Server) handleExplainRule(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	code, err := req.RequireString("code")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == sarif.SourceErrorRuleID {
		return mcp.NewToolResultText("# E999\n\nThe file could not be tokenized or parsed, so no rule ran on it.\n"), nil
	}
	r, ok := rules.Index(s.rules)[code]
	if !ok {
		return mcp.NewToolResultError(fmt.Sprintf("unknown rule code %q", code)), nil
	}
	return mcp.NewToolResultText(output.RuleMarkdown(r)), nil
}

func (s *Server) handleRulesResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	data, err := json.MarshalIndent(s.rules, "", "  ")
	if err != nil {
		return nil, err
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      RulesResourceURI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}
