package registry

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/tmc/langchaingo/llms"
	"github.com/vinodismyname/salespulse/config"
)

// ToolProvider lists tool definitions for discovery.
type ToolProvider interface {
	Tools(context.Context) ([]mcp.Tool, error)
}

// Registry records every tool added to the server and sizes the text
// summaries attached to tool results.
type Registry struct {
	mu           sync.RWMutex
	tools        map[string]mcp.Tool
	summaryModel string
	tokenBudget  int
	countTokens  func(model, text string) int
}

// New constructs an empty Registry using config summary defaults.
func New() *Registry {
	return &Registry{
		tools:        map[string]mcp.Tool{},
		summaryModel: config.DefaultSummaryModel,
		tokenBudget:  config.DefaultSummaryTokenBudget,
		countTokens:  llms.CountTokens,
	}
}

// WithSummaryBudget sets the model used for token counting and the budget
// for result summaries. Zero values keep the current setting.
func (r *Registry) WithSummaryBudget(model string, tokens int) *Registry {
	r.mu.Lock()
	defer r.mu.Unlock()
	if model != "" {
		r.summaryModel = model
	}
	if tokens > 0 {
		r.tokenBudget = tokens
	}
	return r
}

// Register stores a tool definition for discovery.
func (r *Registry) Register(tool mcp.Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[tool.Name] = tool
}

// add registers tool on both the server and the registry.
func (r *Registry) add(s *server.MCPServer, tool mcp.Tool, h server.ToolHandlerFunc) {
	s.AddTool(tool, h)
	r.Register(tool)
}

// Get returns a tool by name when present.
func (r *Registry) Get(name string) (mcp.Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// Tools returns the registered tools sorted by name.
func (r *Registry) Tools(ctx context.Context) ([]mcp.Tool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tools := make([]mcp.Tool, 0, len(r.tools))
	for _, tool := range r.tools {
		tools = append(tools, tool)
	}
	sort.Slice(tools, func(i, j int) bool { return tools[i].Name < tools[j].Name })
	return tools, nil
}

// ModelContextSize exposes the named model's context window.
func (r *Registry) ModelContextSize(modelName string) int {
	return llms.GetModelContextSize(modelName)
}

// Summarize joins lines and, when the text exceeds the token budget, keeps
// the longest prefix that fits. The first line is always kept and a trailing
// "…(+N more)" marks dropped lines. Token counting is costly, so the cut is
// estimated proportionally and then tightened.
func (r *Registry) Summarize(lines []string) string {
	if len(lines) == 0 {
		return ""
	}
	r.mu.RLock()
	model, budget, count := r.summaryModel, r.tokenBudget, r.countTokens
	r.mu.RUnlock()

	render := func(keep int) string {
		text := strings.Join(lines[:keep], "\n")
		if keep < len(lines) {
			text += "\n…(+" + strconv.Itoa(len(lines)-keep) + " more)"
		}
		return text
	}

	total := count(model, render(len(lines)))
	if total <= budget {
		return render(len(lines))
	}
	keep := max(1, len(lines)*budget/total)
	for keep > 1 && count(model, render(keep)) > budget {
		keep--
	}
	return render(keep)
}

// result builds a structured tool result whose text content is the
// budgeted summary of lines.
func (r *Registry) result(out any, lines []string) *mcp.CallToolResult {
	text := r.Summarize(lines)
	res := mcp.NewToolResultStructured(out, lines[0])
	res.Content = []mcp.Content{mcp.NewTextContent(text)}
	return res
}
