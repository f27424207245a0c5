// Package mcpserver exposes the paper store and search over the Model
// Context Protocol so LLM agents can query tracked papers.
package mcpserver

import (
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/matsen/arxivterm/internal/logging"
	"github.com/matsen/arxivterm/internal/paper"
	"github.com/matsen/arxivterm/internal/semantic"
)

// ServerName and ServerVersion identify the server to MCP clients.
const (
	ServerName    = "arxivterm"
	ServerVersion = "0.1.0"
)

// Store is the subset of the paper store used by the tools.
// *storage.DB satisfies it.
type Store interface {
	SearchText(query string) ([]paper.Paper, error)
	PublishedAfter(threshold time.Time) ([]paper.Paper, error)
	MarkViewed(entryID string) error
	StatsByDate() ([]paper.DateCount, error)
}

// Options holds defaults applied when a tool call omits an argument.
type Options struct {
	SearchLimit int
	ShowDays    int
}

// NewServer creates an MCP server with every tool registered.
func NewServer(store Store, searcher *semantic.Searcher, opts Options, log *logging.Logger) (*mcpserver.MCPServer, *Handlers) {
	server := mcpserver.NewMCPServer(ServerName, ServerVersion)
	handlers := NewHandlers(store, searcher, opts, log)
	RegisterTools(server, handlers)
	return server, handlers
}

// RegisterTools registers all MCP tools with the server.
func RegisterTools(server *mcpserver.MCPServer, h *Handlers) {
	server.AddTool(mcp.Tool{
		Name:        "semantic_search",
		Description: "Rank stored arXiv papers by semantic similarity of their abstracts to a free-text query.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"query": map[string]interface{}{
					"type":        "string",
					"description": "Free-text description of what to look for",
				},
				"limit": map[string]interface{}{
					"type":        "number",
					"description": "Maximum number of papers to return",
					"default":     h.opts.SearchLimit,
				},
				"refresh": map[string]interface{}{
					"type":        "boolean",
					"description": "Retrain the embedding model on all stored papers first",
					"default":     false,
				},
			},
			Required: []string{"query"},
		},
	}, h.SemanticSearch)

	server.AddTool(mcp.Tool{
		Name:        "text_search",
		Description: "Find stored papers whose title or abstract contains a substring (case-insensitive), oldest first.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"query": map[string]interface{}{
					"type":        "string",
					"description": "Substring to look for",
				},
				"limit": map[string]interface{}{
					"type":        "number",
					"description": "Maximum number of papers to return",
					"default":     h.opts.SearchLimit,
				},
			},
			Required: []string{"query"},
		},
	}, h.TextSearch)

	server.AddTool(mcp.Tool{
		Name:        "similar_papers",
		Description: "Find stored papers whose abstracts are closest to the abstract of a given paper.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"entry_id": map[string]interface{}{
					"type":        "string",
					"description": "Entry ID of the reference paper, e.g. http://arxiv.org/abs/2403.00001v1",
				},
				"limit": map[string]interface{}{
					"type":        "number",
					"description": "Maximum number of papers to return",
					"default":     h.opts.SearchLimit,
				},
			},
			Required: []string{"entry_id"},
		},
	}, h.SimilarPapers)

	server.AddTool(mcp.Tool{
		Name:        "recent_papers",
		Description: "List stored papers published in the last N days, oldest first.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"days": map[string]interface{}{
					"type":        "number",
					"description": "How many days back to look",
					"default":     h.opts.ShowDays,
				},
				"unviewed": map[string]interface{}{
					"type":        "boolean",
					"description": "Only return papers not yet marked viewed",
					"default":     false,
				},
			},
		},
	}, h.RecentPapers)

	server.AddTool(mcp.Tool{
		Name:        "mark_viewed",
		Description: "Mark a stored paper as viewed.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"entry_id": map[string]interface{}{
					"type":        "string",
					"description": "Entry ID of the paper",
				},
			},
			Required: []string{"entry_id"},
		},
	}, h.MarkViewed)

	server.AddTool(mcp.Tool{
		Name:        "paper_stats",
		Description: "Count stored papers per publication date.",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, h.PaperStats)
}
