package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/matsen/arxivterm/internal/lexical"
	"github.com/matsen/arxivterm/internal/logging"
	"github.com/matsen/arxivterm/internal/lsa"
	"github.com/matsen/arxivterm/internal/paper"
	"github.com/matsen/arxivterm/internal/semantic"
)

// Handlers contains the handler functions for all MCP tools.
type Handlers struct {
	store    Store
	searcher *semantic.Searcher
	opts     Options
	log      *logging.Logger
	now      func() time.Time
}

// NewHandlers creates tool handlers. Non-positive defaults fall back to 10 results and 7 days.
func NewHandlers(store Store, searcher *semantic.Searcher, opts Options, log *logging.Logger) *Handlers {
	if opts.SearchLimit <= 0 {
		opts.SearchLimit = 10
	}
	if opts.ShowDays <= 0 {
		opts.ShowDays = 7
	}
	if log == nil {
		log = logging.Nop()
	}
	return &Handlers{store: store, searcher: searcher, opts: opts, log: log, now: time.Now}
}

// SemanticSearch handles the semantic_search tool.
func (h *Handlers) SemanticSearch(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := request.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError("query argument is required and must be a string"), nil
	}
	limit := request.GetInt("limit", h.opts.SearchLimit)
	refresh := request.GetBool("refresh", false)

	results, err := h.searcher.Search(query, limit, refresh)
	if err != nil {
		if errors.Is(err, lsa.ErrNotTrained) {
			return mcp.NewToolResultError("embedding model is not trained; call again with refresh=true or run 'axt train'"), nil
		}
		return mcp.NewToolResultError(fmt.Sprintf("semantic search failed: %v", err)), nil
	}
	return jsonResult(results)
}

// TextSearch handles the text_search tool.
func (h *Handlers) TextSearch(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := request.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError("query argument is required and must be a string"), nil
	}
	limit := request.GetInt("limit", h.opts.SearchLimit)

	papers, err := lexical.Search(h.store, query, limit)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("text search failed: %v", err)), nil
	}
	return jsonResult(papers)
}

// SimilarPapers handles the similar_papers tool.
func (h *Handlers) SimilarPapers(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	entryID, err := request.RequireString("entry_id")
	if err != nil {
		return mcp.NewToolResultError("entry_id argument is required and must be a string"), nil
	}
	limit := request.GetInt("limit", h.opts.SearchLimit)

	results, err := h.searcher.Similar(entryID, limit)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("similar search failed: %v", err)), nil
	}
	return jsonResult(results)
}

// RecentPapers handles the recent_papers tool.
func (h *Handlers) RecentPapers(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	days := request.GetInt("days", h.opts.ShowDays)
	if days < 1 {
		return mcp.NewToolResultError("days must be positive"), nil
	}
	unviewed := request.GetBool("unviewed", false)

	papers, err := h.store.PublishedAfter(h.now().Add(-time.Duration(days) * 24 * time.Hour))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("listing papers failed: %v", err)), nil
	}
	if unviewed {
		papers = filterUnviewed(papers)
	}
	if papers == nil {
		papers = []paper.Paper{}
	}
	return jsonResult(papers)
}

// MarkViewed handles the mark_viewed tool.
func (h *Handlers) MarkViewed(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	entryID, err := request.RequireString("entry_id")
	if err != nil {
		return mcp.NewToolResultError("entry_id argument is required and must be a string"), nil
	}

	if err := h.store.MarkViewed(entryID); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("mark viewed failed: %v", err)), nil
	}
	h.log.Info("Marked paper viewed", "entry_id", entryID)
	return jsonResult(map[string]interface{}{"entry_id": entryID, "viewed": true})
}

// PaperStats handles the paper_stats tool.
func (h *Handlers) PaperStats(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	stats, err := h.store.StatsByDate()
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("stats failed: %v", err)), nil
	}
	if stats == nil {
		stats = []paper.DateCount{}
	}
	return jsonResult(map[string]interface{}{
		"dates": stats,
		"total": paper.TotalCount(stats),
	})
}

func filterUnviewed(papers []paper.Paper) []paper.Paper {
	var out []paper.Paper
	for _, p := range papers {
		if !p.Viewed {
			out = append(out, p)
		}
	}
	return out
}

func jsonResult(v interface{}) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("encoding result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}
