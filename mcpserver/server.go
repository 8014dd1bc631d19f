// Package mcpserver exposes the archive to external agents over the Model
// Context Protocol: newline-delimited JSON-RPC on stdin/stdout, with one
// resource per archived item and four query tools. Diagnostics go to stderr
// only; stdout belongs to the wire.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog"

	"github.com/chronicle-ai/chronicle/store"
)

const (
	serverName    = "chronicle-archive"
	serverVersion = "1.0.0"

	// resourceURIPrefix is the URI scheme for per-item resources.
	resourceURIPrefix = "chronicle://chats/"

	defaultRecentCount  = 5
	defaultSemanticTopK = 5
)

// Archive is the slice of the store the MCP server needs.
type Archive interface {
	LoadItems(ctx context.Context) ([]*store.Item, error)
	GetItem(ctx context.Context, id string) (*store.Item, error)
	KeywordSearch(ctx context.Context, pattern string, filters store.SearchFilters) ([]*store.Item, error)
	VectorKNN(ctx context.Context, queryVec []float32, k int, filters store.SearchFilters) ([]store.ScoredItem, error)
	ListRecent(ctx context.Context, count int) ([]*store.Item, error)
	ListTags(ctx context.Context) ([]string, error)
}

// Server wires the archive into an MCP stdio server.
type Server struct {
	archive Archive
	logger  zerolog.Logger
	mcp     *server.MCPServer
}

// New constructs the MCP server and registers its resources and tools.
func New(archive Archive, logger zerolog.Logger) *Server {
	s := &Server{
		archive: archive,
		logger:  logger.With().Str("component", "mcp_server").Logger(),
	}
	s.mcp = server.NewMCPServer(serverName, serverVersion,
		server.WithResourceCapabilities(false, true),
		server.WithToolCapabilities(false),
		server.WithRecovery(),
	)
	s.registerResourceTemplate()
	s.registerTools()
	return s
}

// Serve registers one resource per item and blocks servicing stdio until
// stdin closes.
func (s *Server) Serve(ctx context.Context) error {
	if err := s.registerItemResources(ctx); err != nil {
		return fmt.Errorf("register resources: %w", err)
	}
	s.logger.Info().Msg("Serving MCP over stdio")
	return server.ServeStdio(s.mcp)
}

// registerItemResources advertises every archived item, newest first.
func (s *Server) registerItemResources(ctx context.Context) error {
	items, err := s.archive.LoadItems(ctx)
	if err != nil {
		return err
	}
	for _, item := range items {
		item := item
		resource := mcp.NewResource(
			resourceURIPrefix+item.ID,
			item.Title,
			mcp.WithResourceDescription(item.Summary),
			mcp.WithMIMEType("text/markdown"),
		)
		s.mcp.AddResource(resource, func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
			return s.readItemResource(ctx, req.Params.URI)
		})
	}
	s.logger.Info().Int("count", len(items)).Msg("Registered item resources")
	return nil
}

// registerResourceTemplate handles reads for items imported after startup.
func (s *Server) registerResourceTemplate() {
	template := mcp.NewResourceTemplate(
		resourceURIPrefix+"{id}",
		"Archived conversation",
		mcp.WithTemplateDescription("A chat or note from the archive, rendered as markdown"),
		mcp.WithTemplateMIMEType("text/markdown"),
	)
	s.mcp.AddResourceTemplate(template, func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		return s.readItemResource(ctx, req.Params.URI)
	})
}

func (s *Server) readItemResource(ctx context.Context, uri string) ([]mcp.ResourceContents, error) {
	id, err := ItemIDFromURI(uri)
	if err != nil {
		return nil, err
	}
	item, err := s.archive.GetItem(ctx, id)
	if err != nil {
		s.logger.Debug().Str("uri", uri).Err(err).Msg("Resource read failed")
		return nil, err
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "text/markdown",
			Text:     RenderItemMarkdown(item),
		},
	}, nil
}

// ItemIDFromURI parses the item id out of a chronicle://chats/<id> URI.
func ItemIDFromURI(uri string) (string, error) {
	id, ok := strings.CutPrefix(uri, resourceURIPrefix)
	if !ok || id == "" {
		return "", fmt.Errorf("%w: uri: %q is not a chronicle chat resource", store.ErrValidation, uri)
	}
	return id, nil
}

func (s *Server) registerTools() {
	s.mcp.AddTool(mcp.NewTool("search_archive",
		mcp.WithDescription("Keyword search across chat titles, summaries, and tags"),
		mcp.WithString("query", mcp.Required(),
			mcp.Description("Case-insensitive substring to look for")),
		mcp.WithString("memory_type",
			mcp.Description("Restrict to one memory type (episodic, semantic, procedural, emotional, default)")),
		mcp.WithNumber("min_salience",
			mcp.Description("Only return items at or above this salience")),
	), s.handleSearchArchive)

	s.mcp.AddTool(mcp.NewTool("semantic_search",
		mcp.WithDescription("Find chats most similar to a target chat by embedding distance"),
		mcp.WithString("targetId", mcp.Required(),
			mcp.Description("Id of the chat whose embedding anchors the search")),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of results (default 5)")),
		mcp.WithString("memory_type",
			mcp.Description("Restrict to one memory type")),
		mcp.WithNumber("min_salience",
			mcp.Description("Only return items at or above this salience")),
	), s.handleSemanticSearch)

	s.mcp.AddTool(mcp.NewTool("list_recent_chats",
		mcp.WithDescription("List the most recently archived chats"),
		mcp.WithNumber("count",
			mcp.Description("How many chats to return (default 5)")),
	), s.handleListRecentChats)

	s.mcp.AddTool(mcp.NewTool("list_tags",
		mcp.WithDescription("List every tag used in the archive"),
	), s.handleListTags)
}

func (s *Server) handleSearchArchive(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError("search_archive requires a query string: " + err.Error()), nil
	}
	filters, errResult := filtersFromRequest(req)
	if errResult != nil {
		return errResult, nil
	}

	items, err := s.archive.KeywordSearch(ctx, query, filters)
	if err != nil {
		s.logger.Error().Str("tool", "search_archive").Err(err).Msg("Search failed")
		return mcp.NewToolResultError("search failed: " + err.Error()), nil
	}
	payload, err := json.Marshal(itemSummaries(items))
	if err != nil {
		return mcp.NewToolResultError("encode results: " + err.Error()), nil
	}
	return mcp.NewToolResultText(string(payload)), nil
}

func (s *Server) handleSemanticSearch(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	targetID, err := req.RequireString("targetId")
	if err != nil {
		return mcp.NewToolResultError("semantic_search requires a targetId string: " + err.Error()), nil
	}
	limit := req.GetInt("limit", defaultSemanticTopK)
	if limit < 1 {
		limit = 1
	}
	filters, errResult := filtersFromRequest(req)
	if errResult != nil {
		return errResult, nil
	}

	target, err := s.archive.GetItem(ctx, targetID)
	if err != nil || target.Embedding == nil {
		return mcp.NewToolResultError("Target chat not found or has no vector data."), nil
	}

	filters.ExcludeID = &targetID
	scored, err := s.archive.VectorKNN(ctx, target.Embedding, limit, filters)
	if err != nil {
		s.logger.Error().Str("tool", "semantic_search").Err(err).Msg("KNN failed")
		return mcp.NewToolResultError("semantic search failed: " + err.Error()), nil
	}

	results := make([]semanticResult, 0, len(scored))
	for _, sc := range scored {
		results = append(results, semanticResult{
			itemSummary: summarise(sc.Item),
			Score:       1 - sc.Distance,
		})
	}
	payload, err := json.Marshal(results)
	if err != nil {
		return mcp.NewToolResultError("encode results: " + err.Error()), nil
	}
	return mcp.NewToolResultText(string(payload)), nil
}

func (s *Server) handleListRecentChats(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	count := req.GetInt("count", defaultRecentCount)
	if count < 1 {
		count = 1
	}
	items, err := s.archive.ListRecent(ctx, count)
	if err != nil {
		s.logger.Error().Str("tool", "list_recent_chats").Err(err).Msg("Listing failed")
		return mcp.NewToolResultError("listing failed: " + err.Error()), nil
	}
	payload, err := json.Marshal(itemSummaries(items))
	if err != nil {
		return mcp.NewToolResultError("encode results: " + err.Error()), nil
	}
	return mcp.NewToolResultText(string(payload)), nil
}

func (s *Server) handleListTags(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	tags, err := s.archive.ListTags(ctx)
	if err != nil {
		s.logger.Error().Str("tool", "list_tags").Err(err).Msg("Listing failed")
		return mcp.NewToolResultError("listing failed: " + err.Error()), nil
	}
	return mcp.NewToolResultText(strings.Join(tags, ", ")), nil
}

// filtersFromRequest extracts the shared memory_type / min_salience filters.
// A bad memory_type is a validation error returned to the caller.
func filtersFromRequest(req mcp.CallToolRequest) (store.SearchFilters, *mcp.CallToolResult) {
	var filters store.SearchFilters
	if raw := req.GetString("memory_type", ""); raw != "" {
		mt := store.MemoryType(raw)
		if !store.ValidMemoryType(mt) {
			return filters, mcp.NewToolResultError(fmt.Sprintf("unknown memory_type %q", raw))
		}
		filters.MemoryType = &mt
	}
	if min := req.GetFloat("min_salience", -1); min >= 0 {
		filters.MinSalience = &min
	}
	return filters, nil
}
