package mcptool

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/sandevgo/recalld/internal/core"
)

func (s *Server) registerTools() {
	s.mcp.AddTool(storeTool(), s.handleStore)
	s.mcp.AddTool(relateTool(), s.handleRelate)
	s.mcp.AddTool(queryTool(), s.handleQuery)
	s.mcp.AddTool(listByTypeTool(), s.handleListByType)
	s.mcp.AddTool(getTool(), s.handleGet)
	s.mcp.AddTool(relatedTool(), s.handleRelated)
	s.mcp.AddTool(clearTool(), s.handleClear)
	s.mcp.AddTool(clearConversationTool(), s.handleClearConversation)
	s.mcp.AddTool(statsTool(), s.handleStats)
}

// toolError maps the store's typed errors onto caller-facing results.
// Storage internals are never leaked to the agent.
func toolError(err error) *mcp.CallToolResult {
	switch {
	case core.IsValidation(err):
		return mcp.NewToolResultError(err.Error())
	case errors.Is(err, core.ErrNotFound):
		return mcp.NewToolResultError(err.Error())
	case core.IsStorage(err):
		return mcp.NewToolResultError("storage failure, the operation is safe to retry")
	default:
		return mcp.NewToolResultError("internal error")
	}
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal result: %w", err)
	}
	return mcp.NewToolResultText(string(data)), nil
}

// --- memory_store ---

func storeTool() mcp.Tool {
	return mcp.NewTool(
		"memory_store",
		mcp.WithDescription("Stores a memory entry and returns its ID. Importance is computed when not supplied."),
		mcp.WithString("conversation_id", mcp.Description("Conversation grouping key"), mcp.Required()),
		mcp.WithString("session_id", mcp.Description("Optional session scope within the conversation")),
		mcp.WithString("role", mcp.Description("Author role"), mcp.Enum("user", "assistant", "system")),
		mcp.WithString("content", mcp.Description("Text payload"), mcp.Required()),
		mcp.WithString("context_type",
			mcp.Description("Semantic category of the entry"),
			mcp.Enum("conversation", "code_analysis", "project_task", "web_content",
				"database_query", "test_result", "reasoning_step", "knowledge_base"),
			mcp.Required(),
		),
		mcp.WithNumber("importance_score", mcp.Description("Explicit importance in [0,1]; clamped")),
		mcp.WithArray("tags", mcp.Description("Short labels for later filtering")),
		mcp.WithObject("metadata", mcp.Description("Arbitrary JSON metadata, stored opaquely")),
		mcp.WithNumber("ttl_seconds", mcp.Description("Seconds until the entry expires; omit for no expiry")),
	)
}

type storeArgs struct {
	ConversationID  string         `json:"conversation_id"`
	SessionID       string         `json:"session_id"`
	Role            string         `json:"role"`
	Content         string         `json:"content"`
	ContextType     string         `json:"context_type"`
	ImportanceScore *float64       `json:"importance_score"`
	Tags            []string       `json:"tags"`
	Metadata        map[string]any `json:"metadata"`
	TTLSeconds      *int           `json:"ttl_seconds"`
}

func (s *Server) handleStore(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args storeArgs
	if err := req.BindArguments(&args); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid arguments: %v", err)), nil
	}

	// The ID is fixed before the retry loop so every attempt puts the same
	// entry; a failure reported after a durable commit must not duplicate it.
	storeReq := core.StoreRequest{
		ID:              uuid.NewString(),
		ConversationID:  args.ConversationID,
		SessionID:       args.SessionID,
		Role:            args.Role,
		Content:         args.Content,
		ContextType:     core.ContextType(args.ContextType),
		ImportanceScore: args.ImportanceScore,
		Tags:            args.Tags,
		Metadata:        args.Metadata,
		TTLSeconds:      args.TTLSeconds,
	}

	var id string
	err := s.retrier.DoIf(ctx, func() error {
		var opErr error
		id, opErr = s.store.Store(ctx, storeReq)
		return opErr
	}, core.IsStorage)
	if err != nil {
		return toolError(err), nil
	}

	return jsonResult(map[string]string{"id": id})
}

// --- memory_relate ---

func relateTool() mcp.Tool {
	return mcp.NewTool(
		"memory_relate",
		mcp.WithDescription("Creates a directed, weighted relationship between two existing entries."),
		mcp.WithString("from_entry_id", mcp.Description("Source entry ID"), mcp.Required()),
		mcp.WithString("to_entry_id", mcp.Description("Target entry ID"), mcp.Required()),
		mcp.WithString("relationship_type",
			mcp.Description("Edge type, e.g. references, leads_to, informs, depends_on, related_to, execution_result"),
			mcp.Required(),
		),
		mcp.WithNumber("strength", mcp.Description("Edge weight in [0,1], default 0.5")),
		mcp.WithObject("metadata", mcp.Description("Arbitrary JSON metadata for the edge")),
	)
}

type relateArgs struct {
	FromEntryID      string         `json:"from_entry_id"`
	ToEntryID        string         `json:"to_entry_id"`
	RelationshipType string         `json:"relationship_type"`
	Strength         *float64       `json:"strength"`
	Metadata         map[string]any `json:"metadata"`
}

func (s *Server) handleRelate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args relateArgs
	if err := req.BindArguments(&args); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid arguments: %v", err)), nil
	}

	var rel *core.Relationship
	err := s.retrier.DoIf(ctx, func() error {
		var opErr error
		rel, opErr = s.store.Relate(ctx, args.FromEntryID, args.ToEntryID,
			args.RelationshipType, args.Strength, args.Metadata)
		return opErr
	}, core.IsStorage)
	if err != nil {
		return toolError(err), nil
	}

	return jsonResult(rel)
}

// --- memory_query ---

func queryTool() mcp.Tool {
	return mcp.NewTool(
		"memory_query",
		mcp.WithDescription("Retrieves entries of a conversation, filtered and ranked by importance then recency."),
		mcp.WithString("conversation_id", mcp.Description("Conversation grouping key"), mcp.Required()),
		mcp.WithString("context_type", mcp.Description("Restrict to one semantic category")),
		mcp.WithNumber("min_importance", mcp.Description("Importance floor in [0,1]")),
		mcp.WithArray("tags", mcp.Description("Restrict to entries carrying these tags")),
		mcp.WithString("tag_match", mcp.Description("Tag combination mode"), mcp.Enum("any", "all")),
		mcp.WithString("relationship_filter", mcp.Description("Anchor entry ID; restrict to entries linked to it")),
		mcp.WithNumber("limit", mcp.Description("Maximum results, default 10, hard cap 100")),
	)
}

type queryArgs struct {
	ConversationID     string   `json:"conversation_id"`
	ContextType        string   `json:"context_type"`
	MinImportance      *float64 `json:"min_importance"`
	Tags               []string `json:"tags"`
	TagMatch           string   `json:"tag_match"`
	RelationshipFilter string   `json:"relationship_filter"`
	Limit              *int     `json:"limit"`
}

func (s *Server) handleQuery(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args queryArgs
	if err := req.BindArguments(&args); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid arguments: %v", err)), nil
	}

	q := core.Query{
		ConversationID:     args.ConversationID,
		ContextType:        core.ContextType(args.ContextType),
		Tags:               args.Tags,
		TagMatch:           core.TagMatch(args.TagMatch),
		RelationshipFilter: args.RelationshipFilter,
	}
	if args.MinImportance != nil {
		q.MinImportance = *args.MinImportance
		q.HasMinScore = true
	}
	if args.Limit != nil {
		// An explicitly supplied non-positive limit is an input error; an
		// absent limit falls through to the service default.
		if *args.Limit <= 0 {
			return toolError(core.Invalid("limit", "must be positive")), nil
		}
		q.Limit = *args.Limit
	}

	entries, err := s.store.Retrieve(ctx, q)
	if err != nil {
		return toolError(err), nil
	}

	return jsonResult(map[string]any{"entries": entries})
}

// --- memory_list_by_type ---

func listByTypeTool() mcp.Tool {
	return mcp.NewTool(
		"memory_list_by_type",
		mcp.WithDescription("Lists entries of one context type across all conversations, most important first."),
		mcp.WithString("context_type",
			mcp.Description("Semantic category to list"),
			mcp.Enum("conversation", "code_analysis", "project_task", "web_content",
				"database_query", "test_result", "reasoning_step", "knowledge_base"),
			mcp.Required(),
		),
		mcp.WithNumber("limit", mcp.Description("Maximum results, default 10, hard cap 100")),
	)
}

func (s *Server) handleListByType(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	contextType, err := req.RequireString("context_type")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	limit := req.GetInt("limit", 0)
	if limit < 0 {
		return toolError(core.Invalid("limit", "must be positive")), nil
	}

	entries, err := s.store.ListByType(ctx, core.ContextType(contextType), limit)
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(map[string]any{"entries": entries})
}

// --- memory_get ---

func getTool() mcp.Tool {
	return mcp.NewTool(
		"memory_get",
		mcp.WithDescription("Fetches a single entry by ID. Expired entries behave as not found."),
		mcp.WithString("entry_id", mcp.Description("Entry ID"), mcp.Required()),
	)
}

func (s *Server) handleGet(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("entry_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	entry, err := s.store.Get(ctx, id)
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(entry)
}

// --- memory_related ---

func relatedTool() mcp.Tool {
	return mcp.NewTool(
		"memory_related",
		mcp.WithDescription("Lists entries directly linked from the given entry, strongest edges first."),
		mcp.WithString("entry_id", mcp.Description("Entry ID"), mcp.Required()),
		mcp.WithNumber("limit", mcp.Description("Maximum results, default 10")),
	)
}

func (s *Server) handleRelated(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("entry_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	limit := req.GetInt("limit", 0)

	entries, err := s.store.Related(ctx, id, limit)
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(map[string]any{"entries": entries})
}

// --- memory_clear ---

func clearTool() mcp.Tool {
	return mcp.NewTool(
		"memory_clear",
		mcp.WithDescription("Removes an entry and its relationships. Clearing an unknown ID still succeeds."),
		mcp.WithString("entry_id", mcp.Description("Entry ID"), mcp.Required()),
	)
}

func (s *Server) handleClear(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("entry_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	err = s.retrier.DoIf(ctx, func() error {
		return s.store.Clear(ctx, id)
	}, core.IsStorage)
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(map[string]bool{"ok": true})
}

// --- memory_clear_conversation ---

func clearConversationTool() mcp.Tool {
	return mcp.NewTool(
		"memory_clear_conversation",
		mcp.WithDescription("Removes every entry of a conversation and returns how many were deleted."),
		mcp.WithString("conversation_id", mcp.Description("Conversation grouping key"), mcp.Required()),
	)
}

func (s *Server) handleClearConversation(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	conversationID, err := req.RequireString("conversation_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var deleted int64
	err = s.retrier.DoIf(ctx, func() error {
		var opErr error
		deleted, opErr = s.store.ClearConversation(ctx, conversationID)
		return opErr
	}, core.IsStorage)
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(map[string]any{"ok": true, "deleted": deleted})
}

// --- memory_stats ---

func statsTool() mcp.Tool {
	return mcp.NewTool(
		"memory_stats",
		mcp.WithDescription("Reports entry and relationship counts, grouped by context type."),
	)
}

func (s *Server) handleStats(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	stats, err := s.store.Stats(ctx)
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(stats)
}
