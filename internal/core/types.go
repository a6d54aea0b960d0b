package core

import "time"

const (
	AppName    = "recalld"
	AppVersion = "0.1.0"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// ContextType categorizes what kind of context an entry carries.
type ContextType string

const (
	ContextConversation  ContextType = "conversation"
	ContextCodeAnalysis  ContextType = "code_analysis"
	ContextProjectTask   ContextType = "project_task"
	ContextWebContent    ContextType = "web_content"
	ContextDatabaseQuery ContextType = "database_query"
	ContextTestResult    ContextType = "test_result"
	ContextReasoningStep ContextType = "reasoning_step"
	ContextKnowledgeBase ContextType = "knowledge_base"
)

var contextTypes = map[ContextType]struct{}{
	ContextConversation:  {},
	ContextCodeAnalysis:  {},
	ContextProjectTask:   {},
	ContextWebContent:    {},
	ContextDatabaseQuery: {},
	ContextTestResult:    {},
	ContextReasoningStep: {},
	ContextKnowledgeBase: {},
}

func (c ContextType) Valid() bool {
	_, ok := contextTypes[c]
	return ok
}

// Recommended relationship types. The field is free-form, these are just the
// values agents are expected to use.
const (
	RelReferences      = "references"
	RelLeadsTo         = "leads_to"
	RelInforms         = "informs"
	RelDependsOn       = "depends_on"
	RelRelatedTo       = "related_to"
	RelExecutionResult = "execution_result"
)

type MemoryEntry struct {
	ID              string         `json:"id"`
	ConversationID  string         `json:"conversation_id"`
	SessionID       string         `json:"session_id,omitempty"`
	Role            string         `json:"role,omitempty"`
	Content         string         `json:"content"`
	ContextType     ContextType    `json:"context_type"`
	ImportanceScore float64        `json:"importance_score"`
	Tags            []string       `json:"tags,omitempty"`
	Metadata        map[string]any `json:"metadata,omitempty"`
	CreatedAt       time.Time      `json:"created_at"`
	ExpiresAt       *time.Time     `json:"expires_at,omitempty"`
}

// Expired reports whether the entry is past its TTL at the given instant.
// Entries without ExpiresAt never expire.
func (e *MemoryEntry) Expired(now time.Time) bool {
	return e.ExpiresAt != nil && !e.ExpiresAt.After(now)
}

type Relationship struct {
	ID        string         `json:"id"`
	FromID    string         `json:"from_entry_id"`
	ToID      string         `json:"to_entry_id"`
	Type      string         `json:"relationship_type"`
	Strength  float64        `json:"strength"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

type TagMatch string

const (
	MatchAny TagMatch = "any"
	MatchAll TagMatch = "all"
)

// Query describes a filtered, ranked retrieval over one conversation.
type Query struct {
	ConversationID string
	ContextType    ContextType
	MinImportance  float64
	HasMinScore    bool
	Tags           []string
	TagMatch       TagMatch
	// RelationshipFilter is an anchor entry ID; results are restricted to
	// entries reachable from it (or directly linked to it).
	RelationshipFilter string
	Limit              int
}

// StoreRequest carries the caller-supplied fields for a new entry.
// ImportanceScore is optional; when nil the service computes one.
// ID may be pre-assigned so that retrying the same request re-puts the
// same entry instead of minting a new one; when empty one is generated.
type StoreRequest struct {
	ID              string
	ConversationID  string
	SessionID       string
	Role            string
	Content         string
	ContextType     ContextType
	ImportanceScore *float64
	Tags            []string
	Metadata        map[string]any
	TTLSeconds      *int
}

type Stats struct {
	Entries       int64                 `json:"entries"`
	Relationships int64                 `json:"relationships"`
	ByContextType map[ContextType]int64 `json:"by_context_type"`
}
