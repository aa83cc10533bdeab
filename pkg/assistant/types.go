package assistant

// Role identifies the author of a chat message.
type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// Message represents a single entry in a conversation.
type Message struct {
	Role     Role           `json:"role"`
	Content  string         `json:"content"`
	Sources  []Source       `json:"sources,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Source is a knowledge-base reference the assistant used for an answer.
type Source struct {
	Title    string  `json:"title,omitempty"`
	URL      string  `json:"url,omitempty"`
	Category string  `json:"category,omitempty"`
	Snippet  string  `json:"snippet,omitempty"`
	Score    float64 `json:"score,omitempty"`
}

// StreamFrame is one JSON payload carried by a `data: ` line of the
// event stream. Absent fields leave the previously held values untouched.
type StreamFrame struct {
	Content  string         `json:"content,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
	Sources  []Source       `json:"sources,omitempty"`
	Done     bool           `json:"done,omitempty"`
}

// Document is the body of a non-streaming chat response.
type Document struct {
	Content       string         `json:"content"`
	Sources       []Source       `json:"sources,omitempty"`
	Metadata      map[string]any `json:"metadata,omitempty"`
	KnowledgeBase map[string]any `json:"knowledgeBase,omitempty"`
	Model         string         `json:"model,omitempty"`
}

// RequestContext is the permission-scoped context attached to every request.
type RequestContext struct {
	Role        string         `json:"role"`
	Name        string         `json:"name"`
	Permissions []string       `json:"permissions"`
	Data        map[string]any `json:"data"`
}

// ChatRequest is the body of POST /api/chat.
type ChatRequest struct {
	Message string         `json:"message"`
	History []Message      `json:"history"`
	Context RequestContext `json:"context"`
	Stream  bool           `json:"stream"`
	Cache   bool           `json:"cache"`
}
