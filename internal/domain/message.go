package domain

// PartKind tags one element of a multi-part reply.
type PartKind string

const (
	PartText      PartKind = "text"
	PartReasoning PartKind = "reasoning"
	PartSources   PartKind = "sources"
	PartTasks     PartKind = "tasks"
)

const (
	ReasoningStreaming = "streaming"
	ReasoningDone      = "done"
)

// Citation display variants understood by the product UI.
const (
	CitationHoverCard       = "hover-card"
	CitationModal           = "modal"
	CitationRightPanel      = "right-panel"
	CitationCollapsibleList = "collapsible-list"
	CitationInline          = "inline"
)

type Reasoning struct {
	Content string `json:"content"`
	Title   string `json:"title,omitempty"`
	State   string `json:"state"`
}

// Source is one citation record. Either URL or BlobID must be set.
type Source struct {
	Title   string `json:"title"`
	URL     string `json:"url,omitempty"`
	BlobID  string `json:"blob_id,omitempty"`
	Snippet string `json:"snippet,omitempty"`
}

type Task struct {
	Title       string   `json:"title"`
	Items       []string `json:"items"`
	DefaultOpen bool     `json:"defaultOpen,omitempty"`
}

// MessagePart is one ordered element of a generated reply. Only the fields
// matching Kind are populated. Order within a reply is load-bearing:
// reasoning before text, text before sources, sources before tasks.
type MessagePart struct {
	Kind            PartKind
	Text            string
	Reasoning       *Reasoning
	Sources         []Source
	Tasks           []Task
	CitationVariant string
}

func TextPart(body string) MessagePart {
	return MessagePart{Kind: PartText, Text: body}
}

func ReasoningPart(title, content, state string) MessagePart {
	return MessagePart{Kind: PartReasoning, Reasoning: &Reasoning{Title: title, Content: content, State: state}}
}

func SourcesPart(sources ...Source) MessagePart {
	return MessagePart{Kind: PartSources, Sources: sources}
}

func TasksPart(tasks ...Task) MessagePart {
	return MessagePart{Kind: PartTasks, Tasks: tasks}
}

// GeneratedResponse is the wire message pushed onto the response queue, one
// per MessagePart. Metadata carries non-text payloads keyed by part kind plus
// the turn_complete flag; ResponseGroupID groups all parts of one reply.
type GeneratedResponse struct {
	MessageID       string         `json:"message_id"`
	ConversationID  string         `json:"conversation_id"`
	TenantID        string         `json:"tenant_id"`
	UserID          string         `json:"user_id,omitempty"`
	Response        string         `json:"response"`
	Metadata        map[string]any `json:"metadata"`
	ResponseGroupID string         `json:"response_group_id"`
}
