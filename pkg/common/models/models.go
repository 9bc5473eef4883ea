package models

import (
	"time"

	"github.com/google/uuid"
)

// Event Bus models
type Event struct {
	ID        string                 `json:"id"`
	Type      string                 `json:"type"` // flatfile.requested, flatfile.parsed
	Source    string                 `json:"source"`
	Data      map[string]interface{} `json:"data"`
	Timestamp time.Time              `json:"timestamp"`
	Metadata  map[string]string      `json:"metadata,omitempty"`
}

const (
	EventFlatfileRequested = "flatfile.requested"
	EventFlatfileParsed    = "flatfile.parsed"
)

// Export summaries
type FormSummary struct {
	Name     string `json:"name"`
	TypeName string `json:"type_name"`
	Records  int    `json:"records"`
}

type ExportSummary struct {
	ID        uuid.UUID     `json:"id"`
	Source    string        `json:"source"`
	Checksum  string        `json:"checksum"`
	Forms     []FormSummary `json:"forms"`
	Records   int           `json:"records"`
	Cached    bool          `json:"cached"`
	Stored    bool          `json:"stored"`
	CreatedAt time.Time     `json:"created_at"`
}

// ParsedEventData is published after an export was flattened.
func (s ExportSummary) ParsedEventData() map[string]interface{} {
	forms := make(map[string]interface{}, len(s.Forms))
	for _, f := range s.Forms {
		forms[f.Name] = f.Records
	}
	return map[string]interface{}{
		"export_id": s.ID.String(),
		"source":    s.Source,
		"checksum":  s.Checksum,
		"records":   s.Records,
		"forms":     forms,
	}
}

// ParseRequest is the payload of a flatfile.requested event. Exactly one of
// Path or URL is set.
type ParseRequest struct {
	Path string `json:"path,omitempty"`
	URL  string `json:"url,omitempty"`
}

func ParseRequestFromEvent(event Event) ParseRequest {
	var req ParseRequest
	if v, ok := event.Data["path"].(string); ok {
		req.Path = v
	}
	if v, ok := event.Data["url"].(string); ok {
		req.URL = v
	}
	return req
}
