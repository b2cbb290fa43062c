// ABOUTME: Tool result types: a human summary plus a structured payload
// ABOUTME: Every result implements Output so transports can render the summary

package tools

import (
	"github.com/nainya/contentmcp/pkg/query"
)

// Output is implemented by every tool result
type Output interface {
	SummaryText() string
}

// NodeItem is the structured view of a node shared by several tools
type NodeItem struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	NodeType   string    `json:"node_type"`
	IsFile     bool      `json:"is_file"`
	IsFolder   bool      `json:"is_folder"`
	Path       string    `json:"path"`
	MimeType   string    `json:"mime_type,omitempty"`
	SizeBytes  int64     `json:"size_bytes,omitempty"`
	Size       string    `json:"size,omitempty"`
	ModifiedAt string    `json:"modified_at,omitempty"`
	IsLocked   bool      `json:"is_locked"`
}

type SearchOutput struct {
	Summary    string        `json:"summary"`
	Variant    string        `json:"variant"`
	TotalCount int           `json:"total_count"`
	Returned   int           `json:"returned"`
	Entries    []query.Entry `json:"entries"`
}

type BrowseOutput struct {
	Summary    string     `json:"summary"`
	NodeID     string     `json:"node_id"`
	TotalItems int        `json:"total_items"`
	HasMore    bool       `json:"has_more"`
	Items      []NodeItem `json:"items"`
}

type RepositoryInfoOutput struct {
	Summary   string          `json:"summary"`
	ID        string          `json:"id"`
	Edition   string          `json:"edition"`
	Version   string          `json:"version"`
	ReadOnly  bool            `json:"read_only"`
	Modules   []string        `json:"modules,omitempty"`
	Status    map[string]bool `json:"status,omitempty"`
	ServerURL string          `json:"server_url,omitempty"`
	User      string          `json:"user"`
}

type UploadOutput struct {
	Summary string   `json:"summary"`
	Node    NodeItem `json:"node"`
	Renamed bool     `json:"renamed"`
}

type DownloadOutput struct {
	Summary       string `json:"summary"`
	NodeID        string `json:"node_id"`
	Name          string `json:"name"`
	MimeType      string `json:"mime_type"`
	SizeBytes     int64  `json:"size_bytes"`
	SavedTo       string `json:"saved_to,omitempty"`
	ContentBase64 string `json:"content_base64,omitempty"`
}

type FolderOutput struct {
	Summary string   `json:"summary"`
	Node    NodeItem `json:"node"`
}

type NodePropertiesOutput struct {
	Summary      string         `json:"summary"`
	Node         NodeItem       `json:"node"`
	Title        string         `json:"title,omitempty"`
	Description  string         `json:"description,omitempty"`
	Author       string         `json:"author,omitempty"`
	VersionLabel string         `json:"version_label,omitempty"`
	CreatedBy    string         `json:"created_by,omitempty"`
	CreatedAt    string         `json:"created_at,omitempty"`
	ModifiedBy   string         `json:"modified_by,omitempty"`
	State        string         `json:"state"`
	LockOwner    string         `json:"lock_owner,omitempty"`
	Aspects      []string       `json:"aspects,omitempty"`
	Properties   map[string]any `json:"properties,omitempty"`
}

type UpdatePropertiesOutput struct {
	Summary string   `json:"summary"`
	Node    NodeItem `json:"node"`
	Updated []string `json:"updated"`
}

type DeleteOutput struct {
	Summary   string `json:"summary"`
	NodeID    string `json:"node_id"`
	Name      string `json:"name"`
	Permanent bool   `json:"permanent"`
}

type CheckoutOutput struct {
	Summary       string `json:"summary"`
	NodeID        string `json:"node_id"`
	WorkingCopyID string `json:"working_copy_id"`
	Owner         string `json:"owner"`
	State         string `json:"state"`
	LocalPath     string `json:"local_path,omitempty"`
	DownloadError string `json:"download_error,omitempty"`
}

type CheckinOutput struct {
	Summary      string `json:"summary"`
	NodeID       string `json:"node_id"`
	VersionLabel string `json:"version_label"`
	Major        bool   `json:"major"`
	Comment      string `json:"comment,omitempty"`
	ContentFrom  string `json:"content_from,omitempty"`
	State        string `json:"state"`
}

type CancelCheckoutOutput struct {
	Summary   string `json:"summary"`
	NodeID    string `json:"node_id"`
	State     string `json:"state"`
	CleanedUp bool   `json:"cleaned_up"`
}

func (o *SearchOutput) SummaryText() string           { return o.Summary }
func (o *BrowseOutput) SummaryText() string           { return o.Summary }
func (o *RepositoryInfoOutput) SummaryText() string   { return o.Summary }
func (o *UploadOutput) SummaryText() string           { return o.Summary }
func (o *DownloadOutput) SummaryText() string         { return o.Summary }
func (o *FolderOutput) SummaryText() string           { return o.Summary }
func (o *NodePropertiesOutput) SummaryText() string   { return o.Summary }
func (o *UpdatePropertiesOutput) SummaryText() string { return o.Summary }
func (o *DeleteOutput) SummaryText() string           { return o.Summary }
func (o *CheckoutOutput) SummaryText() string         { return o.Summary }
func (o *CheckinOutput) SummaryText() string          { return o.Summary }
func (o *CancelCheckoutOutput) SummaryText() string   { return o.Summary }
