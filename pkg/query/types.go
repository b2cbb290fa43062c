// ABOUTME: Search request variants and normalized result types
// ABOUTME: One tagged request type per search paradigm, one result shape for all

package query

import "github.com/nainya/contentmcp/pkg/property"

// Result limits
const (
	DefaultMaxResults = 25
	MinMaxResults     = 1
	MaxMaxResults     = 1000
)

// Request is one of FullText, Filtered, ByProperty or Structured
type Request interface {
	// Variant names the search paradigm, used in logs and metrics
	Variant() string
	// Limit is the requested max_results
	Limit() int
}

// FullText is a free token query
type FullText struct {
	Query      string
	MaxResults int
	NodeType   string // defaults to cm:content
}

// Filtered is a token query narrowed by type and creation window, with ordering
type Filtered struct {
	Query         string
	ContentType   string
	CreatedAfter  string // YYYY-MM-DD or RFC3339
	CreatedBefore string
	SortField     string
	SortOrder     string // asc or desc
	MaxResults    int
}

// ByProperty compares one property against a literal
type ByProperty struct {
	PropertyName  string
	PropertyValue string
	Comparison    property.Comparison
	MaxResults    int
}

// Structured runs a SQL-like statement, given directly or through a preset
type Structured struct {
	Source     StatementSource
	MaxResults int
}

// StatementSource is either a RawStatement or a Preset
type StatementSource interface {
	statementSource()
}

// RawStatement is a caller-written structured statement
type RawStatement string

// Preset names an entry of the preset table
type Preset string

func (RawStatement) statementSource() {}
func (Preset) statementSource()       {}

func (FullText) Variant() string   { return "full_text" }
func (Filtered) Variant() string   { return "filtered" }
func (ByProperty) Variant() string { return "by_property" }
func (Structured) Variant() string { return "structured" }

func (r FullText) Limit() int   { return r.MaxResults }
func (r Filtered) Limit() int   { return r.MaxResults }
func (r ByProperty) Limit() int { return r.MaxResults }
func (r Structured) Limit() int { return r.MaxResults }

// Entry is one normalized search hit
type Entry struct {
	ID         string         `json:"id"`
	Name       string         `json:"name"`
	NodeType   string         `json:"nodeType"`
	IsFile     bool           `json:"isFile"`
	IsFolder   bool           `json:"isFolder"`
	Properties map[string]any `json:"properties,omitempty"`
	Path       string         `json:"path"`
}

// Result is a normalized result set in backend order
type Result struct {
	Entries    []Entry `json:"entries"`
	TotalCount int     `json:"totalCount"`
}
