// ABOUTME: Raw repository data model shared by search, lifecycle and tools
// ABOUTME: Nodes, backend queries, raw result rows and CRUD inputs

package repository

import (
	"fmt"
	"io"
	"strings"
	"time"
)

// NodeRef is an opaque repository node identifier
type NodeRef string

func (r NodeRef) String() string {
	return string(r)
}

// Well-known parent aliases
const (
	SharedRoot NodeRef = "-shared-"
	MyRoot     NodeRef = "-my-"
	RootNode   NodeRef = "-root-"
)

// Well-known type and aspect names
const (
	TypeContent       = "cm:content"
	TypeFolder        = "cm:folder"
	AspectVersionable = "cm:versionable"
	PropVersionLabel  = "cm:versionLabel"
	PropTitle         = "cm:title"
	PropDescription   = "cm:description"
	PropAuthor        = "cm:author"
)

// Node is a repository node as read from the backend
type Node struct {
	ID         NodeRef
	Name       string
	NodeType   string
	IsFile     bool
	IsFolder   bool
	ParentID   NodeRef
	Path       string // parent path, e.g. "/Company Home/Shared"
	Properties map[string]any
	Aspects    []string
	IsLocked   bool
	LockOwner  string // empty when unknown
	MimeType   string
	SizeBytes  int64
	CreatedAt  time.Time
	ModifiedAt time.Time
	CreatedBy  string
	ModifiedBy string
}

// HasAspect reports whether the node carries the named aspect
func (n *Node) HasAspect(name string) bool {
	for _, a := range n.Aspects {
		if a == name {
			return true
		}
	}
	return false
}

// Versionable reports whether checkins can create versions of the node
func (n *Node) Versionable() bool {
	return n.IsFile && n.HasAspect(AspectVersionable)
}

// VersionLabel returns the node's current label, empty when unversioned
func (n *Node) VersionLabel() string {
	return n.StringProperty(PropVersionLabel)
}

// StringProperty returns a property rendered as a string, empty when absent
func (n *Node) StringProperty(name string) string {
	if n.Properties == nil {
		return ""
	}
	switch v := n.Properties[name].(type) {
	case string:
		return v
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

// FullPath joins the parent path and the node name
func (n *Node) FullPath() string {
	return JoinPath(n.Path, n.Name)
}

// JoinPath builds "<parent>/<name>", falling back to "/<name>"
func JoinPath(parent, name string) string {
	parent = strings.TrimRight(strings.TrimSpace(parent), "/")
	if parent == "" {
		return "/" + name
	}
	return parent + "/" + name
}

// Language identifies the backend query dialect
type Language string

const (
	LanguageAFTS Language = "afts"
	LanguageCMIS Language = "cmis"
)

// SortField orders backend results
type SortField struct {
	Field     string
	Ascending bool
}

// ScoreSort is relevance order, best match first
var ScoreSort = SortField{Field: "score", Ascending: false}

// BackendQuery is a translated search ready for the repository
type BackendQuery struct {
	Language  Language
	Statement string
	Sort      []SortField
	MaxItems  int
	SkipCount int
}

// RawRow is one search hit as returned by the backend, before normalization.
// Token-search hits fill the typed fields; structured-query rows may only carry
// cmis:* entries in Properties.
type RawRow struct {
	ID         string
	Name       string
	NodeType   string
	IsFile     *bool
	IsFolder   *bool
	ParentPath string
	Properties map[string]any
}

// RawResultSet is the backend's answer to a BackendQuery
type RawResultSet struct {
	Rows       []RawRow
	TotalItems int
	HasTotal   bool // false when the backend did not report a total
}

// LockResult is the backend's answer to a lock request
type LockResult struct {
	Owner string
}

// VersionInput describes a new version; nil Content versions the current content
type VersionInput struct {
	Major   bool
	Comment string
	Name    string
	Content io.Reader
}

// RawVersion is the backend's record of a created version
type RawVersion struct {
	Label     string
	Comment   string
	CreatedBy string
	CreatedAt time.Time
}

// Page is one page of folder children
type Page struct {
	Nodes      []Node
	TotalItems int
	HasMore    bool
}

// ContentInput describes a document upload
type ContentInput struct {
	Name       string
	MimeType   string
	Data       []byte
	Properties map[string]any
	AutoRename bool
}

// Content is a downloaded document body
type Content struct {
	Name     string
	MimeType string
	Data     []byte
}

// FolderInput describes a folder to create
type FolderInput struct {
	Name       string
	Properties map[string]any
}

// NodeUpdate carries a rename and/or property changes
type NodeUpdate struct {
	Name       string
	Properties map[string]any
}

// Info describes the repository server
type Info struct {
	ID        string
	Edition   string
	Version   string
	ReadOnly  bool
	Modules   []string
	Status    map[string]bool
	ServerURL string
}
