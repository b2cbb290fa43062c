// ABOUTME: Repository collaborator contracts consumed by the core components
// ABOUTME: Split per consumer so search and lifecycle depend on what they use

package repository

import "context"

// Searcher executes translated queries
type Searcher interface {
	Search(ctx context.Context, q BackendQuery) (*RawResultSet, error)
}

// LockBackend owns the authoritative lock and version state of nodes
type LockBackend interface {
	GetNode(ctx context.Context, ref NodeRef) (*Node, error)
	Lock(ctx context.Context, ref NodeRef) (*LockResult, error)
	Unlock(ctx context.Context, ref NodeRef) error
	CreateVersion(ctx context.Context, ref NodeRef, in VersionInput) (*RawVersion, error)
}

// NodeStore covers plain node CRUD
type NodeStore interface {
	ListChildren(ctx context.Context, parent NodeRef, maxItems int) (*Page, error)
	CreateContent(ctx context.Context, parent NodeRef, in ContentInput) (*Node, error)
	GetContent(ctx context.Context, ref NodeRef) (*Content, error)
	CreateFolder(ctx context.Context, parent NodeRef, in FolderInput) (*Node, error)
	UpdateNode(ctx context.Context, ref NodeRef, in NodeUpdate) (*Node, error)
	DeleteNode(ctx context.Context, ref NodeRef, permanent bool) error
	RepositoryInfo(ctx context.Context) (*Info, error)
}

// Client is the full repository surface
type Client interface {
	Searcher
	LockBackend
	NodeStore
}
