// ABOUTME: Embedded in-memory repository with real lock and version semantics
// ABOUTME: Used for local runs without a server and as the test double

package repository

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nainya/contentmcp/pkg/version"
)

// SearchFunc answers a backend query in place of the built-in matcher
type SearchFunc func(ctx context.Context, q BackendQuery) (*RawResultSet, error)

// Memory is a process-local repository. Locks and versions live here, never
// in the components that call it.
type Memory struct {
	mu       sync.Mutex
	user     string
	nodes    map[NodeRef]*Node
	content  map[NodeRef][]byte
	trash    map[NodeRef]*Node
	history  *version.History
	calls    map[string]int
	failures map[string][]error
	search   SearchFunc
	now      func() time.Time
}

// NewMemory creates a repository acting as user, seeded with the standard roots
func NewMemory(user string) *Memory {
	m := &Memory{
		user:     user,
		nodes:    make(map[NodeRef]*Node),
		content:  make(map[NodeRef][]byte),
		trash:    make(map[NodeRef]*Node),
		history:  version.NewHistory(),
		calls:    make(map[string]int),
		failures: make(map[string][]error),
		now:      time.Now,
	}
	m.putFolder(RootNode, "", "Company Home")
	m.putFolder(SharedRoot, RootNode, "Shared")
	homes := m.putFolder(NodeRef(uuid.NewString()), RootNode, "User Homes")
	m.putFolder(MyRoot, homes.ID, user)
	return m
}

func (m *Memory) putFolder(id, parent NodeRef, name string) *Node {
	now := m.now().UTC()
	n := &Node{
		ID:         id,
		Name:       name,
		NodeType:   TypeFolder,
		IsFolder:   true,
		ParentID:   parent,
		Properties: map[string]any{"cm:name": name},
		CreatedAt:  now,
		ModifiedAt: now,
		CreatedBy:  m.user,
		ModifiedBy: m.user,
	}
	m.nodes[id] = n
	return n
}

// User returns the identity the repository acts as
func (m *Memory) User() string {
	return m.user
}

// History exposes the recorded versions
func (m *Memory) History() *version.History {
	return m.history
}

// SetSearchFunc replaces the built-in search matcher
func (m *Memory) SetSearchFunc(fn SearchFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.search = fn
}

// FailNext makes the next call of op return err, after the call has been counted
func (m *Memory) FailNext(op string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[op] = append(m.failures[op], err)
}

// Calls returns how many times op was invoked
func (m *Memory) Calls(op string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[op]
}

// TotalCalls returns the number of invocations across all operations
func (m *Memory) TotalCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	total := 0
	for _, c := range m.calls {
		total += c
	}
	return total
}

// ForceLock locks a node on behalf of another owner
func (m *Memory) ForceLock(ref NodeRef, owner string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.nodes[ref]
	if !ok {
		return ErrNotFound
	}
	n.IsLocked = true
	n.LockOwner = owner
	return nil
}

// AddDocument seeds an unversioned document under parent
func (m *Memory) AddDocument(parent NodeRef, name string, data []byte, versionable bool, props map[string]any) (*Node, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.nodes[parent]; !ok {
		return nil, ErrNotFound
	}
	now := m.now().UTC()
	n := &Node{
		ID:         NodeRef(uuid.NewString()),
		Name:       name,
		NodeType:   TypeContent,
		IsFile:     true,
		ParentID:   parent,
		Properties: map[string]any{"cm:name": name},
		MimeType:   "application/octet-stream",
		SizeBytes:  int64(len(data)),
		CreatedAt:  now,
		ModifiedAt: now,
		CreatedBy:  m.user,
		ModifiedBy: m.user,
	}
	for k, v := range props {
		n.Properties[k] = v
	}
	if versionable {
		n.Aspects = append(n.Aspects, AspectVersionable)
	}
	m.nodes[n.ID] = n
	m.content[n.ID] = append([]byte(nil), data...)
	return m.snapshot(n), nil
}

// enter counts the call and pops an injected failure. Callers hold m.mu.
func (m *Memory) enter(ctx context.Context, op string) error {
	m.calls[op]++
	if queued := m.failures[op]; len(queued) > 0 {
		m.failures[op] = queued[1:]
		return queued[0]
	}
	return ctx.Err()
}

func (m *Memory) snapshot(n *Node) *Node {
	c := *n
	c.Properties = make(map[string]any, len(n.Properties))
	for k, v := range n.Properties {
		c.Properties[k] = v
	}
	c.Aspects = append([]string(nil), n.Aspects...)
	c.Path = m.pathOf(n.ParentID)
	return &c
}

func (m *Memory) pathOf(ref NodeRef) string {
	var parts []string
	for ref != "" {
		n, ok := m.nodes[ref]
		if !ok {
			break
		}
		parts = append([]string{n.Name}, parts...)
		ref = n.ParentID
	}
	if len(parts) == 0 {
		return ""
	}
	return "/" + strings.Join(parts, "/")
}

func (m *Memory) childNamed(parent NodeRef, name string) *Node {
	for _, n := range m.nodes {
		if n.ParentID == parent && n.Name == name {
			return n
		}
	}
	return nil
}

// ========== Search ==========

// Search runs q through the configured SearchFunc or the built-in matcher
func (m *Memory) Search(ctx context.Context, q BackendQuery) (*RawResultSet, error) {
	m.mu.Lock()
	if err := m.enter(ctx, "search"); err != nil {
		m.mu.Unlock()
		return nil, err
	}
	fn := m.search
	if fn != nil {
		m.mu.Unlock()
		return fn(ctx, q)
	}
	defer m.mu.Unlock()

	match, order, err := compileQuery(q)
	if err != nil {
		return nil, err
	}
	var matches []*Node
	for _, n := range m.nodes {
		if n.ParentID != "" && match(n) {
			matches = append(matches, n)
		}
	}
	sort.Slice(matches, func(i, j int) bool { return order(matches[i], matches[j]) })

	rs := &RawResultSet{TotalItems: len(matches), HasTotal: true}
	start := min(q.SkipCount, len(matches))
	end := len(matches)
	if q.MaxItems > 0 {
		end = min(start+q.MaxItems, len(matches))
	}
	for _, n := range matches[start:end] {
		snap := m.snapshot(n)
		isFile, isFolder := snap.IsFile, snap.IsFolder
		rs.Rows = append(rs.Rows, RawRow{
			ID:         snap.ID.String(),
			Name:       snap.Name,
			NodeType:   snap.NodeType,
			IsFile:     &isFile,
			IsFolder:   &isFolder,
			ParentPath: snap.Path,
			Properties: snap.Properties,
		})
	}
	return rs, nil
}

// ========== Lifecycle ==========

// GetNode returns a fresh snapshot of the node
func (m *Memory) GetNode(ctx context.Context, ref NodeRef) (*Node, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter(ctx, "get_node"); err != nil {
		return nil, err
	}
	n, ok := m.nodes[ref]
	if !ok {
		return nil, fmt.Errorf("get node %s: %w", ref, ErrNotFound)
	}
	return m.snapshot(n), nil
}

// Lock takes a persistent lock for the repository user
func (m *Memory) Lock(ctx context.Context, ref NodeRef) (*LockResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter(ctx, "lock"); err != nil {
		return nil, err
	}
	n, ok := m.nodes[ref]
	if !ok {
		return nil, fmt.Errorf("lock %s: %w", ref, ErrNotFound)
	}
	if n.IsFolder {
		return nil, fmt.Errorf("lock %s: %w", ref, ErrNotSupported)
	}
	if n.IsLocked {
		return nil, fmt.Errorf("lock %s held by %s: %w", ref, n.LockOwner, ErrLocked)
	}
	n.IsLocked = true
	n.LockOwner = m.user
	return &LockResult{Owner: m.user}, nil
}

// Unlock releases the repository user's lock
func (m *Memory) Unlock(ctx context.Context, ref NodeRef) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter(ctx, "unlock"); err != nil {
		return err
	}
	n, ok := m.nodes[ref]
	if !ok {
		return fmt.Errorf("unlock %s: %w", ref, ErrNotFound)
	}
	if !n.IsLocked {
		return fmt.Errorf("unlock %s: %w", ref, ErrNotLocked)
	}
	if n.LockOwner != "" && n.LockOwner != m.user {
		return fmt.Errorf("unlock %s held by %s: %w", ref, n.LockOwner, ErrLocked)
	}
	n.IsLocked = false
	n.LockOwner = ""
	return nil
}

// CreateVersion records a new version and advances the node's label
func (m *Memory) CreateVersion(ctx context.Context, ref NodeRef, in VersionInput) (*RawVersion, error) {
	var data []byte
	if in.Content != nil {
		b, err := io.ReadAll(in.Content)
		if err != nil {
			return nil, fmt.Errorf("read version content: %w", err)
		}
		data = b
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter(ctx, "create_version"); err != nil {
		return nil, err
	}
	n, ok := m.nodes[ref]
	if !ok {
		return nil, fmt.Errorf("create version %s: %w", ref, ErrNotFound)
	}
	if !n.IsFile || !n.HasAspect(AspectVersionable) {
		return nil, fmt.Errorf("create version %s: %w", ref, ErrNotSupported)
	}
	label, err := version.NextLabel(n.StringProperty(PropVersionLabel), in.Major)
	if err != nil {
		return nil, err
	}
	now := m.now().UTC()
	n.Properties[PropVersionLabel] = label
	n.ModifiedAt = now
	n.ModifiedBy = m.user
	if data != nil {
		m.content[ref] = data
		n.SizeBytes = int64(len(data))
	}
	if in.Name != "" {
		n.Name = in.Name
		n.Properties["cm:name"] = in.Name
	}
	m.history.Append(&version.Record{
		NodeID:    ref.String(),
		Label:     label,
		Major:     in.Major,
		Comment:   in.Comment,
		CreatedBy: m.user,
		CreatedAt: now,
	})
	return &RawVersion{Label: label, Comment: in.Comment, CreatedBy: m.user, CreatedAt: now}, nil
}

// ========== Node CRUD ==========

// ListChildren lists a folder's children, folders first then by name
func (m *Memory) ListChildren(ctx context.Context, parent NodeRef, maxItems int) (*Page, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter(ctx, "list_children"); err != nil {
		return nil, err
	}
	p, ok := m.nodes[parent]
	if !ok {
		return nil, fmt.Errorf("list children %s: %w", parent, ErrNotFound)
	}
	if !p.IsFolder {
		return nil, fmt.Errorf("list children of document %s: %w", parent, ErrInvalidRequest)
	}
	var children []*Node
	for _, n := range m.nodes {
		if n.ParentID == parent {
			children = append(children, n)
		}
	}
	sort.Slice(children, func(i, j int) bool {
		if children[i].IsFolder != children[j].IsFolder {
			return children[i].IsFolder
		}
		return children[i].Name < children[j].Name
	})
	page := &Page{TotalItems: len(children)}
	if maxItems > 0 && len(children) > maxItems {
		children = children[:maxItems]
		page.HasMore = true
	}
	for _, n := range children {
		page.Nodes = append(page.Nodes, *m.snapshot(n))
	}
	return page, nil
}

// CreateContent stores a new versionable document at label 1.0
func (m *Memory) CreateContent(ctx context.Context, parent NodeRef, in ContentInput) (*Node, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter(ctx, "create_content"); err != nil {
		return nil, err
	}
	p, ok := m.nodes[parent]
	if !ok {
		return nil, fmt.Errorf("create content in %s: %w", parent, ErrNotFound)
	}
	if !p.IsFolder {
		return nil, fmt.Errorf("create content in document %s: %w", parent, ErrInvalidRequest)
	}
	name := in.Name
	if m.childNamed(parent, name) != nil {
		if !in.AutoRename {
			return nil, fmt.Errorf("create %q: %w", name, ErrConflict)
		}
		name = m.freeName(parent, name)
	}
	now := m.now().UTC()
	n := &Node{
		ID:         NodeRef(uuid.NewString()),
		Name:       name,
		NodeType:   TypeContent,
		IsFile:     true,
		ParentID:   parent,
		Properties: map[string]any{"cm:name": name, PropVersionLabel: "1.0"},
		Aspects:    []string{AspectVersionable, "cm:titled"},
		MimeType:   in.MimeType,
		SizeBytes:  int64(len(in.Data)),
		CreatedAt:  now,
		ModifiedAt: now,
		CreatedBy:  m.user,
		ModifiedBy: m.user,
	}
	for k, v := range in.Properties {
		n.Properties[k] = v
	}
	m.nodes[n.ID] = n
	m.content[n.ID] = append([]byte(nil), in.Data...)
	m.history.Append(&version.Record{NodeID: n.ID.String(), Label: "1.0", Major: true, CreatedBy: m.user, CreatedAt: now})
	return m.snapshot(n), nil
}

func (m *Memory) freeName(parent NodeRef, name string) string {
	stem, ext := name, ""
	if i := strings.LastIndex(name, "."); i > 0 {
		stem, ext = name[:i], name[i:]
	}
	for i := 1; ; i++ {
		candidate := fmt.Sprintf("%s-%d%s", stem, i, ext)
		if m.childNamed(parent, candidate) == nil {
			return candidate
		}
	}
}

// GetContent returns the document body
func (m *Memory) GetContent(ctx context.Context, ref NodeRef) (*Content, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter(ctx, "get_content"); err != nil {
		return nil, err
	}
	n, ok := m.nodes[ref]
	if !ok {
		return nil, fmt.Errorf("get content %s: %w", ref, ErrNotFound)
	}
	if !n.IsFile {
		return nil, fmt.Errorf("get content of folder %s: %w", ref, ErrInvalidRequest)
	}
	return &Content{Name: n.Name, MimeType: n.MimeType, Data: append([]byte(nil), m.content[ref]...)}, nil
}

// CreateFolder creates a folder under parent
func (m *Memory) CreateFolder(ctx context.Context, parent NodeRef, in FolderInput) (*Node, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter(ctx, "create_folder"); err != nil {
		return nil, err
	}
	p, ok := m.nodes[parent]
	if !ok {
		return nil, fmt.Errorf("create folder in %s: %w", parent, ErrNotFound)
	}
	if !p.IsFolder {
		return nil, fmt.Errorf("create folder in document %s: %w", parent, ErrInvalidRequest)
	}
	if m.childNamed(parent, in.Name) != nil {
		return nil, fmt.Errorf("create folder %q: %w", in.Name, ErrConflict)
	}
	n := m.putFolder(NodeRef(uuid.NewString()), parent, in.Name)
	for k, v := range in.Properties {
		n.Properties[k] = v
	}
	return m.snapshot(n), nil
}

// UpdateNode renames a node and merges properties; nil values remove a property
func (m *Memory) UpdateNode(ctx context.Context, ref NodeRef, in NodeUpdate) (*Node, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter(ctx, "update_node"); err != nil {
		return nil, err
	}
	n, ok := m.nodes[ref]
	if !ok {
		return nil, fmt.Errorf("update node %s: %w", ref, ErrNotFound)
	}
	if n.IsLocked && n.LockOwner != m.user {
		return nil, fmt.Errorf("update node %s held by %s: %w", ref, n.LockOwner, ErrLocked)
	}
	if in.Name != "" && in.Name != n.Name {
		if m.childNamed(n.ParentID, in.Name) != nil {
			return nil, fmt.Errorf("rename to %q: %w", in.Name, ErrConflict)
		}
		n.Name = in.Name
		n.Properties["cm:name"] = in.Name
	}
	for k, v := range in.Properties {
		if v == nil {
			delete(n.Properties, k)
			continue
		}
		n.Properties[k] = v
	}
	n.ModifiedAt = m.now().UTC()
	n.ModifiedBy = m.user
	return m.snapshot(n), nil
}

// DeleteNode removes a node and its descendants, to the trash unless permanent
func (m *Memory) DeleteNode(ctx context.Context, ref NodeRef, permanent bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter(ctx, "delete_node"); err != nil {
		return err
	}
	n, ok := m.nodes[ref]
	if !ok {
		return fmt.Errorf("delete node %s: %w", ref, ErrNotFound)
	}
	if n.ParentID == "" || ref == SharedRoot || ref == MyRoot {
		return fmt.Errorf("delete system folder %s: %w", ref, ErrNotSupported)
	}
	if n.IsLocked {
		return fmt.Errorf("delete node %s held by %s: %w", ref, n.LockOwner, ErrLocked)
	}
	m.remove(ref, permanent)
	return nil
}

func (m *Memory) remove(ref NodeRef, permanent bool) {
	for id, child := range m.nodes {
		if child.ParentID == ref {
			m.remove(id, permanent)
		}
	}
	if !permanent {
		m.trash[ref] = m.nodes[ref]
	}
	delete(m.nodes, ref)
	delete(m.content, ref)
	if permanent {
		m.history.Forget(ref.String())
	}
}

// InTrash reports whether a deleted node can still be restored
func (m *Memory) InTrash(ref NodeRef) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.trash[ref]
	return ok
}

// RepositoryInfo describes the embedded repository
func (m *Memory) RepositoryInfo(ctx context.Context) (*Info, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter(ctx, "repository_info"); err != nil {
		return nil, err
	}
	return &Info{
		ID:        "memory",
		Edition:   "Embedded",
		Version:   "1.0",
		Modules:   []string{},
		Status:    map[string]bool{"isReadOnly": false, "isAuditEnabled": false},
		ServerURL: "memory://",
	}, nil
}

var _ Client = (*Memory)(nil)
