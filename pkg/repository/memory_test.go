// ABOUTME: Tests for the embedded repository and the instrumentation decorator
// ABOUTME: Covers lock ownership, versioning, CRUD and the built-in matcher

package repository

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nainya/contentmcp/pkg/faults"
)

func setupTestMemory(t *testing.T) (*Memory, *Node) {
	t.Helper()
	m := NewMemory("alice")
	doc, err := m.AddDocument(SharedRoot, "report.txt", []byte("v0"), true, map[string]any{
		PropTitle: "Annual Report 2024",
	})
	require.NoError(t, err)
	return m, doc
}

func TestMemoryLockOwnership(t *testing.T) {
	m, doc := setupTestMemory(t)
	ctx := context.Background()

	res, err := m.Lock(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", res.Owner)

	_, err = m.Lock(ctx, doc.ID)
	assert.True(t, errors.Is(err, ErrLocked))

	n, err := m.GetNode(ctx, doc.ID)
	require.NoError(t, err)
	assert.True(t, n.IsLocked)
	assert.Equal(t, "alice", n.LockOwner)

	require.NoError(t, m.Unlock(ctx, doc.ID))
	assert.True(t, errors.Is(m.Unlock(ctx, doc.ID), ErrNotLocked))
}

func TestMemoryUnlockForeignLock(t *testing.T) {
	m, doc := setupTestMemory(t)
	require.NoError(t, m.ForceLock(doc.ID, "bob"))

	err := m.Unlock(context.Background(), doc.ID)
	assert.True(t, errors.Is(err, ErrLocked))
}

func TestMemoryCreateVersionAdvancesLabel(t *testing.T) {
	m, doc := setupTestMemory(t)
	ctx := context.Background()

	v, err := m.CreateVersion(ctx, doc.ID, VersionInput{Comment: "first"})
	require.NoError(t, err)
	assert.Equal(t, "0.1", v.Label)

	v, err = m.CreateVersion(ctx, doc.ID, VersionInput{Major: true, Content: bytes.NewReader([]byte("v1"))})
	require.NoError(t, err)
	assert.Equal(t, "1.0", v.Label)

	content, err := m.GetContent(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, []byte("v1"), content.Data)
	assert.Len(t, m.History().List(doc.ID.String()), 2)
}

func TestMemoryCreateVersionRequiresVersionable(t *testing.T) {
	m := NewMemory("alice")
	doc, err := m.AddDocument(SharedRoot, "plain.txt", nil, false, nil)
	require.NoError(t, err)

	_, err = m.CreateVersion(context.Background(), doc.ID, VersionInput{})
	assert.True(t, errors.Is(err, ErrNotSupported))
}

func TestMemoryFailNextCountsCall(t *testing.T) {
	m, doc := setupTestMemory(t)
	m.FailNext("get_node", ErrTimeout)

	_, err := m.GetNode(context.Background(), doc.ID)
	assert.True(t, errors.Is(err, ErrTimeout))
	assert.Equal(t, 1, m.Calls("get_node"))

	_, err = m.GetNode(context.Background(), doc.ID)
	assert.NoError(t, err)
}

func TestMemoryCrud(t *testing.T) {
	m := NewMemory("alice")
	ctx := context.Background()

	folder, err := m.CreateFolder(ctx, SharedRoot, FolderInput{Name: "Projects"})
	require.NoError(t, err)
	assert.Equal(t, "/Company Home/Shared", folder.Path)
	assert.Equal(t, "/Company Home/Shared/Projects", folder.FullPath())

	_, err = m.CreateFolder(ctx, SharedRoot, FolderInput{Name: "Projects"})
	assert.True(t, errors.Is(err, ErrConflict))

	doc, err := m.CreateContent(ctx, folder.ID, ContentInput{Name: "a.txt", Data: []byte("hello"), MimeType: "text/plain"})
	require.NoError(t, err)
	assert.Equal(t, "1.0", doc.VersionLabel())
	assert.True(t, doc.Versionable())

	dup, err := m.CreateContent(ctx, folder.ID, ContentInput{Name: "a.txt", AutoRename: true})
	require.NoError(t, err)
	assert.Equal(t, "a-1.txt", dup.Name)

	page, err := m.ListChildren(ctx, folder.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, page.TotalItems)
	assert.True(t, page.HasMore)
	assert.Len(t, page.Nodes, 1)

	updated, err := m.UpdateNode(ctx, doc.ID, NodeUpdate{Name: "b.txt", Properties: map[string]any{PropTitle: "B"}})
	require.NoError(t, err)
	assert.Equal(t, "b.txt", updated.Name)
	assert.Equal(t, "B", updated.StringProperty(PropTitle))

	require.NoError(t, m.DeleteNode(ctx, folder.ID, false))
	assert.True(t, m.InTrash(folder.ID))
	_, err = m.GetNode(ctx, doc.ID)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestMemoryDeleteLockedNode(t *testing.T) {
	m, doc := setupTestMemory(t)
	require.NoError(t, m.ForceLock(doc.ID, "bob"))

	err := m.DeleteNode(context.Background(), doc.ID, true)
	assert.True(t, errors.Is(err, ErrLocked))
}

func TestMemorySearchMatcher(t *testing.T) {
	m, doc := setupTestMemory(t)
	_, err := m.AddDocument(SharedRoot, "notes.txt", nil, false, map[string]any{PropTitle: "Meeting notes"})
	require.NoError(t, err)
	ctx := context.Background()

	rs, err := m.Search(ctx, BackendQuery{Language: LanguageAFTS, Statement: `(annual) AND TYPE:"cm:content"`, MaxItems: 10})
	require.NoError(t, err)
	require.Len(t, rs.Rows, 1)
	assert.Equal(t, doc.ID.String(), rs.Rows[0].ID)
	assert.True(t, rs.HasTotal)

	rs, err = m.Search(ctx, BackendQuery{Language: LanguageAFTS, Statement: `cm:title:"Annual Report"`, MaxItems: 10})
	require.NoError(t, err)
	assert.Len(t, rs.Rows, 1)

	rs, err = m.Search(ctx, BackendQuery{Language: LanguageAFTS, Statement: `TYPE:"cm:folder"`, MaxItems: 10})
	require.NoError(t, err)
	for _, row := range rs.Rows {
		assert.True(t, *row.IsFolder)
	}

	rs, err = m.Search(ctx, BackendQuery{Language: LanguageCMIS, Statement: "SELECT * FROM cmis:document", MaxItems: 1})
	require.NoError(t, err)
	assert.Len(t, rs.Rows, 1)
	assert.Equal(t, 2, rs.TotalItems)
}

func TestAsFault(t *testing.T) {
	assert.Equal(t, faults.KindNodeNotFound, faults.KindOf(AsFault("get", "n1", ErrNotFound)))
	assert.Equal(t, faults.KindBackendUnavailable, faults.KindOf(AsFault("get", "n1", ErrUnauthorized)))
	assert.Equal(t, faults.KindValidation, faults.KindOf(AsFault("create", "n1", ErrConflict)))
	assert.NoError(t, AsFault("get", "n1", nil))

	already := faults.NotCheckedOut("n1", "")
	assert.Same(t, already, AsFault("x", "n1", already))
}

func TestUncertain(t *testing.T) {
	assert.True(t, Uncertain(context.DeadlineExceeded))
	assert.True(t, Uncertain(ErrTimeout))
	assert.False(t, Uncertain(ErrUnavailable))
}

type recordedCall struct {
	op, status string
}

type spyRecorder struct {
	mu    sync.Mutex
	calls []recordedCall
}

func (s *spyRecorder) RecordRepoCall(op, status string, _ time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, recordedCall{op, status})
}

func TestInstrumentRecordsCalls(t *testing.T) {
	m, doc := setupTestMemory(t)
	rec := &spyRecorder{}
	c := Instrument(m, rec, zerolog.Nop())
	ctx := context.Background()

	_, err := c.GetNode(ctx, doc.ID)
	require.NoError(t, err)
	_, err = c.GetNode(ctx, "missing")
	require.Error(t, err)

	assert.Equal(t, []recordedCall{{"get_node", "success"}, {"get_node", "error"}}, rec.calls)
	assert.Equal(t, 2, m.Calls("get_node"))
}

func TestMemorySearchDateWindow(t *testing.T) {
	m := NewMemory("alice")
	day := func(s string) time.Time {
		ts, err := time.Parse(time.RFC3339, s)
		require.NoError(t, err)
		return ts
	}
	for name, created := range map[string]string{
		"old.txt":  "2023-12-31T23:00:00Z",
		"jan.txt":  "2024-01-15T09:00:00Z",
		"last.txt": "2024-01-31T18:30:00Z",
		"feb.txt":  "2024-02-01T00:00:00Z",
	} {
		ts := day(created)
		m.now = func() time.Time { return ts }
		_, err := m.AddDocument(SharedRoot, name, nil, false, nil)
		require.NoError(t, err)
	}
	ctx := context.Background()

	rs, err := m.Search(ctx, BackendQuery{
		Language:  LanguageAFTS,
		Statement: `(*) AND TYPE:"cm:content" AND cm:created:["2024-01-01" TO "2024-01-31"]`,
		Sort:      []SortField{{Field: "cm:created", Ascending: true}},
	})
	require.NoError(t, err)
	require.Len(t, rs.Rows, 2)
	assert.Equal(t, "jan.txt", rs.Rows[0].Name)
	assert.Equal(t, "last.txt", rs.Rows[1].Name)

	rs, err = m.Search(ctx, BackendQuery{Language: LanguageAFTS, Statement: `TYPE:"cm:content" AND cm:created:["2024-01-20" TO MAX]`})
	require.NoError(t, err)
	assert.Equal(t, 2, rs.TotalItems)
}

func TestMemorySearchPropertyComparisons(t *testing.T) {
	m := NewMemory("alice")
	for name, pages := range map[string]int64{"short.txt": 3, "mid.txt": 10, "long.txt": 40} {
		_, err := m.AddDocument(SharedRoot, name, nil, false, map[string]any{"ex:pages": pages, PropAuthor: "Bob " + name})
		require.NoError(t, err)
	}
	ctx := context.Background()
	names := func(rs *RawResultSet) []string {
		var out []string
		for _, row := range rs.Rows {
			out = append(out, row.Name)
		}
		return out
	}

	rs, err := m.Search(ctx, BackendQuery{Language: LanguageAFTS, Statement: `ex:pages:<"10" TO MAX]`})
	require.NoError(t, err)
	assert.Equal(t, []string{"long.txt"}, names(rs))

	rs, err = m.Search(ctx, BackendQuery{Language: LanguageAFTS, Statement: `ex:pages:[MIN TO "10">`})
	require.NoError(t, err)
	assert.Equal(t, []string{"short.txt"}, names(rs))

	rs, err = m.Search(ctx, BackendQuery{Language: LanguageAFTS, Statement: `=cm:author:"bob mid.txt"`})
	require.NoError(t, err)
	assert.Equal(t, []string{"mid.txt"}, names(rs))

	rs, err = m.Search(ctx, BackendQuery{Language: LanguageAFTS, Statement: `cm:author:"*long*"`})
	require.NoError(t, err)
	assert.Equal(t, []string{"long.txt"}, names(rs))
}

func TestMemoryCMISWhere(t *testing.T) {
	m := NewMemory("alice")
	add := func(name, mime string, size int) {
		doc, err := m.AddDocument(SharedRoot, name, bytes.Repeat([]byte("x"), size), false, nil)
		require.NoError(t, err)
		m.nodes[doc.ID].MimeType = mime
	}
	add("a.pdf", "application/pdf", 10)
	add("b.pdf", "application/pdf", 30)
	add("c.docx", "application/vnd.openxmlformats-officedocument.wordprocessingml.document", 20)
	add("d.txt", "text/plain", 5)
	ctx := context.Background()

	search := func(stmt string) []string {
		t.Helper()
		rs, err := m.Search(ctx, BackendQuery{Language: LanguageCMIS, Statement: stmt})
		require.NoError(t, err)
		var out []string
		for _, row := range rs.Rows {
			out = append(out, row.Name)
		}
		return out
	}

	assert.Equal(t, []string{"b.pdf", "a.pdf"},
		search("SELECT * FROM cmis:document WHERE cmis:contentStreamMimeType = 'application/pdf' ORDER BY cmis:contentStreamLength DESC"))
	assert.Equal(t, []string{"c.docx"},
		search("SELECT * FROM cmis:document WHERE cmis:contentStreamMimeType IN ('application/msword', 'application/vnd.openxmlformats-officedocument.wordprocessingml.document')"))
	assert.Equal(t, []string{"d.txt", "a.pdf"},
		search("SELECT * FROM cmis:document WHERE cmis:contentStreamLength < 15 ORDER BY cmis:name DESC"))
	assert.Equal(t, []string{"a.pdf", "b.pdf"},
		search("SELECT cmis:name FROM cmis:document WHERE cmis:name LIKE '%.pdf' AND cmis:contentStreamLength >= 10 ORDER BY cmis:name ASC"))
	assert.Empty(t, search("SELECT * FROM cmis:folder WHERE cmis:name = 'a.pdf'"))

	for _, stmt := range []string{
		"DELETE FROM cmis:document",
		"SELECT * FROM cm:thing",
		"SELECT * FROM cmis:document WHERE IN_FOLDER('abc')",
	} {
		_, err := m.Search(ctx, BackendQuery{Language: LanguageCMIS, Statement: stmt})
		assert.True(t, errors.Is(err, ErrInvalidRequest), stmt)
	}
}
