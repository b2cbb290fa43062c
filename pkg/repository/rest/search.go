// ABOUTME: Search and discovery operations of the REST client
// ABOUTME: Translated statements are posted as-is; the client never rewrites them

package rest

import (
	"context"
	"net/http"

	"github.com/nainya/contentmcp/pkg/repository"
)

// Search posts a translated query to the search API
func (c *Client) Search(ctx context.Context, q repository.BackendQuery) (*repository.RawResultSet, error) {
	var body searchRequest
	body.Query.Query = q.Statement
	body.Query.Language = string(q.Language)
	body.Paging.MaxItems = q.MaxItems
	body.Paging.SkipCount = q.SkipCount
	body.Include = []string{"properties", "path", "isLocked"}
	for _, s := range q.Sort {
		if s.Field == repository.ScoreSort.Field {
			body.Sort = append(body.Sort, searchSort{Type: "SCORE", Ascending: s.Ascending})
			continue
		}
		body.Sort = append(body.Sort, searchSort{Type: "FIELD", Field: s.Field, Ascending: s.Ascending})
	}

	r, err := jsonRequest(http.MethodPost, searchPath, body)
	if err != nil {
		return nil, err
	}
	// read-only
	r.idempotent = true
	var env listEnvelope
	if err := c.call(ctx, r, &env); err != nil {
		return nil, err
	}
	rs := &repository.RawResultSet{}
	for _, e := range env.List.Entries {
		rs.Rows = append(rs.Rows, e.Entry.toRow())
	}
	if t := env.List.Pagination.TotalItems; t != nil {
		rs.TotalItems = *t
		rs.HasTotal = true
	}
	return rs, nil
}

// RepositoryInfo reads the discovery document
func (c *Client) RepositoryInfo(ctx context.Context) (*repository.Info, error) {
	var env discoveryEnvelope
	if err := c.getJSON(ctx, discoveryPath, nil, &env); err != nil {
		return nil, err
	}
	repo := env.Entry.Repository
	info := &repository.Info{
		ID:        repo.ID,
		Edition:   repo.Edition,
		Version:   repo.Version.Display,
		Status:    repo.Status,
		ServerURL: c.baseURL,
		Modules:   []string{},
	}
	if info.Version == "" && repo.Version.Major != "" {
		info.Version = repo.Version.Major + "." + repo.Version.Minor + "." + repo.Version.Patch
	}
	info.ReadOnly = repo.Status["isReadOnly"]
	for _, m := range repo.Modules {
		name := m.Title
		if name == "" {
			name = m.ID
		}
		info.Modules = append(info.Modules, name)
	}
	return info, nil
}
