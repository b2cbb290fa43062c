// ABOUTME: Node, lock, version and content operations of the REST client
// ABOUTME: Mutations are sent once; their failures are classified by the caller

package rest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"

	"github.com/nainya/contentmcp/pkg/repository"
)

const nodeInclude = "properties,aspectNames,isLocked,path"

// GetNode reads a node with its properties, aspects and lock flag
func (c *Client) GetNode(ctx context.Context, ref repository.NodeRef) (*repository.Node, error) {
	var env entryEnvelope
	q := url.Values{"include": {nodeInclude}}
	if err := c.getJSON(ctx, nodePath(ref, ""), q, &env); err != nil {
		return nil, err
	}
	return env.Entry.toNode(), nil
}

// Lock takes a persistent lock for the authenticated user
func (c *Client) Lock(ctx context.Context, ref repository.NodeRef) (*repository.LockResult, error) {
	r, err := jsonRequest(http.MethodPost, nodePath(ref, "/lock"), lockRequest{Type: "ALLOW_OWNER_CHANGES", Lifetime: "PERSISTENT"})
	if err != nil {
		return nil, err
	}
	r.query = url.Values{"include": {"properties,isLocked"}}
	r.lockOp = true
	var env entryEnvelope
	if err := c.call(ctx, r, &env); err != nil {
		return nil, err
	}
	owner := lockOwner(env.Entry.Properties)
	if owner == "" {
		owner = c.username
	}
	return &repository.LockResult{Owner: owner}, nil
}

// Unlock releases the node's lock
func (c *Client) Unlock(ctx context.Context, ref repository.NodeRef) error {
	r, err := jsonRequest(http.MethodPost, nodePath(ref, "/unlock"), nil)
	if err != nil {
		return err
	}
	err = c.call(ctx, r, nil)
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnprocessableEntity {
		return fmt.Errorf("%v: %w", apiErr, repository.ErrNotLocked)
	}
	return err
}

// CreateVersion uploads new content, or re-posts the current content, as a new version
func (c *Client) CreateVersion(ctx context.Context, ref repository.NodeRef, in repository.VersionInput) (*repository.RawVersion, error) {
	var data []byte
	if in.Content != nil {
		b, err := io.ReadAll(in.Content)
		if err != nil {
			return nil, fmt.Errorf("read version content: %w", err)
		}
		data = b
	} else {
		current, err := c.GetContent(ctx, ref)
		if err != nil {
			return nil, err
		}
		data = current.Data
	}
	q := url.Values{
		"majorVersion": {strconv.FormatBool(in.Major)},
		"include":      {"properties"},
	}
	if in.Comment != "" {
		q.Set("comment", in.Comment)
	}
	if in.Name != "" {
		q.Set("name", in.Name)
	}
	r := request{
		method:      http.MethodPut,
		path:        nodePath(ref, "/content"),
		query:       q,
		body:        data,
		contentType: "application/octet-stream",
	}
	var env entryEnvelope
	if err := c.call(ctx, r, &env); err != nil {
		return nil, err
	}
	n := env.Entry.toNode()
	label := n.VersionLabel()
	if label == "" {
		return nil, fmt.Errorf("create version %s: content written but no version label in response: %w", ref, repository.ErrOutcomeUnknown)
	}
	return &repository.RawVersion{
		Label:     label,
		Comment:   in.Comment,
		CreatedBy: n.ModifiedBy,
		CreatedAt: n.ModifiedAt,
	}, nil
}

// ListChildren lists a folder's children
func (c *Client) ListChildren(ctx context.Context, parent repository.NodeRef, maxItems int) (*repository.Page, error) {
	q := url.Values{
		"include":  {"properties,isLocked,path"},
		"orderBy":  {"isFolder DESC,name ASC"},
		"maxItems": {strconv.Itoa(maxItems)},
	}
	var env listEnvelope
	if err := c.getJSON(ctx, nodePath(parent, "/children"), q, &env); err != nil {
		return nil, err
	}
	page := &repository.Page{HasMore: env.List.Pagination.HasMoreItems}
	for _, e := range env.List.Entries {
		page.Nodes = append(page.Nodes, *e.Entry.toNode())
	}
	page.TotalItems = len(page.Nodes)
	if t := env.List.Pagination.TotalItems; t != nil {
		page.TotalItems = *t
	}
	return page, nil
}

// CreateContent uploads a document as multipart form data
func (c *Client) CreateContent(ctx context.Context, parent repository.NodeRef, in repository.ContentInput) (*repository.Node, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	fields := map[string]string{
		"name":       in.Name,
		"nodeType":   repository.TypeContent,
		"autoRename": strconv.FormatBool(in.AutoRename),
	}
	for k, v := range in.Properties {
		fields[k] = fmt.Sprint(v)
	}
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			return nil, fmt.Errorf("encode upload: %w", err)
		}
	}
	part, err := w.CreateFormFile("filedata", in.Name)
	if err != nil {
		return nil, fmt.Errorf("encode upload: %w", err)
	}
	if _, err := part.Write(in.Data); err != nil {
		return nil, fmt.Errorf("encode upload: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("encode upload: %w", err)
	}
	r := request{
		method:      http.MethodPost,
		path:        nodePath(parent, "/children"),
		query:       url.Values{"include": {nodeInclude}},
		body:        buf.Bytes(),
		contentType: w.FormDataContentType(),
	}
	var env entryEnvelope
	if err := c.call(ctx, r, &env); err != nil {
		return nil, err
	}
	return env.Entry.toNode(), nil
}

// GetContent downloads a document body
func (c *Client) GetContent(ctx context.Context, ref repository.NodeRef) (*repository.Content, error) {
	n, err := c.GetNode(ctx, ref)
	if err != nil {
		return nil, err
	}
	if n.IsFolder {
		return nil, fmt.Errorf("get content of folder %s: %w", ref, repository.ErrInvalidRequest)
	}
	data, err := c.do(ctx, request{
		method:     http.MethodGet,
		path:       nodePath(ref, "/content"),
		query:      url.Values{"attachment": {"false"}},
		idempotent: true,
	})
	if err != nil {
		return nil, err
	}
	return &repository.Content{Name: n.Name, MimeType: n.MimeType, Data: data}, nil
}

// CreateFolder creates a folder under parent
func (c *Client) CreateFolder(ctx context.Context, parent repository.NodeRef, in repository.FolderInput) (*repository.Node, error) {
	r, err := jsonRequest(http.MethodPost, nodePath(parent, "/children"), nodeBody{
		Name:       in.Name,
		NodeType:   repository.TypeFolder,
		Properties: in.Properties,
	})
	if err != nil {
		return nil, err
	}
	r.query = url.Values{"include": {nodeInclude}}
	var env entryEnvelope
	if err := c.call(ctx, r, &env); err != nil {
		return nil, err
	}
	return env.Entry.toNode(), nil
}

// UpdateNode renames a node and/or sets properties
func (c *Client) UpdateNode(ctx context.Context, ref repository.NodeRef, in repository.NodeUpdate) (*repository.Node, error) {
	r, err := jsonRequest(http.MethodPut, nodePath(ref, ""), nodeBody{Name: in.Name, Properties: in.Properties})
	if err != nil {
		return nil, err
	}
	r.query = url.Values{"include": {nodeInclude}}
	var env entryEnvelope
	if err := c.call(ctx, r, &env); err != nil {
		return nil, err
	}
	return env.Entry.toNode(), nil
}

// DeleteNode deletes a node into the trashcan unless permanent
func (c *Client) DeleteNode(ctx context.Context, ref repository.NodeRef, permanent bool) error {
	r := request{
		method: http.MethodDelete,
		path:   nodePath(ref, ""),
		query:  url.Values{"permanent": {strconv.FormatBool(permanent)}},
		lockOp: true,
	}
	return c.call(ctx, r, nil)
}
