// ABOUTME: Browsing, content transfer and node CRUD tools
// ABOUTME: Node ids accept aliases and URI-style references

package tools

import (
	"context"
	"encoding/base64"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/nainya/contentmcp/pkg/faults"
	"github.com/nainya/contentmcp/pkg/lifecycle"
	"github.com/nainya/contentmcp/pkg/query"
	"github.com/nainya/contentmcp/pkg/repository"
)

// BrowseRepository lists a folder's children
func (f *Facade) BrowseRepository(ctx context.Context, in BrowseRepositoryInput) (*BrowseOutput, error) {
	if err := f.check(in); err != nil {
		return nil, err
	}
	parent, err := refOrDefault("node_id", in.NodeID, repository.MyRoot)
	if err != nil {
		return nil, err
	}
	maxItems := limitOrDefault(in.MaxItems)
	if err := query.ValidateLimit(maxItems); err != nil {
		return nil, err
	}
	page, err := f.repo.ListChildren(ctx, parent, maxItems)
	if err != nil {
		return nil, repository.AsFault("browse", parent, err)
	}
	items := make([]NodeItem, 0, len(page.Nodes))
	for i := range page.Nodes {
		items = append(items, nodeItem(&page.Nodes[i]))
	}
	return &BrowseOutput{
		Summary:    formatBrowse(parent.String(), page),
		NodeID:     parent.String(),
		TotalItems: page.TotalItems,
		HasMore:    page.HasMore,
		Items:      items,
	}, nil
}

// RepositoryInfo describes the repository server
func (f *Facade) RepositoryInfo(ctx context.Context, _ RepositoryInfoInput) (*RepositoryInfoOutput, error) {
	info, err := f.repo.RepositoryInfo(ctx)
	if err != nil {
		return nil, repository.AsFault("repository_info", "", err)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Repository %s\n\nEdition: %s\nVersion: %s\nRead-only: %t\nUser: %s\n",
		info.ID, info.Edition, info.Version, info.ReadOnly, f.Caller())
	if info.ServerURL != "" {
		fmt.Fprintf(&b, "Server: %s\n", info.ServerURL)
	}
	if len(info.Modules) > 0 {
		fmt.Fprintf(&b, "Modules: %s\n", strings.Join(info.Modules, ", "))
	}
	return &RepositoryInfoOutput{
		Summary:   strings.TrimRight(b.String(), "\n"),
		ID:        info.ID,
		Edition:   info.Edition,
		Version:   info.Version,
		ReadOnly:  info.ReadOnly,
		Modules:   info.Modules,
		Status:    info.Status,
		ServerURL: info.ServerURL,
		User:      f.Caller(),
	}, nil
}

// UploadDocument creates a document from base64 content
func (f *Facade) UploadDocument(ctx context.Context, in UploadDocumentInput) (*UploadOutput, error) {
	if err := f.check(in); err != nil {
		return nil, err
	}
	parent, err := refOrDefault("parent_id", in.ParentID, repository.SharedRoot)
	if err != nil {
		return nil, err
	}
	data, err := decodeBase64(in.ContentBase64)
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > f.maxFile {
		return nil, faults.Validation("content of %s exceeds the %s limit",
			formatSize(int64(len(data))), formatSize(f.maxFile))
	}
	detected := mimetype.Detect(data)
	name := strings.TrimSpace(in.Filename)
	if filepath.Ext(name) == "" && detected.Extension() != "" {
		name += detected.Extension()
	}
	props := map[string]any{repository.PropTitle: name}
	if in.Description != "" {
		props[repository.PropDescription] = in.Description
	}
	n, err := f.repo.CreateContent(ctx, parent, repository.ContentInput{
		Name:       name,
		MimeType:   detected.String(),
		Data:       data,
		Properties: props,
		AutoRename: true,
	})
	if err != nil {
		return nil, repository.AsFault("upload", parent, err)
	}
	item := nodeItem(n)
	summary := fmt.Sprintf("Uploaded %s (%s, %s)\nID: %s\nPath: %s",
		n.Name, item.Size, n.MimeType, n.ID, item.Path)
	renamed := n.Name != name
	if renamed {
		summary += fmt.Sprintf("\nRenamed from %s to avoid a name clash", name)
	}
	return &UploadOutput{Summary: summary, Node: item, Renamed: renamed}, nil
}

// DownloadDocument fetches a document into the workspace or inline
func (f *Facade) DownloadDocument(ctx context.Context, in DownloadDocumentInput) (*DownloadOutput, error) {
	if err := f.check(in); err != nil {
		return nil, err
	}
	ref, err := nodeRef("node_id", in.NodeID)
	if err != nil {
		return nil, err
	}
	content, err := f.repo.GetContent(ctx, ref)
	if err != nil {
		return nil, repository.AsFault("download", ref, err)
	}
	out := &DownloadOutput{
		NodeID:    ref.String(),
		Name:      content.Name,
		MimeType:  content.MimeType,
		SizeBytes: int64(len(content.Data)),
	}
	if flagOrDefault(in.SaveToDisk, true) && f.ws != nil {
		path, err := f.ws.SaveDownload(ref.String(), content.Name, content.Data)
		if err != nil {
			return nil, faults.Internal("saving download", err)
		}
		out.SavedTo = path
		out.Summary = fmt.Sprintf("Downloaded %s (%s)\nSaved to: %s",
			content.Name, formatSize(out.SizeBytes), path)
		return out, nil
	}
	out.ContentBase64 = base64.StdEncoding.EncodeToString(content.Data)
	out.Summary = fmt.Sprintf("Downloaded %s (%s, %s); content returned as base64",
		content.Name, formatSize(out.SizeBytes), content.MimeType)
	return out, nil
}

// CreateFolder creates a folder
func (f *Facade) CreateFolder(ctx context.Context, in CreateFolderInput) (*FolderOutput, error) {
	if err := f.check(in); err != nil {
		return nil, err
	}
	parent, err := refOrDefault("parent_id", in.ParentID, repository.SharedRoot)
	if err != nil {
		return nil, err
	}
	name := strings.TrimSpace(in.FolderName)
	props := map[string]any{repository.PropTitle: name}
	if in.Description != "" {
		props[repository.PropDescription] = in.Description
	}
	n, err := f.repo.CreateFolder(ctx, parent, repository.FolderInput{Name: name, Properties: props})
	if err != nil {
		return nil, repository.AsFault("create_folder", parent, err)
	}
	item := nodeItem(n)
	return &FolderOutput{
		Summary: fmt.Sprintf("Created folder %s\nID: %s\nPath: %s", n.Name, n.ID, item.Path),
		Node:    item,
	}, nil
}

var shownProperties = map[string]bool{
	"cm:name":                   true,
	repository.PropTitle:        true,
	repository.PropDescription:  true,
	repository.PropAuthor:       true,
	repository.PropVersionLabel: true,
}

// GetNodeProperties shows a node's metadata and checkout state
func (f *Facade) GetNodeProperties(ctx context.Context, in GetNodePropertiesInput) (*NodePropertiesOutput, error) {
	if err := f.check(in); err != nil {
		return nil, err
	}
	ref, err := nodeRef("node_id", in.NodeID)
	if err != nil {
		return nil, err
	}
	n, err := f.repo.GetNode(ctx, ref)
	if err != nil {
		return nil, repository.AsFault("get_node_properties", ref, err)
	}
	other := make(map[string]any)
	for k, v := range n.Properties {
		if !shownProperties[k] {
			other[k] = v
		}
	}
	out := &NodePropertiesOutput{
		Node:         nodeItem(n),
		Title:        n.StringProperty(repository.PropTitle),
		Description:  n.StringProperty(repository.PropDescription),
		Author:       n.StringProperty(repository.PropAuthor),
		VersionLabel: n.VersionLabel(),
		CreatedBy:    n.CreatedBy,
		CreatedAt:    stamp(n.CreatedAt),
		ModifiedBy:   n.ModifiedBy,
		State:        lifecycle.Derive(n, f.Caller()).String(),
		LockOwner:    n.LockOwner,
		Aspects:      n.Aspects,
		Properties:   other,
	}
	out.Summary = formatProperties(out, n)
	return out, nil
}

// UpdateNodeProperties renames a node or changes its descriptive properties
func (f *Facade) UpdateNodeProperties(ctx context.Context, in UpdateNodePropertiesInput) (*UpdatePropertiesOutput, error) {
	if err := f.check(in); err != nil {
		return nil, err
	}
	ref, err := nodeRef("node_id", in.NodeID)
	if err != nil {
		return nil, err
	}
	update := repository.NodeUpdate{Name: strings.TrimSpace(in.Name), Properties: map[string]any{}}
	var updated []string
	if update.Name != "" {
		updated = append(updated, "name")
	}
	for _, p := range []struct{ field, prop, value string }{
		{"title", repository.PropTitle, in.Title},
		{"description", repository.PropDescription, in.Description},
		{"author", repository.PropAuthor, in.Author},
	} {
		if p.value != "" {
			update.Properties[p.prop] = p.value
			updated = append(updated, p.field)
		}
	}
	if len(updated) == 0 {
		return nil, faults.Validation("at least one of name, title, description or author is required")
	}
	n, err := f.repo.UpdateNode(ctx, ref, update)
	if err != nil {
		return nil, repository.AsFault("update_node_properties", ref, err)
	}
	return &UpdatePropertiesOutput{
		Summary: fmt.Sprintf("Updated %s of %s (%s)", strings.Join(updated, ", "), n.Name, n.ID),
		Node:    nodeItem(n),
		Updated: updated,
	}, nil
}

// DeleteNode deletes a node into the trashcan or permanently
func (f *Facade) DeleteNode(ctx context.Context, in DeleteNodeInput) (*DeleteOutput, error) {
	if err := f.check(in); err != nil {
		return nil, err
	}
	ref, err := nodeRef("node_id", in.NodeID)
	if err != nil {
		return nil, err
	}
	n, err := f.repo.GetNode(ctx, ref)
	if err != nil {
		return nil, repository.AsFault("delete", ref, err)
	}
	if err := f.repo.DeleteNode(ctx, ref, in.Permanent); err != nil {
		return nil, repository.AsFault("delete", ref, err)
	}
	where := "moved to the trashcan"
	if in.Permanent {
		where = "permanently deleted"
	}
	return &DeleteOutput{
		Summary:   fmt.Sprintf("Deleted %s %s (%s), %s", kindLabel(n.IsFolder), n.Name, n.ID, where),
		NodeID:    ref.String(),
		Name:      n.Name,
		Permanent: in.Permanent,
	}, nil
}

func decodeBase64(s string) ([]byte, error) {
	clean := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\n', '\r', '\t':
			return -1
		}
		return r
	}, s)
	if i := strings.Index(clean, ";base64,"); i >= 0 && strings.HasPrefix(clean, "data:") {
		clean = clean[i+len(";base64,"):]
	}
	data, err := base64.StdEncoding.DecodeString(clean)
	if err != nil {
		data, err = base64.RawStdEncoding.DecodeString(clean)
	}
	if err != nil {
		return nil, faults.Validation("content_base64 is not valid base64")
	}
	return data, nil
}
