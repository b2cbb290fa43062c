// ABOUTME: JSON shapes of the repository REST API and their conversion
// ABOUTME: Only the fields the tools read are decoded

package rest

import (
	"fmt"
	"time"

	"github.com/nainya/contentmcp/pkg/repository"
)

type userInfo struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
}

type contentInfo struct {
	MimeType    string `json:"mimeType"`
	SizeInBytes int64  `json:"sizeInBytes"`
}

type pathInfo struct {
	Name string `json:"name"`
}

type nodeEntry struct {
	ID             string         `json:"id"`
	Name           string         `json:"name"`
	NodeType       string         `json:"nodeType"`
	IsFile         *bool          `json:"isFile"`
	IsFolder       *bool          `json:"isFolder"`
	IsLocked       bool           `json:"isLocked"`
	ParentID       string         `json:"parentId"`
	CreatedAt      time.Time      `json:"createdAt"`
	ModifiedAt     time.Time      `json:"modifiedAt"`
	CreatedByUser  *userInfo      `json:"createdByUser"`
	ModifiedByUser *userInfo      `json:"modifiedByUser"`
	Content        *contentInfo   `json:"content"`
	Properties     map[string]any `json:"properties"`
	AspectNames    []string       `json:"aspectNames"`
	Path           *pathInfo      `json:"path"`
}

type entryEnvelope struct {
	Entry nodeEntry `json:"entry"`
}

type pagination struct {
	Count        int  `json:"count"`
	HasMoreItems bool `json:"hasMoreItems"`
	TotalItems   *int `json:"totalItems"`
	SkipCount    int  `json:"skipCount"`
	MaxItems     int  `json:"maxItems"`
}

type listEnvelope struct {
	List struct {
		Pagination pagination      `json:"pagination"`
		Entries    []entryEnvelope `json:"entries"`
	} `json:"list"`
}

type discoveryEnvelope struct {
	Entry struct {
		Repository struct {
			ID      string `json:"id"`
			Edition string `json:"edition"`
			Version struct {
				Display string `json:"display"`
				Major   string `json:"major"`
				Minor   string `json:"minor"`
				Patch   string `json:"patch"`
			} `json:"version"`
			Status  map[string]bool `json:"status"`
			Modules []struct {
				ID    string `json:"id"`
				Title string `json:"title"`
			} `json:"modules"`
		} `json:"repository"`
	} `json:"entry"`
}

type searchRequest struct {
	Query struct {
		Query    string `json:"query"`
		Language string `json:"language"`
	} `json:"query"`
	Paging struct {
		MaxItems  int `json:"maxItems"`
		SkipCount int `json:"skipCount"`
	} `json:"paging"`
	Sort    []searchSort `json:"sort,omitempty"`
	Include []string     `json:"include"`
}

type searchSort struct {
	Type      string `json:"type"`
	Field     string `json:"field,omitempty"`
	Ascending bool   `json:"ascending"`
}

type lockRequest struct {
	Type     string `json:"type"`
	Lifetime string `json:"lifetime"`
}

type nodeBody struct {
	Name       string         `json:"name,omitempty"`
	NodeType   string         `json:"nodeType,omitempty"`
	Properties map[string]any `json:"properties,omitempty"`
}

// lockOwner reads cm:lockOwner, which arrives as a user object or a bare id
func lockOwner(props map[string]any) string {
	switch v := props["cm:lockOwner"].(type) {
	case string:
		return v
	case map[string]any:
		if id, ok := v["id"].(string); ok {
			return id
		}
	case nil:
	default:
		return fmt.Sprint(v)
	}
	return ""
}

func (e nodeEntry) toNode() *repository.Node {
	n := &repository.Node{
		ID:         repository.NodeRef(e.ID),
		Name:       e.Name,
		NodeType:   e.NodeType,
		ParentID:   repository.NodeRef(e.ParentID),
		Properties: e.Properties,
		Aspects:    e.AspectNames,
		IsLocked:   e.IsLocked,
		CreatedAt:  e.CreatedAt,
		ModifiedAt: e.ModifiedAt,
	}
	if n.Properties == nil {
		n.Properties = map[string]any{}
	}
	if e.IsFolder != nil {
		n.IsFolder = *e.IsFolder
	}
	if e.IsFile != nil {
		n.IsFile = *e.IsFile
	} else {
		n.IsFile = !n.IsFolder
	}
	if e.Path != nil {
		n.Path = e.Path.Name
	}
	if e.Content != nil {
		n.MimeType = e.Content.MimeType
		n.SizeBytes = e.Content.SizeInBytes
	}
	if e.CreatedByUser != nil {
		n.CreatedBy = e.CreatedByUser.ID
	}
	if e.ModifiedByUser != nil {
		n.ModifiedBy = e.ModifiedByUser.ID
	}
	if owner := lockOwner(e.Properties); owner != "" {
		n.LockOwner = owner
		n.IsLocked = true
	}
	return n
}

func (e nodeEntry) toRow() repository.RawRow {
	row := repository.RawRow{
		ID:         e.ID,
		Name:       e.Name,
		NodeType:   e.NodeType,
		IsFile:     e.IsFile,
		IsFolder:   e.IsFolder,
		Properties: e.Properties,
	}
	if e.Path != nil {
		row.ParentPath = e.Path.Name
	}
	return row
}
