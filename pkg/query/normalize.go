// ABOUTME: Normalization of raw backend rows into uniform search entries
// ABOUTME: Reconciles token-search hits and structured-query rows

package query

import (
	"fmt"
	"strings"

	"github.com/nainya/contentmcp/pkg/repository"
)

const (
	cmisObjectID   = "cmis:objectId"
	cmisName       = "cmis:name"
	cmisObjectType = "cmis:objectTypeId"
	cmisBaseType   = "cmis:baseTypeId"
	cmisPath       = "cmis:path"
)

// Normalize converts one raw row; ok is false when no identifier can be resolved
func Normalize(row repository.RawRow) (Entry, bool) {
	id := strings.TrimSpace(row.ID)
	if id == "" {
		id = stripVersionSuffix(propString(row.Properties, cmisObjectID))
	}
	if id == "" {
		return Entry{}, false
	}

	name := strings.TrimSpace(row.Name)
	if name == "" {
		name = propString(row.Properties, cmisName)
	}
	if name == "" {
		name = id
	}

	nodeType := strings.TrimSpace(row.NodeType)
	if nodeType == "" {
		nodeType = mapCMISType(propString(row.Properties, cmisObjectType))
	}
	if nodeType == "" {
		nodeType = mapCMISType(propString(row.Properties, cmisBaseType))
	}

	isFolder := nodeType == repository.TypeFolder || propString(row.Properties, cmisBaseType) == "cmis:folder"
	if row.IsFolder != nil {
		isFolder = *row.IsFolder
	} else if row.IsFile != nil {
		isFolder = !*row.IsFile
	}
	if nodeType == "" {
		nodeType = repository.TypeContent
		if isFolder {
			nodeType = repository.TypeFolder
		}
	}

	path := repository.JoinPath(row.ParentPath, name)
	if p := propString(row.Properties, cmisPath); p != "" && isFolder {
		path = p
	}

	return Entry{
		ID:         id,
		Name:       name,
		NodeType:   nodeType,
		IsFile:     !isFolder,
		IsFolder:   isFolder,
		Properties: row.Properties,
		Path:       path,
	}, true
}

func propString(props map[string]any, key string) string {
	if props == nil {
		return ""
	}
	switch v := props[key].(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(v)
	case []any:
		if len(v) == 0 {
			return ""
		}
		return strings.TrimSpace(fmt.Sprint(v[0]))
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}

// stripVersionSuffix turns "abc;1.0" into "abc"
func stripVersionSuffix(id string) string {
	if i := strings.IndexByte(id, ';'); i >= 0 {
		return id[:i]
	}
	return id
}

func mapCMISType(t string) string {
	switch t {
	case "":
		return ""
	case "cmis:document":
		return repository.TypeContent
	case "cmis:folder":
		return repository.TypeFolder
	}
	// Alfresco reports subtypes as D:prefix:local or F:prefix:local
	if len(t) > 2 && (strings.HasPrefix(t, "D:") || strings.HasPrefix(t, "F:")) {
		return t[2:]
	}
	return t
}
