// ABOUTME: Tool argument types with JSON, schema and validation tags
// ABOUTME: Absent optional numbers and flags are pointers so defaults can apply

package tools

type SearchContentInput struct {
	Query      string `json:"query,omitempty" jsonschema:"Search terms; wildcards allowed; * matches everything"`
	MaxResults *int   `json:"max_results,omitempty" jsonschema:"Maximum results, 1-1000 (default 25)"`
	NodeType   string `json:"node_type,omitempty" jsonschema:"Node type to search (default cm:content)" validate:"omitempty,contains=:"`
}

type AdvancedSearchInput struct {
	Query         string `json:"query,omitempty" jsonschema:"Search terms"`
	ContentType   string `json:"content_type,omitempty" jsonschema:"Restrict to a node type, e.g. cm:content" validate:"omitempty,contains=:"`
	CreatedAfter  string `json:"created_after,omitempty" jsonschema:"Only nodes created on or after this date (YYYY-MM-DD or RFC3339)"`
	CreatedBefore string `json:"created_before,omitempty" jsonschema:"Only nodes created on or before this date (YYYY-MM-DD or RFC3339)"`
	SortField     string `json:"sort_field,omitempty" jsonschema:"Property to sort by, e.g. cm:modified (default relevance)"`
	SortOrder     string `json:"sort_order,omitempty" jsonschema:"asc or desc (default desc)" validate:"omitempty,oneof=asc desc ASC DESC"`
	MaxResults    *int   `json:"max_results,omitempty" jsonschema:"Maximum results, 1-1000 (default 25)"`
}

type SearchByMetadataInput struct {
	PropertyName  string `json:"property_name,omitempty" jsonschema:"Namespaced property, e.g. cm:title"`
	PropertyValue string `json:"property_value,omitempty" jsonschema:"Value to compare against"`
	Comparison    string `json:"comparison,omitempty" jsonschema:"equals, contains, starts_with, ends_with, greater_than or less_than"`
	MaxResults    *int   `json:"max_results,omitempty" jsonschema:"Maximum results, 1-1000 (default 25)"`
}

type CMISSearchInput struct {
	CMISQuery  string `json:"cmis_query,omitempty" jsonschema:"CMIS SQL statement starting with SELECT"`
	Preset     string `json:"preset,omitempty" jsonschema:"Named preset query"`
	MaxResults *int   `json:"max_results,omitempty" jsonschema:"Maximum results, 1-1000 (default 25)"`
}

type BrowseRepositoryInput struct {
	NodeID   string `json:"node_id,omitempty" jsonschema:"Folder id or alias (-my-, -shared-, -root-); default -my-"`
	MaxItems *int   `json:"max_items,omitempty" jsonschema:"Maximum children, 1-1000 (default 25)" validate:"omitempty,min=1,max=1000"`
}

type RepositoryInfoInput struct{}

type UploadDocumentInput struct {
	Filename      string `json:"filename,omitempty" jsonschema:"Name of the new document" validate:"required,max=255,excludesall=/\\"`
	ContentBase64 string `json:"content_base64,omitempty" jsonschema:"Document content, base64 encoded" validate:"required"`
	ParentID      string `json:"parent_id,omitempty" jsonschema:"Target folder id or alias (default -shared-)"`
	Description   string `json:"description,omitempty" jsonschema:"Document description" validate:"max=1024"`
}

type DownloadDocumentInput struct {
	NodeID     string `json:"node_id,omitempty" jsonschema:"Document id" validate:"required"`
	SaveToDisk *bool  `json:"save_to_disk,omitempty" jsonschema:"Save into the local workspace (default true) instead of returning base64"`
}

type CreateFolderInput struct {
	FolderName  string `json:"folder_name,omitempty" jsonschema:"Name of the new folder" validate:"required,max=255,excludesall=/\\"`
	ParentID    string `json:"parent_id,omitempty" jsonschema:"Parent folder id or alias (default -shared-)"`
	Description string `json:"description,omitempty" jsonschema:"Folder description" validate:"max=1024"`
}

type GetNodePropertiesInput struct {
	NodeID string `json:"node_id,omitempty" jsonschema:"Node id" validate:"required"`
}

type UpdateNodePropertiesInput struct {
	NodeID      string `json:"node_id,omitempty" jsonschema:"Node id" validate:"required"`
	Name        string `json:"name,omitempty" jsonschema:"New node name" validate:"max=255,excludesall=/\\"`
	Title       string `json:"title,omitempty" jsonschema:"New cm:title"`
	Description string `json:"description,omitempty" jsonschema:"New cm:description" validate:"max=1024"`
	Author      string `json:"author,omitempty" jsonschema:"New cm:author"`
}

type DeleteNodeInput struct {
	NodeID    string `json:"node_id,omitempty" jsonschema:"Node id" validate:"required"`
	Permanent bool   `json:"permanent,omitempty" jsonschema:"Skip the trashcan"`
}

type CheckoutDocumentInput struct {
	NodeID             string `json:"node_id,omitempty" jsonschema:"Document id" validate:"required"`
	DownloadForEditing *bool  `json:"download_for_editing,omitempty" jsonschema:"Download a working file into the workspace (default true)"`
}

type CheckinDocumentInput struct {
	NodeID       string `json:"node_id,omitempty" jsonschema:"Document id" validate:"required"`
	Comment      string `json:"comment,omitempty" jsonschema:"Version comment"`
	MajorVersion bool   `json:"major_version,omitempty" jsonschema:"Create a major version"`
	FilePath     string `json:"file_path,omitempty" jsonschema:"Local file with the new content (default: the checked-out working file)"`
}

type CancelCheckoutInput struct {
	NodeID string `json:"node_id,omitempty" jsonschema:"Document id" validate:"required"`
}
