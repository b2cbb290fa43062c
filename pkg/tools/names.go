// ABOUTME: Tool names and the descriptions published to tool hosts
// ABOUTME: The order here is the order tools are listed in

package tools

const (
	ToolSearchContent        = "search_content"
	ToolAdvancedSearch       = "advanced_search"
	ToolSearchByMetadata     = "search_by_metadata"
	ToolCMISSearch           = "cmis_search"
	ToolBrowseRepository     = "browse_repository"
	ToolRepositoryInfo       = "repository_info"
	ToolUploadDocument       = "upload_document"
	ToolDownloadDocument     = "download_document"
	ToolCreateFolder         = "create_folder"
	ToolGetNodeProperties    = "get_node_properties"
	ToolUpdateNodeProperties = "update_node_properties"
	ToolDeleteNode           = "delete_node"
	ToolCheckoutDocument     = "checkout_document"
	ToolCheckinDocument      = "checkin_document"
	ToolCancelCheckout       = "cancel_checkout"
)

// Descriptor names a tool and describes it for a tool host
type Descriptor struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

var descriptors = []Descriptor{
	{ToolSearchContent, "Full-text search for documents. Use \"*\" to match everything of the node type. Defaults to cm:content and 25 results."},
	{ToolAdvancedSearch, "Full-text search narrowed by content type and creation date window (YYYY-MM-DD or RFC3339), with sort field and order. Unsorted searches are ranked by relevance."},
	{ToolSearchByMetadata, "Search by a single property comparison. Comparisons: equals, contains, starts_with, ends_with, greater_than, less_than (ordering comparisons need date or number properties)."},
	{ToolCMISSearch, "Run a CMIS SQL SELECT statement or a named preset (recent_documents, recent_folders, large_files, pdf_documents, word_documents). Give exactly one of cmis_query or preset."},
	{ToolBrowseRepository, "List the children of a folder. Defaults to the user's home folder (-my-); use -shared- or -root- for the shared and root folders."},
	{ToolRepositoryInfo, "Describe the repository server: edition, version, status flags and installed modules."},
	{ToolUploadDocument, "Upload a base64-encoded document. Defaults to the shared folder; a file extension is added from the detected content type when missing."},
	{ToolDownloadDocument, "Download a document. Saves into the local workspace by default; set save_to_disk=false to receive base64 content instead."},
	{ToolCreateFolder, "Create a folder. Defaults to the shared folder."},
	{ToolGetNodeProperties, "Show a node's metadata, version label and checkout state."},
	{ToolUpdateNodeProperties, "Rename a node or change its title, description or author. At least one field is required."},
	{ToolDeleteNode, "Delete a node into the trashcan, or permanently with permanent=true. Locked nodes cannot be deleted."},
	{ToolCheckoutDocument, "Check out a document by taking the repository lock. Downloads a working file into the workspace unless download_for_editing=false."},
	{ToolCheckinDocument, "Check in a document you hold: creates a minor version (or major with major_version=true) from file_path or the checked-out working file, then releases the lock. An OUTCOME UNKNOWN error means re-read the node before retrying."},
	{ToolCancelCheckout, "Release your checkout without creating a version and discard the local working file."},
}

// Descriptors lists every tool in publication order
func Descriptors() []Descriptor {
	out := make([]Descriptor, len(descriptors))
	copy(out, descriptors)
	return out
}

// Description returns the published description of a tool
func Description(name string) string {
	for _, s := range descriptors {
		if s.Name == name {
			return s.Description
		}
	}
	return ""
}
