// ABOUTME: Read-only table of named structured-query presets
// ABOUTME: Presets expand to fixed statements; paging carries max_results

package query

import "sort"

var presets = map[string]string{
	"recent_documents": "SELECT * FROM cmis:document ORDER BY cmis:lastModificationDate DESC",
	"recent_folders":   "SELECT * FROM cmis:folder ORDER BY cmis:lastModificationDate DESC",
	"large_files":      "SELECT * FROM cmis:document WHERE cmis:contentStreamLength > 10485760 ORDER BY cmis:contentStreamLength DESC",
	"pdf_documents":    "SELECT * FROM cmis:document WHERE cmis:contentStreamMimeType = 'application/pdf' ORDER BY cmis:lastModificationDate DESC",
	"word_documents": "SELECT * FROM cmis:document WHERE cmis:contentStreamMimeType IN " +
		"('application/msword', 'application/vnd.openxmlformats-officedocument.wordprocessingml.document') " +
		"ORDER BY cmis:lastModificationDate DESC",
}

// PresetStatement returns the statement of a named preset
func PresetStatement(name string) (string, bool) {
	s, ok := presets[name]
	return s, ok
}

// PresetNames lists the known presets in sorted order
func PresetNames() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
