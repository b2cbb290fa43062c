// ABOUTME: Human-readable summaries for tool results
// ABOUTME: Sizes and times are rendered with go-humanize

package tools

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/nainya/contentmcp/pkg/query"
	"github.com/nainya/contentmcp/pkg/repository"
)

func formatSize(n int64) string {
	if n < 0 {
		n = 0
	}
	return humanize.Bytes(uint64(n))
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "unknown"
	}
	return fmt.Sprintf("%s (%s)", t.UTC().Format(time.RFC3339), humanize.Time(t))
}

// stamp renders t as RFC3339 in UTC, empty when unknown
func stamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func kindLabel(isFolder bool) string {
	if isFolder {
		return "folder"
	}
	return "document"
}

func formatSearch(title string, res *query.Result) string {
	var b strings.Builder
	if len(res.Entries) == 0 {
		fmt.Fprintf(&b, "%s\n\nNo items found.", title)
		return b.String()
	}
	fmt.Fprintf(&b, "%s\n\nFound %s, showing %d:\n",
		title, plural(res.TotalCount, "item"), len(res.Entries))
	for i, e := range res.Entries {
		fmt.Fprintf(&b, "\n%d. %s (%s)\n", i+1, e.Name, kindLabel(e.IsFolder))
		fmt.Fprintf(&b, "   ID: %s\n", e.ID)
		fmt.Fprintf(&b, "   Type: %s\n", e.NodeType)
		if e.Path != "" {
			fmt.Fprintf(&b, "   Path: %s\n", e.Path)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatBrowse(parent string, page *repository.Page) string {
	var b strings.Builder
	if len(page.Nodes) == 0 {
		fmt.Fprintf(&b, "Folder %s is empty.", parent)
		return b.String()
	}
	fmt.Fprintf(&b, "Contents of %s (%s", parent, plural(page.TotalItems, "item"))
	if page.HasMore {
		fmt.Fprintf(&b, ", showing first %d", len(page.Nodes))
	}
	b.WriteString("):\n")
	for _, n := range page.Nodes {
		if n.IsFolder {
			fmt.Fprintf(&b, "\n[folder] %s\n   ID: %s\n", n.Name, n.ID)
			continue
		}
		fmt.Fprintf(&b, "\n[file] %s (%s)\n   ID: %s\n", n.Name, formatSize(n.SizeBytes), n.ID)
		if n.IsLocked {
			fmt.Fprintf(&b, "   Checked out by: %s\n", ownerOrUnknown(n.LockOwner))
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatProperties(out *NodePropertiesOutput, node *repository.Node) string {
	var b strings.Builder
	n := out.Node
	fmt.Fprintf(&b, "Properties of %s (%s)\n\n", n.Name, kindLabel(n.IsFolder))
	fmt.Fprintf(&b, "ID: %s\nType: %s\nPath: %s\n", n.ID, n.NodeType, n.Path)
	if n.IsFile {
		fmt.Fprintf(&b, "Size: %s\n", n.Size)
		if n.MimeType != "" {
			fmt.Fprintf(&b, "MIME type: %s\n", n.MimeType)
		}
	}
	if out.Title != "" {
		fmt.Fprintf(&b, "Title: %s\n", out.Title)
	}
	if out.Description != "" {
		fmt.Fprintf(&b, "Description: %s\n", out.Description)
	}
	if out.Author != "" {
		fmt.Fprintf(&b, "Author: %s\n", out.Author)
	}
	if out.VersionLabel != "" {
		fmt.Fprintf(&b, "Version: %s\n", out.VersionLabel)
	}
	fmt.Fprintf(&b, "Created: %s by %s\n", formatTime(node.CreatedAt), ownerOrUnknown(out.CreatedBy))
	fmt.Fprintf(&b, "Modified: %s by %s\n", formatTime(node.ModifiedAt), ownerOrUnknown(out.ModifiedBy))
	switch out.State {
	case "checked_out_by_caller":
		b.WriteString("Checkout: checked out by you\n")
	case "checked_out_by_other":
		fmt.Fprintf(&b, "Checkout: checked out by %s\n", ownerOrUnknown(out.LockOwner))
	default:
		b.WriteString("Checkout: available\n")
	}
	if len(out.Properties) > 0 {
		b.WriteString("\nOther properties:\n")
		keys := make([]string, 0, len(out.Properties))
		for k := range out.Properties {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, "  %s: %v\n", k, out.Properties[k])
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func plural(n int, noun string) string {
	if n == 1 {
		return "1 " + noun
	}
	return humanize.Comma(int64(n)) + " " + noun + "s"
}

func ownerOrUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}
