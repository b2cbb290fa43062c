// ABOUTME: Search tools: full-text, filtered, by-property and structured queries
// ABOUTME: Each builds a query request and delegates to the search engine

package tools

import (
	"context"
	"strings"

	"github.com/nainya/contentmcp/pkg/faults"
	"github.com/nainya/contentmcp/pkg/property"
	"github.com/nainya/contentmcp/pkg/query"
)

// SearchContent runs a full-text search
func (f *Facade) SearchContent(ctx context.Context, in SearchContentInput) (*SearchOutput, error) {
	if err := f.check(in); err != nil {
		return nil, err
	}
	req := query.FullText{
		Query:      in.Query,
		MaxResults: limitOrDefault(in.MaxResults),
		NodeType:   in.NodeType,
	}
	return f.search(ctx, req, "Search results for '"+strings.TrimSpace(in.Query)+"'")
}

// AdvancedSearch runs a filtered search with sorting
func (f *Facade) AdvancedSearch(ctx context.Context, in AdvancedSearchInput) (*SearchOutput, error) {
	if err := f.check(in); err != nil {
		return nil, err
	}
	req := query.Filtered{
		Query:         in.Query,
		ContentType:   in.ContentType,
		CreatedAfter:  in.CreatedAfter,
		CreatedBefore: in.CreatedBefore,
		SortField:     in.SortField,
		SortOrder:     strings.ToLower(in.SortOrder),
		MaxResults:    limitOrDefault(in.MaxResults),
	}
	return f.search(ctx, req, "Advanced search results for '"+strings.TrimSpace(in.Query)+"'")
}

// SearchByMetadata compares one property against a value
func (f *Facade) SearchByMetadata(ctx context.Context, in SearchByMetadataInput) (*SearchOutput, error) {
	if err := f.check(in); err != nil {
		return nil, err
	}
	cmp, err := property.ParseComparison(in.Comparison)
	if err != nil {
		return nil, err
	}
	req := query.ByProperty{
		PropertyName:  strings.TrimSpace(in.PropertyName),
		PropertyValue: in.PropertyValue,
		Comparison:    cmp,
		MaxResults:    limitOrDefault(in.MaxResults),
	}
	title := "Metadata search results for " + req.PropertyName + " " + string(cmp) + " '" + in.PropertyValue + "'"
	return f.search(ctx, req, title)
}

// CMISSearch runs a raw structured statement or a named preset
func (f *Facade) CMISSearch(ctx context.Context, in CMISSearchInput) (*SearchOutput, error) {
	if err := f.check(in); err != nil {
		return nil, err
	}
	hasQuery := strings.TrimSpace(in.CMISQuery) != ""
	hasPreset := strings.TrimSpace(in.Preset) != ""
	var (
		source query.StatementSource
		title  string
	)
	switch {
	case hasQuery && hasPreset:
		return nil, faults.Validation("give either cmis_query or preset, not both")
	case hasPreset:
		source = query.Preset(strings.TrimSpace(in.Preset))
		title = "CMIS preset '" + strings.TrimSpace(in.Preset) + "' results"
	case hasQuery:
		source = query.RawStatement(in.CMISQuery)
		title = "CMIS query results"
	default:
		return nil, faults.Validation("one of cmis_query or preset is required (presets: %s)",
			strings.Join(query.PresetNames(), ", "))
	}
	req := query.Structured{Source: source, MaxResults: limitOrDefault(in.MaxResults)}
	return f.search(ctx, req, title)
}

func (f *Facade) search(ctx context.Context, req query.Request, title string) (*SearchOutput, error) {
	res, err := f.engine.Execute(ctx, req)
	if err != nil {
		return nil, err
	}
	entries := res.Entries
	if entries == nil {
		entries = []query.Entry{}
	}
	return &SearchOutput{
		Summary:    formatSearch(title, res),
		Variant:    req.Variant(),
		TotalCount: res.TotalCount,
		Returned:   len(entries),
		Entries:    entries,
	}, nil
}
