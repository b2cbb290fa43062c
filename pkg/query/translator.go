// ABOUTME: Pure translation of search requests into backend queries
// ABOUTME: All argument errors are raised here, before any backend call

package query

import (
	"fmt"
	"strings"

	"github.com/nainya/contentmcp/pkg/faults"
	"github.com/nainya/contentmcp/pkg/property"
	"github.com/nainya/contentmcp/pkg/repository"
)

// DefaultNodeType is the type full-text searches are restricted to by default
const DefaultNodeType = repository.TypeContent

// ValidateLimit rejects max_results outside [1,1000]
func ValidateLimit(n int) error {
	if n < MinMaxResults || n > MaxMaxResults {
		return faults.Validation("max_results must be between %d and %d, got %d", MinMaxResults, MaxMaxResults, n)
	}
	return nil
}

// Translate maps a request to a backend query. It never contacts the backend.
func Translate(req Request) (repository.BackendQuery, error) {
	req = concrete(req)
	if req == nil {
		return repository.BackendQuery{}, faults.Validation("search request is required")
	}
	if err := ValidateLimit(req.Limit()); err != nil {
		return repository.BackendQuery{}, err
	}
	switch r := req.(type) {
	case FullText:
		return translateFullText(r)
	case Filtered:
		return translateFiltered(r)
	case ByProperty:
		return translateByProperty(r)
	case Structured:
		return translateStructured(r)
	default:
		return repository.BackendQuery{}, faults.Validation("unsupported search request %T", req)
	}
}

// concrete dereferences pointer variants. A nil pointer becomes a nil request.
func concrete(req Request) Request {
	switch r := req.(type) {
	case *FullText:
		if r == nil {
			return nil
		}
		return *r
	case *Filtered:
		if r == nil {
			return nil
		}
		return *r
	case *ByProperty:
		if r == nil {
			return nil
		}
		return *r
	case *Structured:
		if r == nil {
			return nil
		}
		return *r
	}
	return req
}

func translateFullText(r FullText) (repository.BackendQuery, error) {
	q := strings.TrimSpace(r.Query)
	if q == "" {
		return repository.BackendQuery{}, faults.EmptyQuery("query")
	}
	nodeType := strings.TrimSpace(r.NodeType)
	if nodeType == "" {
		nodeType = DefaultNodeType
	}

	var stmt string
	switch {
	case strings.Contains(q, "TYPE:"):
		stmt = q
	case q == "*":
		stmt = NewBuilder().Type(nodeType).Build()
	default:
		stmt = NewBuilder().Raw(q).Type(nodeType).Build()
	}
	return repository.BackendQuery{
		Language:  repository.LanguageAFTS,
		Statement: stmt,
		MaxItems:  r.MaxResults,
	}, nil
}

func translateFiltered(r Filtered) (repository.BackendQuery, error) {
	q := strings.TrimSpace(r.Query)
	if q == "" {
		return repository.BackendQuery{}, faults.EmptyQuery("query")
	}

	after, err := normalizeDate("created_after", r.CreatedAfter)
	if err != nil {
		return repository.BackendQuery{}, err
	}
	before, err := normalizeDate("created_before", r.CreatedBefore)
	if err != nil {
		return repository.BackendQuery{}, err
	}
	if after != "" && before != "" {
		a, _ := property.ParseDate(after)
		b, _ := property.ParseDate(before)
		if a.After(b) {
			return repository.BackendQuery{}, faults.Validation("created_after %s is later than created_before %s", after, before)
		}
	}

	sortBy, err := filteredSort(r.SortField, r.SortOrder)
	if err != nil {
		return repository.BackendQuery{}, err
	}

	b := NewBuilder().Raw(q).Type(r.ContentType)
	if after != "" || before != "" {
		b.Range("cm:created", after, before)
	}
	return repository.BackendQuery{
		Language:  repository.LanguageAFTS,
		Statement: b.Build(),
		Sort:      []repository.SortField{sortBy},
		MaxItems:  r.MaxResults,
	}, nil
}

func normalizeDate(field, raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", nil
	}
	if _, ok := property.ParseDate(raw); !ok {
		return "", faults.Validation("%s must be YYYY-MM-DD or RFC3339, got %q", field, raw)
	}
	return raw, nil
}

func filteredSort(field, order string) (repository.SortField, error) {
	field = strings.TrimSpace(field)
	ascending := false
	switch strings.ToLower(strings.TrimSpace(order)) {
	case "", "desc", "descending":
	case "asc", "ascending":
		ascending = true
	default:
		return repository.SortField{}, faults.Validation("sort_order must be asc or desc, got %q", order)
	}
	if field == "" || strings.EqualFold(field, "score") || strings.EqualFold(field, "relevance") {
		return repository.SortField{Field: repository.ScoreSort.Field, Ascending: ascending}, nil
	}
	if _, _, err := property.SplitName(field); err != nil {
		return repository.SortField{}, faults.Validation("sort_field %q must be a prefix:local property or score", field)
	}
	return repository.SortField{Field: field, Ascending: ascending}, nil
}

func translateByProperty(r ByProperty) (repository.BackendQuery, error) {
	name := strings.TrimSpace(r.PropertyName)
	if name == "" {
		return repository.BackendQuery{}, faults.EmptyQuery("property_name")
	}
	value := strings.TrimSpace(r.PropertyValue)
	if value == "" {
		return repository.BackendQuery{}, faults.EmptyQuery("property_value")
	}
	t := property.InferType(name, value)
	if err := property.Validate(name, r.Comparison, t); err != nil {
		return repository.BackendQuery{}, err
	}
	if r.Comparison.Ordering() {
		if err := property.CheckLiteral(t, value); err != nil {
			return repository.BackendQuery{}, err
		}
	}

	v := Escape(value)
	var clause string
	switch r.Comparison {
	case property.Equals:
		clause = fmt.Sprintf(`=%s:"%s"`, name, v)
	case property.Contains:
		clause = fmt.Sprintf(`%s:"*%s*"`, name, v)
	case property.StartsWith:
		clause = fmt.Sprintf(`%s:"%s*"`, name, v)
	case property.EndsWith:
		clause = fmt.Sprintf(`%s:"*%s"`, name, v)
	case property.GreaterThan:
		clause = fmt.Sprintf(`%s:<"%s" TO MAX]`, name, v)
	case property.LessThan:
		clause = fmt.Sprintf(`%s:[MIN TO "%s">`, name, v)
	}
	return repository.BackendQuery{
		Language:  repository.LanguageAFTS,
		Statement: clause,
		MaxItems:  r.MaxResults,
	}, nil
}

func translateStructured(r Structured) (repository.BackendQuery, error) {
	var stmt string
	switch src := r.Source.(type) {
	case RawStatement:
		stmt = strings.TrimSpace(string(src))
		if stmt == "" {
			return repository.BackendQuery{}, faults.EmptyQuery("cmis_query")
		}
		if !strings.HasPrefix(strings.ToUpper(stmt), "SELECT") {
			return repository.BackendQuery{}, faults.Validation("cmis_query must start with SELECT")
		}
	case Preset:
		name := strings.TrimSpace(string(src))
		if name == "" {
			return repository.BackendQuery{}, faults.EmptyQuery("preset")
		}
		s, ok := PresetStatement(name)
		if !ok {
			return repository.BackendQuery{}, faults.UnknownPreset(name, PresetNames())
		}
		stmt = s
	case nil:
		return repository.BackendQuery{}, faults.Validation("exactly one of cmis_query or preset is required")
	default:
		return repository.BackendQuery{}, faults.Validation("unsupported statement source %T", src)
	}
	return repository.BackendQuery{
		Language:  repository.LanguageCMIS,
		Statement: stmt,
		MaxItems:  r.MaxResults,
	}, nil
}
