// ABOUTME: Query evaluation for the embedded repository
// ABOUTME: Token clauses, TYPE filters, property ranges and a CMIS SELECT subset

package repository

import (
	"cmp"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/nainya/contentmcp/pkg/property"
)

type (
	nodeMatcher func(*Node) bool
	nodeOrder   func(a, b *Node) bool
)

const dayLayout = "2006-01-02"

var (
	rangeClause  = regexp.MustCompile(`=?([\w.-]+:[\w.-]+):([\[<])\s*(MIN|"(?:[^"\\]|\\.)*")\s+TO\s+(MAX|"(?:[^"\\]|\\.)*")\s*([\]>])`)
	typeClause   = regexp.MustCompile(`TYPE:"([^"]+)"`)
	quotedClause = regexp.MustCompile(`(=?)(?:([\w.-]+:[\w.-]+):)?"((?:[^"\\]|\\.)*)"`)
	afts         = map[string]bool{"AND": true, "OR": true, "NOT": true}

	cmisSelect   = regexp.MustCompile(`(?is)^\s*SELECT\s+.+?\s+FROM\s+([\w:]+)(?:\s+WHERE\s+(.+?))?(?:\s+ORDER\s+BY\s+(.+?))?\s*;?\s*$`)
	cmisAnd      = regexp.MustCompile(`(?i)\s+AND\s+`)
	cmisCompare  = regexp.MustCompile(`(?i)^([\w:]+)\s*(=|<>|!=|>=|<=|>|<)\s*((?:TIMESTAMP\s+)?'(?:[^']|'')*'|-?[\d.]+)$`)
	cmisIn       = regexp.MustCompile(`(?i)^([\w:]+)\s+(NOT\s+)?IN\s*\((.+)\)$`)
	cmisLike     = regexp.MustCompile(`(?i)^([\w:]+)\s+LIKE\s+'((?:[^']|'')*)'$`)
	cmisContains = regexp.MustCompile(`(?i)^CONTAINS\s*\(\s*'((?:[^']|'')*)'\s*\)$`)
	cmisLiteral  = regexp.MustCompile(`'((?:[^']|'')*)'`)
)

func compileQuery(q BackendQuery) (nodeMatcher, nodeOrder, error) {
	if q.Language == LanguageCMIS {
		return compileCMIS(q.Statement)
	}
	return compileTokens(q.Statement), sortOrder(q.Sort), nil
}

// ========== Token queries ==========

type rangeFilter struct {
	name           string
	lo, hi         string // empty is unbounded
	loIncl, hiIncl bool
}

func (r rangeFilter) matches(n *Node) bool {
	v, ok := nodeValue(n, r.name)
	if !ok {
		return false
	}
	if r.lo != "" {
		c, ok := compareValue(v, r.lo)
		if !ok || c < 0 || (c == 0 && !r.loIncl) {
			return false
		}
	}
	if r.hi != "" {
		hi, incl := r.hi, r.hiIncl
		// an inclusive day bound covers the whole day
		if day, err := time.Parse(dayLayout, hi); err == nil && incl {
			hi, incl = day.AddDate(0, 0, 1).Format(dayLayout), false
		}
		c, ok := compareValue(v, hi)
		if !ok || c > 0 || (c == 0 && !incl) {
			return false
		}
	}
	return true
}

type propertyFilter struct {
	name  string
	exact bool
	value string
	glob  *regexp.Regexp // set when value carries * wildcards
}

func (p propertyFilter) matches(n *Node) bool {
	v, ok := nodeValue(n, p.name)
	if !ok {
		return false
	}
	if p.glob != nil {
		return p.glob.MatchString(stringValue(v))
	}
	switch x := v.(type) {
	case string:
		if p.exact {
			return strings.EqualFold(x, p.value)
		}
		return strings.Contains(strings.ToLower(x), strings.ToLower(p.value))
	case time.Time:
		if _, err := time.Parse(dayLayout, p.value); err == nil {
			return x.UTC().Format(dayLayout) == p.value
		}
	}
	c, ok := compareValue(v, p.value)
	return ok && c == 0
}

// compileTokens evaluates the token-query subset the translator emits:
// bare and quoted terms must all appear in the name, title or description,
// prefixed quoted clauses compare one property, TYPE filters by node type and
// range clauses bound a property.
func compileTokens(stmt string) nodeMatcher {
	var ranges []rangeFilter
	for _, rm := range rangeClause.FindAllStringSubmatch(stmt, -1) {
		ranges = append(ranges, rangeFilter{
			name:   rm[1],
			lo:     unquoteToken(rm[3]),
			hi:     unquoteToken(rm[4]),
			loIncl: rm[2] == "[",
			hiIncl: rm[5] == "]",
		})
	}
	stmt = rangeClause.ReplaceAllString(stmt, " ")

	nodeType := ""
	if tm := typeClause.FindStringSubmatch(stmt); tm != nil {
		nodeType = tm[1]
		stmt = typeClause.ReplaceAllString(stmt, " ")
	}

	var (
		terms []string
		props []propertyFilter
	)
	for _, qm := range quotedClause.FindAllStringSubmatch(stmt, -1) {
		value := unescapeToken(qm[3])
		if qm[2] == "" {
			terms = append(terms, value)
			continue
		}
		pf := propertyFilter{name: qm[2], exact: qm[1] == "=", value: value}
		if strings.Contains(value, "*") {
			pf.glob = wildcardPattern(value, "*", "")
		}
		props = append(props, pf)
	}
	stmt = quotedClause.ReplaceAllString(stmt, " ")
	for _, word := range strings.FieldsFunc(stmt, func(r rune) bool {
		return r == ' ' || r == '(' || r == ')'
	}) {
		if !afts[word] {
			terms = append(terms, word)
		}
	}

	return func(n *Node) bool {
		if nodeType != "" && n.NodeType != nodeType {
			return false
		}
		for _, r := range ranges {
			if !r.matches(n) {
				return false
			}
		}
		for _, p := range props {
			if !p.matches(n) {
				return false
			}
		}
		return containsTerms(n, terms)
	}
}

func containsTerms(n *Node, terms []string) bool {
	haystack := strings.ToLower(strings.Join([]string{
		n.Name, n.StringProperty(PropTitle), n.StringProperty(PropDescription),
	}, " "))
	for _, term := range terms {
		term = strings.ToLower(strings.ReplaceAll(term, "*", ""))
		if term != "" && !strings.Contains(haystack, term) {
			return false
		}
	}
	return true
}

func unquoteToken(s string) string {
	if s == "MIN" || s == "MAX" {
		return ""
	}
	return unescapeToken(strings.TrimSuffix(strings.TrimPrefix(s, `"`), `"`))
}

func unescapeToken(s string) string {
	return strings.NewReplacer(`\"`, `"`, `\\`, `\`).Replace(s)
}

// ========== CMIS ==========

// compileCMIS evaluates SELECT ... FROM cmis:document|cmis:folder with an
// AND-joined WHERE of comparisons, IN, LIKE and CONTAINS, and ORDER BY.
// Other statements fail with ErrInvalidRequest.
func compileCMIS(stmt string) (nodeMatcher, nodeOrder, error) {
	sm := cmisSelect.FindStringSubmatch(stmt)
	if sm == nil {
		return nil, nil, fmt.Errorf("unsupported CMIS statement %q: %w", stmt, ErrInvalidRequest)
	}

	var want func(*Node) bool
	switch strings.ToLower(sm[1]) {
	case "cmis:document":
		want = func(n *Node) bool { return n.IsFile }
	case "cmis:folder":
		want = func(n *Node) bool { return n.IsFolder }
	default:
		return nil, nil, fmt.Errorf("unsupported CMIS type %s: %w", sm[1], ErrInvalidRequest)
	}

	preds := []nodeMatcher{want}
	if where := strings.TrimSpace(sm[2]); where != "" {
		for _, raw := range cmisAnd.Split(where, -1) {
			p, err := cmisPredicate(strings.TrimSpace(raw))
			if err != nil {
				return nil, nil, err
			}
			preds = append(preds, p)
		}
	}

	var sortBy []SortField
	if order := strings.TrimSpace(sm[3]); order != "" {
		for _, part := range strings.Split(order, ",") {
			fields := strings.Fields(part)
			if len(fields) == 0 || len(fields) > 2 {
				return nil, nil, fmt.Errorf("unsupported ORDER BY %q: %w", part, ErrInvalidRequest)
			}
			sf := SortField{Field: fields[0], Ascending: true}
			if len(fields) == 2 {
				switch strings.ToUpper(fields[1]) {
				case "ASC":
				case "DESC":
					sf.Ascending = false
				default:
					return nil, nil, fmt.Errorf("unsupported ORDER BY %q: %w", part, ErrInvalidRequest)
				}
			}
			sortBy = append(sortBy, sf)
		}
	}

	match := func(n *Node) bool {
		for _, p := range preds {
			if !p(n) {
				return false
			}
		}
		return true
	}
	return match, sortOrder(sortBy), nil
}

func cmisPredicate(raw string) (nodeMatcher, error) {
	if m := cmisContains.FindStringSubmatch(raw); m != nil {
		terms := strings.Fields(cmisUnquote(m[1]))
		return func(n *Node) bool { return containsTerms(n, terms) }, nil
	}
	if m := cmisLike.FindStringSubmatch(raw); m != nil {
		name, pattern := m[1], wildcardPattern(cmisUnquote(m[2]), "%", "_")
		return func(n *Node) bool {
			v, ok := nodeValue(n, name)
			return ok && pattern.MatchString(stringValue(v))
		}, nil
	}
	if m := cmisIn.FindStringSubmatch(raw); m != nil {
		name, negate := m[1], m[2] != ""
		var values []string
		for _, lm := range cmisLiteral.FindAllStringSubmatch(m[3], -1) {
			values = append(values, cmisUnquote(lm[1]))
		}
		if len(values) == 0 {
			return nil, fmt.Errorf("unsupported IN list %q: %w", raw, ErrInvalidRequest)
		}
		return func(n *Node) bool {
			v, ok := nodeValue(n, name)
			if !ok {
				return false
			}
			for _, want := range values {
				if c, ok := compareValue(v, want); ok && c == 0 {
					return !negate
				}
			}
			return negate
		}, nil
	}
	if m := cmisCompare.FindStringSubmatch(raw); m != nil {
		name, op, lit := m[1], m[2], m[3]
		if lm := cmisLiteral.FindStringSubmatch(lit); lm != nil {
			lit = cmisUnquote(lm[1])
		}
		return func(n *Node) bool {
			v, ok := nodeValue(n, name)
			if !ok {
				return false
			}
			c, ok := compareValue(v, lit)
			if !ok {
				return false
			}
			switch op {
			case "=":
				return c == 0
			case "<>", "!=":
				return c != 0
			case ">":
				return c > 0
			case ">=":
				return c >= 0
			case "<":
				return c < 0
			default:
				return c <= 0
			}
		}, nil
	}
	return nil, fmt.Errorf("unsupported CMIS predicate %q: %w", raw, ErrInvalidRequest)
}

func cmisUnquote(s string) string {
	return strings.ReplaceAll(s, "''", "'")
}

// ========== Values ==========

// nodeValue resolves a token-query or CMIS property name on a node
func nodeValue(n *Node, name string) (any, bool) {
	switch name {
	case "cm:name", "cmis:name":
		return n.Name, true
	case "cm:created", "cmis:creationDate":
		return n.CreatedAt, true
	case "cm:modified", "cmis:lastModificationDate":
		return n.ModifiedAt, true
	case "cm:creator", "cmis:createdBy":
		return n.CreatedBy, true
	case "cm:modifier", "cmis:lastModifiedBy":
		return n.ModifiedBy, true
	case "cmis:objectId":
		return n.ID.String(), true
	case "cm:content.size", "cmis:contentStreamLength":
		return n.SizeBytes, n.IsFile
	case "cm:content.mimetype", "cmis:contentStreamMimeType":
		return n.MimeType, n.IsFile
	}
	v, ok := n.Properties[name]
	return v, ok && v != nil
}

// compareValue orders v against a literal. Dates and numbers compare by
// value, strings case-insensitively. ok is false when the literal cannot be
// read as v's type.
func compareValue(v any, lit string) (int, bool) {
	switch x := v.(type) {
	case time.Time:
		t, ok := property.ParseDate(lit)
		if !ok {
			return 0, false
		}
		return x.Compare(t), true
	case int:
		return compareNumber(float64(x), lit)
	case int64:
		return compareNumber(float64(x), lit)
	case float64:
		return compareNumber(x, lit)
	case string:
		if t, ok := property.ParseDate(x); ok {
			if u, ok := property.ParseDate(lit); ok {
				return t.Compare(u), true
			}
		}
		if f, err := strconv.ParseFloat(x, 64); err == nil {
			if c, ok := compareNumber(f, lit); ok {
				return c, true
			}
		}
		return strings.Compare(strings.ToLower(x), strings.ToLower(lit)), true
	default:
		return compareValue(stringValue(v), lit)
	}
}

func compareNumber(x float64, lit string) (int, bool) {
	f, err := strconv.ParseFloat(strings.TrimSpace(lit), 64)
	if err != nil {
		return 0, false
	}
	return cmp.Compare(x, f), true
}

func stringValue(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case time.Time:
		return x.UTC().Format(time.RFC3339)
	default:
		return fmt.Sprint(v)
	}
}

// wildcardPattern compiles a case-insensitive whole-value pattern where many
// matches any run and one (when set) matches a single character.
func wildcardPattern(pattern, many, one string) *regexp.Regexp {
	var b strings.Builder
	b.WriteString("(?is)^")
	for _, r := range pattern {
		switch s := string(r); {
		case s == many:
			b.WriteString(".*")
		case one != "" && s == one:
			b.WriteString(".")
		default:
			b.WriteString(regexp.QuoteMeta(s))
		}
	}
	b.WriteString("$")
	return regexp.MustCompile(b.String())
}

// ========== Ordering ==========

// sortOrder orders by the given fields, then newest first. Relevance has no
// meaning here and is skipped.
func sortOrder(fields []SortField) nodeOrder {
	return func(a, b *Node) bool {
		for _, f := range fields {
			if f.Field == ScoreSort.Field {
				continue
			}
			c := compareNodes(a, b, f.Field)
			if c == 0 {
				continue
			}
			if f.Ascending {
				return c < 0
			}
			return c > 0
		}
		if !a.ModifiedAt.Equal(b.ModifiedAt) {
			return a.ModifiedAt.After(b.ModifiedAt)
		}
		return a.ID < b.ID
	}
}

func compareNodes(a, b *Node, field string) int {
	va, okA := nodeValue(a, field)
	vb, okB := nodeValue(b, field)
	switch {
	case !okA && !okB:
		return 0
	case !okA:
		return -1
	case !okB:
		return 1
	}
	switch x := va.(type) {
	case time.Time:
		if y, ok := vb.(time.Time); ok {
			return x.Compare(y)
		}
	case int64:
		if y, ok := vb.(int64); ok {
			return cmp.Compare(x, y)
		}
	}
	c, _ := compareValue(va, stringValue(vb))
	return c
}
