package normalize

import (
	"fmt"
	"strings"
)

// Step is one element of a selector path: a tag name and an optional
// attribute equality filter.
type Step struct {
	Tag       string
	Attr      string
	Value     string
	HasFilter bool
}

func (s Step) matches(n *Node) bool {
	if !n.IsElement() || n.Name != s.Tag {
		return false
	}
	if !s.HasFilter {
		return true
	}
	v, ok := n.Attr(s.Attr)
	return ok && v == s.Value
}

// Selector is a sequence of descendant steps, e.g. "JournalIssue Volume" or
// "ArticleId[IdType=doi]". Each step may match at any depth below the
// previous one.
type Selector []Step

// String renders the selector in the syntax accepted by ParseSelector.
func (s Selector) String() string {
	parts := make([]string, len(s))
	for i, st := range s {
		if st.HasFilter {
			parts[i] = fmt.Sprintf("%s[%s=%s]", st.Tag, st.Attr, st.Value)
		} else {
			parts[i] = st.Tag
		}
	}
	return strings.Join(parts, " ")
}

// ParseSelector parses a space separated tag path. A step may carry one
// attribute filter in the form Tag[Attr=value]; the value may be quoted.
func ParseSelector(path string) (Selector, error) {
	fields := strings.Fields(path)
	if len(fields) == 0 {
		return nil, fmt.Errorf("empty selector")
	}

	sel := make(Selector, 0, len(fields))
	for _, f := range fields {
		step, err := parseStep(f)
		if err != nil {
			return nil, fmt.Errorf("selector %q: %w", path, err)
		}
		sel = append(sel, step)
	}
	return sel, nil
}

// MustSelector is like ParseSelector but panics on error. It is meant for
// selectors declared as package variables.
func MustSelector(path string) Selector {
	sel, err := ParseSelector(path)
	if err != nil {
		panic(err)
	}
	return sel
}

func parseStep(s string) (Step, error) {
	open := strings.IndexByte(s, '[')
	if open < 0 {
		if strings.ContainsAny(s, "]=") {
			return Step{}, fmt.Errorf("invalid step %q", s)
		}
		return Step{Tag: s}, nil
	}
	if open == 0 || !strings.HasSuffix(s, "]") {
		return Step{}, fmt.Errorf("invalid step %q", s)
	}

	filter := s[open+1 : len(s)-1]
	attr, value, ok := strings.Cut(filter, "=")
	if !ok || attr == "" {
		return Step{}, fmt.Errorf("invalid attribute filter %q", filter)
	}
	value = strings.Trim(value, `"'`)

	return Step{Tag: s[:open], Attr: attr, Value: value, HasFilter: true}, nil
}

// First returns the first descendant of n, in document order, matched by sel.
// It returns nil when nothing matches.
func (n *Node) First(sel Selector) *Node {
	var found *Node
	n.walk(sel, func(m *Node) bool {
		found = m
		return false
	})
	return found
}

// All returns every descendant of n matched by sel in document order.
func (n *Node) All(sel Selector) []*Node {
	var out []*Node
	n.walk(sel, func(m *Node) bool {
		out = append(out, m)
		return true
	})
	return out
}

func (n *Node) walk(sel Selector, visit func(*Node) bool) {
	if n == nil || len(sel) == 0 {
		return
	}
	ancestors := make([]*Node, 0, 16)
	var rec func(*Node) bool
	rec = func(cur *Node) bool {
		for _, c := range cur.Children {
			if !c.IsElement() {
				continue
			}
			if sel[len(sel)-1].matches(c) && ancestorsMatch(ancestors, sel[:len(sel)-1]) {
				if !visit(c) {
					return false
				}
			}
			ancestors = append(ancestors, c)
			cont := rec(c)
			ancestors = ancestors[:len(ancestors)-1]
			if !cont {
				return false
			}
		}
		return true
	}
	rec(n)
}

// ancestorsMatch reports whether the remaining steps match a subsequence of
// the ancestor chain, nearest ancestor last.
func ancestorsMatch(ancestors []*Node, steps Selector) bool {
	i := len(ancestors) - 1
	for j := len(steps) - 1; j >= 0; j-- {
		for i >= 0 && !steps[j].matches(ancestors[i]) {
			i--
		}
		if i < 0 {
			return false
		}
		i--
	}
	return true
}
