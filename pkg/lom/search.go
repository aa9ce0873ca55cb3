package lom

import (
	"regexp"
	"sort"
	"strings"
)

// BrowserNode is an item of the host's media browser tree.
type BrowserNode interface {
	Name() string
	IsLoadable() bool
	Children() []BrowserNode
}

// FindLoadable searches roots, in priority order, for a loadable item named
// target. A case-insensitive exact match anywhere beats any substring match,
// regardless of root order. Within a pass the first hit in depth-first
// pre-order wins. It returns nil when nothing matches.
func FindLoadable(roots []BrowserNode, target string) BrowserNode {
	name := strings.ToLower(strings.TrimSpace(target))
	if name == "" {
		return nil
	}

	exact := func(n BrowserNode) bool { return strings.ToLower(n.Name()) == name }
	fuzzy := func(n BrowserNode) bool { return strings.Contains(strings.ToLower(n.Name()), name) }

	for _, match := range []func(BrowserNode) bool{exact, fuzzy} {
		for _, root := range roots {
			if found := walk(root, match); found != nil {
				return found
			}
		}
	}
	return nil
}

func walk(node BrowserNode, match func(BrowserNode) bool) BrowserNode {
	if node == nil {
		return nil
	}
	if node.IsLoadable() && match(node) {
		return node
	}
	for _, child := range node.Children() {
		if found := walk(child, match); found != nil {
			return found
		}
	}
	return nil
}

// NamePolicy rewrites a requested item name before searching.
type NamePolicy struct {
	stripWords []*regexp.Regexp
	aliases    map[string]string
}

// NewNamePolicy builds a policy. Strip words are removed as whole words,
// longest first; aliases map a cleaned name to a concrete item name.
func NewNamePolicy(stripWords []string, aliases map[string]string) *NamePolicy {
	words := append([]string(nil), stripWords...)
	sort.SliceStable(words, func(i, j int) bool { return len(words[i]) > len(words[j]) })

	p := &NamePolicy{aliases: make(map[string]string, len(aliases))}
	for _, w := range words {
		w = strings.ToLower(strings.TrimSpace(w))
		if w == "" {
			continue
		}
		pattern := `\b` + strings.ReplaceAll(regexp.QuoteMeta(w), " ", `\s+`) + `\b`
		p.stripWords = append(p.stripWords, regexp.MustCompile(pattern))
	}
	for from, to := range aliases {
		p.aliases[normalizeSpaces(strings.ToLower(from))] = to
	}
	return p
}

// Apply lowercases name, strips qualifier words and resolves aliases.
func (p *NamePolicy) Apply(name string) string {
	cleaned := strings.ToLower(name)
	for _, re := range p.stripWords {
		cleaned = re.ReplaceAllString(cleaned, " ")
	}
	cleaned = normalizeSpaces(cleaned)
	if alias, ok := p.aliases[cleaned]; ok {
		return alias
	}
	return cleaned
}

func normalizeSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
