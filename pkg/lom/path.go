package lom

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/grovetools/lombridge/errors"
)

var (
	liveSetAlias  = regexp.MustCompile(`^live_set\b`)
	spacedIndex   = regexp.MustCompile(`([a-zA-Z_]+)\s+(\d+)`)
	segmentSyntax = regexp.MustCompile(`^([A-Za-z_][A-Za-z0-9_]*)(?:\[(\d+)\])?$`)
	whitespace    = regexp.MustCompile(`\s+`)
)

// RootKind identifies which root object a path starts from.
type RootKind string

const (
	RootSession     RootKind = "song"
	RootApplication RootKind = "app"
	RootBrowser     RootKind = "browser"
)

// Roots are the entry points into the host graph.
type Roots struct {
	Session     Node
	Application Node
	Browser     Node
}

// Segment is one step of a path: a name and an optional index.
type Segment struct {
	Name    string
	Index   int
	Indexed bool
}

func (s Segment) String() string {
	if s.Indexed {
		return fmt.Sprintf("%s[%d]", s.Name, s.Index)
	}
	return s.Name
}

// Target is a resolved path: the parent of the final attribute together
// with that attribute, still unapplied.
type Target struct {
	// Path is the canonical form, always starting with its root keyword.
	Path string
	Root RootKind
	// Parent holds the final attribute. For a path with no segments it is
	// the root itself.
	Parent Node
	Final  *Segment
}

// IsRoot reports whether the path named only a root.
func (t Target) IsRoot() bool { return t.Final == nil }

// Normalize applies the tolerant path rewrites: a leading live_set becomes
// song, "name 3" becomes "name[3]", and any remaining whitespace becomes a dot.
func Normalize(path string) string {
	p := strings.TrimSpace(path)
	p = liveSetAlias.ReplaceAllString(p, "song")
	p = spacedIndex.ReplaceAllString(p, "${1}[${2}]")
	p = whitespace.ReplaceAllString(p, ".")
	return p
}

// ParsePath normalizes a path and splits it into segments, dropping empty ones.
func ParsePath(path string) ([]Segment, error) {
	normalized := Normalize(path)
	var segments []Segment
	for _, part := range strings.Split(normalized, ".") {
		if part == "" {
			continue
		}
		m := segmentSyntax.FindStringSubmatch(part)
		if m == nil {
			return nil, errors.Resolution(path, part, fmt.Errorf("invalid segment syntax"))
		}
		seg := Segment{Name: m[1]}
		if m[2] != "" {
			idx, err := strconv.Atoi(m[2])
			if err != nil {
				return nil, errors.Resolution(path, part, err)
			}
			seg.Index, seg.Indexed = idx, true
		}
		segments = append(segments, seg)
	}
	return segments, nil
}

// Resolver walks path expressions against a fixed set of roots.
type Resolver struct {
	roots Roots
}

// NewResolver returns a Resolver over roots.
func NewResolver(roots Roots) *Resolver {
	return &Resolver{roots: roots}
}

// Resolve walks every segment but the last and returns the parent of the
// final attribute. Nodes are looked up fresh on every call.
func (r *Resolver) Resolve(path string) (Target, error) {
	segments, err := ParsePath(path)
	if err != nil {
		return Target{}, err
	}

	kind, rest := selectRoot(segments)
	var node Node
	switch kind {
	case RootBrowser:
		node = r.roots.Browser
	case RootApplication:
		node = r.roots.Application
	default:
		node = r.roots.Session
	}
	if node == nil {
		return Target{}, errors.Resolution(path, string(kind), fmt.Errorf("root not available"))
	}

	target := Target{Root: kind, Path: canonical(kind, rest)}
	if len(rest) == 0 {
		target.Parent = node
		return target, nil
	}

	for _, seg := range rest[:len(rest)-1] {
		var next interface{}
		if seg.Indexed {
			next, err = node.IndexInto(seg.Name, seg.Index)
		} else {
			next, err = node.GetAttribute(seg.Name)
		}
		if err != nil {
			return Target{}, errors.Resolution(target.Path, seg.String(), err)
		}
		child, ok := next.(Node)
		if !ok {
			return Target{}, errors.Resolution(target.Path, seg.String(),
				fmt.Errorf("%s is a %T, not an object", seg, next))
		}
		node = child
	}

	last := rest[len(rest)-1]
	target.Parent = node
	target.Final = &last
	return target, nil
}

// selectRoot applies root precedence: browser, then application, then session.
func selectRoot(segments []Segment) (RootKind, []Segment) {
	if len(segments) == 0 {
		return RootSession, segments
	}
	head := segments[0]
	if head.Indexed {
		return RootSession, segments
	}
	switch head.Name {
	case "app", "application":
		if len(segments) > 1 && segments[1].Name == "browser" && !segments[1].Indexed {
			return RootBrowser, segments[2:]
		}
		return RootApplication, segments[1:]
	case "browser":
		return RootBrowser, segments[1:]
	case "song":
		return RootSession, segments[1:]
	}
	return RootSession, segments
}

func canonical(kind RootKind, segments []Segment) string {
	parts := make([]string, 0, len(segments)+1)
	parts = append(parts, string(kind))
	for _, s := range segments {
		parts = append(parts, s.String())
	}
	return strings.Join(parts, ".")
}
