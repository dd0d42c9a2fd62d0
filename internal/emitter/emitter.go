// =============================================================================
// CI Load Engine - Output Emitter
// =============================================================================
//
// A dialect renders an assembled document tree to bytes. Dialects change
// rendering only: every dialect sees the same nodes, fields and order.
//
//   xml   - nested elements, one per node, one child element per field
//   fixed - one fixed-width record per node, depth-first
//
// =============================================================================

package emitter

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ginjaninja78/ci-load-engine/internal/document"
)

// Dialect renders a document.
type Dialect interface {
	Name() string
	Emit(root *document.Node) ([]byte, error)
}

var dialects = map[string]func() Dialect{
	"xml":   func() Dialect { return NewXML(DefaultXMLOptions()) },
	"fixed": func() Dialect { return NewFixed() },
}

// Lookup returns the dialect registered under name.
func Lookup(name string) (Dialect, error) {
	factory, ok := dialects[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, fmt.Errorf("unknown output dialect %q (known: %s)", name, strings.Join(Names(), ", "))
	}
	return factory(), nil
}

// Names lists the registered dialects in sorted order.
func Names() []string {
	names := make([]string, 0, len(dialects))
	for name := range dialects {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
