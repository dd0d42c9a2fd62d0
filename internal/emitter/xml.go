package emitter

import (
	"bytes"
	"fmt"

	"github.com/ginjaninja78/ci-load-engine/internal/document"
)

// XMLOptions contains options for XML rendering.
type XMLOptions struct {
	// Indent is the string used for indentation.
	// Default: "  " (two spaces)
	Indent string

	// IncludeXMLDeclaration determines whether to include the XML declaration.
	// Default: true
	IncludeXMLDeclaration bool

	// RootElement wraps the entry node.
	// Default: "ciLoad"
	RootElement string
}

// DefaultXMLOptions returns the default rendering options.
func DefaultXMLOptions() XMLOptions {
	return XMLOptions{
		Indent:                "  ",
		IncludeXMLDeclaration: true,
		RootElement:           "ciLoad",
	}
}

// XML renders nested elements.
//
// STRUCTURE:
//
//	<ciLoad>
//	  <entry>
//	    <custNo>ACME01</custNo>
//	    ...
//	    <invoice>
//	      <invoiceNo>INV-1</invoiceNo>
//	      <line>...</line>
//	    </invoice>
//	  </entry>
//	</ciLoad>
type XML struct {
	opts XMLOptions
}

func NewXML(opts XMLOptions) *XML {
	return &XML{opts: opts}
}

func (x *XML) Name() string { return "xml" }

// Emit renders the document.
func (x *XML) Emit(root *document.Node) ([]byte, error) {
	if root == nil {
		return nil, fmt.Errorf("nothing to emit")
	}

	var buffer bytes.Buffer
	if x.opts.IncludeXMLDeclaration {
		buffer.WriteString("<?xml version=\"1.0\" encoding=\"UTF-8\"?>\n")
	}

	level := 0
	if x.opts.RootElement != "" {
		buffer.WriteString("<" + x.opts.RootElement + ">\n")
		level = 1
	}

	x.writeNode(&buffer, root, level)

	if x.opts.RootElement != "" {
		buffer.WriteString("</" + x.opts.RootElement + ">\n")
	}
	return buffer.Bytes(), nil
}

// writeNode writes a node, its fields and its children with indentation.
func (x *XML) writeNode(buffer *bytes.Buffer, node *document.Node, level int) {
	x.indent(buffer, level)
	if len(node.Fields) == 0 && len(node.Children) == 0 {
		buffer.WriteString("<" + node.Name + "/>\n")
		return
	}
	buffer.WriteString("<" + node.Name + ">\n")

	for _, f := range node.Fields {
		x.indent(buffer, level+1)
		if f.Value == "" {
			// Self-closing tag.
			buffer.WriteString("<" + f.Name + "/>\n")
			continue
		}
		buffer.WriteString("<" + f.Name + ">")
		buffer.WriteString(escapeXML(f.Value))
		buffer.WriteString("</" + f.Name + ">\n")
	}

	for _, child := range node.Children {
		x.writeNode(buffer, child, level+1)
	}

	x.indent(buffer, level)
	buffer.WriteString("</" + node.Name + ">\n")
}

func (x *XML) indent(buffer *bytes.Buffer, level int) {
	for i := 0; i < level; i++ {
		buffer.WriteString(x.opts.Indent)
	}
}

// escapeXML escapes special characters for XML.
func escapeXML(s string) string {
	var buffer bytes.Buffer

	for _, r := range s {
		switch r {
		case '&':
			buffer.WriteString("&amp;")
		case '<':
			buffer.WriteString("&lt;")
		case '>':
			buffer.WriteString("&gt;")
		case '"':
			buffer.WriteString("&quot;")
		case '\'':
			buffer.WriteString("&apos;")
		default:
			buffer.WriteRune(r)
		}
	}

	return buffer.String()
}
