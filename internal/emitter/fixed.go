package emitter

import (
	"bytes"
	"fmt"

	"github.com/ginjaninja78/ci-load-engine/internal/document"
	"github.com/ginjaninja78/ci-load-engine/internal/fieldcodec"
)

// RecordTypes maps node names to the two-character record type code that
// starts each fixed-width record.
var RecordTypes = map[string]string{
	document.Entry:        "10",
	document.DateEvent:    "11",
	document.Container:    "12",
	document.BillOfLading: "13",
	document.Party:        "14",
	document.Invoice:      "20",
	document.Line:         "30",
	document.Tariff:       "40",
	document.PGA:          "50",
}

// recordTerminator ends every physical record.
const recordTerminator = "\r\n"

// Fixed renders one record per node in depth-first order. Text is
// left-justified and space padded, numbers are right-justified and zero
// padded, each to the field's contracted width.
type Fixed struct{}

func NewFixed() *Fixed {
	return &Fixed{}
}

func (f *Fixed) Name() string { return "fixed" }

// Emit renders the document.
func (f *Fixed) Emit(root *document.Node) ([]byte, error) {
	if root == nil {
		return nil, fmt.Errorf("nothing to emit")
	}

	var buffer bytes.Buffer
	var err error
	root.Walk(func(node *document.Node, _ int) {
		if err != nil {
			return
		}
		err = writeRecord(&buffer, node)
	})
	if err != nil {
		return nil, err
	}
	return buffer.Bytes(), nil
}

func writeRecord(buffer *bytes.Buffer, node *document.Node) error {
	code, ok := RecordTypes[node.Name]
	if !ok {
		return fmt.Errorf("no record type for node %q", node.Name)
	}
	buffer.WriteString(code)

	for _, field := range node.Fields {
		if len(field.Value) > field.Width {
			return fmt.Errorf("%s.%s: value %q exceeds width %d", node.Name, field.Name, field.Value, field.Width)
		}
		if field.Numeric {
			buffer.WriteString(fieldcodec.PadNumber(field.Value, field.Width))
		} else {
			buffer.WriteString(fieldcodec.PadRight(field.Value, field.Width))
		}
	}

	buffer.WriteString(recordTerminator)
	return nil
}
