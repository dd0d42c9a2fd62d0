package emitter

import (
	"strings"
	"testing"

	"github.com/ginjaninja78/ci-load-engine/internal/document"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleDoc() *document.Node {
	keys := []document.Field{
		{Name: "custNo", Value: "ACME01", Width: 10},
		{Name: "fileNo", Value: "F100", Width: 15},
	}
	tariff := &document.Node{Name: document.Tariff, Fields: append(append([]document.Field{}, keys...),
		document.Field{Name: "tariffSeq", Value: "1", Width: 3, Numeric: true},
		document.Field{Name: "tariffNo", Value: "8517620090", Width: 10},
	)}
	entry := &document.Node{Name: document.Entry, Fields: append(append([]document.Field{}, keys...),
		document.Field{Name: "vessel", Value: "A&B <C>", Width: 35},
		document.Field{Name: "weightGross", Value: "-25", Width: 6, Numeric: true},
		document.Field{Name: "voyage", Value: "", Width: 4},
	)}
	return entry.Append(tariff)
}

func TestLookup(t *testing.T) {
	d, err := Lookup("XML")
	require.NoError(t, err)
	assert.Equal(t, "xml", d.Name())

	d, err = Lookup(" fixed ")
	require.NoError(t, err)
	assert.Equal(t, "fixed", d.Name())

	_, err = Lookup("edifact")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fixed, xml")

	assert.Equal(t, []string{"fixed", "xml"}, Names())
}

func TestXML_Emit(t *testing.T) {
	out, err := NewXML(DefaultXMLOptions()).Emit(sampleDoc())
	require.NoError(t, err)

	want := strings.Join([]string{
		`<?xml version="1.0" encoding="UTF-8"?>`,
		`<ciLoad>`,
		`  <entry>`,
		`    <custNo>ACME01</custNo>`,
		`    <fileNo>F100</fileNo>`,
		`    <vessel>A&amp;B &lt;C&gt;</vessel>`,
		`    <weightGross>-25</weightGross>`,
		`    <voyage/>`,
		`    <tariff>`,
		`      <custNo>ACME01</custNo>`,
		`      <fileNo>F100</fileNo>`,
		`      <tariffSeq>1</tariffSeq>`,
		`      <tariffNo>8517620090</tariffNo>`,
		`    </tariff>`,
		`  </entry>`,
		`</ciLoad>`,
		``,
	}, "\n")
	assert.Equal(t, want, string(out))
}

func TestXML_OptionsAndEmptyNode(t *testing.T) {
	x := NewXML(XMLOptions{Indent: "\t"})
	out, err := x.Emit(document.NewNode(document.Entry))
	require.NoError(t, err)
	assert.Equal(t, "<entry/>\n", string(out))

	_, err = x.Emit(nil)
	assert.Error(t, err)
}

func TestFixed_Emit(t *testing.T) {
	out, err := NewFixed().Emit(sampleDoc())
	require.NoError(t, err)

	want := "10" + "ACME01    " + "F100           " + "A&B <C>                            " + "-00025" + "    " + "\r\n" +
		"40" + "ACME01    " + "F100           " + "001" + "8517620090" + "\r\n"
	assert.Equal(t, want, string(out))
}

func TestFixed_Errors(t *testing.T) {
	tooWide := document.NewNode(document.Entry).Add(document.Field{Name: "custNo", Value: "TOO-LONG", Width: 3})
	_, err := NewFixed().Emit(tooWide)
	assert.ErrorContains(t, err, "exceeds width")

	unknown := document.NewNode(document.Entry).Append(document.NewNode("mystery"))
	_, err = NewFixed().Emit(unknown)
	assert.ErrorContains(t, err, "no record type")

	_, err = NewFixed().Emit(nil)
	assert.Error(t, err)
}

func TestEmit_Deterministic(t *testing.T) {
	for _, name := range Names() {
		d, err := Lookup(name)
		require.NoError(t, err)
		a, err := d.Emit(sampleDoc())
		require.NoError(t, err)
		b, err := d.Emit(sampleDoc())
		require.NoError(t, err)
		assert.Equal(t, a, b, name)
	}
}
