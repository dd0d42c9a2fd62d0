package document

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sample() *Node {
	tariff := NewNode(Tariff).Add(Field{Name: "tariffNo", Value: "8517620090", Width: 10})
	line := NewNode(Line).Add(Field{Name: "partNo", Value: "P-1", Width: 40}).Append(tariff)
	invoice := NewNode(Invoice).Add(Field{Name: "invoiceNo", Value: "INV1"}).Append(line)
	return NewNode(Entry).Add(Field{Name: "custNo", Value: "C1"}).Append(NewNode(Party), invoice)
}

func TestWalkOrder(t *testing.T) {
	var names []string
	var depths []int
	sample().Walk(func(n *Node, depth int) {
		names = append(names, n.Name)
		depths = append(depths, depth)
	})
	assert.Equal(t, []string{Entry, Party, Invoice, Line, Tariff}, names)
	assert.Equal(t, []int{0, 1, 1, 2, 3}, depths)
}

func TestFindAndField(t *testing.T) {
	doc := sample()

	lines := doc.Find(Line)
	require.Len(t, lines, 1)
	v, ok := lines[0].Field("partNo")
	assert.True(t, ok)
	assert.Equal(t, "P-1", v)

	_, ok = lines[0].Field("missing")
	assert.False(t, ok)

	assert.Empty(t, doc.Find(PGA))
}

func TestCount(t *testing.T) {
	counts := sample().Count()
	assert.Equal(t, 1, counts[Entry])
	assert.Equal(t, 1, counts[Tariff])
	assert.Equal(t, 0, counts[PGA])
}
