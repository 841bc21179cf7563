package cart

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cartOf(lines ...Line) Cart { return FromLines(lines) }

func TestMerge_EmptySides(t *testing.T) {
	x := cartOf(
		Line{ItemID: "A", Title: "Widget", Price: decimal.NewFromInt(10), Quantity: 2},
		Line{ItemID: "B", Title: "Gadget", Price: decimal.NewFromInt(5), Quantity: 1},
	)

	assert.Equal(t, x.Lines(), Merge(x, Cart{}).Lines())
	assert.Equal(t, x.Lines(), Merge(Cart{}, x).Lines())
	assert.True(t, Merge(Cart{}, Cart{}).IsEmpty())
}

func TestMerge_SumsAndKeepsServerMetadata(t *testing.T) {
	server := cartOf(
		Line{ItemID: "A", Title: "Widget", Price: decimal.NewFromInt(12), ImageURL: "/srv.png", Quantity: 1},
		Line{ItemID: "B", Title: "Gadget", Price: decimal.NewFromInt(5), Quantity: 1},
	)
	local := cartOf(
		Line{ItemID: "A", Title: "Old widget", Price: decimal.NewFromInt(10), ImageURL: "/old.png", Quantity: 2},
		Line{ItemID: "C", Title: "Gizmo", Price: decimal.NewFromInt(3), Quantity: 4},
	)

	merged := Merge(server, local)
	lines := merged.Lines()
	require.Len(t, lines, 3)

	assert.Equal(t, "A", lines[0].ItemID)
	assert.Equal(t, 3, lines[0].Quantity)
	assert.Equal(t, "Widget", lines[0].Title)
	assert.True(t, decimal.NewFromInt(12).Equal(lines[0].Price))
	assert.Equal(t, "/srv.png", lines[0].ImageURL)

	assert.Equal(t, "B", lines[1].ItemID)
	assert.Equal(t, 1, lines[1].Quantity)

	assert.Equal(t, "C", lines[2].ItemID)
	assert.Equal(t, 4, lines[2].Quantity)
	assert.Equal(t, "Gizmo", lines[2].Title)
}

func TestMerge_QuantitiesAreSums(t *testing.T) {
	server := cartOf(Line{ItemID: "A", Quantity: 3}, Line{ItemID: "B", Quantity: 2})
	local := cartOf(Line{ItemID: "B", Quantity: 5}, Line{ItemID: "C", Quantity: 1})

	merged := Merge(server, local)
	for _, id := range []string{"A", "B", "C"} {
		s, _ := server.Line(id)
		l, _ := local.Line(id)
		m, ok := merged.Line(id)
		require.True(t, ok, id)
		assert.Equal(t, s.Quantity+l.Quantity, m.Quantity, id)
	}
	assert.Equal(t, server.TotalItems()+local.TotalItems(), merged.TotalItems())
}

func TestMerge_DoesNotModifyInputs(t *testing.T) {
	server := cartOf(Line{ItemID: "A", Quantity: 1})
	local := cartOf(Line{ItemID: "A", Quantity: 2}, Line{ItemID: "B", Quantity: 1})

	merged := Merge(server, local)
	merged.SetQuantity("A", 50)

	s, _ := server.Line("A")
	l, _ := local.Line("A")
	assert.Equal(t, 1, s.Quantity)
	assert.Equal(t, 2, l.Quantity)
	assert.False(t, server.Contains("B"))
}
