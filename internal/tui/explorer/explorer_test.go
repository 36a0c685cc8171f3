package explorer

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anmolpansara/ChatWithDB/internal/database"
)

func shop() *database.SchemaDescription {
	return &database.SchemaDescription{
		Database: "shop",
		Tables: []database.Table{
			{Schema: "analytics", Name: "daily_sales", Kind: "view", Columns: []database.Column{{Name: "day", DataType: "date"}}},
			{Schema: "public", Name: "orders", Kind: "table", Columns: []database.Column{
				{Name: "id", DataType: "integer"},
				{Name: "total", DataType: "numeric"},
			}},
		},
	}
}

func down(m Model) Model {
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyDown})
	return m
}

func TestSetSchemaGroupsBySchema(t *testing.T) {
	m := New()
	m.SetSize(40, 20)
	m.SetSchema(shop())

	require.Len(t, m.tree.Children, 2)
	assert.Equal(t, "analytics", m.tree.Children[0].Name)
	assert.False(t, m.tree.Children[0].Expanded)
	assert.True(t, m.tree.Children[1].Expanded)

	view := m.View()
	assert.Contains(t, view, "orders")
	assert.NotContains(t, view, "daily_sales")
}

func TestExpandTableShowsColumns(t *testing.T) {
	m := New()
	m.SetSize(40, 20)
	m.SetFocused(true)
	m.SetSchema(shop())

	// shop, analytics, public, orders
	m = down(down(down(m)))
	node, ok := m.Selected()
	require.True(t, ok)
	require.Equal(t, "orders", node.Name)

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.Contains(t, m.View(), "total")

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyLeft})
	assert.NotContains(t, m.View(), "total")
}

func TestUnfocusedIgnoresKeys(t *testing.T) {
	m := New()
	m.SetSchema(shop())

	m = down(m)

	node, _ := m.Selected()
	assert.Equal(t, "shop", node.Name)
}

func TestPlaceholders(t *testing.T) {
	m := New()
	assert.Contains(t, m.View(), "Not connected")

	m.SetLoading(true)
	assert.Contains(t, m.View(), "Loading schema")

	m.SetError("permission denied")
	assert.Contains(t, m.View(), "permission denied")

	m.Clear()
	m.SetSchema(&database.SchemaDescription{Database: "empty"})
	assert.Contains(t, m.View(), "No tables")
}
