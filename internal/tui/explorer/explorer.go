package explorer

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/anmolpansara/ChatWithDB/internal/database"
	"github.com/anmolpansara/ChatWithDB/internal/tui/theme"
)

// NodeKind identifies the type of a tree node.
type NodeKind int

const (
	NodeDatabase NodeKind = iota
	NodeSchema
	NodeTable
	NodeColumn
)

// TreeNode is a single node of the schema tree.
type TreeNode struct {
	Kind     NodeKind
	Name     string
	Detail   string // column type, or "view"
	Children []*TreeNode
	Expanded bool
}

type flatItem struct {
	node  *TreeNode
	depth int
}

// Model is the schema viewer: database, schemas, relations and columns.
type Model struct {
	tree    *TreeNode
	items   []flatItem
	cursor  int
	width   int
	height  int
	focused bool
	loading bool
	err     string
}

// New creates an empty schema viewer.
func New() Model {
	return Model{}
}

// SetSize updates the component dimensions.
func (m *Model) SetSize(w, h int) {
	m.width = w
	m.height = h
}

// SetFocused sets the focus state.
func (m *Model) SetFocused(f bool) {
	m.focused = f
}

// SetLoading shows the loading placeholder until the next SetSchema.
func (m *Model) SetLoading(l bool) {
	m.loading = l
}

// SetError replaces the tree with a one-line explanation.
func (m *Model) SetError(msg string) {
	m.err = msg
	m.loading = false
}

// Clear drops the tree, e.g. after a disconnect.
func (m *Model) Clear() {
	m.tree = nil
	m.items = nil
	m.cursor = 0
	m.err = ""
	m.loading = false
}

// SetSchema rebuilds the tree from desc. Schemas are grouped in the order
// their first relation appears, so the tree follows the description order.
func (m *Model) SetSchema(desc *database.SchemaDescription) {
	m.Clear()
	if desc == nil {
		return
	}

	root := &TreeNode{Kind: NodeDatabase, Name: desc.Database, Expanded: true}
	bySchema := map[string]*TreeNode{}
	for _, t := range desc.Tables {
		schema := t.Schema
		if schema == "" {
			schema = "public"
		}
		sn, ok := bySchema[schema]
		if !ok {
			sn = &TreeNode{Kind: NodeSchema, Name: schema, Expanded: schema == "public"}
			bySchema[schema] = sn
			root.Children = append(root.Children, sn)
		}

		tn := &TreeNode{Kind: NodeTable, Name: t.Name}
		if t.Kind == "view" {
			tn.Detail = "view"
		}
		for _, c := range t.Columns {
			tn.Children = append(tn.Children, &TreeNode{Kind: NodeColumn, Name: c.Name, Detail: c.DataType})
		}
		sn.Children = append(sn.Children, tn)
	}

	m.tree = root
	m.flatten()
}

// Selected returns the node under the cursor.
func (m Model) Selected() (*TreeNode, bool) {
	if m.cursor < 0 || m.cursor >= len(m.items) {
		return nil, false
	}
	return m.items[m.cursor].node, true
}

func (m *Model) flatten() {
	m.items = nil
	if m.tree != nil {
		m.flattenNode(m.tree, 0)
	}
	if m.cursor >= len(m.items) {
		m.cursor = max(0, len(m.items)-1)
	}
}

func (m *Model) flattenNode(node *TreeNode, depth int) {
	m.items = append(m.items, flatItem{node: node, depth: depth})
	if node.Expanded {
		for _, child := range node.Children {
			m.flattenNode(child, depth+1)
		}
	}
}

// Init returns the initial command (none).
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles navigation keys while focused.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if !m.focused {
		return m, nil
	}

	if msg, ok := msg.(tea.KeyMsg); ok {
		switch msg.String() {
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
			}
		case "down", "j":
			if m.cursor < len(m.items)-1 {
				m.cursor++
			}
		case "enter", "right", "l", " ":
			m.toggle()
		case "left", "h":
			m.collapse()
		}
	}
	return m, nil
}

func (m *Model) toggle() {
	node, ok := m.Selected()
	if !ok || len(node.Children) == 0 {
		return
	}
	node.Expanded = !node.Expanded
	m.flatten()
}

func (m *Model) collapse() {
	node, ok := m.Selected()
	if !ok || !node.Expanded {
		return
	}
	node.Expanded = false
	m.flatten()
}

// View renders the schema viewer.
func (m Model) View() string {
	title := theme.StyleTitle.Render("Database Info")

	switch {
	case m.loading:
		return title + "\n" + theme.StyleMuted.Render("  Loading schema...")
	case m.err != "":
		return title + "\n" + theme.StyleError.Render("  "+m.err)
	case m.tree == nil:
		return title + "\n" + theme.StyleMuted.Render("  Not connected")
	case len(m.tree.Children) == 0:
		return title + "\n" + theme.StyleMuted.Render("  No tables")
	}

	var b strings.Builder
	b.WriteString(title)

	visible := max(1, m.height-2)
	offset := 0
	if m.cursor >= visible {
		offset = m.cursor - visible + 1
	}
	for i := offset; i < len(m.items) && i < offset+visible; i++ {
		b.WriteString("\n")
		b.WriteString(m.renderNode(m.items[i], i == m.cursor))
	}
	return b.String()
}

func (m Model) renderNode(item flatItem, selected bool) string {
	node := item.node
	indent := strings.Repeat("  ", item.depth)

	icon := "  "
	if len(node.Children) > 0 {
		icon = "▶ "
		if node.Expanded {
			icon = "▼ "
		}
	}

	line := indent + icon + node.Name
	if width := m.width - 2; width > 3 && lipgloss.Width(line) > width {
		line = truncate(line, width)
	} else if node.Detail != "" {
		line += " " + theme.StyleMuted.Render(node.Detail)
	}

	if selected && m.focused {
		return theme.StyleSelected.Render(line)
	}
	return line
}

func truncate(s string, width int) string {
	r := []rune(s)
	for len(r) > 0 && lipgloss.Width(string(r)) > width-1 {
		r = r[:len(r)-1]
	}
	return string(r) + "…"
}
