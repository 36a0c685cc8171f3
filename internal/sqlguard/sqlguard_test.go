package sqlguard

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anmolpansara/ChatWithDB/internal/database"
)

func TestSplit(t *testing.T) {
	tests := []struct {
		name string
		sql  string
		want []string
	}{
		{
			name: "single statement with trailing semicolon",
			sql:  "SELECT COUNT(*) FROM orders;",
			want: []string{"SELECT COUNT(*) FROM orders"},
		},
		{
			name: "two statements",
			sql:  "SELECT 1; DROP TABLE orders;",
			want: []string{"SELECT 1", "DROP TABLE orders"},
		},
		{
			name: "semicolon in string literal",
			sql:  "SELECT 'a;b' AS x",
			want: []string{"SELECT 'a;b' AS x"},
		},
		{
			name: "doubled quote inside literal",
			sql:  "SELECT 'it''s; fine'; SELECT 2",
			want: []string{"SELECT 'it''s; fine'", "SELECT 2"},
		},
		{
			name: "escape string with backslash quote",
			sql:  `SELECT E'a\';b'`,
			want: []string{`SELECT E'a\';b'`},
		},
		{
			name: "quoted identifier",
			sql:  `SELECT "weird;name" FROM t`,
			want: []string{`SELECT "weird;name" FROM t`},
		},
		{
			name: "dollar quoted body",
			sql:  "SELECT $fn$ a; b $fn$",
			want: []string{"SELECT $fn$ a; b $fn$"},
		},
		{
			name: "positional parameter is not a dollar quote",
			sql:  "SELECT $1; SELECT 2",
			want: []string{"SELECT $1", "SELECT 2"},
		},
		{
			name: "line comment",
			sql:  "SELECT 1 -- trailing; comment\n",
			want: []string{"SELECT 1 -- trailing; comment"},
		},
		{
			name: "nested block comment",
			sql:  "SELECT /* a /* b; */ c; */ 1",
			want: []string{"SELECT /* a /* b; */ c; */ 1"},
		},
		{
			name: "comment-only statement dropped",
			sql:  "SELECT 1; -- done",
			want: []string{"SELECT 1"},
		},
		{
			name: "empty",
			sql:  " ;; ",
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Split(tt.sql))
		})
	}
}

func TestFirstKeyword(t *testing.T) {
	assert.Equal(t, "SELECT", FirstKeyword("  select 1"))
	assert.Equal(t, "WITH", FirstKeyword("-- note\nwith x as (select 1) select * from x"))
	assert.Equal(t, "SELECT", FirstKeyword("/* hi */ ((SELECT 1))"))
	assert.Equal(t, "DELETE", FirstKeyword("DELETE FROM t"))
	assert.Equal(t, "", FirstKeyword("   "))
}

func TestHasKeyword(t *testing.T) {
	tests := []struct {
		stmt string
		want bool
	}{
		{"UPDATE orders SET total = 0 RETURNING id", true},
		{"insert into t values (1) returning *", true},
		{"UPDATE orders SET returning_customer = true", false},
		{"UPDATE orders SET note = 'returning' WHERE id = 1", false},
		{`UPDATE orders SET "returning" = 1`, false},
		{"UPDATE orders SET note = $$ RETURNING $$", false},
		{"DELETE FROM orders -- returning\nWHERE id = 1", false},
		{"DELETE FROM t WHERE id IN (SELECT 1 /* RETURNING */)", false},
		{"INSERT INTO t (WITH x AS (DELETE FROM s RETURNING id) SELECT id FROM x)", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, HasKeyword(tt.stmt, "RETURNING"), tt.stmt)
	}
}

func TestFirstTerminator(t *testing.T) {
	assert.Equal(t, 8, FirstTerminator("SELECT 1; SELECT 2"))
	assert.Equal(t, 12, FirstTerminator("SELECT ';' x; y"))
	assert.Equal(t, -1, FirstTerminator("SELECT 1"))
}

func TestPolicyCheckRejectsMultipleStatements(t *testing.T) {
	_, err := DefaultPolicy().Check("SELECT 1; SELECT 2")
	require.Error(t, err)

	kind, ok := database.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, database.KindMultiStatement, kind)
}

func TestPolicyCheckDenylist(t *testing.T) {
	for _, sql := range []string{
		"DROP TABLE orders",
		"delete from orders",
		"TRUNCATE orders",
		"ALTER TABLE orders ADD COLUMN x int",
		"  update orders set total = 0;",
		"/* sneaky */ INSERT INTO orders VALUES (1)",
	} {
		t.Run(sql, func(t *testing.T) {
			_, err := DefaultPolicy().Check(sql)
			require.Error(t, err)
			kind, _ := database.KindOf(err)
			assert.Equal(t, database.KindPolicyViolation, kind)
		})
	}
}

func TestPolicyCheckAllowsReads(t *testing.T) {
	stmt, err := DefaultPolicy().Check("SELECT COUNT(*) FROM orders;")
	require.NoError(t, err)
	assert.Equal(t, "SELECT COUNT(*) FROM orders", stmt)

	stmt, err = DefaultPolicy().Check("WITH t AS (SELECT 1) SELECT * FROM t")
	require.NoError(t, err)
	assert.Equal(t, "WITH t AS (SELECT 1) SELECT * FROM t", stmt)
}

func TestPolicyCheckAllowMutations(t *testing.T) {
	p := DefaultPolicy()
	p.AllowMutations = true

	stmt, err := p.Check("DELETE FROM orders WHERE id = 1;")
	require.NoError(t, err)
	assert.Equal(t, "DELETE FROM orders WHERE id = 1", stmt)

	_, err = p.Check("DELETE FROM orders; DROP TABLE orders")
	kind, _ := database.KindOf(err)
	assert.Equal(t, database.KindMultiStatement, kind)
}

func TestPolicyCheckEmpty(t *testing.T) {
	_, err := DefaultPolicy().Check("  -- nothing here")
	kind, _ := database.KindOf(err)
	assert.Equal(t, database.KindSyntax, kind)
}
