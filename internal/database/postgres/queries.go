package postgres

// SQL queries for PostgreSQL catalog introspection.
const (
	// queryDescribe lists every visible column of user tables and views in a
	// single round trip. information_schema only shows relations the current
	// role has some privilege on.
	queryDescribe = `
		SELECT
			c.table_schema,
			c.table_name,
			t.table_type,
			c.column_name,
			CASE WHEN c.data_type IN ('USER-DEFINED', 'ARRAY') THEN c.udt_name ELSE c.data_type END,
			c.is_nullable,
			c.ordinal_position
		FROM information_schema.columns c
		JOIN information_schema.tables t
			ON t.table_schema = c.table_schema
			AND t.table_name = c.table_name
		WHERE c.table_schema NOT IN ('pg_catalog', 'information_schema')
		  AND c.table_schema NOT LIKE 'pg_toast%'
		  AND c.table_schema NOT LIKE 'pg_temp%'
		  AND t.table_type IN ('BASE TABLE', 'VIEW')
		ORDER BY c.table_schema, c.table_name, c.ordinal_position`
)
