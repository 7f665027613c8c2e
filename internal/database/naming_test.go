package database

import (
	"testing"

	"github.com/localnerve/docstore/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchemaName(t *testing.T) {
	main := NamingOptions{MainWiki: "xwiki"}

	tests := []struct {
		name    string
		wiki    string
		product Product
		opts    NamingOptions
		want    string
	}{
		{"derby main", "xwiki", ProductDerby, main, "APP"},
		{"hsqldb main", "xwiki", ProductHSQLDB, main, "PUBLIC"},
		{"h2 main", "XWiki", ProductH2, main, "PUBLIC"},
		{"postgres schema main", "xwiki", ProductPostgreSQL, NamingOptions{MainWiki: "xwiki", SchemaMode: true}, "public"},
		{"postgres catalog main", "xwiki", ProductPostgreSQL, main, "xwiki"},
		{"configured main", "xwiki", ProductMySQL, NamingOptions{MainWiki: "xwiki", MainDatabase: "wikidb"}, "wikidb"},
		{"hyphen replaced", "my-wiki", ProductMySQL, main, "my_wiki"},
		{"upper for oracle", "my-wiki", ProductOracle, main, "MY_WIKI"},
		{"upper for hsqldb", "sub", ProductHSQLDB, main, "SUB"},
		{"prefix", "sub", ProductMySQL, NamingOptions{MainWiki: "xwiki", Prefix: "wiki_"}, "wiki_sub"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SchemaName(tt.wiki, tt.product, tt.opts))
		})
	}
}

func TestEscapeName(t *testing.T) {
	assert.Equal(t, "SUB", EscapeName("SUB", ProductOracle))
	assert.Equal(t, "`we``ird`", EscapeName("we`ird", ProductMySQL))
	assert.Equal(t, `"a""b"`, EscapeName(`a"b`, ProductPostgreSQL))
	assert.Equal(t, "[a]]b]", EscapeName("a]b", ProductSQLServer))
	assert.Equal(t, `"sub"`, EscapeName("sub", ProductUnknown))
}

func TestSwitchStatement(t *testing.T) {
	stmt, err := SwitchStatement(ProductOracle, "SUB", false)
	require.NoError(t, err)
	assert.Equal(t, "alter session set current_schema = SUB", stmt)

	stmt, err = SwitchStatement(ProductH2, `"SUB"`, false)
	require.NoError(t, err)
	assert.Equal(t, `SET SCHEMA "SUB"`, stmt)

	stmt, err = SwitchStatement(ProductPostgreSQL, `"sub"`, true)
	require.NoError(t, err)
	assert.Equal(t, `SET search_path TO "sub"`, stmt)

	_, err = SwitchStatement(ProductPostgreSQL, `"sub"`, false)
	assert.ErrorIs(t, err, ErrUnsupported)

	stmt, err = SwitchStatement(ProductMariaDB, "`sub`", false)
	require.NoError(t, err)
	assert.Equal(t, "USE `sub`", stmt)

	stmt, err = SwitchStatement(ProductSQLite, `"sub"`, false)
	require.NoError(t, err)
	assert.Empty(t, stmt)
}

func TestCreateWikiStatements(t *testing.T) {
	stmts, err := CreateWikiStatements(ProductOracle, "SUB", CreateOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"CREATE USER SUB IDENTIFIED BY SUB QUOTA UNLIMITED ON USERS"}, stmts)

	stmts, err = CreateWikiStatements(ProductHSQLDB, `"SUB"`, CreateOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{`CREATE SCHEMA "SUB" AUTHORIZATION DBA`}, stmts)

	stmts, err = CreateWikiStatements(ProductMySQL, "`sub`", CreateOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"create database `sub` CHARACTER SET utf8mb4 COLLATE utf8mb4_bin"}, stmts)

	stmts, err = CreateWikiStatements(ProductMariaDB, "`sub`", CreateOptions{Charset: "utf8", Collation: "utf8_general_ci"})
	require.NoError(t, err)
	assert.Equal(t, []string{"create database `sub` CHARACTER SET utf8 COLLATE utf8_general_ci"}, stmts)

	_, err = CreateWikiStatements(ProductPostgreSQL, `"sub"`, CreateOptions{})
	assert.ErrorIs(t, err, ErrUnsupported)

	stmts, err = CreateWikiStatements(ProductUnknown, `"sub"`, CreateOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{`create database "sub"`}, stmts)
}

func TestDeleteWikiStatements(t *testing.T) {
	stmts, err := DeleteWikiStatements(ProductDB2, `"SUB"`, false)
	require.NoError(t, err)
	assert.Equal(t, []string{`DROP SCHEMA "SUB" RESTRICT`}, stmts)

	stmts, err = DeleteWikiStatements(ProductPostgreSQL, `"sub"`, true)
	require.NoError(t, err)
	assert.Equal(t, []string{`DROP SCHEMA "sub" CASCADE`}, stmts)
}

func TestProductAndAddressing(t *testing.T) {
	assert.Equal(t, ProductPostgreSQL, ProductFromType("postgres"))
	assert.Equal(t, ProductSQLite, ProductFromType("sqlite-pure"))
	assert.Equal(t, ProductUnknown, ProductFromType("cockroach"))
	assert.Equal(t, AddressSchema, AddressingOf(ProductPostgreSQL, true))
	assert.Equal(t, AddressCatalog, AddressingOf(ProductPostgreSQL, false))
	assert.Equal(t, AddressUser, AddressingOf(ProductOracle, false))
	assert.Equal(t, AddressNone, AddressingOf(ProductSQLite, true))
	assert.True(t, ProductDB2.UsesSequences())
	assert.False(t, ProductMySQL.UsesSequences())
	assert.True(t, ProductPostgreSQL.TransactionalDDL())
	assert.True(t, ProductSQLite.TransactionalDDL())
	assert.False(t, ProductMariaDB.TransactionalDDL())
	assert.False(t, ProductOracle.TransactionalDDL())
}

func TestDialector(t *testing.T) {
	for _, typ := range []string{"mysql", "mariadb", "postgres", "sqlite", "sqlite-pure", "sqlserver"} {
		d, err := Dialector(config.DatabaseConfig{Type: typ, Host: "localhost", Port: "1", Name: "db", User: "u", Charset: "utf8mb4"})
		require.NoError(t, err, typ)
		assert.NotNil(t, d)
	}
	_, err := Dialector(config.DatabaseConfig{Type: "oracle"})
	assert.EqualError(t, err, "unsupported database type: oracle")
}
