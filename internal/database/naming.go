// naming.go
//
// A document persistence store for wikis, with versioning, attachments and a recycle bin
// Copyright (c) 2026 Alex Grant <info@localnerve.com> (https://www.localnerve.com), LocalNerve LLC
//
// This file is part of docstore.
// docstore is free software: you can redistribute it and/or modify it
// under the terms of the GNU Affero General Public License as published by the Free Software
// Foundation, either version 3 of the License, or (at your option) any later version.
// docstore is distributed in the hope that it will be useful, but WITHOUT ANY WARRANTY;
// without even the implied warranty of MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.
// See the GNU Affero General Public License for more details.
// You should have received a copy of the GNU Affero General Public License along with docstore.
// If not, see <https://www.gnu.org/licenses/>.
// Additional terms under GNU AGPL version 3 section 7:
// a) The reasonable legal notice of original copyright and author attribution must be preserved
//    by including the string: "Copyright (c) 2026 Alex Grant <info@localnerve.com> (https://www.localnerve.com), LocalNerve LLC"
//    in this material, copies, or source code of derived works.

package database

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnsupported reports a wiki operation the product cannot perform in its addressing mode
var ErrUnsupported = errors.New("database: operation not supported for this product")

// SequenceName is the per schema identifier sequence
const SequenceName = "docstore_sequence"

// NamingOptions carries the configuration the naming rules depend on
type NamingOptions struct {
	MainWiki string
	// MainDatabase is the configured database of the main wiki; empty selects the product default
	MainDatabase string
	Prefix       string
	SchemaMode   bool
}

// SchemaName converts a wiki id into the database, schema or user name holding its tables
func SchemaName(wikiID string, p Product, opts NamingOptions) string {
	var name string
	if strings.EqualFold(wikiID, opts.MainWiki) {
		name = opts.MainDatabase
		if name == "" {
			switch {
			case p == ProductDerby:
				name = "APP"
			case p == ProductHSQLDB || p == ProductH2:
				name = "PUBLIC"
			case p == ProductPostgreSQL && opts.SchemaMode:
				name = "public"
			default:
				name = strings.ReplaceAll(wikiID, "-", "_")
			}
		}
	} else {
		name = strings.ReplaceAll(wikiID, "-", "_")
		if p == ProductHSQLDB || p == ProductH2 || p == ProductOracle {
			name = strings.ToUpper(name)
		}
	}
	return opts.Prefix + name
}

// EscapeName quotes a schema name for the product; Oracle names are left bare
func EscapeName(name string, p Product) string {
	switch p {
	case ProductOracle:
		return name
	case ProductMySQL, ProductMariaDB:
		return "`" + strings.ReplaceAll(name, "`", "``") + "`"
	case ProductSQLServer:
		return "[" + strings.ReplaceAll(name, "]", "]]") + "]"
	}
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// SwitchStatement returns the statement pointing a connection at escaped.
// An empty statement means the product needs no switch.
func SwitchStatement(p Product, escaped string, schemaMode bool) (string, error) {
	switch p {
	case ProductSQLite:
		return "", nil
	case ProductOracle:
		return "alter session set current_schema = " + escaped, nil
	case ProductDerby, ProductHSQLDB, ProductDB2, ProductH2:
		return "SET SCHEMA " + escaped, nil
	case ProductPostgreSQL:
		if schemaMode {
			return "SET search_path TO " + escaped, nil
		}
		return "", fmt.Errorf("%w: postgresql cannot switch database on an open connection", ErrUnsupported)
	}
	return "USE " + escaped, nil
}

// CreateOptions tunes CreateWikiStatements
type CreateOptions struct {
	SchemaMode bool
	Charset    string
	Collation  string
}

// CreateWikiStatements returns the DDL creating the storage of one wiki
func CreateWikiStatements(p Product, escaped string, opts CreateOptions) ([]string, error) {
	switch p {
	case ProductSQLite:
		return nil, nil
	case ProductOracle:
		return []string{fmt.Sprintf("CREATE USER %s IDENTIFIED BY %s QUOTA UNLIMITED ON USERS", escaped, escaped)}, nil
	case ProductDerby, ProductDB2, ProductH2:
		return []string{"CREATE SCHEMA " + escaped}, nil
	case ProductHSQLDB:
		return []string{"CREATE SCHEMA " + escaped + " AUTHORIZATION DBA"}, nil
	case ProductMySQL, ProductMariaDB:
		charset, collation := opts.Charset, opts.Collation
		if charset == "" {
			charset = "utf8mb4"
		}
		if collation == "" {
			collation = "utf8mb4_bin"
		}
		return []string{fmt.Sprintf("create database %s CHARACTER SET %s COLLATE %s", escaped, charset, collation)}, nil
	case ProductPostgreSQL:
		if opts.SchemaMode {
			return []string{"CREATE SCHEMA " + escaped}, nil
		}
		return nil, fmt.Errorf("%w: creating a postgresql database is only supported in schema mode", ErrUnsupported)
	}
	return []string{"create database " + escaped}, nil
}

// DeleteWikiStatements returns the DDL dropping the storage of one wiki
func DeleteWikiStatements(p Product, escaped string, schemaMode bool) ([]string, error) {
	switch p {
	case ProductSQLite:
		return nil, nil
	case ProductOracle:
		return []string{"DROP USER " + escaped + " CASCADE"}, nil
	case ProductDerby, ProductMySQL, ProductMariaDB, ProductH2:
		return []string{"DROP SCHEMA " + escaped}, nil
	case ProductHSQLDB:
		return []string{"DROP SCHEMA " + escaped + " CASCADE"}, nil
	case ProductDB2:
		return []string{"DROP SCHEMA " + escaped + " RESTRICT"}, nil
	case ProductPostgreSQL:
		if schemaMode {
			return []string{"DROP SCHEMA " + escaped + " CASCADE"}, nil
		}
		return nil, fmt.Errorf("%w: deleting a postgresql database is only supported in schema mode", ErrUnsupported)
	}
	return []string{"DROP DATABASE " + escaped}, nil
}

// CreateSequenceStatement returns the statement creating the identifier sequence in escaped
func CreateSequenceStatement(escaped string) string {
	return fmt.Sprintf("create sequence %s.%s", escaped, SequenceName)
}
