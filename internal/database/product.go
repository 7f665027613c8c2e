// product.go
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

import "strings"

// Product identifies the database engine behind the pool
type Product int

const (
	// ProductUnknown takes the generic catalog path for every wiki operation
	ProductUnknown Product = iota
	ProductMySQL
	ProductMariaDB
	ProductPostgreSQL
	ProductSQLite
	ProductSQLServer
	ProductOracle
	ProductHSQLDB
	ProductH2
	ProductDerby
	ProductDB2
)

var productNames = map[Product]string{
	ProductUnknown:    "unknown",
	ProductMySQL:      "mysql",
	ProductMariaDB:    "mariadb",
	ProductPostgreSQL: "postgresql",
	ProductSQLite:     "sqlite",
	ProductSQLServer:  "sqlserver",
	ProductOracle:     "oracle",
	ProductHSQLDB:     "hsqldb",
	ProductH2:         "h2",
	ProductDerby:      "derby",
	ProductDB2:        "db2",
}

func (p Product) String() string {
	return productNames[p]
}

// ProductFromType maps a configured DB_TYPE or a GORM dialector name to a product
func ProductFromType(dbType string) Product {
	switch strings.ToLower(dbType) {
	case "mysql":
		return ProductMySQL
	case "mariadb":
		return ProductMariaDB
	case "postgres", "postgresql":
		return ProductPostgreSQL
	case "sqlite", "sqlite3", "sqlite-pure":
		return ProductSQLite
	case "sqlserver", "mssql":
		return ProductSQLServer
	case "oracle":
		return ProductOracle
	case "hsqldb":
		return ProductHSQLDB
	case "h2":
		return ProductH2
	case "derby":
		return ProductDerby
	case "db2":
		return ProductDB2
	}
	return ProductUnknown
}

// Addressing is how a wiki maps onto the database server
type Addressing int

const (
	// AddressNone keeps every wiki in the one database file
	AddressNone Addressing = iota
	// AddressCatalog gives each wiki its own database
	AddressCatalog
	// AddressSchema gives each wiki its own schema in one database
	AddressSchema
	// AddressUser gives each wiki its own user, whose schema holds the tables
	AddressUser
)

// AddressingOf returns the addressing used by p; schemaMode only matters for PostgreSQL
func AddressingOf(p Product, schemaMode bool) Addressing {
	switch p {
	case ProductSQLite:
		return AddressNone
	case ProductOracle:
		return AddressUser
	case ProductDerby, ProductHSQLDB, ProductDB2, ProductH2:
		return AddressSchema
	case ProductPostgreSQL:
		if schemaMode {
			return AddressSchema
		}
		return AddressCatalog
	}
	return AddressCatalog
}

// UsesSequences reports products whose identifier generation needs a per schema sequence
func (p Product) UsesSequences() bool {
	switch p {
	case ProductOracle, ProductPostgreSQL, ProductHSQLDB, ProductH2, ProductDB2, ProductDerby:
		return true
	}
	return false
}

// TransactionalDDL reports products whose CREATE TABLE takes part in the open transaction.
// The others commit it implicitly.
func (p Product) TransactionalDDL() bool {
	switch p {
	case ProductPostgreSQL, ProductSQLite, ProductSQLServer, ProductDerby, ProductDB2:
		return true
	}
	return false
}
