// Package catalog holds the Query Catalog (C5): every SQL statement the
// engine issues, named and versioned in one place instead of built ad hoc
// at each call site, following the teacher's practice of keeping
// generated SQL behind named constants/functions rather than inline
// strings.
package catalog

import (
	"fmt"
	"strconv"
	"strings"
)

// Schema DDL. Two physical tables, fixed by spec.md §6: JsonValue for
// documents, StreamValue for blobs.
const (
	CreateJsonValueTable = `CREATE TABLE IF NOT EXISTS JsonValue (
	Key TEXT NOT NULL,
	FullTypeName TEXT NOT NULL,
	Partition TEXT NOT NULL DEFAULT '',
	Data JSON NOT NULL,
	PRIMARY KEY (Key, FullTypeName, Partition)
)`

	CreateStreamValueTable = `CREATE TABLE IF NOT EXISTS StreamValue (
	Key TEXT NOT NULL,
	Partition TEXT NOT NULL DEFAULT '',
	Data BLOB NOT NULL,
	PRIMARY KEY (Key, Partition)
)`

	CreateIndexByType          = `CREATE INDEX IF NOT EXISTS idx_jsonvalue_type ON JsonValue(FullTypeName)`
	CreateIndexByTypePartition = `CREATE INDEX IF NOT EXISTS idx_jsonvalue_type_partition ON JsonValue(FullTypeName, Partition)`
	CreateIndexByKeyType       = `CREATE INDEX IF NOT EXISTS idx_jsonvalue_key_type ON JsonValue(Key, FullTypeName)`
	CreateIndexByKeyTypePart   = `CREATE INDEX IF NOT EXISTS idx_jsonvalue_key_type_partition ON JsonValue(Key, FullTypeName, Partition)`
	CreateIndexStreamValue     = `CREATE INDEX IF NOT EXISTS idx_streamvalue_key_partition ON StreamValue(Key, Partition)`
)

// SchemaStatements returns, in execution order, every DDL statement the
// schema bootstrap must run.
func SchemaStatements() []string {
	return []string{
		CreateJsonValueTable,
		CreateStreamValueTable,
		CreateIndexByType,
		CreateIndexByTypePartition,
		CreateIndexByKeyType,
		CreateIndexByKeyTypePart,
		CreateIndexStreamValue,
	}
}

// Pragmas sets write-ahead journaling, normal synchronous mode, exclusive
// locking, and incremental autovacuum, per spec.md §4.5.
var Pragmas = []string{
	"PRAGMA journal_mode=WAL",
	"PRAGMA synchronous=NORMAL",
	"PRAGMA locking_mode=EXCLUSIVE",
	"PRAGMA auto_vacuum=INCREMENTAL",
}

// Document CRUD templates.
const (
	UpsertDocument = `INSERT INTO JsonValue (Key, FullTypeName, Partition, Data)
VALUES (?, ?, ?, json(?))
ON CONFLICT(Key, FullTypeName, Partition) DO UPDATE SET Data = excluded.Data`

	SelectDocumentByKey = `SELECT Data FROM JsonValue WHERE Key = ? AND FullTypeName = ? AND Partition = ?`

	ExistsDocumentByKey = `SELECT 1 FROM JsonValue WHERE Key = ? AND FullTypeName = ? AND Partition = ? LIMIT 1`

	DeleteDocumentByKey = `DELETE FROM JsonValue WHERE Key = ? AND FullTypeName = ? AND Partition = ?`

	DeleteDocumentsByType = `DELETE FROM JsonValue WHERE FullTypeName = ?`

	DeleteDocumentsByPartition = `DELETE FROM JsonValue WHERE Partition = ?`

	DeleteAllDocuments = `DELETE FROM JsonValue`

	ListPartitions = `SELECT DISTINCT Partition FROM JsonValue WHERE FullTypeName = ?`
)

// SelectDocuments builds a SELECT against JsonValue scoped by
// FullTypeName and, when partition scoping is requested, Partition, with
// the given filter/sort/limit fragments appended. filterSQL and orderSQL
// may be empty.
func SelectDocuments(scopeByPartition bool, filterSQL, orderSQL string, limit int) string {
	base := "SELECT Key, Data FROM JsonValue WHERE FullTypeName = ? AND 1=1"
	if scopeByPartition {
		base = "SELECT Key, Data FROM JsonValue WHERE FullTypeName = ? AND Partition = ? AND 1=1"
	}
	return assembleSelect(base, filterSQL, orderSQL, limit)
}

// CountDocuments builds the same shape of query as SelectDocuments but
// selecting only Key: spec.md §4.7 counts returned rows rather than
// running COUNT(*), to preserve identical filter semantics with read_many.
func CountDocuments(scopeByPartition bool, filterSQL string) string {
	base := "SELECT Key FROM JsonValue WHERE FullTypeName = ? AND 1=1"
	if scopeByPartition {
		base = "SELECT Key FROM JsonValue WHERE FullTypeName = ? AND Partition = ? AND 1=1"
	}
	return assembleSelect(base, filterSQL, "", 0)
}

// SelectProjected builds the projection query (C10): extracts a subtree
// at jsonPath instead of the whole Data column.
func SelectProjected(scopeByPartition, withKeys bool, jsonPath, filterSQL, orderSQL string, limit int) string {
	cols := fmt.Sprintf("JSON_EXTRACT(Data, '%s') AS Data", jsonPath)
	if withKeys {
		cols = "Key, " + cols
	}
	base := fmt.Sprintf("SELECT %s FROM JsonValue WHERE FullTypeName = ? AND 1=1", cols)
	if scopeByPartition {
		base = fmt.Sprintf("SELECT %s FROM JsonValue WHERE FullTypeName = ? AND Partition = ? AND 1=1", cols)
	}
	return assembleSelect(base, filterSQL, orderSQL, limit)
}

// DeleteManyDocuments builds a DELETE scoped the same way as
// SelectDocuments/CountDocuments, for delete_many's predicate form.
func DeleteManyDocuments(scopeByPartition bool, filterSQL string) string {
	base := "DELETE FROM JsonValue WHERE FullTypeName = ? AND 1=1"
	if scopeByPartition {
		base = "DELETE FROM JsonValue WHERE FullTypeName = ? AND Partition = ? AND 1=1"
	}
	return base + filterSQL
}

func assembleSelect(base, filterSQL, orderSQL string, limit int) string {
	q := base + filterSQL
	if orderSQL != "" {
		q += "\n" + orderSQL
	}
	if limit > 0 {
		q += fmt.Sprintf("\nLIMIT %d", limit)
	}
	return q
}

// Blob CRUD templates.
const (
	UpsertBlobPlaceholder = `INSERT INTO StreamValue (Key, Partition, Data)
VALUES (?, ?, ?)
ON CONFLICT(Key, Partition) DO UPDATE SET Data = excluded.Data`

	SelectBlobRowID = `SELECT rowid FROM StreamValue WHERE Key = ? AND Partition = ?`

	SelectBlobData = `SELECT Data FROM StreamValue WHERE Key = ? AND Partition = ?`

	ExistsBlobByKey = `SELECT 1 FROM StreamValue WHERE Key = ? AND Partition = ? LIMIT 1`

	DeleteBlobByKey = `DELETE FROM StreamValue WHERE Key = ? AND Partition = ?`

	DeleteBlobsByPartition = `DELETE FROM StreamValue WHERE Partition = ?`

	// AppendBlobChunk grows a placeholder row's Data column by one chunk at
	// a time, keyed by the rowid obtained from SelectBlobRowID right after
	// the placeholder insert. database/sql's driver surface this module
	// builds on (dialect.Driver's Exec/Query, not a raw *sqlite3.Conn) has
	// no randomly-writable blob handle, so streaming is emulated the way
	// spec.md §4.8 allows: chunked parameter binding against the same row.
	AppendBlobChunk = `UPDATE StreamValue SET Data = Data || ? WHERE rowid = ?`
)

// Index Manager templates (C9).
const (
	// minCompatibleVersion is the SQLite version past which built-in JSON
	// support can be assumed without probing compile options (spec.md §4.5).
	minCompatibleVersion = "3.38.0"
)

// MinCompatibleVersion returns the minimum SQLite version assumed to have
// built-in JSON1 support.
func MinCompatibleVersion() string { return minCompatibleVersion }

const (
	SelectSQLiteVersion  = `SELECT sqlite_version()`
	SelectCompileOptions = `PRAGMA compile_options`
)

// HasJSON1Support implements the §4.5 compatibility precheck: a version
// at or above 3.38 is assumed to carry built-in JSON support; otherwise
// the compile options must advertise the ENABLE_JSON1 feature tag.
func HasJSON1Support(version string, compileOptions []string) bool {
	if versionAtLeast(version, minCompatibleVersion) {
		return true
	}
	for _, opt := range compileOptions {
		if strings.EqualFold(opt, "ENABLE_JSON1") {
			return true
		}
	}
	return false
}

func versionAtLeast(version, min string) bool {
	vp, mp := strings.Split(version, "."), strings.Split(min, ".")
	for i := 0; i < len(mp); i++ {
		var v, m int
		if i < len(vp) {
			v, _ = strconv.Atoi(vp[i])
		}
		m, _ = strconv.Atoi(mp[i])
		if v != m {
			return v > m
		}
	}
	return true
}

// CreateFunctionalIndex builds a single- or multi-column functional index
// over JsonValue, per spec.md §4.9: idx_<name>_<safe-T>, one
// JSON_EXTRACT per path, numeric-cast per path when numeric.
func CreateFunctionalIndex(name, safeTypeName string, paths []string, numeric []bool) string {
	exprs := make([]string, len(paths))
	for i, p := range paths {
		extract := fmt.Sprintf("JSON_EXTRACT(Data, '%s')", p)
		if i < len(numeric) && numeric[i] {
			extract = fmt.Sprintf("CAST(%s AS NUMERIC)", extract)
		}
		exprs[i] = extract
	}
	idxName := fmt.Sprintf("idx_%s_%s", name, safeTypeName)
	cols := "FullTypeName"
	for _, e := range exprs {
		cols += ", " + e
	}
	return fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON JsonValue(%s)", idxName, cols)
}
