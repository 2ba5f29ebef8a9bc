// Package record defines the loosely-typed row representation used by the
// dynamic table store.
//
// A Record is an insertion-ordered set of named Values. A Value is a tagged
// union over the SQLite storage classes (NULL, INTEGER, REAL, TEXT, BLOB)
// plus booleans, which are persisted as 0/1 integers.
//
// Records round-trip through JSON without a fixed schema. Object key order is
// kept, integral numbers decode as integers and all other numbers as reals:
//
//	var r record.Record
//	_ = json.Unmarshal([]byte(`{"Name":"Tower","Height":310.5}`), &r)
//	r.Keys() // [Name Height]
package record
