// Package extract resolves declared report fields out of assessment records.
//
// An assessment record is an arbitrary decoded-JSON tree. A field declaration
// names a value inside it with a path expression, optionally transforms the
// value and classifies it into a labeled range:
//
//	- id: heart_rate
//	  label: Heart Rate
//	  path: vitalsMap.vitals.heart_rate
//	  unit: bpm
//	  classification:
//	    excellent: { min: 60, max: 80 }
//	    good: { min: 50, max: 100 }
//
// # Path expressions
//
// Segments are separated by ".". A segment is either a plain key or
// name[selector], where selector is a 0-based index ("setList[0]") or a
// predicate ("exercises[id=235]") that selects the first element whose key
// loosely equals the value. Numeric strings match numbers, so "id=235" matches
// both {"id": 235} and {"id": "235"}.
//
// # Failure model
//
// Resolution is total. Missing keys, out of range indexes, unmatched
// predicates, malformed paths and unexpected shapes all yield Absent, and a
// field whose value is Absent is reported as "N/A". Classification ranges are
// matched in declaration order and the first containing range wins, so range
// order in the configuration is significant.
package extract
