// Package value implements the typed Value union and DataType tags of
// spec §3, plus the sort-key encoding used by the members index (§4.3).
package value
