// Package flatcsv reads and writes ReedBase's pipe-delimited CSV files.
//
// Each data line is "key|value" or "key|value|description". Keys use dot
// notation with optional @language and @environment suffixes, for example
// page.title@de or color.primary@dev. Blank lines and lines starting with
// '#' are skipped. Writes go through a temp file followed by a rename, so
// a concurrent reader never observes a half-written file.
package flatcsv
