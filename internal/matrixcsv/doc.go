// Package matrixcsv implements the typed Matrix CSV layer on top of the
// pipe-delimited substrate.
//
// A Matrix CSV file starts with a header line declaring the field names.
// Every data cell is classified into one of four value shapes:
//
//	Single        active
//	List          editor,author,admin
//	Modified      minify[prod]
//	ModifiedList  text[rwx],route[rw-]
//
// Classification follows the grammar Value := ModifiedList | Modified |
// List | Single. A comma only separates top-level entries when it sits
// outside brackets, so "file[dev,prod]" stays a single Modified value.
// When the last header field is "desc" or "description" that column holds
// untyped free text and skips classification.
package matrixcsv
