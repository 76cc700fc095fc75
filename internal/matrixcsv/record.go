package matrixcsv

// Record is one Matrix CSV row. FieldOrder mirrors the header exactly;
// downstream formatting depends on positional meaning, so it is never
// sorted.
type Record struct {
	Fields      map[string]Value
	FieldOrder  []string
	Description string
}

// NewRecord returns an empty record ready for AddField.
func NewRecord() *Record {
	return &Record{Fields: make(map[string]Value)}
}

// AddField sets a field value. The name joins FieldOrder on first use and
// keeps its position on overwrite.
func (r *Record) AddField(name string, v Value) {
	if _, ok := r.Fields[name]; !ok {
		r.FieldOrder = append(r.FieldOrder, name)
	}
	r.Fields[name] = v
}

// Field returns the named value and whether it exists.
func (r *Record) Field(name string) (Value, bool) {
	v, ok := r.Fields[name]
	return v, ok
}
