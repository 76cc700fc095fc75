package matrixcsv

import (
	"fmt"
	"strings"
)

// Value is one typed Matrix CSV cell: Single, List, Modified, or
// ModifiedList. Serialization through String is lossless per shape.
type Value interface {
	fmt.Stringer
	matrixValue()
}

// Single is a plain scalar.
type Single string

func (Single) matrixValue() {}

func (s Single) String() string {
	return string(s)
}

// List is a sequence of plain values.
type List []string

func (List) matrixValue() {}

func (l List) String() string {
	return strings.Join(l, ",")
}

// Modified is a base value qualified by bracketed modifiers, like
// "minify[prod]". Without modifiers it renders as the bare base.
type Modified struct {
	Name      string
	Modifiers []string
}

func (Modified) matrixValue() {}

func (m Modified) String() string {
	if len(m.Modifiers) == 0 {
		return m.Name
	}
	return m.Name + "[" + strings.Join(m.Modifiers, ",") + "]"
}

// ModifiedList is a sequence of modified entries, like
// "text[rwx],route[rw-]".
type ModifiedList []Modified

func (ModifiedList) matrixValue() {}

func (ml ModifiedList) String() string {
	parts := make([]string, len(ml))
	for i, m := range ml {
		parts[i] = m.String()
	}
	return strings.Join(parts, ",")
}

// cellScan is the result of one pass over a raw cell: which token classes
// occurred and where the top-level commas sit. Bracket depth is clamped at
// zero so stray closing brackets cannot push a comma below the top level.
type cellScan struct {
	hasComma  bool
	hasOpen   bool
	hasClose  bool
	topSplits []int
}

func scanCell(s string) cellScan {
	var sc cellScan
	depth := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '[':
			sc.hasOpen = true
			depth++
		case ']':
			sc.hasClose = true
			if depth > 0 {
				depth--
			}
		case ',':
			sc.hasComma = true
			if depth == 0 {
				sc.topSplits = append(sc.topSplits, i)
			}
		}
	}
	return sc
}

// ParseValue classifies a raw cell. The order is fixed: a top-level comma
// next to any bracket means ModifiedList; a bracket pair means Modified; a
// bare comma means List; everything else is Single of the trimmed input.
func ParseValue(raw string) Value {
	trimmed := strings.TrimSpace(raw)
	sc := scanCell(trimmed)

	if sc.hasComma && sc.hasOpen && len(sc.topSplits) > 0 {
		var entries ModifiedList
		start := 0
		for _, pos := range sc.topSplits {
			if chunk := strings.TrimSpace(trimmed[start:pos]); chunk != "" {
				name, mods := parseModifiers(chunk)
				entries = append(entries, Modified{Name: name, Modifiers: mods})
			}
			start = pos + 1
		}
		if chunk := strings.TrimSpace(trimmed[start:]); chunk != "" {
			name, mods := parseModifiers(chunk)
			entries = append(entries, Modified{Name: name, Modifiers: mods})
		}
		return entries
	}

	if sc.hasOpen && sc.hasClose {
		name, mods := parseModifiers(trimmed)
		return Modified{Name: name, Modifiers: mods}
	}

	if sc.hasComma {
		var items List
		for _, part := range strings.Split(trimmed, ",") {
			if p := strings.TrimSpace(part); p != "" {
				items = append(items, p)
			}
		}
		return items
	}

	return Single(trimmed)
}

// parseModifiers splits "name[a,b]" into base and modifiers. Without a
// well-formed bracket pair the whole trimmed input is the base and the
// modifier list is empty. Empty modifiers are dropped.
func parseModifiers(s string) (string, []string) {
	open := strings.IndexByte(s, '[')
	end := strings.LastIndexByte(s, ']')
	if open < 0 || end <= open {
		return strings.TrimSpace(s), nil
	}

	name := strings.TrimSpace(s[:open])
	var mods []string
	for _, m := range strings.Split(s[open+1:end], ",") {
		if mm := strings.TrimSpace(m); mm != "" {
			mods = append(mods, mm)
		}
	}
	return name, mods
}
