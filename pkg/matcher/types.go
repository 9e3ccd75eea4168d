package matcher

import "sort"

// Recognized field names. The projector is field-name agnostic; these are the
// keys CI annotation consumers understand, modeled as struct fields so a typo
// in our own code is a compile error rather than a silent miss.
const (
	FieldFile     = "file"
	FieldFromPath = "fromPath"
	FieldLine     = "line"
	FieldColumn   = "column"
	FieldSeverity = "severity"
	FieldCode     = "code"
	FieldMessage  = "message"
)

// Pattern is one regex rule plus its capture-group-to-field mapping.
// Group indices are pointers: nil means the field is not declared, while an
// explicit 0 is a configuration error the engine must report.
type Pattern struct {
	Regexp string
	Loop   bool

	File     *int
	FromPath *int
	Line     *int
	Column   *int
	Severity *int
	Code     *int
	Message  *int

	// Extra holds caller-defined field keys beyond the recognized set.
	Extra map[string]*int
}

// Field pairs a field name with its declared capture-group index.
type Field struct {
	Name  string
	Group *int
}

// Fields returns every declared field-to-group mapping in deterministic
// order: recognized fields first, extras sorted by name. Undeclared (nil)
// recognized fields are omitted; extras are kept even when nil so the engine
// can report them as misconfigured.
func (p *Pattern) Fields() []Field {
	named := []Field{
		{FieldFile, p.File},
		{FieldFromPath, p.FromPath},
		{FieldLine, p.Line},
		{FieldColumn, p.Column},
		{FieldSeverity, p.Severity},
		{FieldCode, p.Code},
		{FieldMessage, p.Message},
	}
	out := make([]Field, 0, len(named)+len(p.Extra))
	for _, f := range named {
		if f.Group != nil {
			out = append(out, f)
		}
	}
	extras := make([]string, 0, len(p.Extra))
	for k := range p.Extra {
		extras = append(extras, k)
	}
	sort.Strings(extras)
	for _, k := range extras {
		out = append(out, Field{Name: k, Group: p.Extra[k]})
	}
	return out
}

// Matcher is the parsing specification for one class of tool output.
// It is read-only for the duration of an engine call.
type Matcher struct {
	Owner    string
	Severity string
	Pattern  []Pattern
}

// Result maps field name to the trimmed captured text of one logical record.
type Result map[string]string
