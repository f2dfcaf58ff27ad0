package ir

import "strings"

// BindingKind distinguishes literal arguments from variable references.
type BindingKind string

const (
	BindLiteral BindingKind = "literal"
	BindVar     BindingKind = "var"
	BindOut     BindingKind = "out" // &name passed to a produces parameter
)

// Binding is one argument of a call.
type Binding struct {
	Kind  BindingKind `json:"kind"`
	Value string      `json:"value"` // literal text or variable name
}

// Lit returns a literal binding.
func Lit(text string) Binding {
	return Binding{Kind: BindLiteral, Value: text}
}

// Var returns a variable binding.
func Var(name string) Binding {
	return Binding{Kind: BindVar, Value: name}
}

// Out returns an out-parameter binding that writes into name.
func Out(name string) Binding {
	return Binding{Kind: BindOut, Value: name}
}

func (b Binding) String() string {
	switch b.Kind {
	case BindVar:
		return b.Value
	case BindOut:
		return "&" + b.Value
	}
	return "<" + b.Value + ">"
}

// Call is one library call in a sequence.
type Call struct {
	Function string    `json:"function"`
	Args     []Binding `json:"args"`
	Dest     string    `json:"dest,omitempty"` // destination variable, empty if discarded
	Line     int       `json:"line,omitempty"` // source line in the fixture
}

func (c Call) String() string {
	var sb strings.Builder
	if c.Dest != "" {
		sb.WriteString(c.Dest)
		sb.WriteString(" = ")
	}
	sb.WriteString(c.Function)
	sb.WriteByte('(')
	for i, a := range c.Args {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(a.String())
	}
	sb.WriteByte(')')
	return sb.String()
}

// SequenceRecord is one candidate call sequence from the corpus.
type SequenceRecord struct {
	ID       int64    `json:"id"`
	Path     string   `json:"path,omitempty"`
	Strategy Strategy `json:"strategy"`
	Calls    []Call   `json:"calls"`
}
