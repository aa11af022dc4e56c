package domain

// Template is a named, reusable machine definition.
type Template struct {
	Name        string     `json:"name" yaml:"name"`
	Description string     `json:"description,omitempty" yaml:"description,omitempty"`
	Definition  Definition `json:"definition" yaml:"definition"`
}

// Builtin template names.
const (
	TemplateUnaryCounter   = "unary-counter"
	TemplateUnarySuccessor = "unary-successor"
)

// BuiltinTemplates returns the templates every catalog ships with.
func BuiltinTemplates() []Template {
	return []Template{
		{
			Name:        TemplateUnaryCounter,
			Description: "Keeps appending ones to the right of the tape. Never halts.",
			Definition:  DefaultDefinition(),
		},
		{
			Name:        TemplateUnarySuccessor,
			Description: "Fills the blanks before the trailing one, then halts.",
			Definition:  UnarySuccessorDefinition(),
		},
	}
}
