package domain

// Defaults applied when a machine is created without an explicit configuration.
// They reproduce the unary counter every new tape started with.
const (
	DefaultTape         = "______1"
	DefaultInitialState = "A"
	DefaultFinalState   = "HALT"
)

// DefaultDefinition returns the unary counter program.
// It never reaches HALT: it keeps appending ones, so runs end on the step budget.
func DefaultDefinition() Definition {
	return Definition{
		InitialState: DefaultInitialState,
		FinalStates:  []string{DefaultFinalState},
		InitialTape:  DefaultTape,
		Rules: []Rule{
			{From: "A", Read: '_', Write: '_', Move: Right, To: "A"},
			{From: "A", Read: '1', Write: '1', Move: Right, To: "B"},
			{From: "B", Read: '_', Write: '1', Move: Left, To: "C"},
			{From: "B", Read: '1', Write: '1', Move: Right, To: "B"},
			{From: "C", Read: '_', Write: '_', Move: Right, To: "D"},
			{From: "C", Read: '1', Write: '1', Move: Left, To: "C"},
			{From: "D", Read: '_', Write: '1', Move: Left, To: "E"},
			{From: "D", Read: '1', Write: '1', Move: Right, To: "D"},
			{From: "E", Read: '_', Write: '_', Move: Right, To: "A"},
			{From: "E", Read: '1', Write: '1', Move: Left, To: "E"},
		},
	}
}

// UnarySuccessorDefinition returns a machine that fills the blanks before a
// trailing one and halts right after it.
func UnarySuccessorDefinition() Definition {
	return Definition{
		InitialState: "A",
		FinalStates:  []string{"HALT"},
		InitialTape:  DefaultTape,
		Rules: []Rule{
			{From: "A", Read: '_', Write: '1', Move: Right, To: "A"},
			{From: "A", Read: '1', Write: '1', Move: Right, To: "HALT"},
		},
	}
}
