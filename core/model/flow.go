package model

// FlowLevel grades the loading of a line feeding a transformer.
type FlowLevel string

const (
	FlowNormal   FlowLevel = "normal"
	FlowElevated FlowLevel = "elevated"
	FlowHeavy    FlowLevel = "heavy"
)

// LineFlow is the classified flow on line Lj (bus j to transformer Tj).
type LineFlow struct {
	Line     int       `json:"line"`
	CurrentA float64   `json:"current_a"`
	Level    FlowLevel `json:"level"`
	Width    int       `json:"width"`
}

// ClassifyFlow grades a line current: below 110 A is normal, below 125 A
// elevated, anything else heavy. Width is the suggested stroke width.
func ClassifyFlow(line int, current float64) LineFlow {
	lf := LineFlow{Line: line, CurrentA: current}
	switch {
	case current < 110:
		lf.Level, lf.Width = FlowNormal, 2
	case current < 125:
		lf.Level, lf.Width = FlowElevated, 4
	default:
		lf.Level, lf.Width = FlowHeavy, 6
	}
	return lf
}
