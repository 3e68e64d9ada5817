package enginetest

// Species is one chemical species of a Model.
type Species struct {
	ID       string
	Units    string
	Location int32 // 0 bulk, 1 wall
	ATol     float64
	RTol     float64
	Initial  float64 // initial quality at every node and link
	Decay    float64 // first-order decay rate, 1/hour
}

// Value is a named coefficient.
type Value struct {
	ID    string
	Value float64
}

// Pattern is a named multiplier time pattern.
type Pattern struct {
	ID          string
	Multipliers []float64
}

// Model is the content of one project file as the fake engine sees it.
type Model struct {
	Nodes      []string
	Links      []string
	Tanks      []string
	Species    []Species
	Terms      []string
	Parameters []Value
	Constants  []Value
	Patterns   []Pattern

	// Duration and QualityStep are in seconds.
	Duration    int64
	QualityStep int64
}

func (m Model) clone() Model {
	c := m
	c.Nodes = append([]string(nil), m.Nodes...)
	c.Links = append([]string(nil), m.Links...)
	c.Tanks = append([]string(nil), m.Tanks...)
	c.Species = append([]Species(nil), m.Species...)
	c.Terms = append([]string(nil), m.Terms...)
	c.Parameters = append([]Value(nil), m.Parameters...)
	c.Constants = append([]Value(nil), m.Constants...)
	c.Patterns = make([]Pattern, len(m.Patterns))
	for i, p := range m.Patterns {
		c.Patterns[i] = Pattern{ID: p.ID, Multipliers: append([]float64(nil), p.Multipliers...)}
	}
	return c
}

// Net1 is the arsenic oxidation example shipped with EPANET-MSX, laid over
// the EPANET Net1 network.
func Net1() Model {
	return Model{
		Nodes: []string{"10", "11", "12", "13", "21", "22", "23", "31", "32", "9", "2"},
		Links: []string{"10", "11", "12", "21", "22", "31", "110", "111", "112", "113", "121", "122", "9"},
		Tanks: []string{"2"},
		Species: []Species{
			{ID: "AS3", Units: "UG", Location: 0, ATol: 0.001, RTol: 0.001, Initial: 10, Decay: 0.05},
			{ID: "AS5", Units: "UG", Location: 0, ATol: 0.001, RTol: 0.001},
			{ID: "AStot", Units: "UG", Location: 0, ATol: 0.001, RTol: 0.001, Initial: 10},
			{ID: "AS5s", Units: "UG", Location: 1, ATol: 0.001, RTol: 0.001},
			{ID: "NH2CL", Units: "MG", Location: 0, ATol: 0.001, RTol: 0.001, Initial: 2.5, Decay: 0.02},
		},
		Terms: []string{"Ks"},
		Constants: []Value{
			{ID: "Ka", Value: 10.0},
			{ID: "Kb", Value: 0.1},
			{ID: "K1", Value: 5.0},
			{ID: "K2", Value: 1.0},
			{ID: "Smax", Value: 50},
		},
		Duration:    48 * 3600,
		QualityStep: 360,
	}
}
