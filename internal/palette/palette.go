package palette

// Default is the color cycle handed out to players in first-observed order.
var Default = []string{
	"#e6194b", // red
	"#3cb44b", // green
	"#4363d8", // blue
	"#f58231", // orange
	"#911eb4", // purple
	"#42d4f4", // cyan
	"#f032e6", // magenta
	"#9a6324", // brown
}

// Assignor hands out colors by cyclic index over a fixed palette. Once an id
// has a color it keeps it for the lifetime of the Assignor.
type Assignor struct {
	colors   []string
	assigned map[string]string
	observed int
}

func New(colors []string) *Assignor {
	if len(colors) == 0 {
		colors = Default
	}
	return &Assignor{
		colors:   append([]string(nil), colors...),
		assigned: make(map[string]string),
	}
}

// Assign returns the color for id, allocating palette[observed mod size] the
// first time id is seen.
func (a *Assignor) Assign(id string) string {
	if c, ok := a.assigned[id]; ok {
		return c
	}
	c := a.colors[a.observed%len(a.colors)]
	a.assigned[id] = c
	a.observed++
	return c
}

func (a *Assignor) Lookup(id string) (string, bool) {
	c, ok := a.assigned[id]
	return c, ok
}

// Observed is the number of distinct ids seen so far.
func (a *Assignor) Observed() int { return a.observed }

func (a *Assignor) Size() int { return len(a.colors) }
