package timeline

// ColorStop is one stop of a linear gradient
type ColorStop struct {
	Color  string  `json:"color"`
	Offset float64 `json:"offset"`
}

// Background is the gradient drawn beneath scene content
type Background struct {
	AngleDegrees int         `json:"angleDegrees"`
	Stops        []ColorStop `json:"stops"`
}

var backgrounds = map[string]Background{
	"cinematic": gradient("#1a1a2e", "#16213e", "#0f3460"),
	"vibrant":   gradient("#2d132c", "#801336", "#c72c41"),
	"slowmo":    gradient("#0f2027", "#203a43", "#2c5364"),
	"minimal":   gradient("#232526", "#414345"),
	"rustic":    gradient("#3e2723", "#5d4037", "#8d6e63"),
	"luxury":    gradient("#0f0c29", "#302b63", "#24243e"),
}

var defaultBackground = gradient("#1a1a2e", "#16213e")

// gradient spreads colors evenly along a 135 degree diagonal.
func gradient(colors ...string) Background {
	stops := make([]ColorStop, len(colors))
	for i, c := range colors {
		stops[i] = ColorStop{Color: c, Offset: float64(i) / float64(len(colors)-1)}
	}
	return Background{AngleDegrees: 135, Stops: stops}
}

// BackgroundFor returns the gradient for a style, or the default one.
func BackgroundFor(styleID string) Background {
	bg, ok := backgrounds[styleID]
	if !ok {
		bg = defaultBackground
	}
	return Background{AngleDegrees: bg.AngleDegrees, Stops: append([]ColorStop(nil), bg.Stops...)}
}
