package theatremix

// CueInfo is a snapshot of a fired cue as reported by /cuefired.
// Any field may be empty; Color is only meaningful when HasColor is set.
type CueInfo struct {
	Number   string `json:"number"`
	Text     string `json:"text"`
	Color    string `json:"color,omitempty"`
	HasColor bool   `json:"-"`
}

// ColorLabel returns the color descriptor, or fallback when the console sent none.
func (c CueInfo) ColorLabel(fallback string) string {
	if !c.HasColor {
		return fallback
	}
	return c.Color
}

// cueFromArguments fills a CueInfo from the first three /cuefired arguments.
// Missing or non-string arguments leave the field at its default.
func cueFromArguments(args []any) CueInfo {
	var info CueInfo
	if s, ok := stringArg(args, 0); ok {
		info.Number = s
	}
	if s, ok := stringArg(args, 1); ok {
		info.Text = s
	}
	if s, ok := stringArg(args, 2); ok {
		info.Color = s
		info.HasColor = true
	}
	return info
}

func stringArg(args []any, i int) (string, bool) {
	if i >= len(args) {
		return "", false
	}
	s, ok := args[i].(string)
	return s, ok
}
