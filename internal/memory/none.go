package memory

// None passes text through unchanged. It gives evaluation matrices a
// no-memory baseline arm.
type None struct{}

// NewNone builds the pass-through method. Settings are ignored.
func NewNone(_ map[string]any) (Method, error) {
	return &None{}, nil
}

func (n *None) Process(text string, _ Options) string {
	return text
}

func (n *None) MethodInfo() Info {
	return Info{
		Method:      "none",
		Version:     "1.0.0",
		Description: "Identity pass-through; applies no memory management",
		Parameters:  []string{},
	}
}

func init() {
	Default.Register("none", NewNone)
}
