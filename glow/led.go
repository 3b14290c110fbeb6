package glow

type Led struct {
	Red   byte
	Green byte
	Blue  byte
}

// True if all components are zero, false otherwise
func (s Led) IsEmpty() bool {
	return s.Red == 0 && s.Green == 0 && s.Blue == 0
}

// Gray returns a Led with all three components set to v.
func Gray(v byte) Led {
	return Led{Red: v, Green: v, Blue: v}
}
