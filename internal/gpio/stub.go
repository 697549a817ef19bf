//go:build !linux

package gpio

// Chip is not available on non-Linux platforms.
type Chip struct{}

// Line is not available on non-Linux platforms.
type Line struct{}

// OpenChip returns ErrUnsupported on non-Linux platforms.
func OpenChip(name string) (*Chip, error) {
	return nil, ErrUnsupported
}

func (c *Chip) Input(offset int, activeLow bool) (*Line, error) {
	return nil, ErrUnsupported
}

func (c *Chip) Output(offset int, activeLow bool) (*Line, error) {
	return nil, ErrUnsupported
}

func (c *Chip) Watch(offset int, activeLow bool, fn EdgeFunc) (*Line, error) {
	return nil, ErrUnsupported
}

func (c *Chip) Close() error {
	return nil
}

func (l *Line) Get() (bool, error) {
	return false, ErrUnsupported
}

func (l *Line) Set(on bool) error {
	return ErrUnsupported
}
