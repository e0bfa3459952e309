package creature

// Sequence hands out creature ids. Each simulation owns one, so tests can
// start from a known id.
type Sequence struct {
	nextID uint32
}

// NewSequence creates a sequence whose first id is 1.
func NewSequence() *Sequence {
	return &Sequence{nextID: 1}
}

// Next returns the next unique id.
func (s *Sequence) Next() uint32 {
	id := s.nextID
	s.nextID++
	return id
}

// Reset restarts the sequence at 1.
func (s *Sequence) Reset() { s.nextID = 1 }
