package engine

// releaseSlot holds at most one live object, represented by the function
// that releases it.
type releaseSlot struct {
	release func()
}

// replace releases the current object, then builds the next one. When build
// fails the slot is left empty.
func (s *releaseSlot) replace(build func() (release func(), err error)) error {
	s.clear()

	release, err := build()
	if err != nil {
		return err
	}
	s.release = release
	return nil
}

func (s *releaseSlot) clear() {
	if s.release != nil {
		s.release()
		s.release = nil
	}
}

func (s *releaseSlot) live() bool {
	return s.release != nil
}
