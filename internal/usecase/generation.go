package usecase

// requestSlot tracks the newest outstanding request of one kind. A response
// is accepted only while its generation is still the slot's generation.
// Callers guard a slot with their own mutex.
type requestSlot struct {
	generation uint64
	pending    bool
}

func (s *requestSlot) begin() uint64 {
	s.generation++
	s.pending = true
	return s.generation
}

// beginFrom starts a request only if nothing touched the slot since the
// caller observed generation.
func (s *requestSlot) beginFrom(observed uint64) (uint64, bool) {
	if observed != s.generation {
		return 0, false
	}
	return s.begin(), true
}

// settle closes the request if it is still current.
func (s *requestSlot) settle(generation uint64) bool {
	if generation != s.generation {
		return false
	}
	s.pending = false
	return true
}

func (s *requestSlot) invalidate() {
	s.generation++
	s.pending = false
}
