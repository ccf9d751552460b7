package sevenseg

import "sync"

// MemorySink keeps the last written frame. Used for dry runs and tests.
type MemorySink struct {
	mu     sync.Mutex
	opened bool
	frame  []byte
	writes int

	OpenErr  error
	WriteErr error
	CloseErr error
}

func (s *MemorySink) Open() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.OpenErr != nil {
		return s.OpenErr
	}
	s.opened = true
	return nil
}

func (s *MemorySink) Write(frame []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.WriteErr != nil {
		return s.WriteErr
	}
	s.frame = append(s.frame[:0], frame...)
	s.writes++
	return nil
}

func (s *MemorySink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.opened = false
	return s.CloseErr
}

func (s *MemorySink) Frame() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]byte(nil), s.frame...)
}

func (s *MemorySink) Writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}

func (s *MemorySink) SetWriteErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.WriteErr = err
}
