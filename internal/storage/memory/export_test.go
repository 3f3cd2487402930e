package memory

// LockCount возвращает число заведённых каналов-блокировок строк.
func (s *Store) LockCount() int {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()
	return len(s.locks)
}
