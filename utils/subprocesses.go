package utils

import "sync"

// Subprocesses tracks goroutines started with Go so they can be awaited together.
type Subprocesses struct {
	wg sync.WaitGroup
}

func (s *Subprocesses) Go(fn func()) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		fn()
	}()
}

func (s *Subprocesses) Wait() {
	s.wg.Wait()
}
