package api

import (
	"sync"

	"github.com/google/uuid"
)

// ResultStore keeps finished multiplications until they are deleted.
type ResultStore struct {
	mu      sync.Mutex
	results map[string]MultiplyResponse
}

func NewResultStore() *ResultStore {
	return &ResultStore{
		results: make(map[string]MultiplyResponse),
	}
}

// Create assigns an id to resp and stores it.
func (s *ResultStore) Create(resp MultiplyResponse) MultiplyResponse {
	resp.ID = newResultID()
	resp.Object = "multiplication"
	s.mu.Lock()
	s.results[resp.ID] = resp
	s.mu.Unlock()
	return resp
}

func (s *ResultStore) Get(id string) (MultiplyResponse, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	resp, ok := s.results[id]
	return resp, ok
}

func (s *ResultStore) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.results[id]; !ok {
		return false
	}
	delete(s.results, id)
	return true
}

func (s *ResultStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.results)
}

func newResultID() string {
	return "mul_" + uuid.NewString()
}
