package services

import "sync"

// Badge is the current icon label and background color.
type Badge struct {
	Text  string `json:"text"`
	Color string `json:"color"`
}

// BadgeService holds the latest badge state for the browser shim to
// poll. It implements the engine's BadgeWriter collaborator.
type BadgeService struct {
	mu      sync.Mutex
	current Badge
}

// NewBadgeService creates a new badge service
func NewBadgeService() *BadgeService {
	return &BadgeService{}
}

// SetBadge replaces the current badge state.
func (s *BadgeService) SetBadge(text, color string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = Badge{Text: text, Color: color}
}

// Current returns the latest badge state.
func (s *BadgeService) Current() Badge {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}
