package service

import "time"

// SetClock pins the promotion clock for deterministic weekday and
// window checks in tests.
func (s *PromotionService) SetClock(now func() time.Time) {
	s.now = now
}
