package service

import (
	"context"
	"regexp"
	"sort"
)

const maxRecommendations = 10

var (
	quietPurposeRe = regexp.MustCompile(`(?i)study|review|quiet`)
	groupPurposeRe = regexp.MustCompile(`(?i)tambay|group|collab|meeting`)
	quietAmenityRe = regexp.MustCompile(`(?i)air conditioning|whiteboard|smart tv`)
	groupAmenityRe = regexp.MustCompile(`(?i)wifi|projector|smart tv`)
)

// Recommendations ranks rooms for the given purpose and group size: free
// rooms first, then capacity fit, with a small bump for amenities matching
// the purpose keywords. Scoring is a convenience heuristic on top of the
// availability projection, not part of the lifecycle rules.
func (s *availabilityService) Recommendations(ctx context.Context, purpose string, groupSize int, date, at string) ([]RoomStatus, error) {
	statuses, err := s.RoomsWithStatus(ctx, date, at)
	if err != nil {
		return nil, err
	}

	type scored struct {
		status RoomStatus
		score  int
	}
	ranked := make([]scored, 0, len(statuses))
	for _, st := range statuses {
		ranked = append(ranked, scored{st, scoreRoom(st, purpose, groupSize)})
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].score > ranked[j].score })

	n := len(ranked)
	if n > maxRecommendations {
		n = maxRecommendations
	}
	out := make([]RoomStatus, 0, n)
	for _, r := range ranked[:n] {
		out = append(out, r.status)
	}
	return out, nil
}

func scoreRoom(st RoomStatus, purpose string, groupSize int) int {
	score := 0
	if !st.Occupied {
		score += 100
	}
	if groupSize > 0 {
		diff := st.Room.Capacity - groupSize
		if diff < 0 {
			diff = -diff
		}
		if diff < 50 {
			score += 50 - diff
		}
	}
	if purpose == "" {
		return score
	}
	wantQuiet := quietPurposeRe.MatchString(purpose)
	wantGroup := groupPurposeRe.MatchString(purpose)
	for _, amenity := range st.Room.Amenities {
		if wantQuiet && quietAmenityRe.MatchString(amenity) {
			score += 10
			wantQuiet = false
		}
		if wantGroup && groupAmenityRe.MatchString(amenity) {
			score += 10
			wantGroup = false
		}
	}
	return score
}
