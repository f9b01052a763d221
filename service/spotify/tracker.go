package spotify

import (
	"context"
	"time"
)

// StartHistoryTracker polls the recently-played endpoint on an interval and
// records new plays. Writes go through InsertIgnore, so seeing the same item
// on every poll until the next track plays does not duplicate rows.
func (s *Service) StartHistoryTracker(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for range ticker.C {
		s.recordRecentPlay()
	}
}

func (s *Service) recordRecentPlay() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	item, err := s.fetchRecentItem(ctx)
	if err != nil {
		s.logger.Error("history tracker fetch failed", "err", err)
		return
	}
	if item == nil {
		return
	}

	inserted, err := s.DB.InsertIgnore(historyRecord(*item))
	if err != nil {
		s.logger.Error("history tracker insert failed", "err", err)
		return
	}

	if inserted {
		s.logger.Info("recorded play", "song", item.Track.Name, "played_at", item.PlayedAt)
	}
}
