package extract

import (
	"sync"

	"github.com/Assassin199108/pokemon-agent-backend/models"
)

// Statistics aggregates extraction outcomes for the current process
type Statistics struct {
	mu        sync.Mutex
	total     int
	success   int
	qualities []float64
}

func NewStatistics() *Statistics {
	return &Statistics{}
}

func (s *Statistics) Record(success bool, quality float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.total++
	if success {
		s.success++
		s.qualities = append(s.qualities, quality)
	}
}

func (s *Statistics) Snapshot() models.ExtractionStats {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := models.ExtractionStats{Total: s.total, Successful: s.success}
	if len(s.qualities) == 0 {
		return out
	}
	sum := 0.0
	out.MinQuality = s.qualities[0]
	out.MaxQuality = s.qualities[0]
	for _, q := range s.qualities {
		sum += q
		if q < out.MinQuality {
			out.MinQuality = q
		}
		if q > out.MaxQuality {
			out.MaxQuality = q
		}
	}
	out.AvgQuality = sum / float64(len(s.qualities))
	return out
}
