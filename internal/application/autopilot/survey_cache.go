package autopilot

import (
	"sort"
	"sync"

	"github.com/andrescamacho/spacetraders-autopilot/internal/domain/automation"
	"github.com/andrescamacho/spacetraders-autopilot/internal/domain/shared"
)

// SurveyCache keeps unexpired surveys per waypoint for extraction
type SurveyCache struct {
	mu         sync.Mutex
	clock      shared.Clock
	byWaypoint map[string][]automation.Survey
}

func NewSurveyCache(clock shared.Clock) *SurveyCache {
	return &SurveyCache{
		clock:      clock,
		byWaypoint: make(map[string][]automation.Survey),
	}
}

// Add stores surveys under the waypoint each one describes
func (c *SurveyCache) Add(surveys ...automation.Survey) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, s := range surveys {
		c.byWaypoint[s.Waypoint] = append(c.byWaypoint[s.Waypoint], s)
	}
}

// Best returns the most valuable unexpired survey at waypoint: largest size
// first, then most deposits. Expired surveys are pruned on the way.
func (c *SurveyCache) Best(waypoint string) *automation.Survey {
	c.mu.Lock()
	defer c.mu.Unlock()

	live := c.pruneLocked(waypoint)
	if len(live) == 0 {
		return nil
	}
	sort.SliceStable(live, func(i, j int) bool {
		if live[i].Rank() != live[j].Rank() {
			return live[i].Rank() > live[j].Rank()
		}
		return len(live[i].Deposits) > len(live[j].Deposits)
	})
	best := live[0]
	return &best
}

// Has reports whether any unexpired survey exists for waypoint
func (c *SurveyCache) Has(waypoint string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pruneLocked(waypoint)) > 0
}

// Remove evicts a survey, typically after the remote side rejected it
func (c *SurveyCache) Remove(signature string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for waypoint, surveys := range c.byWaypoint {
		kept := surveys[:0]
		for _, s := range surveys {
			if s.Signature != signature {
				kept = append(kept, s)
			}
		}
		if len(kept) == 0 {
			delete(c.byWaypoint, waypoint)
			continue
		}
		c.byWaypoint[waypoint] = kept
	}
}

func (c *SurveyCache) pruneLocked(waypoint string) []automation.Survey {
	now := c.clock.Now()
	surveys := c.byWaypoint[waypoint]
	live := make([]automation.Survey, 0, len(surveys))
	for _, s := range surveys {
		if s.Expiration.IsZero() || s.Expiration.After(now) {
			live = append(live, s)
		}
	}
	if len(live) == 0 {
		delete(c.byWaypoint, waypoint)
		return nil
	}
	c.byWaypoint[waypoint] = live
	return append([]automation.Survey(nil), live...)
}
