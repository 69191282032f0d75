package api

import (
	"strconv"

	domainerrors "github.com/shelfwise/shelfwise-server/internal/errors"
	"github.com/shelfwise/shelfwise-server/internal/ratelimit"
)

// submissionBurst lets a publisher send a few batches back to back before the
// per-minute rate applies.
const submissionBurst = 3

// NewSubmissionLimiter creates the per-publisher batch submission limiter.
func NewSubmissionLimiter(perMinute float64) *ratelimit.KeyedRateLimiter {
	return ratelimit.New(ratelimit.PerMinute(perMinute), submissionBurst)
}

// allowSubmission returns a 429 error when publisherID has used up its submissions.
func (s *Server) allowSubmission(publisherID int64) error {
	if s.submitLimiter == nil {
		return nil
	}
	if !s.submitLimiter.Allow(strconv.FormatInt(publisherID, 10)) {
		s.logger.Warn("submission rate limit exceeded", "publisher_id", publisherID)
		return domainerrors.TooManyRequests("Too many batch submissions. Please try again later.")
	}
	return nil
}
