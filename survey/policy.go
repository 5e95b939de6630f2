package survey

import (
	"context"

	"github.com/pollwise/pollwise/model"
)

// CheckAccess decides whether a requester may view or submit to a
// survey. Both operations are gated by the same rules: anonymous
// surveys are open to everyone; otherwise the requester must be
// authenticated, the survey still open, and (unless the survey allows
// multiple submissions) must not have submitted before.
//
// requesterID is empty when the request carried no valid access token.
func (s *Store) CheckAccess(ctx context.Context, sv *model.Survey, requesterID string) error {
	if sv.IsAnonymous {
		return nil
	}
	if requesterID == "" {
		return model.ErrUnauthenticated
	}
	if sv.Closed(s.now()) {
		return model.ErrSurveyClosed
	}
	if !sv.SendMultipleTimes {
		submitted, err := s.HasSubmission(ctx, sv.ID, requesterID)
		if err != nil {
			return err
		}
		if submitted {
			return model.ErrAlreadySubmitted
		}
	}
	return nil
}
