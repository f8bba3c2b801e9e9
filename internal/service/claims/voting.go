package claims

import (
	"context"

	"github.com/google/uuid"

	"github.com/freelanceshield/claims-engine/internal/domain/claim"
	apperrors "github.com/freelanceshield/claims-engine/internal/domain/errors"
)

// CastVote records one community vote on a claim under review.
func (s *Service) CastVote(ctx context.Context, claimID, voter uuid.UUID, approve bool, reason string) (*claim.Claim, error) {
	c, err := s.claims.GetByID(ctx, claimID)
	if err != nil {
		return nil, apperrors.NewNotFoundError("claim").WithCause(err)
	}
	if voter == c.Claimant || voter == c.Respondent {
		return nil, apperrors.NewUnauthorizedError("claim parties cannot vote on their own claim")
	}
	if err := c.AddVote(voter, approve, reason); err != nil {
		return nil, err
	}
	if err := s.claims.Update(ctx, c); err != nil {
		return nil, apperrors.NewInternalError("updating claim").WithCause(err)
	}
	s.emit(EventVoteCast, c, voter, nil, map[string]interface{}{
		"approve": approve,
	})
	return c, nil
}

// FinalizeVoting tallies community votes once voting has closed. A quorum
// and a strict majority are both required; otherwise the claim stays under
// review. An early finalize is allowed when participation reaches twice
// the quorum.
func (s *Service) FinalizeVoting(ctx context.Context, claimID uuid.UUID) (*claim.Claim, error) {
	c, err := s.claims.GetByID(ctx, claimID)
	if err != nil {
		return nil, apperrors.NewNotFoundError("claim").WithCause(err)
	}
	if c.Status != claim.StatusUnderReview {
		return nil, apperrors.ErrInvalidClaimStatus
	}

	approve, reject := c.TallyVotes()
	total := approve + reject

	votingOpen := c.VotingEndsAt != nil && s.clock.Now().Before(*c.VotingEndsAt)
	if votingOpen && total < 2*s.config.MinVotes {
		return nil, apperrors.NewBusinessError("VOTING_STILL_OPEN", "voting period has not ended")
	}
	if total < s.config.MinVotes {
		return nil, apperrors.NewBusinessError("QUORUM_NOT_MET", "not enough votes to finalize").
			WithDetails(map[string]interface{}{"votes": total, "quorum": s.config.MinVotes})
	}
	if approve == reject {
		return nil, apperrors.NewBusinessError("VOTE_TIED", "tied vote leaves the claim pending")
	}

	hist, err := s.histories.GetByClaimant(ctx, c.Claimant)
	if err != nil {
		return nil, apperrors.NewInternalError("loading claimant history").WithCause(err)
	}

	if approve > reject {
		return s.approveClaim(ctx, c, hist, uuid.Nil, claim.ProcessorCommunity, "community vote approved")
	}
	return s.rejectClaim(ctx, c, hist, uuid.Nil, claim.ProcessorCommunity, "community vote rejected", false)
}
