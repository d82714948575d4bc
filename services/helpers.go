package services

import (
	"context"
	"fmt"

	"github.com/Dosada05/fencing-club/repositories"
)

// requireGymMembers fails unless every id belongs to the gym.
func requireGymMembers(ctx context.Context, repo repositories.MemberRepository, gymID int, ids []int) error {
	members, err := repo.ListByIDs(ctx, ids)
	if err != nil {
		return fmt.Errorf("failed to load members: %w", err)
	}
	inGym := make(map[int]bool, len(members))
	for _, m := range members {
		if m.GymID == gymID {
			inGym[m.ID] = true
		}
	}
	for _, id := range ids {
		if !inGym[id] {
			return fmt.Errorf("%w: member %d, gym %d", ErrAthleteNotInGym, id, gymID)
		}
	}
	return nil
}
