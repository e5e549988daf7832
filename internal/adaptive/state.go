package adaptive

import (
	"context"
	"fmt"

	"github.com/abhisek/quizadapt/internal/store"
)

// LearnerState is a per-request snapshot of a learner. It is never stored.
type LearnerState struct {
	LearnerID       int64
	TopicID         int64
	GlobalAbility   float64
	RecentAccuracy  float64
	AvgResponseTime float64
	Mastery         map[int64]float64
}

// StateBuilder assembles a LearnerState from the repositories.
type StateBuilder struct {
	responses store.ResponseRepo
	learners  store.LearnerRepo
	cfg       Config
}

// NewStateBuilder creates a StateBuilder.
func NewStateBuilder(responses store.ResponseRepo, learners store.LearnerRepo, cfg Config) *StateBuilder {
	return &StateBuilder{responses: responses, learners: learners, cfg: cfg}
}

// Build reads the learner's recent responses, ability and mastery.
func (b *StateBuilder) Build(ctx context.Context, learnerID, topicID int64) (*LearnerState, error) {
	recent, err := b.responses.Recent(ctx, learnerID, b.cfg.RecentWindow)
	if err != nil {
		return nil, fmt.Errorf("recent responses: %w", err)
	}
	ability, err := b.learners.GlobalAbility(ctx, learnerID)
	if err != nil {
		return nil, fmt.Errorf("global ability: %w", err)
	}
	mastery, err := b.learners.ConceptMastery(ctx, learnerID)
	if err != nil {
		return nil, fmt.Errorf("concept mastery: %w", err)
	}
	if mastery == nil {
		mastery = map[int64]float64{}
	}

	st := &LearnerState{
		LearnerID:       learnerID,
		TopicID:         topicID,
		GlobalAbility:   ability,
		RecentAccuracy:  b.cfg.DefaultAccuracy,
		AvgResponseTime: b.cfg.DefaultResponseTime,
		Mastery:         mastery,
	}
	if len(recent) > 0 {
		var correct int
		var total float64
		for _, r := range recent {
			if r.Correct {
				correct++
			}
			total += r.ResponseTime
		}
		st.RecentAccuracy = float64(correct) / float64(len(recent))
		st.AvgResponseTime = total / float64(len(recent))
	}
	return st, nil
}
