package adaptive

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/quizadapt/internal/store"
)

func TestStateBuilder_Defaults(t *testing.T) {
	env := newTestEnv(t)
	b := NewStateBuilder(env.store.Responses(), env.store.Learners(), DefaultConfig())

	st, err := b.Build(context.Background(), learner, env.topic.ID)
	require.NoError(t, err)
	assert.Equal(t, 0.0, st.GlobalAbility)
	assert.Equal(t, 0.5, st.RecentAccuracy)
	assert.Equal(t, 30.0, st.AvgResponseTime)
	assert.NotNil(t, st.Mastery)
	assert.Empty(t, st.Mastery)
}

func TestStateBuilder_RecentWindow(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	cfg := DefaultConfig()
	cfg.RecentWindow = 2

	// Oldest first: wrong at 100s, then two correct answers at 10s and 20s.
	for i, r := range []struct {
		correct bool
		secs    float64
	}{{false, 100}, {true, 10}, {true, 20}} {
		q := env.saveQuestion(t, []string{"q1", "q2", "q3"}[i])
		_, err := env.store.Responses().Store(ctx, &store.Response{
			LearnerID: learner, QuestionID: q.ID, TemplateID: env.template.ID, ConceptID: env.concept.ID,
			Correct: r.correct, ResponseTime: r.secs,
		})
		require.NoError(t, err)
	}
	require.NoError(t, env.store.Learners().UpdateGlobalAbility(ctx, learner, 1.25))

	st, err := NewStateBuilder(env.store.Responses(), env.store.Learners(), cfg).Build(ctx, learner, env.topic.ID)
	require.NoError(t, err)
	assert.Equal(t, 1.25, st.GlobalAbility)
	assert.Equal(t, 1.0, st.RecentAccuracy)
	assert.Equal(t, 15.0, st.AvgResponseTime)
}
