package store

import (
	"context"
	"testing"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuestionSave_Idempotent(t *testing.T) {
	s := openTestStore(t)
	f := seedFixture(t, s)

	first := saveQuestion(t, s, f.template.ID, "What keeps a puck sliding?")
	second := saveQuestion(t, s, f.template.ID, "What keeps a puck sliding?")
	assert.Equal(t, first.ID, second.ID)

	other := saveQuestion(t, s, f.template.ID, "Why do passengers lurch forward?")
	assert.NotEqual(t, first.ID, other.ID)
}

func TestQuestionSave_RejectsBadIndex(t *testing.T) {
	s := openTestStore(t)
	f := seedFixture(t, s)

	_, err := s.Questions().Save(context.Background(), &Question{
		TemplateID:    f.template.ID,
		Text:          "q",
		Options:       []string{"a", "b"},
		CorrectOption: 2,
	})
	require.Error(t, err)
}

func TestQuestionRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	f := seedFixture(t, s)

	a := 1.7
	saved, err := s.Questions().Save(ctx, &Question{
		TemplateID:           f.template.ID,
		Text:                 "Pick one",
		Options:              []string{"w", "x", "y", "z"},
		CorrectOption:        3,
		Explanation:          "z is right",
		OptionMisconceptions: []string{"m1", "", "m2", ""},
		Discrimination:       &a,
		Generated:            true,
	})
	require.NoError(t, err)

	got, err := s.Questions().GetByID(ctx, saved.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, []string{"w", "x", "y", "z"}, got.Options)
	assert.Equal(t, 3, got.CorrectOption)
	assert.Equal(t, []string{"m1", "", "m2", ""}, got.OptionMisconceptions)
	require.NotNil(t, got.Discrimination)
	assert.InDelta(t, 1.7, *got.Discrimination, 1e-12)
	assert.Nil(t, got.Guessing)
	assert.True(t, got.Generated)

	missing, err := s.Questions().GetByID(ctx, saved.ID+99)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestGetUnanswered(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	f := seedFixture(t, s)
	const learner = 42

	none, err := s.Questions().GetUnanswered(ctx, f.template.ID, learner)
	require.NoError(t, err)
	assert.Nil(t, none)

	q1 := saveQuestion(t, s, f.template.ID, "first")
	q2 := saveQuestion(t, s, f.template.ID, "second")

	got, err := s.Questions().GetUnanswered(ctx, f.template.ID, learner)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, q1.ID, got.ID)

	_, err = s.Responses().Store(ctx, &Response{
		LearnerID: learner, QuestionID: q1.ID, TemplateID: f.template.ID, ConceptID: f.concept.ID,
		SelectedOption: 1, Correct: true, ResponseTime: 10,
	})
	require.NoError(t, err)

	got, err = s.Questions().GetUnanswered(ctx, f.template.ID, learner)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, q2.ID, got.ID)

	// Another learner still sees the first question.
	got, err = s.Questions().GetUnanswered(ctx, f.template.ID, learner+1)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, q1.ID, got.ID)

	_, err = s.Responses().Store(ctx, &Response{
		LearnerID: learner, QuestionID: q2.ID, TemplateID: f.template.ID, ConceptID: f.concept.ID,
		SelectedOption: 0, ResponseTime: 10,
	})
	require.NoError(t, err)
	got, err = s.Questions().GetUnanswered(ctx, f.template.ID, learner)
	require.NoError(t, err)
	assert.Nil(t, got, "every question answered")
}

func TestUnansweredQuery_FixedArgs(t *testing.T) {
	for _, d := range []string{dialect.SQLite, dialect.Postgres} {
		query, args := unansweredQuery(entsql.Dialect(d), 7, 42).Query()
		assert.Contains(t, query, "NOT IN (SELECT", d)
		assert.Len(t, args, 3, "%s: %s", d, query)
	}
}

func TestRecentTexts(t *testing.T) {
	s := openTestStore(t)
	f := seedFixture(t, s)
	saveQuestion(t, s, f.template.ID, "one")
	saveQuestion(t, s, f.template.ID, "two")
	saveQuestion(t, s, f.template.ID, "three")

	got, err := s.Questions().RecentTexts(context.Background(), f.template.ID, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"three", "two"}, got)
}

func TestGetConceptAndTemplate(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	f := seedFixture(t, s)

	c, err := s.Questions().GetConcept(ctx, f.concept.ID)
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.Equal(t, "Inertia", c.Name)

	tmpl, err := s.Questions().GetTemplate(ctx, f.template.ID)
	require.NoError(t, err)
	require.NotNil(t, tmpl)
	assert.Equal(t, "MCQ", tmpl.AnswerFormat)

	missing, err := s.Questions().GetTemplate(ctx, 9999)
	require.NoError(t, err)
	assert.Nil(t, missing)
}
