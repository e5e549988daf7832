// Package adaptive selects the next question for a learner and updates the
// learner's ability, mastery and bandit statistics after each answer.
package adaptive

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/abhisek/quizadapt/internal/bandit"
	"github.com/abhisek/quizadapt/internal/genlock"
	"github.com/abhisek/quizadapt/internal/irt"
	"github.com/abhisek/quizadapt/internal/logger"
	"github.com/abhisek/quizadapt/internal/mastery"
	"github.com/abhisek/quizadapt/internal/store"
)

const tracerName = "github.com/abhisek/quizadapt/internal/adaptive"

// Deps are the collaborators of an Engine. Generator, Guard, Sampler,
// Metrics and Logger are optional.
type Deps struct {
	Templates store.TemplateSource
	Questions store.QuestionRepo
	Responses store.ResponseRepo
	Learners  store.LearnerRepo
	Sessions  store.SessionRepo

	Generator QuestionGenerator
	Guard     genlock.Guard
	Sampler   *bandit.Sampler
	Metrics   Recorder
	Logger    *logger.Logger
}

// Engine composes the estimators into the session, selection and grading
// loop. It holds no learner state of its own and is safe for concurrent
// use.
type Engine struct {
	templates store.TemplateSource
	questions store.QuestionRepo
	responses store.ResponseRepo
	learners  store.LearnerRepo
	sessions  store.SessionRepo

	state     *StateBuilder
	provider  *QuestionProvider
	estimator *irt.Estimator
	tracer    *mastery.Tracer
	sampler   *bandit.Sampler

	cfg     Config
	metrics Recorder
	log     *logger.Logger
	spans   trace.Tracer
	now     func() time.Time
}

// New creates an Engine.
func New(deps Deps, cfg Config) (*Engine, error) {
	switch {
	case deps.Templates == nil:
		return nil, errors.New("adaptive: template source is required")
	case deps.Questions == nil:
		return nil, errors.New("adaptive: question repository is required")
	case deps.Responses == nil:
		return nil, errors.New("adaptive: response repository is required")
	case deps.Learners == nil:
		return nil, errors.New("adaptive: learner repository is required")
	case deps.Sessions == nil:
		return nil, errors.New("adaptive: session repository is required")
	}

	log := deps.Logger
	if log == nil {
		log = logger.Nop()
	}
	log = log.With("component", "adaptive")
	rec := deps.Metrics
	if rec == nil {
		rec = nopRecorder{}
	}
	sampler := deps.Sampler
	if sampler == nil {
		sampler = bandit.NewSampler(nil, bandit.UniformPrior)
	}

	return &Engine{
		templates: deps.Templates,
		questions: deps.Questions,
		responses: deps.Responses,
		learners:  deps.Learners,
		sessions:  deps.Sessions,
		state:     NewStateBuilder(deps.Responses, deps.Learners, cfg),
		provider:  NewQuestionProvider(deps.Questions, deps.Generator, deps.Guard, cfg, rec, log),
		estimator: irt.NewEstimator(cfg.IRT),
		tracer:    mastery.NewTracer(cfg.Mastery),
		sampler:   sampler,
		cfg:       cfg,
		metrics:   rec,
		log:       log,
		spans:     otel.Tracer(tracerName),
		now:       time.Now,
	}, nil
}

// StartSession returns the learner's active session for the topic, or
// creates one.
func (e *Engine) StartSession(ctx context.Context, learnerID, subjectID, topicID int64) (_ *SessionInfo, err error) {
	ctx, span := e.spans.Start(ctx, "adaptive.StartSession", trace.WithAttributes(
		attribute.Int64("learner.id", learnerID), attribute.Int64("topic.id", topicID)))
	defer func() { endSpan(span, err) }()

	active, err := e.sessions.GetActive(ctx, learnerID, topicID)
	if err != nil {
		return nil, fmt.Errorf("active session: %w", err)
	}
	if active != nil {
		e.metrics.SessionStarted(true)
		e.log.Info("session resumed", "session_id", active.ID, "learner_id", learnerID, "topic_id", topicID)
		return sessionInfo(active, true), nil
	}

	s, err := e.sessions.Create(ctx, learnerID, subjectID, topicID)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	e.metrics.SessionStarted(false)
	e.log.Info("session started", "session_id", s.ID, "learner_id", learnerID,
		"subject_id", subjectID, "topic_id", topicID)
	return sessionInfo(s, false), nil
}

// NextQuestion picks a template for the learner and resolves it to a
// question.
func (e *Engine) NextQuestion(ctx context.Context, learnerID, topicID int64) (_ *NextQuestion, err error) {
	ctx, span := e.spans.Start(ctx, "adaptive.NextQuestion", trace.WithAttributes(
		attribute.Int64("learner.id", learnerID), attribute.Int64("topic.id", topicID)))
	defer func() { endSpan(span, err) }()

	st, err := e.state.Build(ctx, learnerID, topicID)
	if err != nil {
		return nil, fmt.Errorf("learner state: %w", err)
	}

	templates, err := e.templates.ListCandidateTemplates(ctx, topicID)
	if err != nil {
		return nil, fmt.Errorf("candidate templates: %w", err)
	}
	if len(templates) == 0 {
		return nil, invalid(ErrNoTemplates)
	}
	candidates := FilterZPD(templates, st.Mastery, e.cfg.ZPD)

	stats, err := e.responses.BanditStats(ctx, learnerID)
	if err != nil {
		return nil, fmt.Errorf("bandit stats: %w", err)
	}
	ids := make([]int64, len(candidates))
	for i, t := range candidates {
		ids[i] = t.ID
	}
	idx, err := e.sampler.Select(ids, banditParams(stats))
	if err != nil {
		return nil, invalid(ErrNoTemplates)
	}
	chosen := candidates[idx]
	span.SetAttributes(attribute.Int64("template.id", chosen.ID), attribute.Int("candidates", len(candidates)))

	q, generated, err := e.provider.Resolve(ctx, chosen, st)
	if err != nil {
		return nil, err
	}

	var sessionID int64
	active, err := e.sessions.GetActive(ctx, learnerID, topicID)
	if err != nil {
		return nil, fmt.Errorf("active session: %w", err)
	}
	if active != nil {
		sessionID = active.ID
	}

	source := "cache"
	if generated {
		source = "generated"
	}
	e.metrics.QuestionServed(source)
	e.log.Info("question served", "learner_id", learnerID, "topic_id", topicID, "template_id", chosen.ID,
		"question_id", q.ID, "source", source, "candidates", len(candidates), "of", len(templates))

	return &NextQuestion{
		QuestionID:        q.ID,
		TemplateID:        chosen.ID,
		ConceptID:         chosen.ConceptID,
		Text:              q.Text,
		Options:           q.Options,
		CorrectOption:     q.CorrectOption,
		Explanation:       q.Explanation,
		Difficulty:        chosen.TargetDifficulty,
		LearningObjective: chosen.LearningObjective,
		SessionID:         sessionID,
		Generated:         generated,
		ServedAt:          e.now().UTC(),
	}, nil
}

// NextInSession is NextQuestion scoped to an active session the learner
// owns.
func (e *Engine) NextInSession(ctx context.Context, learnerID, sessionID int64) (*NextQuestion, error) {
	s, err := e.ownedActiveSession(ctx, learnerID, sessionID)
	if err != nil {
		return nil, err
	}
	return e.NextQuestion(ctx, learnerID, s.TopicID)
}

// ProcessResponse grades an answer and, for a first submission, updates
// the session counters, ability, mastery and bandit statistics. A repeat
// submission of the same question returns the first result and changes
// nothing.
func (e *Engine) ProcessResponse(ctx context.Context, in ResponseInput) (_ *Feedback, err error) {
	ctx, span := e.spans.Start(ctx, "adaptive.ProcessResponse", trace.WithAttributes(
		attribute.Int64("learner.id", in.LearnerID), attribute.Int64("question.id", in.QuestionID)))
	defer func() { endSpan(span, err) }()

	q, err := e.questions.GetByID(ctx, in.QuestionID)
	if err != nil {
		return nil, fmt.Errorf("question: %w", err)
	}
	if q == nil {
		return nil, notFound("question", in.QuestionID)
	}
	tmpl, err := e.questions.GetTemplate(ctx, q.TemplateID)
	if err != nil {
		return nil, fmt.Errorf("template: %w", err)
	}
	if tmpl == nil {
		return nil, notFound("template", q.TemplateID)
	}

	if in.SelectedOption < 0 || in.SelectedOption >= len(q.Options) {
		return nil, invalidf("selected option %d out of range [0, %d)", in.SelectedOption, len(q.Options))
	}
	if in.ResponseTime < 0 || math.IsNaN(in.ResponseTime) || math.IsInf(in.ResponseTime, 0) {
		return nil, invalidf("response time must be a non-negative number of seconds")
	}
	// A repeat is answered from the first result even if its session has
	// ended since.
	prev, err := e.responses.Get(ctx, in.LearnerID, q.ID)
	if err != nil {
		return nil, fmt.Errorf("existing response: %w", err)
	}
	if prev != nil {
		return e.duplicateFeedback(ctx, in, q, tmpl, prev)
	}
	if in.SessionID != 0 {
		if _, err := e.ownedActiveSession(ctx, in.LearnerID, in.SessionID); err != nil {
			return nil, err
		}
	}

	correct := in.SelectedOption == q.CorrectOption
	misconception := DetectMisconception(q, tmpl, in.SelectedOption, correct)

	// Read before the insert so the new answer is not counted twice.
	history, err := e.responses.HistoryWithItemParams(ctx, in.LearnerID)
	if err != nil {
		return nil, fmt.Errorf("response history: %w", err)
	}

	outcome, err := e.responses.Store(ctx, &store.Response{
		LearnerID:      in.LearnerID,
		SessionID:      in.SessionID,
		QuestionID:     q.ID,
		TemplateID:     tmpl.ID,
		ConceptID:      tmpl.ConceptID,
		SelectedOption: in.SelectedOption,
		Correct:        correct,
		ResponseTime:   in.ResponseTime,
		Misconception:  misconception,
	})
	if err != nil {
		return nil, fmt.Errorf("store response: %w", err)
	}
	if outcome == store.Duplicate {
		// Lost a race with a concurrent submission.
		prev, err := e.responses.Get(ctx, in.LearnerID, q.ID)
		if err != nil {
			return nil, fmt.Errorf("existing response: %w", err)
		}
		if prev == nil {
			return nil, fmt.Errorf("response for learner %d question %d conflicted but cannot be read", in.LearnerID, q.ID)
		}
		return e.duplicateFeedback(ctx, in, q, tmpl, prev)
	}

	if in.SessionID != 0 {
		if err := e.sessions.UpdateMetrics(ctx, in.SessionID, correct); err != nil {
			return nil, fmt.Errorf("session metrics: %w", err)
		}
	}

	ability, err := e.updateAbility(ctx, in.LearnerID, history, q, tmpl, correct)
	if err != nil {
		return nil, err
	}
	conceptMastery, err := e.updateMastery(ctx, in.LearnerID, tmpl.ConceptID, correct)
	if err != nil {
		return nil, err
	}
	reward, err := e.updateBandit(ctx, in.LearnerID, tmpl, correct, in.ResponseTime)
	if err != nil {
		return nil, err
	}

	e.metrics.ResponseGraded(correct, false)
	e.log.Info("response graded", "learner_id", in.LearnerID, "question_id", q.ID, "template_id", tmpl.ID,
		"correct", correct, "misconception", misconception, "ability", ability,
		"mastery", conceptMastery, "reward", reward)

	return &Feedback{
		Correct:         correct,
		CorrectOption:   q.CorrectOption,
		Explanation:     q.Explanation,
		UpdatedMastery:  conceptMastery,
		GlobalAbility:   ability,
		Misconception:   misconception,
		SuggestedReview: conceptMastery < e.cfg.ReviewThreshold,
	}, nil
}

// EndSession closes an active session the learner owns.
func (e *Engine) EndSession(ctx context.Context, learnerID, sessionID int64) (_ *SessionSummary, err error) {
	ctx, span := e.spans.Start(ctx, "adaptive.EndSession", trace.WithAttributes(
		attribute.Int64("learner.id", learnerID), attribute.Int64("session.id", sessionID)))
	defer func() { endSpan(span, err) }()

	if _, err := e.ownedActiveSession(ctx, learnerID, sessionID); err != nil {
		return nil, err
	}
	s, err := e.sessions.End(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("end session: %w", err)
	}
	if s == nil {
		// Ended concurrently between the check and the update.
		return nil, invalid(ErrSessionEnded)
	}

	e.metrics.SessionEnded()
	sum := summarize(s)
	e.log.Info("session ended", "session_id", s.ID, "learner_id", learnerID,
		"attempted", sum.Attempted, "correct", sum.Correct, "duration", sum.Duration)
	return sum, nil
}

// LearnerProfile returns the learner's ability and per-concept mastery.
func (e *Engine) LearnerProfile(ctx context.Context, learnerID int64) (*Profile, error) {
	ability, err := e.learners.GlobalAbility(ctx, learnerID)
	if err != nil {
		return nil, fmt.Errorf("global ability: %w", err)
	}
	m, err := e.learners.ConceptMastery(ctx, learnerID)
	if err != nil {
		return nil, fmt.Errorf("concept mastery: %w", err)
	}
	if m == nil {
		m = map[int64]float64{}
	}
	return &Profile{LearnerID: learnerID, GlobalAbility: ability, Mastery: m}, nil
}

func (e *Engine) ownedActiveSession(ctx context.Context, learnerID, sessionID int64) (*store.Session, error) {
	s, err := e.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("session: %w", err)
	}
	if s == nil {
		return nil, notFound("session", sessionID)
	}
	if s.LearnerID != learnerID {
		return nil, invalid(ErrSessionOwnership)
	}
	if !s.Active() {
		return nil, invalid(ErrSessionEnded)
	}
	return s, nil
}

func (e *Engine) duplicateFeedback(ctx context.Context, in ResponseInput, q *store.Question, tmpl *store.Template, prev *store.Response) (*Feedback, error) {
	ability, err := e.learners.GlobalAbility(ctx, in.LearnerID)
	if err != nil {
		return nil, fmt.Errorf("global ability: %w", err)
	}
	all, err := e.learners.ConceptMastery(ctx, in.LearnerID)
	if err != nil {
		return nil, fmt.Errorf("concept mastery: %w", err)
	}
	m, ok := all[tmpl.ConceptID]
	if !ok {
		m = e.tracer.Prior()
	}

	e.metrics.ResponseGraded(prev.Correct, true)
	e.log.Warn("duplicate response ignored", "learner_id", in.LearnerID, "question_id", q.ID,
		"first_selected", prev.SelectedOption, "selected", in.SelectedOption)

	return &Feedback{
		Correct:         prev.Correct,
		CorrectOption:   q.CorrectOption,
		Explanation:     q.Explanation,
		UpdatedMastery:  m,
		GlobalAbility:   ability,
		Misconception:   prev.Misconception,
		SuggestedReview: m < e.cfg.ReviewThreshold,
		Duplicate:       true,
	}, nil
}

func (e *Engine) updateAbility(ctx context.Context, learnerID int64, history []store.ItemHistory, q *store.Question, tmpl *store.Template, correct bool) (float64, error) {
	seed, err := e.learners.GlobalAbility(ctx, learnerID)
	if err != nil {
		return 0, fmt.Errorf("global ability: %w", err)
	}

	cfg := e.estimator.Config()
	obs := make([]irt.Observation, len(history))
	for i, h := range history {
		obs[i] = irt.Observation{
			Item:    cfg.ItemFromDifficulty(h.TemplateDifficulty, h.Discrimination, h.Guessing),
			Correct: h.Correct,
		}
	}
	next := irt.Observation{
		Item:    cfg.ItemFromDifficulty(tmpl.TargetDifficulty, q.Discrimination, q.Guessing),
		Correct: correct,
	}

	theta := e.estimator.Estimate(seed, obs, next)
	if err := e.learners.UpdateGlobalAbility(ctx, learnerID, theta); err != nil {
		return 0, fmt.Errorf("update global ability: %w", err)
	}
	return theta, nil
}

func (e *Engine) updateMastery(ctx context.Context, learnerID, conceptID int64, correct bool) (float64, error) {
	current, err := e.learners.ConceptMastery(ctx, learnerID)
	if err != nil {
		return 0, fmt.Errorf("concept mastery: %w", err)
	}
	prior, ok := current[conceptID]
	if !ok {
		prior = e.tracer.Prior()
	}
	posterior := e.tracer.Update(prior, correct)
	if err := e.learners.UpdateConceptMastery(ctx, learnerID, conceptID, posterior); err != nil {
		return 0, fmt.Errorf("update concept mastery: %w", err)
	}

	prereqs, err := e.learners.Prerequisites(ctx, conceptID)
	if err != nil {
		return 0, fmt.Errorf("prerequisites: %w", err)
	}
	nudged := e.tracer.Propagate(prereqs, current, correct)
	for _, id := range prereqs {
		m, ok := nudged[id]
		if !ok {
			continue
		}
		if err := e.learners.UpdateConceptMastery(ctx, learnerID, id, m); err != nil {
			return 0, fmt.Errorf("update prerequisite mastery: %w", err)
		}
	}
	return posterior, nil
}

func (e *Engine) updateBandit(ctx context.Context, learnerID int64, tmpl *store.Template, correct bool, responseTime float64) (float64, error) {
	reward := e.cfg.Reward.Reward(correct, responseTime, tmpl.TargetDifficulty)

	stats, err := e.responses.BanditStats(ctx, learnerID)
	if err != nil {
		return 0, fmt.Errorf("bandit stats: %w", err)
	}
	p := e.sampler.Prior()
	if s, ok := stats[tmpl.ID]; ok {
		p = bandit.Params{Success: s.Success, Failure: s.Failure}
	}
	p = bandit.Update(p, reward)

	if err := e.responses.UpdateBanditStats(ctx, learnerID, tmpl.ID, store.BanditStats{Success: p.Success, Failure: p.Failure}); err != nil {
		return 0, fmt.Errorf("update bandit stats: %w", err)
	}
	return reward, nil
}

func banditParams(stats map[int64]store.BanditStats) map[int64]bandit.Params {
	out := make(map[int64]bandit.Params, len(stats))
	for id, s := range stats {
		out[id] = bandit.Params{Success: s.Success, Failure: s.Failure}
	}
	return out
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
