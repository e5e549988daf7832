package adaptive

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/abhisek/quizadapt/internal/genlock"
	"github.com/abhisek/quizadapt/internal/logger"
	"github.com/abhisek/quizadapt/internal/problemgen"
	"github.com/abhisek/quizadapt/internal/store"
)

// QuestionGenerator produces a fresh question for a blueprint.
// *problemgen.Generator implements it.
type QuestionGenerator interface {
	Generate(ctx context.Context, input problemgen.GenerateInput) (*problemgen.Question, error)
}

// QuestionProvider resolves a template to a question, serving an unseen
// stored question when one exists and generating one otherwise.
type QuestionProvider struct {
	questions store.QuestionRepo
	generator QuestionGenerator // nil means cache-only
	guard     genlock.Guard
	cfg       Config
	metrics   Recorder
	log       *logger.Logger
}

// NewQuestionProvider creates a QuestionProvider. generator and guard may
// be nil.
func NewQuestionProvider(questions store.QuestionRepo, generator QuestionGenerator, guard genlock.Guard, cfg Config, rec Recorder, log *logger.Logger) *QuestionProvider {
	if guard == nil {
		guard = genlock.None{}
	}
	if rec == nil {
		rec = nopRecorder{}
	}
	if log == nil {
		log = logger.Nop()
	}
	return &QuestionProvider{
		questions: questions,
		generator: generator,
		guard:     guard,
		cfg:       cfg,
		metrics:   rec,
		log:       log,
	}
}

// Resolve returns a question for t and whether it was generated by this
// call.
func (p *QuestionProvider) Resolve(ctx context.Context, t store.Template, st *LearnerState) (*store.Question, bool, error) {
	cached, err := p.questions.GetUnanswered(ctx, t.ID, st.LearnerID)
	if err != nil {
		return nil, false, fmt.Errorf("unanswered question: %w", err)
	}
	if cached != nil {
		return cached, false, nil
	}

	if p.generator == nil {
		return nil, false, invalid(ErrNoContent)
	}

	concept, err := p.questions.GetConcept(ctx, t.ConceptID)
	if err != nil {
		return nil, false, fmt.Errorf("concept: %w", err)
	}
	if concept == nil {
		return nil, false, notFound("concept", t.ConceptID)
	}
	prior, err := p.questions.RecentTexts(ctx, t.ID, p.cfg.PriorQuestions)
	if err != nil {
		return nil, false, fmt.Errorf("recent question texts: %w", err)
	}

	input := problemgen.GenerateInput{
		Blueprint: blueprintOf(t),
		Concept: problemgen.Concept{
			ID:          concept.ID,
			Name:        concept.Name,
			Description: concept.Description,
		},
		Learner: problemgen.LearnerHints{
			Ability:         st.GlobalAbility,
			RecentAccuracy:  st.RecentAccuracy,
			AvgResponseTime: st.AvgResponseTime,
		},
		PriorQuestions: prior,
	}

	q, err := p.generateDetached(ctx, t, st.LearnerID, input)
	if err != nil {
		return nil, false, err
	}
	return q, true, nil
}

type generated struct {
	q   *store.Question
	err error
}

// generateDetached runs generation outside the caller's cancellation and
// waits at most GenerationTimeout for it. A call that outlives the wait
// still saves its question for later cache hits.
func (p *QuestionProvider) generateDetached(ctx context.Context, t store.Template, learnerID int64, input problemgen.GenerateInput) (*store.Question, error) {
	bg, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.cfg.BackgroundGenerationTimeout)
	done := make(chan generated, 1)

	go func() {
		defer cancel()
		q, err := p.guarded(bg, t, learnerID, input)
		done <- generated{q: q, err: err}
	}()

	timer := time.NewTimer(p.cfg.GenerationTimeout)
	defer timer.Stop()

	select {
	case r := <-done:
		return r.q, r.err
	case <-timer.C:
		p.log.Warn("question generation timed out", "template_id", t.ID, "learner_id", learnerID,
			"timeout", p.cfg.GenerationTimeout)
		p.metrics.GenerationFinished("timeout", p.cfg.GenerationTimeout)
		return nil, &UpstreamError{Op: "generate question", Err: context.DeadlineExceeded, Retryable: true}
	case <-ctx.Done():
		return nil, &UpstreamError{Op: "generate question", Err: ctx.Err(), Retryable: true}
	}
}

func (p *QuestionProvider) guarded(ctx context.Context, t store.Template, learnerID int64, input problemgen.GenerateInput) (*store.Question, error) {
	key := fmt.Sprintf("template:%d:learner:%d", t.ID, learnerID)
	v, err := p.guard.Do(ctx, key, func(ctx context.Context) (any, error) {
		return p.generateAndSave(ctx, t, input)
	})
	if errors.Is(err, genlock.ErrWaited) {
		// Another caller held the lock; its question is probably stored.
		cached, cerr := p.questions.GetUnanswered(ctx, t.ID, learnerID)
		if cerr != nil {
			return nil, fmt.Errorf("unanswered question: %w", cerr)
		}
		if cached != nil {
			return cached, nil
		}
		return p.generateAndSave(ctx, t, input)
	}
	if err != nil {
		return nil, err
	}
	return v.(*store.Question), nil
}

func (p *QuestionProvider) generateAndSave(ctx context.Context, t store.Template, input problemgen.GenerateInput) (*store.Question, error) {
	start := time.Now()
	gq, err := p.generator.Generate(ctx, input)
	elapsed := time.Since(start)
	if err != nil {
		p.metrics.GenerationFinished("failed", elapsed)
		p.log.Warn("question generation failed", "template_id", t.ID, "error", err, "elapsed", elapsed)
		return nil, &UpstreamError{Op: "generate question", Err: err, Retryable: true}
	}
	p.metrics.GenerationFinished("ok", elapsed)

	saved, err := p.questions.Save(ctx, &store.Question{
		TemplateID:           t.ID,
		Text:                 gq.Text,
		Options:              gq.Options,
		CorrectOption:        gq.CorrectOption,
		Explanation:          gq.Explanation,
		OptionMisconceptions: gq.OptionMisconceptions,
		Generated:            true,
	})
	if err != nil {
		return nil, fmt.Errorf("save generated question: %w", err)
	}
	p.log.Info("generated question saved", "template_id", t.ID, "question_id", saved.ID,
		"tier", gq.Tier, "elapsed", elapsed)
	return saved, nil
}

func blueprintOf(t store.Template) problemgen.Blueprint {
	return problemgen.Blueprint{
		ID:                t.ID,
		Intent:            t.Intent,
		LearningObjective: t.LearningObjective,
		Style:             t.QuestionStyle,
		TargetDifficulty:  t.TargetDifficulty,
		CorrectReasoning:  t.CorrectReasoning,
		Misconceptions:    t.MisconceptionPatterns,
	}
}
