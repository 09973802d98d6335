package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"support-agent/dao"
	"support-agent/model"
)

type DecisionKind string

const (
	DecisionStatusReply   DecisionKind = "status_reply"
	DecisionAskCaseNumber DecisionKind = "ask_case_number"
	DecisionCaseNotFound  DecisionKind = "case_not_found"
	DecisionContinueCase  DecisionKind = "continue_case"
	DecisionCaseMissing   DecisionKind = "case_missing"
	DecisionNewEscalation DecisionKind = "new_escalation"
	DecisionAnswer        DecisionKind = "answer"
	DecisionFallback      DecisionKind = "fallback"
)

// Turn is everything the decision layer sees of one customer message.
type Turn struct {
	Business *model.Business
	Session  *model.Session
	Message  string
	History  []model.ConversationTurn
}

type Decision struct {
	Kind        DecisionKind
	Intent      IntentResult
	Score       model.EscalationScore
	Knowledge   RankResult
	CaseNumber  string
	CaseStatus  *model.CaseStatus
	CaseDetails *model.CaseDetails

	// Offer asks for an escalation offer to be appended to an answer or fallback.
	Offer bool

	// Escalation is set whenever the reply steers the customer toward a human.
	Escalation bool
}

// Immediate reports whether the decision came from the unconditional hand-off branch.
func (d *Decision) Immediate() bool {
	switch d.Kind {
	case DecisionContinueCase, DecisionCaseMissing, DecisionNewEscalation:
		return true
	}
	return false
}

// DecisionLayer picks the response path of a customer turn. It is free of side effects;
// ChatService carries the decision out.
type DecisionLayer struct {
	classifier *IntentClassifier
	scorer     *EscalationScorer
	ranker     *Ranker
	knowledge  *dao.KnowledgeStore
	cases      *CaseLookup
	log        zerolog.Logger
}

func NewDecisionLayer(knowledge *dao.KnowledgeStore, cases *CaseLookup, log zerolog.Logger) *DecisionLayer {
	return &DecisionLayer{
		classifier: NewIntentClassifier(),
		scorer:     NewEscalationScorer(),
		ranker:     NewRanker(),
		knowledge:  knowledge,
		cases:      cases,
		log:        log.With().Str("component", "DecisionLayer").Logger(),
	}
}

// Decide classifies, scores and retrieves knowledge concurrently, then walks the branches in
// order: case follow-up, immediate escalation, knowledge answer or fallback.
func (d *DecisionLayer) Decide(ctx context.Context, t Turn) (*Decision, error) {
	dec := &Decision{}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		dec.Intent = d.classifier.Classify(t.Message, t.History)
		return nil
	})
	g.Go(func() error {
		dec.Score = d.scorer.Score(ScoreInput{
			Message:  t.Message,
			History:  t.History,
			Attempts: t.Session.EscalationAttempts,
		})
		return nil
	})
	g.Go(func() error {
		items, err := d.knowledge.Active(gctx, t.Business.ID)
		if err != nil {
			return fmt.Errorf("load knowledge: %w", err)
		}
		dec.Knowledge = d.ranker.Rank(t.Message, items)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	d.log.Debug().
		Str("session", t.Session.ID).
		Str("intent", string(dec.Intent.Intent)).
		Str("rule", dec.Intent.Rule).
		Int("score", dec.Score.Score).
		Stringer("tier", dec.Score.Tier).
		Int("knowledge", len(dec.Knowledge.Items)).
		Msg("turn analysed")

	var err error
	switch {
	case dec.Intent.Intent == model.IntentCaseFollowup:
		err = d.caseFollowup(ctx, t, dec)
	case dec.Score.Tier == model.TierImmediate:
		err = d.immediate(ctx, t, dec)
	default:
		d.inform(dec)
	}
	if err != nil {
		return nil, err
	}
	return dec, nil
}

// caseFollowup never hands off, whatever the score.
func (d *DecisionLayer) caseFollowup(ctx context.Context, t Turn, dec *Decision) error {
	dec.CaseNumber = ExtractCaseNumber(t.Message)
	if dec.CaseNumber == "" {
		dec.Kind = DecisionAskCaseNumber
		return nil
	}
	status, err := d.cases.Status(ctx, t.Business.ID, dec.CaseNumber)
	switch {
	case errors.Is(err, model.ErrNotFound):
		dec.Kind = DecisionCaseNotFound
		return nil
	case err != nil:
		return fmt.Errorf("case status: %w", err)
	}
	dec.Kind = DecisionStatusReply
	dec.CaseStatus = status
	return nil
}

func (d *DecisionLayer) immediate(ctx context.Context, t Turn, dec *Decision) error {
	dec.Escalation = true
	dec.CaseNumber = ExtractCaseNumber(t.Message)
	if dec.CaseNumber == "" {
		dec.Kind = DecisionNewEscalation
		return nil
	}
	details, err := d.cases.Details(ctx, t.Business.ID, dec.CaseNumber)
	switch {
	case errors.Is(err, model.ErrNotFound):
		dec.Kind = DecisionCaseMissing
		return nil
	case err != nil:
		return fmt.Errorf("case details: %w", err)
	}
	dec.Kind = DecisionContinueCase
	dec.CaseDetails = details
	return nil
}

func (d *DecisionLayer) inform(dec *Decision) {
	empty := len(dec.Knowledge.Items) == 0
	if empty {
		dec.Kind = DecisionFallback
	} else {
		dec.Kind = DecisionAnswer
	}
	tier := dec.Score.Tier
	dec.Offer = tier >= model.TierOfferEscalation ||
		(tier >= model.TierSuggestAlternatives && (dec.Intent.Intent == model.IntentPricingInquiry || empty))
	dec.Escalation = dec.Offer
}
