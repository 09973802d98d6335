package service

import (
	"context"
	"regexp"
	"strings"

	"support-agent/dao"
	"support-agent/model"
)

// caseNumberPatterns are tried in order; the first candidate containing a digit wins.
var caseNumberPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(?:case|ticket|reference|ref|escalation)\s*(?:number|num|no\.?|id)?\s*[:#]?\s*([a-z0-9-]{4,})\b`),
	regexp.MustCompile(`#\s*([A-Za-z0-9-]{4,})\b`),
	regexp.MustCompile(`\b(\d{6})\b`),
	regexp.MustCompile(`\b([A-Za-z0-9]{8,})\b`),
}

var digitPattern = regexp.MustCompile(`\d`)

// ExtractCaseNumber returns the first case number mentioned in text, uppercased, or "".
// It never guesses: text without a digit-bearing candidate yields "".
func ExtractCaseNumber(text string) string {
	for _, re := range caseNumberPatterns {
		for _, m := range re.FindAllStringSubmatch(text, -1) {
			if len(m) > 1 && digitPattern.MatchString(m[1]) {
				return strings.ToUpper(strings.Trim(m[1], "-"))
			}
		}
	}
	return ""
}

type CaseLookup struct {
	escalations *dao.EscalationStore
}

func NewCaseLookup(escalations *dao.EscalationStore) *CaseLookup {
	return &CaseLookup{escalations: escalations}
}

// Status returns the minimal projection used for status replies.
// A missing case yields an error wrapping model.ErrNotFound.
func (l *CaseLookup) Status(ctx context.Context, businessID, caseNumber string) (*model.CaseStatus, error) {
	e, err := l.escalations.ByCaseNumber(ctx, businessID, caseNumber)
	if err != nil {
		return nil, err
	}
	return &model.CaseStatus{CaseNumber: e.CaseNumber, Status: e.Status}, nil
}

// Details returns the projection used to reconnect a returning customer.
func (l *CaseLookup) Details(ctx context.Context, businessID, caseNumber string) (*model.CaseDetails, error) {
	e, err := l.escalations.ByCaseNumber(ctx, businessID, caseNumber)
	if err != nil {
		return nil, err
	}
	return &model.CaseDetails{
		EscalationID:  e.ID,
		CaseNumber:    e.CaseNumber,
		SessionID:     e.SessionID,
		Status:        e.Status,
		CustomerName:  e.CustomerName,
		CustomerEmail: e.CustomerEmail,
	}, nil
}
