package service

import (
	"math"
	"regexp"
	"sort"
	"strings"

	"support-agent/model"
	"support-agent/utils"
)

const (
	minRelevanceScore     = 0.1
	listingRelevanceScore = 1.0
)

var stopWords = map[string]struct{}{}

func init() {
	for _, w := range strings.Fields(`
		a an and are as at be been but by can could did do does for from had has have how i if
		in into is it its me my no not of on or our so than that the their them then there these
		they this those to too was we were what when where which who why will with would you your
		yours about any some just also very please tell know want need`) {
		stopWords[w] = struct{}{}
	}
}

// listingMatchers holds, per knowledge type, the phrasings that ask for "everything of type X".
// They run against the raw query: stripping stop words would erase the signal.
var listingMatchers = map[model.KnowledgeType][]*regexp.Regexp{
	model.KnowledgeProduct: {
		regexp.MustCompile(`(?i)\bwhat (products|items|things) do you (sell|have|offer|carry|stock)\b`),
		regexp.MustCompile(`(?i)\bwhat do you (sell|carry|stock)\b`),
		regexp.MustCompile(`(?i)\b(show|list|tell)( me)?( about)?( all)?( of)? (your|the) (products|items)\b`),
		regexp.MustCompile(`(?i)\ball (your |the )?products\b`),
		regexp.MustCompile(`(?i)\bwhat (products|items) (are )?(available|in stock)\b`),
		regexp.MustCompile(`(?i)\bproduct (list|catalog|catalogue|range)\b`),
	},
	model.KnowledgeService: {
		regexp.MustCompile(`(?i)\bwhat services do you (offer|provide|have|do)\b`),
		regexp.MustCompile(`(?i)\b(show|list|tell)( me)?( about)?( all)?( of)? (your|the) services\b`),
		regexp.MustCompile(`(?i)\ball (your |the )?services\b`),
		regexp.MustCompile(`(?i)\bwhat (services )?(can|do) you (do|offer|provide)\s*\??$`),
		regexp.MustCompile(`(?i)\bservice (list|menu|catalog)\b`),
	},
	model.KnowledgePolicy: {
		regexp.MustCompile(`(?i)\bwhat are (your|the) policies\b`),
		regexp.MustCompile(`(?i)\b(show|list|tell)( me)?( about)?( all)?( of)? (your|the) policies\b`),
		regexp.MustCompile(`(?i)\ball (your |the )?policies\b`),
		regexp.MustCompile(`(?i)\bwhat policies do you have\b`),
	},
	model.KnowledgeFAQ: {
		regexp.MustCompile(`(?i)\b(show|list)( me)?( all)?( of)? (your |the )?(faqs?|frequently asked questions)\b`),
		regexp.MustCompile(`(?i)\bwhat are (the |your )?(common|frequently asked) questions\b`),
		regexp.MustCompile(`(?i)\bfaq (list|page)\b`),
	},
}

// DetectListingIntent reports whether query asks for every item of type t.
func DetectListingIntent(query string, t model.KnowledgeType) bool {
	for _, re := range listingMatchers[t] {
		if re.MatchString(query) {
			return true
		}
	}
	return false
}

// Keywords strips punctuation and stop words from query and keeps tokens longer than two characters.
func Keywords(query string) []string {
	tokens := strings.Fields(strings.ToLower(utils.StripPunctuation(query)))
	out := make([]string, 0, len(tokens))
	seen := make(map[string]struct{}, len(tokens))
	for _, tok := range tokens {
		if len(tok) <= 2 {
			continue
		}
		if _, stop := stopWords[tok]; stop {
			continue
		}
		if _, dup := seen[tok]; dup {
			continue
		}
		seen[tok] = struct{}{}
		out = append(out, tok)
	}
	return out
}

type ScoredKnowledge struct {
	Item  model.Knowledge `json:"-"`
	Type  string          `json:"type"`
	ID    string          `json:"id"`
	Title string          `json:"title"`
	Score float64         `json:"relevanceScore"`
}

type RankResult struct {
	Items          []ScoredKnowledge
	IsListingQuery bool
	ListingTypes   []model.KnowledgeType
	Keywords       []string
}

type Ranker struct {
	maxResults      int
	listingTotal    int
	listingPerType  int
	fallbackPerType int
}

func NewRanker() *Ranker {
	return &Ranker{
		maxResults:      8,
		listingTotal:    20,
		listingPerType:  5,
		fallbackPerType: 3,
	}
}

// Rank scores items against query. items must already be limited to one business and active rows.
func (r *Ranker) Rank(query string, items []model.Knowledge) RankResult {
	if len(items) == 0 {
		return RankResult{}
	}

	var listing []model.KnowledgeType
	for _, t := range model.KnowledgeTypes {
		if DetectListingIntent(query, t) {
			listing = append(listing, t)
		}
	}
	if len(listing) > 0 {
		out := make([]ScoredKnowledge, 0, r.listingTotal)
		for _, t := range listing {
			for _, item := range mostRecent(items, t, r.listingPerType) {
				out = append(out, scored(item, listingRelevanceScore))
			}
		}
		if len(out) > r.listingTotal {
			out = out[:r.listingTotal]
		}
		return RankResult{Items: out, IsListingQuery: true, ListingTypes: listing}
	}

	keywords := Keywords(query)
	if len(keywords) == 0 {
		out := make([]ScoredKnowledge, 0, r.maxResults)
		for _, t := range model.KnowledgeTypes {
			for _, item := range mostRecent(items, t, r.fallbackPerType) {
				out = append(out, scored(item, minRelevanceScore))
			}
		}
		sortByScore(out)
		return RankResult{Items: out[:utils.Min(len(out), r.maxResults)]}
	}

	out := make([]ScoredKnowledge, 0, len(items))
	for _, item := range items {
		score := scoreKnowledge(item, keywords)
		if score <= 0 {
			continue
		}
		out = append(out, scored(item, math.Max(score, minRelevanceScore)))
	}
	sortByScore(out)
	return RankResult{Items: out[:utils.Min(len(out), r.maxResults)], Keywords: keywords}
}

// scoreKnowledge awards a field's weight for a substring hit and twice that for a whole-word hit.
func scoreKnowledge(item model.Knowledge, keywords []string) float64 {
	var total float64
	for _, field := range item.SearchFields() {
		text := utils.NormalizeText(utils.StripPunctuation(field.Text))
		if text == "" {
			continue
		}
		for _, kw := range keywords {
			if !strings.Contains(text, kw) {
				continue
			}
			if utils.ContainsWord(text, kw) {
				total += field.Weight * 2
			} else {
				total += field.Weight
			}
		}
	}
	return total
}

func mostRecent(items []model.Knowledge, t model.KnowledgeType, n int) []model.Knowledge {
	var out []model.Knowledge
	for _, item := range items {
		if item.KnowledgeType() == t {
			out = append(out, item)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Created().After(out[j].Created())
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}

func sortByScore(items []ScoredKnowledge) {
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].Score != items[j].Score {
			return items[i].Score > items[j].Score
		}
		return items[i].Item.Created().After(items[j].Item.Created())
	})
}

func scored(item model.Knowledge, score float64) ScoredKnowledge {
	return ScoredKnowledge{
		Item:  item,
		Type:  string(item.KnowledgeType()),
		ID:    item.KnowledgeID(),
		Title: item.Heading(),
		Score: score,
	}
}
