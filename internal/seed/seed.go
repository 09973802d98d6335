package seed

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"support-agent/dao"
	"support-agent/model"
)

type File struct {
	Businesses []Business `yaml:"businesses"`
}

type Business struct {
	Slug            string    `yaml:"slug"`
	Name            string    `yaml:"name"`
	Email           string    `yaml:"email"`
	LiveChatEnabled bool      `yaml:"live_chat_enabled"`
	FAQs            []FAQ     `yaml:"faqs"`
	Products        []Product `yaml:"products"`
	Services        []Service `yaml:"services"`
	Policies        []Policy  `yaml:"policies"`
}

type FAQ struct {
	Question string `yaml:"question"`
	Answer   string `yaml:"answer"`
	Category string `yaml:"category"`
}

type Product struct {
	Name        string  `yaml:"name"`
	Description string  `yaml:"description"`
	Category    string  `yaml:"category"`
	Price       float64 `yaml:"price"`
	Currency    string  `yaml:"currency"`
	SKU         string  `yaml:"sku"`
	Quantity    int     `yaml:"quantity"`
}

type Service struct {
	Name        string  `yaml:"name"`
	Description string  `yaml:"description"`
	Category    string  `yaml:"category"`
	PricingType string  `yaml:"pricing_type"`
	Price       float64 `yaml:"price"`
	Currency    string  `yaml:"currency"`
	Duration    string  `yaml:"duration"`
}

type Policy struct {
	Title   string `yaml:"title"`
	Content string `yaml:"content"`
	Type    string `yaml:"type"`
}

func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	return Parse(data)
}

func Parse(data []byte) (*File, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse seed file: %w", err)
	}
	for i, b := range f.Businesses {
		if b.Slug == "" || b.Name == "" {
			return nil, fmt.Errorf("%w: business %d needs a slug and a name", model.ErrValidation, i)
		}
	}
	return &f, nil
}

type Result struct {
	Created  int
	Existing int
	Items    int
}

// Loader writes seed files through the regular stores. Businesses are matched by slug and
// only newly created businesses get their knowledge items, so a file can be applied twice.
type Loader struct {
	businesses *dao.BusinessStore
	knowledge  *dao.KnowledgeStore
	log        zerolog.Logger
}

func NewLoader(businesses *dao.BusinessStore, knowledge *dao.KnowledgeStore, log zerolog.Logger) *Loader {
	return &Loader{
		businesses: businesses,
		knowledge:  knowledge,
		log:        log.With().Str("component", "SeedLoader").Logger(),
	}
}

func (l *Loader) Apply(ctx context.Context, f *File) (Result, error) {
	var res Result
	for _, sb := range f.Businesses {
		biz, err := l.businesses.BySlug(ctx, sb.Slug)
		switch {
		case err == nil:
			res.Existing++
			l.log.Info().Str("business", sb.Slug).Msg("already present, knowledge left as is")
			continue
		case errors.Is(err, model.ErrNotFound):
			biz = &model.Business{Slug: sb.Slug, Name: sb.Name, Email: sb.Email, LiveChatEnabled: sb.LiveChatEnabled}
			if err := l.businesses.Create(ctx, biz); err != nil {
				return res, fmt.Errorf("create business %s: %w", sb.Slug, err)
			}
			res.Created++
		default:
			return res, err
		}

		for _, item := range sb.items(biz.ID) {
			if err := l.knowledge.Add(ctx, item); err != nil {
				return res, fmt.Errorf("add %s %q: %w", item.KnowledgeType(), item.Heading(), err)
			}
			res.Items++
		}
		l.log.Info().Str("business", sb.Slug).Int("items", res.Items).Msg("seeded")
	}
	return res, nil
}

func (b Business) items(businessID string) []model.Knowledge {
	var out []model.Knowledge
	for _, f := range b.FAQs {
		out = append(out, &model.FAQ{BusinessID: businessID, Question: f.Question, Answer: f.Answer, Category: f.Category, IsActive: true})
	}
	for _, p := range b.Products {
		out = append(out, &model.Product{
			BusinessID:    businessID,
			Name:          p.Name,
			Description:   p.Description,
			Category:      p.Category,
			PriceAmount:   p.Price,
			PriceCurrency: p.Currency,
			SKU:           p.SKU,
			Quantity:      p.Quantity,
			IsActive:      true,
		})
	}
	for _, s := range b.Services {
		out = append(out, &model.Service{
			BusinessID:      businessID,
			Name:            s.Name,
			Description:     s.Description,
			Category:        s.Category,
			PricingType:     s.PricingType,
			PricingAmount:   s.Price,
			PricingCurrency: s.Currency,
			Duration:        s.Duration,
			IsActive:        true,
		})
	}
	for _, p := range b.Policies {
		out = append(out, &model.Policy{BusinessID: businessID, Title: p.Title, Content: p.Content, Type: p.Type, IsActive: true})
	}
	return out
}
