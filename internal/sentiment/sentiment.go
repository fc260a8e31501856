// Package sentiment scores stored news items with one or more models.
package sentiment

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/newthinker/meridian/internal/core"
	"github.com/newthinker/meridian/internal/llm"
	newsstore "github.com/newthinker/meridian/internal/storage/news"
)

// Labels assigned from the score when a model omits one.
const (
	LabelPositive = "positive"
	LabelNegative = "negative"
	LabelNeutral  = "neutral"

	labelBand = 0.3
)

// Scorer rates one news item.
type Scorer interface {
	Model() string
	Score(ctx context.Context, item core.NewsItem) (core.SentimentScore, error)
}

// LLMScorer asks a chat model for a JSON verdict.
type LLMScorer struct {
	llm   llm.Provider
	clock clock.Clock
}

// NewLLMScorer wraps p. A nil clock uses the wall clock.
func NewLLMScorer(p llm.Provider, clk clock.Clock) *LLMScorer {
	if clk == nil {
		clk = clock.New()
	}
	return &LLMScorer{llm: p, clock: clk}
}

// Model identifies the scorer as "<backend>:<model>".
func (s *LLMScorer) Model() string {
	return s.llm.Name() + ":" + s.llm.Model()
}

type verdict struct {
	Score float64 `json:"score"`
	Label string  `json:"label"`
}

func (s *LLMScorer) Score(ctx context.Context, item core.NewsItem) (core.SentimentScore, error) {
	resp, err := s.llm.Chat(ctx, llm.ChatRequest{
		SystemPrompt: systemPrompt,
		Messages:     []llm.Message{{Role: "user", Content: prompt(item)}},
		MaxTokens:    128,
		Temperature:  0,
		JSONMode:     true,
	})
	if err != nil {
		return core.SentimentScore{}, fmt.Errorf("%s: %w", s.Model(), err)
	}

	v, err := parse(resp.Content)
	if err != nil {
		return core.SentimentScore{}, fmt.Errorf("%s: %w", s.Model(), err)
	}

	id := item.ID
	return core.SentimentScore{
		NewsItemID: &id,
		Model:      s.Model(),
		Score:      v.Score,
		Label:      v.Label,
		ScoredAt:   s.clock.Now().UTC(),
	}, nil
}

func prompt(item core.NewsItem) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "## Symbol: %s\n\n", item.Symbol)
	fmt.Fprintf(&sb, "## Headline:\n%s\n", item.Title)
	if item.Summary != "" {
		fmt.Fprintf(&sb, "\n## Summary:\n%s\n", item.Summary)
	}
	return sb.String()
}

// parse reads the model output, falling back to keyword matching when the
// model ignored JSON mode.
func parse(content string) (verdict, error) {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.Trim(content, "` \n")

	var v verdict
	if err := json.Unmarshal([]byte(content), &v); err != nil {
		lower := strings.ToLower(content)
		pos := strings.Contains(lower, LabelPositive) || strings.Contains(lower, "bullish")
		neg := strings.Contains(lower, LabelNegative) || strings.Contains(lower, "bearish")
		switch {
		case pos && !neg:
			v = verdict{Score: 0.5, Label: LabelPositive}
		case neg && !pos:
			v = verdict{Score: -0.5, Label: LabelNegative}
		case strings.Contains(lower, LabelNeutral):
			v = verdict{Label: LabelNeutral}
		default:
			return verdict{}, core.Errorf(core.ErrMalformed, "unparseable sentiment: %.80q", content)
		}
	}
	if math.IsNaN(v.Score) {
		return verdict{}, core.Errorf(core.ErrMalformed, "score is NaN")
	}
	v.Score = math.Max(-1, math.Min(1, v.Score))
	v.Label = strings.ToLower(strings.TrimSpace(v.Label))
	if v.Label != LabelPositive && v.Label != LabelNegative && v.Label != LabelNeutral {
		v.Label = Label(v.Score)
	}
	return v, nil
}

// Label buckets a score into positive, negative or neutral.
func Label(score float64) string {
	switch {
	case score > labelBand:
		return LabelPositive
	case score < -labelBand:
		return LabelNegative
	default:
		return LabelNeutral
	}
}

// Service scores unscored items with every configured model.
type Service struct {
	store   newsstore.Store
	scorers []Scorer
	batch   int
	logger  *zap.Logger
}

// NewService creates a scoring service; batch caps items per model per call.
func NewService(store newsstore.Store, scorers []Scorer, batch int, logger *zap.Logger) *Service {
	if batch <= 0 {
		batch = 50
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, scorers: scorers, batch: batch, logger: logger}
}

// ScorePending scores up to batch unscored items per model and appends the
// scores. Items a model fails on are skipped and picked up next time; a rate
// limit stops that model for this pass. It returns the number of scores stored.
func (s *Service) ScorePending(ctx context.Context) (int, error) {
	counts := make([]int, len(s.scorers))
	g, gctx := errgroup.WithContext(ctx)
	for i, sc := range s.scorers {
		g.Go(func() error {
			n, err := s.scoreModel(gctx, sc)
			counts[i] = n
			return err
		})
	}
	err := g.Wait()

	total := 0
	for _, n := range counts {
		total += n
	}
	return total, err
}

func (s *Service) scoreModel(ctx context.Context, sc Scorer) (int, error) {
	items, err := s.store.Unscored(ctx, sc.Model(), s.batch)
	if err != nil {
		return 0, fmt.Errorf("listing unscored for %s: %w", sc.Model(), err)
	}

	scores := make([]core.SentimentScore, 0, len(items))
	for _, it := range items {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		score, err := sc.Score(ctx, it)
		if err != nil {
			s.logger.Warn("sentiment scoring failed",
				zap.String("model", sc.Model()),
				zap.Int64("news_item_id", it.ID),
				zap.Error(err))
			if llm.IsRateLimited(err) {
				break
			}
			continue
		}
		scores = append(scores, score)
	}
	if len(scores) == 0 {
		return 0, nil
	}
	if err := s.store.AppendScores(ctx, scores); err != nil {
		return 0, fmt.Errorf("appending scores for %s: %w", sc.Model(), err)
	}
	s.logger.Info("sentiment scored",
		zap.String("model", sc.Model()),
		zap.Int("pending", len(items)),
		zap.Int("scored", len(scores)))
	return len(scores), nil
}

const systemPrompt = `You are a financial news sentiment rater. Rate how the headline and summary affect the named instrument's near-term price.

Always respond with valid JSON in this format:
{
  "score": -1.0 to 1.0,
  "label": "positive" | "negative" | "neutral"
}

Use values near 0 when the article is irrelevant to the instrument or the impact is unclear.`
