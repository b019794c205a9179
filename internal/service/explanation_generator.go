package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/stemsi/exstem-practice/internal/apperror"
	"github.com/stemsi/exstem-practice/internal/config"
	"github.com/stemsi/exstem-practice/internal/llm"
	"github.com/stemsi/exstem-practice/internal/metrics"
	"github.com/stemsi/exstem-practice/internal/model"
)

// DefaultLocale is used when a request names no locale.
const DefaultLocale = "en"

const (
	explanationTemperature = 0.2
	explanationMaxTokens   = 1024
)

// ExplanationCache stores generated documents by cache key.
type ExplanationCache interface {
	Get(ctx context.Context, key string) (*model.ExplanationDocument, bool, error)
	Set(ctx context.Context, key string, doc *model.ExplanationDocument, ttl time.Duration) error
}

// ExplanationAuditStore persists the durable audit copy.
type ExplanationAuditStore interface {
	Save(ctx context.Context, rec *model.ExplanationRecord) error
}

// ExplanationGenerator returns cached explanations and generates missing ones.
// Concurrent misses on one key may both call the provider.
type ExplanationGenerator struct {
	provider      llm.Provider
	cache         ExplanationCache
	audit         ExplanationAuditStore
	ttl           time.Duration
	centsPerToken float64
	timeout       time.Duration
	now           func() time.Time
	log           zerolog.Logger
}

// NewExplanationGenerator creates a new ExplanationGenerator.
func NewExplanationGenerator(provider llm.Provider, cache ExplanationCache, audit ExplanationAuditStore, cfg *config.Config, log zerolog.Logger) *ExplanationGenerator {
	return &ExplanationGenerator{
		provider:      provider,
		cache:         cache,
		audit:         audit,
		ttl:           cfg.ExplanationTTL,
		centsPerToken: cfg.ExplanationCentsPerToken,
		timeout:       cfg.LLM.Timeout,
		now:           time.Now,
		log:           log.With().Str("component", "explanation_generator").Logger(),
	}
}

// AnswerHash digests the selected choice ids independent of their order.
func AnswerHash(selectedChoiceIDs []string) string {
	ids := append([]string(nil), selectedChoiceIDs...)
	sort.Strings(ids)

	deduped := ids[:0]
	for i, id := range ids {
		if i > 0 && id == ids[i-1] {
			continue
		}
		deduped = append(deduped, id)
	}

	sum := sha256.Sum256([]byte(strings.Join(deduped, "\x1f")))
	return hex.EncodeToString(sum[:])
}

// ExplanationCacheKey derives the cache key of one (question, answer, model,
// locale) tuple.
func ExplanationCacheKey(questionID, answerHash, modelName, locale string) string {
	sum := sha256.Sum256([]byte(strings.Join([]string{questionID, answerHash, modelName, locale}, "|")))
	return config.CacheKey.ExplanationKey(hex.EncodeToString(sum[:]))
}

// Generate returns the explanation for q and the selected choices. A cache
// hit never reaches the provider or the audit store.
func (g *ExplanationGenerator) Generate(ctx context.Context, q *model.Question, selectedChoiceIDs []string, userID, locale string) (*model.ExplanationDocument, error) {
	if g.provider == nil {
		return nil, apperror.Dependency("completion provider", nil)
	}
	if g.cache == nil {
		return nil, apperror.Dependency("explanation cache", nil)
	}
	if locale == "" {
		locale = DefaultLocale
	}

	answerHash := AnswerHash(selectedChoiceIDs)
	modelName := g.provider.ModelID()
	key := ExplanationCacheKey(q.ID, answerHash, modelName, locale)

	cached, ok, err := g.cache.Get(ctx, key)
	if err != nil {
		return nil, apperror.Dependency("explanation cache", err)
	}
	if ok {
		metrics.ExplanationCache.WithLabelValues("hit").Inc()
		return cached, nil
	}
	metrics.ExplanationCache.WithLabelValues("miss").Inc()

	// The caller may go away; the result still fills the cache for the next reader.
	genCtx := context.WithoutCancel(ctx)
	if g.timeout > 0 {
		var cancel context.CancelFunc
		genCtx, cancel = context.WithTimeout(genCtx, g.timeout)
		defer cancel()
	}

	resp, err := g.provider.Generate(genCtx, llm.Request{
		System:      explanationSystemPrompt,
		Prompt:      buildExplanationPrompt(q, selectedChoiceIDs, locale),
		Schema:      ExplanationSchema,
		MaxTokens:   explanationMaxTokens,
		Temperature: explanationTemperature,
	})
	if err != nil {
		return nil, apperror.Dependency("completion provider", err)
	}

	doc, err := decodeExplanation(resp.Content)
	if err != nil {
		return nil, apperror.Dependency("completion provider", err)
	}

	if err := g.cache.Set(genCtx, key, doc, g.ttl); err != nil {
		g.log.Warn().Err(err).Str("question_id", q.ID).Msg("Failed to cache explanation")
	}

	g.recordAudit(genCtx, q, answerHash, modelName, locale, doc, resp.Usage, userID)
	return doc, nil
}

// recordAudit writes the durable copy. Failures are logged and counted; the
// explanation is already cached and is returned regardless.
func (g *ExplanationGenerator) recordAudit(ctx context.Context, q *model.Question, answerHash, modelName, locale string, doc *model.ExplanationDocument, usage llm.Usage, userID string) {
	if g.audit == nil {
		return
	}
	rec := &model.ExplanationRecord{
		QuestionID:        q.ID,
		QuestionVersionID: q.VersionID,
		AnswerHash:        answerHash,
		ModelName:         modelName,
		Locale:            locale,
		Explanation:       *doc,
		PromptTokens:      usage.PromptTokens,
		CompletionTokens:  usage.CompletionTokens,
		TotalTokens:       usage.TotalTokens,
		CostCents:         EstimateCostCents(usage.TotalTokens, g.centsPerToken),
		CreatedAt:         g.now(),
	}
	if err := g.audit.Save(ctx, rec); err != nil {
		metrics.ExplanationAuditFailures.Inc()
		g.log.Warn().Err(err).
			Str("question_id", q.ID).
			Str("user_id", userID).
			Msg("Failed to persist explanation audit record")
	}
}

// EstimateCostCents prices totalTokens at a flat per-token rate, rounded to
// the nearest cent.
func EstimateCostCents(totalTokens int, centsPerToken float64) int {
	if totalTokens <= 0 {
		return 0
	}
	return int(math.Round(float64(totalTokens) * centsPerToken))
}

func decodeExplanation(raw json.RawMessage) (*model.ExplanationDocument, error) {
	if len(raw) == 0 {
		return nil, &llm.ErrInvalidResponse{Err: errors.New("empty structured payload")}
	}
	if err := llm.ValidateContent(ExplanationSchema, raw); err != nil {
		return nil, err
	}

	var doc model.ExplanationDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, &llm.ErrInvalidResponse{Content: raw, Err: err}
	}
	if strings.TrimSpace(doc.Summary) == "" {
		return nil, &llm.ErrInvalidResponse{Content: raw, Err: fmt.Errorf("summary is empty")}
	}
	if doc.KeyPoints == nil {
		doc.KeyPoints = []string{}
	}
	if doc.Steps == nil {
		doc.Steps = []string{}
	}
	return &doc, nil
}
