package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// errNoObject is logged when a reply carries no parseable JSON object.
var errNoObject = errors.New("no JSON object in reply")

// Decoding parameters per operation.
var (
	analysisOptions = GenerationOptions{Temperature: 0.3, MaxOutputTokens: 3000}
	insightsOptions = GenerationOptions{Temperature: 0.4, MaxOutputTokens: 2500}
	matchingOptions = GenerationOptions{Temperature: 0.2, MaxOutputTokens: 1500}
	startersOptions = GenerationOptions{Temperature: 0.6, MaxOutputTokens: 2000}
	questionOptions = GenerationOptions{Temperature: 0.5, MaxOutputTokens: 1000}
)

// Facade exposes the deal-room AI operations. None of its methods return an
// error: failures are logged and replaced by the operation's fallback.
type Facade struct {
	gen Generator
}

// NewFacade wraps a Generator.
func NewFacade(gen Generator) *Facade {
	return &Facade{gen: gen}
}

// AnalyzeFinancialDocument asks for a structured analysis of raw document text.
func (f *Facade) AnalyzeFinancialDocument(ctx context.Context, documentText string) FinancialAnalysis {
	return generateObject(ctx, f.gen, "financial_analysis",
		buildFinancialAnalysisPrompt(documentText), analysisOptions, FallbackFinancialAnalysis)
}

// GenerateDealInsights asks for strategic insights on a seller/buyer pair at a deal stage.
func (f *Facade) GenerateDealInsights(ctx context.Context, seller SellerProfile, buyer BuyerProfile, stage string) DealInsights {
	return generateObject(ctx, f.gen, "deal_insights",
		buildDealInsightsPrompt(seller, buyer, stage), insightsOptions, FallbackDealInsights)
}

// GenerateMatchingScore asks for a compatibility score between seller and buyer.
func (f *Facade) GenerateMatchingScore(ctx context.Context, seller SellerProfile, buyer BuyerProfile) MatchingScore {
	return generateObject(ctx, f.gen, "matching_score",
		buildMatchingScorePrompt(seller, buyer), matchingOptions, FallbackMatchingScore)
}

// GenerateConversationStarters asks for outreach templates from seller to buyer.
func (f *Facade) GenerateConversationStarters(ctx context.Context, seller SellerProfile, buyer BuyerProfile) ConversationStarters {
	return generateObject(ctx, f.gen, "conversation_starters",
		buildConversationStartersPrompt(seller, buyer), startersOptions, FallbackConversationStarters)
}

// AnswerDealQuestion returns the trimmed model answer, or AnswerUnavailable.
func (f *Facade) AnswerDealQuestion(ctx context.Context, question string, deal DealContext) string {
	reply, err := f.gen.Generate(ctx, buildDealQuestionPrompt(question, deal), questionOptions)
	if err != nil {
		slog.Error("AI operation failed, using fallback", "operation", "deal_question", "deal_id", deal.DealID, "error", err)
		return AnswerUnavailable
	}
	answer := strings.TrimSpace(reply)
	if answer == "" {
		slog.Warn("AI operation returned empty answer", "operation", "deal_question", "deal_id", deal.DealID)
		return AnswerUnavailable
	}
	return answer
}

func generateObject[T any](ctx context.Context, gen Generator, op, prompt string, opts GenerationOptions, fallback func() T) T {
	reply, err := gen.Generate(ctx, prompt, opts)
	if err == nil {
		var out T
		if err = decodeObject(reply, &out); err == nil {
			return out
		}
	}
	slog.Error("AI operation failed, using fallback", "operation", op, "error", err)
	return fallback()
}

func decodeObject(reply string, out any) error {
	raw, ok := ExtractObject(reply)
	if !ok {
		return errNoObject
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}
	return nil
}
