package ai

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// FlexString decodes from a JSON string, number or boolean and keeps the
// textual form. Models return scores as "94" or 94 interchangeably.
type FlexString string

// UnmarshalJSON implements json.Unmarshaler.
func (f *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*f = ""
		return nil
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexString(s)
		return nil
	case bytes.Equal(data, []byte("true")), bytes.Equal(data, []byte("false")):
		*f = FlexString(data)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("flex string: unsupported value %s", data)
	}
	*f = FlexString(n.String())
	return nil
}

// SellerProfile describes the business being sold.
type SellerProfile struct {
	CompanyName string `json:"companyName"`
	Industry    string `json:"industry"`
	Revenue     string `json:"revenue"`
	Growth      string `json:"growth,omitempty"`
	Employees   int    `json:"employees,omitempty"`
}

// BuyerProfile describes the prospective acquirer.
type BuyerProfile struct {
	Name       string   `json:"name"`
	Company    string   `json:"company"`
	FocusAreas []string `json:"focusAreas"`
	Budget     string   `json:"budget"`
	Timeline   string   `json:"timeline,omitempty"`
}

// DocumentSummary is the part of an uploaded document shared with the model
// when answering questions.
type DocumentSummary struct {
	Name   string `json:"name"`
	Status string `json:"status"`
}

// DealContext is the deal state a question is answered against.
type DealContext struct {
	DealID    string            `json:"id"`
	Seller    SellerProfile     `json:"seller"`
	Buyer     BuyerProfile      `json:"buyer"`
	Stage     string            `json:"stage"`
	Documents []DocumentSummary `json:"documents"`
}

type FinancialSummary struct {
	Revenue         string     `json:"revenue"`
	GrossMargin     string     `json:"grossMargin"`
	NetProfit       string     `json:"netProfit"`
	ConfidenceScore FlexString `json:"confidenceScore"`
}

type KeyMetric struct {
	Label  string `json:"label"`
	Value  string `json:"value"`
	Change string `json:"change"`
	Trend  string `json:"trend"`
}

type ComparableValuation struct {
	IndustryMultiple   string `json:"industryMultiple"`
	SuggestedValuation string `json:"suggestedValuation"`
}

// FinancialAnalysis is the result of AnalyzeFinancialDocument.
type FinancialAnalysis struct {
	Summary             FinancialSummary    `json:"summary"`
	KeyMetrics          []KeyMetric         `json:"keyMetrics"`
	RiskFactors         []string            `json:"riskFactors"`
	Opportunities       []string            `json:"opportunities"`
	Recommendations     []string            `json:"recommendations"`
	ComparableValuation ComparableValuation `json:"comparableValuation"`
}

type MarketComparables struct {
	AverageMultiple string   `json:"averageMultiple"`
	ComparableDeals []string `json:"comparableDeals"`
}

// DealInsights is the result of GenerateDealInsights.
type DealInsights struct {
	CompatibilityScore FlexString        `json:"compatibilityScore"`
	Strengths          []string          `json:"strengths"`
	Concerns           []string          `json:"concerns"`
	NegotiationTips    []string          `json:"negotiationTips"`
	NextSteps          []string          `json:"nextSteps"`
	MarketComparables  MarketComparables `json:"marketComparables"`
	Timeline           string            `json:"timeline"`
	SuccessProbability FlexString        `json:"successProbability"`
}

type MatchFactors struct {
	BudgetAlignment FlexString `json:"budgetAlignment"`
	IndustryFit     FlexString `json:"industryFit"`
	TimelineMatch   FlexString `json:"timelineMatch"`
	StrategicFit    FlexString `json:"strategicFit"`
	RiskTolerance   FlexString `json:"riskTolerance"`
}

// MatchingScore is the result of GenerateMatchingScore.
type MatchingScore struct {
	Score              FlexString   `json:"score"`
	Factors            MatchFactors `json:"factors"`
	OverallAssessment  string       `json:"overallAssessment"`
	RecommendedActions []string     `json:"recommendedActions"`
}

type StarterMessage struct {
	Subject string `json:"subject"`
	Message string `json:"message"`
	Tone    string `json:"tone"`
}

// ConversationStarters is the result of GenerateConversationStarters.
type ConversationStarters struct {
	Messages       []StarterMessage `json:"messages"`
	TalkingPoints  []string         `json:"talkingPoints"`
	QuestionsToAsk []string         `json:"questionsToAsk"`
}
