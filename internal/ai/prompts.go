package ai

import (
	"encoding/json"
	"fmt"
	"strings"
)

const financialAnalysisPrompt = `You are an expert financial analyst. Analyze the following financial document data and provide a comprehensive analysis in JSON format.

Document Data:
%s

Please provide analysis in this exact JSON structure:
{
    "summary": {
        "revenue": "amount and YoY change",
        "grossMargin": "percentage and trend",
        "netProfit": "amount and YoY change",
        "confidenceScore": "percentage 0-100"
    },
    "keyMetrics": [
        {
            "label": "metric name",
            "value": "metric value",
            "change": "percentage change",
            "trend": "positive/negative/neutral"
        }
    ],
    "riskFactors": [
        "list of identified risks"
    ],
    "opportunities": [
        "list of growth opportunities"
    ],
    "recommendations": [
        "list of actionable recommendations"
    ],
    "comparableValuation": {
        "industryMultiple": "estimated range",
        "suggestedValuation": "valuation range"
    }
}

Focus on accuracy, identify potential red flags, and provide actionable insights for acquisition decisions.`

const dealInsightsPrompt = `You are an expert M&A advisor. Analyze the following deal scenario and provide strategic insights.

Seller Information:
%s

Buyer Information:
%s

Current Deal Stage: %s

Provide insights in this JSON format:
{
    "compatibilityScore": "0-100 percentage",
    "strengths": ["list of deal strengths"],
    "concerns": ["list of potential concerns"],
    "negotiationTips": ["strategic advice for both parties"],
    "nextSteps": ["recommended actions"],
    "marketComparables": {
        "averageMultiple": "industry average",
        "comparableDeals": ["similar recent transactions"]
    },
    "timeline": "estimated completion timeframe",
    "successProbability": "percentage estimate"
}`

const matchingScorePrompt = `Calculate a compatibility score between this seller and buyer for an acquisition match.

Seller Profile:
%s

Buyer Profile:
%s

Return a JSON response with:
{
    "score": "0-100 percentage",
    "factors": {
        "budgetAlignment": "score and explanation",
        "industryFit": "score and explanation",
        "timelineMatch": "score and explanation",
        "strategicFit": "score and explanation",
        "riskTolerance": "score and explanation"
    },
    "overallAssessment": "brief summary",
    "recommendedActions": ["specific next steps"]
}`

const conversationStartersPrompt = `Generate personalized conversation starters for a seller reaching out to a buyer for a potential acquisition.

Seller: %s - %s
Revenue: %s

Buyer: %s - %s
Focus: %s
Budget: %s

Generate 3-5 personalized message templates in this format:
{
    "messages": [
        {
            "subject": "email subject line",
            "message": "personalized message body",
            "tone": "professional/casual/direct"
        }
    ],
    "talkingPoints": ["key points to emphasize"],
    "questionsToAsk": ["strategic questions for the buyer"]
}`

const dealQuestionPrompt = `You are an expert M&A advisor. Answer the following question about this acquisition deal:

Question: %s

Deal Context:
%s

Provide a helpful, actionable response that considers:
- Current market conditions
- Industry best practices
- Risk factors
- Strategic implications

Keep the response concise but comprehensive.`

func buildFinancialAnalysisPrompt(documentText string) string {
	return fmt.Sprintf(financialAnalysisPrompt, documentText)
}

func buildDealInsightsPrompt(seller SellerProfile, buyer BuyerProfile, stage string) string {
	return fmt.Sprintf(dealInsightsPrompt, indentJSON(seller), indentJSON(buyer), stage)
}

func buildMatchingScorePrompt(seller SellerProfile, buyer BuyerProfile) string {
	return fmt.Sprintf(matchingScorePrompt, indentJSON(seller), indentJSON(buyer))
}

func buildConversationStartersPrompt(seller SellerProfile, buyer BuyerProfile) string {
	return fmt.Sprintf(conversationStartersPrompt,
		seller.CompanyName, seller.Industry, seller.Revenue,
		buyer.Name, buyer.Company, strings.Join(buyer.FocusAreas, ","), buyer.Budget,
	)
}

func buildDealQuestionPrompt(question string, deal DealContext) string {
	return fmt.Sprintf(dealQuestionPrompt, question, indentJSON(deal))
}

// indentJSON renders v with two-space indentation. The profile types always
// marshal, so an error yields an empty object.
func indentJSON(v any) string {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "{}"
	}
	return string(b)
}
