package catalog

// DefaultID identifies the built-in catalog.
const DefaultID = "default"

// Default returns a fresh copy of the built-in catalog.
func Default() *Catalog {
	return &Catalog{
		ID:                     DefaultID,
		Name:                   "Default RICE Settings",
		LocalMarketRuleEnabled: true,
		Weights:                Weights{Reach: 30, Impact: 30, Confidence: 20, Effort: 20},
		ReachCategories: []ReachCategory{
			{ID: "reach-sitewide", Name: "Sitewide Test", MinReachPct: 80, MaxReachPct: 100, Points: 1.0, Example: "Header modification"},
			{ID: "reach-critical", Name: "Critical Journey", MinReachPct: 50, MaxReachPct: 79, Points: 0.7, Example: "Checkout optimization"},
			{ID: "reach-specific", Name: "Specific Page", MinReachPct: 20, MaxReachPct: 49, Points: 0.5, Example: "Mattress PDP redesign"},
			{ID: "reach-micro", Name: "Micro-Interaction", MinReachPct: 1, MaxReachPct: 19, Points: 0.3, Example: "Delivery tooltip adjustment"},
		},
		ImpactKPIs: []ImpactKPI{
			{ID: "impact-cvr", Name: "CVR (pp)", Class: ClassCVR, MinDelta: "+0.5%", MaxDelta: "+5%", PointsPerUnit: "0.4/pp", Example: "Δ +2% → 0.8"},
			{ID: "impact-revenue", Name: "Revenue (€k)", Class: ClassRevenue, MinDelta: "+10k", MaxDelta: "+500k", PointsPerUnit: "0.03/k€", Example: "Δ +150k → 4.5"},
			{ID: "impact-behavior", Name: "Behavior", Class: ClassBehavior, MinDelta: "+5%", MaxDelta: "+50%", PointsPerUnit: "0.06/%", Example: "Δ +20% AddToCart → 1.2"},
			{ID: "impact-add-to-cart", Name: "AddToCart", MinDelta: "+5%", MaxDelta: "+50%", PointsPerUnit: "0.06/%", IsBehaviorSubMetric: true, ParentID: "impact-behavior"},
			{ID: "impact-pdp-access", Name: "PDP Access", MinDelta: "+5%", MaxDelta: "+50%", PointsPerUnit: "0.06/%", IsBehaviorSubMetric: true, ParentID: "impact-behavior"},
			{ID: "impact-scroll-depth", Name: "Scroll Depth", MinDelta: "+5%", MaxDelta: "+50%", PointsPerUnit: "0.06/%", IsBehaviorSubMetric: true, ParentID: "impact-behavior"},
		},
		ConfidenceSources: []ConfidenceSource{
			{ID: "conf-ab-test", Name: "Previous A/B Test", Points: 2.5, Example: "Similar test on collection page"},
			{ID: "conf-analytics", Name: "Advanced Analytics (SQL/GA4)", Points: 2.0, Example: "6-month funnel analysis"},
			{ID: "conf-benchmark", Name: "Baymard Benchmark", Points: 1.5, Example: "Checkout study 2024"},
			{ID: "conf-testing", Name: "User Testing (5+ participants)", Points: 1.2, Example: "Moderated session DE/FR"},
			{ID: "conf-competitor", Name: "Verified Competitor Copy", Points: 0.8, Example: "Analysis of 3 market leaders"},
			{ID: "conf-audit", Name: "Heuristic Audit", Points: 0.5, Example: "WCAG compliance review"},
		},
		EffortSizes: []EffortSize{
			{ID: "effort-xs", Name: "XS", Duration: "0-1 wk", DevEffort: 0.3, DesignEffort: 0.2, Example: "Minor CSS modification"},
			{ID: "effort-s", Name: "S", Duration: "1-2 wk", DevEffort: 0.5, DesignEffort: 0.3, Example: "New tracking integration"},
			{ID: "effort-m", Name: "M", Duration: "2-4 wk", DevEffort: 0.8, DesignEffort: 0.5, Example: "PDP module redesign"},
			{ID: "effort-l", Name: "L", Duration: "4-6 wk", DevEffort: 1.2, DesignEffort: 0.8, Example: "Checkout revamp"},
			{ID: "effort-xl", Name: "XL", Duration: "6-8 wk", DevEffort: 1.5, DesignEffort: 1.2, Example: "Payment API migration"},
		},
	}
}
