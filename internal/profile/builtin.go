package profile

import "github.com/sbenjam1n/bizassess/internal/assess"

// Business model tags with a built-in profile.
const (
	ModelB2BSaaS        = "b2b-saas"
	ModelB2CMarketplace = "b2c-marketplace"
	ModelManufacturing  = "manufacturing"
	ModelServices       = "services"
	ModelHybrid         = "hybrid"
)

const (
	strategic = assess.DomainStrategicAlignment
	financial = assess.DomainFinancialClarity
	revenue   = assess.DomainRevenueEngine
	ops       = assess.DomainOperationalExcellence
	people    = assess.DomainPeopleOrganization
	tech      = assess.DomainTechnologyData
	customer  = assess.DomainCustomerSuccess
	product   = assess.DomainProductStrategy
	market    = assess.DomainMarketPosition
	risk      = assess.DomainRiskCompliance
	growth    = assess.DomainGrowthReadiness
	change    = assess.DomainChangeManagement
)

func ref(d assess.DomainID, id string) assess.QuestionRef {
	return assess.QuestionRef{Domain: d, QuestionID: id}
}

// Shared rule definitions. Profiles copy them by value.
var (
	unitEconomics = assess.CrossDomainRule{
		Name:             "unsustainable-unit-economics",
		Domains:          []assess.DomainID{revenue, customer},
		Inputs:           []assess.QuestionRef{ref(revenue, "3.4"), ref(customer, "7.2")},
		Threshold:        4,
		Statement:        "Acquisition cost control and retention must not both be weak",
		Message:          "Unsustainable unit economics: customer acquisition cost is poorly managed while retention is weak, so each new customer may never pay back",
		ImpactOnTimeline: true,
	}
	growthOutpacingOps = assess.CrossDomainRule{
		Name:             "growth-outpacing-operations",
		Domains:          []assess.DomainID{growth, ops},
		Inputs:           []assess.QuestionRef{ref(growth, "11.1"), ref(ops, "4.2")},
		Threshold:        4,
		Statement:        "Aggressive growth targets need operational headroom",
		Message:          "Growth targets are aggressive while operations are already capacity constrained",
		ImpactOnTimeline: true,
	}
	strategyWithoutAlignment = assess.CrossDomainRule{
		Name:      "strategy-without-alignment",
		Domains:   []assess.DomainID{strategic, people, change},
		Inputs:    []assess.QuestionRef{ref(strategic, "1.3"), ref(people, "5.3"), ref(change, "12.2")},
		Threshold: 4,
		Statement: "Leadership, culture and sponsorship should broadly agree on direction",
		Message:   "Leadership disagreement, weak cultural alignment and thin sponsorship together put strategy execution at risk",
	}

	runwayRisk = assess.BusinessLogicRule{
		Name:        "runway-risk",
		Domain:      financial,
		QuestionIDs: []string{"2.3"},
		Threshold:   4,
		Statement:   "Cash runway concern should be low before committing to plans",
		Message:     "Cash runway is a serious concern; confirm the months of runway remaining",
	}
	forecastReliability = assess.BusinessLogicRule{
		Name:        "forecast-reliability",
		Domain:      financial,
		QuestionIDs: []string{"2.1", "2.2"},
		Threshold:   4,
		Statement:   "Reporting and forecasts should be dependable",
		Message:     "Financial reporting and forecasts are both unreliable",
	}
	financialDivergence = assess.BusinessLogicRule{
		Name:        "financial-signal-divergence",
		Domain:      financial,
		QuestionIDs: []string{"2.1", "2.2"},
		Threshold:   3,
		Statement:   "Reporting quality and forecast accuracy usually move together",
		Message:     "Reporting and forecast answers disagree sharply; one of them may be misjudged",
	}
	pipelinePredictability = assess.BusinessLogicRule{
		Name:        "pipeline-predictability",
		Domain:      revenue,
		QuestionIDs: []string{"3.1"},
		Threshold:   4,
		Statement:   "Recurring revenue models need a predictable pipeline",
		Message:     "The sales pipeline is unpredictable for a recurring revenue business",
	}
	keyPerson = assess.BusinessLogicRule{
		Name:        "key-person-dependency",
		Domain:      people,
		QuestionIDs: []string{"5.2"},
		Threshold:   4,
		Statement:   "The business should survive the loss of any one person",
		Message:     "The business depends heavily on one or two key people",
	}
	securityPosture = assess.BusinessLogicRule{
		Name:        "security-posture",
		Domain:      tech,
		QuestionIDs: []string{"6.3"},
		Threshold:   4,
		Statement:   "Customer data must be protected",
		Message:     "Security exposure is high for a business holding customer data",
	}
	churnRisk = assess.BusinessLogicRule{
		Name:        "churn-risk",
		Domain:      customer,
		QuestionIDs: []string{"7.2"},
		Threshold:   4,
		Statement:   "Retention should be healthy",
		Message:     "Customer retention is weak; capture the main reasons customers leave",
	}
	regulatoryReadiness = assess.BusinessLogicRule{
		Name:        "regulatory-readiness",
		Domain:      risk,
		QuestionIDs: []string{"10.1"},
		Threshold:   4,
		Statement:   "Regulatory exposure should be understood",
		Message:     "Regulatory exposure is high; list the frameworks that apply",
	}
	processDocumentation = assess.BusinessLogicRule{
		Name:        "process-documentation",
		Domain:      ops,
		QuestionIDs: []string{"4.1"},
		Threshold:   4,
		Statement:   "Core processes should be written down",
		Message:     "Core processes live mostly in people's heads",
	}
	roadmapDiscipline = assess.BusinessLogicRule{
		Name:        "roadmap-discipline",
		Domain:      product,
		QuestionIDs: []string{"8.2"},
		Threshold:   4,
		Statement:   "Roadmap changes should follow evidence",
		Message:     "The roadmap changes often without a clear reason",
	}
	leadershipSponsorship = assess.BusinessLogicRule{
		Name:        "leadership-sponsorship",
		Domain:      change,
		QuestionIDs: []string{"12.2"},
		Threshold:   4,
		Statement:   "Change needs visible leadership sponsorship",
		Message:     "Leadership sponsorship for change is weak",
	}
)

// Builtin returns fresh copies of the built-in profiles.
func Builtin() []assess.BusinessModelProfile {
	return []assess.BusinessModelProfile{
		{
			BusinessModel:   ModelB2BSaaS,
			RequiredDomains: []assess.DomainID{strategic, financial, revenue, customer, product, tech},
			OptionalDomains: []assess.DomainID{ops, people, market, risk, growth, change},
			DomainWeighting: map[assess.DomainID]float64{
				revenue: 1.4, customer: 1.3, product: 1.2, tech: 1.15, financial: 1.1,
				strategic: 1.0, ops: 0.8, people: 0.9, market: 1.0, risk: 0.8, growth: 1.0, change: 0.7,
			},
			CrossDomainRules: []assess.CrossDomainRule{
				unitEconomics,
				{
					Name:             "scaling-on-technical-debt",
					Domains:          []assess.DomainID{tech, growth},
					Inputs:           []assess.QuestionRef{ref(tech, "6.1"), ref(growth, "11.2")},
					Threshold:        4,
					Statement:        "Scaling plans need a platform that can take the load",
					Message:          "Technical debt is slowing delivery while growth would break current systems",
					ImpactOnTimeline: true,
				},
				{
					Name:      "scaling-before-fit",
					Domains:   []assess.DomainID{product, growth},
					Inputs:    []assess.QuestionRef{ref(product, "8.1"), ref(growth, "11.2")},
					Threshold: 4,
					Statement: "Scale after product-market fit is established",
					Message:   "Product-market fit is uncertain while the business prepares to scale",
				},
				{
					Name:      "runway-growth-conflict",
					Domains:   []assess.DomainID{financial, growth},
					Inputs:    []assess.QuestionRef{ref(financial, "2.3"), ref(growth, "11.1")},
					Threshold: 4,
					Statement: "Growth ambition should fit the cash runway",
					Message:   "Aggressive growth targets conflict with a short cash runway",
				},
			},
			BusinessLogicRules: []assess.BusinessLogicRule{churnRisk, pipelinePredictability, securityPosture, runwayRisk},
		},
		{
			BusinessModel:   ModelB2CMarketplace,
			RequiredDomains: []assess.DomainID{strategic, financial, revenue, customer, market, tech},
			OptionalDomains: []assess.DomainID{ops, people, product, risk, growth, change},
			DomainWeighting: map[assess.DomainID]float64{
				market: 1.4, customer: 1.3, revenue: 1.2, tech: 1.1, financial: 1.0,
				strategic: 1.0, product: 1.0, growth: 1.0, ops: 0.9, people: 0.8, risk: 0.8, change: 0.7,
			},
			CrossDomainRules: []assess.CrossDomainRule{
				{
					Name:             "marketplace-liquidity-gap",
					Domains:          []assess.DomainID{market, revenue, customer},
					Inputs:           []assess.QuestionRef{ref(market, "9.1"), ref(revenue, "3.1"), ref(customer, "7.1")},
					Threshold:        4,
					Statement:        "A marketplace needs enough demand and smooth onboarding on both sides",
					Message:          "Competitive pressure, an unpredictable pipeline and onboarding friction point to a liquidity gap",
					ImpactOnTimeline: true,
				},
				unitEconomics,
				{
					Name:      "pricing-market-divergence",
					Domains:   []assess.DomainID{revenue, market},
					Inputs:    []assess.QuestionRef{ref(revenue, "3.3"), ref(market, "9.3")},
					Threshold: 3,
					Statement: "Pricing confidence should track market understanding",
					Message:   "Pricing confidence and market sizing confidence disagree sharply",
				},
			},
			BusinessLogicRules: []assess.BusinessLogicRule{churnRisk, securityPosture, roadmapDiscipline},
		},
		{
			BusinessModel:   ModelManufacturing,
			RequiredDomains: []assess.DomainID{strategic, financial, ops, people, risk},
			OptionalDomains: []assess.DomainID{revenue, tech, customer, product, market, growth, change},
			DomainWeighting: map[assess.DomainID]float64{
				ops: 1.5, risk: 1.3, financial: 1.2, people: 1.1, strategic: 1.0,
				revenue: 1.0, customer: 0.9, product: 0.9, market: 0.9, growth: 0.9, tech: 0.8, change: 0.8,
			},
			CrossDomainRules: []assess.CrossDomainRule{
				{
					Name:             "supply-chain-fragility",
					Domains:          []assess.DomainID{ops, risk},
					Inputs:           []assess.QuestionRef{ref(ops, "4.3"), ref(risk, "10.2")},
					Threshold:        4,
					Statement:        "Single-source suppliers need contractual protection",
					Message:          "Operations depend on a single supplier and the contracts behind it carry significant risk",
					ImpactOnTimeline: true,
				},
				growthOutpacingOps,
				{
					Name:      "unpriced-compliance-exposure",
					Domains:   []assess.DomainID{risk, financial},
					Inputs:    []assess.QuestionRef{ref(risk, "10.1"), ref(financial, "2.1")},
					Threshold: 4,
					Statement: "Regulatory exposure should be visible in financial reporting",
					Message:   "High regulatory exposure is not reflected in reliable financial reporting",
				},
			},
			BusinessLogicRules: []assess.BusinessLogicRule{processDocumentation, regulatoryReadiness, keyPerson},
		},
		{
			BusinessModel:   ModelServices,
			RequiredDomains: []assess.DomainID{strategic, financial, people, customer, ops},
			OptionalDomains: []assess.DomainID{revenue, tech, product, market, risk, growth, change},
			DomainWeighting: map[assess.DomainID]float64{
				people: 1.4, customer: 1.3, ops: 1.2, financial: 1.1, strategic: 1.0,
				revenue: 1.0, market: 1.0, growth: 0.9, change: 0.9, risk: 0.8, tech: 0.8, product: 0.7,
			},
			CrossDomainRules: []assess.CrossDomainRule{
				{
					Name:             "delivery-capacity-strain",
					Domains:          []assess.DomainID{people, customer},
					Inputs:           []assess.QuestionRef{ref(people, "5.1"), ref(customer, "7.4")},
					Threshold:        4,
					Statement:        "Delivery teams need hiring capacity to absorb demand",
					Message:          "Hiring for critical roles is hard while the delivery team is already overloaded",
					ImpactOnTimeline: true,
				},
				strategyWithoutAlignment,
			},
			BusinessLogicRules: []assess.BusinessLogicRule{keyPerson, financialDivergence},
		},
		{
			BusinessModel:   ModelHybrid,
			RequiredDomains: []assess.DomainID{strategic, financial, revenue, ops, customer},
			OptionalDomains: []assess.DomainID{people, tech, product, market, risk, growth, change},
			DomainWeighting: map[assess.DomainID]float64{
				revenue: 1.2, financial: 1.2, customer: 1.1, ops: 1.1, strategic: 1.0,
				people: 1.0, tech: 1.0, product: 1.0, market: 1.0, risk: 1.0, growth: 1.0, change: 0.9,
			},
			CrossDomainRules: []assess.CrossDomainRule{unitEconomics, growthOutpacingOps, strategyWithoutAlignment},
			BusinessLogicRules: []assess.BusinessLogicRule{
				runwayRisk, financialDivergence, leadershipSponsorship, forecastReliability,
			},
		},
	}
}
