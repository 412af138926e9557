package rules

import (
	"regexp"
	"strings"

	"github.com/nao1215/telecheck/internal/model"
)

// Rule identifiers of the built-in catalog.
const (
	RuleBrandedMedication      = "branded-medication"
	RuleMoneyBackGuarantee     = "money-back-guarantee"
	RuleProhibitedTerm         = "prohibited-term"
	RuleMiracleClaim           = "miracle-claim"
	RuleWeightLossClaim        = "weight-loss-claim"
	RuleMedicalAdvice          = "medical-advice"
	RuleHIPAADataSharing       = "hipaa-data-sharing"
	RulePrescriptionNoEval     = "prescription-without-evaluation"
	RuleInsecureContentClaim   = "insecure-content-claim"
	RuleInsecureTransport      = "insecure-transport"
	RuleInsecureFormAction     = "insecure-form-action"
	RuleHealthFormMethod       = "health-form-method"
	RuleMissingHSTS            = "missing-hsts"
	RuleServerDisclosure       = "server-disclosure"
	RuleImageMetadata          = "image-metadata"
	RuleMissingPrivacyPolicy   = "missing-privacy-policy"
	RuleMissingTermsConditions = "missing-terms"
)

// Context windows.
const (
	brandedWindow   = 100
	guaranteeWindow = 150
	weightWindow    = 150
)

// Page type sets used by the catalog.
var (
	allButLegal = []model.PageType{
		model.PageTypeHomepage,
		model.PageTypeProductPage,
		model.PageTypeBlogPost,
		model.PageTypeOther,
	}
	homepageOnly = []model.PageType{model.PageTypeHomepage}
)

var (
	brandedNames = regexp.MustCompile(`(?i)\b(ozempic|wegovy|mounjaro|zepbound|saxenda|victoza|rybelsus|trulicity)\b`)

	// brandedDisclaimer is prescription-required language.
	brandedDisclaimer = regexp.MustCompile(`(?i)\bprescription (is )?required\b|\brequires? a (valid )?prescription\b|\bonly (available )?with a (valid )?prescription\b|\bif (clinically )?(appropriate|prescribed)\b`)

	// genericNames are the active ingredients of the branded products.
	genericNames = regexp.MustCompile(`(?i)\b(semaglutide|tirzepatide|liraglutide|dulaglutide)\b`)

	// brandedException is comparative or attribution language that makes
	// clear the product is not the branded drug.
	brandedException = regexp.MustCompile(`(?i)\bnot (a substitute for|the same as|affiliated with|endorsed by)\b|\bunlike\b|\bdifferent from\b|\b(registered )?trademarks? of\b`)

	guaranteePattern = regexp.MustCompile(`(?i)\bmoney[\s-]*back[\s-]+guarantee[ds]?\b|\b(100%\s+)?satisfaction[\s-]+guarantee[ds]?\b|\bfull[\s-]+refund[\s-]+guarantee[ds]?\b`)

	// quantifiedAmount is a measurable outcome bound. A percentage counts
	// only when it is a share of body weight; "100%" alone describes the
	// refund, not the outcome.
	quantifiedAmount = regexp.MustCompile(`(?i)\b\d+(\.\d+)?\s*(lbs?|pounds?|kg|kilograms?|inches|inch)\b|\b\d+(\.\d+)?\s*(%|percent)\s+(of\s+)?(your\s+)?(body\s*)?weight\b`)

	// timeframe is a bounded period.
	timeframe = regexp.MustCompile(`(?i)\b(\d+|one|two|three|four|five|six|eight|ten|twelve)[\s-]*(days?|weeks?|months?|years?)\b`)

	miraclePattern = regexp.MustCompile(`(?i)\b(miraculous|breakthrough|magic pill|overnight results|instant results|100% effective|no side[\s-]effects|risk[\s-]free)\b`)

	weightLossPattern = regexp.MustCompile(`(?i)\blose\s+(up\s+to\s+)?\d+\s*(pounds|lbs?)\b|\bwithout\s+(diet|dieting|exercise|exercising)\b|\beffortless\s+weight\s+loss\b|\bmelt\s+(away\s+)?(the\s+)?fat\b|\bburn\s+fat\s+while\s+you\s+sleep\b`)

	refundTerms     = regexp.MustCompile(`(?i)\bguarantee|\brefund|\bmoney[\s-]*back\b`)
	refundCondition = regexp.MustCompile(`(?i)\bif you (don't|do not|didn't|did not)\b|\bunless\b`)

	medicalAdvicePattern = regexp.MustCompile(`(?i)\b(we|our (doctors?|physicians?|providers?|clinicians?))\s+((can|will|may)\s+)?(recommend|prescribe|diagnose|treat|cure)\b|\byou (should|must) (take|stop taking|start taking)\b|\bself[\s-]diagnos(e|is|ing)\b|\bno need to see a (doctor|physician)\b|\bno (doctor|physician)('s)? visit (needed|required|necessary)\b|\breplaces? your doctor\b`)

	hipaaSharingPattern = regexp.MustCompile(`(?i)\bwe (may )?(share|sell|rent) your (personal |health |medical )?(data|information)\b|\bthird[\s-]part(y|ies) (may|can|will) access your (medical|health)\b|\bnot responsible for (any )?(data|information) (breach(es)?|leaks?|security)\b`)

	prescriptionPattern = regexp.MustCompile(`(?i)\bno prescription (needed|required|necessary)\b|\bprescription[\s-]free\b|\bwithout (a )?(prescription|doctor|consultation)\b|\bapproval guaranteed\b|\bguaranteed approval\b`)

	insecureClaimPattern = regexp.MustCompile(`(?i)\bnot secure\b|\bwe do not encrypt\b`)

	healthFieldPattern = regexp.MustCompile(`(?i)health|medical|symptom|condition|diagnos|treatment|medication|prescription|weight|height|bmi|blood|dob|birth`)

	serverVersion = regexp.MustCompile(`\d+(\.\d+)*`)

	privacyPath = regexp.MustCompile(`(?i)privacy|hipaa`)
	privacyText = regexp.MustCompile(`(?i)\bprivacy (policy|notice|practices)\b`)
	termsPath   = regexp.MustCompile(`(?i)terms|tos\b|conditions`)
	termsText   = regexp.MustCompile(`(?i)\bterms (of (service|use)|and conditions|& conditions)\b`)
)

// ProhibitedTerms returns the fixed vocabulary of the prohibited-term rule.
func ProhibitedTerms() []Term {
	editorial := []model.PageType{model.PageTypeLegalPage, model.PageTypeBlogPost}
	return []Term{
		{Phrase: "proven", Category: model.CategoryFDA, Severity: model.SeverityHigh},
		{Phrase: "guaranteed results", Category: model.CategoryFTC, Severity: model.SeverityHigh},
		{Phrase: "miracle", Category: model.CategoryFTC, Severity: model.SeverityHigh},
		{Phrase: "cure", Category: model.CategoryFDA, Severity: model.SeverityHigh},
		{Phrase: "semaglutide", Category: model.CategoryFDA, Severity: model.SeverityLow},
		{Phrase: "tirzepatide", Category: model.CategoryFDA, Severity: model.SeverityLow},
		{Phrase: "same ingredients", Category: model.CategoryFDA, Severity: model.SeverityHigh},
		{Phrase: "safe", Category: model.CategoryFDA, Severity: model.SeverityMedium, ExcludePageTypes: editorial},
		{Phrase: "efficacy", Category: model.CategoryFDA, Severity: model.SeverityMedium, ExcludePageTypes: editorial},
	}
}

// DefaultRules returns the built-in page rules.
func DefaultRules() []Rule {
	return []Rule{
		{
			ID:        RuleBrandedMedication,
			Title:     "Branded medication name in promotional context",
			Category:  model.CategoryFDA,
			Severity:  model.SeverityMedium,
			PageTypes: allButLegal,
			Matcher: &PhraseMatcher{
				Pattern: brandedNames,
				Window:  brandedWindow,
				Suppress: []Context{
					{Name: "prescription disclaimer", AllOf: []*regexp.Regexp{brandedDisclaimer}},
					{Name: "generic name", AllOf: []*regexp.Regexp{genericNames}},
					{Name: "comparison or attribution", AllOf: []*regexp.Regexp{brandedException}},
				},
				SeverityByPageType: map[model.PageType]model.Severity{
					model.PageTypeProductPage: model.SeverityHigh,
					model.PageTypeBlogPost:    model.SeverityLow,
				},
			},
		},
		{
			ID:       RuleMoneyBackGuarantee,
			Title:    "Unqualified money-back guarantee",
			Category: model.CategoryFTC,
			Severity: model.SeverityHigh,
			Matcher: &PhraseMatcher{
				Pattern: guaranteePattern,
				Window:  guaranteeWindow,
				Suppress: []Context{
					{Name: "quantified outcome and timeframe", AllOf: []*regexp.Regexp{quantifiedAmount, timeframe}},
				},
			},
		},
		{
			ID:       RuleProhibitedTerm,
			Title:    "Prohibited marketing term",
			Category: model.CategoryFDA,
			Severity: model.SeverityHigh,
			Matcher:  NewVocabularyMatcher(ProhibitedTerms()...),
		},
		{
			ID:        RuleMiracleClaim,
			Title:     "Exaggerated efficacy claim",
			Category:  model.CategoryFTC,
			Severity:  model.SeverityHigh,
			PageTypes: allButLegal,
			Matcher:   &PhraseMatcher{Pattern: miraclePattern},
		},
		{
			ID:        RuleWeightLossClaim,
			Title:     "Unsubstantiated weight loss claim",
			Category:  model.CategoryFTC,
			Severity:  model.SeverityHigh,
			PageTypes: allButLegal,
			Matcher: &PhraseMatcher{
				Pattern: weightLossPattern,
				Window:  weightWindow,
				Suppress: []Context{
					{Name: "conditional refund", AllOf: []*regexp.Regexp{refundTerms, refundCondition}},
				},
				SeverityByPageType: map[model.PageType]model.Severity{
					model.PageTypeBlogPost: model.SeverityMedium,
				},
			},
		},
		{
			ID:        RuleMedicalAdvice,
			Title:     "Medical advice without individual evaluation",
			Category:  model.CategoryFDA,
			Severity:  model.SeverityMedium,
			PageTypes: allButLegal,
			Matcher:   &PhraseMatcher{Pattern: medicalAdvicePattern},
		},
		{
			ID:       RuleHIPAADataSharing,
			Title:    "Health data sharing statement",
			Category: model.CategoryHIPAA,
			Severity: model.SeverityHigh,
			Matcher:  &PhraseMatcher{Pattern: hipaaSharingPattern},
		},
		{
			ID:        RulePrescriptionNoEval,
			Title:     "Prescription offered without evaluation",
			Category:  model.CategoryLegitScript,
			Severity:  model.SeverityHigh,
			PageTypes: allButLegal,
			Matcher:   &PhraseMatcher{Pattern: prescriptionPattern},
		},
		{
			ID:       RuleInsecureContentClaim,
			Title:    "Page states that data is not protected",
			Category: model.CategoryTechnical,
			Severity: model.SeverityHigh,
			Matcher:  &PhraseMatcher{Pattern: insecureClaimPattern},
		},
		{
			ID:       RuleInsecureTransport,
			Title:    "Page served without HTTPS",
			Category: model.CategoryTechnical,
			Severity: model.SeverityHigh,
			Matcher:  TransportMatcher{},
		},
		{
			ID:       RuleInsecureFormAction,
			Title:    "Form submits over plain HTTP",
			Category: model.CategoryTechnical,
			Severity: model.SeverityHigh,
			Matcher:  FormActionMatcher{},
		},
		{
			ID:       RuleHealthFormMethod,
			Title:    "Health information collected with GET",
			Category: model.CategoryTechnical,
			Severity: model.SeverityMedium,
			Matcher:  &FormMethodMatcher{FieldPattern: healthFieldPattern},
		},
		{
			ID:        RuleMissingHSTS,
			Title:     "Strict-Transport-Security header missing",
			Category:  model.CategoryTechnical,
			Severity:  model.SeverityLow,
			PageTypes: homepageOnly,
			Matcher: &HeaderMatcher{Checks: []HeaderCheck{{
				Header: "Strict-Transport-Security",
				Check: func(value string, page *model.PageRecord) (string, bool) {
					return "", page.IsSecure() && strings.TrimSpace(value) == ""
				},
			}}},
		},
		{
			ID:        RuleServerDisclosure,
			Title:     "Server software version disclosed",
			Category:  model.CategoryTechnical,
			Severity:  model.SeverityLow,
			PageTypes: homepageOnly,
			Matcher: &HeaderMatcher{Checks: []HeaderCheck{
				{
					Header: "Server",
					Check: func(value string, _ *model.PageRecord) (string, bool) {
						return value, serverVersion.MatchString(value)
					},
				},
				{
					Header: "X-Powered-By",
					Check: func(value string, _ *model.PageRecord) (string, bool) {
						return value, value != ""
					},
				},
			}},
		},
		{
			ID:       RuleImageMetadata,
			Title:    "Identifying metadata in published image",
			Category: model.CategoryHIPAA,
			Severity: model.SeverityMedium,
			Matcher: &ImageMetadataMatcher{Tags: map[string]model.Severity{
				"GPSLatitude":        model.SeverityHigh,
				"GPSLongitude":       model.SeverityHigh,
				"Artist":             model.SeverityHigh,
				"Author":             model.SeverityHigh,
				"XPAuthor":           model.SeverityHigh,
				"Copyright":          model.SeverityMedium,
				"SerialNumber":       model.SeverityMedium,
				"CameraSerialNumber": model.SeverityMedium,
				"BodySerialNumber":   model.SeverityMedium,
				"LensSerialNumber":   model.SeverityMedium,
				"HostComputer":       model.SeverityMedium,
			}},
		},
	}
}

// DefaultSiteRules returns the built-in site-wide rules.
func DefaultSiteRules() []SiteRule {
	return []SiteRule{
		{
			ID:       RuleMissingPrivacyPolicy,
			Title:    "No privacy policy found",
			Category: model.CategoryHIPAA,
			Severity: model.SeverityHigh,
			Required: PageMention{PathPattern: privacyPath, TextPattern: privacyText},
			Excerpt:  "no page or link mentions a privacy policy or notice of privacy practices",
		},
		{
			ID:       RuleMissingTermsConditions,
			Title:    "No terms of service found",
			Category: model.CategoryLegitScript,
			Severity: model.SeverityMedium,
			Required: PageMention{PathPattern: termsPath, TextPattern: termsText},
			Excerpt:  "no page or link mentions terms of service or terms and conditions",
		},
	}
}
