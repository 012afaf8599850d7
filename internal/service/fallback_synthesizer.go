package service

import (
	"fmt"
	"net/url"
	"slices"

	"github.com/medrag-mcp-server/internal/domain"
)

// Section headings of synthesized answers.
const (
	HeadingOverview    = "Clinical Overview"
	HeadingDiagnosis   = "Diagnosis & Staging"
	HeadingManagement  = "Evidence-Based Management"
	HeadingMonitoring  = "Monitoring & Follow-up"
	HeadingPaediatric  = "Paediatric Considerations"
	HeadingEmergency   = "Emergency Considerations"
	scholarSearchURL   = "https://scholar.google.com/scholar?q="
	pubmedSearchURL    = "https://pubmed.ncbi.nlm.nih.gov/?term="
	overviewTemplate   = "%s is not covered by the curated knowledge base. The guidance below is a structured outline of standard clinical practice and should be checked against current specialty guidelines before use. Accurate diagnosis with appropriate investigations, including laboratory tests, imaging and specialist referral, is the first step."
	diagnosisTemplate  = "Diagnosis of %s typically involves biopsy for histological confirmation, followed by CT, PET or MRI for staging. Molecular testing for biomarkers and gene mutations is increasingly essential for treatment selection."
	paediatricTemplate = "For %s in children, use weight-based dosing, age-appropriate formulations and child-specific normal ranges. Involve paediatric specialist teams and provide family-centred care."
	emergencyTemplate  = "If %s presents acutely, prioritise ABCDE assessment, continuous monitoring of ECG, oxygen saturation and vital signs, and early senior review. Escalate to critical care where indicated."
)

var managementTemplates = map[domain.Category]string{
	domain.CategoryOncology: "Management of %s depends on stage and molecular profile. Options include surgery, chemotherapy, radiotherapy, targeted therapy, immunotherapy with checkpoint inhibitors and hormonal therapy. Decisions should be made by a multidisciplinary team. Oncological emergencies such as neutropenic sepsis, hypercalcaemia and spinal cord compression need prompt recognition, and early palliative care involvement improves quality of life.",
	domain.CategoryInfectious: "For %s, take microbiological samples (blood, urine, sputum or wound swabs) before starting antimicrobials where possible. Start empirical therapy guided by the clinical syndrome, local resistance data and patient factors, then de-escalate to targeted therapy once sensitivities are available. Switch from IV to oral when clinically appropriate. Apply infection control, vaccination and contact tracing per local public health guidance.",
	domain.CategoryMentalHealth: "%s requires a comprehensive biopsychosocial assessment using validated screening tools alongside clinical interview, including risk assessment for self-harm. Evidence-based psychological therapies such as CBT form the cornerstone of care, often combined with pharmacotherapy chosen by diagnosis, comorbidities and prior response. Follow a stepped-care model and involve community mental health teams.",
	domain.CategoryAutoimmune: "Diagnosis of %s usually rests on serology (ANA, ANCA, RF, anti-CCP, complement), imaging and often biopsy, classified against EULAR/ACR criteria. Treat flares with corticosteroids or NSAIDs, maintain remission with DMARDs such as methotrexate, hydroxychloroquine or azathioprine, and reserve biologics or JAK inhibitors for refractory or severe disease.",
	domain.CategoryGeneral: "Treatment of %s follows current clinical practice guidelines from leading medical organisations such as NICE, WHO and the relevant specialty societies. A stepwise approach starts with lifestyle and low-risk interventions before escalating to pharmacotherapy and specialist management.",
}

var monitoringTemplates = map[domain.Category]string{
	domain.CategoryOncology:   "Follow-up of %s combines clinical review, tumour markers where relevant and surveillance imaging at intervals set by the treating team. Monitor for treatment toxicity and recurrence, and address survivorship needs.",
	domain.CategoryAutoimmune: "In %s, monitor disease activity, medication toxicity (FBC, LFTs, renal function) and complications including infection risk, malignancy screening and bone health.",
	domain.CategoryGeneral:    "Review treatment response, side effects and progression of %s regularly. Patient education, shared decision-making and management of comorbidities are integral to holistic care.",
}

// managementFamily maps categories onto the prose family they share.
var managementFamily = map[domain.Category]domain.Category{
	domain.CategoryOncology:         domain.CategoryOncology,
	domain.CategoryInfectious:       domain.CategoryInfectious,
	domain.CategoryInfectiousSevere: domain.CategoryInfectious,
	domain.CategoryMentalHealth:     domain.CategoryMentalHealth,
	domain.CategoryAutoimmune:       domain.CategoryAutoimmune,
}

// fallbackCitations are the authoritative sources attached to every synthesized answer.
var fallbackCitations = []domain.Citation{
	{Label: "WHO", Title: "WHO Guidelines", URL: "https://www.who.int/publications/who-guidelines", Kind: domain.CitationAuthoritative},
	{Label: "NICE", Title: "NICE Guidance", URL: "https://www.nice.org.uk/guidance", Kind: domain.CitationAuthoritative},
	{Label: "CDC", Title: "CDC Diseases & Conditions", URL: "https://www.cdc.gov/health-topics.html", Kind: domain.CitationAuthoritative},
	{Label: "NIH", Title: "NIH MedlinePlus", URL: "https://medlineplus.gov/", Kind: domain.CitationAuthoritative},
}

// FallbackSynthesizer builds structured answers for subjects the curated
// knowledge base does not cover. It is pure and safe for concurrent use.
type FallbackSynthesizer struct{}

// NewFallbackSynthesizer creates a FallbackSynthesizer.
func NewFallbackSynthesizer() *FallbackSynthesizer {
	return &FallbackSynthesizer{}
}

// Synthesize composes an answer for subject. Sections depend on category:
// oncology adds Diagnosis & Staging after the overview, acute categories
// end with Emergency Considerations. An unknown category is treated as
// General.
func (s *FallbackSynthesizer) Synthesize(subject string, category domain.Category, mods ...domain.Modifier) *domain.ResolutionResult {
	if !category.IsValid() {
		category = domain.CategoryGeneral
	}

	sections := []domain.Section{{Heading: HeadingOverview, Body: fmt.Sprintf(overviewTemplate, subject)}}
	if category.IsOncologic() {
		sections = append(sections, domain.Section{Heading: HeadingDiagnosis, Body: fmt.Sprintf(diagnosisTemplate, subject)})
	}
	sections = append(sections,
		domain.Section{Heading: HeadingManagement, Body: fmt.Sprintf(pick(managementTemplates, category), subject)},
		domain.Section{Heading: HeadingMonitoring, Body: fmt.Sprintf(pick(monitoringTemplates, category), subject)},
	)
	if slices.Contains(mods, domain.ModifierPaediatric) {
		sections = append(sections, domain.Section{Heading: HeadingPaediatric, Body: fmt.Sprintf(paediatricTemplate, subject)})
	}
	if category.IsAcute() {
		sections = append(sections, domain.Section{Heading: HeadingEmergency, Body: fmt.Sprintf(emergencyTemplate, subject)})
	}

	citations := make([]domain.Citation, 0, len(fallbackCitations)+2)
	citations = append(citations, fallbackCitations...)
	citations = append(citations, SearchCitations(subject)...)

	return &domain.ResolutionResult{
		Subject:    subject,
		Stage:      domain.StageFallback,
		Category:   category,
		Confidence: domain.StageFallback.Confidence(),
		Sections:   sections,
		Citations:  citations,
	}
}

// SearchCitations returns the scholarly and biomedical literature search
// links for subject.
func SearchCitations(subject string) []domain.Citation {
	q := url.QueryEscape(subject)
	return []domain.Citation{
		{Label: "Google Scholar", Title: "Google Scholar search", URL: scholarSearchURL + q, Kind: domain.CitationSearch},
		{Label: "PubMed", Title: "PubMed search", URL: pubmedSearchURL + q, Kind: domain.CitationSearch},
	}
}

func pick(templates map[domain.Category]string, category domain.Category) string {
	if family, ok := managementFamily[category]; ok {
		if t, ok := templates[family]; ok {
			return t
		}
	}
	return templates[domain.CategoryGeneral]
}
