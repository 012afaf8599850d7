package service

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medrag-mcp-server/internal/domain"
)

func headings(result *domain.ResolutionResult) []string {
	out := make([]string, 0, len(result.Sections))
	for _, s := range result.Sections {
		out = append(out, s.Heading)
	}
	return out
}

func TestFallbackSynthesizer_SectionSets(t *testing.T) {
	synth := NewFallbackSynthesizer()

	tests := []struct {
		name     string
		category domain.Category
		mods     []domain.Modifier
		expected []string
	}{
		{
			name:     "general",
			category: domain.CategoryGeneral,
			expected: []string{HeadingOverview, HeadingManagement, HeadingMonitoring},
		},
		{
			name:     "oncology adds diagnosis after overview",
			category: domain.CategoryOncology,
			expected: []string{HeadingOverview, HeadingDiagnosis, HeadingManagement, HeadingMonitoring},
		},
		{
			name:     "acute infection ends with emergency",
			category: domain.CategoryInfectiousSevere,
			expected: []string{HeadingOverview, HeadingManagement, HeadingMonitoring, HeadingEmergency},
		},
		{
			name:     "paediatric modifier",
			category: domain.CategoryRespiratory,
			mods:     []domain.Modifier{domain.ModifierPaediatric},
			expected: []string{HeadingOverview, HeadingManagement, HeadingMonitoring, HeadingPaediatric},
		},
		{
			name:     "emergency stays last with paediatric",
			category: domain.CategoryCardiovascularAcute,
			mods:     []domain.Modifier{domain.ModifierPaediatric},
			expected: []string{HeadingOverview, HeadingManagement, HeadingMonitoring, HeadingPaediatric, HeadingEmergency},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := synth.Synthesize("Test Condition", tt.category, tt.mods...)
			assert.Equal(t, tt.expected, headings(result))
			assert.Equal(t, domain.StageFallback, result.Stage)
			assert.Equal(t, tt.category, result.Category)
			assert.Equal(t, domain.MODERATE, result.Confidence)
			for _, s := range result.Sections {
				assert.Contains(t, s.Body, "Test Condition", s.Heading)
			}
		})
	}
}

func TestFallbackSynthesizer_ManagementProse(t *testing.T) {
	synth := NewFallbackSynthesizer()

	body := func(category domain.Category) string {
		for _, s := range synth.Synthesize("X", category).Sections {
			if s.Heading == HeadingManagement {
				return s.Body
			}
		}
		return ""
	}

	assert.Contains(t, body(domain.CategoryOncology), "multidisciplinary team")
	assert.Contains(t, body(domain.CategoryInfectious), "microbiological samples")
	assert.Equal(t, body(domain.CategoryInfectious), body(domain.CategoryInfectiousSevere))
	assert.Contains(t, body(domain.CategoryMentalHealth), "biopsychosocial")
	assert.Contains(t, body(domain.CategoryAutoimmune), "DMARDs")
	assert.Contains(t, body(domain.CategoryEndocrine), "stepwise approach")
	assert.Equal(t, body(domain.CategoryGeneral), body(domain.CategoryNeurological))
}

func TestFallbackSynthesizer_UnknownCategoryIsGeneral(t *testing.T) {
	result := NewFallbackSynthesizer().Synthesize("X", domain.Category("Dermatology"))
	assert.Equal(t, domain.CategoryGeneral, result.Category)
	assert.Equal(t, []string{HeadingOverview, HeadingManagement, HeadingMonitoring}, headings(result))
}

func TestFallbackSynthesizer_Citations(t *testing.T) {
	subject := "Kawasaki disease"
	result := NewFallbackSynthesizer().Synthesize(subject, domain.CategoryGeneral)

	require.Len(t, result.Citations, 6)
	labels := make([]string, 0, 4)
	for _, c := range result.Citations[:4] {
		assert.Equal(t, domain.CitationAuthoritative, c.Kind)
		labels = append(labels, c.Label)
	}
	assert.Equal(t, []string{"WHO", "NICE", "CDC", "NIH"}, labels)

	encoded := url.QueryEscape(subject)
	for _, c := range result.Citations[4:] {
		assert.Equal(t, domain.CitationSearch, c.Kind)
		assert.Contains(t, c.URL, encoded)
	}
	assert.Equal(t, "https://pubmed.ncbi.nlm.nih.gov/?term=Kawasaki+disease", result.Citations[5].URL)
}

func TestFallbackSynthesizer_CitationsIndependentOfCategory(t *testing.T) {
	synth := NewFallbackSynthesizer()
	general := synth.Synthesize("Same", domain.CategoryGeneral)
	oncology := synth.Synthesize("Same", domain.CategoryOncology)
	assert.Equal(t, general.Citations, oncology.Citations)
}

func TestSearchCitations_EncodesSubject(t *testing.T) {
	links := SearchCitations("Crohn's & colitis")
	require.Len(t, links, 2)
	assert.Equal(t, "https://scholar.google.com/scholar?q=Crohn%27s+%26+colitis", links[0].URL)
	assert.Equal(t, "Google Scholar", links[0].Label)
	assert.Equal(t, "PubMed", links[1].Label)
}
