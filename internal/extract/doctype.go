package extract

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/chriscarrollsmith/mindmap-generator/internal/oracle"
)

// DocType selects the prompt guidance used for every extraction level.
type DocType string

const (
	Technical     DocType = "TECHNICAL"
	Scientific    DocType = "SCIENTIFIC"
	Narrative     DocType = "NARRATIVE"
	Business      DocType = "BUSINESS"
	Academic      DocType = "ACADEMIC"
	Legal         DocType = "LEGAL"
	Medical       DocType = "MEDICAL"
	Instructional DocType = "INSTRUCTIONAL"
	Analytical    DocType = "ANALYTICAL"
	Procedural    DocType = "PROCEDURAL"
	General       DocType = "GENERAL"
)

// DocTypes lists every type in detection order.
var DocTypes = []DocType{
	Technical, Scientific, Narrative, Business, Academic, Legal,
	Medical, Instructional, Analytical, Procedural, General,
}

// ParseDocType finds a known type name in an oracle answer. Unknown answers
// map to General.
func ParseDocType(s string) DocType {
	s = strings.ToUpper(strings.TrimSpace(s))
	for _, dt := range DocTypes {
		if strings.HasPrefix(s, string(dt)) {
			return dt
		}
	}
	for _, dt := range DocTypes {
		if strings.Contains(s, string(dt)) {
			return dt
		}
	}
	return General
}

const (
	detectTask      = "detecting_document_type"
	detectMaxTokens = 50
	detectExcerpt   = 2500
	docTypeKeyLen   = 1000
)

const detectPrompt = `You are analyzing a document to determine its primary type and structure. This document requires the most appropriate conceptual organization strategy.

Key characteristics of each document type:

TECHNICAL
- System specifications, API documentation or implementation details; HOW things work
Example indicators: API endpoints, code blocks, system requirements, technical specifications

SCIENTIFIC
- Research findings, experimental data or theories following the scientific method
Example indicators: methodology sections, statistical results, citations, experimental procedures

NARRATIVE
- Tells a story or presents events in sequence, with characters or plot progression
Example indicators: character descriptions, plot developments, narrative flow, dialogue

BUSINESS
- Business operations, strategy, market analysis, financial data or recommendations
Example indicators: market analysis, financial projections, strategic plans, ROI calculations

ACADEMIC
- Scholarly research engaging with literature and theoretical frameworks
Example indicators: literature reviews, theoretical frameworks, scholarly arguments, academic citations

LEGAL
- Laws, regulations, rights, obligations or compliance in formal legal language
Example indicators: legal citations, compliance requirements, jurisdictional references, statutory language

MEDICAL
- Clinical care, diagnoses, treatments and patient outcomes
Example indicators: diagnostic criteria, treatment protocols, clinical outcomes, medical terminology

INSTRUCTIONAL
- Teaching or skill development with objectives, exercises and assessment
Example indicators: learning objectives, practice exercises, assessment criteria, skill development

ANALYTICAL
- Systematic examination of data, trends, patterns or correlations
Example indicators: data trends, analytical methods, pattern analysis, statistical insights

PROCEDURAL
- Step-by-step instructions or workflows for accomplishing specific tasks
Example indicators: numbered steps, workflow diagrams, sequential instructions

GENERAL
- Broad or mixed content with no strong alignment to the other categories
Example indicators: mixed content types, general descriptions, broad overviews, diverse topics

Key Differentiators:
1. TECHNICAL describes how system components work; PROCEDURAL lists steps to accomplish tasks
2. SCIENTIFIC validates hypotheses experimentally; ACADEMIC develops theory and scholarly discourse
3. ANALYTICAL draws insights from data patterns; SCIENTIFIC validates hypotheses
4. INSTRUCTIONAL builds skills; PROCEDURAL completes tasks
5. MEDICAL is about clinical care; SCIENTIFIC is about research methodology

Return ONLY the category name that best matches the document's structure and purpose.

Document excerpt:
`

// DocumentType classifies doc from its opening excerpt. Results are cached by
// a hash of the first 1000 characters, and hit reports whether the cache
// answered. A failed call yields General.
func (e *Extractor) DocumentType(ctx context.Context, doc *Document) (dt DocType, hit bool) {
	key := Key{Scope: "doctype", Hash: HashOf(prefix(doc.Text, docTypeKeyLen))}
	if cached, ok := e.docTypes.Get(key); ok {
		return cached, true
	}

	resp, err := e.oracle.Generate(ctx, oracle.Request{
		Prompt:    detectPrompt + prefix(doc.Text, detectExcerpt),
		MaxTokens: detectMaxTokens,
		Task:      detectTask,
	})
	if err != nil {
		e.log.Error("detecting document type", "error", err)
		return General, false
	}
	dt = ParseDocType(resp)
	e.docTypes.Add(key, dt)
	return dt, false
}

// prefix returns at most n bytes of s without splitting a rune.
func prefix(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
