package extract

import (
	"encoding/json"
	"fmt"
	"strings"
)

// guidance is the type-specific part of each level's prompt.
type guidance struct {
	// Theme names what a topic is for this kind of document, e.g. "technical component".
	Theme     string
	Topics    string
	Subtopics string
	Details   string
}

var guidanceByType = map[DocType]guidance{
	Technical: {
		Theme: "technical component",
		Topics: `Analyze this technical document focusing on core system components and relationships.
Identify the major architectural or technical components that form complete, independent units of functionality.
Each component should be a distinct system, module or process, critical to the overall system and connected to at least one other component.
Avoid implementation-level details, entire system categories and pure documentation elements.`,
		Subtopics: `Identify the essential sub-components and interfaces of this component.
Consider the interfaces it exposes, its internal subsystems, how it processes data or handles requests, and the protocols it implements.`,
		Details: `Focus on key algorithms, data structures and formats, protocol specifications, performance characteristics, error handling, security considerations and dependencies.
Include concrete details that are implementation-specific and measurable.`,
	},
	Scientific: {
		Theme: "scientific theme",
		Topics: `Analyze this scientific document focusing on major research components and methodological frameworks.
Identify themes that represent complete experimental or theoretical units and support the research objectives.
Consider the primary research questions, methodological approaches, theoretical frameworks and experimental designs.
Avoid individual measurements, entire fields of study and administrative elements.`,
		Subtopics: `Identify the key methodological elements and experimental components of this theme.
Consider the specific methods employed, variables measured, controls implemented, analytical techniques and validation.`,
		Details: `Focus on measurement specifications, statistical analyses, data collection procedures, validation methods, error margins, equipment and environmental conditions.
Include details that are quantifiable and reproducible.`,
	},
	Narrative: {
		Theme: "narrative element",
		Topics: `Analyze this narrative document focusing on storytelling elements and plot development.
Identify major narrative components that represent complete story arcs, essential structures or key developments.
Consider the primary plot points, character arcs, themes and settings.
Avoid single scenes, entire genres and purely stylistic elements.`,
		Subtopics: `Identify the key story components of this element.
Consider the events, characters, conflicts, settings and turning points involved.`,
		Details: `Focus on specific scenes, character actions and motivations, dialogue, descriptive passages, symbols and their consequences in the story.
Include details that are concrete and drawn from the text.`,
	},
	Business: {
		Theme: "business theme",
		Topics: `Analyze this business document focusing on strategic initiatives and market opportunities.
Identify major business components that represent complete strategies, market approaches or key objectives.
Consider the primary objectives, targeted opportunities, proposed initiatives and required capabilities.
Avoid individual tactics, entire industries and administrative content.`,
		Subtopics: `Identify the key strategic elements and approaches of this theme.
Consider the specific strategies proposed, targeted segments, required resources, competitive advantages and implementation steps.`,
		Details: `Focus on market metrics, financial projections, resource requirements, implementation timelines, success metrics, risk factors and growth opportunities.
Include details that are measurable and action-oriented.`,
	},
	Academic: {
		Theme: "academic theme",
		Topics: `Analyze this academic document focusing on scholarly arguments and theoretical frameworks.
Identify major themes that represent complete arguments, frameworks or contributions to the field.
Consider the central thesis, theoretical lenses, engagement with prior literature and conclusions.
Avoid individual citations, entire disciplines and formatting elements.`,
		Subtopics: `Identify the theoretical components of this theme.
Consider the supporting arguments, key concepts, counterarguments, evidence and methodological choices.`,
		Details: `Focus on specific claims, cited evidence, definitions, scholarly debates, limitations and implications.
Include details that are precise and attributable to the text.`,
	},
	Legal: {
		Theme: "legal framework",
		Topics: `Analyze this legal document focusing on key legal principles and frameworks.
Identify major themes that represent complete legal concepts, obligations or rights.
Consider the governing provisions, parties, obligations, remedies and jurisdiction.
Avoid single clauses, entire bodies of law and boilerplate.`,
		Subtopics: `Identify the requirements and obligations within this framework.
Consider conditions, exceptions, responsibilities of each party, procedures and penalties.`,
		Details: `Focus on specific provisions, deadlines, thresholds, definitions, exceptions, enforcement mechanisms and referenced statutes or cases.
Include details that are precise and citable.`,
	},
	Medical: {
		Theme: "clinical concept",
		Topics: `Analyze this medical document focusing on key clinical concepts and patient care aspects.
Identify major themes that represent complete clinical areas such as conditions, diagnostics or treatments.
Consider diagnosis, treatment approaches, patient outcomes and clinical guidelines.
Avoid single measurements, entire specialties and administrative content.`,
		Subtopics: `Identify the clinical approaches within this concept.
Consider diagnostic criteria, interventions, monitoring, contraindications and follow-up care.`,
		Details: `Focus on dosages, diagnostic thresholds, protocols, outcomes, risks, side effects and guideline recommendations.
Include details that are clinically specific.`,
	},
	Instructional: {
		Theme: "learning module",
		Topics: `Analyze this instructional document focusing on key learning objectives and educational frameworks.
Identify major themes that represent complete learning modules or skills.
Consider the learning objectives, core skills, practice activities and assessment.
Avoid single exercises, entire curricula and formatting elements.`,
		Subtopics: `Identify the learning components of this module.
Consider the concepts taught, skills practiced, examples used and checks for understanding.`,
		Details: `Focus on specific instructions, examples, exercises, common mistakes, tips and assessment criteria.
Include details that a learner could act on.`,
	},
	Analytical: {
		Theme: "analytical theme",
		Topics: `Analyze this analytical document focusing on key insights and data patterns.
Identify major themes that represent complete analyses, frameworks or findings.
Consider the questions investigated, data sources, methods and conclusions.
Avoid single data points, entire domains and presentation elements.`,
		Subtopics: `Identify the investigation methods and findings within this theme.
Consider the metrics examined, comparisons made, trends found and interpretations offered.`,
		Details: `Focus on specific findings, metrics, trends, correlations, comparisons and caveats.
Include details that are grounded in the data presented.`,
	},
	Procedural: {
		Theme: "process phase",
		Topics: `Analyze this procedural document focusing on systematic processes and workflows.
Identify major phases or processes that form complete units of work.
Consider the overall workflow, its phases, prerequisites and outcomes.
Avoid single steps, entire operations manuals and formatting elements.`,
		Subtopics: `Identify the process steps within this phase.
Consider ordering, inputs and outputs, decision points, roles and checks.`,
		Details: `Focus on specific actions, parameters, tools, conditions, warnings and expected results.
Include details in the order they should be performed.`,
	},
	General: {
		Theme: "theme",
		Topics: `Analyze this document focusing on main conceptual themes and relationships.
Identify major themes that represent complete, independent ideas and support the document's main purpose.
Consider the fundamental ideas presented, how they relate and how the information is structured.
Avoid individual examples, entire subject areas, isolated facts and formatting elements.`,
		Subtopics: `Identify the key supporting concepts and related ideas of this theme.
Consider the main points made about it, the examples and evidence given and how it develops through the document.`,
		Details: `Focus on concrete examples, supporting evidence, key definitions, important relationships and notable implications.
Include details that illustrate the concept and aid understanding.`,
	},
}

func guidanceFor(dt DocType) guidance {
	if g, ok := guidanceByType[dt]; ok {
		return g
	}
	return guidanceByType[General]
}

const groundingRules = `IMPORTANT:
1. DO NOT include specific statistics, percentages, or numerical data unless explicitly stated in the source text
2. DO NOT refer to modern studies, surveys, or analyses that aren't mentioned in the document
3. DO NOT make up correlation coefficients, growth rates, or other numerical relationships
4. Keep your content strictly based on what's in the document, not general knowledge about the topic
5. Use general descriptions rather than specific numbers if the document doesn't provide exact figures`

func topicsPrompt(dt DocType, chunk string) string {
	var sb strings.Builder
	sb.WriteString("You are an expert at identifying unique, distinct main topics within content.\n\n")
	sb.WriteString(guidanceFor(dt).Topics)
	sb.WriteString(`

Additional requirements:
1. Each topic must be truly distinct from others - avoid overlapping concepts
2. Combine similar themes into single, well-defined topics
3. Ensure topics are specific enough to be meaningful but general enough to support subtopics
4. Aim for 4-8 most significant topics that capture the key distinct areas
5. Avoid topics that are too similar or could be subtopics of each other
6. Prioritize broader topics that can encompass multiple subtopics

`)
	sb.WriteString(groundingRules)
	sb.WriteString("\n\nCurrent content chunk:\n")
	sb.WriteString(chunk)
	sb.WriteString(`

IMPORTANT: Respond with ONLY a JSON array of strings representing the main distinct topics.
Example format: ["First Distinct Topic", "Second Distinct Topic"]`)
	return sb.String()
}

func consolidateTopicsPrompt(names []string, minTopics, maxTopics int) string {
	return fmt.Sprintf(`You are merging and consolidating similar topics from a document.

Here are the current potential topics extracted:
%s

Requirements:
1. Identify topics that cover the same or similar concepts
2. Merge overlapping topics into a single, well-defined topic
3. Choose the most representative, precise, and concise name for each topic
4. Ensure each final topic is clearly distinct from others
5. Aim for exactly %d-%d distinct topics that cover the key areas
6. Broader topics are preferred over narrower ones if they can encompass the same content

Return ONLY a JSON array of consolidated topic names.
Example: ["First Consolidated Topic", "Second Consolidated Topic"]`, jsonList(names), minTopics, maxTopics)
}

func subtopicsPrompt(dt DocType, topic, chunk string) string {
	g := guidanceFor(dt)
	var sb strings.Builder
	sb.WriteString("You are an expert at identifying distinct, relevant subtopics that support a main topic.\n\n")
	fmt.Fprintf(&sb, "Topic: %s\n\nFor the %s '%s':\n", topic, g.Theme, topic)
	sb.WriteString(g.Subtopics)
	sb.WriteString(`

Additional requirements:
1. Each subtopic must provide unique value and perspective with NO conceptual overlap
2. Ensure strong connection to main topic without repeating the topic itself
3. Include 4-6 important subtopics that cover different facets of the topic
4. Choose clear, concise subtopic names that accurately represent the content
5. Eliminate subtopics that could be merged without significant information loss

`)
	sb.WriteString(groundingRules)
	sb.WriteString("\n\nContent chunk:\n")
	sb.WriteString(chunk)
	sb.WriteString(`

IMPORTANT: Return ONLY a JSON array of strings representing distinct subtopics.
Example: ["First Distinct Subtopic", "Second Distinct Subtopic"]`)
	return sb.String()
}

func consolidateSubtopicsPrompt(topic string, names []string) string {
	return fmt.Sprintf(`You are consolidating subtopics for the main topic: %s

Current subtopics:
%s

Requirements:
1. Aggressively merge subtopics that cover similar information or concepts
2. Choose the clearest and most representative name for each consolidated subtopic
3. Each final subtopic must address a unique aspect of the main topic
4. Select 3-5 truly distinct subtopics that together fully cover the topic
5. Prioritize broader subtopics that can encompass multiple narrower ones

Return ONLY a JSON array of consolidated subtopic names.
Example: ["First Consolidated Subtopic", "Second Consolidated Subtopic"]`, topic, jsonList(names))
}

func detailsPrompt(dt DocType, subtopic, chunk string) string {
	var sb strings.Builder
	sb.WriteString("You are an expert at identifying distinct, important details that support a specific subtopic.\n\n")
	fmt.Fprintf(&sb, "Subtopic: %s\n\nFor the subtopic '%s':\n", subtopic, subtopic)
	sb.WriteString(guidanceFor(dt).Details)
	sb.WriteString(`

Additional requirements:
1. Each detail MUST provide 3-5 sentences of specific, substantive information
2. Include CONCRETE EXAMPLES, numbers, dates, or direct references from the text
3. Make each detail UNIQUELY VALUABLE - it should contain information not found in other details
4. Focus on DEPTH rather than breadth - explore fewer ideas more thoroughly
5. Avoid generic statements that could apply to many documents

Content chunk:
`)
	sb.WriteString(chunk)
	sb.WriteString(`

IMPORTANT: Return ONLY a JSON array where each object has:
- "text": The detail text (3-5 sentences with specific examples and evidence)
- "importance": "high", "medium", or "low" based on significance`)
	return sb.String()
}

func consolidateDetailsPrompt(subtopic string, texts []string) string {
	return fmt.Sprintf(`You are consolidating details for the subtopic: %s

Current details:
%s

Requirements:
1. Aggressively merge details that convey similar information or concepts
2. Choose the most clear, concise, and informative phrasing for each detail
3. Each final detail must provide unique information not covered by others
4. Select 3-5 truly distinct details that together fully support the subtopic
5. Mark each detail with appropriate importance (high/medium/low)

Return ONLY a JSON array of consolidated details with text and importance.
Example:
[
    {"text": "First distinct detail", "importance": "high"},
    {"text": "Second distinct detail", "importance": "medium"}
]`, subtopic, jsonList(texts))
}

func jsonList(items []string) string {
	b, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return "[]"
	}
	return string(b)
}
