// Package analysis inspects a free-text project description and produces a
// structure descriptor: detected language, named modules with their components,
// a complexity bucket, and a 0-100 confidence score for hierarchical intent.
// Everything in this package is a pure function over strings; identical input
// always yields an identical PromptAnalysis.
package analysis

import (
	"regexp"
	"strings"
)

// Language identifies the dominant language of a prompt.
type Language string

const (
	LanguageEnglish Language = "english"
	LanguageSpanish Language = "spanish"
)

// Complexity buckets a prompt by how much structure it asks for.
type Complexity string

const (
	ComplexitySimple   Complexity = "simple"
	ComplexityMedium   Complexity = "medium"
	ComplexityDetailed Complexity = "detailed"
)

// Component is a sub-feature textually associated with a module.
type Component struct {
	Name        string
	Description string
}

// Module is a top-level named grouping detected in the prompt. Order is the
// insertion order of discovery, used for deterministic first-match tagging.
type Module struct {
	Name       string
	Components []Component
	Order      int
}

// Indicators records which structural signals were present in the prompt.
type Indicators struct {
	HasModules         bool
	HasNestedStructure bool
	HasNumberedLists   bool
	HasIndentation     bool
	HasColons          bool
}

// PromptAnalysis is the immutable result of analyzing one prompt.
type PromptAnalysis struct {
	Language        Language
	IsHierarchical  bool
	Modules         []Module
	Complexity      Complexity
	SuggestedLevels int
	Confidence      int
	Indicators      Indicators
}

var (
	spanishWords = []string{
		"crear", "sistema", "módulo", "módulos", "modulo", "modulos",
		"proyecto", "tarea", "tareas", "desarrollar", "diseñar", "gestión",
		"gestion", "aplicación", "aplicacion", "con", "para", "sección",
		"secciones", "usuarios", "ventas", "reportes",
	}
	englishWords = []string{
		"create", "build", "system", "module", "modules", "project", "task",
		"tasks", "develop", "design", "implement", "manage", "management",
		"application", "app", "feature", "features", "section", "with",
	}

	moduleVocabRe   = regexp.MustCompile(`(?i)\b(m[óo]dulos?|modules?|secci[óo]n(?:es)?|sections?|[áa]reas?)\b`)
	numberedModRe   = regexp.MustCompile(`(?i)^\s*(?:m[óo]dulo|module)\s*(\d+)\s*[:.\-]\s*(.+?)\s*$`)
	numberedListRe  = regexp.MustCompile(`^\s*\d+[.)]\s+`)
	multiLevelNumRe = regexp.MustCompile(`\b\d+\.\d+\b`)
	bulletRe        = regexp.MustCompile(`^(\s*)[-*•]\s+`)
	listMarkerRe    = regexp.MustCompile(`^\s*(?:[-*•]|\d+[.)])\s+`)
	wordRe          = regexp.MustCompile(`\S+`)
)

// componentLookahead bounds how many lines after a module mention are scanned
// for component candidates.
const componentLookahead = 4

// Analyze inspects prompt and returns its structure descriptor. An empty or
// whitespace-only prompt is not an error: it yields a degenerate analysis with
// zero confidence and no modules.
func Analyze(prompt string) PromptAnalysis {
	if strings.TrimSpace(prompt) == "" {
		return PromptAnalysis{
			Language:        LanguageEnglish,
			Complexity:      ComplexitySimple,
			SuggestedLevels: 1,
		}
	}

	lines := strings.Split(prompt, "\n")

	ind := Indicators{
		HasNestedStructure: detectNestedStructure(lines),
		HasNumberedLists:   anyLineMatches(lines, numberedListRe),
		HasIndentation:     detectIndentation(lines),
		HasColons:          strings.Contains(prompt, ":"),
	}

	modules := detectModules(prompt, lines)
	ind.HasModules = moduleVocabRe.MatchString(prompt) || len(modules) > 0

	score, confidence := scorePrompt(prompt, modules, ind)

	complexity, levels := ComplexitySimple, 1
	switch {
	case score >= 6:
		complexity, levels = ComplexityDetailed, 3
	case score >= 3:
		complexity, levels = ComplexityMedium, 2
	}

	structural := 0
	for _, b := range []bool{ind.HasNestedStructure, ind.HasNumberedLists, ind.HasIndentation, ind.HasColons} {
		if b {
			structural++
		}
	}

	hierarchical := confidence >= 60 ||
		len(modules) >= 2 ||
		(ind.HasNestedStructure && ind.HasModules) ||
		structural >= 3

	return PromptAnalysis{
		Language:        detectLanguage(prompt),
		IsHierarchical:  hierarchical,
		Modules:         modules,
		Complexity:      complexity,
		SuggestedLevels: levels,
		Confidence:      confidence,
		Indicators:      ind,
	}
}

// detectLanguage counts indicator vocabulary for each language. Spanish wins
// only on a strict majority; ties default to english.
func detectLanguage(prompt string) Language {
	lower := strings.ToLower(prompt)
	if countWords(lower, spanishWords) > countWords(lower, englishWords) {
		return LanguageSpanish
	}
	return LanguageEnglish
}

func countWords(lower string, vocab []string) int {
	n := 0
	for _, w := range vocab {
		re := wholeWordPattern(w)
		n += len(re.FindAllStringIndex(lower, -1))
	}
	return n
}

// detectModules extracts named modules. Numbered declarations
// ("Module 1: Sales") take priority; the static catalogue is consulted only
// when no numbered modules are present.
func detectModules(prompt string, lines []string) []Module {
	modules := extractNumberedModules(lines)
	if len(modules) == 0 {
		modules = matchCatalog(prompt)
	}
	for i := range modules {
		modules[i].Components = harvestComponents(lines, modules[i].Name)
	}
	return modules
}

func extractNumberedModules(lines []string) []Module {
	var modules []Module
	seen := make(map[string]bool)
	for _, line := range lines {
		m := numberedModRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		name := strings.TrimSpace(m[2])
		key := strings.ToLower(name)
		if name == "" || seen[key] {
			continue
		}
		seen[key] = true
		modules = append(modules, Module{Name: name, Order: len(modules)})
	}
	return modules
}

func matchCatalog(prompt string) []Module {
	lower := strings.ToLower(prompt)
	var modules []Module
	seen := make(map[string]bool)
	for _, name := range ModuleCatalog {
		re := wholeWordPattern(strings.ToLower(name))
		loc := re.FindStringSubmatchIndex(lower)
		if loc == nil {
			continue
		}
		key := strings.ToLower(name)
		if seen[key] {
			continue
		}
		seen[key] = true
		// loc[2]:loc[3] is the capture group; preserve the casing the prompt
		// actually used.
		modules = append(modules, Module{
			Name:  prompt[loc[2]:loc[3]],
			Order: len(modules),
		})
	}
	// Catalogue hits are recorded in order of appearance in the prompt, not
	// catalogue order, so tagging follows the author's own sequence.
	sortByPromptPosition(modules, lower)
	return modules
}

func sortByPromptPosition(modules []Module, lower string) {
	pos := func(m Module) int {
		return strings.Index(lower, strings.ToLower(m.Name))
	}
	for i := 1; i < len(modules); i++ {
		for j := i; j > 0 && pos(modules[j]) < pos(modules[j-1]); j-- {
			modules[j], modules[j-1] = modules[j-1], modules[j]
		}
	}
	for i := range modules {
		modules[i].Order = i
	}
}

// harvestComponents scans up to componentLookahead lines following each line
// that names the module, stopping at the next module mention, and accepts
// list-marked or keyword-bearing lines as components.
func harvestComponents(lines []string, moduleName string) []Component {
	lowerName := strings.ToLower(moduleName)
	var components []Component
	for i, line := range lines {
		if !strings.Contains(strings.ToLower(line), lowerName) {
			continue
		}
		for j := i + 1; j <= i+componentLookahead && j < len(lines); j++ {
			next := lines[j]
			if mentionsOtherModule(next, lowerName) {
				break
			}
			c, ok := parseComponentLine(next)
			if ok {
				components = append(components, c)
			}
		}
		break
	}
	return components
}

func mentionsOtherModule(line, currentModule string) bool {
	lower := strings.ToLower(line)
	if numberedModRe.MatchString(line) {
		return true
	}
	for _, name := range ModuleCatalog {
		ln := strings.ToLower(name)
		if ln != currentModule && wholeWordPattern(ln).MatchString(lower) {
			return true
		}
	}
	return false
}

func parseComponentLine(line string) (Component, bool) {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return Component{}, false
	}
	listed := listMarkerRe.MatchString(line)
	keyworded := containsComponentKeyword(trimmed)
	if !listed && !keyworded {
		return Component{}, false
	}
	body := listMarkerRe.ReplaceAllString(line, "")
	body = strings.TrimSpace(body)
	if body == "" {
		return Component{}, false
	}
	if name, desc, ok := strings.Cut(body, ":"); ok {
		return Component{Name: strings.TrimSpace(name), Description: strings.TrimSpace(desc)}, true
	}
	return Component{Name: body}, true
}

var componentKeywords = []string{
	"gestión", "gestion", "manage", "management", "registro", "register",
	"control", "crud", "admin", "catálogo", "catalogo", "catalog",
}

func containsComponentKeyword(line string) bool {
	lower := strings.ToLower(line)
	for _, kw := range componentKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// detectNestedStructure looks for indented bullet runs where indentation
// increases between consecutive bullets, multi-level numbering ("1.1"), or a
// contiguous block of sub-indented list lines under a parent list line.
func detectNestedStructure(lines []string) bool {
	prevBulletIndent := -1
	prevWasList := false
	prevListIndent := -1
	for _, line := range lines {
		if multiLevelNumRe.MatchString(line) {
			return true
		}
		if m := bulletRe.FindStringSubmatch(line); m != nil {
			indent := indentWidth(m[1])
			if prevBulletIndent >= 0 && indent > prevBulletIndent {
				return true
			}
			prevBulletIndent = indent
		} else if strings.TrimSpace(line) != "" {
			prevBulletIndent = -1
		}

		if listMarkerRe.MatchString(line) {
			indent := indentWidth(leadingWhitespace(line))
			if prevWasList && indent > prevListIndent {
				return true
			}
			prevWasList = true
			prevListIndent = indent
		} else if strings.TrimSpace(line) != "" {
			prevWasList = false
			prevListIndent = -1
		}
	}
	return false
}

func detectIndentation(lines []string) bool {
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		ws := leadingWhitespace(line)
		if strings.Contains(ws, "\t") || len(ws) >= 2 {
			return true
		}
	}
	return false
}

func leadingWhitespace(line string) string {
	return line[:len(line)-len(strings.TrimLeft(line, " \t"))]
}

func indentWidth(ws string) int {
	// A tab counts as four spaces for comparison purposes.
	return len(strings.ReplaceAll(ws, "\t", "    "))
}

func anyLineMatches(lines []string, re *regexp.Regexp) bool {
	for _, line := range lines {
		if re.MatchString(line) {
			return true
		}
	}
	return false
}

// scorePrompt computes the weighted complexity score and the capped 0-100
// confidence. Word-count buckets, module-count buckets, and each structural
// indicator contribute to both.
func scorePrompt(prompt string, modules []Module, ind Indicators) (score, confidence int) {
	words := len(wordRe.FindAllString(prompt, -1))
	switch {
	case words > 100:
		score += 2
		confidence += 20
	case words > 50:
		score++
		confidence += 10
	}

	switch n := len(modules); {
	case n > 3:
		score += 3
		confidence += 30
	case n > 1:
		score += 2
		confidence += 20
	case n == 1:
		score++
		confidence += 10
	}

	if ind.HasNestedStructure {
		score += 2
		confidence += 20
	}
	if ind.HasNumberedLists {
		score++
		confidence += 10
	}
	if ind.HasIndentation {
		score++
		confidence += 10
	}
	if ind.HasColons {
		score++
		confidence += 5
	}

	if confidence > 100 {
		confidence = 100
	}
	return score, confidence
}

// wordPatterns is populated once at init and read-only afterwards, keeping
// Analyze reentrant.
var wordPatterns = map[string]*regexp.Regexp{}

func init() {
	for _, w := range spanishWords {
		wordPatterns[w] = compileWholeWord(w)
	}
	for _, w := range englishWords {
		wordPatterns[w] = compileWholeWord(w)
	}
	for _, name := range ModuleCatalog {
		w := strings.ToLower(name)
		wordPatterns[w] = compileWholeWord(w)
	}
}

func wholeWordPattern(w string) *regexp.Regexp {
	if re, ok := wordPatterns[w]; ok {
		return re
	}
	return compileWholeWord(w)
}

func compileWholeWord(w string) *regexp.Regexp {
	// \b misbehaves around accented runes, so anchor on non-letter boundaries
	// explicitly.
	return regexp.MustCompile(`(?i)(?:^|[^\p{L}\p{N}])(` + regexp.QuoteMeta(w) + `)(?:$|[^\p{L}\p{N}])`)
}
