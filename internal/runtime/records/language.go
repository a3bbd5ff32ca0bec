// Package records holds the domain payloads carried inside envelope data:
// system-under-test descriptions and symbolic execution trajectories.
package records

import (
	"path/filepath"
	"strings"
)

// Language is the detected programming language of a system under test.
type Language string

const (
	LanguagePython  Language = "python"
	LanguageC       Language = "c"
	LanguageCPP     Language = "cpp"
	LanguageJava    Language = "java"
	LanguageUnknown Language = "unknown"
)

var languages = map[Language]struct{}{
	LanguagePython:  {},
	LanguageC:       {},
	LanguageCPP:     {},
	LanguageJava:    {},
	LanguageUnknown: {},
}

var extensions = map[string]Language{
	".py":   LanguagePython,
	".c":    LanguageC,
	".h":    LanguageC,
	".cpp":  LanguageCPP,
	".cc":   LanguageCPP,
	".cxx":  LanguageCPP,
	".hpp":  LanguageCPP,
	".java": LanguageJava,
}

// ParseLanguage maps s onto the closed set, falling back to LanguageUnknown.
func ParseLanguage(s string) Language {
	l := Language(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := languages[l]; ok {
		return l
	}
	return LanguageUnknown
}

// DetectLanguage guesses the language of a single source file from its
// extension.
func DetectLanguage(filename string) Language {
	if l, ok := extensions[strings.ToLower(filepath.Ext(filename))]; ok {
		return l
	}
	return LanguageUnknown
}

func (l Language) String() string { return string(l) }
