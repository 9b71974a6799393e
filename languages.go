package transflow

import (
	"sort"
	"strings"
)

// LanguageNames maps ISO 639-1 codes to human-readable names, used by
// prompt-based providers and the CLI.
var LanguageNames = map[string]string{
	"en": "English",
	"zh": "Chinese",
	"ja": "Japanese",
	"ko": "Korean",
	"es": "Spanish",
	"fr": "French",
	"de": "German",
	"it": "Italian",
	"pt": "Portuguese",
	"ru": "Russian",
	"ar": "Arabic",
	"hi": "Hindi",
	"th": "Thai",
	"vi": "Vietnamese",
	"id": "Indonesian",
	"nl": "Dutch",
	"pl": "Polish",
	"tr": "Turkish",
	"sv": "Swedish",
	"da": "Danish",
	"fi": "Finnish",
	"no": "Norwegian",
	"cs": "Czech",
	"hu": "Hungarian",
	"ro": "Romanian",
	"el": "Greek",
	"he": "Hebrew",
	"uk": "Ukrainian",
	"bg": "Bulgarian",
	"hr": "Croatian",
	"sk": "Slovak",
	"sl": "Slovenian",
	"et": "Estonian",
	"lv": "Latvian",
	"lt": "Lithuanian",
	"mt": "Maltese",
	"ga": "Irish",
	"cy": "Welsh",
}

// langAliases maps common region and script variants to their base code.
var langAliases = map[string]string{
	"zh-cn":   "zh",
	"zh-tw":   "zh",
	"zh-hans": "zh",
	"zh-hant": "zh",
	"en-us":   "en",
	"en-gb":   "en",
	"pt-br":   "pt",
	"pt-pt":   "pt",
	"nb":      "no",
	"nn":      "no",
}

// NormalizeLang canonicalizes a language code to lowercase ISO 639-1 form.
// Region variants reduce to their base code ("zh-CN" becomes "zh",
// "en_US" becomes "en"). An empty code normalizes to AutoDetect.
func NormalizeLang(code string) string {
	if code == "" {
		return AutoDetect
	}

	code = strings.ToLower(strings.TrimSpace(code))
	code = strings.ReplaceAll(code, "_", "-")

	if base, ok := langAliases[code]; ok {
		return base
	}

	if i := strings.Index(code, "-"); i > 0 {
		base := code[:i]
		if _, ok := LanguageNames[base]; ok {
			return base
		}
	}

	return code
}

// ValidateLang reports whether code normalizes to a known language or
// AutoDetect.
func ValidateLang(code string) bool {
	if code == "" {
		return false
	}
	normalized := NormalizeLang(code)
	if normalized == AutoDetect {
		return true
	}
	_, ok := LanguageNames[normalized]
	return ok
}

// GetLanguageName returns the human-readable name for a language code,
// falling back to the normalized code itself when unknown.
func GetLanguageName(code string) string {
	normalized := NormalizeLang(code)
	if normalized == AutoDetect {
		return "Auto-detect"
	}
	if name, ok := LanguageNames[normalized]; ok {
		return name
	}
	return normalized
}

// SupportedLanguages returns the sorted list of language codes this module
// validates against.
func SupportedLanguages() []string {
	codes := make([]string, 0, len(LanguageNames))
	for code := range LanguageNames {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}
