// Package language normalises user and recogniser language codes for the two
// families of external services: Google-style translators and everything else.
package language

import (
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// shared holds names and codes identical in both tables.
var shared = map[string]string{
	"arabic": "ar", "ar": "ar",
	"czech": "cs", "cs": "cs",
	"danish": "da", "da": "da",
	"dutch": "nl", "nl": "nl",
	"english": "en", "en": "en",
	"finnish": "fi", "fi": "fi",
	"french": "fr", "fr": "fr",
	"german": "de", "de": "de",
	"greek": "el", "el": "el",
	"hindi": "hi", "hi": "hi",
	"hungarian": "hu", "hu": "hu",
	"indonesian": "id", "id": "id",
	"italian": "it", "it": "it",
	"japanese": "ja", "ja": "ja",
	"korean": "ko", "ko": "ko",
	"norwegian": "no", "no": "no",
	"polish": "pl", "pl": "pl",
	"portuguese": "pt", "pt": "pt",
	"romanian": "ro", "ro": "ro",
	"russian": "ru", "ru": "ru",
	"slovak": "sk", "sk": "sk",
	"spanish": "es", "es": "es",
	"swedish": "sv", "sv": "sv",
	"thai": "th", "th": "th",
	"turkish": "tr", "tr": "tr",
	"ukrainian": "uk", "uk": "uk",
	"vietnamese": "vi", "vi": "vi",
	"zh_tw": "zh-tw", "taiwanese": "zh-tw",
}

// translatorOnly uses Google's legacy codes.
var translatorOnly = map[string]string{
	"hebrew": "iw", "iw": "iw",
	"chinese": "zh-cn", "zh": "zh-cn", "zh-cn": "zh-cn",
}

// apiOnly uses ISO 639-1 codes.
var apiOnly = map[string]string{
	"hebrew": "he", "he": "he",
	"chinese": "zh", "zh": "zh", "zh-cn": "zh",
}

// ForTranslator normalises code for Google-style translation services
// ("zh" becomes "zh-cn", "hebrew" becomes "iw"). Unknown codes are returned
// lowercased and trimmed.
func ForTranslator(code string) string {
	return lookup(code, translatorOnly)
}

// ForAPI normalises code for speech recognisers and other translation APIs
// ("zh-cn" becomes "zh", "hebrew" becomes "he"). Unknown codes are returned
// lowercased and trimmed.
func ForAPI(code string) string {
	return lookup(code, apiOnly)
}

func lookup(code string, specific map[string]string) string {
	key := strings.ToLower(strings.TrimSpace(code))
	if v, ok := specific[key]; ok {
		return v
	}
	if v, ok := shared[key]; ok {
		return v
	}
	return key
}

// NeedsTranslation reports whether subtitles in detected must be translated
// to reach target. A target contained in the detected code ("zh" in "zh-cn")
// counts as the same language.
func NeedsTranslation(detected, target string) bool {
	t := strings.ToLower(strings.TrimSpace(target))
	if t == "" {
		return false
	}
	return !strings.Contains(strings.ToLower(detected), t)
}

// DisplayName returns the English name of code for use in prompts, or the
// code itself when it cannot be parsed.
func DisplayName(code string) string {
	code = strings.TrimSpace(code)
	if code == "" {
		return code
	}
	tag, err := language.Parse(ForAPI(code))
	if err != nil {
		return code
	}
	name := display.English.Tags().Name(tag)
	if name == "" {
		return code
	}
	return name
}
