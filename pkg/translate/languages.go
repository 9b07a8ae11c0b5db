package translate

import (
	"golang.org/x/text/language"
)

const (
	// DefaultExtendedCode is returned by ToExtendedCode for unmapped codes.
	DefaultExtendedCode = "eng_Latn"
	// DefaultFallbackModel is returned by FallbackModelFor for unmapped pairs.
	DefaultFallbackModel = "Helsinki-NLP/opus-mt-mul-en"
	// DefaultDetectedLanguage is returned when detection cannot produce a label.
	DefaultDetectedLanguage = "en"
	// DefaultSourceLanguage is assumed by the inference adapter when no source is given.
	DefaultSourceLanguage = "en"
)

// nllbCodes maps common language codes to NLLB-200 codes (language + script).
var nllbCodes = map[string]string{
	"en":    "eng_Latn",
	"es":    "spa_Latn",
	"fr":    "fra_Latn",
	"de":    "deu_Latn",
	"it":    "ita_Latn",
	"pt":    "por_Latn",
	"ru":    "rus_Cyrl",
	"ja":    "jpn_Jpan",
	"ko":    "kor_Hang",
	"zh":    "zho_Hans",
	"zh-CN": "zho_Hans",
	"zh-TW": "zho_Hant",
	"ar":    "arb_Arab",
	"hi":    "hin_Deva",
	"ne":    "npi_Deva",
	"nl":    "nld_Latn",
	"pl":    "pol_Latn",
	"tr":    "tur_Latn",
	"vi":    "vie_Latn",
	"th":    "tha_Thai",
	"id":    "ind_Latn",
}

// opusModels maps "src-tgt" pairs to bilingual Helsinki-NLP OPUS models.
// Some pairs share a model: there is no en-ne model, so Nepali is routed
// through the Hindi one.
var opusModels = map[string]string{
	"en-es": "Helsinki-NLP/opus-mt-en-es",
	"en-fr": "Helsinki-NLP/opus-mt-en-fr",
	"en-de": "Helsinki-NLP/opus-mt-en-de",
	"en-ja": "Helsinki-NLP/opus-mt-en-jap",
	"en-zh": "Helsinki-NLP/opus-mt-en-zh",
	"en-ar": "Helsinki-NLP/opus-mt-en-ar",
	"en-hi": "Helsinki-NLP/opus-mt-en-hi",
	"en-ne": "Helsinki-NLP/opus-mt-en-hi",
	"es-en": "Helsinki-NLP/opus-mt-es-en",
	"fr-en": "Helsinki-NLP/opus-mt-fr-en",
	"de-en": "Helsinki-NLP/opus-mt-de-en",
	"zh-en": "Helsinki-NLP/opus-mt-zh-en",
}

// Language is an entry of the public language list.
type Language struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

var supportedLanguages = []Language{
	{Code: "en", Name: "English"},
	{Code: "es", Name: "Spanish"},
	{Code: "fr", Name: "French"},
	{Code: "de", Name: "German"},
	{Code: "hi", Name: "Hindi"},
	{Code: "ne", Name: "Nepali"},
	{Code: "ja", Name: "Japanese"},
	{Code: "zh", Name: "Chinese (Simplified)"},
	{Code: "ar", Name: "Arabic"},
	{Code: "it", Name: "Italian"},
	{Code: "pt", Name: "Portuguese"},
	{Code: "ru", Name: "Russian"},
	{Code: "ko", Name: "Korean"},
	{Code: "nl", Name: "Dutch"},
	{Code: "pl", Name: "Polish"},
	{Code: "tr", Name: "Turkish"},
	{Code: "vi", Name: "Vietnamese"},
	{Code: "th", Name: "Thai"},
	{Code: "id", Name: "Indonesian"},
}

// SupportedLanguages returns the fixed, ordered list of languages offered
// by the API. The returned slice is a copy.
func SupportedLanguages() []Language {
	out := make([]Language, len(supportedLanguages))
	copy(out, supportedLanguages)
	return out
}

// scriptCodes maps base-script pairs to NLLB codes for languages written
// in more than one script.
var scriptCodes = map[string]string{
	"zh-Hans": "zho_Hans",
	"zh-Hant": "zho_Hant",
}

// ToExtendedCode converts a language code to its NLLB code.
// Examples:
//   - "fr"      -> "fra_Latn"
//   - "zh-TW"   -> "zho_Hant"
//   - "zh-Hant" -> "zho_Hant" (script)
//   - "zh-HK"   -> "zho_Hant" (script inferred from region)
//   - "pt-BR"   -> "por_Latn" (base language)
//   - "xx"      -> "eng_Latn" (default)
func ToExtendedCode(code string) string {
	if ext, ok := nllbCodes[code]; ok {
		return ext
	}
	base, script := baseAndScript(code)
	if base == "" {
		return DefaultExtendedCode
	}
	if script != "" {
		if ext, ok := scriptCodes[base+"-"+script]; ok {
			return ext
		}
	}
	if ext, ok := nllbCodes[base]; ok {
		return ext
	}
	return DefaultExtendedCode
}

// FallbackModelFor returns the bilingual model for the source-target pair,
// or DefaultFallbackModel when the pair has none.
func FallbackModelFor(source, target string) string {
	if model, ok := opusModels[source+"-"+target]; ok {
		return model
	}
	return DefaultFallbackModel
}

// baseAndScript extracts the base language and script of a BCP 47 tag
// ("zh-HK" -> "zh", "Hant"). The script may be inferred from the region.
// Returns empty strings when the tag cannot be parsed.
func baseAndScript(code string) (string, string) {
	if code == "" {
		return "", ""
	}
	tag, err := language.Parse(code)
	if err != nil {
		return "", ""
	}
	base, confidence := tag.Base()
	if confidence == language.No {
		return "", ""
	}
	script, confidence := tag.Script()
	if confidence == language.No {
		return base.String(), ""
	}
	return base.String(), script.String()
}
