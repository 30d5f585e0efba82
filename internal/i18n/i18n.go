package i18n

// Locale is an admin/storefront language code.
type Locale string

const (
	LocaleEN Locale = "en"
	LocaleFA Locale = "fa"
)

// ParseLocale returns a supported locale, defaulting to English.
func ParseLocale(s string) Locale {
	if Locale(s) == LocaleFA {
		return LocaleFA
	}
	return LocaleEN
}

// Text is a string carried in both supported languages.
type Text struct {
	EN string `json:"en"`
	FA string `json:"fa"`
}

// Tr builds a bilingual text value.
func Tr(en, fa string) Text {
	return Text{EN: en, FA: fa}
}

// In returns the string for the given locale.
func (t Text) In(loc Locale) string {
	if loc == LocaleFA && t.FA != "" {
		return t.FA
	}
	return t.EN
}
