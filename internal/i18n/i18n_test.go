package i18n

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseLocale(t *testing.T) {
	assert.Equal(t, LocaleFA, ParseLocale("fa"))
	assert.Equal(t, LocaleEN, ParseLocale("en"))
	assert.Equal(t, LocaleEN, ParseLocale("de"))
	assert.Equal(t, LocaleEN, ParseLocale(""))
}

func TestTextIn(t *testing.T) {
	msg := Tr("hello", "سلام")
	assert.Equal(t, "hello", msg.In(LocaleEN))
	assert.Equal(t, "سلام", msg.In(LocaleFA))

	// A missing translation falls back to English.
	partial := Tr("only english", "")
	assert.Equal(t, "only english", partial.In(LocaleFA))
}
