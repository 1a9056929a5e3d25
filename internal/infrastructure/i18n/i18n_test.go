package i18n

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"golang.org/x/text/language"
)

func TestTranslator_Match(t *testing.T) {
	tr := New()
	tests := []struct {
		header string
		want   string
	}{
		{"", "en"},
		{"zh-CN,zh;q=0.9,en;q=0.8", "zh-Hans"},
		{"zh-Hans", "zh-Hans"},
		{"en-GB,en;q=0.9", "en"},
		{"fr-FR", "en"},
		{"de;q=0.9,zh;q=0.5", "zh-Hans"},
		{";;garbage", "en"},
	}
	for _, tt := range tests {
		t.Run(tt.header, func(t *testing.T) {
			assert.Equal(t, tt.want, Name(tr.Match(tt.header)))
		})
	}
}

func TestTranslator_Message(t *testing.T) {
	tr := New()
	assert.Equal(t, "Your cart is empty", tr.Message(language.English, "CART_EMPTY", "x"))
	assert.Equal(t, "购物车为空", tr.Message(language.SimplifiedChinese, "CART_EMPTY", "x"))
	assert.Equal(t, "fallback", tr.Message(language.SimplifiedChinese, "NO_SUCH_CODE", "fallback"))
}

func TestCatalogsHaveSameKeys(t *testing.T) {
	for key := range english {
		_, ok := simplifiedChinese[key]
		assert.True(t, ok, "missing zh-Hans message for %s", key)
	}
	assert.Len(t, simplifiedChinese, len(english))
}
