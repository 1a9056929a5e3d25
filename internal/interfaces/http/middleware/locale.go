package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/jiffoo/mall/internal/infrastructure/i18n"
	"github.com/jiffoo/mall/internal/interfaces/http/dto"
	"golang.org/x/text/language"
)

// Locale context keys
const (
	LocaleKey     = "locale"
	translatorKey = "translator"
)

// Locale picks the response language from Accept-Language and exposes it
// through the Content-Language header
func Locale(tr *i18n.Translator) gin.HandlerFunc {
	return func(c *gin.Context) {
		tag := tr.Match(c.GetHeader("Accept-Language"))
		c.Set(LocaleKey, tag)
		c.Set(translatorKey, tr)
		c.Header("Content-Language", i18n.Name(tag))
		c.Next()
	}
}

// GetLocale returns the request's language, English when unset
func GetLocale(c *gin.Context) language.Tag {
	if v, ok := c.Get(LocaleKey); ok {
		if tag, ok := v.(language.Tag); ok {
			return tag
		}
	}
	return language.English
}

// Localize returns the message for an error code in the request's language,
// or fallback when the code has no translation or Locale is not installed
func Localize(c *gin.Context, code, fallback string) string {
	v, ok := c.Get(translatorKey)
	if !ok {
		return fallback
	}
	tr, ok := v.(*i18n.Translator)
	if !ok {
		return fallback
	}
	return tr.Message(GetLocale(c), code, fallback)
}

// abortWithError writes the error envelope with the status mapped from code
// and stops the chain
func abortWithError(c *gin.Context, code, message string) {
	resp := dto.NewErrorResponse(code, message)
	resp.Message = Localize(c, code, message)
	c.AbortWithStatusJSON(dto.GetHTTPStatus(code), resp)
}
