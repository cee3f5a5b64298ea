package validator

import (
	"errors"
	"reflect"
	"strings"
	"sync"

	"github.com/examdrive/examdrive-backend/internal/model"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	govalidator "github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

var (
	trans     ut.Translator
	setupOnce sync.Once
)

// domainRules are the request tags backed by model enums.
var domainRules = []struct {
	tag     string
	fn      govalidator.Func
	message string
}{
	{
		tag:     "violation_kind",
		fn:      func(fl govalidator.FieldLevel) bool { return model.ViolationKind(fl.Field().String()).Valid() },
		message: "{0} must be one of tab_switch, fullscreen_exit, right_click, screenshot, copy or paste",
	},
	{
		tag:     "option_letter",
		fn:      func(fl govalidator.FieldLevel) bool { return isOptionLetter(fl.Field().String()) },
		message: "{0} must be a, b, c or d",
	},
}

// Setup registers JSON field names, English translations and the domain
// rules on Gin's binding engine. Safe to call more than once.
func Setup() {
	setupOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*govalidator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})

		enLocale := en.New()
		trans, _ = ut.New(enLocale, enLocale).GetTranslator("en")
		_ = en_translations.RegisterDefaultTranslations(v, trans)

		for _, rule := range domainRules {
			_ = v.RegisterValidation(rule.tag, rule.fn)
			msg := rule.message
			_ = v.RegisterTranslation(rule.tag, trans,
				func(t ut.Translator) error { return t.Add(rule.tag, msg, true) },
				func(t ut.Translator, fe govalidator.FieldError) string {
					s, _ := t.T(fe.Tag(), fe.Field())
					return s
				},
			)
		}
	})
}

func isOptionLetter(s string) bool {
	switch strings.ToLower(s) {
	case "a", "b", "c", "d":
		return true
	}
	return false
}

// TranslateErrors maps a binding error to field → message. Errors that
// are not validation failures (malformed JSON, wrong types) come back
// under "detail".
func TranslateErrors(err error) map[string]string {
	var ve govalidator.ValidationErrors
	if !errors.As(err, &ve) {
		return map[string]string{"detail": err.Error()}
	}

	fields := make(map[string]string, len(ve))
	for _, fe := range ve {
		key := fe.Namespace()
		// Drop the root struct name but keep the path for nested rows,
		// e.g. "students[2].email".
		if i := strings.IndexByte(key, '.'); i >= 0 {
			key = key[i+1:]
		}
		if trans != nil {
			fields[key] = fe.Translate(trans)
		} else {
			fields[key] = fe.Error()
		}
	}
	return fields
}

// Bind decodes the JSON body into dst and validates it. It returns nil on
// success or the translated field errors.
func Bind(c *gin.Context, dst any) map[string]string {
	if err := c.ShouldBindJSON(dst); err != nil {
		return TranslateErrors(err)
	}
	return nil
}
