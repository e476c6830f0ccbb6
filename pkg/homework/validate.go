package homework

import (
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/locales/fr"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	fr_translations "github.com/go-playground/validator/v10/translations/fr"
)

var (
	validate   *validator.Validate
	translator ut.Translator

	notBlankTag = "notblank"
	subjectTag  = "homework_subject"
)

var customMessages = map[string]string{
	notBlankTag: "{0} ne peut pas être vide",
	subjectTag:  "{0} doit être une matière connue",
}

func init() {
	validate = validator.New()

	_fr := fr.New()
	uni := ut.New(_fr, _fr)
	translator, _ = uni.GetTranslator("fr")
	_ = fr_translations.RegisterDefaultTranslations(validate, translator)

	// errors are keyed by json field name
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	_ = validate.RegisterValidation(notBlankTag, func(fl validator.FieldLevel) bool {
		if str, ok := fl.Field().Interface().(string); ok {
			return strings.TrimSpace(str) != ""
		}
		return false
	})
	_ = validate.RegisterValidation(subjectTag, func(fl validator.FieldLevel) bool {
		_, err := ParseSubject(fl.Field().String())
		return err == nil
	})

	for tag, msg := range customMessages {
		tag, msg := tag, msg
		_ = validate.RegisterTranslation(tag, translator,
			func(t ut.Translator) error {
				return t.Add(tag, msg, true)
			},
			func(t ut.Translator, fe validator.FieldError) string {
				s, err := t.T(tag, fe.Field())
				if err != nil {
					return fe.Error()
				}
				return s
			})
	}
}

// ValidationError maps json field names to French messages.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	msgs := make([]string, 0, len(keys))
	for _, k := range keys {
		msgs = append(msgs, e.Fields[k])
	}
	return strings.Join(msgs, "; ")
}

// Validate checks h and returns a *ValidationError listing every invalid field.
func Validate(h *Homework) error {
	err := validate.Struct(h)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}
	ret := &ValidationError{Fields: map[string]string{}}
	for _, fe := range verrs {
		ret.Fields[fe.Field()] = fe.Translate(translator)
	}
	return ret
}
