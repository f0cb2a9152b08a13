package validator

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	govalidator "github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"

	"github.com/stemsi/exam-portal/internal/model"
)

// trans is the singleton English translator for validation errors.
var trans ut.Translator

// Setup registers the validator with English translations on Gin's binding engine.
// Call once during application startup.
func Setup() {
	if v, ok := binding.Validator.Engine().(*govalidator.Validate); ok {
		// Use JSON tag name for field names in error messages.
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})

		// Register English translations.
		enLocale := en.New()
		uni := ut.New(enLocale, enLocale)
		trans, _ = uni.GetTranslator("en")
		en_translations.RegisterDefaultTranslations(v, trans)

		registerCustom(v)
	}
}

// customTag is a portal specific validation tag with its English message.
type customTag struct {
	tag     string
	fn      govalidator.Func
	message string
}

var customTags = []customTag{
	{
		tag: "event_kind",
		fn: func(fl govalidator.FieldLevel) bool {
			return model.AttemptEventKind(fl.Field().String()).Valid()
		},
		message: "{0} must be a known attempt event kind",
	},
}

// registerCustom adds the portal specific tags and their messages. A tag that
// fails to register would silently accept every value, so it panics.
func registerCustom(v *govalidator.Validate) {
	for _, ct := range customTags {
		if err := registerTag(v, trans, ct); err != nil {
			panic(fmt.Sprintf("validator: %v", err))
		}
	}
}

func registerTag(v *govalidator.Validate, tr ut.Translator, ct customTag) error {
	if err := v.RegisterValidation(ct.tag, ct.fn); err != nil {
		return fmt.Errorf("register tag %q: %w", ct.tag, err)
	}
	err := v.RegisterTranslation(ct.tag, tr,
		func(ut ut.Translator) error {
			return ut.Add(ct.tag, ct.message, true)
		},
		func(ut ut.Translator, fe govalidator.FieldError) string {
			msg, _ := ut.T(ct.tag, fe.Field())
			return msg
		},
	)
	if err != nil {
		return fmt.Errorf("register translation %q: %w", ct.tag, err)
	}
	return nil
}

// TranslateErrors takes a binding/validation error and returns a map of
// field name -> human-readable error message. If the error is not a
// validation error, it returns a single-key map with "detail".
func TranslateErrors(err error) map[string]string {
	fields := make(map[string]string)

	var ve govalidator.ValidationErrors
	if errors.As(err, &ve) {
		for _, fe := range ve {
			fields[fe.Field()] = fe.Translate(trans)
		}
		return fields
	}

	// Not a validation error (e.g., JSON syntax error).
	fields["detail"] = err.Error()
	return fields
}

// Bind binds and validates the request body into dst.
// Returns nil on success or a translated field error map on failure.
func Bind(c *gin.Context, dst interface{}) map[string]string {
	if err := c.ShouldBindJSON(dst); err != nil {
		return TranslateErrors(err)
	}
	return nil
}

// BindQuery is Bind for query string parameters.
func BindQuery(c *gin.Context, dst interface{}) map[string]string {
	if err := c.ShouldBindQuery(dst); err != nil {
		return TranslateErrors(err)
	}
	return nil
}
