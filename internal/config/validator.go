package config

import (
	"fmt"
	"os"
	"reflect"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	enTranslations "github.com/go-playground/validator/v10/translations/en"
)

type customTranslation struct {
	tag     string
	message string
	param   bool
}

var customTranslations = []customTranslation{
	{tag: "file", message: "{0} must be an existing and readable file"},
	{tag: "oneof", message: "{0} must be one of [{1}]", param: true},
}

func newValidator() (*validator.Validate, ut.Translator, error) {
	validate := validator.New()

	enLocale := en.New()
	uni := ut.New(enLocale, enLocale)
	trans, _ := uni.GetTranslator("en")
	if err := enTranslations.RegisterDefaultTranslations(validate, trans); err != nil {
		return nil, nil, fmt.Errorf("failed to register default translations: %w", err)
	}

	// Report keys the way they are written in the YAML file, e.g. storage.http.base_url
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("mapstructure"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	if err := validate.RegisterValidation("file", isFileReadable); err != nil {
		return nil, nil, fmt.Errorf("failed to register file validation: %w", err)
	}

	for _, ct := range customTranslations {
		if err := validate.RegisterTranslation(ct.tag, trans, func(ut ut.Translator) error {
			return ut.Add(ct.tag, ct.message, true)
		}, func(ut ut.Translator, fe validator.FieldError) string {
			field := strings.TrimPrefix(fe.Namespace(), "Config.")
			var t string
			if ct.param {
				t, _ = ut.T(ct.tag, field, fe.Param())
			} else {
				t, _ = ut.T(ct.tag, field)
			}
			return t
		}); err != nil {
			return nil, nil, fmt.Errorf("failed to register %s translation: %w", ct.tag, err)
		}
	}

	return validate, trans, nil
}

func isFileReadable(fl validator.FieldLevel) bool {
	path := fl.Field().String()
	if path == "" {
		return false
	}

	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	if info.IsDir() {
		return false
	}

	// Check if the owner has read permission
	return info.Mode().Perm()&0o400 != 0
}
