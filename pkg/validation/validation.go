package validation

import (
	"fmt"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/vinodismyname/salespulse/internal/sources"
	"github.com/vinodismyname/salespulse/pkg/pagination"
)

var (
	v    *validator.Validate
	once sync.Once

	dimensionRe = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_ ]{0,63}$`)
)

// Validator returns a singleton validator with custom rules registered.
func Validator() *validator.Validate {
	once.Do(func() {
		v = validator.New()
		// Dataset file must have a loadable extension.
		_ = v.RegisterValidation("dataset_ext", func(fl validator.FieldLevel) bool {
			s := strings.TrimSpace(fl.Field().String())
			if s == "" {
				return false
			}
			return slices.Contains(sources.SupportedExtensions, strings.ToLower(filepath.Ext(s)))
		})
		// Column name or alias such as "product" / "region".
		_ = v.RegisterValidation("dimension", func(fl validator.FieldLevel) bool {
			return dimensionRe.MatchString(strings.TrimSpace(fl.Field().String()))
		})
		_ = v.RegisterValidation("cursor", func(fl validator.FieldLevel) bool {
			s := strings.TrimSpace(fl.Field().String())
			if s == "" {
				return true // pair with omitempty
			}
			_, err := pagination.DecodeCursor(s)
			return err == nil
		})
		_ = v.RegisterValidation("sql_ident", func(fl validator.FieldLevel) bool {
			return sources.ValidTableName(fl.Field().String())
		})
	})
	return v
}

// ValidateStruct validates s and returns a "CODE: message" string suitable for
// mcperr.FromText, or "" when s is valid.
func ValidateStruct(s any) string {
	err := Validator().Struct(s)
	if err == nil {
		return ""
	}
	ve, ok := err.(validator.ValidationErrors)
	if !ok || len(ve) == 0 {
		return "VALIDATION: invalid inputs"
	}
	fe := ve[0]
	field := strings.ToLower(fe.Field())
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("VALIDATION: %s is required", field)
	case "required_without":
		return fmt.Sprintf("VALIDATION: %s is required (or supply %s)", field, strings.ToLower(fe.Param()))
	case "excluded_with":
		return fmt.Sprintf("VALIDATION: %s cannot be combined with %s", field, strings.ToLower(fe.Param()))
	case "dataset_ext":
		return "VALIDATION: path must be a .csv, .tsv, .txt, .xlsx or .xlsm file"
	case "dimension":
		return "VALIDATION: dimension must be product, region or a column name"
	case "cursor":
		return "CURSOR_INVALID: failed to decode cursor; restart the preview"
	case "sql_ident":
		return "VALIDATION: table must be an identifier like orders or sales.orders"
	case "min", "max", "gte", "lte":
		return fmt.Sprintf("VALIDATION: %s must satisfy %s=%s", field, fe.Tag(), fe.Param())
	}
	return fmt.Sprintf("VALIDATION: invalid %s", field)
}
