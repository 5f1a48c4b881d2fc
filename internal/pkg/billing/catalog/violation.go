package catalog

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Violation is a single failed rule, addressed by its path in the JSON
// representation (e.g. products.0.plans.1.paymentType.interval).
type Violation struct {
	Path    []string `json:"path"`
	Message string   `json:"message"`
}

func (v Violation) String() string {
	return strings.Join(v.Path, ".") + ": " + v.Message
}

// ValidationError carries every violation of a rejected catalog.
type ValidationError struct {
	Violations []Violation
}

func (e *ValidationError) Error() string {
	if len(e.Violations) == 0 {
		return "invalid billing catalog"
	}
	msg := "invalid billing catalog: " + e.Violations[0].String()
	if n := len(e.Violations) - 1; n > 0 {
		msg += fmt.Sprintf(" (and %d more)", n)
	}
	return msg
}

func path(parts ...any) []string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		switch v := p.(type) {
		case string:
			out = append(out, v)
		case int:
			out = append(out, strconv.Itoa(v))
		default:
			out = append(out, fmt.Sprint(v))
		}
	}
	return out
}

func extend(base []string, parts ...any) []string {
	out := make([]string, 0, len(base)+len(parts))
	out = append(out, base...)
	return append(out, path(parts...)...)
}

// NewValidator returns a validator that reports fields by their JSON names.
func NewValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return fld.Name
		}
		return name
	})
	return v
}

// ViolationsFromError converts validator errors into violations. Errors that
// are not validation errors are reported against the root path.
func ViolationsFromError(err error) []Violation {
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []Violation{{Path: []string{}, Message: err.Error()}}
	}
	out := make([]Violation, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, Violation{
			Path:    namespacePath(fe.Namespace()),
			Message: ruleMessage(fe),
		})
	}
	return out
}

// namespacePath turns "Config.products[0].plans[1].id" into
// [products 0 plans 1 id].
func namespacePath(ns string) []string {
	segments := strings.Split(ns, ".")
	if len(segments) > 1 {
		segments = segments[1:]
	}
	out := make([]string, 0, len(segments)*2)
	for _, seg := range segments {
		for seg != "" {
			open := strings.IndexByte(seg, '[')
			if open < 0 {
				out = append(out, seg)
				break
			}
			if open > 0 {
				out = append(out, seg[:open])
			}
			end := strings.IndexByte(seg, ']')
			if end < open {
				out = append(out, seg[open:])
				break
			}
			out = append(out, seg[open+1:end])
			seg = seg[end+1:]
		}
	}
	return out
}

func ruleMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("must contain at least %s item(s)", fe.Param())
		}
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "len":
		return fmt.Sprintf("must be exactly %s characters", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of [%s]", fe.Param())
	case "url":
		return "must be a valid URL"
	case "email":
		return "must be a valid email address"
	case "uuid":
		return "must be a valid UUID"
	default:
		return fmt.Sprintf("failed the %q rule", fe.Tag())
	}
}
