// Package validation turns go-playground/validator results into field-level
// error reports keyed by JSON path.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// FieldErrors maps a JSON path such as "results[0].posts[1].likes" to every
// message reported for it.
type FieldErrors map[string][]string

func (f FieldErrors) Add(field, message string) {
	f[field] = append(f[field], message)
}

func (f FieldErrors) Empty() bool {
	return len(f) == 0
}

// Covers reports whether path, or an ancestor such as "results[0]" of
// "results[0].userId", already has an entry.
func (f FieldErrors) Covers(path string) bool {
	for p := path; p != ""; p = parent(p) {
		if _, ok := f[p]; ok {
			return true
		}
	}
	return false
}

func parent(path string) string {
	idx := strings.LastIndexAny(path, ".[")
	if idx <= 0 {
		return ""
	}
	return path[:idx]
}

type Error struct {
	Message string
	Fields  FieldErrors
}

func (e *Error) Error() string {
	if len(e.Fields) == 0 {
		return e.Message
	}
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, strings.Join(e.Fields[k], ", ")))
	}
	return fmt.Sprintf("%s: %s", e.Message, strings.Join(parts, "; "))
}

func IsValidationError(err error) bool {
	var ve *Error
	return errors.As(err, &ve)
}

// New returns a validator that reports JSON field names instead of Go names.
func New() *validator.Validate {
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

// Collect appends the failures in err to fields. Errors that are not
// validator errors are reported under "body".
func Collect(err error, fields FieldErrors) {
	if err == nil {
		return
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		fields.Add("body", err.Error())
		return
	}
	for _, fe := range verrs {
		fields.Add(path(fe.Namespace()), message(fe))
	}
}

// path drops the root struct name from a validator namespace.
func path(namespace string) string {
	if idx := strings.Index(namespace, "."); idx >= 0 {
		return namespace[idx+1:]
	}
	return namespace
}

var (
	customMu       sync.RWMutex
	customMessages = map[string]string{}
)

// RegisterMessage sets the message reported for a custom validation tag.
func RegisterMessage(tag, msg string) {
	customMu.Lock()
	customMessages[tag] = msg
	customMu.Unlock()
}

func message(fe validator.FieldError) string {
	customMu.RLock()
	custom, ok := customMessages[fe.Tag()]
	customMu.RUnlock()
	if ok {
		return custom
	}

	switch fe.Tag() {
	case "required":
		return "is required"
	case "uuid", "uuid4":
		return "must be a valid UUID"
	case "url", "http_url":
		return "must be a valid URL"
	case "oneof":
		return "must be one of: " + strings.ReplaceAll(fe.Param(), " ", ", ")
	case "gte":
		return "must be greater than or equal to " + fe.Param()
	case "min":
		if k := fe.Kind(); k == reflect.Slice || k == reflect.Array || k == reflect.Map {
			return fmt.Sprintf("must contain at least %s item(s)", fe.Param())
		}
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("must be at least %s characters", fe.Param())
		}
		return "must be at least " + fe.Param()
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("must be at most %s characters", fe.Param())
		}
		return "must be at most " + fe.Param()
	case "datetime":
		return "must be an ISO 8601 datetime"
	}
	return fmt.Sprintf("failed %q validation", fe.Tag())
}
