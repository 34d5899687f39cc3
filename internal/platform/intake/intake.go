// Package intake turns loosely shaped voice tool payloads into typed requests.
// Each request type is described by a Schema: the canonical keys, the aliases
// callers are known to send instead, and how each value is coerced.
package intake

import (
	"errors"
	"fmt"
	"io"
	"reflect"
	"strconv"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"

	"github.com/medicare/voiceclinic/internal/platform/outcome"
)

// ErrMalformed is returned when the body is not a JSON object.
var ErrMalformed = errors.New("request body is not a JSON object")

// Coercion selects how a field's raw value is normalized.
type Coercion int

const (
	// AsIs keeps the value, trimming strings.
	AsIs Coercion = iota
	// ID keeps numbers and extracts the digits of strings ("ID: 210001" -> 210001).
	// A string without digits removes the field.
	ID
	// OptionalID is ID, but an empty string also removes the field.
	OptionalID
)

type Field struct {
	Key     string
	Aliases []string
	Coerce  Coercion
	// Prompt is the message returned when the field is missing or invalid.
	Prompt string
	// Temporal marks date and time fields; their failures report
	// InvalidTemporalInput instead of InvalidRequest.
	Temporal bool
}

type Schema []Field

func (s Schema) field(key string) (Field, bool) {
	for _, f := range s {
		if f.Key == key {
			return f, true
		}
	}
	return Field{}, false
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// CleanKeys trims keys and strips carriage returns and newlines from them.
func CleanKeys(raw map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(raw))
	for k, v := range raw {
		key := strings.TrimSpace(strings.NewReplacer("\r", "", "\n", "").Replace(k))
		out[key] = v
	}
	return out
}

// Normalize applies the schema's alias table and coercions to raw. An alias
// is consulted only when the canonical key is absent or empty.
func Normalize(raw map[string]interface{}, schema Schema) map[string]interface{} {
	data := CleanKeys(raw)
	for _, f := range schema {
		if isEmpty(data[f.Key]) {
			for _, alias := range f.Aliases {
				if v, ok := data[alias]; ok && !isEmpty(v) {
					data[f.Key] = v
					break
				}
			}
		}

		v, ok := data[f.Key]
		if !ok {
			continue
		}
		v, keep := coerce(v, f.Coerce)
		if !keep {
			delete(data, f.Key)
			continue
		}
		data[f.Key] = v
	}
	return data
}

func isEmpty(v interface{}) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(t) == ""
	}
	return false
}

func coerce(v interface{}, c Coercion) (interface{}, bool) {
	if s, ok := v.(string); ok {
		v = strings.TrimSpace(s)
	}
	switch c {
	case ID, OptionalID:
		switch t := v.(type) {
		case nil:
			return nil, false
		case float64:
			return int64(t), true
		case string:
			if t == "" && c == OptionalID {
				return nil, false
			}
			digits := strings.Map(func(r rune) rune {
				if unicode.IsDigit(r) {
					return r
				}
				return -1
			}, t)
			id, err := strconv.ParseInt(digits, 10, 64)
			if err != nil {
				return nil, false
			}
			return id, true
		}
	}
	return v, true
}

// Decode reads a JSON object from r, normalizes it with schema and decodes it
// into dst, which is then validated through its `validate` tags.
//
// A body that is not a JSON object returns ErrMalformed. Missing or invalid
// fields return an *outcome.Error carrying the field's prompt.
func Decode(r io.Reader, schema Schema, dst interface{}) error {
	body, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}

	raw := map[string]interface{}{}
	if len(strings.TrimSpace(string(body))) > 0 {
		if err := json.Unmarshal(body, &raw); err != nil {
			return fmt.Errorf("%w: %v", ErrMalformed, err)
		}
	}

	normalized, err := json.Marshal(Normalize(raw, schema))
	if err != nil {
		return fmt.Errorf("encode normalized body: %w", err)
	}
	if err := json.Unmarshal(normalized, dst); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return fieldError(schema, typeErr.Field)
		}
		return outcome.New(outcome.InvalidRequest, "I couldn't understand that request. Please try again.")
	}

	if err := validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return fieldError(schema, verrs[0].Field())
		}
		return fmt.Errorf("validate request: %w", err)
	}
	return nil
}

func fieldError(schema Schema, key string) error {
	f, ok := schema.field(key)
	kind := outcome.InvalidRequest
	if ok && f.Temporal {
		kind = outcome.InvalidTemporalInput
	}
	if ok && f.Prompt != "" {
		return outcome.New(kind, f.Prompt)
	}
	return outcome.New(kind, fmt.Sprintf("I'm missing the %s. Please ask the user for it.", strings.ReplaceAll(key, "_", " ")))
}

// WithPrompt returns a copy of f with a request-specific prompt.
func (f Field) WithPrompt(prompt string) Field {
	f.Prompt = prompt
	return f
}
