package label

import (
	"fmt"
	"reflect"
	"strings"
	"time"
	"unicode"

	"github.com/go-viper/mapstructure/v2"
	"golang.org/x/text/cases"

	"github.com/okian/tallybot/internal/validator"
)

const dateLayout = "2006-01-02"

var folder = cases.Fold()

// Normalize case-folds raw and drops all whitespace, so "[ W3 Thu ]" and
// "[w3thu]" name the same label.
func Normalize(raw string) string {
	folded := folder.String(raw)
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, folded)
}

// timeToDateString lets programmatic callers pass time.Time where a
// YYYY-MM-DD string is expected.
func timeToDateString(_ reflect.Type, to reflect.Type, data any) (any, error) {
	if to.Kind() != reflect.String {
		return data, nil
	}
	if t, ok := data.(time.Time); ok {
		return t.Format(dateLayout), nil
	}
	return data, nil
}

// decodeParams strictly decodes params into out and validates it.
func decodeParams(params map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:      out,
		TagName:     "mapstructure",
		ErrorUnused: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			timeToDateString,
			mapstructure.StringToTimeHookFunc(time.RFC3339),
		),
	})
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidParams, err)
	}
	if err := dec.Decode(params); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidParams, err)
	}
	if err := validator.Err(validator.New().ValidateStruct(out)); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidParams, err)
	}
	return nil
}
