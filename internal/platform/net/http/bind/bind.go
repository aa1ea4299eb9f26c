// Package bind decodes request bodies and query strings into DTOs and
// validates them with go-playground/validator
package bind

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"sync"

	perr "chatlens/internal/platform/errors"
	"chatlens/internal/platform/logger"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

type validatorSvc struct {
	v     *validator.Validate
	trans ut.Translator
}

var (
	once sync.Once
	svc  validatorSvc
)

// get builds the validator on first use. Messages name fields by their json
// or query tag so they match what the client sent
func get() validatorSvc {
	once.Do(func() {
		loc := en.New()
		trans, _ := ut.New(loc, loc).GetTranslator("en")
		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			for _, key := range []string{"json", "query"} {
				if tag, _, _ := strings.Cut(f.Tag.Get(key), ","); tag != "" && tag != "-" {
					return tag
				}
			}
			return f.Name
		})
		_ = en_translations.RegisterDefaultTranslations(v, trans)
		short(v, trans, "min", "{0} must be at least {1}")
		short(v, trans, "max", "{0} must be at most {1}")
		short(v, trans, "oneof", "{0} must be one of [{1}]")
		svc = validatorSvc{v: v, trans: trans}
	})
	return svc
}

func short(v *validator.Validate, trans ut.Translator, tag, text string) {
	_ = v.RegisterTranslation(tag, trans,
		func(t ut.Translator) error { return t.Add(tag, text, true) },
		func(t ut.Translator, fe validator.FieldError) string {
			msg, _ := t.T(tag, fe.Field(), fe.Param())
			return msg
		},
	)
}

// Validate checks v's validate tags. The first failure comes back as an
// ErrorCodeValidation error naming the field
func Validate(v any) error {
	err := get().v.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		logger.Get().Error().Err(err).Msg("validator internal error")
		return perr.Newf(perr.ErrorCodeValidation, "validation error")
	}
	fe := verrs[0]
	return perr.WithField(perr.Newf(perr.ErrorCodeValidation, "%s", fe.Translate(get().trans)), fe.Field())
}

// JSONOptions controls body decoding
type JSONOptions struct {
	// MaxBytes caps the body; 0 means 1MB
	MaxBytes        int64
	DisallowUnknown bool
}

// ParseJSON decodes the body into T and validates it. A body over MaxBytes,
// an empty body and trailing data are all ErrorCodeJSON
func ParseJSON[T any](r *http.Request, opts ...JSONOptions) (T, error) {
	var zero T
	o := JSONOptions{MaxBytes: 1 << 20, DisallowUnknown: true}
	if len(opts) > 0 {
		o = opts[0]
		if o.MaxBytes <= 0 {
			o.MaxBytes = 1 << 20
		}
	}
	defer func() { _ = r.Body.Close() }()

	// read one byte past the cap so an oversized body is an error, not a
	// silently truncated document
	body, err := io.ReadAll(io.LimitReader(r.Body, o.MaxBytes+1))
	switch {
	case err != nil:
		return zero, perr.JSONErrf("read body: %v", err)
	case int64(len(body)) > o.MaxBytes:
		return zero, perr.JSONErrf("body exceeds %d bytes", o.MaxBytes)
	case len(bytes.TrimSpace(body)) == 0:
		return zero, perr.JSONErrf("empty body")
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	if o.DisallowUnknown {
		dec.DisallowUnknownFields()
	}
	var dst T
	if err := dec.Decode(&dst); err != nil {
		return zero, perr.JSONErrf("invalid JSON: %v", err)
	}
	if dec.More() {
		return zero, perr.JSONErrf("unexpected trailing data")
	}
	if err := Validate(dst); err != nil {
		return zero, err
	}
	return dst, nil
}

// Query fills the string and int fields of T tagged `query:"name"` from the
// URL query, then validates T
func Query[T any](r *http.Request) (T, error) {
	var dst T
	rv := reflect.ValueOf(&dst).Elem()
	if rv.Kind() != reflect.Struct {
		return dst, errors.New("bind: Query needs a struct")
	}
	q := r.URL.Query()
	for i := 0; i < rv.NumField(); i++ {
		f := rv.Type().Field(i)
		name := f.Tag.Get("query")
		raw := strings.TrimSpace(q.Get(name))
		if name == "" || raw == "" {
			continue
		}
		switch fv := rv.Field(i); fv.Kind() {
		case reflect.String:
			fv.SetString(raw)
		case reflect.Int, reflect.Int32, reflect.Int64:
			n, err := strconv.ParseInt(raw, 10, 64)
			if err != nil {
				return dst, perr.WithField(perr.Newf(perr.ErrorCodeValidation, "%s must be an integer", name), name)
			}
			fv.SetInt(n)
		default:
			return dst, errors.New("bind: unsupported query field " + f.Name)
		}
	}
	if err := Validate(dst); err != nil {
		return dst, err
	}
	return dst, nil
}
