package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/oapi-codegen/runtime"
	openapi_types "github.com/oapi-codegen/runtime/types"

	"github.com/pkordes/carless/internal/domain"
)

var validate = newValidator()

// newValidator reports fields by their JSON names and knows the domain enums.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	//nolint:errcheck // tags are static
	v.RegisterValidation("mode", func(fl validator.FieldLevel) bool {
		_, err := domain.ParseMode(fl.Field().String())
		return err == nil
	})
	//nolint:errcheck
	v.RegisterValidation("category", func(fl validator.FieldLevel) bool {
		_, err := domain.ParseCategory(fl.Field().String())
		return err == nil
	})
	//nolint:errcheck
	v.RegisterValidation("length_unit", func(fl validator.FieldLevel) bool {
		_, err := domain.ParseLengthUnit(fl.Field().String())
		return err == nil
	})
	return v
}

// decodeJSON reads the body into dst and validates it. Malformed and invalid
// bodies are reported as domain.ErrValidation.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxErr):
			return errBodyTooLarge
		case errors.Is(err, io.EOF):
			return fmt.Errorf("%w: request body is required", domain.ErrValidation)
		default:
			return fmt.Errorf("%w: malformed request body: %s", domain.ErrValidation, err.Error())
		}
	}
	return validateStruct(dst)
}

func validateStruct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %s", domain.ErrValidation, err.Error())
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, describeField(fe))
	}
	return fmt.Errorf("%w: %s", domain.ErrValidation, strings.Join(msgs, "; "))
}

func describeField(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "mode", "category", "length_unit":
		return fmt.Sprintf("%s: unknown %s %q", fe.Field(), strings.ReplaceAll(fe.Tag(), "_", " "), fe.Value())
	case "gte", "gt", "lte", "lt":
		return fmt.Sprintf("%s must be %s %s", fe.Field(), comparisons[fe.Tag()], fe.Param())
	}
	return fmt.Sprintf("%s failed %q", fe.Field(), fe.Tag())
}

var comparisons = map[string]string{
	"gte": ">=",
	"gt":  ">",
	"lte": "<=",
	"lt":  "<",
}

// pathID binds the {id} path parameter as a UUID.
func pathID(r *http.Request) (openapi_types.UUID, error) {
	var id openapi_types.UUID
	err := runtime.BindStyledParameterWithOptions("simple", "id", chi.URLParam(r, "id"), &id,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Explode: false, Required: true})
	if err != nil {
		return id, fmt.Errorf("%w: invalid id: %s", domain.ErrValidation, err.Error())
	}
	return id, nil
}

// pagination binds the optional ?limit= and ?skip= query parameters.
func pagination(r *http.Request) (domain.PaginationParams, error) {
	var limit, skip *int
	q := r.URL.Query()
	if err := runtime.BindQueryParameter("form", true, false, "limit", q, &limit); err != nil {
		return domain.PaginationParams{}, fmt.Errorf("%w: invalid limit", domain.ErrValidation)
	}
	if err := runtime.BindQueryParameter("form", true, false, "skip", q, &skip); err != nil {
		return domain.PaginationParams{}, fmt.Errorf("%w: invalid skip", domain.ErrValidation)
	}
	return domain.NewPaginationParams(limit, skip), nil
}

// bindFormat binds the optional ?format= query parameter. Only json and csv
// are accepted.
func bindFormat(r *http.Request, dst **string) error {
	if err := runtime.BindQueryParameter("form", true, false, "format", r.URL.Query(), dst); err != nil {
		return fmt.Errorf("%w: invalid format", domain.ErrValidation)
	}
	if f := *dst; f != nil && *f != "csv" && *f != "json" {
		return fmt.Errorf("%w: format must be json or csv", domain.ErrValidation)
	}
	return nil
}
