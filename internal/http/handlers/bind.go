package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

type FieldError struct {
	Field   string `json:"field"`
	Rule    string `json:"rule"`
	Param   string `json:"param,omitempty"`
	Message string `json:"message,omitempty"`
}

// BindJSON binds and validates a JSON body, answering 400 with per-field
// details on failure.
func BindJSON(ctx *gin.Context, out interface{}) bool {
	if err := ctx.ShouldBindJSON(out); err != nil {
		RespondBadRequest(ctx, "Invalid request body", bindErrorDetails(err, out))
		return false
	}
	return true
}

// ShouldBindForm binds url-encoded or multipart form fields. Form routes
// report failures with a flash message instead of a JSON body.
func ShouldBindForm(ctx *gin.Context, out interface{}) error {
	return ctx.ShouldBindWith(out, binding.Form)
}

func bindErrorDetails(err error, out interface{}) gin.H {
	names := wireNames(out)

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make([]FieldError, 0, len(verrs))
		for _, fe := range verrs {
			fields = append(fields, FieldError{
				Field:   names.lookup(fe.StructField()),
				Rule:    fe.Tag(),
				Param:   fe.Param(),
				Message: validationMessage(fe.Tag(), fe.Param()),
			})
		}
		return gin.H{"fields": fields}
	}

	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		// DTOs are flat, so the decoder already reports the wire name
		field := strings.TrimSpace(typeErr.Field)
		return gin.H{
			"json":  "invalid_json_type",
			"field": field,
			"fields": []FieldError{{
				Field:   field,
				Rule:    "type",
				Message: fmt.Sprintf("must be of type %s", typeErr.Type.String()),
			}},
		}
	}

	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) || errors.Is(err, io.ErrUnexpectedEOF) {
		return gin.H{"json": "invalid_json_syntax"}
	}

	return gin.H{"reason": err.Error()}
}

// fieldNames maps Go field names of a request DTO to the names clients send.
type fieldNames map[string]string

func (n fieldNames) lookup(goName string) string {
	if wire, ok := n[goName]; ok {
		return wire
	}
	return goName
}

func wireNames(v interface{}) fieldNames {
	t := reflect.TypeOf(v)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil || t.Kind() != reflect.Struct {
		return nil
	}

	names := make(fieldNames, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		names[sf.Name] = tagName(sf)
	}
	return names
}

// tagName prefers the json tag, then the form tag.
func tagName(sf reflect.StructField) string {
	for _, key := range []string{"json", "form"} {
		name, _, _ := strings.Cut(sf.Tag.Get(key), ",")
		if name != "" && name != "-" {
			return name
		}
	}
	return sf.Name
}

func validationMessage(rule, param string) string {
	switch rule {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min":
		return "must be at least " + param
	case "max":
		return "must be at most " + param
	case "oneof":
		return "must be one of " + strings.ReplaceAll(param, " ", ", ")
	default:
		if param != "" {
			return fmt.Sprintf("failed %s validation (%s)", rule, param)
		}
		return "failed " + rule + " validation"
	}
}
