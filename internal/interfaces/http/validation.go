package http

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Los errores usan el nombre JSON (o query) del campo, no el del struct.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		for _, tag := range []string{"json", "query"} {
			name := strings.SplitN(f.Tag.Get(tag), ",", 2)[0]
			if name != "" && name != "-" {
				return name
			}
		}
		return f.Name
	})
	return v
}

// validateStruct devuelve nil o un mapa campo → mensaje.
func validateStruct(obj any) map[string]any {
	err := validate.Struct(obj)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return map[string]any{"body": err.Error()}
	}
	fields := make(map[string]any, len(verrs))
	for _, fe := range verrs {
		fields[fe.Field()] = fieldMessage(fe)
	}
	return fields
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "requerido"
	case "oneof":
		return fmt.Sprintf("debe ser uno de: %s", fe.Param())
	case "max":
		return fmt.Sprintf("máximo %s", fe.Param())
	case "min":
		return fmt.Sprintf("mínimo %s", fe.Param())
	default:
		return "inválido"
	}
}
