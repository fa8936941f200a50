package middleware

import (
	"errors"
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	apperrors "github.com/wms-platform/transfer-service/pkg/errors"
)

var (
	slotIDRegex      = regexp.MustCompile(`^[A-Za-z0-9]+-[1-9]\d*-[1-9]\d*$`)
	containerIDRegex = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_-]{0,63}$`)
)

// transferValidators are the binding tags used by the transfer request bodies
var transferValidators = map[string]struct {
	fn      validator.Func
	message string
}{
	"slot_id": {
		fn:      func(fl validator.FieldLevel) bool { return slotIDRegex.MatchString(fl.Field().String()) },
		message: "must be a valid slot ID (format: ZONE-ROW-COL, e.g. A-1-1)",
	},
	"container_id": {
		fn:      func(fl validator.FieldLevel) bool { return containerIDRegex.MatchString(fl.Field().String()) },
		message: "must be a valid container ID",
	},
	"source_kind": {
		fn: func(fl validator.FieldLevel) bool {
			kind := fl.Field().String()
			return kind == "PALLET" || kind == "TOTE"
		},
		message: "must be one of: PALLET, TOTE",
	},
}

var initOnce sync.Once

// InitValidator registers the transfer tags on gin's binding engine and reports field
// errors under their json names. Safe to call more than once.
func InitValidator() {
	initOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		for tag, tv := range transferValidators {
			_ = v.RegisterValidation(tag, tv.fn)
		}
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return fld.Name
			}
			return name
		})
	})
}

func describe(e validator.FieldError) string {
	if tv, ok := transferValidators[e.Tag()]; ok {
		return tv.message
	}
	switch e.Tag() {
	case "required":
		return "is required"
	case "min":
		return "must be at least " + e.Param()
	case "max":
		return "must be at most " + e.Param()
	case "gt":
		return "must be greater than " + e.Param()
	default:
		return "is invalid"
	}
}

// BindAndValidate binds the JSON body into obj. Tag failures become a validation error
// with one detail per field; malformed JSON becomes a bad request.
func BindAndValidate(c *gin.Context, obj any) *apperrors.AppError {
	err := c.ShouldBindJSON(obj)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return apperrors.ErrBadRequest("invalid request body: " + err.Error())
	}

	fields := make(map[string]string, len(fieldErrs))
	for _, e := range fieldErrs {
		fields[e.Field()] = describe(e)
	}
	return apperrors.ErrValidationWithFields("validation failed", fields)
}
