package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/ErickPolzin/Crud/internal/db"
	"github.com/go-playground/validator/v10"
)

// Input is the client supplied book payload. Pointers distinguish a missing
// field from an empty one. ID and CreatedAt are kept raw so that any value a
// client sends is accepted and then discarded.
type Input struct {
	ID              json.RawMessage `json:"id,omitempty"`
	Title           *string         `json:"title" validate:"required,min=1,max=255"`
	Author          *string         `json:"author" validate:"required,min=1,max=255"`
	ISBN            *string         `json:"isbn" validate:"required,len=13"`
	PublicationYear *Year           `json:"publicationYear" validate:"required,gte=1000,notfuture"`
	Genre           *string         `json:"genre" validate:"required,min=1,max=100"`
	CreatedAt       json.RawMessage `json:"createdAt,omitempty"`
}

// Validator checks Input against the book field rules.
type Validator struct {
	v   *validator.Validate
	now func() time.Time
}

// NewValidator builds a validator whose upper bound for publicationYear is
// the calendar year reported by now at validation time.
func NewValidator(now func() time.Time) *Validator {
	if now == nil {
		now = time.Now
	}
	bv := &Validator{v: validator.New(), now: now}

	bv.v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})

	// Registration only fails for an empty tag or nil func.
	_ = bv.v.RegisterValidation("notfuture", func(fl validator.FieldLevel) bool {
		return fl.Field().Int() <= int64(bv.now().Year())
	})

	return bv
}

// Validate returns the normalized record, or the first failing field in
// declaration order.
func (bv *Validator) Validate(in Input) (db.Book, error) {
	if err := bv.v.Struct(in); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return db.Book{}, validationError(fe.Field(), fe.Field()+" "+bv.friendlyMessage(fe))
		}
		return db.Book{}, validationError("", err.Error())
	}

	return db.Book{
		Title:           *in.Title,
		Author:          *in.Author,
		ISBN:            *in.ISBN,
		PublicationYear: int(*in.PublicationYear),
		Genre:           *in.Genre,
	}, nil
}

func (bv *Validator) friendlyMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		if fe.Param() == "1" {
			return "must not be empty"
		}
		return fmt.Sprintf("must be at least %s characters", fe.Param())
	case "max":
		return fmt.Sprintf("must not exceed %s characters", fe.Param())
	case "len":
		return fmt.Sprintf("must be exactly %s characters", fe.Param())
	case "gte":
		return "must be greater than or equal to " + fe.Param()
	case "notfuture":
		return fmt.Sprintf("must be less than or equal to %d", bv.now().Year())
	default:
		return "is invalid"
	}
}
