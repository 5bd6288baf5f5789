// Package forms turns submitted values into validated input for the
// services, collecting per-field messages for re-rendering.
package forms

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"postroom/app/media"
	"postroom/app/models"
)

// NonFieldErrors is the key for errors that belong to the whole form.
const NonFieldErrors = "__all__"

var validate = newValidator()

// FieldErrors maps a form field name to its messages.
type FieldErrors map[string][]string

// Add appends a message for field.
func (e FieldErrors) Add(field, message string) {
	e[field] = append(e[field], message)
}

// Get returns the first message for field.
func (e FieldErrors) Get(field string) string {
	if msgs := e[field]; len(msgs) > 0 {
		return msgs[0]
	}
	return ""
}

func (e FieldErrors) Has(field string) bool { return len(e[field]) > 0 }

// Result is a validated form: the cleaned value plus any errors.
type Result[T any] struct {
	Value  T           `json:"value"`
	Errors FieldErrors `json:"errors,omitempty"`
}

// OK reports whether the form validated.
func (r Result[T]) OK() bool { return len(r.Errors) == 0 }

// GroupLookup resolves a group id.
type GroupLookup interface {
	GetByID(id int) (*models.Group, error)
}

// PostInput is the submitted post form.
type PostInput struct {
	Text  string        `form:"text" json:"text" validate:"required"`
	Group string        `form:"group" json:"group"`
	Image *media.Upload `form:"image" json:"-"`

	// MaxImageBytes bounds Image; zero means media.DefaultMaxUpload.
	MaxImageBytes int64 `json:"-"`
}

// PostData is a cleaned post form.
type PostData struct {
	Text    string
	GroupID int
	Image   *media.Upload
}

// ValidatePost checks a post form. The group, when chosen, must exist.
func ValidatePost(in PostInput, groups GroupLookup) Result[PostData] {
	in.Text = strings.TrimSpace(in.Text)
	in.Group = strings.TrimSpace(in.Group)
	res := Result[PostData]{Value: PostData{Text: in.Text}, Errors: collect(in)}

	if in.Group != "" {
		id, err := strconv.Atoi(in.Group)
		if err != nil || id <= 0 {
			res.Errors.Add("group", invalidChoice)
		} else if _, err := groups.GetByID(id); err != nil {
			res.Errors.Add("group", invalidChoice)
		} else {
			res.Value.GroupID = id
		}
	}

	if in.Image != nil && len(in.Image.Data) > 0 {
		if _, err := media.Inspect(in.Image.Data, in.MaxImageBytes); err != nil {
			res.Errors.Add("image", imageMessage(err))
		} else {
			res.Value.Image = in.Image
		}
	}
	return res
}

// CommentInput is the submitted comment form.
type CommentInput struct {
	Text string `form:"text" json:"text" validate:"required"`
}

// ValidateComment checks a comment form.
func ValidateComment(in CommentInput) Result[CommentInput] {
	in.Text = strings.TrimSpace(in.Text)
	return Result[CommentInput]{Value: in, Errors: collect(in)}
}

// SignupInput is the registration form.
type SignupInput struct {
	FirstName string `form:"first_name" json:"first_name" validate:"max=150"`
	LastName  string `form:"last_name" json:"last_name" validate:"max=150"`
	Username  string `form:"username" json:"username" validate:"required,max=150"`
	Email     string `form:"email" json:"email" validate:"omitempty,email"`
	Password1 string `form:"password1" json:"-" validate:"required,min=8"`
	Password2 string `form:"password2" json:"-" validate:"required,eqfield=Password1"`
}

// ValidateSignup checks a registration form. Username uniqueness is left to
// the store.
func ValidateSignup(in SignupInput) Result[SignupInput] {
	in.Username = strings.TrimSpace(in.Username)
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	in.Email = strings.TrimSpace(in.Email)
	res := Result[SignupInput]{Value: in, Errors: collect(in)}
	if in.Username != "" && !res.Errors.Has("username") {
		if err := models.ValidUsername(in.Username); err != nil {
			res.Errors.Add("username", "Enter a valid username. This value may contain only letters, numbers, and @/./+/-/_ characters.")
		}
	}
	return res
}

// LoginInput is the login form.
type LoginInput struct {
	Username string `form:"username" json:"username" validate:"required"`
	Password string `form:"password" json:"-" validate:"required"`
	Next     string `form:"next" json:"next"`
}

// ValidateLogin checks that both credentials were supplied.
func ValidateLogin(in LoginInput) Result[LoginInput] {
	in.Username = strings.TrimSpace(in.Username)
	return Result[LoginInput]{Value: in, Errors: collect(in)}
}

const invalidChoice = "Select a valid choice. That choice is not one of the available choices."

func imageMessage(err error) string {
	switch {
	case errors.Is(err, media.ErrTooLarge):
		return "The image file is too large."
	default:
		return "Upload a valid image. The file you uploaded was either not an image or a corrupted image."
	}
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("form"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// collect runs the struct tags of in and converts failures to messages.
func collect(in any) FieldErrors {
	errs := FieldErrors{}
	err := validate.Struct(in)
	if err == nil {
		return errs
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		errs.Add(NonFieldErrors, err.Error())
		return errs
	}
	for _, fe := range verrs {
		errs.Add(fe.Field(), message(fe))
	}
	return errs
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required."
	case "min":
		return fmt.Sprintf("Ensure this value has at least %s characters.", fe.Param())
	case "max":
		return fmt.Sprintf("Ensure this value has at most %s characters.", fe.Param())
	case "email":
		return "Enter a valid email address."
	case "eqfield":
		return "The two password fields didn't match."
	default:
		return "Enter a valid value."
	}
}
