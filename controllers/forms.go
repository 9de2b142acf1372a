package controllers

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/cppla/yatube/models"
)

const nonFieldErrors = "__all__"

// FieldErrors maps a form field name to its validation messages.
type FieldErrors map[string][]string

func (e FieldErrors) Add(field, msg string) { e[field] = append(e[field], msg) }

func (e FieldErrors) Empty() bool { return len(e) == 0 }

func init() {
	// report form field names instead of Go field names
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("form"), ",", 2)[0]
			if name == "" || name == "-" {
				return f.Name
			}
			return name
		})
	}
}

// bindForm binds the request body into form and converts binding failures into field errors.
func bindForm(ctx *gin.Context, form interface{}) FieldErrors {
	errs := FieldErrors{}
	err := ctx.ShouldBind(form)
	if err == nil {
		return errs
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		errs.Add(nonFieldErrors, "Invalid form submission.")
		return errs
	}
	for _, fe := range verrs {
		errs.Add(fe.Field(), fieldMessage(fe))
	}
	return errs
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required."
	case "max":
		return fmt.Sprintf("Ensure this value has at most %s characters.", fe.Param())
	case "email":
		return "Enter a valid email address."
	default:
		return "Enter a valid value."
	}
}

// PostForm is the create/edit form of a post. The image travels as a multipart file.
type PostForm struct {
	Text       string      `form:"text" binding:"required"`
	Group      string      `form:"group"`
	ClearImage string      `form:"image-clear"`
	Errors     FieldErrors `form:"-"`
}

// postFormFrom prefills the form for editing an existing post.
func postFormFrom(post *models.Post) PostForm {
	form := PostForm{Text: post.Text, Errors: FieldErrors{}}
	if post.GroupID != nil {
		form.Group = strconv.FormatUint(uint64(*post.GroupID), 10)
	}
	return form
}

// groupID parses the selected group; an empty selection means no group.
func (f *PostForm) groupID() (*uint, bool) {
	raw := strings.TrimSpace(f.Group)
	if raw == "" {
		return nil, true
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return nil, false
	}
	gid := uint(id)
	return &gid, true
}

// CommentForm holds a submitted comment.
type CommentForm struct {
	Text string `form:"text" binding:"required,max=1000"`
}

// LoginForm holds submitted credentials.
type LoginForm struct {
	Username string      `form:"username" binding:"required"`
	Password string      `form:"password" binding:"required"`
	Next     string      `form:"next"`
	Errors   FieldErrors `form:"-"`
}

// SignupForm holds a registration request.
type SignupForm struct {
	FirstName string      `form:"first_name" binding:"max=150"`
	LastName  string      `form:"last_name" binding:"max=150"`
	Username  string      `form:"username" binding:"required,max=150"`
	Email     string      `form:"email" binding:"omitempty,email,max=254"`
	Password1 string      `form:"password1" binding:"required"`
	Password2 string      `form:"password2" binding:"required"`
	Errors    FieldErrors `form:"-"`
}

var usernamePattern = regexp.MustCompile(`^[\p{L}\p{N}.@+_-]+$`)

// reservedUsernames would shadow fixed routes at the first path segment.
var reservedUsernames = map[string]bool{
	"new": true, "group": true, "about": true, "auth": true,
	"media": true, "static": true, "health": true, "admin": true,
}

func usernameProblem(username string) string {
	switch {
	case !usernamePattern.MatchString(username):
		return "Enter a valid username. This value may contain only letters, numbers, and @/./+/-/_ characters."
	case reservedUsernames[strings.ToLower(username)]:
		return "This username is reserved."
	default:
		return ""
	}
}

// safeNext keeps login redirects on this site.
func safeNext(next string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return "/"
	}
	return next
}
