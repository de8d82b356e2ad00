package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"strconv"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"

	"github.com/panks123/pizza-app-auth-service/internal/auth"
)

// Length limits for stored fields.
const (
	minPasswordLength = 8
	maxPasswordLength = 72 // bcrypt ignores anything longer
	maxNameLength     = 100
	maxAddressLength  = 255
)

// Default list paging.
const (
	defaultCurrentPage = 1
	defaultPerPage     = 6
)

// fieldError is one entry of a validation failure response.
type fieldError struct {
	Type string `json:"type"`
	Path string `json:"path"`
	Msg  string `json:"msg"`
}

// validationResponse is the 400 body for failed validation.
type validationResponse struct {
	Errors []fieldError `json:"errors"`
}

// decodeAndValidate decodes the JSON body into v, trims it and validates it.
// It writes the 400 response itself and returns false on any failure.
func (s *Server) decodeAndValidate(w http.ResponseWriter, r *http.Request, v interface {
	validation.Validatable
	trim()
}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return false
	}
	v.trim()

	err := v.Validate()
	if err == nil {
		return true
	}

	var fields validation.Errors
	if !errors.As(err, &fields) {
		s.writeServiceError(w, r, err)
		return false
	}

	writeJSON(w, http.StatusBadRequest, validationResponse{Errors: fieldErrors(fields)})
	return false
}

// fieldErrors flattens ozzo errors into the response shape, sorted by field.
func fieldErrors(errs validation.Errors) []fieldError {
	out := make([]fieldError, 0, len(errs))
	for path, err := range errs {
		out = append(out, fieldError{Type: "field", Path: path, Msg: err.Error()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

func emailRules() []validation.Rule {
	return []validation.Rule{
		validation.Required.Error("email is required!"),
		is.EmailFormat.Error("Invalid email format!"),
	}
}

func passwordRules() []validation.Rule {
	return []validation.Rule{
		validation.Required.Error("password is required!"),
		validation.RuneLength(minPasswordLength, 0).Error("Password should be atleast 8 characters!"),
		validation.Length(0, maxPasswordLength).Error("Password should be at most 72 characters!"),
	}
}

func roleRule() validation.Rule {
	roles := make([]any, 0, len(auth.ValidRoles))
	for _, r := range auth.ValidRoles {
		roles = append(roles, string(r))
	}
	return validation.In(roles...).Error("Role must be one of admin, manager, customer!")
}

// registerRequest is the body of POST /auth/register.
type registerRequest struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Password  string `json:"password"`
}

func (req *registerRequest) trim() {
	req.FirstName = strings.TrimSpace(req.FirstName)
	req.LastName = strings.TrimSpace(req.LastName)
	req.Email = strings.TrimSpace(req.Email)
}

// Validate implements validation.Validatable.
func (req registerRequest) Validate() error {
	return validation.ValidateStruct(&req,
		validation.Field(&req.Email, emailRules()...),
		validation.Field(&req.FirstName, validation.Required.Error("firstName is required!")),
		validation.Field(&req.LastName, validation.Required.Error("lastName is required!")),
		validation.Field(&req.Password, passwordRules()...),
	)
}

// loginRequest is the body of POST /auth/login.
type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (req *loginRequest) trim() {
	req.Email = strings.TrimSpace(req.Email)
}

// Validate implements validation.Validatable.
func (req loginRequest) Validate() error {
	return validation.ValidateStruct(&req,
		validation.Field(&req.Email, emailRules()...),
		validation.Field(&req.Password, validation.Required.Error("password is required!")),
	)
}

// createUserRequest is the body of POST /users.
type createUserRequest struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	Role      string `json:"role"`
	TenantID  int64  `json:"tenantId"`
}

func (req *createUserRequest) trim() {
	req.FirstName = strings.TrimSpace(req.FirstName)
	req.LastName = strings.TrimSpace(req.LastName)
	req.Email = strings.TrimSpace(req.Email)
	req.Role = strings.TrimSpace(req.Role)
}

// Validate implements validation.Validatable.
func (req createUserRequest) Validate() error {
	return validation.ValidateStruct(&req,
		validation.Field(&req.FirstName, validation.Required.Error("firstName is required!")),
		validation.Field(&req.LastName, validation.Required.Error("lastName is required!")),
		validation.Field(&req.Email, emailRules()...),
		validation.Field(&req.Password, passwordRules()...),
		validation.Field(&req.Role, validation.Required.Error("Role is required!"), roleRule()),
		validation.Field(&req.TenantID,
			validation.When(auth.RequiresTenant(auth.Role(req.Role)), validation.Required.Error("tenantId is required!")),
			validation.Min(int64(0)).Error("tenantId must be a positive number!"),
		),
	)
}

// updateUserRequest is the body of PATCH /users/{id}.
type updateUserRequest struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Role      string `json:"role"`
	TenantID  int64  `json:"tenantId"`
}

func (req *updateUserRequest) trim() {
	req.FirstName = strings.TrimSpace(req.FirstName)
	req.LastName = strings.TrimSpace(req.LastName)
	req.Role = strings.TrimSpace(req.Role)
}

// Validate implements validation.Validatable.
func (req updateUserRequest) Validate() error {
	return validation.ValidateStruct(&req,
		validation.Field(&req.FirstName, validation.Required.Error("firstName is required!")),
		validation.Field(&req.LastName, validation.Required.Error("lastName is required!")),
		validation.Field(&req.Role, validation.Required.Error("Role is required!"), roleRule()),
		validation.Field(&req.TenantID,
			validation.When(auth.RequiresTenant(auth.Role(req.Role)), validation.Required.Error("tenantId is required!")),
			validation.Min(int64(0)).Error("tenantId must be a positive number!"),
		),
	)
}

// tenantRequest is the body of POST /tenants and PATCH /tenants/{id}.
type tenantRequest struct {
	Name    string `json:"name"`
	Address string `json:"address"`
}

func (req *tenantRequest) trim() {
	req.Name = strings.TrimSpace(req.Name)
	req.Address = strings.TrimSpace(req.Address)
}

// Validate implements validation.Validatable.
func (req tenantRequest) Validate() error {
	return validation.ValidateStruct(&req,
		validation.Field(&req.Name,
			validation.Required.Error("Tenant name is required!"),
			validation.RuneLength(0, maxNameLength).Error("Tenant name should be at most 100 characters!"),
		),
		validation.Field(&req.Address,
			validation.Required.Error("Tenant address is required!"),
			validation.RuneLength(0, maxAddressLength).Error("Tenant address should be at most 255 characters!"),
		),
	)
}

// pageParams reads currentPage and perPage from the query string.
// Missing, non-numeric or non-positive values fall back to the defaults.
func pageParams(r *http.Request) (currentPage, perPage int) {
	q := r.URL.Query()
	return positiveIntOr(q.Get("currentPage"), defaultCurrentPage), positiveIntOr(q.Get("perPage"), defaultPerPage)
}

func positiveIntOr(raw string, fallback int) int {
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return fallback
	}
	return n
}

// idParam parses a numeric {id} URL parameter.
func idParam(raw string) (int64, bool) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 1 {
		return 0, false
	}
	return id, true
}
