// Package command is the request/response surface consumed by user
// interfaces. Every command validates its request, runs the owning service
// and returns only public error messages.
package command

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/erazemk/ossms/internal/auth"
	"github.com/erazemk/ossms/internal/errs"
	"github.com/erazemk/ossms/internal/identity"
	"github.com/erazemk/ossms/internal/ledger"
	"github.com/erazemk/ossms/internal/model"
	"github.com/erazemk/ossms/internal/store"
)

// AppName is reported by Version.
const AppName = "OSSMS"

var validate *validator.Validate

func init() {
	validate = validator.New(validator.WithRequiredStructEnabled())
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	_ = validate.RegisterValidation("role", func(fl validator.FieldLevel) bool {
		return model.ValidRole(fl.Field().String())
	})
}

// Service dispatches commands to the ledger and identity services.
type Service struct {
	store    *store.Store
	ledger   *ledger.Ledger
	identity *identity.Service
	sessions *auth.Sessions
	version  string
}

// New returns a Service.
func New(st *store.Store, l *ledger.Ledger, id *identity.Service, sessions *auth.Sessions, version string) *Service {
	return &Service{
		store:    st,
		ledger:   l,
		identity: id,
		sessions: sessions,
		version:  version,
	}
}

// Result is the outcome of commands that report a success flag.
type Result struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`

	kind errs.Kind
}

// Kind classifies a failed result.
func (r Result) Kind() errs.Kind {
	return r.kind
}

// AppInfo identifies the running build.
type AppInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// Version reports the application name and version.
func (s *Service) Version() AppInfo {
	return AppInfo{Name: AppName, Version: s.version}
}

// check validates a request struct.
func check(req any) error {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return errs.Validation("invalid request")
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fieldMessage(fe))
	}
	return errs.Validation("%s", strings.Join(msgs, "; "))
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "email":
		return fmt.Sprintf("%s must be a valid email address", fe.Field())
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", fe.Field(), fe.Param())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", fe.Field(), fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param())
	case "lte":
		return fmt.Sprintf("%s must be at most %s", fe.Field(), fe.Param())
	case "role":
		return fmt.Sprintf("%s must be one of admin, staff, viewer", fe.Field())
	default:
		return fmt.Sprintf("%s is invalid", fe.Field())
	}
}

// public logs err when its details must not leave the process and returns
// the sanitized form.
func public(ctx context.Context, command string, err error) error {
	if err == nil {
		return nil
	}
	switch errs.KindOf(err) {
	case errs.KindNotFound, errs.KindValidation:
		slog.DebugContext(ctx, "command rejected", "command", command, "error", err)
	default:
		slog.ErrorContext(ctx, "command failed", "command", command, "error", err)
	}
	return errs.Sanitize(err)
}

func failed(ctx context.Context, command string, err error) Result {
	return Result{Error: errs.Public(public(ctx, command, err)), kind: errs.KindOf(err)}
}

func rejected(err error) Result {
	return Result{Error: errs.Public(err), kind: errs.KindValidation}
}
