package echoapi

import (
	"context"
	"net/http"
	"os"
	"syscall"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	"github.com/pkg/errors"

	"github.com/trezcool/elimu/core"
	"github.com/trezcool/elimu/core/account"
	"github.com/trezcool/elimu/core/auth"
	"github.com/trezcool/elimu/core/course"
	"github.com/trezcool/elimu/core/quiz"
)

type (
	ServerDeps struct {
		Conf          *core.Config
		Logger        core.Logger
		Tokens        *auth.TokenManager
		Authenticator *auth.Authenticator
		AccountSvc    *account.Service
		CourseSvc     *course.Service
		QuizSvc       *quiz.Service
		Validate      *validator.Validate
		Translator    ut.Translator
	}

	Server struct {
		deps     ServerDeps
		app      *echo.Echo
		errors   chan error
		shutdown chan os.Signal
	}
)

func NewServer(deps ServerDeps) *Server {
	s := &Server{
		deps:     deps,
		app:      echo.New(),
		errors:   make(chan error, 1),
		shutdown: make(chan os.Signal, 1),
	}
	s.setup()
	return s
}

func (s *Server) setup() {
	conf := s.deps.Conf

	s.app.HideBanner = true
	s.app.Server.ReadTimeout = conf.Server.ReadTimeout
	s.app.Server.WriteTimeout = conf.Server.WriteTimeout

	s.app.Pre(middleware.RemoveTrailingSlash())
	if !conf.Server.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}
	if conf.Storage.MaxUploadSize != "" {
		s.app.Use(middleware.BodyLimit(conf.Storage.MaxUploadSize))
	}

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.deps.Logger, s.deps.Translator, s.signalShutdown)
	s.app.Debug = conf.Debug

	s.app.GET("/", home)

	api := s.app.Group("/api")
	authed := []echo.MiddlewareFunc{
		middleware.JWTWithConfig(newJWTConfig(s.deps.Tokens)),
		identityMiddleware,
	}

	registerAuthAPI(api.Group("/auth"), s.deps.Authenticator)

	admin := api.Group("/admin", append(authed, roleMiddleware(account.RoleAdmin))...)
	registerAccountAPI(admin.Group("/students"), account.RoleStudent, s.deps.AccountSvc, s.deps.Validate)
	registerAccountAPI(admin.Group("/teachers"), account.RoleTeacher, s.deps.AccountSvc, s.deps.Validate)
	registerCourseAPI(admin.Group("/courses"), s.deps.CourseSvc, s.deps.Validate)

	teacher := api.Group("/teacher", append(authed, roleMiddleware(account.RoleTeacher))...)
	registerTeacherAPI(teacher, s.deps.CourseSvc, s.deps.QuizSvc, s.deps.Validate)

	student := api.Group("/student", append(authed, roleMiddleware(account.RoleStudent))...)
	registerStudentAPI(student, s.deps.CourseSvc, s.deps.QuizSvc, s.deps.Validate)

	registerFileAPI(api.Group("/files", authed...), s.deps.QuizSvc)
}

// Start listens on the configured address; failures are reported on Errors().
func (s *Server) Start() {
	s.deps.Logger.Info("API listening on " + s.deps.Conf.Server.Address)
	if err := s.app.Start(s.deps.Conf.Server.Address); err != nil && err != http.ErrServerClosed {
		s.errors <- errors.Wrap(err, "starting server")
	}
}

func (s *Server) Errors() <-chan error { return s.errors }

// ShutdownSignal receives SIGINT/SIGTERM once wired to signal.Notify, and the server's own shutdown requests.
func (s *Server) ShutdownSignal() chan os.Signal { return s.shutdown }

func (s *Server) signalShutdown() {
	select {
	case s.shutdown <- syscall.SIGTERM:
	default:
	}
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *Server) Close() error {
	return s.app.Close()
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to Elimu API!")
}
