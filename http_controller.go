package bookshelf

import (
	"fmt"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
	"github.com/goliatone/go-router/flash"
	"github.com/google/uuid"
)

// AuthUserKey is the locals key the session middleware uses to expose the
// authenticated user id. Session transport itself lives outside this
// package.
const AuthUserKey = "auth_user_id"

// CurrentUserID reads the authenticated user from request locals.
func CurrentUserID(ctx router.Context) (uuid.UUID, bool) {
	raw := ctx.Locals(AuthUserKey)
	if raw == nil {
		return uuid.Nil, false
	}

	switch v := raw.(type) {
	case uuid.UUID:
		return v, true
	case string:
		if id, err := uuid.Parse(v); err == nil {
			return id, true
		}
	}

	return uuid.Nil, false
}

func RegisterAuthRoutes[T any](app router.Router[T], opts ...AuthControllerOption) {

	controller := NewAuthController(opts...)

	app.Get(controller.Routes.SignUp, controller.SignUpShow).SetName("sign-up.get")
	app.Post(controller.Routes.SignUp, controller.SignUpPost).SetName("sign-up.post")

	app.Get(controller.Routes.LogIn, controller.LogInShow).SetName("log-in.get")
	app.Post(controller.Routes.LogIn, controller.LogInPost).SetName("log-in.post")

	app.Get(fmt.Sprintf("%s/:code", controller.Routes.Activate), controller.Activate).
		SetName("activate.get")

	app.Get(controller.Routes.ResendActivation, controller.ResendActivationShow).
		SetName("resend-activation.get")
	app.Post(controller.Routes.ResendActivation, controller.ResendActivationPost).
		SetName("resend-activation.post")

	app.Get(controller.Routes.ForgotUsername, controller.ForgotUsernameShow).
		SetName("forgot-username.get")
	app.Post(controller.Routes.ForgotUsername, controller.ForgotUsernamePost).
		SetName("forgot-username.post")

	app.Get(controller.Routes.ResetPassword, controller.ResetPasswordShow).
		SetName("reset-password.get")
	app.Post(controller.Routes.ResetPassword, controller.ResetPasswordPost).
		SetName("reset-password.post")

	app.Get(fmt.Sprintf("%s/confirm/:uid/:token", controller.Routes.ResetPassword), controller.ResetPasswordConfirmShow).
		SetName("reset-password-confirm.get")
	app.Post(fmt.Sprintf("%s/confirm/:uid/:token", controller.Routes.ResetPassword), controller.ResetPasswordConfirmPost).
		SetName("reset-password-confirm.post")

	app.Get(controller.Routes.Profile, controller.ProfileShow).SetName("profile.get")
	app.Post(controller.Routes.Profile, controller.ProfilePost).SetName("profile.post")

	app.Get(fmt.Sprintf("%s/:code", controller.Routes.ChangeEmailActivate), controller.ChangeEmailActivate).
		SetName("change-email-activate.get")
}

type AuthControllerRoutes struct {
	SignUp              string
	LogIn               string
	Activate            string
	ResendActivation    string
	ForgotUsername      string
	ResetPassword       string
	Profile             string
	ChangeEmailActivate string
}

type AuthControllerViews struct {
	SignUp           string
	LogIn            string
	ResendActivation string
	ForgotUsername   string
	ResetPassword    string
	Profile          string
}

type AuthController struct {
	Debug    bool
	Logger   Logger
	Repo     RepositoryManager
	Notifier *Notifier
	Tokens   ResetTokenService
	Routes   *AuthControllerRoutes
	Views    *AuthControllerViews
	// ActivationRequired mirrors the deployment configuration: without it
	// accounts are created active and sign-up reports immediate sign-in.
	ActivationRequired bool
}

type AuthControllerOption func(*AuthController) *AuthController

func WithAuthRepository(repo RepositoryManager) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Repo = repo
		return c
	}
}

func WithAuthNotifier(notifier *Notifier) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Notifier = notifier
		return c
	}
}

func WithAuthTokens(tokens ResetTokenService) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Tokens = tokens
		return c
	}
}

func WithAuthLogger(logger Logger) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Logger = logger
		return c
	}
}

func WithActivationRequired(required bool) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.ActivationRequired = required
		return c
	}
}

func NewAuthController(opts ...AuthControllerOption) *AuthController {
	c := &AuthController{
		Logger:             defLogger{},
		ActivationRequired: true,
		Routes: &AuthControllerRoutes{
			SignUp:              "/sign-up",
			LogIn:               "/log-in",
			Activate:            "/activate",
			ResendActivation:    "/resend-activation",
			ForgotUsername:      "/forgot-username",
			ResetPassword:       "/reset-password",
			Profile:             "/profile",
			ChangeEmailActivate: "/change-email/activate",
		},
		Views: &AuthControllerViews{
			SignUp:           "sign_up",
			LogIn:            "log_in",
			ResendActivation: "resend_activation",
			ForgotUsername:   "forgot_username",
			ResetPassword:    "reset_password",
			Profile:          "profile",
		},
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Repo == nil {
		panic("Missing RepositoryManager in auth controller...")
	}

	if c.Tokens == nil {
		panic("Missing ResetTokenService in auth controller...")
	}

	if c.Notifier == nil {
		c.Notifier = NewNotifier(nil, "")
	}

	return c
}

func (a *AuthController) SignUpShow(ctx router.Context) error {
	return ctx.Render(a.Views.SignUp, router.ViewContext{
		"errors": map[string]string{},
		"record": SignUpPayload{},
	})
}

// SignUpPayload is the sign-up form payload
type SignUpPayload struct {
	FirstName       string `form:"first_name" json:"first_name"`
	LastName        string `form:"last_name" json:"last_name"`
	Username        string `form:"username" json:"username"`
	Email           string `form:"email" json:"email"`
	Password        string `form:"password" json:"password"`
	ConfirmPassword string `form:"confirm_password" json:"confirm_password"`
}

// Validate will validate the payload
func (r SignUpPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.FirstName, validation.Length(0, 30)),
		validation.Field(&r.LastName, validation.Length(0, 30)),
		validation.Field(&r.Username, validation.Required, validation.Length(3, 150)),
		validation.Field(&r.Email, validation.Required, validation.Length(6, 100), is.Email),
		validation.Field(&r.Password, validation.Required, validation.Length(10, 100)),
		validation.Field(
			&r.ConfirmPassword,
			validation.Required,
			validation.Length(10, 100),
			validation.By(ValidateStringEquals(r.Password)),
		),
	)
}

func (a *AuthController) SignUpPost(ctx router.Context) error {
	payload := new(SignUpPayload)

	if err := ctx.Bind(payload); err != nil {
		a.Logger.Error("sign up parse payload: ", "error", err)
		return flash.WithError(ctx, router.ViewContext{
			"error_message":  err.Error(),
			"system_message": "Error parsing body",
		}).Status(fiber.StatusBadRequest).Render(a.Views.SignUp, router.ViewContext{
			"errors": map[string]string{"form": "Failed to parse form"},
			"record": payload,
		})
	}

	if err := payload.Validate(); err != nil {
		a.Logger.Error("sign up validate payload: ", "error", err)
		return flash.WithError(ctx, router.ViewContext{
			"error_message":  err.Error(),
			"system_message": "Error validating payload",
		}).Render(a.Views.SignUp, router.ViewContext{
			"record":     payload,
			"validation": FormatValidationErrorToMap(err),
		})
	}

	if a.Debug {
		fmt.Println("======= SIGN UP ======")
		fmt.Println(print.MaybePrettyJSON(payload))
		fmt.Println("======================")
	}

	var res *SignupResponse

	signup := NewSignupHandler(a.Repo, a.Notifier, a.ActivationRequired).WithLogger(a.Logger)
	err := signup.Execute(ctx.Context(), SignupMessage{
		FirstName: payload.FirstName,
		LastName:  payload.LastName,
		Username:  payload.Username,
		Email:     payload.Email,
		Password:  payload.Password,
		OnResponse: func(r *SignupResponse) {
			res = r
		},
	})

	if err != nil {
		return a.renderFailure(ctx, err, a.Views.SignUp, payload)
	}

	message := "You have successfully signed up."
	if res != nil && res.PendingActivation {
		message = "You have successfully signed up. Follow the link sent to your email address to activate your account."
	}

	return flash.WithSuccess(ctx, router.ViewContext{
		"system_message": message,
	}).Redirect("/", fiber.StatusSeeOther)
}

func (a *AuthController) LogInShow(ctx router.Context) error {
	return ctx.Render(a.Views.LogIn, router.ViewContext{
		"errors": nil,
		"record": nil,
	})
}

// LogInPayload is the login form payload
type LogInPayload struct {
	Identifier string `form:"email_or_username" json:"email_or_username"`
	Password   string `form:"password" json:"password"`
	RememberMe bool   `form:"remember_me" json:"remember_me"`
}

// Validate will run validation rules
func (r LogInPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Identifier, validation.Required),
		validation.Field(&r.Password, validation.Required),
	)
}

func (a *AuthController) LogInPost(ctx router.Context) error {
	payload := new(LogInPayload)

	if err := ctx.Bind(payload); err != nil {
		return flash.WithError(ctx, router.ViewContext{
			"error_message":  err.Error(),
			"system_message": "Error parsing body",
		}).Status(fiber.StatusBadRequest).Render(a.Views.LogIn, router.ViewContext{
			"errors": map[string]string{"form": "Failed to parse form"},
			"record": payload,
		})
	}

	if err := payload.Validate(); err != nil {
		return ctx.Render(a.Views.LogIn, router.ViewContext{
			"record":     payload,
			"validation": FormatValidationErrorToMap(err),
		})
	}

	user, err := a.Repo.Users().VerifyIdentity(ctx.Context(), payload.Identifier, payload.Password)
	if err != nil {
		return ctx.Render(a.Views.LogIn, router.ViewContext{
			"errors":  map[string]string{"authentication": userMessage(err)},
			"payload": payload,
		})
	}

	// session issuance belongs to the host application's middleware; the
	// resolved identity is exposed for it to pick up
	ctx.Locals(AuthUserKey, user.ID.String())

	return flash.WithSuccess(ctx, router.ViewContext{
		"system_message": "You have successfully logged in.",
	}).Redirect("/", fiber.StatusSeeOther)
}

func (a *AuthController) Activate(ctx router.Context) error {
	code := ctx.Param("code", "")

	activate := NewActivateAccountHandler(a.Repo).WithLogger(a.Logger)
	if err := activate.Execute(ctx.Context(), ActivateAccountMessage{Code: code}); err != nil {
		a.Logger.Error("account activation: ", "error", err)
		return flash.WithError(ctx, router.ViewContext{
			"error_message":  userMessage(err),
			"system_message": "Activation failed",
		}).Status(fiber.StatusNotFound).Redirect(a.Routes.LogIn, fiber.StatusSeeOther)
	}

	return flash.WithSuccess(ctx, router.ViewContext{
		"system_message": "You have successfully activated your account.",
	}).Redirect(a.Routes.LogIn, fiber.StatusSeeOther)
}

func (a *AuthController) ResendActivationShow(ctx router.Context) error {
	return ctx.Render(a.Views.ResendActivation, router.ViewContext{
		"errors": map[string]string{},
		"record": ResendActivationPayload{},
	})
}

// ResendActivationPayload is the resend form payload
type ResendActivationPayload struct {
	Identifier string `form:"email_or_username" json:"email_or_username"`
}

// Validate will validate the payload
func (r ResendActivationPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Identifier, validation.Required),
	)
}

func (a *AuthController) ResendActivationPost(ctx router.Context) error {
	payload := new(ResendActivationPayload)

	if err := ctx.Bind(payload); err != nil {
		return flash.WithError(ctx, router.ViewContext{
			"error_message":  err.Error(),
			"system_message": "Error parsing body",
		}).Status(fiber.StatusBadRequest).Render(a.Views.ResendActivation, router.ViewContext{
			"errors": map[string]string{"form": "Failed to parse form"},
			"record": payload,
		})
	}

	if err := payload.Validate(); err != nil {
		return ctx.Render(a.Views.ResendActivation, router.ViewContext{
			"record":     payload,
			"validation": FormatValidationErrorToMap(err),
		})
	}

	resend := NewResendActivationHandler(a.Repo, a.Notifier).WithLogger(a.Logger)
	err := resend.Execute(ctx.Context(), ResendActivationMessage{Identifier: payload.Identifier})
	if err != nil {
		return a.renderFailure(ctx, err, a.Views.ResendActivation, payload)
	}

	return flash.WithSuccess(ctx, router.ViewContext{
		"system_message": "A new activation code has been sent to your email address.",
	}).Redirect(a.Routes.ResendActivation, fiber.StatusSeeOther)
}

func (a *AuthController) ForgotUsernameShow(ctx router.Context) error {
	return ctx.Render(a.Views.ForgotUsername, router.ViewContext{
		"errors": map[string]string{},
		"record": EmailPayload{},
	})
}

// EmailPayload is the single-field form for the recovery flows
type EmailPayload struct {
	Email string `form:"email" json:"email"`
}

// Validate will validate the payload
func (r EmailPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
	)
}

func (a *AuthController) ForgotUsernamePost(ctx router.Context) error {
	payload := new(EmailPayload)

	if err := ctx.Bind(payload); err != nil {
		return flash.WithError(ctx, router.ViewContext{
			"error_message":  err.Error(),
			"system_message": "Error parsing body",
		}).Status(fiber.StatusBadRequest).Render(a.Views.ForgotUsername, router.ViewContext{
			"errors": map[string]string{"form": "Failed to parse form"},
			"record": payload,
		})
	}

	if err := payload.Validate(); err != nil {
		return ctx.Render(a.Views.ForgotUsername, router.ViewContext{
			"record":     payload,
			"validation": FormatValidationErrorToMap(err),
		})
	}

	forgot := NewForgotUsernameHandler(a.Repo, a.Notifier).WithLogger(a.Logger)
	if err := forgot.Execute(ctx.Context(), ForgotUsernameMessage{Email: payload.Email}); err != nil {
		return a.renderFailure(ctx, err, a.Views.ForgotUsername, payload)
	}

	return flash.WithSuccess(ctx, router.ViewContext{
		"system_message": "The username has been sent to your email address.",
	}).Redirect(a.Routes.ForgotUsername, fiber.StatusSeeOther)
}

func (a *AuthController) ResetPasswordShow(ctx router.Context) error {
	return ctx.Render(a.Views.ResetPassword, router.ViewContext{
		"errors": nil,
		"record": EmailPayload{},
	})
}

func (a *AuthController) ResetPasswordPost(ctx router.Context) error {
	payload := new(EmailPayload)

	if err := ctx.Bind(payload); err != nil {
		return flash.WithError(ctx, router.ViewContext{
			"error_message":  err.Error(),
			"system_message": "Error parsing body",
		}).Status(fiber.StatusBadRequest).Render(a.Views.ResetPassword, router.ViewContext{
			"errors": map[string]string{"form": "Failed to parse form"},
			"record": payload,
		})
	}

	if err := payload.Validate(); err != nil {
		return ctx.Render(a.Views.ResetPassword, router.ViewContext{
			"record":     payload,
			"validation": FormatValidationErrorToMap(err),
		})
	}

	initReset := NewInitializePasswordResetHandler(a.Repo, a.Tokens, a.Notifier).WithLogger(a.Logger)
	if err := initReset.Execute(ctx.Context(), InitializePasswordResetMessage{Email: payload.Email}); err != nil {
		return a.renderFailure(ctx, err, a.Views.ResetPassword, payload)
	}

	return flash.WithSuccess(ctx, router.ViewContext{
		"system_message": "Follow the link sent to your email address to reset your password.",
	}).Redirect(a.Routes.ResetPassword, fiber.StatusSeeOther)
}

func (a *AuthController) ResetPasswordConfirmShow(ctx router.Context) error {
	return ctx.Render(a.Views.ResetPassword, router.ViewContext{
		"errors": nil,
		"reset": map[string]string{
			"uid":   ctx.Param("uid", ""),
			"token": ctx.Param("token", ""),
		},
	})
}

// ResetPasswordConfirmPayload carries the new password
type ResetPasswordConfirmPayload struct {
	Password        string `form:"password" json:"password"`
	ConfirmPassword string `form:"confirm_password" json:"confirm_password"`
}

// Validate will validate the payload
func (r ResetPasswordConfirmPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Password, validation.Required, validation.Length(10, 100)),
		validation.Field(
			&r.ConfirmPassword,
			validation.Required,
			validation.Length(10, 100),
			validation.By(ValidateStringEquals(r.Password)),
		),
	)
}

func (a *AuthController) ResetPasswordConfirmPost(ctx router.Context) error {
	payload := new(ResetPasswordConfirmPayload)

	if err := ctx.Bind(payload); err != nil {
		return flash.WithError(ctx, router.ViewContext{
			"error_message":  err.Error(),
			"system_message": "Error parsing body",
		}).Status(fiber.StatusBadRequest).Render(a.Views.ResetPassword, router.ViewContext{
			"errors": map[string]string{"form": "Failed to parse form"},
		})
	}

	if err := payload.Validate(); err != nil {
		return ctx.Render(a.Views.ResetPassword, router.ViewContext{
			"validation": FormatValidationErrorToMap(err),
			"reset": map[string]string{
				"uid":   ctx.Param("uid", ""),
				"token": ctx.Param("token", ""),
			},
		})
	}

	finalize := NewFinalizePasswordResetHandler(a.Repo, a.Tokens).WithLogger(a.Logger)
	err := finalize.Execute(ctx.Context(), FinalizePasswordResetMessage{
		UID:      ctx.Param("uid", ""),
		Token:    ctx.Param("token", ""),
		Password: payload.Password,
	})

	if err != nil {
		return a.renderFailure(ctx, err, a.Views.ResetPassword, payload)
	}

	return flash.WithSuccess(ctx, router.ViewContext{
		"system_message": "You have successfully reset your password.",
	}).Redirect(a.Routes.LogIn, fiber.StatusSeeOther)
}

func (a *AuthController) ProfileShow(ctx router.Context) error {
	userID, ok := CurrentUserID(ctx)
	if !ok {
		return ctx.Redirect(a.Routes.LogIn, router.StatusSeeOther)
	}

	user, err := a.Repo.Users().GetByID(ctx.Context(), userID.String())
	if err != nil {
		return flash.WithError(ctx, router.ViewContext{
			"system_message": "Something went wrong. Please try again later.",
		}).Redirect("/", fiber.StatusSeeOther)
	}

	return ctx.Render(a.Views.Profile, router.ViewContext{
		"errors": map[string]string{},
		"record": user,
	})
}

// ProfilePayload is the profile edit form
type ProfilePayload struct {
	FirstName string `form:"first_name" json:"first_name"`
	LastName  string `form:"last_name" json:"last_name"`
	Email     string `form:"email" json:"email"`
}

// Validate will validate the payload
func (r ProfilePayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.FirstName, validation.Length(0, 30)),
		validation.Field(&r.LastName, validation.Length(0, 30)),
		validation.Field(&r.Email, validation.Required, is.Email),
	)
}

func (a *AuthController) ProfilePost(ctx router.Context) error {
	userID, ok := CurrentUserID(ctx)
	if !ok {
		return ctx.Redirect(a.Routes.LogIn, router.StatusSeeOther)
	}

	payload := new(ProfilePayload)

	if err := ctx.Bind(payload); err != nil {
		return flash.WithError(ctx, router.ViewContext{
			"error_message":  err.Error(),
			"system_message": "Error parsing body",
		}).Status(fiber.StatusBadRequest).Render(a.Views.Profile, router.ViewContext{
			"errors": map[string]string{"form": "Failed to parse form"},
			"record": payload,
		})
	}

	if err := payload.Validate(); err != nil {
		return ctx.Render(a.Views.Profile, router.ViewContext{
			"record":     payload,
			"validation": FormatValidationErrorToMap(err),
		})
	}

	var res *ChangeProfileResponse

	change := NewChangeProfileHandler(a.Repo, a.Notifier, a.ActivationRequired).WithLogger(a.Logger)
	err := change.Execute(ctx.Context(), ChangeProfileMessage{
		UserID:    userID,
		FirstName: payload.FirstName,
		LastName:  payload.LastName,
		Email:     payload.Email,
		OnResponse: func(r *ChangeProfileResponse) {
			res = r
		},
	})

	if err != nil {
		return a.renderFailure(ctx, err, a.Views.Profile, payload)
	}

	message := "Profile updated."
	if res != nil && res.EmailChangeRequested {
		message = "Follow the link sent to your email address to change your email address."
	}

	return flash.WithSuccess(ctx, router.ViewContext{
		"system_message": message,
	}).Redirect(a.Routes.Profile, fiber.StatusSeeOther)
}

func (a *AuthController) ChangeEmailActivate(ctx router.Context) error {
	code := ctx.Param("code", "")

	activate := NewActivateEmailChangeHandler(a.Repo).WithLogger(a.Logger)
	if err := activate.Execute(ctx.Context(), ActivateEmailChangeMessage{Code: code}); err != nil {
		a.Logger.Error("email change activation: ", "error", err)
		return flash.WithError(ctx, router.ViewContext{
			"error_message":  userMessage(err),
			"system_message": "Activation failed",
		}).Status(fiber.StatusNotFound).Redirect(a.Routes.Profile, fiber.StatusSeeOther)
	}

	return flash.WithSuccess(ctx, router.ViewContext{
		"system_message": "You have successfully changed your email address.",
	}).Redirect(a.Routes.Profile, fiber.StatusSeeOther)
}

// renderFailure maps the error taxonomy onto the response contract:
// validation errors re-render the form with the message, anything
// transient logs the cause for operators and shows a generic retry
// message.
func (a *AuthController) renderFailure(ctx router.Context, err error, view string, payload any) error {
	if IsValidationError(err) || !IsTransientError(err) {
		return flash.WithError(ctx, router.ViewContext{
			"error_message": userMessage(err),
		}).Render(view, router.ViewContext{
			"record": payload,
			"errors": []string{userMessage(err)},
		})
	}

	a.Logger.Error("transient failure: ", "error", err)

	return flash.WithError(ctx, router.ViewContext{
		"error_message":  "Something went wrong. Please try again later.",
		"system_message": "Something went wrong. Please try again later.",
	}).Render(view, router.ViewContext{
		"record": payload,
		"errors": []string{"Something went wrong. Please try again later."},
	})
}

func userMessage(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// ValidateStringEquals will check that both values match
func ValidateStringEquals(str string) validation.RuleFunc {
	return func(value any) error {
		s, _ := value.(string)
		if s != str {
			return fmt.Errorf("values do not match")
		}
		return nil
	}
}

// FormatValidationErrorToMap flattens ozzo validation errors into a
// field to message map the views can consume.
func FormatValidationErrorToMap(err error) map[string]string {
	out := map[string]string{}
	if err == nil {
		return out
	}

	if verrs, ok := err.(validation.Errors); ok {
		for field, ferr := range verrs {
			out[field] = ferr.Error()
		}
		return out
	}

	out["form"] = strings.TrimSpace(err.Error())
	return out
}
