package config

import (
	"fmt"
	"time"
)

// AppConfig is the root configuration container loaded by go-config from
// config files and environment overrides.
type AppConfig struct {
	App         App         `json:"app" yaml:"app"`
	Server      Server      `json:"server" yaml:"server"`
	Persistence Persistence `json:"persistence" yaml:"persistence"`
	Auth        Auth        `json:"auth" yaml:"auth"`
	Mailer      Mailer      `json:"mailer" yaml:"mailer"`
}

func (c AppConfig) Validate() error {
	if c.Auth.SigningKey == "" {
		return fmt.Errorf("auth.signing_key is required")
	}
	return nil
}

func (c *AppConfig) GetApp() *App {
	return &c.App
}

func (c *AppConfig) GetServer() *Server {
	return &c.Server
}

func (c *AppConfig) GetPersistence() *Persistence {
	return &c.Persistence
}

func (c *AppConfig) GetAuth() *Auth {
	return &c.Auth
}

func (c *AppConfig) GetMailer() *Mailer {
	return &c.Mailer
}

type App struct {
	Name    string `json:"name" yaml:"name"`
	BaseURL string `json:"base_url" yaml:"base_url"`
}

func (a App) GetName() string {
	return a.Name
}

func (a App) GetBaseURL() string {
	return a.BaseURL
}

type Server struct {
	Addr string `json:"addr" yaml:"addr"`
}

func (s Server) GetAddr() string {
	if s.Addr == "" {
		return ":8080"
	}
	return s.Addr
}

type Persistence struct {
	Debug                 bool   `json:"debug" yaml:"debug"`
	Driver                string `json:"driver" yaml:"driver"`
	DSN                   string `json:"dsn" yaml:"dsn"`
	PingTimeoutExpression string `json:"ping_timeout" yaml:"ping_timeout"`
}

func (p Persistence) GetDebug() bool {
	return p.Debug
}

func (p Persistence) GetDriver() string {
	if p.Driver == "" {
		return "sqlite"
	}
	return p.Driver
}

func (p Persistence) GetDSN() string {
	if p.DSN == "" {
		return "file:bookshelf.db?cache=shared&_fk=1"
	}
	return p.DSN
}

func (p Persistence) GetServer() string {
	return p.GetDSN()
}

func (p Persistence) GetOtelIdentifier() string {
	return ""
}

func (p Persistence) GetPingTimeout() time.Duration {
	if p.PingTimeoutExpression == "" {
		return 5 * time.Second
	}

	dur, err := time.ParseDuration(p.PingTimeoutExpression)
	if err != nil {
		panic(
			fmt.Sprintf("unable to parse time: expr %s", p.PingTimeoutExpression),
		)
	}
	return dur
}

type Auth struct {
	SigningKey              string `json:"signing_key" yaml:"signing_key"`
	ActivationRequired      bool   `json:"activation_required" yaml:"activation_required"`
	ResetTokenTTLExpression string `json:"reset_token_ttl" yaml:"reset_token_ttl"`
}

func (a Auth) GetSigningKey() string {
	return a.SigningKey
}

func (a Auth) GetActivationRequired() bool {
	return a.ActivationRequired
}

func (a Auth) GetResetTokenTTL() time.Duration {
	if a.ResetTokenTTLExpression == "" {
		return 24 * time.Hour
	}

	dur, err := time.ParseDuration(a.ResetTokenTTLExpression)
	if err != nil {
		panic(
			fmt.Sprintf("unable to parse time: expr %s", a.ResetTokenTTLExpression),
		)
	}
	return dur
}

type Mailer struct {
	Sender string `json:"sender" yaml:"sender"`
}

func (m Mailer) GetSender() string {
	if m.Sender == "" {
		return "noreply@localhost"
	}
	return m.Sender
}
