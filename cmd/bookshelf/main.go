package main

import (
	"context"
	"database/sql"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-bookshelf"
	"github.com/goliatone/go-bookshelf/config"
	gconfig "github.com/goliatone/go-config/config"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-logger/glog"
	"github.com/goliatone/go-persistence-bun"
	"github.com/goliatone/go-router"
	mflash "github.com/goliatone/go-router/middleware/flash"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

func main() {
	lgr := glog.NewLogger(
		glog.WithLoggerTypePretty(),
		glog.WithLevel(glog.Info),
		glog.WithName("bookshelf"),
		glog.WithAddSource(false),
		glog.WithRichErrorHandler(errors.ToSlogAttributes),
	)

	cfg := gconfig.New(&config.AppConfig{}).
		WithLogger(lgr.GetLogger("config"))

	ctx := context.Background()
	if err := cfg.Load(ctx); err != nil {
		lgr.Error("load config", "error", err)
		os.Exit(1)
	}

	app := cfg.Raw()

	repo, err := setupPersistence(ctx, app, lgr)
	if err != nil {
		lgr.Error("setup persistence", "error", err)
		os.Exit(1)
	}

	srv := setupServer(app, repo, lgr)

	srv.Serve(app.GetServer().GetAddr())

	waitExitSignal()
}

func setupPersistence(ctx context.Context, app *config.AppConfig, lgr *glog.BaseLogger) (bookshelf.RepositoryManager, error) {
	db, err := sql.Open(sqliteshim.ShimName, app.GetPersistence().GetDSN())
	if err != nil {
		return nil, err
	}

	persistence.RegisterModel((*bookshelf.User)(nil))
	persistence.RegisterModel((*bookshelf.Activation)(nil))
	persistence.RegisterModel((*bookshelf.Library)(nil))
	persistence.RegisterModel((*bookshelf.Book)(nil))
	persistence.RegisterModel((*bookshelf.Profile)(nil))

	client, err := persistence.New(app.GetPersistence(), db, sqlitedialect.New())
	if err != nil {
		return nil, err
	}

	client.SetLogger(lgr.GetLogger("persistence"))

	migrationsFS, err := fs.Sub(bookshelf.GetMigrationsFS(), "data/sql/migrations")
	if err != nil {
		return nil, err
	}

	client.RegisterDialectMigrations(
		migrationsFS,
		persistence.WithDialectSourceLabel("data/sql/migrations"),
		persistence.WithValidationTargets("postgres", "sqlite"),
	)

	if err := client.ValidateDialects(ctx); err != nil {
		return nil, err
	}

	if err := client.Migrate(ctx); err != nil {
		return nil, err
	}

	return bookshelf.NewRepositoryManager(client.DB()), nil
}

func setupServer(app *config.AppConfig, repo bookshelf.RepositoryManager, lgr *glog.BaseLogger) router.Server[*fiber.App] {
	srv := router.NewFiberAdapter(func(a *fiber.App) *fiber.App {
		return router.DefaultFiberOptions(fiber.New(fiber.Config{
			UnescapePath:      true,
			StrictRouting:     false,
			PassLocalsToViews: true,
		}))
	})

	srv.Router().WithLogger(lgr.GetLogger("router"))
	srv.Router().Use(mflash.New(mflash.ConfigDefault))

	notifier := bookshelf.NewNotifier(
		bookshelf.NewLogMailer(lgr.GetLogger("mailer")),
		app.GetApp().GetBaseURL(),
	)

	tokens := bookshelf.NewResetTokenService(
		[]byte(app.GetAuth().GetSigningKey()),
		app.GetAuth().GetResetTokenTTL(),
	)

	bookshelf.RegisterAuthRoutes(
		srv.Router(),
		bookshelf.WithAuthRepository(repo),
		bookshelf.WithAuthNotifier(notifier),
		bookshelf.WithAuthTokens(tokens),
		bookshelf.WithAuthLogger(lgr.GetLogger("auth")),
		bookshelf.WithActivationRequired(app.GetAuth().GetActivationRequired()),
	)

	bookshelf.RegisterCatalogRoutes(
		srv.Router(),
		bookshelf.WithCatalogRepository(repo),
		bookshelf.WithCatalogLogger(lgr.GetLogger("catalog")),
	)

	return srv
}

func waitExitSignal() os.Signal {
	ch := make(chan os.Signal, 3)
	signal.Notify(ch,
		syscall.SIGINT,
		syscall.SIGQUIT,
		syscall.SIGTERM,
	)
	return <-ch
}
