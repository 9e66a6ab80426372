package bookshelf

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/gofiber/fiber/v2"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/goliatone/go-router"
	"github.com/goliatone/go-router/flash"
	"github.com/google/uuid"
)

const browsePageSize = 20

func RegisterCatalogRoutes[T any](app router.Router[T], opts ...CatalogControllerOption) {

	controller := NewCatalogController(opts...)

	app.Get(controller.Routes.Browse, controller.Browse).SetName("browse.get")
	app.Get(controller.Routes.BrowseUsers, controller.BrowseUsers).SetName("browse-users.get")
	app.Get(fmt.Sprintf("%s/:id", controller.Routes.BrowseUsers), controller.UserDetails).
		SetName("user-details.get")

	app.Get(controller.Routes.Home, controller.Home).SetName("home.get")

	app.Get(fmt.Sprintf("%s/:id", controller.Routes.Book), controller.BookShow).
		SetName("book.get")
	app.Get(controller.Routes.BookAdd, controller.BookAddShow).SetName("book-add.get")
	app.Post(controller.Routes.BookAdd, controller.BookAddPost).SetName("book-add.post")
	app.Get(fmt.Sprintf("%s/:id/edit", controller.Routes.Book), controller.BookEditShow).
		SetName("book-edit.get")
	app.Post(fmt.Sprintf("%s/:id/edit", controller.Routes.Book), controller.BookEditPost).
		SetName("book-edit.post")
	app.Post(fmt.Sprintf("%s/:id/delete", controller.Routes.Book), controller.BookDelete).
		SetName("book-delete.post")

	app.Get(controller.Routes.LibraryAdd, controller.LibraryAddShow).SetName("library-add.get")
	app.Post(controller.Routes.LibraryAdd, controller.LibraryAddPost).SetName("library-add.post")
	app.Post(fmt.Sprintf("%s/:id/delete", controller.Routes.Library), controller.LibraryDelete).
		SetName("library-delete.post")

	app.Post(fmt.Sprintf("%s/:id/favorite", controller.Routes.Book), controller.FavoriteAdd).
		SetName("favorite-add.post")
	app.Post(fmt.Sprintf("%s/:id/unfavorite", controller.Routes.Book), controller.FavoriteRemove).
		SetName("favorite-remove.post")
	app.Get(controller.Routes.Favorites, controller.Favorites).SetName("favorites.get")
}

type CatalogControllerRoutes struct {
	Home        string
	Browse      string
	BrowseUsers string
	Book        string
	BookAdd     string
	Library     string
	LibraryAdd  string
	Favorites   string
}

type CatalogControllerViews struct {
	Home        string
	Browse      string
	BrowseUsers string
	UserDetails string
	Book        string
	BookForm    string
	LibraryForm string
	Favorites   string
}

type CatalogController struct {
	Logger Logger
	Repo   RepositoryManager
	Routes *CatalogControllerRoutes
	Views  *CatalogControllerViews
}

type CatalogControllerOption func(*CatalogController) *CatalogController

func WithCatalogRepository(repo RepositoryManager) CatalogControllerOption {
	return func(c *CatalogController) *CatalogController {
		c.Repo = repo
		return c
	}
}

func WithCatalogLogger(logger Logger) CatalogControllerOption {
	return func(c *CatalogController) *CatalogController {
		c.Logger = logger
		return c
	}
}

func NewCatalogController(opts ...CatalogControllerOption) *CatalogController {
	c := &CatalogController{
		Logger: defLogger{},
		Routes: &CatalogControllerRoutes{
			Home:        "/",
			Browse:      "/browse",
			BrowseUsers: "/browse/users",
			Book:        "/book",
			BookAdd:     "/book/add",
			Library:     "/library",
			LibraryAdd:  "/library/add",
			Favorites:   "/favorites",
		},
		Views: &CatalogControllerViews{
			Home:        "home",
			Browse:      "browse",
			BrowseUsers: "browse_users",
			UserDetails: "user_details",
			Book:        "book",
			BookForm:    "book_form",
			LibraryForm: "library_form",
			Favorites:   "favorites",
		},
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Repo == nil {
		panic("Missing RepositoryManager in catalog controller...")
	}

	return c
}

// Home lists the signed in user's libraries with their books, or the
// public landing page for anonymous visitors.
func (c *CatalogController) Home(ctx router.Context) error {
	userID, ok := CurrentUserID(ctx)
	if !ok {
		return ctx.Render(c.Views.Home, router.ViewContext{
			"record": nil,
		})
	}

	libraries, err := c.Repo.Libraries().ListForUser(ctx.Context(), userID)
	if err != nil {
		c.Logger.Error("home list libraries: ", "error", err)
		return flash.WithError(ctx, router.ViewContext{
			"system_message": "Something went wrong. Please try again later.",
		}).Render(c.Views.Home, router.ViewContext{})
	}

	return ctx.Render(c.Views.Home, router.ViewContext{
		"record": libraries,
	})
}

func (c *CatalogController) Browse(ctx router.Context) error {
	filter := BookSearchFilter{
		Query:  ctx.Query("query", ""),
		Field:  ctx.Query("type", SearchFieldAny),
		Limit:  browsePageSize,
		Offset: queryPage(ctx) * browsePageSize,
	}

	books, total, err := c.Repo.Books().Search(ctx.Context(), filter)
	if err != nil {
		c.Logger.Error("browse search: ", "error", err)
		return flash.WithError(ctx, router.ViewContext{
			"system_message": "Something went wrong. Please try again later.",
		}).Render(c.Views.Browse, router.ViewContext{})
	}

	return ctx.Render(c.Views.Browse, router.ViewContext{
		"record": books,
		"total":  total,
		"query":  filter.Query,
		"type":   filter.Field,
		"page":   queryPage(ctx),
	})
}

func (c *CatalogController) BrowseUsers(ctx router.Context) error {
	users, err := c.Repo.Users().ListActive(ctx.Context())
	if err != nil {
		c.Logger.Error("browse users: ", "error", err)
		return flash.WithError(ctx, router.ViewContext{
			"system_message": "Something went wrong. Please try again later.",
		}).Render(c.Views.BrowseUsers, router.ViewContext{})
	}

	return ctx.Render(c.Views.BrowseUsers, router.ViewContext{
		"record": users,
	})
}

func (c *CatalogController) UserDetails(ctx router.Context) error {
	id, err := uuid.Parse(ctx.Param("id", ""))
	if err != nil {
		return c.notFound(ctx)
	}

	user, err := c.Repo.Users().GetByID(ctx.Context(), id.String())
	if err != nil {
		return c.notFound(ctx)
	}

	libraries, err := c.Repo.Libraries().ListForUser(ctx.Context(), id)
	if err != nil {
		c.Logger.Error("user details libraries: ", "error", err)
		libraries = nil
	}

	return ctx.Render(c.Views.UserDetails, router.ViewContext{
		"record":    user,
		"libraries": libraries,
	})
}

func (c *CatalogController) BookShow(ctx router.Context) error {
	id, err := uuid.Parse(ctx.Param("id", ""))
	if err != nil {
		return c.notFound(ctx)
	}

	book, err := c.Repo.Books().GetByID(ctx.Context(), id.String())
	if err != nil {
		return c.notFound(ctx)
	}

	return ctx.Render(c.Views.Book, router.ViewContext{
		"record": book,
	})
}

// BookPayload is the add and edit form for books
type BookPayload struct {
	LibraryID   string `form:"library_id" json:"library_id"`
	Name        string `form:"name" json:"name"`
	Author      string `form:"author" json:"author"`
	Genre       string `form:"genre" json:"genre"`
	PublishDate string `form:"publish_date" json:"publish_date"`
}

// Validate will validate the payload
func (r BookPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.LibraryID, validation.Required),
		validation.Field(&r.Name, validation.Required, validation.Length(1, 100)),
		validation.Field(&r.Author, validation.Required, validation.Length(1, 100)),
		validation.Field(&r.Genre, validation.Length(0, 50)),
	)
}

func (c *CatalogController) BookAddShow(ctx router.Context) error {
	userID, ok := CurrentUserID(ctx)
	if !ok {
		return ctx.Redirect("/log-in", router.StatusSeeOther)
	}

	libraries, err := c.Repo.Libraries().ListForUser(ctx.Context(), userID)
	if err != nil {
		c.Logger.Error("book add libraries: ", "error", err)
	}

	return ctx.Render(c.Views.BookForm, router.ViewContext{
		"errors":    map[string]string{},
		"record":    BookPayload{},
		"libraries": libraries,
	})
}

func (c *CatalogController) BookAddPost(ctx router.Context) error {
	userID, ok := CurrentUserID(ctx)
	if !ok {
		return ctx.Redirect("/log-in", router.StatusSeeOther)
	}

	payload := new(BookPayload)

	if err := ctx.Bind(payload); err != nil {
		return flash.WithError(ctx, router.ViewContext{
			"error_message":  err.Error(),
			"system_message": "Error parsing body",
		}).Status(fiber.StatusBadRequest).Render(c.Views.BookForm, router.ViewContext{
			"errors": map[string]string{"form": "Failed to parse form"},
			"record": payload,
		})
	}

	if err := payload.Validate(); err != nil {
		return ctx.Render(c.Views.BookForm, router.ViewContext{
			"record":     payload,
			"validation": FormatValidationErrorToMap(err),
		})
	}

	libraryID, err := uuid.Parse(payload.LibraryID)
	if err != nil {
		return ctx.Render(c.Views.BookForm, router.ViewContext{
			"record":     payload,
			"validation": map[string]string{"library_id": "Select a library"},
		})
	}

	if !c.ownsLibrary(ctx, userID, libraryID) {
		return c.notFound(ctx)
	}

	publishDate, perr := parsePublishDate(payload.PublishDate)
	if perr != nil {
		return ctx.Render(c.Views.BookForm, router.ViewContext{
			"record":     payload,
			"validation": map[string]string{"publish_date": "Use the YYYY-MM-DD format"},
		})
	}

	book := &Book{
		LibraryID:   &libraryID,
		Name:        payload.Name,
		Author:      payload.Author,
		Genre:       payload.Genre,
		PublishDate: publishDate,
	}

	if _, err := c.Repo.Books().Create(ctx.Context(), book); err != nil {
		c.Logger.Error("book create: ", "error", err)
		return flash.WithError(ctx, router.ViewContext{
			"system_message": "Something went wrong. Please try again later.",
		}).Render(c.Views.BookForm, router.ViewContext{
			"record": payload,
		})
	}

	return flash.WithSuccess(ctx, router.ViewContext{
		"system_message": "Book added.",
	}).Redirect("/", fiber.StatusSeeOther)
}

func (c *CatalogController) BookEditShow(ctx router.Context) error {
	userID, ok := CurrentUserID(ctx)
	if !ok {
		return ctx.Redirect("/log-in", router.StatusSeeOther)
	}

	book, err := c.ownedBook(ctx, userID)
	if err != nil {
		return c.notFound(ctx)
	}

	libraries, err := c.Repo.Libraries().ListForUser(ctx.Context(), userID)
	if err != nil {
		c.Logger.Error("book edit libraries: ", "error", err)
	}

	return ctx.Render(c.Views.BookForm, router.ViewContext{
		"errors":    map[string]string{},
		"record":    book,
		"libraries": libraries,
	})
}

func (c *CatalogController) BookEditPost(ctx router.Context) error {
	userID, ok := CurrentUserID(ctx)
	if !ok {
		return ctx.Redirect("/log-in", router.StatusSeeOther)
	}

	book, err := c.ownedBook(ctx, userID)
	if err != nil {
		return c.notFound(ctx)
	}

	payload := new(BookPayload)

	if err := ctx.Bind(payload); err != nil {
		return flash.WithError(ctx, router.ViewContext{
			"error_message":  err.Error(),
			"system_message": "Error parsing body",
		}).Status(fiber.StatusBadRequest).Render(c.Views.BookForm, router.ViewContext{
			"errors": map[string]string{"form": "Failed to parse form"},
			"record": book,
		})
	}

	if err := payload.Validate(); err != nil {
		return ctx.Render(c.Views.BookForm, router.ViewContext{
			"record":     payload,
			"validation": FormatValidationErrorToMap(err),
		})
	}

	libraryID, err := uuid.Parse(payload.LibraryID)
	if err != nil || !c.ownsLibrary(ctx, userID, libraryID) {
		return c.notFound(ctx)
	}

	publishDate, perr := parsePublishDate(payload.PublishDate)
	if perr != nil {
		return ctx.Render(c.Views.BookForm, router.ViewContext{
			"record":     payload,
			"validation": map[string]string{"publish_date": "Use the YYYY-MM-DD format"},
		})
	}

	book.LibraryID = &libraryID
	book.Name = payload.Name
	book.Author = payload.Author
	book.Genre = payload.Genre
	book.PublishDate = publishDate

	if _, err := c.Repo.Books().Update(ctx.Context(), book, repository.UpdateByID(book.ID.String())); err != nil {
		c.Logger.Error("book update: ", "error", err)
		return flash.WithError(ctx, router.ViewContext{
			"system_message": "Something went wrong. Please try again later.",
		}).Render(c.Views.BookForm, router.ViewContext{
			"record": payload,
		})
	}

	return flash.WithSuccess(ctx, router.ViewContext{
		"system_message": "Book updated.",
	}).Redirect(fmt.Sprintf("%s/%s", c.Routes.Book, book.ID), fiber.StatusSeeOther)
}

func (c *CatalogController) BookDelete(ctx router.Context) error {
	userID, ok := CurrentUserID(ctx)
	if !ok {
		return ctx.Redirect("/log-in", router.StatusSeeOther)
	}

	book, err := c.ownedBook(ctx, userID)
	if err != nil {
		return c.notFound(ctx)
	}

	if err := c.Repo.Books().DeleteByID(ctx.Context(), book.ID); err != nil {
		c.Logger.Error("book delete: ", "error", err)
		return flash.WithError(ctx, router.ViewContext{
			"system_message": "Something went wrong. Please try again later.",
		}).Redirect("/", fiber.StatusSeeOther)
	}

	return flash.WithSuccess(ctx, router.ViewContext{
		"system_message": "Book deleted.",
	}).Redirect("/", fiber.StatusSeeOther)
}

// LibraryPayload is the add library form
type LibraryPayload struct {
	Name string `form:"name" json:"name"`
}

// Validate will validate the payload
func (r LibraryPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required, validation.Length(1, 100)),
	)
}

func (c *CatalogController) LibraryAddShow(ctx router.Context) error {
	if _, ok := CurrentUserID(ctx); !ok {
		return ctx.Redirect("/log-in", router.StatusSeeOther)
	}

	return ctx.Render(c.Views.LibraryForm, router.ViewContext{
		"errors": map[string]string{},
		"record": LibraryPayload{},
	})
}

func (c *CatalogController) LibraryAddPost(ctx router.Context) error {
	userID, ok := CurrentUserID(ctx)
	if !ok {
		return ctx.Redirect("/log-in", router.StatusSeeOther)
	}

	payload := new(LibraryPayload)

	if err := ctx.Bind(payload); err != nil {
		return flash.WithError(ctx, router.ViewContext{
			"error_message":  err.Error(),
			"system_message": "Error parsing body",
		}).Status(fiber.StatusBadRequest).Render(c.Views.LibraryForm, router.ViewContext{
			"errors": map[string]string{"form": "Failed to parse form"},
			"record": payload,
		})
	}

	if err := payload.Validate(); err != nil {
		return ctx.Render(c.Views.LibraryForm, router.ViewContext{
			"record":     payload,
			"validation": FormatValidationErrorToMap(err),
		})
	}

	library := &Library{
		UserID: &userID,
		Name:   payload.Name,
	}

	if _, err := c.Repo.Libraries().Create(ctx.Context(), library); err != nil {
		c.Logger.Error("library create: ", "error", err)
		return flash.WithError(ctx, router.ViewContext{
			"error_message": "A library with that name already exists.",
		}).Render(c.Views.LibraryForm, router.ViewContext{
			"record": payload,
			"errors": []string{"A library with that name already exists."},
		})
	}

	return flash.WithSuccess(ctx, router.ViewContext{
		"system_message": "Library added.",
	}).Redirect("/", fiber.StatusSeeOther)
}

func (c *CatalogController) LibraryDelete(ctx router.Context) error {
	userID, ok := CurrentUserID(ctx)
	if !ok {
		return ctx.Redirect("/log-in", router.StatusSeeOther)
	}

	id, err := uuid.Parse(ctx.Param("id", ""))
	if err != nil || !c.ownsLibrary(ctx, userID, id) {
		return c.notFound(ctx)
	}

	if err := c.Repo.Libraries().DeleteByID(ctx.Context(), id); err != nil {
		c.Logger.Error("library delete: ", "error", err)
		return flash.WithError(ctx, router.ViewContext{
			"system_message": "Something went wrong. Please try again later.",
		}).Redirect("/", fiber.StatusSeeOther)
	}

	return flash.WithSuccess(ctx, router.ViewContext{
		"system_message": "Library deleted.",
	}).Redirect("/", fiber.StatusSeeOther)
}

func (c *CatalogController) FavoriteAdd(ctx router.Context) error {
	return c.toggleFavorite(ctx, true)
}

func (c *CatalogController) FavoriteRemove(ctx router.Context) error {
	return c.toggleFavorite(ctx, false)
}

func (c *CatalogController) Favorites(ctx router.Context) error {
	userID, ok := CurrentUserID(ctx)
	if !ok {
		return ctx.Redirect("/log-in", router.StatusSeeOther)
	}

	profile, err := c.Repo.Profiles().GetForUser(ctx.Context(), userID)
	if err != nil {
		return c.notFound(ctx)
	}

	books, err := c.Repo.Profiles().ListFavorites(ctx.Context(), profile.ID)
	if err != nil {
		c.Logger.Error("list favorites: ", "error", err)
		return flash.WithError(ctx, router.ViewContext{
			"system_message": "Something went wrong. Please try again later.",
		}).Render(c.Views.Favorites, router.ViewContext{})
	}

	return ctx.Render(c.Views.Favorites, router.ViewContext{
		"record": books,
	})
}

func (c *CatalogController) toggleFavorite(ctx router.Context, add bool) error {
	userID, ok := CurrentUserID(ctx)
	if !ok {
		return ctx.Redirect("/log-in", router.StatusSeeOther)
	}

	bookID, err := uuid.Parse(ctx.Param("id", ""))
	if err != nil {
		return c.notFound(ctx)
	}

	if _, err := c.Repo.Books().GetByID(ctx.Context(), bookID.String()); err != nil {
		return c.notFound(ctx)
	}

	profile, err := c.Repo.Profiles().GetForUser(ctx.Context(), userID)
	if err != nil {
		return c.notFound(ctx)
	}

	if add {
		err = c.Repo.Profiles().AddFavorite(ctx.Context(), profile.ID, bookID)
	} else {
		err = c.Repo.Profiles().RemoveFavorite(ctx.Context(), profile.ID, bookID)
	}

	if err != nil {
		c.Logger.Error("toggle favorite: ", "error", err)
		return flash.WithError(ctx, router.ViewContext{
			"system_message": "Something went wrong. Please try again later.",
		}).Redirect(fmt.Sprintf("%s/%s", c.Routes.Book, bookID), fiber.StatusSeeOther)
	}

	return flash.WithSuccess(ctx, router.ViewContext{
		"system_message": "Favorites updated.",
	}).Redirect(fmt.Sprintf("%s/%s", c.Routes.Book, bookID), fiber.StatusSeeOther)
}

func (c *CatalogController) ownedBook(ctx router.Context, userID uuid.UUID) (*Book, error) {
	bookID, err := uuid.Parse(ctx.Param("id", ""))
	if err != nil {
		return nil, err
	}
	return c.Repo.Books().OwnedBy(ctx.Context(), bookID, userID)
}

func (c *CatalogController) ownsLibrary(ctx router.Context, userID, libraryID uuid.UUID) bool {
	library, err := c.Repo.Libraries().GetByID(ctx.Context(), libraryID.String())
	if err != nil {
		return false
	}
	return library.UserID != nil && *library.UserID == userID
}

func parsePublishDate(value string) (*time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}

	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (c *CatalogController) notFound(ctx router.Context) error {
	return flash.WithError(ctx, router.ViewContext{
		"system_message": "Not found.",
	}).Status(fiber.StatusNotFound).Redirect("/", fiber.StatusSeeOther)
}

func queryPage(ctx router.Context) int {
	page, err := strconv.Atoi(ctx.Query("page", "0"))
	if err != nil || page < 0 {
		return 0
	}
	return page
}
