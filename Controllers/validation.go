package Controllers

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
	"github.com/gofiber/fiber/v2"
	log "github.com/sirupsen/logrus"

	"Gmao/Models"
	"Gmao/Reports"
)

var (
	validate *validator.Validate
	trans    ut.Translator
)

func init() {
	validate = validator.New()
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	english := en.New()
	trans, _ = ut.New(english, english).GetTranslator("en")
	if err := en_translations.RegisterDefaultTranslations(validate, trans); err != nil {
		log.WithError(err).Warn("Failed to register validator translations")
	}
}

// bind parses the JSON body into dst and validates it. It writes the error
// response itself and returns false when the request must stop.
func bind(ctx *fiber.Ctx, dst interface{}) (bool, error) {
	if err := ctx.BodyParser(dst); err != nil {
		return false, ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if err := validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make(map[string]string, len(verrs))
			for _, fe := range verrs {
				ns := fe.Namespace()
				if i := strings.Index(ns, "."); i >= 0 {
					ns = ns[i+1:]
				}
				fields[ns] = fe.Translate(trans)
			}
			return false, ctx.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
				"error":  "Validation failed",
				"fields": fields,
			})
		}
		return false, ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	return true, nil
}

// respond maps service errors onto HTTP statuses.
func respond(ctx *fiber.Ctx, err error) error {
	var verr *Models.ValidationError
	switch {
	case errors.As(err, &verr):
		body := fiber.Map{"error": verr.Reason}
		if verr.Field != "" {
			body["field"] = verr.Field
		}
		return ctx.Status(fiber.StatusUnprocessableEntity).JSON(body)
	case errors.Is(err, Models.ErrNotFound):
		return ctx.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	case Models.IsDuplicate(err):
		return ctx.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Conflicting update, please retry"})
	}
	log.WithError(err).WithFields(log.Fields{"method": ctx.Method(), "path": ctx.Path()}).Error("Request failed")
	return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Internal server error"})
}

func paramID(ctx *fiber.Ctx, name string) (uint, bool) {
	id, err := strconv.ParseUint(ctx.Params(name), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

func queryInt(ctx *fiber.Ctx, key string, fallback int) int {
	v, err := strconv.Atoi(ctx.Query(key))
	if err != nil {
		return fallback
	}
	return v
}

func queryBool(ctx *fiber.Ctx, key string) bool {
	v, _ := strconv.ParseBool(ctx.Query(key))
	return v
}

func badID(ctx *fiber.Ctx) error {
	return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid ID"})
}

// currentUser is the user middleware.Verify stored on the request.
func currentUser(ctx *fiber.Ctx) Models.User {
	user, _ := ctx.Locals("user").(Models.User)
	return user
}

// sameSite reports whether the user may act on a record of siteID. Managers
// see every site.
func sameSite(user Models.User, siteID uint) bool {
	return user.Permission >= Models.PermissionManager || user.SiteID == siteID
}

func sendWorkbook(ctx *fiber.Ctx, filename string, body []byte) error {
	ctx.Set(fiber.HeaderContentType, Reports.ContentType)
	ctx.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%s", filename))
	return ctx.Send(body)
}
