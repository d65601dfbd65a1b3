package handler

import (
	"errors"
	"fmt"
	"reflect"
	"slices"
	"strings"

	m "portfoliotracker/internal/model"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

var portfolioTypes = []string{"stocks", "crypto", "both"}

var validate = newValidator()

func newValidator() *validator.Validate {

	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})

	v.RegisterValidation("asset_type", func(fl validator.FieldLevel) bool {
		return m.IsValidAssetType(fl.Field().String())
	})
	v.RegisterValidation("portfolio_type", func(fl validator.FieldLevel) bool {
		return slices.Contains(portfolioTypes, fl.Field().String())
	})

	return v
}

// validCheck runs the struct's validate tags. The first failing field becomes a 400.
func validCheck(param any) error {

	err := validate.Struct(param)
	if err == nil {
		return nil
	}

	var ve validator.ValidationErrors
	if !errors.As(err, &ve) || len(ve) == 0 {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	return fiber.NewError(fiber.StatusBadRequest, fieldMessage(ve[0]))
}

func fieldMessage(fe validator.FieldError) string {

	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("Missing required field: %s", fe.Field())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", fe.Field(), fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param())
	case "min":
		return fmt.Sprintf("%s must not be empty", fe.Field())
	case "asset_type":
		return fmt.Sprintf("%s must be one of %s", fe.Field(), strings.Join(m.AssetTypeList(), ", "))
	case "portfolio_type":
		return fmt.Sprintf("%s must be one of %s", fe.Field(), strings.Join(portfolioTypes, ", "))
	}
	return fmt.Sprintf("%s is invalid", fe.Field())
}

func parseBody(c *fiber.Ctx, param any) error {
	if err := c.BodyParser(param); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}
	return validCheck(param)
}
