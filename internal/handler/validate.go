package handler

import (
	"fmt"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"satpam/internal/location"
	"satpam/internal/personnel"
	"satpam/internal/schedule"
)

// RegisterValidators adds the custom binding tags used by request structs:
// building, selector and role.
func RegisterValidators() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return fmt.Errorf("unexpected validator engine %T", binding.Validator.Engine())
	}
	if err := v.RegisterValidation("building", func(fl validator.FieldLevel) bool {
		_, err := location.ParseBuilding(fl.Field().String())
		return err == nil
	}); err != nil {
		return err
	}
	if err := v.RegisterValidation("selector", func(fl validator.FieldLevel) bool {
		_, err := schedule.ParseSelector(fl.Field().String())
		return err == nil
	}); err != nil {
		return err
	}
	return v.RegisterValidation("role", func(fl validator.FieldLevel) bool {
		_, err := personnel.ParseRole(fl.Field().String())
		return err == nil
	})
}
