package api

import (
	"errors"
	"sync"

	"studio-api/internal/models"
	"studio-api/pkg/logging"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var validatorsOnce sync.Once

// registerValidators adds the custom binding tags used by request structs
func registerValidators() {
	validatorsOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			logging.Warnf("Binding engine is not go-playground/validator, custom tags unavailable")
			return
		}
		if err := v.RegisterValidation("plan_id", validPlanID); err != nil {
			logging.Errorf("Failed to register plan_id validator: %v", err)
		}
	})
}

func validPlanID(fl validator.FieldLevel) bool {
	_, ok := models.LookupPlan(fl.Field().String())
	return ok
}

// isPlanIDError reports whether binding failed only on the plan_id tag
func isPlanIDError(err error) bool {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return false
	}
	for _, fe := range verrs {
		if fe.Tag() != "plan_id" {
			return false
		}
	}
	return true
}
