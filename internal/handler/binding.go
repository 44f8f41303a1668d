package handler

import (
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/necpgame/player-orders-core/internal/models"
)

// Enum binding validations so malformed payloads are rejected at bind time
// with field-level detail instead of deep inside a service call.
func init() {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return
	}
	_ = v.RegisterValidation("risklevel", enumValidation(models.ParseRiskLevel))
	_ = v.RegisterValidation("visibility", enumValidation(models.ParseOrderVisibility))
	_ = v.RegisterValidation("templatecode", enumValidation(models.ParseTemplateCode))
	_ = v.RegisterValidation("ratingrole", enumValidation(models.ParseRatingRole))
	_ = v.RegisterValidation("penaltytype", enumValidation(models.ParsePenaltyType))
	_ = v.RegisterValidation("reviewstatus", enumValidation(models.ParseReviewStatus))
}

func enumValidation[T ~string](parse func(string) (T, error)) validator.Func {
	return func(fl validator.FieldLevel) bool {
		_, err := parse(fl.Field().String())
		return err == nil
	}
}
