package handlers

import (
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"paymenow.backend/internal/domain/entities"
)

var registerOnce sync.Once

// RegisterValidators adds the ledger binding tags to gin's validator:
//
//	assettype   SOL or USDC, case-insensitive
//	decimalgt0  a decimal string greater than zero
func RegisterValidators() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		_ = v.RegisterValidation("assettype", validateAssetType)
		_ = v.RegisterValidation("decimalgt0", validateDecimalGT0)
	})
}

func validateAssetType(fl validator.FieldLevel) bool {
	_, err := entities.ParseAssetType(fl.Field().String())
	return err == nil
}

func validateDecimalGT0(fl validator.FieldLevel) bool {
	d, err := decimal.NewFromString(fl.Field().String())
	return err == nil && d.IsPositive()
}
