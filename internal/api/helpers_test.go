package api

import (
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"
)

func itoa(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}

func mustDecimal(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func fmtWrap(err error) error {
	return fmt.Errorf("context: %w", err)
}
