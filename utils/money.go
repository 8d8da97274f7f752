package utils

import (
	"math"
	"strconv"
)

// DepositRate is the share of the total paid up front when the guest picks the deposit option.
const DepositRate = 0.30

// Round2 rounds half away from zero to cents.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// SplitDeposit returns the amount to transfer now and the amount due at arrival.
// The two always add up to the rounded total.
func SplitDeposit(total float64) (due, remaining float64) {
	total = Round2(total)
	due = Round2(total * DepositRate)
	remaining = Round2(total - due)
	return due, remaining
}

func FormatMoney(v float64) string {
	return strconv.FormatFloat(Round2(v), 'f', 2, 64)
}
