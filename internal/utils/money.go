package utils

// ToMinorUnits converts an amount in currency major units (rupees) to the
// gateway's minor-unit convention (paise).
func ToMinorUnits(major int64) int64 {
	return major * 100
}
