package config

import (
	"encoding/json"
	"log"
	"os"

	"github.com/kmoganti/stock-trading-system-sub001/services/scanner"
)

// LoadCategoryProfiles reads the symbol universe from a JSON file,
// falling back to the built-in defaults when the file is absent or
// malformed. The registry swaps the whole table atomically on reload, so
// partial files never leak into a running scan.
func LoadCategoryProfiles(path string) []scanner.CategoryProfile {
	data, err := os.ReadFile(path)
	if err != nil {
		log.Printf("No category file at %s, using built-in defaults", path)
		return DefaultCategoryProfiles()
	}

	var profiles []scanner.CategoryProfile
	if err := json.Unmarshal(data, &profiles); err != nil {
		log.Printf("Invalid category file %s, using built-in defaults: %v", path, err)
		return DefaultCategoryProfiles()
	}
	if len(profiles) == 0 {
		return DefaultCategoryProfiles()
	}
	return profiles
}

// DefaultCategoryProfiles is the built-in NSE symbol universe per
// strategy category.
func DefaultCategoryProfiles() []scanner.CategoryProfile {
	return []scanner.CategoryProfile{
		{
			Category: scanner.CategoryDayTrading,
			Symbols:  []string{"RELIANCE", "TCS", "HDFCBANK", "ICICIBANK", "INFY", "SBIN", "TATAMOTORS", "AXISBANK"},
		},
		{
			Category: scanner.CategoryShortSelling,
			Symbols:  []string{"RELIANCE", "ADANIENT", "TATASTEEL", "VEDL", "INDUSINDBK", "BANDHANBNK"},
		},
		{
			Category: scanner.CategorySwingShort,
			Symbols:  []string{"INFY", "WIPRO", "HCLTECH", "TECHM", "LT", "MARUTI"},
		},
		{
			Category: scanner.CategorySwingLong,
			Symbols:  []string{"HDFCBANK", "KOTAKBANK", "BAJFINANCE", "TITAN", "ASIANPAINT"},
		},
		{
			Category: scanner.CategoryLongTerm,
			Symbols:  []string{"RELIANCE", "TCS", "HDFCBANK", "ITC", "HINDUNILVR", "BHARTIARTL"},
		},
	}
}
