package ledger

import "github.com/govalues/money"

// SeedAccounts is the demo dataset written when no snapshot exists yet.
func SeedAccounts(curr string) []Account {
	return []Account{
		{ID: "1001", PIN: "1234", Name: "vignesh reddy", Balance: money.MustParseAmount(curr, "15000.00")},
		{ID: "1002", PIN: "2345", Name: "tripuresh", Balance: money.MustParseAmount(curr, "30000.00")},
		{ID: "1003", PIN: "3456", Name: "yuva kishore", Balance: money.MustParseAmount(curr, "10000.00")},
	}
}
