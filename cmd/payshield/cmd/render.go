package cmd

import (
	"payshield/internal/auth"
	"payshield/internal/gate"

	"github.com/pterm/pterm"
)

func newGate(t *tab) *gate.Gate {
	return gate.New(t.store)
}

func userRows(rec *auth.Record) [][]string {
	return [][]string{
		{"EMAIL", "NAME", "ROLE", "BALANCE"},
		{rec.Email, rec.Name, rec.Role.String(), rec.Balance.StringFixed(2)},
	}
}

func printUser(rec *auth.Record) {
	if rec == nil {
		return
	}
	_ = pterm.DefaultTable.WithHasHeader().WithData(userRows(rec)).Render()
}
