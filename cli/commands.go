package cli

var (
	Version   = ""
	CommitSHA = ""
)

// Globals defines global flags available to all commands.
type Globals struct {
	Telemetry bool `help:"Show timing telemetry for operations."`
}

type Commands struct {
	Globals

	Register  RegisterCmd  `cmd:"" help:"Show postings matching a query with a running total."`
	Balance   BalanceCmd   `cmd:"" help:"Show account balances as a tree."`
	Budget    BudgetCmd    `cmd:"" help:"Compare postings against periodic budget templates."`
	Anonymize AnonymizeCmd `cmd:"" help:"Write a journal with payees, accounts and notes scrubbed."`
}
