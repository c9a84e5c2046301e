package config

// DefaultDatabasePath is the default path for the main application database
const DefaultDatabasePath = "./openshelf.db"

// Lending policy defaults
const (
	// DefaultLoanPeriodDays is the fixed loan period in calendar days.
	DefaultLoanPeriodDays = 14

	// DefaultFineRatePerDay is the fine charged per overdue day, in
	// currency units. Any positive fraction of a day counts as a full day.
	DefaultFineRatePerDay = 10
)
