package models

// DailySecret is the commit-reveal seed for one calendar day. It is created
// lazily on first use and published only after the day ends, so nobody can
// predict a reset before committing their payout request.
type DailySecret struct {
	// Day is the UTC calendar date in YYYY-MM-DD form.
	Day string `json:"day"`
	// Secret is a random hex string fixed for the whole day.
	Secret string `json:"secret"`
}
