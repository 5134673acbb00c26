package betslip

// NA marks a field the slip did not provide
const NA = "NA"

// Header is the fixed column order of a track-record sheet
var Header = []string{
	"ID", "Date", "Time", "Country", "League", "Home", "Away",
	"Staked Amount", "Potential Winning", "Bet Option Staked",
	"Legs Odds", "Total Odds", "Bet Status",
}

// Record is one parsed betting slip. Every field holds either a value
// read from the slip or NA.
type Record struct {
	ID               string
	Date             string
	Time             string
	Country          string
	League           string
	Home             string
	Away             string
	StakedAmount     string
	PotentialWinning string
	BetOption        string
	LegsOdds         string // semicolon-separated per leg, verbatim
	TotalOdds        string
	BetStatus        string
}

// Row returns the field values in Header order
func (r Record) Row() []string {
	return []string{
		r.ID, r.Date, r.Time, r.Country, r.League, r.Home, r.Away,
		r.StakedAmount, r.PotentialWinning, r.BetOption,
		r.LegsOdds, r.TotalOdds, r.BetStatus,
	}
}

// Map returns the record keyed by column name
func (r Record) Map() map[string]string {
	row := r.Row()
	m := make(map[string]string, len(Header))
	for i, col := range Header {
		m[col] = row[i]
	}
	return m
}
