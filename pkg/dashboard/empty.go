package dashboard

// EmptyState explains why a view has nothing to show.
type EmptyState int

const (
	NotEmpty EmptyState = iota
	// EmptyLoading means the event set has not arrived yet.
	EmptyLoading
	// EmptyNoEvents means the event set is empty.
	EmptyNoEvents
	// EmptyNoMatches means the attack-type filter excludes every event.
	EmptyNoMatches
	// EmptyNoSelection means no country is selected.
	EmptyNoSelection
	// EmptyNoCountryData means the selected country has no events.
	EmptyNoCountryData
)

// Message is the text shown in place of the empty view.
func (e EmptyState) Message() string {
	switch e {
	case EmptyLoading:
		return "Loading attack data..."
	case EmptyNoEvents:
		return "No attack data available"
	case EmptyNoMatches:
		return "No attacks match the current filter"
	case EmptyNoSelection:
		return "Select a country on the map to view details"
	case EmptyNoCountryData:
		return "No attacks recorded for this country"
	}
	return ""
}
