package survey

import (
	"strconv"
	"strings"
)

// State identifies a UI jurisdiction.
type State struct {
	FIPS   int
	Postal string
	Name   string
}

// States are the 50 states plus DC, in FIPS order.
var States = []State{
	{1, "AL", "Alabama"}, {2, "AK", "Alaska"}, {4, "AZ", "Arizona"}, {5, "AR", "Arkansas"},
	{6, "CA", "California"}, {8, "CO", "Colorado"}, {9, "CT", "Connecticut"}, {10, "DE", "Delaware"},
	{11, "DC", "District of Columbia"}, {12, "FL", "Florida"}, {13, "GA", "Georgia"}, {15, "HI", "Hawaii"},
	{16, "ID", "Idaho"}, {17, "IL", "Illinois"}, {18, "IN", "Indiana"}, {19, "IA", "Iowa"},
	{20, "KS", "Kansas"}, {21, "KY", "Kentucky"}, {22, "LA", "Louisiana"}, {23, "ME", "Maine"},
	{24, "MD", "Maryland"}, {25, "MA", "Massachusetts"}, {26, "MI", "Michigan"}, {27, "MN", "Minnesota"},
	{28, "MS", "Mississippi"}, {29, "MO", "Missouri"}, {30, "MT", "Montana"}, {31, "NE", "Nebraska"},
	{32, "NV", "Nevada"}, {33, "NH", "New Hampshire"}, {34, "NJ", "New Jersey"}, {35, "NM", "New Mexico"},
	{36, "NY", "New York"}, {37, "NC", "North Carolina"}, {38, "ND", "North Dakota"}, {39, "OH", "Ohio"},
	{40, "OK", "Oklahoma"}, {41, "OR", "Oregon"}, {42, "PA", "Pennsylvania"}, {44, "RI", "Rhode Island"},
	{45, "SC", "South Carolina"}, {46, "SD", "South Dakota"}, {47, "TN", "Tennessee"}, {48, "TX", "Texas"},
	{49, "UT", "Utah"}, {50, "VT", "Vermont"}, {51, "VA", "Virginia"}, {53, "WA", "Washington"},
	{54, "WV", "West Virginia"}, {55, "WI", "Wisconsin"}, {56, "WY", "Wyoming"},
}

var (
	byFIPS   = make(map[int]State)
	byPostal = make(map[string]State)
	byName   = make(map[string]State)
)

func init() {
	for _, s := range States {
		byFIPS[s.FIPS] = s
		byPostal[s.Postal] = s
		byName[strings.ToLower(s.Name)] = s
	}
}

// StateCode returns the postal code for a FIPS code, postal code or full state name.
// The second return is false if the value is not recognised.
func StateCode(val string) (string, bool) {
	val = strings.TrimSpace(val)
	if fips, e := strconv.Atoi(val); e == nil {
		s, ok := byFIPS[fips]
		return s.Postal, ok
	}

	if s, ok := byPostal[strings.ToUpper(val)]; ok {
		return s.Postal, true
	}

	s, ok := byName[strings.ToLower(val)]

	return s.Postal, ok
}

// StateNames returns the full names of all states, in the order of States.
func StateNames() []string {
	names := make([]string, len(States))
	for ind, s := range States {
		names[ind] = s.Name
	}

	return names
}
