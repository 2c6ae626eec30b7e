package models

import "strings"

type Coordinate struct {
	Lat float64
	Lon float64
}

// Shop is one row of the registry. Name may be empty when the cell was blank.
type Shop struct {
	ID           string
	Name         string
	ProspectCode string
	Loc          Coordinate
	Row          int // 1-based spreadsheet row, 0 when not loaded from a sheet
}

// Secured reports whether the shop already carries a prospect code.
func (s Shop) Secured() bool {
	return strings.TrimSpace(s.ProspectCode) != ""
}

type Recommendation string

const (
	RecommendAssignCode         Recommendation = "Assign Code P"
	RecommendFlagSuspicious     Recommendation = "Flag as Suspicious"
	RecommendNoSecured          Recommendation = "No secured shops available"
	RecommendUnsecuredDuplicate Recommendation = "Flag as Unsecured Duplicate"
)

// Match is the best candidate found for a query shop.
type Match struct {
	Shop       Shop
	DistanceKm float64 // rounded to 3 decimals
}

type MatchResult struct {
	Shop                 Shop
	ClosestSecured       *Match
	NameSimilar          bool
	NearestUnsecured     *Match
	IsUnsecuredDuplicate bool
	Recommendation       Recommendation
}

// DuplicatePair is a directional (A, B) pair where B is A's nearest neighbour
// within the same set. B→A may be reported as well.
type DuplicatePair struct {
	A            Shop
	B            Shop
	DistanceKm   float64
	NamesSimilar bool
	Suspicious   bool
}
