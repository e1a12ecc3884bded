package domain

// MoveRecord is one row of the exact-match lookup table. Numeric fields are
// pointers: nil means the source sheet had no value, which grounded answers
// must surface as "no data" instead of a number.
type MoveRecord struct {
	Character string `json:"character"`
	Move      string `json:"move"`
	Category  string `json:"category,omitempty"`

	Startup         *int `json:"startup,omitempty"`
	Active          *int `json:"active,omitempty"`
	Total           *int `json:"total,omitempty"`
	LandingLag      *int `json:"landing_lag,omitempty"`
	ShieldStun      *int `json:"shield_stun,omitempty"`
	ShieldAdvantage *int `json:"shield_advantage,omitempty"`

	Damage    *float64 `json:"damage,omitempty"`
	Damage1v1 *float64 `json:"damage_1v1,omitempty"`

	Note string `json:"note,omitempty"`
}

// CharacterMoves groups parsed workbook rows by character sheet.
type CharacterMoves struct {
	Character string       `json:"character"`
	Moves     []MoveRecord `json:"moves"`
}

// ImportReport summarizes one workbook import.
type ImportReport struct {
	Characters   int `json:"characters"`
	Moves        int `json:"moves"`
	EmptySheets  int `json:"empty_sheets"`
	ReplacedRows int `json:"replaced_rows"`
}
