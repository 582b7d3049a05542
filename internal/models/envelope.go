package models

import "regexp"

// Status is the lifecycle stage of a participant code.
type Status string

const (
	StatusInvited  Status = "INVITED"
	StatusOpenning Status = "OPENNING" // game screen is open
	StatusPlayer   Status = "PLAYER"   // prize granted
	StatusExpired  Status = "EXPIRED"
)

var codePattern = regexp.MustCompile(`^[a-zA-Z0-9]+$`)

// ValidCode reports whether code has the one-time code format.
func ValidCode(code string) bool {
	return codePattern.MatchString(code)
}

// Participant is a single record in the external record store.
// The JSON tags follow the store's wire format.
type Participant struct {
	ID        int64   `json:"Id"`
	Code      string  `json:"random_code"`
	Status    Status  `json:"status"`
	PrizeName *string `json:"prize"`
	PrizeID   *string `json:"prize_id"`
}

// GrantedPrize returns the prize stored on the record, if any.
func (p *Participant) GrantedPrize() (id, name string, ok bool) {
	if p.PrizeID == nil || *p.PrizeID == "" {
		return "", "", false
	}
	if p.PrizeName != nil {
		name = *p.PrizeName
	}
	return *p.PrizeID, name, true
}

// Prize is one rationed prize kind. Limit is the maximum number of units
// that may ever be granted.
type Prize struct {
	ID    string `json:"id" yaml:"id"`
	Name  string `json:"name" yaml:"name"`
	Limit int    `json:"limit" yaml:"limit"`
}

// PrizeStock is a point-in-time view of a prize kind's consumption.
type PrizeStock struct {
	Prize
	Granted   int `json:"granted"`
	Remaining int `json:"remaining"`
}

// CheckResult is the answer to an eligibility check.
type CheckResult struct {
	Valid   bool   `json:"valid"`
	Status  Status `json:"status,omitempty"`
	Prize   string `json:"prize,omitempty"`
	PrizeID string `json:"prizeId,omitempty"`
}

// UpdateResult is the outcome of a successful status transition.
// IsExisting marks a replay of a prize granted by an earlier request.
type UpdateResult struct {
	Success    bool   `json:"success"`
	Status     Status `json:"status"`
	Prize      string `json:"prize,omitempty"`
	PrizeID    string `json:"prizeId,omitempty"`
	IsExisting bool   `json:"isExisting,omitempty"`
}
