package booking

import (
	"encoding/json"
	"fmt"
)

// State is a step of the booking workflow. Steps are ordered; GuestContactInfo
// is skipped for signed-in clients.
type State int

const (
	ChooseService State = iota
	ChooseProvider
	ChooseDateTime
	GuestContactInfo
	Confirm
	Committed
)

var stateNames = [...]string{
	ChooseService:    "choose_service",
	ChooseProvider:   "choose_provider",
	ChooseDateTime:   "choose_datetime",
	GuestContactInfo: "guest_contact_info",
	Confirm:          "confirm",
	Committed:        "committed",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("state(%d)", int(s))
	}
	return stateNames[s]
}

func (s State) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}
