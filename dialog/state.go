package dialog

// State is a node of the dialog state machine.
type State string

const (
	StateWelcome                   State = "Welcome"
	StateRequestPreferences        State = "RequestPreferences"
	StateAskFoodType               State = "AskFoodType"
	StateAskArea                   State = "AskArea"
	StateAskPriceRange             State = "AskPriceRange"
	StateAskForFurtherRequirements State = "AskForFurtherRequirements"
	StateTellLookupResults         State = "TellLookupResults"
	StateOfferFurtherInformation   State = "OfferFurtherInformation"
	StateAskForAcceptance          State = "AskForAcceptance"
	StateExit                      State = "Exit"
)

var allStates = []State{
	StateWelcome,
	StateRequestPreferences,
	StateAskFoodType,
	StateAskArea,
	StateAskPriceRange,
	StateAskForFurtherRequirements,
	StateTellLookupResults,
	StateOfferFurtherInformation,
	StateAskForAcceptance,
	StateExit,
}

// States returns every state, Welcome first and Exit last.
func States() []State {
	out := make([]State, len(allStates))
	copy(out, allStates)
	return out
}

// IsTerminal reports whether no transition leaves s.
func (s State) IsTerminal() bool {
	return s == StateExit
}

// focus is the slot an answer in this state is most likely about.
func (s State) focus() Slot {
	switch s {
	case StateAskFoodType:
		return SlotFood
	case StateAskArea:
		return SlotArea
	case StateAskPriceRange:
		return SlotPrice
	}
	return ""
}
