package dialog

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// keywordExtractor fills slots from literal words; "any" fills the focused slot.
var keywordExtractor = ExtractorFunc(func(utterance string, focus Slot) Extraction {
	var e Extraction
	for _, w := range strings.Fields(strings.ToLower(utterance)) {
		switch w {
		case "chinese", "indian", "spanish", "portuguese", "martian":
			e.Food = w
		case "south", "centre", "north":
			e.Area = w
		case "cheap", "moderate", "expensive":
			e.Price = w
		case Any:
			switch focus {
			case SlotFood:
				e.Food = Any
			case SlotArea:
				e.Area = Any
			case SlotPrice:
				e.Price = Any
			}
		}
	}
	return e
})

func newTestMachine() *Machine {
	return NewMachine(NewEngine(testCatalog()), keywordExtractor)
}

// at puts m into state with the given slots already filled.
func at(m *Machine, state State, food, area, price string) *Machine {
	m.state = state
	m.prefs.Food, m.prefs.Area, m.prefs.Price = food, area, price
	if state == StateTellLookupResults || state == StateOfferFurtherInformation || state == StateAskForAcceptance {
		m.lookup()
	}
	return m
}

func TestWelcomeBootstrap(t *testing.T) {
	m := newTestMachine()
	require.True(t, m.Transition(ActInform, "I want indian food"))

	p := m.Preferences()
	assert.Equal(t, "indian", p.Food)
	assert.Empty(t, p.Area)
	assert.Empty(t, p.Price)
	assert.Equal(t, StateAskArea, m.State())
}

func TestWelcome(t *testing.T) {
	for _, act := range []Act{ActAck, ActAffirm, ActConfirm, ActDeny, ActHello, ActNegate, ActNull, ActReqMore, ActRequest} {
		m := newTestMachine()
		assert.True(t, m.Transition(act, "hi"), act)
		assert.Equal(t, StateRequestPreferences, m.State(), act)
	}
	for _, act := range []Act{ActRestart, ActRepeat} {
		m := newTestMachine()
		assert.False(t, m.Transition(act, "start over"), act)
		assert.Equal(t, StateWelcome, m.State(), act)
	}
	m := newTestMachine()
	m.Transition(ActBye, "bye")
	assert.Equal(t, StateExit, m.State())
	assert.True(t, m.Done())
}

func TestFullConversation(t *testing.T) {
	m := newTestMachine()

	m.Transition(ActHello, "hello")
	require.Equal(t, StateRequestPreferences, m.State())

	m.Transition(ActInform, "chinese food please")
	require.Equal(t, StateAskArea, m.State())

	m.Transition(ActInform, "the south")
	require.Equal(t, StateAskPriceRange, m.State())

	m.Transition(ActInform, "cheap")
	require.Equal(t, StateAskForFurtherRequirements, m.State())
	assert.True(t, m.Results().Empty(), "no lookup before further requirements are asked")

	m.Transition(ActInform, "it should be touristic")
	require.Equal(t, StateTellLookupResults, m.State())
	p := m.Preferences()
	assert.True(t, p.Has(Touristic))
	assert.Equal(t, []string{"golden dragon"}, names(m.Results()))

	m.Transition(ActRequest, "what is the phone number")
	require.Equal(t, StateOfferFurtherInformation, m.State())
	assert.Equal(t, Detail{Phone: "01223 000001", Address: "1 high street", Postcode: "c.b 1"}, m.Detail())

	m.Transition(ActThankYou, "thank you")
	assert.Equal(t, StateExit, m.State())
	assert.True(t, m.Done())
	assert.False(t, m.Transition(ActRestart, "again"), "nothing leaves Exit")
}

func TestAskForFurtherRequirements(t *testing.T) {
	t.Run("negate looks up", func(t *testing.T) {
		m := at(newTestMachine(), StateAskForFurtherRequirements, "chinese", "south", "cheap")
		m.Transition(ActNegate, "no")
		assert.Equal(t, StateTellLookupResults, m.State())
		assert.Equal(t, []string{"golden dragon"}, names(m.Results()))
	})
	t.Run("deny and affirm request preferences", func(t *testing.T) {
		for _, act := range []Act{ActDeny, ActAffirm} {
			m := at(newTestMachine(), StateAskForFurtherRequirements, "chinese", "south", "cheap")
			m.Transition(act, "")
			assert.Equal(t, StateRequestPreferences, m.State())
			assert.Equal(t, "chinese", m.Preferences().Food, "preferences are kept")
		}
	})
	t.Run("secondary keywords are sticky", func(t *testing.T) {
		m := at(newTestMachine(), StateAskForFurtherRequirements, "chinese", Any, "cheap")
		m.Transition(ActInform, "somewhere ROMANTIC")
		m.state = StateAskForFurtherRequirements
		m.Transition(ActInform, "for children")
		p := m.Preferences()
		assert.True(t, p.Has(Romantic))
		assert.True(t, p.Has(Children))
		assert.Equal(t, []string{"golden dragon", "rice house"}, names(m.Results()), "children outranks romantic")
	})
}

func TestTellLookupResults(t *testing.T) {
	t.Run("reqmore cycles then asks for acceptance", func(t *testing.T) {
		m := at(newTestMachine(), StateTellLookupResults, "chinese", Any, "cheap")
		require.Equal(t, 3, m.Results().Len())

		for want := 1; want < 3; want++ {
			m.Transition(ActReqMore, "anything else")
			require.Equal(t, StateTellLookupResults, m.State())
			assert.Equal(t, want, m.Results().Cursor)
		}
		m.Transition(ActReqMore, "anything else")
		assert.Equal(t, StateAskForAcceptance, m.State())
		assert.Equal(t, 2, m.Results().Cursor)

		m.Transition(ActAffirm, "yes")
		assert.Equal(t, StateExit, m.State())
	})
	t.Run("inform re-looks up", func(t *testing.T) {
		m := at(newTestMachine(), StateTellLookupResults, "chinese", "south", "cheap")
		m.Transition(ActReqAlts, "what about the centre")
		assert.Equal(t, StateTellLookupResults, m.State())
		assert.Equal(t, []string{"rice house"}, names(m.Results()))
	})
	t.Run("deny keeps preferences", func(t *testing.T) {
		m := at(newTestMachine(), StateTellLookupResults, "chinese", "south", "cheap")
		m.Transition(ActDeny, "no")
		assert.Equal(t, StateRequestPreferences, m.State())
		assert.Equal(t, "south", m.Preferences().Area)
	})
}

func TestEmptyResultRecovery(t *testing.T) {
	m := at(newTestMachine(), StateTellLookupResults, "martian", "south", "cheap")
	m.prefs.Secondary[Romantic] = true
	m.lookup()
	require.True(t, m.Results().Empty())

	assert.False(t, m.Transition(ActRequest, "phone number"), "no detail without a suggestion")
	assert.False(t, m.Transition(ActReqMore, "more"))

	require.True(t, m.Transition(ActAffirm, "ok"))
	assert.Equal(t, StateRequestPreferences, m.State())
	p := m.Preferences()
	assert.Empty(t, p.Food)
	assert.Empty(t, p.Area)
	assert.Empty(t, p.Price)
	_, active := p.ActiveSecondary()
	assert.False(t, active)
	assert.True(t, m.Results().Empty())
}

func TestEmptyResultInformStartsOver(t *testing.T) {
	m := at(newTestMachine(), StateTellLookupResults, "martian", "south", "cheap")
	require.True(t, m.Results().Empty())

	m.Transition(ActInform, "indian food")
	p := m.Preferences()
	assert.Equal(t, "indian", p.Food)
	assert.Empty(t, p.Area, "old slots are reset before extraction")
	assert.Equal(t, StateAskArea, m.State())
}

func TestOfferFurtherInformation(t *testing.T) {
	m := at(newTestMachine(), StateTellLookupResults, "spanish", Any, Any)
	m.Transition(ActAck, "ok")
	require.Equal(t, StateOfferFurtherInformation, m.State())
	assert.Equal(t, Detail{Phone: Unknown, Address: "2 market square", Postcode: Unknown}, m.Detail())

	m.Transition(ActConfirm, "is it spanish")
	assert.Equal(t, StateTellLookupResults, m.State())

	m.Transition(ActAck, "ok")
	m.Transition(ActReqMore, "more")
	assert.Equal(t, StateAskForAcceptance, m.State())

	m.Transition(ActNegate, "no")
	assert.Equal(t, StateRequestPreferences, m.State())
	assert.Empty(t, m.Preferences().Food)
}

func TestAskForAcceptanceConfirmIsNoop(t *testing.T) {
	m := at(newTestMachine(), StateAskForAcceptance, "chinese", "south", "cheap")
	assert.False(t, m.Transition(ActConfirm, "is it cheap"))
	assert.Equal(t, StateAskForAcceptance, m.State())
}

func TestRestartResets(t *testing.T) {
	for _, s := range []State{
		StateRequestPreferences, StateAskFoodType, StateAskArea, StateAskPriceRange,
		StateAskForFurtherRequirements, StateTellLookupResults, StateOfferFurtherInformation, StateAskForAcceptance,
	} {
		m := at(newTestMachine(), s, "chinese", "south", "cheap")
		m.prefs.Secondary[Touristic] = true
		require.True(t, m.Transition(ActRestart, "start over"), s)
		assert.Equal(t, StateWelcome, m.State(), s)
		assert.Equal(t, NewPreferences().Clone(), m.Preferences(), s)
		assert.True(t, m.Results().Empty(), s)
	}
}

func TestNoopActsChangeNothing(t *testing.T) {
	for _, s := range States() {
		for _, empty := range []bool{false, true} {
			if empty && s != StateTellLookupResults {
				continue
			}
			food := "chinese"
			if empty {
				food = "martian"
			}
			for _, act := range Acts() {
				m := at(newTestMachine(), s, food, "south", "cheap")
				if _, ok := transitions[m.key()][act]; ok {
					continue
				}
				composer := NewComposer(nil, false)
				beforePrefs, beforeResults, before := m.Preferences(), m.Results(), composer.RenderMachine(m)

				assert.False(t, m.Transition(act, "indian north expensive touristic"), "%s/%s", s, act)
				assert.Equal(t, s, m.State())
				assert.Equal(t, beforePrefs, m.Preferences(), "%s/%s", s, act)
				assert.Equal(t, beforeResults, m.Results(), "%s/%s", s, act)
				assert.Equal(t, before, composer.RenderMachine(m), "%s/%s", s, act)
			}
		}
	}
}

func TestUnknownActIsNull(t *testing.T) {
	m := newTestMachine()
	assert.True(t, m.Transition(Act("sing"), "la la"))
	assert.Equal(t, StateRequestPreferences, m.State(), "welcome treats null as a greeting")

	assert.False(t, m.Transition(Act(""), ""))
	assert.Equal(t, StateRequestPreferences, m.State())
}

func TestAdvancePriority(t *testing.T) {
	for _, s := range States() {
		if s.IsTerminal() {
			continue
		}
		for _, reqmore := range []bool{false, true} {
			m := at(newTestMachine(), s, "", "south", "cheap")
			m.advance(reqmore)
			assert.Equal(t, StateAskFoodType, m.State(), "%s reqmore=%v", s, reqmore)
		}
		m := at(newTestMachine(), s, "chinese", "", "cheap")
		m.advance(false)
		assert.Equal(t, StateAskArea, m.State())

		m = at(newTestMachine(), s, "chinese", "south", "")
		m.advance(false)
		assert.Equal(t, StateAskPriceRange, m.State())
	}
}

func TestAdvanceAsksForRequirementsOnce(t *testing.T) {
	m := at(newTestMachine(), StateAskPriceRange, "chinese", "south", "cheap")
	m.advance(false)
	assert.Equal(t, StateAskForFurtherRequirements, m.State())

	m.advance(false)
	assert.Equal(t, StateTellLookupResults, m.State(), "asked already, so look up")

	m = at(newTestMachine(), StateAskPriceRange, "chinese", "south", "cheap")
	m.prefs.Secondary[Children] = true
	m.advance(false)
	assert.Equal(t, StateAskForFurtherRequirements, m.State())

	m = at(newTestMachine(), StateRequestPreferences, "chinese", "south", "cheap")
	m.prefs.Secondary[Children] = true
	m.advance(false)
	assert.Equal(t, StateTellLookupResults, m.State())
}

func TestCursorBounds(t *testing.T) {
	m := at(newTestMachine(), StateTellLookupResults, Any, Any, Any)
	n := m.Results().Len()
	for i := 0; i < n+3; i++ {
		m.advance(true)
		cur := m.Results().Cursor
		if m.State() == StateAskForAcceptance {
			assert.Equal(t, n-1, cur)
			continue
		}
		assert.GreaterOrEqual(t, cur, 0)
		assert.Less(t, cur, n)
	}
	assert.Equal(t, StateAskForAcceptance, m.State())
}

func TestSlotMonotonicity(t *testing.T) {
	m := newTestMachine()
	utterances := []string{"chinese", "south", "nothing useful", "indian", "cheap", "hmm", "expensive north"}
	var filled []Slot
	for _, u := range utterances {
		if m.State() == StateTellLookupResults && m.Results().Empty() {
			break
		}
		m.Transition(ActInform, u)
		p := m.Preferences()
		for _, slot := range filled {
			assert.NotEmpty(t, p.Get(slot), "slot %s emptied after %q", slot, u)
		}
		filled = filled[:0]
		for _, slot := range []Slot{SlotFood, SlotArea, SlotPrice} {
			if p.Get(slot) != "" {
				filled = append(filled, slot)
			}
		}
	}
	assert.Len(t, filled, 3)
}

func TestFocusedExtraction(t *testing.T) {
	m := at(newTestMachine(), StateAskArea, "chinese", "", "")
	m.Transition(ActInform, "any")
	assert.Equal(t, Any, m.Preferences().Area)
	assert.Equal(t, StateAskPriceRange, m.State())

	m.Transition(ActInform, "any")
	assert.Equal(t, Any, m.Preferences().Price)
	assert.Equal(t, StateAskForFurtherRequirements, m.State())
}
