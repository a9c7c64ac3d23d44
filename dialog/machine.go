package dialog

import (
	"github.com/room4-2/dinedialog/catalog"
)

// Unknown replaces restaurant details the catalog does not have.
const Unknown = "unknown"

// Detail is the contact information of the suggestion being discussed.
type Detail struct {
	Phone    string `json:"phone"`
	Address  string `json:"addr"`
	Postcode string `json:"postcode"`
}

func detailOf(r *catalog.Restaurant) Detail {
	orUnknown := func(v string) string {
		if v == "" {
			return Unknown
		}
		return v
	}
	if r == nil {
		return Detail{Phone: Unknown, Address: Unknown, Postcode: Unknown}
	}
	return Detail{
		Phone:    orUnknown(r.Phone),
		Address:  orUnknown(r.Address),
		Postcode: orUnknown(r.Postcode),
	}
}

// Machine is the dialog state machine of one conversation. It is not safe for
// concurrent use; callers feed it one act at a time.
type Machine struct {
	state     State
	prefs     *Preferences
	results   Results
	detail    Detail
	done      bool
	engine    *Engine
	extractor Extractor
}

// NewMachine returns a machine in the Welcome state with empty preferences.
func NewMachine(engine *Engine, extractor Extractor) *Machine {
	return &Machine{
		state:     StateWelcome,
		prefs:     NewPreferences(),
		engine:    engine,
		extractor: extractor,
	}
}

// State returns the current state.
func (m *Machine) State() State { return m.state }

// Preferences returns a copy of the current preferences.
func (m *Machine) Preferences() Preferences { return m.prefs.Clone() }

// Results returns the current lookup results.
func (m *Machine) Results() Results { return m.results }

// Detail returns the contact details of the current suggestion.
func (m *Machine) Detail() Detail { return m.detail }

// Done reports whether the dialog reached Exit.
func (m *Machine) Done() bool { return m.done }

// Transition dispatches act in the current state. It reports false when the
// act is a no-op there, in which case nothing changed. Acts outside the
// enumeration are handled as null.
func (m *Machine) Transition(act Act, utterance string) bool {
	if !act.Valid() {
		act = ActNull
	}
	h, ok := transitions[m.key()][act]
	if !ok {
		return false
	}
	h(m, utterance)
	return true
}

// key selects the row of the transition table. TellLookupResults behaves
// differently depending on whether the last lookup found anything.
func (m *Machine) key() tableKey {
	return tableKey{state: m.state, noResults: m.state == StateTellLookupResults && m.results.Empty()}
}

// enter moves to s and runs its entry side effects.
func (m *Machine) enter(s State) {
	m.state = s
	switch s {
	case StateOfferFurtherInformation:
		cur, _ := m.results.Current()
		m.detail = detailOf(cur)
	case StateExit:
		m.done = true
	}
}

func (m *Machine) reset() {
	m.prefs.Reset()
	m.results = Results{}
	m.detail = Detail{}
}

func (m *Machine) extract(utterance string) {
	m.prefs.ApplyExtraction(m.extractor.Extract(utterance, m.state.focus()))
}

func (m *Machine) lookup() {
	m.results = m.engine.Lookup(m.prefs)
}

// advance fills missing slots first, then cycles suggestions when more are
// requested, asks once for further requirements, and finally looks up.
func (m *Machine) advance(reqmore bool) {
	_, hasSecondary := m.prefs.ActiveSecondary()
	switch {
	case m.prefs.Food == "":
		m.enter(StateAskFoodType)
	case m.prefs.Area == "":
		m.enter(StateAskArea)
	case m.prefs.Price == "":
		m.enter(StateAskPriceRange)
	case reqmore:
		if m.results.HasNext() {
			m.results.Cursor++
			m.enter(StateTellLookupResults)
		} else {
			m.enter(StateAskForAcceptance)
		}
	case m.state != StateAskForFurtherRequirements && !hasSecondary:
		m.enter(StateAskForFurtherRequirements)
	case m.state == StateAskForFurtherRequirements || m.state == StateRequestPreferences:
		m.lookup()
		m.enter(StateTellLookupResults)
	default:
		m.enter(StateAskForFurtherRequirements)
	}
}

type handler func(m *Machine, utterance string)

type tableKey struct {
	state     State
	noResults bool
}

type row map[Act]handler

func (r row) on(h handler, acts ...Act) row {
	for _, a := range acts {
		r[a] = h
	}
	return r
}

func goTo(s State) handler {
	return func(m *Machine, _ string) { m.enter(s) }
}

func restart(m *Machine, _ string) {
	m.reset()
	m.enter(StateWelcome)
}

func resetAndRequest(m *Machine, _ string) {
	m.reset()
	m.enter(StateRequestPreferences)
}

func extractAndAdvance(m *Machine, u string) {
	m.extract(u)
	m.advance(false)
}

func resetExtractAndAdvance(m *Machine, u string) {
	m.reset()
	m.extract(u)
	m.advance(false)
}

func extractAndLookup(m *Machine, u string) {
	m.extract(u)
	m.lookup()
	m.enter(StateTellLookupResults)
}

func requirementsAndLookup(m *Machine, u string) {
	m.prefs.ApplySecondaryKeywords(u)
	m.lookup()
	m.enter(StateTellLookupResults)
}

func advance(m *Machine, _ string) { m.advance(false) }

func moreResults(m *Machine, _ string) { m.advance(true) }

// transitions is the whole dialog policy. A missing (state, act) entry is a no-op.
var transitions = buildTransitions()

func buildTransitions() map[tableKey]row {
	exit := goTo(StateExit)
	requestPreferences := goTo(StateRequestPreferences)

	// every state past Welcome shares these
	base := func() row {
		return row{}.
			on(exit, ActThankYou, ActBye).
			on(restart, ActRestart)
	}

	t := map[tableKey]row{
		{state: StateWelcome}: row{}.
			on(exit, ActThankYou, ActBye).
			on(extractAndAdvance, ActInform, ActReqAlts).
			on(requestPreferences, ActAck, ActAffirm, ActConfirm, ActDeny, ActHello,
				ActNegate, ActNull, ActReqMore, ActRequest),

		{state: StateAskForFurtherRequirements}: base().
			on(requirementsAndLookup, ActInform, ActReqAlts).
			on(requestPreferences, ActDeny, ActAffirm).
			on(advance, ActNegate),

		{state: StateTellLookupResults}: base().
			on(extractAndLookup, ActInform, ActReqAlts).
			on(goTo(StateOfferFurtherInformation), ActAck, ActAffirm, ActRequest).
			on(requestPreferences, ActDeny).
			on(moreResults, ActReqMore),

		{state: StateTellLookupResults, noResults: true}: base().
			on(resetExtractAndAdvance, ActInform, ActReqAlts).
			on(resetAndRequest, ActAck, ActAffirm, ActDeny),

		{state: StateOfferFurtherInformation}: base().
			on(extractAndLookup, ActInform, ActReqAlts).
			on(requestPreferences, ActDeny).
			on(goTo(StateTellLookupResults), ActConfirm).
			on(moreResults, ActReqMore),

		{state: StateAskForAcceptance}: base().
			on(exit, ActAck, ActAffirm).
			on(extractAndLookup, ActInform, ActReqAlts).
			on(resetAndRequest, ActDeny, ActNegate),

		{state: StateExit}: row{},
	}

	for _, s := range []State{StateRequestPreferences, StateAskFoodType, StateAskArea, StateAskPriceRange} {
		t[tableKey{state: s}] = base().on(extractAndAdvance, ActInform, ActReqAlts)
	}
	return t
}
