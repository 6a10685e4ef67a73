package conversation

import (
	"fmt"

	cerrors "github.com/hrygo/aicall/server/internal/errors"
)

// Step is one stage of a mode's scripted flow. The prompt is appended to the
// mode's system instruction when building the reply context.
type Step struct {
	Name   string
	Prompt string
}

// ModeSpec describes one conversation mode.
type ModeSpec struct {
	// SystemPrompt is the base persona instruction for the mode.
	SystemPrompt string
	// AIInitiated modes open the session with an assistant utterance before
	// any user input arrives.
	AIInitiated bool
	// Steps is the ordered flow script, advanced by user-turn count. The
	// last step repeats once the script is exhausted.
	Steps []Step
	// PickTopic marks modes whose opening prompt embeds a randomly drawn
	// topic.
	PickTopic bool
}

// Transition switches a session from one mode to another once the user has
// spoken the given number of turns. The table is configuration: swapping it
// changes the flow without touching the state machine.
type Transition struct {
	From        string
	AtUserTurns int
	To          string
}

// Catalog is the closed set of modes a session may run in.
type Catalog struct {
	Default     string
	Modes       map[string]ModeSpec
	Transitions []Transition
	// Topics feed the topic picker for modes with PickTopic set.
	Topics []string
}

func (c Catalog) Has(mode string) bool {
	_, ok := c.Modes[mode]
	return ok
}

func (c Catalog) Spec(mode string) ModeSpec {
	return c.Modes[mode]
}

// StepPrompt returns the flow instruction for a mode at the given user-turn
// count. Modes without a script return empty.
func (c Catalog) StepPrompt(mode string, userTurns int) string {
	spec, ok := c.Modes[mode]
	if !ok || len(spec.Steps) == 0 {
		return ""
	}
	idx := userTurns
	if idx >= len(spec.Steps) {
		idx = len(spec.Steps) - 1
	}
	return spec.Steps[idx].Prompt
}

// ModeState is the two-field mode machine carried on a session: the mode this
// turn runs in, and a pending transition that takes effect on the next turn.
// Pending, when set, always differs from Current.
type ModeState struct {
	Current string
	Pending string
}

// Apply collapses a pending transition into the current mode. Pure.
func (m ModeState) Apply() ModeState {
	if m.Pending == "" {
		return m
	}
	return ModeState{Current: m.Pending}
}

// Resolve computes the mode state for a turn. Cold start (empty current, no
// user turns) picks the requested mode or the catalog default. An explicit
// request on a running session switches immediately. The same inputs always
// produce the same result.
func Resolve(current string, userTurns int, requested string, catalog Catalog) (ModeState, error) {
	if requested != "" && !catalog.Has(requested) {
		return ModeState{}, cerrors.InvalidInput(fmt.Sprintf("unknown mode %q", requested))
	}

	switch {
	case requested != "":
		current = requested
	case current == "":
		current = catalog.Default
	}

	return ModeState{Current: current, Pending: pendingFor(current, userTurns, catalog)}, nil
}

// Advance computes the state to persist after a completed turn: the pending
// transition for the turn count the session has now reached.
func Advance(current string, userTurns int, catalog Catalog) ModeState {
	return ModeState{Current: current, Pending: pendingFor(current, userTurns, catalog)}
}

func pendingFor(current string, userTurns int, catalog Catalog) string {
	for _, t := range catalog.Transitions {
		if t.From == current && t.AtUserTurns == userTurns && t.To != current {
			return t.To
		}
	}
	return ""
}
