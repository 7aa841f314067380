package state

// Edge is a transition between two nodes. A nil Predicate always matches.
// Name labels the predicate in edge events.
type Edge struct {
	From      string
	To        string
	Name      string
	Predicate TransitionPredicate
}

// TransitionPredicate decides whether an edge is taken for state.
type TransitionPredicate func(state State) bool

// AlwaysTransition matches every state.
func AlwaysTransition() TransitionPredicate {
	return func(State) bool { return true }
}

// KeyExists matches when key is present in state data.
func KeyExists(key string) TransitionPredicate {
	return func(state State) bool {
		_, exists := state.Get(key)
		return exists
	}
}

// KeyEquals matches when key is present and equal to value.
func KeyEquals(key string, value any) TransitionPredicate {
	return func(state State) bool {
		val, exists := state.Get(key)
		return exists && val == value
	}
}

// Not inverts predicate.
func Not(predicate TransitionPredicate) TransitionPredicate {
	return func(state State) bool {
		return !predicate(state)
	}
}

// And matches when every predicate matches.
func And(predicates ...TransitionPredicate) TransitionPredicate {
	return func(state State) bool {
		for _, p := range predicates {
			if !p(state) {
				return false
			}
		}
		return true
	}
}

// Or matches when any predicate matches.
func Or(predicates ...TransitionPredicate) TransitionPredicate {
	return func(state State) bool {
		for _, p := range predicates {
			if p(state) {
				return true
			}
		}
		return false
	}
}
