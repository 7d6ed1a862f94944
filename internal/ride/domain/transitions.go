package domain

// allowTransition is the directed graph of legal lifecycle transitions.
// Anything not listed here is rejected; the guard is an allow-list, not a
// deny-list.
var allowTransition = map[Status][]Status{
	StatusRequested:   {StatusNegotiating, StatusAccepted, StatusCancelled},
	StatusNegotiating: {StatusRequested, StatusNegotiating, StatusCancelled},
	StatusAccepted:    {StatusStarted, StatusCancelled},
	StatusStarted:     {StatusCompleted},
	StatusCompleted:   {},
	StatusCancelled:   {},
}

// CanTransition reports whether from -> to is a legal lifecycle move.
func CanTransition(from, to Status) bool {
	allowed, ok := allowTransition[from]
	if !ok {
		return false
	}
	for _, s := range allowed {
		if s == to {
			return true
		}
	}
	return false
}
