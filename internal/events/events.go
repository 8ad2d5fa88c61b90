package events

// Phase identifies where in the scrape an event was emitted.
type Phase string

const (
	PhaseListingRepos  Phase = "listing-repos"
	PhaseWalkingTree   Phase = "walking-tree"
	PhaseFetchingFiles Phase = "fetching-files"
	PhaseDone          Phase = "done"
	PhaseError         Phase = "error"
)

// Event is one progress notification from the scrape engine.
// Fetched+Skipped only ever increases within a run; Total is revised
// upward as each repository's tree is walked, since the overall file
// count is not known in advance.
type Event struct {
	Phase   Phase
	Repo    string // repository full name, empty for run-level phases
	Fetched int
	Skipped int
	Total   int
	Message string
}

// Sink receives progress events. The engine treats emission as
// fire-and-forget: a sink must not block for long, and a nil sink
// disables progress reporting entirely.
type Sink func(Event)

// Emit sends e to the sink if one is set.
func (s Sink) Emit(e Event) {
	if s != nil {
		s(e)
	}
}
