package tour

// PlaybackState is the state of the narration queue.
type PlaybackState string

const (
	PlaybackIdle    PlaybackState = "idle"
	PlaybackPlaying PlaybackState = "playing"
	PlaybackPaused  PlaybackState = "paused"
)

var validPlaybackTransitions = map[PlaybackState][]PlaybackState{
	PlaybackIdle:    {PlaybackPlaying},
	PlaybackPlaying: {PlaybackPaused, PlaybackIdle, PlaybackPlaying},
	PlaybackPaused:  {PlaybackPlaying, PlaybackIdle},
}

// CanTransitionTo returns true if the queue may move from s to target.
// Playing -> Playing is the automatic advance to the next item.
func (s PlaybackState) CanTransitionTo(target PlaybackState) bool {
	for _, t := range validPlaybackTransitions[s] {
		if t == target {
			return true
		}
	}
	return false
}

func (s PlaybackState) String() string {
	return string(s)
}
