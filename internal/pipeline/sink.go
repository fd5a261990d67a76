package pipeline

// ChannelSink sends every event to Ch, blocking while Ch is full. A nil Ch
// drops events. Closing Ch is the owner's job.
type ChannelSink struct {
	Ch chan<- Event
}

func (s ChannelSink) OnEvent(evt Event) {
	if s.Ch != nil {
		s.Ch <- evt
	}
}

// SinkFunc lets a plain function receive progress events.
type SinkFunc func(Event)

func (f SinkFunc) OnEvent(evt Event) {
	if f != nil {
		f(evt)
	}
}
