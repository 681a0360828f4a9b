package bus

// funcSink adapts a plain function to the Sink interface.
type funcSink struct {
	name string
	fn   func(env Envelope) error
}

// SinkFunc wraps fn as a named Sink.
func SinkFunc(name string, fn func(env Envelope) error) Sink {
	return &funcSink{name: name, fn: fn}
}

func (s *funcSink) Name() string {
	return s.name
}

func (s *funcSink) Deliver(env Envelope) error {
	return s.fn(env)
}
