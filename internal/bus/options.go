package bus

// options holds bus-wide settings.
type options struct {
	buffer int
}

func defaultOptions() options {
	return options{buffer: 16}
}

// Option configures the bus at construction time.
type Option func(*options)

// WithBufferSize sets the default mailbox capacity for drop-oldest
// subscriptions. Values below 1 are ignored.
func WithBufferSize(n int) Option {
	return func(o *options) {
		if n >= 1 {
			o.buffer = n
		}
	}
}

// subscribeOptions holds per-subscription settings.
type subscribeOptions struct {
	policy Policy
	buffer int
}

// SubscribeOption configures a single subscription.
type SubscribeOption func(*subscribeOptions)

// WithPolicy sets the mailbox backpressure policy.
func WithPolicy(p Policy) SubscribeOption {
	return func(o *subscribeOptions) {
		o.policy = p
	}
}

// WithBuffer overrides the mailbox capacity for a drop-oldest
// subscription. Ignored under PolicyLatest, whose mailbox is always a
// single slot.
func WithBuffer(n int) SubscribeOption {
	return func(o *subscribeOptions) {
		if n >= 1 {
			o.buffer = n
		}
	}
}
