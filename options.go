package lockless

// Option configures an MPMC ring.
type Option func(*options)

type options struct {
	newBackoff func() Snoozer
}

// WithBackoff sets the retry strategy used by contended Push and Pop calls.
// f is called at most once per call, on its first retry.
func WithBackoff(f func() Snoozer) Option {
	return func(o *options) {
		if f != nil {
			o.newBackoff = f
		}
	}
}

func newOptions(opts []Option) options {
	o := options{newBackoff: newBackoff}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
