package repository

type options struct {
	shardCount int
}

// Option applies a configuration option to the MemStore.
type Option func(*options)

// WithShardCount sets the number of user shards.
func WithShardCount(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.shardCount = n
		}
	}
}
