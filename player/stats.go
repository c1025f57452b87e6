package player

// Stats is a point in time copy of the player counters.
type Stats struct {
	BuildID string
	// Generation counts successful pipeline builds.
	Generation uint64

	Queued     uint64 // events currently waiting for the consumer
	Enqueued   uint64
	Dispatched uint64
	Stale      uint64 // events from an earlier build, discarded
	Discarded  uint64 // events dropped by a teardown
	Drains     uint64
	Wakeups    uint64 // wake signals raised by producers
	Scheduled  uint64 // consumer runs actually scheduled

	// BusMessages counts bus messages seen by the filter, by type.
	BusMessages map[MessageType]uint64

	Sinks []SinkStats
}

// SinkStats holds the counters of one registered sink.
type SinkStats struct {
	Name      string
	Prerolls  uint64
	Signals   uint64 // NewSample signals raised by the engine
	Coalesced uint64 // signals suppressed while a NewSample was pending
	Delivered uint64 // data notifications handed to the handler
	Skipped   uint64 // pulls that yielded nothing usable
	Bytes     uint64
	EOS       uint64
}
