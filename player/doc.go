// Package player relays media pipeline events from engine streaming threads
// to handlers that run on one designated consumer thread.
//
// Producers (appsink and bus callbacks) append to a shared queue and raise a
// coalescing wake signal. The consumer drains the queue, pulls samples from
// their sinks and hands typed notifications to the registered handlers.
// NewSample notifications are coalesced per sink: at most one is queued at a
// time and the consumer always pulls the newest sample, so intermediate
// samples may be dropped and a pulled sample is not necessarily the one whose
// arrival queued the event.
package player
