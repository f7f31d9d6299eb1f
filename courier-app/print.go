package main

import (
	"fmt"
	"io"
	"time"

	"github.com/compose-network/courier/x/pubsub"
)

const rule = "------------------------------------------"

func printHead[T any](w io.Writer, title string, msg pubsub.Received[T]) {
	fmt.Fprintln(w, rule)
	fmt.Fprintf(w, " %s\n", title)
	fmt.Fprintln(w, rule)
	fmt.Fprintf(w, "topic name   : %s\n", msg.TopicName)
	fmt.Fprintf(w, "encoding     : %s\n", msg.Encoding)
	fmt.Fprintf(w, "type name    : %s\n", msg.TypeName)
	fmt.Fprintf(w, "topic time   : %d\n", msg.Timestamp.UnixMicro())
	fmt.Fprintf(w, "topic clock  : %d\n", msg.Clock)
}

func printSection(w io.Writer, title string) {
	fmt.Fprintln(w, rule)
	fmt.Fprintf(w, " %s\n", title)
	fmt.Fprintln(w, rule)
}

// throughput accumulates sends and reports once per interval.
type throughput struct {
	interval    time.Duration
	payloadSize int
	last        time.Time
	msgs        uint64
	bytes       uint64
}

func newThroughput(payloadSize int, interval time.Duration, now time.Time) *throughput {
	return &throughput{interval: interval, payloadSize: payloadSize, last: now}
}

func (t *throughput) add(n int) {
	t.msgs++
	t.bytes += uint64(n)
}

// report prints and resets the counters once interval has passed since the
// previous report. It returns whether it printed.
func (t *throughput) report(w io.Writer, now time.Time) bool {
	elapsed := now.Sub(t.last)
	if elapsed < t.interval || t.msgs == 0 {
		return false
	}

	secs := elapsed.Seconds()
	kbs := float64(t.bytes) / 1024 / secs
	fmt.Fprintf(w, "Payload size (kB)   : %d\n", t.payloadSize/1024)
	fmt.Fprintf(w, "Throughput   (kB/s) : %.0f\n", kbs)
	fmt.Fprintf(w, "Throughput   (MB/s) : %.2f\n", kbs/1024)
	fmt.Fprintf(w, "Throughput   (GB/s) : %.2f\n", kbs/1024/1024)
	fmt.Fprintf(w, "Messages     (1/s)  : %.0f\n", float64(t.msgs)/secs)
	fmt.Fprintf(w, "Latency      (µs)   : %.2f\n", secs*1e6/float64(t.msgs))
	fmt.Fprintln(w)

	t.msgs, t.bytes, t.last = 0, 0, now
	return true
}
