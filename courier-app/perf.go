package main

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/compose-network/courier/x/datatype"
	"github.com/compose-network/courier/x/payload"
	"github.com/compose-network/courier/x/pubsub"
)

const (
	perfTopic          = "Performance"
	perfPayloadDefault = 8 * 1024 * 1024
)

func newPerfSendCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "perf-send [payload-size]",
		Short: "Send raw payloads in a tight loop and report throughput every second",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd)
			if err != nil {
				return err
			}
			size := perfPayloadDefault
			if len(args) == 1 {
				if n, err := strconv.Atoi(args[0]); err == nil {
					size = n
				}
			}
			topic, _ := cmd.Flags().GetString("topic")
			return a.PerfSend(cmd.Context(), topic, size)
		},
	}
	cmd.Flags().String("topic", perfTopic, "topic to publish on")
	return cmd
}

// PerfSend publishes size-byte payloads through a BinaryPayload writer as
// fast as the transport accepts them, once a receiver is present.
func (a *App) PerfSend(ctx context.Context, topic string, size int) error {
	if size <= 0 {
		size = 1
	}

	cfg := a.cfg.Publisher
	fmt.Fprintf(a.out, "Zero copy mode          : %t\n", cfg.ZeroCopy)
	fmt.Fprintf(a.out, "Number of write buffers : %d\n", cfg.BufferCount)
	fmt.Fprintf(a.out, "Acknowledge timeout     : %d ms\n", cfg.AcknowledgeTimeout.Milliseconds())
	fmt.Fprintf(a.out, "Payload size            : %d bytes\n", size)
	fmt.Fprintln(a.out)

	tr, err := a.connect(ctx)
	if err != nil {
		return err
	}
	defer tr.Close()

	dt := datatype.New(datatype.EncodingRaw, "bytes", nil)
	pub, err := pubsub.NewRawPublisher(tr, topic, dt, a.pubsubOptions()...)
	if err != nil {
		return err
	}
	defer pub.Close()

	if err := a.waitFor(ctx, func() bool { return pub.SubscriberCount() > 0 }, "Waiting for receiver .."); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return err
	}
	fmt.Fprintln(a.out)

	writer := payload.NewBinaryPayload(size)
	stats := newThroughput(size, time.Second, time.Now())
	for ctx.Err() == nil {
		res, err := pub.SendPayloadWriter(ctx, writer, time.Time{})
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		stats.add(res.Size)
		stats.report(a.out, time.Now())
	}
	return nil
}
