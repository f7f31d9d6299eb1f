package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	peoplepb "github.com/compose-network/courier/proto/people"
	"github.com/compose-network/courier/x/codec"
	"github.com/compose-network/courier/x/pubsub"
)

const (
	personTopic = "person"
	helloTopic  = "hello"
	blobTopic   = "blob"
)

func newPersonSendCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "person-send",
		Short: "Publish a protobuf Person on the person topic",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := loadApp(cmd)
			if err != nil {
				return err
			}
			interval, _ := cmd.Flags().GetDuration("interval")
			return a.PersonSend(cmd.Context(), interval)
		},
	}
	cmd.Flags().Duration("interval", 500*time.Millisecond, "delay between messages")
	return cmd
}

func newPersonReceiveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "person-receive",
		Short: "Print Person messages from the person topic",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := loadApp(cmd)
			if err != nil {
				return err
			}
			return a.PersonReceive(cmd.Context())
		},
	}
}

func newHelloSendCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hello-send",
		Short: "Publish strings on the hello topic",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := loadApp(cmd)
			if err != nil {
				return err
			}
			interval, _ := cmd.Flags().GetDuration("interval")
			return a.HelloSend(cmd.Context(), interval)
		},
	}
	cmd.Flags().Duration("interval", 500*time.Millisecond, "delay between messages")
	return cmd
}

func newHelloReceiveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hello-receive",
		Short: "Print strings from the hello topic",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := loadApp(cmd)
			if err != nil {
				return err
			}
			return a.HelloReceive(cmd.Context())
		},
	}
}

func newBlobReceiveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "blob-receive",
		Short: "Print the first byte and size of raw blobs",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := loadApp(cmd)
			if err != nil {
				return err
			}
			topic, _ := cmd.Flags().GetString("topic")
			return a.BlobReceive(cmd.Context(), topic)
		},
	}
	cmd.Flags().String("topic", blobTopic, "topic to subscribe to")
	return cmd
}

func samplePerson(id int32) *peoplepb.Person {
	return &peoplepb.Person{
		Id:    id,
		Name:  "Max",
		Email: "max@mail.net",
		Dog:   &peoplepb.Dog{Name: "Brandy", Colour: "Brown"},
		House: &peoplepb.House{Rooms: 4},
	}
}

// PersonSend publishes an incrementing Person every interval until ctx ends.
func (a *App) PersonSend(ctx context.Context, interval time.Duration) error {
	tr, err := a.connect(ctx)
	if err != nil {
		return err
	}
	defer tr.Close()

	pub, err := pubsub.NewPublisher[*peoplepb.Person](tr, personTopic, codec.NewProtobuf[peoplepb.Person](), a.pubsubOptions()...)
	if err != nil {
		return err
	}
	defer pub.Close()

	for id := int32(1); ; id++ {
		person := samplePerson(id)
		if err := pub.Send(ctx, person); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}

		fmt.Fprintf(a.out, "person id    : %d\n", person.GetId())
		fmt.Fprintf(a.out, "person name  : %s\n", person.GetName())
		fmt.Fprintf(a.out, "person email : %s\n", person.GetEmail())
		fmt.Fprintf(a.out, "dog.name     : %s\n", person.GetDog().GetName())
		fmt.Fprintf(a.out, "house.rooms  : %d\n", person.GetHouse().GetRooms())
		fmt.Fprintln(a.out)

		if !sleep(ctx, interval) {
			return nil
		}
	}
}

// PersonReceive prints every Person received until ctx ends.
func (a *App) PersonReceive(ctx context.Context) error {
	tr, err := a.connect(ctx)
	if err != nil {
		return err
	}
	defer tr.Close()

	sub, err := pubsub.NewSubscriber[*peoplepb.Person](tr, personTopic, codec.NewProtobuf[peoplepb.Person](), a.pubsubOptions()...)
	if err != nil {
		return err
	}
	defer sub.Close()

	sub.SetCallback(func(msg pubsub.Received[*peoplepb.Person]) {
		p := msg.Payload.Get()
		printHead(a.out, "HEAD", msg)
		printSection(a.out, "CONTENT")
		fmt.Fprintf(a.out, "person id    : %d\n", p.GetId())
		fmt.Fprintf(a.out, "person name  : %s\n", p.GetName())
		fmt.Fprintf(a.out, "person email : %s\n", p.GetEmail())
		fmt.Fprintf(a.out, "dog.name     : %s\n", p.GetDog().GetName())
		fmt.Fprintf(a.out, "dog.colour   : %s\n", p.GetDog().GetColour())
		fmt.Fprintf(a.out, "house.rooms  : %d\n", p.GetHouse().GetRooms())
		fmt.Fprintln(a.out, rule)
		fmt.Fprintln(a.out)
	})

	fmt.Fprintf(a.out, "Waiting for messages on topic '%s'...\n", personTopic)
	<-ctx.Done()
	return nil
}

// HelloSend publishes a numbered greeting every interval until ctx ends.
func (a *App) HelloSend(ctx context.Context, interval time.Duration) error {
	tr, err := a.connect(ctx)
	if err != nil {
		return err
	}
	defer tr.Close()

	pub, err := pubsub.NewPublisher[string](tr, helloTopic, codec.String(), a.pubsubOptions()...)
	if err != nil {
		return err
	}
	defer pub.Close()

	for n := 1; ; n++ {
		msg := fmt.Sprintf("HELLO WORLD FROM GO (%d)", n)
		if err := pub.Send(ctx, msg); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		fmt.Fprintf(a.out, "Sent: %s\n", msg)

		if !sleep(ctx, interval) {
			return nil
		}
	}
}

// HelloReceive prints every string received until ctx ends.
func (a *App) HelloReceive(ctx context.Context) error {
	tr, err := a.connect(ctx)
	if err != nil {
		return err
	}
	defer tr.Close()

	sub, err := pubsub.NewSubscriber[string](tr, helloTopic, codec.String(), a.pubsubOptions()...)
	if err != nil {
		return err
	}
	defer sub.Close()

	sub.SetCallback(func(msg pubsub.Received[string]) {
		printHead(a.out, "MESSAGE HEAD", msg)
		printSection(a.out, "MESSAGE CONTENT")
		fmt.Fprintf(a.out, "message      : %s\n", msg.Payload.Get())
		fmt.Fprintln(a.out, rule)
		fmt.Fprintln(a.out)
	})

	fmt.Fprintf(a.out, "Waiting for messages on topic '%s'...\n", helloTopic)
	<-ctx.Done()
	return nil
}

// BlobReceive prints the first byte and the size of each raw payload.
// Empty payloads are skipped.
func (a *App) BlobReceive(ctx context.Context, topic string) error {
	tr, err := a.connect(ctx)
	if err != nil {
		return err
	}
	defer tr.Close()

	sub, err := pubsub.NewSubscriber[[]byte](tr, topic, codec.Raw(), a.pubsubOptions()...)
	if err != nil {
		return err
	}
	defer sub.Close()

	sub.SetCallback(func(msg pubsub.Received[[]byte]) {
		buf := msg.Payload.Get()
		if len(buf) == 0 {
			return
		}
		printHead(a.out, "HEAD", msg)
		printSection(a.out, "CONTENT")
		fmt.Fprintf(a.out, "binary value : %d\n", buf[0])
		fmt.Fprintf(a.out, "buffer size  : %d\n", len(buf))
		fmt.Fprintln(a.out, rule)
		fmt.Fprintln(a.out)
	})

	fmt.Fprintf(a.out, "Waiting for messages on topic '%s'...\n", topic)
	<-ctx.Done()
	return nil
}
