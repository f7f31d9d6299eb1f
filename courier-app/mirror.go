package main

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/spf13/cobra"

	"github.com/compose-network/courier/x/service"
)

const (
	mirrorService = "mirror"
	mirrorRequest = "stressed"
)

var mirrorMethodNames = []string{"echo", "reverse"}

func newMirrorServerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mirror-server",
		Short: "Serve the echo and reverse methods of the mirror service",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := loadApp(cmd)
			if err != nil {
				return err
			}
			return a.MirrorServer(cmd.Context())
		},
	}
}

func newMirrorClientCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mirror-client",
		Short: "Call echo and reverse on every mirror instance, alternating each round",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := loadApp(cmd)
			if err != nil {
				return err
			}
			interval, _ := cmd.Flags().GetDuration("interval")
			rounds, _ := cmd.Flags().GetInt("rounds")
			return a.MirrorClient(cmd.Context(), interval, rounds)
		},
	}
	cmd.Flags().Duration("interval", time.Second, "delay between rounds")
	cmd.Flags().Int("rounds", 0, "stop after this many rounds (0 runs until interrupted)")
	return cmd
}

// reverseRunes reverses s by code point.
func reverseRunes(s string) string {
	r := []rune(s)
	slices.Reverse(r)
	return string(r)
}

func mirrorMethods() map[string]service.MethodCallback {
	return map[string]service.MethodCallback{
		"echo": func(_ context.Context, _ string, req []byte) ([]byte, error) {
			return req, nil
		},
		"reverse": func(_ context.Context, _ string, req []byte) ([]byte, error) {
			return []byte(reverseRunes(string(req))), nil
		},
	}
}

// MirrorServer registers one mirror instance and serves until ctx ends.
func (a *App) MirrorServer(ctx context.Context) error {
	tr, err := a.connect(ctx)
	if err != nil {
		return err
	}
	defer tr.Close()

	srv, err := service.NewServer(tr, mirrorService, a.serviceOptions()...)
	if err != nil {
		return err
	}
	defer srv.Close()

	for name, cb := range mirrorMethods() {
		cb := cb
		err :=srv.AddMethod(name, func(ctx context.Context, method string, req []byte) ([]byte, error) {
			fmt.Fprintf(a.out, "Method '%s' called with message: %s\n", method, req)
			return cb(ctx, method, req)
		})
		if err != nil {
			return err
		}
	}

	fmt.Fprintf(a.out, "Mirror service %s serving %v\n", srv.ID().EntityID, srv.Methods())
	<-ctx.Done()
	return nil
}

// MirrorClient waits for a mirror instance, then calls every instance once
// per round, alternating between echo and reverse. rounds <= 0 runs until
// ctx ends.
func (a *App) MirrorClient(ctx context.Context, interval time.Duration, rounds int) error {
	tr, err := a.connect(ctx)
	if err != nil {
		return err
	}
	defer tr.Close()

	client, err := service.NewClient(tr, mirrorService, a.serviceOptions()...)
	if err != nil {
		return err
	}

	if err := a.waitFor(ctx, func() bool { return len(client.Instances()) > 0 }, "Waiting for a service .."); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return err
	}

	for i := 0; rounds <= 0 || i < rounds; i++ {
		method := mirrorMethodNames[i%len(mirrorMethodNames)]
		for _, res := range client.CallAll(ctx, method, []byte(mirrorRequest), a.cfg.Service.CallTimeout) {
			a.printCallResult(res)
		}

		if rounds > 0 && i == rounds-1 {
			break
		}
		if !sleep(ctx, interval) {
			return nil
		}
	}
	return nil
}

func (a *App) printCallResult(res service.CallResult) {
	fmt.Fprintln(a.out)
	fmt.Fprintf(a.out, "Method '%s' called with message: %s\n", res.Method, mirrorRequest)

	switch res.State {
	case service.CallStateExecuted:
		fmt.Fprintf(a.out, "Received response: %s from service id %s\n", res.Response.Payload, res.Response.ServerID.ServiceID.EntityID)
	case service.CallStateFailed:
		msg := "Unknown"
		if res.Response != nil && res.Response.ErrorMsg != "" {
			msg = res.Response.ErrorMsg
		} else if res.Err != nil {
			msg = res.Err.Error()
		}
		fmt.Fprintf(a.out, "Received error: %s from service id %s\n", msg, res.Instance.EntityID)
	default:
		fmt.Fprintf(a.out, "Method blocking call %s after %s ..\n", res.State, res.Elapsed.Round(time.Millisecond))
	}
}
