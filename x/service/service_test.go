package service

import (
	"bytes"
	"context"
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/compose-network/courier/x/datatype"
	"github.com/compose-network/courier/x/payload"
	"github.com/compose-network/courier/x/transport"
	"github.com/compose-network/courier/x/transport/memory"
)

func newMemory(t *testing.T) *memory.Transport {
	t.Helper()
	tr := memory.New(zerolog.Nop())
	t.Cleanup(func() { _ = tr.Close() })
	return tr
}

func mirrorServer(t *testing.T, tr transport.Transport) *Server {
	t.Helper()
	srv, err := NewServer(tr, "mirror")
	require.NoError(t, err)

	require.NoError(t, srv.AddMethod("echo", func(_ context.Context, _ string, req []byte) ([]byte, error) {
		return req, nil
	}))
	require.NoError(t, srv.AddMethod("reverse", func(_ context.Context, _ string, req []byte) ([]byte, error) {
		out := bytes.Clone(req)
		slices.Reverse(out)
		return out, nil
	}))
	return srv
}

func TestCallState_String(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "executed", CallStateExecuted.String())
	assert.Equal(t, "failed", CallStateFailed.String())
	assert.Equal(t, "timeouted", CallStateTimeouted.String())
	assert.Equal(t, "unknown", CallState(0).String())
}

func TestCall_Executed(t *testing.T) {
	t.Parallel()
	tr := newMemory(t)
	srv := mirrorServer(t, tr)

	client, err := NewClient(tr, "mirror")
	require.NoError(t, err)

	instances := client.Instances()
	require.Len(t, instances, 1)
	assert.Equal(t, srv.ID(), instances[0].ID())

	res := instances[0].Call(context.Background(), "reverse", []byte("stressed"), time.Second)
	require.NoError(t, res.Err)
	assert.Equal(t, CallStateExecuted, res.State)
	require.NotNil(t, res.Response)
	assert.True(t, res.Response.Success)
	assert.Equal(t, []byte("desserts"), res.Response.Payload)
	assert.Equal(t, "mirror", res.Response.ServerID.ServiceName)
	assert.Equal(t, srv.ID(), res.Response.ServerID.ServiceID)
	assert.Equal(t, "reverse", res.Method)
	assert.Equal(t, []string{"echo", "reverse"}, srv.Methods())
}

func TestCall_FailedCarriesErrorMessage(t *testing.T) {
	t.Parallel()
	tr := newMemory(t)
	srv := mirrorServer(t, tr)
	require.NoError(t, srv.AddMethod("explode", func(context.Context, string, []byte) ([]byte, error) {
		return nil, errors.New("disk on fire")
	}))

	client, err := NewClient(tr, "mirror")
	require.NoError(t, err)
	inst := client.Instances()[0]

	res := inst.Call(context.Background(), "explode", nil, time.Second)
	assert.Equal(t, CallStateFailed, res.State)
	require.NotNil(t, res.Response)
	assert.False(t, res.Response.Success)
	assert.Equal(t, "disk on fire", res.Response.ErrorMsg)
	require.ErrorIs(t, res.Err, ErrCallFailed)

	res = inst.Call(context.Background(), "missing", nil, time.Second)
	assert.Equal(t, CallStateFailed, res.State)
	require.NotNil(t, res.Response)
	assert.Contains(t, res.Response.ErrorMsg, "method not found")

	srv.RemoveMethod("echo")
	res = inst.Call(context.Background(), "echo", nil, time.Second)
	assert.Equal(t, CallStateFailed, res.State)
	assert.NotEmpty(t, res.Response.ErrorMsg)
}

func TestCall_TimeoutIsBounded(t *testing.T) {
	t.Parallel()
	tr := newMemory(t)

	srv, err := NewServer(tr, "slow")
	require.NoError(t, err)
	require.NoError(t, srv.AddMethod("nap", func(ctx context.Context, _ string, _ []byte) ([]byte, error) {
		time.Sleep(500 * time.Millisecond)
		return []byte("late"), nil
	}))

	client, err := NewClient(tr, "slow")
	require.NoError(t, err)
	inst := client.Instances()[0]

	start := time.Now()
	res := inst.Call(context.Background(), "nap", nil, time.Millisecond)
	assert.Less(t, time.Since(start), 250*time.Millisecond)

	assert.Equal(t, CallStateTimeouted, res.State)
	assert.Nil(t, res.Response)
	require.ErrorIs(t, res.Err, ErrCallTimeout)
}

func TestCall_ZeroTimeoutWaits(t *testing.T) {
	t.Parallel()
	tr := newMemory(t)

	srv, err := NewServer(tr, "patient")
	require.NoError(t, err)
	require.NoError(t, srv.AddMethod("nap", func(context.Context, string, []byte) ([]byte, error) {
		time.Sleep(30 * time.Millisecond)
		return []byte("done"), nil
	}))

	client, err := NewClient(tr, "patient")
	require.NoError(t, err)

	res := client.Instances()[0].Call(context.Background(), "nap", nil, 0)
	assert.Equal(t, CallStateExecuted, res.State)
	assert.Equal(t, []byte("done"), res.Response.Payload)
}

func TestCall_UnreachableInstance(t *testing.T) {
	t.Parallel()
	tr := newMemory(t)
	srv := mirrorServer(t, tr)

	client, err := NewClient(tr, "mirror")
	require.NoError(t, err)
	inst := client.Instances()[0]

	require.NoError(t, srv.Close())
	assert.Empty(t, client.Instances())

	res := inst.Call(context.Background(), "echo", nil, time.Second)
	assert.Equal(t, CallStateFailed, res.State)
	assert.Nil(t, res.Response)
	require.ErrorIs(t, res.Err, ErrInstanceUnreachable)
}

func TestCallAll_EveryInstanceIndependently(t *testing.T) {
	t.Parallel()
	tr := newMemory(t)

	handlers := map[string]MethodCallback{
		"ok": func(_ context.Context, _ string, req []byte) ([]byte, error) { return req, nil },
		"err": func(context.Context, string, []byte) ([]byte, error) {
			return nil, errors.New("refused")
		},
		"slow": func(context.Context, string, []byte) ([]byte, error) {
			time.Sleep(300 * time.Millisecond)
			return nil, nil
		},
	}
	for _, h := range handlers {
		srv, err := NewServer(tr, "fleet")
		require.NoError(t, err)
		require.NoError(t, srv.AddMethod("ping", h))
	}

	client, err := NewClient(tr, "fleet")
	require.NoError(t, err)

	results := client.CallAll(context.Background(), "ping", []byte("x"), 20*time.Millisecond)
	require.Len(t, results, 3)

	states := map[CallState]int{}
	for _, r := range results {
		states[r.State]++
	}
	assert.Equal(t, map[CallState]int{
		CallStateExecuted:  1,
		CallStateFailed:    1,
		CallStateTimeouted: 1,
	}, states)
}

func TestCallAll_FailingFirstInstanceDoesNotStopOthers(t *testing.T) {
	t.Parallel()

	tr := &fakeTransport{instances: []transport.ServiceInstance{
		fakeInstance{id: "a", err: transport.ErrUnreachable},
		fakeInstance{id: "b", err: context.DeadlineExceeded},
		fakeInstance{id: "c", resp: transport.ServiceResponse{Success: true, Payload: []byte("pong"), Service: "fleet"}},
	}}

	client, err := NewClient(tr, "fleet")
	require.NoError(t, err)

	results := client.CallAll(context.Background(), "ping", nil, time.Second)
	require.Len(t, results, 3)

	assert.Equal(t, "a", results[0].Instance.EntityID)
	assert.Equal(t, CallStateFailed, results[0].State)
	require.ErrorIs(t, results[0].Err, ErrInstanceUnreachable)

	assert.Equal(t, CallStateTimeouted, results[1].State)

	assert.Equal(t, "c", results[2].Instance.EntityID)
	assert.Equal(t, CallStateExecuted, results[2].State)
	assert.Equal(t, []byte("pong"), results[2].Response.Payload)
}

func TestCallAll_NoInstances(t *testing.T) {
	t.Parallel()
	tr := newMemory(t)

	client, err := NewClient(tr, "ghost")
	require.NoError(t, err)
	assert.Empty(t, client.CallAll(context.Background(), "ping", nil, time.Millisecond))

	_, err = NewClient(tr, "")
	require.ErrorIs(t, err, ErrEmptyServiceName)
}

type fakeTransport struct {
	instances []transport.ServiceInstance
}

func (f *fakeTransport) Advertise(string, datatype.Descriptor, payload.Config) (transport.TopicWriter, error) {
	return nil, errors.New("not supported")
}

func (f *fakeTransport) Subscribe(string, datatype.Descriptor, transport.Handler) (transport.TopicReader, error) {
	return nil, errors.New("not supported")
}

func (f *fakeTransport) RegisterService(string, transport.ServiceHandler) (transport.ServiceRegistration, error) {
	return nil, errors.New("not supported")
}

func (f *fakeTransport) ServiceInstances(string) []transport.ServiceInstance {
	return f.instances
}

func (f *fakeTransport) Close() error { return nil }

type fakeInstance struct {
	id   string
	resp transport.ServiceResponse
	err  error
}

func (f fakeInstance) ID() transport.InstanceID {
	return transport.InstanceID{EntityID: f.id, ProcessID: 1, HostName: "test"}
}

func (f fakeInstance) Call(context.Context, string, []byte) (transport.ServiceResponse, error) {
	if f.err != nil {
		return transport.ServiceResponse{}, f.err
	}
	resp := f.resp
	resp.Instance = f.ID()
	return resp, nil
}
