package libvirt

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/digitalocean/go-libvirt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stateSeq returns the queued states in order and repeats the last one.
type stateSeq struct {
	states []int32
	err    error
	calls  int
}

func (s *stateSeq) DomainGetState(libvirt.Domain, uint32) (int32, int32, error) {
	s.calls++
	if s.err != nil {
		return 0, 0, s.err
	}
	i := min(s.calls-1, len(s.states)-1)
	return s.states[i], 0, nil
}

func TestWaitForShutoff(t *testing.T) {
	running := int32(libvirt.DomainRunning)
	shutdown := int32(libvirt.DomainShutdown)
	shutoff := int32(libvirt.DomainShutoff)

	c := &stateSeq{states: []int32{running, running, shutdown, shutoff}}
	err := WaitForShutoff(context.Background(), c, libvirt.Domain{Name: "web01"}, time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, 4, c.calls)
}

func TestWaitForShutoffAlreadyOff(t *testing.T) {
	c := &stateSeq{states: []int32{int32(libvirt.DomainShutoff)}}
	require.NoError(t, WaitForShutoff(context.Background(), c, libvirt.Domain{Name: "web01"}, time.Hour))
	assert.Equal(t, 1, c.calls)
}

func TestWaitForShutoffErrors(t *testing.T) {
	t.Run("state error", func(t *testing.T) {
		c := &stateSeq{err: errors.New("domain not found")}
		err := WaitForShutoff(context.Background(), c, libvirt.Domain{Name: "web01"}, time.Millisecond)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to get state of web01")
	})

	t.Run("cancelled", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()

		c := &stateSeq{states: []int32{int32(libvirt.DomainRunning)}}
		err := WaitForShutoff(ctx, c, libvirt.Domain{Name: "web01"}, time.Millisecond)
		require.ErrorIs(t, err, context.DeadlineExceeded)
	})
}

func TestStateName(t *testing.T) {
	tests := []struct {
		state int32
		want  string
	}{
		{int32(libvirt.DomainRunning), "running"},
		{int32(libvirt.DomainPaused), "paused"},
		{int32(libvirt.DomainShutoff), "shutoff"},
		{int32(libvirt.DomainPmsuspended), "pmsuspended"},
		{42, "unknown(42)"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, StateName(tt.state))
	}
}
