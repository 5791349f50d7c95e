package playback

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voicebridge/audio"
)

// fakeOutput records Play calls and lets the test decide when each buffer
// finishes rendering.
type fakeOutput struct {
	mu     sync.Mutex
	played [][]int16
	dones  []func()
}

func (f *fakeOutput) Play(samples []int16, done func()) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.played = append(f.played, samples)
	f.dones = append(f.dones, done)
	return nil
}

func (f *fakeOutput) Close() error { return nil }

func (f *fakeOutput) playCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.played)
}

func (f *fakeOutput) finish(i int) {
	f.mu.Lock()
	done := f.dones[i]
	f.mu.Unlock()
	if done != nil {
		done()
	}
}

func pcmDecoder(t *testing.T) *audio.Decoder {
	dec, err := audio.NewDecoder(audio.FormatPCM16)
	require.NoError(t, err)
	return dec
}

func TestOverlapRendersImmediately(t *testing.T) {
	out := &fakeOutput{}
	p := NewPlayer(pcmDecoder(t), out, PolicyOverlap, nil)

	var mu sync.Mutex
	starts, dones := 0, 0
	p.OnStart = func() { mu.Lock(); starts++; mu.Unlock() }
	p.OnDone = func() { mu.Lock(); dones++; mu.Unlock() }

	p.Play([]byte{1, 0, 2, 0})
	p.Play([]byte{3, 0, 4, 0}) // second payload while first still rendering

	assert.Equal(t, 2, out.playCount())
	mu.Lock()
	assert.Equal(t, 2, starts)
	assert.Equal(t, 0, dones)
	mu.Unlock()

	out.finish(0)
	out.finish(1)
	mu.Lock()
	assert.Equal(t, 2, dones)
	mu.Unlock()
}

func TestQueueSerializes(t *testing.T) {
	out := &fakeOutput{}
	p := NewPlayer(pcmDecoder(t), out, PolicyQueue, nil)
	defer p.Close()

	p.Play([]byte{1, 0})
	p.Play([]byte{2, 0})

	// Only the first payload reaches the device until it completes.
	require.Eventually(t, func() bool { return out.playCount() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 1, out.playCount())

	out.finish(0)
	require.Eventually(t, func() bool { return out.playCount() == 2 }, time.Second, 5*time.Millisecond)
}

func TestDecodeFailureSkipsRender(t *testing.T) {
	out := &fakeOutput{}
	p := NewPlayer(pcmDecoder(t), out, PolicyOverlap, nil)

	started := false
	p.OnStart = func() { started = true }

	p.Play([]byte{1, 0, 2}) // odd length: decode failure
	assert.Equal(t, 0, out.playCount())
	assert.False(t, started)
}

func TestCloseIsIdempotent(t *testing.T) {
	p := NewPlayer(pcmDecoder(t), &fakeOutput{}, PolicyQueue, nil)
	require.NoError(t, p.Close())
	require.NoError(t, p.Close())
}
