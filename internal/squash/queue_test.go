package squash

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestQueueOrder(t *testing.T) {
	var q Queue
	require.Nil(t, q.PeekFront())
	require.Nil(t, q.PopFront())

	for i := int64(0); i < 40; i++ {
		q.Push(&Packet{DTS: i}, false)
	}
	q.Push(&Packet{DTS: -1}, true)
	q.Push(&Packet{DTS: -2}, true)

	require.Equal(t, 42, q.Len())
	require.Equal(t, int64(-2), q.PeekFront().DTS)

	for i := int64(-2); i < 40; i++ {
		pkt := q.PopFront()
		require.Equal(t, i, pkt.DTS)
	}

	require.Equal(t, 0, q.Len())
	require.Nil(t, q.PopFront())
}

func TestQueueAgainstSlice(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	var q Queue
	var model []int64

	for i := 0; i < 5000; i++ {
		switch rng.Intn(3) {
		case 0:
			v := rng.Int63n(1000)
			q.Push(&Packet{DTS: v}, false)
			model = append(model, v)

		case 1:
			v := rng.Int63n(1000)
			q.Push(&Packet{DTS: v}, true)
			model = append([]int64{v}, model...)

		case 2:
			pkt := q.PopFront()
			if len(model) == 0 {
				require.Nil(t, pkt)
			} else {
				require.Equal(t, model[0], pkt.DTS)
				model = model[1:]
			}
		}

		require.Equal(t, len(model), q.Len())
	}
}

func TestPacketClone(t *testing.T) {
	pkt := &Packet{DTS: 10, PTS: 10, Duration: 5, Payload: []byte("abc")}
	c := pkt.Clone()
	c.Payload[0] = 'x'
	c.DTS = 20

	require.Equal(t, []byte("abc"), pkt.Payload)
	require.Equal(t, int64(10), pkt.DTS)
	require.Equal(t, int64(25), c.End())
}
