package capture

import (
	"bytes"
	"testing"

	"github.com/google/gopacket/layers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteReadsBack(t *testing.T) {
	payloads := [][]byte{
		{0xde, 0xad, 0xbe, 0xef},
		{},
		bytes.Repeat([]byte{0x11}, DefaultSnapLen+10),
	}

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, layers.LinkTypeRaw, payloads))

	f, err := Open(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, layers.LinkTypeRaw, f.Header().LinkType())
	assert.False(t, f.Header().Nanosecond())
	assert.Equal(t, uint32(DefaultSnapLen+10), f.Header().SnapLen)

	pkts, err := f.Collect()
	require.NoError(t, err)
	require.Len(t, pkts, len(payloads))
	for i, p := range pkts {
		assert.Equal(t, len(payloads[i]), len(p.Data))
		assert.True(t, bytes.Equal(payloads[i], p.Data), "packet %d", i)
		assert.Equal(t, uint32(i), p.Fraction)
	}
}

func TestWriteEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, layers.LinkTypeEthernet, nil))
	assert.Equal(t, globalHeaderLen, buf.Len())
}
