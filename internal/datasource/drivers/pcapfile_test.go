package drivers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSourcePath(t *testing.T) {
	path, err := parseSourcePath("pcapfile:source=/tmp/capture.pcap")
	require.NoError(t, err)
	assert.Equal(t, "/tmp/capture.pcap", path)
}

func TestParseSourcePath_TrailingOptions(t *testing.T) {
	path, err := parseSourcePath("pcapfile:source=/tmp/capture.pcap,name=test")
	require.NoError(t, err)
	assert.Equal(t, "/tmp/capture.pcap", path)
}

func TestParseSourcePath_MalformedRejected(t *testing.T) {
	_, err := parseSourcePath("notapcapfile:x")
	assert.Error(t, err)
}

func TestPcapFilePrototype_ProbeMatchesScheme(t *testing.T) {
	assert.True(t, PcapFilePrototype.Probe("pcapfile:source=/tmp/x.pcap"))
	assert.False(t, PcapFilePrototype.Probe("ipc:helper=/bin/x"))
}

func TestParseIPCDefinition(t *testing.T) {
	helper, source, err := parseIPCDefinition("ipc:helper=/usr/bin/kismet_cap_pcapfile,source=wlan0mon")
	require.NoError(t, err)
	assert.Equal(t, "/usr/bin/kismet_cap_pcapfile", helper)
	assert.Equal(t, "wlan0mon", source)
}

func TestParseIPCDefinition_MissingHelper(t *testing.T) {
	_, _, err := parseIPCDefinition("ipc:source=wlan0mon")
	assert.Error(t, err)
}
