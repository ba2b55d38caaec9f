package parser

import (
	"encoding/hex"
	"net"
	"strings"
	"testing"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pcaptree/internal/models"
	"pcaptree/internal/render"
)

var (
	srcMAC = net.HardwareAddr{0x00, 0x11, 0x22, 0x33, 0x44, 0x55}
	dstMAC = net.HardwareAddr{0xff, 0xff, 0xff, 0xff, 0xff, 0xff}
)

func serialize(t *testing.T, ls ...gopacket.SerializableLayer) []byte {
	t.Helper()
	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true}
	require.NoError(t, gopacket.SerializeLayers(buf, opts, ls...))
	return buf.Bytes()
}

func udpFrame(t *testing.T, payload []byte) []byte {
	eth := &layers.Ethernet{SrcMAC: srcMAC, DstMAC: dstMAC, EthernetType: layers.EthernetTypeIPv4}
	ip := &layers.IPv4{
		Version:  4,
		TTL:      64,
		Protocol: layers.IPProtocolUDP,
		SrcIP:    net.IP{10, 0, 0, 1},
		DstIP:    net.IP{10, 0, 0, 2},
	}
	udp := &layers.UDP{SrcPort: 40000, DstPort: 40001}
	require.NoError(t, udp.SetNetworkLayerForChecksum(ip))
	return serialize(t, eth, ip, udp, gopacket.Payload(payload))
}

func lines(l models.Layer) []string {
	return render.NewRenderer(render.Painter{}, render.DefaultIndent).Lines(l)
}

func TestDissectUDPChain(t *testing.T) {
	payload := []byte("hello from pcaptree")
	out := lines(NewDissector().Dissect(udpFrame(t, payload), models.LinkTypeEthernet))
	require.Len(t, out, 4)
	assert.Equal(t, "Ethernet dst=ff:ff:ff:ff:ff:ff src=00:11:22:33:44:55 type=IPv4(0x0800)", out[0])
	assert.True(t, strings.HasPrefix(out[1], "    IPv4 version=4 ihl=5 "), out[1])
	assert.Contains(t, out[1], "ttl=64")
	assert.Contains(t, out[1], "proto=UDP")
	assert.Contains(t, out[1], " flags=0 frag=0 ")
	assert.Contains(t, out[1], "src=10.0.0.1 dst=10.0.0.2")
	assert.NotContains(t, out[1], "options=")
	assert.True(t, strings.HasPrefix(out[2], "        UDP sport=40000 dport=40001 len=27 chksum=0x"), out[2])
	assert.Equal(t, "            "+hex.EncodeToString(payload), out[3])
}

func TestDissectShowsPadding(t *testing.T) {
	data := udpFrame(t, nil)
	require.Len(t, data, 60)
	for i := 42; i < len(data); i++ {
		data[i] = byte(0xd0 + i - 42)
	}

	out := lines(NewDissector().Dissect(data, models.LinkTypeEthernet))
	require.Len(t, out, 4)
	assert.True(t, strings.HasPrefix(out[2], "        UDP sport=40000 dport=40001 len=8 "), out[2])
	assert.Equal(t, "            Padding load="+hex.EncodeToString(data[42:]), out[3])
}

func TestDissectRawPayloadBeforePadding(t *testing.T) {
	data := udpFrame(t, []byte("hello"))
	require.Len(t, data, 60)

	out := lines(NewDissector().Dissect(data, models.LinkTypeEthernet))
	require.Len(t, out, 5)
	assert.Equal(t, "            Raw load=68656c6c6f", out[3])
	assert.Equal(t, "                Padding load="+hex.EncodeToString(make([]byte, 13)), out[4])
}

func TestDissectTruncatedHeader(t *testing.T) {
	frame := udpFrame(t, []byte("hello"))[:20]

	out := lines(NewDissector().Dissect(frame, models.LinkTypeEthernet))
	require.Len(t, out, 2)
	assert.Equal(t, "Ethernet dst=ff:ff:ff:ff:ff:ff src=00:11:22:33:44:55 type=IPv4(0x0800)", out[0])
	assert.Equal(t, "    "+hex.EncodeToString(frame[14:]), out[1])
	assert.NotContains(t, strings.Join(out, "\n"), "IPv4 version")
}

func TestDissectBindsOverloadedFields(t *testing.T) {
	chain := NewDissector().Dissect(udpFrame(t, []byte("x")), models.LinkTypeEthernet)

	eth, ok := chain.(*models.Decoded)
	require.True(t, ok)
	assert.Equal(t, layers.EthernetTypeIPv4, eth.Overloaded["type"])
	assert.Equal(t, models.Direct, eth.Lookup("type").Kind)

	ip, ok := eth.Payload.(*models.Decoded)
	require.True(t, ok)
	assert.Equal(t, layers.IPProtocolUDP, ip.Overloaded["proto"])
}

func TestDissectTCPOptions(t *testing.T) {
	eth := &layers.Ethernet{SrcMAC: srcMAC, DstMAC: dstMAC, EthernetType: layers.EthernetTypeIPv4}
	ip := &layers.IPv4{Version: 4, TTL: 1, Protocol: layers.IPProtocolTCP, SrcIP: net.IP{1, 1, 1, 1}, DstIP: net.IP{2, 2, 2, 2}}
	tcp := &layers.TCP{
		SrcPort: 40000,
		DstPort: 40002,
		Seq:     7,
		SYN:     true,
		Window:  1024,
		Options: []layers.TCPOption{{OptionType: layers.TCPOptionKindMSS, OptionLength: 4, OptionData: []byte{0x05, 0xb4}}},
	}
	require.NoError(t, tcp.SetNetworkLayerForChecksum(ip))

	// 58 bytes of headers, padded to the 60 byte minimum
	out := lines(NewDissector().Dissect(serialize(t, eth, ip, tcp), models.LinkTypeEthernet))
	require.Len(t, out, 4)
	assert.True(t, strings.HasPrefix(out[2], "        TCP sport=40000 dport=40002 seq=7 "), out[2])
	assert.Contains(t, out[2], "flags=S ")
	assert.Contains(t, out[2], "options=[MSS:05b4]")
	assert.Equal(t, "            Padding load=0000", out[3])
}

func TestDissectARP(t *testing.T) {
	eth := &layers.Ethernet{SrcMAC: srcMAC, DstMAC: dstMAC, EthernetType: layers.EthernetTypeARP}
	arp := &layers.ARP{
		AddrType:          layers.LinkTypeEthernet,
		Protocol:          layers.EthernetTypeIPv4,
		HwAddressSize:     6,
		ProtAddressSize:   4,
		Operation:         layers.ARPRequest,
		SourceHwAddress:   srcMAC,
		SourceProtAddress: []byte{10, 0, 0, 1},
		DstHwAddress:      []byte{0, 0, 0, 0, 0, 0},
		DstProtAddress:    []byte{10, 0, 0, 9},
	}
	out := lines(NewDissector().Dissect(serialize(t, eth, arp), models.LinkTypeEthernet))
	require.GreaterOrEqual(t, len(out), 2)
	assert.Contains(t, out[0], "type=ARP(0x0806)")
	assert.Contains(t, out[1], "op=who-has")
	assert.Contains(t, out[1], "hwsrc=00:11:22:33:44:55")
	assert.Contains(t, out[1], "psrc=10.0.0.1")
	assert.Contains(t, out[1], "pdst=10.0.0.9")
}

func TestDissectShortFrameIsRaw(t *testing.T) {
	data := []byte{0x01, 0x02, 0x03}
	got := NewDissector().Dissect(data, models.LinkTypeEthernet)
	assert.Equal(t, models.Raw(data), got)
	assert.Equal(t, []string{"010203"}, lines(got))
}

func TestDissectOutOfRangeLinkType(t *testing.T) {
	data := []byte{0xde, 0xad}
	assert.Equal(t, models.Raw(data), NewDissector().Dissect(data, models.LinkType(300)))
	assert.Nil(t, NewDissector().Dissect(nil, models.LinkType(300)))
}

func TestGenericLayer(t *testing.T) {
	d := generic(&layers.LLC{DSAP: 0xaa, SSAP: 0xab, Control: 3})
	assert.True(t, d.Generic)
	assert.Equal(t, "LLC", d.Name)
	assert.True(t, d.Declares("dsap"))
	assert.True(t, d.Declares("control"))
	assert.False(t, d.Declares("contents"))

	out := lines(d)
	require.Len(t, out, 1)
	assert.Contains(t, out[0], "dsap=170")
	assert.Contains(t, out[0], "control=3")
}

func TestFormatters(t *testing.T) {
	assert.Equal(t, "0x0a", hexNum(2).Format(uint8(10)))
	assert.Equal(t, "0x00ff", hexNum(4).Format(255))
	assert.Equal(t, "abc", hexNum(4).Format("abc"))
	assert.Equal(t, "IPv6(0x86dd)", symbol(4).Format(layers.EthernetTypeIPv6))
	assert.Equal(t, `bad\x00name`, text.Format("bad\x00name"))
	assert.Equal(t, "[a, b]", list.Format([]string{"a", "b"}))
	assert.Equal(t, "53", number.Format(layers.UDPPort(53)))
	assert.Equal(t, "443", number.Format(layers.TCPPort(443)))
	assert.Equal(t, "0", flagSet.Format(layers.IPv4Flag(0)))
	assert.Equal(t, "DF", flagSet.Format(layers.IPv4DontFragment))
}
