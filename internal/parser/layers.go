package parser

import (
	"fmt"
	"net"
	"strings"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"

	"pcaptree/internal/models"
)

// tables holds the converters of the layer types with a dedicated field list.
var tables = map[gopacket.LayerType]func(gopacket.Layer) *models.Decoded{
	layers.LayerTypeEthernet: func(l gopacket.Layer) *models.Decoded { return parseEthernet(l.(*layers.Ethernet)) },
	layers.LayerTypeDot1Q:    func(l gopacket.Layer) *models.Decoded { return parseDot1Q(l.(*layers.Dot1Q)) },
	layers.LayerTypeARP:      func(l gopacket.Layer) *models.Decoded { return parseARP(l.(*layers.ARP)) },
	layers.LayerTypeIPv4:     func(l gopacket.Layer) *models.Decoded { return parseIPv4(l.(*layers.IPv4)) },
	layers.LayerTypeIPv6:     func(l gopacket.Layer) *models.Decoded { return parseIPv6(l.(*layers.IPv6)) },
	layers.LayerTypeTCP:      func(l gopacket.Layer) *models.Decoded { return parseTCP(l.(*layers.TCP)) },
	layers.LayerTypeUDP:      func(l gopacket.Layer) *models.Decoded { return parseUDP(l.(*layers.UDP)) },
	layers.LayerTypeICMPv4:   func(l gopacket.Layer) *models.Decoded { return parseICMPv4(l.(*layers.ICMPv4)) },
	layers.LayerTypeICMPv6:   func(l gopacket.Layer) *models.Decoded { return parseICMPv6(l.(*layers.ICMPv6)) },
	layers.LayerTypeDNS:      func(l gopacket.Layer) *models.Decoded { return parseDNS(l.(*layers.DNS)) },
}

func fields(spec ...any) []models.Field {
	out := make([]models.Field, 0, len(spec)/2)
	for i := 0; i+1 < len(spec); i += 2 {
		out = append(out, models.Field{Name: spec[i].(string), Format: spec[i+1].(models.Formatter)})
	}
	return out
}

var ethernetFields = fields(
	"dst", text,
	"src", text,
	"type", symbol(4),
	"len", models.Plain,
)

func parseEthernet(eth *layers.Ethernet) *models.Decoded {
	d := &models.Decoded{Name: "Ethernet", Fields: ethernetFields}
	d.Set("dst", eth.DstMAC)
	d.Set("src", eth.SrcMAC)
	d.Set("type", eth.EthernetType)
	// 802.3 frames carry a length instead of a type
	if eth.Length != 0 {
		d.Set("len", eth.Length)
	}
	return d
}

var dot1qFields = fields(
	"prio", models.Plain,
	"dei", models.Plain,
	"vlan", models.Plain,
	"type", symbol(4),
)

func parseDot1Q(q *layers.Dot1Q) *models.Decoded {
	d := &models.Decoded{Name: "Dot1Q", Fields: dot1qFields}
	d.Set("prio", q.Priority)
	d.Set("dei", q.DropEligible)
	d.Set("vlan", q.VLANIdentifier)
	d.Set("type", q.Type)
	return d
}

var arpFields = fields(
	"hwtype", symbol(4),
	"ptype", symbol(4),
	"hwlen", models.Plain,
	"plen", models.Plain,
	"op", models.FormatterFunc(func(v any) string {
		switch v {
		case uint16(layers.ARPRequest):
			return "who-has"
		case uint16(layers.ARPReply):
			return "is-at"
		}
		return text.Format(v)
	}),
	"hwsrc", text,
	"psrc", text,
	"hwdst", text,
	"pdst", text,
)

func parseARP(arp *layers.ARP) *models.Decoded {
	d := &models.Decoded{Name: "ARP", Fields: arpFields}
	d.Set("hwtype", arp.AddrType)
	d.Set("ptype", arp.Protocol)
	d.Set("hwlen", arp.HwAddressSize)
	d.Set("plen", arp.ProtAddressSize)
	d.Set("op", arp.Operation)
	d.Set("hwsrc", net.HardwareAddr(arp.SourceHwAddress))
	d.Set("psrc", net.IP(arp.SourceProtAddress))
	d.Set("hwdst", net.HardwareAddr(arp.DstHwAddress))
	d.Set("pdst", net.IP(arp.DstProtAddress))
	return d
}

var ipv4Fields = fields(
	"version", models.Plain,
	"ihl", models.Plain,
	"tos", hexNum(2),
	"len", models.Plain,
	"id", models.Plain,
	"flags", flagSet,
	"frag", models.Plain,
	"ttl", models.Plain,
	"proto", text,
	"chksum", hexNum(4),
	"src", text,
	"dst", text,
	"options", list,
)

func parseIPv4(ip *layers.IPv4) *models.Decoded {
	d := &models.Decoded{Name: "IPv4", Fields: ipv4Fields}
	d.Set("version", ip.Version)
	d.Set("ihl", ip.IHL)
	d.Set("tos", ip.TOS)
	d.Set("len", ip.Length)
	d.Set("id", ip.Id)
	d.Set("flags", ip.Flags)
	d.Set("frag", ip.FragOffset)
	d.Set("ttl", ip.TTL)
	d.Set("proto", ip.Protocol)
	d.Set("chksum", ip.Checksum)
	d.Set("src", ip.SrcIP)
	d.Set("dst", ip.DstIP)
	if len(ip.Options) > 0 {
		opts := make([]string, 0, len(ip.Options))
		for _, o := range ip.Options {
			opts = append(opts, fmt.Sprintf("%d:%x", o.OptionType, o.OptionData))
		}
		d.Set("options", opts)
	}
	return d
}

var ipv6Fields = fields(
	"version", models.Plain,
	"tc", hexNum(2),
	"fl", hexNum(5),
	"plen", models.Plain,
	"nh", text,
	"hlim", models.Plain,
	"src", text,
	"dst", text,
)

func parseIPv6(ip *layers.IPv6) *models.Decoded {
	d := &models.Decoded{Name: "IPv6", Fields: ipv6Fields}
	d.Set("version", ip.Version)
	d.Set("tc", ip.TrafficClass)
	d.Set("fl", ip.FlowLabel)
	d.Set("plen", ip.Length)
	d.Set("nh", ip.NextHeader)
	d.Set("hlim", ip.HopLimit)
	d.Set("src", ip.SrcIP)
	d.Set("dst", ip.DstIP)
	return d
}

var tcpFields = fields(
	"sport", number,
	"dport", number,
	"seq", models.Plain,
	"ack", models.Plain,
	"dataofs", models.Plain,
	"flags", flagSet,
	"window", models.Plain,
	"chksum", hexNum(4),
	"urgptr", models.Plain,
	"options", list,
)

func parseTCP(tcp *layers.TCP) *models.Decoded {
	d := &models.Decoded{Name: "TCP", Fields: tcpFields}
	d.Set("sport", tcp.SrcPort)
	d.Set("dport", tcp.DstPort)
	d.Set("seq", tcp.Seq)
	d.Set("ack", tcp.Ack)
	d.Set("dataofs", tcp.DataOffset)
	d.Set("flags", tcpFlags(tcp))
	d.Set("window", tcp.Window)
	d.Set("chksum", tcp.Checksum)
	d.Set("urgptr", tcp.Urgent)
	if len(tcp.Options) > 0 {
		opts := make([]string, 0, len(tcp.Options))
		for _, o := range tcp.Options {
			opts = append(opts, fmt.Sprintf("%s:%x", o.OptionType, o.OptionData))
		}
		d.Set("options", opts)
	}
	return d
}

// tcpFlags spells the set flags with their one-letter names.
func tcpFlags(tcp *layers.TCP) string {
	var sb strings.Builder
	for _, f := range []struct {
		set    bool
		letter byte
	}{
		{tcp.FIN, 'F'}, {tcp.SYN, 'S'}, {tcp.RST, 'R'}, {tcp.PSH, 'P'},
		{tcp.ACK, 'A'}, {tcp.URG, 'U'}, {tcp.ECE, 'E'}, {tcp.CWR, 'C'}, {tcp.NS, 'N'},
	} {
		if f.set {
			sb.WriteByte(f.letter)
		}
	}
	return sb.String()
}

var udpFields = fields(
	"sport", number,
	"dport", number,
	"len", models.Plain,
	"chksum", hexNum(4),
)

func parseUDP(udp *layers.UDP) *models.Decoded {
	d := &models.Decoded{Name: "UDP", Fields: udpFields}
	d.Set("sport", udp.SrcPort)
	d.Set("dport", udp.DstPort)
	d.Set("len", udp.Length)
	d.Set("chksum", udp.Checksum)
	return d
}

var icmpv4Fields = fields(
	"type", text,
	"code", models.Plain,
	"chksum", hexNum(4),
	"id", models.Plain,
	"seq", models.Plain,
)

func parseICMPv4(icmp *layers.ICMPv4) *models.Decoded {
	d := &models.Decoded{Name: "ICMPv4", Fields: icmpv4Fields}
	d.Set("type", icmp.TypeCode)
	d.Set("code", icmp.TypeCode.Code())
	d.Set("chksum", icmp.Checksum)
	d.Set("id", icmp.Id)
	d.Set("seq", icmp.Seq)
	return d
}

var icmpv6Fields = fields(
	"type", text,
	"code", models.Plain,
	"chksum", hexNum(4),
)

func parseICMPv6(icmp *layers.ICMPv6) *models.Decoded {
	d := &models.Decoded{Name: "ICMPv6", Fields: icmpv6Fields}
	d.Set("type", icmp.TypeCode)
	d.Set("code", icmp.TypeCode.Code())
	d.Set("chksum", icmp.Checksum)
	return d
}

var dnsFields = fields(
	"id", models.Plain,
	"qr", models.Plain,
	"opcode", text,
	"aa", models.Plain,
	"tc", models.Plain,
	"rd", models.Plain,
	"ra", models.Plain,
	"z", models.Plain,
	"rcode", text,
	"qdcount", models.Plain,
	"ancount", models.Plain,
	"nscount", models.Plain,
	"arcount", models.Plain,
	"qd", list,
	"an", list,
)

func parseDNS(dns *layers.DNS) *models.Decoded {
	d := &models.Decoded{Name: "DNS", Fields: dnsFields}
	d.Set("id", dns.ID)
	d.Set("qr", dns.QR)
	d.Set("opcode", dns.OpCode)
	d.Set("aa", dns.AA)
	d.Set("tc", dns.TC)
	d.Set("rd", dns.RD)
	d.Set("ra", dns.RA)
	d.Set("z", dns.Z)
	d.Set("rcode", dns.ResponseCode)
	d.Set("qdcount", dns.QDCount)
	d.Set("ancount", dns.ANCount)
	d.Set("nscount", dns.NSCount)
	d.Set("arcount", dns.ARCount)

	if len(dns.Questions) > 0 {
		qd := make([]string, 0, len(dns.Questions))
		for _, q := range dns.Questions {
			qd = append(qd, fmt.Sprintf("%s %s %s", q.Name, q.Type, q.Class))
		}
		d.Set("qd", qd)
	}
	if len(dns.Answers) > 0 {
		an := make([]string, 0, len(dns.Answers))
		for _, a := range dns.Answers {
			an = append(an, fmt.Sprintf("%s %s ttl=%d %s", a.Name, a.Type, a.TTL, answerData(a)))
		}
		d.Set("an", an)
	}
	return d
}

func answerData(a layers.DNSResourceRecord) string {
	switch {
	case a.IP != nil:
		return a.IP.String()
	case len(a.CNAME) > 0:
		return string(a.CNAME)
	case len(a.NS) > 0:
		return string(a.NS)
	case len(a.PTR) > 0:
		return string(a.PTR)
	default:
		return fmt.Sprintf("%x", a.Data)
	}
}
