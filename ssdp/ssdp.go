package ssdp

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/anacrolix/log"
	"golang.org/x/net/ipv4"
)

const (
	AddrString   = "239.255.255.250:1900"
	searchTarget = "ssdp:all"
	// MX caps how long devices may delay their responses; the protocol
	// allows at most 5 seconds.
	maxMX = 5
)

var NetAddr *net.UDPAddr

func init() {
	var err error
	NetAddr, err = net.ResolveUDPAddr("udp4", AddrString)
	if err != nil {
		panic(err)
	}
}

// Response is one device's answer to an M-SEARCH.
type Response struct {
	Location string
	Server   string
	ST       string
	USN      string
}

func makeSearchMessage(mx int) []byte {
	lines := [...][2]string{
		{"HOST", AddrString},
		{"MAN", `"ssdp:discover"`},
		{"MX", fmt.Sprintf("%d", mx)},
		{"ST", searchTarget},
	}
	buf := &bytes.Buffer{}
	fmt.Fprint(buf, "M-SEARCH * HTTP/1.1\r\n")
	for _, pair := range lines {
		fmt.Fprintf(buf, "%s: %s\r\n", pair[0], pair[1])
	}
	fmt.Fprint(buf, "\r\n")
	return buf.Bytes()
}

func parseResponse(raw []byte) (ret Response, err error) {
	resp, err := http.ReadResponse(bufio.NewReader(bytes.NewReader(raw)), nil)
	if err != nil {
		return
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		err = fmt.Errorf("search response status %s", resp.Status)
		return
	}
	ret = Response{
		Location: resp.Header.Get("Location"),
		Server:   resp.Header.Get("Server"),
		ST:       resp.Header.Get("ST"),
		USN:      resp.Header.Get("USN"),
	}
	return
}

// Discover multicasts one M-SEARCH and collects responses until the timeout
// elapses. Responses are deduplicated by description location; malformed
// datagrams are skipped, not fatal.
func Discover(ctx context.Context, timeout time.Duration, logger log.Logger) ([]Response, error) {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	conn, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4zero})
	if err != nil {
		return nil, err
	}
	defer conn.Close()
	p := ipv4.NewPacketConn(conn)
	if err := p.SetMulticastTTL(2); err != nil {
		logger.Levelf(log.Debug, "set multicast ttl: %v", err)
	}
	mx := int(timeout / time.Second)
	if mx < 1 {
		mx = 1
	}
	if mx > maxMX {
		mx = maxMX
	}
	if _, err := conn.WriteToUDP(makeSearchMessage(mx), NetAddr); err != nil {
		return nil, err
	}
	deadline := time.Now().Add(timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := conn.SetReadDeadline(deadline); err != nil {
		return nil, err
	}
	seen := make(map[string]bool)
	var ret []Response
	buf := make([]byte, 65536)
	for {
		n, addr, err := conn.ReadFromUDP(buf)
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				return ret, nil
			}
			return ret, err
		}
		resp, err := parseResponse(buf[:n])
		if err != nil {
			logger.Levelf(log.Debug, "bad ssdp response from %s: %v", addr, err)
			continue
		}
		if resp.Location == "" || seen[resp.Location] {
			continue
		}
		seen[resp.Location] = true
		logger.Levelf(log.Debug, "ssdp response from %s: %s", addr, resp.Location)
		ret = append(ret, resp)
	}
}
