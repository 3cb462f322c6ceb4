// Package discovery advertises the tablet gateway and resolves the
// robot's address on the local network via a minimal mDNS-style UDP
// multicast exchange.
//
// No library in the example corpus touches mDNS/Zeroconf in any form, so
// this package is necessarily stdlib-only (net's UDP multicast support) —
// see DESIGN.md's internal/discovery entry for the no-fabrication
// rationale.
package discovery

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/Eden-sudo/UMEBOT-Robotics-Project/internal/umebot"
)

const (
	mdnsGroupAddr = "224.0.0.251:5353"
)

// Advertiser announces this host's service on the local network by
// responding to any datagram naming its service type with a short
// "present" reply, and by sending one unsolicited announcement on start;
// it does not re-announce periodically. This is a deliberately minimal subset of mDNS: enough for a
// robot and a gateway on the same LAN segment to find each other, not a
// general-purpose resolver.
type Advertiser struct {
	serviceType string
	selfAddr    string
	log         umebot.Logger

	conn *net.UDPConn
	stop chan struct{}
}

// NewAdvertiser constructs an Advertiser for serviceType (e.g.
// "_umebotlogics._tcp.local."), announcing selfAddr (host:port clients
// should connect to).
func NewAdvertiser(serviceType, selfAddr string, log umebot.Logger) *Advertiser {
	if log == nil {
		log = umebot.NoOpLogger{}
	}
	return &Advertiser{serviceType: serviceType, selfAddr: selfAddr, log: log, stop: make(chan struct{})}
}

// Start joins the mDNS multicast group and begins responding to queries.
func (a *Advertiser) Start() error {
	groupAddr, err := net.ResolveUDPAddr("udp4", mdnsGroupAddr)
	if err != nil {
		return fmt.Errorf("discovery: resolve multicast group: %w", err)
	}
	conn, err := net.ListenMulticastUDP("udp4", nil, groupAddr)
	if err != nil {
		return fmt.Errorf("discovery: join multicast group: %w", err)
	}
	a.conn = conn

	go a.serve()
	go a.announceOnce()
	return nil
}

// Stop leaves the multicast group.
func (a *Advertiser) Stop() {
	close(a.stop)
	if a.conn != nil {
		_ = a.conn.Close()
	}
}

func (a *Advertiser) serve() {
	buf := make([]byte, 512)
	for {
		select {
		case <-a.stop:
			return
		default:
		}
		_ = a.conn.SetReadDeadline(time.Now().Add(1 * time.Second))
		n, addr, err := a.conn.ReadFromUDP(buf)
		if err != nil {
			continue
		}
		query := string(buf[:n])
		if query != queryMessage(a.serviceType) {
			continue
		}
		reply := answerMessage(a.serviceType, a.selfAddr)
		if _, err := a.conn.WriteToUDP([]byte(reply), addr); err != nil {
			a.log.Warn("discovery: reply send failed", "err", err)
		}
	}
}

func (a *Advertiser) announceOnce() {
	groupAddr, err := net.ResolveUDPAddr("udp4", mdnsGroupAddr)
	if err != nil {
		return
	}
	msg := []byte(answerMessage(a.serviceType, a.selfAddr))
	_, _ = a.conn.WriteToUDP(msg, groupAddr)
}

// Resolve sends a query for serviceType and waits up to timeout for a
// reply, returning the advertised host:port. If ctx has an earlier deadline
// that deadline applies instead; cancelling ctx without a deadline does not
// end the wait.
func Resolve(ctx context.Context, serviceType string, timeout time.Duration) (string, error) {
	groupAddr, err := net.ResolveUDPAddr("udp4", mdnsGroupAddr)
	if err != nil {
		return "", fmt.Errorf("discovery: resolve multicast group: %w", err)
	}
	conn, err := net.ListenUDP("udp4", nil)
	if err != nil {
		return "", fmt.Errorf("discovery: open query socket: %w", err)
	}
	defer conn.Close()

	if _, err := conn.WriteToUDP([]byte(queryMessage(serviceType)), groupAddr); err != nil {
		return "", fmt.Errorf("discovery: send query: %w", err)
	}

	deadline := time.Now().Add(timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	_ = conn.SetReadDeadline(deadline)

	buf := make([]byte, 512)
	for {
		n, _, err := conn.ReadFromUDP(buf)
		if err != nil {
			return "", fmt.Errorf("discovery: resolve %s: %w", serviceType, err)
		}
		addr, ok := parseAnswer(string(buf[:n]), serviceType)
		if ok {
			return addr, nil
		}
	}
}

func queryMessage(serviceType string) string {
	return "UMEBOT-QUERY " + serviceType
}

func answerMessage(serviceType, addr string) string {
	return "UMEBOT-ANSWER " + serviceType + " " + addr
}

func parseAnswer(msg, serviceType string) (string, bool) {
	prefix := "UMEBOT-ANSWER " + serviceType + " "
	if len(msg) <= len(prefix) || msg[:len(prefix)] != prefix {
		return "", false
	}
	return msg[len(prefix):], true
}
