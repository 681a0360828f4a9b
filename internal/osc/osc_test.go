package osc

import (
	"bytes"
	"net"
	"testing"
	"time"

	"github.com/ayusman/mudra/internal/bus"
	"github.com/ayusman/mudra/internal/gesture"
	"github.com/ayusman/mudra/internal/smoothing"
)

// listenUDP opens a loopback UDP socket and returns it with its port.
func listenUDP(t *testing.T) (*net.UDPConn, int) {
	t.Helper()
	conn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn, conn.LocalAddr().(*net.UDPAddr).Port
}

func readPacket(t *testing.T, conn *net.UDPConn) []byte {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	buf := make([]byte, 1024)
	n, _, err := conn.ReadFromUDP(buf)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	return buf[:n]
}

func TestActionSinkSendsLabelAddress(t *testing.T) {
	conn, port := listenUDP(t)
	sink := NewActionSink("127.0.0.1", port)

	ev := gesture.Event{
		Label:   gesture.LabelFireClip,
		Code:    gesture.LabelFireClip.Code(),
		Role:    gesture.RoleRight,
		FiredAt: time.Now(),
	}
	if err := sink.Deliver(bus.Envelope{Topic: bus.TopicGestureActions, Payload: ev}); err != nil {
		t.Fatal(err)
	}

	pkt := readPacket(t, conn)
	if !bytes.HasPrefix(pkt, []byte("/clip/fire")) {
		t.Fatalf("packet does not start with the action address: %q", pkt)
	}
	if !bytes.Contains(pkt, []byte(",i")) {
		t.Fatalf("packet has no int32 type tag: %q", pkt)
	}
}

func TestSpatialSinkSendsFloatTriple(t *testing.T) {
	conn, port := listenUDP(t)
	sink := NewSpatialSink("127.0.0.1", port)

	c := smoothing.Coordinate{X: 0.25, Y: 0.5, Z: 0.75, At: time.Now()}
	if err := sink.Deliver(bus.Envelope{Topic: bus.TopicSpatial, Payload: c}); err != nil {
		t.Fatal(err)
	}

	pkt := readPacket(t, conn)
	if !bytes.HasPrefix(pkt, []byte(SpatialAddress)) {
		t.Fatalf("packet does not start with %s: %q", SpatialAddress, pkt)
	}
	if !bytes.Contains(pkt, []byte(",fff")) {
		t.Fatalf("packet has no float triple type tag: %q", pkt)
	}
}

func TestSinksIgnoreForeignPayloads(t *testing.T) {
	_, port := listenUDP(t)

	action := NewActionSink("127.0.0.1", port)
	spatial := NewSpatialSink("127.0.0.1", port)

	if err := action.Deliver(bus.Envelope{Payload: "not an event"}); err != nil {
		t.Errorf("action sink: %v", err)
	}
	if err := spatial.Deliver(bus.Envelope{Payload: 42}); err != nil {
		t.Errorf("spatial sink: %v", err)
	}
}
