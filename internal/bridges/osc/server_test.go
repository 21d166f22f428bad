package osc

import (
	"net"
	"testing"
	"time"
)

func startTestServer(t *testing.T) *Server {
	t.Helper()

	server, err := Listen(ServerConfig{Host: "127.0.0.1", Port: 0, ReadTimeout: 100 * time.Millisecond})
	if err != nil {
		t.Fatalf("Listen() error = %v", err)
	}
	t.Cleanup(func() { server.Close() })
	return server
}

func TestServer_ReceivesMessages(t *testing.T) {
	server := startTestServer(t)

	received := make(chan Message, 1)
	server.SetOnMessage(func(msg Message, _ *net.UDPAddr) {
		received <- msg
	})

	conn, err := net.DialUDP("udp", nil, server.LocalAddr())
	if err != nil {
		t.Fatalf("DialUDP() error = %v", err)
	}
	defer conn.Close()

	buf, err := Encode(NewMessage("/sw/flipperL", float32(1.0)))
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	if _, err := conn.Write(buf); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	select {
	case msg := <-received:
		if msg.Address != "/sw/flipperL" {
			t.Errorf("Address = %q, want /sw/flipperL", msg.Address)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for message")
	}
}

func TestServer_SurvivesGarbageDatagram(t *testing.T) {
	server := startTestServer(t)

	received := make(chan Message, 1)
	server.SetOnMessage(func(msg Message, _ *net.UDPAddr) {
		received <- msg
	})

	conn, err := net.DialUDP("udp", nil, server.LocalAddr())
	if err != nil {
		t.Fatalf("DialUDP() error = %v", err)
	}
	defer conn.Close()

	// Garbage first: must be counted and dropped, not kill the loop.
	if _, err := conn.Write([]byte{0xde, 0xad, 0xbe, 0xef}); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	buf, err := Encode(NewMessage("/coil/slingL"))
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	if _, err := conn.Write(buf); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	select {
	case msg := <-received:
		if msg.Address != "/coil/slingL" {
			t.Errorf("Address = %q, want /coil/slingL", msg.Address)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("server stopped receiving after garbage datagram")
	}

	if server.Stats().DecodeErrors == 0 {
		t.Error("decode error should be counted")
	}
}

func TestServer_SendRoundTrip(t *testing.T) {
	server := startTestServer(t)

	peer, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		t.Fatalf("ListenUDP() error = %v", err)
	}
	defer peer.Close()

	peerAddr, _ := peer.LocalAddr().(*net.UDPAddr)
	if err := server.Send(NewMessage("/led-label/topLeftInsert/255"), peerAddr); err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	if err := peer.SetReadDeadline(time.Now().Add(2 * time.Second)); err != nil {
		t.Fatalf("SetReadDeadline() error = %v", err)
	}
	buf := make([]byte, readBufferSize)
	n, _, err := peer.ReadFromUDP(buf)
	if err != nil {
		t.Fatalf("ReadFromUDP() error = %v", err)
	}

	msg, err := Decode(buf[:n])
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if msg.Address != "/led-label/topLeftInsert/255" {
		t.Errorf("Address = %q", msg.Address)
	}
	if server.Stats().PacketsTx != 1 {
		t.Errorf("PacketsTx = %d, want 1", server.Stats().PacketsTx)
	}
}

func TestServer_SendAfterClose(t *testing.T) {
	server, err := Listen(ServerConfig{Host: "127.0.0.1", Port: 0, ReadTimeout: 50 * time.Millisecond})
	if err != nil {
		t.Fatalf("Listen() error = %v", err)
	}

	if err := server.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	// Close is idempotent.
	if err := server.Close(); err != nil {
		t.Fatalf("second Close() error = %v", err)
	}

	addr := udpAddr(t, "127.0.0.1:9000")
	if err := server.Send(NewMessage("/sw/flipperL", float32(1)), addr); err != ErrServerClosed {
		t.Errorf("Send() after close = %v, want ErrServerClosed", err)
	}
}

func TestServer_SendNilAddr(t *testing.T) {
	server := startTestServer(t)

	if err := server.Send(NewMessage("/sw/flipperL", float32(1)), nil); err != ErrNotBound {
		t.Errorf("Send(nil addr) = %v, want ErrNotBound", err)
	}
}
