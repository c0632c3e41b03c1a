package secure

import (
	"errors"
	"net"
	"testing"
	"time"
)

func TestWithIOTimeoutBoundsReads(t *testing.T) {
	client, server := net.Pipe()
	defer server.Close()

	c := WithIOTimeout(client, 50*time.Millisecond)

	start := time.Now()
	_, err := c.Read(make([]byte, 1))
	if err == nil {
		t.Fatal("Read returned without the peer sending anything")
	}
	var netErr net.Error
	if !errors.As(err, &netErr) || !netErr.Timeout() {
		t.Fatalf("error is not a timeout: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Fatalf("Read blocked %v before timing out", elapsed)
	}
}

func TestWithIOTimeoutBoundsWrites(t *testing.T) {
	client, server := net.Pipe()
	defer server.Close()

	c := WithIOTimeout(client, 50*time.Millisecond)

	// The peer never reads, so the unbuffered pipe blocks the write.
	_, err := c.Write([]byte("USER alice\r\n"))
	if err == nil {
		t.Fatal("Write returned without the peer reading")
	}
	var netErr net.Error
	if !errors.As(err, &netErr) || !netErr.Timeout() {
		t.Fatalf("error is not a timeout: %v", err)
	}
}
