package ipc

import (
	"encoding/json"
	"net"
	"testing"
	"time"
)

func TestHandleConnRepliesToCommand(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()

	done := make(chan struct{})
	go func() {
		handleConn(server, func(msg ControlMessage) Reply {
			return Reply{OK: true, Detail: "got " + msg.Cmd}
		})
		close(done)
	}()

	if err := json.NewEncoder(client).Encode(ControlMessage{Cmd: "status"}); err != nil {
		t.Fatalf("encode: %v", err)
	}
	var reply Reply
	if err := json.NewDecoder(client).Decode(&reply); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !reply.OK || reply.Detail != "got status" {
		t.Errorf("reply: %+v", reply)
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("handler did not return")
	}
}

func TestHandleConnReleasesSilentClient(t *testing.T) {
	orig := readTimeout
	readTimeout = 50 * time.Millisecond
	defer func() { readTimeout = orig }()

	client, server := net.Pipe()
	defer client.Close()

	done := make(chan struct{})
	go func() {
		handleConn(server, func(ControlMessage) Reply {
			t.Error("handler invoked without a command")
			return Reply{}
		})
		close(done)
	}()

	// the client connects and never sends anything
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("silent client pinned the handler goroutine")
	}
}
