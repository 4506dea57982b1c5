package ipc

import (
	"encoding/json"
	"fmt"
	"net"
	"os"
	"time"
)

const SocketPath = "/tmp/scribe.sock"

// readTimeout bounds how long a connected client may stay silent before
// its handler goroutine is released.
var readTimeout = 5 * time.Second

type ControlMessage struct {
	Cmd string `json:"cmd"`
}

type Reply struct {
	OK     bool   `json:"ok"`
	Detail string `json:"detail,omitempty"`
}

// StartServer listens on the control socket and invokes handler per
// command. The handler's reply is written back to the client.
func StartServer(handler func(ControlMessage) Reply) error {
	os.Remove(SocketPath)

	ln, err := net.Listen("unix", SocketPath)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				continue
			}
			go handleConn(conn, handler)
		}
	}()

	return nil
}

func handleConn(conn net.Conn, handler func(ControlMessage) Reply) {
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(readTimeout))

	var msg ControlMessage
	if err := json.NewDecoder(conn).Decode(&msg); err != nil {
		return
	}
	reply := handler(msg)
	_ = json.NewEncoder(conn).Encode(reply)
}

// SendCommand delivers one command to a running daemon and returns its
// reply.
func SendCommand(cmd string) (Reply, error) {
	conn, err := net.Dial("unix", SocketPath)
	if err != nil {
		return Reply{}, err
	}
	defer conn.Close()

	if err := json.NewEncoder(conn).Encode(ControlMessage{Cmd: cmd}); err != nil {
		return Reply{}, err
	}

	var reply Reply
	if err := json.NewDecoder(conn).Decode(&reply); err != nil {
		return Reply{}, err
	}
	return reply, nil
}
