package main

import (
	"fmt"
	"os"

	"scribe/internal/ipc"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: scribe-ctl <status|flush|sync>")
		os.Exit(2)
	}

	reply, err := ipc.SendCommand(os.Args[1])
	if err != nil {
		fmt.Fprintln(os.Stderr, "scribe-ctl:", err)
		os.Exit(1)
	}
	if !reply.OK {
		fmt.Fprintln(os.Stderr, "daemon:", reply.Detail)
		os.Exit(1)
	}
	if reply.Detail != "" {
		fmt.Println(reply.Detail)
	}
}
