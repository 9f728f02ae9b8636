// Command captchaclient is an interactive demo client for the captcha
// server. It requests a challenge, saves the rendered document to an HTML
// file for viewing in a browser, reads the solution from stdin, and submits
// it for verification.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net"
	"os"
	"strings"
	"time"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"

	"github.com/dodocap/captcha-server/internal/protocol"
)

func main() {
	url := flag.String("url", "ws://localhost:1337/ws", "captcha server WebSocket URL")
	out := flag.String("out", "challenge.html", "file to write the challenge document to")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	conn, _, _, err := ws.Dial(ctx, *url)
	cancel()
	if err != nil {
		log.Fatalf("dial %s: %v", *url, err)
	}
	defer conn.Close()

	msgCh := make(chan protocol.Message, 8)
	go readLoop(conn, msgCh)

	if err := send(conn, protocol.Message{Type: protocol.TypeGetChallenge}); err != nil {
		log.Fatalf("request challenge: %v", err)
	}

	stdin := bufio.NewReader(os.Stdin)
	for msg := range msgCh {
		switch msg.Type {
		case protocol.TypeChallenge:
			if err := os.WriteFile(*out, []byte(msg.Params), 0o644); err != nil {
				log.Fatalf("write challenge document: %v", err)
			}
			fmt.Printf("challenge saved to %s, open it in a browser\n", *out)
			fmt.Print("enter the code: ")

			line, err := stdin.ReadString('\n')
			if err != nil {
				log.Fatalf("read answer: %v", err)
			}
			answer := strings.TrimSpace(line)
			if err := send(conn, protocol.Message{Type: protocol.TypeCheckResult, Params: answer}); err != nil {
				log.Fatalf("submit solution: %v", err)
			}

		case protocol.TypeVerified:
			fmt.Printf("verified! token: %s\n", msg.Params)
			return

		case protocol.TypeNotVerified:
			fmt.Println("not verified, requesting a fresh challenge")
			if err := send(conn, protocol.Message{Type: protocol.TypeGetChallenge}); err != nil {
				log.Fatalf("request challenge: %v", err)
			}

		case protocol.TypeExpired:
			fmt.Println("challenge expired, requesting a fresh one")
			if err := send(conn, protocol.Message{Type: protocol.TypeGetChallenge}); err != nil {
				log.Fatalf("request challenge: %v", err)
			}
		}
	}

	log.Fatal("connection closed by server")
}

// send writes a JSON message as a client text frame.
func send(conn net.Conn, msg protocol.Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	return wsutil.WriteClientMessage(conn, ws.OpText, data)
}

// readLoop reads server frames and forwards decoded messages to msgCh until
// the connection closes.
func readLoop(conn net.Conn, msgCh chan<- protocol.Message) {
	defer close(msgCh)
	for {
		data, err := wsutil.ReadServerText(conn)
		if err != nil {
			return
		}
		var msg protocol.Message
		if err := json.Unmarshal(data, &msg); err != nil {
			log.Printf("bad server message: %v", err)
			continue
		}
		msgCh <- msg
	}
}
