// Command loadtest opens a batch of websocket connections against a
// running server, lets each send one message into the global room and
// reports what came back.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/vaporchat/vapor/internal/model"
)

func main() {
	url := flag.String("url", "ws://localhost:8080/ws", "websocket endpoint")
	clients := flag.Int("clients", 10, "number of concurrent connections")
	duration := flag.Duration("duration", 10*time.Second, "how long to listen for fan-out")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), *duration)
	defer cancel()

	var received atomic.Int64
	var wg sync.WaitGroup

	for i := range *clients {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := run(ctx, *url, i, &received); err != nil && ctx.Err() == nil {
				log.Printf("client %d: %v", i, err)
			}
		}()
	}

	wg.Wait()
	fmt.Printf("%d clients, %d envelopes received\n", *clients, received.Load())
}

func run(ctx context.Context, url string, n int, received *atomic.Int64) error {
	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		return fmt.Errorf("dial failed: %w", err)
	}
	defer conn.CloseNow()

	data, _ := json.Marshal(model.SendPayload{Text: fmt.Sprintf("hello from client %d", n)})
	if err := wsjson.Write(ctx, conn, model.Frame{Type: model.KindMessage, Data: data}); err != nil {
		return fmt.Errorf("send failed: %w", err)
	}

	for {
		var env model.Envelope
		if err := wsjson.Read(ctx, conn, &env); err != nil {
			return nil
		}
		received.Add(1)
	}
}
