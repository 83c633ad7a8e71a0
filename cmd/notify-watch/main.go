// notify-watch tails a user's notification stream from the terminal. It is
// a thin consumer of pkg/client and doubles as a live smoke test for the
// sync pipeline.
package main

import (
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/chedlikh/greenspace-notify/pkg/client"
)

func main() {
	base := flag.String("base", "http://localhost:8013", "service base URL")
	token := flag.String("token", os.Getenv("NOTIFY_TOKEN"), "bearer token")
	user := flag.String("user", os.Getenv("NOTIFY_USER"), "user id")
	flag.Parse()

	cl, err := client.New(client.Config{
		BaseURL: *base,
		Token:   *token,
		UserID:  *user,
	})
	if err != nil {
		log.Fatalf("notify-watch: %v", err)
	}
	if err := cl.Start(); err != nil {
		log.Fatalf("notify-watch: %v", err)
	}
	defer cl.Stop()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	seen := 0
	for {
		select {
		case <-ticker.C:
			store := cl.Store()
			items := store.Notifications()
			for i := len(items) - seen - 1; i >= 0; i-- {
				n := items[i]
				log.Printf("[%s] %s (%s, read=%v)", n.CreatedAt, n.Message, n.Type, n.Read)
			}
			seen = len(items)
			if err := store.Err(); err != nil {
				log.Printf("connection trouble: %v", err)
			}
		case <-quit:
			return
		}
	}
}
