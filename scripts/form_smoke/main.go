package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/vovakirdan/formrelay/internal/form"
)

func main() {
	addr := flag.String("addr", "http://localhost:3000", "web server base URL")
	path := flag.String("path", "/send_message", "form action path")
	user := flag.String("user", "tester", "username field")
	text := flag.String("text", "hello from smoke test", "message field")
	timeout := flag.Duration("timeout", 5*time.Second, "total timeout for the run")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	client := &http.Client{
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	mustGet := func(p string, want int) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, *addr+p, nil)
		if err != nil {
			log.Fatalf("build request: %v", err)
		}
		resp, err := client.Do(req)
		if err != nil {
			log.Fatalf("get %s: %v", p, err)
		}
		resp.Body.Close()
		if resp.StatusCode != want {
			log.Fatalf("get %s: expected %d, got %d", p, want, resp.StatusCode)
		}
		fmt.Printf("GET %s -> %d\n", p, resp.StatusCode)
	}

	mustGet("/", http.StatusOK)
	mustGet("/message.html", http.StatusOK)
	mustGet("/does-not-exist", http.StatusNotFound)

	body := form.Submission{"username": *user, "message": *text}.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, *addr+*path, strings.NewReader(body))
	if err != nil {
		log.Fatalf("build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := client.Do(req)
	if err != nil {
		log.Fatalf("post: %v", err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusSeeOther {
		log.Fatalf("post: expected %d, got %d", http.StatusSeeOther, resp.StatusCode)
	}
	fmt.Printf("POST %s -> %d (request %s)\n", *path, resp.StatusCode, resp.Header.Get("X-Request-ID"))
}
