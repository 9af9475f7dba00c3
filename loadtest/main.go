package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

var (
	baseURL   = flag.String("url", "http://localhost:8080", "server base URL")
	pairCount = flag.Int("pairs", 250, "number of user pairs; each pair shares a room")
	msgCount  = flag.Int("messages", 20, "messages posted per user")
)

type loginResponse struct {
	Token    string `json:"token"`
	ID       int    `json:"id"`
	Username string `json:"username"`
}

type frame struct {
	Event string `json:"event"`
}

var (
	sent      atomic.Int64
	delivered atomic.Int64
)

func main() {
	flag.Parse()
	log.Printf("starting load test: %d users, %d messages each", *pairCount*2, *msgCount)

	start := time.Now()
	var wg sync.WaitGroup

	// Users 0a and 0b share room-0, 1a and 1b share room-1, ...
	for i := 0; i < *pairCount; i++ {
		wg.Add(1)
		go func(pairID int) {
			defer wg.Done()
			runPair(pairID)
		}(i)
	}

	wg.Wait()
	log.Printf("load test complete in %s: %d messages posted, %d push deliveries (expected %d)",
		time.Since(start).Round(time.Millisecond), sent.Load(), delivered.Load(), sent.Load()*2)
}

func runPair(pairID int) {
	room := fmt.Sprintf("room-%d", pairID)
	pass := "password123"

	tokenA := authenticate(fmt.Sprintf("u_%d_a", pairID), pass)
	tokenB := authenticate(fmt.Sprintf("u_%d_b", pairID), pass)
	if tokenA == "" || tokenB == "" {
		return
	}

	// Each side expects its own messages and its partner's.
	expected := int64(*msgCount * 2)

	var wg sync.WaitGroup
	wg.Add(2)
	go chat(&wg, tokenA, room, expected)
	go chat(&wg, tokenB, room, expected)
	wg.Wait()
}

// authenticate registers (ignoring "already taken") and logs in.
func authenticate(username, password string) string {
	creds := map[string]string{"username": username, "password": password}
	if resp, err := postJSON("/auth/register", "", creds); err == nil {
		resp.Body.Close()
	}

	resp, err := postJSON("/auth/login", "", creds)
	if err != nil {
		log.Printf("login failed [%s]: %v", username, err)
		return ""
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		log.Printf("login failed [%s]: %s", username, resp.Status)
		return ""
	}

	var data loginResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		log.Printf("login failed [%s]: %v", username, err)
		return ""
	}
	return data.Token
}

func chat(wg *sync.WaitGroup, token, room string, expected int64) {
	defer wg.Done()

	wsURL := "ws" + strings.TrimPrefix(*baseURL, "http") + "/ws?token=" + token
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		log.Printf("ws connect failed [%s]: %v", room, err)
		return
	}
	defer conn.Close()

	if err := conn.WriteJSON(map[string]string{"event": "join_room", "data": room}); err != nil {
		log.Printf("join failed [%s]: %v", room, err)
		return
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		var got int64
		for got < expected {
			conn.SetReadDeadline(time.Now().Add(30 * time.Second))
			_, raw, err := conn.ReadMessage()
			if err != nil {
				return
			}
			// The server may coalesce several frames into one websocket message.
			for _, line := range bytes.Split(raw, []byte{'\n'}) {
				var f frame
				if json.Unmarshal(line, &f) == nil && f.Event == "new_message" {
					got++
					delivered.Add(1)
				}
			}
		}
	}()

	// Give the other side a moment to join before posting.
	time.Sleep(200 * time.Millisecond)

	for i := 0; i < *msgCount; i++ {
		body := map[string]string{"room": room, "text": fmt.Sprintf("load test message %d", i)}
		resp, err := postJSON("/api/messages", token, body)
		if err != nil {
			log.Printf("post failed [%s]: %v", room, err)
			break
		}
		resp.Body.Close()
		if resp.StatusCode == http.StatusCreated {
			sent.Add(1)
		}
		time.Sleep(10 * time.Millisecond)
	}

	<-done
}

func postJSON(endpoint, token string, data any) (*http.Response, error) {
	body, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequest(http.MethodPost, *baseURL+endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return http.DefaultClient.Do(req)
}
