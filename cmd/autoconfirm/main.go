// Command autoconfirm is a sidecar that polls the trading service's
// pending queue and confirms orders automatically. Running it as a
// separate process keeps the human-in-the-loop gate in the service
// itself: kill the sidecar and the queue goes back to manual confirms.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"
)

const (
	idleSleep   = 3 * time.Second
	backoffBase = 2 * time.Second
	backoffMax  = 30 * time.Second
)

type pendingResponse struct {
	Pending []json.RawMessage `json:"pending"`
}

type confirmResponse struct {
	Status  string `json:"status"`
	OrderID string `json:"order_id"`
	Error   string `json:"error"`
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	appURL := getEnv("APP_URL", "http://localhost:8080")
	token := os.Getenv("CONFIRM_TOKEN")
	if token == "" {
		log.Fatal("[autoconfirm] CONFIRM_TOKEN not set")
	}

	client := &http.Client{Timeout: 10 * time.Second}
	log.Printf("[autoconfirm] watching %s", appURL)

	backoff := backoffBase
	for {
		n, err := pendingCount(client, appURL)
		if err != nil {
			log.Printf("[autoconfirm] pending check failed: %v, retrying in %s", err, backoff)
			time.Sleep(backoff)
			backoff *= 2
			if backoff > backoffMax {
				backoff = backoffMax
			}
			continue
		}
		backoff = backoffBase

		if n == 0 {
			time.Sleep(idleSleep)
			continue
		}

		log.Printf("[autoconfirm] %d pending order(s), confirming head", n)
		if err := confirm(client, appURL, token); err != nil {
			log.Printf("[autoconfirm] confirm failed: %v, retrying in %s", err, backoff)
			time.Sleep(backoff)
			backoff *= 2
			if backoff > backoffMax {
				backoff = backoffMax
			}
		}
	}
}

func pendingCount(client *http.Client, appURL string) (int, error) {
	resp, err := client.Get(appURL + "/api/pending")
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	var pr pendingResponse
	if err := json.NewDecoder(resp.Body).Decode(&pr); err != nil {
		return 0, err
	}
	return len(pr.Pending), nil
}

func confirm(client *http.Client, appURL, token string) error {
	body, _ := json.Marshal(map[string]string{"token": token})
	resp, err := client.Post(appURL+"/api/confirm", "application/json", bytes.NewReader(body))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var cr confirmResponse
	if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
		return err
	}
	switch resp.StatusCode {
	case http.StatusOK:
		if cr.Status == "placed" {
			log.Printf("[autoconfirm] placed order %s", cr.OrderID)
		}
		return nil
	case http.StatusUnauthorized:
		// A bad token never heals; crash loudly instead of spinning.
		log.Fatalf("[autoconfirm] confirm token rejected, check CONFIRM_TOKEN")
		return nil
	default:
		return fmt.Errorf("status %d: %s", resp.StatusCode, cr.Error)
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
