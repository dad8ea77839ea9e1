// Command client is a thin CLI against the HTTP API, for manual testing
// and demos.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
)

func main() {
	server := flag.String("server", "http://127.0.0.1:8080", "Base URL of the exchange server")
	user := flag.String("user", "", "User id (compulsory)")
	key := flag.String("key", "", "Api key (compulsory)")
	action := flag.String("action", "place", "Action to perform: ['place', 'cancel', 'list']")

	side := flag.String("side", "buy", "Order side: 'buy' or 'sell'")
	amount := flag.String("amount", "10", "Order amount")
	price := flag.String("price", "100", "Limit price")

	orderID := flag.String("order", "", "Order id to cancel")

	flag.Parse()

	if *user == "" || *key == "" {
		fmt.Println("Error: -user and -key are compulsory.")
		flag.Usage()
		os.Exit(1)
	}

	client := &apiClient{baseURL: *server, user: *user, key: *key}

	switch *action {
	case "place":
		if err := client.placeOrder(*side, *amount, *price); err != nil {
			log.Fatalf("place order failed: %v", err)
		}
	case "cancel":
		if *orderID == "" {
			log.Fatal("Error: -order is required for cancellation")
		}
		if err := client.cancelOrder(*orderID); err != nil {
			log.Fatalf("cancel order failed: %v", err)
		}
	case "list":
		if err := client.listOrders(); err != nil {
			log.Fatalf("list orders failed: %v", err)
		}
	default:
		log.Fatalf("unknown action: %s", *action)
	}
}

// apiClient is a minimal wrapper around net/http carrying the Basic Auth
// credentials for every request.
type apiClient struct {
	baseURL string
	user    string
	key     string
}

func (c *apiClient) do(method, path string, body any) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequest(method, c.baseURL+path, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(c.user, c.key)

	return http.DefaultClient.Do(req)
}

func (c *apiClient) placeOrder(side, amount, price string) error {
	resp, err := c.do(http.MethodPost, "/orders", map[string]string{
		"side": side, "amount": amount, "price": price,
	})
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	fmt.Printf("-> %s %s\n", resp.Status, body)
	return nil
}

func (c *apiClient) cancelOrder(orderID string) error {
	resp, err := c.do(http.MethodDelete, "/order/"+orderID, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	fmt.Printf("-> %s\n", resp.Status)
	return nil
}

func (c *apiClient) listOrders() error {
	resp, err := c.do(http.MethodGet, "/orders", nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	fmt.Printf("-> %s %s\n", resp.Status, body)
	return nil
}
