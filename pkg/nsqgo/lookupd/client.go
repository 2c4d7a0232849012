// Package lookupd provides a default, standalone LookupService: an HTTP
// client against a real nsqlookupd's /lookup endpoint. Broker discovery is
// an external collaborator per the client's spec; this package exists so
// callers don't have to hand-roll one to exercise Client.Subscribe.
//
// This is a thin protocol client over net/http and encoding/json rather
// than a "component" with a natural third-party library home in the
// corpus — see DESIGN.md for why those two stdlib packages are used
// as-is here instead of a pack dependency.
package lookupd

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
)

// Client queries one nsqlookupd instance.
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// New returns a Client against baseURL (e.g. "http://127.0.0.1:4161").
func New(baseURL string) *Client {
	return &Client{
		httpClient: &http.Client{},
		baseURL:    baseURL,
	}
}

type producer struct {
	BroadcastAddress string `json:"broadcast_address"`
	TCPPort          int    `json:"tcp_port"`
}

type lookupResponse struct {
	Producers []producer `json:"producers"`
}

// LookupHosts queries nsqlookupd's /lookup?topic=<topic> endpoint and
// returns each producer's "host:port".
func (c *Client) LookupHosts(ctx context.Context, topic string) ([]string, error) {
	u := c.baseURL + "/lookup?topic=" + url.QueryEscape(topic)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("lookupd: %s returned %d", u, resp.StatusCode)
	}

	var parsed lookupResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, err
	}

	hosts := make([]string, 0, len(parsed.Producers))
	for _, p := range parsed.Producers {
		hosts = append(hosts, p.BroadcastAddress+":"+strconv.Itoa(p.TCPPort))
	}
	return hosts, nil
}
