package chainclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ark-network/notewallet/internal/core/domain"
	"github.com/ark-network/notewallet/internal/core/ports"
)

const defaultTimeout = 30 * time.Second

type note struct {
	Name struct {
		First string `json:"first"`
		Last  string `json:"last"`
	} `json:"name"`
	OriginPage uint64 `json:"origin_page"`
	Amount     uint64 `json:"amount"`
	DataHash   string `json:"data_hash"`
}

type broadcastResponse struct {
	TxHash string `json:"tx_hash"`
}

type chainClient struct {
	baseUrl string
	client  *http.Client
}

// NewChainClient returns a client for the REST api exposed at baseUrl.
// A zero timeout falls back to the default one.
func NewChainClient(baseUrl string, timeout time.Duration) (ports.ChainClient, error) {
	if len(baseUrl) <= 0 {
		return nil, fmt.Errorf("missing chain url")
	}
	if _, err := url.ParseRequestURI(baseUrl); err != nil {
		return nil, fmt.Errorf("invalid chain url: %s", err)
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &chainClient{
		baseUrl: strings.TrimSuffix(baseUrl, "/"),
		client:  &http.Client{Timeout: timeout},
	}, nil
}

func (c *chainClient) FetchNotes(
	ctx context.Context, address string,
) ([]domain.ChainNote, error) {
	endpoint := fmt.Sprintf(
		"%s/address/%s/notes", c.baseUrl, url.PathEscape(address),
	)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	body, err := c.do(req)
	if err != nil {
		return nil, err
	}

	payload := make([]note, 0)
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("failed to parse notes: %s", err)
	}

	notes := make([]domain.ChainNote, 0, len(payload))
	for _, n := range payload {
		notes = append(notes, domain.ChainNote{
			Name: domain.NoteName{
				First: n.Name.First,
				Last:  n.Name.Last,
			},
			OriginPage: n.OriginPage,
			Amount:     n.Amount,
			DataHash:   n.DataHash,
		})
	}
	return notes, nil
}

func (c *chainClient) Broadcast(ctx context.Context, rawTx string) (string, error) {
	if len(rawTx) <= 0 {
		return "", fmt.Errorf("missing raw tx")
	}

	req, err := http.NewRequestWithContext(
		ctx, http.MethodPost, fmt.Sprintf("%s/tx", c.baseUrl),
		bytes.NewBufferString(rawTx),
	)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "text/plain")

	body, err := c.do(req)
	if err != nil {
		return "", err
	}

	var resp broadcastResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		// Plain text responses carry the bare hash.
		return strings.TrimSpace(string(body)), nil
	}
	if len(resp.TxHash) <= 0 {
		return "", fmt.Errorf("missing tx hash in broadcast response")
	}
	return resp.TxHash, nil
}

func (c *chainClient) do(req *http.Request) ([]byte, error) {
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf(
			"request failed with status %d: %s",
			resp.StatusCode, strings.TrimSpace(string(body)),
		)
	}
	return body, nil
}
