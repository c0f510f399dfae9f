package signerclient

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

	"github.com/ark-network/notewallet/internal/core/ports"
)

const (
	signPath       = "/v1/sign"
	defaultTimeout = 30 * time.Second
)

type signInput struct {
	First      string `json:"first"`
	Last       string `json:"last"`
	OriginPage uint64 `json:"origin_page"`
	Amount     uint64 `json:"amount"`
	DataHash   string `json:"data_hash"`
}

type signRequest struct {
	Inputs        []signInput `json:"inputs"`
	Authorization string      `json:"authorization"`
	Recipient     string      `json:"recipient"`
	Amount        uint64      `json:"amount"`
	Fee           *uint64     `json:"fee,omitempty"`
	RefundAddress string      `json:"refund_address,omitempty"`
}

type signResponse struct {
	TxId        string   `json:"txid"`
	RawTx       string   `json:"raw_tx"`
	Fee         uint64   `json:"fee"`
	SpentInputs []string `json:"spent_inputs"`
}

type errorResponse struct {
	Message string `json:"message"`
}

type signerClient struct {
	baseUrl string
	client  *http.Client
}

// NewSignerClient returns a client for the construction and signing service
// exposed at baseUrl. A zero timeout falls back to the default one.
func NewSignerClient(baseUrl string, timeout time.Duration) (ports.SignerService, error) {
	if len(baseUrl) <= 0 {
		return nil, fmt.Errorf("missing signer url")
	}
	if _, err := url.ParseRequestURI(baseUrl); err != nil {
		return nil, fmt.Errorf("invalid signer url: %s", err)
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &signerClient{
		baseUrl: strings.TrimSuffix(baseUrl, "/"),
		client:  &http.Client{Timeout: timeout},
	}, nil
}

func (c *signerClient) Sign(
	ctx context.Context, req ports.SignRequest,
) (*ports.SignedTx, error) {
	if len(req.Notes) <= 0 {
		return nil, fmt.Errorf("missing notes to spend")
	}

	// Spent inputs are reported by name, map them back to note ids.
	idsByName := make(map[string]string, len(req.Notes))
	inputs := make([]signInput, 0, len(req.Notes))
	for _, n := range req.Notes {
		idsByName[inputKey(n.Name.First, n.Name.Last)] = n.Id
		inputs = append(inputs, signInput{
			First:      n.Name.First,
			Last:       n.Name.Last,
			OriginPage: n.OriginPage,
			Amount:     n.Amount,
			DataHash:   n.DataHash,
		})
	}

	buf, err := json.Marshal(signRequest{
		Inputs:        inputs,
		Authorization: req.Authorization,
		Recipient:     req.Recipient,
		Amount:        req.Amount,
		Fee:           req.Fee,
		RefundAddress: req.RefundAddress,
	})
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(
		ctx, http.MethodPost, c.baseUrl+signPath, bytes.NewReader(buf),
	)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		var errResp errorResponse
		if err := json.Unmarshal(body, &errResp); err == nil && len(errResp.Message) > 0 {
			return nil, fmt.Errorf("signer: %s", errResp.Message)
		}
		return nil, fmt.Errorf(
			"signer request failed with status %d: %s",
			resp.StatusCode, strings.TrimSpace(string(body)),
		)
	}

	var signed signResponse
	if err := json.Unmarshal(body, &signed); err != nil {
		return nil, fmt.Errorf("failed to parse signer response: %s", err)
	}
	if len(signed.RawTx) <= 0 {
		return nil, fmt.Errorf("missing raw tx in signer response")
	}

	spent := make([]string, 0, len(signed.SpentInputs))
	for _, key := range signed.SpentInputs {
		id, ok := idsByName[key]
		if !ok {
			return nil, fmt.Errorf("signer spent unknown input %s", key)
		}
		spent = append(spent, id)
	}

	return &ports.SignedTx{
		TxId:         signed.TxId,
		RawTx:        signed.RawTx,
		Fee:          signed.Fee,
		SpentNoteIds: spent,
	}, nil
}

func inputKey(first, last string) string {
	return fmt.Sprintf("%s:%s", first, last)
}
