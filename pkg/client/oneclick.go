package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	oneclick "github.com/defuse-protocol/one-click-sdk-go"
	"go.uber.org/zap"
)

// slippageBps is the quote slippage tolerance in basis points (1%)
const slippageBps = 100

// Asset is a token supported by the 1Click API
type Asset struct {
	AssetID    string `json:"asset_id"`
	Symbol     string `json:"symbol"`
	Blockchain string `json:"blockchain"`
	Decimals   int32  `json:"decimals"`
}

// QuoteParams describes an EXACT_INPUT quote request
type QuoteParams struct {
	OriginAsset      string
	DestinationAsset string
	Amount           string // base units of the origin asset
	Recipient        string
	RefundTo         string
	Deadline         time.Time
}

// Quote is the part of a 1Click quote the executor needs
type Quote struct {
	DepositAddress string  `json:"deposit_address"`
	DepositMemo    string  `json:"deposit_memo,omitempty"`
	AmountIn       string  `json:"amount_in"`
	AmountOut      string  `json:"amount_out"`
	TimeEstimate   float64 `json:"time_estimate_sec"`
}

// ExecutionStatus is the settlement state of a submitted swap
type ExecutionStatus struct {
	Status      string    `json:"status"`
	UpdatedAt   time.Time `json:"updated_at"`
	DepositTxs  []string  `json:"deposit_txs,omitempty"`
	WithdrawTxs []string  `json:"withdraw_txs,omitempty"`
	AmountIn    string    `json:"amount_in,omitempty"`
	AmountOut   string    `json:"amount_out,omitempty"`
}

// IntentsAPI is the subset of the 1Click API used by the executor
type IntentsAPI interface {
	Tokens(ctx context.Context) ([]Asset, error)
	Quote(ctx context.Context, params QuoteParams) (*Quote, error)
	SubmitDeposit(ctx context.Context, depositAddress, txHash string) error
	Status(ctx context.Context, depositAddress string) (*ExecutionStatus, error)
}

// OneClickClient wraps the 1Click SDK
type OneClickClient struct {
	client   *oneclick.APIClient
	jwtToken string
	log      *zap.Logger
}

var _ IntentsAPI = (*OneClickClient)(nil)

// NewOneClickClient creates a new 1Click API client
func NewOneClickClient(jwtToken string, log *zap.Logger) *OneClickClient {
	return &OneClickClient{
		client:   oneclick.NewAPIClient(oneclick.NewConfiguration()),
		jwtToken: jwtToken,
		log:      log.Named("oneclick"),
	}
}

func (c *OneClickClient) auth(ctx context.Context) context.Context {
	return context.WithValue(ctx, oneclick.ContextAccessToken, c.jwtToken)
}

// Tokens retrieves all supported tokens
func (c *OneClickClient) Tokens(ctx context.Context) ([]Asset, error) {
	resp, httpResp, err := c.client.OneClickAPI.GetTokens(c.auth(ctx)).Execute()
	if err != nil {
		return nil, apiError("failed to get tokens", httpResp, err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API returned status code %d", httpResp.StatusCode)
	}

	assets := make([]Asset, 0, len(resp))
	for _, t := range resp {
		assets = append(assets, Asset{
			AssetID:    t.GetAssetId(),
			Symbol:     t.GetSymbol(),
			Blockchain: t.GetBlockchain(),
			Decimals:   int32(t.GetDecimals()),
		})
	}

	c.log.Debug("fetched supported tokens", zap.Int("count", len(assets)))
	return assets, nil
}

// Quote requests a real (non-dry) quote with a deposit address
func (c *OneClickClient) Quote(ctx context.Context, p QuoteParams) (*Quote, error) {
	quoteReq := oneclick.NewQuoteRequest(
		false,               // dry - false to get a real deposit address
		"EXACT_INPUT",       // swapType
		slippageBps,         // slippageTolerance
		p.OriginAsset,       // originAsset
		"ORIGIN_CHAIN",      // depositType
		p.DestinationAsset,  // destinationAsset
		p.Amount,            // amount in smallest unit
		p.RefundTo,          // refundTo
		"ORIGIN_CHAIN",      // refundType
		p.Recipient,         // recipient
		"DESTINATION_CHAIN", // recipientType
		p.Deadline,          // deadline
	)

	c.log.Debug("requesting quote",
		zap.String("origin", p.OriginAsset),
		zap.String("destination", p.DestinationAsset),
		zap.String("amount", p.Amount),
	)

	resp, httpResp, err := c.client.OneClickAPI.GetQuote(c.auth(ctx)).QuoteRequest(*quoteReq).Execute()
	if err != nil {
		return nil, apiError("failed to get quote from API", httpResp, err)
	}
	defer httpResp.Body.Close()

	// Check for successful status codes (200-299)
	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		return nil, fmt.Errorf("API returned status code %d", httpResp.StatusCode)
	}

	if resp == nil {
		return nil, fmt.Errorf("empty quote response")
	}

	q := resp.GetQuote()
	out := &Quote{
		DepositAddress: q.GetDepositAddress(),
		AmountIn:       q.GetAmountInFormatted(),
		AmountOut:      q.GetAmountOutFormatted(),
		TimeEstimate:   float64(q.GetTimeEstimate()),
	}
	if q.HasDepositMemo() {
		out.DepositMemo = q.GetDepositMemo()
	}
	return out, nil
}

// Status checks the execution status of a swap
func (c *OneClickClient) Status(ctx context.Context, depositAddress string) (*ExecutionStatus, error) {
	resp, httpResp, err := c.client.OneClickAPI.GetExecutionStatus(c.auth(ctx)).DepositAddress(depositAddress).Execute()
	if err != nil {
		return nil, apiError("failed to get status", httpResp, err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API returned status code %d", httpResp.StatusCode)
	}

	status := &ExecutionStatus{
		Status:    resp.GetStatus(),
		UpdatedAt: resp.GetUpdatedAt(),
	}

	details := resp.GetSwapDetails()
	for _, tx := range details.GetOriginChainTxHashes() {
		if hash := tx.GetHash(); hash != "" {
			status.DepositTxs = append(status.DepositTxs, hash)
		}
	}
	for _, tx := range details.GetDestinationChainTxHashes() {
		if hash := tx.GetHash(); hash != "" {
			status.WithdrawTxs = append(status.WithdrawTxs, hash)
		}
	}
	if details.HasAmountInFormatted() {
		status.AmountIn = details.GetAmountInFormatted()
	}
	if details.HasAmountOutFormatted() {
		status.AmountOut = details.GetAmountOutFormatted()
	}

	return status, nil
}

// SubmitDeposit submits the deposit transaction hash
func (c *OneClickClient) SubmitDeposit(ctx context.Context, depositAddress, txHash string) error {
	req := oneclick.NewSubmitDepositTxRequest(depositAddress, txHash)

	_, httpResp, err := c.client.OneClickAPI.SubmitDepositTx(c.auth(ctx)).SubmitDepositTxRequest(*req).Execute()
	if err != nil {
		return apiError("failed to submit deposit", httpResp, err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK && httpResp.StatusCode != http.StatusCreated {
		return fmt.Errorf("API returned status code %d", httpResp.StatusCode)
	}

	return nil
}

// apiError extracts the API's error message from the response body when
// there is one
func apiError(action string, httpResp *http.Response, err error) error {
	if httpResp == nil {
		return fmt.Errorf("%s: %w", action, err)
	}
	defer httpResp.Body.Close()

	bodyBytes, readErr := io.ReadAll(httpResp.Body)
	if readErr != nil || len(bodyBytes) == 0 {
		return fmt.Errorf("%s (status: %d): %w", action, httpResp.StatusCode, err)
	}

	var errorResp map[string]interface{}
	if jsonErr := json.Unmarshal(bodyBytes, &errorResp); jsonErr == nil {
		if message, ok := errorResp["message"].(string); ok {
			return fmt.Errorf("API error (status %d): %s", httpResp.StatusCode, message)
		}
		if errs, ok := errorResp["errors"]; ok {
			return fmt.Errorf("API error (status %d): %v", httpResp.StatusCode, errs)
		}
	}

	return fmt.Errorf("API error (status %d): %s", httpResp.StatusCode, string(bodyBytes))
}
