package rpc

import (
	"bytes"
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/mdp/qrterminal/v3"
)

// Client wraps an Ethereum RPC client
type Client struct {
	*ethclient.Client
	URL   string
	Chain *big.Int // chain ID read at connect time
}

// ConnectResult holds the result of an RPC connection attempt
type ConnectResult struct {
	Client *Client
	Error  error
}

// Connect attempts to connect to an Ethereum RPC endpoint
func Connect(url string) ConnectResult {
	return ConnectWithTimeout(url, 8*time.Second)
}

// ConnectWithTimeout attempts to connect with a custom timeout.
// The chain ID is fetched as part of connecting so a dead endpoint fails here.
func ConnectWithTimeout(url string, timeout time.Duration) ConnectResult {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	client, err := ethclient.DialContext(ctx, url)
	if err != nil {
		return ConnectResult{Client: nil, Error: err}
	}

	chainID, err := client.ChainID(ctx)
	if err != nil {
		client.Close()
		return ConnectResult{Client: nil, Error: fmt.Errorf("failed to read chain id: %w", err)}
	}

	return ConnectResult{
		Client: &Client{
			Client: client,
			URL:    url,
			Chain:  chainID,
		},
		Error: nil,
	}
}

// TipURI builds an EIP-681 payment URI for the contract, e.g.
// ethereum:0xabc…@11155111 or ethereum:0xabc…@1?value=1e16.
func TipURI(contract common.Address, chainID *big.Int, value *big.Int) string {
	var b strings.Builder
	b.WriteString("ethereum:")
	b.WriteString(contract.Hex())
	if chainID != nil && chainID.Sign() > 0 {
		b.WriteString("@")
		b.WriteString(chainID.String())
	}
	if value != nil && value.Sign() > 0 {
		b.WriteString("?value=")
		b.WriteString(value.String())
	}
	return b.String()
}

// GenerateQRCode renders data as a half-block terminal QR code.
func GenerateQRCode(data string) string {
	if data == "" {
		return ""
	}
	var buf bytes.Buffer
	qrterminal.GenerateHalfBlock(data, qrterminal.L, &buf)
	return buf.String()
}
