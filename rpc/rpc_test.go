package rpc

import (
	"context"
	"math/big"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

func TestConnect(t *testing.T) {
	// Get RPC URL from environment
	rpcURL := os.Getenv("ETH_RPC_URL")
	if rpcURL == "" {
		t.Skip("ETH_RPC_URL not set, skipping connection test")
	}

	t.Run("successful connection", func(t *testing.T) {
		result := Connect(rpcURL)

		if result.Error != nil {
			t.Fatalf("Failed to connect to RPC: %v", result.Error)
		}

		if result.Client == nil {
			t.Fatal("Client is nil despite no error")
		}

		if result.Client.URL != rpcURL {
			t.Errorf("Expected URL %s, got %s", rpcURL, result.Client.URL)
		}

		if result.Client.Chain == nil || result.Client.Chain.Sign() <= 0 {
			t.Errorf("Expected a chain ID, got %v", result.Client.Chain)
		} else {
			t.Logf("Connected to chain ID: %s", result.Client.Chain.String())
		}
	})

	t.Run("latest block", func(t *testing.T) {
		result := ConnectWithTimeout(rpcURL, 10*time.Second)
		if result.Error != nil {
			t.Fatalf("Failed to connect with custom timeout: %v", result.Error)
		}
		defer result.Client.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		blockNum, err := result.Client.BlockNumber(ctx)
		if err != nil {
			t.Errorf("Failed to get block number: %v", err)
		} else {
			t.Logf("✓ Latest block: %d", blockNum)
		}
	})
}

func TestConnectInvalidURL(t *testing.T) {
	result := ConnectWithTimeout("not-a-valid-url", time.Second)
	if result.Error == nil {
		t.Fatal("Expected an error for a malformed URL")
	}
	if result.Client != nil {
		t.Error("Expected nil client on error")
	}
}

func TestTipURI(t *testing.T) {
	contract := common.HexToAddress("0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed")

	uri := TipURI(contract, big.NewInt(11155111), nil)
	if uri != "ethereum:0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed@11155111" {
		t.Errorf("Unexpected URI: %s", uri)
	}

	uri = TipURI(contract, nil, big.NewInt(1000))
	if !strings.HasPrefix(uri, "ethereum:") || !strings.HasSuffix(uri, "?value=1000") || strings.Contains(uri, "@") {
		t.Errorf("Unexpected URI: %s", uri)
	}
}

func TestGenerateQRCode(t *testing.T) {
	if GenerateQRCode("") != "" {
		t.Error("Expected empty QR for empty data")
	}
	qr := GenerateQRCode("ethereum:0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed")
	if len(strings.Split(strings.TrimSpace(qr), "\n")) < 10 {
		t.Errorf("QR code looks too small:\n%s", qr)
	}
}
