package server

import (
	"bytes"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"flashvault/core/types"
	"flashvault/crypto"
	"flashvault/engine"
	"flashvault/storage"
)

const testSigningKey = "integration-test-signing-key"

func accountAddr(b byte) crypto.Address {
	raw := make([]byte, 20)
	raw[19] = b
	return crypto.MustNewAddress(crypto.AccountPrefix, raw)
}

func assetAddr(b byte) crypto.Address {
	raw := make([]byte, 20)
	raw[19] = b
	return crypto.MustNewAddress(crypto.AssetPrefix, raw)
}

func bearerTokenFor(t *testing.T, caller crypto.Address) string {
	t.Helper()
	claims := jwt.MapClaims{
		"sub": caller.String(),
		"exp": time.Now().Add(time.Hour).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(testSigningKey))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func newTestServer(t *testing.T) (*httptest.Server, *storage.MemoryStore, *engine.Engine) {
	t.Helper()
	holder := accountAddr(0x01)
	state := storage.NewMemoryStore()
	eng := engine.NewEngine(holder)
	eng.SetState(state)

	auth := NewAuthenticator(testSigningKey)
	router := NewRouter(eng, auth, nil)
	return httptest.NewServer(router), state, eng
}

func doJSON(t *testing.T, srv *httptest.Server, method, path, token string, body any) *http.Response {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, srv.URL+path, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	return resp
}

func TestHealthzRequiresNoAuthentication(t *testing.T) {
	srv, _, _ := newTestServer(t)
	defer srv.Close()

	resp := doJSON(t, srv, http.MethodGet, "/healthz", "", nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
}

func TestMutatingRoutesRejectMissingBearerToken(t *testing.T) {
	srv, _, _ := newTestServer(t)
	defer srv.Close()

	resp := doJSON(t, srv, http.MethodPost, "/v1/initialize", "", map[string]any{"managementFeePct": 100})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
}

func TestInitializeThenDepositAndWithdrawOverHTTP(t *testing.T) {
	srv, state, _ := newTestServer(t)
	defer srv.Close()

	owner := accountAddr(0x02)
	depositor := accountAddr(0x03)
	asset := assetAddr(0x10)

	ownerToken := bearerTokenFor(t, owner)
	depositorToken := bearerTokenFor(t, depositor)

	initResp := doJSON(t, srv, http.MethodPost, "/v1/initialize", ownerToken, map[string]any{"managementFeePct": 100})
	defer initResp.Body.Close()
	if initResp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201 from initialize, got %d", initResp.StatusCode)
	}

	acc := &types.Account{}
	acc.EnsureDefaults()
	acc.SetBalance(asset.String(), big.NewInt(1_000_000))
	if err := state.PutAccount(depositor, acc); err != nil {
		t.Fatalf("fund depositor: %v", err)
	}

	depositResp := doJSON(t, srv, http.MethodPost, "/v1/pools/"+asset.String()+"/deposits", depositorToken, map[string]string{
		"asset":  asset.String(),
		"amount": "100000",
	})
	defer depositResp.Body.Close()
	if depositResp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 from deposit, got %d", depositResp.StatusCode)
	}
	var depositBody map[string]string
	if err := json.NewDecoder(depositResp.Body).Decode(&depositBody); err != nil {
		t.Fatalf("decode deposit response: %v", err)
	}
	if depositBody["sharesMinted"] != "100000" {
		t.Fatalf("expected 100000 shares minted on a first deposit, got %s", depositBody["sharesMinted"])
	}

	liquidityResp := doJSON(t, srv, http.MethodGet, "/v1/pools/"+asset.String()+"/liquidity", depositorToken, nil)
	defer liquidityResp.Body.Close()
	if liquidityResp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 from liquidity view, got %d", liquidityResp.StatusCode)
	}
	var liquidityBody map[string]string
	if err := json.NewDecoder(liquidityResp.Body).Decode(&liquidityBody); err != nil {
		t.Fatalf("decode liquidity response: %v", err)
	}
	if liquidityBody["totalLiquidity"] != "100000" {
		t.Fatalf("expected total liquidity 100000, got %s", liquidityBody["totalLiquidity"])
	}

	withdrawResp := doJSON(t, srv, http.MethodPost, "/v1/pools/"+asset.String()+"/withdrawals", depositorToken, nil)
	defer withdrawResp.Body.Close()
	if withdrawResp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 from withdraw-all, got %d", withdrawResp.StatusCode)
	}
	var withdrawBody map[string]string
	if err := json.NewDecoder(withdrawResp.Body).Decode(&withdrawBody); err != nil {
		t.Fatalf("decode withdraw response: %v", err)
	}
	if withdrawBody["principal"] != "100000" {
		t.Fatalf("expected principal 100000 back, got %s", withdrawBody["principal"])
	}
}

func TestInitializeRejectsOutOfRangeFeeOverHTTP(t *testing.T) {
	srv, _, _ := newTestServer(t)
	defer srv.Close()

	owner := accountAddr(0x02)
	ownerToken := bearerTokenFor(t, owner)

	resp := doJSON(t, srv, http.MethodPost, "/v1/initialize", ownerToken, map[string]any{"managementFeePct": 0})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for an out-of-range management fee, got %d", resp.StatusCode)
	}
}

