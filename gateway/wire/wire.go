// Package wire holds the HTTP/JSON shapes shared by the live gateway client
// and the gateway server.
package wire

import (
	"encoding/json"

	"github.com/MrEthical07/goWallet/gateway"
	"github.com/MrEthical07/goWallet/sessionkey"
)

// Routes.
const (
	PathGoogleAuth     = "/api/v1/authenticate/google"
	PathEmailAuth      = "/api/v1/authenticate/email"
	PathEmailVerify    = "/api/v1/authenticate/email/verify"
	PathVerifySession  = "/api/oc/v1/verify-session"
	PathLogout         = "/api/v1/logout"
	PathNetworks       = "/api/v1/supported/networks"
	PathTokens         = "/api/v1/supported/tokens"
	PathTransferSubmit = "/api/v1/transfer/tokens/execute"
	PathOrderStatus    = "/api/v1/order/status"

	QueryOrderID = "order_id"
)

// Envelope status values.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Envelope wraps every response body.
type Envelope struct {
	Status  string          `json:"status"`
	Data    json.RawMessage `json:"data,omitempty"`
	Message string          `json:"message,omitempty"`
	Code    string          `json:"code,omitempty"`
}

type GoogleAuthRequest struct {
	IDToken string `json:"id_token"`
}

type AuthTokenData struct {
	AuthToken string `json:"auth_token"`
}

type EmailAuthRequest struct {
	Email string `json:"email"`
}

type EmailAuthData struct {
	Token string `json:"token"`
	Email string `json:"email"`
}

type EmailVerifyRequest struct {
	Email string `json:"email"`
	OTP   string `json:"otp"`
	Token string `json:"token"`
}

// SessionData is the verify-session payload. Pointer fields let the client
// tell an absent field from a zero value.
type SessionData struct {
	UserID         *string `json:"user_id"`
	VendorID       *string `json:"vendor_id"`
	UserSWA        *string `json:"user_swa"`
	VendorSWA      *string `json:"vendor_swa"`
	SessionAdded   *bool   `json:"is_session_added"`
	RelayerOpsMode *string `json:"sign_auth_relayer_user_ops"`
}

// SessionDataFrom encodes id.
func SessionDataFrom(id gateway.Identity) SessionData {
	return SessionData{
		UserID:         &id.UserID,
		VendorID:       &id.VendorID,
		UserSWA:        &id.UserAddress,
		VendorSWA:      &id.VendorAddress,
		SessionAdded:   &id.SessionAdded,
		RelayerOpsMode: &id.RelayerOpsMode,
	}
}

type NetworksData struct {
	Networks []gateway.Network `json:"networks"`
}

type TokensData struct {
	Tokens []gateway.Token `json:"tokens"`
}

type TransferRequest struct {
	NetworkName      string              `json:"network_name"`
	TokenAddress     string              `json:"token_address"`
	Quantity         string              `json:"quantity"`
	RecipientAddress string              `json:"recipient_address"`
	SessionConfig    sessionkey.Material `json:"session_config"`
}

type TransferData struct {
	JobID string `json:"job_id"`
}

type OrderStatusData struct {
	OrderID         string `json:"order_id"`
	Status          string `json:"status"`
	TransactionHash string `json:"transaction_hash,omitempty"`
	FailureReason   string `json:"failure_reason,omitempty"`
}
