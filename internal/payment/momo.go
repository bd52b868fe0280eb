package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"carpool/internal/domain"
)

// MoMoConfig holds the merchant credentials for the MoMo gateway.
type MoMoConfig struct {
	PartnerCode string
	AccessKey   string
	SecretKey   string
	PayURL      string
	ReturnURL   string
	IPNURL      string
}

// MoMo signs with HMAC-SHA256 over the raw (unescaped) alphabetically sorted
// parameters. Amounts are whole currency units. Structurally the same
// protocol as VNPay; only field names and hashing differ.
type MoMo struct {
	cfg MoMoConfig
}

// NewMoMo creates a MoMo gateway adapter.
func NewMoMo(cfg MoMoConfig) *MoMo {
	return &MoMo{cfg: cfg}
}

// Name implements Gateway.
func (g *MoMo) Name() string { return "momo" }

// BuildRedirectURL implements Gateway.
func (g *MoMo) BuildRedirectURL(booking *domain.Booking, orderID string) (string, error) {
	params := url.Values{}
	params.Set("partnerCode", g.cfg.PartnerCode)
	params.Set("accessKey", g.cfg.AccessKey)
	params.Set("requestId", uuid.New().String())
	params.Set("amount", strconv.FormatInt(int64(booking.TotalPrice), 10))
	params.Set("orderId", orderID)
	params.Set("orderInfo", booking.ID)
	params.Set("returnUrl", g.cfg.ReturnURL)
	params.Set("notifyUrl", g.cfg.IPNURL)
	params.Set("requestType", "captureWallet")

	params.Set("signature", g.sign(params))

	return g.cfg.PayURL + "?" + params.Encode(), nil
}

// VerifyCallback implements Gateway.
func (g *MoMo) VerifyCallback(params url.Values) (*CallbackResult, error) {
	supplied := params.Get("signature")
	if supplied == "" {
		return nil, ErrInvalidSignature
	}

	expected := g.sign(params)
	if !hmac.Equal([]byte(strings.ToLower(supplied)), []byte(expected)) {
		return nil, ErrInvalidSignature
	}

	amount, err := strconv.ParseFloat(params.Get("amount"), 64)
	if err != nil {
		return nil, fmt.Errorf("momo: bad amount %q", params.Get("amount"))
	}

	code := params.Get("resultCode")
	return &CallbackResult{
		OrderID:   params.Get("orderId"),
		BookingID: params.Get("orderInfo"),
		Amount:    amount,
		Success:   code == "0",
		Code:      code,
	}, nil
}

// IPNAck implements Gateway.
func (g *MoMo) IPNAck(status AckStatus) (int, any) {
	type ack struct {
		ResultCode int    `json:"resultCode"`
		Message    string `json:"message"`
	}

	switch status {
	case AckOK, AckAlreadyConfirmed:
		// A repeated confirmation is acknowledged as success; answering an
		// error would trigger redelivery of a callback already settled.
		return http.StatusOK, ack{ResultCode: 0, Message: "success"}
	case AckOrderNotFound:
		return http.StatusOK, ack{ResultCode: 1, Message: "order not found"}
	case AckAmountMismatch:
		return http.StatusOK, ack{ResultCode: 4, Message: "invalid amount"}
	case AckInvalidSignature:
		return http.StatusOK, ack{ResultCode: 97, Message: "invalid signature"}
	default:
		return http.StatusOK, ack{ResultCode: 99, Message: "unknown error"}
	}
}

// sign computes the lowercase hex HMAC-SHA256 over "k=v&..." pairs of the
// sorted raw parameters, excluding the signature itself.
func (g *MoMo) sign(params url.Values) string {
	keys := sortedKeys(params, "signature")

	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(params.Get(k))
	}

	mac := hmac.New(sha256.New, []byte(g.cfg.SecretKey))
	mac.Write([]byte(b.String()))
	return hex.EncodeToString(mac.Sum(nil))
}

var _ Gateway = (*MoMo)(nil)
