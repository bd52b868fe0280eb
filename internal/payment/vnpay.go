package payment

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"carpool/internal/domain"
)

// VNPayConfig holds the merchant credentials for the VNPay gateway.
type VNPayConfig struct {
	TmnCode    string
	HashSecret string
	PayURL     string
	ReturnURL  string
}

// VNPay signs with HMAC-SHA512 over the url-encoded, alphabetically sorted
// parameters. Amounts go over the wire multiplied by 100.
type VNPay struct {
	cfg VNPayConfig
	now func() time.Time
}

// NewVNPay creates a VNPay gateway adapter.
func NewVNPay(cfg VNPayConfig) *VNPay {
	return &VNPay{cfg: cfg, now: time.Now}
}

// Name implements Gateway.
func (g *VNPay) Name() string { return "vnpay" }

// BuildRedirectURL implements Gateway.
func (g *VNPay) BuildRedirectURL(booking *domain.Booking, orderID string) (string, error) {
	params := url.Values{}
	params.Set("vnp_Version", "2.1.0")
	params.Set("vnp_Command", "pay")
	params.Set("vnp_TmnCode", g.cfg.TmnCode)
	params.Set("vnp_Amount", strconv.FormatInt(int64(booking.TotalPrice*100), 10))
	params.Set("vnp_CreateDate", g.now().Format("20060102150405"))
	params.Set("vnp_CurrCode", "VND")
	params.Set("vnp_Locale", "vn")
	params.Set("vnp_OrderInfo", booking.ID)
	params.Set("vnp_OrderType", "other")
	params.Set("vnp_ReturnUrl", g.cfg.ReturnURL)
	params.Set("vnp_TxnRef", orderID)

	signature := g.sign(params)
	params.Set("vnp_SecureHash", signature)

	return g.cfg.PayURL + "?" + params.Encode(), nil
}

// VerifyCallback implements Gateway.
func (g *VNPay) VerifyCallback(params url.Values) (*CallbackResult, error) {
	supplied := params.Get("vnp_SecureHash")
	if supplied == "" {
		return nil, ErrInvalidSignature
	}

	expected := g.sign(params)
	if !hmac.Equal([]byte(strings.ToLower(supplied)), []byte(expected)) {
		return nil, ErrInvalidSignature
	}

	amount, err := strconv.ParseFloat(params.Get("vnp_Amount"), 64)
	if err != nil {
		return nil, fmt.Errorf("vnpay: bad amount %q", params.Get("vnp_Amount"))
	}

	code := params.Get("vnp_ResponseCode")
	return &CallbackResult{
		OrderID:   params.Get("vnp_TxnRef"),
		BookingID: params.Get("vnp_OrderInfo"),
		Amount:    amount / 100,
		Success:   code == "00",
		Code:      code,
	}, nil
}

// IPNAck implements Gateway. VNPay expects {RspCode, Message} with HTTP 200
// for every outcome; a non-protocol response makes it retry indefinitely.
func (g *VNPay) IPNAck(status AckStatus) (int, any) {
	type ack struct {
		RspCode string `json:"RspCode"`
		Message string `json:"Message"`
	}

	switch status {
	case AckOK:
		return http.StatusOK, ack{RspCode: "00", Message: "Confirm Success"}
	case AckOrderNotFound:
		return http.StatusOK, ack{RspCode: "01", Message: "Order not found"}
	case AckAlreadyConfirmed:
		return http.StatusOK, ack{RspCode: "02", Message: "Order already confirmed"}
	case AckAmountMismatch:
		return http.StatusOK, ack{RspCode: "04", Message: "Invalid amount"}
	case AckInvalidSignature:
		return http.StatusOK, ack{RspCode: "97", Message: "Invalid signature"}
	default:
		return http.StatusOK, ack{RspCode: "99", Message: "Unknown error"}
	}
}

// sign computes the lowercase hex HMAC-SHA512 over the sorted, url-encoded
// parameters, excluding the signature fields themselves.
func (g *VNPay) sign(params url.Values) string {
	keys := sortedKeys(params, "vnp_SecureHash", "vnp_SecureHashType")

	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(k))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(params.Get(k)))
	}

	mac := hmac.New(sha512.New, []byte(g.cfg.HashSecret))
	mac.Write([]byte(b.String()))
	return hex.EncodeToString(mac.Sum(nil))
}

var _ Gateway = (*VNPay)(nil)
