package services

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"

	"invomitra/internal/common"
	"invomitra/internal/config"
)

// RazorpayService is the payment gateway's HTTP API.
type RazorpayService interface {
	CreateOrder(ctx context.Context, req OrderRequest) (*GatewayOrder, error)
	FetchPayment(ctx context.Context, paymentID string) (*GatewayPayment, error)
	KeyID() string
}

type razorpayService struct {
	keyID     string
	keySecret string
	baseURL   string
	http      *http.Client
}

// Notes is the gateway's free-form key/value map. The gateway sends an
// empty array instead of an empty object, and values are not always strings.
type Notes map[string]string

func (n *Notes) UnmarshalJSON(b []byte) error {
	out := Notes{}
	var raw map[string]interface{}
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	if err := dec.Decode(&raw); err == nil {
		for k, v := range raw {
			switch val := v.(type) {
			case string:
				out[k] = val
			case json.Number:
				out[k] = val.String()
			case nil:
			default:
				if encoded, err := json.Marshal(val); err == nil {
					out[k] = string(encoded)
				}
			}
		}
	}
	*n = out
	return nil
}

type OrderRequest struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
	Notes    Notes  `json:"notes,omitempty"`
}

type GatewayOrder struct {
	ID       string `json:"id"`
	Entity   string `json:"entity"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
	Status   string `json:"status"`
	Notes    Notes  `json:"notes"`
}

type GatewayPayment struct {
	ID          string `json:"id"`
	Entity      string `json:"entity"`
	Amount      int64  `json:"amount"`
	Currency    string `json:"currency"`
	Status      string `json:"status"`
	OrderID     string `json:"order_id"`
	Method      string `json:"method"`
	Email       string `json:"email"`
	Contact     string `json:"contact"`
	CustomerID  string `json:"customer_id"`
	Notes       Notes  `json:"notes"`
	ErrorCode   string `json:"error_code"`
	ErrorReason string `json:"error_reason"`
	CreatedAt   int64  `json:"created_at"`
}

// PaymentStatusCaptured is the only status that activates a subscription.
const PaymentStatusCaptured = "captured"

// GatewayErrorClass is how a failed gateway call is categorised.
type GatewayErrorClass string

const (
	GatewayBadRequest GatewayErrorClass = "bad_request"
	GatewayUpstream   GatewayErrorClass = "gateway_error"
	GatewayConnection GatewayErrorClass = "connection_error"
	GatewayUnknown    GatewayErrorClass = "unknown"
)

// GatewayError is a parsed gateway failure.
type GatewayError struct {
	Class       GatewayErrorClass
	StatusCode  int
	Code        string
	Description string
	Source      string
	Reason      string
	Step        string
	Failure     FailureClassification
	Err         error
}

func (e *GatewayError) Error() string {
	msg := fmt.Sprintf("razorpay %s (status %d)", e.Class, e.StatusCode)
	if e.Code != "" {
		msg += " " + e.Code
	}
	if e.Description != "" {
		msg += ": " + e.Description
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *GatewayError) Unwrap() error {
	return e.Err
}

// NewRazorpayService creates a gateway client with an explicit request timeout.
func NewRazorpayService(cfg config.Razorpay) RazorpayService {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &razorpayService{
		keyID:     cfg.KeyID,
		keySecret: cfg.KeySecret,
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		http:      &http.Client{Timeout: timeout},
	}
}

func (s *razorpayService) KeyID() string {
	return s.keyID
}

// CreateOrder creates an order the checkout widget can be opened against.
func (s *razorpayService) CreateOrder(ctx context.Context, req OrderRequest) (*GatewayOrder, error) {
	var order GatewayOrder
	if err := s.do(ctx, http.MethodPost, "/orders", req, &order); err != nil {
		return nil, err
	}
	if order.ID == "" {
		return nil, &GatewayError{Class: GatewayUpstream, StatusCode: http.StatusOK, Description: "order response has no id",
			Failure: FailureClassification{Reason: common.ReasonGeneric}}
	}
	return &order, nil
}

// FetchPayment returns the gateway's authoritative view of a payment.
func (s *razorpayService) FetchPayment(ctx context.Context, paymentID string) (*GatewayPayment, error) {
	var payment GatewayPayment
	if err := s.do(ctx, http.MethodGet, "/payments/"+url.PathEscape(paymentID), nil, &payment); err != nil {
		return nil, err
	}
	return &payment, nil
}

func (s *razorpayService) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return errors.Wrap(err, "failed to encode gateway request")
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, reader)
	if err != nil {
		return errors.Wrap(err, "failed to build gateway request")
	}
	req.SetBasicAuth(s.keyID, s.keySecret)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.http.Do(req)
	if err != nil {
		return &GatewayError{Class: GatewayConnection, Description: "payment gateway unreachable",
			Failure: FailureClassification{Reason: common.ReasonGeneric}, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return &GatewayError{Class: GatewayConnection, StatusCode: resp.StatusCode, Description: "failed to read gateway response",
			Failure: FailureClassification{Reason: common.ReasonGeneric}, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return parseGatewayError(resp.StatusCode, raw)
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return &GatewayError{Class: GatewayUpstream, StatusCode: resp.StatusCode, Description: "unparsable gateway response",
			Failure: FailureClassification{Reason: common.ReasonGeneric}, Err: err}
	}
	return nil
}

type gatewayErrorBody struct {
	Error struct {
		Code        string `json:"code"`
		Description string `json:"description"`
		Source      string `json:"source"`
		Reason      string `json:"reason"`
		Step        string `json:"step"`
	} `json:"error"`
}

func parseGatewayError(status int, raw []byte) *GatewayError {
	gerr := &GatewayError{StatusCode: status}

	var body gatewayErrorBody
	if err := json.Unmarshal(raw, &body); err == nil {
		gerr.Code = body.Error.Code
		gerr.Description = body.Error.Description
		gerr.Source = body.Error.Source
		gerr.Reason = body.Error.Reason
		gerr.Step = body.Error.Step
	}
	if gerr.Description == "" {
		gerr.Description = http.StatusText(status)
	}

	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		// Our credentials were refused; nothing the payer can fix.
		gerr.Class = GatewayUpstream
		gerr.Failure = FailureClassification{Reason: common.ReasonGeneric}
		return gerr
	case gerr.Code == "BAD_REQUEST_ERROR":
		gerr.Class = GatewayBadRequest
	case status >= 500 || gerr.Code == "GATEWAY_ERROR" || gerr.Code == "SERVER_ERROR":
		gerr.Class = GatewayUpstream
	default:
		gerr.Class = GatewayUnknown
	}

	gerr.Failure = ClassifyFailure(gerr.Code, gerr.Description, gerr.Source, gerr.Reason)
	return gerr
}

// SignPayment computes the checkout signature for an order and payment pair.
func SignPayment(orderID, paymentID, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifyPaymentSignature checks the signature returned by the checkout widget.
func VerifyPaymentSignature(orderID, paymentID, signature, secret string) bool {
	if secret == "" || signature == "" {
		return false
	}
	return hmac.Equal([]byte(SignPayment(orderID, paymentID, secret)), []byte(signature))
}

// SignWebhook computes the signature of a raw webhook body.
func SignWebhook(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifyWebhookSignature checks the X-Razorpay-Signature header against the raw body.
func VerifyWebhookSignature(body []byte, signature, secret string) bool {
	if secret == "" || signature == "" {
		return false
	}
	return hmac.Equal([]byte(SignWebhook(body, secret)), []byte(signature))
}
