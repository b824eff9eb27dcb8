package payment

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log"
	"time"

	razorpay "github.com/razorpay/razorpay-go"

	"github.com/kswpuk/portal-api/config"
	"github.com/kswpuk/portal-api/internal/apperr"
	"github.com/kswpuk/portal-api/internal/auditlog"
	"github.com/kswpuk/portal-api/internal/member"
)

// MemberAccounts is the slice of the membership roll the renewal flow needs
type MemberAccounts interface {
	GetByMembershipNumber(ctx context.Context, membershipNumber string) (*member.Member, error)
	ExtendMembership(ctx context.Context, membershipNumber string, expires time.Time) error
	SetStatus(ctx context.Context, membershipNumber string, status string) error
}

type Service interface {
	StartRenewal(ctx context.Context, membershipNumber, ip string) (*StartRenewalResponse, error)
	VerifyAndApply(ctx context.Context, membershipNumber string, req VerifyPaymentRequest, ip string) (*RenewalResult, error)
	History(ctx context.Context, membershipNumber string) ([]Payment, error)
}

type service struct {
	repo    Repository
	members MemberAccounts
	client  *razorpay.Client
	cfg     *config.Config
	audit   auditlog.Service
}

func NewService(repo Repository, members MemberAccounts, cfg *config.Config, audit auditlog.Service) Service {
	client := razorpay.NewClient(cfg.RazorpayKey, cfg.RazorpaySecret)
	return &service{
		repo:    repo,
		members: members,
		client:  client,
		cfg:     cfg,
		audit:   audit,
	}
}

// StartRenewal creates the Razorpay order for the annual membership fee and
// records a pending payment row against it.
func (s *service) StartRenewal(ctx context.Context, membershipNumber, ip string) (*StartRenewalResponse, error) {
	if _, err := s.members.GetByMembershipNumber(ctx, membershipNumber); err != nil {
		return nil, err
	}

	data := map[string]interface{}{
		"amount":          s.cfg.MembershipFee,
		"currency":        "GBP",
		"payment_capture": 1,
		"notes": map[string]interface{}{
			"membership_number": membershipNumber,
			"purpose":           "membership_renewal",
		},
	}

	order, err := s.client.Order.Create(data, nil)
	if err != nil {
		s.logPayment(ctx, membershipNumber, auditlog.ActionPaymentCreated,
			map[string]interface{}{"amount": s.cfg.MembershipFee, "error": err.Error()}, ip, "failure")
		return nil, apperr.Collaborator("razorpay order creation", err)
	}

	orderID, ok := order["id"].(string)
	if !ok {
		s.logPayment(ctx, membershipNumber, auditlog.ActionPaymentCreated,
			map[string]interface{}{"amount": s.cfg.MembershipFee, "error": "no order id in response"}, ip, "failure")
		return nil, apperr.Collaborator("razorpay order creation", fmt.Errorf("unable to extract order id from response"))
	}

	p := &Payment{
		MembershipNumber: membershipNumber,
		Amount:           s.cfg.MembershipFee,
		Currency:         "GBP",
		OrderID:          orderID,
		Status:           StatusPending,
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, err
	}

	s.logPayment(ctx, membershipNumber, auditlog.ActionPaymentCreated,
		map[string]interface{}{"amount": s.cfg.MembershipFee, "orderId": orderID}, ip, "success")

	return &StartRenewalResponse{
		OrderID:     orderID,
		Amount:      s.cfg.MembershipFee,
		Currency:    "GBP",
		RazorpayKey: s.cfg.RazorpayKey,
	}, nil
}

// VerifyAndApply checks the gateway signature, confirms capture with Razorpay
// and extends the membership. The extension runs from whichever is later of
// today and the current expiry, so renewing early never loses time.
func (s *service) VerifyAndApply(ctx context.Context, membershipNumber string, req VerifyPaymentRequest, ip string) (*RenewalResult, error) {
	expected := hmac.New(sha256.New, []byte(s.cfg.RazorpaySecret))
	expected.Write([]byte(req.OrderID + "|" + req.PaymentID))
	if hex.EncodeToString(expected.Sum(nil)) != req.RazorpaySig {
		s.logPayment(ctx, membershipNumber, auditlog.ActionPaymentVerified,
			map[string]interface{}{"orderId": req.OrderID, "reason": "invalid payment signature"}, ip, "failure")
		return nil, apperr.Validation("Payment signature is not valid")
	}

	p, err := s.repo.GetByOrderID(ctx, req.OrderID)
	if err != nil {
		return nil, err
	}
	if p.MembershipNumber != membershipNumber {
		return nil, apperr.NotFoundf("payment for order %s", req.OrderID)
	}

	if p.Status == StatusSuccess {
		// Callback replay after a successful renewal
		m, err := s.members.GetByMembershipNumber(ctx, membershipNumber)
		if err != nil {
			return nil, err
		}
		return &RenewalResult{Status: StatusSuccess, MembershipExpires: &m.MembershipExpires}, nil
	}

	gatewayPayment, err := s.client.Payment.Fetch(req.PaymentID, nil, nil)
	if err != nil {
		s.logPayment(ctx, membershipNumber, auditlog.ActionPaymentVerified,
			map[string]interface{}{"orderId": req.OrderID, "error": err.Error()}, ip, "failure")
		return nil, apperr.Collaborator("razorpay payment fetch", err)
	}

	gatewayStatus, _ := gatewayPayment["status"].(string)
	method := "UNKNOWN"
	if v, ok := gatewayPayment["method"].(string); ok {
		method = v
	}

	if err := checkAmount(gatewayPayment, p.Amount); err != nil {
		s.logPayment(ctx, membershipNumber, auditlog.ActionPaymentVerified,
			map[string]interface{}{"orderId": req.OrderID, "error": err.Error()}, ip, "failure")
		return nil, err
	}

	now := time.Now()
	params := updatePaymentParams{
		Status:    StatusFailed,
		PaymentID: &req.PaymentID,
		Method:    method,
	}
	if gatewayStatus == "captured" {
		params.Status = StatusSuccess
		params.PaidAt = &now
	}

	if err := s.repo.UpdateByOrderID(ctx, req.OrderID, params); err != nil {
		return nil, err
	}

	if params.Status != StatusSuccess {
		s.logPayment(ctx, membershipNumber, auditlog.ActionPaymentVerified,
			map[string]interface{}{"orderId": req.OrderID, "gatewayStatus": gatewayStatus}, ip, "failure")
		return &RenewalResult{Status: StatusFailed}, nil
	}

	m, err := s.members.GetByMembershipNumber(ctx, membershipNumber)
	if err != nil {
		return nil, err
	}

	base := now
	if m.MembershipExpires.After(now) {
		base = m.MembershipExpires
	}
	expires := base.AddDate(s.cfg.MembershipYears, 0, 0)

	if err := s.members.ExtendMembership(ctx, membershipNumber, expires); err != nil {
		return nil, err
	}
	if !m.Active() {
		if err := s.members.SetStatus(ctx, membershipNumber, member.StatusActive); err != nil {
			return nil, err
		}
	}

	s.logPayment(ctx, membershipNumber, auditlog.ActionPaymentVerified,
		map[string]interface{}{
			"orderId":   req.OrderID,
			"paymentId": req.PaymentID,
			"amount":    p.Amount,
			"method":    method,
			"expires":   expires.Format("2006-01-02"),
		}, ip, "success")

	log.Printf("✅ Membership renewed for %s until %s", membershipNumber, expires.Format("2006-01-02"))
	return &RenewalResult{Status: StatusSuccess, MembershipExpires: &expires}, nil
}

func (s *service) History(ctx context.Context, membershipNumber string) ([]Payment, error) {
	payments, err := s.repo.ListByMember(ctx, membershipNumber)
	if err != nil {
		return nil, err
	}
	if payments == nil {
		payments = []Payment{}
	}
	return payments, nil
}

// checkAmount confirms the gateway captured what the order asked for
func checkAmount(gatewayPayment map[string]interface{}, expected int) error {
	var amount int
	switch v := gatewayPayment["amount"].(type) {
	case float64:
		amount = int(v)
	case json.Number:
		f, _ := v.Float64()
		amount = int(f)
	default:
		return apperr.Collaborator("razorpay payment fetch", fmt.Errorf("unsupported amount type %T", v))
	}

	if amount != expected {
		return apperr.Conflictf("captured amount %d does not match order amount %d", amount, expected)
	}
	return nil
}

func (s *service) logPayment(ctx context.Context, membershipNumber, action string, details map[string]interface{}, ip, status string) {
	if s.audit == nil {
		return
	}
	target := membershipNumber
	_ = s.audit.LogAction(ctx, &membershipNumber, &target, action, details, ip, status)
}
