package service

import (
	"context"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	midtrans "github.com/midtrans/midtrans-go"
	"github.com/midtrans/midtrans-go/snap"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"

	"feeledger_backend/internals/features/finance/gateway/dto"
	"feeledger_backend/internals/features/finance/gateway/model"
	trxDTO "feeledger_backend/internals/features/finance/transactions/dto"
	trxModel "feeledger_backend/internals/features/finance/transactions/model"
	trxService "feeledger_backend/internals/features/finance/transactions/service"
	"feeledger_backend/internals/helpers/apperror"
	"feeledger_backend/internals/logger"
)

// ErrInvalidSignature rejects a notification that was not signed with our server key.
var ErrInvalidSignature = errors.New("invalid notification signature")

// SnapClient is the part of the Midtrans Snap client checkout needs.
type SnapClient interface {
	CreateTransaction(req *snap.Request) (*snap.Response, *midtrans.Error)
}

// NewSnapClient returns a Snap client for the sandbox or production environment.
func NewSnapClient(serverKey string, production bool) *snap.Client {
	var c snap.Client
	if production {
		c.New(serverKey, midtrans.Production)
	} else {
		c.New(serverKey, midtrans.Sandbox)
	}
	return &c
}

// Payments is the payment ledger as seen by the gateway.
type Payments interface {
	Quote(ctx context.Context, scheduleID uuid.UUID, ids []uuid.UUID) (*trxService.Quote, error)
	ProcessPayment(ctx context.Context, in trxDTO.ProcessPayment) (*trxModel.Transaction, bool, error)
}

type Options struct {
	ServerKey string
}

// Gateway opens Snap checkouts for schedule items and turns settled
// notifications into ledger payments.
type Gateway struct {
	store     Store
	payments  Payments
	snap      SnapClient
	serverKey string
	log       zerolog.Logger
}

func NewGateway(store Store, payments Payments, snapClient SnapClient, opts Options) *Gateway {
	return &Gateway{
		store:     store,
		payments:  payments,
		snap:      snapClient,
		serverKey: opts.ServerKey,
		log:       logger.WithComponent("payment_gateway"),
	}
}

// Checkout creates a Snap transaction for the selected items and records a
// pending intent under a fresh order id.
func (g *Gateway) Checkout(ctx context.Context, scheduleID uuid.UUID, in dto.CheckoutRequest) (*model.PaymentIntent, error) {
	q, err := g.payments.Quote(ctx, scheduleID, in.PaymentItemIDs)
	if err != nil {
		return nil, err
	}
	if q.Schedule.PaymentScheduleCurrency != "IDR" {
		return nil, apperror.InvalidInput("gateway payments are only available in IDR, schedule uses %s", q.Schedule.PaymentScheduleCurrency)
	}
	amount := q.TotalDue
	if in.Amount != nil {
		amount = *in.Amount
	}
	if !amount.IsPositive() {
		return nil, apperror.InvalidInput("amount must be positive")
	}
	if !amount.Equal(amount.Truncate(0)) {
		return nil, apperror.InvalidInput("gateway amounts must be whole rupiah")
	}
	if amount.GreaterThan(q.TotalDue) {
		return nil, apperror.InvalidInput("amount %s exceeds the %s still due on the selected items", amount.StringFixed(2), q.TotalDue.StringFixed(2))
	}

	ids, err := sonic.Marshal(in.PaymentItemIDs)
	if err != nil {
		return nil, apperror.Internal(err, "encode payment item ids")
	}
	orderID := "FEE-" + strings.ToUpper(uuid.NewString())

	req := &snap.Request{
		TransactionDetails: midtrans.TransactionDetails{OrderID: orderID, GrossAmt: amount.IntPart()},
		Items:              itemDetails(q, amount),
		CustomField1:       scheduleID.String(),
	}
	resp, merr := g.snap.CreateTransaction(req)
	if merr != nil {
		return nil, apperror.Internal(errors.Errorf("snap: %s", merr.Message), "create gateway checkout")
	}

	intent := &model.PaymentIntent{
		PaymentIntentOrderID:     orderID,
		PaymentIntentScheduleID:  scheduleID,
		PaymentIntentItemIDs:     datatypes.JSON(ids),
		PaymentIntentAmount:      amount,
		PaymentIntentStatus:      model.IntentStatusPending,
		PaymentIntentSnapToken:   &resp.Token,
		PaymentIntentRedirectURL: &resp.RedirectURL,
	}
	if err := g.store.CreateIntent(ctx, intent); err != nil {
		return nil, apperror.Internal(err, "save payment intent")
	}
	g.log.Info().Str("order_id", orderID).Str("payment_schedule_id", scheduleID.String()).
		Str("amount", amount.StringFixed(2)).Msg("gateway checkout created")
	return intent, nil
}

// itemDetails lists the selected items when the whole due amount is paid;
// Midtrans requires the item prices to add up to the gross amount, so a
// partial payment goes out as a single line.
func itemDetails(q *trxService.Quote, amount decimal.Decimal) *[]midtrans.ItemDetails {
	var out []midtrans.ItemDetails
	if amount.Equal(q.TotalDue) {
		for _, it := range q.Items {
			due := it.Due()
			if !due.Equal(due.Truncate(0)) {
				out = nil
				break
			}
			if due.IsZero() {
				continue
			}
			out = append(out, midtrans.ItemDetails{
				ID:    it.PaymentItemID.String(),
				Name:  truncate(it.PaymentItemTitle, 50),
				Price: due.IntPart(),
				Qty:   1,
			})
		}
	}
	if len(out) == 0 {
		out = []midtrans.ItemDetails{{
			ID:    "fee-payment",
			Name:  "School fee payment",
			Price: amount.IntPart(),
			Qty:   1,
		}}
	}
	return &out
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// Signature is SHA512(order_id + status_code + gross_amount + server_key), hex encoded.
func Signature(orderID, statusCode, grossAmount, serverKey string) string {
	sum := sha512.Sum512([]byte(orderID + statusCode + grossAmount + serverKey))
	return hex.EncodeToString(sum[:])
}

func (g *Gateway) verify(n dto.Notification) bool {
	if n.SignatureKey == "" || g.serverKey == "" {
		return false
	}
	want := Signature(n.OrderID, n.StatusCode, n.GrossAmount, g.serverKey)
	return subtle.ConstantTimeCompare([]byte(want), []byte(strings.ToLower(n.SignatureKey))) == 1
}

type outcome int

const (
	outcomeNone outcome = iota
	outcomeSettle
	outcomeFail
	outcomeExpire
)

func classify(n dto.Notification) outcome {
	switch strings.ToLower(n.TransactionStatus) {
	case "settlement":
		return outcomeSettle
	case "capture":
		switch strings.ToLower(n.FraudStatus) {
		case "", "accept":
			return outcomeSettle
		case "challenge":
			return outcomeNone
		}
		return outcomeFail
	case "deny", "cancel", "failure":
		return outcomeFail
	case "expire":
		return outcomeExpire
	}
	return outcomeNone
}

// HandleNotification applies a Midtrans notification to its intent. A settled
// notification records the payment with the order id as idempotency key, so
// repeated deliveries never pay twice.
func (g *Gateway) HandleNotification(ctx context.Context, n dto.Notification) (*model.PaymentIntent, error) {
	if !g.verify(n) {
		return nil, ErrInvalidSignature
	}
	intent, err := g.store.GetIntentByOrderID(ctx, n.OrderID)
	if err != nil {
		return nil, apperror.Internal(err, "get payment intent")
	}
	log := g.log.With().Str("order_id", n.OrderID).Str("transaction_status", n.TransactionStatus).Logger()

	switch classify(n) {
	case outcomeSettle:
		return g.settle(ctx, intent, n, log)
	case outcomeFail:
		return g.closeIntent(ctx, n.OrderID, model.IntentStatusFailed, n, log)
	case outcomeExpire:
		return g.closeIntent(ctx, n.OrderID, model.IntentStatusExpired, n, log)
	}
	log.Debug().Msg("notification ignored")
	return intent, nil
}

func (g *Gateway) settle(ctx context.Context, intent *model.PaymentIntent, n dto.Notification, log zerolog.Logger) (*model.PaymentIntent, error) {
	if intent.PaymentIntentStatus == model.IntentStatusSettled {
		return intent, nil
	}
	gross, err := decimal.NewFromString(strings.TrimSpace(n.GrossAmount))
	if err != nil || !gross.Equal(intent.PaymentIntentAmount) {
		return nil, apperror.InvalidInput("gross_amount %q does not match order %s", n.GrossAmount, n.OrderID)
	}
	var ids []uuid.UUID
	if err := sonic.Unmarshal(intent.PaymentIntentItemIDs, &ids); err != nil {
		return nil, apperror.Internal(err, "decode payment item ids")
	}

	orderID := n.OrderID
	trx, _, err := g.payments.ProcessPayment(ctx, trxDTO.ProcessPayment{
		ScheduleID: intent.PaymentIntentScheduleID,
		ProcessPaymentRequest: trxDTO.ProcessPaymentRequest{
			PaymentItemIDs: ids,
			Amount:         intent.PaymentIntentAmount,
			PaymentMethod:  trxModel.PaymentMethodGateway,
			IdempotencyKey: &orderID,
			Metadata: map[string]any{
				"gateway":        "midtrans",
				"order_id":       n.OrderID,
				"transaction_id": n.TransactionID,
				"payment_type":   n.PaymentType,
			},
		},
	})
	if err != nil {
		if apperror.KindOf(err) == apperror.KindInternal {
			return nil, err
		}
		// The money arrived but the ledger refused it; the intent is parked
		// as failed for manual follow-up.
		log.Error().Err(err).Msg("settled payment rejected by the ledger")
		return g.closeIntent(ctx, n.OrderID, model.IntentStatusFailed, n, log)
	}

	var out *model.PaymentIntent
	err = g.store.Transaction(ctx, func(st Store) error {
		in, err := st.LockIntentByOrderID(ctx, n.OrderID)
		if err != nil {
			return err
		}
		in.PaymentIntentStatus = model.IntentStatusSettled
		in.PaymentIntentTransactionID = &trx.TransactionID
		if n.PaymentType != "" {
			pt := n.PaymentType
			in.PaymentIntentProviderType = &pt
		}
		if err := st.SaveIntent(ctx, in); err != nil {
			return err
		}
		out = in
		return nil
	})
	if err != nil {
		return nil, apperror.Internal(err, "settle payment intent")
	}
	log.Info().Str("transaction_number", trx.TransactionNumber).Msg("gateway payment settled")
	return out, nil
}

// closeIntent moves a pending intent to failed or expired. Settled intents stay settled.
func (g *Gateway) closeIntent(ctx context.Context, orderID string, status model.IntentStatus, n dto.Notification, log zerolog.Logger) (*model.PaymentIntent, error) {
	var out *model.PaymentIntent
	err := g.store.Transaction(ctx, func(st Store) error {
		in, err := st.LockIntentByOrderID(ctx, orderID)
		if err != nil {
			return err
		}
		out = in
		if in.PaymentIntentStatus != model.IntentStatusPending {
			return nil
		}
		in.PaymentIntentStatus = status
		if n.PaymentType != "" {
			pt := n.PaymentType
			in.PaymentIntentProviderType = &pt
		}
		return st.SaveIntent(ctx, in)
	})
	if err != nil {
		return nil, apperror.Internal(err, "update payment intent")
	}
	log.Info().Str("status", string(out.PaymentIntentStatus)).Msg("payment intent closed")
	return out, nil
}

func (g *Gateway) GetIntent(ctx context.Context, orderID string) (*model.PaymentIntent, error) {
	in, err := g.store.GetIntentByOrderID(ctx, strings.TrimSpace(orderID))
	if err != nil {
		return nil, apperror.Internal(err, "get payment intent")
	}
	return in, nil
}

func (g *Gateway) ListIntents(ctx context.Context, scheduleID uuid.UUID) ([]model.PaymentIntent, error) {
	rows, err := g.store.ListIntents(ctx, scheduleID)
	if err != nil {
		return nil, apperror.Internal(err, "list payment intents")
	}
	if rows == nil {
		rows = []model.PaymentIntent{}
	}
	return rows, nil
}
