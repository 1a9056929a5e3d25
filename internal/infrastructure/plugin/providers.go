package plugin

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"github.com/jiffoo/mall/internal/domain/plugin"
	"github.com/jiffoo/mall/internal/domain/shared"
	"go.uber.org/zap"
)

// COD accepts orders for payment on delivery. The charge never settles
// online; staff mark the order paid when the cash is collected.
type COD struct{}

// NewCOD creates the cash-on-delivery provider
func NewCOD() *COD { return &COD{} }

// Slug returns "cod"
func (*COD) Slug() string { return SlugCOD }

// Charge records the intent to pay on delivery
func (*COD) Charge(_ context.Context, req plugin.ChargeRequest) (*plugin.ChargeResult, error) {
	return &plugin.ChargeResult{Reference: "cod-" + req.OrderNumber}, nil
}

// Stripe starts a hosted checkout session. Settlement arrives later through
// the payment webhook relay.
type Stripe struct {
	platformKey string
	checkoutURL string
}

// NewStripe creates the Stripe provider. checkoutURL defaults to Stripe's
// hosted checkout.
func NewStripe(platformKey, checkoutURL string) *Stripe {
	if checkoutURL == "" {
		checkoutURL = "https://checkout.stripe.com/pay"
	}
	return &Stripe{platformKey: platformKey, checkoutURL: strings.TrimRight(checkoutURL, "/")}
}

// Slug returns "stripe"
func (*Stripe) Slug() string { return SlugStripe }

// Charge returns the checkout redirect for the order
func (s *Stripe) Charge(_ context.Context, req plugin.ChargeRequest) (*plugin.ChargeResult, error) {
	if req.Config["secret_key"] == "" && s.platformKey == "" {
		return nil, shared.NewDomainError("VALIDATION_ERROR", "Stripe secret key is not configured")
	}
	if !req.Amount.IsPositive() {
		return nil, shared.NewDomainError("INVALID_INPUT", "Charge amount must be positive")
	}

	ref := "cs_" + strings.ReplaceAll(uuid.NewString(), "-", "")
	q := url.Values{}
	q.Set("order", req.OrderNumber)
	q.Set("amount", req.Amount.StringFixed(2))
	q.Set("currency", strings.ToLower(req.Currency))
	if pk := req.Config["publishable_key"]; pk != "" {
		q.Set("key", pk)
	}
	return &plugin.ChargeResult{
		Reference:   ref,
		RedirectURL: fmt.Sprintf("%s/%s?%s", s.checkoutURL, ref, q.Encode()),
	}, nil
}

// GoogleOAuth builds Google sign-in redirects
type GoogleOAuth struct {
	defaultClientID string
}

// NewGoogleOAuth creates the Google sign-in provider. clientID is used when
// the store has not configured its own.
func NewGoogleOAuth(clientID string) *GoogleOAuth {
	return &GoogleOAuth{defaultClientID: clientID}
}

// Slug returns "google-oauth"
func (*GoogleOAuth) Slug() string { return SlugGoogleOAuth }

// AuthorizeURL returns the consent screen URL
func (g *GoogleOAuth) AuthorizeURL(config map[string]string, state string) (string, error) {
	clientID := config["client_id"]
	if clientID == "" {
		clientID = g.defaultClientID
	}
	redirect := config["redirect_url"]
	if clientID == "" || redirect == "" {
		return "", shared.NewDomainError("VALIDATION_ERROR", "Google sign-in is not configured")
	}

	q := url.Values{}
	q.Set("client_id", clientID)
	q.Set("redirect_uri", redirect)
	q.Set("response_type", "code")
	q.Set("scope", "openid email profile")
	q.Set("state", state)
	return "https://accounts.google.com/o/oauth2/v2/auth?" + q.Encode(), nil
}

// Newsletter sends customer notifications. Delivery is a structured log
// entry that a mail relay tails.
type Newsletter struct {
	logger *zap.Logger
}

// NewNewsletter creates the newsletter provider
func NewNewsletter(logger *zap.Logger) *Newsletter {
	return &Newsletter{logger: logger}
}

// Slug returns "newsletter"
func (*Newsletter) Slug() string { return SlugNewsletter }

// Notify emits the message
func (n *Newsletter) Notify(_ context.Context, config map[string]string, msg plugin.Message) error {
	if msg.To == "" {
		return shared.NewDomainError("INVALID_INPUT", "Notification has no recipient")
	}
	n.logger.Info("Newsletter message sent",
		zap.String("tenant_id", msg.TenantID.String()),
		zap.String("from", config["sender"]),
		zap.String("reply_to", config["reply_to"]),
		zap.String("to", msg.To),
		zap.String("subject", msg.Subject),
	)
	return nil
}

var (
	_ plugin.PaymentProvider      = (*COD)(nil)
	_ plugin.PaymentProvider      = (*Stripe)(nil)
	_ plugin.LoginProvider        = (*GoogleOAuth)(nil)
	_ plugin.NotificationProvider = (*Newsletter)(nil)
)
