package push

import (
	"context"
	"fmt"

	"firebase.google.com/go/v4/messaging"
	"go.uber.org/zap"
)

// MaxMulticastTokens is the FCM limit for one multicast call
const MaxMulticastTokens = 500

// FCMSender sends through Firebase Cloud Messaging
type FCMSender struct {
	client *messaging.Client
	dryRun bool
	logger *zap.Logger
}

// NewFCMSender wraps a messaging client. With dryRun the provider validates without delivering.
func NewFCMSender(client *messaging.Client, dryRun bool, logger *zap.Logger) *FCMSender {
	return &FCMSender{client: client, dryRun: dryRun, logger: logger}
}

func buildMulticast(tokens []string, msg Message) *messaging.MulticastMessage {
	// No Notification block: a provider-rendered alert would duplicate the client's own.
	return &messaging.MulticastMessage{
		Tokens: tokens,
		Data:   msg.Data(),
		Android: &messaging.AndroidConfig{
			Priority: "high",
		},
		APNS: &messaging.APNSConfig{
			Headers: map[string]string{"apns-priority": "5", "apns-push-type": "background"},
			Payload: &messaging.APNSPayload{
				Aps: &messaging.Aps{ContentAvailable: true},
			},
		},
	}
}

// IsInvalidTokenError reports whether err means the token will never work again.
// INVALID_ARGUMENT is excluded: FCM also returns it for a malformed or oversized
// message, which fails identically on every token.
func IsInvalidTokenError(err error) bool {
	return messaging.IsUnregistered(err) || messaging.IsSenderIDMismatch(err)
}

// SendMulticast sends msg to every token in one call
func (s *FCMSender) SendMulticast(ctx context.Context, tokens []string, msg Message) ([]TokenResult, error) {
	if len(tokens) > MaxMulticastTokens {
		return nil, fmt.Errorf("multicast of %d tokens exceeds limit %d", len(tokens), MaxMulticastTokens)
	}

	message := buildMulticast(tokens, msg)
	var (
		response *messaging.BatchResponse
		err      error
	)
	if s.dryRun {
		response, err = s.client.SendEachForMulticastDryRun(ctx, message)
	} else {
		response, err = s.client.SendEachForMulticast(ctx, message)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransport, err)
	}

	s.logger.Debug("fcm multicast sent",
		zap.String("notification_id", msg.NotificationID),
		zap.Int("tokens", len(tokens)),
		zap.Int("success", response.SuccessCount),
		zap.Int("failure", response.FailureCount),
		zap.Bool("dry_run", s.dryRun),
	)

	results := make([]TokenResult, len(tokens))
	for i, token := range tokens {
		results[i] = TokenResult{Token: token}
		if i >= len(response.Responses) {
			results[i].Err = fmt.Errorf("no response for token")
			continue
		}
		resp := response.Responses[i]
		if resp.Success {
			results[i].MessageID = resp.MessageID
			continue
		}
		results[i].Err = resp.Error
		results[i].InvalidToken = IsInvalidTokenError(resp.Error)
	}
	return results, nil
}
