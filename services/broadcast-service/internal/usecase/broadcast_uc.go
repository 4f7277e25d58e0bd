package usecase

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/luiggiberaldi/sistema-cotizaciones-whatsapp/services/broadcast-service/internal/domain"
	"github.com/luiggiberaldi/sistema-cotizaciones-whatsapp/shared/broadcast"
	"github.com/luiggiberaldi/sistema-cotizaciones-whatsapp/shared/events"
	xerrors "github.com/luiggiberaldi/sistema-cotizaciones-whatsapp/shared/utils/errors"
	"github.com/luiggiberaldi/sistema-cotizaciones-whatsapp/shared/utils/id"
	"github.com/luiggiberaldi/sistema-cotizaciones-whatsapp/shared/utils/phone"
)

const (
	defaultLanguage = "es"
	producerName    = "broadcast-service"
)

// Metrics
var (
	broadcastRecipients = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "broadcast_recipients_total",
			Help: "Total number of broadcast recipients by outcome",
		},
		[]string{"template", "result"},
	)

	broadcastDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "broadcast_duration_seconds",
			Help:    "Duration of a full template broadcast",
			Buckets: []float64{.1, .5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"template"},
	)

	eventPublishErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "broadcast_event_publish_errors_total",
			Help: "Total number of broadcast event publish errors",
		},
	)
)

// TemplateSender delivers one template message and returns the provider
// message id.
type TemplateSender interface {
	SendTemplate(ctx context.Context, to, name, languageCode string, params []string) (string, error)
}

// QuoteLookup finds the newest quote for a normalized phone. It returns
// xerrors.ErrNotFound when the phone has no quotes.
type QuoteLookup interface {
	LatestByPhone(ctx context.Context, phone string) (*domain.Quote, error)
}

type BroadcastUsecase struct {
	sender    TemplateSender
	quotes    QuoteLookup
	publisher events.Publisher
	logger    *zap.Logger
	now       func() time.Time
}

func NewBroadcastUsecase(sender TemplateSender, quotes QuoteLookup, publisher events.Publisher, logger *zap.Logger) *BroadcastUsecase {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &BroadcastUsecase{
		sender:    sender,
		quotes:    quotes,
		publisher: publisher,
		logger:    logger,
		now:       time.Now,
	}
}

// SendTemplate sends the template to every client in order. A failing
// client is reported in its result row and never stops the batch.
func (uc *BroadcastUsecase) SendTemplate(ctx context.Context, operatorID string, req broadcast.SendTemplateRequest) (*broadcast.SendResponse, error) {
	if len(req.Clients) == 0 {
		return nil, xerrors.ErrNoClients
	}
	templateName := strings.TrimSpace(req.TemplateName)
	if templateName == "" {
		return nil, xerrors.ErrTemplateName
	}
	lang := strings.TrimSpace(req.LanguageCode)
	if lang == "" {
		lang = defaultLanguage
	}

	timer := prometheus.NewTimer(broadcastDuration.WithLabelValues(templateName))
	defer timer.ObserveDuration()

	resp := &broadcast.SendResponse{
		Status:       "completed",
		TotalClients: len(req.Clients),
		Results:      make([]broadcast.SendResult, 0, len(req.Clients)),
	}

	for _, client := range req.Clients {
		result := uc.sendOne(ctx, client, templateName, lang, req.Parameters)
		if result.Success {
			resp.Successful++
		} else {
			resp.Failed++
		}
		resp.Results = append(resp.Results, result)
	}

	broadcastRecipients.WithLabelValues(templateName, "success").Add(float64(resp.Successful))
	broadcastRecipients.WithLabelValues(templateName, "failed").Add(float64(resp.Failed))

	uc.logger.Info("broadcast completed",
		zap.String("operator_id", operatorID),
		zap.String("template", templateName),
		zap.Int("total", resp.TotalClients),
		zap.Int("successful", resp.Successful),
		zap.Int("failed", resp.Failed))

	uc.publishCompleted(ctx, operatorID, templateName, lang, resp)
	return resp, nil
}

func (uc *BroadcastUsecase) sendOne(ctx context.Context, client broadcast.ClientInfo, templateName, lang string, params []string) broadcast.SendResult {
	result := broadcast.SendResult{Phone: client.Phone}

	to := phone.Normalize(client.Phone)
	if to == "" {
		result.Error = fmt.Sprintf("%s: %q", xerrors.ErrInvalidPhone, client.Phone)
		return result
	}
	// The provider has the final say on deliverability.
	if !phone.Plausible(to) {
		uc.logger.Warn("phone number looks implausible, sending anyway",
			zap.String("phone", to))
	}

	resolved, err := uc.resolveParameters(ctx, to, client, params)
	if err != nil {
		uc.logger.Warn("parameter resolution failed",
			zap.String("phone", to),
			zap.Error(err))
		result.Error = err.Error()
		return result
	}

	messageID, err := uc.sender.SendTemplate(ctx, to, templateName, lang, resolved)
	if err != nil {
		uc.logger.Warn("template send failed",
			zap.String("phone", to),
			zap.String("template", templateName),
			zap.Error(err))
		result.Error = err.Error()
		return result
	}

	result.Success = true
	result.MessageID = messageID
	return result
}

// resolveParameters replaces magic tokens with per-client values. The
// latest quote is looked up at most once, and only when a token needs it.
func (uc *BroadcastUsecase) resolveParameters(ctx context.Context, to string, client broadcast.ClientInfo, params []string) ([]string, error) {
	if len(params) == 0 {
		return nil, nil
	}

	var (
		quote   *domain.Quote
		fetched bool
	)
	latest := func() (*domain.Quote, error) {
		if fetched {
			return quote, nil
		}
		fetched = true
		q, err := uc.quotes.LatestByPhone(ctx, to)
		if err != nil {
			if errors.Is(err, xerrors.ErrNotFound) {
				return nil, nil
			}
			return nil, fmt.Errorf("lookup latest quote: %w", err)
		}
		quote = q
		return quote, nil
	}

	out := make([]string, len(params))
	for i, p := range params {
		switch p {
		case broadcast.TokenName:
			out[i] = client.Name
		case broadcast.TokenTotal:
			q, err := latest()
			if err != nil {
				return nil, err
			}
			out[i] = q.FormattedTotal()
		case broadcast.TokenFecha:
			out[i] = uc.now().Format("02/01/2006")
		case broadcast.TokenQuoteID:
			if client.QuoteID != nil {
				out[i] = strconv.FormatInt(*client.QuoteID, 10)
				continue
			}
			q, err := latest()
			if err != nil {
				return nil, err
			}
			if q == nil {
				out[i] = "N/A"
			} else {
				out[i] = strconv.FormatInt(q.ID, 10)
			}
		default:
			out[i] = p
		}
	}
	return out, nil
}

func (uc *BroadcastUsecase) publishCompleted(ctx context.Context, operatorID, templateName, lang string, resp *broadcast.SendResponse) {
	payload := events.BroadcastCompleted{
		BroadcastID:  id.GenerateULID("bc"),
		OperatorID:   operatorID,
		TemplateName: templateName,
		LanguageCode: lang,
		TotalClients: resp.TotalClients,
		Successful:   resp.Successful,
		Failed:       resp.Failed,
	}
	env := events.NewEnvelope(events.BroadcastCompletedV1, producerName, "", payload)
	if err := uc.publisher.Publish(ctx, env); err != nil {
		eventPublishErrors.Inc()
		uc.logger.Error("publish broadcast event",
			zap.String("broadcast_id", payload.BroadcastID),
			zap.Error(err))
	}
}
