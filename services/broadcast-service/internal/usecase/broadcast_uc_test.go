package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/luiggiberaldi/sistema-cotizaciones-whatsapp/services/broadcast-service/internal/domain"
	"github.com/luiggiberaldi/sistema-cotizaciones-whatsapp/shared/broadcast"
	"github.com/luiggiberaldi/sistema-cotizaciones-whatsapp/shared/events"
	xerrors "github.com/luiggiberaldi/sistema-cotizaciones-whatsapp/shared/utils/errors"
)

type sentMessage struct {
	to, name, lang string
	params         []string
}

type fakeSender struct {
	sent  []sentMessage
	fails map[string]error
}

func (f *fakeSender) SendTemplate(_ context.Context, to, name, lang string, params []string) (string, error) {
	if err, ok := f.fails[to]; ok {
		return "", err
	}
	f.sent = append(f.sent, sentMessage{to, name, lang, params})
	return "wamid." + to, nil
}

type fakeQuotes struct {
	quotes map[string]*domain.Quote
	err    error
	calls  int
}

func (f *fakeQuotes) LatestByPhone(_ context.Context, phone string) (*domain.Quote, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if q, ok := f.quotes[phone]; ok {
		return q, nil
	}
	return nil, xerrors.ErrNotFound
}

type recordingPublisher struct {
	mu  sync.Mutex
	got []events.Envelope
	err error
}

func (p *recordingPublisher) Publish(_ context.Context, env events.Envelope) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.got = append(p.got, env)
	return p.err
}

func (p *recordingPublisher) Close() error { return nil }

func newTestUsecase(sender *fakeSender, quotes *fakeQuotes, pub events.Publisher) *BroadcastUsecase {
	uc := NewBroadcastUsecase(sender, quotes, pub, zap.NewNop())
	uc.now = func() time.Time { return time.Date(2025, 3, 7, 10, 0, 0, 0, time.UTC) }
	return uc
}

func int64Ptr(v int64) *int64 { return &v }

func TestSendTemplateValidation(t *testing.T) {
	uc := newTestUsecase(&fakeSender{}, &fakeQuotes{}, nil)

	_, err := uc.SendTemplate(context.Background(), "op", broadcast.SendTemplateRequest{TemplateName: "hello_world"})
	assert.ErrorIs(t, err, xerrors.ErrNoClients)

	_, err = uc.SendTemplate(context.Background(), "op", broadcast.SendTemplateRequest{
		Clients:      []broadcast.ClientInfo{{Phone: "584121234567", Name: "Ana"}},
		TemplateName: "  ",
	})
	assert.ErrorIs(t, err, xerrors.ErrTemplateName)
}

func TestSendTemplateResolvesMagicTokens(t *testing.T) {
	sender := &fakeSender{}
	quotes := &fakeQuotes{quotes: map[string]*domain.Quote{
		"584121234567": {ID: 77, Total: decimal.RequireFromString("1234.5")},
	}}
	uc := newTestUsecase(sender, quotes, nil)

	resp, err := uc.SendTemplate(context.Background(), "op", broadcast.SendTemplateRequest{
		Clients: []broadcast.ClientInfo{
			{Phone: "+58 412-1234567", Name: "Ana"},
			{Phone: "58 424 9876543", Name: "Luis", QuoteID: int64Ptr(9)},
		},
		TemplateName: "generic_reminder",
		Parameters:   []string{"{{name}}", "{{total}}", "{{fecha}}", "{{quote_id}}", "literal"},
	})
	require.NoError(t, err)

	assert.Equal(t, "completed", resp.Status)
	assert.Equal(t, 2, resp.TotalClients)
	assert.Equal(t, 2, resp.Successful)
	assert.Equal(t, 0, resp.Failed)

	require.Len(t, sender.sent, 2)
	assert.Equal(t, "584121234567", sender.sent[0].to)
	assert.Equal(t, "es", sender.sent[0].lang)
	assert.Equal(t, []string{"Ana", "$1234.50", "07/03/2025", "77", "literal"}, sender.sent[0].params)
	assert.Equal(t, []string{"Luis", "$0.00", "07/03/2025", "9", "literal"}, sender.sent[1].params)

	// one lookup per client even with two quote tokens
	assert.Equal(t, 2, quotes.calls)

	assert.Equal(t, "+58 412-1234567", resp.Results[0].Phone)
	assert.Equal(t, "wamid.584121234567", resp.Results[0].MessageID)
}

func TestSendTemplateQuoteIDFallsBackToNA(t *testing.T) {
	sender := &fakeSender{}
	uc := newTestUsecase(sender, &fakeQuotes{}, nil)

	_, err := uc.SendTemplate(context.Background(), "op", broadcast.SendTemplateRequest{
		Clients:      []broadcast.ClientInfo{{Phone: "584121234567", Name: "Ana"}},
		TemplateName: "quote_notification",
		LanguageCode: "es_MX",
		Parameters:   []string{"{{name}}", "{{quote_id}}"},
	})
	require.NoError(t, err)
	require.Len(t, sender.sent, 1)
	assert.Equal(t, []string{"Ana", "N/A"}, sender.sent[0].params)
	assert.Equal(t, "es_MX", sender.sent[0].lang)
}

func TestSendTemplateSkipsQuoteLookupWithoutTokens(t *testing.T) {
	quotes := &fakeQuotes{}
	uc := newTestUsecase(&fakeSender{}, quotes, nil)

	_, err := uc.SendTemplate(context.Background(), "op", broadcast.SendTemplateRequest{
		Clients:      []broadcast.ClientInfo{{Phone: "584121234567"}},
		TemplateName: "hello_world",
	})
	require.NoError(t, err)
	assert.Zero(t, quotes.calls)
}

func TestSendTemplatePartialFailure(t *testing.T) {
	sender := &fakeSender{fails: map[string]error{"584249876543": errors.New("whatsapp api status 400: bad number")}}
	uc := newTestUsecase(sender, &fakeQuotes{}, nil)
	okBefore := testutil.ToFloat64(broadcastRecipients.WithLabelValues("hello_world", "success"))
	failedBefore := testutil.ToFloat64(broadcastRecipients.WithLabelValues("hello_world", "failed"))

	resp, err := uc.SendTemplate(context.Background(), "op", broadcast.SendTemplateRequest{
		Clients: []broadcast.ClientInfo{
			{Phone: "584121234567", Name: "Ana"},
			{Phone: "584249876543", Name: "Luis"},
			{Phone: "sin número", Name: "Corto"},
		},
		TemplateName: "hello_world",
	})
	require.NoError(t, err)

	assert.Equal(t, 3, resp.TotalClients)
	assert.Equal(t, 1, resp.Successful)
	assert.Equal(t, 2, resp.Failed)
	require.Len(t, resp.Results, 3)
	assert.True(t, resp.Results[0].Success)
	assert.False(t, resp.Results[1].Success)
	assert.Contains(t, resp.Results[1].Error, "bad number")
	assert.False(t, resp.Results[2].Success)
	assert.Contains(t, resp.Results[2].Error, xerrors.ErrInvalidPhone.Error())

	assert.Equal(t, okBefore+1, testutil.ToFloat64(broadcastRecipients.WithLabelValues("hello_world", "success")))
	assert.Equal(t, failedBefore+2, testutil.ToFloat64(broadcastRecipients.WithLabelValues("hello_world", "failed")))
}

func TestSendTemplateSendsImplausiblePhones(t *testing.T) {
	sender := &fakeSender{}
	uc := newTestUsecase(sender, &fakeQuotes{}, nil)

	resp, err := uc.SendTemplate(context.Background(), "op", broadcast.SendTemplateRequest{
		Clients: []broadcast.ClientInfo{
			{Phone: "+555-1234", Name: "Ana"},
			{Phone: "0412-1234567", Name: "Luis"},
		},
		TemplateName: "hello_world",
	})
	require.NoError(t, err)

	assert.Equal(t, 2, resp.Successful)
	require.Len(t, sender.sent, 2)
	assert.Equal(t, "5551234", sender.sent[0].to)
	assert.Equal(t, "04121234567", sender.sent[1].to)
	assert.Equal(t, "+555-1234", resp.Results[0].Phone)
	assert.Equal(t, "wamid.5551234", resp.Results[0].MessageID)
}

func TestSendTemplateQuoteLookupErrorFailsOnlyThatClient(t *testing.T) {
	sender := &fakeSender{}
	uc := newTestUsecase(sender, &fakeQuotes{err: errors.New("connection refused")}, nil)

	resp, err := uc.SendTemplate(context.Background(), "op", broadcast.SendTemplateRequest{
		Clients:      []broadcast.ClientInfo{{Phone: "584121234567", Name: "Ana"}},
		TemplateName: "payment_reminder",
		Parameters:   []string{"{{name}}", "{{total}}"},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, resp.Failed)
	assert.Contains(t, resp.Results[0].Error, "connection refused")
	assert.Empty(t, sender.sent)
}

func TestSendTemplatePublishesCompletedEvent(t *testing.T) {
	pub := &recordingPublisher{err: errors.New("broker down")}
	uc := newTestUsecase(&fakeSender{}, &fakeQuotes{}, pub)
	publishErrors := testutil.ToFloat64(eventPublishErrors)

	_, err := uc.SendTemplate(context.Background(), "op-7", broadcast.SendTemplateRequest{
		Clients:      []broadcast.ClientInfo{{Phone: "584121234567", Name: "Ana"}},
		TemplateName: "hello_world",
	})
	require.NoError(t, err, "publish errors are only logged")
	assert.Equal(t, publishErrors+1, testutil.ToFloat64(eventPublishErrors))

	require.Len(t, pub.got, 1)
	assert.Equal(t, events.BroadcastCompletedV1, pub.got[0].Meta.Type)
	data, ok := pub.got[0].Data.(events.BroadcastCompleted)
	require.True(t, ok)
	assert.Equal(t, "op-7", data.OperatorID)
	assert.Equal(t, 1, data.Successful)
	assert.Regexp(t, `^bc_`, data.BroadcastID)
}
