// Package composer holds the broadcast composer: recipient selection over a
// filtered customer list, template parameter binding with preview, and a
// single batched send with its per-recipient report.
package composer

import (
	"context"
	"errors"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/luiggiberaldi/sistema-cotizaciones-whatsapp/shared/broadcast"
	xerrors "github.com/luiggiberaldi/sistema-cotizaciones-whatsapp/shared/utils/errors"
)

const unknownServerError = "Error desconocido del servidor"

// Backend is the REST surface the composer needs.
type Backend interface {
	ListCustomers(ctx context.Context, filter broadcast.CustomerFilter) ([]broadcast.Customer, error)
	SendTemplate(ctx context.Context, req broadcast.SendTemplateRequest) (*broadcast.SendResponse, error)
}

// DetailError is implemented by backend errors that carry a structured
// detail message.
type DetailError interface {
	error
	ErrorDetail() string
}

type State int

const (
	StateClosed State = iota
	StateEditing
	StateSending
	StateReported
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateEditing:
		return "editing"
	case StateSending:
		return "sending"
	case StateReported:
		return "reported"
	default:
		return "unknown"
	}
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Composer is safe for concurrent use. Network calls run outside the lock;
// their results are applied only if the open cycle (generation) and, for
// customer fetches, the fetch sequence number are still current.
type Composer struct {
	backend Backend
	catalog *broadcast.Catalog
	logger  *zap.Logger

	mu         sync.Mutex
	state      State
	generation uint64
	fetchSeq   uint64

	initial    []InitialEntry
	recipients RecipientSet
	customers  []broadcast.Customer
	filter     broadcast.CustomerFilter
	template   broadcast.Template
	bindings   []string
	results    *broadcast.SendResponse
	notice     string
}

func New(backend Backend, catalog *broadcast.Catalog, logger *zap.Logger) *Composer {
	c := &Composer{backend: backend, catalog: catalog, logger: logger}
	c.resetLocked()
	return c
}

// Open starts a new cycle seeded from initial and loads the customer list.
// Opening an open composer closes it first.
func (c *Composer) Open(ctx context.Context, initial []InitialEntry) {
	c.mu.Lock()
	c.resetLocked()
	c.generation++
	c.state = StateEditing
	c.initial = append([]InitialEntry(nil), initial...)
	c.recipients.Seed(c.initial)
	c.mu.Unlock()

	c.fetch(ctx)
}

// Close resets every piece of state. In-flight results of the closed cycle
// are discarded when they arrive.
func (c *Composer) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resetLocked()
	c.generation++
}

func (c *Composer) resetLocked() {
	c.state = StateClosed
	c.initial = nil
	c.recipients = NewRecipientSet()
	c.customers = nil
	c.filter = broadcast.CustomerFilter{}
	c.template = c.catalog.First()
	c.bindings = c.template.DefaultBindings()
	c.results = nil
	c.notice = ""
}

// SetFilter stores the search filter and refetches the customer list.
func (c *Composer) SetFilter(ctx context.Context, filter broadcast.CustomerFilter) error {
	c.mu.Lock()
	if err := c.editableLocked(); err != nil {
		c.mu.Unlock()
		return err
	}
	c.filter = filter
	c.mu.Unlock()

	c.fetch(ctx)
	return nil
}

// Refresh refetches the customer list with the current filter.
func (c *Composer) Refresh(ctx context.Context) error {
	c.mu.Lock()
	if c.state == StateClosed {
		c.mu.Unlock()
		return xerrors.ErrComposerClosed
	}
	c.mu.Unlock()

	c.fetch(ctx)
	return nil
}

func (c *Composer) fetch(ctx context.Context) {
	c.mu.Lock()
	if c.state == StateClosed {
		c.mu.Unlock()
		return
	}
	c.fetchSeq++
	gen, seq, filter := c.generation, c.fetchSeq, c.filter
	c.mu.Unlock()

	customers, err := c.backend.ListCustomers(ctx, filter)

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.generation || seq != c.fetchSeq {
		c.logger.Debug("discarding stale customer list",
			zap.Uint64("generation", gen),
			zap.Uint64("seq", seq))
		return
	}
	if err != nil {
		c.logger.Error("customer list fetch failed",
			zap.String("q", filter.Q),
			zap.String("status", filter.Status),
			zap.Error(err))
		return
	}
	c.customers = customers
}

func (c *Composer) Toggle(rawPhone string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.editableLocked(); err != nil {
		return false, err
	}
	return c.recipients.Toggle(rawPhone), nil
}

func (c *Composer) SelectAllVisible() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.editableLocked(); err != nil {
		return err
	}
	c.recipients.SelectAllVisible(c.customers)
	return nil
}

func (c *Composer) DeselectAllVisible() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.editableLocked(); err != nil {
		return err
	}
	c.recipients.DeselectAllVisible(c.customers)
	return nil
}

// SetTemplate switches the active template and resets the bindings to its
// defaults.
func (c *Composer) SetTemplate(id string) error {
	tpl, err := c.catalog.Lookup(id)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.editableLocked(); err != nil {
		return err
	}
	c.template = tpl
	c.bindings = tpl.DefaultBindings()
	return nil
}

func (c *Composer) SetParam(index int, value string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.editableLocked(); err != nil {
		return err
	}
	if index < 0 || index >= len(c.bindings) {
		return xerrors.ErrParamIndex
	}
	c.bindings[index] = value
	return nil
}

func (c *Composer) Preview() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return RenderPreview(c.template, c.bindings)
}

// editableLocked leaves a finished report in place but moves the composer
// back to editing.
func (c *Composer) editableLocked() error {
	switch c.state {
	case StateClosed:
		return xerrors.ErrComposerClosed
	case StateSending:
		return xerrors.ErrComposerBusy
	case StateReported:
		c.state = StateEditing
	}
	return nil
}

// Send issues one batched send for the current selection. With nothing
// selected it does nothing and returns (nil, nil). On failure the selection
// and bindings are kept and Notice reports the error.
func (c *Composer) Send(ctx context.Context) (*broadcast.SendResponse, error) {
	c.mu.Lock()
	switch c.state {
	case StateClosed:
		c.mu.Unlock()
		return nil, xerrors.ErrComposerClosed
	case StateSending:
		c.mu.Unlock()
		return nil, xerrors.ErrComposerBusy
	}
	if len(c.recipients) == 0 {
		c.mu.Unlock()
		c.logger.Info("send skipped, no recipients selected")
		return nil, nil
	}
	req := c.buildRequestLocked()
	gen := c.generation
	c.state = StateSending
	c.notice = ""
	c.mu.Unlock()

	resp, err := c.backend.SendTemplate(ctx, req)

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.generation {
		c.logger.Info("send finished after close, result discarded",
			zap.String("template", req.TemplateName),
			zap.Int("recipients", len(req.Clients)))
		return resp, err
	}
	if err != nil {
		c.state = StateEditing
		c.notice = NoticeFor(err)
		c.logger.Error("broadcast send failed",
			zap.String("template", req.TemplateName),
			zap.Int("recipients", len(req.Clients)),
			zap.Error(err))
		return nil, err
	}
	c.state = StateReported
	c.results = resp
	return resp, nil
}

func (c *Composer) buildRequestLocked() broadcast.SendTemplateRequest {
	params := make([]string, len(c.bindings))
	for i, b := range c.bindings {
		params[i] = strings.TrimSpace(b)
	}

	resolver := NewResolver(c.customers, c.initial)
	ids := c.recipients.Identities()
	clients := make([]broadcast.ClientInfo, 0, len(ids))
	for _, id := range ids {
		clients = append(clients, resolver.Resolve(id))
	}

	return broadcast.SendTemplateRequest{
		Clients:      clients,
		TemplateName: c.template.ID,
		LanguageCode: c.template.LanguageCode,
		Parameters:   params,
	}
}

// NoticeFor turns a send error into the single message shown to the
// operator: the backend detail, else the error text, else a generic text.
func NoticeFor(err error) string {
	var de DetailError
	if errors.As(err, &de) {
		if d := strings.TrimSpace(de.ErrorDetail()); d != "" {
			return d
		}
	}
	if err != nil {
		if msg := strings.TrimSpace(err.Error()); msg != "" {
			return msg
		}
	}
	return unknownServerError
}

// Snapshot is a copy of the composer state, safe to hand out.
type Snapshot struct {
	State              State                    `json:"state"`
	Filter             broadcast.CustomerFilter `json:"filter"`
	Customers          []broadcast.Customer     `json:"customers"`
	Selected           []string                 `json:"selected"`
	AllVisibleSelected bool                     `json:"all_visible_selected"`
	TemplateID         string                   `json:"template_id"`
	Bindings           []string                 `json:"bindings"`
	Preview            string                   `json:"preview"`
	Results            *broadcast.SendResponse  `json:"results,omitempty"`
	Notice             string                   `json:"notice,omitempty"`
}

func (c *Composer) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	customers := make([]broadcast.Customer, len(c.customers))
	copy(customers, c.customers)
	bindings := make([]string, len(c.bindings))
	copy(bindings, c.bindings)
	var results *broadcast.SendResponse
	if c.results != nil {
		r := *c.results
		r.Results = append([]broadcast.SendResult(nil), c.results.Results...)
		results = &r
	}
	return Snapshot{
		State:              c.state,
		Filter:             c.filter,
		Customers:          customers,
		Selected:           c.recipients.Identities(),
		AllVisibleSelected: c.recipients.IsAllVisibleSelected(c.customers),
		TemplateID:         c.template.ID,
		Bindings:           bindings,
		Preview:            RenderPreview(c.template, c.bindings),
		Results:            results,
		Notice:             c.notice,
	}
}
