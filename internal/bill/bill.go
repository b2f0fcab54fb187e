// Package bill renders a confirmed order as a bill and ships it to one or more
// sinks. Exporting is best-effort: failures are logged and never reach the
// caller.
package bill

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/tiffindesk/api/internal/model"
	"go.uber.org/zap"
)

// FileName follows the {ddMMyy}_{meal}_{Customer_Name}.{ext} convention.
func FileName(o model.Order, ext string) string {
	date := o.Date
	if t, err := model.ParseDate(o.Date); err == nil {
		date = t.Format("020106")
	}
	name := strings.Join(strings.Fields(o.CustomerName), "_")
	name = strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return -1
		}
		return r
	}, name)
	if name == "" {
		name = o.CustomerID
	}
	return fmt.Sprintf("%s_%s_%s.%s", date, model.MealKey(o.MealType), name, ext)
}

// Renderer writes a bill in one format.
type Renderer interface {
	Render(w io.Writer, o model.Order) error
	Ext() string
	ContentType() string
}

// Sink stores a rendered bill and returns where it went.
type Sink interface {
	Put(ctx context.Context, name string, body []byte, contentType string) (string, error)
}

// Exporter renders every order with each renderer and hands the result to
// each sink.
type Exporter struct {
	renderers []Renderer
	sinks     []Sink
	logger    *zap.Logger
}

// NewExporter creates an Exporter. With no renderers or no sinks Export does
// nothing.
func NewExporter(renderers []Renderer, sinks []Sink, logger *zap.Logger) *Exporter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Exporter{renderers: renderers, sinks: sinks, logger: logger}
}

// Export renders and stores the bill for o.
func (e *Exporter) Export(ctx context.Context, o model.Order) {
	if len(e.sinks) == 0 {
		return
	}
	for _, r := range e.renderers {
		name := FileName(o, r.Ext())
		var buf bytes.Buffer
		if err := r.Render(&buf, o); err != nil {
			e.logger.Warn("render bill failed", zap.String("file", name), zap.Error(err))
			continue
		}
		for _, s := range e.sinks {
			loc, err := s.Put(ctx, name, buf.Bytes(), r.ContentType())
			if err != nil {
				e.logger.Warn("store bill failed", zap.String("file", name), zap.Error(err))
				continue
			}
			e.logger.Debug("bill exported", zap.String("file", name), zap.String("location", loc))
		}
	}
}

// line is one row of a bill, shared by the renderers.
type line struct {
	label  string
	qty    string
	price  string
	amount string
	bold   bool
}

func rupees(v decimal.Decimal) string { return "Rs. " + v.StringFixed(2) }

func billLines(o model.Order) []line {
	rows := make([]line, 0, len(o.Items)+4)
	rows = append(rows, line{label: "Item", qty: "Qty", price: "Price", amount: "Amount", bold: true})
	for _, it := range o.Items {
		if it.Quantity <= 0 {
			continue
		}
		rows = append(rows, line{
			label:  it.Name,
			qty:    fmt.Sprint(it.Quantity),
			price:  it.UnitPrice.StringFixed(2),
			amount: it.Amount().StringFixed(2),
		})
	}
	sub := o.ItemsTotal()
	rows = append(rows,
		line{label: "Subtotal", amount: rupees(sub)},
		line{label: "Delivery", amount: rupees(o.DeliveryCharge)},
		line{label: "Grand total", amount: rupees(sub.Add(o.DeliveryCharge)), bold: true},
	)
	return rows
}

func header(o model.Order) []string {
	date := o.Date
	if t, err := model.ParseDate(o.Date); err == nil {
		date = t.Format("02 Jan 2006")
	}
	return []string{
		"Customer: " + o.CustomerName,
		fmt.Sprintf("Date: %s   Meal: %s", date, o.MealType),
	}
}
