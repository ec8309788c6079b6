package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mogesh-developer/billing-webapp/internal/checkout"
	"github.com/mogesh-developer/billing-webapp/internal/domain"
	"github.com/mogesh-developer/billing-webapp/internal/session"
	"github.com/shopspring/decimal"
)

const helpText = "<code|text> search  pick N  inc N  dec N  rm N  tax %  disc AMT  cust NAME  pay MODE  checkout  quit"

type settingsLoaded struct{}

type searchDone struct {
	query  string
	result session.SearchResult
	err    error
}

type checkoutDone struct {
	outcome checkout.Outcome
	err     error
}

type receiptMsg struct {
	transactionID string
	text          string
	err           error
}

type model struct {
	ctx     context.Context
	sess    *session.Session
	input   string
	status  string
	receipt string
	busy    bool
}

func newModel(ctx context.Context, sess *session.Session) model {
	return model{ctx: ctx, sess: sess, status: "Loading settings..."}
}

func (m model) Init() tea.Cmd {
	return func() tea.Msg {
		m.sess.Start(m.ctx)
		return settingsLoaded{}
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case settingsLoaded:
		m.status = "Ready"
	case searchDone:
		m.status = searchStatus(msg)
	case checkoutDone:
		m.busy = false
		m.status = checkoutStatus(msg)
	case receiptMsg:
		if msg.err != nil {
			m.status = "Could not load receipt: " + msg.err.Error()
			return m, nil
		}
		m.receipt = msg.text
		m.status = "Receipt for transaction " + msg.transactionID
	}
	return m, nil
}

func (m model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC:
		return m, tea.Quit
	case tea.KeyEsc:
		m.input = ""
		m.receipt = ""
	case tea.KeyBackspace:
		if r := []rune(m.input); len(r) > 0 {
			m.input = string(r[:len(r)-1])
		}
	case tea.KeySpace:
		m.input += " "
	case tea.KeyRunes:
		m.input += string(msg.Runes)
	case tea.KeyEnter:
		line := strings.TrimSpace(m.input)
		m.input = ""
		return m.execute(line)
	}
	return m, nil
}

func (m model) execute(line string) (tea.Model, tea.Cmd) {
	if line == "" {
		return m, nil
	}
	verb, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)

	if m.sess.View().ReceiptOffer != nil {
		switch strings.ToLower(verb) {
		case "y", "yes", "n", "no":
			yes := strings.HasPrefix(strings.ToLower(verb), "y")
			if err := m.sess.ViewReceipt(m.ctx, yes); err != nil {
				m.status = err.Error()
			} else if yes {
				m.status = "Fetching receipt..."
			} else {
				m.status = "Ready"
			}
			return m, nil
		}
	}

	switch strings.ToLower(verb) {
	case "quit", "exit":
		return m, tea.Quit
	case "help":
		m.status = helpText
	case "pick":
		m.withIndex(arg, func(i int) error {
			p, err := m.sess.Pick(i)
			if err == nil {
				m.status = "Added " + p.Name
			}
			return err
		})
	case "inc", "+":
		m.withIndex(arg, func(i int) error { return m.sess.Adjust(i, 1) })
	case "dec", "-":
		m.withIndex(arg, func(i int) error { return m.sess.Adjust(i, -1) })
	case "rm", "del":
		m.withIndex(arg, m.sess.Remove)
	case "tax":
		m.sess.SetTaxRate(arg)
		m.status = "Tax rate set"
	case "disc", "discount":
		m.sess.SetDiscount(arg)
		m.status = "Discount set"
	case "cust", "customer":
		m.sess.SetCustomerName(arg)
		m.status = "Customer set"
	case "pay":
		if err := m.sess.SetPaymentMode(arg); err != nil {
			m.status = fmt.Sprintf("Unknown payment mode %q (Cash, Card, UPI)", arg)
		} else {
			m.status = "Payment mode set"
		}
	case "checkout":
		if m.busy {
			m.status = "Checkout already in progress"
			return m, nil
		}
		m.busy = true
		m.status = "Submitting..."
		m.receipt = ""
		return m, m.checkoutCmd()
	default:
		m.status = "Searching..."
		return m, m.searchCmd(line)
	}
	return m, nil
}

// withIndex runs fn with the 0-based index for a 1-based operator argument.
func (m *model) withIndex(arg string, fn func(int) error) {
	n, err := strconv.Atoi(arg)
	if err != nil || n < 1 {
		m.status = "Expected a line number"
		return
	}
	m.status = "Ready"
	if err := fn(n - 1); err != nil {
		m.status = describe(err)
	}
}

func (m model) searchCmd(query string) tea.Cmd {
	return func() tea.Msg {
		res, err := m.sess.Search(m.ctx, query)
		return searchDone{query: query, result: res, err: err}
	}
}

func (m model) checkoutCmd() tea.Cmd {
	return func() tea.Msg {
		outcome, err := m.sess.Checkout(m.ctx)
		return checkoutDone{outcome: outcome, err: err}
	}
}

func searchStatus(msg searchDone) string {
	switch {
	case msg.err != nil:
		return describe(msg.err)
	case msg.result.Added != nil:
		return "Added " + msg.result.Added.Name
	case len(msg.result.Results) == 0:
		return fmt.Sprintf("No products match %q", msg.query)
	}
	return fmt.Sprintf("%d products match %q, pick one", len(msg.result.Results), msg.query)
}

func checkoutStatus(msg checkoutDone) string {
	if msg.outcome.Message != "" {
		return msg.outcome.Message
	}
	if msg.err != nil {
		return describe(msg.err)
	}
	return "Ready"
}

func describe(err error) string {
	switch {
	case errors.Is(err, session.ErrCartLocked):
		return "Cart is locked until the checkout finishes"
	case errors.Is(err, session.ErrResultOutOfRange):
		return "No such search result"
	case errors.Is(err, checkout.ErrCheckoutInFlight):
		return "Checkout already in progress"
	}
	return err.Error()
}

func (m model) View() string {
	v := m.sess.View()
	money := func(d decimal.Decimal) string { return v.Settings.CurrencySymbol + d.StringFixed(2) }

	b := &strings.Builder{}
	fmt.Fprintf(b, "%s  [%s]\n\n", v.Settings.ShopName, v.Status)

	if len(v.Items) == 0 {
		fmt.Fprintln(b, "  Cart is empty")
	}
	for i, item := range v.Items {
		fmt.Fprintf(b, "%3d  %-24s %4d x %10s = %10s\n", i+1, item.Name, item.Quantity, money(item.UnitPrice), money(item.LineSubtotal))
	}
	fmt.Fprintln(b)
	fmt.Fprintf(b, "  Subtotal %12s\n", money(v.Totals.Subtotal))
	fmt.Fprintf(b, "  Tax (%s%%) %9s\n", v.TaxRatePercent.String(), money(v.Totals.TaxAmount))
	fmt.Fprintf(b, "  Discount %12s\n", money(v.Totals.DiscountAmount))
	fmt.Fprintf(b, "  Total    %12s\n\n", money(v.Totals.Total))

	customer := v.CustomerName
	if customer == "" {
		customer = domain.DefaultCustomerName
	}
	fmt.Fprintf(b, "Customer: %s   Payment: %s\n", customer, v.PaymentMode)

	if len(v.Results) > 0 {
		fmt.Fprintln(b, "\nSearch results:")
		for i, p := range v.Results {
			fmt.Fprintf(b, "  %d) %s (%s) %s, %d in stock\n", i+1, p.Name, p.Barcode, money(p.Price), p.StockQuantity)
		}
	}
	if v.ReceiptOffer != nil {
		fmt.Fprintf(b, "\nView receipt for bill %s? (y/n)\n", v.ReceiptOffer.BillNumber)
	}
	if m.receipt != "" {
		fmt.Fprintf(b, "\n%s\n", m.receipt)
	}

	fmt.Fprintf(b, "\n%s\n", m.status)
	fmt.Fprintf(b, "> %s\n", m.input)
	fmt.Fprintln(b, "\n"+helpText)
	return b.String()
}
