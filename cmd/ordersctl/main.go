// ordersctl exercises the storefront orders client from the command line:
// list and inspect orders, preview refunds, submit cancellations/returns, and
// watch the collection with the periodic refresh poller.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"orders-client/internal/clients"
	"orders-client/internal/config"
	"orders-client/internal/lifecycle"
	"orders-client/internal/models"
	"orders-client/internal/monitoring"
	"orders-client/internal/poller"
	"orders-client/internal/repository"
	"orders-client/internal/services"
	"orders-client/internal/session"
	"orders-client/pkg/logger"
)

const usage = `usage: ordersctl [-config FILE] COMMAND [flags]

commands:
  list    fetch and list orders (-status, -q)
  show    show one order with its available action (show ORDER_ID)
  return  preview and submit a cancellation/return (return ORDER_ID ...)
  watch   keep the order list fresh until interrupted
  ping    check backend reachability
`

type app struct {
	cfg     *config.Config
	log     *logrus.Logger
	store   *session.Store
	client  *clients.OrdersClient
	repo    *repository.OrderRepository
	service *services.ReturnService
}

func main() {
	_ = godotenv.Load()

	configPath := flag.String("config", "", "path to a config file (optional)")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ordersctl: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "ordersctl: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Logging)

	store := session.NewStore()
	store.SetToken(os.Getenv("ORDERS_API_TOKEN"))

	client := clients.NewOrdersClient(&clients.OrdersClientConfig{
		BaseURL:   cfg.API.BaseURL,
		Timeout:   cfg.API.Timeout,
		UserAgent: cfg.API.UserAgent,
	}, store, log)

	repo := repository.NewOrderRepository(log)
	metrics := monitoring.NewMetrics(prometheus.NewRegistry())
	service := services.NewReturnService(client, repo, metrics, log)

	a := &app{cfg: cfg, log: log, store: store, client: client, repo: repo, service: service}

	command, args := flag.Arg(0), flag.Args()[1:]
	if err := a.run(command, args); err != nil {
		fmt.Fprintf(os.Stderr, "ordersctl: %v\n", err)
		os.Exit(1)
	}
}

func (a *app) run(command string, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.API.Timeout+5*time.Second)
	defer cancel()

	switch command {
	case "list":
		return a.list(ctx, args)
	case "show":
		return a.show(ctx, args)
	case "return", "cancel":
		return a.submitReturn(ctx, args)
	case "watch":
		return a.watch()
	case "ping":
		return a.client.Ping(ctx)
	default:
		return fmt.Errorf("unknown command %q\n%s", command, usage)
	}
}

func (a *app) list(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	statusFlag := fs.String("status", "", "filter by status (pending, paid, in_preparation, ready, delivered, cancelled)")
	textFlag := fs.String("q", "", "free-text match against the order code")
	if err := fs.Parse(args); err != nil {
		return err
	}

	meta, err := a.service.Refresh(ctx)
	if err != nil {
		return err
	}
	if meta != nil && meta.Unavailable {
		fmt.Println("orders are temporarily unavailable")
		return nil
	}

	filter := repository.ListFilter{Text: *textFlag}
	if *statusFlag != "" {
		status := models.OrderStatus(*statusFlag)
		if !status.Valid() {
			return fmt.Errorf("unknown status %q", *statusFlag)
		}
		filter.Status = &status
	}

	orders := a.repo.List(filter)
	if len(orders) == 0 {
		fmt.Println("no orders")
		return nil
	}
	for _, order := range orders {
		action := lifecycle.ResolveAction(order.Status)
		actionLabel := string(action.Action)
		if !lifecycle.IsEligible(order) {
			actionLabel = "none"
		}
		fmt.Printf("%-12s %-15s %-10s total=%s action=%s\n",
			order.DisplayName(), order.Status, order.OrderDate.Format("2006-01-02"),
			order.Total.StringFixed(2), actionLabel)
	}
	return nil
}

func (a *app) show(ctx context.Context, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: ordersctl show ORDER_ID")
	}
	orderID := args[0]

	if _, err := a.service.Refresh(ctx); err != nil {
		return err
	}
	order, ok := a.repo.Get(orderID)
	if !ok {
		return fmt.Errorf("order %s not found", orderID)
	}

	action := lifecycle.ResolveAction(order.Status)
	fmt.Printf("order %s (%s)\n", order.DisplayName(), order.Status)
	fmt.Printf("  date:  %s", order.OrderDate.Format(time.RFC3339))
	if order.DateSynthesized {
		fmt.Print("  (synthesized)")
	}
	fmt.Println()
	fmt.Printf("  total: %s\n", order.Total.StringFixed(2))
	if order.Notes != "" {
		fmt.Printf("  notes: %s\n", order.Notes)
	}
	for _, line := range order.Lines {
		fmt.Printf("  line %-6s %-30s x%d @ %s = %s\n",
			line.ID, line.ProductName, line.Quantity,
			line.UnitPrice.StringFixed(2), line.Subtotal.StringFixed(2))
	}
	if lifecycle.IsEligible(order) {
		fmt.Printf("  action: %s (%s)\n", action.Label, action.RefundModel)
		if action.RequiresStoreVisit {
			fmt.Println("  note: the products must be brought back to the store")
		}
	} else {
		fmt.Println("  action: none")
	}
	return nil
}

// lineSelections collects repeated -line LINE_ID:QTY flags.
type lineSelections []models.LineSelection

func (l *lineSelections) String() string {
	parts := make([]string, len(*l))
	for i, sel := range *l {
		parts[i] = fmt.Sprintf("%s:%d", sel.LineID, sel.QuantityToCancel)
	}
	return strings.Join(parts, ",")
}

func (l *lineSelections) Set(value string) error {
	id, qtyStr, found := strings.Cut(value, ":")
	if !found || id == "" {
		return fmt.Errorf("expected LINE_ID:QTY, got %q", value)
	}
	qty, err := strconv.Atoi(qtyStr)
	if err != nil {
		return fmt.Errorf("invalid quantity in %q: %w", value, err)
	}
	*l = append(*l, models.LineSelection{LineID: id, QuantityToCancel: qty})
	return nil
}

func (a *app) submitReturn(ctx context.Context, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: ordersctl return ORDER_ID [-type complete|partial] [-line ID:QTY]... [-reason TEXT] [-yes]")
	}
	orderID := args[0]

	fs := flag.NewFlagSet("return", flag.ExitOnError)
	typeFlag := fs.String("type", "complete", "cancellation type: complete or partial")
	reasonFlag := fs.String("reason", "", "reason shown to the store (optional)")
	confirm := fs.Bool("yes", false, "submit without asking; default is preview only")
	var lines lineSelections
	fs.Var(&lines, "line", "line selection LINE_ID:QTY, repeatable (partial only)")
	if err := fs.Parse(args[1:]); err != nil {
		return err
	}

	request := &models.ReturnRequest{
		CancellationType: models.CancellationType(*typeFlag),
		Reason:           *reasonFlag,
		LinesToCancel:    lines,
	}

	if _, err := a.service.Refresh(ctx); err != nil {
		return err
	}

	preview, err := a.service.PreviewRefund(orderID, request)
	if err != nil {
		return err
	}
	fmt.Printf("%s for order %s refunds %s\n",
		preview.Action.Label, preview.Order.DisplayName(), preview.Amount.StringFixed(2))
	if preview.Action.RequiresStoreVisit {
		fmt.Println("note: the products must be brought back to the store")
	}

	if !*confirm {
		fmt.Println("preview only; pass -yes to submit")
		return nil
	}

	confirmation, err := a.service.Submit(ctx, orderID, request)
	if err != nil {
		return err
	}
	fmt.Printf("confirmed: credit note %s, amount %s\n",
		confirmation.CreditNoteCode, confirmation.ConfirmedAmount.StringFixed(2))
	if confirmation.Message != "" {
		fmt.Println(confirmation.Message)
	}
	return nil
}

// watch runs the refresh poller until interrupted. SIGHUP forces an
// immediate refresh, standing in for the app-resume trigger of the mobile
// client.
func (a *app) watch() error {
	if !a.cfg.Refresh.Enabled {
		return fmt.Errorf("refresh is disabled in configuration")
	}

	p := poller.New(func(ctx context.Context) error {
		_, err := a.service.Refresh(ctx)
		return err
	}, a.cfg.Refresh.Interval, a.log)

	if err := p.Start(); err != nil {
		return err
	}
	defer p.Stop()

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	for sig := range signals {
		if sig == syscall.SIGHUP {
			a.log.Info("resume signal received, refreshing now")
			p.Resume()
			continue
		}
		a.log.Info("shutting down")
		return nil
	}
	return nil
}
