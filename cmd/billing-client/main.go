package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mogesh-developer/billing-webapp/internal/checkout"
	"github.com/mogesh-developer/billing-webapp/internal/client"
	"github.com/mogesh-developer/billing-webapp/internal/config"
	"github.com/mogesh-developer/billing-webapp/internal/rpc"
	"github.com/mogesh-developer/billing-webapp/internal/session"
	"github.com/mogesh-developer/billing-webapp/pkg/logger"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	flag.Parse()

	cfg, err := config.LoadClient(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	// The terminal belongs to the UI; logs go to a file.
	log, err := logger.New(logger.Config{Service: "billing-client", Level: cfg.LogLevel, OutputPath: cfg.LogFile})
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := run(cfg, log); err != nil {
		log.Error("billing client stopped", zap.Error(err))
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(cfg *config.ClientConfig, log *zap.Logger) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	httpClient := client.New(client.Options{
		BaseURL: cfg.ShopBaseURL,
		Timeout: cfg.RequestTimeout,
		Logger:  log,
	})

	var transactions checkout.TransactionService = client.NewTransactionService(httpClient)
	if cfg.TransactionTransport == config.TransportGRPC {
		conn, err := rpc.Dial(cfg.ShopGRPCAddr)
		if err != nil {
			return err
		}
		defer conn.Close()
		transactions = rpc.NewTransactionClient(conn)
		log.Info("submitting sales over grpc", zap.String("addr", cfg.ShopGRPCAddr))
	}

	// p is set before the first receipt can be requested.
	var p *tea.Program
	sess := session.New(session.Config{
		Settings:     client.NewSettingsService(httpClient),
		Catalog:      client.NewCatalogService(httpClient),
		Transactions: transactions,
		Receipts:     client.NewReceiptService(httpClient),
		Logger:       log,
		OnReceipt: func(id, text string, err error) {
			p.Send(receiptMsg{transactionID: id, text: text, err: err})
		},
		CheckoutOptions: []checkout.Option{checkout.WithTimeout(cfg.CheckoutTimeout)},
	})

	p = tea.NewProgram(newModel(ctx, sess), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("run terminal: %w", err)
	}
	return nil
}
