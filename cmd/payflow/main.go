// payflow drives the money-moving workflows against a running backend from
// the command line: a two-phase transaction, a currency exchange, or a keepz
// deposit watched until it settles.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/LerianStudio/lib-uncommons/v2/uncommons/backoff"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/f0rthspace/refinance-go/internal/api"
	"github.com/f0rthspace/refinance-go/internal/balance"
	"github.com/f0rthspace/refinance-go/internal/config"
	"github.com/f0rthspace/refinance-go/internal/flow"
	"github.com/f0rthspace/refinance-go/internal/models"
)

var (
	op             string
	fromEntity     int64
	toEntity       int64
	amount         string
	currency       string
	targetCurrency string
	comment        string
	confirmRetries int
)

func init() {
	flag.StringVar(&op, "op", "pay", "Operation: pay | exchange | deposit")
	flag.Int64Var(&fromEntity, "from", 1, "Paying entity id (also the actor)")
	flag.Int64Var(&toEntity, "to", 2, "Receiving entity id")
	flag.StringVar(&amount, "amount", "5.00", "Amount as a decimal string")
	flag.StringVar(&currency, "currency", "GEL", "Currency code")
	flag.StringVar(&targetCurrency, "target-currency", "USD", "Target currency for exchange")
	flag.StringVar(&comment, "comment", "", "Optional transaction comment")
	flag.IntVar(&confirmRetries, "confirm-retries", 3, "Bounded retries for confirm on server errors")
}

func main() {
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	logger, err := zap.NewDevelopment()
	if err != nil {
		log.Fatalf("build logger: %v", err)
	}
	defer logger.Sync()

	client := api.NewClient(cfg.APIBaseURL, cfg.APIToken, api.WithLogger(logger))
	cache := balance.NewCache(client, logger)
	ctx := context.Background()

	switch op {
	case "pay":
		err = runPay(ctx, client, cache, logger)
	case "exchange":
		err = runExchange(ctx, client, cache, logger)
	case "deposit":
		err = runDeposit(ctx, client, cache, cfg, logger)
	default:
		err = fmt.Errorf("unknown op %q", op)
	}
	if err != nil {
		logger.Error("operation failed", zap.String("op", op), zap.Error(err))
		os.Exit(1)
	}
}

func runPay(ctx context.Context, client *api.Client, cache *balance.Cache, logger *zap.Logger) error {
	f := flow.NewTransactionFlow(client, cache, fromEntity, logger)
	if err := f.Submit(ctx, flow.SubmitParams{
		FromEntityID: fromEntity,
		ToEntityID:   toEntity,
		Amount:       amount,
		Currency:     currency,
		Comment:      comment,
	}); err != nil {
		return fmt.Errorf("submit: %w", err)
	}
	tx := f.Transaction()
	fmt.Printf("draft %d: %s %s → entity %d\n", tx.ID, tx.Amount, tx.Currency, tx.ToEntityID)

	// The flow itself never retries; this is the bounded call-site policy,
	// and only server errors are worth another attempt.
	if err := confirmWithRetry(ctx, f); err != nil {
		return fmt.Errorf("confirm: %w", err)
	}

	delta, err := f.Delta(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("completed. %s balance: %s\n", delta.Currency, delta)
	return nil
}

func confirmWithRetry(ctx context.Context, f *flow.TransactionFlow) error {
	var err error
	for attempt := 0; ; attempt++ {
		err = f.Confirm(ctx)
		if err == nil || !api.IsServerError(err) || attempt >= confirmRetries {
			return err
		}
		delay := backoff.FullJitter(backoff.Exponential(250*time.Millisecond, attempt))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
}

func runExchange(ctx context.Context, client *api.Client, cache *balance.Cache, logger *zap.Logger) error {
	sheets, err := client.GetExchangeRates(ctx)
	if err != nil {
		return fmt.Errorf("fetch rates: %w", err)
	}
	source, err := decimal.NewFromString(amount)
	if err != nil {
		return fmt.Errorf("parse amount: %w", err)
	}

	f := flow.NewExchangeFlow(client, cache, models.NewRateTable(sheets), fromEntity, logger)
	if err := f.RequestPreview(ctx, flow.PreviewInput{
		SourceCurrency: currency,
		TargetCurrency: targetCurrency,
		SourceAmount:   &source,
	}); err != nil {
		return fmt.Errorf("preview: %w", err)
	}
	p := f.Preview()
	fmt.Printf("preview: %s %s → %s %s @ %s\n", p.SourceAmount, p.SourceCurrency, p.TargetAmount, p.TargetCurrency, p.Rate)

	if err := f.Execute(ctx); err != nil {
		return fmt.Errorf("execute: %w", err)
	}
	r := f.Receipt()
	fmt.Printf("exchanged: %s %s → %s %s (%d legs)\n", r.SourceAmount, r.SourceCurrency, r.TargetAmount, r.TargetCurrency, len(r.Transactions))
	return nil
}

func runDeposit(ctx context.Context, client *api.Client, cache *balance.Cache, cfg *config.Config, logger *zap.Logger) error {
	dep, err := client.CreateKeepzDeposit(ctx, api.CreateDepositParams{
		ToEntityID: toEntity,
		Amount:     amount,
		Currency:   currency,
	})
	if err != nil {
		return fmt.Errorf("create deposit: %w", err)
	}
	fmt.Printf("deposit %d pending", dep.ID)
	if url := dep.PaymentURL(); url != "" {
		fmt.Printf(", pay at %s", url)
	}
	fmt.Println()

	monitor := flow.NewDepositMonitor(client, cache, flow.MonitorConfig{
		PollInterval:      cfg.DepositPollInterval,
		AutoCompleteDelay: cfg.DepositAutoCompleteDelay,
		DevPaymentURL:     cfg.DevPaymentURL,
	}, dep.ID, toEntity, func(d models.Deposit) {
		fmt.Printf("deposit %d completed: +%s %s 🎉\n", d.ID, d.Amount, d.Currency)
	}, logger)

	return monitor.Run(ctx)
}
