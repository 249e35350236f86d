package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/tably/checkout/internal/backend"
	"github.com/tably/checkout/internal/cart"
	"github.com/tably/checkout/internal/checkout"
	"github.com/tably/checkout/internal/config"
	"github.com/tably/checkout/internal/enum"
	"github.com/tably/checkout/internal/guest"
	"github.com/tably/checkout/internal/logging"
	"github.com/tably/checkout/internal/payment"
	"github.com/tably/checkout/internal/session"
	"github.com/tably/checkout/internal/tip"
)

// logNavigator prints where the app would navigate.
type logNavigator struct{ log *logrus.Logger }

func (n *logNavigator) ToOrder(orderID string) {
	n.log.WithField("order_id", orderID).Info("-> order tracking")
}

func (n *logNavigator) ToOrderList(message string) {
	n.log.WithField("message", message).Info("-> order list")
}

func main() {
	app := &cli.App{
		Name:  "checkout",
		Usage: "drive a full checkout attempt against an ordering backend",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "restaurant", Required: true, Usage: "restaurant id"},
			&cli.StringFlag{Name: "restaurant-name", Usage: "restaurant display name"},
			&cli.StringFlag{Name: "table", Usage: "table number (dine-in)"},
			&cli.StringSliceFlag{Name: "item", Required: true, Usage: "cart line as menuItemID:name:unitPrice:quantity"},
			&cli.StringFlag{Name: "method", Value: "CASH", Usage: "payment method: CASH or CARD"},
			&cli.IntFlag{Name: "tip-percent", Usage: "tip percent (5, 10, 15, 20)"},
			&cli.StringFlag{Name: "tip-amount", Usage: "custom tip amount"},
			&cli.StringFlag{Name: "token", Usage: "auth token for signed-in checkout"},
			&cli.StringFlag{Name: "name", Usage: "guest name"},
			&cli.StringFlag{Name: "phone", Usage: "guest phone"},
			&cli.StringFlag{Name: "email", Usage: "guest email"},
			&cli.BoolFlag{Name: "consent", Usage: "guest consent"},
			&cli.BoolFlag{Name: "quick", Usage: "use the quick guest flow (shorter poll timeout)"},
			&cli.BoolFlag{Name: "join", Usage: "join the table's existing session when one is found"},
			&cli.StringFlag{Name: "simulate", Value: "complete", Usage: "processor outcome: complete, cancel, decline"},
			&cli.StringFlag{Name: "notes", Usage: "order notes"},
		},
		Action: run,
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log := logging.New(cfg.LogLevel)

	persist, err := cart.OpenSQLite(cfg.CartDBPath)
	if err != nil {
		return err
	}
	store := cart.NewStore(persist, log)
	if err := store.Restore(); err != nil {
		return err
	}
	if err := store.SetRestaurant(c.String("restaurant"), c.String("restaurant-name")); err != nil {
		return err
	}
	if table := c.String("table"); table != "" {
		if err := store.SetTable(table); err != nil {
			return err
		}
	}
	for _, raw := range c.StringSlice("item") {
		item, err := parseItem(raw)
		if err != nil {
			return err
		}
		if _, err := store.Add(item); err != nil {
			return err
		}
	}

	calc := tip.New(store.Subtotal())
	if p := c.Int("tip-percent"); p > 0 {
		calc.SelectPercent(p)
	} else if amt := c.String("tip-amount"); amt != "" {
		calc.SetCustomAmount(amt)
	}

	client := backend.NewClient(cfg.BackendURL,
		backend.WithToken(c.String("token")),
		backend.WithHTTPClient(&http.Client{Timeout: cfg.HTTPTimeout}))
	resolver := session.NewResolver(client, log)
	processor := payment.NewSimulatedProcessor()
	switch c.String("simulate") {
	case "cancel":
		processor.Result = payment.PresentResult{Outcome: payment.OutcomeCanceled}
	case "decline":
		processor.Result = payment.PresentResult{Outcome: payment.OutcomeDeclined, DeclineMessage: "card declined (simulated)"}
	}

	decider := checkout.SessionDeciderFunc(func(ctx context.Context, res *session.Resolution) (string, error) {
		log.WithField("active_orders", res.ActiveOrdersCount).Info("table already has active orders")
		if c.Bool("join") {
			return enum.SessionChoiceJoin, nil
		}
		return enum.SessionChoiceNew, nil
	})

	orch := checkout.New(store, resolver, client, client, processor, decider,
		&logNavigator{log: log}, checkout.Config{
			PollInterval:     cfg.PollInterval,
			GuestPollTimeout: cfg.GuestPollTimeout,
			QuickPollTimeout: cfg.QuickPollTimeout,
		}, log)

	method := strings.ToUpper(c.String("method"))
	ctx := c.Context

	var result *checkout.Result
	if token := c.String("token"); token != "" {
		result, err = orch.CheckoutAuthenticated(ctx, checkout.AuthenticatedRequest{
			Token:         token,
			PaymentMethod: method,
			TipAmount:     calc.Amount(),
			Notes:         c.String("notes"),
			ReceiptEmail:  c.String("email"),
		})
	} else {
		result, err = orch.CheckoutGuest(ctx, checkout.GuestRequest{
			Identity: guest.Identity{
				Name:    c.String("name"),
				Phone:   c.String("phone"),
				Email:   c.String("email"),
				Consent: c.Bool("consent"),
			},
			PaymentMethod: method,
			TipAmount:     calc.Amount(),
			Notes:         c.String("notes"),
			Quick:         c.Bool("quick"),
		})
	}
	if err != nil {
		return err
	}

	log.WithFields(logrus.Fields{
		"status":   result.Status,
		"order_id": result.OrderID,
		"tip":      calc.Amount().StringFixed(2),
		"total":    calc.Total().StringFixed(2),
	}).Info("checkout finished")
	return nil
}

// parseItem decodes menuItemID:name:unitPrice:quantity.
func parseItem(raw string) (cart.Item, error) {
	parts := strings.Split(raw, ":")
	if len(parts) != 4 {
		return cart.Item{}, fmt.Errorf("invalid item %q, want menuItemID:name:unitPrice:quantity", raw)
	}
	price, err := decimal.NewFromString(parts[2])
	if err != nil {
		return cart.Item{}, fmt.Errorf("invalid unit price in %q: %w", raw, err)
	}
	qty, err := strconv.ParseInt(parts[3], 10, 32)
	if err != nil || qty <= 0 {
		return cart.Item{}, fmt.Errorf("invalid quantity in %q", raw)
	}
	return cart.Item{
		MenuItemID: parts[0],
		Name:       parts[1],
		UnitPrice:  price,
		Quantity:   int32(qty),
	}, nil
}
