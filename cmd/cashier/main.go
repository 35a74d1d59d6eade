package main

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"os"

	"github.com/bwmarrin/snowflake"
	"github.com/solvance/cashier-polar/internal/billable"
	"github.com/solvance/cashier-polar/internal/clock"
	"github.com/solvance/cashier-polar/internal/config"
	"github.com/solvance/cashier-polar/internal/customer"
	"github.com/solvance/cashier-polar/internal/events"
	"github.com/solvance/cashier-polar/internal/migration"
	"github.com/solvance/cashier-polar/internal/observability"
	"github.com/solvance/cashier-polar/internal/polar"
	"github.com/solvance/cashier-polar/internal/server"
	"github.com/solvance/cashier-polar/internal/subscription"
	"github.com/solvance/cashier-polar/internal/transaction"
	"github.com/solvance/cashier-polar/internal/webhook"
	"github.com/solvance/cashier-polar/pkg/db"
	"go.uber.org/fx"
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "webhook-secret" {
		printWebhookSecret()
		return
	}

	app := fx.New(
		// Core infrastructure
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		events.Module,

		// Functional domains
		polar.Module,
		customer.Module,
		subscription.Module,
		transaction.Module,
		billable.Module,
		webhook.Module,

		server.Module,
		migration.Module,
	)
	app.Run()
}

// printWebhookSecret emits a fresh signing secret for POLAR_WEBHOOK_SECRET.
func printWebhookSecret() {
	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		panic(err)
	}
	fmt.Println("whsec_" + base64.StdEncoding.EncodeToString(secret))
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
