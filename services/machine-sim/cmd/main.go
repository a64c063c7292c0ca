// machine-sim places wallet orders for the seeded demo users and redeems every OTP
// through the machine gateway, then prints the outcome counts.
//
// Example:
//
//	go run ./services/machine-sim/cmd \
//	  -orders=500 -users=10 -workers=20 -rps=100 \
//	  -apiUrl=http://localhost:8080 -machineKey=dev-machine-key -doubleRedeem
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nimeshabuddhika/vending-kiosk/pkg"
	"github.com/nimeshabuddhika/vending-kiosk/pkg/utils"
	"github.com/nimeshabuddhika/vending-kiosk/services/machine-sim/internal/sim"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// --------- CLI flags ---------
var (
	orders        = flag.Int("orders", 100, "Total number of orders to place")
	users         = flag.Int("users", 10, "Number of demo users to spread orders over")
	userPrefix    = flag.String("userPrefix", "demo-user-", "Prefix of demo user ids, as seeded")
	itemID        = flag.String("itemId", "coca-cola", "Catalog item to buy")
	paymentMethod = flag.String("paymentMethod", "wallet", "wallet or card")
	apiURL        = flag.String("apiUrl", "http://localhost:8080", "Kiosk API base URL")
	machineKey    = flag.String("machineKey", "dev-machine-key", "Machine API key")
	workers       = flag.Int("workers", 10, "Max in-flight purchases (worker pool size)")
	rps           = flag.Int("rps", 50, "Global requests-per-second limit")
	rpsBurst      = flag.Int("rpsBurst", 0, "Burst size for the limiter (0 => equals rps)")
	doubleRedeem  = flag.Bool("doubleRedeem", false, "Redeem every OTP twice")
	timeout       = flag.Duration("timeout", 4*time.Second, "Per-request timeout")
)

func main() {
	flag.Parse()

	pkg.InitLogger("machine-sim")
	logger := pkg.Logger
	defer logger.Sync()

	if *rps <= 0 {
		logger.Fatal("rps must be positive")
	}
	burst := *rpsBurst
	if burst <= 0 {
		burst = *rps
	}

	// graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	simulator := sim.New(sim.Config{
		APIURL:        *apiURL,
		MachineKey:    *machineKey,
		ItemID:        *itemID,
		PaymentMethod: *paymentMethod,
		Orders:        *orders,
		Users:         *users,
		UserPrefix:    *userPrefix,
		Workers:       *workers,
		DoubleRedeem:  *doubleRedeem,
	}, utils.NewHTTPClient(
		utils.WithClientTimeout(*timeout),
		utils.WithResponseHeaderTimeout(*timeout),
		utils.WithMaxConnsPerHost(*workers),
	), rate.NewLimiter(rate.Limit(*rps), burst), logger)

	start := time.Now()
	logger.Info("simulation started", zap.Int("orders", *orders), zap.Int("workers", *workers), zap.Int("rps", *rps))
	summary := simulator.Run(ctx)
	logger.Info("simulation completed", zap.Duration("duration", time.Since(start)))
	fmt.Print(summary.String())
}
