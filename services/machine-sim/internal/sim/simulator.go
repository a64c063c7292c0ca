// Package sim drives the kiosk API the way a fleet of kiosks and vending machines would:
// users buy from their wallets and a machine redeems every OTP it is shown.
package sim

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/nimeshabuddhika/vending-kiosk/pkg"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

type Config struct {
	APIURL        string
	MachineKey    string
	ItemID        string
	PaymentMethod string
	Orders        int
	Users         int
	UserPrefix    string
	Workers       int
	// DoubleRedeem sends every OTP twice; the second call must be rejected with 409.
	DoubleRedeem bool
}

// Summary counts responses by step and status code.
type Summary struct {
	mu       sync.Mutex
	counts   map[string]int
	Failures int64
}

func newSummary() *Summary {
	return &Summary{counts: make(map[string]int)}
}

func (s *Summary) add(step string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counts[fmt.Sprintf("%s %d", step, status)]++
}

// Count returns how many step calls answered status.
func (s *Summary) Count(step string, status int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counts[fmt.Sprintf("%s %d", step, status)]
}

func (s *Summary) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, 0, len(s.counts))
	for k := range s.counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&b, "%-16s %d\n", k, s.counts[k])
	}
	fmt.Fprintf(&b, "%-16s %d\n", "transport errors", atomic.LoadInt64(&s.Failures))
	return b.String()
}

type Simulator struct {
	cnf     Config
	client  *http.Client
	limiter *rate.Limiter
	logger  *zap.Logger
}

func New(cnf Config, client *http.Client, limiter *rate.Limiter, logger *zap.Logger) *Simulator {
	if cnf.Workers < 1 {
		cnf.Workers = 1
	}
	if cnf.Users < 1 {
		cnf.Users = 1
	}
	return &Simulator{cnf: cnf, client: client, limiter: limiter, logger: logger}
}

// Run places cnf.Orders orders spread over the demo users and redeems each OTP.
func (s *Simulator) Run(ctx context.Context) *Summary {
	summary := newSummary()
	jobs := make(chan string, s.cnf.Workers)

	var wg sync.WaitGroup
	wg.Add(s.cnf.Workers)
	for i := 0; i < s.cnf.Workers; i++ {
		go func() {
			defer wg.Done()
			for userID := range jobs {
				s.purchaseAndRedeem(ctx, userID, summary)
			}
		}()
	}

	for i := 0; i < s.cnf.Orders; i++ {
		userID := fmt.Sprintf("%s%d", s.cnf.UserPrefix, i%s.cnf.Users+1)
		select {
		case <-ctx.Done():
		case jobs <- userID:
			continue
		}
		break
	}
	close(jobs)
	wg.Wait()
	return summary
}

type orderCreated struct {
	OrderID string `json:"orderId"`
	Otp     string `json:"otp"`
	ItemID  string `json:"itemId"`
}

type redeemed struct {
	ItemID string `json:"itemId"`
}

func (s *Simulator) purchaseAndRedeem(ctx context.Context, userID string, summary *Summary) {
	var order orderCreated
	status, err := s.post(ctx, "/api/v1/orders", map[string]string{
		"itemId":        s.cnf.ItemID,
		"paymentMethod": s.cnf.PaymentMethod,
	}, func(r *http.Request) { r.Header.Set(pkg.HeaderUserId, userID) }, &order)
	if err != nil {
		atomic.AddInt64(&summary.Failures, 1)
		s.logger.Error("order request failed", zap.String(pkg.UserId, userID), zap.Error(err))
		return
	}
	summary.add("order", status)
	if status != http.StatusCreated {
		return
	}

	attempts := 1
	if s.cnf.DoubleRedeem {
		attempts = 2
	}
	for i := 0; i < attempts; i++ {
		var out redeemed
		status, err = s.post(ctx, "/api/v1/machine/redeem", map[string]string{"otp": order.Otp},
			func(r *http.Request) { r.Header.Set(pkg.HeaderMachineKey, s.cnf.MachineKey) }, &out)
		if err != nil {
			atomic.AddInt64(&summary.Failures, 1)
			s.logger.Error("redeem request failed", zap.String(pkg.OrderId, order.OrderID), zap.Error(err))
			return
		}
		summary.add("redeem", status)
		if status == http.StatusOK && out.ItemID != order.ItemID {
			s.logger.Error("machine was told to dispense the wrong item",
				zap.String(pkg.OrderId, order.OrderID), zap.String("expected", order.ItemID), zap.String("got", out.ItemID))
		}
	}
}

// post throttles, sends body as JSON and decodes a 2xx response into out.
func (s *Simulator) post(ctx context.Context, path string, body any, decorate func(*http.Request), out any) (int, error) {
	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return 0, err
		}
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return 0, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cnf.APIURL+path, bytes.NewReader(payload))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(pkg.HeaderRequestId, uuid.NewString())
	decorate(req)

	start := time.Now()
	resp, err := s.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	s.logger.Debug("api call completed",
		zap.String("path", path),
		zap.Int("status_code", resp.StatusCode),
		zap.String(pkg.TraceId, resp.Header.Get(pkg.HeaderTraceId)),
		zap.Duration("latency", time.Since(start)))
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if err = json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, fmt.Errorf("decode %s response: %w", path, err)
		}
	}
	return resp.StatusCode, nil
}
