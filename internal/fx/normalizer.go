package fx

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tripledger/tripledger/internal/models"
)

// currencyDirectoryTTL is how long the provider's currency directory is
// served from memory before a refetch.
const currencyDirectoryTTL = 24 * time.Hour

var one = decimal.New(1, 0)

// RateStore is the persisted rate cache: get by (currency, date), put as
// an idempotent upsert. Concurrent misses for the same key may race to
// write, which is safe because every writer computes the same value.
type RateStore interface {
	GetRate(ctx context.Context, currency, date string) (decimal.Decimal, bool, error)
	PutRate(ctx context.Context, rate *models.ExchangeRate) error
}

// Normalizer resolves rate-to-home values for (currency, date) pairs,
// consulting the cache before the provider, and converts expense amounts
// into the home currency at expense write time.
type Normalizer struct {
	home     string
	store    RateStore
	provider RateProvider

	mu            sync.Mutex
	currencies    map[string]string
	currenciesAge time.Time
}

// NewNormalizer creates a normalizer expressing everything in the given
// home currency.
func NewNormalizer(home string, store RateStore, provider RateProvider) *Normalizer {
	return &Normalizer{
		home:     strings.ToUpper(home),
		store:    store,
		provider: provider,
	}
}

// Home returns the home currency code.
func (n *Normalizer) Home() string {
	return n.home
}

// RateToHome returns the rate converting one unit of currency into the
// home currency on the given date (YYYY-MM-DD), quantized half-up to 6
// fractional digits.
//
// The home currency is exactly 1 without touching cache or provider. A
// cache hit is returned unchanged. On a miss the day's provider rates are
// fetched; the response must carry pivot rates for both the home and the
// target currency, otherwise ErrInvalidRateData is returned and nothing
// is cached. The cross rate is (1 / ratePivotToTarget) * ratePivotToHome.
func (n *Normalizer) RateToHome(ctx context.Context, currency, date string) (decimal.Decimal, error) {
	currency = strings.ToUpper(currency)
	if currency == n.home {
		return one, nil
	}

	cached, ok, err := n.store.GetRate(ctx, currency, date)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to read rate cache: %w", err)
	}
	if ok {
		return cached, nil
	}

	rates, err := n.provider.Rates(ctx, date)
	if err != nil {
		return decimal.Zero, err
	}

	pivotToHome, okHome := rates[n.home]
	pivotToTarget, okTarget := rates[currency]
	if !okHome || !okTarget || pivotToTarget.IsZero() {
		return decimal.Zero, fmt.Errorf("%w: no usable %s/%s rates for %s",
			ErrInvalidRateData, n.home, currency, date)
	}

	rate := one.Div(pivotToTarget).Mul(pivotToHome).Round(6)

	// The cache write is fire-and-forget: a racing writer stores the
	// identical value, and a failed write only costs a refetch later.
	if err := n.store.PutRate(ctx, &models.ExchangeRate{
		Currency:   currency,
		Date:       date,
		RateToHome: rate,
	}); err != nil {
		slog.Warn("failed to cache exchange rate", "currency", currency, "date", date, "error", err)
	}

	return rate, nil
}

// Convert returns the rate-to-home for (currency, date) and the amount
// expressed in the home currency, rounded half-up to 2 fractional digits.
func (n *Normalizer) Convert(ctx context.Context, amount decimal.Decimal, currency, date string) (rate, amountHome decimal.Decimal, err error) {
	rate, err = n.RateToHome(ctx, currency, date)
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	return rate, amount.Mul(rate).Round(2), nil
}

// SupportedCurrencies returns the provider's currency directory, cached
// in-process for 24 hours. A stale directory forces a refetch.
func (n *Normalizer) SupportedCurrencies(ctx context.Context) (map[string]string, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.currencies != nil && time.Since(n.currenciesAge) < currencyDirectoryTTL {
		return n.currencies, nil
	}

	currencies, err := n.provider.Currencies(ctx)
	if err != nil {
		return nil, err
	}
	n.currencies = currencies
	n.currenciesAge = time.Now()
	return currencies, nil
}
